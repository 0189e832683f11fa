package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jonwraymond/pageops/page"
)

// SQLite is a durable store implementation backed by a SQLite database.
// The schema is created automatically on open.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a SQLite-backed store at the given path.
// Parent directories are created if needed. Use ":memory:" for an ephemeral
// database.
func OpenSQLite(path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: opening database: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise see a distinct database
		db.SetMaxOpenConns(1)
	}

	// WAL gives better behavior under concurrent readers
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enabling WAL mode: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: creating schema: %w", err)
	}
	return s, nil
}

func (s *SQLite) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS pages (
			prefix     TEXT    NOT NULL,
			version    INTEGER NOT NULL,
			payload    BLOB    NOT NULL,
			valid      INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			PRIMARY KEY (prefix, version)
		);

		CREATE INDEX IF NOT EXISTS idx_pages_prefix ON pages(prefix);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Get retrieves the record for addr. An unversioned address resolves to the
// highest stored version for its prefix.
func (s *SQLite) Get(ctx context.Context, addr page.Address) (Record, bool, error) {
	query := `SELECT version, payload, valid, created_at FROM pages WHERE prefix = ?`
	args := []any{addr.Prefix()}
	if addr.Version != page.DefaultVersion {
		query += ` AND version = ?`
		args = append(args, addr.Version)
	}
	query += ` ORDER BY version DESC LIMIT 1`

	var (
		version   int
		payload   []byte
		valid     bool
		createdAt time.Time
	)
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&version, &payload, &valid, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("store: querying %s: %w", addr, err)
	}

	return Record{
		Address:   addr.WithVersion(version),
		Payload:   payload,
		Valid:     valid,
		CreatedAt: createdAt,
	}, true, nil
}

// Put stores a record, overwriting any existing record for the same version.
func (s *SQLite) Put(ctx context.Context, rec Record) error {
	if rec.Address.Version == page.DefaultVersion {
		return fmt.Errorf("%w: %s", ErrUnversioned, rec.Address)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pages (prefix, version, payload, valid, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (prefix, version) DO UPDATE SET
			payload = excluded.payload,
			valid = excluded.valid,
			created_at = excluded.created_at`,
		rec.Address.Prefix(), rec.Address.Version, rec.Payload, rec.Valid, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("store: storing %s: %w", rec.Address, err)
	}
	return nil
}

// Delete removes the record for addr. Idempotent - no error on miss.
func (s *SQLite) Delete(ctx context.Context, addr page.Address) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM pages WHERE prefix = ? AND version = ?`,
		addr.Prefix(), addr.Version,
	)
	if err != nil {
		return fmt.Errorf("store: deleting %s: %w", addr, err)
	}
	return nil
}

// LatestVersion returns the highest stored version for the address prefix.
func (s *SQLite) LatestVersion(ctx context.Context, addr page.Address) (int, bool, error) {
	var version sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(version) FROM pages WHERE prefix = ?`,
		addr.Prefix(),
	).Scan(&version)
	if err != nil {
		return 0, false, fmt.Errorf("store: latest version for %s: %w", addr, err)
	}
	if !version.Valid {
		return 0, false, nil
	}
	return int(version.Int64), true, nil
}

// MarkInvalid flips the record's validity flag.
func (s *SQLite) MarkInvalid(ctx context.Context, addr page.Address) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pages SET valid = 0 WHERE prefix = ? AND version = ?`,
		addr.Prefix(), addr.Version,
	)
	if err != nil {
		return fmt.Errorf("store: invalidating %s: %w", addr, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: invalidating %s: %w", addr, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, addr)
	}
	return nil
}

// Ensure SQLite implements Store
var _ Store = (*SQLite)(nil)
