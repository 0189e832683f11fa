package store

import (
	"context"
	"errors"
	"time"

	"github.com/jonwraymond/pageops/page"
)

// Sentinel errors for store operations.
var (
	// ErrNotFound is returned when a record for the requested address does
	// not exist.
	ErrNotFound = errors.New("store: record not found")

	// ErrUnversioned is returned when an operation requires a concrete
	// version but the address carries the default sentinel.
	ErrUnversioned = errors.New("store: address has no version")
)

// Record is one cached page: the address it was produced for, its serialized
// payload, a validity flag and the creation timestamp.
type Record struct {
	Address   page.Address
	Payload   []byte
	Valid     bool
	CreatedAt time.Time
}

// Store is durable address-keyed storage for page records.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods should honor cancellation/deadlines where applicable.
// - Versioning: Get with an unversioned address (page.DefaultVersion)
//   returns the highest stored version for the address prefix.
// - Overwrite: Put is last-write-wins for an existing (prefix, version).
type Store interface {
	// Get retrieves the record for an address. Returns (zero, false, nil)
	// on miss.
	Get(ctx context.Context, addr page.Address) (Record, bool, error)

	// Put stores a record, overwriting any existing record for the same
	// address. The record's address must carry a concrete version.
	Put(ctx context.Context, rec Record) error

	// Delete removes the record for an address. Idempotent - no error on
	// miss.
	Delete(ctx context.Context, addr page.Address) error

	// LatestVersion returns the highest stored version for the address
	// prefix, ignoring the version carried by addr. The boolean is false
	// when nothing is stored for the prefix.
	LatestVersion(ctx context.Context, addr page.Address) (int, bool, error)

	// MarkInvalid flips the record's validity flag so the router treats it
	// as a miss. Returns ErrNotFound if no record exists for the address.
	MarkInvalid(ctx context.Context, addr page.Address) error
}
