package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonwraymond/pageops/cache"
	"github.com/jonwraymond/pageops/page"
)

// Sentinel errors for tool construction and invocation.
var (
	// ErrMissingName is returned when a tool is built without a name.
	ErrMissingName = errors.New("tool: name is required")

	// ErrUnsupportedFunc is returned at construction when the wrapped
	// function has an unrecognized shape.
	ErrUnsupportedFunc = errors.New("tool: unsupported function shape")

	// ErrBadCursor is returned when a pagination cursor fails to parse.
	ErrBadCursor = errors.New("tool: invalid cursor")

	// ErrNoResults marks a retrieval failure meaning "nothing matched".
	// Invoke translates it into a structured not-found response instead of
	// propagating it.
	ErrNoResults = errors.New("tool: no matching results found")
)

// ListFunc is a retrieval function returning its complete result set. When
// pagination is enabled the tool slices the list itself.
type ListFunc func(ctx context.Context, args map[string]any) ([]page.Page, error)

// PagedFunc is a natively paginated retrieval function: it accepts a cursor
// and returns one slice plus the next cursor (empty at the end). The tool
// passes cursors through unchanged and never re-slices.
type PagedFunc func(ctx context.Context, args map[string]any, cursor string) ([]page.Page, string, error)

// Config holds a tool's identity, caching and pagination settings.
type Config struct {
	Name        string
	Description string

	// Params lists the declared parameter names in order. A string passed to
	// Invoke binds to Params[0].
	Params []string

	// Cache enables argument-fingerprint caching.
	Cache bool

	// TTL bounds a cache entry's life. Zero means entries never expire.
	TTL time.Duration

	// Invalidator, when set, is consulted on every cache hit; returning
	// false evicts the entry regardless of TTL.
	Invalidator func(key string, cached []page.Page) bool

	// Paginate enables cursor pagination on the invoke path.
	Paginate bool

	// MaxItems caps the items per page. Defaults to 20.
	MaxItems int

	// MaxTokens caps the estimated tokens per page. Defaults to 2048. A
	// page always keeps at least one item.
	MaxTokens int
}

// Option configures a tool at construction.
type Option func(*Config)

// WithName sets the tool's name.
func WithName(name string) Option {
	return func(c *Config) { c.Name = name }
}

// WithDescription sets the agent-facing description.
func WithDescription(desc string) Option {
	return func(c *Config) { c.Description = desc }
}

// WithParams declares the parameter names in order.
func WithParams(names ...string) Option {
	return func(c *Config) { c.Params = names }
}

// WithCache enables caching.
func WithCache() Option {
	return func(c *Config) { c.Cache = true }
}

// WithTTL enables caching with an expiry.
func WithTTL(ttl time.Duration) Option {
	return func(c *Config) {
		c.Cache = true
		c.TTL = ttl
	}
}

// WithInvalidator enables caching with a custom invalidation predicate.
func WithInvalidator(fn func(key string, cached []page.Page) bool) Option {
	return func(c *Config) {
		c.Cache = true
		c.Invalidator = fn
	}
}

// WithPagination enables cursor pagination on the invoke path.
func WithPagination() Option {
	return func(c *Config) { c.Paginate = true }
}

// WithMaxItems sets the per-page item cap and enables pagination.
func WithMaxItems(n int) Option {
	return func(c *Config) {
		c.Paginate = true
		c.MaxItems = n
	}
}

// WithMaxTokens sets the per-page token budget and enables pagination.
func WithMaxTokens(n int) Option {
	return func(c *Config) {
		c.Paginate = true
		c.MaxTokens = n
	}
}

// Tool wraps one retrieval function.
//
// Contract:
// - Concurrency: safe for concurrent use when its cache is.
// - Caching: errors are never cached; empty results are cached like any
//   other value; direct and invoke calls with identical logical arguments
//   share one entry.
// - Errors: Call propagates function errors unchanged; Invoke translates
//   no-results failures and wraps everything else with context.
type Tool struct {
	cfg   Config
	list  ListFunc
	paged PagedFunc
	store cache.Cache
	keyer cache.Keyer
	now   func() time.Time
}

// pagedEntry is the cached value for a natively paginated call.
type pagedEntry struct {
	pages []page.Page
	next  string
}

// New builds a Tool around fn. Accepted shapes are ListFunc and PagedFunc
// (or functions assignable to them); anything else is rejected with
// ErrUnsupportedFunc. A PagedFunc requires pagination.
func New(fn any, opts ...Option) (*Tool, error) {
	cfg := Config{MaxItems: 20, MaxTokens: 2048}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Name == "" {
		return nil, ErrMissingName
	}
	if cfg.Paginate && cfg.MaxItems < 1 {
		return nil, fmt.Errorf("tool %q: max items must be positive, got %d", cfg.Name, cfg.MaxItems)
	}

	t := &Tool{cfg: cfg, now: time.Now}

	switch f := fn.(type) {
	case ListFunc:
		t.list = f
	case func(context.Context, map[string]any) ([]page.Page, error):
		t.list = f
	case PagedFunc:
		t.paged = f
	case func(context.Context, map[string]any, string) ([]page.Page, string, error):
		t.paged = f
	default:
		return nil, fmt.Errorf("%w: %q must return pages or a paginated page slice, got %T",
			ErrUnsupportedFunc, cfg.Name, fn)
	}

	if t.paged != nil && !cfg.Paginate {
		return nil, fmt.Errorf("%w: %q is natively paginated and requires pagination",
			ErrUnsupportedFunc, cfg.Name)
	}

	if cfg.Cache {
		t.store = cache.NewMemory()
	}
	// Cursor position is pagination state, not a logical argument; keeping
	// it out of the fingerprint lets direct and invoke calls share entries
	// for list tools. Native tools key each cursor separately.
	if t.list != nil {
		t.keyer = cache.Keyer{Exclude: []string{"cursor"}}
	}
	return t, nil
}

// Name returns the tool's name.
func (t *Tool) Name() string { return t.cfg.Name }

// Description returns the agent-facing description, annotated with the
// pagination settings when enabled.
func (t *Tool) Description() string {
	desc := t.cfg.Description
	if t.cfg.Paginate {
		desc += fmt.Sprintf(" (paginated with %d items per page, max %d tokens)",
			t.cfg.MaxItems, t.cfg.MaxTokens)
	}
	return desc
}

// Params returns the declared parameter names.
func (t *Tool) Params() []string {
	out := make([]string, len(t.cfg.Params))
	copy(out, t.cfg.Params)
	return out
}

// Paginated reports whether the invoke path paginates.
func (t *Tool) Paginated() bool { return t.cfg.Paginate }

// SetCache replaces the tool's cache store. A toolkit uses this to share one
// store across its tools. No-op when caching is disabled.
func (t *Tool) SetCache(c cache.Cache) {
	if t.cfg.Cache && c != nil {
		t.store = c
	}
}

// SetClock overrides the timestamp source used for TTL checks. Intended for
// tests.
func (t *Tool) SetClock(now func() time.Time) {
	if now != nil {
		t.now = now
	}
}

// Call executes the wrapped function directly and returns raw pages. It
// participates in caching but never paginates; a natively paginated function
// runs from the start cursor.
func (t *Tool) Call(ctx context.Context, args map[string]any) ([]page.Page, error) {
	if t.list != nil {
		return t.fetchList(ctx, args)
	}
	pages, _, err := t.fetchPaged(ctx, args, "")
	return pages, err
}

// fetchList runs the list function through the cache.
func (t *Tool) fetchList(ctx context.Context, args map[string]any) ([]page.Page, error) {
	key, ok := t.cacheKey(args)
	if ok {
		if pages, hit := t.cachedPages(key); hit {
			return pages, nil
		}
	}
	pages, err := t.list(ctx, args)
	if err != nil {
		return nil, err
	}
	if ok {
		t.store.Put(key, pages)
	}
	return pages, nil
}

// fetchPaged runs the native-paginated function through the cache. The
// cursor is part of the fingerprint: each position is its own entry.
func (t *Tool) fetchPaged(ctx context.Context, args map[string]any, cursor string) ([]page.Page, string, error) {
	keyed := args
	if t.cfg.Cache {
		keyed = make(map[string]any, len(args)+1)
		for k, v := range args {
			keyed[k] = v
		}
		keyed["cursor"] = cursor
	}
	key, ok := t.cacheKey(keyed)
	if ok {
		if v, hit := t.cachedEntry(key); hit {
			if pe, isPaged := v.(pagedEntry); isPaged {
				return pe.pages, pe.next, nil
			}
		}
	}
	pages, next, err := t.paged(ctx, args, cursor)
	if err != nil {
		return nil, "", err
	}
	if ok {
		t.store.Put(key, pagedEntry{pages: pages, next: next})
	}
	return pages, next, nil
}

// cacheKey fingerprints the arguments. The second return is false when
// caching is off or the key cannot be computed; the call then executes
// uncached rather than failing.
func (t *Tool) cacheKey(args map[string]any) (string, bool) {
	if !t.cfg.Cache || t.store == nil {
		return "", false
	}
	key, err := t.keyer.Key(t.cfg.Name, args)
	if err != nil {
		return "", false
	}
	return key, true
}

// cachedPages returns a still-fresh cached page list.
func (t *Tool) cachedPages(key string) ([]page.Page, bool) {
	v, ok := t.cachedValue(key, func(v any) []page.Page {
		pages, _ := v.([]page.Page)
		return pages
	})
	if !ok {
		return nil, false
	}
	pages, ok := v.([]page.Page)
	return pages, ok
}

// cachedEntry returns a still-fresh cached pagedEntry.
func (t *Tool) cachedEntry(key string) (any, bool) {
	return t.cachedValue(key, func(v any) []page.Page {
		pe, _ := v.(pagedEntry)
		return pe.pages
	})
}

// cachedValue applies the TTL and invalidator checks to a cache entry.
// Rejected entries are evicted so the next lookup misses immediately.
func (t *Tool) cachedValue(key string, pagesOf func(any) []page.Page) (any, bool) {
	entry, ok := t.store.Get(key)
	if !ok {
		return nil, false
	}
	if t.cfg.TTL > 0 && t.now().Sub(entry.CreatedAt) > t.cfg.TTL {
		t.store.Delete(key)
		return nil, false
	}
	if t.cfg.Invalidator != nil && !t.cfg.Invalidator(key, pagesOf(entry.Value)) {
		t.store.Delete(key)
		return nil, false
	}
	return entry.Value, true
}

// Invoke executes the tool from raw agent input and serializes the result.
// Raw input is either a string, bound to the first declared parameter, or a
// map of parameter names to values.
func (t *Tool) Invoke(ctx context.Context, raw any) (map[string]any, error) {
	args, err := t.prepareArgs(raw)
	if err != nil {
		return nil, err
	}

	cursor := ""
	if c, ok := args["cursor"]; ok {
		s, ok := c.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %v", ErrBadCursor, c)
		}
		cursor = s
		delete(args, "cursor")
	}
	cursor = normalizeCursor(cursor)

	results, next, hasNext, err := t.execute(ctx, args, cursor)
	if err != nil {
		if isNoResults(err) {
			return noResultsResponse(err), nil
		}
		if errors.Is(err, ErrBadCursor) {
			return nil, err
		}
		return nil, fmt.Errorf("tool execution failed: %w", err)
	}
	if len(results) == 0 {
		return noResultsResponse(nil), nil
	}

	serialized := make([]map[string]any, len(results))
	for i, p := range results {
		attrs, err := page.Data(p)
		if err != nil {
			return nil, fmt.Errorf("tool execution failed: %w", err)
		}
		serialized[i] = attrs
	}

	response := map[string]any{"results": serialized}
	if t.cfg.Paginate {
		if hasNext {
			response["next_cursor"] = next
		} else {
			response["next_cursor"] = nil
		}
	}
	return response, nil
}

// execute routes to the configured pagination strategy and returns the page
// slice plus next-cursor state.
func (t *Tool) execute(ctx context.Context, args map[string]any, cursor string) ([]page.Page, string, bool, error) {
	if t.paged != nil {
		pages, next, err := t.fetchPaged(ctx, args, cursor)
		if err != nil {
			return nil, "", false, err
		}
		return pages, next, next != "", nil
	}

	pages, err := t.fetchList(ctx, args)
	if err != nil {
		return nil, "", false, err
	}
	if !t.cfg.Paginate {
		return pages, "", false, nil
	}
	return t.slicePage(pages, cursor)
}

// prepareArgs resolves raw invoke input into an argument map the tool owns.
func (t *Tool) prepareArgs(raw any) (map[string]any, error) {
	switch in := raw.(type) {
	case nil:
		return map[string]any{}, nil
	case string:
		if len(t.cfg.Params) == 0 {
			return nil, fmt.Errorf("tool %q: string input needs a declared parameter", t.cfg.Name)
		}
		return map[string]any{t.cfg.Params[0]: in}, nil
	case map[string]any:
		args := make(map[string]any, len(in))
		for k, v := range in {
			args[k] = v
		}
		return args, nil
	default:
		return nil, fmt.Errorf("tool %q: input must be a string or a map, got %T", t.cfg.Name, raw)
	}
}

func noResultsResponse(err error) map[string]any {
	msg := "No matching results found"
	if err != nil {
		msg = err.Error()
	}
	return map[string]any{
		"response_code": "error_no_results_found",
		"results":       []map[string]any{},
		"error_message": msg,
	}
}

// isNoResults reports whether a retrieval failure means "nothing matched"
// rather than a real error.
func isNoResults(err error) bool {
	if errors.Is(err, ErrNoResults) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no results") ||
		strings.Contains(strings.ToLower(err.Error()), "no matching")
}
