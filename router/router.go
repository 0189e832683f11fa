package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/pageops/observe"
	"github.com/jonwraymond/pageops/page"
	"github.com/jonwraymond/pageops/store"
	"github.com/jonwraymond/pageops/validator"
)

// Sentinel errors for router operations.
var (
	// ErrUnknownType is returned when no producer is registered for the
	// requested type tag or alias.
	ErrUnknownType = errors.New("router: unknown page type")

	// ErrDuplicateHandler is returned when a registration collides with an
	// existing type tag or alias.
	ErrDuplicateHandler = errors.New("router: handler already registered")
)

// Producer is a page-producing function in one of two execution styles: a
// plain blocking function or a context-aware one. The router branches on
// which style was supplied.
type Producer struct {
	blocking func(page.Address) (page.Page, error)
	ctx      func(context.Context, page.Address) (page.Page, error)
}

// Blocking wraps a plain blocking producer.
func Blocking(fn func(page.Address) (page.Page, error)) Producer {
	return Producer{blocking: fn}
}

// WithContext wraps a context-aware producer.
func WithContext(fn func(context.Context, page.Address) (page.Page, error)) Producer {
	return Producer{ctx: fn}
}

func (p Producer) isZero() bool {
	return p.blocking == nil && p.ctx == nil
}

// entry is one registered handler: the producer, its cache policy and the
// decode hook for payloads read back from the store.
type entry struct {
	tag      string
	producer Producer
	cache    bool
	decode   func([]byte) (page.Page, error)
}

// Router resolves page addresses to pages through registered producers,
// consulting the store and validator registry along the way.
//
// Contract:
// - Concurrency: safe for concurrent use; registration is expected at setup
//   time and resolution afterwards.
// - Identity: a produced page's address must equal the address it was
//   requested for; a mismatch fails the resolution.
// - Errors: producer errors propagate to the caller unchanged apart from
//   address context.
type Router struct {
	mu          sync.RWMutex
	entries     map[string]*entry
	aliases     map[string]string
	store       store.Store
	validators  *validator.Registry
	flight      singleflight.Group
	mw          *observe.Middleware
	maxInFlight int
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithMiddleware sets the observability middleware applied to resolutions.
func WithMiddleware(mw *observe.Middleware) RouterOption {
	return func(r *Router) {
		if mw != nil {
			r.mw = mw
		}
	}
}

// WithMaxConcurrent bounds the number of concurrently resolving addresses in
// bulk fetches. Zero or negative means one goroutine per address.
func WithMaxConcurrent(n int) RouterOption {
	return func(r *Router) { r.maxInFlight = n }
}

// New creates a Router over the given store and validator registry.
func New(s store.Store, v *validator.Registry, opts ...RouterOption) *Router {
	r := &Router{
		entries:    make(map[string]*entry),
		aliases:    make(map[string]string),
		store:      s,
		validators: v,
		mw:         observe.NopMiddleware(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Option configures a single handler registration.
type Option func(*registration)

type registration struct {
	aliases []string
	noCache bool
}

// WithAliases maps additional names to the registered type tag.
func WithAliases(names ...string) Option {
	return func(reg *registration) {
		reg.aliases = append(reg.aliases, names...)
	}
}

// WithoutCache disables store consultation and write-back for the handler.
// Every get runs the producer.
func WithoutCache() Option {
	return func(reg *registration) { reg.noCache = true }
}

// pagePtr constrains P to a pointer to T that satisfies page.Page, so
// registration can allocate fresh pages when decoding cached payloads.
type pagePtr[T any] interface {
	*T
	page.Page
}

// Register installs a context-aware producer for a type tag.
func Register[T any, P pagePtr[T]](r *Router, typ string, produce func(context.Context, page.Address) (P, error), opts ...Option) error {
	return r.register(typ, WithContext(func(ctx context.Context, addr page.Address) (page.Page, error) {
		return produce(ctx, addr)
	}), decoder[T, P](), opts...)
}

// RegisterBlocking installs a plain blocking producer for a type tag.
func RegisterBlocking[T any, P pagePtr[T]](r *Router, typ string, produce func(page.Address) (P, error), opts ...Option) error {
	return r.register(typ, Blocking(func(addr page.Address) (page.Page, error) {
		return produce(addr)
	}), decoder[T, P](), opts...)
}

func decoder[T any, P pagePtr[T]]() func([]byte) (page.Page, error) {
	return func(payload []byte) (page.Page, error) {
		p := P(new(T))
		if err := json.Unmarshal(payload, p); err != nil {
			return nil, fmt.Errorf("router: decoding cached page: %w", err)
		}
		return p, nil
	}
}

// RegisterProducer installs a producer with an explicit decode hook. The
// generic Register forms are the usual entry points; this one exists for
// callers that build producers dynamically.
func (r *Router) RegisterProducer(typ string, p Producer, decode func([]byte) (page.Page, error), opts ...Option) error {
	return r.register(typ, p, decode, opts...)
}

func (r *Router) register(typ string, p Producer, decode func([]byte) (page.Page, error), opts ...Option) error {
	if typ == "" {
		return fmt.Errorf("router: empty type tag")
	}
	if p.isZero() {
		return fmt.Errorf("router: nil producer for type %q", typ)
	}

	reg := &registration{}
	for _, opt := range opts {
		opt(reg)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkName(typ); err != nil {
		return err
	}
	for _, alias := range reg.aliases {
		if alias == typ {
			continue
		}
		if err := r.checkName(alias); err != nil {
			return err
		}
	}

	r.entries[typ] = &entry{
		tag:      typ,
		producer: p,
		cache:    !reg.noCache,
		decode:   decode,
	}
	for _, alias := range reg.aliases {
		if alias != typ {
			r.aliases[alias] = typ
		}
	}
	return nil
}

// checkName requires r.mu held.
func (r *Router) checkName(name string) error {
	if _, ok := r.entries[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateHandler, name)
	}
	if tag, ok := r.aliases[name]; ok {
		return fmt.Errorf("%w: %q (alias of %q)", ErrDuplicateHandler, name, tag)
	}
	return nil
}

// Handles reports whether the name resolves to a registered handler, either
// as a type tag or an alias.
func (r *Router) Handles(name string) bool {
	_, err := r.lookup(name)
	return err == nil
}

func (r *Router) lookup(name string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if tag, ok := r.aliases[name]; ok {
		name = tag
	}
	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	return e, nil
}

// Get resolves an address on the blocking path. A context-aware producer is
// run to completion under a background context.
func (r *Router) Get(addr page.Address) (page.Page, error) {
	return r.observed(context.Background(), addr, false)
}

// GetContext resolves an address on the context path. A blocking producer
// runs on its own goroutine so cancellation still unblocks the caller.
func (r *Router) GetContext(ctx context.Context, addr page.Address) (page.Page, error) {
	return r.observed(ctx, addr, true)
}

// GetURI resolves a canonical address string on the blocking path.
func (r *Router) GetURI(uri string) (page.Page, error) {
	addr, err := page.Parse(uri)
	if err != nil {
		return nil, err
	}
	return r.Get(addr)
}

// GetURIContext resolves a canonical address string on the context path.
func (r *Router) GetURIContext(ctx context.Context, uri string) (page.Page, error) {
	addr, err := page.Parse(uri)
	if err != nil {
		return nil, err
	}
	return r.GetContext(ctx, addr)
}

func (r *Router) observed(ctx context.Context, addr page.Address, contextPath bool) (page.Page, error) {
	meta := observe.OpMeta{Component: "router", Name: "get"}
	fn := r.mw.Wrap(func(ctx context.Context, _ observe.OpMeta, _ any) (any, error) {
		return r.resolve(ctx, addr, contextPath)
	})
	result, err := fn(ctx, meta, addr.String())
	if err != nil {
		return nil, err
	}
	return result.(page.Page), nil
}

// resolve is the per-address protocol: lookup, cache consult, validity
// check, produce, store.
func (r *Router) resolve(ctx context.Context, addr page.Address, contextPath bool) (page.Page, error) {
	e, err := r.lookup(addr.Type)
	if err != nil {
		return nil, err
	}

	meta := observe.OpMeta{Component: "router", Name: "get"}

	if e.cache {
		p, ok, err := r.fromStore(ctx, e, addr, contextPath)
		if err != nil {
			return nil, err
		}
		r.mw.Metrics().RecordCacheHit(ctx, meta, ok)
		if ok {
			return p, nil
		}
	}

	target := addr
	if e.cache && target.Version == page.DefaultVersion {
		target, err = r.nextVersion(ctx, target)
		if err != nil {
			return nil, err
		}
	}

	produced, err, _ := r.flight.Do(target.String(), func() (any, error) {
		p, err := r.produce(ctx, e, target, contextPath)
		if err != nil {
			return nil, err
		}
		if p.Address() != target {
			return nil, fmt.Errorf("router: producer for %q returned page addressed %s, want %s",
				e.tag, p.Address(), target)
		}
		if e.cache {
			if err := r.persist(ctx, p); err != nil {
				return nil, err
			}
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return produced.(page.Page), nil
}

// fromStore returns a decoded, still-valid cached page when one exists.
// A stale cached page is marked invalid best-effort so later lookups miss
// without re-running the validator.
func (r *Router) fromStore(ctx context.Context, e *entry, addr page.Address, contextPath bool) (page.Page, bool, error) {
	rec, ok, err := r.store.Get(ctx, addr)
	if err != nil {
		return nil, false, fmt.Errorf("router: store lookup for %s: %w", addr, err)
	}
	if !ok || !rec.Valid {
		return nil, false, nil
	}

	p, err := e.decode(rec.Payload)
	if err != nil {
		return nil, false, err
	}

	valid := false
	if contextPath {
		valid = r.validators.IsValidContext(ctx, p)
	} else {
		valid = r.validators.IsValid(p)
	}
	if !valid {
		_ = r.store.MarkInvalid(ctx, rec.Address)
		return nil, false, nil
	}
	return p, true, nil
}

// nextVersion resolves an unversioned address to the version a fresh page
// should be produced at: one past the latest stored version, or 1.
func (r *Router) nextVersion(ctx context.Context, addr page.Address) (page.Address, error) {
	latest, ok, err := r.store.LatestVersion(ctx, addr)
	if err != nil {
		return addr, fmt.Errorf("router: resolving version for %s: %w", addr, err)
	}
	if !ok {
		return addr.WithVersion(1), nil
	}
	return addr.WithVersion(latest + 1), nil
}

func (r *Router) produce(ctx context.Context, e *entry, addr page.Address, contextPath bool) (page.Page, error) {
	switch {
	case e.producer.ctx != nil:
		return e.producer.ctx(ctx, addr)
	case contextPath:
		return runBlocking(ctx, e.producer.blocking, addr)
	default:
		return e.producer.blocking(addr)
	}
}

// runBlocking drives a blocking producer from the context path. The producer
// runs on its own goroutine; on cancellation the caller unblocks and the
// producer's eventual result is discarded.
func runBlocking(ctx context.Context, fn func(page.Address) (page.Page, error), addr page.Address) (page.Page, error) {
	type outcome struct {
		p   page.Page
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		p, err := fn(addr)
		done <- outcome{p: p, err: err}
	}()
	select {
	case out := <-done:
		return out.p, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Router) persist(ctx context.Context, p page.Page) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("router: serializing %s: %w", p.Address(), err)
	}
	rec := store.Record{
		Address:   p.Address(),
		Payload:   payload,
		Valid:     true,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.store.Put(ctx, rec); err != nil {
		return fmt.Errorf("router: storing %s: %w", p.Address(), err)
	}
	return nil
}
