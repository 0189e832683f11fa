package validator

import (
	"context"
	"sync"

	"github.com/jonwraymond/pageops/observe"
	"github.com/jonwraymond/pageops/page"
)

// Func is a validation predicate in one of two execution styles: a plain
// blocking predicate or a context-aware one. The registry branches on which
// style was supplied rather than inspecting the callable.
type Func struct {
	sync func(page.Page) bool
	ctx  func(context.Context, page.Page) (bool, error)
}

// Sync wraps a plain blocking predicate.
func Sync(fn func(page.Page) bool) Func {
	return Func{sync: fn}
}

// WithContext wraps a context-aware predicate. It can only be driven through
// IsValidContext; the blocking path treats pages it guards as stale rather
// than risking a blocked caller.
func WithContext(fn func(context.Context, page.Page) (bool, error)) Func {
	return Func{ctx: fn}
}

// For builds a context-aware predicate for one concrete page type. Pages of
// any other concrete type are considered valid, leaving them to their own
// validator.
func For[T page.Page](fn func(context.Context, T) (bool, error)) Func {
	return WithContext(func(ctx context.Context, p page.Page) (bool, error) {
		typed, ok := p.(T)
		if !ok {
			return true, nil
		}
		return fn(ctx, typed)
	})
}

func (f Func) isZero() bool {
	return f.sync == nil && f.ctx == nil
}

// Registry holds per-type validation predicates.
//
// Contract:
// - Concurrency: safe for concurrent use; registration is expected at setup
//   time and lookups afterwards.
// - Overwrite: registering a second validator for the same type replaces the
//   first (last-registered-wins).
type Registry struct {
	mu         sync.RWMutex
	validators map[string]Func
	logger     observe.Logger
}

// NewRegistry creates an empty validator registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		validators: make(map[string]Func),
		logger:     observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for validation diagnostics.
func WithLogger(l observe.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// Register installs a predicate for a page type tag, replacing any existing
// one.
func (r *Registry) Register(typ string, v Func) {
	if typ == "" || v.isZero() {
		return
	}
	r.mu.Lock()
	r.validators[typ] = v
	r.mu.Unlock()
}

// IsValid checks a page on the blocking path.
//
// A type with no validator is valid. A context-aware validator cannot be run
// here; the page is reported stale and a diagnostic is logged, so callers
// fall through to re-producing it instead of blocking. A predicate error
// also reports stale.
func (r *Registry) IsValid(p page.Page) bool {
	v, ok := r.lookup(p)
	if !ok {
		return true
	}
	if v.sync == nil {
		r.logger.Warn(context.Background(), "context validator reached from blocking path, treating page as stale",
			observe.Field{Key: "address", Value: p.Address().String()})
		return false
	}
	return v.sync(p)
}

// IsValidContext checks a page on the context path, driving either predicate
// style. A predicate error reports stale and never propagates.
func (r *Registry) IsValidContext(ctx context.Context, p page.Page) bool {
	v, ok := r.lookup(p)
	if !ok {
		return true
	}
	if v.ctx != nil {
		valid, err := v.ctx(ctx, p)
		if err != nil {
			r.logger.Warn(ctx, "validator failed, treating page as stale",
				observe.Field{Key: "address", Value: p.Address().String()},
				observe.Field{Key: "error", Value: err.Error()})
			return false
		}
		return valid
	}
	return v.sync(p)
}

// HasValidator reports whether a predicate is registered for the type tag.
func (r *Registry) HasValidator(typ string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.validators[typ]
	return ok
}

// Clear removes all registered predicates.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.validators = make(map[string]Func)
	r.mu.Unlock()
}

func (r *Registry) lookup(p page.Page) (Func, bool) {
	if p == nil {
		return Func{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.validators[p.Address().Type]
	return v, ok
}
