package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonwraymond/pageops/health"
	"github.com/jonwraymond/pageops/observe"
	"github.com/jonwraymond/pageops/page"
	"github.com/jonwraymond/pageops/router"
	"github.com/jonwraymond/pageops/store"
	"github.com/jonwraymond/pageops/toolkit"
	"github.com/jonwraymond/pageops/validator"
)

// ServerContext wires the store, validator registry, router and toolkits
// together under one namespace root.
//
// Contract:
// - Concurrency: safe for concurrent use after setup.
// - Ownership: the context owns its router and validator registry; the
//   store and observer are supplied by the caller and shared.
type ServerContext struct {
	root       string
	store      store.Store
	validators *validator.Registry
	router     *router.Router
	mw         *observe.Middleware
	checks     *health.Aggregator

	mu       sync.RWMutex
	toolkits []*toolkit.Toolkit
}

// ContextOption configures a ServerContext.
type ContextOption func(*contextConfig)

type contextConfig struct {
	store         store.Store
	mw            *observe.Middleware
	maxConcurrent int
}

// WithStore sets the page store. Defaults to an in-memory store.
func WithStore(s store.Store) ContextOption {
	return func(c *contextConfig) {
		if s != nil {
			c.store = s
		}
	}
}

// WithObserver derives the context's instrumentation from an observer.
func WithObserver(obs observe.Observer) ContextOption {
	return func(c *contextConfig) {
		if obs == nil {
			return
		}
		mw, err := observe.MiddlewareFromObserver(obs)
		if err != nil {
			return
		}
		c.mw = mw
	}
}

// WithMaxConcurrent bounds the router's bulk fan-out.
func WithMaxConcurrent(n int) ContextOption {
	return func(c *contextConfig) { c.maxConcurrent = n }
}

// New creates a ServerContext rooted at the given namespace.
func New(root string, opts ...ContextOption) *ServerContext {
	cfg := contextConfig{
		store: store.NewMemory(),
		mw:    observe.NopMiddleware(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	validators := validator.NewRegistry(validator.WithLogger(cfg.mw.Logger()))
	routerOpts := []router.RouterOption{router.WithMiddleware(cfg.mw)}
	if cfg.maxConcurrent > 0 {
		routerOpts = append(routerOpts, router.WithMaxConcurrent(cfg.maxConcurrent))
	}

	checks := health.NewAggregator(0)
	checks.Register(health.NewStoreChecker(cfg.store))

	return &ServerContext{
		root:       root,
		store:      cfg.store,
		validators: validators,
		router:     router.New(cfg.store, validators, routerOpts...),
		mw:         cfg.mw,
		checks:     checks,
	}
}

// Root returns the namespace root.
func (c *ServerContext) Root() string { return c.root }

// Store returns the page store.
func (c *ServerContext) Store() store.Store { return c.store }

// Validators returns the validator registry.
func (c *ServerContext) Validators() *validator.Registry { return c.validators }

// Router returns the page router.
func (c *ServerContext) Router() *router.Router { return c.router }

// Checks returns the health aggregator. It starts with a checker for the
// page store; callers can register more.
func (c *ServerContext) Checks() *health.Aggregator { return c.checks }

// Health runs every registered health check and returns the results by
// checker name.
func (c *ServerContext) Health(ctx context.Context) map[string]health.Result {
	return c.checks.CheckAll(ctx)
}

// NewAddress mints an address in the context's root for a fresh page:
// one version past the latest stored version, or version 1 when nothing is
// stored yet.
func (c *ServerContext) NewAddress(ctx context.Context, typ, id string) (page.Address, error) {
	addr, err := page.New(c.root, typ, id, page.DefaultVersion)
	if err != nil {
		return page.Address{}, err
	}
	latest, ok, err := c.store.LatestVersion(ctx, addr)
	if err != nil {
		return page.Address{}, fmt.Errorf("core: resolving version for %s: %w", addr, err)
	}
	if !ok {
		return addr.WithVersion(1), nil
	}
	return addr.WithVersion(latest + 1), nil
}

// GetPage resolves one canonical address string.
func (c *ServerContext) GetPage(ctx context.Context, uri string) (page.Page, error) {
	return c.router.GetURIContext(ctx, uri)
}

// GetPages resolves address strings concurrently, preserving input order.
func (c *ServerContext) GetPages(ctx context.Context, uris []string) ([]page.Page, error) {
	return c.router.GetManyURIsContext(ctx, uris)
}

// GetPageData resolves address strings and renders each page as a plain
// attribute map, in input order.
func (c *ServerContext) GetPageData(ctx context.Context, uris []string) ([]map[string]any, error) {
	pages, err := c.GetPages(ctx, uris)
	if err != nil {
		return nil, err
	}
	data := make([]map[string]any, len(pages))
	for i, p := range pages {
		attrs, err := page.Data(p)
		if err != nil {
			return nil, err
		}
		data[i] = attrs
	}
	return data, nil
}

// RegisterToolkit adds a toolkit to the context. Toolkits are searched in
// registration order when invoking by name.
func (c *ServerContext) RegisterToolkit(tk *toolkit.Toolkit) {
	if tk == nil {
		return
	}
	c.mu.Lock()
	c.toolkits = append(c.toolkits, tk)
	c.mu.Unlock()
}

// Toolkits returns the registered toolkits in registration order.
func (c *ServerContext) Toolkits() []*toolkit.Toolkit {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*toolkit.Toolkit, len(c.toolkits))
	copy(out, c.toolkits)
	return out
}

// InvokeTool invokes a tool by name. The first registered toolkit owning the
// name wins.
func (c *ServerContext) InvokeTool(ctx context.Context, name string, raw any) (map[string]any, error) {
	c.mu.RLock()
	kits := c.toolkits
	c.mu.RUnlock()

	for _, tk := range kits {
		if tk.Has(name) {
			return tk.Invoke(ctx, name, raw)
		}
	}
	return nil, fmt.Errorf("%w: %q", toolkit.ErrUnknownTool, name)
}

// ToolDescriptions returns the agent-facing description lines of every
// registered toolkit, in registration order.
func (c *ServerContext) ToolDescriptions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var lines []string
	for _, tk := range c.toolkits {
		lines = append(lines, tk.Descriptions()...)
	}
	return lines
}
