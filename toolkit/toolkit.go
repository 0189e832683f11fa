package toolkit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jonwraymond/pageops/cache"
	"github.com/jonwraymond/pageops/observe"
	"github.com/jonwraymond/pageops/tool"
)

// ErrUnknownTool is returned when no tool is registered under the requested
// name.
var ErrUnknownTool = errors.New("toolkit: unknown tool")

// Toolkit is a named collection of tools.
//
// Contract:
// - Concurrency: safe for concurrent use; registration is expected at setup
//   time and invocation afterwards.
// - Overwrite: registering a second tool under the same name replaces the
//   first.
// - Sharing: all tools in a toolkit share one fingerprint cache.
type Toolkit struct {
	name  string
	mu    sync.RWMutex
	tools map[string]*tool.Tool
	store cache.Cache
	mw    *observe.Middleware
}

// Option configures a Toolkit.
type Option func(*Toolkit)

// WithMiddleware sets the observability middleware applied to invokes.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(tk *Toolkit) {
		if mw != nil {
			tk.mw = mw
		}
	}
}

// WithCacheStore replaces the shared fingerprint cache.
func WithCacheStore(c cache.Cache) Option {
	return func(tk *Toolkit) {
		if c != nil {
			tk.store = c
		}
	}
}

// New creates an empty toolkit.
func New(name string, opts ...Option) *Toolkit {
	tk := &Toolkit{
		name:  name,
		tools: make(map[string]*tool.Tool),
		store: cache.NewMemory(),
		mw:    observe.NopMiddleware(),
	}
	for _, opt := range opts {
		opt(tk)
	}
	return tk
}

// Name returns the toolkit's name.
func (tk *Toolkit) Name() string { return tk.name }

// Register builds a tool around fn and stores it. Bound methods and free
// functions register identically. Re-registering a name replaces the
// previous tool.
func (tk *Toolkit) Register(fn any, opts ...tool.Option) error {
	t, err := tool.New(fn, opts...)
	if err != nil {
		return err
	}
	t.SetCache(tk.store)

	tk.mu.Lock()
	tk.tools[t.Name()] = t
	tk.mu.Unlock()
	return nil
}

// Get returns the tool registered under name.
func (tk *Toolkit) Get(name string) (*tool.Tool, error) {
	tk.mu.RLock()
	defer tk.mu.RUnlock()
	t, ok := tk.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return t, nil
}

// Has reports whether a tool is registered under name.
func (tk *Toolkit) Has(name string) bool {
	tk.mu.RLock()
	defer tk.mu.RUnlock()
	_, ok := tk.tools[name]
	return ok
}

// Invoke looks up a tool and delegates to its invoke path.
func (tk *Toolkit) Invoke(ctx context.Context, name string, raw any) (map[string]any, error) {
	t, err := tk.Get(name)
	if err != nil {
		return nil, err
	}

	meta := observe.OpMeta{Component: "toolkit", Name: name}
	fn := tk.mw.Wrap(func(ctx context.Context, _ observe.OpMeta, input any) (any, error) {
		return t.Invoke(ctx, input)
	})
	result, err := fn(ctx, meta, raw)
	if err != nil {
		return nil, err
	}
	return result.(map[string]any), nil
}

// Tools returns the registered tool names in sorted order.
func (tk *Toolkit) Tools() []string {
	tk.mu.RLock()
	defer tk.mu.RUnlock()
	names := make([]string, 0, len(tk.tools))
	for name := range tk.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Descriptions returns one agent-facing line per tool, sorted by name.
// Format: - name(param, param): description
func (tk *Toolkit) Descriptions() []string {
	tk.mu.RLock()
	defer tk.mu.RUnlock()

	lines := make([]string, 0, len(tk.tools))
	for _, t := range tk.tools {
		params := strings.Join(t.Params(), ", ")
		lines = append(lines, fmt.Sprintf("- %s(%s): %s", t.Name(), params, t.Description()))
	}
	sort.Strings(lines)
	return lines
}
