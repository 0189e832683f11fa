package toolkit

import "github.com/jonwraymond/pageops/tool"

// Blueprint accumulates tool registrations declaratively. Callers list
// tools where they are defined and materialize the toolkit once:
//
//	var bp = toolkit.NewBlueprint("email")
//
//	func init() {
//		bp.Tool(searchInbox, tool.WithName("search_inbox"), tool.WithCache())
//	}
//
//	tk, err := bp.Build()
//
// Build replays the pending list in order, so a later entry under the same
// name replaces an earlier one, exactly as direct registration would.
type Blueprint struct {
	name    string
	pending []pendingTool
}

type pendingTool struct {
	fn   any
	opts []tool.Option
}

// NewBlueprint creates an empty blueprint for a toolkit of the given name.
func NewBlueprint(name string) *Blueprint {
	return &Blueprint{name: name}
}

// Tool appends a pending registration and returns the blueprint for
// chaining.
func (b *Blueprint) Tool(fn any, opts ...tool.Option) *Blueprint {
	b.pending = append(b.pending, pendingTool{fn: fn, opts: opts})
	return b
}

// Build materializes the pending registrations into a Toolkit. The first
// registration failure aborts the build.
func (b *Blueprint) Build(opts ...Option) (*Toolkit, error) {
	tk := New(b.name, opts...)
	for _, p := range b.pending {
		if err := tk.Register(p.fn, p.opts...); err != nil {
			return nil, err
		}
	}
	return tk, nil
}
