package tree

import (
	"log/slog"
	"slices"

	"github.com/XuHaoJun/rvue-sub001/pkg/fragment"
	"github.com/XuHaoJun/rvue-sub001/pkg/reactive"
)

type node struct {
	gen  uint32
	live bool

	kind     *Kind
	props    Props
	parent   Handle
	children []Handle

	dirty bool
	stale bool
	cache *fragment.Fragment

	transform fragment.Affine
	size      Size

	provided map[any]any
	scope    *reactive.Scope

	draws int
}

// Tree is an arena of component nodes bound to a reactive runtime.
type Tree struct {
	rt     *reactive.Runtime
	scope  *reactive.Scope
	logger *slog.Logger

	nodes []node
	free  []uint32
	roots []Handle

	// version changes on every structural edit.
	version uint64
	layers  layerIndex

	stats Stats
}

// Stats holds tree counters.
type Stats struct {
	Nodes     int // live nodes
	Created   uint64
	Destroyed uint64
	Marks     uint64 // MarkDirty calls that reached a live node
	Staled    uint64 // ancestors newly marked stale
}

// Option configures a Tree.
type Option func(*Tree)

// WithLogger sets the tree's logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tree) {
		if l != nil {
			t.logger = l
		}
	}
}

// New creates an empty tree whose node scopes hang off a new root scope of
// rt.
func New(rt *reactive.Runtime, opts ...Option) *Tree {
	t := &Tree{
		rt:     rt,
		scope:  rt.NewScope(nil),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Runtime returns the reactive runtime the tree is bound to.
func (t *Tree) Runtime() *reactive.Runtime {
	return t.rt
}

// Len returns the number of live nodes.
func (t *Tree) Len() int {
	return t.stats.Nodes
}

// Stats returns a copy of the tree counters.
func (t *Tree) Stats() Stats {
	return t.stats
}

// Roots returns the root handles in creation order.
func (t *Tree) Roots() []Handle {
	return slices.Clone(t.roots)
}

// Version returns a counter that changes on every structural edit.
func (t *Tree) Version() uint64 {
	return t.version
}

func (t *Tree) get(h Handle) (*node, bool) {
	if h.gen == 0 || int(h.index) >= len(t.nodes) {
		return nil, false
	}
	n := &t.nodes[h.index]
	if !n.live || n.gen != h.gen {
		return nil, false
	}
	return n, true
}

// Valid reports whether h refers to a live node.
func (t *Tree) Valid(h Handle) bool {
	_, ok := t.get(h)
	return ok
}

func (t *Tree) alloc(kind *Kind, props Props, parent Handle, scope *reactive.Scope) Handle {
	var idx uint32
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		idx = uint32(len(t.nodes))
		t.nodes = append(t.nodes, node{})
	}
	n := &t.nodes[idx]
	gen := n.gen + 1
	*n = node{
		gen:       gen,
		live:      true,
		kind:      kind,
		props:     props.Clone(),
		parent:    parent,
		dirty:     true,
		transform: fragment.Identity(),
		scope:     t.rt.NewScope(scope),
	}
	t.stats.Nodes++
	t.stats.Created++
	t.version++
	return Handle{index: idx, gen: gen}
}

// NewRoot creates a parentless node.
func (t *Tree) NewRoot(kind *Kind, props Props) Handle {
	h := t.alloc(kind, props, Handle{}, t.scope)
	t.roots = append(t.roots, h)
	return h
}

// Build appends a new child to parent.
func (t *Tree) Build(parent Handle, kind *Kind, props Props) (Handle, error) {
	p, ok := t.get(parent)
	if !ok {
		return Handle{}, nodeErr("build", parent, ErrStaleNode)
	}
	return t.Insert(parent, len(p.children), kind, props)
}

// Insert creates a new child of parent at index and marks parent dirty.
func (t *Tree) Insert(parent Handle, index int, kind *Kind, props Props) (Handle, error) {
	p, ok := t.get(parent)
	if !ok {
		return Handle{}, nodeErr("insert", parent, ErrStaleNode)
	}
	if index < 0 || index > len(p.children) {
		return Handle{}, nodeErr("insert", parent, ErrIndexOutOfRange)
	}
	h := t.alloc(kind, props, parent, p.scope)

	// alloc may grow the arena; re-fetch the parent.
	p, _ = t.get(parent)
	p.children = slices.Insert(p.children, index, h)
	t.markDirty(parent)
	return h, nil
}

// Remove destroys h and its subtree. The parent, if any, is marked dirty.
func (t *Tree) Remove(h Handle) error {
	n, ok := t.get(h)
	if !ok {
		return nodeErr("remove", h, ErrStaleNode)
	}
	if parent := n.parent; !parent.IsZero() {
		p, _ := t.get(parent)
		p.children = slices.DeleteFunc(p.children, func(c Handle) bool { return c == h })
		t.markDirty(parent)
	} else {
		t.roots = slices.DeleteFunc(t.roots, func(r Handle) bool { return r == h })
	}
	t.destroy(h)
	t.version++
	return nil
}

// destroy frees the subtree rooted at h, children first.
func (t *Tree) destroy(h Handle) {
	n, ok := t.get(h)
	if !ok {
		return
	}
	children := n.children
	for i := len(children) - 1; i >= 0; i-- {
		t.destroy(children[i])
	}

	// Children are gone; re-fetch in case the slice moved.
	n = &t.nodes[h.index]
	if n.scope != nil {
		n.scope.Dispose()
	}
	gen := n.gen
	*n = node{gen: gen}
	t.free = append(t.free, h.index)
	t.stats.Nodes--
	t.stats.Destroyed++
}

// Reorder replaces parent's child order. order must be a permutation of the
// current children. The parent is marked dirty unless the order is
// unchanged.
func (t *Tree) Reorder(parent Handle, order []Handle) error {
	p, ok := t.get(parent)
	if !ok {
		return nodeErr("reorder", parent, ErrStaleNode)
	}
	if slices.Equal(p.children, order) {
		return nil
	}
	if len(order) != len(p.children) {
		return nodeErr("reorder", parent, ErrBadOrder)
	}
	seen := make(map[Handle]bool, len(order))
	for _, c := range p.children {
		seen[c] = false
	}
	for _, c := range order {
		done, ok := seen[c]
		if !ok || done {
			return nodeErr("reorder", parent, ErrBadOrder)
		}
		seen[c] = true
	}
	p.children = slices.Clone(order)
	t.markDirty(parent)
	t.version++
	return nil
}

// Move detaches h and inserts it under parent at index. Both the old and the
// new parent are marked dirty. The node keeps its cache and flags.
func (t *Tree) Move(h, parent Handle, index int) error {
	n, ok := t.get(h)
	if !ok {
		return nodeErr("move", h, ErrStaleNode)
	}
	p, ok := t.get(parent)
	if !ok {
		return nodeErr("move", parent, ErrStaleNode)
	}
	for a := parent; !a.IsZero(); {
		if a == h {
			return nodeErr("move", h, ErrInvalidMove)
		}
		an, _ := t.get(a)
		a = an.parent
	}

	old := n.parent
	limit := len(p.children)
	if old == parent {
		limit--
	}
	if index < 0 || index > limit {
		return nodeErr("move", parent, ErrIndexOutOfRange)
	}

	if !old.IsZero() {
		op, _ := t.get(old)
		op.children = slices.DeleteFunc(op.children, func(c Handle) bool { return c == h })
		t.markDirty(old)
	} else {
		t.roots = slices.DeleteFunc(t.roots, func(r Handle) bool { return r == h })
	}
	p.children = slices.Insert(p.children, index, h)
	n.parent = parent
	n.scope.Reparent(p.scope)
	t.markDirty(parent)
	t.version++
	return nil
}

// Parent returns h's parent, or the zero handle for a root.
func (t *Tree) Parent(h Handle) (Handle, error) {
	n, ok := t.get(h)
	if !ok {
		return Handle{}, nodeErr("parent", h, ErrStaleNode)
	}
	return n.parent, nil
}

// Children returns h's children in order. The slice is shared with the tree
// and must not be modified.
func (t *Tree) Children(h Handle) ([]Handle, error) {
	n, ok := t.get(h)
	if !ok {
		return nil, nodeErr("children", h, ErrStaleNode)
	}
	return n.children, nil
}

// Kind returns h's kind.
func (t *Tree) Kind(h Handle) (*Kind, error) {
	n, ok := t.get(h)
	if !ok {
		return nil, nodeErr("kind", h, ErrStaleNode)
	}
	return n.kind, nil
}

// Scope returns the reactive scope owned by h.
func (t *Tree) Scope(h Handle) (*reactive.Scope, error) {
	n, ok := t.get(h)
	if !ok {
		return nil, nodeErr("scope", h, ErrStaleNode)
	}
	return n.scope, nil
}

// Bind creates an effect owned by h's scope. The effect is disposed when the
// node is destroyed.
func (t *Tree) Bind(h Handle, fn func(*reactive.Exec) error, opts ...reactive.EffectOption) (*reactive.Effect, error) {
	n, ok := t.get(h)
	if !ok {
		return nil, nodeErr("bind", h, ErrStaleNode)
	}
	return n.scope.CreateEffect(fn, opts...)
}
