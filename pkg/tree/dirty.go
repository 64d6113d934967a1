package tree

import (
	"github.com/XuHaoJun/rvue-sub001/pkg/fragment"
)

// MarkDirty sets h's dirty flag and marks its ancestors stale.
func (t *Tree) MarkDirty(h Handle) error {
	if _, ok := t.get(h); !ok {
		return nodeErr("mark", h, ErrStaleNode)
	}
	t.markDirty(h)
	return nil
}

func (t *Tree) markDirty(h Handle) {
	n, _ := t.get(h)
	n.dirty = true
	t.stats.Marks++
	t.propagate(h)
}

// propagate marks the ancestors of h stale up to the first one that already
// is, or until a layer root is crossed. A layer root's composition lives in
// its own layer, so its parent's fragment does not include it.
func (t *Tree) propagate(h Handle) {
	cur := h
	for {
		n, _ := t.get(cur)
		if t.isLayerRoot(n) {
			return
		}
		p, _ := t.get(n.parent)
		if p.stale {
			return
		}
		p.stale = true
		t.stats.Staled++
		cur = n.parent
	}
}

func (t *Tree) isLayerRoot(n *node) bool {
	if n.parent.IsZero() {
		return true
	}
	p, _ := t.get(n.parent)
	return p.kind.Layer != n.kind.Layer
}

// IsLayerRoot reports whether h starts a layer: it is a tree root or its
// layer differs from its parent's.
func (t *Tree) IsLayerRoot(h Handle) (bool, error) {
	n, ok := t.get(h)
	if !ok {
		return false, nodeErr("layer root", h, ErrStaleNode)
	}
	return t.isLayerRoot(n), nil
}

// SetProp stores a prop. The node is marked dirty only when name is one of
// its kind's content props and the value changed.
func (t *Tree) SetProp(h Handle, name string, value any) error {
	n, ok := t.get(h)
	if !ok {
		return nodeErr("set prop", h, ErrStaleNode)
	}
	old, had := n.props[name]
	if had && valuesEqual(old, value) {
		return nil
	}
	if n.props == nil {
		n.props = Props{}
	}
	n.props[name] = value
	if n.kind.isContentProp(name) {
		t.markDirty(h)
	}
	return nil
}

// Prop returns a prop value, or nil if h has no such prop.
func (t *Tree) Prop(h Handle, name string) (any, error) {
	n, ok := t.get(h)
	if !ok {
		return nil, nodeErr("prop", h, ErrStaleNode)
	}
	return n.props[name], nil
}

// Props returns a copy of h's props.
func (t *Tree) Props(h Handle) (Props, error) {
	n, ok := t.get(h)
	if !ok {
		return nil, nodeErr("props", h, ErrStaleNode)
	}
	return n.props.Clone(), nil
}

// Resolve applies a layout result. A size change affects content and marks
// the node dirty. A transform-only change leaves the node's cache valid; the
// parent is marked stale so the cache is re-appended at the new position.
func (t *Tree) Resolve(h Handle, l Layout) error {
	n, ok := t.get(h)
	if !ok {
		return nodeErr("resolve", h, ErrStaleNode)
	}
	sizeChanged := n.size != l.Size
	moved := n.transform != l.Transform
	n.size = l.Size
	n.transform = l.Transform

	switch {
	case sizeChanged:
		t.markDirty(h)
	case moved && !t.isLayerRoot(n):
		p, _ := t.get(n.parent)
		if !p.stale {
			p.stale = true
			t.stats.Staled++
			t.propagate(n.parent)
		}
	}
	return nil
}

// Layout returns h's last resolved layout.
func (t *Tree) Layout(h Handle) (Layout, error) {
	n, ok := t.get(h)
	if !ok {
		return Layout{}, nodeErr("layout", h, ErrStaleNode)
	}
	return Layout{Transform: n.transform, Size: n.size}, nil
}

// WorldTransform returns the product of the transforms from the root down
// to h.
func (t *Tree) WorldTransform(h Handle) (fragment.Affine, error) {
	n, ok := t.get(h)
	if !ok {
		return fragment.Affine{}, nodeErr("world transform", h, ErrStaleNode)
	}
	m := n.transform
	for p := n.parent; !p.IsZero(); {
		pn, _ := t.get(p)
		m = pn.transform.Multiply(m)
		p = pn.parent
	}
	return m, nil
}

// Provide makes h a provider of key. Descendants that read key and now see
// h as their nearest provider are marked dirty if the value they see
// changed.
func (t *Tree) Provide(h Handle, key, value any) error {
	n, ok := t.get(h)
	if !ok {
		return nodeErr("provide", h, ErrStaleNode)
	}
	prev, had := t.lookup(h, key)
	if n.provided == nil {
		n.provided = make(map[any]any)
	}
	n.provided[key] = value
	if had && valuesEqual(prev, value) {
		return nil
	}
	t.fanOut(h, key)
	return nil
}

// SetContext changes the value h provides for key. If h does not provide
// key yet it becomes a provider.
func (t *Tree) SetContext(h Handle, key, value any) error {
	n, ok := t.get(h)
	if !ok {
		return nodeErr("set context", h, ErrStaleNode)
	}
	if old, had := n.provided[key]; had && valuesEqual(old, value) {
		return nil
	}
	return t.Provide(h, key, value)
}

// ContextValue returns the value of the nearest provider of key, starting
// at h itself. It returns ErrNoContext when no ancestor provides key.
func (t *Tree) ContextValue(h Handle, key any) (any, error) {
	if _, ok := t.get(h); !ok {
		return nil, nodeErr("context", h, ErrStaleNode)
	}
	v, ok := t.lookup(h, key)
	if !ok {
		return nil, ErrNoContext
	}
	return v, nil
}

func (t *Tree) lookup(h Handle, key any) (any, bool) {
	for cur := h; !cur.IsZero(); {
		n, ok := t.get(cur)
		if !ok {
			return nil, false
		}
		if v, ok := n.provided[key]; ok {
			return v, true
		}
		cur = n.parent
	}
	return nil, false
}

// fanOut dirties the readers of key served by provider h: h itself if it
// reads the key, and every descendant that reads it, without descending past
// a node that provides key too.
func (t *Tree) fanOut(h Handle, key any) {
	n, _ := t.get(h)
	if n.kind.reads(key) {
		t.markDirty(h)
	}
	var walk func(Handle)
	walk = func(parent Handle) {
		pn, _ := t.get(parent)
		for _, c := range pn.children {
			cn, _ := t.get(c)
			if _, overrides := cn.provided[key]; overrides {
				continue
			}
			if cn.kind.reads(key) {
				t.markDirty(c)
			}
			walk(c)
		}
	}
	walk(h)
}

// State is the invalidation state of one node.
type State struct {
	Dirty  bool
	Stale  bool
	Cached bool
	Layer  int
}

// Clean reports whether the cached fragment can be reused as is.
func (s State) Clean() bool {
	return s.Cached && !s.Dirty && !s.Stale
}

// State returns h's invalidation state.
func (t *Tree) State(h Handle) (State, error) {
	n, ok := t.get(h)
	if !ok {
		return State{}, nodeErr("state", h, ErrStaleNode)
	}
	return State{Dirty: n.dirty, Stale: n.stale, Cached: n.cache != nil, Layer: n.kind.Layer}, nil
}

// Cache returns h's cached fragment, or nil if it has none yet.
func (t *Tree) Cache(h Handle) (*fragment.Fragment, error) {
	n, ok := t.get(h)
	if !ok {
		return nil, nodeErr("cache", h, ErrStaleNode)
	}
	return n.cache, nil
}

// Commit stores a freshly composed fragment for h and clears its flags.
func (t *Tree) Commit(h Handle, f *fragment.Fragment) error {
	n, ok := t.get(h)
	if !ok {
		return nodeErr("commit", h, ErrStaleNode)
	}
	n.cache = f
	n.dirty = false
	n.stale = false
	return nil
}

// Draw runs h's own draw function into b.
func (t *Tree) Draw(h Handle, b *fragment.Builder) error {
	n, ok := t.get(h)
	if !ok {
		return nodeErr("draw", h, ErrStaleNode)
	}
	n.draws++
	if n.kind.Draw == nil {
		return nil
	}
	return n.kind.Draw(&DrawContext{tree: t, h: h, n: n}, b)
}

// Encode runs h's own draw function into b like Draw, without counting the
// call.
func (t *Tree) Encode(h Handle, b *fragment.Builder) error {
	n, ok := t.get(h)
	if !ok {
		return nodeErr("encode", h, ErrStaleNode)
	}
	if n.kind.Draw == nil {
		return nil
	}
	return n.kind.Draw(&DrawContext{tree: t, h: h, n: n}, b)
}

// Draws returns how many times h's draw function has been called by Draw.
func (t *Tree) Draws(h Handle) (int, error) {
	n, ok := t.get(h)
	if !ok {
		return 0, nodeErr("draws", h, ErrStaleNode)
	}
	return n.draws, nil
}
