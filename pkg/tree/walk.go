package tree

import (
	"slices"
)

// Walk visits the subtree rooted at h in pre-order. Returning false from fn
// skips the node's children.
func (t *Tree) Walk(h Handle, fn func(h Handle, depth int) bool) error {
	if _, ok := t.get(h); !ok {
		return nodeErr("walk", h, ErrStaleNode)
	}
	var visit func(Handle, int)
	visit = func(cur Handle, depth int) {
		if !fn(cur, depth) {
			return
		}
		n, _ := t.get(cur)
		for _, c := range n.children {
			visit(c, depth+1)
		}
	}
	visit(h, 0)
	return nil
}

// LayerRoot is a node that starts a layer, in document order.
type LayerRoot struct {
	Layer  int
	Handle Handle
}

type layerIndex struct {
	root    Handle
	version uint64
	roots   []LayerRoot
	valid   bool
}

// LayerRoots returns the layer roots of the subtree rooted at root,
// including root itself, in document order. The result is cached until the
// next structural edit.
func (t *Tree) LayerRoots(root Handle) ([]LayerRoot, error) {
	if _, ok := t.get(root); !ok {
		return nil, nodeErr("layer roots", root, ErrStaleNode)
	}
	li := &t.layers
	if li.valid && li.root == root && li.version == t.version {
		return li.roots, nil
	}
	var roots []LayerRoot
	_ = t.Walk(root, func(h Handle, _ int) bool {
		n, _ := t.get(h)
		if h == root || t.isLayerRoot(n) {
			roots = append(roots, LayerRoot{Layer: n.kind.Layer, Handle: h})
		}
		return true
	})
	*li = layerIndex{root: root, version: t.version, roots: roots, valid: true}
	return roots, nil
}

// Layers returns the distinct layers used under root, ascending.
func (t *Tree) Layers(root Handle) ([]int, error) {
	roots, err := t.LayerRoots(root)
	if err != nil {
		return nil, err
	}
	var layers []int
	for _, r := range roots {
		if !slices.Contains(layers, r.Layer) {
			layers = append(layers, r.Layer)
		}
	}
	slices.Sort(layers)
	return layers, nil
}

// NodeSnapshot is a serializable view of a subtree.
type NodeSnapshot struct {
	Handle     string         `json:"handle"`
	Kind       string         `json:"kind"`
	Layer      int            `json:"layer"`
	Dirty      bool           `json:"dirty"`
	Stale      bool           `json:"stale"`
	Cached     bool           `json:"cached"`
	CacheBytes int            `json:"cacheBytes,omitempty"`
	Draws      int            `json:"draws"`
	Props      map[string]any `json:"props,omitempty"`
	Children   []NodeSnapshot `json:"children,omitempty"`
}

// Snapshot captures the subtree rooted at h. Props are copied shallowly; the
// result can be handed to other goroutines as long as prop values are not
// mutated in place.
func (t *Tree) Snapshot(h Handle) (NodeSnapshot, error) {
	n, ok := t.get(h)
	if !ok {
		return NodeSnapshot{}, nodeErr("snapshot", h, ErrStaleNode)
	}
	s := NodeSnapshot{
		Handle: h.String(),
		Kind:   n.kind.Name,
		Layer:  n.kind.Layer,
		Dirty:  n.dirty,
		Stale:  n.stale,
		Cached: n.cache != nil,
		Draws:  n.draws,
	}
	if n.cache != nil {
		s.CacheBytes = n.cache.Size()
	}
	if len(n.props) > 0 {
		s.Props = n.props.Clone()
	}
	for _, c := range n.children {
		cs, err := t.Snapshot(c)
		if err != nil {
			return NodeSnapshot{}, err
		}
		s.Children = append(s.Children, cs)
	}
	return s, nil
}
