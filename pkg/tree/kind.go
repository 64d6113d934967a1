package tree

import (
	"fmt"
	"maps"
	"reflect"
	"slices"

	"github.com/XuHaoJun/rvue-sub001/pkg/fragment"
)

// Handle addresses a node in a Tree's arena. The zero Handle refers to no
// node.
type Handle struct {
	index uint32
	gen   uint32
}

// IsZero reports whether h is the zero handle.
func (h Handle) IsZero() bool {
	return h.gen == 0
}

// String returns "index:generation".
func (h Handle) String() string {
	return fmt.Sprintf("%d:%d", h.index, h.gen)
}

// Props holds a node's properties.
type Props map[string]any

// Clone returns a shallow copy of p.
func (p Props) Clone() Props {
	if p == nil {
		return Props{}
	}
	return maps.Clone(p)
}

// Size is a node's laid-out size.
type Size struct {
	W, H float32
}

// Layout is the result of layout for one node. Transform is relative to the
// parent.
type Layout struct {
	Transform fragment.Affine
	Size      Size
}

// DrawFunc encodes a node's own content. Children are composed by the
// compositor and must not be drawn here.
type DrawFunc func(dc *DrawContext, b *fragment.Builder) error

// Kind describes a node type.
type Kind struct {
	// Name identifies the kind in snapshots and errors.
	Name string

	// Draw encodes the node's own content. A nil Draw draws nothing.
	Draw DrawFunc

	// ContentProps lists the props that affect drawn content. Setting any
	// other prop stores the value without dirtying the node.
	ContentProps []string

	// Reads lists the context keys the node's content depends on.
	Reads []any

	// Layer assigns the node to a compositing layer. Layer 0 is the base.
	Layer int
}

func (k *Kind) isContentProp(name string) bool {
	return slices.Contains(k.ContentProps, name)
}

func (k *Kind) reads(key any) bool {
	for _, r := range k.Reads {
		if r == key {
			return true
		}
	}
	return false
}

// DrawContext is passed to a DrawFunc. It is only valid during the call.
type DrawContext struct {
	tree *Tree
	h    Handle
	n    *node
}

// Handle returns the node being drawn.
func (dc *DrawContext) Handle() Handle {
	return dc.h
}

// Kind returns the node's kind.
func (dc *DrawContext) Kind() *Kind {
	return dc.n.kind
}

// Size returns the node's laid-out size.
func (dc *DrawContext) Size() Size {
	return dc.n.size
}

// Prop returns a prop value, or nil.
func (dc *DrawContext) Prop(name string) any {
	return dc.n.props[name]
}

// String returns a string prop, or "" when missing or of another type.
func (dc *DrawContext) String(name string) string {
	s, _ := dc.n.props[name].(string)
	return s
}

// Context returns the value of the nearest provider of key.
func (dc *DrawContext) Context(key any) (any, bool) {
	return dc.tree.lookup(dc.h, key)
}

func valuesEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}
