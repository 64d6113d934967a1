package tree

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/XuHaoJun/rvue-sub001/pkg/fragment"
	"github.com/XuHaoJun/rvue-sub001/pkg/reactive"
)

type themeKey struct{}

var (
	boxKind   = &Kind{Name: "box", ContentProps: []string{"color"}}
	textKind  = &Kind{Name: "text", ContentProps: []string{"text"}, Reads: []any{themeKey{}}}
	layerKind = &Kind{Name: "overlay", Layer: 1}
)

func newTree() *Tree {
	return New(reactive.NewRuntime())
}

// settle clears every flag under root as a successful composite would.
func settle(t *testing.T, tr *Tree, root Handle) {
	t.Helper()
	err := tr.Walk(root, func(h Handle, _ int) bool {
		if err := tr.Commit(h, fragment.Empty); err != nil {
			t.Fatalf("Commit: %v", err)
		}
		return true
	})
	if err != nil {
		t.Fatal(err)
	}
}

func state(t *testing.T, tr *Tree, h Handle) State {
	t.Helper()
	s, err := tr.State(h)
	if err != nil {
		t.Fatalf("State(%s): %v", h, err)
	}
	return s
}

func children(t *testing.T, tr *Tree, h Handle) []Handle {
	t.Helper()
	c, err := tr.Children(h)
	if err != nil {
		t.Fatalf("Children(%s): %v", h, err)
	}
	return c
}

func mustBuild(t *testing.T, tr *Tree, parent Handle, k *Kind, p Props) Handle {
	t.Helper()
	h, err := tr.Build(parent, k, p)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return h
}

func TestBuildOrderAndParents(t *testing.T) {
	tr := newTree()
	root := tr.NewRoot(boxKind, nil)
	a := mustBuild(t, tr, root, boxKind, nil)
	c := mustBuild(t, tr, root, boxKind, nil)
	b, err := tr.Insert(root, 1, boxKind, nil)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]Handle{a, b, c}, children(t, tr, root), cmp.AllowUnexported(Handle{})); diff != "" {
		t.Errorf("children (-want +got):\n%s", diff)
	}
	if p, _ := tr.Parent(b); p != root {
		t.Errorf("Parent(b) = %s, want %s", p, root)
	}
	if tr.Len() != 4 {
		t.Errorf("Len = %d, want 4", tr.Len())
	}
	if _, err := tr.Insert(root, 9, boxKind, nil); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Insert past end = %v, want ErrIndexOutOfRange", err)
	}
	if !state(t, tr, b).Dirty {
		t.Error("new node is not dirty")
	}
}

func TestStaleHandle(t *testing.T) {
	tr := newTree()
	root := tr.NewRoot(boxKind, nil)
	child := mustBuild(t, tr, root, boxKind, nil)
	grand := mustBuild(t, tr, child, boxKind, nil)

	if err := tr.Remove(child); err != nil {
		t.Fatal(err)
	}
	for _, h := range []Handle{child, grand} {
		err := tr.MarkDirty(h)
		if !errors.Is(err, ErrStaleNode) {
			t.Errorf("MarkDirty(%s) = %v, want ErrStaleNode", h, err)
		}
		var nerr *NodeError
		if !errors.As(err, &nerr) || nerr.Handle != h {
			t.Errorf("error %v does not carry the handle", err)
		}
	}

	// The freed slot is reused with a new generation.
	fresh := mustBuild(t, tr, root, boxKind, nil)
	if fresh == grand || fresh == child {
		t.Fatal("reused slot returned an equal handle")
	}
	if err := tr.SetProp(grand, "color", "red"); !errors.Is(err, ErrStaleNode) {
		t.Errorf("SetProp through old handle = %v", err)
	}
	if tr.Len() != 2 {
		t.Errorf("Len = %d, want 2", tr.Len())
	}

	accessors := []struct {
		name string
		call func(Handle) error
	}{
		{"Children", func(h Handle) error { _, err := tr.Children(h); return err }},
		{"Kind", func(h Handle) error { _, err := tr.Kind(h); return err }},
		{"WorldTransform", func(h Handle) error { _, err := tr.WorldTransform(h); return err }},
		{"Cache", func(h Handle) error { _, err := tr.Cache(h); return err }},
		{"Draws", func(h Handle) error { _, err := tr.Draws(h); return err }},
		{"Prop", func(h Handle) error { _, err := tr.Prop(h, "color"); return err }},
		{"Props", func(h Handle) error { _, err := tr.Props(h); return err }},
		{"ContextValue", func(h Handle) error { _, err := tr.ContextValue(h, themeKey{}); return err }},
		{"IsLayerRoot", func(h Handle) error { _, err := tr.IsLayerRoot(h); return err }},
		{"Layout", func(h Handle) error { _, err := tr.Layout(h); return err }},
		{"Parent", func(h Handle) error { _, err := tr.Parent(h); return err }},
		{"Encode", func(h Handle) error { return tr.Encode(h, fragment.NewBuilder()) }},
	}
	for _, tt := range accessors {
		t.Run(tt.name, func(t *testing.T) {
			for _, h := range []Handle{child, grand} {
				err := tt.call(h)
				var nerr *NodeError
				if !errors.Is(err, ErrStaleNode) || !errors.As(err, &nerr) || nerr.Handle != h {
					t.Errorf("%s(%s) = %v, want a NodeError wrapping ErrStaleNode", tt.name, h, err)
				}
			}
		})
	}
}

func TestContextValueWithoutProvider(t *testing.T) {
	tr := newTree()
	root := tr.NewRoot(boxKind, nil)
	if v, err := tr.ContextValue(root, themeKey{}); !errors.Is(err, ErrNoContext) || v != nil {
		t.Errorf("ContextValue = %v, %v, want nil and ErrNoContext", v, err)
	}
}

func TestMarkDirtyPropagatesStale(t *testing.T) {
	tr := newTree()
	root := tr.NewRoot(boxKind, nil)
	a := mustBuild(t, tr, root, boxKind, nil)
	b := mustBuild(t, tr, a, boxKind, nil)
	c := mustBuild(t, tr, b, boxKind, nil)
	d := mustBuild(t, tr, b, boxKind, nil)
	settle(t, tr, root)

	before := tr.Stats().Staled
	if err := tr.MarkDirty(c); err != nil {
		t.Fatal(err)
	}
	if s := state(t, tr, c); !s.Dirty || s.Stale {
		t.Errorf("c = %+v, want dirty only", s)
	}
	for _, h := range []Handle{b, a, root} {
		if s := state(t, tr, h); s.Dirty || !s.Stale {
			t.Errorf("%s = %+v, want stale only", h, s)
		}
	}
	if state(t, tr, d).Dirty || state(t, tr, d).Stale {
		t.Error("sibling was invalidated")
	}
	if got := tr.Stats().Staled - before; got != 3 {
		t.Errorf("staled %d ancestors, want 3", got)
	}

	// Propagation stops at the first stale ancestor.
	_ = tr.MarkDirty(d)
	if got := tr.Stats().Staled - before; got != 3 {
		t.Errorf("second mark staled %d more", got-3)
	}
}

func TestLayerBoundaryStopsPropagation(t *testing.T) {
	tr := newTree()
	root := tr.NewRoot(boxKind, nil)
	overlay := mustBuild(t, tr, root, layerKind, nil)
	inner := mustBuild(t, tr, overlay, layerKind, nil)
	settle(t, tr, root)

	_ = tr.MarkDirty(inner)
	if !state(t, tr, overlay).Stale {
		t.Error("layer root not stale")
	}
	if state(t, tr, root).Stale {
		t.Error("propagation crossed the layer boundary")
	}
	if ok, _ := tr.IsLayerRoot(overlay); !ok {
		t.Error("overlay is not a layer root")
	}
	if ok, _ := tr.IsLayerRoot(inner); ok {
		t.Error("inner is a layer root")
	}

	roots, _ := tr.LayerRoots(root)
	want := []LayerRoot{{Layer: 0, Handle: root}, {Layer: 1, Handle: overlay}}
	if diff := cmp.Diff(want, roots, cmp.AllowUnexported(Handle{})); diff != "" {
		t.Errorf("layer roots (-want +got):\n%s", diff)
	}
	layers, _ := tr.Layers(root)
	if diff := cmp.Diff([]int{0, 1}, layers); diff != "" {
		t.Errorf("layers (-want +got):\n%s", diff)
	}
}

func TestSetPropContentVsLayout(t *testing.T) {
	tr := newTree()
	root := tr.NewRoot(boxKind, nil)
	settle(t, tr, root)

	tests := []struct {
		name  string
		prop  string
		value any
		dirty bool
	}{
		{"non-content prop", "tooltip", "hi", false},
		{"content prop", "color", "red", true},
		{"same content value", "color", "red", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tr.SetProp(root, tt.prop, tt.value); err != nil {
				t.Fatal(err)
			}
			if got := state(t, tr, root).Dirty; got != tt.dirty {
				t.Errorf("dirty = %v, want %v", got, tt.dirty)
			}
			if v, _ := tr.Prop(root, tt.prop); v != tt.value {
				t.Errorf("Prop = %v", v)
			}
			settle(t, tr, root)
		})
	}
}

func TestContextFanOut(t *testing.T) {
	tr := newTree()
	root := tr.NewRoot(boxKind, nil)
	_ = tr.Provide(root, themeKey{}, "light")
	reader := mustBuild(t, tr, root, textKind, nil)
	other := mustBuild(t, tr, root, boxKind, nil)
	deep := mustBuild(t, tr, other, textKind, nil)
	override := mustBuild(t, tr, root, boxKind, nil)
	_ = tr.Provide(override, themeKey{}, "contrast")
	shadowed := mustBuild(t, tr, override, textKind, nil)
	settle(t, tr, root)

	if err := tr.SetContext(root, themeKey{}, "dark"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		h     Handle
		dirty bool
	}{
		{"direct reader", reader, true},
		{"non-reader", other, false},
		{"nested reader", deep, true},
		{"overriding provider", override, false},
		{"reader below override", shadowed, false},
		{"provider itself", root, false},
	}
	for _, tt := range tests {
		if got := state(t, tr, tt.h).Dirty; got != tt.dirty {
			t.Errorf("%s: dirty = %v, want %v", tt.name, got, tt.dirty)
		}
	}

	if v, _ := tr.ContextValue(shadowed, themeKey{}); v != "contrast" {
		t.Errorf("shadowed sees %v, want contrast", v)
	}
	if v, _ := tr.ContextValue(deep, themeKey{}); v != "dark" {
		t.Errorf("deep sees %v, want dark", v)
	}

	settle(t, tr, root)
	_ = tr.SetContext(root, themeKey{}, "dark")
	if state(t, tr, reader).Dirty {
		t.Error("setting an equal context value dirtied a reader")
	}
}

func TestResolveTransformVsSize(t *testing.T) {
	tr := newTree()
	root := tr.NewRoot(boxKind, nil)
	child := mustBuild(t, tr, root, boxKind, nil)
	settle(t, tr, root)

	_ = tr.Resolve(child, Layout{Transform: fragment.Translate(10, 0)})
	if s := state(t, tr, child); s.Dirty || s.Stale {
		t.Errorf("moved child = %+v, want clean", s)
	}
	if s := state(t, tr, root); s.Dirty || !s.Stale {
		t.Errorf("parent = %+v, want stale only", s)
	}

	settle(t, tr, root)
	_ = tr.Resolve(child, Layout{Transform: fragment.Translate(10, 0), Size: Size{W: 5, H: 5}})
	if !state(t, tr, child).Dirty {
		t.Error("size change did not dirty the node")
	}
	l, _ := tr.Layout(child)
	if l.Size.W != 5 {
		t.Errorf("Layout = %+v", l)
	}
	if w, err := tr.WorldTransform(child); err != nil || w != fragment.Translate(10, 0) {
		t.Errorf("WorldTransform = %+v, %v", w, err)
	}
}

func TestReorder(t *testing.T) {
	tr := newTree()
	root := tr.NewRoot(boxKind, nil)
	a := mustBuild(t, tr, root, boxKind, nil)
	b := mustBuild(t, tr, root, boxKind, nil)
	settle(t, tr, root)

	if err := tr.Reorder(root, []Handle{a, b}); err != nil || state(t, tr, root).Dirty {
		t.Errorf("identity reorder: err=%v dirty=%v", err, state(t, tr, root).Dirty)
	}
	for _, bad := range [][]Handle{{a}, {a, a}, {a, root}} {
		if err := tr.Reorder(root, bad); !errors.Is(err, ErrBadOrder) {
			t.Errorf("Reorder(%v) = %v, want ErrBadOrder", bad, err)
		}
	}
	if err := tr.Reorder(root, []Handle{b, a}); err != nil {
		t.Fatal(err)
	}
	if !state(t, tr, root).Dirty {
		t.Error("reorder did not dirty the parent")
	}
	if s := state(t, tr, a); s.Dirty || !s.Cached {
		t.Errorf("moved child lost its cache: %+v", s)
	}
}

func TestMove(t *testing.T) {
	tr := newTree()
	root := tr.NewRoot(boxKind, nil)
	left := mustBuild(t, tr, root, boxKind, nil)
	right := mustBuild(t, tr, root, boxKind, nil)
	item := mustBuild(t, tr, left, boxKind, nil)
	settle(t, tr, root)

	if err := tr.Move(left, item, 0); !errors.Is(err, ErrInvalidMove) {
		t.Errorf("move into own subtree = %v", err)
	}
	if err := tr.Move(item, right, 0); err != nil {
		t.Fatal(err)
	}
	if len(children(t, tr, left)) != 0 || len(children(t, tr, right)) != 1 {
		t.Error("children not updated")
	}
	if !state(t, tr, left).Dirty || !state(t, tr, right).Dirty {
		t.Error("old and new parent must both be dirty")
	}
	if p, _ := tr.Parent(item); p != right {
		t.Error("parent link not updated")
	}

	// The node's effects survive destruction of its old parent.
	rt := tr.Runtime()
	sig := reactive.NewSignal(rt, 0)
	e, _ := tr.Bind(item, func(ec *reactive.Exec) error {
		_ = sig.Get(ec)
		return nil
	})
	_ = tr.Remove(left)
	if e.Disposed() {
		t.Error("moved node's effect disposed with its old parent")
	}
}

func TestRemoveDisposesBindings(t *testing.T) {
	tr := newTree()
	rt := tr.Runtime()
	root := tr.NewRoot(boxKind, nil)
	label := mustBuild(t, tr, root, textKind, nil)
	text := reactive.NewSignal(rt, "a")

	e, err := tr.Bind(label, func(ec *reactive.Exec) error {
		return tr.SetProp(label, "text", text.Get(ec))
	})
	if err != nil {
		t.Fatal(err)
	}
	settle(t, tr, root)

	_ = text.Set("b")
	if v, _ := tr.Prop(label, "text"); v != "b" || !state(t, tr, label).Dirty {
		t.Errorf("binding did not update: text=%v", v)
	}

	_ = tr.Remove(label)
	if !e.Disposed() || len(text.Subscribers()) != 0 {
		t.Error("removing the node left its effect subscribed")
	}
	if err := text.Set("c"); err != nil {
		t.Errorf("write after remove: %v", err)
	}
	if !state(t, tr, root).Dirty {
		t.Error("remove did not dirty the parent")
	}
}

func TestBindingRemovingItsNode(t *testing.T) {
	tr := newTree()
	rt := tr.Runtime()
	root := tr.NewRoot(boxKind, nil)
	item := mustBuild(t, tr, root, textKind, nil)
	closed := reactive.NewSignal(rt, false)
	label := reactive.NewSignal(rt, "a")

	if _, err := tr.Bind(item, func(ec *reactive.Exec) error {
		if closed.Get(ec) {
			if err := tr.Remove(item); err != nil {
				return err
			}
		}
		_ = label.Get(ec)
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	if err := closed.Set(true); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if tr.Valid(item) {
		t.Fatal("item still live")
	}
	if subs := label.Subscribers(); len(subs) != 0 {
		t.Errorf("label subscribers = %v after the binding's node was removed", subs)
	}
	if err := label.Dispose(); err != nil {
		t.Errorf("label.Dispose: %v", err)
	}
}

func TestSnapshot(t *testing.T) {
	tr := newTree()
	root := tr.NewRoot(boxKind, Props{"color": "red"})
	_ = mustBuild(t, tr, root, textKind, Props{"text": "hi"})

	s, err := tr.Snapshot(root)
	if err != nil {
		t.Fatal(err)
	}
	if s.Kind != "box" || len(s.Children) != 1 || s.Children[0].Props["text"] != "hi" {
		t.Errorf("snapshot = %+v", s)
	}
	if !s.Dirty || s.Cached {
		t.Errorf("fresh root snapshot flags = %+v", s)
	}
}
