package widget

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/XuHaoJun/rvue-sub001/pkg/compositor"
	"github.com/XuHaoJun/rvue-sub001/pkg/fragment"
	"github.com/XuHaoJun/rvue-sub001/pkg/keyed"
	"github.com/XuHaoJun/rvue-sub001/pkg/reactive"
	"github.com/XuHaoJun/rvue-sub001/pkg/tree"
)

type env struct {
	t    *testing.T
	rt   *reactive.Runtime
	tree *tree.Tree
	comp *compositor.Compositor
	kit  *Kit
	root tree.Handle
}

func newEnv(t *testing.T) *env {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	shaper, err := NewShaper(nil, 16)
	if err != nil {
		t.Fatal(err)
	}
	rt := reactive.NewRuntime(reactive.WithLogger(quiet))
	tr := tree.New(rt, tree.WithLogger(quiet))
	e := &env{t: t, rt: rt, tree: tr, comp: compositor.New(tr, compositor.WithLogger(quiet)), kit: NewKit(shaper)}
	e.root = tr.NewRoot(e.kit.Panel, nil)
	_ = tr.Resolve(e.root, tree.Layout{Transform: fragment.Identity(), Size: tree.Size{W: 100, H: 200}})
	return e
}

func (e *env) build(parent tree.Handle, kind *tree.Kind, props tree.Props) tree.Handle {
	e.t.Helper()
	h, err := e.tree.Build(parent, kind, props)
	if err != nil {
		e.t.Fatalf("Build: %v", err)
	}
	return h
}

func (e *env) composite() *compositor.Frame {
	e.t.Helper()
	f, err := e.comp.Composite(e.root)
	if err != nil {
		e.t.Fatalf("Composite: %v", err)
	}
	return f
}

func TestShaperCaches(t *testing.T) {
	s, err := NewShaper(nil, 4)
	if err != nil {
		t.Fatal(err)
	}
	first := s.Shape("hi")
	second := s.Shape("hi")
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("cached shape differs:\n%s", diff)
	}
	want := []fragment.Glyph{{ID: 'h', X: 0}, {ID: 'i', X: 7}}
	if diff := cmp.Diff(want, first.Glyphs); diff != "" {
		t.Errorf("glyphs (-want +got):\n%s", diff)
	}
	if first.Advance != 14 {
		t.Errorf("advance = %v, want 14", first.Advance)
	}
	if hits, misses := s.Stats(); hits != 1 || misses != 1 {
		t.Errorf("hits %d misses %d", hits, misses)
	}
}

func TestThemeChangeRedrawsReaders(t *testing.T) {
	e := newEnv(t)
	_ = e.tree.Provide(e.root, ThemeKey, DefaultTheme)
	box := e.build(e.root, e.kit.Box, tree.Props{"height": float32(20)})
	label := e.build(e.root, e.kit.Label, tree.Props{"text": "hello"})
	plain := e.build(e.root, e.kit.Panel, nil)
	if err := e.kit.Stack(e.tree, e.root, 4); err != nil {
		t.Fatal(err)
	}
	first := e.composite()

	if err := e.tree.SetContext(e.root, ThemeKey, DarkTheme); err != nil {
		t.Fatal(err)
	}
	for h, want := range map[tree.Handle]bool{box: true, label: true, plain: false} {
		if s, _ := e.tree.State(h); s.Dirty != want {
			kind, _ := e.tree.Kind(h)
			t.Errorf("%s dirty = %v, want %v", kind.Name, s.Dirty, want)
		}
	}

	second := e.composite()
	if n, _ := e.tree.Draws(plain); n != 1 {
		t.Errorf("plain panel drawn %d times", n)
	}
	if second.Hash() == first.Hash() {
		t.Error("theme change did not change the output")
	}
	ref, err := e.comp.Reference(e.root)
	if err != nil {
		t.Fatal(err)
	}
	if ref.Hash() != second.Hash() {
		t.Error("composited output differs from a fresh encode")
	}
}

func TestStackLayout(t *testing.T) {
	e := newEnv(t)
	a := e.build(e.root, e.kit.Label, tree.Props{"text": "a"})
	b := e.build(e.root, e.kit.Box, tree.Props{"height": float32(20)})
	c := e.build(e.root, e.kit.Label, tree.Props{"text": "c"})
	if err := e.kit.Stack(e.tree, e.root, 2); err != nil {
		t.Fatal(err)
	}
	for h, wantY := range map[tree.Handle]float32{a: 0, b: 15, c: 37} {
		l, _ := e.tree.Layout(h)
		if l.Transform != fragment.Translate(0, wantY) || l.Size.W != 100 {
			t.Errorf("%s layout = %+v, want y=%v w=100", h, l, wantY)
		}
	}
}

func TestLabelRejectsNonStringText(t *testing.T) {
	e := newEnv(t)
	e.build(e.root, e.kit.Label, tree.Props{"text": 42})
	if _, err := e.comp.Composite(e.root); !errors.Is(err, compositor.ErrRegenerationFailed) {
		t.Errorf("err = %v, want ErrRegenerationFailed", err)
	}
}

type row struct {
	ID   string
	Name string
}

func rows(ids ...string) []row {
	out := make([]row, len(ids))
	for i, id := range ids {
		out[i] = row{ID: id, Name: "item " + id}
	}
	return out
}

func TestListFollowsSignal(t *testing.T) {
	e := newEnv(t)
	parent := e.build(e.root, e.kit.Panel, nil)
	_ = e.tree.Resolve(parent, tree.Layout{Transform: fragment.Identity(), Size: tree.Size{W: 100, H: 100}})

	items := reactive.NewSignal(e.rt, rows("a", "b", "c"))
	list, err := NewList(e.tree, parent, ListConfig[string, row]{
		Source: items.Get,
		Key:    func(r row) string { return r.ID },
		Create: func(p tree.Handle, r row) (tree.Handle, error) {
			return e.tree.Build(p, e.kit.Label, tree.Props{"text": r.Name})
		},
		Update: func(h tree.Handle, r row) error {
			return e.tree.SetProp(h, "text", r.Name)
		},
		Layout: func() error { return e.kit.Stack(e.tree, parent, 0) },
	})
	if err != nil {
		t.Fatal(err)
	}
	e.composite()
	a, _ := list.Handle("a")
	c, _ := list.Handle("c")

	if err := items.Set(rows("c", "a", "d")); err != nil {
		t.Fatal(err)
	}
	if h, _ := list.Handle("a"); h != a {
		t.Error("a was rebuilt")
	}
	if h, _ := list.Handle("c"); h != c {
		t.Error("c was rebuilt")
	}
	if diff := cmp.Diff([]string{"d"}, list.LastResult().Created); diff != "" {
		t.Errorf("created (-want +got):\n%s", diff)
	}
	if l, _ := e.tree.Layout(a); l.Transform != fragment.Translate(0, 13) {
		t.Errorf("a not relaid out: %+v", l.Transform)
	}

	f := e.composite()
	if f.Stats.Drawn != 3 || f.Stats.Reused != 2 {
		t.Errorf("stats = %+v, want 3 drawn (root, list, d) and 2 reused", f.Stats)
	}
	if na, _ := e.tree.Draws(a); na != 1 {
		t.Error("moved rows were redrawn")
	}
	if nc, _ := e.tree.Draws(c); nc != 1 {
		t.Error("moved rows were redrawn")
	}
}

func TestListRejectsDuplicateKeys(t *testing.T) {
	e := newEnv(t)
	parent := e.build(e.root, e.kit.Panel, nil)
	items := reactive.NewSignal(e.rt, rows("a", "b"))
	list, err := NewList(e.tree, parent, ListConfig[string, row]{
		Source: items.Get,
		Key:    func(r row) string { return r.ID },
		Create: func(p tree.Handle, r row) (tree.Handle, error) {
			return e.tree.Build(p, e.kit.Label, tree.Props{"text": r.Name})
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	before := append([]keyed.Entry[string](nil), list.Entries()...)

	err = items.Set(rows("a", "a"))
	if !errors.Is(err, keyed.ErrDuplicateKey) {
		t.Fatalf("err = %v, want ErrDuplicateKey", err)
	}
	if diff := cmp.Diff(before, list.Entries(), cmp.Comparer(func(x, y tree.Handle) bool { return x == y })); diff != "" {
		t.Errorf("entries changed (-want +got):\n%s", diff)
	}
	if children, _ := e.tree.Children(parent); len(children) != 2 {
		t.Error("children changed")
	}
}

func TestListEndsWithParent(t *testing.T) {
	e := newEnv(t)
	parent := e.build(e.root, e.kit.Panel, nil)
	items := reactive.NewSignal(e.rt, rows("a"))
	list, err := NewList(e.tree, parent, ListConfig[string, row]{
		Source: items.Get,
		Key:    func(r row) string { return r.ID },
		Create: func(p tree.Handle, r row) (tree.Handle, error) {
			return e.tree.Build(p, e.kit.Label, tree.Props{"text": r.Name})
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	_ = e.tree.Remove(parent)
	if !list.Effect().Disposed() {
		t.Error("list effect outlived its parent")
	}
	if err := items.Set(rows("a", "b")); err != nil {
		t.Errorf("write after removal: %v", err)
	}
}
