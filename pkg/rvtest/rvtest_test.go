package rvtest_test

import (
	"testing"

	"github.com/gogpu/gg"

	"github.com/XuHaoJun/rvue-sub001/pkg/fragment"
	"github.com/XuHaoJun/rvue-sub001/pkg/reactive"
	"github.com/XuHaoJun/rvue-sub001/pkg/rvtest"
	"github.com/XuHaoJun/rvue-sub001/pkg/tree"
)

var (
	panelKind = &tree.Kind{Name: "panel"}
	rectKind  = &tree.Kind{
		Name:         "rect",
		ContentProps: []string{"fill"},
		Draw: func(dc *tree.DrawContext, b *fragment.Builder) error {
			c, _ := dc.Prop("fill").(gg.RGBA)
			b.FillRect(0, 0, dc.Size().W, dc.Size().H, c)
			return nil
		},
	}
)

func TestHarness(t *testing.T) {
	h := rvtest.New(t, reactive.WithMaxPasses(10))
	root := h.Root(panelKind, 40, 40)
	a := h.Build(root, rectKind, tree.Props{"fill": gg.RGB(1, 0, 0)})
	b := h.Build(root, rectKind, tree.Props{"fill": gg.RGB(0, 1, 0)})
	for _, n := range []tree.Handle{a, b} {
		if err := h.Tree.Resolve(n, tree.Layout{Transform: fragment.Identity(), Size: tree.Size{W: 10, H: 10}}); err != nil {
			t.Fatal(err)
		}
	}

	fill := reactive.NewSignal(h.Runtime, gg.RGB(0, 0, 1))
	if _, err := h.Tree.Bind(a, func(ec *reactive.Exec) error {
		return h.Tree.SetProp(a, "fill", fill.Get(ec))
	}); err != nil {
		t.Fatal(err)
	}

	f := h.Composite(root)
	rvtest.ExpectStats(t, f, rvtest.Drawn(3), rvtest.Reused(0))
	rvtest.ExpectClean(t, h.Tree, root, a, b)

	if err := fill.Set(gg.RGB(1, 1, 0)); err != nil {
		t.Fatal(err)
	}
	rvtest.ExpectDirty(t, h.Tree, a)
	f = h.Composite(root)
	rvtest.ExpectStats(t, f, rvtest.Drawn(2), rvtest.Reused(1), rvtest.LayersReused(0))

	f = h.Composite(root)
	rvtest.ExpectStats(t, f, rvtest.Drawn(0), rvtest.LayersReused(1))
}
