package demo

import (
	"fmt"

	"github.com/gogpu/gg"

	"github.com/XuHaoJun/rvue-sub001/pkg/fragment"
	"github.com/XuHaoJun/rvue-sub001/pkg/reactive"
	"github.com/XuHaoJun/rvue-sub001/pkg/tree"
	"github.com/XuHaoJun/rvue-sub001/pkg/widget"
)

const gap = 4

func buildCounter(env *Env) (*Scene, error) {
	root, err := env.root()
	if err != nil {
		return nil, err
	}
	t, kit := env.Tree, env.Kit
	count := reactive.NewSignal(env.Runtime, 0)
	double, err := reactive.NewMemo(env.Runtime, func(ec *reactive.Exec) int {
		return count.Get(ec) * 2
	})
	if err != nil {
		return nil, err
	}

	b := &builder{env: env}
	b.add(root, kit.Label, tree.Props{"text": "counter"})
	countLabel := b.add(root, kit.Label, nil)
	doubleLabel := b.add(root, kit.Label, nil)
	bar := b.add(root, kit.Box, tree.Props{"height": float32(12), "fill": widget.DefaultTheme.Accent})
	if b.err != nil {
		return nil, b.err
	}
	if err := kit.Stack(t, root, gap); err != nil {
		return nil, err
	}

	b.bind(countLabel, "count label", func(ec *reactive.Exec) error {
		return t.SetProp(countLabel, "text", fmt.Sprintf("count: %d", count.Get(ec)))
	})
	b.bind(doubleLabel, "double label", func(ec *reactive.Exec) error {
		return t.SetProp(doubleLabel, "text", fmt.Sprintf("double: %d", double.Get(ec)))
	})
	b.bind(bar, "bar width", func(ec *reactive.Exec) error {
		l, err := t.Layout(bar)
		if err != nil {
			return err
		}
		l.Size.W = env.Width * float32(count.Get(ec)%10+1) / 10
		return t.Resolve(bar, l)
	})
	if b.err != nil {
		return nil, b.err
	}

	return &Scene{
		Root: root,
		Step: func(int) error {
			return count.Update(func(n int) int { return n + 1 })
		},
	}, nil
}

type item struct {
	ID    int
	Label string
}

func buildList(env *Env) (*Scene, error) {
	root, err := env.root()
	if err != nil {
		return nil, err
	}
	t, kit := env.Tree, env.Kit
	_, lineHeight := kit.Shaper.Metrics()

	b := &builder{env: env}
	b.add(root, kit.Label, tree.Props{"text": "list"})
	rows := b.add(root, kit.Panel, tree.Props{"height": env.Height - lineHeight - gap})
	if b.err != nil {
		return nil, b.err
	}
	if err := kit.Stack(t, root, gap); err != nil {
		return nil, err
	}

	next := 0
	newItem := func() item {
		next++
		return item{ID: next, Label: fmt.Sprintf("row %d", next)}
	}
	initial := make([]item, 5)
	for i := range initial {
		initial[i] = newItem()
	}
	items := reactive.NewSignal(env.Runtime, initial)

	_, err = widget.NewList(t, rows, widget.ListConfig[int, item]{
		Source: items.Get,
		Key:    func(it item) int { return it.ID },
		Create: func(parent tree.Handle, it item) (tree.Handle, error) {
			return t.Build(parent, kit.Label, tree.Props{"text": it.Label})
		},
		Update: func(h tree.Handle, it item) error {
			return t.SetProp(h, "text", it.Label)
		},
		Layout: func() error { return kit.Stack(t, rows, 2) },
	})
	if err != nil {
		return nil, err
	}

	return &Scene{
		Root: root,
		Step: func(i int) error {
			return items.Update(func(cur []item) []item {
				out := append([]item(nil), cur...)
				switch {
				case i%5 == 4 && len(out) > 1:
					out = out[1:]
				case i%3 == 2:
					out = append(out, newItem())
				case len(out) > 1:
					out = append(out[1:], out[0])
				}
				return out
			})
		},
	}, nil
}

func buildTheme(env *Env) (*Scene, error) {
	root, err := env.root()
	if err != nil {
		return nil, err
	}
	t, kit := env.Tree, env.Kit
	dark := reactive.NewSignal(env.Runtime, false)
	ticks := reactive.NewSignal(env.Runtime, 0)

	b := &builder{env: env}
	b.bind(root, "theme", func(ec *reactive.Exec) error {
		th := widget.DefaultTheme
		if dark.Get(ec) {
			th = widget.DarkTheme
		}
		return t.SetContext(root, widget.ThemeKey, th)
	})
	b.add(root, kit.Box, tree.Props{"height": float32(24)})
	b.add(root, kit.Label, tree.Props{"text": "themed label"})
	b.add(root, kit.Box, tree.Props{"height": float32(24), "fill": gg.Hex("#d29922")})
	badgeLabel := *kit.Label
	badgeLabel.Name = "badge label"
	badgeLabel.Layer = kit.Overlay.Layer
	badge := b.add(root, kit.Overlay, nil)
	badgeText := b.add(badge, &badgeLabel, nil)
	if b.err != nil {
		return nil, b.err
	}
	if err := kit.Stack(t, root, gap); err != nil {
		return nil, err
	}

	// The badge sits in its own layer in the top right corner; moving it
	// does not touch the base layer.
	const badgeW, badgeH = 64, 20
	b.bind(badge, "badge", func(ec *reactive.Exec) error {
		n := ticks.Get(ec)
		x := env.Width - badgeW - gap
		y := float32(gap + (n%4)*badgeH)
		if err := t.Resolve(badge, tree.Layout{
			Transform: fragment.Translate(x, y),
			Size:      tree.Size{W: badgeW, H: badgeH},
		}); err != nil {
			return err
		}
		return t.SetProp(badgeText, "text", fmt.Sprintf("tick %d", n))
	})
	if b.err != nil {
		return nil, b.err
	}
	_, lineHeight := kit.Shaper.Metrics()
	if err := t.Resolve(badgeText, tree.Layout{
		Transform: fragment.Translate(4, (badgeH-lineHeight)/2),
		Size:      tree.Size{W: badgeW - 8, H: lineHeight},
	}); err != nil {
		return nil, err
	}

	return &Scene{
		Root: root,
		Step: func(i int) error {
			if err := ticks.Set(i + 1); err != nil {
				return err
			}
			if i%4 == 3 {
				return dark.Update(func(d bool) bool { return !d })
			}
			return nil
		},
	}, nil
}
