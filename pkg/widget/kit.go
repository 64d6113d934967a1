package widget

import (
	"fmt"

	"github.com/XuHaoJun/rvue-sub001/pkg/fragment"
	"github.com/XuHaoJun/rvue-sub001/pkg/tree"
)

// Kit holds the widget kinds. Kinds are compared by pointer, so one Kit
// should be shared by everything that builds a tree.
type Kit struct {
	Shaper *Shaper

	// Panel draws nothing; it groups and positions children.
	Panel *tree.Kind

	// Box fills its size. Props: "fill" and "border" (gg.RGBA), both
	// defaulting to the theme; "height" (float32) is used by Stack.
	Box *tree.Kind

	// Label draws one line of text. Props: "text" (string), "color"
	// (gg.RGBA, defaults to the theme foreground).
	Label *tree.Kind

	// Overlay is a Box drawn in layer 1.
	Overlay *tree.Kind
}

// NewKit creates the kinds around shaper.
func NewKit(shaper *Shaper) *Kit {
	k := &Kit{Shaper: shaper}
	k.Panel = &tree.Kind{Name: "panel"}
	k.Box = &tree.Kind{
		Name:         "box",
		Draw:         drawBox,
		ContentProps: []string{"fill", "border"},
		Reads:        []any{ThemeKey},
	}
	k.Label = &tree.Kind{
		Name:         "label",
		Draw:         k.drawLabel,
		ContentProps: []string{"text", "color"},
		Reads:        []any{ThemeKey},
	}
	overlay := *k.Box
	overlay.Name = "overlay"
	overlay.Layer = 1
	k.Overlay = &overlay
	return k
}

func drawBox(dc *tree.DrawContext, b *fragment.Builder) error {
	th := ThemeOf(dc)
	sz := dc.Size()
	if sz.W <= 0 || sz.H <= 0 {
		return nil
	}
	b.FillRect(0, 0, sz.W, sz.H, colorProp(dc, "fill", th.Background))
	if th.BorderWidth > 0 {
		b.StrokeRect(0, 0, sz.W, sz.H, th.BorderWidth, colorProp(dc, "border", th.Accent))
	}
	return nil
}

func (k *Kit) drawLabel(dc *tree.DrawContext, b *fragment.Builder) error {
	v := dc.Prop("text")
	text, ok := v.(string)
	if !ok && v != nil {
		return fmt.Errorf("widget: label text is %T, want string", v)
	}
	if text == "" {
		return nil
	}
	shaped := k.Shaper.Shape(text)
	ascent, height := k.Shaper.Metrics()
	b.GlyphRun(fragment.GlyphRun{
		Y:       ascent,
		Size:    height,
		Advance: shaped.Advance,
		Glyphs:  shaped.Glyphs,
	}, colorProp(dc, "color", ThemeOf(dc).Foreground))
	return nil
}

// Measure returns the height a Stack gives h: its "height" prop if set,
// the line height for labels, otherwise 0.
func (k *Kit) Measure(t *tree.Tree, h tree.Handle) (float32, error) {
	v, err := t.Prop(h, "height")
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case float32:
		return n, nil
	case float64:
		return float32(n), nil
	case int:
		return float32(n), nil
	}
	kind, err := t.Kind(h)
	if err != nil {
		return 0, err
	}
	if kind == k.Label {
		_, height := k.Shaper.Metrics()
		return height, nil
	}
	return 0, nil
}

// Stack lays out the children of h top to bottom. Each child is as wide as
// h, as tall as Measure reports, and separated from the next by gap.
// Children that did not move keep their caches.
func (k *Kit) Stack(t *tree.Tree, h tree.Handle, gap float32) error {
	l, err := t.Layout(h)
	if err != nil {
		return err
	}
	children, err := t.Children(h)
	if err != nil {
		return err
	}
	var y float32
	for i, c := range children {
		if i > 0 {
			y += gap
		}
		height, err := k.Measure(t, c)
		if err != nil {
			return err
		}
		if err := t.Resolve(c, tree.Layout{
			Transform: fragment.Translate(0, y),
			Size:      tree.Size{W: l.Size.W, H: height},
		}); err != nil {
			return err
		}
		y += height
	}
	return nil
}
