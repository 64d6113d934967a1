package widget

import (
	"github.com/gogpu/gg"

	"github.com/XuHaoJun/rvue-sub001/pkg/tree"
)

type themeKey struct{}

// ThemeKey is the context key for Theme.
var ThemeKey any = themeKey{}

// Theme holds the inherited colours of the kit's widgets.
type Theme struct {
	Foreground  gg.RGBA
	Background  gg.RGBA
	Accent      gg.RGBA
	BorderWidth float32
}

// DefaultTheme is used when no ancestor provides a Theme.
var DefaultTheme = Theme{
	Foreground:  gg.Hex("#1f2328"),
	Background:  gg.Hex("#ffffff"),
	Accent:      gg.Hex("#0969da"),
	BorderWidth: 1,
}

// DarkTheme is an alternative Theme.
var DarkTheme = Theme{
	Foreground:  gg.Hex("#e6edf3"),
	Background:  gg.Hex("#0d1117"),
	Accent:      gg.Hex("#2f81f7"),
	BorderWidth: 1,
}

// ThemeOf returns the theme visible to the node being drawn.
func ThemeOf(dc *tree.DrawContext) Theme {
	if v, ok := dc.Context(ThemeKey); ok {
		if th, ok := v.(Theme); ok {
			return th
		}
	}
	return DefaultTheme
}

func colorProp(dc *tree.DrawContext, name string, fallback gg.RGBA) gg.RGBA {
	if c, ok := dc.Prop(name).(gg.RGBA); ok {
		return c
	}
	return fallback
}
