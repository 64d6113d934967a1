// Package widget provides a small set of node kinds built on the tree,
// fragment and keyed packages.
//
// # Kit
//
// A Kit bundles the kinds with the text shaper they share:
//
//	shaper, _ := widget.NewShaper(nil, 256)
//	kit := widget.NewKit(shaper)
//	root := t.NewRoot(kit.Panel, nil)
//	_ = t.Provide(root, widget.ThemeKey, widget.DefaultTheme)
//	title, _ := t.Build(root, kit.Label, tree.Props{"text": "Hello"})
//
// Box and Label read the theme from context, so changing the provided Theme
// redraws them and nothing else.
//
// # Lists
//
// NewList binds a keyed repeater to a reactive source. Every time the
// source changes, the parent's children are reconciled by key and, if the
// structure changed, the Layout callback runs.
package widget
