// Package rvtest provides helpers for testing rvue trees.
//
// A Harness bundles a runtime, a tree and a compositor with a silent logger,
// and its Composite method checks every frame against a fresh encode.
//
//	func TestCounter(t *testing.T) {
//	    h := rvtest.New(t)
//	    root := h.Root(panelKind, 100, 100)
//	    label := h.Build(root, labelKind, tree.Props{"text": "0"})
//	    h.Composite(root)
//
//	    _ = h.Tree.SetProp(label, "text", "1")
//	    f := h.Composite(root)
//	    rvtest.ExpectStats(t, f, rvtest.Drawn(2), rvtest.Reused(0))
//	}
package rvtest
