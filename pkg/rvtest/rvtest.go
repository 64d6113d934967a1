package rvtest

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/XuHaoJun/rvue-sub001/pkg/compositor"
	"github.com/XuHaoJun/rvue-sub001/pkg/fragment"
	"github.com/XuHaoJun/rvue-sub001/pkg/reactive"
	"github.com/XuHaoJun/rvue-sub001/pkg/tree"
)

// Quiet returns a logger that discards everything.
func Quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Harness is a runtime, tree and compositor wired together for a test.
type Harness struct {
	tb testing.TB

	Runtime    *reactive.Runtime
	Tree       *tree.Tree
	Compositor *compositor.Compositor
}

// New creates a harness. opts configure the runtime.
func New(tb testing.TB, opts ...reactive.Option) *Harness {
	tb.Helper()
	quiet := Quiet()
	rt := reactive.NewRuntime(append([]reactive.Option{reactive.WithLogger(quiet)}, opts...)...)
	t := tree.New(rt, tree.WithLogger(quiet))
	return &Harness{
		tb:         tb,
		Runtime:    rt,
		Tree:       t,
		Compositor: compositor.New(t, compositor.WithLogger(quiet)),
	}
}

// Root creates a root node sized w×h at the origin.
func (h *Harness) Root(kind *tree.Kind, w, ht float32) tree.Handle {
	h.tb.Helper()
	root := h.Tree.NewRoot(kind, nil)
	if err := h.Tree.Resolve(root, tree.Layout{Transform: fragment.Identity(), Size: tree.Size{W: w, H: ht}}); err != nil {
		h.tb.Fatalf("resolve root: %v", err)
	}
	return root
}

// Build appends a child to parent, failing the test on error.
func (h *Harness) Build(parent tree.Handle, kind *tree.Kind, props tree.Props) tree.Handle {
	h.tb.Helper()
	n, err := h.Tree.Build(parent, kind, props)
	if err != nil {
		h.tb.Fatalf("build %s: %v", kind.Name, err)
	}
	return n
}

// Settle runs pending effects, failing the test on error.
func (h *Harness) Settle() {
	h.tb.Helper()
	if err := h.Runtime.Settle(); err != nil {
		h.tb.Fatalf("settle: %v", err)
	}
}

// Composite settles, composites root and checks the output against a
// fresh encode of the same tree.
func (h *Harness) Composite(root tree.Handle) *compositor.Frame {
	h.tb.Helper()
	h.Settle()
	f, err := h.Compositor.Composite(root)
	if err != nil {
		h.tb.Fatalf("composite: %v", err)
	}
	ExpectReference(h.tb, h.Compositor, root, f)
	return f
}

// ExpectReference asserts that f is byte-identical to a fresh encode of
// root.
func ExpectReference(tb testing.TB, c *compositor.Compositor, root tree.Handle, f *compositor.Frame) {
	tb.Helper()
	ref, err := c.Reference(root)
	if err != nil {
		tb.Fatalf("reference: %v", err)
	}
	if ref.Hash() != f.Hash() {
		tb.Errorf("composited output differs from a fresh encode:\ngot  %s\nwant %s",
			describe(f.Output), describe(ref))
	}
}

// StatsCheck is one expectation on frame stats.
type StatsCheck struct {
	name string
	want int
	get  func(compositor.Stats) int
}

// Drawn expects n nodes drawn.
func Drawn(n int) StatsCheck {
	return StatsCheck{"drawn", n, func(s compositor.Stats) int { return s.Drawn }}
}

// Reused expects n cached fragments appended.
func Reused(n int) StatsCheck {
	return StatsCheck{"reused", n, func(s compositor.Stats) int { return s.Reused }}
}

// LayersReused expects n layers reused whole.
func LayersReused(n int) StatsCheck {
	return StatsCheck{"layers reused", n, func(s compositor.Stats) int { return s.LayersReused }}
}

// ExpectStats asserts the given stats of f.
func ExpectStats(tb testing.TB, f *compositor.Frame, checks ...StatsCheck) {
	tb.Helper()
	for _, c := range checks {
		if got := c.get(f.Stats); got != c.want {
			tb.Errorf("%s = %d, want %d (stats %+v)", c.name, got, c.want, f.Stats)
		}
	}
}

// ExpectClean asserts that every node is cached with no flags set.
func ExpectClean(tb testing.TB, t *tree.Tree, nodes ...tree.Handle) {
	tb.Helper()
	for _, n := range nodes {
		s, err := t.State(n)
		if err != nil {
			tb.Errorf("%s: %v", n, err)
			continue
		}
		if !s.Clean() {
			kind, _ := t.Kind(n)
			tb.Errorf("%s (%s) is not clean: %+v", n, kind.Name, s)
		}
	}
}

// ExpectDirty asserts that every node is marked dirty.
func ExpectDirty(tb testing.TB, t *tree.Tree, nodes ...tree.Handle) {
	tb.Helper()
	for _, n := range nodes {
		if s, err := t.State(n); err != nil || !s.Dirty {
			tb.Errorf("%s is not dirty: %+v %v", n, s, err)
		}
	}
}

// describe lists a fragment's command tags, truncated.
func describe(f *fragment.Fragment) string {
	tags := f.Tags()
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = t.String()
	}
	return truncate(strings.Join(parts, " "), 300)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
