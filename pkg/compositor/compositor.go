// Package compositor turns a component tree into per-frame output, reusing
// cached fragments wherever the tree's invalidation flags allow.
//
// Traversal is parent before children. A node whose flags are clear and that
// holds a cache is appended as is and its subtree is not visited. Any other
// node is regenerated: its own draw runs into a fresh builder, then each
// child in the same layer is composed into that builder under the child's
// transform. Children in another layer are skipped and composed into their
// own layer instead.
//
// A layer whose roots are all clean and sit at the same world transform as
// last frame reuses last frame's layer output without visiting any node.
package compositor

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/XuHaoJun/rvue-sub001/pkg/fragment"
	"github.com/XuHaoJun/rvue-sub001/pkg/tree"
)

// ErrRegenerationFailed is wrapped by every DrawError.
var ErrRegenerationFailed = errors.New("compositor: fragment regeneration failed")

// DrawError reports a node whose fragment could not be regenerated. The node
// and its ancestors keep their previous caches and flags.
type DrawError struct {
	Handle   tree.Handle
	Kind     string
	Err      error
	Panicked bool
}

// Error implements the error interface.
func (e *DrawError) Error() string {
	return fmt.Sprintf("%s: node %s (%s): %v", ErrRegenerationFailed, e.Handle, e.Kind, e.Err)
}

// Unwrap returns ErrRegenerationFailed and the draw error.
func (e *DrawError) Unwrap() []error {
	return []error{ErrRegenerationFailed, e.Err}
}

// Layer is one layer of a composed frame.
type Layer struct {
	Index    int
	Name     string
	Fragment *fragment.Fragment
	Reused   bool
}

// Frame is the output of one Composite call.
type Frame struct {
	Layers []Layer
	Output *fragment.Fragment
	Stats  Stats
}

// Hash returns the hash of the flattened output.
func (f *Frame) Hash() uint64 {
	return f.Output.Hash()
}

// Stats describes the work done for a frame.
type Stats struct {
	Visited       int // nodes whose state was inspected
	Drawn         int // nodes whose own draw ran
	Reused        int // clean cached fragments appended
	LayersReused  int
	AppendedBytes int
}

type placed struct {
	h     tree.Handle
	world fragment.Affine
}

type layerState struct {
	roots  []placed
	output *fragment.Fragment
}

// Compositor composes frames for one tree.
type Compositor struct {
	tree   *tree.Tree
	pool   *fragment.Pool
	logger *slog.Logger
	names  []string

	layers map[int]*layerState
	stats  Stats
}

// Option configures a Compositor.
type Option func(*Compositor)

// WithPool sets the builder pool.
func WithPool(p *fragment.Pool) Option {
	return func(c *Compositor) {
		if p != nil {
			c.pool = p
		}
	}
}

// WithLogger sets the logger used for draw failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compositor) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithLayers names layers by index.
func WithLayers(names ...string) Option {
	return func(c *Compositor) {
		c.names = names
	}
}

// New creates a compositor for t.
func New(t *tree.Tree, opts ...Option) *Compositor {
	c := &Compositor{
		tree:   t,
		pool:   fragment.DefaultPool,
		logger: slog.Default(),
		layers: make(map[int]*layerState),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LayerName returns the configured name of a layer.
func (c *Compositor) LayerName(i int) string {
	if i >= 0 && i < len(c.names) && c.names[i] != "" {
		return c.names[i]
	}
	return fmt.Sprintf("layer%d", i)
}

// Composite composes the subtree rooted at root. On a draw failure it
// returns a *DrawError and no frame; callers should keep presenting the
// previous frame.
func (c *Compositor) Composite(root tree.Handle) (*Frame, error) {
	roots, err := c.tree.LayerRoots(root)
	if err != nil {
		return nil, err
	}
	c.stats = Stats{}

	byLayer := make(map[int][]placed)
	var order []int
	for _, r := range roots {
		world, err := c.tree.WorldTransform(r.Handle)
		if err != nil {
			return nil, err
		}
		if _, ok := byLayer[r.Layer]; !ok {
			order = append(order, r.Layer)
		}
		byLayer[r.Layer] = append(byLayer[r.Layer], placed{h: r.Handle, world: world})
	}
	slices.Sort(order)

	frame := &Frame{}
	next := make(map[int]*layerState, len(order))
	for _, idx := range order {
		placements := byLayer[idx]
		if prev := c.layers[idx]; prev != nil && c.reusable(prev, placements) {
			c.stats.LayersReused++
			next[idx] = prev
			frame.Layers = append(frame.Layers, Layer{Index: idx, Name: c.LayerName(idx), Fragment: prev.output, Reused: true})
			continue
		}

		out, err := c.composeLayer(placements)
		if err != nil {
			// Nodes committed earlier in this frame may back a stale layer
			// output; force every layer to recompose next time.
			clear(c.layers)
			return nil, err
		}
		next[idx] = &layerState{roots: placements, output: out}
		frame.Layers = append(frame.Layers, Layer{Index: idx, Name: c.LayerName(idx), Fragment: out})
	}

	b := c.pool.Get()
	defer c.pool.Put(b)
	for _, l := range frame.Layers {
		b.Append(l.Fragment, fragment.Identity())
	}
	frame.Output, err = b.Finish()
	if err != nil {
		return nil, err
	}

	c.layers = next
	frame.Stats = c.stats
	return frame, nil
}

func (c *Compositor) reusable(prev *layerState, now []placed) bool {
	if !slices.Equal(prev.roots, now) {
		return false
	}
	for _, p := range now {
		st, err := c.tree.State(p.h)
		if err != nil || !st.Clean() {
			return false
		}
	}
	return true
}

func (c *Compositor) composeLayer(roots []placed) (*fragment.Fragment, error) {
	b := c.pool.Get()
	defer c.pool.Put(b)
	for _, p := range roots {
		f, err := c.compose(p.h, false)
		if err != nil {
			return nil, err
		}
		c.stats.AppendedBytes += f.Size()
		b.Append(f, p.world)
	}
	return b.Finish()
}

// compose returns the fragment for h, regenerating it if needed. With
// fresh set every node is regenerated, and nothing is committed, counted or
// logged.
func (c *Compositor) compose(h tree.Handle, fresh bool) (*fragment.Fragment, error) {
	c.stats.Visited++
	st, err := c.tree.State(h)
	if err != nil {
		return nil, err
	}
	if !fresh && st.Clean() {
		c.stats.Reused++
		return c.tree.Cache(h)
	}
	children, err := c.tree.Children(h)
	if err != nil {
		return nil, err
	}

	b := c.pool.Get()
	defer c.pool.Put(b)

	if err := c.draw(h, b, fresh); err != nil {
		return nil, err
	}
	c.stats.Drawn++

	for _, child := range children {
		split, err := c.tree.IsLayerRoot(child)
		if err != nil {
			return nil, err
		}
		if split {
			continue
		}
		cf, err := c.compose(child, fresh)
		if err != nil {
			return nil, err
		}
		l, err := c.tree.Layout(child)
		if err != nil {
			return nil, err
		}
		c.stats.AppendedBytes += cf.Size()
		b.Append(cf, l.Transform)
	}

	f, err := b.Finish()
	if err != nil {
		return nil, c.fail(h, err, false, !fresh)
	}
	if !fresh {
		if err := c.tree.Commit(h, f); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// draw runs h's own draw, converting errors and panics into DrawErrors.
func (c *Compositor) draw(h tree.Handle, b *fragment.Builder, fresh bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = c.fail(h, fmt.Errorf("panic: %v", r), true, !fresh)
		}
	}()
	run := c.tree.Draw
	if fresh {
		run = c.tree.Encode
	}
	if err := run(h, b); err != nil {
		return c.fail(h, err, false, !fresh)
	}
	return nil
}

func (c *Compositor) fail(h tree.Handle, err error, panicked, logged bool) error {
	name := ""
	if k, kerr := c.tree.Kind(h); kerr == nil {
		name = k.Name
	}
	if logged {
		c.logger.Error("compositor: draw failed",
			"node", h.String(),
			"kind", name,
			"panic", panicked,
			"error", err)
	}
	return &DrawError{Handle: h, Kind: name, Err: err, Panicked: panicked}
}

// Reference encodes the subtree rooted at root from scratch. It neither
// reads nor writes caches, does not count draws and does not log failures.
// Its output is byte-identical to what Composite produces for the same tree
// state.
func (c *Compositor) Reference(root tree.Handle) (*fragment.Fragment, error) {
	roots, err := c.tree.LayerRoots(root)
	if err != nil {
		return nil, err
	}
	saved := c.stats
	defer func() { c.stats = saved }()

	byLayer := make(map[int][]tree.Handle)
	var order []int
	for _, r := range roots {
		if _, ok := byLayer[r.Layer]; !ok {
			order = append(order, r.Layer)
		}
		byLayer[r.Layer] = append(byLayer[r.Layer], r.Handle)
	}
	slices.Sort(order)

	out := c.pool.Get()
	defer c.pool.Put(out)
	for _, idx := range order {
		lb := fragment.NewBuilder()
		for _, h := range byLayer[idx] {
			f, err := c.compose(h, true)
			if err != nil {
				return nil, err
			}
			world, err := c.tree.WorldTransform(h)
			if err != nil {
				return nil, err
			}
			lb.Append(f, world)
		}
		lf, err := lb.Finish()
		if err != nil {
			return nil, err
		}
		out.Append(lf, fragment.Identity())
	}
	return out.Finish()
}
