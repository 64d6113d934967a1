// Package frame drives the per-frame pipeline: settle pending effects,
// composite the tree, present the output through a backend.
//
// All Driver methods except Dispatch must be called from the UI goroutine,
// the one that owns the runtime and the tree. Dispatch is the entry point for
// other goroutines; queued functions run on the UI goroutine at the start of
// the next frame.
//
// A frame that fails to settle or composite presents the last good frame
// instead and returns the error alongside it.
package frame

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/XuHaoJun/rvue-sub001/pkg/compositor"
	"github.com/XuHaoJun/rvue-sub001/pkg/fragment"
	"github.com/XuHaoJun/rvue-sub001/pkg/metrics"
	"github.com/XuHaoJun/rvue-sub001/pkg/reactive"
	"github.com/XuHaoJun/rvue-sub001/pkg/tree"
)

const defaultTracerName = "github.com/XuHaoJun/rvue-sub001/pkg/frame"

// DefaultInboxSize is the capacity of the Dispatch queue.
const DefaultInboxSize = 256

// ErrNoFrame is returned when a frame fails and there is no earlier frame to
// fall back to.
var ErrNoFrame = errors.New("frame: no frame to present")

// Surface is a per-frame render target.
type Surface interface {
	Present(ctx context.Context, f *fragment.Fragment) error
}

// Backend hands out surfaces. Every surface returned by Acquire is passed to
// Release exactly once, whatever the outcome of the frame.
type Backend interface {
	Acquire(ctx context.Context) (Surface, error)
	Release(s Surface) error
}

// Timing is the wall time spent in each phase of a frame.
type Timing struct {
	Settle    time.Duration
	Composite time.Duration
	Present   time.Duration
	Total     time.Duration
}

// Result describes one RunFrame call.
type Result struct {
	Seq uint64

	// Frame is the frame that was presented: the new one, or the last good
	// one when Fallback is set. It is nil only if no frame was ever composed.
	Frame    *compositor.Frame
	Fallback bool

	Timing  Timing
	Runtime reactive.Stats
	Nodes   int
}

// Driver runs frames for one tree.
type Driver struct {
	rt      *reactive.Runtime
	tree    *tree.Tree
	comp    *compositor.Compositor
	backend Backend

	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *metrics.Collector

	inbox     chan func() error
	listeners []func(*Result)

	seq  uint64
	last *compositor.Frame
	prev reactive.Stats
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the driver's logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithTracerName sets the OpenTelemetry tracer name. The tracer comes from
// the global provider.
func WithTracerName(name string) Option {
	return func(d *Driver) {
		d.tracer = otel.Tracer(name)
	}
}

// WithTracer sets the tracer directly.
func WithTracer(t trace.Tracer) Option {
	return func(d *Driver) {
		if t != nil {
			d.tracer = t
		}
	}
}

// WithMetrics reports every frame to m.
func WithMetrics(m *metrics.Collector) Option {
	return func(d *Driver) {
		d.metrics = m
	}
}

// WithInboxSize sets the Dispatch queue capacity.
func WithInboxSize(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.inbox = make(chan func() error, n)
		}
	}
}

// New creates a driver. backend may be nil, in which case frames are
// composed but not presented.
func New(rt *reactive.Runtime, t *tree.Tree, comp *compositor.Compositor, backend Backend, opts ...Option) *Driver {
	d := &Driver{
		rt:      rt,
		tree:    t,
		comp:    comp,
		backend: backend,
		logger:  slog.Default(),
		tracer:  otel.Tracer(defaultTracerName),
		inbox:   make(chan func() error, DefaultInboxSize),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "frame")
	return d
}

// Last returns the last successfully composed frame.
func (d *Driver) Last() *compositor.Frame {
	return d.last
}

// OnFrame registers fn to be called after every frame, on the UI goroutine.
func (d *Driver) OnFrame(fn func(*Result)) {
	d.listeners = append(d.listeners, fn)
}

// Input applies a signal write from an event handler. Writes are deferred:
// effects they trigger run when the next frame settles.
func (d *Driver) Input(fn func() error) error {
	return d.rt.Defer(fn)
}

// Dispatch queues fn to run as Input on the UI goroutine before the next
// frame. It is safe to call from any goroutine. If the queue is full, fn is
// dropped and false is returned.
func (d *Driver) Dispatch(fn func() error) bool {
	select {
	case d.inbox <- fn:
		return true
	default:
		d.logger.Warn("dispatch queue full, discarding input")
		return false
	}
}

func (d *Driver) drain() error {
	var errs []error
	for {
		select {
		case fn := <-d.inbox:
			if err := d.Input(fn); err != nil {
				errs = append(errs, err)
			}
		default:
			return errors.Join(errs...)
		}
	}
}

// RunFrame settles pending effects, composites the tree under root and
// presents the result. On failure it presents the last good frame and
// returns the error; the Result is never nil.
func (d *Driver) RunFrame(ctx context.Context, root tree.Handle) (res *Result, err error) {
	start := time.Now()
	d.seq++
	res = &Result{Seq: d.seq}

	ctx, span := d.tracer.Start(ctx, "rvue.frame",
		trace.WithAttributes(attribute.Int64("rvue.frame.seq", int64(d.seq))))
	defer func() {
		res.Timing.Total = time.Since(start)
		res.Runtime = d.rt.Stats()
		res.Nodes = d.tree.Len()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.Bool("rvue.frame.fallback", res.Fallback))
		span.End()
		d.observe(res, err)
		for _, fn := range d.listeners {
			fn(res)
		}
	}()

	if err := ctx.Err(); err != nil {
		return res, err
	}

	var frame *compositor.Frame
	var frameErr error

	t0 := time.Now()
	frameErr = d.settle(ctx)
	res.Timing.Settle = time.Since(t0)

	if frameErr == nil {
		t0 = time.Now()
		frame, frameErr = d.composite(ctx, root)
		res.Timing.Composite = time.Since(t0)
	}

	if frameErr == nil {
		d.last = frame
		res.Frame = frame
	} else {
		res.Frame = d.last
		res.Fallback = true
		d.logger.Warn("frame failed, presenting previous frame",
			"seq", d.seq,
			"has_previous", d.last != nil,
			"error", frameErr)
		if d.last == nil {
			frameErr = errors.Join(frameErr, ErrNoFrame)
		}
	}

	if res.Frame != nil && d.backend != nil {
		t0 = time.Now()
		if perr := d.present(ctx, res.Frame); perr != nil {
			frameErr = errors.Join(frameErr, perr)
		}
		res.Timing.Present = time.Since(t0)
	}

	if frameErr == nil {
		d.logger.Debug("frame",
			"seq", d.seq,
			"drawn", frame.Stats.Drawn,
			"reused", frame.Stats.Reused,
			"layers_reused", frame.Stats.LayersReused)
	}
	return res, frameErr
}

func (d *Driver) settle(ctx context.Context) error {
	_, span := d.tracer.Start(ctx, "rvue.settle")
	defer span.End()

	err := errors.Join(d.drain(), d.rt.Settle())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (d *Driver) composite(ctx context.Context, root tree.Handle) (*compositor.Frame, error) {
	_, span := d.tracer.Start(ctx, "rvue.composite")
	defer span.End()

	frame, err := d.comp.Composite(root)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("rvue.nodes.drawn", frame.Stats.Drawn),
		attribute.Int("rvue.nodes.reused", frame.Stats.Reused),
		attribute.Int("rvue.layers.reused", frame.Stats.LayersReused),
	)
	return frame, nil
}

// present acquires a surface, presents f and releases the surface.
func (d *Driver) present(ctx context.Context, f *compositor.Frame) (err error) {
	ctx, span := d.tracer.Start(ctx, "rvue.present")
	defer span.End()

	s, err := d.backend.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("frame: acquire surface: %w", err)
	}
	defer func() {
		if rerr := d.backend.Release(s); rerr != nil {
			d.logger.Warn("release surface", "error", rerr)
			err = errors.Join(err, fmt.Errorf("frame: release surface: %w", rerr))
		}
	}()

	if err := s.Present(ctx, f.Output); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("frame: present: %w", err)
	}
	return nil
}

func (d *Driver) observe(res *Result, err error) {
	if d.metrics == nil {
		return
	}
	s := metrics.FrameSample{
		Status:     metrics.StatusPresented,
		Total:      res.Timing.Total,
		Settle:     res.Timing.Settle,
		Composite:  res.Timing.Composite,
		Present:    res.Timing.Present,
		EffectRuns: res.Runtime.EffectRuns - d.prev.EffectRuns,
		Overruns:   res.Runtime.Overruns - d.prev.Overruns,
		Nodes:      res.Nodes,
		DrawFailed: errors.Is(err, compositor.ErrRegenerationFailed),
	}
	d.prev = res.Runtime
	switch {
	case res.Frame == nil:
		s.Status = metrics.StatusFailed
	case res.Fallback || err != nil:
		s.Status = metrics.StatusFallback
	}
	if !res.Fallback && res.Frame != nil {
		st := res.Frame.Stats
		s.Visited, s.Drawn, s.Reused = st.Visited, st.Drawn, st.Reused
		s.LayersReused, s.AppendedBytes = st.LayersReused, st.AppendedBytes
	}
	d.metrics.ObserveFrame(s)
}

// Run runs a frame on every tick until ctx is done. Frame errors are logged
// and do not stop the loop.
func (d *Driver) Run(ctx context.Context, root tree.Handle, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := d.RunFrame(ctx, root); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				d.logger.Error("frame", "seq", d.seq, "error", err)
			}
		}
	}
}
