package reactive

import (
	"errors"
	"log/slog"

	mapset "github.com/deckarep/golang-set/v2"
)

// DefaultMaxPasses is the pass ceiling used when none is configured.
const DefaultMaxPasses = 100

// Runtime owns the signal and effect tables, the dirty queue and the
// scheduler state. It is the execution context every signal write and
// effect run goes through.
type Runtime struct {
	maxPasses int
	logger    *slog.Logger

	nextSignal SignalID
	nextEffect EffectID

	signals map[SignalID]*signalBase
	effects map[EffectID]*Effect

	// queue holds dirty effects in the order they were marked.
	queue []*Effect

	// running is the effect whose body is executing, if any.
	running *Effect

	flushing   bool
	batchDepth int
	deferDepth int

	// journal records writes made since the runtime last settled.
	journal *journal

	stats Stats
}

// Stats holds runtime counters.
type Stats struct {
	Writes     uint64 // writes that changed a value
	NoopWrites uint64 // writes rejected by equality
	EffectRuns uint64
	Passes     uint64
	Overruns   uint64
	Signals    int // live signals
	Effects    int // live effects
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithMaxPasses sets the number of scheduling passes a single flush may take
// before it is reported as a cycle. Values below 1 are ignored.
func WithMaxPasses(n int) Option {
	return func(rt *Runtime) {
		if n > 0 {
			rt.maxPasses = n
		}
	}
}

// WithLogger sets the logger used for scheduler diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(rt *Runtime) {
		if l != nil {
			rt.logger = l
		}
	}
}

// NewRuntime creates an empty runtime.
func NewRuntime(opts ...Option) *Runtime {
	rt := &Runtime{
		maxPasses: DefaultMaxPasses,
		logger:    slog.Default(),
		signals:   make(map[SignalID]*signalBase),
		effects:   make(map[EffectID]*Effect),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// MaxPasses returns the configured pass ceiling.
func (rt *Runtime) MaxPasses() int {
	return rt.maxPasses
}

// Stats returns a copy of the runtime counters.
func (rt *Runtime) Stats() Stats {
	s := rt.stats
	s.Signals = len(rt.signals)
	s.Effects = len(rt.effects)
	return s
}

// Pending returns the number of effects waiting to run.
func (rt *Runtime) Pending() int {
	n := 0
	for _, e := range rt.queue {
		if e.pending && !e.disposed {
			n++
		}
	}
	return n
}

// CreateEffect creates an unowned effect and runs it once. The returned error
// is the error of the first run, joined with any error produced while
// settling writes made by that run.
func (rt *Runtime) CreateEffect(fn func(*Exec) error, opts ...EffectOption) (*Effect, error) {
	return rt.createEffect(nil, fn, opts)
}

func (rt *Runtime) createEffect(scope *Scope, fn func(*Exec) error, opts []EffectOption) (*Effect, error) {
	rt.nextEffect++
	e := &Effect{
		id:    rt.nextEffect,
		rt:    rt,
		fn:    fn,
		scope: scope,
	}
	e.sources = newSignalSet()
	for _, opt := range opts {
		opt(e)
	}
	rt.effects[e.id] = e
	if scope != nil {
		scope.effects = append(scope.effects, e)
	}

	err := e.run()
	return e, errors.Join(err, rt.maybeFlush())
}

// Batch runs fn with notifications held back. Effects dirtied inside fn run
// once, after the outermost batch returns.
func (rt *Runtime) Batch(fn func() error) error {
	rt.batchDepth++
	err := fn()
	rt.batchDepth--
	return errors.Join(err, rt.maybeFlush())
}

// Defer runs fn and leaves every effect it dirties queued. The queued work
// runs on the next Settle. This is how input handlers feed writes into the
// next frame.
func (rt *Runtime) Defer(fn func() error) error {
	rt.deferDepth++
	defer func() { rt.deferDepth-- }()
	return fn()
}

// Settle runs queued effects to a fixed point. It is a no-op while an effect
// is executing or a flush is already in progress.
func (rt *Runtime) Settle() error {
	if rt.flushing || rt.running != nil {
		return nil
	}
	return rt.flush()
}

// enqueue marks e dirty. Already dirty effects are coalesced.
func (rt *Runtime) enqueue(e *Effect) {
	if e.disposed || e.pending {
		return
	}
	e.pending = true
	rt.queue = append(rt.queue, e)
}

// maybeFlush flushes unless writes are being grouped or a flush is already
// on the stack.
func (rt *Runtime) maybeFlush() error {
	if rt.flushing || rt.running != nil || rt.batchDepth > 0 || rt.deferDepth > 0 {
		return nil
	}
	if len(rt.queue) == 0 {
		rt.journal = nil
		return nil
	}
	return rt.flush()
}

// flush runs dirty effects in passes. Each pass takes the queue as it stands
// when the pass begins; anything dirtied during the pass waits for the next.
func (rt *Runtime) flush() error {
	rt.flushing = true
	defer func() { rt.flushing = false }()

	var errs []error
	for pass := 0; len(rt.queue) > 0; pass++ {
		if pass == rt.maxPasses {
			errs = append(errs, rt.abandon(pass))
			return errors.Join(errs...)
		}
		batch := rt.queue
		rt.queue = nil
		rt.stats.Passes++

		for _, e := range batch {
			if !e.pending || e.disposed {
				continue
			}
			if err := e.run(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	rt.journal = nil
	return errors.Join(errs...)
}

// abandon drops the queue after the pass ceiling was hit and rolls the
// runtime back to its last settled state.
func (rt *Runtime) abandon(passes int) error {
	cerr := &CycleError{Passes: passes}
	for _, e := range rt.queue {
		if !e.pending || e.disposed {
			continue
		}
		cerr.Effects = append(cerr.Effects, e.label())
	}
	rt.drop()
	rt.stats.Overruns++
	rt.logger.Warn("reactive: effect cycle overrun",
		"passes", passes,
		"effects", cerr.Effects)
	rt.rollback()
	return cerr
}

// rollback restores every signal written since the last settle, then runs
// each effect that observed those writes once so that its outputs and
// dependencies match the restored values. Writes made by that single pass
// are undone as well and anything it dirties is dropped.
func (rt *Runtime) rollback() {
	j := rt.journal
	rt.journal = nil
	if j == nil {
		return
	}
	j.undo()

	rt.journal = newJournal()
	for _, e := range j.ran {
		if e.disposed {
			continue
		}
		e.pending = false
		if err := e.run(); err != nil {
			rt.logger.Warn("reactive: effect failed during rollback",
				"effect", e.label(),
				"error", err)
		}
	}
	rt.journal.undo()
	rt.journal = nil
	rt.drop()
}

// drop clears the queue without running it.
func (rt *Runtime) drop() {
	for _, e := range rt.queue {
		e.pending = false
	}
	rt.queue = nil
}

// record notes a signal's value before its first write since the last
// settle.
func (rt *Runtime) record(id SignalID, restore func()) {
	if rt.journal == nil {
		rt.journal = newJournal()
	}
	if rt.journal.signals.Add(id) {
		rt.journal.restores = append(rt.journal.restores, restore)
	}
}

// observed notes an effect run since the last settle.
func (rt *Runtime) observed(e *Effect) {
	if j := rt.journal; j != nil && j.effects.Add(e.id) {
		j.ran = append(j.ran, e)
	}
}

type journal struct {
	signals  mapset.Set[SignalID]
	restores []func()
	effects  mapset.Set[EffectID]
	ran      []*Effect
}

func newJournal() *journal {
	return &journal{signals: newSignalSet(), effects: newEffectSet()}
}

func (j *journal) undo() {
	for i := len(j.restores) - 1; i >= 0; i-- {
		j.restores[i]()
	}
}

func (rt *Runtime) registerSignal() *signalBase {
	rt.nextSignal++
	b := &signalBase{
		id:   rt.nextSignal,
		rt:   rt,
		subs: newEffectSet(),
	}
	rt.signals[b.id] = b
	return b
}
