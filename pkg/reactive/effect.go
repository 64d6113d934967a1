package reactive

import (
	"slices"
	"strconv"

	mapset "github.com/deckarep/golang-set/v2"
)

// Effect is a unit of reactive computation. It runs once when created and
// again whenever a signal read during its last run changes.
type Effect struct {
	id    EffectID
	rt    *Runtime
	name  string
	fn    func(*Exec) error
	scope *Scope

	// sources are the signals read during the last run.
	sources mapset.Set[SignalID]

	// cleanups registered through Exec.OnCleanup during the last run.
	cleanups []func()

	pending  bool
	running  bool
	disposed bool
	runs     int
}

// EffectOption configures an Effect.
type EffectOption func(*Effect)

// EffectName labels the effect in logs and errors.
func EffectName(name string) EffectOption {
	return func(e *Effect) {
		e.name = name
	}
}

// ID returns the effect's identifier.
func (e *Effect) ID() EffectID {
	return e.id
}

// Runs returns how many times the effect body has executed.
func (e *Effect) Runs() int {
	return e.runs
}

// Dirty reports whether the effect is queued to re-run.
func (e *Effect) Dirty() bool {
	return e.pending
}

// Disposed reports whether the effect has been disposed.
func (e *Effect) Disposed() bool {
	return e.disposed
}

// Sources returns the IDs of the signals read during the last run.
func (e *Effect) Sources() []SignalID {
	ids := e.sources.ToSlice()
	slices.Sort(ids)
	return ids
}

func (e *Effect) label() string {
	if e.name != "" {
		return e.name
	}
	return "effect#" + strconv.FormatUint(uint64(e.id), 10)
}

// run executes the body with fresh dependency tracking.
func (e *Effect) run() error {
	if e.disposed {
		return nil
	}
	if e.running {
		// Writes made by the body re-queue it; it never runs reentrantly.
		e.pending = false
		e.rt.enqueue(e)
		return nil
	}
	e.pending = false
	e.runCleanups()
	e.untrackAll()

	rt := e.rt
	ec := &Exec{rt: rt, effect: e}
	prev := rt.running
	rt.running = e
	e.running = true
	defer func() {
		ec.effect = nil
		e.running = false
		rt.running = prev
	}()

	e.runs++
	rt.stats.EffectRuns++
	err := e.fn(ec)
	rt.observed(e)
	if err != nil {
		return &EffectError{Effect: e.label(), Err: err}
	}
	return nil
}

func (e *Effect) runCleanups() {
	cleanups := e.cleanups
	e.cleanups = nil
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

// untrackAll removes e from every source's subscriber set.
func (e *Effect) untrackAll() {
	e.sources.Each(func(id SignalID) bool {
		if b, ok := e.rt.signals[id]; ok {
			b.subs.Remove(e.id)
		}
		return false
	})
	e.sources.Clear()
}

// Dispose unsubscribes the effect from all signals and runs its cleanups.
// A disposed effect never runs again.
func (e *Effect) Dispose() {
	if e.disposed {
		return
	}
	e.disposed = true
	e.pending = false
	e.runCleanups()
	e.untrackAll()
	delete(e.rt.effects, e.id)
}

// Exec is the execution context handed to an effect body. Reads made through
// it subscribe the effect. It is only valid while the body runs.
type Exec struct {
	rt     *Runtime
	effect *Effect
}

// Runtime returns the runtime the effect belongs to.
func (ec *Exec) Runtime() *Runtime {
	return ec.rt
}

// Effect returns the running effect's ID, or 0 once the run has finished.
func (ec *Exec) Effect() EffectID {
	if ec.effect == nil {
		return 0
	}
	return ec.effect.id
}

// OnCleanup registers fn to run before the next run of the effect and when
// it is disposed. It is ignored once the effect has been disposed.
func (ec *Exec) OnCleanup(fn func()) {
	if ec.effect == nil || ec.effect.disposed {
		return
	}
	ec.effect.cleanups = append(ec.effect.cleanups, fn)
}

func (ec *Exec) track(b *signalBase) {
	e := ec.effect
	if e == nil || e.disposed || b.disposed || b.rt != e.rt {
		return
	}
	if e.sources.Add(b.id) {
		b.subs.Add(e.id)
	}
}
