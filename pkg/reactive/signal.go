package reactive

import (
	"reflect"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

// SignalID identifies a signal within its runtime.
type SignalID uint64

// EffectID identifies an effect within its runtime. IDs increase with
// creation order.
type EffectID uint64

func newSignalSet() mapset.Set[SignalID] {
	return mapset.NewThreadUnsafeSet[SignalID]()
}

func newEffectSet() mapset.Set[EffectID] {
	return mapset.NewThreadUnsafeSet[EffectID]()
}

// signalBase is the type-erased half of a signal: its identity and its
// subscriber set. Effects hold the inverse relation as a set of SignalIDs.
type signalBase struct {
	id       SignalID
	rt       *Runtime
	subs     mapset.Set[EffectID]
	disposed bool
}

// notify dirties every subscriber in creation order and flushes if the
// runtime is idle.
func (b *signalBase) notify() error {
	rt := b.rt
	rt.stats.Writes++

	ids := b.subs.ToSlice()
	slices.Sort(ids)
	for _, id := range ids {
		if e, ok := rt.effects[id]; ok {
			rt.enqueue(e)
		}
	}
	return rt.maybeFlush()
}

// detach removes the signal from the runtime and from every subscriber's
// source set.
func (b *signalBase) detach() {
	if b.disposed {
		return
	}
	b.disposed = true
	b.subs.Each(func(id EffectID) bool {
		if e, ok := b.rt.effects[id]; ok {
			e.sources.Remove(b.id)
		}
		return false
	})
	b.subs.Clear()
	delete(b.rt.signals, b.id)
}

// Signal is a reactive value container. Reads through a running effect's
// Exec subscribe the effect; writes that change the value re-run
// subscribers.
type Signal[T any] struct {
	base  *signalBase
	value T
	equal func(a, b T) bool
}

// SignalOption configures a Signal.
type SignalOption[T any] func(*Signal[T])

// WithEquals sets the equality used to decide whether a write changes the
// value. The default uses == for basic kinds and reflect.DeepEqual for the
// rest.
func WithEquals[T any](fn func(a, b T) bool) SignalOption[T] {
	return func(s *Signal[T]) {
		s.equal = fn
	}
}

// NewSignal creates an unowned signal with the given initial value.
func NewSignal[T any](rt *Runtime, initial T, opts ...SignalOption[T]) *Signal[T] {
	s := &Signal[T]{
		base:  rt.registerSignal(),
		value: initial,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSignalIn creates a signal owned by scope. It is disposed with the scope.
func NewSignalIn[T any](scope *Scope, initial T, opts ...SignalOption[T]) *Signal[T] {
	s := NewSignal(scope.rt, initial, opts...)
	scope.signals = append(scope.signals, s.base)
	return s
}

// ID returns the signal's identifier.
func (s *Signal[T]) ID() SignalID {
	return s.base.id
}

// Get returns the current value. When ec belongs to a running effect the
// effect is subscribed to the signal; a nil ec reads without tracking.
func (s *Signal[T]) Get(ec *Exec) T {
	if ec != nil {
		ec.track(s.base)
	}
	return s.value
}

// Peek returns the current value without tracking.
func (s *Signal[T]) Peek() T {
	return s.value
}

// Set replaces the value. Writing an equal value is a no-op. Otherwise
// subscribers are dirtied and, unless a flush, batch or effect is already in
// progress, run to a fixed point before Set returns. If that flush overruns
// the pass ceiling every signal is restored to its last settled value.
func (s *Signal[T]) Set(value T) error {
	if s.base.disposed {
		return ErrSignalDisposed
	}
	if s.equals(s.value, value) {
		s.base.rt.stats.NoopWrites++
		return nil
	}
	old := s.value
	s.base.rt.record(s.base.id, func() { s.value = old })
	s.value = value
	return s.base.notify()
}

// Update sets the value to fn(current).
func (s *Signal[T]) Update(fn func(T) T) error {
	return s.Set(fn(s.value))
}

// Subscribers returns the IDs of the effects currently depending on s, in
// creation order.
func (s *Signal[T]) Subscribers() []EffectID {
	ids := s.base.subs.ToSlice()
	slices.Sort(ids)
	return ids
}

// Dispose removes the signal from its runtime. It fails with ErrSignalInUse
// while effects still depend on it.
func (s *Signal[T]) Dispose() error {
	if s.base.disposed {
		return nil
	}
	if s.base.subs.Cardinality() > 0 {
		return ErrSignalInUse
	}
	s.base.detach()
	return nil
}

func (s *Signal[T]) equals(a, b T) bool {
	if s.equal != nil {
		return s.equal(a, b)
	}
	return defaultEquals(a, b)
}

// defaultEquals uses == for basic kinds and reflect.DeepEqual otherwise.
func defaultEquals[T any](a, b T) bool {
	switch av := any(a).(type) {
	case int:
		bv, ok := any(b).(int)
		return ok && av == bv
	case int32:
		bv, ok := any(b).(int32)
		return ok && av == bv
	case int64:
		bv, ok := any(b).(int64)
		return ok && av == bv
	case uint:
		bv, ok := any(b).(uint)
		return ok && av == bv
	case uint32:
		bv, ok := any(b).(uint32)
		return ok && av == bv
	case uint64:
		bv, ok := any(b).(uint64)
		return ok && av == bv
	case float32:
		bv, ok := any(b).(float32)
		return ok && av == bv
	case float64:
		bv, ok := any(b).(float64)
		return ok && av == bv
	case string:
		bv, ok := any(b).(string)
		return ok && av == bv
	case bool:
		bv, ok := any(b).(bool)
		return ok && av == bv
	default:
		return reflect.DeepEqual(a, b)
	}
}
