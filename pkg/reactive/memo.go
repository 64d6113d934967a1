package reactive

// Memo is a derived, read-only signal. Its value is recomputed by an
// internal effect whenever a signal read by fn changes, and subscribers of
// the memo are only dirtied when the computed value actually changes.
type Memo[T any] struct {
	sig    *Signal[T]
	effect *Effect
}

// NewMemo creates a memo and computes its initial value.
func NewMemo[T any](rt *Runtime, fn func(*Exec) T, opts ...SignalOption[T]) (*Memo[T], error) {
	var zero T
	m := &Memo[T]{sig: NewSignal(rt, zero, opts...)}
	e, err := rt.CreateEffect(func(ec *Exec) error {
		return m.sig.Set(fn(ec))
	}, EffectName("memo"))
	m.effect = e
	return m, err
}

// Get returns the memoized value, tracking it like Signal.Get.
func (m *Memo[T]) Get(ec *Exec) T {
	return m.sig.Get(ec)
}

// Peek returns the memoized value without tracking.
func (m *Memo[T]) Peek() T {
	return m.sig.Peek()
}

// Dispose stops recomputation and detaches the memo's signal.
func (m *Memo[T]) Dispose() {
	m.effect.Dispose()
	m.sig.base.detach()
}
