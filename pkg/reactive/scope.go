package reactive

// Scope owns reactive primitives. Disposing a scope disposes its child
// scopes (last created first), then its effects, then its signals, then runs
// its cleanups in reverse registration order.
//
// Scopes mirror the component tree: every node gets a scope that is a child
// of its parent's scope.
type Scope struct {
	rt       *Runtime
	parent   *Scope
	children []*Scope
	effects  []*Effect
	signals  []*signalBase
	cleanups []func()
	disposed bool
}

// NewScope creates a scope. A nil parent creates a root scope.
func (rt *Runtime) NewScope(parent *Scope) *Scope {
	s := &Scope{rt: rt, parent: parent}
	if parent != nil && !parent.disposed {
		parent.children = append(parent.children, s)
	}
	return s
}

// Runtime returns the scope's runtime.
func (s *Scope) Runtime() *Runtime {
	return s.rt
}

// Parent returns the parent scope, or nil for a root scope.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Disposed reports whether the scope has been disposed.
func (s *Scope) Disposed() bool {
	return s.disposed
}

// Effects returns the number of live effects owned directly by the scope.
func (s *Scope) Effects() int {
	n := 0
	for _, e := range s.effects {
		if !e.disposed {
			n++
		}
	}
	return n
}

// CreateEffect creates an effect owned by the scope and runs it once. It
// returns ErrScopeDisposed once the scope has been disposed.
func (s *Scope) CreateEffect(fn func(*Exec) error, opts ...EffectOption) (*Effect, error) {
	if s.disposed {
		return nil, ErrScopeDisposed
	}
	return s.rt.createEffect(s, fn, opts)
}

// OnCleanup registers fn to run when the scope is disposed. If the scope is
// already disposed fn runs immediately.
func (s *Scope) OnCleanup(fn func()) {
	if s.disposed {
		fn()
		return
	}
	s.cleanups = append(s.cleanups, fn)
}

// Reparent moves s under parent. A nil parent makes s a root scope.
func (s *Scope) Reparent(parent *Scope) {
	if s.disposed || s.parent == parent {
		return
	}
	if s.parent != nil {
		s.parent.removeChild(s)
	}
	s.parent = parent
	if parent != nil && !parent.disposed {
		parent.children = append(parent.children, s)
	}
}

// Dispose tears the scope down. It is idempotent.
func (s *Scope) Dispose() {
	if s.disposed {
		return
	}
	s.disposed = true

	if s.parent != nil {
		s.parent.removeChild(s)
	}

	children := s.children
	s.children = nil
	for i := len(children) - 1; i >= 0; i-- {
		children[i].Dispose()
	}

	for _, e := range s.effects {
		e.Dispose()
	}
	s.effects = nil

	for _, b := range s.signals {
		b.detach()
	}
	s.signals = nil

	cleanups := s.cleanups
	s.cleanups = nil
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

func (s *Scope) removeChild(child *Scope) {
	for i, c := range s.children {
		if c == child {
			s.children = append(s.children[:i], s.children[i+1:]...)
			return
		}
	}
}
