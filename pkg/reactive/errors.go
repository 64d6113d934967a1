package reactive

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCycleOverrun is returned when a flush does not settle within the
// runtime's pass ceiling. It usually means an effect writes a signal that
// re-dirties itself on every run.
var ErrCycleOverrun = errors.New("reactive: effect cycle exceeded pass ceiling")

// ErrSignalInUse is returned by Signal.Dispose while effects still depend on
// the signal.
var ErrSignalInUse = errors.New("reactive: signal still has subscribers")

// ErrSignalDisposed is returned when writing a signal that has been disposed.
var ErrSignalDisposed = errors.New("reactive: signal disposed")

// ErrScopeDisposed is returned when creating an effect in a disposed scope.
var ErrScopeDisposed = errors.New("reactive: scope disposed")

// CycleError reports a flush that hit the pass ceiling.
type CycleError struct {
	// Passes is the number of passes that ran before the flush gave up.
	Passes int

	// Effects names the effects that were still dirty.
	Effects []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("%s after %d passes (still dirty: %s)",
		ErrCycleOverrun, e.Passes, strings.Join(e.Effects, ", "))
}

// Unwrap returns ErrCycleOverrun.
func (e *CycleError) Unwrap() error {
	return ErrCycleOverrun
}

// EffectError wraps an error returned by an effect body.
type EffectError struct {
	Effect string
	Err    error
}

// Error implements the error interface.
func (e *EffectError) Error() string {
	return "reactive: effect " + e.Effect + ": " + e.Err.Error()
}

// Unwrap returns the effect's error.
func (e *EffectError) Unwrap() error {
	return e.Err
}
