// Package reactive provides the signal store and effect scheduler for rvue.
//
// Dependencies are tracked automatically: reading a Signal through the Exec
// handed to a running Effect subscribes that effect to the signal. On every
// run the effect drops its previous subscriptions and rebuilds them from the
// reads of that run, so conditional reads are tracked exactly.
//
// # Core Types
//
// Runtime is the explicit execution context. Every signal and effect belongs
// to one runtime and there is no goroutine-local or global tracking state:
//
//	rt := reactive.NewRuntime()
//	count := reactive.NewSignal(rt, 0)
//
//	var double int
//	rt.CreateEffect(func(ec *reactive.Exec) error {
//	    double = count.Get(ec) * 2
//	    return nil
//	})
//
//	count.Set(5) // effect runs once before Set returns; double == 10
//
// Memo[T] is a derived signal computed by an internal effect.
//
// Scope owns effects, signals and child scopes; disposing a scope
// unsubscribes everything it owns.
//
// # Scheduling
//
// A write that changes a value marks its subscribers dirty and flushes them
// synchronously, in passes, until no effect is dirty. Effects dirtied during
// a pass (including an effect that dirties itself) run in the next pass and
// never reentrantly. The number of passes per flush is bounded; exceeding the
// bound returns a *CycleError.
//
// Batch and Defer group writes. Batch flushes when the outermost batch
// returns; Defer leaves the work queued for the next Settle.
//
// # Thread Safety
//
// A Runtime is confined to one goroutine (the UI thread). None of the types
// in this package are safe for concurrent use.
package reactive
