// Package errors turns runtime failures into coded, explained messages for
// the command line.
//
// Every failure the runtime can surface has a stable code:
//
//	R001  effect cycle overrun
//	R002  duplicate list key
//	R003  stale node access
//	R004  fragment regeneration failure
//	R005  effect returned an error
//
// Codes from R010 up cover configuration, storage and CLI usage.
//
// # Usage
//
//	if _, err := driver.RunFrame(ctx, root); err != nil {
//	    errors.PrintError(errors.Classify(err))
//	}
//
// prints
//
//	ERROR R004: Fragment regeneration failed
//
//	  node 4:1 (label)
//
//	  A draw function returned an error or panicked. The node keeps its
//	  previous fragment and the previous frame stays on screen.
//
//	  Hint: Check the props of the failing node; draw functions must not
//	  panic on unexpected prop types.
package errors
