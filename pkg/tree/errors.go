package tree

import (
	"errors"
	"fmt"
)

var (
	// ErrStaleNode is returned for a handle whose node has been destroyed.
	ErrStaleNode = errors.New("tree: stale node handle")

	// ErrIndexOutOfRange is returned by Insert and Move for a child index
	// past the end of the parent's children.
	ErrIndexOutOfRange = errors.New("tree: child index out of range")

	// ErrBadOrder is returned by Reorder when the new order is not a
	// permutation of the parent's current children.
	ErrBadOrder = errors.New("tree: order is not a permutation of children")

	// ErrInvalidMove is returned when moving a node under itself or one of
	// its descendants.
	ErrInvalidMove = errors.New("tree: cannot move a node into its own subtree")

	// ErrNoContext is returned by ContextValue when no node on the path to
	// the root provides the key.
	ErrNoContext = errors.New("tree: no provider for context key")
)

// NodeError records a failed tree operation and the node it was applied to.
type NodeError struct {
	Op     string
	Handle Handle
	Err    error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	return fmt.Sprintf("tree: %s %s: %v", e.Op, e.Handle, e.Err)
}

// Unwrap returns the underlying error.
func (e *NodeError) Unwrap() error {
	return e.Err
}

func nodeErr(op string, h Handle, err error) error {
	return &NodeError{Op: op, Handle: h, Err: err}
}
