// Package keyed reconciles a keyed list of items against the child nodes of
// a tree node.
//
// Items are matched by key. A matched item keeps its node, including the
// node's cached fragment and flags, no matter where it moves. Unmatched new
// items get new nodes; unmatched old nodes are destroyed. The list owns every
// child of its parent node.
package keyed

import (
	"errors"
	"fmt"

	"github.com/XuHaoJun/rvue-sub001/pkg/tree"
)

// ErrDuplicateKey is returned when a list contains the same key twice.
var ErrDuplicateKey = errors.New("keyed: duplicate key")

// DuplicateKeyError reports the offending key and its two positions.
type DuplicateKeyError struct {
	Key    any
	First  int
	Second int
	// Old is true when the duplicate was found in the previous entries.
	Old bool
}

// Error implements the error interface.
func (e *DuplicateKeyError) Error() string {
	list := "new"
	if e.Old {
		list = "old"
	}
	return fmt.Sprintf("keyed: duplicate key %v in %s list at %d and %d", e.Key, list, e.First, e.Second)
}

// Unwrap returns ErrDuplicateKey.
func (e *DuplicateKeyError) Unwrap() error {
	return ErrDuplicateKey
}

// Entry is a reconciled list position: a key and the node that renders it.
type Entry[K comparable] struct {
	Key    K
	Handle tree.Handle
}

// Item is one element of the desired list.
type Item[K comparable, T any] struct {
	Key   K
	Value T
}

// Hooks connects the differ to the caller's node construction.
type Hooks[K comparable, T any] struct {
	// Create builds the node for a new item as a child of parent.
	Create func(parent tree.Handle, item Item[K, T]) (tree.Handle, error)

	// Update, if set, is called for every reused node with the item's new
	// value.
	Update func(h tree.Handle, item Item[K, T]) error
}

// Result summarizes a reconciliation.
type Result[K comparable] struct {
	Created []K
	Removed []K
	Moved   []K // kept keys whose index changed
	Kept    []K
}

// Changed reports whether the parent's children changed.
func (r Result[K]) Changed() bool {
	return len(r.Created) > 0 || len(r.Removed) > 0 || len(r.Moved) > 0
}

// Reconcile updates parent's children so they render next, reusing the nodes
// of old by key. It returns the new entries in next order.
//
// Duplicate keys in either list and stale handles in old are rejected
// before any structural change. If Create fails, nodes created by this call are removed and old is left
// in place.
func Reconcile[K comparable, T any](t *tree.Tree, parent tree.Handle, old []Entry[K], next []Item[K, T], hooks Hooks[K, T]) ([]Entry[K], Result[K], error) {
	var res Result[K]
	if !t.Valid(parent) {
		return old, res, &tree.NodeError{Op: "reconcile", Handle: parent, Err: tree.ErrStaleNode}
	}

	// Pass 1: validate both lists and index the old entries by key.
	seen := make(map[K]int, len(next))
	for i, it := range next {
		if j, dup := seen[it.Key]; dup {
			return old, res, &DuplicateKeyError{Key: it.Key, First: j, Second: i}
		}
		seen[it.Key] = i
	}
	type oldPos struct {
		index  int
		handle tree.Handle
	}
	byKey := make(map[K]oldPos, len(old))
	for i, e := range old {
		if p, dup := byKey[e.Key]; dup {
			return old, res, &DuplicateKeyError{Key: e.Key, First: p.index, Second: i, Old: true}
		}
		byKey[e.Key] = oldPos{index: i, handle: e.Handle}
	}
	for _, e := range old {
		if !t.Valid(e.Handle) {
			return old, res, &tree.NodeError{Op: "reconcile", Handle: e.Handle, Err: tree.ErrStaleNode}
		}
	}

	// Pass 2: walk next in order, reusing or creating.
	entries := make([]Entry[K], 0, len(next))
	var created []tree.Handle
	for i, it := range next {
		if p, ok := byKey[it.Key]; ok {
			delete(byKey, it.Key)
			if hooks.Update != nil {
				if err := hooks.Update(p.handle, it); err != nil {
					rollback(t, created)
					return old, Result[K]{}, err
				}
			}
			res.Kept = append(res.Kept, it.Key)
			if p.index != i {
				res.Moved = append(res.Moved, it.Key)
			}
			entries = append(entries, Entry[K]{Key: it.Key, Handle: p.handle})
			continue
		}
		h, err := hooks.Create(parent, it)
		if err != nil {
			rollback(t, created)
			return old, Result[K]{}, fmt.Errorf("keyed: create %v: %w", it.Key, err)
		}
		created = append(created, h)
		res.Created = append(res.Created, it.Key)
		entries = append(entries, Entry[K]{Key: it.Key, Handle: h})
	}

	// Destroy what was not matched, in old order.
	for _, e := range old {
		if _, unmatched := byKey[e.Key]; !unmatched {
			continue
		}
		if err := t.Remove(e.Handle); err != nil {
			return entries, res, err
		}
		res.Removed = append(res.Removed, e.Key)
	}

	order := make([]tree.Handle, len(entries))
	for i, e := range entries {
		order[i] = e.Handle
	}
	if err := t.Reorder(parent, order); err != nil {
		return entries, res, err
	}
	return entries, res, nil
}

func rollback(t *tree.Tree, created []tree.Handle) {
	for i := len(created) - 1; i >= 0; i-- {
		_ = t.Remove(created[i])
	}
}
