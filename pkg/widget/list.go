package widget

import (
	"github.com/XuHaoJun/rvue-sub001/pkg/keyed"
	"github.com/XuHaoJun/rvue-sub001/pkg/reactive"
	"github.com/XuHaoJun/rvue-sub001/pkg/tree"
)

// ListConfig configures NewList.
type ListConfig[K comparable, T any] struct {
	// Source returns the current items. Reads made through ec subscribe the
	// list.
	Source func(ec *reactive.Exec) []T

	// Key returns an item's identity.
	Key func(T) K

	// Create builds the node for a new item under parent.
	Create func(parent tree.Handle, item T) (tree.Handle, error)

	// Update is called for every reused node. Optional.
	Update func(h tree.Handle, item T) error

	// Layout runs after a reconciliation that changed the children.
	// Optional.
	Layout func() error
}

// List keeps the children of a parent node in sync with a reactive source.
type List[K comparable, T any] struct {
	tree    *tree.Tree
	parent  tree.Handle
	cfg     ListConfig[K, T]
	entries []keyed.Entry[K]
	last    keyed.Result[K]
	effect  *reactive.Effect
}

// NewList binds a list to parent and reconciles it once. The binding is
// owned by parent's scope and ends when parent is destroyed.
func NewList[K comparable, T any](t *tree.Tree, parent tree.Handle, cfg ListConfig[K, T]) (*List[K, T], error) {
	l := &List[K, T]{tree: t, parent: parent, cfg: cfg}
	e, err := t.Bind(parent, l.sync, reactive.EffectName("list"))
	l.effect = e
	return l, err
}

func (l *List[K, T]) sync(ec *reactive.Exec) error {
	values := l.cfg.Source(ec)
	next := make([]keyed.Item[K, T], len(values))
	for i, v := range values {
		next[i] = keyed.Item[K, T]{Key: l.cfg.Key(v), Value: v}
	}

	hooks := keyed.Hooks[K, T]{
		Create: func(parent tree.Handle, it keyed.Item[K, T]) (tree.Handle, error) {
			return l.cfg.Create(parent, it.Value)
		},
	}
	if l.cfg.Update != nil {
		hooks.Update = func(h tree.Handle, it keyed.Item[K, T]) error {
			return l.cfg.Update(h, it.Value)
		}
	}

	entries, res, err := keyed.Reconcile(l.tree, l.parent, l.entries, next, hooks)
	l.entries = entries
	if err != nil {
		return err
	}
	l.last = res
	if l.cfg.Layout != nil && res.Changed() {
		return l.cfg.Layout()
	}
	return nil
}

// Entries returns the current keys and nodes in order.
func (l *List[K, T]) Entries() []keyed.Entry[K] {
	return l.entries
}

// Handle returns the node rendering key.
func (l *List[K, T]) Handle(key K) (tree.Handle, bool) {
	for _, e := range l.entries {
		if e.Key == key {
			return e.Handle, true
		}
	}
	return tree.Handle{}, false
}

// LastResult returns the outcome of the most recent successful
// reconciliation.
func (l *List[K, T]) LastResult() keyed.Result[K] {
	return l.last
}

// Effect returns the effect driving the list.
func (l *List[K, T]) Effect() *reactive.Effect {
	return l.effect
}
