// Package tree provides the retained component tree.
//
// Nodes live in an arena owned by a Tree and are addressed by Handle, an
// index plus a generation. Parent links are handles, not pointers, so a
// destroyed node is detected rather than dereferenced: every operation on a
// freed handle fails with ErrStaleNode.
//
// # Core Types
//
// Kind describes a node type: its draw function, which props affect its
// content, which context keys it reads and which layer it belongs to. Props
// holds a node's properties. Layout is what the layout engine hands back for
// a node: a transform relative to the parent and a size.
//
// # Invalidation
//
// Each node carries two flags. Dirty means the node's own content changed
// and its draw must run again. Stale means something in the node's subtree
// (within the same layer) changed, so the node's fragment must be
// recomposed, but its own draw output is still valid. MarkDirty sets the
// dirty flag on one node and the stale flag on its ancestors, stopping at the
// first ancestor that is already stale or at a layer boundary.
//
// A node whose flags are both clear and that holds a cached fragment is
// guaranteed to have that fragment reflect the node and its whole subtree.
//
// # Context
//
// Provide attaches a context value to a node. Descendants see the value of
// their nearest provider. Changing a provided value dirties only the
// descendants whose Kind declares it reads the key and whose nearest provider
// is the node that changed.
//
// # Reactive Binding
//
// Each node owns a reactive.Scope nested in its parent's scope. Bind creates
// an effect in that scope; destroying the node disposes the scope, so its
// effects unsubscribe from every signal.
package tree
