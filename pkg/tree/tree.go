package tree

import (
	"fmt"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/plml/oscquery-go/pkg/wire"
)

// Observer receives tree events. Calls happen after the tree lock is
// released, on the goroutine that made the change.
type Observer interface {
	// ValueChanged is called after a committed change on a listened node.
	ValueChanged(path string, v Value)

	// PathAdded is called for every node created by Register.
	PathAdded(path string)
}

// Tree is a concurrency-safe parameter tree with a single root container.
type Tree struct {
	mu       sync.RWMutex
	root     *Node
	size     int
	observer Observer
}

// New creates a tree holding only the root container.
func New() *Tree {
	root := NewContainer(Root, WithName("root"))
	return &Tree{root: root, size: 1}
}

// SetObserver installs the observer. Passing nil removes it.
func (t *Tree) SetObserver(o Observer) {
	t.mu.Lock()
	t.observer = o
	t.mu.Unlock()
}

// Register installs n at its path, creating missing parent containers.
// An existing entry at the same path is replaced along with its subtree.
// Registering the root or a path that passes through a leaf fails with
// ErrMalformed. n must not already be part of a tree.
func (t *Tree) Register(n *Node) error {
	n.path = Normalize(n.path)
	if n.path == Root {
		return fmt.Errorf("%w: cannot register the root", ErrMalformed)
	}
	if err := n.validate(); err != nil {
		return fmt.Errorf("register %s: %w", n.path, err)
	}
	segs := Split(n.path)

	t.mu.Lock()
	var added []string
	cur := t.root
	for _, seg := range segs[:len(segs)-1] {
		child, ok := cur.children.Get(seg)
		if !ok {
			child = NewContainer(Join(cur.path, seg))
			cur.children.Set(seg, child)
			t.size++
			added = append(added, child.path)
		} else if child.kind != KindContainer {
			t.mu.Unlock()
			return fmt.Errorf("%w: %s passes through leaf %s", ErrMalformed, n.path, child.path)
		}
		cur = child
	}
	last := segs[len(segs)-1]
	if old, ok := cur.children.Get(last); ok {
		t.size -= countNodes(old)
	}
	cur.children.Set(last, n)
	t.size += countNodes(n)
	added = append(added, n.path)
	obs := t.observer
	t.mu.Unlock()

	if obs != nil {
		for _, p := range added {
			obs.PathAdded(p)
		}
	}
	return nil
}

func countNodes(n *Node) int {
	c := 1
	if n.children != nil {
		for pair := n.children.Oldest(); pair != nil; pair = pair.Next() {
			c += countNodes(pair.Value)
		}
	}
	return c
}

// find walks the tree. Callers hold the lock.
func (t *Tree) find(path string) *Node {
	cur := t.root
	for _, seg := range Split(path) {
		if cur.children == nil {
			return nil
		}
		next, ok := cur.children.Get(seg)
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

// Lookup returns a copy of the node at path.
func (t *Tree) Lookup(path string) (*NodeView, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := t.find(path)
	if n == nil {
		return nil, false
	}
	return n.view(), true
}

// Len returns the number of nodes including the root.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.size
}

// Walk visits every node depth-first in registration order, starting at
// the root. Views are collected under the read lock and fn runs after it is
// released, so fn may call back into the tree. Returning false stops the
// walk.
func (t *Tree) Walk(fn func(*NodeView) bool) {
	t.mu.RLock()
	views := make([]*NodeView, 0, t.size)
	var visit func(*Node)
	visit = func(n *Node) {
		views = append(views, n.view())
		if n.children == nil {
			return
		}
		for pair := n.children.Oldest(); pair != nil; pair = pair.Next() {
			visit(pair.Value)
		}
	}
	visit(t.root)
	t.mu.RUnlock()

	for _, v := range views {
		if !fn(v) {
			return
		}
	}
}

// SetValue applies an externally received write. args must hold exactly
// one value, which is coerced to the node's kind and checked against its
// range. On rejection nothing changes and no callback fires.
func (t *Tree) SetValue(path string, args []any) error {
	return t.commit(path, args, true)
}

// Set writes a value from in-process code. Access flags are not checked;
// coercion and range rules still apply.
func (t *Tree) Set(path string, value any) error {
	return t.commit(path, []any{value}, false)
}

// commit is the single mutation point for values.
func (t *Tree) commit(path string, args []any, external bool) error {
	t.mu.Lock()
	n := t.find(path)
	if n == nil {
		t.mu.Unlock()
		return fmt.Errorf("%s: %w", Normalize(path), ErrNotFound)
	}
	if n.kind == KindContainer || (external && !n.access.CanWrite()) {
		t.mu.Unlock()
		return fmt.Errorf("%s: %w: not writable", n.path, ErrAccessDenied)
	}
	if len(args) != 1 {
		t.mu.Unlock()
		return fmt.Errorf("%s: %w: expected 1 argument, got %d", n.path, ErrMalformed, len(args))
	}
	v, err := Coerce(n.kind, n.rng, args[0])
	if err != nil {
		t.mu.Unlock()
		return fmt.Errorf("%s: %w", n.path, err)
	}
	n.value = v
	onChange := n.onChange
	var obs Observer
	if n.listening {
		obs = t.observer
	}
	p := n.path
	t.mu.Unlock()

	if onChange != nil {
		onChange(v)
	}
	if obs != nil {
		obs.ValueChanged(p, v)
	}
	return nil
}

// SetListening turns value-change pushes for a node on or off.
func (t *Tree) SetListening(path string, on bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.find(path)
	if n == nil {
		return fmt.Errorf("%s: %w", Normalize(path), ErrNotFound)
	}
	n.listening = on
	return nil
}

// Snapshot serializes the subtree at path.
func (t *Tree) Snapshot(path string) (*wire.Node, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := t.find(path)
	if n == nil {
		return nil, false
	}
	return n.toWire(), true
}

func (n *Node) toWire() *wire.Node {
	access := int(n.access)
	w := &wire.Node{
		Description: n.name,
		FullPath:    n.path,
		Type:        n.kind.Tag(),
		Access:      &access,
	}
	if n.kind == KindContainer {
		w.Contents = orderedmap.New[string, *wire.Node]()
		for pair := n.children.Oldest(); pair != nil; pair = pair.Next() {
			w.Contents.Set(pair.Key, pair.Value.toWire())
		}
		return w
	}
	if n.access.CanRead() {
		w.Value = []any{n.value.Interface()}
	}
	if r := n.rng.clone(); r != nil {
		w.Range = []wire.Range{{Min: r.Min, Max: r.Max, Vals: r.Vals}}
	}
	return w
}
