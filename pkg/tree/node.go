package tree

import (
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Node is an entry in the tree. Build one with a New* constructor and hand
// it to Tree.Register; after that the tree owns it and it is only reachable
// through tree methods.
type Node struct {
	path      string
	name      string
	kind      Kind
	access    Access
	value     Value
	rng       *Range
	listening bool
	onChange  func(Value)
	children  *orderedmap.OrderedMap[string, *Node]
}

// Option configures a node at construction.
type Option func(*Node)

// WithName sets the human-readable name (DESCRIPTION). Defaults to the last
// path segment.
func WithName(name string) Option {
	return func(n *Node) { n.name = name }
}

// WithAccess overrides the default access (ReadWrite for leaves).
func WithAccess(a Access) Option {
	return func(n *Node) { n.access = a }
}

// WithRange sets a closed numeric range.
func WithRange(min, max float64) Option {
	return func(n *Node) { n.rng = NumericRange(min, max) }
}

// WithMin sets only a lower bound.
func WithMin(min float64) Option {
	return func(n *Node) {
		if n.rng == nil {
			n.rng = &Range{}
		}
		n.rng.Min = &min
	}
}

// WithMax sets only an upper bound.
func WithMax(max float64) Option {
	return func(n *Node) {
		if n.rng == nil {
			n.rng = &Range{}
		}
		n.rng.Max = &max
	}
}

// WithEnum restricts a string node to the given values.
func WithEnum(vals ...string) Option {
	return func(n *Node) { n.rng = EnumRange(vals...) }
}

// OnChange registers a callback invoked after every committed value change.
// It runs on the goroutine that committed the change, after the tree lock
// is released.
func OnChange(fn func(Value)) Option {
	return func(n *Node) { n.onChange = fn }
}

func newNode(path string, kind Kind, value Value, opts []Option) *Node {
	n := &Node{
		path:   Normalize(path),
		kind:   kind,
		access: AccessReadWrite,
		value:  value,
	}
	if kind == KindContainer {
		n.access = AccessReadOnly
		n.children = orderedmap.New[string, *Node]()
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.name == "" {
		n.name = Base(n.path)
	}
	return n
}

// NewContainer creates an explicit container.
func NewContainer(path string, opts ...Option) *Node {
	return newNode(path, KindContainer, Value{}, opts)
}

// NewInt creates an integer leaf.
func NewInt(path string, value int64, opts ...Option) *Node {
	return newNode(path, KindInteger, IntValue(value), opts)
}

// NewFloat creates a float leaf.
func NewFloat(path string, value float64, opts ...Option) *Node {
	return newNode(path, KindFloat, FloatValue(value), opts)
}

// NewString creates a string leaf.
func NewString(path string, value string, opts ...Option) *Node {
	return newNode(path, KindString, StringValue(value), opts)
}

// NewBool creates a boolean leaf.
func NewBool(path string, value bool, opts ...Option) *Node {
	return newNode(path, KindBoolean, BoolValue(value), opts)
}

// NewColor creates a color leaf.
func NewColor(path string, value Color, opts ...Option) *Node {
	return newNode(path, KindColor, ColorValue(value), opts)
}

// NewLeaf creates a leaf of kind k from a loosely typed initial value, as
// read from a manifest or the command line. raw is converted with Coerce.
func NewLeaf(path string, k Kind, raw any, opts ...Option) (*Node, error) {
	if k == KindContainer {
		return nil, fmt.Errorf("%s: %w: container is not a leaf", Normalize(path), ErrMalformed)
	}
	v, err := Coerce(k, nil, raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", Normalize(path), err)
	}
	return newNode(path, k, v, opts), nil
}

// Path returns the normalized path the node will be registered at.
func (n *Node) Path() string { return n.path }

// Kind returns the node kind.
func (n *Node) Kind() Kind { return n.kind }

// NodeView is a point-in-time copy of a node.
type NodeView struct {
	Path      string
	Name      string
	Kind      Kind
	Access    Access
	Value     Value
	Range     *Range
	Listening bool
	Children  []string
}

// IsContainer returns true for containers.
func (v *NodeView) IsContainer() bool { return v.Kind == KindContainer }

func (n *Node) view() *NodeView {
	v := &NodeView{
		Path:      n.path,
		Name:      n.name,
		Kind:      n.kind,
		Access:    n.access,
		Value:     n.value,
		Range:     n.rng.clone(),
		Listening: n.listening,
		Children:  n.childNames(),
	}
	return v
}

// validate checks a node before it enters the tree and brings its initial
// value into range.
func (n *Node) validate() error {
	if n.rng.empty() {
		n.rng = nil
	}
	if err := n.rng.validFor(n.kind); err != nil {
		return err
	}
	if n.kind == KindContainer {
		return nil
	}
	v, err := Coerce(n.kind, n.rng, n.value.Interface())
	if err != nil {
		return err
	}
	n.value = v
	return nil
}

func (n *Node) childNames() []string {
	if n.children == nil {
		return nil
	}
	names := make([]string, 0, n.children.Len())
	for pair := n.children.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}
