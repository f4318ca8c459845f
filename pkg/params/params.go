// Package params loads parameter manifests into a tree.
//
// A manifest is a YAML list of leaves:
//
//	name: hands
//	parameters:
//	  - path: /hands/left/x
//	    type: f          # i, f, s, T, r
//	    value: 0.5
//	    min: 0
//	    max: 1
//	    access: RW       # R, W, RW; default RW
//	    description: Left hand x
//	  - path: /render/mode
//	    type: s
//	    value: circle
//	    vals: [circle, square]
//
// Built-in manifests are embedded; LoadFile reads one from disk.
package params

import (
	"embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/plml/oscquery-go/pkg/tree"
)

//go:embed manifests/*.yaml
var manifestFS embed.FS

// Manifest is a named set of parameters.
type Manifest struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Parameters  []Parameter `yaml:"parameters"`
}

// Parameter describes one leaf.
type Parameter struct {
	Path        string   `yaml:"path"`
	Type        string   `yaml:"type"`
	Value       any      `yaml:"value"`
	Access      string   `yaml:"access"`
	Min         *float64 `yaml:"min"`
	Max         *float64 `yaml:"max"`
	Vals        []string `yaml:"vals"`
	Description string   `yaml:"description"`
}

// Demo is the built-in manifest served by `oscquery serve --demo`.
const Demo = "hands"

var (
	cacheMu sync.RWMutex
	cache   = make(map[string]*Manifest)
)

// Load returns a built-in manifest by name.
func Load(name string) (*Manifest, error) {
	cacheMu.RLock()
	if m, ok := cache[name]; ok {
		cacheMu.RUnlock()
		return m, nil
	}
	cacheMu.RUnlock()

	data, err := manifestFS.ReadFile("manifests/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("manifest %q not found: %w", name, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest %q: %w", name, err)
	}

	cacheMu.Lock()
	cache[name] = m
	cacheMu.Unlock()

	return m, nil
}

// LoadFile reads a manifest from disk.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a manifest.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Available returns the names of all built-in manifests.
func Available() ([]string, error) {
	entries, err := manifestFS.ReadDir("manifests")
	if err != nil {
		return nil, fmt.Errorf("reading manifests: %w", err)
	}

	var names []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".yaml"); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Node builds the tree node for p.
func (p Parameter) Node() (*tree.Node, error) {
	kind, ok := tree.ParseTag(p.Type)
	if !ok {
		return nil, fmt.Errorf("%s: unknown type %q", p.Path, p.Type)
	}

	var opts []tree.Option
	if p.Description != "" {
		opts = append(opts, tree.WithName(p.Description))
	}
	if p.Access != "" {
		a, ok := tree.ParseAccess(p.Access)
		if !ok {
			return nil, fmt.Errorf("%s: unknown access %q", p.Path, p.Access)
		}
		opts = append(opts, tree.WithAccess(a))
	}
	if p.Min != nil {
		opts = append(opts, tree.WithMin(*p.Min))
	}
	if p.Max != nil {
		opts = append(opts, tree.WithMax(*p.Max))
	}
	if len(p.Vals) > 0 {
		opts = append(opts, tree.WithEnum(p.Vals...))
	}

	if kind == tree.KindContainer {
		return tree.NewContainer(p.Path, opts...), nil
	}
	raw := p.Value
	if raw == nil {
		raw = zero[kind]
	}
	return tree.NewLeaf(p.Path, kind, raw, opts...)
}

// zero holds the initial value of leaves declared without one.
var zero = map[tree.Kind]any{
	tree.KindInteger: 0,
	tree.KindFloat:   0.0,
	tree.KindString:  "",
	tree.KindBoolean: false,
	tree.KindColor:   "00000000",
}

// Register installs every parameter of m into t, in manifest order. It
// stops at the first failure.
func (m *Manifest) Register(t *tree.Tree) error {
	for _, p := range m.Parameters {
		n, err := p.Node()
		if err != nil {
			return fmt.Errorf("manifest %s: %w", m.Name, err)
		}
		if err := t.Register(n); err != nil {
			return fmt.Errorf("manifest %s: %w", m.Name, err)
		}
	}
	return nil
}
