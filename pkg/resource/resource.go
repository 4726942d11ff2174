// Package resource defines the contract between resource declarations and
// the synthesizer.
//
// A resource exposes two capabilities: Describe, which returns lightweight
// Metadata used for partitioning, and Generate, which renders the resource's
// template body once its document is known. Resources written against the
// older single-capability shape implement only Legacy and are wrapped with
// Adapt.
package resource

import "github.com/armforge/armforge/compiler/errors"

// Body is the serializable template body of a single resource
type Body = map[string]any

// Context resolves references while a resource renders its body.
// Every method returns a bare template expression without the enclosing
// brackets; use Expr to embed one as a complete string value.
type Context interface {
	// Document returns the name of the document being generated
	Document() string
	// ResourceID returns an expression evaluating to the resource id of id
	ResourceID(id string) (string, error)
	// Property returns an expression reading a runtime property of id,
	// e.g. Property("storage", "primaryEndpoints.blob")
	Property(id, path string) (string, error)
	// Parameter returns an expression reading a template parameter
	Parameter(name string) string
}

// Generator renders a resource into its template body
type Generator interface {
	Generate(ctx Context) (Body, error)
}

// Resource is the full two-capability contract
type Resource interface {
	Generator
	Describe() Metadata
}

// Identity is what a legacy resource can tell about itself
type Identity struct {
	ID   string
	Type string
	Name string
}

// Legacy is the single-capability shape of resources that predate Describe
type Legacy interface {
	Generator
	Identity() Identity
}

// Validator is implemented by resources that check their own configuration
// before any graph work runs.
type Validator interface {
	Validate() []*errors.ValidationError
}

// Expr wraps a bare expression into a template expression string
func Expr(expression string) string {
	return "[" + expression + "]"
}

// Tree is a node of the declaration tree. Items are visited before children.
type Tree struct {
	Name     string
	Items    []Generator
	Children []*Tree
}

// NewTree creates a tree node holding the given items
func NewTree(name string, items ...Generator) *Tree {
	return &Tree{Name: name, Items: items}
}

// Add appends items to the node
func (t *Tree) Add(items ...Generator) *Tree {
	t.Items = append(t.Items, items...)
	return t
}

// AddChild appends a child node and returns it
func (t *Tree) AddChild(name string, items ...Generator) *Tree {
	child := NewTree(name, items...)
	t.Children = append(t.Children, child)
	return child
}

// Walk visits every item depth-first in declaration order
func (t *Tree) Walk(fn func(path []string, item Generator) error) error {
	return t.walk(nil, fn)
}

func (t *Tree) walk(parent []string, fn func([]string, Generator) error) error {
	if t == nil {
		return nil
	}
	path := append(append([]string(nil), parent...), t.Name)
	for _, item := range t.Items {
		if err := fn(path, item); err != nil {
			return err
		}
	}
	for _, child := range t.Children {
		if err := child.walk(path, fn); err != nil {
			return err
		}
	}
	return nil
}
