// Package synthctx resolves references while documents are generated.
//
// A Session is created once per run from the fixed assignment. It hands out
// one Context per document; contexts share the session's output registry
// and are otherwise independent, so documents can be generated in parallel.
package synthctx

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/armforge/armforge/compiler/errors"
	"github.com/armforge/armforge/internal/assign"
	"github.com/armforge/armforge/pkg/resource"
)

// Parameter is a declared template parameter
type Parameter struct {
	Type          string         `json:"type"`
	DefaultValue  any            `json:"defaultValue,omitempty"`
	AllowedValues []any          `json:"allowedValues,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Session holds the read-only state shared by every document context
type Session struct {
	assignments *assign.Assignments
	metas       map[string]resource.Metadata
	parameters  map[string]Parameter
	registry    *OutputRegistry
}

// NewSession creates a session over a completed assignment
func NewSession(a *assign.Assignments, metas []resource.Metadata, parameters map[string]Parameter) *Session {
	s := &Session{
		assignments: a,
		metas:       make(map[string]resource.Metadata, len(metas)),
		parameters:  parameters,
		registry:    NewOutputRegistry(a.Order),
	}
	for _, m := range metas {
		s.metas[m.ID] = m
	}
	if s.parameters == nil {
		s.parameters = map[string]Parameter{}
	}
	return s
}

// Registry returns the shared output registry
func (s *Session) Registry() *OutputRegistry {
	return s.registry
}

// Assignments returns the assignment the session resolves against
func (s *Session) Assignments() *assign.Assignments {
	return s.assignments
}

// Parameters returns the declared parameters
func (s *Session) Parameters() map[string]Parameter {
	return s.parameters
}

// Metadata returns the metadata of id
func (s *Session) Metadata(id string) (resource.Metadata, bool) {
	m, ok := s.metas[id]
	return m, ok
}

// Context returns a fresh context for doc
func (s *Session) Context(doc string) (*Context, error) {
	if _, ok := s.assignments.Template(doc); !ok {
		return nil, fmt.Errorf("synthctx: unknown document %q", doc)
	}
	return &Context{session: s, document: doc, undeclared: make(map[string]bool)}, nil
}

// PreRegister exports the id of every target of a dependsOn-kind
// cross-template dependency. Run it once, before parallel generation.
func (s *Session) PreRegister() error {
	for _, dep := range s.assignments.CrossTemplateDependencies {
		if dep.DependencyType != resource.DependsOn {
			continue
		}
		if _, err := s.exportID(dep.TargetResource); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) exportID(id string) (Output, error) {
	return s.export(id, "id", func(m resource.Metadata) string { return ResourceIDExpression(m) })
}

func (s *Session) export(id, property string, value func(resource.Metadata) string) (Output, error) {
	doc, ok := s.assignments.DocumentOf(id)
	if !ok {
		return Output{}, &errors.ReferenceIntegrityError{Code: errors.ErrUnassignedResource, Missing: id, Relation: "reference"}
	}
	meta, ok := s.metas[id]
	if !ok {
		return Output{}, &errors.ReferenceIntegrityError{Code: errors.ErrUnassignedResource, Missing: id, Relation: "reference"}
	}
	return s.registry.Register(Output{
		Name:       OutputName(id, property),
		Document:   doc,
		ResourceID: id,
		Property:   property,
		Value:      value(meta),
	})
}

// CrossReference records one cross-document read made by a context
type CrossReference struct {
	SourceResource string
	Output         Output
}

// Context resolves references for a single document. It implements
// resource.Context; the current resource is set by the generator through
// Enter so diagnostics can name it.
type Context struct {
	session  *Session
	document string

	mu         sync.Mutex
	current    string
	undeclared map[string]bool
	warnings   []*errors.ValidationError
	crossRefs  []CrossReference
}

var _ resource.Context = (*Context)(nil)

// Document returns the document this context generates
func (c *Context) Document() string {
	return c.document
}

// Enter marks id as the resource currently being generated
func (c *Context) Enter(id string) {
	c.mu.Lock()
	c.current = id
	c.mu.Unlock()
}

// ResourceID returns an expression evaluating to id's resource id
func (c *Context) ResourceID(id string) (string, error) {
	meta, doc, err := c.locate(id)
	if err != nil {
		return "", err
	}
	if doc == c.document {
		return ResourceIDExpression(meta), nil
	}
	out, err := c.session.exportID(id)
	if err != nil {
		return "", err
	}
	c.recordCross(out)
	return OutputReference(out.Document, out.Name), nil
}

// Property returns an expression reading path on id at deploy time
func (c *Context) Property(id, path string) (string, error) {
	path = strings.Trim(path, ".")
	if path == "" {
		return "", fmt.Errorf("synthctx: empty property path for %q", id)
	}
	if path == "id" {
		return c.ResourceID(id)
	}
	meta, doc, err := c.locate(id)
	if err != nil {
		return "", err
	}
	if doc == c.document {
		return PropertyExpression(meta, path), nil
	}
	out, err := c.session.export(id, path, func(m resource.Metadata) string { return PropertyExpression(m, path) })
	if err != nil {
		return "", err
	}
	c.recordCross(out)
	return OutputReference(out.Document, out.Name), nil
}

// Parameter returns a parameter expression. Undeclared names still
// resolve; they are recorded as warnings.
func (c *Context) Parameter(name string) string {
	if _, ok := c.session.parameters[name]; !ok {
		c.mu.Lock()
		if !c.undeclared[name] {
			c.undeclared[name] = true
			c.warnings = append(c.warnings, errors.NewValidationWarning(
				errors.LayerStructure,
				errors.ErrUndeclaredParameter,
				fmt.Sprintf("parameter %q is not declared by document %q", name, c.document),
				c.document, "parameters", name,
			))
		}
		c.mu.Unlock()
	}
	return ParameterExpression(name)
}

// Warnings returns diagnostics raised while resolving
func (c *Context) Warnings() []*errors.ValidationError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*errors.ValidationError(nil), c.warnings...)
}

// CrossReferences returns the cross-document reads made so far, sorted
func (c *Context) CrossReferences() []CrossReference {
	c.mu.Lock()
	out := append([]CrossReference(nil), c.crossRefs...)
	c.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SourceResource != out[j].SourceResource {
			return out[i].SourceResource < out[j].SourceResource
		}
		return out[i].Output.Name < out[j].Output.Name
	})
	return out
}

func (c *Context) locate(id string) (resource.Metadata, string, error) {
	doc, ok := c.session.assignments.DocumentOf(id)
	if !ok {
		return resource.Metadata{}, "", c.unassigned(id)
	}
	meta, ok := c.session.metas[id]
	if !ok {
		return resource.Metadata{}, "", c.unassigned(id)
	}
	return meta, doc, nil
}

func (c *Context) unassigned(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &errors.ReferenceIntegrityError{
		Code:       errors.ErrUnassignedResource,
		ResourceID: c.current,
		Missing:    id,
		Relation:   "reference",
	}
}

func (c *Context) recordCross(out Output) {
	c.mu.Lock()
	c.crossRefs = append(c.crossRefs, CrossReference{SourceResource: c.current, Output: out})
	c.mu.Unlock()
}
