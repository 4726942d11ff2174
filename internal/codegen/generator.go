package codegen

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/armforge/armforge/compiler/errors"
	"github.com/armforge/armforge/internal/synthctx"
	"github.com/armforge/armforge/pkg/resource"
)

// Resources looks up collected resources by id
type Resources interface {
	Resource(id string) (resource.Resource, bool)
}

// Generator renders every document of a session
type Generator struct {
	session   *synthctx.Session
	resources Resources
	workers   int
	version   string
}

// Option configures a Generator
type Option func(*Generator)

// WithWorkers bounds parallel document generation. Zero or less means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.workers = n
		}
	}
}

// WithVersion sets the generator version stamped into metadata
func WithVersion(v string) Option {
	return func(g *Generator) {
		g.version = v
	}
}

// NewGenerator creates a generator over a session
func NewGenerator(session *synthctx.Session, resources Resources, opts ...Option) *Generator {
	g := &Generator{
		session:   session,
		resources: resources,
		workers:   runtime.GOMAXPROCS(0),
		version:   "dev",
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Output is the result of generating every document
type Output struct {
	Templates map[string]*Template
	// Warnings raised while resolving references, in document order
	Warnings []*errors.ValidationError
}

// GenerateAll renders every document in parallel. Outputs are registered
// while documents render and attached once all of them are done.
func (g *Generator) GenerateAll(ctx context.Context) (*Output, error) {
	if err := g.session.PreRegister(); err != nil {
		return nil, fmt.Errorf("failed to pre-register outputs: %w", err)
	}

	order := g.session.Assignments().Order
	templates := make([]*Template, len(order))
	warnings := make([][]*errors.ValidationError, len(order))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i, doc := range order {
		i, doc := i, doc
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			t, sctx, err := g.Generate(doc)
			if err != nil {
				return err
			}
			templates[i] = t
			warnings[i] = sctx.Warnings()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := &Output{Templates: make(map[string]*Template, len(order))}
	for i, doc := range order {
		t := templates[i]
		for _, o := range g.session.Registry().Outputs(doc) {
			t.Outputs[o.Name] = OutputValue{Type: o.Type, Value: resource.Expr(o.Value)}
		}
		if err := t.stampHash(); err != nil {
			return nil, err
		}
		out.Templates[doc] = t
		out.Warnings = append(out.Warnings, warnings[i]...)
	}
	return out, nil
}

// Generate renders one document without its outputs section, which
// depends on every other document.
func (g *Generator) Generate(doc string) (*Template, *synthctx.Context, error) {
	info, ok := g.session.Assignments().Template(doc)
	if !ok {
		return nil, nil, fmt.Errorf("unknown document %q", doc)
	}
	sctx, err := g.session.Context(doc)
	if err != nil {
		return nil, nil, err
	}

	params := make(map[string]synthctx.Parameter, len(g.session.Parameters()))
	for name, p := range g.session.Parameters() {
		params[name] = p
	}

	t := &Template{
		Schema:         SchemaURL,
		ContentVersion: ContentVersion,
		Metadata: TemplateMetadata{
			Generator:      GeneratorInfo{Name: "armforge", Version: g.version},
			Document:       doc,
			DeploymentName: synthctx.DeploymentName(doc),
			IsMain:         info.IsMain,
		},
		Parameters: params,
		Variables:  map[string]any{},
		Resources:  make([]resource.Body, 0, len(info.Resources)),
		Outputs:    map[string]OutputValue{},
	}
	for _, dep := range info.DependsOn {
		t.Metadata.DependsOn = append(t.Metadata.DependsOn, synthctx.DeploymentName(dep))
	}

	for _, id := range info.Resources {
		body, err := g.render(sctx, id)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to generate resource %s in %s: %w", id, doc, err)
		}
		t.Resources = append(t.Resources, body)
	}

	crossRefs := sctx.CrossReferences()
	for _, dep := range g.session.Assignments().CrossDependenciesFrom(doc) {
		entry := CrossDependencyEntry{
			Resource:       dep.SourceResource,
			DependsOn:      dep.TargetResource,
			Template:       dep.TargetTemplate,
			DependencyType: dep.DependencyType,
		}
		if dep.DependencyType == resource.DependsOn {
			sctx.Enter(dep.SourceResource)
			expr, err := sctx.ResourceID(dep.TargetResource)
			if err != nil {
				return nil, nil, err
			}
			entry.Expressions = []string{resource.Expr(expr)}
		} else {
			for _, ref := range crossRefs {
				if ref.SourceResource == dep.SourceResource && ref.Output.ResourceID == dep.TargetResource {
					entry.Expressions = append(entry.Expressions, resource.Expr(synthctx.OutputReference(ref.Output.Document, ref.Output.Name)))
				}
			}
		}
		t.Metadata.CrossTemplateDependencies = append(t.Metadata.CrossTemplateDependencies, entry)
	}

	return t, sctx, nil
}

// render generates one resource body and rewrites its dependsOn. Same
// document dependencies become resourceId() expressions; cross document
// ones are carried in template metadata instead.
func (g *Generator) render(sctx *synthctx.Context, id string) (resource.Body, error) {
	r, ok := g.resources.Resource(id)
	if !ok {
		return nil, &errors.ReferenceIntegrityError{Code: errors.ErrUnassignedResource, Missing: id, Relation: "resource"}
	}
	meta, _ := g.session.Metadata(id)

	sctx.Enter(id)
	generated, err := r.Generate(sctx)
	if err != nil {
		return nil, err
	}

	body := make(resource.Body, len(generated)+1)
	for k, v := range generated {
		body[k] = v
	}

	var dependsOn []any
	seen := make(map[string]bool)
	if existing, ok := body["dependsOn"].([]any); ok {
		for _, v := range existing {
			if s, ok := v.(string); ok {
				seen[s] = true
			}
			dependsOn = append(dependsOn, v)
		}
	}
	if existing, ok := body["dependsOn"].([]string); ok {
		for _, s := range existing {
			seen[s] = true
			dependsOn = append(dependsOn, s)
		}
	}

	for _, dep := range meta.Dependencies {
		doc, _ := g.session.Assignments().DocumentOf(dep)
		if doc != sctx.Document() {
			continue
		}
		depMeta, _ := g.session.Metadata(dep)
		expr := resource.Expr(synthctx.ResourceIDExpression(depMeta))
		if !seen[expr] {
			seen[expr] = true
			dependsOn = append(dependsOn, expr)
		}
	}

	if len(dependsOn) > 0 {
		body["dependsOn"] = dependsOn
	} else {
		delete(body, "dependsOn")
	}
	return body, nil
}
