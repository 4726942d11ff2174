package assign

import (
	"github.com/armforge/armforge/pkg/resource"
)

// TemplateInfo describes one output document
type TemplateInfo struct {
	Name          string   `json:"name"`
	Resources     []string `json:"resources"`
	EstimatedSize int64    `json:"estimatedSize"`
	IsMain        bool     `json:"isMain"`
	DependsOn     []string `json:"dependsOn,omitempty"`
}

// CrossTemplateDependency is a resource edge whose endpoints landed in
// different documents
type CrossTemplateDependency struct {
	SourceTemplate string                  `json:"sourceTemplate"`
	TargetTemplate string                  `json:"targetTemplate"`
	SourceResource string                  `json:"sourceResource"`
	TargetResource string                  `json:"targetResource"`
	DependencyType resource.DependencyKind `json:"dependencyType"`
}

// Assignments is the result of partitioning. It is read-only once returned.
type Assignments struct {
	// Assignments maps every resource id to its document
	Assignments map[string]string `json:"assignments"`
	// Templates maps document names to their description
	Templates                 map[string]*TemplateInfo  `json:"templates"`
	CrossTemplateDependencies []CrossTemplateDependency `json:"crossTemplateDependencies"`
	// Order is document creation order, main first
	Order []string `json:"order"`
	// DeploymentOrder lists documents dependencies first
	DeploymentOrder []string `json:"deploymentOrder"`
	Strategy        Strategy `json:"strategy"`
	MaxTemplateSize int64    `json:"maxTemplateSize"`
}

// DocumentOf returns the document holding id
func (a *Assignments) DocumentOf(id string) (string, bool) {
	doc, ok := a.Assignments[id]
	return doc, ok
}

// Main returns the name of the main document
func (a *Assignments) Main() string {
	for _, name := range a.Order {
		if a.Templates[name].IsMain {
			return name
		}
	}
	return ""
}

// Template returns the description of a document
func (a *Assignments) Template(name string) (*TemplateInfo, bool) {
	t, ok := a.Templates[name]
	return t, ok
}

// CrossDependenciesFrom returns the cross-template dependencies whose source is doc
func (a *Assignments) CrossDependenciesFrom(doc string) []CrossTemplateDependency {
	var out []CrossTemplateDependency
	for _, d := range a.CrossTemplateDependencies {
		if d.SourceTemplate == doc {
			out = append(out, d)
		}
	}
	return out
}

// TransitiveDependencies returns every document doc waits on, directly or not
func (a *Assignments) TransitiveDependencies(doc string) map[string]bool {
	seen := make(map[string]bool)
	stack := []string{doc}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		t, ok := a.Templates[cur]
		if !ok {
			continue
		}
		for _, dep := range t.DependsOn {
			if !seen[dep] {
				seen[dep] = true
				stack = append(stack, dep)
			}
		}
	}
	return seen
}
