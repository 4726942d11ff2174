// Package declare loads resource declarations from YAML or JSON files.
//
//	parameters:
//	  location: {type: string, defaultValue: westeurope}
//	resources:
//	  - id: storage
//	    type: Microsoft.Storage/storageAccounts
//	    apiVersion: "2023-01-01"
//	    name: stdata01
//	    location: ${param:location}
//	groups:
//	  - name: web
//	    resources:
//	      - id: app
//	        properties:
//	          blob: ${ref:storage.primaryEndpoints.blob}
//
// Entries marked "legacy: true" only expose their identity and body, and
// go through the legacy adapter during collection.
package declare

import (
	"fmt"
	"os"
	"sort"

	"sigs.k8s.io/yaml"

	"github.com/armforge/armforge/compiler/errors"
	"github.com/armforge/armforge/internal/synthctx"
	"github.com/armforge/armforge/pkg/resource"
)

// Spec is a declaration file
type Spec struct {
	Parameters map[string]synthctx.Parameter `json:"parameters,omitempty"`
	Resources  []Declaration                 `json:"resources,omitempty"`
	Groups     []Group                       `json:"groups,omitempty"`
}

// Group nests declarations under a named node of the declaration tree
type Group struct {
	Name      string        `json:"name"`
	Resources []Declaration `json:"resources,omitempty"`
	Groups    []Group       `json:"groups,omitempty"`
}

// Declaration is one resource entry
type Declaration struct {
	resource.Generic
	Legacy bool `json:"legacy,omitempty"`
}

// Load reads and parses a declaration file
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read declarations: %w", err)
	}
	spec, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return spec, nil
}

// Parse decodes YAML or JSON declarations. Unknown keys are rejected.
func Parse(data []byte) (*Spec, error) {
	var spec Spec
	if err := yaml.UnmarshalStrict(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse declarations: %w", err)
	}
	if err := spec.check(); err != nil {
		return nil, err
	}
	return &spec, nil
}

func (s *Spec) check() error {
	for name, p := range s.Parameters {
		if p.Type == "" {
			return fmt.Errorf("parameter %q has no type", name)
		}
	}
	var checkGroups func(path string, groups []Group) error
	checkGroups = func(path string, groups []Group) error {
		seen := make(map[string]bool)
		for _, g := range groups {
			if g.Name == "" {
				return fmt.Errorf("group under %q has no name", path)
			}
			if seen[g.Name] {
				return fmt.Errorf("group %q is declared twice under %q", g.Name, path)
			}
			seen[g.Name] = true
			if err := checkGroups(path+"/"+g.Name, g.Groups); err != nil {
				return err
			}
		}
		return nil
	}
	return checkGroups("", s.Groups)
}

// Tree returns the declaration tree rooted at name: top-level resources
// first, then each group as a child node.
func (s *Spec) Tree(name string) *resource.Tree {
	root := resource.NewTree(name, items(s.Resources)...)
	addGroups(root, s.Groups)
	return root
}

// ParameterNames returns declared parameter names, sorted
func (s *Spec) ParameterNames() []string {
	names := make([]string, 0, len(s.Parameters))
	for name := range s.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func addGroups(parent *resource.Tree, groups []Group) {
	for _, g := range groups {
		child := parent.AddChild(g.Name, items(g.Resources)...)
		addGroups(child, g.Groups)
	}
}

func items(decls []Declaration) []resource.Generator {
	out := make([]resource.Generator, 0, len(decls))
	for i := range decls {
		g := &decls[i].Generic
		if decls[i].Legacy {
			out = append(out, &legacyResource{generic: g})
			continue
		}
		out = append(out, g)
	}
	return out
}

// legacyResource hides Describe so the collector adapts it
type legacyResource struct {
	generic *resource.Generic
}

var _ resource.Legacy = (*legacyResource)(nil)

func (l *legacyResource) Identity() resource.Identity {
	return resource.Identity{ID: l.generic.ID, Type: l.generic.Type, Name: l.generic.Name}
}

func (l *legacyResource) Generate(ctx resource.Context) (resource.Body, error) {
	return l.generic.Generate(ctx)
}

func (l *legacyResource) Validate() []*errors.ValidationError {
	return l.generic.Validate()
}
