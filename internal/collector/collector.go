// Package collector walks a resource tree and gathers the metadata the
// assigner partitions on.
package collector

import (
	"fmt"
	"strings"

	"github.com/armforge/armforge/compiler/errors"
	"github.com/armforge/armforge/pkg/resource"
)

// Entry is one collected resource
type Entry struct {
	Resource resource.Resource
	Metadata resource.Metadata
	Path     []string // tree node names from the root
	Adapted  bool     // wrapped by resource.Adapt
}

// Result holds collected entries in declaration order
type Result struct {
	Entries  []Entry
	Warnings []*errors.MetadataError

	byID map[string]int
}

// Metadata returns the collected metadata in declaration order
func (r *Result) Metadata() []resource.Metadata {
	out := make([]resource.Metadata, len(r.Entries))
	for i, e := range r.Entries {
		out[i] = e.Metadata
	}
	return out
}

// Resource returns the resource registered under id
func (r *Result) Resource(id string) (resource.Resource, bool) {
	i, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return r.Entries[i].Resource, true
}

// Lookup returns the entry registered under id
func (r *Result) Lookup(id string) (Entry, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Entry{}, false
	}
	return r.Entries[i], true
}

// Collect walks tree depth-first, a node's items before its children, and
// describes every item. Legacy items are adapted and reported as E001
// warnings. Items that are neither shape fail with E002.
func Collect(tree *resource.Tree) (*Result, error) {
	res := &Result{byID: make(map[string]int)}

	err := tree.Walk(func(path []string, item resource.Generator) error {
		entry := Entry{Path: path}

		switch v := item.(type) {
		case resource.Resource:
			entry.Resource = v
			entry.Adapted = resource.IsAdapted(v)
		case resource.Legacy:
			entry.Resource = resource.Adapt(v)
			entry.Adapted = true
		default:
			return &errors.MetadataError{
				Code:    errors.ErrMetadataUnsupported,
				Message: fmt.Sprintf("%T at %s implements neither Describe nor Identity", item, strings.Join(path, "/")),
			}
		}

		entry.Metadata = entry.Resource.Describe()
		if err := checkIdentity(entry.Metadata); err != nil {
			return err
		}
		if _, dup := res.byID[entry.Metadata.ID]; dup {
			return &errors.ReferenceIntegrityError{
				Code:       errors.ErrDuplicateResource,
				ResourceID: entry.Metadata.ID,
			}
		}
		if entry.Metadata.SizeEstimate <= 0 {
			entry.Metadata.SizeEstimate = resource.FallbackSizeEstimate
		}

		if entry.Adapted {
			res.Warnings = append(res.Warnings, &errors.MetadataError{
				Code:       errors.ErrMetadataFallback,
				ResourceID: entry.Metadata.ID,
				Message:    fmt.Sprintf("using fallback metadata (size estimate %d bytes, no dependencies)", resource.FallbackSizeEstimate),
			})
		}

		res.byID[entry.Metadata.ID] = len(res.Entries)
		res.Entries = append(res.Entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func checkIdentity(m resource.Metadata) error {
	var missing []string
	if m.ID == "" {
		missing = append(missing, "id")
	}
	if m.Type == "" {
		missing = append(missing, "type")
	}
	if m.Name == "" {
		missing = append(missing, "name")
	}
	if len(missing) == 0 {
		return nil
	}
	return &errors.MetadataError{
		Code:       errors.ErrMetadataInvalid,
		ResourceID: m.ID,
		Message:    "missing " + strings.Join(missing, ", "),
	}
}
