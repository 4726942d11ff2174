package synthctx

import (
	"fmt"
	"sort"
	"sync"
)

// Output is a value one document exports for another
type Output struct {
	Name       string `json:"name"`
	Document   string `json:"document"`
	ResourceID string `json:"resourceId"`
	Property   string `json:"property"`
	// Value is a bare expression valid inside Document
	Value string `json:"value"`
	Type  string `json:"type"`
}

type documentOutputs struct {
	mu      sync.Mutex
	outputs map[string]Output
}

// OutputRegistry collects outputs across documents. It is append-only and
// safe for concurrent use; each document has its own lock.
type OutputRegistry struct {
	docs map[string]*documentOutputs
}

// NewOutputRegistry creates a registry for a fixed set of documents
func NewOutputRegistry(documents []string) *OutputRegistry {
	r := &OutputRegistry{docs: make(map[string]*documentOutputs, len(documents))}
	for _, d := range documents {
		r.docs[d] = &documentOutputs{outputs: make(map[string]Output)}
	}
	return r
}

// Register adds out to its document. Registering the same name again
// returns the existing output; a different value under that name is an error.
func (r *OutputRegistry) Register(out Output) (Output, error) {
	d, ok := r.docs[out.Document]
	if !ok {
		return Output{}, fmt.Errorf("synthctx: unknown document %q", out.Document)
	}
	if out.Type == "" {
		out.Type = "string"
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if existing, ok := d.outputs[out.Name]; ok {
		if existing.Value != out.Value {
			return Output{}, fmt.Errorf("synthctx: output %q on %q already registered with a different value", out.Name, out.Document)
		}
		return existing, nil
	}
	d.outputs[out.Name] = out
	return out, nil
}

// Lookup returns a registered output
func (r *OutputRegistry) Lookup(doc, name string) (Output, bool) {
	d, ok := r.docs[doc]
	if !ok {
		return Output{}, false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	out, ok := d.outputs[name]
	return out, ok
}

// Outputs returns a document's outputs sorted by name
func (r *OutputRegistry) Outputs(doc string) []Output {
	d, ok := r.docs[doc]
	if !ok {
		return nil
	}
	d.mu.Lock()
	out := make([]Output, 0, len(d.outputs))
	for _, o := range d.outputs {
		out = append(out, o)
	}
	d.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of outputs across all documents
func (r *OutputRegistry) Len() int {
	n := 0
	for _, d := range r.docs {
		d.mu.Lock()
		n += len(d.outputs)
		d.mu.Unlock()
	}
	return n
}
