package validation

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var embeddedSchemas embed.FS

// SchemaProvider returns the compiled schema for a resource type and
// apiVersion, or nil when none is known.
type SchemaProvider interface {
	Schema(resourceType, apiVersion string) (*jsonschema.Schema, error)
}

// SchemaSet serves JSON schemas keyed by file name. A file named
// "Microsoft.Storage_storageAccounts.json" covers every apiVersion of the
// type; "Microsoft.Storage_storageAccounts@2023-01-01.json" covers one
// version and wins over the unversioned file.
type SchemaSet struct {
	mu       sync.Mutex
	sources  map[string][]byte
	compiled map[string]*jsonschema.Schema
}

// NewSchemaSet loads the built-in schemas, then any *.json files in dir,
// which override built-ins of the same name. An empty dir is skipped.
func NewSchemaSet(dir string) (*SchemaSet, error) {
	s := &SchemaSet{
		sources:  make(map[string][]byte),
		compiled: make(map[string]*jsonschema.Schema),
	}

	err := fs.WalkDir(embeddedSchemas, "schemas", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := embeddedSchemas.ReadFile(path)
		if err != nil {
			return err
		}
		s.Add(strings.TrimSuffix(d.Name(), ".json"), data)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load built-in schemas: %w", err)
	}

	if dir == "" {
		return s, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema directory %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read schema %s: %w", e.Name(), err)
		}
		s.Add(strings.TrimSuffix(e.Name(), ".json"), data)
	}
	return s, nil
}

// Add registers a schema source under name, replacing any previous one
func (s *SchemaSet) Add(name string, data []byte) {
	key := strings.ToLower(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[key] = data
	delete(s.compiled, key)
}

// Names returns registered schema names, sorted
func (s *SchemaSet) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sources))
	for k := range s.sources {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Schema implements SchemaProvider
func (s *SchemaSet) Schema(resourceType, apiVersion string) (*jsonschema.Schema, error) {
	base := strings.ToLower(strings.ReplaceAll(resourceType, "/", "_"))
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range []string{base + "@" + strings.ToLower(apiVersion), base} {
		if compiled, ok := s.compiled[key]; ok {
			return compiled, nil
		}
		data, ok := s.sources[key]
		if !ok {
			continue
		}
		url := "file:///armforge/schemas/" + key + ".json"
		c := jsonschema.NewCompiler()
		if err := c.AddResource(url, bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("failed to add schema %s: %w", key, err)
		}
		compiled, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema %s: %w", key, err)
		}
		s.compiled[key] = compiled
		return compiled, nil
	}
	return nil, nil
}
