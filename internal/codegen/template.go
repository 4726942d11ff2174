// Package codegen renders assigned resources into ARM deployment templates.
package codegen

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/armforge/armforge/internal/synthctx"
	"github.com/armforge/armforge/pkg/resource"
)

const (
	// SchemaURL is the deployment template schema every document declares
	SchemaURL = "https://schema.management.azure.com/schemas/2019-04-01/deploymentTemplate.json#"
	// ContentVersion is the template content version
	ContentVersion = "1.0.0.0"
)

// Template is one generated deployment template
type Template struct {
	Schema         string                        `json:"$schema"`
	ContentVersion string                        `json:"contentVersion"`
	Metadata       TemplateMetadata              `json:"metadata"`
	Parameters     map[string]synthctx.Parameter `json:"parameters"`
	Variables      map[string]any                `json:"variables"`
	Resources      []resource.Body               `json:"resources"`
	Outputs        map[string]OutputValue        `json:"outputs"`
}

// TemplateMetadata describes where the document sits in the deployment
type TemplateMetadata struct {
	Generator      GeneratorInfo `json:"_generator"`
	Document       string        `json:"document"`
	DeploymentName string        `json:"deploymentName"`
	IsMain         bool          `json:"isMain"`
	// DependsOn lists deployment names this document waits on
	DependsOn                 []string               `json:"dependsOn,omitempty"`
	CrossTemplateDependencies []CrossDependencyEntry `json:"crossTemplateDependencies,omitempty"`
}

// GeneratorInfo mirrors the _generator block ARM tooling emits
type GeneratorInfo struct {
	Name         string `json:"name"`
	Version      string `json:"version"`
	TemplateHash string `json:"templateHash,omitempty"`
}

// CrossDependencyEntry carries a dependency on a resource in another
// document. Expressions read outputs of that document's deployment.
type CrossDependencyEntry struct {
	Resource       string                  `json:"resource"`
	DependsOn      string                  `json:"dependsOn"`
	Template       string                  `json:"template"`
	DependencyType resource.DependencyKind `json:"dependencyType"`
	Expressions    []string                `json:"expressions,omitempty"`
}

// OutputValue is a template output
type OutputValue struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// MarshalDocument renders t as indented JSON. Map keys are sorted, so equal
// templates produce equal bytes.
func MarshalDocument(t *Template) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("template cannot be nil")
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t); err != nil {
		return nil, fmt.Errorf("failed to serialize template %s: %w", t.Metadata.Document, err)
	}
	return buf.Bytes(), nil
}

// Map returns the template as a generic JSON object, the form validators
// inspect.
func (t *Template) Map() (map[string]any, error) {
	data, err := MarshalDocument(t)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode template %s: %w", t.Metadata.Document, err)
	}
	return out, nil
}

// Size returns the serialized size in bytes
func (t *Template) Size() (int64, error) {
	data, err := MarshalDocument(t)
	if err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

// stampHash sets the template hash over everything except the hash itself
func (t *Template) stampHash() error {
	t.Metadata.Generator.TemplateHash = ""
	data, err := MarshalDocument(t)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(data)
	t.Metadata.Generator.TemplateHash = hex.EncodeToString(sum[:8])
	return nil
}
