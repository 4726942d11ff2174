package validation

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/armforge/armforge/compiler/errors"
)

// SchemaLayer checks resource bodies against JSON schemas. Types without a
// schema produce one W701 warning each; values that are template
// expressions are only known at deploy time and are not checked.
type SchemaLayer struct {
	provider SchemaProvider
}

// NewSchemaLayer creates the schema compliance layer
func NewSchemaLayer(provider SchemaProvider) *SchemaLayer {
	return &SchemaLayer{provider: provider}
}

// Name implements Layer
func (l *SchemaLayer) Name() errors.Layer {
	return errors.LayerSchema
}

// Validate implements Layer
func (l *SchemaLayer) Validate(_ context.Context, in *Input) ([]*errors.ValidationError, []*errors.ValidationError) {
	var out []*errors.ValidationError
	missing := make(map[string]bool)

	for _, name := range documentNames(in) {
		resources, _ := in.Documents[name]["resources"].([]any)
		for i, item := range resources {
			body, ok := item.(map[string]any)
			if !ok {
				continue
			}
			label := resourceLabel(in, name, i, item)
			typ, _ := body["type"].(string)
			version, _ := body["apiVersion"].(string)

			var schema *jsonschema.Schema
			var err error
			if l.provider != nil {
				schema, err = l.provider.Schema(typ, version)
			}
			if err != nil {
				out = append(out, errors.NewValidationError(errors.LayerSchema, errors.ErrSchemaLoad,
					err.Error(), name, label).
					WithExpected("a valid JSON schema for "+typ, "unloadable schema"))
				continue
			}
			if schema == nil {
				key := typ + "@" + version
				if !missing[key] {
					missing[key] = true
					out = append(out, errors.NewValidationWarning(errors.LayerSchema, errors.ErrSchemaUnavailable,
						fmt.Sprintf("no schema for %s (apiVersion %s)", typ, version), name, label))
				}
				continue
			}

			out = append(out, l.check(schema, name, label, body)...)
		}
	}
	return split(out)
}

func (l *SchemaLayer) check(schema *jsonschema.Schema, doc, label string, body map[string]any) []*errors.ValidationError {
	err := schema.Validate(body)
	if err == nil {
		return nil
	}
	var verr *jsonschema.ValidationError
	if !stderrors.As(err, &verr) {
		return []*errors.ValidationError{errors.NewValidationError(errors.LayerSchema, errors.ErrSchemaViolation,
			err.Error(), doc, label)}
	}

	var out []*errors.ValidationError
	seen := make(map[string]bool)
	for _, leaf := range leafCauses(verr) {
		if value, ok := pointerValue(body, leaf.InstanceLocation); ok {
			if s, isString := value.(string); isString && isExpression(s) {
				continue
			}
		}
		key := leaf.InstanceLocation + "|" + leaf.KeywordLocation
		if seen[key] {
			continue
		}
		seen[key] = true

		path := append([]string{doc, label}, pointerSegments(leaf.InstanceLocation)...)
		out = append(out, errors.NewValidationError(errors.LayerSchema, errors.ErrSchemaViolation,
			leaf.Message, path...).
			WithExpected(leaf.KeywordLocation, fmt.Sprintf("%v", instanceOrAbsent(body, leaf.InstanceLocation))))
	}
	return out
}

func leafCauses(e *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(e.Causes) == 0 {
		return []*jsonschema.ValidationError{e}
	}
	var out []*jsonschema.ValidationError
	for _, c := range e.Causes {
		out = append(out, leafCauses(c)...)
	}
	return out
}

// pointerSegments splits a JSON pointer into unescaped segments
func pointerSegments(pointer string) []string {
	if pointer == "" || pointer == "/" {
		return nil
	}
	parts := strings.Split(strings.TrimPrefix(pointer, "/"), "/")
	for i, p := range parts {
		parts[i] = strings.ReplaceAll(strings.ReplaceAll(p, "~1", "/"), "~0", "~")
	}
	return parts
}

// pointerValue resolves a JSON pointer against v
func pointerValue(v any, pointer string) (any, bool) {
	cur := v
	for _, seg := range pointerSegments(pointer) {
		switch t := cur.(type) {
		case map[string]any:
			next, ok := t[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(t) {
				return nil, false
			}
			cur = t[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

func instanceOrAbsent(body map[string]any, pointer string) any {
	if v, ok := pointerValue(body, pointer); ok {
		switch v.(type) {
		case map[string]any:
			return "object"
		case []any:
			return "array"
		}
		return v
	}
	return "absent"
}
