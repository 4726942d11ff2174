package validation

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/armforge/armforge/compiler/errors"
)

// requiredSections every deployment template carries
var requiredSections = []string{"$schema", "contentVersion", "parameters", "resources", "outputs"}

// requiredResourceKeys every resource body carries
var requiredResourceKeys = []string{"type", "apiVersion", "name"}

// topLevelKeys are the keys ARM accepts directly on a resource; anything
// else belongs inside "properties".
var topLevelKeys = map[string]bool{
	"type": true, "apiVersion": true, "name": true, "location": true, "tags": true,
	"properties": true, "dependsOn": true, "sku": true, "kind": true, "identity": true,
	"zones": true, "comments": true, "condition": true, "copy": true, "scope": true,
	"plan": true, "managedBy": true, "extendedLocation": true, "resources": true,
	"metadata": true, "etag": true,
}

// subResourceKeys are the keys allowed on an inline sub-resource such as a
// subnet; everything else belongs in its own "properties".
var subResourceKeys = map[string]bool{"name": true, "id": true, "type": true, "etag": true, "properties": true}

// wrapperRules lists, per resource type, the arrays under properties whose
// elements are sub-resources with their own properties envelope.
var wrapperRules = map[string][]string{
	"microsoft.network/virtualnetworks":        {"subnets", "virtualNetworkPeerings"},
	"microsoft.network/networksecuritygroups":  {"securityRules"},
	"microsoft.network/routetables":            {"routes"},
	"microsoft.network/networkinterfaces":      {"ipConfigurations"},
	"microsoft.network/loadbalancers":          {"frontendIPConfigurations", "backendAddressPools", "loadBalancingRules", "probes", "inboundNatRules"},
	"microsoft.network/applicationgateways":    {"gatewayIPConfigurations", "frontendIPConfigurations", "frontendPorts", "backendAddressPools", "backendHttpSettingsCollection", "httpListeners", "requestRoutingRules"},
	"microsoft.network/virtualnetworkgateways": {"ipConfigurations"},
}

// StructureLayer checks the shape of every generated document
type StructureLayer struct{}

// NewStructureLayer creates the structure layer
func NewStructureLayer() *StructureLayer {
	return &StructureLayer{}
}

// Name implements Layer
func (l *StructureLayer) Name() errors.Layer {
	return errors.LayerStructure
}

// Validate implements Layer
func (l *StructureLayer) Validate(ctx context.Context, in *Input) ([]*errors.ValidationError, []*errors.ValidationError) {
	docs := documentNames(in)
	results := make([][]*errors.ValidationError, len(docs))

	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, name := range docs {
		i, name := i, name
		eg.Go(func() error {
			results[i] = l.checkDocument(in, name, in.Documents[name])
			return nil
		})
	}
	_ = eg.Wait()

	return split(flatten(results))
}

// CheckDocument validates a single document
func (l *StructureLayer) CheckDocument(in *Input, name string, doc map[string]any) []*errors.ValidationError {
	return l.checkDocument(in, name, doc)
}

func (l *StructureLayer) checkDocument(in *Input, name string, doc map[string]any) []*errors.ValidationError {
	var out []*errors.ValidationError

	for _, section := range requiredSections {
		if _, ok := doc[section]; !ok {
			out = append(out, errors.NewValidationError(errors.LayerStructure, errors.ErrMissingTemplateSection,
				fmt.Sprintf("template is missing the %q section", section), name, section))
		}
	}
	for _, section := range []string{"parameters", "outputs", "variables", "metadata"} {
		if v, ok := doc[section]; ok {
			if _, isObject := v.(map[string]any); !isObject {
				out = append(out, errors.NewValidationError(errors.LayerStructure, errors.ErrInvalidResourceShape,
					fmt.Sprintf("section %q must be an object", section), name, section).
					WithExpected("object", fmt.Sprintf("%T", v)))
			}
		}
	}

	if raw, ok := doc["resources"]; ok {
		resources, isArray := raw.([]any)
		if !isArray {
			out = append(out, errors.NewValidationError(errors.LayerStructure, errors.ErrInvalidResourceShape,
				"section \"resources\" must be an array", name, "resources").
				WithExpected("array", fmt.Sprintf("%T", raw)))
		}
		for i, item := range resources {
			label := resourceLabel(in, name, i, item)
			body, isObject := item.(map[string]any)
			if !isObject {
				out = append(out, errors.NewValidationError(errors.LayerStructure, errors.ErrInvalidResourceShape,
					"resource must be an object", name, label).
					WithExpected("object", fmt.Sprintf("%T", item)))
				continue
			}
			out = append(out, checkResource(name, label, body)...)
		}
	}

	for _, section := range []string{"outputs", "metadata"} {
		walkStrings(doc[section], []string{name, section}, func(path []string, s string) {
			out = append(out, checkExpressionString(path, s)...)
		})
	}

	return out
}

func checkResource(doc, label string, body map[string]any) []*errors.ValidationError {
	var out []*errors.ValidationError
	base := []string{doc, label}

	for _, key := range requiredResourceKeys {
		if v, ok := body[key]; !ok || v == "" {
			out = append(out, errors.NewValidationError(errors.LayerStructure, errors.ErrMissingResourceKey,
				fmt.Sprintf("resource is missing %q", key), appendPath(base, key)...))
		}
	}

	keys := sortedKeys(body)
	for _, key := range keys {
		if topLevelKeys[key] {
			continue
		}
		out = append(out, errors.NewValidationError(errors.LayerStructure, errors.ErrMissingWrapper,
			fmt.Sprintf("%q is not a top-level resource key; it must be nested under \"properties\"", key),
			appendPath(base, key)...).
			WithExpected("properties."+key, key))
	}

	resourceType, _ := body["type"].(string)
	if props, ok := body["properties"].(map[string]any); ok {
		for _, array := range wrapperRules[strings.ToLower(resourceType)] {
			items, _ := props[array].([]any)
			for i, item := range items {
				sub, ok := item.(map[string]any)
				if !ok {
					continue
				}
				for _, key := range sortedKeys(sub) {
					if subResourceKeys[key] {
						continue
					}
					envelope := fmt.Sprintf("properties.%s[%d].properties", array, i)
					out = append(out, errors.NewValidationError(errors.LayerStructure, errors.ErrMissingWrapper,
						fmt.Sprintf("%q on %s[%d] must be nested under its \"properties\"", key, array, i),
						appendPath(base, "properties", array, strconv.Itoa(i), key)...).
						WithExpected(envelope+"."+key, key))
				}
			}
		}
	}

	if raw, ok := body["dependsOn"]; ok {
		entries, isArray := raw.([]any)
		if !isArray {
			out = append(out, errors.NewValidationError(errors.LayerStructure, errors.ErrInvalidResourceShape,
				"dependsOn must be an array", appendPath(base, "dependsOn")...).
				WithExpected("array", fmt.Sprintf("%T", raw)))
		}
		for i, entry := range entries {
			s, isString := entry.(string)
			if !isString || !isExpression(s) {
				out = append(out, errors.NewValidationError(errors.LayerStructure, errors.ErrLiteralDependsOn,
					"", appendPath(base, "dependsOn", strconv.Itoa(i))...).
					WithExpected("[resourceId('<type>', '<name>')]", fmt.Sprintf("%v", entry)))
			}
		}
	}

	walkStrings(body, base, func(path []string, s string) {
		if strings.HasPrefix(strings.ToLower(s), "/subscriptions/") {
			out = append(out, errors.NewValidationError(errors.LayerStructure, errors.ErrLiteralResourceID,
				"", path...).
				WithExpected("[resourceId(...)]", s))
		}
		out = append(out, checkExpressionString(path, s)...)
	})

	return out
}

func checkExpressionString(path []string, s string) []*errors.ValidationError {
	switch {
	case isExpression(s):
		if err := checkExpression(s); err != nil {
			return []*errors.ValidationError{errors.NewValidationError(errors.LayerStructure, errors.ErrMalformedExpression,
				fmt.Sprintf("malformed expression: %v", err), path...).
				WithExpected("balanced expression", s)}
		}
	case looksLikeBrokenExpression(s):
		return []*errors.ValidationError{errors.NewValidationError(errors.LayerStructure, errors.ErrMalformedExpression,
			"expression is missing its closing ']'", path...).
			WithExpected("[...]", s)}
	}
	return nil
}

// resourceLabel names the i-th resource of doc for diagnostics: its
// declared id when the assignment knows it, else its name.
func resourceLabel(in *Input, doc string, i int, item any) string {
	if in != nil && in.Assignments != nil {
		if t, ok := in.Assignments.Template(doc); ok && i < len(t.Resources) {
			return t.Resources[i]
		}
	}
	if body, ok := item.(map[string]any); ok {
		if name, ok := body["name"].(string); ok && name != "" {
			return name
		}
	}
	return fmt.Sprintf("resources[%d]", i)
}

// documentNames returns document names in assignment order, then any
// extra documents sorted
func documentNames(in *Input) []string {
	var out []string
	seen := make(map[string]bool)
	if in.Assignments != nil {
		for _, name := range in.Assignments.Order {
			if _, ok := in.Documents[name]; ok {
				out = append(out, name)
				seen[name] = true
			}
		}
	}
	var extra []string
	for name := range in.Documents {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
