package resource

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/armforge/armforge/compiler/errors"
)

// placeholderPattern matches ${ref:<id>[.<path>]} and ${param:<name>}
var placeholderPattern = regexp.MustCompile(`\$\{(ref|param):([^}]*)\}`)

// sizeOverhead approximates the bytes the generator adds around a body
// (dependsOn, metadata, indentation).
const sizeOverhead = 256

// Constraint is a declarative construct check on a Generic resource.
// Exactly one of the check groups is expected to be set.
type Constraint struct {
	// Required property paths, e.g. "properties.encryption"
	Required []string `json:"required,omitempty"`
	// Path with an inclusive numeric range
	Path string   `json:"path,omitempty"`
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
	// Exclusive property paths; at most one may be set
	Exclusive []string `json:"exclusive,omitempty"`
}

// Generic is a data-driven resource. String values may embed placeholders:
//
//	${ref:<id>}          resource id of <id>
//	${ref:<id>.<path>}   runtime property <path> of <id>
//	${param:<name>}      template parameter
//
// Placeholders are resolved through the Context at generation time, so the
// same declaration renders correctly whichever document its referents land in.
type Generic struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	APIVersion string            `json:"apiVersion"`
	Name       string            `json:"name"`
	Location   string            `json:"location,omitempty"`
	Kind       string            `json:"kind,omitempty"`
	SKU        map[string]any    `json:"sku,omitempty"`
	Tags       map[string]string `json:"tags,omitempty"`
	Properties map[string]any    `json:"properties,omitempty"`
	// Extra holds additional top-level keys (identity, zones, ...) verbatim
	Extra map[string]any `json:"extra,omitempty"`

	DependsOn            []string           `json:"dependsOn,omitempty"`
	RequiresSameTemplate []string           `json:"requiresSameTemplate,omitempty"`
	TemplatePreference   TemplatePreference `json:"templatePreference,omitempty"`
	SizeEstimate         int64              `json:"sizeEstimate,omitempty"`
	AssignmentHints      map[string]string  `json:"assignmentHints,omitempty"`
	Constraints          []Constraint       `json:"constraints,omitempty"`
}

var _ Resource = (*Generic)(nil)
var _ Validator = (*Generic)(nil)

// Describe implements Resource
func (g *Generic) Describe() Metadata {
	kinds := make(map[string]DependencyKind)
	deps := make([]string, 0, len(g.DependsOn))
	seen := make(map[string]bool)

	for _, dep := range g.DependsOn {
		if dep == "" || seen[dep] {
			continue
		}
		seen[dep] = true
		deps = append(deps, dep)
		kinds[dep] = DependsOn
	}
	for _, ref := range g.references() {
		kinds[ref] = Reference
		if seen[ref] {
			continue
		}
		seen[ref] = true
		deps = append(deps, ref)
	}

	size := g.SizeEstimate
	if size <= 0 {
		size = g.estimateSize()
	}

	return Metadata{
		ID:                   g.ID,
		Type:                 g.Type,
		Name:                 g.Name,
		Dependencies:         deps,
		DependencyKinds:      kinds,
		SizeEstimate:         size,
		RequiresSameTemplate: append([]string(nil), g.RequiresSameTemplate...),
		TemplatePreference:   g.TemplatePreference,
		AssignmentHints:      g.AssignmentHints,
	}
}

// Generate implements Resource
func (g *Generic) Generate(ctx Context) (Body, error) {
	name, err := resolveValue(ctx, g.Name)
	if err != nil {
		return nil, fmt.Errorf("resource %s: name: %w", g.ID, err)
	}

	body := Body{
		"type":       g.Type,
		"apiVersion": g.APIVersion,
		"name":       name,
	}

	optional := map[string]any{
		"location":   g.Location,
		"kind":       g.Kind,
		"sku":        g.SKU,
		"tags":       g.Tags,
		"properties": g.Properties,
	}
	for key, value := range optional {
		if isEmpty(value) {
			continue
		}
		resolved, err := resolveValue(ctx, value)
		if err != nil {
			return nil, fmt.Errorf("resource %s: %s: %w", g.ID, key, err)
		}
		body[key] = resolved
	}

	for key, value := range g.Extra {
		resolved, err := resolveValue(ctx, value)
		if err != nil {
			return nil, fmt.Errorf("resource %s: %s: %w", g.ID, key, err)
		}
		body[key] = resolved
	}

	return body, nil
}

// Validate implements Validator
func (g *Generic) Validate() []*errors.ValidationError {
	var out []*errors.ValidationError

	if g.APIVersion != "" && !ValidAPIVersion(g.APIVersion) {
		out = append(out, errors.NewValidationError(errors.LayerConstruct, errors.ErrInvalidAPIVersion,
			fmt.Sprintf("apiVersion %q is malformed", g.APIVersion), g.ID, "apiVersion").
			WithExpected("YYYY-MM-DD[-suffix]", g.APIVersion))
	}

	if g.SKU != nil {
		if name, _ := g.SKU["name"].(string); name == "" {
			out = append(out, errors.NewValidationError(errors.LayerConstruct, errors.ErrRequiredProperty,
				"sku is set but sku.name is missing", g.ID, "sku", "name").
				WithExpected("sku.name", "absent"))
		}
	}

	for _, m := range placeholderPattern.FindAllStringSubmatch(g.Name, -1) {
		if m[1] == "ref" {
			out = append(out, errors.NewValidationError(errors.LayerConstruct, errors.ErrInvalidPlaceholder,
				"resource names can only use ${param:} placeholders", g.ID, "name").
				WithExpected("${param:<name>}", m[0]))
		}
	}

	for _, match := range g.placeholders() {
		kind, target := match[0], match[1]
		if strings.TrimSpace(target) == "" {
			out = append(out, errors.NewValidationError(errors.LayerConstruct, errors.ErrInvalidPlaceholder,
				fmt.Sprintf("empty ${%s:} placeholder", kind), g.ID).
				WithSuggestion("Write ${%s:<name>}", kind))
			continue
		}
		if kind == "ref" && refID(target) == g.ID {
			out = append(out, errors.NewValidationError(errors.LayerConstruct, errors.ErrSelfDependency,
				"resource references itself", g.ID).
				WithSuggestion("Use a parameter or a literal instead of ${ref:%s}", target))
		}
	}

	doc := g.document()
	for i, c := range g.Constraints {
		out = append(out, c.check(g.ID, i, doc)...)
	}

	return out
}

func (c Constraint) check(id string, index int, doc map[string]any) []*errors.ValidationError {
	var out []*errors.ValidationError

	for _, path := range c.Required {
		if _, ok := lookupPath(doc, path); !ok {
			out = append(out, errors.NewValidationError(errors.LayerConstruct, errors.ErrRequiredProperty,
				fmt.Sprintf("required property %s is missing", path), append([]string{id}, strings.Split(path, ".")...)...).
				WithExpected(path, "absent").
				WithSuggestion("Set %s on resource %s", path, id))
		}
	}

	if c.Path != "" && (c.Min != nil || c.Max != nil) {
		value, ok := lookupPath(doc, c.Path)
		if ok {
			n, isNumber := toFloat(value)
			switch {
			case !isNumber:
				// Expressions are evaluated at deploy time
				if s, isString := value.(string); !isString || !strings.HasPrefix(s, "[") && !strings.Contains(s, "${") {
					out = append(out, errors.NewValidationError(errors.LayerConstruct, errors.ErrOutOfRange,
						fmt.Sprintf("%s must be numeric", c.Path), id).
						WithExpected("number", fmt.Sprintf("%T", value)))
				}
			case c.Min != nil && n < *c.Min, c.Max != nil && n > *c.Max:
				out = append(out, errors.NewValidationError(errors.LayerConstruct, errors.ErrOutOfRange,
					fmt.Sprintf("%s is out of range", c.Path), append([]string{id}, strings.Split(c.Path, ".")...)...).
					WithExpected(rangeString(c.Min, c.Max), fmt.Sprintf("%v", value)))
			}
		}
	}

	if len(c.Exclusive) > 1 {
		var set []string
		for _, path := range c.Exclusive {
			if _, ok := lookupPath(doc, path); ok {
				set = append(set, path)
			}
		}
		if len(set) > 1 {
			out = append(out, errors.NewValidationError(errors.LayerConstruct, errors.ErrMutuallyExclusive,
				fmt.Sprintf("constraint %d: %s are mutually exclusive", index, strings.Join(set, ", ")), id).
				WithExpected("at most one of "+strings.Join(c.Exclusive, ", "), strings.Join(set, ", ")).
				WithSuggestion("Remove all but one of %s", strings.Join(set, ", ")))
		}
	}

	return out
}

// document returns the declaration as a plain map for path lookups
func (g *Generic) document() map[string]any {
	doc := map[string]any{
		"type":       g.Type,
		"apiVersion": g.APIVersion,
		"name":       g.Name,
	}
	if g.Location != "" {
		doc["location"] = g.Location
	}
	if g.Kind != "" {
		doc["kind"] = g.Kind
	}
	if g.SKU != nil {
		doc["sku"] = g.SKU
	}
	if g.Properties != nil {
		doc["properties"] = g.Properties
	}
	for k, v := range g.Extra {
		doc[k] = v
	}
	return doc
}

func (g *Generic) estimateSize() int64 {
	data, err := json.Marshal(g.document())
	if err != nil {
		return FallbackSizeEstimate
	}
	return int64(len(data)) + sizeOverhead
}

// references returns the ids referenced by ${ref:...} placeholders in
// first-occurrence order.
func (g *Generic) references() []string {
	var out []string
	seen := make(map[string]bool)
	for _, match := range g.placeholders() {
		if match[0] != "ref" {
			continue
		}
		id := refID(match[1])
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// placeholders returns (kind, target) pairs in a deterministic order
func (g *Generic) placeholders() [][2]string {
	var out [][2]string
	collectStrings(g.Name, func(s string) {
		out = appendMatches(out, s)
	})
	collectStrings(g.Location, func(s string) { out = appendMatches(out, s) })
	for _, v := range []any{g.SKU, g.Tags, g.Properties, g.Extra} {
		collectStrings(v, func(s string) { out = appendMatches(out, s) })
	}
	return out
}

func appendMatches(out [][2]string, s string) [][2]string {
	for _, m := range placeholderPattern.FindAllStringSubmatch(s, -1) {
		out = append(out, [2]string{m[1], m[2]})
	}
	return out
}

// refID splits "<id>.<path>" and returns the id
func refID(target string) string {
	id, _, _ := strings.Cut(strings.TrimSpace(target), ".")
	return id
}

// collectStrings visits every string in v, walking maps in sorted key order
func collectStrings(v any, fn func(string)) {
	switch t := v.(type) {
	case string:
		fn(t)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			collectStrings(t[k], fn)
		}
	case map[string]string:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fn(t[k])
		}
	case []any:
		for _, item := range t {
			collectStrings(item, fn)
		}
	}
}

// resolveValue deep-copies v, replacing placeholders with expressions
func resolveValue(ctx Context, v any) (any, error) {
	switch t := v.(type) {
	case string:
		return resolveString(ctx, t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			resolved, err := resolveValue(ctx, item)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, item := range t {
			resolved, err := resolveString(ctx, item)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			resolved, err := resolveValue(ctx, item)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return v, nil
	}
}

// resolveString turns a string with placeholders into a template expression
func resolveString(ctx Context, s string) (any, error) {
	expr, ok, err := resolveExpression(ctx, s)
	if err != nil || !ok {
		return s, err
	}
	return Expr(expr), nil
}

// resolveExpression returns the bare expression for a string holding
// placeholders. A string that is exactly one placeholder becomes that
// expression; mixed content becomes a concat() of quoted literals and
// expressions. ok is false when s has no placeholders.
func resolveExpression(ctx Context, s string) (string, bool, error) {
	matches := placeholderPattern.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return "", false, nil
	}

	var parts []string
	last := 0
	for _, m := range matches {
		if m[0] > last {
			parts = append(parts, quote(s[last:m[0]]))
		}
		expr, err := resolvePlaceholder(ctx, s[m[2]:m[3]], s[m[4]:m[5]])
		if err != nil {
			return "", false, err
		}
		parts = append(parts, expr)
		last = m[1]
	}
	if last < len(s) {
		parts = append(parts, quote(s[last:]))
	}

	if len(parts) == 1 {
		return parts[0], true, nil
	}
	return "concat(" + strings.Join(parts, ", ") + ")", true, nil
}

func resolvePlaceholder(ctx Context, kind, target string) (string, error) {
	target = strings.TrimSpace(target)
	switch kind {
	case "param":
		return ctx.Parameter(target), nil
	case "ref":
		id, path, hasPath := strings.Cut(target, ".")
		if !hasPath {
			return ctx.ResourceID(id)
		}
		return ctx.Property(id, path)
	default:
		return "", fmt.Errorf("unknown placeholder kind %q", kind)
	}
}

// quote renders a template string literal
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case map[string]any:
		return len(t) == 0
	case map[string]string:
		return len(t) == 0
	default:
		return false
	}
}

// lookupPath walks a dotted path through nested maps
func lookupPath(doc map[string]any, path string) (any, bool) {
	var current any = doc
	for _, segment := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func rangeString(min, max *float64) string {
	switch {
	case min != nil && max != nil:
		return fmt.Sprintf("between %v and %v", *min, *max)
	case min != nil:
		return fmt.Sprintf(">= %v", *min)
	default:
		return fmt.Sprintf("<= %v", *max)
	}
}
