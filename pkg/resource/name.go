package resource

import (
	"fmt"
	"strings"
)

// NameArguments returns the resourceId() arguments that address a resource
// named name: one per name segment. Literal segments are quoted, segments
// holding ${param:} placeholders become parameter expressions, and a name
// that is already an expression is passed through as a single argument.
func NameArguments(name string) []string {
	if strings.HasPrefix(name, "[") && strings.HasSuffix(name, "]") && !strings.HasPrefix(name, "[[") {
		return []string{name[1 : len(name)-1]}
	}

	segments := strings.Split(name, "/")
	args := make([]string, len(segments))
	for i, segment := range segments {
		expr, ok, err := resolveExpression(nameContext{}, segment)
		if err != nil || !ok {
			args[i] = quote(segment)
			continue
		}
		args[i] = expr
	}
	return args
}

// nameContext resolves placeholders allowed in resource names. Names are
// evaluated before any resource deploys, so references are refused.
type nameContext struct{}

func (nameContext) Document() string { return "" }

func (nameContext) ResourceID(id string) (string, error) {
	return "", fmt.Errorf("resource names cannot reference %s", id)
}

func (nameContext) Property(id, _ string) (string, error) {
	return "", fmt.Errorf("resource names cannot reference %s", id)
}

func (nameContext) Parameter(name string) string {
	return "parameters(" + quote(name) + ")"
}
