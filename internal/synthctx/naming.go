package synthctx

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/armforge/armforge/internal/assign"
	utilstrings "github.com/armforge/armforge/internal/util/strings"
	"github.com/armforge/armforge/pkg/resource"
)

// DeploymentName derives the deployment unit name of a document
func DeploymentName(doc string) string {
	return assign.DeploymentName(doc)
}

// OutputName derives the output name exporting property of resource id.
// The hash suffix keeps distinct (id, property) pairs apart after slugging.
func OutputName(id, property string) string {
	sum := sha256.Sum256([]byte(id + "\x00" + property))
	return fmt.Sprintf("%s_%s_%s", utilstrings.ToIdentifier(id), utilstrings.ToIdentifier(property), hex.EncodeToString(sum[:])[:8])
}

// ResourceIDExpression addresses a resource inside its own document.
// Child resource names ("vnet/subnet") become separate segments and
// ${param:} placeholders in the name become parameter reads.
func ResourceIDExpression(meta resource.Metadata) string {
	args := append([]string{quote(meta.Type)}, resource.NameArguments(meta.Name)...)
	return "resourceId(" + strings.Join(args, ", ") + ")"
}

// PropertyExpression reads a runtime property of a resource in the same document
func PropertyExpression(meta resource.Metadata, path string) string {
	return "reference(" + ResourceIDExpression(meta) + ")." + path
}

// OutputReference reads a named output of another document's deployment
func OutputReference(doc, output string) string {
	return fmt.Sprintf("reference(%s).outputs.%s.value", quote(DeploymentName(doc)), output)
}

// ParameterExpression reads a template parameter
func ParameterExpression(name string) string {
	return "parameters(" + quote(name) + ")"
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
