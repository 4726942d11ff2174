package errors

import (
	"fmt"
	"strings"
)

// Suggest generates a fix suggestion for a diagnostic based on its code.
// It returns "" when no generic advice applies.
func Suggest(d *ValidationError) string {
	switch d.Code {
	case ErrMissingWrapper:
		return suggestWrapper(d)
	case ErrLiteralResourceID:
		return "Replace the literal id with [resourceId('<type>', '<name>')] or a ${ref:<id>} placeholder"
	case ErrLiteralDependsOn:
		return "List dependencies by resource id in the declaration; the generator emits resourceId() entries"
	case ErrMalformedExpression:
		return "Template expressions must start with '[' and end with ']' with balanced parentheses"
	case ErrMissingTemplateSection:
		return fmt.Sprintf("Add the '%s' section to the template", lastSegment(d.Path))
	case ErrMissingResourceKey:
		return fmt.Sprintf("Set '%s' on the resource", lastSegment(d.Path))
	case ErrReferenceBeforeDeploy:
		return "Add the referenced resource to dependencies so it deploys first"
	case ErrCrossDocumentOrdering:
		return "Declare the resource dependency so the assigner records a document dependency"
	case ErrDependsOnOutsideDoc:
		return "Cross-document dependencies are carried in template metadata, not dependsOn"
	case ErrOrphanOutput:
		return "Remove the output or reference it from the dependent document"
	case ErrUnregisteredOutput:
		return "Resolve references through the synthesis context so outputs are registered on the target document"
	case ErrUnreferencedDependency, ErrMissingDependencyOutput:
		return "Resolve the dependency through the synthesis context instead of hard-coding it"
	case ErrSchemaUnavailable:
		return "Add a JSON schema for this type to the schema directory to enable compliance checks"
	case ErrInvalidAPIVersion:
		return "Use an apiVersion like 2023-01-01 or 2023-01-01-preview"
	case ErrInvalidType:
		return "Use a fully qualified type such as Microsoft.Storage/storageAccounts"
	case ErrUndeclaredParameter:
		return fmt.Sprintf("Declare parameter '%s' or make sure the parent deployment passes it", lastSegment(d.Path))
	default:
		return ""
	}
}

// suggestWrapper names the envelope field the property belongs in
func suggestWrapper(d *ValidationError) string {
	if d.Expected == "" {
		return "Move the property inside its 'properties' envelope"
	}
	envelope := d.Expected
	if i := strings.LastIndex(envelope, "."); i > 0 {
		envelope = envelope[:i]
	}
	return fmt.Sprintf("Move '%s' inside '%s' (expected at %s)", lastSegment(d.Path), envelope, d.Expected)
}

func lastSegment(path []string) string {
	if len(path) == 0 {
		return ""
	}
	return path[len(path)-1]
}
