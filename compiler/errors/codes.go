package errors

// Diagnostic code constants organized by synthesis stage
// E001-E099: Metadata errors
// E100-E199: Reference integrity errors
// E200-E299: Assignment errors
// E300-E399: Construct validation
// E400-E499: Structure validation
// E500-E599: Deployment-order validation
// E600-E699: Cross-document integrity
// E700-E799: Schema compliance

const (
	// Metadata errors (E001-E099)
	ErrMetadataFallback    = "E001"
	ErrMetadataUnsupported = "E002"
	ErrMetadataInvalid     = "E003"

	// Reference integrity errors (E100-E199)
	ErrDanglingDependency = "E101"
	ErrDanglingColocation = "E102"
	ErrDuplicateResource  = "E103"
	ErrUnassignedResource = "E104"
	ErrSelfDependency     = "E105"

	// Assignment errors (E200-E299)
	ErrUnitTooLarge         = "E201"
	ErrDocumentCycle        = "E202"
	ErrResourceCycle        = "E203"
	ErrCustomIncomplete     = "E204"
	ErrCustomUnknownID      = "E205"
	ErrCustomColocation     = "E206"
	ErrDocumentTooLarge     = "E207"
	ErrUnknownStrategy      = "E208"
	ErrMainDocument         = "E209"
	ErrCustomGroupingFailed = "E210"
	ErrDeploymentCollision  = "E211"

	// Construct validation (E300-E399)
	ErrMissingIdentity    = "E301"
	ErrInvalidType        = "E302"
	ErrInvalidAPIVersion  = "E303"
	ErrInvalidName        = "E304"
	ErrRequiredProperty   = "E305"
	ErrOutOfRange         = "E306"
	ErrMutuallyExclusive  = "E307"
	ErrInvalidPlaceholder = "E308"
	ErrConstructFailed    = "E309"

	// Structure validation (E400-E499)
	ErrMissingTemplateSection = "E401"
	ErrMissingResourceKey     = "E402"
	ErrMissingWrapper         = "E403"
	ErrLiteralResourceID      = "E404"
	ErrMalformedExpression    = "E405"
	ErrLiteralDependsOn       = "E406"
	ErrInvalidResourceShape   = "E407"

	// Deployment-order validation (E500-E599)
	ErrReferenceBeforeDeploy  = "E501"
	ErrCrossDocumentOrdering  = "E502"
	ErrDependsOnOutsideDoc    = "E503"
	ErrUnknownDeploymentUnit  = "E504"
	ErrDeploymentOrderUnknown = "E505"

	// Cross-document integrity (E600-E699)
	ErrOrphanOutput            = "E601"
	ErrUnregisteredOutput      = "E602"
	ErrUnreferencedDependency  = "E603"
	ErrMissingDependencyOutput = "E604"

	// Schema compliance (E700-E799)
	ErrSchemaUnavailable = "W701"
	ErrSchemaViolation   = "E702"
	ErrSchemaLoad        = "E703"

	// Parameter warnings
	ErrUndeclaredParameter = "W801"
)

// ErrorMessages maps codes to their default messages
var ErrorMessages = map[string]string{
	ErrMetadataFallback:    "Resource does not describe its metadata; using conservative fallback",
	ErrMetadataUnsupported: "Item in the resource tree is not a resource",
	ErrMetadataInvalid:     "Resource metadata is invalid",

	ErrDanglingDependency: "Dependency references an unknown resource",
	ErrDanglingColocation: "Co-location constraint references an unknown resource",
	ErrDuplicateResource:  "Resource id declared more than once",
	ErrUnassignedResource: "Reference to a resource that has no document assignment",
	ErrSelfDependency:     "Resource depends on itself",

	ErrUnitTooLarge:         "Partition unit exceeds the maximum template size",
	ErrDocumentCycle:        "Document dependency graph contains a cycle",
	ErrResourceCycle:        "Resource dependency graph contains a cycle",
	ErrCustomIncomplete:     "Custom grouping did not assign every resource",
	ErrCustomUnknownID:      "Custom grouping assigned an unknown resource",
	ErrCustomColocation:     "Custom grouping split a co-location constrained set",
	ErrDocumentTooLarge:     "Document exceeds the maximum template size",
	ErrUnknownStrategy:      "Unknown grouping strategy",
	ErrMainDocument:         "Assignment must produce exactly one main document",
	ErrCustomGroupingFailed: "Custom grouping function failed",
	ErrDeploymentCollision:  "Document names map to the same deployment name",

	ErrMissingIdentity:    "Resource is missing id, type or name",
	ErrInvalidType:        "Resource type must be of the form Namespace/type",
	ErrInvalidAPIVersion:  "apiVersion must be a date of the form YYYY-MM-DD with optional suffix",
	ErrInvalidName:        "Resource name is invalid",
	ErrRequiredProperty:   "Required property is missing",
	ErrOutOfRange:         "Property value is out of range",
	ErrMutuallyExclusive:  "Mutually exclusive properties are both set",
	ErrInvalidPlaceholder: "Placeholder is malformed",
	ErrConstructFailed:    "Resource configuration is invalid",

	ErrMissingTemplateSection: "Template is missing a required section",
	ErrMissingResourceKey:     "Resource is missing a required key",
	ErrMissingWrapper:         "Property must be nested inside its wrapper envelope",
	ErrLiteralResourceID:      "Literal resource id used instead of the resourceId() addressing function",
	ErrMalformedExpression:    "Template expression is malformed",
	ErrLiteralDependsOn:       "dependsOn entry must be a resourceId() expression",
	ErrInvalidResourceShape:   "Resource body has an invalid shape",

	ErrReferenceBeforeDeploy:  "Resource reads another resource that is not yet deployed",
	ErrCrossDocumentOrdering:  "Document reads outputs of a document it does not depend on",
	ErrDependsOnOutsideDoc:    "dependsOn names a resource outside the document",
	ErrUnknownDeploymentUnit:  "Reference names an unknown deployment unit",
	ErrDeploymentOrderUnknown: "Deployment order could not be computed",

	ErrOrphanOutput:            "Output is registered but never referenced",
	ErrUnregisteredOutput:      "Reference to an output the target document does not declare",
	ErrUnreferencedDependency:  "Cross-document dependency has no reference in the source document",
	ErrMissingDependencyOutput: "Cross-document dependency has no output on the target document",

	ErrSchemaUnavailable: "No schema available for resource type",
	ErrSchemaViolation:   "Resource does not conform to its schema",
	ErrSchemaLoad:        "Schema could not be loaded",

	ErrUndeclaredParameter: "Parameter is referenced but not declared by the document",
}

// GetErrorMessage returns the default message for a code
func GetErrorMessage(code string) string {
	if msg, ok := ErrorMessages[code]; ok {
		return msg
	}
	return "Unknown error"
}

// GetErrorCategory returns the stage a code belongs to
func GetErrorCategory(code string) string {
	if len(code) < 2 {
		return "unknown"
	}
	switch code[0] {
	case 'W':
		if code[1] == '8' {
			return "parameter"
		}
		return "schema"
	case 'E':
	default:
		return "unknown"
	}
	switch code[1] {
	case '0':
		return "metadata"
	case '1':
		return "reference"
	case '2':
		return "assignment"
	case '3':
		return string(LayerConstruct)
	case '4':
		return string(LayerStructure)
	case '5':
		return string(LayerDeployment)
	case '6':
		return string(LayerCrossDocument)
	case '7':
		return string(LayerSchema)
	default:
		return "unknown"
	}
}
