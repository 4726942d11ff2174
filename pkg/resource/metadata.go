package resource

// TemplatePreference is a soft hint about which document a resource should land in
type TemplatePreference string

const (
	PreferMain   TemplatePreference = "main"
	PreferLinked TemplatePreference = "linked"
	PreferAny    TemplatePreference = "any"
)

// DependencyKind classifies a resource-level dependency edge
type DependencyKind string

const (
	// DependsOn orders deployment without reading anything from the target
	DependsOn DependencyKind = "dependsOn"
	// Reference reads a property of the target at deploy time
	Reference DependencyKind = "reference"
)

// FallbackSizeEstimate is the conservative size used for resources that
// cannot estimate their own serialized size.
const FallbackSizeEstimate int64 = 64 * 1024

// Metadata is the lightweight description every resource hands to the
// synthesizer before any document is generated.
type Metadata struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`

	// Dependencies are ids of resources this one depends on
	Dependencies []string `json:"dependencies,omitempty"`
	// DependencyKinds optionally classifies Dependencies; missing entries are DependsOn
	DependencyKinds map[string]DependencyKind `json:"dependencyKinds,omitempty"`

	// SizeEstimate is the approximate serialized size in bytes
	SizeEstimate int64 `json:"sizeEstimate"`

	// RequiresSameTemplate lists ids that must share this resource's document
	RequiresSameTemplate []string `json:"requiresSameTemplate,omitempty"`

	TemplatePreference TemplatePreference `json:"templatePreference,omitempty"`
	AssignmentHints    map[string]string  `json:"assignmentHints,omitempty"`
}

// KindOf returns the dependency kind towards id
func (m Metadata) KindOf(id string) DependencyKind {
	if k, ok := m.DependencyKinds[id]; ok && k != "" {
		return k
	}
	return DependsOn
}

// Preference returns the template preference, defaulting to PreferAny
func (m Metadata) Preference() TemplatePreference {
	switch m.TemplatePreference {
	case PreferMain, PreferLinked:
		return m.TemplatePreference
	default:
		return PreferAny
	}
}

// Namespace returns the provider namespace of the resource type,
// e.g. "Microsoft.Storage" for "Microsoft.Storage/storageAccounts".
func Namespace(resourceType string) string {
	for i := 0; i < len(resourceType); i++ {
		if resourceType[i] == '/' {
			return resourceType[:i]
		}
	}
	return resourceType
}
