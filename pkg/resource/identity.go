package resource

import (
	"regexp"
	"strings"
)

var (
	typePattern       = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*(\.[A-Za-z][A-Za-z0-9]*)+(/[A-Za-z][A-Za-z0-9]*)+$`)
	apiVersionPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}(-[A-Za-z0-9]+)?$`)
)

// ValidType reports whether t has the form Namespace/type[/childType...]
func ValidType(t string) bool {
	return typePattern.MatchString(t)
}

// ValidAPIVersion reports whether v looks like 2023-01-01 or 2023-01-01-preview
func ValidAPIVersion(v string) bool {
	return apiVersionPattern.MatchString(v)
}

// ValidName reports whether name can address a resource of resourceType.
// A child type needs one name segment per type segment; names that are
// expressions or placeholders are checked at deploy time.
func ValidName(resourceType, name string) bool {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(name) != name {
		return false
	}
	if strings.HasPrefix(name, "[") || strings.Contains(name, "${") {
		return true
	}
	if strings.ContainsAny(name, "<>%&\\?") {
		return false
	}
	typeSegments := strings.Count(resourceType, "/")
	if typeSegments == 0 {
		return true
	}
	for _, segment := range strings.Split(name, "/") {
		if segment == "" {
			return false
		}
	}
	return strings.Count(name, "/")+1 == typeSegments
}
