// Package errors defines the error taxonomy shared by every synthesis stage.
//
// Typed errors carry a stable code from codes.go and unwrap to one of the
// sentinels below, so callers can branch with errors.Is without depending on
// the concrete type.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the four failure families.
var (
	// ErrMetadata indicates missing or invalid resource metadata.
	ErrMetadata = errors.New("armforge: metadata error")
	// ErrAssignment indicates the resources could not be partitioned.
	ErrAssignment = errors.New("armforge: assignment error")
	// ErrReferenceIntegrity indicates a dangling or unassigned resource id.
	ErrReferenceIntegrity = errors.New("armforge: reference integrity error")
	// ErrValidation indicates a validation layer rejected the output.
	ErrValidation = errors.New("armforge: validation failed")
)

// MetadataError reports a resource that could not describe itself.
// Fallback errors are recoverable and surface as warnings.
type MetadataError struct {
	Code       string
	ResourceID string
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *MetadataError) Error() string {
	var b strings.Builder
	b.WriteString("armforge: metadata error")
	if e.ResourceID != "" {
		b.WriteString(" on resource ")
		b.WriteString(e.ResourceID)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *MetadataError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches ErrMetadata.
func (e *MetadataError) Is(target error) bool {
	return target == ErrMetadata
}

// Recoverable reports whether synthesis can continue with fallback metadata.
func (e *MetadataError) Recoverable() bool {
	return e.Code == ErrMetadataFallback
}

// AssignmentError reports a partitioning failure. No partial assignment is usable.
type AssignmentError struct {
	Code      string
	Message   string
	Resources []string // offending unit or cycle members
	Documents []string // offending documents, if any
	Size      int64
	Budget    int64
}

// Error implements the error interface.
func (e *AssignmentError) Error() string {
	var b strings.Builder
	b.WriteString("armforge: assignment error ")
	b.WriteString(e.Code)
	b.WriteString(": ")
	if e.Message != "" {
		b.WriteString(e.Message)
	} else {
		b.WriteString(GetErrorMessage(e.Code))
	}
	if len(e.Resources) > 0 {
		fmt.Fprintf(&b, " [resources: %s]", strings.Join(e.Resources, ", "))
	}
	if len(e.Documents) > 0 {
		fmt.Fprintf(&b, " [documents: %s]", strings.Join(e.Documents, " -> "))
	}
	if e.Budget > 0 {
		fmt.Fprintf(&b, " (size %d bytes, budget %d bytes)", e.Size, e.Budget)
	}
	return b.String()
}

// Is reports whether the target matches ErrAssignment.
func (e *AssignmentError) Is(target error) bool {
	return target == ErrAssignment
}

// NewAssignmentError creates an AssignmentError with the code's default message.
func NewAssignmentError(code string, resources ...string) *AssignmentError {
	return &AssignmentError{
		Code:      code,
		Message:   GetErrorMessage(code),
		Resources: resources,
	}
}

// ReferenceIntegrityError reports a dangling id. It is always a programming error.
type ReferenceIntegrityError struct {
	Code       string
	ResourceID string // resource holding the reference
	Missing    string // id that could not be resolved
	Relation   string // "dependency", "co-location", "reference"
}

// Error implements the error interface.
func (e *ReferenceIntegrityError) Error() string {
	var b strings.Builder
	b.WriteString("armforge: reference integrity error ")
	b.WriteString(e.Code)
	b.WriteString(": ")
	b.WriteString(GetErrorMessage(e.Code))
	if e.ResourceID != "" {
		fmt.Fprintf(&b, ": %s", e.ResourceID)
		if e.Relation != "" {
			fmt.Fprintf(&b, " has %s", e.Relation)
		}
	}
	if e.Missing != "" {
		fmt.Fprintf(&b, " -> %q", e.Missing)
	}
	return b.String()
}

// Is reports whether the target matches ErrReferenceIntegrity.
func (e *ReferenceIntegrityError) Is(target error) bool {
	return target == ErrReferenceIntegrity
}

// Code extracts the diagnostic code from any error in the taxonomy.
// It returns "" for foreign errors.
func Code(err error) string {
	var (
		me  *MetadataError
		ae  *AssignmentError
		re  *ReferenceIntegrityError
		ve  *ValidationError
		lay *LayerError
	)
	switch {
	case errors.As(err, &me):
		return me.Code
	case errors.As(err, &ae):
		return ae.Code
	case errors.As(err, &re):
		return re.Code
	case errors.As(err, &ve):
		return ve.Code
	case errors.As(err, &lay):
		if len(lay.Errors) > 0 {
			return lay.Errors[0].Code
		}
	}
	return ""
}
