package errors

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Severity represents the severity level of a diagnostic
type Severity int

const (
	Info Severity = iota
	Warning
	Error
	Fatal
)

// String returns the string representation of the severity
func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler for Severity
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for Severity
func (s *Severity) UnmarshalJSON(data []byte) error {
	str := strings.Trim(string(data), `"`)

	switch str {
	case "info":
		*s = Info
	case "warning":
		*s = Warning
	case "error":
		*s = Error
	case "fatal":
		*s = Fatal
	default:
		*s = Error
	}
	return nil
}

// Layer names a validation layer of the pipeline
type Layer string

const (
	LayerConstruct     Layer = "construct"
	LayerStructure     Layer = "structure"
	LayerDeployment    Layer = "deployment"
	LayerCrossDocument Layer = "cross-document"
	LayerSchema        Layer = "schema"
)

// Layers lists the validation layers in execution order
var Layers = []Layer{
	LayerConstruct,
	LayerStructure,
	LayerDeployment,
	LayerCrossDocument,
	LayerSchema,
}

// ValidationError is a single diagnostic raised by a validation layer.
//
// Path is the id chain from the document to the offending resource and
// property, e.g. ["linked-1", "storage", "properties", "accessTier"].
type ValidationError struct {
	Layer      Layer    `json:"layer"`
	Code       string   `json:"code"`
	Message    string   `json:"message"`
	Severity   Severity `json:"severity"`
	Path       []string `json:"path,omitempty"`
	Expected   string   `json:"expected,omitempty"`
	Actual     string   `json:"actual,omitempty"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// NewValidationError creates an error-severity diagnostic.
// An empty message falls back to the code's default message.
func NewValidationError(layer Layer, code, message string, path ...string) *ValidationError {
	if message == "" {
		message = GetErrorMessage(code)
	}
	return &ValidationError{
		Layer:    layer,
		Code:     code,
		Message:  message,
		Severity: Error,
		Path:     path,
	}
}

// NewValidationWarning creates a warning-severity diagnostic
func NewValidationWarning(layer Layer, code, message string, path ...string) *ValidationError {
	w := NewValidationError(layer, code, message, path...)
	w.Severity = Warning
	return w
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Code)
	b.WriteString(": ")
	b.WriteString(e.Message)
	if len(e.Path) > 0 {
		b.WriteString(" (at ")
		b.WriteString(e.PathString())
		b.WriteString(")")
	}
	return b.String()
}

// Is reports whether the target matches ErrValidation
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// PathString joins the path with '/'
func (e *ValidationError) PathString() string {
	return strings.Join(e.Path, "/")
}

// WithExpected sets the expected and actual structure descriptions
func (e *ValidationError) WithExpected(expected, actual string) *ValidationError {
	e.Expected = expected
	e.Actual = actual
	return e
}

// WithSuggestion sets the fix suggestion
func (e *ValidationError) WithSuggestion(format string, args ...any) *ValidationError {
	e.Suggestion = fmt.Sprintf(format, args...)
	return e
}

// IsError returns true if the diagnostic is at Error or Fatal severity
func (e *ValidationError) IsError() bool {
	return e.Severity == Error || e.Severity == Fatal
}

// IsWarning returns true if the diagnostic is at Warning severity
func (e *ValidationError) IsWarning() bool {
	return e.Severity == Warning
}

// FormatAsJSON formats the diagnostic as indented JSON
func (e *ValidationError) FormatAsJSON() (string, error) {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// LayerError aborts a run: it carries every error raised by the failing layer
type LayerError struct {
	Layer  Layer
	Errors []*ValidationError
}

// Error implements the error interface
func (e *LayerError) Error() string {
	switch len(e.Errors) {
	case 0:
		return fmt.Sprintf("%s validation failed", e.Layer)
	case 1:
		return fmt.Sprintf("%s validation failed: %s", e.Layer, e.Errors[0].Error())
	default:
		return fmt.Sprintf("%s validation failed with %d errors; first: %s", e.Layer, len(e.Errors), e.Errors[0].Error())
	}
}

// Is reports whether the target matches ErrValidation
func (e *LayerError) Is(target error) bool {
	return target == ErrValidation
}
