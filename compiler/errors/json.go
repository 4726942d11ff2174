package errors

import (
	"encoding/json"
)

// JSONOutput represents the JSON structure for diagnostic output
type JSONOutput struct {
	Status      string             `json:"status"`
	FailedLayer Layer              `json:"failed_layer,omitempty"`
	Errors      []*ValidationError `json:"errors"`
	Warnings    []*ValidationError `json:"warnings"`
	Summary     Summary            `json:"summary"`
}

// Summary contains error and warning counts
type Summary struct {
	ErrorCount   int `json:"error_count"`
	WarningCount int `json:"warning_count"`
	TotalCount   int `json:"total_count"`
}

// NewJSONOutput splits diagnostics by severity and computes the status
func NewJSONOutput(diagnostics []*ValidationError) JSONOutput {
	errorList := make([]*ValidationError, 0)
	warningList := make([]*ValidationError, 0)

	var failed Layer
	for _, d := range diagnostics {
		if d.IsError() {
			if failed == "" {
				failed = d.Layer
			}
			errorList = append(errorList, d)
		} else if d.IsWarning() {
			warningList = append(warningList, d)
		}
	}

	status := "success"
	if len(errorList) > 0 {
		status = "error"
	} else if len(warningList) > 0 {
		status = "warning"
	}

	return JSONOutput{
		Status:      status,
		FailedLayer: failed,
		Errors:      errorList,
		Warnings:    warningList,
		Summary: Summary{
			ErrorCount:   len(errorList),
			WarningCount: len(warningList),
			TotalCount:   len(diagnostics),
		},
	}
}

// FormatErrorsAsJSON formats multiple diagnostics as indented JSON
func FormatErrorsAsJSON(diagnostics []*ValidationError) (string, error) {
	data, err := json.MarshalIndent(NewJSONOutput(diagnostics), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FormatErrorsAsJSONCompact formats multiple diagnostics as compact JSON
func FormatErrorsAsJSONCompact(diagnostics []*ValidationError) (string, error) {
	data, err := json.Marshal(NewJSONOutput(diagnostics))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
