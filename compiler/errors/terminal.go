package errors

import (
	"fmt"
	"regexp"
	"strings"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// FormatForTerminal formats a diagnostic for terminal output with ANSI colors
func (e *ValidationError) FormatForTerminal() string {
	var sb strings.Builder

	severityColor := getSeverityColor(e.Severity)
	sb.WriteString(fmt.Sprintf("%s%s[%s]%s: %s\n",
		colorBold+severityColor,
		e.Severity.String(),
		e.Code,
		colorReset,
		e.Message))

	if len(e.Path) > 0 {
		sb.WriteString(fmt.Sprintf("  %s-->%s %s\n",
			colorCyan,
			colorReset,
			e.PathString()))
	}

	if e.Layer != "" {
		sb.WriteString(fmt.Sprintf("   %s|%s layer: %s\n", colorBlue, colorReset, e.Layer))
	}
	if e.Expected != "" {
		sb.WriteString(fmt.Sprintf("   %s|%s expected: %s\n", colorBlue, colorReset, e.Expected))
	}
	if e.Actual != "" {
		sb.WriteString(fmt.Sprintf("   %s|%s actual:   %s\n", colorBlue, colorReset, e.Actual))
	}

	if e.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("\n%sHelp:%s %s\n",
			colorBold+colorCyan,
			colorReset,
			e.Suggestion))
	}

	return sb.String()
}

// getSeverityColor returns the ANSI color for a severity level
func getSeverityColor(severity Severity) string {
	switch severity {
	case Info:
		return colorBlue
	case Warning:
		return colorYellow
	case Error:
		return colorRed
	case Fatal:
		return colorRed + colorBold
	default:
		return colorReset
	}
}

// FormatSummary formats a summary of errors and warnings
func FormatSummary(errorCount, warningCount int) string {
	var parts []string

	if errorCount > 0 {
		parts = append(parts, fmt.Sprintf("%s%d error(s)%s",
			colorRed,
			errorCount,
			colorReset))
	}

	if warningCount > 0 {
		parts = append(parts, fmt.Sprintf("%s%d warning(s)%s",
			colorYellow,
			warningCount,
			colorReset))
	}

	if len(parts) == 0 {
		return fmt.Sprintf("%sNo errors or warnings%s\n", colorBlue, colorReset)
	}

	if errorCount == 0 {
		return fmt.Sprintf("\n%sSynthesis finished with %s%s\n",
			colorBold,
			strings.Join(parts, " and "),
			colorReset)
	}

	return fmt.Sprintf("\n%sSynthesis failed with %s%s\n",
		colorBold,
		strings.Join(parts, " and "),
		colorReset)
}

// StripColors removes ANSI color codes from a string (useful for testing)
func StripColors(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}
