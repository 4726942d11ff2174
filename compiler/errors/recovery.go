package errors

import (
	"fmt"
	"strings"
	"sync"
)

// MaxErrors is the maximum number of errors to collect per layer
const MaxErrors = 100

// Collector gathers the diagnostics raised by one validation layer.
// It is safe for concurrent use so per-document checks can share it.
type Collector struct {
	mu       sync.Mutex
	layer    Layer
	errors   []*ValidationError
	warnings []*ValidationError
	maxCount int
}

// NewCollector creates a Collector for the given layer
func NewCollector(layer Layer) *Collector {
	return &Collector{
		layer:    layer,
		errors:   make([]*ValidationError, 0),
		warnings: make([]*ValidationError, 0),
		maxCount: MaxErrors,
	}
}

// Add records a diagnostic, filling in its layer and a default suggestion
func (c *Collector) Add(d *ValidationError) {
	if d == nil {
		return
	}
	if d.Layer == "" {
		d.Layer = c.layer
	}
	if d.Suggestion == "" {
		d.Suggestion = Suggest(d)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if d.IsError() {
		// Past the limit only warnings are kept
		if len(c.errors) >= c.maxCount {
			return
		}
		c.errors = append(c.errors, d)
		return
	}
	c.warnings = append(c.warnings, d)
}

// AddAll records several diagnostics
func (c *Collector) AddAll(ds []*ValidationError) {
	for _, d := range ds {
		c.Add(d)
	}
}

// HasErrors returns true if any error-severity diagnostic was recorded
func (c *Collector) HasErrors() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errors) > 0
}

// Errors returns the recorded errors
func (c *Collector) Errors() []*ValidationError {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*ValidationError, len(c.errors))
	copy(out, c.errors)
	return out
}

// Warnings returns the recorded warnings
func (c *Collector) Warnings() []*ValidationError {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*ValidationError, len(c.warnings))
	copy(out, c.warnings)
	return out
}

// Truncated reports whether errors were dropped past MaxErrors
func (c *Collector) Truncated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errors) >= c.maxCount
}

// Err returns a *LayerError when errors were recorded, nil otherwise
func (c *Collector) Err() error {
	errs := c.Errors()
	if len(errs) == 0 {
		return nil
	}
	return &LayerError{Layer: c.layer, Errors: errs}
}

// FormatForTerminal formats every collected diagnostic
func (c *Collector) FormatForTerminal() string {
	errs, warns := c.Errors(), c.Warnings()

	var sb strings.Builder
	for i, d := range errs {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(d.FormatForTerminal())
	}
	for i, w := range warns {
		if len(errs) > 0 || i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(w.FormatForTerminal())
	}

	if len(errs)+len(warns) > 0 {
		sb.WriteString(FormatSummary(len(errs), len(warns)))
	}

	if c.Truncated() {
		sb.WriteString(fmt.Sprintf("\n%sNote: Error limit reached (%d). Additional errors not shown.%s\n",
			colorYellow,
			c.maxCount,
			colorReset))
	}

	return sb.String()
}
