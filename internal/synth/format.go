package synth

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/armforge/armforge/compiler/errors"
	"github.com/armforge/armforge/internal/assign"
	"github.com/armforge/armforge/internal/synthctx"
)

// DocumentSummary describes one document of a run
type DocumentSummary struct {
	Name           string   `json:"name"`
	DeploymentName string   `json:"deploymentName"`
	IsMain         bool     `json:"isMain"`
	Resources      []string `json:"resources"`
	DependsOn      []string `json:"dependsOn,omitempty"`
	EstimatedSize  int64    `json:"estimatedSize"`
	// Size is the encoded size, only known once documents are generated
	Size int64 `json:"size,omitempty"`
}

// Report is the machine-readable form of a run
type Report struct {
	RunID                     string                           `json:"runId,omitempty"`
	Documents                 []DocumentSummary                `json:"documents,omitempty"`
	DeploymentOrder           []string                         `json:"deploymentOrder,omitempty"`
	CrossTemplateDependencies []assign.CrossTemplateDependency `json:"crossTemplateDependencies,omitempty"`
	Diagnostics               errors.JSONOutput                `json:"diagnostics"`
	Error                     string                           `json:"error,omitempty"`
	Code                      string                           `json:"code,omitempty"`
}

// NewReport summarizes res. runErr is reported unless it is the
// validation failure already carried by the diagnostics.
func NewReport(res *Result, runErr error) Report {
	var diags []*errors.ValidationError
	r := Report{}
	if res != nil {
		r.RunID = res.RunID
		r.Documents = Summaries(res)
		if res.Assignments != nil {
			r.DeploymentOrder = res.Assignments.DeploymentOrder
			r.CrossTemplateDependencies = res.Assignments.CrossTemplateDependencies
		}
		if res.Validation != nil {
			diags = append(diags, res.Validation.Errors...)
			diags = append(diags, res.Validation.Warnings...)
		}
	}
	r.Diagnostics = errors.NewJSONOutput(diags)

	var layerErr *errors.LayerError
	if runErr != nil && !stderrors.As(runErr, &layerErr) {
		r.Error = runErr.Error()
		r.Code = errors.Code(runErr)
		r.Diagnostics.Status = "error"
	}
	return r
}

// Summaries lists the documents of res in creation order
func Summaries(res *Result) []DocumentSummary {
	if res == nil || res.Assignments == nil {
		return nil
	}
	out := make([]DocumentSummary, 0, len(res.Assignments.Order))
	for _, name := range res.Assignments.Order {
		info := res.Assignments.Templates[name]
		s := DocumentSummary{
			Name:           name,
			DeploymentName: synthctx.DeploymentName(name),
			IsMain:         info.IsMain,
			Resources:      info.Resources,
			DependsOn:      info.DependsOn,
			EstimatedSize:  info.EstimatedSize,
		}
		if t, ok := res.Documents[name]; ok {
			if size, err := t.Size(); err == nil {
				s.Size = size
			}
		}
		out = append(out, s)
	}
	return out
}

// FormatResultJSON renders the run report as indented JSON
func FormatResultJSON(res *Result, runErr error) ([]byte, error) {
	return json.MarshalIndent(NewReport(res, runErr), "", "  ")
}

// FormatTerminal renders a run for humans
func FormatTerminal(res *Result, runErr error, noColor bool) string {
	var sb strings.Builder

	bold := color.New(color.Bold, color.FgCyan)
	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)
	gray := color.New(color.FgHiBlack)
	if noColor {
		for _, c := range []*color.Color{bold, green, red, gray} {
			c.DisableColor()
		}
	}

	var errs, warnings []*errors.ValidationError
	if res != nil && res.Validation != nil {
		errs, warnings = res.Validation.Errors, res.Validation.Warnings
	}

	if res != nil && res.Documents != nil {
		sb.WriteString(green.Sprintf("✓ Synthesized %d document(s)\n", len(res.Documents)))
		for _, s := range Summaries(res) {
			marker := " "
			if s.IsMain {
				marker = "*"
			}
			sb.WriteString(fmt.Sprintf("  %s %s %s %d resource(s), %s\n",
				marker, bold.Sprint(s.Name), gray.Sprintf("(%s)", s.DeploymentName),
				len(s.Resources), humanize.IBytes(uint64(s.Size))))
		}
	}

	var layerErr *errors.LayerError
	switch {
	case runErr == nil:
	case stderrors.As(runErr, &layerErr):
		sb.WriteString(red.Sprintf("✗ Validation failed at the %s layer\n\n", layerErr.Layer))
	default:
		sb.WriteString(red.Sprintf("✗ %v\n", runErr))
	}

	for _, d := range append(append([]*errors.ValidationError(nil), errs...), warnings...) {
		sb.WriteString("\n")
		sb.WriteString(d.FormatForTerminal())
	}
	if len(errs)+len(warnings) > 0 {
		sb.WriteString(errors.FormatSummary(len(errs), len(warnings)))
	}

	out := sb.String()
	if noColor {
		out = errors.StripColors(out)
	}
	return out
}
