package synth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/armforge/armforge/compiler/errors"
)

// Run outcomes
const (
	OutcomeSuccess = "success"
	OutcomeInvalid = "invalid"
	OutcomeFailed  = "failed"
)

// Metrics records synthesis runs. A nil *Metrics records nothing.
type Metrics struct {
	runs       *prometheus.CounterVec
	documents  prometheus.Counter
	crossDeps  prometheus.Counter
	findings   *prometheus.CounterVec
	duration   prometheus.Histogram
	collectors []prometheus.Collector
}

// NewMetrics creates the synthesis metrics and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "armforge_synth_runs_total",
				Help: "Total number of synthesis runs by outcome",
			},
			[]string{"outcome"},
		),
		documents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "armforge_documents_generated_total",
			Help: "Total number of template documents generated",
		}),
		crossDeps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "armforge_cross_template_dependencies_total",
			Help: "Total number of resource dependencies that crossed documents",
		}),
		findings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "armforge_validation_findings_total",
				Help: "Total number of validation findings by layer and severity",
			},
			[]string{"layer", "severity"},
		),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "armforge_synth_duration_seconds",
			Help:    "Duration of synthesis runs in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
	m.collectors = []prometheus.Collector{m.runs, m.documents, m.crossDeps, m.findings, m.duration}

	if reg != nil {
		for _, c := range m.collectors {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) observe(res *Result, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.duration.Observe(elapsed.Seconds())
	if res == nil {
		return
	}
	m.documents.Add(float64(len(res.Documents)))
	if res.Assignments != nil && outcome == OutcomeSuccess {
		m.crossDeps.Add(float64(len(res.Assignments.CrossTemplateDependencies)))
	}
	if res.Validation != nil {
		for _, d := range res.Validation.Errors {
			m.findings.WithLabelValues(string(d.Layer), errors.Error.String()).Inc()
		}
		for _, d := range res.Validation.Warnings {
			m.findings.WithLabelValues(string(d.Layer), errors.Warning.String()).Inc()
		}
	}
}
