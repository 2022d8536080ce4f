package workflow

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for pipeline runs.
type Metrics struct {
	stageDuration *prometheus.HistogramVec
	stageRuns     *prometheus.CounterVec
	questions     prometheus.Gauge
	classes       prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg when it is non-nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ontogenia",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Wall time of pipeline stages.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"stage"}),
		stageRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ontogenia",
			Subsystem: "pipeline",
			Name:      "stage_runs_total",
			Help:      "Pipeline stage executions by outcome.",
		}, []string{"stage", "outcome"}),
		questions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ontogenia",
			Subsystem: "pipeline",
			Name:      "competency_questions",
			Help:      "Competency questions produced by the last run.",
		}),
		classes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ontogenia",
			Subsystem: "pipeline",
			Name:      "ontology_classes",
			Help:      "Classes declared by the last synthesized ontology.",
		}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.stageDuration, m.stageRuns, m.questions, m.classes} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) observeStage(r StageRecord) {
	if m == nil {
		return
	}
	outcome := "success"
	if r.Error != "" {
		outcome = "error"
	}
	m.stageRuns.WithLabelValues(r.Name, outcome).Inc()
	m.stageDuration.WithLabelValues(r.Name).Observe(r.Duration.Seconds())
}

func (m *Metrics) observeRun(s *RunSummary) {
	if m == nil {
		return
	}
	m.questions.Set(float64(s.Counts.Questions))
	m.classes.Set(float64(s.Counts.Classes))
}

// WriteTextfile writes everything gathered by g in the Prometheus text
// format, for the node exporter's textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
