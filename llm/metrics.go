package llm

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for LLM calls.
type Metrics struct {
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	tokens    *prometheus.CounterVec
	retries   prometheus.Counter
	fallbacks prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg when it is non-nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ontogenia",
			Subsystem: "llm",
			Name:      "requests_total",
			Help:      "LLM completion requests by capability, provider and outcome.",
		}, []string{"capability", "provider", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ontogenia",
			Subsystem: "llm",
			Name:      "request_duration_seconds",
			Help:      "Wall time of LLM completion requests including retries.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
		}, []string{"capability"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ontogenia",
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Tokens consumed by kind (prompt, completion).",
		}, []string{"capability", "kind"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ontogenia",
			Subsystem: "llm",
			Name:      "retries_total",
			Help:      "Retried LLM attempts.",
		}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ontogenia",
			Subsystem: "llm",
			Name:      "fallbacks_total",
			Help:      "Endpoints abandoned for the next one in a fallback chain.",
		}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.requests, m.duration, m.tokens, m.retries, m.fallbacks} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) observe(r *CallRecord) {
	if m == nil {
		return
	}
	outcome := "success"
	if r.Error != "" {
		outcome = "error"
	}
	m.requests.WithLabelValues(r.Capability, r.Provider, outcome).Inc()
	m.duration.WithLabelValues(r.Capability).Observe(float64(r.DurationMs) / 1000)
	m.tokens.WithLabelValues(r.Capability, "prompt").Add(float64(r.Usage.PromptTokens))
	m.tokens.WithLabelValues(r.Capability, "completion").Add(float64(r.Usage.CompletionTokens))
	m.retries.Add(float64(r.Retries))

	fallbacks := len(r.FallbacksUsed)
	if r.Error != "" && fallbacks > 0 {
		fallbacks-- // the last endpoint tried was not abandoned for another
	}
	m.fallbacks.Add(float64(fallbacks))
}
