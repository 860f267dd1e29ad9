package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kairos/internal/application/port/output"
)

var _ output.MetricsPort = (*Metrics)(nil)

// Metrics records evaluator activity on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	EvaluationsTotal   *prometheus.CounterVec
	EvaluationDuration *prometheus.HistogramVec
	SessionsTotal      *prometheus.CounterVec
	SessionIterations  prometheus.Histogram
	ToolCallsTotal     *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		EvaluationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kairos_evaluations_total",
			Help: "Evaluations completed, by kind, provider and outcome",
		}, []string{"kind", "provider", "outcome"}),
		EvaluationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kairos_evaluation_duration_seconds",
			Help:    "Wall time of evaluations",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}, []string{"kind"}),
		SessionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kairos_sessions_total",
			Help: "Agent sessions finished, by outcome",
		}, []string{"outcome"}),
		SessionIterations: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "kairos_session_iterations",
			Help:    "Model round trips per agent session",
			Buckets: prometheus.LinearBuckets(5, 5, 10),
		}),
		ToolCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kairos_tool_calls_total",
			Help: "Tool invocations, by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) ObserveEvaluation(kind, provider string, success bool, elapsed time.Duration) {
	m.EvaluationsTotal.WithLabelValues(kind, provider, outcome(success)).Inc()
	m.EvaluationDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveSession(success bool, iterations int) {
	m.SessionsTotal.WithLabelValues(outcome(success)).Inc()
	m.SessionIterations.Observe(float64(iterations))
}

func (m *Metrics) ObserveToolCall(success bool) {
	m.ToolCallsTotal.WithLabelValues(outcome(success)).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
