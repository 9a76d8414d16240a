// Package metrics экспортирует метрики движка в Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tournament_engine"

type Prometheus struct {
	outcomes    *prometheus.CounterVec
	submit      prometheus.Histogram
	rewards     *prometheus.CounterVec
	sideEffects *prometheus.CounterVec
	registry    *prometheus.Registry
}

// New registers the engine collectors on registry. A nil registry gets a fresh one.
func New(registry *prometheus.Registry) *Prometheus {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := &Prometheus{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "progression_outcomes_total",
			Help:      "Progression outcomes by resulting state.",
		}, []string{"state"}),
		submit: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submit_result_duration_seconds",
			Help:      "Time spent handling a session result submission.",
			Buckets:   prometheus.DefBuckets,
		}),
		rewards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rewards_total",
			Help:      "Participation rewards by write result.",
		}, []string{"result"}),
		sideEffects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "side_effect_failures_total",
			Help:      "Failed post-commit side effects by kind.",
		}, []string{"kind"}),
		registry: registry,
	}
	registry.MustRegister(m.outcomes, m.submit, m.rewards, m.sideEffects)
	return m
}

func (m *Prometheus) ProgressionOutcome(state string) {
	m.outcomes.WithLabelValues(state).Inc()
}

func (m *Prometheus) ObserveSubmit(d time.Duration) {
	m.submit.Observe(d.Seconds())
}

func (m *Prometheus) RewardsWritten(n int) {
	m.rewards.WithLabelValues("written").Add(float64(n))
}

func (m *Prometheus) RewardsSkipped(n int) {
	m.rewards.WithLabelValues("skipped").Add(float64(n))
}

func (m *Prometheus) SideEffectFailed(kind string) {
	m.sideEffects.WithLabelValues(kind).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
