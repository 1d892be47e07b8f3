package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nao1215/cliqcrawl/internal/model"
)

const namespace = "cliqcrawl"

// ProgressFunc returns the current counters of a run.
type ProgressFunc func() model.Progress

// Metrics holds the Prometheus collectors of one run.
type Metrics struct {
	registry *prometheus.Registry
	attempts *prometheus.CounterVec
	records  *prometheus.CounterVec
}

// NewMetrics registers the collectors on a fresh registry. progress backs
// the gauges and may be nil.
func NewMetrics(progress ProgressFunc) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_attempts_total",
			Help:      "HTTP attempts by outcome.",
		}, []string{"outcome"}),
		records: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Stored records by status and failure kind.",
		}, []string{"status", "kind"}),
	}

	if progress != nil {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_in_flight",
			Help:      "Tasks currently being processed.",
		}, func() float64 { return float64(progress().InFlight) })
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_total",
			Help:      "Records the run will produce.",
		}, func() float64 { return float64(progress().Total) })
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stopping",
			Help:      "1 once a stop has been requested.",
		}, func() float64 {
			if progress().Stopping {
				return 1
			}
			return 0
		})
	}
	return m
}

// ObserveAttempt counts one HTTP attempt. It matches fetcher.AttemptHook.
func (m *Metrics) ObserveAttempt(_ model.CrawlTask, outcome model.FetchOutcome) {
	m.attempts.WithLabelValues(outcome.Kind.String()).Inc()
}

// ObserveRecord counts one stored record.
func (m *Metrics) ObserveRecord(rec model.Record) {
	kind := string(rec.Kind)
	if kind == "" {
		kind = "none"
	}
	m.records.WithLabelValues(string(rec.Status), kind).Inc()
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
