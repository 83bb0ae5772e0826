// Package metrics exposes the planner's Prometheus collectors on a private
// registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "weekplan"

// Outcome label values.
const (
	OutcomeCommitted = "committed"
	OutcomeCancelled = "cancelled"
	OutcomeRejected  = "rejected"
	OutcomeOK        = "ok"
	OutcomeFailed    = "failed"
)

type Metrics struct {
	registry *prometheus.Registry

	gestures      *prometheus.CounterVec
	persistence   *prometheus.CounterVec
	eventsCreated prometheus.Counter
	activeBoards  prometheus.Gauge
	evictions     prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.gestures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gestures_total",
		Help:      "Finished drag and resize gestures by outcome",
	}, []string{"kind", "outcome"})
	m.persistence = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "persistence_ops_total",
		Help:      "Week load/save/delete round-trips by outcome",
	}, []string{"op", "outcome"})
	m.eventsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_created_total",
		Help:      "Events created from grid cells or pasted",
	})
	m.activeBoards = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_boards",
		Help:      "Week boards currently held in memory",
	})
	m.evictions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "board_evictions_total",
		Help:      "Idle week boards dropped from memory",
	})

	m.registry.MustRegister(
		m.gestures,
		m.persistence,
		m.eventsCreated,
		m.activeBoards,
		m.evictions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Gesture(kind, outcome string) {
	m.gestures.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) Persistence(op string, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeFailed
	}
	m.persistence.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) EventCreated() {
	m.eventsCreated.Inc()
}

func (m *Metrics) SetActiveBoards(n int) {
	m.activeBoards.Set(float64(n))
}

func (m *Metrics) BoardsEvicted(n int) {
	m.evictions.Add(float64(n))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
