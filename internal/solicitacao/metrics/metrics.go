package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments the request workflow engine. A nil *Metrics records nothing.
type Metrics struct {
	// Committed status transitions by origin, target and history reason
	Transitions *prometheus.CounterVec

	// Transition attempts refused by a gate or the allow-list, by error code
	Refusals *prometheus.CounterVec

	// Individual approver decisions by decision and resulting aggregate
	Decisions *prometheus.CounterVec

	// Optimistic-concurrency conflicts by entity
	Conflicts *prometheus.CounterVec

	// Renewal evaluations by outcome: created, exhausted, skipped
	Renewals *prometheus.CounterVec

	// Pendency lifecycle events by action
	Pendencies *prometheus.CounterVec

	// Duration of a full gated transition including persistence
	TransitionLatency prometheus.Histogram
}

// New registers every engine metric on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "beneficios_solicitacao_transitions_total",
			Help: "Total committed request status transitions",
		}, []string{"from", "to", "reason"}),

		Refusals: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "beneficios_solicitacao_transition_refusals_total",
			Help: "Total refused request transitions by error code",
		}, []string{"code"}),

		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "beneficios_aprovacao_decisions_total",
			Help: "Total approver decisions by decision and aggregate status",
		}, []string{"decision", "aggregate"}),

		Conflicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "beneficios_concurrent_modifications_total",
			Help: "Total optimistic concurrency conflicts by entity",
		}, []string{"entity"}),

		Renewals: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "beneficios_renewals_total",
			Help: "Total renewal evaluations by outcome",
		}, []string{"outcome"}),

		Pendencies: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "beneficios_pendencias_total",
			Help: "Total pendency lifecycle events by action",
		}, []string{"action"}),

		TransitionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "beneficios_solicitacao_transition_duration_seconds",
			Help:    "Duration of gated request transitions",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

func (m *Metrics) IncrementTransition(from, to, reason string) {
	if m != nil {
		m.Transitions.WithLabelValues(from, to, reason).Inc()
	}
}

func (m *Metrics) IncrementRefusal(code string) {
	if m != nil {
		m.Refusals.WithLabelValues(code).Inc()
	}
}

func (m *Metrics) IncrementDecision(decision, aggregate string) {
	if m != nil {
		m.Decisions.WithLabelValues(decision, aggregate).Inc()
	}
}

func (m *Metrics) IncrementConflict(entity string) {
	if m != nil {
		m.Conflicts.WithLabelValues(entity).Inc()
	}
}

func (m *Metrics) IncrementRenewal(outcome string) {
	if m != nil {
		m.Renewals.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementPendency(action string) {
	if m != nil {
		m.Pendencies.WithLabelValues(action).Inc()
	}
}

// ObserveTransitionLatency records how long a gated transition took.
func (m *Metrics) ObserveTransitionLatency(d time.Duration) {
	if m != nil {
		m.TransitionLatency.Observe(d.Seconds())
	}
}
