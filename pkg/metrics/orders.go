package metrics

import "github.com/prometheus/client_golang/prometheus"

// OrderMetrics counts status workflow outcomes.
type OrderMetrics struct {
	transitions *prometheus.CounterVec
	rejections  *prometheus.CounterVec
}

// NewOrderMetrics registers the order workflow counters on reg. A nil
// registerer yields a no-op recorder.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Order status changes applied, by source and target status.",
	}, []string{"from", "to"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transition_rejections_total",
		Help: "Order status changes refused, by requested action.",
	}, []string{"action"})
	reg.MustRegister(transitions, rejections)
	return &OrderMetrics{transitions: transitions, rejections: rejections}
}

func (m *OrderMetrics) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

func (m *OrderMetrics) IncRejection(action string) {
	if m == nil || m.rejections == nil {
		return
	}
	m.rejections.WithLabelValues(normalizeLabel(action)).Inc()
}
