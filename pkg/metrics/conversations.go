package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConversationMetrics counts messaging bridge outcomes.
type ConversationMetrics struct {
	takeovers *prometheus.CounterVec
	webhooks  *prometheus.CounterVec
}

// NewConversationMetrics registers the messaging bridge counters on reg.
func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	if reg == nil {
		return &ConversationMetrics{}
	}
	takeovers := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "conversation_takeovers_total",
		Help: "Takeover and release attempts, by result.",
	}, []string{"result"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_messages_total",
		Help: "Inbound webhook deliveries, by result.",
	}, []string{"result"})
	reg.MustRegister(takeovers, webhooks)
	return &ConversationMetrics{takeovers: takeovers, webhooks: webhooks}
}

// IncTakeover records a takeover/release result such as "claimed",
// "already_claimed", "released", "already_bot" or "expired".
func (m *ConversationMetrics) IncTakeover(result string) {
	if m == nil || m.takeovers == nil {
		return
	}
	m.takeovers.WithLabelValues(normalizeLabel(result)).Inc()
}

// AddTakeovers records n takeover results at once, as the claim expiry
// sweep releases conversations in bulk.
func (m *ConversationMetrics) AddTakeovers(result string, n int64) {
	if m == nil || m.takeovers == nil || n <= 0 {
		return
	}
	m.takeovers.WithLabelValues(normalizeLabel(result)).Add(float64(n))
}

// IncWebhook records a webhook result such as "stored", "duplicate" or "rejected".
func (m *ConversationMetrics) IncWebhook(result string) {
	if m == nil || m.webhooks == nil {
		return
	}
	m.webhooks.WithLabelValues(normalizeLabel(result)).Inc()
}
