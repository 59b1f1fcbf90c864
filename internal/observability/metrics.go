package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	WebhookRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bridge_webhook_requests_total", Help: "Inbound webhook requests"},
		[]string{"endpoint", "status"},
	)
	InboundMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bridge_inbound_messages_total", Help: "Parsed inbound messages"},
		[]string{"provider", "result"},
	)
	ProviderSends = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bridge_provider_send_total", Help: "Outbound send outcomes"},
		[]string{"provider", "result"},
	)
	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "bridge_provider_send_latency_seconds", Help: "Outbound send latency"},
		[]string{"provider"},
	)
	BroadcastRecipients = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bridge_broadcast_recipients",
			Help:    "Active identities reached per inbound SMS",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)
	ChatDispatch = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bridge_chat_dispatch_total", Help: "Chat messages by dispatch kind"},
		[]string{"kind"},
	)
	QueueEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bridge_queue_events_total", Help: "Queued ingress events"},
		[]string{"op", "result"},
	)
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(WebhookRequests, InboundMessages, ProviderSends, ProviderLatency,
		BroadcastRecipients, ChatDispatch, QueueEvents)
}
