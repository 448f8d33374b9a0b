package observability

import (
	"net/http"

	"support-desk/internal/ports/output"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ output.Metrics = (*Metrics)(nil)

// Metrics groups all Prometheus instruments used by the service.
// Instruments live in their own registry so several instances can coexist.
type Metrics struct {
	registry         *prometheus.Registry
	ChatRequests     *prometheus.CounterVec
	Replies          *prometheus.CounterVec
	GenerationErrors *prometheus.CounterVec
	TokensUsed       prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		ChatRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Chat messages handled by outcome.",
		}, []string{"outcome"}),
		Replies: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_total",
			Help:      "Resolved replies by strategy and rule.",
		}, []string{"strategy", "rule"}),
		GenerationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_failures_total",
			Help:      "Failed calls to the generation provider.",
		}, []string{"provider"}),
		TokensUsed: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tokens_used",
			Help:      "Tokens reported per reply.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2000},
		}),
	}
}

func (m *Metrics) ChatHandled(outcome string) {
	m.ChatRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ReplyResolved(strategy, rule string, tokensUsed int) {
	m.Replies.WithLabelValues(strategy, rule).Inc()
	m.TokensUsed.Observe(float64(tokensUsed))
}

func (m *Metrics) GenerationFailed(provider string) {
	m.GenerationErrors.WithLabelValues(provider).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
