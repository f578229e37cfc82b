// Package metrics содержит prometheus-метрики шлюза: запросы к внешним
// провайдерам и операции с подписками.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics объединяет все коллекторы шлюза.
type Metrics struct {
	providerRequests *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	subscriptionOps  *prometheus.CounterVec
}

// New создаёт метрики и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		providerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gateway",
			Name:      "provider_requests_total",
			Help:      "Requests to external providers by outcome.",
		}, []string{"provider", "method", "outcome"}),
		providerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gateway",
			Name:      "provider_request_duration_seconds",
			Help:      "Latency of requests to external providers.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "method"}),
		subscriptionOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gateway",
			Name:      "subscription_operations_total",
			Help:      "Subscription lifecycle operations by result.",
		}, []string{"operation", "result"}),
	}
	reg.MustRegister(m.providerRequests, m.providerDuration, m.subscriptionOps)
	return m
}

// ObserveRequest записывает исход одного обмена с провайдером.
// outcome — "ok" или вид сетевой ошибки.
func (m *Metrics) ObserveRequest(provider, method, outcome string, elapsed time.Duration) {
	m.providerRequests.WithLabelValues(provider, method, outcome).Inc()
	m.providerDuration.WithLabelValues(provider, method).Observe(elapsed.Seconds())
}

// ObserveSubscription записывает результат операции с подпиской.
func (m *Metrics) ObserveSubscription(operation string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.subscriptionOps.WithLabelValues(operation, result).Inc()
}
