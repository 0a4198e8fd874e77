package metrics

import "github.com/prometheus/client_golang/prometheus"

// GatewayMetrics exposes counters/histograms for the messaging gateway.
type GatewayMetrics struct {
	inboundTotal   *prometheus.CounterVec
	outboundTotal  *prometheus.CounterVec
	analysisTotal  *prometheus.CounterVec
	webhookLatency *prometheus.HistogramVec
}

func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	m := &GatewayMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qanuni",
			Subsystem: "gateway",
			Name:      "inbound_webhook_total",
			Help:      "Total inbound provider webhooks",
		}, []string{"event_type", "status"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qanuni",
			Subsystem: "gateway",
			Name:      "outbound_total",
			Help:      "Total outbound provider sends",
		}, []string{"status"}),
		analysisTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qanuni",
			Subsystem: "gateway",
			Name:      "analysis_total",
			Help:      "Document analysis pipeline outcomes by stage",
		}, []string{"stage", "outcome"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "qanuni",
			Subsystem: "gateway",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of provider webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.outboundTotal, m.analysisTotal, m.webhookLatency)
	return m
}

func (m *GatewayMetrics) ObserveInbound(eventType, status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(eventType, status).Inc()
}

func (m *GatewayMetrics) ObserveOutbound(status string) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(status).Inc()
}

func (m *GatewayMetrics) ObserveAnalysis(stage, outcome string) {
	if m == nil {
		return
	}
	m.analysisTotal.WithLabelValues(stage, outcome).Inc()
}

func (m *GatewayMetrics) ObserveWebhookLatency(eventType string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(eventType).Observe(seconds)
}
