package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	ordersIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_issued_total",
			Help: "Orders created, by issuing flow",
		},
		[]string{"flow"},
	)

	gatewayFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_link_failures_total",
			Help: "Payment link requests the gateway did not fulfil",
		},
	)

	callbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_callbacks_total",
			Help: "Gateway callbacks received, by verification outcome",
		},
		[]string{"outcome"},
	)

	stalePendingOrders = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stale_pending_orders",
			Help: "Pending orders not updated within the staleness window at the last scan",
		},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(ordersIssuedTotal)
	prometheus.MustRegister(gatewayFailuresTotal)
	prometheus.MustRegister(callbacksTotal)
	prometheus.MustRegister(stalePendingOrders)
}

func RecordOrderIssued(flow string) {
	ordersIssuedTotal.WithLabelValues(flow).Inc()
}

func RecordGatewayFailure() {
	gatewayFailuresTotal.Inc()
}

func RecordCallback(outcome string) {
	callbacksTotal.WithLabelValues(outcome).Inc()
}

func SetStalePendingOrders(n int) {
	stalePendingOrders.Set(float64(n))
}
