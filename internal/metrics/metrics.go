package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loadtest_sends_total",
			Help: "Total number of telemetry messages sent, by result",
		},
		[]string{"result"},
	)

	SendDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "loadtest_send_duration_seconds",
			Help:    "Telemetry send duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ActiveUsers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "loadtest_active_users",
			Help: "Number of simulated users currently running",
		},
	)

	DevicesProvisioned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "loadtest_devices_provisioned_total",
			Help: "Total number of devices created during provisioning",
		},
	)
)

func Register() {
	prometheus.MustRegister(
		SendsTotal,
		SendDuration,
		ActiveUsers,
		DevicesProvisioned,
	)
}

// Handler exposes the registered collectors over HTTP.
func Handler() http.Handler {
	return promhttp.Handler()
}
