// Package metrics holds Prometheus instruments used across the service.
// All collectors are registered with the global registry, so mounting
// promhttp.Handler() in main is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	MessagesCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_messages_created_total",
			Help: "Contact messages stored, by registered source (\"unknown\" for the rest).",
		}, []string{"source"})

	MessageRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_messages_rejected_total",
			Help: "Submissions refused before insert, by reason.",
		}, []string{"reason"})

	UnknownSourceTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "inbox_unknown_source_total",
			Help: "Submissions accepted with a source outside the registry.",
		})

	LoginAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_login_attempts_total",
			Help: "Admin login attempts, by result.",
		}, []string{"result"})

	GateRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_gate_rejections_total",
			Help: "Protected requests refused by the token gate, by reason.",
		}, []string{"reason"})

	StoreErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_store_errors_total",
			Help: "Persistence failures, by operation.",
		}, []string{"op"})
)

func init() {
	prometheus.MustRegister(
		MessagesCreatedTotal,
		MessageRejectedTotal,
		UnknownSourceTotal,
		LoginAttemptsTotal,
		GateRejectionsTotal,
		StoreErrorsTotal,
	)
}
