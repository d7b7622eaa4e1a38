// Package metrics provides Prometheus instrumentation for the chirp backend:
// a gauge for live websocket connections and counters for realtime push
// outcomes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ConnectionsOnline tracks the current number of registered live connections.
	ConnectionsOnline = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chirp_ws_connections_online",
		Help: "Current number of users with a live websocket connection",
	})

	// PushTotal counts realtime push attempts, labeled by outcome:
	// "delivered", "dropped" (slow or broken client), or "offline".
	PushTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chirp_push_total",
		Help: "Total realtime push attempts by outcome",
	}, []string{"outcome"})

	// MessagesSent counts messages accepted by the message store.
	MessagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chirp_messages_sent_total",
		Help: "Total messages persisted by the message store",
	})
)

func init() {
	prometheus.MustRegister(
		ConnectionsOnline,
		PushTotal,
		MessagesSent,
	)
}
