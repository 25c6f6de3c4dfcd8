// Package metrics exposes per-bus link counters to prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all link collectors. The daemon serves it on /metrics.
var Registry = prometheus.NewRegistry()

var (
	messagesDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "link",
			Name:      "messages_delivered_total",
			Help:      "Messages decoded and handed to the broker.",
		},
		[]string{"bus"},
	)
	messagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "link",
			Name:      "messages_sent_total",
			Help:      "Messages fully written to the transport.",
		},
		[]string{"bus"},
	)
	framesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "link",
			Name:      "frames_sent_total",
			Help:      "Encoded frames written to the transport.",
		},
		[]string{"bus"},
	)
	sendFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "link",
			Name:      "send_failures_total",
			Help:      "Messages which could not be sent.",
		},
		[]string{"bus"},
	)
	rejectedPeers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "link",
			Name:      "rejected_peers_total",
			Help:      "Incoming connections closed because the connection table was full.",
		},
		[]string{"bus"},
	)
	overflows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "link",
			Name:      "parser_overflows_total",
			Help:      "Messages exceeding the reassembly buffer.",
		},
		[]string{"bus"},
	)
	truncatedDatagrams = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "link",
			Name:      "truncated_datagrams_total",
			Help:      "Datagrams larger than the receive buffer, dropped with the partial message.",
		},
		[]string{"bus"},
	)
	activeConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "link",
			Name:      "active_connections",
			Help:      "Currently accepted stream connections.",
		},
		[]string{"bus"},
	)
)

func init() {
	Registry.MustRegister(
		messagesDelivered,
		messagesSent,
		framesSent,
		sendFailures,
		rejectedPeers,
		overflows,
		truncatedDatagrams,
		activeConnections,
	)
}

// Bus is the set of collectors bound to one bus label.
type Bus struct {
	Delivered          prometheus.Counter
	MessagesSent       prometheus.Counter
	FramesSent         prometheus.Counter
	SendFailures       prometheus.Counter
	RejectedPeers      prometheus.Counter
	Overflows          prometheus.Counter
	TruncatedDatagrams prometheus.Counter
	ActiveConnections  prometheus.Gauge
}

// ForBus returns the collectors labeled with bus.
func ForBus(bus string) *Bus {
	return &Bus{
		Delivered:          messagesDelivered.WithLabelValues(bus),
		MessagesSent:       messagesSent.WithLabelValues(bus),
		FramesSent:         framesSent.WithLabelValues(bus),
		SendFailures:       sendFailures.WithLabelValues(bus),
		RejectedPeers:      rejectedPeers.WithLabelValues(bus),
		Overflows:          overflows.WithLabelValues(bus),
		TruncatedDatagrams: truncatedDatagrams.WithLabelValues(bus),
		ActiveConnections:  activeConnections.WithLabelValues(bus),
	}
}
