// Package metrics exposes the Prometheus counters and gauge of this
// core. The handshake driver updates frames decoded, handshakes
// completed, and handshakes failed (labelled by the stage that failed);
// it does not set the active-connections gauge.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Handshake holds the metrics this core emits.
type Handshake struct {
	FramesDecoded       prometheus.Counter
	HandshakesCompleted prometheus.Counter
	HandshakesFailed    *prometheus.CounterVec
	ActiveConnections   prometheus.Gauge
}

// New constructs the metric set, unregistered.
func New() *Handshake {
	return &Handshake{
		FramesDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flowmq_frames_decoded_total",
			Help: "Total number of MQTT control packets decoded.",
		}),
		HandshakesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flowmq_handshakes_completed_total",
			Help: "Total number of handshakes that reached the Established state.",
		}),
		HandshakesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowmq_handshakes_failed_total",
			Help: "Total number of handshakes that ended in Closed, by failure kind.",
		}, []string{"kind"}),
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flowmq_active_connections",
			Help: "Number of connections currently established.",
		}),
	}
}

// Register registers every metric with reg.
func (h *Handshake) Register(reg prometheus.Registerer) {
	reg.MustRegister(h.FramesDecoded, h.HandshakesCompleted, h.HandshakesFailed, h.ActiveConnections)
}
