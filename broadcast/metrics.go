package broadcast

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	// GossipInbound is the total number of received gossip messages,
	// including duplicates.
	GossipInbound prometheus.Counter

	// GossipOutbound is the total number of sent gossip messages, including
	// retries.
	GossipOutbound prometheus.Counter

	// DuplicatesInbound is the total number of received gossip messages
	// whose value was already known.
	DuplicatesInbound prometheus.Counter

	// AcksInbound is the total number of acknowledgements that cleared an
	// outstanding send.
	AcksInbound prometheus.Counter

	// Retries is the total number of gossip messages re-sent after an
	// acknowledgement did not arrive in time.
	Retries prometheus.Counter

	// ValuesTotal is the total number of distinct values learned.
	ValuesTotal prometheus.Counter

	// PendingEntries is the number of gossip sends awaiting
	// acknowledgement.
	PendingEntries prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		GossipInbound: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "maelnode",
				Subsystem: "broadcast",
				Name:      "gossip_inbound_total",
				Help:      "Total number of received gossip messages",
			},
		),
		GossipOutbound: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "maelnode",
				Subsystem: "broadcast",
				Name:      "gossip_outbound_total",
				Help:      "Total number of sent gossip messages",
			},
		),
		DuplicatesInbound: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "maelnode",
				Subsystem: "broadcast",
				Name:      "duplicates_inbound_total",
				Help:      "Total number of received gossip messages carrying a known value",
			},
		),
		AcksInbound: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "maelnode",
				Subsystem: "broadcast",
				Name:      "acks_inbound_total",
				Help:      "Total number of acknowledgements clearing an outstanding send",
			},
		),
		Retries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "maelnode",
				Subsystem: "broadcast",
				Name:      "retries_total",
				Help:      "Total number of re-sent gossip messages",
			},
		),
		ValuesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "maelnode",
				Subsystem: "broadcast",
				Name:      "values_total",
				Help:      "Total number of distinct values learned",
			},
		),
		PendingEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "maelnode",
				Subsystem: "broadcast",
				Name:      "pending_entries",
				Help:      "Number of gossip sends awaiting acknowledgement",
			},
		),
	}
}

func (m *Metrics) Register(reg *prometheus.Registry) {
	reg.MustRegister(
		m.GossipInbound,
		m.GossipOutbound,
		m.DuplicatesInbound,
		m.AcksInbound,
		m.Retries,
		m.ValuesTotal,
		m.PendingEntries,
	)
}
