// Package metrics defines the Prometheus instrumentation shared across the
// coordinator and peer binaries, matching this corpus's dominant choice of
// prometheus/client_golang for observability.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Peer holds the collectors a peer process registers.
type Peer struct {
	Reads          prometheus.Counter
	Bans           prometheus.Counter
	Unbans         prometheus.Counter
	Prunes         prometheus.Counter
	RoundDuration  prometheus.Histogram
	SessionWaiters prometheus.Gauge
}

// NewPeer constructs and registers a Peer's collectors against reg.
func NewPeer(reg prometheus.Registerer) *Peer {
	p := &Peer{
		Reads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bitservice_peer_reads_total",
			Help: "Total completed oblivious-map reads.",
		}),
		Bans: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bitservice_peer_bans_total",
			Help: "Total completed ban writes.",
		}),
		Unbans: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bitservice_peer_unbans_total",
			Help: "Total completed unban writes.",
		}),
		Prunes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bitservice_peer_prunes_total",
			Help: "Total completed prune rounds.",
		}),
		RoundDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bitservice_peer_round_duration_seconds",
			Help:    "Wall-clock duration of one oblivious-map round.",
			Buckets: prometheus.DefBuckets,
		}),
		SessionWaiters: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bitservice_peer_session_waiters",
			Help: "Number of session slots currently waiting for a transport.",
		}),
	}
	reg.MustRegister(p.Reads, p.Bans, p.Unbans, p.Prunes, p.RoundDuration, p.SessionWaiters)
	return p
}

// Coordinator holds the collectors a coordinator process registers.
type Coordinator struct {
	ReadsQueued    prometheus.Counter
	WritesQueued   prometheus.Counter
	InFlightReads  prometheus.Gauge
	PeerErrors     *prometheus.CounterVec
	QueueLatency   prometheus.Histogram
	PrunesTriggered prometheus.Counter
}

// NewCoordinator constructs and registers a Coordinator's collectors against
// reg.
func NewCoordinator(reg prometheus.Registerer) *Coordinator {
	c := &Coordinator{
		ReadsQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bitservice_coordinator_reads_queued_total",
			Help: "Total read requests accepted into a relying party's queue.",
		}),
		WritesQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bitservice_coordinator_writes_queued_total",
			Help: "Total write requests accepted into a relying party's queue.",
		}),
		InFlightReads: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bitservice_coordinator_in_flight_reads",
			Help: "Number of reads currently dispatched to peers.",
		}),
		PeerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bitservice_coordinator_peer_errors_total",
			Help: "Total errors returned by a peer fan-out call, by peer URL.",
		}, []string{"peer"}),
		QueueLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bitservice_coordinator_queue_latency_seconds",
			Help:    "Time a request spent queued before dispatch began.",
			Buckets: prometheus.DefBuckets,
		}),
		PrunesTriggered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bitservice_coordinator_prunes_triggered_total",
			Help: "Total prune rounds triggered by the write counter.",
		}),
	}
	reg.MustRegister(c.ReadsQueued, c.WritesQueued, c.InFlightReads, c.PeerErrors, c.QueueLatency, c.PrunesTriggered)
	return c
}
