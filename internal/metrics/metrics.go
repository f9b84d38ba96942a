// Package metrics exposes the counters spec'd as testable invariants for
// the shard runtime: byte counters, resume/reconnect/zombie counts, and
// voice packet throughput. Grounded on the teacher's
// internal/engine/performance.PerformanceMetrics, rebuilt on top of
// github.com/prometheus/client_golang (declared but never wired by the
// teacher) instead of hand-rolled atomics-plus-print-dashboard.
package metrics

import (
	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles every counter/gauge the runtime publishes. One Registry
// is shared across all shards and voice connections in a cluster; callers
// distinguish shards via the "shard" label.
type Registry struct {
	BytesIn             *prometheus.CounterVec
	BytesOut            *prometheus.CounterVec
	DecompressedBytes   *prometheus.CounterVec
	Resumes             *prometheus.CounterVec
	Reconnects          *prometheus.CounterVec
	Zombies             *prometheus.CounterVec
	HeartbeatLatencyMs  *prometheus.GaugeVec
	VoiceRTPSent        *prometheus.CounterVec
	VoiceRTPReceived    *prometheus.CounterVec
	OutboundQueueLength *prometheus.GaugeVec
}

// NewRegistry builds and registers every metric against reg.
func NewRegistry(reg prometheus.Registerer) *Registry {
	m := &Registry{
		BytesIn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shard_bytes_in_total",
			Help: "Wire bytes received by a shard's TLS stream.",
		}, []string{"shard"}),
		BytesOut: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shard_bytes_out_total",
			Help: "Wire bytes sent by a shard's TLS stream.",
		}, []string{"shard"}),
		DecompressedBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shard_decompressed_bytes_total",
			Help: "Bytes yielded by the zlib-stream inflate context.",
		}, []string{"shard"}),
		Resumes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shard_resumes_total",
			Help: "Number of successful RESUMED sessions.",
		}, []string{"shard"}),
		Reconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shard_reconnects_total",
			Help: "Number of times the shard has reconnected.",
		}, []string{"shard"}),
		Zombies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shard_zombie_total",
			Help: "Number of times the shard was declared zombied and force-reset.",
		}, []string{"shard"}),
		HeartbeatLatencyMs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "shard_heartbeat_latency_ms",
			Help: "Most recent heartbeat round-trip latency.",
		}, []string{"shard"}),
		VoiceRTPSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voice_rtp_packets_sent_total",
			Help: "RTP audio packets sent on a voice connection.",
		}, []string{"guild"}),
		VoiceRTPReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voice_rtp_packets_received_total",
			Help: "RTP audio packets received on a voice connection.",
		}, []string{"guild"}),
		OutboundQueueLength: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "shard_outbound_queue_length",
			Help: "Current length of a shard's outbound priority queue.",
		}, []string{"shard"}),
	}

	reg.MustRegister(
		m.BytesIn, m.BytesOut, m.DecompressedBytes,
		m.Resumes, m.Reconnects, m.Zombies,
		m.HeartbeatLatencyMs, m.VoiceRTPSent, m.VoiceRTPReceived,
		m.OutboundQueueLength,
	)
	return m
}

// HumanizeBytes renders a byte count the way the runtime's structured logs
// present bytes_in/bytes_out, e.g. "4.2 MB".
func HumanizeBytes(n uint64) string {
	return humanize.Bytes(n)
}
