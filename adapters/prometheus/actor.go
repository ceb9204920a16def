package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/DrewBurkhart/priact/core/actor"
	"github.com/DrewBurkhart/priact/core/metrics"
)

// actorMetrics implements actor.Metrics using Prometheus.
type actorMetrics struct {
	envelopesQueued *prometheus.CounterVec
	queueDepth      *prometheus.GaugeVec
	messageDuration *prometheus.HistogramVec
	messagesTotal   *prometheus.CounterVec
	stopsTotal      *prometheus.CounterVec
}

// NewActorMetrics creates a Prometheus implementation of actor.Metrics and
// registers its collectors with reg.
func NewActorMetrics(reg prometheus.Registerer) actor.Metrics {
	m := &actorMetrics{
		envelopesQueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "priact_actor_envelopes_queued_total",
			Help: "Total number of envelopes accepted into the mailbox",
		}, []string{"priority"}),

		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "priact_actor_queue_depth",
			Help: "Current mailbox queue depth",
		}, []string{"actor_id"}),

		messageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "priact_actor_message_duration_seconds",
			Help:    "Message handling time in seconds",
			Buckets: defaultBuckets,
		}, []string{"message_type"}),

		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "priact_actor_messages_total",
			Help: "Total number of messages handled",
		}, []string{"message_type", "priority"}),

		stopsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "priact_actor_stops_total",
			Help: "Total number of actor terminations by reason",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		m.envelopesQueued,
		m.queueDepth,
		m.messageDuration,
		m.messagesTotal,
		m.stopsTotal,
	)

	return m
}

func (m *actorMetrics) EnvelopeQueued(priority actor.Priority) {
	m.envelopesQueued.WithLabelValues(priority.String()).Inc()
}

func (m *actorMetrics) QueueDepth(actorID string, depth int) {
	m.queueDepth.WithLabelValues(actorID).Set(float64(depth))
}

func (m *actorMetrics) MessageDuration(msgType string) metrics.Timer {
	return newTimer(m.messageDuration.WithLabelValues(msgType))
}

func (m *actorMetrics) MessageHandled(msgType string, priority actor.Priority) {
	m.messagesTotal.WithLabelValues(msgType, priority.String()).Inc()
}

func (m *actorMetrics) ActorStopped(reason string) {
	m.stopsTotal.WithLabelValues(reason).Inc()
}

var _ actor.Metrics = (*actorMetrics)(nil)
