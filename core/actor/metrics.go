package actor

import "github.com/DrewBurkhart/priact/core/metrics"

// Stop reasons reported through Metrics.ActorStopped.
const (
	StopReasonSignal   = "stop_signal"
	StopReasonDrained  = "drained"
	StopReasonCanceled = "canceled"
	StopReasonInit     = "init_failed"
	StopReasonFault    = "handler_fault"
)

// Metrics receives instrumentation callbacks from the scheduling core.
// All methods must be safe for concurrent use; the intake and dispatch loops
// call them from different goroutines.
type Metrics interface {
	// EnvelopeQueued is called by the intake loop after each push.
	EnvelopeQueued(priority Priority)
	// QueueDepth reports the mailbox depth after each push and pop.
	QueueDepth(actorID string, depth int)
	// MessageDuration times a single handler invocation.
	MessageDuration(msgType string) metrics.Timer
	// MessageHandled counts a completed handler invocation.
	MessageHandled(msgType string, priority Priority)
	// ActorStopped counts dispatch loop terminations by one of the
	// StopReason constants.
	ActorStopped(reason string)
}

type nopMetrics struct{}

func (nopMetrics) EnvelopeQueued(Priority)              {}
func (nopMetrics) QueueDepth(string, int)               {}
func (nopMetrics) MessageDuration(string) metrics.Timer { return metrics.NopTimer() }
func (nopMetrics) MessageHandled(string, Priority)      {}
func (nopMetrics) ActorStopped(string)                  {}

// NopMetrics returns a Metrics implementation that discards everything.
func NopMetrics() Metrics { return nopMetrics{} }
