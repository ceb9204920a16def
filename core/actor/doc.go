// Package actor provides a single-consumer actor core that handles messages
// in priority order rather than arrival order.
//
// Each actor owns its state through one dispatch goroutine: submissions flow
// through a bounded inbound channel into a priority mailbox, and the dispatch
// loop extracts the most urgent envelope and runs exactly one handler at a
// time. Handlers therefore never need locks around actor state, may block
// freely, and decide after every message whether the actor keeps running.
//
// # Creating Actors
//
// The usual way to define behavior is a typed handler registry:
//
//	counter := 0
//	ref := actor.TypedHandlers(
//	    actor.HandleMsg[Increment](func(hc actor.HandlerCtx, _ Increment) error {
//	        counter++
//	        return nil
//	    }),
//	    actor.HandleRequestWithOpts[GetValue, int](func(hc actor.HandlerCtx, _ GetValue) (int, error) {
//	        return counter, nil
//	    }, actor.WithPriority(actor.PriorityHigh)),
//	).Spawn(actor.Options{})
//
// Anything implementing [Receiver] can be spawned directly when typed
// dispatch is not wanted.
//
// # Priorities
//
// Every submission is stamped with a [Priority] and a sequence number. The
// mailbox yields envelopes by descending priority; within a tier, submission
// order is preserved. A message picks its tier by implementing [Prioritized],
// or the registry pins one per message type via [WithPriority]; everything
// else rides at [DefaultPriority]. There is no aging: queued low-priority
// work waits as long as more urgent envelopes keep arriving.
//
// # Sending Messages
//
//   - [Ref.Submit] enqueues and returns; [Ref.TrySubmit] never blocks.
//   - [Publish] enqueues and waits until the message was handled.
//   - [Request] enqueues and waits for the handler's typed response.
//
// A nil submission error confirms enqueueing only: a stop signal, a canceled
// context, or a crashed handler may still abandon queued messages.
//
// # Shutdown
//
// Two shutdown paths exist, and they differ deliberately:
//
//   - Stop signal: a handler returns false (the registry does so for the
//     reserved [Stop] message). The actor stops on the spot and the rest of
//     the queue is abandoned. [Stop] rides at [PriorityShutdown], so it
//     overtakes pending regular traffic.
//   - Close: [Ref.Close] releases the producer side. Everything already
//     accepted is still handled, in priority order, and the actor stops once
//     the mailbox is empty.
//
// Canceling the spawn context behaves like a stop signal between handlers.
// In every case [Ref.Done] is closed afterwards and later submissions fail
// with [ErrStopped].
//
// # Self-Request Detection
//
// A handler that issues a [Request] to its own actor would wait forever: the
// reply can only be produced by the dispatch loop the handler is holding.
// Such requests fail with [ErrSelfRequest].
//
// # Instrumentation
//
// Spawn wires a [Metrics] implementation (see adapters/prometheus) and an
// *slog.Logger through [Options]. Metrics default to a no-op, the logger to
// slog.Default().
package actor
