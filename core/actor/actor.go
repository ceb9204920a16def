package actor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

type (
	// Receiver is the actor behavior: the only code that touches actor state
	// and the only source of the continuation signal. Receive runs on the
	// dispatch goroutine, one invocation at a time; it may block, and nothing
	// else is handled while it does. Returning false stops the actor on the
	// spot, abandoning whatever is still queued.
	Receiver interface {
		Receive(hc HandlerCtx, msg any) bool
	}

	// ReceiverFunc adapts a plain function to Receiver.
	ReceiverFunc func(hc HandlerCtx, msg any) bool

	// Initer is implemented by receivers that need setup on the dispatch
	// goroutine before the first message. A returned error stops the actor
	// before it handles anything.
	Initer interface {
		Init(hc HandlerCtx) error
	}
)

func (f ReceiverFunc) Receive(hc HandlerCtx, msg any) bool { return f(hc, msg) }

const defaultInboundSize = 32

type Options struct {
	// ID labels logs and metrics. Defaults to a generated nanoid.
	ID string
	// InboundSize bounds the inbound channel. Submit blocks and TrySubmit
	// fails while it is full. Defaults to 32.
	InboundSize int
	// Context stops the actor when canceled, abandoning queued envelopes.
	// Defaults to context.Background().
	Context context.Context
	// Logger receives lifecycle diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
	// Metrics receives instrumentation callbacks. Defaults to NopMetrics().
	Metrics Metrics
	// Priority assigns a tier to each submitted message. Defaults to
	// PriorityOf. (*TypedHandlerRegistry).Spawn wires its priority table
	// in here.
	Priority func(msg any) Priority
}

// Ref is the submission handle returned by Spawn. It is safe to share across
// goroutines. Close releases the producer side; Done reports termination.
type Ref struct {
	id      string
	log     *slog.Logger
	metrics Metrics

	inbound  chan any
	mailbox  *Mailbox
	done     chan struct{}
	seq      atomic.Uint64
	priority func(msg any) Priority

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// Spawn starts an actor around r and returns its handle. The receiver value
// becomes actor state: after Spawn it must only be touched from inside
// Receive (and Init) invocations.
//
// Two goroutines serve the actor. The intake loop moves submissions from the
// inbound channel into the priority mailbox, stamping each with a sequence
// number. The dispatch loop extracts the maximal envelope and runs the
// receiver. The actor stops when the receiver returns false (queued
// envelopes are abandoned), when Close has been called and the mailbox is
// fully drained, or when the context is canceled.
func Spawn(r Receiver, opts Options) *Ref {
	if opts.ID == "" {
		opts.ID = gonanoid.Must()
	}
	if opts.InboundSize <= 0 {
		opts.InboundSize = defaultInboundSize
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = NopMetrics()
	}
	if opts.Priority == nil {
		opts.Priority = PriorityOf
	}

	a := &Ref{
		id:       opts.ID,
		log:      opts.Logger.With(slog.String("actor", opts.ID)),
		metrics:  opts.Metrics,
		inbound:  make(chan any, opts.InboundSize),
		mailbox:  NewMailbox(),
		done:     make(chan struct{}),
		priority: opts.Priority,
	}

	hc := &handlerCtx{
		Context: opts.Context,
		log:     a.log,
		self:    a,
	}

	// A canceled context must also wake a dispatch loop blocked in Pop.
	context.AfterFunc(opts.Context, a.mailbox.Close)

	go a.intake(opts.Context)
	go a.dispatch(hc, r)

	return a
}

// ID returns the identifier used in logs and metrics.
func (a *Ref) ID() string { return a.id }

// Done is closed when the dispatch loop has terminated, on every shutdown
// path. Submissions fail with ErrStopped from then on.
func (a *Ref) Done() <-chan struct{} { return a.done }

// Len reports how many envelopes are queued in the mailbox.
func (a *Ref) Len() int { return a.mailbox.Len() }

// Submit enqueues msg, blocking while the inbound channel is full. It fails
// with ErrClosed after Close, ErrStopped once the actor has stopped, or the
// context error if ctx ends first. A nil error means the message was
// enqueued, not that it will be handled: a stop signal or cancellation may
// still abandon it.
func (a *Ref) Submit(ctx context.Context, msg any) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrClosed
	}
	a.inflight.Add(1)
	a.mu.Unlock()
	defer a.inflight.Done()

	select {
	case <-a.done:
		return ErrStopped
	default:
	}

	select {
	case a.inbound <- msg:
		return nil
	case <-a.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySubmit is the non-blocking variant of Submit: where Submit would wait
// for capacity, it returns ErrInboundFull.
func (a *Ref) TrySubmit(msg any) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrClosed
	}
	a.inflight.Add(1)
	a.mu.Unlock()
	defer a.inflight.Done()

	select {
	case <-a.done:
		return ErrStopped
	default:
	}

	select {
	case a.inbound <- msg:
		return nil
	case <-a.done:
		return ErrStopped
	default:
		return ErrInboundFull
	}
}

// Close releases the producer side: submissions fail with ErrClosed from now
// on, and once in-flight ones have landed the inbound channel closes, which
// lets the actor drain the mailbox in priority order and then stop. Close
// never discards queued work; submit a stop message for that. Idempotent,
// returns immediately without waiting for the drain.
func (a *Ref) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	// Submits admitted before the flag flipped may still hold the channel;
	// closing it under them would panic.
	a.inflight.Wait()
	close(a.inbound)
	return nil
}

// intake moves submissions from the inbound channel into the mailbox,
// stamping sequence numbers in arrival order. It owns the closed transition:
// when the channel is exhausted it closes the mailbox, which tells dispatch
// to stop once the queue is empty. It exits without closing the mailbox when
// the actor stops underneath it.
func (a *Ref) intake(ctx context.Context) {
	for {
		select {
		case msg, ok := <-a.inbound:
			if !ok {
				a.mailbox.Close()
				return
			}
			env := Envelope{
				Seq:      a.seq.Add(1),
				Priority: a.priority(msg),
				Msg:      msg,
			}
			a.mailbox.Push(env)
			a.metrics.EnvelopeQueued(env.Priority)
			a.metrics.QueueDepth(a.id, a.mailbox.Len())
		case <-a.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// dispatch owns the receiver for the actor's whole lifetime: extract the
// maximal envelope, run the receiver, interpret the continuation signal.
// A panic inside Receive is not recovered here; the deferred teardown marks
// the actor stopped while the panic keeps unwinding to the spawner's
// runtime, so late submitters see ErrStopped rather than a hang.
func (a *Ref) dispatch(hc *handlerCtx, r Receiver) {
	// Every ordinary exit assigns its reason; only a panic leaves the
	// fault value behind for the teardown to report.
	reason := StopReasonFault
	defer func() {
		close(a.done)
		a.mailbox.Close()
		a.mailbox.drop()
		a.metrics.ActorStopped(reason)
		a.log.Debug("actor stopped", slog.String("reason", reason))
	}()

	if in, ok := r.(Initer); ok {
		if err := in.Init(hc); err != nil {
			a.log.Error("receiver init failed", slog.Any("error", err))
			reason = StopReasonInit
			return
		}
	}

	for {
		select {
		case <-hc.Done():
			reason = StopReasonCanceled
			return
		default:
		}

		env, ok := a.mailbox.Pop()
		if !ok {
			reason = StopReasonDrained
			if hc.Err() != nil {
				reason = StopReasonCanceled
			}
			return
		}
		a.metrics.QueueDepth(a.id, a.mailbox.Len())

		mt := msgTypeOf(env.Msg)
		timer := a.metrics.MessageDuration(mt)
		proceed := r.Receive(hc, env.Msg)
		timer.ObserveDuration()
		a.metrics.MessageHandled(mt, env.Priority)

		if !proceed {
			reason = StopReasonSignal
			return
		}
	}
}
