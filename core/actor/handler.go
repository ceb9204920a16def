package actor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Stop is the reserved terminal message: a [TypedHandlerRegistry] actor stops
// when it handles one, abandoning whatever is still queued. It rides in the
// top tier so it overtakes regular traffic.
type Stop struct{}

func (Stop) Priority() Priority { return PriorityShutdown }

type (
	emptyOut struct{}

	// reply carries the outcome of one handler invocation back to a waiting
	// Request or Publish.
	reply struct {
		result any
		err    error
	}

	// request wraps a message that expects a response. The reply channel
	// travels inside the payload, so the scheduling core stays oblivious to
	// request/response semantics.
	request struct {
		msg any
		out chan reply
	}

	// MsgHandlerFunc is the signature handlers are stored under.
	MsgHandlerFunc func(hc HandlerCtx, msg any) (any, error)

	// HandlerInitFunc runs on the dispatch goroutine when the actor starts.
	HandlerInitFunc func(hc HandlerCtx) error

	// HandlerRegistration adds a handler or hook to a registry. Create these
	// with [HandleMsg], [HandleRequest], [HandleEvery], [DefaultHandler] or
	// [Init].
	HandlerRegistration func(t *TypedHandlerRegistry)
)

// Priority delegates to the wrapped message, so a request queues at the tier
// of what it carries.
func (r *request) Priority() Priority { return PriorityOf(r.msg) }

func (r *request) respond(rep reply) {
	select {
	case r.out <- rep:
	default:
	}
}

// TypedHandlerRegistry routes messages to typed handlers by message type and
// carries the per-type priority table. It implements [Receiver] and [Initer];
// spawn it directly or via its Spawn method, which also wires the priority
// table into the intake path.
type TypedHandlerRegistry struct {
	mu             sync.RWMutex
	inits          []HandlerInitFunc
	handlers       map[string]MsgHandlerFunc
	priorities     map[string]Priority
	defaultHandler MsgHandlerFunc
}

// TypedHandlers creates a handler registry from the given registrations.
//
// Example:
//
//	registry := actor.TypedHandlers(
//	    actor.HandleMsg[Increment](handleIncrement),
//	    actor.HandleRequest[GetValue, int](handleGetValue),
//	)
//	ref := registry.Spawn(actor.Options{})
func TypedHandlers(handlers ...HandlerRegistration) *TypedHandlerRegistry {
	t := &TypedHandlerRegistry{
		handlers:   make(map[string]MsgHandlerFunc),
		priorities: make(map[string]Priority),
		inits:      make([]HandlerInitFunc, 0),
	}
	for _, h := range handlers {
		h(t)
	}
	return t
}

// Spawn starts an actor driven by this registry. Unless opts.Priority is
// already set, submissions are tiered through the registry's priority table.
func (t *TypedHandlerRegistry) Spawn(opts Options) *Ref {
	if opts.Priority == nil {
		opts.Priority = t.PriorityOf
	}
	return Spawn(t, opts)
}

func (t *TypedHandlerRegistry) register(msgType string, msgHandler MsgHandlerFunc, opts HandleOpts) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if msgType != "" && msgHandler != nil {
		t.handlers[msgType] = msgHandler
	}
	if msgType != "" && opts.Priority != nil {
		t.priorities[msgType] = *opts.Priority
	}
	if opts.InitFunc != nil {
		t.inits = append(t.inits, opts.InitFunc)
	}
}

// Init resolves the fallback handler and runs all registered init hooks.
// The actor calls it on the dispatch goroutine before the first message.
func (t *TypedHandlerRegistry) Init(hc HandlerCtx) error {
	t.mu.Lock()
	if dh, ok := t.handlers["*"]; ok {
		t.defaultHandler = dh
	} else {
		t.defaultHandler = func(hc HandlerCtx, msg any) (any, error) {
			return nil, fmt.Errorf("no handler for msg: msg_type=%s go_type=%T", msgTypeOf(msg), msg)
		}
	}
	t.mu.Unlock()

	for _, i := range t.inits {
		if err := i(hc); err != nil {
			return fmt.Errorf("failed to init handler: %w", err)
		}
	}
	return nil
}

// Receive implements [Receiver]: it unwraps request envelopes, routes by
// message type, replies where a reply is expected, and translates the
// reserved [Stop] message into the stop signal.
func (t *TypedHandlerRegistry) Receive(hc HandlerCtx, msg any) bool {
	req, isReq := msg.(*request)
	if isReq {
		msg = req.msg
	}

	if _, isStop := msg.(Stop); isStop {
		if isReq {
			req.respond(reply{})
		}
		return false
	}

	out, err := t.handle(hc, msg)
	if isReq {
		req.respond(reply{result: out, err: err})
		return true
	}
	if err != nil {
		hc.Log().Error("handler failed",
			slog.String("msg_type", msgTypeOf(msg)),
			slog.Any("error", err),
		)
	}
	return true
}

// PriorityOf resolves the tier for msg: a table entry bound with
// [WithPriority] wins over the message's own [Prioritized] declaration,
// which wins over DefaultPriority.
func (t *TypedHandlerRegistry) PriorityOf(msg any) Priority {
	if req, ok := msg.(*request); ok {
		msg = req.msg
	}
	t.mu.RLock()
	p, ok := t.priorities[msgTypeOf(msg)]
	t.mu.RUnlock()
	if ok {
		return p
	}
	return PriorityOf(msg)
}

func (t *TypedHandlerRegistry) handle(hc HandlerCtx, msg any) (any, error) {
	t.mu.RLock()
	h, ok := t.handlers[msgTypeOf(msg)]
	if !ok {
		h = t.defaultHandler
	}
	t.mu.RUnlock()

	if h == nil {
		return nil, fmt.Errorf("no handler for msg: msg_type=%s go_type=%T", msgTypeOf(msg), msg)
	}
	return h(hc, msg)
}

var (
	_ Receiver = (*TypedHandlerRegistry)(nil)
	_ Initer   = (*TypedHandlerRegistry)(nil)
)

// HandleOpts configures one handler registration.
type HandleOpts struct {
	// MessageType overrides the routing key derived from the Go type.
	MessageType string
	// InitFunc runs on the dispatch goroutine when the actor starts.
	InitFunc HandlerInitFunc
	// Priority pins the queue tier for this message type. Nil falls back to
	// the message's own [Prioritized] declaration, then DefaultPriority.
	Priority *Priority
}

// HandleOption configures handler registration behavior.
type HandleOption func(*HandleOpts)

// WithMessageType overrides the message type name used for routing.
// By default the name is derived from the Go type.
func WithMessageType(msgType string) HandleOption {
	return func(o *HandleOpts) { o.MessageType = msgType }
}

// WithInitFunc adds an initialization hook run on actor startup.
func WithInitFunc(init HandlerInitFunc) HandleOption {
	return func(o *HandleOpts) { o.InitFunc = init }
}

// WithPriority pins the queue tier for every message of this type submitted
// through an actor spawned from the registry.
func WithPriority(p Priority) HandleOption {
	return func(o *HandleOpts) { o.Priority = &p }
}

// DefaultHandler registers a fallback for message types without a handler.
// The message is passed as-is.
func DefaultHandler(h func(HandlerCtx, any) (any, error)) HandlerRegistration {
	return func(t *TypedHandlerRegistry) {
		t.register("*", h, HandleOpts{})
	}
}

// Init registers an initialization hook called when the actor starts. Use it
// to prime state or start background goroutines that submit into the actor.
func Init(initFunc HandlerInitFunc) HandlerRegistration {
	return func(t *TypedHandlerRegistry) {
		t.register("", nil, HandleOpts{InitFunc: initFunc})
	}
}

// HandleMsg registers a fire-and-forget handler for messages of type IN.
// Errors it returns are logged for plain submissions and surfaced to Publish.
func HandleMsg[IN any](msgHandler func(h HandlerCtx, i IN) error) HandlerRegistration {
	return HandleMsgWithOpts(msgHandler)
}

// HandleMsgWithOpts registers a fire-and-forget handler with options.
func HandleMsgWithOpts[IN any](msgHandler func(h HandlerCtx, i IN) error, opts ...HandleOption) HandlerRegistration {
	return HandleRequestWithOpts(
		func(h HandlerCtx, i IN) (emptyOut, error) {
			return emptyOut{}, msgHandler(h, i)
		},
		opts...,
	)
}

// HandleRequest registers a request-response handler: it receives a message
// of type IN and returns a response of type OUT. Pair it with [Request] on
// the caller side.
func HandleRequest[IN any, OUT any](h func(h HandlerCtx, i IN) (OUT, error)) HandlerRegistration {
	return HandleRequestWithOpts(h)
}

// HandleRequestWithOpts registers a request-response handler with options.
func HandleRequestWithOpts[IN any, OUT any](h func(h HandlerCtx, i IN) (OUT, error), opts ...HandleOption) HandlerRegistration {
	handleOpts := HandleOpts{
		MessageType: msgTypeFor[IN](),
	}
	for _, opt := range opts {
		opt(&handleOpts)
	}
	return func(t *TypedHandlerRegistry) {
		t.register(
			handleOpts.MessageType,
			func(hc HandlerCtx, msg any) (any, error) {
				i, ok := msg.(IN)
				if !ok {
					return nil, fmt.Errorf("invalid message type for %s: %T", handleOpts.MessageType, msg)
				}
				return h(hc, i)
			},
			handleOpts,
		)
	}
}

type tickMsg struct {
	mt      string
	pending *atomic.Bool
}

func (m tickMsg) MsgType() string { return m.mt }

// HandleEvery registers a periodic task. The tick is delivered through the
// mailbox, so it serializes with all other handlers; at most one tick is
// queued per actor at a time, and ticks that would pile up behind a busy
// handler are skipped. Each actor spawned from the registration runs its own
// ticker. Ticks ride at DefaultPriority unless opts pin another tier.
func HandleEvery(interval time.Duration, msgHandler func(h HandlerCtx) error, opts ...HandleOption) HandlerRegistration {
	mt := "tick/" + gonanoid.Must()

	regOpts := append([]HandleOption{
		WithMessageType(mt),
		WithInitFunc(func(hc HandlerCtx) error {
			// The dedup flag travels in the message so that actors sharing
			// the registration cannot suppress each other's ticks.
			msg := tickMsg{mt: mt, pending: new(atomic.Bool)}
			tmr := time.NewTicker(interval)
			go func() {
				defer tmr.Stop()
				for {
					select {
					case <-hc.Done():
						return
					case <-hc.Self().Done():
						return
					case <-tmr.C:
						if !msg.pending.CompareAndSwap(false, true) {
							continue
						}
						if err := hc.Self().TrySubmit(msg); err != nil {
							msg.pending.Store(false)
							if errors.Is(err, ErrInboundFull) {
								continue
							}
							return
						}
					}
				}
			}()
			return nil
		}),
	}, opts...)

	return HandleMsgWithOpts(
		func(h HandlerCtx, tick tickMsg) error {
			tick.pending.Store(false)
			return msgHandler(h)
		},
		regOpts...,
	)
}

// Request submits msg to ref and waits for the handler's response. It fails
// with the submission error if the message never entered the actor, with
// ErrStopped if the actor stopped before replying, or with ctx's error if
// the context ends first.
//
// A handler must not Request its own actor: the reply could never arrive
// while the handler holds the dispatch loop, so self-addressed requests fail
// with ErrSelfRequest. Goroutines spawned from a handler inherit that guard
// through the handler context; they should submit a message carrying their
// own reply channel instead.
func Request[IN any, OUT any](ctx context.Context, ref *Ref, msg IN) (OUT, error) {
	var zero OUT
	if selfOf(ctx) == ref {
		return zero, ErrSelfRequest
	}

	req := &request{msg: msg, out: make(chan reply, 1)}
	if err := ref.Submit(ctx, req); err != nil {
		return zero, err
	}

	select {
	case rep := <-req.out:
		return replyAs[OUT](rep)
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-ref.Done():
		// The handler may have replied just before the actor stopped.
		select {
		case rep := <-req.out:
			return replyAs[OUT](rep)
		default:
			return zero, ErrStopped
		}
	}
}

// Publish submits msg and waits until the handler has processed it,
// returning the handler's error. Unlike [Request] it discards the response;
// unlike Submit it confirms handling rather than mere enqueueing.
func Publish[IN any](ctx context.Context, ref *Ref, msg IN) error {
	_, err := Request[IN, any](ctx, ref, msg)
	return err
}

func replyAs[OUT any](rep reply) (OUT, error) {
	var zero OUT
	if rep.err != nil {
		return zero, rep.err
	}
	if rep.result == nil {
		return zero, nil
	}
	out, ok := rep.result.(OUT)
	if !ok {
		return zero, fmt.Errorf("unexpected reply type: %T", rep.result)
	}
	return out, nil
}
