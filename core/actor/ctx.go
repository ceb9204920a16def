package actor

import (
	"context"
	"log/slog"
)

// HandlerCtx is handed to every Receive invocation. It is the actor's
// context (canceled when the actor's context is), plus the actor-scoped
// logger and the submission handle for follow-up messages.
type HandlerCtx interface {
	context.Context

	// Log returns the actor-scoped logger.
	Log() *slog.Logger
	// Self returns the handle of the actor the handler runs in.
	Self() *Ref
}

type handlerCtx struct {
	context.Context
	log  *slog.Logger
	self *Ref
}

type selfKey struct{}

func (hc *handlerCtx) Log() *slog.Logger { return hc.log }
func (hc *handlerCtx) Self() *Ref        { return hc.self }

// Value resolves selfKey so Request can detect self-addressed calls even
// through contexts derived from hc.
func (hc *handlerCtx) Value(key any) any {
	if _, ok := key.(selfKey); ok {
		return hc.self
	}
	return hc.Context.Value(key)
}

// selfOf returns the actor whose handler the context originates from, or nil
// for contexts outside any handler.
func selfOf(ctx context.Context) *Ref {
	ref, _ := ctx.Value(selfKey{}).(*Ref)
	return ref
}

var _ HandlerCtx = (*handlerCtx)(nil)
