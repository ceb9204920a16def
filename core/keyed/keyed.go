// Package keyed manages a set of actors addressed by a comparable key,
// spawning each one lazily on first use. Messages for the same key are
// handled sequentially by that key's actor; different keys proceed in
// parallel.
//
// Typical use-case: one actor per aggregate ID, where commands for an
// aggregate must apply in order but separate aggregates are independent.
package keyed

import (
	"context"
	"sync"

	"github.com/DrewBurkhart/priact/core/actor"
)

// Factory spawns the actor for a key. It runs once per key, under the
// pool lock, so it should only configure and spawn.
type Factory[K comparable] func(key K) *actor.Ref

// Pool hands out one actor per key. It is safe for concurrent use.
type Pool[K comparable] struct {
	factory Factory[K]

	mu     sync.Mutex
	refs   map[K]*actor.Ref
	closed bool
}

// New creates a Pool that uses factory to spawn actors on demand.
func New[K comparable](factory Factory[K]) *Pool[K] {
	return &Pool[K]{
		factory: factory,
		refs:    make(map[K]*actor.Ref),
	}
}

// Get returns the actor for key, spawning it on first use. After Close
// it fails with ErrPoolClosed. A stopped actor is not respawned; its
// handle keeps failing submissions with actor.ErrStopped.
func (p *Pool[K]) Get(key K) (*actor.Ref, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPoolClosed
	}
	ref, ok := p.refs[key]
	if !ok {
		ref = p.factory(key)
		p.refs[key] = ref
	}
	return ref, nil
}

// Send enqueues msg on the actor for key, spawning it if needed. It
// blocks like (*actor.Ref).Submit when the actor's inbound channel is
// full.
func (p *Pool[K]) Send(ctx context.Context, key K, msg any) error {
	ref, err := p.Get(key)
	if err != nil {
		return err
	}
	return ref.Submit(ctx, msg)
}

// Len reports how many actors the pool has spawned.
func (p *Pool[K]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.refs)
}

// Close stops handing out actors and closes every actor's producer
// side, which lets each one drain its mailbox and stop. It returns
// without waiting for the drains; use Drain to block on them.
// Idempotent.
func (p *Pool[K]) Close() {
	refs := p.snapshotAndClose()

	// Closing a ref waits for its in-flight submissions to land, so
	// this runs outside the pool lock.
	for _, ref := range refs {
		_ = ref.Close()
	}
}

// Drain closes the pool and blocks until every actor has stopped or
// ctx ends, whichever comes first.
func (p *Pool[K]) Drain(ctx context.Context) error {
	p.Close()

	p.mu.Lock()
	refs := make([]*actor.Ref, 0, len(p.refs))
	for _, ref := range p.refs {
		refs = append(refs, ref)
	}
	p.mu.Unlock()

	for _, ref := range refs {
		select {
		case <-ref.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (p *Pool[K]) snapshotAndClose() []*actor.Ref {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	refs := make([]*actor.Ref, 0, len(p.refs))
	for _, ref := range p.refs {
		refs = append(refs, ref)
	}
	return refs
}

// ----- Errors -----

// ErrPoolClosed is returned when Get or Send is called on a closed pool.
var ErrPoolClosed = &PoolError{"pool is closed"}

// PoolError is a simple error implementation.
type PoolError struct {
	msg string
}

func (e *PoolError) Error() string { return e.msg }
