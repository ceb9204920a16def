package actor

import (
	"container/heap"
	"sync"
)

// Mailbox is the priority queue between the intake and dispatch loops: one
// goroutine inserts, one extracts. Extraction blocks while the mailbox is
// open and empty; after Close it keeps yielding queued envelopes and only
// then reports exhaustion.
type Mailbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	heap   envelopeHeap
	closed bool
}

func NewMailbox() *Mailbox {
	m := &Mailbox{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Push inserts env and wakes a blocked Pop. It never blocks beyond the lock
// hold time.
func (m *Mailbox) Push(env Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	heap.Push(&m.heap, env)
	m.cond.Signal()
}

// Pop removes and returns the highest-priority envelope, oldest first within
// a tier. It blocks while the mailbox is empty and open. The second return is
// false once the mailbox is both empty and closed, after which no envelope
// can ever arrive.
func (m *Mailbox) Pop() (Envelope, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.heap) == 0 {
		if m.closed {
			return Envelope{}, false
		}
		m.cond.Wait()
	}
	return heap.Pop(&m.heap).(Envelope), true
}

// Close marks the mailbox as closed and wakes all blocked Pops. Idempotent.
// Queued envelopes stay extractable; Pop reports exhaustion only once they
// are gone.
func (m *Mailbox) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.cond.Broadcast()
}

// Len returns the number of queued envelopes.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.heap)
}

// drop discards everything still queued so abandoned payloads become
// collectable after a hard stop.
func (m *Mailbox) drop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.heap = nil
}

// envelopeHeap implements heap.Interface as a max-heap under Envelope.less.
type envelopeHeap []Envelope

func (h envelopeHeap) Len() int           { return len(h) }
func (h envelopeHeap) Less(i, j int) bool { return h[i].less(h[j]) }
func (h envelopeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *envelopeHeap) Push(x any) {
	*h = append(*h, x.(Envelope))
}

func (h *envelopeHeap) Pop() any {
	old := *h
	n := len(old)
	env := old[n-1]
	old[n-1] = Envelope{}
	*h = old[:n-1]
	return env
}
