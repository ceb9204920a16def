package actor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestActor(t *testing.T, hs ...HandlerRegistration) *Ref {
	return TypedHandlers(hs...).Spawn(Options{Context: t.Context()})
}

func TestHandlers_default(t *testing.T) {
	a := newTestActor(
		t,
		DefaultHandler(func(hc HandlerCtx, msg any) (any, error) {
			return "Hello", nil
		}),
	)

	res, err := Request[string, string](t.Context(), a, "Hi!")
	require.NoError(t, err)
	require.Equal(t, "Hello", res)
}

func TestHandlers_simple_request(t *testing.T) {
	type (
		ping struct{ Seq int }
		pong struct{ Seq int }
	)
	a := newTestActor(
		t,
		HandleRequest[ping, pong](func(hc HandlerCtx, ping ping) (pong, error) {
			return pong{Seq: ping.Seq + 1}, nil
		}),
	)

	res, err := Request[ping, pong](t.Context(), a, ping{Seq: 1})
	require.NoError(t, err)
	require.Equal(t, 2, res.Seq)
}

func TestHandlers_publish(t *testing.T) {
	type msg struct{ V int }
	ch := make(chan msg, 1)
	a := newTestActor(
		t,
		HandleMsg[msg](func(hc HandlerCtx, msg msg) error {
			ch <- msg
			return nil
		}),
	)

	require.NoError(t, Publish(t.Context(), a, msg{V: 42}))

	select {
	case <-time.After(time.Second):
		t.Fatal("timeout")
	case got := <-ch:
		require.Equal(t, 42, got.V)
	}
}

func TestHandlers_publish_err(t *testing.T) {
	type msg struct{ V int }
	a := newTestActor(
		t,
		HandleMsg[msg](func(hc HandlerCtx, msg msg) error {
			return fmt.Errorf("uups")
		}),
	)

	require.ErrorContains(t, Publish(t.Context(), a, msg{V: 42}), "uups")
}

func TestHandlers_unknown_message(t *testing.T) {
	type known struct{}
	a := newTestActor(
		t,
		HandleMsg[known](func(hc HandlerCtx, _ known) error { return nil }),
	)

	_, err := Request[int, any](t.Context(), a, 7)
	require.ErrorContains(t, err, "no handler for msg")
}

func TestHandlers_stop_message(t *testing.T) {
	type msg struct{}
	a := newTestActor(
		t,
		HandleMsg[msg](func(hc HandlerCtx, _ msg) error { return nil }),
	)

	require.NoError(t, Publish(t.Context(), a, Stop{}))
	waitDone(t, a)
	require.ErrorIs(t, a.Submit(t.Context(), msg{}), ErrStopped)
}

func TestHandlers_stop_overtakes_pending_work(t *testing.T) {
	type (
		block struct{}
		inc   struct{}
	)
	var (
		gate    = make(chan struct{})
		started = make(chan struct{})
		handled atomic.Int32
	)

	a := newTestActor(
		t,
		HandleMsg[block](func(hc HandlerCtx, _ block) error {
			close(started)
			<-gate
			return nil
		}),
		HandleMsg[inc](func(hc HandlerCtx, _ inc) error {
			handled.Add(1)
			return nil
		}),
	)

	require.NoError(t, a.Submit(t.Context(), block{}))
	<-started

	for i := 0; i < 10; i++ {
		require.NoError(t, a.Submit(t.Context(), inc{}))
	}
	require.NoError(t, a.Submit(t.Context(), Stop{}))
	require.Eventually(t, func() bool { return a.Len() == 11 }, time.Second, time.Millisecond)

	close(gate)
	waitDone(t, a)

	require.Zero(t, handled.Load(), "stop must abandon the queued increments")
}

func TestHandlers_priority_table(t *testing.T) {
	type (
		read  struct{}
		write struct{}
	)
	reg := TypedHandlers(
		HandleRequestWithOpts[read, int](
			func(hc HandlerCtx, _ read) (int, error) { return 0, nil },
			WithPriority(PriorityHigh),
		),
		HandleMsg[write](func(hc HandlerCtx, _ write) error { return nil }),
	)

	require.Equal(t, PriorityHigh, reg.PriorityOf(read{}))
	require.Equal(t, DefaultPriority, reg.PriorityOf(write{}))
	require.Equal(t, PriorityHigh, reg.PriorityOf(urgent{}), "Prioritized declaration applies without a table entry")
	require.Equal(t, PriorityShutdown, reg.PriorityOf(Stop{}))

	// Requests queue at the tier of the message they carry.
	require.Equal(t, PriorityHigh, reg.PriorityOf(&request{msg: read{}}))
}

func TestHandlers_read_overtakes_queued_increments(t *testing.T) {
	type (
		block     struct{}
		increment struct{}
		getValue  struct{}
	)
	var (
		gate    = make(chan struct{})
		started = make(chan struct{})
		value   = 0
	)

	reg := TypedHandlers(
		HandleMsg[block](func(hc HandlerCtx, _ block) error {
			close(started)
			<-gate
			return nil
		}),
		HandleMsgWithOpts[increment](
			func(hc HandlerCtx, _ increment) error {
				value++
				return nil
			},
			WithPriority(PriorityLow),
		),
		HandleRequestWithOpts[getValue, int](
			func(hc HandlerCtx, _ getValue) (int, error) { return value, nil },
			WithPriority(PriorityHigh),
		),
	)
	a := reg.Spawn(Options{Context: t.Context()})

	require.NoError(t, a.Submit(t.Context(), block{}))
	<-started

	require.NoError(t, a.Submit(t.Context(), increment{}))
	require.NoError(t, a.Submit(t.Context(), increment{}))

	type res struct {
		v   int
		err error
	}
	ch := make(chan res, 1)
	go func() {
		v, err := Request[getValue, int](context.Background(), a, getValue{})
		ch <- res{v, err}
	}()

	require.Eventually(t, func() bool { return a.Len() == 3 }, time.Second, time.Millisecond)
	close(gate)

	got := <-ch
	require.NoError(t, got.err)
	require.Equal(t, 0, got.v, "the high-tier read must run before the queued increments")

	require.NoError(t, a.Close())
	waitDone(t, a)
	require.Equal(t, 2, value, "the increments still ran afterwards")
}

func TestHandlers_same_tier_preserves_submission_order(t *testing.T) {
	type (
		increment struct{}
		getValue  struct{}
	)
	value := 0

	a := newTestActor(
		t,
		HandleMsg[increment](func(hc HandlerCtx, _ increment) error {
			value++
			return nil
		}),
		HandleRequest[getValue, int](func(hc HandlerCtx, _ getValue) (int, error) {
			return value, nil
		}),
	)

	for i := 0; i < 100; i++ {
		require.NoError(t, a.Submit(t.Context(), increment{}))
	}

	// Same tier, same producer: the read lines up behind all 100 increments.
	res, err := Request[getValue, int](t.Context(), a, getValue{})
	require.NoError(t, err)
	require.Equal(t, 100, res)
}

func TestHandlers_concurrent_read_observes_prefix(t *testing.T) {
	type (
		increment struct{}
		getValue  struct{}
	)
	value := 0

	reg := TypedHandlers(
		HandleMsg[increment](func(hc HandlerCtx, _ increment) error {
			value++
			return nil
		}),
		HandleRequestWithOpts[getValue, int](
			func(hc HandlerCtx, _ getValue) (int, error) { return value, nil },
			WithPriority(PriorityHigh),
		),
	)
	a := reg.Spawn(Options{Context: t.Context()})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			if err := a.Submit(t.Context(), increment{}); err != nil {
				t.Errorf("submit failed: %v", err)
				return
			}
		}
	}()

	// Racing the flood: the read observes some prefix of the increments.
	res, err := Request[getValue, int](t.Context(), a, getValue{})
	require.NoError(t, err)
	require.GreaterOrEqual(t, res, 0)
	require.LessOrEqual(t, res, 100)

	wg.Wait()
	require.NoError(t, a.Close())
	waitDone(t, a)
	require.Equal(t, 100, value, "every accepted increment is applied before the drained stop")
}

func TestHandlers_every(t *testing.T) {
	var ticks atomic.Int32
	a := newTestActor(
		t,
		HandleEvery(5*time.Millisecond, func(hc HandlerCtx) error {
			ticks.Add(1)
			return nil
		}),
	)

	require.Eventually(t, func() bool { return ticks.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, a.Close())
	waitDone(t, a)
}

func TestHandlers_every_independent_across_actors(t *testing.T) {
	var (
		gate     = make(chan struct{})
		parkOnce sync.Once
		aParked  = make(chan struct{})
		bTicks   atomic.Int32
	)

	reg := TypedHandlers(
		HandleEvery(5*time.Millisecond, func(hc HandlerCtx) error {
			if hc.Self().ID() == "a" {
				parkOnce.Do(func() { close(aParked) })
				<-gate
				return nil
			}
			bTicks.Add(1)
			return nil
		}),
	)
	a := reg.Spawn(Options{ID: "a", Context: t.Context()})
	b := reg.Spawn(Options{ID: "b", Context: t.Context()})

	<-aParked
	// a's next tick queues behind the parked handler and stays pending from
	// here on; b keeps its own cadence regardless.
	time.Sleep(25 * time.Millisecond)
	before := bTicks.Load()
	require.Eventually(t, func() bool { return bTicks.Load() >= before+3 }, 2*time.Second, time.Millisecond)

	close(gate)
	require.NoError(t, a.Close())
	require.NoError(t, b.Close())
	waitDone(t, a)
	waitDone(t, b)
}

func TestHandlers_self_request_fails(t *testing.T) {
	type (
		ask    struct{}
		nested struct{}
	)
	a := newTestActor(
		t,
		HandleRequest[ask, int](func(hc HandlerCtx, _ ask) (int, error) {
			return Request[nested, int](hc, hc.Self(), nested{})
		}),
		HandleRequest[nested, int](func(hc HandlerCtx, _ nested) (int, error) {
			return 1, nil
		}),
	)

	_, err := Request[ask, int](t.Context(), a, ask{})
	require.ErrorIs(t, err, ErrSelfRequest)
}

func TestHandlers_request_between_actors(t *testing.T) {
	type (
		ping  struct{ Seq int }
		pong  struct{ Seq int }
		relay struct{ Seq int }
	)

	b := newTestActor(
		t,
		HandleRequest[ping, pong](func(hc HandlerCtx, p ping) (pong, error) {
			return pong{Seq: p.Seq + 1}, nil
		}),
	)
	a := newTestActor(
		t,
		HandleRequest[relay, pong](func(hc HandlerCtx, r relay) (pong, error) {
			return Request[ping, pong](hc, b, ping{Seq: r.Seq})
		}),
	)

	res, err := Request[relay, pong](t.Context(), a, relay{Seq: 41})
	require.NoError(t, err)
	require.Equal(t, 42, res.Seq)
}

func TestHandlers_request_abandoned_on_stop(t *testing.T) {
	type (
		block struct{}
		query struct{}
	)
	var (
		gate    = make(chan struct{})
		started = make(chan struct{})
	)

	reg := TypedHandlers(
		HandleMsg[block](func(hc HandlerCtx, _ block) error {
			close(started)
			<-gate
			return nil
		}),
		HandleRequestWithOpts[query, int](
			func(hc HandlerCtx, _ query) (int, error) { return 1, nil },
			WithPriority(PriorityLow),
		),
	)
	a := reg.Spawn(Options{Context: t.Context()})

	require.NoError(t, a.Submit(t.Context(), block{}))
	<-started

	errc := make(chan error, 1)
	go func() {
		_, err := Request[query, int](context.Background(), a, query{})
		errc <- err
	}()
	require.Eventually(t, func() bool { return a.Len() == 1 }, time.Second, time.Millisecond)

	// The stop rides above the queued request and abandons it.
	require.NoError(t, a.Submit(t.Context(), Stop{}))
	require.Eventually(t, func() bool { return a.Len() == 2 }, time.Second, time.Millisecond)
	close(gate)

	select {
	case err := <-errc:
		require.ErrorIs(t, err, ErrStopped)
	case <-time.After(time.Second):
		t.Fatal("abandoned request never unblocked")
	}
}

func TestHandlers_init_hook(t *testing.T) {
	initRan := make(chan struct{})
	type msg struct{}

	a := newTestActor(
		t,
		Init(func(hc HandlerCtx) error {
			close(initRan)
			return nil
		}),
		HandleMsg[msg](func(hc HandlerCtx, _ msg) error { return nil }),
	)

	select {
	case <-initRan:
	case <-time.After(time.Second):
		t.Fatal("init hook never ran")
	}

	require.NoError(t, Publish(t.Context(), a, msg{}))
}

func TestHandlers_init_error_stops_actor(t *testing.T) {
	type msg struct{}
	a := newTestActor(
		t,
		Init(func(hc HandlerCtx) error { return fmt.Errorf("boom") }),
		HandleMsg[msg](func(hc HandlerCtx, _ msg) error { return nil }),
	)

	waitDone(t, a)
	require.ErrorIs(t, a.Submit(t.Context(), msg{}), ErrStopped)
}
