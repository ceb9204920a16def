package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	promadapter "github.com/DrewBurkhart/priact/adapters/prometheus"
	"github.com/DrewBurkhart/priact/core/actor"
)

// === Config ===

var (
	logLevel    = slog.LevelInfo
	N           = getEnvInt("N", 200_000)
	P           = getEnvInt("P", 8)
	inboundSize = getEnvInt("INBOUND", 1_024)
	sampleEvery = getEnvDuration("SAMPLE_EVERY", 250*time.Millisecond)
)

func getEnv(key, fallback string) string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, fmt.Sprintf("%d", fallback)))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, fallback.String()))
	if err != nil {
		return fallback
	}
	return v
}

//

type (
	increment struct{}
	getValue  struct{}
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))

	fmt.Printf("Messages:  %d\n", N)
	fmt.Printf("Producers: %d\n", P)
	fmt.Printf("Inbound:   %d\n", inboundSize)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	reg := prometheus.NewRegistry()

	value := 0
	ref := actor.TypedHandlers(
		actor.HandleMsg[increment](func(hc actor.HandlerCtx, _ increment) error {
			value++
			return nil
		}),
		actor.HandleRequestWithOpts[getValue, int](
			func(hc actor.HandlerCtx, _ getValue) (int, error) {
				return value, nil
			},
			actor.WithPriority(actor.PriorityHigh),
		),
	).Spawn(actor.Options{
		ID:          "loadtest",
		Context:     ctx,
		Logger:      log,
		InboundSize: inboundSize,
		Metrics:     promadapter.NewActorMetrics(reg),
	})

	// === START ===

	log.Info("==================================")
	log.Info("Starting ...")

	startAt := time.Now()
	floodDone := make(chan struct{})

	// High-tier reads overtake the backlog, so progress stays observable
	// while the producers keep the queue saturated.
	go func() {
		tick := time.NewTicker(sampleEvery)
		defer tick.Stop()
		for {
			select {
			case <-floodDone:
				return
			case <-tick.C:
				v, err := actor.Request[getValue, int](ctx, ref, getValue{})
				if err != nil {
					return
				}
				log.Info("progress",
					slog.String("actor", ref.ID()),
					slog.Int("applied", v),
					slog.Int("queued", ref.Len()))
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	for p := 0; p < P; p++ {
		g.Go(func() error {
			for i := 0; i < N/P; i++ {
				if err := ref.Submit(gctx, increment{}); err != nil {
					return fmt.Errorf("submit: %w", err)
				}
			}
			return nil
		})
	}
	checkErr(g.Wait())
	close(floodDone)

	checkErr(ref.Close())
	<-ref.Done()

	// The drain handled every accepted increment, and the dispatch goroutine
	// is gone, so the closure is safe to read.
	total := value

	took := time.Since(startAt)
	sent := (N / P) * P

	fmt.Printf("\n")
	fmt.Printf("Sent:     %d\n", sent)
	fmt.Printf("Applied:  %d\n", total)
	fmt.Printf("Took:     %s\n", took)
	fmt.Printf("Rate:     %.0f msg/s\n", float64(sent)/took.Seconds())

	if total != sent {
		fmt.Printf("MISMATCH: applied %d of %d\n", total, sent)
		os.Exit(1)
	}

	// Instrumentation sanity: the handled counter must match what we sent.
	mfs, err := reg.Gather()
	checkErr(err)
	for _, mf := range mfs {
		if mf.GetName() != "priact_actor_messages_total" {
			continue
		}
		var handled float64
		for _, m := range mf.GetMetric() {
			handled += m.GetCounter().GetValue()
		}
		fmt.Printf("Metered:  %.0f handled envelopes\n", handled)
	}
}

func checkErr(err error) {
	if err != nil {
		panic(err)
	}
}
