package usecase

import (
	"context"
	"testing"
	"time"
)

func TestRunCycleStepsAllTradersAndWakes(t *testing.T) {
	h1 := newHarness(t, 0.90)
	h2 := newHarness(t, 0.55)

	e := NewEngine(
		EngineConfig{Interval: time.Hour, Workers: 2},
		[]*Trader{h1.trader, h2.trader},
		h1.ldg, h1.store, h1.metrics, testLogger(t),
	)

	e.RunCycle(context.Background())

	if h1.orders.count() != 1 {
		t.Fatalf("confident trader placed %d orders, want 1", h1.orders.count())
	}
	if h2.orders.count() != 0 {
		t.Fatal("rejected trader must not place orders")
	}
	select {
	case <-e.Wake():
	default:
		t.Fatal("cycle completion must wake the learning loop")
	}
}

func TestRunCycleHonorsCanceledContext(t *testing.T) {
	h := newHarness(t, 0.90)
	e := NewEngine(DefaultEngineConfig(), []*Trader{h.trader}, h.ldg, h.store, h.metrics, testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e.RunCycle(ctx)

	if h.orders.count() != 0 {
		t.Fatal("no work after shutdown begins")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	h := newHarness(t, 0.55)
	e := NewEngine(EngineConfig{Interval: 10 * time.Millisecond, Workers: 1},
		[]*Trader{h.trader}, h.ldg, h.store, h.metrics, testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
