package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestGoPropagatesFirstError(t *testing.T) {
	sup := New(context.Background())
	want := errors.New("boom")
	sup.Go("failing", func(ctx context.Context) error { return want })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := sup.Stop(ctx)
	if !errors.Is(err, want) {
		t.Fatalf("Stop err = %v, want wrapped %v", err, want)
	}
}

func TestCancelOnError(t *testing.T) {
	sup := New(context.Background(), WithCancelOnError(true))
	sup.Go("failing", func(ctx context.Context) error { return errors.New("fatal") })

	select {
	case <-sup.Context().Done():
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor context not cancelled after goroutine error")
	}
}

func TestPanicIsRecovered(t *testing.T) {
	sup := New(context.Background())
	sup.Go0("panicky", func(ctx context.Context) { panic("oops") })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := sup.Stop(ctx)
	if err == nil {
		t.Fatal("expected panic to surface as error")
	}
}

func TestGoRestartStopsOnCleanExit(t *testing.T) {
	sup := New(context.Background())
	var runs atomic.Int32
	sup.GoRestart("once", func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sup.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := runs.Load(); got != 1 {
		t.Fatalf("runs = %d, want 1", got)
	}
}

func TestGoRestartRetriesOnError(t *testing.T) {
	sup := New(context.Background())
	var runs atomic.Int32
	sup.GoRestart("flaky", func(ctx context.Context) error {
		if runs.Add(1) < 2 {
			return errors.New("transient")
		}
		return nil
	})

	deadline := time.After(5 * time.Second)
	for runs.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("goroutine not restarted, runs = %d", runs.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = sup.Stop(ctx)
}
