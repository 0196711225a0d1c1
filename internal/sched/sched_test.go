package sched

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	logx "tgsend/pkg/logx"
)

func TestNewRejectsBadSpec(t *testing.T) {
	_, err := New(Config{Spec: "not a cron spec"}, func(ctx context.Context) error { return nil }, logx.Nop())
	if err == nil {
		t.Fatal("expected error for bad spec")
	}
}

func TestNewRejectsBadTimezone(t *testing.T) {
	_, err := New(Config{Spec: "@hourly", Timezone: "Mars/Olympus"}, func(ctx context.Context) error { return nil }, logx.Nop())
	if err == nil {
		t.Fatal("expected error for bad timezone")
	}
}

func TestScheduleFires(t *testing.T) {
	var fired atomic.Int32
	s, err := New(Config{Spec: "@every 20ms"}, func(ctx context.Context) error {
		fired.Add(1)
		return nil
	}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Start()
	defer s.Stop(context.Background())

	deadline := time.Now().Add(5 * time.Second)
	for fired.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if fired.Load() == 0 {
		t.Fatal("schedule never fired")
	}
	if s.Next().IsZero() {
		t.Fatal("Next should be set while running")
	}
}
