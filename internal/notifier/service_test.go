package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	logx "tgsend/pkg/logx"
)

type captureSender struct {
	mu    sync.Mutex
	sent  []string
	fails int // fail this many sends before succeeding
}

func (c *captureSender) Send(ctx context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fails > 0 {
		c.fails--
		return errors.New("temporarily unavailable")
	}
	c.sent = append(c.sent, text)
	return nil
}

func (c *captureSender) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestNotifyDelivers(t *testing.T) {
	snd := &captureSender{}
	s := New(Config{Enabled: true, RatePerSec: 100}, snd, logx.Nop(), nil)
	s.Start(context.Background())
	defer s.Stop(context.Background())

	if err := s.Notify(context.Background(), Notification{Text: "hello"}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	waitFor(t, func() bool { return len(snd.snapshot()) == 1 })
	if got := snd.snapshot()[0]; got != "hello" {
		t.Fatalf("sent = %q", got)
	}
}

func TestNotifyDisabled(t *testing.T) {
	s := New(Config{}, &captureSender{}, logx.Nop(), nil)
	s.Start(context.Background())
	if err := s.Notify(context.Background(), Notification{Text: "x"}); !errors.Is(err, ErrDisabled) {
		t.Fatalf("err = %v, want ErrDisabled", err)
	}
}

func TestPriorityPrefix(t *testing.T) {
	snd := &captureSender{}
	s := New(Config{Enabled: true, RatePerSec: 100}, snd, logx.Nop(), nil)
	s.Start(context.Background())
	defer s.Stop(context.Background())

	if err := s.Notify(context.Background(), Notification{Text: "disk full", Priority: 9}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return len(snd.snapshot()) == 1 })
	if got := snd.snapshot()[0]; got != "🚨 disk full" {
		t.Fatalf("sent = %q", got)
	}
}

func TestDedupWindowSuppressesRepeat(t *testing.T) {
	snd := &captureSender{}
	s := New(Config{Enabled: true, RatePerSec: 100, DedupWindow: time.Hour}, snd, logx.Nop(), nil)
	s.Start(context.Background())
	defer s.Stop(context.Background())

	for i := 0; i < 3; i++ {
		if err := s.Notify(context.Background(), Notification{Text: "same"}); err != nil {
			t.Fatal(err)
		}
	}
	waitFor(t, func() bool { return len(snd.snapshot()) >= 1 })
	time.Sleep(50 * time.Millisecond)
	if got := snd.snapshot(); len(got) != 1 {
		t.Fatalf("sent %d times, want 1", len(got))
	}
}

func TestRetryEventuallySucceeds(t *testing.T) {
	snd := &captureSender{fails: 2}
	s := New(Config{
		Enabled: true, RatePerSec: 100,
		RetryMax: 3, RetryBase: time.Millisecond, RetryMaxDelay: 5 * time.Millisecond,
	}, snd, logx.Nop(), nil)
	s.Start(context.Background())
	defer s.Stop(context.Background())

	if err := s.Notify(context.Background(), Notification{Text: "flaky"}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return len(snd.snapshot()) == 1 })
}

func TestStopDrainsQueue(t *testing.T) {
	snd := &captureSender{}
	s := New(Config{Enabled: true, RatePerSec: 100, Workers: 1}, snd, logx.Nop(), nil)
	s.Start(context.Background())

	for i := 0; i < 5; i++ {
		if err := s.Notify(context.Background(), Notification{Text: string(rune('a' + i))}); err != nil {
			t.Fatal(err)
		}
	}
	s.Stop(context.Background())
	if got := len(snd.snapshot()); got != 5 {
		t.Fatalf("sent %d, want 5 (queue must drain on stop)", got)
	}
	if err := s.Notify(context.Background(), Notification{Text: "late"}); !errors.Is(err, ErrStopped) {
		t.Fatalf("err = %v, want ErrStopped", err)
	}
}
