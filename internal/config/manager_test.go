package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseYAMLConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tgsend.yaml")
	data := `
profiles_file: ./profiles.json
ledger_file: ./done.txt
logging:
  level: debug
  console: true
  file: {enabled: false, path: ""}
  ops: {enabled: false, min_level: warn, rate_per_sec: 1}
delivery:
  delay: "90s"
  delay_configurable: true
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ProfilesFile != "./profiles.json" {
		t.Fatalf("profiles_file = %q", cfg.ProfilesFile)
	}
	if cfg.Delivery.Delay != "90s" || !cfg.Delivery.DelayConfigurable {
		t.Fatalf("delivery = %+v", cfg.Delivery)
	}
	// Omitted fields fall back to defaults.
	if cfg.SessionsDir != DefaultSessionsDir {
		t.Fatalf("sessions_dir = %q", cfg.SessionsDir)
	}
	if cfg.Transport.Driver != "mtproto" {
		t.Fatalf("transport.driver = %q", cfg.Transport.Driver)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tgsend.json")
	if err := os.WriteFile(path, []byte(`{"no_such_key": 1}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewManager(path).Load(); err == nil {
		t.Fatal("expected unknown-field error")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")
	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ProfilesFile != DefaultProfilesFile || cfg.LedgerFile != DefaultLedgerFile {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestWatchPublishesDelayChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tgsend.json")
	if err := os.WriteFile(path, []byte(`{"delivery": {"delay": "2s"}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatal(err)
	}
	sub := m.Subscribe(1)
	defer m.Unsubscribe(sub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Watch(ctx) }()

	// Give the watcher a moment to attach before editing.
	time.Sleep(200 * time.Millisecond)
	if err := os.WriteFile(path, []byte(`{"delivery": {"delay": "5s"}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-sub:
		if cfg.Delivery.Delay != "5s" {
			t.Fatalf("published delay = %q, want 5s", cfg.Delivery.Delay)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("config change never published")
	}
}

func TestValidateRejectsBadDelay(t *testing.T) {
	cfg := &Config{Delivery: DeliveryConfig{Delay: "soon"}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected invalid duration error")
	}
}

func TestValidateScheduleRequiresFields(t *testing.T) {
	cfg := &Config{
		Delivery: DeliveryConfig{Delay: "1s"},
		Schedule: &ScheduleConfig{Enabled: true, Spec: "@hourly"},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected schedule validation error")
	}
}
