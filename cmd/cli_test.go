package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tgsend/internal/version"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf(`{
  "profiles_file": %q,
  "sessions_dir": %q,
  "ledger_file": %q,
  "logging": {"level": "error", "console": false, "file": {"enabled": false, "path": ""}, "ops": {"enabled": false, "min_level": "", "rate_per_sec": 0}},
  "delivery": {"delay": "0s"},
  "transport": {"driver": "dryrun"}
}`,
		filepath.Join(dir, "api_profiles.json"),
		filepath.Join(dir, "sessions"),
		filepath.Join(dir, "processed.txt"),
	)
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if strings.TrimSpace(out) != version.Version {
		t.Fatalf("out = %q", out)
	}
}

func TestProfileLifecycle(t *testing.T) {
	cfg := writeTestConfig(t)

	if _, err := runCLI(t, "--config", cfg, "profile", "add", "main", "12345", "abcdef"); err != nil {
		t.Fatalf("add: %v", err)
	}
	out, err := runCLI(t, "--config", cfg, "profile", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if strings.TrimSpace(out) != "main" {
		t.Fatalf("list out = %q", out)
	}

	if _, err := runCLI(t, "--config", cfg, "profile", "add", "main", "999", "zzz"); err == nil {
		t.Fatal("duplicate profile name must be rejected")
	}

	if _, err := runCLI(t, "--config", cfg, "profile", "rm", "main"); err != nil {
		t.Fatalf("rm: %v", err)
	}
	out, err = runCLI(t, "--config", cfg, "profile", "list")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "main") {
		t.Fatalf("profile still listed after rm: %q", out)
	}
}

func TestSessionListEmpty(t *testing.T) {
	cfg := writeTestConfig(t)
	out, err := runCLI(t, "--config", cfg, "session", "list")
	if err != nil {
		t.Fatalf("session list: %v", err)
	}
	if !strings.Contains(out, "no sessions") {
		t.Fatalf("out = %q", out)
	}
}

func TestSendRequiresFlags(t *testing.T) {
	cfg := writeTestConfig(t)
	if _, err := runCLI(t, "--config", cfg, "send"); err == nil {
		t.Fatal("send without flags must fail")
	}
}
