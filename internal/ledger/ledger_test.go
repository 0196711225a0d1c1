package ledger

import (
	"os"
	"path/filepath"
	"testing"

	logx "tgsend/pkg/logx"
)

func TestAppendAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.txt")

	l, err := Open(path, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for _, r := range []string{"alice", "bob"} {
		if err := l.Append(r); err != nil {
			t.Fatalf("Append(%q): %v", r, err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "alice\nbob\n" {
		t.Fatalf("ledger file = %q, want %q", b, "alice\nbob\n")
	}

	// A fresh open sees the same set.
	l2, err := Open(path, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer l2.Close()
	if !l2.Contains("alice") || !l2.Contains("bob") || l2.Contains("carol") {
		t.Fatalf("reloaded ledger wrong: len=%d", l2.Len())
	}
}

func TestAppendIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.txt")
	l, err := Open(path, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	if err := l.Append("alice"); err != nil {
		t.Fatal(err)
	}
	if err := l.Append("alice"); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "alice\n" {
		t.Fatalf("ledger file = %q, want single line", b)
	}
}

func TestLoadSkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.txt")
	if err := os.WriteFile(path, []byte("alice\n\n  \nbob\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	l, err := Open(path, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	if l.Len() != 2 {
		t.Fatalf("Len = %d, want 2", l.Len())
	}
}

func TestAppendAfterCloseFails(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "processed.txt"), logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	_ = l.Close()
	if err := l.Append("alice"); err == nil {
		t.Fatal("expected error on append after close")
	}
}
