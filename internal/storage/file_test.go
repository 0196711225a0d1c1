package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	logx "tgsend/pkg/logx"
)

func TestFileStoreAuditAppend(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "store")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	entries := []AuditEntry{
		{JobID: "job-1", Recipient: "alice", Action: "send", OK: 1, TookMS: 12},
		{JobID: "job-1", Recipient: "bob", Action: "send", Fail: 1, Error: "flood wait"},
		{JobID: "job-1", Action: "job", OK: 1, Fail: 1},
	}
	for _, e := range entries {
		if err := st.AppendAudit(ctx, e); err != nil {
			t.Fatalf("AppendAudit: %v", err)
		}
	}

	f, err := os.Open(filepath.Join(dir, "store.audit.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	var got []AuditEntry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e AuditEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("audit line not JSON: %v", err)
		}
		got = append(got, e)
	}
	if len(got) != 3 {
		t.Fatalf("audit lines = %d, want 3", len(got))
	}
	if got[1].Recipient != "bob" || got[1].Error != "flood wait" {
		t.Fatalf("audit[1] = %+v", got[1])
	}
	if got[0].At.IsZero() {
		t.Fatal("At not defaulted")
	}
}

func TestFileStoreDedupRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store")
	ctx := context.Background()

	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	until := time.Now().Add(time.Hour)
	if err := st.PutDedup(ctx, "job-finished", until); err != nil {
		t.Fatalf("PutDedup: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}

	// Journal replays on reopen.
	st2, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer st2.Close()
	got, ok, err := st2.GetDedup(ctx, "job-finished")
	if err != nil || !ok {
		t.Fatalf("GetDedup = %v %v", ok, err)
	}
	if got.UnixMilli() != until.UnixMilli() {
		t.Fatalf("until = %v, want %v", got, until)
	}
}

func TestFileStoreExpiredDedupPruned(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store")
	ctx := context.Background()

	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if err := st.PutDedup(ctx, "stale", time.Now().Add(-time.Minute)); err != nil {
		t.Fatal(err)
	}
	_ = st.Close()

	st2, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer st2.Close()
	if _, ok, _ := st2.GetDedup(ctx, "stale"); ok {
		t.Fatal("expired dedup entry survived reopen")
	}
}

func TestOpenDisabled(t *testing.T) {
	st, err := Open(Config{}, logx.Nop())
	if err != nil || st != nil {
		t.Fatalf("Open disabled = %v, %v", st, err)
	}
}
