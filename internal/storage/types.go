package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (jsonl + snapshot)
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// AuditEntry records one delivery-engine action.
// Keep it compact and schema-stable.
type AuditEntry struct {
	At        time.Time
	JobID     string
	Profile   string
	Session   string
	Recipient string
	Action    string // "send", "skip", "job"
	OK        int
	Fail      int
	Skipped   int
	Error     string
	TookMS    int64
}
