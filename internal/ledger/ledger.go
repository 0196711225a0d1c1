// Package ledger tracks recipients already contacted.
//
// The ledger is a newline-delimited text file, read wholesale when opened and
// appended one line per successful send. An append is fsynced before it
// returns, so a "sent" confirmation is never emitted for a recipient the
// ledger could lose in a crash. The file is shared by every job of the
// engine: once a recipient is recorded, no later job contacts it again.
package ledger

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	logx "tgsend/pkg/logx"
)

type Ledger struct {
	mu   sync.Mutex
	path string
	f    *os.File
	seen map[string]struct{}
	log  logx.Logger
}

// Open loads the existing ledger (if any) and opens it for appending.
func Open(path string, log logx.Logger) (*Ledger, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	seen := map[string]struct{}{}
	if b, err := os.ReadFile(path); err == nil {
		sc := bufio.NewScanner(strings.NewReader(string(b)))
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			seen[line] = struct{}{}
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	return &Ledger{path: path, f: f, seen: seen, log: log}, nil
}

func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}

// Contains reports whether the recipient was already contacted.
func (l *Ledger) Contains(recipient string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[strings.TrimSpace(recipient)]
	return ok
}

// Append durably records a contacted recipient. The write is synced to disk
// before Append returns; only then may the caller confirm the send.
func (l *Ledger) Append(recipient string) error {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return errors.New("ledger closed")
	}
	if _, ok := l.seen[recipient]; ok {
		return nil
	}
	if _, err := l.f.WriteString(recipient + "\n"); err != nil {
		return err
	}
	if err := l.f.Sync(); err != nil {
		return err
	}
	l.seen[recipient] = struct{}{}
	return nil
}

// Len returns the number of recorded recipients.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}

// Path returns the backing file path.
func (l *Ledger) Path() string { return l.path }
