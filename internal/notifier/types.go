package notifier

import "time"

// Config controls the async notification pipeline.
type Config struct {
	Enabled         bool
	Workers         int
	QueueSize       int
	RatePerSec      int
	RetryMax        int
	RetryBase       time.Duration
	RetryMaxDelay   time.Duration
	DedupWindow     time.Duration
	DedupMaxEntries int
	PersistDedup    bool
}

// Notification is one operator-facing message.
type Notification struct {
	Text     string
	Priority int // 0..9, higher is more urgent
}

type HistoryItem struct {
	At   time.Time
	Text string
}
