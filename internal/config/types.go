package config

import (
	"errors"
	"strings"
)

type Config struct {
	// ProfilesFile is the JSON document holding named API credential profiles.
	ProfilesFile string `json:"profiles_file,omitempty"`
	// SessionsDir holds one persisted session slot per session name.
	SessionsDir string `json:"sessions_dir,omitempty"`
	// LedgerFile is the append-only list of recipients already contacted.
	LedgerFile string `json:"ledger_file,omitempty"`

	Logging   LoggingConfig   `json:"logging"`
	Delivery  DeliveryConfig  `json:"delivery"`
	Transport TransportConfig `json:"transport,omitempty"`

	Storage  *StorageConfig  `json:"storage,omitempty"`
	Notifier *NotifierConfig `json:"notifier,omitempty"`
	Ops      *OpsConfig      `json:"ops,omitempty"`
	Schedule *ScheduleConfig `json:"schedule,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
	Ops     LoggingOps  `json:"ops"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingOps mirrors log lines at/above MinLevel to the ops chat (requires the
// top-level "ops" block).
type LoggingOps struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// DeliveryConfig controls the send loop.
//
// Delay is a Go duration string (e.g. "2s", "90s") applied after each
// successful send. When DelayConfigurable is set, edits to this file retune
// the delay of a running job between recipients.
type DeliveryConfig struct {
	Delay             string `json:"delay"`
	DelayConfigurable bool   `json:"delay_configurable,omitempty"`
}

// TransportConfig selects the transport driver.
//
// Driver values:
//   - "mtproto": the production user-session transport (injected at build time)
//   - "dryrun":  scripted no-network transport for list rehearsal
type TransportConfig struct {
	Driver string `json:"driver,omitempty"`
}

// StorageConfig controls the optional delivery audit store.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./tgsend_store" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// NotifierConfig controls the async ops-notification pipeline.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type NotifierConfig struct {
	Enabled         bool   `json:"enabled"`
	Workers         int    `json:"workers"`
	QueueSize       int    `json:"queue_size"`
	RatePerSec      int    `json:"rate_per_sec"`
	RetryMax        int    `json:"retry_max"`
	RetryBase       string `json:"retry_base"`
	RetryMaxDelay   string `json:"retry_max_delay"`
	DedupWindow     string `json:"dedup_window"`
	DedupMaxEntries int    `json:"dedup_max_entries"`
	PersistDedup    bool   `json:"persist_dedup,omitempty"`
}

// OpsConfig is the Bot API target used for ops notifications and the ops log
// sink. This is a regular bot token, not the user-session credentials that
// deliveries run under.
type OpsConfig struct {
	BotToken string `json:"bot_token"`
	ChatID   int64  `json:"chat_id"`
	ThreadID int    `json:"thread_id,omitempty"`
}

// ScheduleConfig describes the cron-triggered delivery job used by the run
// daemon. Spec accepts robfig/cron expressions plus @every/@hourly forms.
type ScheduleConfig struct {
	Enabled        bool   `json:"enabled"`
	Spec           string `json:"spec"`
	Profile        string `json:"profile"`
	Session        string `json:"session"`
	RecipientsFile string `json:"recipients_file"`
	Message        string `json:"message"`
	Attachment     string `json:"attachment,omitempty"`
	Timezone       string `json:"timezone,omitempty"`
}

const (
	DefaultProfilesFile = "./api_profiles.json"
	DefaultSessionsDir  = "./sessions"
	DefaultLedgerFile   = "./processed.txt"
	DefaultDelay        = "2s"
)

// Normalize fills path and delay defaults in place.
func (c *Config) Normalize() {
	if strings.TrimSpace(c.ProfilesFile) == "" {
		c.ProfilesFile = DefaultProfilesFile
	}
	if strings.TrimSpace(c.SessionsDir) == "" {
		c.SessionsDir = DefaultSessionsDir
	}
	if strings.TrimSpace(c.LedgerFile) == "" {
		c.LedgerFile = DefaultLedgerFile
	}
	if strings.TrimSpace(c.Delivery.Delay) == "" {
		c.Delivery.Delay = DefaultDelay
	}
	if strings.TrimSpace(c.Transport.Driver) == "" {
		c.Transport.Driver = "mtproto"
	}
}

// Validate checks cross-field consistency. It is also installed as the
// Manager's validator so a bad edit never replaces a good running config.
func (c *Config) Validate() error {
	if _, err := ParseDurationField("delivery.delay", c.Delivery.Delay); err != nil {
		return err
	}
	if n := c.Notifier; n != nil {
		for _, f := range []struct{ path, raw string }{
			{"notifier.retry_base", n.RetryBase},
			{"notifier.retry_max_delay", n.RetryMaxDelay},
			{"notifier.dedup_window", n.DedupWindow},
		} {
			if _, err := ParseDurationField(f.path, f.raw); err != nil {
				return err
			}
		}
	}
	if s := c.Storage; s != nil {
		if _, err := ParseDurationField("storage.busy_timeout", s.BusyTimeout); err != nil {
			return err
		}
	}
	if sc := c.Schedule; sc != nil && sc.Enabled {
		if strings.TrimSpace(sc.Spec) == "" {
			return errors.New("schedule.spec is required when schedule.enabled")
		}
		if strings.TrimSpace(sc.Profile) == "" || strings.TrimSpace(sc.Session) == "" {
			return errors.New("schedule.profile and schedule.session are required when schedule.enabled")
		}
		if strings.TrimSpace(sc.RecipientsFile) == "" {
			return errors.New("schedule.recipients_file is required when schedule.enabled")
		}
	}
	if l := c.Logging.Ops; l.Enabled {
		if c.Ops == nil || strings.TrimSpace(c.Ops.BotToken) == "" {
			return errors.New("logging.ops.enabled requires the ops block with a bot_token")
		}
	}
	return nil
}
