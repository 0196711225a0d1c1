// Package sched triggers recurring send jobs from a cron expression.
package sched

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	logx "tgsend/pkg/logx"
)

type Config struct {
	Spec     string
	Timezone string
}

// Service wraps a single cron entry. Overlapping fires are skipped, not
// queued: a schedule must never stack jobs behind a slow batch.
type Service struct {
	cron *cron.Cron
	log  logx.Logger
	spec string
}

// New builds the service around runFn. The spec accepts the standard
// five-field cron syntax plus descriptors like @hourly and @every 4h.
func New(cfg Config, runFn func(ctx context.Context) error, log logx.Logger) (*Service, error) {
	if runFn == nil {
		return nil, errors.New("sched: run function is nil")
	}
	spec := strings.TrimSpace(cfg.Spec)
	if spec == "" {
		return nil, errors.New("sched: empty cron spec")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	loc := time.Local
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("sched: timezone %q: %w", tz, err)
		}
		loc = l
	}

	clog := cronLogger{log: log}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
	)
	s := &Service{cron: c, log: log, spec: spec}

	_, err := c.AddFunc(spec, func() {
		start := time.Now()
		log.Info("scheduled job fired", logx.String("spec", spec))
		if err := runFn(context.Background()); err != nil {
			log.Warn("scheduled job failed",
				logx.Err(err), logx.Duration("took", time.Since(start)))
			return
		}
		log.Info("scheduled job done", logx.Duration("took", time.Since(start)))
	})
	if err != nil {
		return nil, fmt.Errorf("sched: bad spec %q: %w", spec, err)
	}
	return s, nil
}

func (s *Service) Start() {
	s.cron.Start()
	s.log.Info("schedule active", logx.String("spec", s.spec))
}

// Stop ends scheduling and waits for a running fire to finish, bounded by ctx.
func (s *Service) Stop(ctx context.Context) {
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
	}
}

// Next returns the next fire time, zero when not started.
func (s *Service) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

type cronLogger struct{ log logx.Logger }

func (c cronLogger) Info(msg string, kv ...interface{}) {
	c.log.Debug("cron: "+msg, logx.Any("kv", kv))
}

func (c cronLogger) Error(err error, msg string, kv ...interface{}) {
	c.log.Warn("cron: "+msg, logx.Err(err), logx.Any("kv", kv))
}
