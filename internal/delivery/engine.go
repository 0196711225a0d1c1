// Package delivery runs bulk-send jobs: one message per recipient, ledger
// dedup, a tunable pause between sends, and per-recipient error isolation.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"tgsend/internal/ledger"
	"tgsend/internal/session"
	"tgsend/internal/storage"
	"tgsend/internal/transport"
	logx "tgsend/pkg/logx"
)

// ErrJobRunning is returned by Run when a job is already in flight.
var ErrJobRunning = errors.New("job already running")

// Connector supplies an authorized transport client for a (profile, slot)
// pair. *session.Manager satisfies it.
type Connector interface {
	Connect(ctx context.Context, profileName, slot string) (transport.Client, error)
	State() session.State
	Release()
}

// Notifier receives terminal job events. May be nil.
type Notifier interface {
	Notify(ctx context.Context, text string)
}

// Job is one bulk-send request.
type Job struct {
	ID         string
	Profile    string
	Session    string
	Recipients []string
	Message    string
	Attachment string // optional file path; Message becomes the caption
}

// Summary is the outcome of a run.
type Summary struct {
	OK      int
	Fail    int
	Skipped int
	Took    time.Duration
	Stopped bool // stop requested and observed
}

// Engine executes jobs. At most one job runs at a time; a second Run while
// one is in flight fails with ErrJobRunning instead of queueing.
type Engine struct {
	sessions Connector
	ledger   *ledger.Ledger
	log      logx.Logger

	store  storage.Store // optional audit sink
	notify Notifier      // optional

	delay   atomic.Int64 // nanoseconds between successful sends
	running atomic.Bool
	stopReq atomic.Bool
}

func NewEngine(sessions Connector, led *ledger.Ledger, log logx.Logger) *Engine {
	if log.IsZero() {
		log = logx.Nop()
	}
	e := &Engine{sessions: sessions, ledger: led, log: log}
	e.delay.Store(int64(2 * time.Second))
	return e
}

// SetStore wires an audit store. Call before Run.
func (e *Engine) SetStore(st storage.Store) { e.store = st }

// SetNotifier wires a terminal-event sink. Call before Run.
func (e *Engine) SetNotifier(n Notifier) { e.notify = n }

// SetDelay retunes the pause between successful sends. Safe to call while a
// job is running; the next pause uses the new value.
func (e *Engine) SetDelay(d time.Duration) {
	if d < 0 {
		d = 0
	}
	e.delay.Store(int64(d))
}

// Delay returns the current inter-send pause.
func (e *Engine) Delay() time.Duration { return time.Duration(e.delay.Load()) }

// Stop requests a graceful stop. The loop observes it between recipients;
// the recipient currently being sent completes normally.
func (e *Engine) Stop() { e.stopReq.Store(true) }

// Running reports whether a job is in flight.
func (e *Engine) Running() bool { return e.running.Load() }

// Run executes the job and returns its summary. Recipients already present
// in the ledger are skipped without pausing. A successful send is recorded
// in the ledger before it is reported, so an interrupted job never repeats a
// delivered message on resume. Per-recipient send failures are counted and
// the loop moves on; connection loss aborts the remainder of the batch.
func (e *Engine) Run(ctx context.Context, job Job) (Summary, error) {
	if !e.running.CompareAndSwap(false, true) {
		return Summary{}, ErrJobRunning
	}
	defer e.running.Store(false)
	e.stopReq.Store(false)

	start := time.Now()
	if job.ID == "" {
		job.ID = fmt.Sprintf("job-%d", start.UnixMilli())
	}
	log := e.log.With(
		logx.String("job", job.ID),
		logx.String("profile", job.Profile),
		logx.String("session", job.Session),
	)

	client, err := e.sessions.Connect(ctx, job.Profile, job.Session)
	if err != nil {
		return Summary{}, err
	}
	defer e.sessions.Release()
	if e.sessions.State() != session.StateAuthorized {
		return Summary{}, fmt.Errorf("%w: run login for session %q first", session.ErrNotAuthorized, job.Session)
	}

	log.Info("job started",
		logx.Int("recipients", len(job.Recipients)),
		logx.Duration("delay", e.Delay()),
	)

	var sum Summary
	var abortErr error

loop:
	for _, recipient := range job.Recipients {
		select {
		case <-ctx.Done():
			abortErr = ctx.Err()
			break loop
		default:
		}
		if e.stopReq.Load() {
			sum.Stopped = true
			log.Info("stop requested, ending job")
			break loop
		}

		if e.ledger.Contains(recipient) {
			sum.Skipped++
			log.Debug("already delivered, skipping", logx.String("recipient", recipient))
			e.audit(ctx, storage.AuditEntry{
				JobID: job.ID, Profile: job.Profile, Session: job.Session,
				Recipient: recipient, Action: "skip", Skipped: 1,
			})
			continue
		}

		sendStart := time.Now()
		err := e.send(ctx, client, recipient, job)
		took := time.Since(sendStart)

		if err != nil {
			if transport.IsConnectionErr(err) {
				abortErr = err
				log.Error("connection lost, aborting batch",
					logx.String("recipient", recipient), logx.Err(err))
				e.audit(ctx, storage.AuditEntry{
					JobID: job.ID, Profile: job.Profile, Session: job.Session,
					Recipient: recipient, Action: "send", Fail: 1,
					Error: err.Error(), TookMS: took.Milliseconds(),
				})
				break loop
			}
			sum.Fail++
			log.Warn("send failed",
				logx.String("recipient", recipient), logx.Err(err))
			e.audit(ctx, storage.AuditEntry{
				JobID: job.ID, Profile: job.Profile, Session: job.Session,
				Recipient: recipient, Action: "send", Fail: 1,
				Error: err.Error(), TookMS: took.Milliseconds(),
			})
			continue
		}

		// Record durably before reporting success. If this fails we cannot
		// guarantee resume-without-repeat, so the batch stops here.
		if err := e.ledger.Append(recipient); err != nil {
			abortErr = fmt.Errorf("ledger append: %w", err)
			log.Error("progress not durable, aborting batch",
				logx.String("recipient", recipient), logx.Err(err))
			break loop
		}
		sum.OK++
		log.Info("sent",
			logx.String("recipient", recipient),
			logx.Duration("took", took),
		)
		e.audit(ctx, storage.AuditEntry{
			JobID: job.ID, Profile: job.Profile, Session: job.Session,
			Recipient: recipient, Action: "send", OK: 1,
			TookMS: took.Milliseconds(),
		})

		// Pause only after a delivery; skips and failures cost nothing.
		if d := e.Delay(); d > 0 {
			select {
			case <-time.After(d):
			case <-ctx.Done():
				abortErr = ctx.Err()
				break loop
			}
		}
	}

	sum.Took = time.Since(start)
	e.finish(ctx, job, sum, abortErr, log)
	return sum, abortErr
}

func (e *Engine) send(ctx context.Context, client transport.Client, recipient string, job Job) error {
	if job.Attachment != "" {
		return client.SendFile(ctx, recipient, job.Attachment, job.Message)
	}
	return client.SendText(ctx, recipient, job.Message)
}

func (e *Engine) finish(ctx context.Context, job Job, sum Summary, abortErr error, log logx.Logger) {
	log.Info("job finished",
		logx.Int("ok", sum.OK),
		logx.Int("fail", sum.Fail),
		logx.Int("skipped", sum.Skipped),
		logx.Bool("stopped", sum.Stopped),
		logx.Duration("took", sum.Took),
		logx.Err(abortErr),
	)
	e.audit(ctx, storage.AuditEntry{
		JobID: job.ID, Profile: job.Profile, Session: job.Session,
		Action: "job", OK: sum.OK, Fail: sum.Fail, Skipped: sum.Skipped,
		Error: errString(abortErr), TookMS: sum.Took.Milliseconds(),
	})
	if e.notify != nil {
		text := fmt.Sprintf("job %s finished: ok=%d fail=%d skipped=%d took=%s",
			job.ID, sum.OK, sum.Fail, sum.Skipped, sum.Took.Round(time.Millisecond))
		if abortErr != nil {
			text += " aborted: " + abortErr.Error()
		}
		e.notify.Notify(ctx, text)
	}
}

func (e *Engine) audit(ctx context.Context, entry storage.AuditEntry) {
	if e.store == nil {
		return
	}
	entry.At = time.Now()
	if err := e.store.AppendAudit(ctx, entry); err != nil {
		e.log.Debug("audit append failed", logx.Err(err))
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
