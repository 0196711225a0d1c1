// Package app is the composition root: it loads config, wires the logging
// service, stores, transport and delivery engine, and exposes the operations
// the CLI commands run.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tgsend/internal/config"
	"tgsend/internal/delivery"
	"tgsend/internal/ledger"
	"tgsend/internal/notifier"
	"tgsend/internal/ops"
	"tgsend/internal/profile"
	"tgsend/internal/session"
	"tgsend/internal/storage"
	"tgsend/internal/transport"
	"tgsend/internal/ui"
	logx "tgsend/pkg/logx"
)

type Options struct {
	ConfigPath string
	// Debug forces console output at debug level regardless of config.
	Debug bool
	// DryRun swaps in the dryrun transport and redirects the ledger so a
	// rehearsal never contaminates real delivery progress.
	DryRun bool
}

type App struct {
	opts Options

	cfgm *config.Manager
	cfg  config.Config

	logs *logx.Service
	log  logx.Logger

	profiles *profile.Store
	dialer   transport.Dialer
	sessions *session.Manager
	store    storage.Store
	notif    *notifier.Service
	ops      *ops.Sender

	delay time.Duration
}

func New(opts Options) (*App, error) {
	cfgm := config.NewManager(opts.ConfigPath)
	loaded, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	cfg := *loaded

	if opts.DryRun {
		cfg.Transport.Driver = "dryrun"
		cfg.LedgerFile = cfg.LedgerFile + ".dryrun"
	}

	delay, err := config.ParseDurationField("delivery.delay", cfg.Delivery.Delay)
	if err != nil {
		return nil, err
	}

	// Ops sender first: the log service can mirror into it from the start.
	// A broken ops block degrades to local logging, it never blocks startup.
	var opsSender *ops.Sender
	if oc := cfg.Ops; oc != nil && strings.TrimSpace(oc.BotToken) != "" {
		bootLog := logx.NewConsole(cfg.Logging.Level).With(logx.String("comp", "ops"))
		s, err := ops.New(ops.Config{
			BotToken: oc.BotToken,
			ChatID:   oc.ChatID,
			ThreadID: oc.ThreadID,
		}, bootLog)
		if err != nil {
			bootLog.Warn("ops sender unavailable", logx.Err(err))
		} else {
			opsSender = s
		}
	}

	logCfg := mapLogConfig(cfg, opts.Debug)
	logSvc, log := logx.New(logCfg, senderOrNil(opsSender))
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))
	cfgm.SetValidator(func(ctx context.Context, c *config.Config) error {
		return c.Validate()
	})

	a := &App{
		opts:  opts,
		cfgm:  cfgm,
		cfg:   cfg,
		logs:  logSvc,
		log:   log,
		ops:   opsSender,
		delay: delay,
	}

	a.profiles = profile.NewStore(cfg.ProfilesFile, log.With(logx.String("comp", "profile")))

	a.dialer, err = transport.NewDialer(cfg.Transport.Driver, log.With(logx.String("comp", "transport")))
	if err != nil {
		logSvc.Close()
		return nil, err
	}
	a.sessions = session.NewManager(a.profiles, a.dialer, cfg.SessionsDir,
		log.With(logx.String("comp", "session")))

	if sc := cfg.Storage; sc != nil && sc.Driver != "" && sc.Driver != "none" {
		busy, err := config.ParseDurationField("storage.busy_timeout", sc.BusyTimeout)
		if err != nil {
			logSvc.Close()
			return nil, err
		}
		st, err := storage.Open(storage.Config{
			Driver:      sc.Driver,
			Path:        sc.Path,
			BusyTimeout: busy,
		}, log.With(logx.String("comp", "storage")))
		if err != nil {
			logSvc.Close()
			return nil, err
		}
		a.store = st
		log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	if nc := cfg.Notifier; nc != nil && nc.Enabled {
		if opsSender == nil {
			log.Warn("notifier enabled but ops block is missing, notifications disabled")
		} else {
			ncfg, err := mapNotifierConfig(nc)
			if err != nil {
				a.Close()
				return nil, err
			}
			a.notif = notifier.New(ncfg, opsSender,
				log.With(logx.String("comp", "notifier")), a.store)
		}
	}

	return a, nil
}

// Close releases everything New acquired. Safe to call more than once.
func (a *App) Close() {
	if a.notif != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		a.notif.Stop(ctx)
		cancel()
		a.notif = nil
	}
	if a.sessions != nil {
		a.sessions.Release()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Debug("storage close", logx.Err(err))
		}
		a.store = nil
	}
	if a.logs != nil {
		_ = a.logs.Close()
		a.logs = nil
	}
}

func (a *App) Config() config.Config    { return a.cfg }
func (a *App) Logger() logx.Logger      { return a.log }
func (a *App) Profiles() *profile.Store { return a.profiles }

// Login runs the interactive QR authorization flow for a session slot.
func (a *App) Login(ctx context.Context, profileName, slot string) error {
	console := ui.NewConsole("./login_qr.png", a.log.With(logx.String("comp", "ui")))
	defer a.sessions.Release()
	return a.sessions.Login(ctx, profileName, slot, console)
}

// SendRequest is one bulk delivery invocation.
type SendRequest struct {
	Profile        string
	Session        string
	RecipientsFile string
	Message        string
	Attachment     string
}

// PrepareSend builds the engine and ledger for a run. The caller owns the
// returned runner and must Close it.
func (a *App) PrepareSend(req SendRequest) (*SendRun, error) {
	recipients, err := delivery.LoadRecipients(req.RecipientsFile)
	if err != nil {
		return nil, err
	}

	led, err := ledger.Open(a.cfg.LedgerFile, a.log.With(logx.String("comp", "ledger")))
	if err != nil {
		return nil, err
	}

	eng := delivery.NewEngine(a.sessions, led, a.log.With(logx.String("comp", "delivery")))
	eng.SetDelay(a.delay)
	if a.store != nil {
		eng.SetStore(a.store)
	}
	if a.notif != nil {
		eng.SetNotifier(notifyAdapter{s: a.notif})
	}

	return &SendRun{
		app:    a,
		Engine: eng,
		led:    led,
		Job: delivery.Job{
			Profile:    req.Profile,
			Session:    req.Session,
			Recipients: recipients,
			Message:    req.Message,
			Attachment: req.Attachment,
		},
	}, nil
}

// SendRun is a prepared delivery job plus the resources backing it.
type SendRun struct {
	app    *App
	Engine *delivery.Engine
	Job    delivery.Job
	led    *ledger.Ledger
}

// Run executes the job. When the config marks the delay as live-tunable,
// config file edits retune the pause between sends while the job runs.
func (r *SendRun) Run(ctx context.Context) (delivery.Summary, error) {
	if r.app.notif != nil {
		r.app.notif.Start(ctx)
	}
	if r.app.cfg.Delivery.DelayConfigurable {
		stop := r.app.watchDelay(ctx, r.Engine)
		defer stop()
	}
	return r.Engine.Run(ctx, r.Job)
}

func (r *SendRun) Close() {
	if r.led != nil {
		if err := r.led.Close(); err != nil {
			r.app.log.Debug("ledger close", logx.Err(err))
		}
		r.led = nil
	}
}

// watchDelay follows config edits and retunes the engine delay between
// recipients. Returns a stop function.
func (a *App) watchDelay(ctx context.Context, eng *delivery.Engine) func() {
	wctx, cancel := context.WithCancel(ctx)
	sub := a.cfgm.Subscribe(1)
	go a.cfgm.Watch(wctx)
	go func() {
		for {
			select {
			case <-wctx.Done():
				return
			case cfg, ok := <-sub:
				if !ok {
					return
				}
				d, err := config.ParseDurationField("delivery.delay", cfg.Delivery.Delay)
				if err != nil {
					continue
				}
				if d != eng.Delay() {
					a.log.Info("delay retuned", logx.Duration("delay", d))
					eng.SetDelay(d)
				}
			}
		}
	}()
	return func() {
		cancel()
		a.cfgm.Unsubscribe(sub)
	}
}

// applyConfig pushes a newly committed config into the running services.
// Structural settings (paths, transport driver, storage) still need a
// restart; this covers what can safely change live.
func (a *App) applyConfig(cfg *config.Config) {
	a.logs.Apply(mapLogConfig(*cfg, a.opts.Debug))
	if a.notif != nil && cfg.Notifier != nil {
		if ncfg, err := mapNotifierConfig(cfg.Notifier); err == nil {
			a.notif.Apply(ncfg)
		}
	}
	if d, err := config.ParseDurationField("delivery.delay", cfg.Delivery.Delay); err == nil {
		a.delay = d
	}
	a.cfg = *cfg
}

// Notify sends an operator notification when the pipeline is configured.
func (a *App) Notify(ctx context.Context, text string, priority int) {
	if a.notif == nil {
		return
	}
	err := a.notif.Notify(ctx, notifier.Notification{Text: text, Priority: priority})
	if err != nil && err != notifier.ErrDisabled {
		a.log.Debug("notify", logx.Err(err))
	}
}

type notifyAdapter struct{ s *notifier.Service }

func (n notifyAdapter) Notify(ctx context.Context, text string) {
	_ = n.s.Notify(ctx, notifier.Notification{Text: text, Priority: 5})
}

func senderOrNil(s *ops.Sender) logx.Sender {
	if s == nil {
		return nil
	}
	return s
}

func mapLogConfig(cfg config.Config, debug bool) logx.Config {
	lc := logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Ops: logx.OpsConfig{
			Enabled:    cfg.Logging.Ops.Enabled,
			MinLevel:   cfg.Logging.Ops.MinLevel,
			RatePerSec: cfg.Logging.Ops.RatePerSec,
		},
	}
	if debug {
		lc.Level = "DEBUG"
		lc.Console = true
	}
	return lc
}

func mapNotifierConfig(nc *config.NotifierConfig) (notifier.Config, error) {
	var (
		out notifier.Config
		err error
	)
	out.Enabled = nc.Enabled
	out.Workers = nc.Workers
	out.QueueSize = nc.QueueSize
	out.RatePerSec = nc.RatePerSec
	out.RetryMax = nc.RetryMax
	out.DedupMaxEntries = nc.DedupMaxEntries
	out.PersistDedup = nc.PersistDedup
	if out.RetryBase, err = config.ParseDurationField("notifier.retry_base", nc.RetryBase); err != nil {
		return out, err
	}
	if out.RetryMaxDelay, err = config.ParseDurationField("notifier.retry_max_delay", nc.RetryMaxDelay); err != nil {
		return out, err
	}
	if out.DedupWindow, err = config.ParseDurationField("notifier.dedup_window", nc.DedupWindow); err != nil {
		return out, err
	}
	return out, nil
}

// SessionsDir returns the configured session slot directory.
func (a *App) SessionsDir() string { return a.cfg.SessionsDir }

func (a *App) String() string {
	return fmt.Sprintf("tgsend(config=%s)", a.opts.ConfigPath)
}
