package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	sdaemon "github.com/coreos/go-systemd/v22/daemon"

	"tgsend/internal/delivery"
	"tgsend/internal/ledger"
	rtsup "tgsend/internal/runtime/supervisor"
	"tgsend/internal/sched"
	logx "tgsend/pkg/logx"
)

// RunDaemon runs the scheduled-delivery daemon until ctx is cancelled. The
// config file is watched while running: logging, notifier settings and the
// send delay apply live, everything else needs a restart.
func (a *App) RunDaemon(ctx context.Context) error {
	sc := a.cfg.Schedule
	if sc == nil || !sc.Enabled {
		return errors.New("run: schedule is not enabled in config")
	}

	led, err := ledger.Open(a.cfg.LedgerFile, a.log.With(logx.String("comp", "ledger")))
	if err != nil {
		return err
	}
	defer led.Close()

	eng := delivery.NewEngine(a.sessions, led, a.log.With(logx.String("comp", "delivery")))
	eng.SetDelay(a.delay)
	if a.store != nil {
		eng.SetStore(a.store)
	}
	if a.notif != nil {
		eng.SetNotifier(notifyAdapter{s: a.notif})
		a.notif.Start(ctx)
	}

	runJob := func(jctx context.Context) error {
		recipients, err := delivery.LoadRecipients(sc.RecipientsFile)
		if err != nil {
			return err
		}
		sum, err := eng.Run(jctx, delivery.Job{
			Profile:    sc.Profile,
			Session:    sc.Session,
			Recipients: recipients,
			Message:    sc.Message,
			Attachment: sc.Attachment,
		})
		if errors.Is(err, delivery.ErrJobRunning) {
			a.log.Warn("schedule fired while a job was running, skipped")
			return nil
		}
		if err != nil {
			return err
		}
		a.log.Info("scheduled delivery complete",
			logx.Int("ok", sum.OK), logx.Int("fail", sum.Fail), logx.Int("skipped", sum.Skipped))
		return nil
	}

	schedule, err := sched.New(sched.Config{
		Spec:     sc.Spec,
		Timezone: sc.Timezone,
	}, runJob, a.log.With(logx.String("comp", "sched")))
	if err != nil {
		return err
	}

	sup := rtsup.New(ctx, rtsup.WithLogger(a.log.With(logx.String("comp", "supervisor"))))

	sup.GoRestart("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})
	sub := a.cfgm.Subscribe(1)
	defer a.cfgm.Unsubscribe(sub)
	sup.Go0("config.apply", func(c context.Context) {
		for {
			select {
			case <-c.Done():
				return
			case cfg, ok := <-sub:
				if !ok {
					return
				}
				a.applyConfig(cfg)
				if a.cfg.Delivery.DelayConfigurable {
					eng.SetDelay(a.delay)
				}
				a.log.Info("config reloaded")
			}
		}
	})

	schedule.Start()
	a.log.Info("daemon running",
		logx.String("spec", sc.Spec),
		logx.Time("next", schedule.Next()),
	)
	a.Notify(ctx, fmt.Sprintf("daemon up, next delivery at %s",
		schedule.Next().Format(time.RFC3339)), 5)

	if sent, err := sdaemon.SdNotify(false, sdaemon.SdNotifyReady); err != nil {
		a.log.Debug("sd_notify", logx.Err(err))
	} else if sent {
		a.log.Debug("sd_notify ready")
	}

	<-ctx.Done()

	_, _ = sdaemon.SdNotify(false, sdaemon.SdNotifyStopping)
	a.log.Info("shutting down")

	// Let the in-flight recipient finish, then stop everything.
	eng.Stop()
	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	schedule.Stop(stopCtx)
	if a.notif != nil {
		a.notif.Stop(stopCtx)
	}
	_ = sup.Stop(stopCtx)
	return nil
}
