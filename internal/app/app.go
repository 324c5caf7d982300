// Package app wires configuration, storage, the Telegram adapter, the
// reminder engine and the bot surface into one runnable unit.
package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"taskbot/internal/bot"
	"taskbot/internal/config"
	"taskbot/internal/rates"
	"taskbot/internal/reminder"
	"taskbot/internal/storage"
	"taskbot/internal/transport"
	"taskbot/internal/transport/telegram"
	logx "taskbot/pkg/logx"
)

const updateQueueSize = 128

type App struct {
	cm     *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	st    *storage.Store
	ad    *telegram.Adapter
	sched *reminder.Scheduler
	tick  *reminder.Ticker
	bot   *bot.Bot

	updates chan transport.Update
	wg      sync.WaitGroup
}

// durations holds every parsed duration field, validated up front so a typo
// fails fast instead of surfacing mid-wiring.
type durations struct {
	pollTimeout    time.Duration
	busyTimeout    time.Duration
	repeatInterval time.Duration
	snoozeDelay    time.Duration
	restoreFloor   time.Duration
	sweepInterval  time.Duration
	flashDelay     time.Duration
	serviceMsgTTL  time.Duration
}

func parseDurations(cfg *config.Config) (durations, error) {
	var d durations
	var err error
	fields := []struct {
		path string
		raw  string
		dst  *time.Duration
	}{
		{"telegram.poll_timeout", cfg.Telegram.PollTimeout, &d.pollTimeout},
		{"storage.busy_timeout", cfg.Storage.BusyTimeout, &d.busyTimeout},
		{"reminders.repeat_interval", cfg.Reminders.RepeatInterval, &d.repeatInterval},
		{"reminders.snooze_delay", cfg.Reminders.SnoozeDelay, &d.snoozeDelay},
		{"reminders.restore_floor", cfg.Reminders.RestoreFloor, &d.restoreFloor},
		{"reminders.sweep_interval", cfg.Reminders.SweepInterval, &d.sweepInterval},
		{"limits.flash_delay", cfg.Limits.FlashDelay, &d.flashDelay},
		{"limits.service_msg_ttl", cfg.Limits.ServiceMsgTTL, &d.serviceMsgTTL},
	}
	for _, f := range fields {
		if *f.dst, err = config.ParseDurationField(f.path, f.raw); err != nil {
			return d, err
		}
	}
	return d, nil
}

// New loads the config and builds every component. Nothing talks to Telegram
// yet; Start does.
func New(cfgPath string) (*App, error) {
	cm := config.NewManager(cfgPath)
	cfg, err := cm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	// Hot-reloaded configs go through the same duration validation as the
	// startup one; a typo keeps the old config instead of wedging the watch.
	cm.SetValidator(func(_ context.Context, c *config.Config) error {
		_, err := parseDurations(c)
		return err
	})

	dur, err := parseDurations(cfg)
	if err != nil {
		return nil, err
	}

	zone := time.Local
	if name := strings.TrimSpace(cfg.Reminders.DefaultTimezone); name != "" {
		zone, err = time.LoadLocation(name)
		if err != nil {
			return nil, fmt.Errorf("reminders.default_timezone: %w", err)
		}
	}

	token := strings.TrimSpace(cfg.Telegram.Token)
	if token == "" {
		// Keeps the token out of the config file; .env or the unit file can
		// carry it instead.
		token = strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN"))
	}
	ad, err := telegram.New(telegram.Config{
		Token:       token,
		PollTimeout: dur.pollTimeout,
	}, logx.NewConsole(cfg.Logging.Level))
	if err != nil {
		return nil, fmt.Errorf("telegram adapter: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			ChatID:     cfg.Logging.Telegram.ChatID,
			ThreadID:   cfg.Logging.Telegram.ThreadID,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}, ad)
	cm.SetLogger(log)

	st, err := storage.Open(storage.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: dur.busyTimeout,
	}, log)
	if err != nil {
		_ = logSvc.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	sched := reminder.NewScheduler(reminder.Config{
		RepeatInterval: dur.repeatInterval,
		SnoozeDelay:    dur.snoozeDelay,
		RestoreFloor:   dur.restoreFloor,
	}, st, ad, log.With(logx.String("component", "reminder")))

	tick := reminder.NewTicker(reminder.TickerConfig{
		SweepInterval: dur.sweepInterval,
		DefaultZone:   zone,
		DefaultHour:   cfg.Reminders.DefaultHour,
		DefaultMinute: cfg.Reminders.DefaultMinute,
	}, st, ad, log.With(logx.String("component", "recurring")))

	b := bot.New(bot.Config{
		DefaultZone:     zone,
		DefaultHour:     cfg.Reminders.DefaultHour,
		DefaultMinute:   cfg.Reminders.DefaultMinute,
		TaskTextMaxLen:  cfg.Limits.TaskTextMaxLen,
		MaxTasksPerChat: cfg.Limits.MaxTasksPerChat,
		ListLimit:       cfg.Limits.ListLimit,
		PickLimit:       cfg.Limits.PickLimit,
		HistoryLimit:    cfg.Limits.HistoryLimit,
		FlashDelay:      dur.flashDelay,
		ServiceMsgTTL:   dur.serviceMsgTTL,
	}, st, ad, sched, tick, rates.New(log.With(logx.String("component", "rates"))),
		log.With(logx.String("component", "bot")))

	return &App{
		cm:     cm,
		logSvc: logSvc,
		log:    log,
		st:     st,
		ad:     ad,
		sched:  sched,
		tick:   tick,
		bot:    b,
	}, nil
}

// Start brings the adapter up, restores persisted reminders and starts the
// recurring sweep and the update loop. Goroutines stop when ctx is cancelled.
func (a *App) Start(ctx context.Context) error {
	a.updates = make(chan transport.Update, updateQueueSize)
	if err := a.ad.Start(ctx, a.updates); err != nil {
		return fmt.Errorf("start telegram adapter: %w", err)
	}

	if err := a.sched.RestoreAll(ctx); err != nil {
		a.log.Error("reminder restore failed", logx.Err(err))
	}
	if err := a.tick.Start(ctx); err != nil {
		return fmt.Errorf("start recurring ticker: %w", err)
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.bot.Run(ctx, a.updates)
	}()

	// Config hot reload: only the log level is applied live; everything else
	// needs a restart.
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		_ = a.cm.Watch(ctx)
	}()
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.watchConfig(ctx)
	}()

	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Debug("sd_notify failed", logx.Err(err))
	} else if sent {
		a.log.Debug("sd_notify ready sent")
	}

	a.log.Info("taskbot started")
	return nil
}

func (a *App) watchConfig(ctx context.Context) {
	sub := a.cm.Subscribe(1)
	defer a.cm.Unsubscribe(sub)
	old := a.cm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-sub:
			if !ok {
				return
			}
			changed, attrs := config.SummarizeConfigChange(old, cfg)
			if len(changed) > 0 {
				a.log.Info("config reloaded",
					append([]logx.Field{logx.String("sections", strings.Join(changed, ","))}, attrs...)...)
			}
			a.logSvc.SetLevel(cfg.Logging.Level)
			old = cfg
		}
	}
}

// Stop shuts everything down in reverse order of Start. The ctx bounds how
// long the shutdown may take.
func (a *App) Stop(ctx context.Context) error {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	if err := a.ad.Stop(ctx); err != nil {
		a.log.Warn("adapter stop failed", logx.Err(err))
	}
	a.sched.Stop()
	a.tick.Stop(ctx)

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}

	if err := a.st.Close(); err != nil {
		a.log.Warn("storage close failed", logx.Err(err))
	}
	a.log.Info("taskbot stopped")
	return a.logSvc.Close()
}
