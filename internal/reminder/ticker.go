package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"taskbot/internal/schedule"
	"taskbot/internal/storage"
	"taskbot/internal/transport"
	logx "taskbot/pkg/logx"
)

// RecurringStore is the slice of the storage layer the ticker needs.
// *storage.Store satisfies it.
type RecurringStore interface {
	CreateRecurring(ctx context.Context, r storage.RecurringReminder) (int64, error)
	Recurring(ctx context.Context, id int64) (storage.RecurringReminder, error)
	RecurringForChat(ctx context.Context, chatID int64) ([]storage.RecurringReminder, error)
	DueRecurring(ctx context.Context, now time.Time) ([]storage.RecurringReminder, error)
	AdvanceRecurring(ctx context.Context, id int64, next time.Time) error
	DeleteRecurring(ctx context.Context, id int64) error
	ChatTimezone(ctx context.Context, chatID int64) (string, error)
}

type TickerConfig struct {
	// SweepInterval is the cadence of the due-row scan.
	SweepInterval time.Duration
	// DefaultZone anchors calendar math for chats without an own timezone.
	DefaultZone *time.Location
	// DefaultHour and DefaultMinute are the time of day applied when a rule
	// carries none.
	DefaultHour   int
	DefaultMinute int
}

func (c TickerConfig) withDefaults() TickerConfig {
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}
	if c.DefaultZone == nil {
		c.DefaultZone = time.Local
	}
	if c.DefaultHour <= 0 {
		c.DefaultHour = 10
	}
	return c
}

// Ticker delivers standing monthly/yearly reminders. A cron entry kicks the
// sweep on a fixed cadence; Notify kicks it early after inserts so a rule
// created past-due does not wait a full interval.
type Ticker struct {
	cfg  TickerConfig
	st   RecurringStore
	send Sender
	log  logx.Logger

	c    *cron.Cron
	kick chan struct{}
	done chan struct{}
}

func NewTicker(cfg TickerConfig, st RecurringStore, send Sender, log logx.Logger) *Ticker {
	return &Ticker{
		cfg:  cfg.withDefaults(),
		st:   st,
		send: send,
		log:  log,
		kick: make(chan struct{}, 1),
	}
}

func (t *Ticker) Start(ctx context.Context) error {
	t.c = cron.New(cron.WithLocation(t.cfg.DefaultZone))
	spec := fmt.Sprintf("@every %s", t.cfg.SweepInterval)
	if _, err := t.c.AddFunc(spec, t.Notify); err != nil {
		return err
	}

	t.done = make(chan struct{})
	go func() {
		defer close(t.done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.kick:
				t.sweep(ctx)
			}
		}
	}()

	t.c.Start()
	t.log.Info("recurring ticker started",
		logx.Duration("interval", t.cfg.SweepInterval),
		logx.String("tz", t.cfg.DefaultZone.String()))
	return nil
}

func (t *Ticker) Stop(ctx context.Context) {
	if t.c != nil {
		select {
		case <-t.c.Stop().Done():
		case <-ctx.Done():
		}
	}
	if t.done != nil {
		select {
		case <-t.done:
		case <-ctx.Done():
		}
	}
}

// Notify schedules a sweep as soon as the loop is free. Never blocks.
func (t *Ticker) Notify() {
	select {
	case t.kick <- struct{}{}:
	default:
	}
}

// AddRecurring computes the first run of the rule in the chat's timezone and
// inserts the definition.
func (t *Ticker) AddRecurring(ctx context.Context, chatID, ownerID int64, ownerName, text string, rule schedule.Rule) (int64, error) {
	loc := t.chatZone(ctx, chatID)
	hour, minute := t.cfg.DefaultHour, t.cfg.DefaultMinute
	next := schedule.NextRun(rule.Kind, rule.Day, time.Now().In(loc), rule.Month, hour, minute)

	id, err := t.st.CreateRecurring(ctx, storage.RecurringReminder{
		ChatID:     chatID,
		Text:       text,
		Kind:       rule.Kind,
		DayOfMonth: rule.Day,
		Month:      rule.Month,
		Hour:       hour,
		Minute:     minute,
		NextRunAt:  next,
		OwnerID:    ownerID,
		OwnerName:  ownerName,
	})
	if err != nil {
		return 0, err
	}
	t.Notify()
	return id, nil
}

// RemoveRecurring deletes a definition after checking it belongs to the chat.
// Reports whether anything was removed.
func (t *Ticker) RemoveRecurring(ctx context.Context, chatID, id int64) (bool, error) {
	r, err := t.st.Recurring(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if r.ChatID != chatID {
		return false, nil
	}
	if err := t.st.DeleteRecurring(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// sweep sends every due reminder and advances its next run. The next run
// moves forward even when the send fails; a chat the bot cannot reach must
// not wedge the whole sweep.
func (t *Ticker) sweep(ctx context.Context) {
	due, err := t.st.DueRecurring(ctx, time.Now())
	if err != nil {
		t.log.Warn("recurring due scan failed", logx.Err(err))
		return
	}
	for _, r := range due {
		text := "🔄 Напоминание: " + r.Text
		_, err := t.send.SendText(ctx, transport.ChatTarget{ChatID: r.ChatID}, text,
			&transport.SendOptions{DisablePreview: true})
		if err != nil {
			t.log.Warn("recurring send failed",
				logx.Int64("chat_id", r.ChatID), logx.Int64("rec_id", r.ID), logx.Err(err))
		}

		loc := t.chatZone(ctx, r.ChatID)
		hour, minute := r.Hour, r.Minute
		if hour == 0 {
			hour = t.cfg.DefaultHour
		}
		next := schedule.NextRun(r.Kind, r.DayOfMonth, time.Now().In(loc), r.Month, hour, minute)
		if err := t.st.AdvanceRecurring(ctx, r.ID, next); err != nil {
			t.log.Warn("recurring advance failed",
				logx.Int64("rec_id", r.ID), logx.Err(err))
		}
	}
}

// chatZone resolves the chat's timezone, falling back to the default on
// missing or unloadable names.
func (t *Ticker) chatZone(ctx context.Context, chatID int64) *time.Location {
	name, err := t.st.ChatTimezone(ctx, chatID)
	if err != nil || name == "" {
		return t.cfg.DefaultZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.log.Debug("invalid chat timezone",
			logx.Int64("chat_id", chatID), logx.String("tz", name), logx.Err(err))
		return t.cfg.DefaultZone
	}
	return loc
}
