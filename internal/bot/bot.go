// Package bot is the Telegram surface of the tracker: one pinned panel
// message per chat, edited in place, plus the command and free-text flows
// around it.
package bot

import (
	"context"
	"sync"
	"time"

	"taskbot/internal/rates"
	"taskbot/internal/reminder"
	"taskbot/internal/storage"
	"taskbot/internal/transport"
	logx "taskbot/pkg/logx"
)

type Config struct {
	// DefaultZone is used for chats without an own /timezone setting.
	DefaultZone *time.Location
	// DefaultHour/DefaultMinute is the delivery time of recurring rules.
	DefaultHour   int
	DefaultMinute int

	TaskTextMaxLen  int
	MaxTasksPerChat int
	ListLimit       int
	PickLimit       int
	HistoryLimit    int

	// FlashDelay is how long a confirmation line stays on the panel before
	// the task list is restored.
	FlashDelay time.Duration
	// ServiceMsgTTL is how long hint replies (e.g. /start, /help) live
	// before being deleted to keep the chat clean.
	ServiceMsgTTL time.Duration
}

func (c Config) withDefaults() Config {
	if c.DefaultZone == nil {
		c.DefaultZone = time.Local
	}
	if c.DefaultHour <= 0 {
		c.DefaultHour = 10
	}
	if c.TaskTextMaxLen <= 0 {
		c.TaskTextMaxLen = 300
	}
	if c.MaxTasksPerChat <= 0 {
		c.MaxTasksPerChat = 100
	}
	if c.ListLimit <= 0 {
		c.ListLimit = 20
	}
	if c.PickLimit <= 0 {
		c.PickLimit = 20
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 25
	}
	if c.FlashDelay <= 0 {
		c.FlashDelay = 2 * time.Second
	}
	if c.ServiceMsgTTL <= 0 {
		c.ServiceMsgTTL = 15 * time.Second
	}
	return c
}

// Bot routes incoming updates to panel, command and pending-text flows.
type Bot struct {
	cfg   Config
	st    *storage.Store
	ad    transport.Adapter
	sched *reminder.Scheduler
	tick  *reminder.Ticker
	rates *rates.Client
	log   logx.Logger

	mu     sync.Mutex
	panels map[int64]*chatPanel
}

// chatPanel is the per-chat serialization point: every panel edit goes
// through its lock, and at most one flash restore timer is pending.
type chatPanel struct {
	mu    sync.Mutex
	flash *time.Timer
}

func New(cfg Config, st *storage.Store, ad transport.Adapter, sched *reminder.Scheduler, tick *reminder.Ticker, rc *rates.Client, log logx.Logger) *Bot {
	b := &Bot{
		cfg:    cfg.withDefaults(),
		st:     st,
		ad:     ad,
		sched:  sched,
		tick:   tick,
		rates:  rc,
		log:    log,
		panels: map[int64]*chatPanel{},
	}
	// Reminder messages carry the ack/snooze keyboard built here.
	sched.Markup = func(taskID int64) any { return reminderActionKeyboard(taskID).Markup() }
	return b
}

func (b *Bot) panel(chatID int64) *chatPanel {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.panels[chatID]
	if !ok {
		p = &chatPanel{}
		b.panels[chatID] = p
	}
	return p
}

// chatZone resolves the chat's display timezone with the configured default
// as fallback.
func (b *Bot) chatZone(ctx context.Context, chatID int64) *time.Location {
	name, err := b.st.ChatTimezone(ctx, chatID)
	if err != nil || name == "" {
		return b.cfg.DefaultZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return b.cfg.DefaultZone
	}
	return loc
}

func logxChat(chatID int64) logx.Field { return logx.Int64("chat_id", chatID) }
func logxErr(err error) logx.Field     { return logx.Err(err) }

func (b *Bot) audit(ctx context.Context, e storage.AuditEntry) {
	if err := b.st.AppendAudit(ctx, e); err != nil {
		b.log.Warn("audit append failed", logx.String("action", e.Action), logx.Err(err))
	}
}
