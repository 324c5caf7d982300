package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"taskbot/internal/storage"
	"taskbot/internal/transport"
	logx "taskbot/pkg/logx"
)

// opTimeout bounds store and Telegram calls made from timer callbacks,
// which run outside any request context.
const opTimeout = 15 * time.Second

// TaskStore is the slice of the storage layer the scheduler needs.
// *storage.Store satisfies it.
type TaskStore interface {
	Task(ctx context.Context, taskID int64) (storage.Task, error)
	TasksWithReminders(ctx context.Context) ([]storage.Task, error)
	SetRemindAt(ctx context.Context, taskID int64, at time.Time) error
	ClearRemindAt(ctx context.Context, taskID int64) error
	MarkDone(ctx context.Context, taskID, byID int64, byName string) error
	MarkReminded(ctx context.Context, taskID int64) error
	SetReminderMessageID(ctx context.Context, taskID int64, msgID *int) error
	AppendAudit(ctx context.Context, e storage.AuditEntry) error
}

// Sender is the outbound slice of transport.Adapter.
type Sender interface {
	SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error)
	EditText(ctx context.Context, ref transport.MessageRef, text string, opt *transport.SendOptions) error
	DeleteMessage(ctx context.Context, ref transport.MessageRef) error
}

type Config struct {
	// RepeatInterval is the nag cadence after the first delivery.
	RepeatInterval time.Duration
	// SnoozeDelay is how far Snooze pushes the reminder.
	SnoozeDelay time.Duration
	// RestoreFloor delays reminders found already past due on boot, so the
	// adapter is up before the first send.
	RestoreFloor time.Duration
}

func (c Config) withDefaults() Config {
	if c.RepeatInterval <= 0 {
		c.RepeatInterval = 3 * time.Minute
	}
	if c.SnoozeDelay <= 0 {
		c.SnoozeDelay = 30 * time.Minute
	}
	if c.RestoreFloor <= 0 {
		c.RestoreFloor = 3 * time.Second
	}
	return c
}

type taskKey struct {
	chatID int64
	taskID int64
}

func (k taskKey) fields() []logx.Field {
	return []logx.Field{logx.Int64("chat_id", k.chatID), logx.Int64("task_id", k.taskID)}
}

// Scheduler owns the one-off reminder timers. Fire timers deliver the first
// message; repeat timers nag at a fixed interval until the reminder is
// acknowledged, snoozed, cleared, or the task is closed.
type Scheduler struct {
	cfg  Config
	st   TaskStore
	send Sender
	log  logx.Logger

	// Markup builds the adapter-specific reply markup attached to reminder
	// messages. Optional; set once during wiring, before Arm/RestoreAll.
	Markup func(taskID int64) any

	mu     sync.Mutex
	fire   map[taskKey]*time.Timer
	repeat map[taskKey]*time.Timer
	// ver suppresses callbacks of timers that were replaced or cancelled
	// after the callback was already scheduled.
	ver map[taskKey]uint64
}

func NewScheduler(cfg Config, st TaskStore, send Sender, log logx.Logger) *Scheduler {
	return &Scheduler{
		cfg:    cfg.withDefaults(),
		st:     st,
		send:   send,
		log:    log,
		fire:   map[taskKey]*time.Timer{},
		repeat: map[taskKey]*time.Timer{},
		ver:    map[taskKey]uint64{},
	}
}

// Arm persists the reminder instant and (re)schedules its fire timer.
// A previous reminder for the same task is replaced, repeat loop included.
func (s *Scheduler) Arm(ctx context.Context, chatID, taskID int64, at time.Time) error {
	if err := s.st.SetRemindAt(ctx, taskID, at); err != nil {
		return err
	}
	s.armTimer(taskKey{chatID, taskID}, at)
	return nil
}

// Cancel stops the fire and repeat timers. The stored remind_at is untouched;
// idempotent.
func (s *Scheduler) Cancel(chatID, taskID int64) {
	k := taskKey{chatID, taskID}
	s.mu.Lock()
	s.stopTimersLocked(k)
	s.ver[k]++
	s.mu.Unlock()
}

// Clear removes the reminder entirely: persisted instant, timers and the
// on-screen reminder message. Returns whether a reminder was actually set,
// so callers can skip the audit entry for a no-op.
func (s *Scheduler) Clear(ctx context.Context, chatID, taskID int64) (bool, error) {
	task, err := s.st.Task(ctx, taskID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return false, err
	}
	had := err == nil && task.RemindAt != nil

	if err := s.st.ClearRemindAt(ctx, taskID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return false, err
	}
	s.Cancel(chatID, taskID)
	s.deleteReminderMessage(ctx, chatID, task)
	return had, nil
}

// Snooze re-arms the reminder at now plus the snooze delay and returns the
// new instant.
func (s *Scheduler) Snooze(ctx context.Context, chatID, taskID, actorID int64, actorName string) (time.Time, error) {
	s.Cancel(chatID, taskID)
	at := time.Now().Add(s.cfg.SnoozeDelay)
	if err := s.Arm(ctx, chatID, taskID, at); err != nil {
		return time.Time{}, err
	}
	s.audit(ctx, storage.AuditEntry{
		ChatID: chatID, ActorID: actorID, ActorName: actorName,
		Action: "SNOOZE_30M", TaskID: taskID,
		MetaJSON: fmt.Sprintf(`{"remind_at":%q}`, at.Format(time.RFC3339)),
	})
	return at, nil
}

// Ack closes the task from its reminder message: marks it done, drops the
// reminder and takes the message off screen.
func (s *Scheduler) Ack(ctx context.Context, chatID, taskID, actorID int64, actorName string) error {
	task, err := s.st.Task(ctx, taskID)
	if err != nil {
		return err
	}
	if err := s.st.MarkDone(ctx, taskID, actorID, actorName); err != nil {
		return err
	}
	s.audit(ctx, storage.AuditEntry{
		ChatID: chatID, ActorID: actorID, ActorName: actorName,
		Action: "DONE", TaskID: taskID,
	})
	s.Cancel(chatID, taskID)
	_ = s.st.ClearRemindAt(ctx, taskID)
	_ = s.st.MarkReminded(ctx, taskID)
	s.deleteReminderMessage(ctx, chatID, task)
	return nil
}

// RestoreAll rebuilds fire timers from the store. Reminders already past due
// are pushed a few seconds out instead of firing mid-boot.
func (s *Scheduler) RestoreAll(ctx context.Context) error {
	tasks, err := s.st.TasksWithReminders(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, t := range tasks {
		at := *t.RemindAt
		if !at.After(now) {
			at = now.Add(s.cfg.RestoreFloor)
		}
		s.armTimer(taskKey{t.ChatID, t.ID}, at)
	}
	s.log.Info("reminders restored", logx.Int("count", len(tasks)))
	return nil
}

// Stop halts every timer. Definitions stay in the store; the next
// RestoreAll brings them back.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	for k := range s.ver {
		s.ver[k]++
	}
	for k, t := range s.fire {
		t.Stop()
		delete(s.fire, k)
	}
	for k, t := range s.repeat {
		t.Stop()
		delete(s.repeat, k)
	}
	s.mu.Unlock()
}

func (s *Scheduler) armTimer(k taskKey, at time.Time) {
	s.mu.Lock()
	s.stopTimersLocked(k)
	ver := s.ver[k] + 1
	s.ver[k] = ver

	delay := time.Until(at)
	if delay < time.Second {
		delay = time.Second
	}
	s.fire[k] = time.AfterFunc(delay, func() { s.onFire(k, ver) })
	s.mu.Unlock()
}

// stopTimersLocked stops both timers for the key. Call with s.mu held.
func (s *Scheduler) stopTimersLocked(k taskKey) {
	if t, ok := s.fire[k]; ok {
		t.Stop()
		delete(s.fire, k)
	}
	if t, ok := s.repeat[k]; ok {
		t.Stop()
		delete(s.repeat, k)
	}
}

func (s *Scheduler) onFire(k taskKey, ver uint64) {
	s.mu.Lock()
	if s.ver[k] != ver {
		s.mu.Unlock()
		return
	}
	delete(s.fire, k)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	task, ok := s.liveTask(ctx, k)
	if !ok {
		return
	}
	s.deliver(ctx, k, task, 0)

	s.mu.Lock()
	if s.ver[k] == ver {
		s.repeat[k] = time.AfterFunc(s.cfg.RepeatInterval, func() { s.onRepeat(k, ver, 1) })
	}
	s.mu.Unlock()
}

func (s *Scheduler) onRepeat(k taskKey, ver uint64, attempt int) {
	s.mu.Lock()
	if s.ver[k] != ver {
		s.mu.Unlock()
		return
	}
	delete(s.repeat, k)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	task, ok := s.liveTask(ctx, k)
	if !ok {
		// Task resolved outside the reminder flow; shut the loop down and
		// forget the stale on-screen message.
		s.Cancel(k.chatID, k.taskID)
		_ = s.st.SetReminderMessageID(ctx, k.taskID, nil)
		return
	}
	s.deliver(ctx, k, task, attempt)

	s.mu.Lock()
	if s.ver[k] == ver {
		s.repeat[k] = time.AfterFunc(s.cfg.RepeatInterval, func() { s.onRepeat(k, ver, attempt+1) })
	}
	s.mu.Unlock()
}

// liveTask re-reads the task and reports whether the reminder should still
// run: the row exists, belongs to the key's chat, is open and still armed.
func (s *Scheduler) liveTask(ctx context.Context, k taskKey) (storage.Task, bool) {
	task, err := s.st.Task(ctx, k.taskID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn("reminder task read failed", append(k.fields(), logx.Err(err))...)
		}
		return storage.Task{}, false
	}
	if task.ChatID != k.chatID || task.Closed() || task.RemindAt == nil {
		return storage.Task{}, false
	}
	return task, true
}

// deliver edits the existing reminder message in place, or sends a fresh one
// when there is none or the old one is gone. Failures are logged only; the
// repeat cadence is the retry.
func (s *Scheduler) deliver(ctx context.Context, k taskKey, task storage.Task, attempt int) {
	text := fmt.Sprintf("⏰ Напоминание по задаче #%d:\n%s", task.ID, task.Text)
	if attempt > 0 {
		text += fmt.Sprintf("\n\n(повтор: %d)", attempt)
	}
	opt := &transport.SendOptions{DisablePreview: true}
	if s.Markup != nil {
		opt.ReplyMarkupAdapter = s.Markup(task.ID)
	}

	if task.ReminderMessageID != nil {
		ref := transport.MessageRef{ChatID: k.chatID, MessageID: *task.ReminderMessageID}
		err := s.send.EditText(ctx, ref, text, opt)
		switch {
		case err == nil, errors.Is(err, transport.ErrNotModified):
			return
		case errors.Is(err, transport.ErrMessageGone):
			// fall through to a fresh send
		default:
			s.log.Warn("reminder edit failed", append(k.fields(), logx.Int("attempt", attempt), logx.Err(err))...)
		}
	}

	ref, err := s.send.SendText(ctx, transport.ChatTarget{ChatID: k.chatID}, text, opt)
	if err != nil {
		s.log.Warn("reminder send failed", append(k.fields(), logx.Int("attempt", attempt), logx.Err(err))...)
		return
	}
	msgID := ref.MessageID
	if err := s.st.SetReminderMessageID(ctx, k.taskID, &msgID); err != nil {
		s.log.Warn("reminder message id persist failed", append(k.fields(), logx.Err(err))...)
	}
}

func (s *Scheduler) deleteReminderMessage(ctx context.Context, chatID int64, task storage.Task) {
	if task.ReminderMessageID == nil {
		return
	}
	ref := transport.MessageRef{ChatID: chatID, MessageID: *task.ReminderMessageID}
	if err := s.send.DeleteMessage(ctx, ref); err != nil && !errors.Is(err, transport.ErrMessageGone) {
		s.log.Debug("reminder message delete failed",
			logx.Int64("chat_id", chatID), logx.Int64("task_id", task.ID), logx.Err(err))
	}
	_ = s.st.SetReminderMessageID(ctx, task.ID, nil)
}

func (s *Scheduler) audit(ctx context.Context, e storage.AuditEntry) {
	if err := s.st.AppendAudit(ctx, e); err != nil {
		s.log.Warn("audit append failed", logx.String("action", e.Action), logx.Err(err))
	}
}
