package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskbot/internal/schedule"
	"taskbot/internal/storage"
	"taskbot/internal/transport"
	"taskbot/pkg/tgui"
)

// addTask inserts the task and records the action.
func (b *Bot) addTask(ctx context.Context, chatID, ownerID int64, ownerName, text string) (int64, error) {
	id, err := b.st.CreateTask(ctx, chatID, text, ownerID, ownerName)
	if err != nil {
		return 0, err
	}
	b.audit(ctx, storage.AuditEntry{
		ChatID: chatID, ActorID: ownerID, ActorName: ownerName,
		Action: actionAdd, TaskID: id,
	})
	return id, nil
}

// setReminder arms the reminder and records the action with the instant.
func (b *Bot) setReminder(ctx context.Context, chatID, taskID, actorID int64, actorName string, at time.Time) error {
	if err := b.sched.Arm(ctx, chatID, taskID, at); err != nil {
		return err
	}
	b.audit(ctx, storage.AuditEntry{
		ChatID: chatID, ActorID: actorID, ActorName: actorName,
		Action: "REM_SET", TaskID: taskID,
		MetaJSON: fmt.Sprintf(`{"remind_at":%q}`, at.Format(time.RFC3339)),
	})
	return nil
}

// clearReminder drops the reminder; the audit entry is written only when
// there was something to clear.
func (b *Bot) clearReminder(ctx context.Context, chatID, taskID, actorID int64, actorName string) error {
	had, err := b.sched.Clear(ctx, chatID, taskID)
	if err != nil {
		return err
	}
	if had {
		b.audit(ctx, storage.AuditEntry{
			ChatID: chatID, ActorID: actorID, ActorName: actorName,
			Action: "REM_CLEAR", TaskID: taskID,
		})
	}
	return nil
}

// markDone closes the task. Returns false without touching anything when it
// is already done, so the caller can word the confirmation accordingly.
func (b *Bot) markDone(ctx context.Context, task storage.Task, actorID int64, actorName string) (bool, error) {
	if task.Done {
		return false, nil
	}
	if err := b.sched.Ack(ctx, task.ChatID, task.ID, actorID, actorName); err != nil {
		return false, err
	}
	return true, nil
}

// deleteTask soft-deletes the task and tears down its reminder state.
func (b *Bot) deleteTask(ctx context.Context, task storage.Task, actorID int64, actorName string) (bool, error) {
	err := b.st.DeleteTask(ctx, task.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	b.audit(ctx, storage.AuditEntry{
		ChatID: task.ChatID, ActorID: actorID, ActorName: actorName,
		Action: actionDelete, TaskID: task.ID,
	})
	b.sched.Cancel(task.ChatID, task.ID)
	if task.ReminderMessageID != nil {
		b.tryDeleteMessage(ctx, task.ChatID, *task.ReminderMessageID)
	}
	if err := b.st.SetReminderMessageID(ctx, task.ID, nil); err != nil && !errors.Is(err, storage.ErrNotFound) {
		b.log.Warn("reminder message id reset failed", logxChat(task.ChatID), logxErr(err))
	}
	return true, nil
}

// addRecurring inserts the standing rule and records the action. The computed
// first run is read back for the confirmation message.
func (b *Bot) addRecurring(ctx context.Context, chatID, ownerID int64, ownerName, text string, rule schedule.Rule) (storage.RecurringReminder, error) {
	id, err := b.tick.AddRecurring(ctx, chatID, ownerID, ownerName, text, rule)
	if err != nil {
		return storage.RecurringReminder{}, err
	}
	b.audit(ctx, storage.AuditEntry{
		ChatID: chatID, ActorID: ownerID, ActorName: ownerName,
		Action: "RECUR_ADD",
		MetaJSON: fmt.Sprintf(`{"rec_id":%d}`, id),
	})
	r, err := b.st.Recurring(ctx, id)
	if err != nil {
		return storage.RecurringReminder{ID: id}, err
	}
	return r, nil
}

// removeRecurring deletes the rule when it belongs to the chat.
func (b *Bot) removeRecurring(ctx context.Context, chatID, recID, actorID int64, actorName string) (bool, error) {
	ok, err := b.tick.RemoveRecurring(ctx, chatID, recID)
	if err != nil || !ok {
		return ok, err
	}
	b.audit(ctx, storage.AuditEntry{
		ChatID: chatID, ActorID: actorID, ActorName: actorName,
		Action: "RECUR_DEL",
		MetaJSON: fmt.Sprintf(`{"rec_id":%d}`, recID),
	})
	return true, nil
}

// chatTask reads a task and verifies it is visible from the chat: exists,
// belongs to it and is not soft-deleted.
func (b *Bot) chatTask(ctx context.Context, chatID, taskID int64) (storage.Task, bool) {
	task, err := b.st.Task(ctx, taskID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			b.log.Warn("task read failed", logxChat(chatID), logxErr(err))
		}
		return storage.Task{}, false
	}
	if task.ChatID != chatID || task.Deleted {
		return storage.Task{}, false
	}
	return task, true
}

// sendBuilt posts a pre-built message and schedules its deletion.
func (b *Bot) sendBuilt(ctx context.Context, chatID int64, msg tgui.Message, ttl time.Duration) {
	ref, err := msg.Send(ctx, b.ad, transport.ChatTarget{ChatID: chatID})
	if err != nil {
		b.log.Warn("reply send failed", logxChat(chatID), logxErr(err))
		return
	}
	b.deleteLater(chatID, ref.MessageID, ttl)
}

// sendReply posts a throwaway plain-text reply and schedules its deletion.
func (b *Bot) sendReply(ctx context.Context, chatID int64, text string, opt *transport.SendOptions, ttl time.Duration) {
	ref, err := b.ad.SendText(ctx, transport.ChatTarget{ChatID: chatID}, text, opt)
	if err != nil {
		b.log.Warn("reply send failed", logxChat(chatID), logxErr(err))
		return
	}
	b.deleteLater(chatID, ref.MessageID, ttl)
}
