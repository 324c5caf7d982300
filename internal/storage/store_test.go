package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"taskbot/internal/schedule"
	logx "taskbot/pkg/logx"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(Config{Path: filepath.Join(t.TempDir(), "test.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestTaskLifecycle(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	id, err := st.CreateTask(ctx, 100, "buy milk", 7, "alice")
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	task, err := st.Task(ctx, id)
	if err != nil {
		t.Fatalf("Task: %v", err)
	}
	if task.Text != "buy milk" || task.ChatID != 100 || task.OwnerName != "alice" {
		t.Fatalf("unexpected task: %+v", task)
	}
	if task.Done || task.Deleted || task.RemindAt != nil {
		t.Fatalf("fresh task has state set: %+v", task)
	}

	open, err := st.OpenTasks(ctx, 100)
	if err != nil || len(open) != 1 {
		t.Fatalf("OpenTasks = %v, %v", open, err)
	}

	if err := st.MarkDone(ctx, id, 8, "bob"); err != nil {
		t.Fatalf("MarkDone: %v", err)
	}
	task, _ = st.Task(ctx, id)
	if !task.Done || task.DoneByName != "bob" || task.DoneAt == nil {
		t.Fatalf("after MarkDone: %+v", task)
	}

	done, err := st.DoneTasks(ctx, 100, 10)
	if err != nil || len(done) != 1 {
		t.Fatalf("DoneTasks = %v, %v", done, err)
	}

	if err := st.DeleteTask(ctx, id); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	open, _ = st.OpenTasks(ctx, 100)
	if len(open) != 0 {
		t.Fatalf("deleted task still listed: %v", open)
	}
	// Soft delete keeps the row readable.
	task, err = st.Task(ctx, id)
	if err != nil || !task.Deleted {
		t.Fatalf("Task after delete = %+v, %v", task, err)
	}
}

func TestTaskNotFound(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if _, err := st.Task(ctx, 12345); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Task err = %v, want ErrNotFound", err)
	}
	if err := st.MarkDone(ctx, 12345, 1, "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("MarkDone err = %v, want ErrNotFound", err)
	}
	if err := st.SetRemindAt(ctx, 12345, time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("SetRemindAt err = %v, want ErrNotFound", err)
	}
}

func TestReminderFields(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	id, _ := st.CreateTask(ctx, 100, "call dentist", 7, "alice")
	at := time.Date(2025, 6, 20, 9, 30, 0, 0, time.UTC)

	if err := st.SetRemindAt(ctx, id, at); err != nil {
		t.Fatalf("SetRemindAt: %v", err)
	}
	task, _ := st.Task(ctx, id)
	if task.RemindAt == nil || !task.RemindAt.Equal(at) {
		t.Fatalf("RemindAt = %v, want %v", task.RemindAt, at)
	}

	msgID := 555
	if err := st.SetReminderMessageID(ctx, id, &msgID); err != nil {
		t.Fatalf("SetReminderMessageID: %v", err)
	}
	if err := st.MarkReminded(ctx, id); err != nil {
		t.Fatalf("MarkReminded: %v", err)
	}
	task, _ = st.Task(ctx, id)
	if !task.Reminded || task.ReminderMessageID == nil || *task.ReminderMessageID != 555 {
		t.Fatalf("after ack: %+v", task)
	}

	// Re-arming resets the ack marker.
	if err := st.SetRemindAt(ctx, id, at.Add(time.Hour)); err != nil {
		t.Fatalf("SetRemindAt again: %v", err)
	}
	task, _ = st.Task(ctx, id)
	if task.Reminded {
		t.Fatalf("re-arm kept reminded flag: %+v", task)
	}

	if err := st.ClearRemindAt(ctx, id); err != nil {
		t.Fatalf("ClearRemindAt: %v", err)
	}
	task, _ = st.Task(ctx, id)
	if task.RemindAt != nil || task.ReminderMessageID != nil {
		t.Fatalf("after clear: %+v", task)
	}
}

func TestTasksWithReminders(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	armed, _ := st.CreateTask(ctx, 100, "armed", 7, "alice")
	bare, _ := st.CreateTask(ctx, 100, "bare", 7, "alice")
	closed, _ := st.CreateTask(ctx, 200, "closed", 7, "alice")

	_ = st.SetRemindAt(ctx, armed, time.Now().Add(time.Hour))
	_ = st.SetRemindAt(ctx, closed, time.Now().Add(time.Hour))
	_ = st.MarkDone(ctx, closed, 7, "alice")

	got, err := st.TasksWithReminders(ctx)
	if err != nil {
		t.Fatalf("TasksWithReminders: %v", err)
	}
	if len(got) != 1 || got[0].ID != armed {
		t.Fatalf("TasksWithReminders = %+v, want only task %d", got, armed)
	}
	_ = bare
}

func TestPendingRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if _, err := st.Pending(ctx, 100, 7); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty Pending err = %v, want ErrNotFound", err)
	}

	in := PendingInput{ChatID: 100, UserID: 7, Kind: PendingRemindTime, TaskID: 42, Meta: "m"}
	if err := st.SetPending(ctx, in); err != nil {
		t.Fatalf("SetPending: %v", err)
	}
	got, err := st.Pending(ctx, 100, 7)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if got.Kind != PendingRemindTime || got.TaskID != 42 || got.Meta != "m" {
		t.Fatalf("Pending = %+v", got)
	}

	// Overwrite replaces, never stacks.
	in.Kind = PendingAddTaskText
	in.TaskID = 0
	if err := st.SetPending(ctx, in); err != nil {
		t.Fatalf("SetPending overwrite: %v", err)
	}
	got, _ = st.Pending(ctx, 100, 7)
	if got.Kind != PendingAddTaskText || got.TaskID != 0 {
		t.Fatalf("overwritten Pending = %+v", got)
	}

	if err := st.ClearPending(ctx, 100, 7); err != nil {
		t.Fatalf("ClearPending: %v", err)
	}
	if _, err := st.Pending(ctx, 100, 7); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cleared Pending err = %v, want ErrNotFound", err)
	}
	// Clearing twice is fine.
	if err := st.ClearPending(ctx, 100, 7); err != nil {
		t.Fatalf("double ClearPending: %v", err)
	}
}

func TestChatState(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	id, err := st.PanelMessageID(ctx, 100)
	if err != nil || id != 0 {
		t.Fatalf("empty PanelMessageID = %d, %v", id, err)
	}
	if err := st.SetPanelMessageID(ctx, 100, 999); err != nil {
		t.Fatalf("SetPanelMessageID: %v", err)
	}
	if id, _ = st.PanelMessageID(ctx, 100); id != 999 {
		t.Fatalf("PanelMessageID = %d, want 999", id)
	}

	tz, err := st.ChatTimezone(ctx, 100)
	if err != nil || tz != "" {
		t.Fatalf("default ChatTimezone = %q, %v", tz, err)
	}
	if err := st.SetChatTimezone(ctx, 100, "Europe/Moscow"); err != nil {
		t.Fatalf("SetChatTimezone: %v", err)
	}
	if tz, _ = st.ChatTimezone(ctx, 100); tz != "Europe/Moscow" {
		t.Fatalf("ChatTimezone = %q", tz)
	}
	// Setting tz must not clobber the panel id stored in the same row.
	if id, _ = st.PanelMessageID(ctx, 100); id != 999 {
		t.Fatalf("PanelMessageID after tz update = %d, want 999", id)
	}
}

func TestRecurringLifecycle(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	next := time.Date(2025, 7, 5, 10, 0, 0, 0, time.UTC)
	id, err := st.CreateRecurring(ctx, RecurringReminder{
		ChatID: 100, Text: "pay rent", Kind: schedule.Monthly,
		DayOfMonth: 5, Hour: 10, Minute: 0, NextRunAt: next,
		OwnerID: 7, OwnerName: "alice",
	})
	if err != nil {
		t.Fatalf("CreateRecurring: %v", err)
	}

	r, err := st.Recurring(ctx, id)
	if err != nil {
		t.Fatalf("Recurring: %v", err)
	}
	if r.Kind != schedule.Monthly || r.DayOfMonth != 5 || r.Month != 0 || !r.NextRunAt.Equal(next) {
		t.Fatalf("Recurring = %+v", r)
	}

	list, err := st.RecurringForChat(ctx, 100)
	if err != nil || len(list) != 1 {
		t.Fatalf("RecurringForChat = %v, %v", list, err)
	}

	due, err := st.DueRecurring(ctx, next.Add(-time.Minute))
	if err != nil || len(due) != 0 {
		t.Fatalf("early DueRecurring = %v, %v", due, err)
	}
	due, err = st.DueRecurring(ctx, next)
	if err != nil || len(due) != 1 {
		t.Fatalf("DueRecurring at boundary = %v, %v", due, err)
	}

	adv := next.AddDate(0, 1, 0)
	if err := st.AdvanceRecurring(ctx, id, adv); err != nil {
		t.Fatalf("AdvanceRecurring: %v", err)
	}
	due, _ = st.DueRecurring(ctx, next)
	if len(due) != 0 {
		t.Fatalf("advanced reminder still due: %v", due)
	}

	if err := st.DeleteRecurring(ctx, id); err != nil {
		t.Fatalf("DeleteRecurring: %v", err)
	}
	if _, err := st.Recurring(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted Recurring err = %v, want ErrNotFound", err)
	}
}

func TestRecurringYearlyMonthRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	id, err := st.CreateRecurring(ctx, RecurringReminder{
		ChatID: 100, Text: "visa renewal", Kind: schedule.Yearly,
		DayOfMonth: 15, Month: 11, Hour: 10,
		NextRunAt: time.Date(2025, 11, 15, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateRecurring: %v", err)
	}
	r, err := st.Recurring(ctx, id)
	if err != nil {
		t.Fatalf("Recurring: %v", err)
	}
	if r.Kind != schedule.Yearly || r.Month != 11 {
		t.Fatalf("yearly round trip = %+v", r)
	}
}

func TestAuditAppendAndList(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := st.AppendAudit(ctx, AuditEntry{
			ChatID: 100, ActorID: 7, ActorName: "alice",
			Action: "task_done", TaskID: int64(i + 1),
		})
		if err != nil {
			t.Fatalf("AppendAudit: %v", err)
		}
	}

	got, err := st.RecentAudit(ctx, 100, 2)
	if err != nil {
		t.Fatalf("RecentAudit: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("RecentAudit len = %d, want 2", len(got))
	}
	// Newest first.
	if got[0].TaskID != 3 || got[1].TaskID != 2 {
		t.Fatalf("RecentAudit order = %+v", got)
	}
	if got[0].Action != "task_done" || got[0].ActorName != "alice" || got[0].CreatedAt.IsZero() {
		t.Fatalf("RecentAudit entry = %+v", got[0])
	}
}
