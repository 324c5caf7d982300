package bot

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"taskbot/internal/rates"
	"taskbot/internal/reminder"
	"taskbot/internal/storage"
	"taskbot/internal/transport"
	logx "taskbot/pkg/logx"
)

type recordedMsg struct {
	ChatID    int64
	MessageID int
	Text      string
}

// fakeAdapter records outbound traffic and serves admin lookups.
type fakeAdapter struct {
	mu      sync.Mutex
	nextID  int
	sent    []recordedMsg
	edits   []recordedMsg
	deleted []int
	admins  map[int64]bool
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{admins: map[int64]bool{}}
}

func (a *fakeAdapter) Start(ctx context.Context, out chan<- transport.Update) error { return nil }
func (a *fakeAdapter) Stop(ctx context.Context) error                              { return nil }

func (a *fakeAdapter) SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextID++
	m := recordedMsg{ChatID: to.ChatID, MessageID: a.nextID, Text: text}
	a.sent = append(a.sent, m)
	return transport.MessageRef{ChatID: to.ChatID, MessageID: m.MessageID}, nil
}

func (a *fakeAdapter) EditText(ctx context.Context, ref transport.MessageRef, text string, opt *transport.SendOptions) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.edits = append(a.edits, recordedMsg{ChatID: ref.ChatID, MessageID: ref.MessageID, Text: text})
	return nil
}

func (a *fakeAdapter) DeleteMessage(ctx context.Context, ref transport.MessageRef) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deleted = append(a.deleted, ref.MessageID)
	return nil
}

func (a *fakeAdapter) AnswerCallback(ctx context.Context, callbackID, text string) error { return nil }

func (a *fakeAdapter) IsChatAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.admins[userID], nil
}

func (a *fakeAdapter) lastEdit(t *testing.T) recordedMsg {
	t.Helper()
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.edits) == 0 {
		t.Fatal("no panel edits recorded")
	}
	return a.edits[len(a.edits)-1]
}

func (a *fakeAdapter) sentCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.sent)
}

func newTestBot(t *testing.T) (*Bot, *storage.Store, *fakeAdapter) {
	t.Helper()
	st, err := storage.Open(storage.Config{Path: filepath.Join(t.TempDir(), "test.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ad := newFakeAdapter()
	sched := reminder.NewScheduler(reminder.Config{}, st, ad, logx.Nop())
	t.Cleanup(sched.Stop)
	tick := reminder.NewTicker(reminder.TickerConfig{DefaultZone: time.UTC}, st, ad, logx.Nop())
	b := New(Config{DefaultZone: time.UTC}, st, ad, sched, tick, rates.New(logx.Nop()), logx.Nop())
	return b, st, ad
}

func command(chatID, fromID int64, name, cmd, args string) transport.Update {
	return transport.Update{Kind: transport.UpdateCommand, Message: &transport.Message{
		ChatID: chatID, FromID: fromID, FromName: name, Command: cmd, Args: args, IsPrivate: true,
	}}
}

func textMsg(chatID, fromID int64, name, text string) transport.Update {
	return transport.Update{Kind: transport.UpdateMessage, Message: &transport.Message{
		ID: 900, ChatID: chatID, FromID: fromID, FromName: name, Text: text, IsPrivate: true,
	}}
}

func callback(chatID, fromID int64, name, data string, group bool) transport.Update {
	return transport.Update{Kind: transport.UpdateCallback, Callback: &transport.Callback{
		ID: "cb", ChatID: chatID, FromID: fromID, FromName: name, MessageID: 800,
		Data: data, IsGroup: group, IsPrivate: !group,
	}}
}

func TestStartCommandPostsPanel(t *testing.T) {
	b, st, ad := newTestBot(t)
	ctx := context.Background()

	b.handleUpdate(ctx, command(10, 1, "Ann", "start", ""))

	mid, err := st.PanelMessageID(ctx, 10)
	if err != nil || mid == 0 {
		t.Fatalf("panel message id = %d, %v", mid, err)
	}
	if ad.sentCount() < 2 {
		t.Fatalf("expected panel plus hint, got %d messages", ad.sentCount())
	}
	ad.mu.Lock()
	first := ad.sent[0].Text
	hint := ad.sent[1].Text
	ad.mu.Unlock()
	if !strings.Contains(first, "Пока нет задач") {
		t.Errorf("panel text = %q", first)
	}
	if !strings.Contains(hint, "Закрепи") {
		t.Errorf("first-run hint = %q", hint)
	}
}

func TestAddTaskFlowChainsIntoReminder(t *testing.T) {
	b, st, ad := newTestBot(t)
	ctx := context.Background()

	b.handleUpdate(ctx, callback(10, 1, "Ann", cbAdd, false))
	p, err := st.Pending(ctx, 10, 1)
	if err != nil || p.Kind != storage.PendingAddTaskText {
		t.Fatalf("pending after add button = %+v, %v", p, err)
	}

	b.handleUpdate(ctx, textMsg(10, 1, "Ann", "купить молоко"))

	tasks, err := st.OpenTasks(ctx, 10)
	if err != nil || len(tasks) != 1 {
		t.Fatalf("open tasks = %v, %v", tasks, err)
	}
	if tasks[0].Text != "купить молоко" {
		t.Errorf("task text = %q", tasks[0].Text)
	}

	p, err = st.Pending(ctx, 10, 1)
	if err != nil || p.Kind != storage.PendingRemindTime || p.TaskID != tasks[0].ID {
		t.Fatalf("pending after create = %+v, %v", p, err)
	}
	if got := ad.lastEdit(t).Text; !strings.Contains(got, fmt.Sprintf("Добавил задачу #%d", tasks[0].ID)) {
		t.Errorf("panel edit = %q", got)
	}

	b.handleUpdate(ctx, textMsg(10, 1, "Ann", "через 30 мин"))

	task, err := st.Task(ctx, tasks[0].ID)
	if err != nil || task.RemindAt == nil {
		t.Fatalf("task after remind time = %+v, %v", task, err)
	}
	until := time.Until(*task.RemindAt)
	if until < 29*time.Minute || until > 31*time.Minute {
		t.Errorf("remind_at %v from now", until)
	}
	if _, err := st.Pending(ctx, 10, 1); err == nil {
		t.Error("pending should be cleared after setting the reminder")
	}
	if got := ad.lastEdit(t).Text; !strings.Contains(got, "✅ Напоминание:") {
		t.Errorf("flash = %q", got)
	}
}

func TestTaskTextLimitRePrompts(t *testing.T) {
	b, st, ad := newTestBot(t)
	ctx := context.Background()

	b.handleUpdate(ctx, callback(10, 1, "Ann", cbAdd, false))
	b.handleUpdate(ctx, textMsg(10, 1, "Ann", strings.Repeat("ы", 301)))

	if tasks, _ := st.OpenTasks(ctx, 10); len(tasks) != 0 {
		t.Fatalf("overlong text created a task: %v", tasks)
	}
	if got := ad.lastEdit(t).Text; !strings.Contains(got, "Текст слишком длинный") {
		t.Errorf("panel edit = %q", got)
	}
	// The flow stays armed for a retry.
	if p, err := st.Pending(ctx, 10, 1); err != nil || p.Kind != storage.PendingAddTaskText {
		t.Fatalf("pending = %+v, %v", p, err)
	}
}

func TestPickDoneClosesTaskAndAudits(t *testing.T) {
	b, st, ad := newTestBot(t)
	ctx := context.Background()

	id, err := st.CreateTask(ctx, 10, "тест", 1, "Ann")
	if err != nil {
		t.Fatal(err)
	}

	b.handleUpdate(ctx, callback(10, 2, "Bob", dataPickDone(id), false))

	task, err := st.Task(ctx, id)
	if err != nil || !task.Done {
		t.Fatalf("task = %+v, %v", task, err)
	}
	if task.DoneByName != "Bob" {
		t.Errorf("done_by = %q", task.DoneByName)
	}
	if got := ad.lastEdit(t).Text; !strings.Contains(got, "✅ Готово.") {
		t.Errorf("flash = %q", got)
	}

	entries, err := st.RecentAudit(ctx, 10, 5)
	if err != nil || len(entries) == 0 {
		t.Fatalf("audit = %v, %v", entries, err)
	}
	if entries[0].Action != "DONE" || entries[0].TaskID != id {
		t.Errorf("audit head = %+v", entries[0])
	}

	// Second press reports it is already closed.
	b.handleUpdate(ctx, callback(10, 2, "Bob", dataPickDone(id), false))
	if got := ad.lastEdit(t).Text; !strings.Contains(got, "Уже выполнено") {
		t.Errorf("repeat flash = %q", got)
	}
}

func TestGroupDeleteRequiresAuthorOrAdmin(t *testing.T) {
	b, st, ad := newTestBot(t)
	ctx := context.Background()

	id, err := st.CreateTask(ctx, -50, "общая задача", 1, "Ann")
	if err != nil {
		t.Fatal(err)
	}

	b.handleUpdate(ctx, callback(-50, 2, "Bob", dataPickDel(id), true))
	if task, _ := st.Task(ctx, id); task.Deleted {
		t.Fatal("non-author deleted the task")
	}
	if got := ad.lastEdit(t).Text; !strings.Contains(got, "🚫") {
		t.Errorf("denial flash = %q", got)
	}

	ad.mu.Lock()
	ad.admins[2] = true
	ad.mu.Unlock()

	b.handleUpdate(ctx, callback(-50, 2, "Bob", dataPickDel(id), true))
	if task, _ := st.Task(ctx, id); !task.Deleted {
		t.Fatal("admin could not delete the task")
	}
}

func TestReminderMessageAck(t *testing.T) {
	b, st, ad := newTestBot(t)
	ctx := context.Background()

	id, err := st.CreateTask(ctx, 10, "позвонить", 1, "Ann")
	if err != nil {
		t.Fatal(err)
	}
	if err := st.SetRemindAt(ctx, id, time.Now().Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	msgID := 800
	if err := st.SetReminderMessageID(ctx, id, &msgID); err != nil {
		t.Fatal(err)
	}

	b.handleUpdate(ctx, callback(10, 1, "Ann", dataReminderMsg(ReminderAck, id), false))

	task, err := st.Task(ctx, id)
	if err != nil || !task.Done || task.RemindAt != nil {
		t.Fatalf("task after ack = %+v, %v", task, err)
	}
	ad.mu.Lock()
	deleted := append([]int(nil), ad.deleted...)
	ad.mu.Unlock()
	found := false
	for _, d := range deleted {
		if d == msgID {
			found = true
		}
	}
	if !found {
		t.Errorf("reminder message %d not deleted: %v", msgID, deleted)
	}
}

func TestRecurringAddViaPresetButton(t *testing.T) {
	b, st, ad := newTestBot(t)
	ctx := context.Background()

	b.handleUpdate(ctx, callback(10, 1, "Ann", cbRecurAdd, false))
	b.handleUpdate(ctx, textMsg(10, 1, "Ann", "Оплата кредитов"))

	if p, err := st.Pending(ctx, 10, 1); err != nil || p.Kind != storage.PendingRecurringSchedule || p.Meta != "Оплата кредитов" {
		t.Fatalf("pending = %+v, %v", p, err)
	}

	b.handleUpdate(ctx, callback(10, 1, "Ann", "RSCHED:M:5", false))

	rows, err := st.RecurringForChat(ctx, 10)
	if err != nil || len(rows) != 1 {
		t.Fatalf("recurring rows = %v, %v", rows, err)
	}
	r := rows[0]
	if r.Text != "Оплата кредитов" || r.DayOfMonth != 5 {
		t.Errorf("rule = %+v", r)
	}
	if r.NextRunAt.Day() != 5 || r.NextRunAt.Hour() != 10 {
		t.Errorf("next run = %v", r.NextRunAt)
	}
	if got := ad.lastEdit(t).Text; !strings.Contains(got, "Добавлено повторяющееся") {
		t.Errorf("flash = %q", got)
	}
}

func TestRecurringCustomDayText(t *testing.T) {
	b, st, ad := newTestBot(t)
	ctx := context.Background()

	b.handleUpdate(ctx, callback(10, 1, "Ann", cbRecurAdd, false))
	b.handleUpdate(ctx, textMsg(10, 1, "Ann", "Страховка"))
	b.handleUpdate(ctx, callback(10, 1, "Ann", cbRecurCustom, false))
	b.handleUpdate(ctx, textMsg(10, 1, "Ann", "15 ноября"))

	rows, err := st.RecurringForChat(ctx, 10)
	if err != nil || len(rows) != 1 {
		t.Fatalf("recurring rows = %v, %v", rows, err)
	}
	r := rows[0]
	if r.Text != "Страховка" || r.DayOfMonth != 15 || r.Month != 11 {
		t.Errorf("rule = %+v", r)
	}
	if got := ad.lastEdit(t).Text; !strings.Contains(got, "каждый год 15 ноя") {
		t.Errorf("flash = %q", got)
	}
}

func TestTimezoneCommand(t *testing.T) {
	b, st, ad := newTestBot(t)
	ctx := context.Background()

	b.handleUpdate(ctx, command(10, 1, "Ann", "timezone", "Europe/Moscow"))
	if tz, err := st.ChatTimezone(ctx, 10); err != nil || tz != "Europe/Moscow" {
		t.Fatalf("stored tz = %q, %v", tz, err)
	}

	b.handleUpdate(ctx, command(10, 1, "Ann", "timezone", "Nope/Zone"))
	if tz, _ := st.ChatTimezone(ctx, 10); tz != "Europe/Moscow" {
		t.Errorf("invalid zone overwrote setting: %q", tz)
	}
	ad.mu.Lock()
	last := ad.sent[len(ad.sent)-1].Text
	ad.mu.Unlock()
	if !strings.Contains(last, "❌ Неверный часовой пояс") {
		t.Errorf("reply = %q", last)
	}
}
