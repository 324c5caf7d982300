package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"taskbot/internal/schedule"
	"taskbot/internal/storage"
	"taskbot/pkg/tgui"
)

const dayTimeFormat = "02.01 15:04"

// screenKind enumerates the panel screens.
type screenKind int

const (
	screenList screenKind = iota
	screenHistory
	screenAddPrompt
	screenPickDone
	screenPickDelete
	screenPickRemind
	screenRemindPrompt
	screenRemindManualPrompt
	screenFlash
	screenRecurList
	screenRecurAddPrompt
	screenRecurSchedule
	screenRecurCustomDay
	screenRates
)

// screen is one render request: the kind plus whatever payload it needs.
type screen struct {
	kind screenKind

	hint      string
	flashLine string
	task      storage.Task // remind prompt
	recurText string       // recurring add flow
	rateText  string
}

func panelKeyboard() *tgui.Inline {
	return tgui.NewInline().
		Row(tgui.Btn("📋 Список", cbList), tgui.Btn("➕ Добавить", cbAdd)).
		Row(tgui.Btn("✅ Выполнить", cbDone), tgui.Btn("🗑 Удалить", cbDelete), tgui.Btn("⏰ Напоминание", cbRemind)).
		Row(tgui.Btn("🕘 История", cbHist), tgui.Btn("💱 Курс USDT", cbRates)).
		Row(tgui.Btn("🔄 Повторяющиеся", cbRecur))
}

func remindQuickKeyboard(taskID int64) *tgui.Inline {
	return tgui.NewInline().
		Row(tgui.Btn("❌ Без напоминания", dataRemindSet(taskID, QuickNone))).
		Row(tgui.Btn("⏳ +30 минут", dataRemindSet(taskID, Quick30M)), tgui.Btn("⏳ +2 часа", dataRemindSet(taskID, Quick2H))).
		Row(tgui.Btn("☀️ Завтра в 10:00", dataRemindSet(taskID, QuickTom10))).
		Row(tgui.Btn("⌨️ Ввести время текстом", dataRemindSet(taskID, QuickManual)))
}

func reminderActionKeyboard(taskID int64) *tgui.Inline {
	return tgui.NewInline().
		Row(tgui.Btn("✅ Готово", dataReminderMsg(ReminderAck, taskID)),
			tgui.Btn("⏳ +30 минут", dataReminderMsg(ReminderSnooze30, taskID)))
}

func tasksPickKeyboard(tasks []storage.Task, kind CallbackKind) *tgui.Inline {
	kb := tgui.NewInline()
	for _, t := range tasks {
		short := tgui.TruncRunes(t.Text, 40)
		var label, data string
		switch kind {
		case CallbackPickDelete:
			status := "🔹"
			if t.Done {
				status = "✅"
			}
			label = fmt.Sprintf("%s #%d %s", status, t.ID, short)
			data = dataPickDel(t.ID)
		case CallbackPickDone:
			label = fmt.Sprintf("#%d %s", t.ID, short)
			data = dataPickDone(t.ID)
		default:
			label = fmt.Sprintf("#%d %s", t.ID, short)
			data = dataPickRem(t.ID)
		}
		kb.Row(tgui.Btn(label, data))
	}
	kb.Row(tgui.Btn("⬅️ Назад", cbList))
	return kb
}

func recurListKeyboard(rows []storage.RecurringReminder) *tgui.Inline {
	kb := tgui.NewInline()
	del := make([]tele.Btn, 0, len(rows))
	for _, r := range rows {
		del = append(del, tgui.Btn(fmt.Sprintf("🗑 #%d", r.ID), dataRecurDel(r.ID)))
	}
	kb.Grid(2, del...)
	kb.Row(tgui.Btn("➕ Добавить", cbRecurAdd))
	kb.Row(tgui.Btn("⬅️ Назад", cbList))
	return kb
}

func recurScheduleKeyboard() *tgui.Inline {
	return tgui.NewInline().
		Row(
			tgui.Btn("📅 1-го", dataRecurSched(schedule.Rule{Kind: schedule.Monthly, Day: 1})),
			tgui.Btn("📅 5-го", dataRecurSched(schedule.Rule{Kind: schedule.Monthly, Day: 5})),
			tgui.Btn("📅 15-го", dataRecurSched(schedule.Rule{Kind: schedule.Monthly, Day: 15}))).
		Row(
			tgui.Btn("📅 1 января", dataRecurSched(schedule.Rule{Kind: schedule.Yearly, Day: 1, Month: 1})),
			tgui.Btn("📅 15 декабря", dataRecurSched(schedule.Rule{Kind: schedule.Yearly, Day: 15, Month: 12}))).
		Row(tgui.Btn("⌨️ Своя дата", cbRecurCustom)).
		Row(tgui.Btn("⬅️ Назад", cbRecur))
}

func backKeyboard(data string) *tgui.Inline {
	return tgui.NewInline().Row(tgui.Btn("⬅️ Назад", data))
}

func formatTaskLine(idx int, t storage.Task, loc *time.Location) string {
	status := "🔹"
	if t.Done {
		status = "✅"
	}
	line := fmt.Sprintf("%d. %s %s", idx, status, t.Text)
	if t.RemindAt != nil {
		line += " ⏰ " + t.RemindAt.In(loc).Format(dayTimeFormat)
	}
	return line
}

func (b *Bot) formatTasksText(ctx context.Context, chatID int64) string {
	tasks, err := b.st.OpenTasks(ctx, chatID)
	if err != nil {
		b.log.Warn("task list read failed", logxChat(chatID), logxErr(err))
		return "⚠️ Не удалось загрузить список задач."
	}
	if len(tasks) == 0 {
		return "Пока нет задач.\nНажми «➕ Добавить», чтобы создать первую."
	}
	if len(tasks) > b.cfg.ListLimit {
		tasks = tasks[:b.cfg.ListLimit]
	}
	loc := b.chatZone(ctx, chatID)
	lines := make([]string, 0, len(tasks)+1)
	lines = append(lines, "Твои задачи:")
	for i, t := range tasks {
		lines = append(lines, formatTaskLine(i+1, t, loc))
	}
	return strings.Join(lines, "\n")
}

var actionLabels = map[string]string{
	"ADD":        "добавил задачу",
	"DONE":       "выполнил задачу",
	"DELETE":     "удалил задачу",
	"REM_SET":    "поставил напоминание",
	"REM_CLEAR":  "убрал напоминание",
	"SNOOZE_30M": "отложил на 30 мин",
	"RECUR_ADD":  "добавил повторяющееся",
	"RECUR_DEL":  "удалил повторяющееся",
}

func actionLabel(action string) string {
	if l, ok := actionLabels[action]; ok {
		return l
	}
	return action
}

func (b *Bot) formatHistoryText(ctx context.Context, chatID int64) string {
	entries, err := b.st.RecentAudit(ctx, chatID, b.cfg.HistoryLimit)
	if err != nil {
		b.log.Warn("history read failed", logxChat(chatID), logxErr(err))
		return "⚠️ Не удалось загрузить историю."
	}
	if len(entries) == 0 {
		return "Пока нет истории действий."
	}

	loc := b.chatZone(ctx, chatID)
	lines := []string{"📜 История действий", ""}
	lastDate := ""
	taskText := map[int64]string{}

	for _, e := range entries {
		local := e.CreatedAt.In(loc)
		date := local.Format("02.01.2006")
		if date != lastDate {
			if lastDate != "" {
				lines = append(lines, "")
			}
			lines = append(lines, "▸ "+date)
			lastDate = date
		}

		actor := strings.TrimSpace(e.ActorName)
		if actor == "" {
			actor = fmt.Sprintf("ID%d", e.ActorID)
		}
		part := fmt.Sprintf("  %s  %s %s", local.Format("15:04"), actor, actionLabel(e.Action))
		if e.TaskID > 0 {
			part += fmt.Sprintf(" #%d", e.TaskID)
			text, ok := taskText[e.TaskID]
			if !ok {
				if t, err := b.st.Task(ctx, e.TaskID); err == nil {
					text = t.Text
				}
				taskText[e.TaskID] = text
			}
			if text != "" {
				part += fmt.Sprintf(" «%s»", tgui.TruncRunes(text, 35))
			}
		}
		lines = append(lines, part)
	}
	return strings.Join(lines, "\n")
}

func formatRecurLine(r storage.RecurringReminder, loc *time.Location) string {
	text := tgui.TruncRunes(r.Text, 50)
	var sched string
	if r.Kind == schedule.Monthly {
		sched = fmt.Sprintf("каждый месяц %d-го", r.DayOfMonth)
	} else {
		month := r.Month
		if month < 1 || month > 12 {
			month = 1
		}
		sched = fmt.Sprintf("каждый год %d %s", r.DayOfMonth, schedule.MonthShort(month))
	}
	next := "—"
	if !r.NextRunAt.IsZero() {
		next = r.NextRunAt.In(loc).Format(dayTimeFormat)
	}
	return fmt.Sprintf("• %s — %s, след. %s", text, sched, next)
}

// render produces the panel text and keyboard for a screen.
func (b *Bot) render(ctx context.Context, chatID int64, sc screen) (string, *tele.ReplyMarkup) {
	withHint := func(text string) string {
		if sc.hint != "" {
			return sc.hint + "\n\n" + text
		}
		return text
	}

	switch sc.kind {
	case screenHistory:
		return b.formatHistoryText(ctx, chatID), panelKeyboard().Markup()

	case screenAddPrompt:
		return withHint("✏️ Отправь текст задачи одним сообщением."), panelKeyboard().Markup()

	case screenPickDone:
		tasks, _ := b.st.OpenTasks(ctx, chatID)
		tasks = capTasks(tasks, b.cfg.PickLimit)
		if len(tasks) == 0 {
			return "Нет открытых задач для выполнения.", panelKeyboard().Markup()
		}
		return "Выбери задачу, которую нужно отметить выполненной:", tasksPickKeyboard(tasks, CallbackPickDone).Markup()

	case screenPickDelete:
		open, _ := b.st.OpenTasks(ctx, chatID)
		done, _ := b.st.DoneTasks(ctx, chatID, b.cfg.PickLimit)
		tasks := capTasks(append(open, done...), b.cfg.PickLimit)
		if len(tasks) == 0 {
			return "Нет задач для удаления.", panelKeyboard().Markup()
		}
		return "Выбери задачу, которую нужно удалить:", tasksPickKeyboard(tasks, CallbackPickDelete).Markup()

	case screenPickRemind:
		tasks, _ := b.st.OpenTasks(ctx, chatID)
		tasks = capTasks(tasks, b.cfg.PickLimit)
		if len(tasks) == 0 {
			return "Нет задач для настройки напоминаний.", panelKeyboard().Markup()
		}
		return "Выбери задачу, для которой нужно настроить напоминание:", tasksPickKeyboard(tasks, CallbackPickRemind).Markup()

	case screenRemindPrompt:
		text := fmt.Sprintf("Задача #%d:\n%s\n\nВыбери быстрый вариант или введи время напоминания текстом.",
			sc.task.ID, sc.task.Text)
		return text, remindQuickKeyboard(sc.task.ID).Markup()

	case screenRemindManualPrompt:
		return withHint("Введи время напоминания.\nПримеры: «через 30 мин», «завтра 10:00», «25.12 09:00», «нет»."),
			panelKeyboard().Markup()

	case screenFlash:
		return sc.flashLine + "\n\n" + b.formatTasksText(ctx, chatID), panelKeyboard().Markup()

	case screenRecurList:
		rows, err := b.st.RecurringForChat(ctx, chatID)
		if err != nil {
			b.log.Warn("recurring list read failed", logxChat(chatID), logxErr(err))
		}
		if len(rows) == 0 {
			return "Повторяющиеся напоминания (кредиты, страховка и т.п.)\n\nПока нет. Нажми «➕ Добавить».",
				recurListKeyboard(rows).Markup()
		}
		loc := b.chatZone(ctx, chatID)
		lines := []string{"🔄 Повторяющиеся напоминания", ""}
		for _, r := range rows {
			lines = append(lines, formatRecurLine(r, loc))
		}
		return strings.Join(lines, "\n"), recurListKeyboard(rows).Markup()

	case screenRecurAddPrompt:
		return withHint("Введи текст напоминания (например: Оплата кредитов)."), backKeyboard(cbRecur).Markup()

	case screenRecurSchedule:
		return fmt.Sprintf("«%s»\n\nКогда напоминать? Выбери вариант ниже.", tgui.TruncRunes(sc.recurText, 40)),
			recurScheduleKeyboard().Markup()

	case screenRecurCustomDay:
		text := fmt.Sprintf("«%s»\n\nВведи расписание текстом.\nПримеры: «5» или «5-го», «каждый месяц 15-го», «15 ноября», «последнее число».",
			tgui.TruncRunes(sc.recurText, 40))
		return withHint(text), backKeyboard(cbRecur).Markup()

	case screenRates:
		return sc.rateText, panelKeyboard().Markup()
	}

	// screenList and anything unexpected fall back to the task list.
	return b.formatTasksText(ctx, chatID), panelKeyboard().Markup()
}

func capTasks(tasks []storage.Task, limit int) []storage.Task {
	if limit > 0 && len(tasks) > limit {
		return tasks[:limit]
	}
	return tasks
}
