package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"taskbot/internal/schedule"
	"taskbot/internal/storage"
	"taskbot/internal/transport"
	logx "taskbot/pkg/logx"
	"taskbot/pkg/tgui"
)

// handleTimeout bounds the work done for a single update.
const handleTimeout = 30 * time.Second

const msgTaskNotFound = "ℹ️ Не нашёл задачу."
const msgRemindDenied = "🚫 Напоминание может менять только автор или админ."

// Run consumes the adapter's update stream until ctx is cancelled. Updates
// are handled one at a time; per-chat ordering is what matters here and a
// single consumer gives it for free.
func (b *Bot) Run(ctx context.Context, updates <-chan transport.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			uctx, cancel := context.WithTimeout(ctx, handleTimeout)
			b.handleUpdate(uctx, u)
			cancel()
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, u transport.Update) {
	switch u.Kind {
	case transport.UpdateCommand:
		if u.Message != nil {
			b.handleCommand(ctx, u.Message)
		}
	case transport.UpdateMessage:
		if u.Message != nil {
			b.handleText(ctx, u.Message)
		}
	case transport.UpdateCallback:
		if u.Callback != nil {
			b.handleCallback(ctx, u.Callback)
		}
	}
}

// ---- commands ----

func helpMessage() tgui.Message {
	code := func(s string) string { return tgui.Code(s).String() }
	return tgui.New().
		Title("📋", "Todo-бот — справка").
		Blank().
		RawLine(tgui.B("Команды:").String()).
		Line("/start — открыть панель управления").
		Line("/timezone — посмотреть или изменить часовой пояс").
		Line("/help — эта справка").
		Blank().
		RawLine(tgui.B("Панель управления:").String()).
		Line("➕ Добавить — создать новую задачу").
		Line("✅ Выполнить — отметить задачу выполненной").
		Line("🗑 Удалить — удалить задачу").
		Line("⏰ Напоминание — установить или изменить напоминание").
		Line("🕘 История — история действий").
		Line("🔄 Повторяющиеся — ежемесячные/ежегодные напоминания").
		Line("💱 Курс USDT — текущий курс USDT/THB с Bitkub").
		Blank().
		RawLine(tgui.B("Форматы времени для напоминаний:").String()).
		RawLine("• " + code("через 30 мин")).
		RawLine("• " + code("через 2 часа")).
		RawLine("• " + code("завтра 10:00")).
		RawLine("• " + code("25.12 09:00")).
		RawLine("• " + code("нет") + " — убрать напоминание").
		Blank().
		RawLine(tgui.B("Форматы для повторяющихся напоминаний:").String()).
		RawLine("• " + code("5") + " или " + code("5-го") + " — каждый месяц 5-го").
		RawLine("• " + code("каждый месяц 15-го")).
		RawLine("• " + code("15 ноября") + " — ежегодно 15 ноября").
		RawLine("• " + code("последнее число")).
		Build()
}

func (b *Bot) handleCommand(ctx context.Context, m *transport.Message) {
	switch m.Command {
	case "start":
		b.cmdStart(ctx, m)
	case "help":
		b.sendBuilt(ctx, m.ChatID, helpMessage(), time.Minute)
	case "timezone":
		b.cmdTimezone(ctx, m)
	}
}

// cmdStart (re)posts the panel message and a short hint on how to use it.
func (b *Bot) cmdStart(ctx context.Context, m *transport.Message) {
	p := b.panel(m.ChatID)
	p.mu.Lock()
	prev, err := b.st.PanelMessageID(ctx, m.ChatID)
	if err != nil {
		p.mu.Unlock()
		b.log.Warn("panel id read failed", logxChat(m.ChatID), logxErr(err))
		return
	}
	ref, err := b.ad.SendText(ctx, transport.ChatTarget{ChatID: m.ChatID}, b.formatTasksText(ctx, m.ChatID),
		&transport.SendOptions{DisablePreview: true, ReplyMarkupAdapter: panelKeyboard().Markup()})
	if err != nil {
		p.mu.Unlock()
		b.log.Warn("panel send failed", logxChat(m.ChatID), logxErr(err))
		return
	}
	if err := b.st.SetPanelMessageID(ctx, m.ChatID, ref.MessageID); err != nil {
		b.log.Warn("panel id persist failed", logxChat(m.ChatID), logxErr(err))
	}
	p.mu.Unlock()

	hint := "⬆️ Панель управления обновлена."
	if prev == 0 {
		hint = "👋 Привет! Это твоя панель управления задачами.\n\n" +
			"⬆️ Закрепи это сообщение (Pin), чтобы панель всегда была под рукой.\n\n" +
			"Справка: /help\n" +
			"Часовой пояс: /timezone"
	}
	b.sendReply(ctx, m.ChatID, hint, nil, b.cfg.ServiceMsgTTL)
}

func (b *Bot) cmdTimezone(ctx context.Context, m *transport.Message) {
	arg := strings.TrimSpace(m.Args)
	code := func(s string) string { return tgui.Code(s).String() }

	if arg == "" {
		msg := tgui.New().
			RawLine("🕐 Текущий часовой пояс: " + tgui.B(b.chatZone(ctx, m.ChatID).String()).String()).
			Blank().
			Line("Чтобы изменить, отправь:").
			Code("/timezone Europe/Moscow").
			Blank().
			Line("Примеры:").
			RawLine("• " + code("Asia/Bangkok") + " — Bangkok (UTC+7)").
			RawLine("• " + code("Europe/Moscow") + " — Москва (UTC+3)").
			RawLine("• " + code("Europe/London") + " — Лондон").
			RawLine("• " + code("America/New_York") + " — Нью-Йорк").
			Inline(tgui.NewInline().Row(tgui.URLBtn("🌍 Полный список",
				"https://en.wikipedia.org/wiki/List_of_tz_database_time_zones"))).
			Build()
		b.sendBuilt(ctx, m.ChatID, msg, 30*time.Second)
		return
	}

	if _, err := time.LoadLocation(arg); err != nil {
		msg := tgui.New().
			RawLine("❌ Неверный часовой пояс: " + code(arg)).
			Blank().
			RawLine("Используй формат: " + code("Europe/Moscow") + ", " + code("Asia/Bangkok") + " и т.п.").
			Build()
		b.sendBuilt(ctx, m.ChatID, msg, 20*time.Second)
		return
	}

	if err := b.st.SetChatTimezone(ctx, m.ChatID, arg); err != nil {
		b.log.Warn("timezone persist failed", logxChat(m.ChatID), logxErr(err))
		return
	}
	b.sendBuilt(ctx, m.ChatID,
		tgui.New().RawLine("✅ Часовой пояс установлен: "+tgui.B(arg).String()).Build(),
		10*time.Second)
}

// ---- callbacks ----

func (b *Bot) handleCallback(ctx context.Context, q *transport.Callback) {
	if err := b.ad.AnswerCallback(ctx, q.ID, ""); err != nil {
		b.log.Debug("callback answer failed", logxChat(q.ChatID), logxErr(err))
	}

	cb := ParseCallback(q.Data)
	switch cb.Kind {
	case CallbackPanel:
		b.onPanelAction(ctx, q, cb.Panel)
	case CallbackPickDone:
		b.onPickDone(ctx, q, cb.TaskID)
	case CallbackPickDelete:
		b.onPickDelete(ctx, q, cb.TaskID)
	case CallbackPickRemind:
		b.onPickRemind(ctx, q, cb.TaskID)
	case CallbackRemindSet:
		b.onRemindSet(ctx, q, cb)
	case CallbackReminderMsg:
		b.onReminderMsg(ctx, q, cb)
	case CallbackRecurDelete:
		b.onRecurDelete(ctx, q, cb.RecurID)
	case CallbackRecurSchedule:
		b.onRecurSchedule(ctx, q, cb.Rule)
	default:
		b.log.Debug("unknown callback", logxChat(q.ChatID), logx.String("data", q.Data))
	}
}

func (b *Bot) onPanelAction(ctx context.Context, q *transport.Callback, action string) {
	chatID, userID := q.ChatID, q.FromID

	clearAndShow := func(kind screenKind) {
		if err := b.st.ClearPending(ctx, chatID, userID); err != nil {
			b.log.Warn("pending clear failed", logxChat(chatID), logxErr(err))
		}
		b.showScreen(ctx, chatID, screen{kind: kind})
	}

	switch action {
	case cbList:
		clearAndShow(screenList)
	case cbHist:
		clearAndShow(screenHistory)
	case cbDone:
		clearAndShow(screenPickDone)
	case cbDelete:
		clearAndShow(screenPickDelete)
	case cbRemind:
		clearAndShow(screenPickRemind)
	case cbRecur:
		clearAndShow(screenRecurList)

	case cbAdd:
		b.setPending(ctx, storage.PendingInput{ChatID: chatID, UserID: userID, Kind: storage.PendingAddTaskText})
		b.showScreen(ctx, chatID, screen{kind: screenAddPrompt})

	case cbRecurAdd:
		b.setPending(ctx, storage.PendingInput{ChatID: chatID, UserID: userID, Kind: storage.PendingRecurringText})
		b.showScreen(ctx, chatID, screen{kind: screenRecurAddPrompt})

	case cbRecurCustom:
		// Keep the reminder text collected so far; the custom-day prompt is a
		// detour inside the add flow.
		text := ""
		if p, err := b.st.Pending(ctx, chatID, userID); err == nil && p.Kind == storage.PendingRecurringSchedule {
			text = p.Meta
		}
		b.setPending(ctx, storage.PendingInput{
			ChatID: chatID, UserID: userID, Kind: storage.PendingRecurringCustomDay, Meta: text,
		})
		b.showScreen(ctx, chatID, screen{kind: screenRecurCustomDay, recurText: text})

	case cbRates:
		if err := b.st.ClearPending(ctx, chatID, userID); err != nil {
			b.log.Warn("pending clear failed", logxChat(chatID), logxErr(err))
		}
		b.showScreen(ctx, chatID, screen{kind: screenRates, rateText: "⏳ Получаю курс..."})
		b.showScreen(ctx, chatID, screen{kind: screenRates, rateText: b.rates.FormatUSDTTHB(ctx)})
	}
}

func (b *Bot) onPickDone(ctx context.Context, q *transport.Callback, taskID int64) {
	task, ok := b.chatTask(ctx, q.ChatID, taskID)
	if !ok {
		b.flashPanel(ctx, q.ChatID, msgTaskNotFound)
		return
	}
	if !canAction(ctx, b.ad, b.log, q.IsGroup, q.ChatID, q.FromID, actionDone, task.OwnerID) {
		b.flashPanel(ctx, q.ChatID, "🚫 Отметить выполненной может только автор или админ.")
		return
	}
	done, err := b.markDone(ctx, task, q.FromID, q.FromName)
	if err != nil {
		b.log.Warn("mark done failed", logxChat(q.ChatID), logxErr(err))
		return
	}
	if done {
		b.flashPanel(ctx, q.ChatID, "✅ Готово.")
	} else {
		b.flashPanel(ctx, q.ChatID, "ℹ️ Уже выполнено.")
	}
}

func (b *Bot) onPickDelete(ctx context.Context, q *transport.Callback, taskID int64) {
	task, ok := b.chatTask(ctx, q.ChatID, taskID)
	if !ok {
		b.flashPanel(ctx, q.ChatID, msgTaskNotFound)
		return
	}
	if !canAction(ctx, b.ad, b.log, q.IsGroup, q.ChatID, q.FromID, actionDelete, task.OwnerID) {
		b.flashPanel(ctx, q.ChatID, "🚫 Удалять может только автор или админ.")
		return
	}
	removed, err := b.deleteTask(ctx, task, q.FromID, q.FromName)
	if err != nil {
		b.log.Warn("task delete failed", logxChat(q.ChatID), logxErr(err))
		return
	}
	if removed {
		b.flashPanel(ctx, q.ChatID, "🗑 Удалено (скрыто).")
	} else {
		b.flashPanel(ctx, q.ChatID, msgTaskNotFound)
	}
}

func (b *Bot) onPickRemind(ctx context.Context, q *transport.Callback, taskID int64) {
	task, ok := b.chatTask(ctx, q.ChatID, taskID)
	if !ok {
		b.flashPanel(ctx, q.ChatID, msgTaskNotFound)
		return
	}
	if !canAction(ctx, b.ad, b.log, q.IsGroup, q.ChatID, q.FromID, actionRemind, task.OwnerID) {
		b.flashPanel(ctx, q.ChatID, msgRemindDenied)
		return
	}
	b.setPending(ctx, storage.PendingInput{
		ChatID: q.ChatID, UserID: q.FromID, Kind: storage.PendingRemindTime, TaskID: taskID,
	})
	b.showScreen(ctx, q.ChatID, screen{kind: screenRemindPrompt, task: task})
}

func (b *Bot) onRemindSet(ctx context.Context, q *transport.Callback, cb Callback) {
	task, ok := b.chatTask(ctx, q.ChatID, cb.TaskID)
	if !ok {
		b.flashPanel(ctx, q.ChatID, msgTaskNotFound)
		return
	}
	if !canAction(ctx, b.ad, b.log, q.IsGroup, q.ChatID, q.FromID, actionRemind, task.OwnerID) {
		b.flashPanel(ctx, q.ChatID, msgRemindDenied)
		return
	}

	switch cb.Quick {
	case QuickManual:
		b.setPending(ctx, storage.PendingInput{
			ChatID: q.ChatID, UserID: q.FromID, Kind: storage.PendingRemindTimeManual, TaskID: task.ID,
		})
		b.showScreen(ctx, q.ChatID, screen{kind: screenRemindManualPrompt})
		return

	case QuickNone:
		if err := b.clearReminder(ctx, q.ChatID, task.ID, q.FromID, q.FromName); err != nil {
			b.log.Warn("reminder clear failed", logxChat(q.ChatID), logxErr(err))
			return
		}
		b.clearPendingQuiet(ctx, q.ChatID, q.FromID)
		b.flashPanel(ctx, q.ChatID, "✅ Напоминание убрано.")
		return
	}

	now := time.Now().In(b.chatZone(ctx, q.ChatID))
	var at time.Time
	switch cb.Quick {
	case Quick30M:
		at = now.Add(30 * time.Minute)
	case Quick2H:
		at = now.Add(2 * time.Hour)
	case QuickTom10:
		d := now.AddDate(0, 0, 1)
		at = time.Date(d.Year(), d.Month(), d.Day(), 10, 0, 0, 0, d.Location())
	default:
		return
	}

	if err := b.setReminder(ctx, q.ChatID, task.ID, q.FromID, q.FromName, at); err != nil {
		b.log.Warn("reminder set failed", logxChat(q.ChatID), logxErr(err))
		return
	}
	b.clearPendingQuiet(ctx, q.ChatID, q.FromID)
	b.flashPanel(ctx, q.ChatID, "✅ Напоминание: "+at.Format(dayTimeFormat))
}

// onReminderMsg handles buttons on a delivered reminder message, which can
// outlive its task.
func (b *Bot) onReminderMsg(ctx context.Context, q *transport.Callback, cb Callback) {
	chatID := q.ChatID
	task, ok := b.chatTask(ctx, chatID, cb.TaskID)
	if !ok {
		// Stale message for a task that no longer exists: take it down and
		// stop the repeat loop.
		b.tryDeleteMessage(ctx, chatID, q.MessageID)
		b.sched.Cancel(chatID, cb.TaskID)
		if err := b.st.SetReminderMessageID(ctx, cb.TaskID, nil); err != nil && !errors.Is(err, storage.ErrNotFound) {
			b.log.Debug("reminder message id reset failed", logxChat(chatID), logxErr(err))
		}
		b.flashPanel(ctx, chatID, "ℹ️ Задача не найдена/удалена.")
		return
	}

	switch cb.RemAction {
	case ReminderAck:
		done, err := b.markDone(ctx, task, q.FromID, q.FromName)
		if err != nil {
			b.log.Warn("reminder ack failed", logxChat(chatID), logxErr(err))
			return
		}
		b.tryDeleteMessage(ctx, chatID, q.MessageID)
		if done {
			b.flashPanel(ctx, chatID, "✅ Готово.")
		} else {
			b.flashPanel(ctx, chatID, "ℹ️ Уже выполнено.")
		}

	case ReminderSnooze30:
		if !canAction(ctx, b.ad, b.log, q.IsGroup, chatID, q.FromID, actionRemind, task.OwnerID) {
			b.flashPanel(ctx, chatID, msgRemindDenied)
			return
		}
		if _, err := b.sched.Snooze(ctx, chatID, task.ID, q.FromID, q.FromName); err != nil {
			b.log.Warn("snooze failed", logxChat(chatID), logxErr(err))
			return
		}
		b.tryDeleteMessage(ctx, chatID, q.MessageID)
		if err := b.st.SetReminderMessageID(ctx, task.ID, nil); err != nil && !errors.Is(err, storage.ErrNotFound) {
			b.log.Debug("reminder message id reset failed", logxChat(chatID), logxErr(err))
		}
		b.flashPanel(ctx, chatID, "⏳ Ок. Отложил на 30 минут.")
	}
}

func (b *Bot) onRecurDelete(ctx context.Context, q *transport.Callback, recID int64) {
	removed, err := b.removeRecurring(ctx, q.ChatID, recID, q.FromID, q.FromName)
	if err != nil {
		b.log.Warn("recurring delete failed", logxChat(q.ChatID), logxErr(err))
		return
	}
	if removed {
		b.flashPanel(ctx, q.ChatID, "🗑 Повторяющееся напоминание удалено.")
	} else {
		b.showScreen(ctx, q.ChatID, screen{kind: screenRecurList})
	}
}

// onRecurSchedule finishes the add flow from one of the preset schedule
// buttons. The reminder text travels in the pending row's meta.
func (b *Bot) onRecurSchedule(ctx context.Context, q *transport.Callback, rule schedule.Rule) {
	chatID, userID := q.ChatID, q.FromID

	p, err := b.st.Pending(ctx, chatID, userID)
	if err != nil || p.Kind != storage.PendingRecurringSchedule || strings.TrimSpace(p.Meta) == "" {
		b.clearPendingQuiet(ctx, chatID, userID)
		b.showScreen(ctx, chatID, screen{kind: screenRecurList})
		return
	}

	r, err := b.addRecurring(ctx, chatID, userID, q.FromName, strings.TrimSpace(p.Meta), rule)
	if err != nil {
		b.log.Warn("recurring add failed", logxChat(chatID), logxErr(err))
		return
	}
	b.clearPendingQuiet(ctx, chatID, userID)
	next := r.NextRunAt.In(b.chatZone(ctx, chatID)).Format(dayTimeFormat)
	b.flashPanel(ctx, chatID, "✅ Добавлено повторяющееся напоминание. След. раз: "+next)
}

// ---- free-text flows ----

func (b *Bot) handleText(ctx context.Context, m *transport.Message) {
	p, err := b.st.Pending(ctx, m.ChatID, m.FromID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			b.log.Warn("pending read failed", logxChat(m.ChatID), logxErr(err))
		}
		return
	}

	// The user's message is consumed by the flow; drop it to keep the chat
	// clean, the panel is the UI.
	b.tryDeleteMessage(ctx, m.ChatID, m.ID)

	text := strings.TrimSpace(m.Text)

	switch p.Kind {
	case storage.PendingAddTaskText:
		b.onAddTaskText(ctx, m, text)
	case storage.PendingRemindTime, storage.PendingRemindTimeManual:
		b.onRemindTimeText(ctx, m, p, text)
	case storage.PendingRecurringText:
		b.onRecurringText(ctx, m, text)
	case storage.PendingRecurringCustomDay:
		b.onRecurringCustomDay(ctx, m, p, text)
	default:
		b.clearPendingQuiet(ctx, m.ChatID, m.FromID)
	}
}

func (b *Bot) onAddTaskText(ctx context.Context, m *transport.Message, text string) {
	chatID := m.ChatID
	if text == "" {
		b.showScreen(ctx, chatID, screen{kind: screenAddPrompt, hint: "Введи непустой текст задачи."})
		return
	}
	if n := utf8.RuneCountInString(text); n > b.cfg.TaskTextMaxLen {
		hint := fmt.Sprintf("Текст слишком длинный (%d символов, максимум %d).", n, b.cfg.TaskTextMaxLen)
		b.showScreen(ctx, chatID, screen{kind: screenAddPrompt, hint: hint})
		return
	}
	if open, err := b.st.OpenTasks(ctx, chatID); err == nil && len(open) >= b.cfg.MaxTasksPerChat {
		hint := fmt.Sprintf("Достигнут лимит задач (%d). Сначала выполни или удали существующие.", b.cfg.MaxTasksPerChat)
		b.showScreen(ctx, chatID, screen{kind: screenAddPrompt, hint: hint})
		return
	}

	id, err := b.addTask(ctx, chatID, m.FromID, m.FromName, text)
	if err != nil {
		b.log.Warn("task create failed", logxChat(chatID), logxErr(err))
		return
	}

	// Chain straight into the reminder prompt for the new task.
	b.setPending(ctx, storage.PendingInput{
		ChatID: chatID, UserID: m.FromID, Kind: storage.PendingRemindTime, TaskID: id,
	})
	b.editPanel(ctx, chatID,
		fmt.Sprintf("✅ Добавил задачу #%d\n\n⏰ Установить напоминание?", id),
		remindQuickKeyboard(id).Markup())
}

func (b *Bot) onRemindTimeText(ctx context.Context, m *transport.Message, p storage.PendingInput, text string) {
	chatID := m.ChatID
	if p.TaskID == 0 {
		b.clearPendingQuiet(ctx, chatID, m.FromID)
		return
	}
	task, ok := b.chatTask(ctx, chatID, p.TaskID)
	if !ok {
		b.clearPendingQuiet(ctx, chatID, m.FromID)
		b.flashPanel(ctx, chatID, msgTaskNotFound)
		return
	}
	if !canAction(ctx, b.ad, b.log, m.IsGroup, chatID, m.FromID, actionRemind, task.OwnerID) {
		b.clearPendingQuiet(ctx, chatID, m.FromID)
		b.flashPanel(ctx, chatID, msgRemindDenied)
		return
	}

	parsed := schedule.ParseRemindTime(text, time.Now().In(b.chatZone(ctx, chatID)))
	switch parsed.Kind {
	case schedule.RemindInvalid:
		b.showScreen(ctx, chatID, screen{kind: screenRemindManualPrompt, hint: "Не понял время. Попробуй примеры ниже."})

	case schedule.RemindNone:
		if err := b.clearReminder(ctx, chatID, task.ID, m.FromID, m.FromName); err != nil {
			b.log.Warn("reminder clear failed", logxChat(chatID), logxErr(err))
			return
		}
		b.clearPendingQuiet(ctx, chatID, m.FromID)
		b.flashPanel(ctx, chatID, "✅ Ок. Без напоминания.")

	case schedule.RemindAt:
		if err := b.setReminder(ctx, chatID, task.ID, m.FromID, m.FromName, parsed.At); err != nil {
			b.log.Warn("reminder set failed", logxChat(chatID), logxErr(err))
			return
		}
		b.clearPendingQuiet(ctx, chatID, m.FromID)
		b.flashPanel(ctx, chatID, "✅ Напоминание: "+parsed.At.Format(dayTimeFormat))
	}
}

func (b *Bot) onRecurringText(ctx context.Context, m *transport.Message, text string) {
	if text == "" {
		b.showScreen(ctx, m.ChatID, screen{kind: screenRecurAddPrompt, hint: "Введи непустой текст."})
		return
	}
	b.setPending(ctx, storage.PendingInput{
		ChatID: m.ChatID, UserID: m.FromID, Kind: storage.PendingRecurringSchedule, Meta: text,
	})
	b.showScreen(ctx, m.ChatID, screen{kind: screenRecurSchedule, recurText: text})
}

func (b *Bot) onRecurringCustomDay(ctx context.Context, m *transport.Message, p storage.PendingInput, text string) {
	chatID := m.ChatID
	recurText := strings.TrimSpace(p.Meta)

	rule, ok := schedule.ParseRecurringSchedule(text)
	if !ok {
		b.showScreen(ctx, chatID, screen{
			kind: screenRecurCustomDay, recurText: recurText,
			hint: "Не понял расписание. Попробуй примеры ниже.",
		})
		return
	}

	r, err := b.addRecurring(ctx, chatID, m.FromID, m.FromName, recurText, rule)
	if err != nil {
		b.log.Warn("recurring add failed", logxChat(chatID), logxErr(err))
		return
	}
	b.clearPendingQuiet(ctx, chatID, m.FromID)

	var label string
	if rule.Kind == schedule.Monthly {
		label = fmt.Sprintf("каждый месяц %d-го", rule.Day)
	} else {
		label = fmt.Sprintf("каждый год %d %s", rule.Day, schedule.MonthShort(rule.Month))
	}
	next := r.NextRunAt.In(b.chatZone(ctx, chatID)).Format(dayTimeFormat)
	b.flashPanel(ctx, chatID, fmt.Sprintf("✅ Добавлено: %s. След. раз: %s", label, next))
}

// ---- small helpers ----

func (b *Bot) setPending(ctx context.Context, p storage.PendingInput) {
	if err := b.st.SetPending(ctx, p); err != nil {
		b.log.Warn("pending set failed", logxChat(p.ChatID), logxErr(err))
	}
}

func (b *Bot) clearPendingQuiet(ctx context.Context, chatID, userID int64) {
	if err := b.st.ClearPending(ctx, chatID, userID); err != nil {
		b.log.Warn("pending clear failed", logxChat(chatID), logxErr(err))
	}
}
