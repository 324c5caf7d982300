package bot

import (
	"strconv"

	"taskbot/internal/schedule"
	"taskbot/pkg/tgui"
)

// Panel action identifiers carried in callback data.
const (
	cbList        = "A:LIST"
	cbHist        = "A:HIST"
	cbAdd         = "A:ADD"
	cbDone        = "A:DONE"
	cbDelete      = "A:DEL"
	cbRemind      = "A:REM"
	cbRecur       = "A:RECUR"
	cbRecurAdd    = "A:RECUR_ADD"
	cbRecurCustom = "A:RECUR_CUSTOM"
	cbRates       = "A:RATES"
)

// QuickTime is a quick-pick option on the reminder time keyboard.
type QuickTime string

const (
	Quick30M    QuickTime = "30M"
	Quick2H     QuickTime = "2H"
	QuickTom10  QuickTime = "TOM10"
	QuickManual QuickTime = "MANUAL"
	QuickNone   QuickTime = "NONE"
)

// ReminderMsgAction is a button on a delivered reminder message.
type ReminderMsgAction string

const (
	ReminderAck      ReminderMsgAction = "ACK"
	ReminderSnooze30 ReminderMsgAction = "S30"
)

// CallbackKind discriminates the parsed callback variants. Closed set;
// anything else parses to CallbackUnknown and is answered-and-ignored.
type CallbackKind int

const (
	CallbackUnknown CallbackKind = iota
	CallbackPanel
	CallbackPickDone
	CallbackPickDelete
	CallbackPickRemind
	CallbackRemindSet
	CallbackReminderMsg
	CallbackRecurDelete
	CallbackRecurSchedule
)

// Callback is the parsed form of inline callback data.
type Callback struct {
	Kind CallbackKind
	Raw  string

	Panel     string            // CallbackPanel: one of the cb* constants
	TaskID    int64             // pickers, RemindSet, ReminderMsg
	Quick     QuickTime         // CallbackRemindSet
	RemAction ReminderMsgAction // CallbackReminderMsg
	RecurID   int64             // CallbackRecurDelete
	Rule      schedule.Rule     // CallbackRecurSchedule
}

// Callback data builders. Formats:
//
//	DONE:<task>  DEL:<task>  REM:<task>
//	RSET:<task>:<quick>
//	RM:<action>:<task>
//	RECUR_DEL:<rec>
//	RSCHED:M:<day>  RSCHED:Y:<day>:<month>
func dataPickDone(taskID int64) string { return tgui.Data("DONE", itoa(taskID)) }
func dataPickDel(taskID int64) string  { return tgui.Data("DEL", itoa(taskID)) }
func dataPickRem(taskID int64) string  { return tgui.Data("REM", itoa(taskID)) }

func dataRemindSet(taskID int64, q QuickTime) string {
	return tgui.Data("RSET", itoa(taskID), string(q))
}

func dataReminderMsg(a ReminderMsgAction, taskID int64) string {
	return tgui.Data("RM", string(a), itoa(taskID))
}

func dataRecurDel(recID int64) string { return tgui.Data("RECUR_DEL", itoa(recID)) }

func dataRecurSched(r schedule.Rule) string {
	if r.Kind == schedule.Yearly {
		return tgui.Data("RSCHED", "Y", strconv.Itoa(r.Day), strconv.Itoa(r.Month))
	}
	return tgui.Data("RSCHED", "M", strconv.Itoa(r.Day))
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }

// ParseCallback maps raw callback data onto the closed variant set.
func ParseCallback(data string) Callback {
	cb := Callback{Kind: CallbackUnknown, Raw: data}
	parts := tgui.Split(data)
	if len(parts) == 0 {
		return cb
	}

	switch data {
	case cbList, cbHist, cbAdd, cbDone, cbDelete, cbRemind, cbRecur, cbRecurAdd, cbRecurCustom, cbRates:
		cb.Kind = CallbackPanel
		cb.Panel = data
		return cb
	}

	switch parts[0] {
	case "DONE", "DEL", "REM":
		if len(parts) != 2 {
			return cb
		}
		id, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return cb
		}
		cb.TaskID = id
		switch parts[0] {
		case "DONE":
			cb.Kind = CallbackPickDone
		case "DEL":
			cb.Kind = CallbackPickDelete
		case "REM":
			cb.Kind = CallbackPickRemind
		}
		return cb

	case "RSET":
		if len(parts) != 3 {
			return cb
		}
		id, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return cb
		}
		switch QuickTime(parts[2]) {
		case Quick30M, Quick2H, QuickTom10, QuickManual, QuickNone:
			cb.Kind = CallbackRemindSet
			cb.TaskID = id
			cb.Quick = QuickTime(parts[2])
		}
		return cb

	case "RM":
		if len(parts) != 3 {
			return cb
		}
		id, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return cb
		}
		switch ReminderMsgAction(parts[1]) {
		case ReminderAck, ReminderSnooze30:
			cb.Kind = CallbackReminderMsg
			cb.RemAction = ReminderMsgAction(parts[1])
			cb.TaskID = id
		}
		return cb

	case "RECUR_DEL":
		if len(parts) != 2 {
			return cb
		}
		id, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return cb
		}
		cb.Kind = CallbackRecurDelete
		cb.RecurID = id
		return cb

	case "RSCHED":
		if len(parts) < 3 {
			return cb
		}
		day, err := strconv.Atoi(parts[2])
		if err != nil {
			return cb
		}
		switch parts[1] {
		case "M":
			cb.Kind = CallbackRecurSchedule
			cb.Rule = schedule.Rule{Kind: schedule.Monthly, Day: day}
		case "Y":
			month := 1
			if len(parts) >= 4 {
				if m, err := strconv.Atoi(parts[3]); err == nil {
					month = m
				}
			}
			cb.Kind = CallbackRecurSchedule
			cb.Rule = schedule.Rule{Kind: schedule.Yearly, Day: day, Month: month}
		}
		return cb
	}

	return cb
}
