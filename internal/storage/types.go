package storage

import (
	"errors"
	"fmt"
	"time"

	"taskbot/internal/schedule"
)

// ErrNotFound marks lookups whose row does not exist.
var ErrNotFound = errors.New("not found")

// Config configures the sqlite store.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default (5s)
}

// Task is the tracker entity. Rows are mapped into it at the store boundary;
// nothing above storage sees raw rows.
type Task struct {
	ID        int64
	ChatID    int64
	Text      string
	Done      bool
	CreatedAt time.Time

	// RemindAt is the one-off reminder instant; nil means no reminder armed.
	RemindAt *time.Time
	// Reminded is a historical marker set on ack. It never gates firing:
	// the repeat loop runs until RemindAt is cleared or the task is closed.
	Reminded bool
	Deleted  bool

	OwnerID   int64
	OwnerName string

	DoneByID   int64
	DoneByName string
	DoneAt     *time.Time

	// ReminderMessageID is the last delivered reminder message, reused for
	// edit-in-place on repeat ticks. nil when nothing is on screen.
	ReminderMessageID *int
}

// Closed reports terminal states in which a reminder must never fire.
func (t *Task) Closed() bool { return t.Done || t.Deleted }

// RecurringReminder is a standing monthly/yearly notification rule,
// independent of any task.
type RecurringReminder struct {
	ID         int64
	ChatID     int64
	Text       string
	Kind       schedule.RepeatKind
	DayOfMonth int
	Month      int // 0 when Kind is Monthly
	Hour       int
	Minute     int
	NextRunAt  time.Time
	CreatedAt  time.Time
	OwnerID    int64
	OwnerName  string
}

// PendingKind says how the next free-text message from a user should be
// interpreted. Closed set; unknown stored values surface as a parse error.
type PendingKind int

const (
	PendingAddTaskText PendingKind = iota + 1
	PendingRemindTime
	PendingRemindTimeManual
	PendingRecurringText
	PendingRecurringSchedule
	PendingRecurringCustomDay
)

func (k PendingKind) String() string {
	switch k {
	case PendingAddTaskText:
		return "ADD_WAIT_TEXT"
	case PendingRemindTime:
		return "REM_WAIT_TIME"
	case PendingRemindTimeManual:
		return "REM_WAIT_TIME_TEXT"
	case PendingRecurringText:
		return "RECUR_ADD_TEXT"
	case PendingRecurringSchedule:
		return "RECUR_ADD_SCHEDULE"
	case PendingRecurringCustomDay:
		return "RECUR_ADD_CUSTOM_DAY"
	default:
		return fmt.Sprintf("PendingKind(%d)", int(k))
	}
}

func parsePendingKind(s string) (PendingKind, error) {
	switch s {
	case "ADD_WAIT_TEXT":
		return PendingAddTaskText, nil
	case "REM_WAIT_TIME":
		return PendingRemindTime, nil
	case "REM_WAIT_TIME_TEXT":
		return PendingRemindTimeManual, nil
	case "RECUR_ADD_TEXT":
		return PendingRecurringText, nil
	case "RECUR_ADD_SCHEDULE":
		return PendingRecurringSchedule, nil
	case "RECUR_ADD_CUSTOM_DAY":
		return PendingRecurringCustomDay, nil
	default:
		return 0, fmt.Errorf("unknown pending action %q", s)
	}
}

// PendingInput is the per-(chat,user) marker of what the next message means.
type PendingInput struct {
	ChatID    int64
	UserID    int64
	Kind      PendingKind
	TaskID    int64 // 0 when the kind carries no task
	Meta      string
	CreatedAt time.Time
}

// AuditEntry records a user action. Appends are best-effort and must never
// fail the action itself.
type AuditEntry struct {
	ID        int64
	ChatID    int64
	ActorID   int64
	ActorName string
	Action    string
	TaskID    int64 // 0 when not task-scoped
	MetaJSON  string
	CreatedAt time.Time
}
