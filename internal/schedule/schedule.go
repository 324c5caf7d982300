// Package schedule holds the pure calendar logic of the reminder engine:
// computing the next occurrence of a monthly/yearly rule and parsing the
// free-form time and schedule expressions users type into the chat.
package schedule

import "fmt"

// RepeatKind is the recurrence cadence of a recurring reminder.
type RepeatKind int

const (
	Monthly RepeatKind = iota + 1
	Yearly
)

func (k RepeatKind) String() string {
	switch k {
	case Monthly:
		return "MONTHLY"
	case Yearly:
		return "YEARLY"
	default:
		return fmt.Sprintf("RepeatKind(%d)", int(k))
	}
}

// ParseRepeatKind maps the stored column value back to the enum.
func ParseRepeatKind(s string) (RepeatKind, error) {
	switch s {
	case "MONTHLY":
		return Monthly, nil
	case "YEARLY":
		return Yearly, nil
	default:
		return 0, fmt.Errorf("unknown repeat kind %q", s)
	}
}

// Rule is a parsed recurrence schedule. Month is set only for Yearly.
type Rule struct {
	Kind  RepeatKind
	Day   int // 1-31, clamped to month length when applied
	Month int // 1-12, Yearly only
}
