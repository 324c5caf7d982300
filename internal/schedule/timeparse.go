package schedule

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// RemindKind classifies the outcome of parsing a one-off reminder time.
type RemindKind int

const (
	// RemindInvalid means the text was not recognized; the caller re-prompts.
	RemindInvalid RemindKind = iota
	// RemindNone means the user asked for no reminder ("нет", "no", "-").
	RemindNone
	// RemindAt carries a concrete instant.
	RemindAt
)

// RemindTime is the parse result; At is set only for RemindAt.
type RemindTime struct {
	Kind RemindKind
	At   time.Time
}

var (
	reOffset   = regexp.MustCompile(`^через\s*(\d+)\s*(м|мин|минут|минуты|h|ч|час|часа|часов)$`)
	reTomorrow = regexp.MustCompile(`^завтра\s*(\d{1,2}):(\d{2})$`)
	reClock    = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	reDate     = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\s+(\d{1,2}):(\d{2})$`)
)

// ParseRemindTime converts free text like "через 30 мин", "завтра 10:00",
// "18:00" or "25.12 09:00" into an absolute instant relative to now.
// Everything is computed in now's location; seconds are zeroed.
func ParseRemindTime(text string, now time.Time) RemindTime {
	s := strings.ToLower(strings.TrimSpace(text))

	switch s {
	case "нет", "no", "none", "-":
		return RemindTime{Kind: RemindNone}
	}

	if m := reOffset.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		switch m[2] {
		case "м", "мин", "минут", "минуты":
			return RemindTime{Kind: RemindAt, At: now.Add(time.Duration(n) * time.Minute)}
		default:
			return RemindTime{Kind: RemindAt, At: now.Add(time.Duration(n) * time.Hour)}
		}
	}

	if m := reTomorrow.FindStringSubmatch(s); m != nil {
		hh, mm, ok := clockFields(m[1], m[2])
		if !ok {
			return RemindTime{Kind: RemindInvalid}
		}
		base := now.AddDate(0, 0, 1)
		return RemindTime{Kind: RemindAt, At: atClock(base, hh, mm)}
	}

	if m := reClock.FindStringSubmatch(s); m != nil {
		hh, mm, ok := clockFields(m[1], m[2])
		if !ok {
			return RemindTime{Kind: RemindInvalid}
		}
		dt := atClock(now, hh, mm)
		if dt.Before(now) {
			dt = dt.AddDate(0, 0, 1)
		}
		return RemindTime{Kind: RemindAt, At: dt}
	}

	if m := reDate.FindStringSubmatch(s); m != nil {
		d, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		hh, mm, ok := clockFields(m[3], m[4])
		if !ok || mo < 1 || mo > 12 || d < 1 || d > daysInMonth(now.Year(), mo) {
			return RemindTime{Kind: RemindInvalid}
		}
		dt := time.Date(now.Year(), time.Month(mo), d, hh, mm, 0, 0, now.Location())
		if dt.Before(now) {
			dt = time.Date(now.Year()+1, time.Month(mo), d, hh, mm, 0, 0, now.Location())
		}
		return RemindTime{Kind: RemindAt, At: dt}
	}

	return RemindTime{Kind: RemindInvalid}
}

func clockFields(h, m string) (hh, mm int, ok bool) {
	hh, _ = strconv.Atoi(h)
	mm, _ = strconv.Atoi(m)
	return hh, mm, hh <= 23 && mm <= 59
}

func atClock(base time.Time, hh, mm int) time.Time {
	return time.Date(base.Year(), base.Month(), base.Day(), hh, mm, 0, 0, base.Location())
}
