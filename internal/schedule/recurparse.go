package schedule

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// monthNames maps inflected Russian month forms to month numbers. Scanned
// longest-first so "мар" in "марта" never shadows the full form.
var monthNames = map[string]int{
	"январь": 1, "января": 1, "январе": 1, "январского": 1,
	"февраль": 2, "февраля": 2, "феврале": 2,
	"март": 3, "марта": 3, "марте": 3,
	"апрель": 4, "апреля": 4, "апреле": 4,
	"май": 5, "мая": 5, "мае": 5,
	"июнь": 6, "июня": 6, "июне": 6,
	"июль": 7, "июля": 7, "июле": 7,
	"август": 8, "августа": 8, "августе": 8,
	"сентябрь": 9, "сентября": 9, "сентябре": 9,
	"октябрь": 10, "октября": 10, "октябре": 10,
	"ноябрь": 11, "ноября": 11, "ноябре": 11,
	"декабрь": 12, "декабря": 12, "декабре": 12,
}

var monthNamesByLength = func() []string {
	names := make([]string, 0, len(monthNames))
	for name := range monthNames {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	return names
}()

// MonthShort returns the three-letter Russian month label for 1-12.
func MonthShort(month int) string {
	short := [...]string{"", "янв", "фев", "мар", "апр", "май", "июн", "июл", "авг", "сен", "окт", "ноя", "дек"}
	if month < 1 || month > 12 {
		return "?"
	}
	return short[month]
}

var yearlyKeywords = []string{
	"каждого года", "каждый год", "каждом году",
	"ежегодно", "раз в год", "в год",
}

var monthlyKeywords = []string{
	"каждого месяца", "каждый месяц", "каждом месяце",
	"ежемесячно", "раз в месяц", "числа каждого", "число каждого",
}

var (
	reSpaces = regexp.MustCompile(`\s+`)
	// Ordinal suffixes: "5-го" → "5", "15-е" → "15". RE2's \b is ASCII-only,
	// so the trailing boundary is matched explicitly.
	reOrdinal = regexp.MustCompile(`(\d+)-(?:го|е|й|му|ом|м|х|ми|тый|ой|ый)(\s|$)`)
	reDay     = regexp.MustCompile(`\b(\d{1,2})\b`)
)

// ParseRecurringSchedule recognizes free-form recurrence phrasing:
//
//	"каждый месяц 5-го", "15 числа каждого месяца", "ежемесячно 28", "5",
//	"15 ноября каждого года", "ежегодно 15 ноября", "1 января",
//	"последнее число".
//
// A bare day above 28 is clamped down to 28 so the rule stays valid in every
// month. ok is false when nothing was recognized.
func ParseRecurringSchedule(text string) (rule Rule, ok bool) {
	s := strings.ToLower(strings.TrimSpace(text))
	s = reSpaces.ReplaceAllString(s, " ")

	// "последнее число" / "последний день": safe last-day approximation.
	if strings.Contains(s, "последн") {
		return Rule{Kind: Monthly, Day: 28}, true
	}

	s = reOrdinal.ReplaceAllString(s, "$1$2")

	month := 0
	cleaned := s
	for _, name := range monthNamesByLength {
		if strings.Contains(cleaned, name) {
			month = monthNames[name]
			cleaned = strings.TrimSpace(strings.Replace(cleaned, name, " ", 1))
			break
		}
	}

	isYearly := containsAny(s, yearlyKeywords)
	isMonthly := containsAny(s, monthlyKeywords)

	day := 0
	hasDay := false
	if m := reDay.FindStringSubmatch(cleaned); m != nil {
		day, _ = strconv.Atoi(m[1])
		hasDay = true
	}

	if month != 0 {
		if !hasDay {
			day = 1
		}
		if max := maxYearlyDay(month); day > max {
			day = max
		}
		if day < 1 || day > 31 {
			return Rule{}, false
		}
		return Rule{Kind: Yearly, Day: day, Month: month}, true
	}

	// Explicit yearly phrasing without a resolvable month: no date to fire on.
	if isYearly {
		return Rule{}, false
	}

	if isMonthly {
		if !hasDay || day < 1 || day > 28 {
			return Rule{}, false
		}
		return Rule{Kind: Monthly, Day: day}, true
	}

	if hasDay {
		if day >= 1 && day <= 28 {
			return Rule{Kind: Monthly, Day: day}, true
		}
		if day >= 29 && day <= 31 {
			return Rule{Kind: Monthly, Day: 28}, true
		}
	}

	return Rule{}, false
}

// maxYearlyDay is the clamp ceiling for a yearly rule's day: February keeps
// 29 so leap-day rules survive, NextRun re-clamps per concrete year.
func maxYearlyDay(month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	}
	return 29
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
