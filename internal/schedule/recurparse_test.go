package schedule

import "testing"

func TestParseRecurringScheduleMonthly(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw  string
		want Rule
	}{
		{"5", Rule{Kind: Monthly, Day: 5}},
		{"7-го", Rule{Kind: Monthly, Day: 7}},
		{"1", Rule{Kind: Monthly, Day: 1}},
		{"28", Rule{Kind: Monthly, Day: 28}},
		// Days not present in every month clamp down to the safe 28.
		{"29", Rule{Kind: Monthly, Day: 28}},
		{"31", Rule{Kind: Monthly, Day: 28}},
		{"каждый месяц 5-го", Rule{Kind: Monthly, Day: 5}},
		{"ежемесячно 15", Rule{Kind: Monthly, Day: 15}},
		{"15 числа каждого месяца", Rule{Kind: Monthly, Day: 15}},
		{"раз в месяц 10-го", Rule{Kind: Monthly, Day: 10}},
		{"последнее число", Rule{Kind: Monthly, Day: 28}},
		{"последний день", Rule{Kind: Monthly, Day: 28}},
	}
	for _, tt := range tests {
		got, ok := ParseRecurringSchedule(tt.raw)
		if !ok {
			t.Errorf("ParseRecurringSchedule(%q) not recognized", tt.raw)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseRecurringSchedule(%q) = %+v, want %+v", tt.raw, got, tt.want)
		}
	}
}

func TestParseRecurringScheduleYearly(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw  string
		want Rule
	}{
		{"15 ноября", Rule{Kind: Yearly, Day: 15, Month: 11}},
		{"каждый год 1 марта", Rule{Kind: Yearly, Day: 1, Month: 3}},
		{"ежегодно 1 марта", Rule{Kind: Yearly, Day: 1, Month: 3}},
		{"15 ноября каждого года", Rule{Kind: Yearly, Day: 15, Month: 11}},
		{"1 января", Rule{Kind: Yearly, Day: 1, Month: 1}},
		{"30 ноября", Rule{Kind: Yearly, Day: 30, Month: 11}},
		{"25 декабря", Rule{Kind: Yearly, Day: 25, Month: 12}},
		{"15 НОЯБРЯ каждого года", Rule{Kind: Yearly, Day: 15, Month: 11}},
		// Month without a day defaults to the 1st.
		{"ежегодно в январе", Rule{Kind: Yearly, Day: 1, Month: 1}},
		// Day clamped to the month's ceiling.
		{"31 ноября", Rule{Kind: Yearly, Day: 30, Month: 11}},
	}
	for _, tt := range tests {
		got, ok := ParseRecurringSchedule(tt.raw)
		if !ok {
			t.Errorf("ParseRecurringSchedule(%q) not recognized", tt.raw)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseRecurringSchedule(%q) = %+v, want %+v", tt.raw, got, tt.want)
		}
	}
}

func TestParseRecurringScheduleInvalid(t *testing.T) {
	t.Parallel()
	for _, s := range []string{
		"",
		"   ",
		"абракадабра",
		"через год",
		"каждый год",
		"ежегодно",
		"каждый месяц",
		"каждый месяц 0-го",
	} {
		if got, ok := ParseRecurringSchedule(s); ok {
			t.Errorf("ParseRecurringSchedule(%q) = %+v, want invalid", s, got)
		}
	}
}

func TestMonthShort(t *testing.T) {
	t.Parallel()
	if got := MonthShort(11); got != "ноя" {
		t.Fatalf("MonthShort(11) = %q", got)
	}
	if got := MonthShort(0); got != "?" {
		t.Fatalf("MonthShort(0) = %q", got)
	}
}
