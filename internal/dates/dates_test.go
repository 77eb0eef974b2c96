package dates

import (
	"testing"
	"time"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	today := time.Date(2026, 10, 15, 18, 30, 0, 0, time.UTC)

	tests := []struct {
		offset int
		want   string
	}{
		{offset: 0, want: "2026-10-15"},
		{offset: 1, want: "2026-10-16"},
		{offset: 17, want: "2026-11-01"},
		{offset: 365, want: "2027-10-15"},
	}
	for _, tt := range tests {
		got := Resolve(today, tt.offset)
		if got.Format("2006-01-02") != tt.want {
			t.Errorf("Resolve(%d) = %s, want %s", tt.offset, got.Format("2006-01-02"), tt.want)
		}
		if got.Hour() != 0 || got.Minute() != 0 {
			t.Errorf("Resolve(%d) should be midnight, got %s", tt.offset, got)
		}
	}
}

func TestDaysBetweenAcrossDST(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	from := time.Date(2026, 3, 7, 0, 0, 0, 0, loc)
	to := time.Date(2026, 3, 9, 0, 0, 0, 0, loc)
	if got := DaysBetween(from, to); got != 2 {
		t.Errorf("DaysBetween() = %d, want 2", got)
	}
}

func TestValidOffset(t *testing.T) {
	t.Parallel()

	tests := []struct {
		offset int
		want   bool
	}{
		{offset: -1, want: false},
		{offset: 0, want: true},
		{offset: 365, want: true},
		{offset: 366, want: false},
	}
	for _, tt := range tests {
		if got := ValidOffset(tt.offset); got != tt.want {
			t.Errorf("ValidOffset(%d) = %v, want %v", tt.offset, got, tt.want)
		}
	}
}

func TestUnitsAndWords(t *testing.T) {
	t.Parallel()

	units := map[string]int{"day": 1, "days": 1, "Week": 7, "weeks": 7, "month": 30, "months": 30}
	for unit, want := range units {
		got, ok := UnitDays(unit)
		if !ok || got != want {
			t.Errorf("UnitDays(%q) = %d, %v; want %d", unit, got, ok, want)
		}
	}
	if _, ok := UnitDays("year"); ok {
		t.Error("UnitDays(year) should not be recognised")
	}

	if n, ok := WrittenNumber("Twelve"); !ok || n != 12 {
		t.Errorf("WrittenNumber(Twelve) = %d, %v", n, ok)
	}
	if _, ok := WrittenNumber("thirteen"); ok {
		t.Error("WrittenNumber(thirteen) should not be recognised")
	}

	relative := map[string]int{"today": 0, "Tomorrow": 1, "next  week": 7, "next month": 30}
	for phrase, want := range relative {
		got, ok := RelativeOffset(phrase)
		if !ok || got != want {
			t.Errorf("RelativeOffset(%q) = %d, %v; want %d", phrase, got, ok, want)
		}
	}
}

func TestDaysUntilWeekday(t *testing.T) {
	t.Parallel()

	// 2026-10-15 is a Thursday
	today := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		wd   time.Weekday
		want int
	}{
		{wd: time.Friday, want: 1},
		{wd: time.Saturday, want: 2},
		{wd: time.Monday, want: 4},
		{wd: time.Wednesday, want: 6},
		{wd: time.Thursday, want: 7},
	}
	for _, tt := range tests {
		got, err := DaysUntilWeekday(today, tt.wd)
		if err != nil {
			t.Fatalf("DaysUntilWeekday(%s) error = %v", tt.wd, err)
		}
		if got != tt.want {
			t.Errorf("DaysUntilWeekday(%s) = %d, want %d", tt.wd, got, tt.want)
		}
	}
}

func TestParseWeekday(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want time.Weekday
		ok   bool
	}{
		{name: "Monday", want: time.Monday, ok: true},
		{name: "fri", want: time.Friday, ok: true},
		{name: "thurs", want: time.Thursday, ok: true},
		{name: "mo", ok: false},
		{name: "someday", ok: false},
	}
	for _, tt := range tests {
		got, ok := ParseWeekday(tt.name)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("ParseWeekday(%q) = %s, %v; want %s, %v", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	if got := Describe(0); got != "today" {
		t.Errorf("Describe(0) = %q", got)
	}
	if got := Describe(1); got != "tomorrow" {
		t.Errorf("Describe(1) = %q", got)
	}
	if got := Describe(3); got != "in 3 days" {
		t.Errorf("Describe(3) = %q", got)
	}
}

func TestDaysUntilNextWeekday(t *testing.T) {
	t.Parallel()

	// Thursday
	today := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		wd   time.Weekday
		want int
	}{
		{wd: time.Friday, want: 8},
		{wd: time.Sunday, want: 10},
		{wd: time.Monday, want: 4},
		{wd: time.Thursday, want: 7},
	}
	for _, tt := range tests {
		got, err := DaysUntilNextWeekday(today, tt.wd)
		if err != nil {
			t.Fatalf("DaysUntilNextWeekday(%s) error = %v", tt.wd, err)
		}
		if got != tt.want {
			t.Errorf("DaysUntilNextWeekday(%s) = %d, want %d", tt.wd, got, tt.want)
		}
	}
}

func TestDaysUntilDate(t *testing.T) {
	t.Parallel()

	today := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		month time.Month
		day   int
		want  int
		ok    bool
	}{
		{name: "today", month: time.October, day: 15, want: 0, ok: true},
		{name: "later this year", month: time.October, day: 20, want: 5, ok: true},
		{name: "wraps to next year", month: time.January, day: 1, want: 78, ok: true},
		{name: "invalid date", month: time.February, day: 30, ok: false},
	}
	for _, tt := range tests {
		got, ok := DaysUntilDate(today, tt.month, tt.day)
		if ok != tt.ok || got != tt.want {
			t.Errorf("%s: DaysUntilDate() = %d, %v; want %d, %v", tt.name, got, ok, tt.want, tt.ok)
		}
	}

	if m, ok := ParseMonth("Oct"); !ok || m != time.October {
		t.Errorf("ParseMonth(Oct) = %s, %v", m, ok)
	}
	if _, ok := ParseMonth("ju"); ok {
		t.Error("ParseMonth(ju) should be ambiguous")
	}
}
