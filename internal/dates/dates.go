// Package dates resolves relative day offsets against a local calendar day.
package dates

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

const (
	// MinOffset is the smallest accepted day offset (today)
	MinOffset = 0
	// MaxOffset is the largest accepted day offset
	MaxOffset = 365
)

// Unit lengths used by relative expressions. A month is a fixed 30 days.
var unitDays = map[string]int{
	"day":   1,
	"week":  7,
	"month": 30,
}

var relativeDays = map[string]int{
	"today":      0,
	"tomorrow":   1,
	"next week":  7,
	"next month": 30,
}

var writtenNumbers = map[string]int{
	"one":    1,
	"two":    2,
	"three":  3,
	"four":   4,
	"five":   5,
	"six":    6,
	"seven":  7,
	"eight":  8,
	"nine":   9,
	"ten":    10,
	"eleven": 11,
	"twelve": 12,
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

var rruleWeekdays = map[time.Weekday]rrule.Weekday{
	time.Sunday:    rrule.SU,
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
}

// Today returns midnight of now's calendar day in now's location
func Today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// Resolve returns the calendar day offset days after today
func Resolve(today time.Time, offset int) time.Time {
	return Today(today).AddDate(0, 0, offset)
}

// DaysBetween counts calendar days from one day to another, ignoring DST shifts
func DaysBetween(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// ValidOffset reports whether offset lies in [MinOffset, MaxOffset]
func ValidOffset(offset int) bool {
	return offset >= MinOffset && offset <= MaxOffset
}

// UnitDays returns the length of a unit name, accepting plurals ("weeks")
func UnitDays(unit string) (int, bool) {
	unit = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(unit)), "s")
	n, ok := unitDays[unit]
	return n, ok
}

// WrittenNumber parses "one" through "twelve"
func WrittenNumber(word string) (int, bool) {
	n, ok := writtenNumbers[strings.ToLower(strings.TrimSpace(word))]
	return n, ok
}

// RelativeOffset resolves today, tomorrow, next week and next month
func RelativeOffset(phrase string) (int, bool) {
	phrase = strings.Join(strings.Fields(strings.ToLower(phrase)), " ")
	n, ok := relativeDays[phrase]
	return n, ok
}

// ParseWeekday accepts full English weekday names and three-letter abbreviations
func ParseWeekday(name string) (time.Weekday, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if wd, ok := weekdays[name]; ok {
		return wd, true
	}
	if len(name) >= 3 {
		for full, wd := range weekdays {
			if strings.HasPrefix(full, name) {
				return wd, true
			}
		}
	}
	return time.Sunday, false
}

// DaysUntilWeekday returns the offset of the next occurrence of wd strictly
// after today. A weekday equal to today's resolves to 7, never 0.
func DaysUntilWeekday(today time.Time, wd time.Weekday) (int, error) {
	start := Today(today).AddDate(0, 0, 1)
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Count:     1,
		Byweekday: []rrule.Weekday{rruleWeekdays[wd]},
		Dtstart:   start,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to build weekday rule: %w", err)
	}
	next := rule.All()
	if len(next) == 0 {
		return 0, fmt.Errorf("no occurrence of %s after %s", wd, start.Format("2006-01-02"))
	}
	return DaysBetween(today, next[0]), nil
}

// DaysUntilNextWeekday resolves "next <weekday>". A weekday still ahead in
// the current Monday-based week is pushed into the following week.
func DaysUntilNextWeekday(today time.Time, wd time.Weekday) (int, error) {
	d, err := DaysUntilWeekday(today, wd)
	if err != nil {
		return 0, err
	}
	if isoWeekday(wd) > isoWeekday(today.Weekday()) {
		d += 7
	}
	return d, nil
}

// DaysUntilDate resolves a month and day to the next such date on or after
// today. Invalid dates such as February 30 are rejected.
func DaysUntilDate(today time.Time, month time.Month, day int) (int, bool) {
	today = Today(today)
	for _, year := range []int{today.Year(), today.Year() + 1} {
		target := time.Date(year, month, day, 0, 0, 0, 0, today.Location())
		if target.Month() != month || target.Day() != day {
			return 0, false
		}
		if !target.Before(today) {
			return DaysBetween(today, target), true
		}
	}
	return 0, false
}

// ParseMonth accepts full English month names and three-letter abbreviations
func ParseMonth(name string) (time.Month, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if len(name) < 3 {
		return 0, false
	}
	for m := time.January; m <= time.December; m++ {
		if strings.HasPrefix(strings.ToLower(m.String()), name) {
			return m, true
		}
	}
	return 0, false
}

func isoWeekday(wd time.Weekday) int {
	if wd == time.Sunday {
		return 7
	}
	return int(wd)
}

// Describe renders an offset the way reminders phrase it
func Describe(offset int) string {
	switch offset {
	case 0:
		return "today"
	case 1:
		return "tomorrow"
	default:
		return fmt.Sprintf("in %d days", offset)
	}
}
