package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/jakechorley/caregiver-planner/pkg/core/model"
)

// DaysPerWeek is the number of days generated for a week, Monday to Sunday
const DaysPerWeek = 7

// ParseDate parses a date in "2006-01-02" or RFC 3339 format and returns midnight UTC of that day
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(model.DateLayout, s); err == nil {
		return Normalize(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD or RFC 3339", s)
	}
	return Normalize(t), nil
}

// Normalize returns midnight UTC of the calendar day of t (in t's own location)
func Normalize(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// StartOfWeek returns the Monday of the week containing t
func StartOfWeek(t time.Time) time.Time {
	normalized := Normalize(t)

	// Sunday is 0, so shift it to the end of the week
	offset := (int(normalized.Weekday()) + 6) % 7
	return normalized.AddDate(0, 0, -offset)
}

// WeekDays returns the 7 days of the week containing t, Monday first
func WeekDays(t time.Time) []time.Time {
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Count:   DaysPerWeek,
		Dtstart: StartOfWeek(t),
	})
	if err != nil {
		// A DAILY rule with a count cannot fail to build
		panic(fmt.Sprintf("failed to build week rule: %v", err))
	}
	return rule.All()
}

// WeekType returns EVEN if the ISO week number of t is even, ODD otherwise
func WeekType(t time.Time) model.BigWeekType {
	_, week := t.ISOWeek()
	if week%2 == 0 {
		return model.BigWeekEven
	}
	return model.BigWeekOdd
}

// BigWeekDays is the set of weekdays forming the five-day "big week" block
type BigWeekDays []time.Weekday

// DefaultBigWeekDays is Monday, Tuesday, Wednesday, Saturday and Sunday
var DefaultBigWeekDays = BigWeekDays{time.Monday, time.Tuesday, time.Wednesday, time.Saturday, time.Sunday}

// Contains returns true if the weekday of day is a big week day
func (d BigWeekDays) Contains(day time.Time) bool {
	for _, wd := range d {
		if day.Weekday() == wd {
			return true
		}
	}
	return false
}

// ParseBigWeekDays converts weekday names ("Monday", "mon", ...) into a BigWeekDays set.
// An empty list returns DefaultBigWeekDays.
func ParseBigWeekDays(names []string) (BigWeekDays, error) {
	if len(names) == 0 {
		return DefaultBigWeekDays, nil
	}

	days := make(BigWeekDays, 0, len(names))
	seen := make(map[time.Weekday]bool)
	for _, name := range names {
		wd, err := ParseWeekday(name)
		if err != nil {
			return nil, err
		}
		if seen[wd] {
			return nil, fmt.Errorf("duplicate big week day %q", name)
		}
		seen[wd] = true
		days = append(days, wd)
	}
	return days, nil
}

// ParseWeekday parses an English weekday name or its three-letter abbreviation
func ParseWeekday(name string) (time.Weekday, error) {
	lower := strings.ToLower(strings.TrimSpace(name))
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		full := strings.ToLower(wd.String())
		if lower == full || lower == full[:3] {
			return wd, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", name)
}

// FormatWeekRange returns "Mon Jan 02 2006 - Sun Jan 08 2006" for the week containing t
func FormatWeekRange(t time.Time) string {
	start := StartOfWeek(t)
	end := start.AddDate(0, 0, DaysPerWeek-1)
	return fmt.Sprintf("%s - %s", start.Format("Mon Jan 02 2006"), end.Format("Mon Jan 02 2006"))
}
