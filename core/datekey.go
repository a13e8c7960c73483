package core

import (
	"fmt"
	"time"
)

// DateKeyLayout is the time layout of a DateKey: two-digit day, month and
// year separated by periods.
const DateKeyLayout = "02.01.06"

// DefaultSourceBaseURL is the directory the daily article is published in.
const DefaultSourceBaseURL = "https://babamurli.com/01.%20Daily%20Murli/02.%20English/01.%20Eng%20Murli%20-%20Htm/"

// sourceSuffix completes the article file name after the DateKey.
const sourceSuffix = "-E.htm"

// DateKey identifies one calendar day, e.g. "05.08.25". It names both the
// article URL and the cache folder of that day.
type DateKey string

// TodayKey formats now as a DateKey in now's location.
func TodayKey(now time.Time) DateKey {
	return DateKey(now.Format(DateKeyLayout))
}

// Today returns the DateKey of the current local date.
func Today() DateKey {
	return TodayKey(time.Now())
}

// String returns the key as text.
func (k DateKey) String() string {
	return string(k)
}

// Time parses the key into local midnight of loc. A nil loc means time.Local.
func (k DateKey) Time(loc *time.Location) (time.Time, error) {
	return ParseDateKey(string(k), loc)
}

// ParseDateKey parses s strictly as a DateKey. Single-digit fields, other
// separators and trailing text are rejected.
func ParseDateKey(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateKeyLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateKey, s)
	}
	return t, nil
}

// SourceURL returns the article URL for key under base.
func SourceURL(base string, key DateKey) string {
	return base + string(key) + sourceSuffix
}

// ElapsedDays returns the number of whole calendar days from since to now,
// rounded toward negative infinity. Both times are compared by their wall
// clocks, so a daylight saving shift does not change the count.
func ElapsedDays(now, since time.Time) int {
	const day = 24 * time.Hour
	d := wallClock(now).Sub(wallClock(since))
	days := int(d / day)
	if d < 0 && d%day != 0 {
		days--
	}
	return days
}

func wallClock(t time.Time) time.Time {
	y, m, d := t.Date()
	h, mi, s := t.Clock()
	return time.Date(y, m, d, h, mi, s, t.Nanosecond(), time.UTC)
}
