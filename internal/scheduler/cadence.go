package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/mailwatch/internal/errs"
)

// Cadence decides when a job runs next.
type Cadence interface {
	// Next returns the first run time strictly after after.
	Next(after time.Time) time.Time
	String() string
}

// TimeOfDay is a wall-clock time with minute precision.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// on returns the time of day on the calendar date of d, in d's location.
func (t TimeOfDay) on(d time.Time) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, t.Hour, t.Minute, 0, 0, d.Location())
}

// ParseTimeOfDay parses a 24-hour "HH:MM" string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hh) == 0 || len(hh) > 2 || len(mm) != 2 {
		return TimeOfDay{}, errs.Newf(errs.Config, "parsing time of day", "expected HH:MM, got %q", s)
	}

	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return TimeOfDay{}, errs.Newf(errs.Config, "parsing time of day", "invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return TimeOfDay{}, errs.Newf(errs.Config, "parsing time of day", "invalid minute in %q", s)
	}

	return TimeOfDay{Hour: hour, Minute: minute}, nil
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

// ParseWeekday maps an English day name, in any case, to a time.Weekday.
// Three-letter abbreviations are accepted.
func ParseWeekday(name string) (time.Weekday, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if d, ok := weekdays[key]; ok {
		return d, nil
	}
	if len(key) == 3 {
		for full, d := range weekdays {
			if strings.HasPrefix(full, key) {
				return d, nil
			}
		}
	}
	return 0, errs.Newf(errs.Config, "parsing weekday", "unknown day %q", name)
}

type interval struct {
	d time.Duration
}

// Every runs a job every d, starting d after registration.
func Every(d time.Duration) Cadence {
	return interval{d: d}
}

// EveryMinutes is Every for a whole number of minutes. n must be at
// least 1.
func EveryMinutes(n int) (Cadence, error) {
	if n < 1 {
		return nil, errs.Newf(errs.Config, "scheduling", "interval must be at least 1 minute, got %d", n)
	}
	return Every(time.Duration(n) * time.Minute), nil
}

func (c interval) Next(after time.Time) time.Time {
	return after.Add(c.d)
}

func (c interval) String() string {
	return "every " + c.d.String()
}

type daily struct {
	at TimeOfDay
}

// DailyAt runs a job once a day at the given time.
func DailyAt(at TimeOfDay) Cadence {
	return daily{at: at}
}

func (c daily) Next(after time.Time) time.Time {
	next := c.at.on(after)
	if !next.After(after) {
		next = c.at.on(after.AddDate(0, 0, 1))
	}
	return next
}

func (c daily) String() string {
	return "daily at " + c.at.String()
}

type weekly struct {
	day time.Weekday
	at  TimeOfDay
}

// WeeklyAt runs a job once a week on day at the given time.
func WeeklyAt(day time.Weekday, at TimeOfDay) Cadence {
	return weekly{day: day, at: at}
}

func (c weekly) Next(after time.Time) time.Time {
	days := (int(c.day) - int(after.Weekday()) + 7) % 7
	next := c.at.on(after.AddDate(0, 0, days))
	if !next.After(after) {
		next = c.at.on(after.AddDate(0, 0, days+7))
	}
	return next
}

func (c weekly) String() string {
	return fmt.Sprintf("every %s at %s", c.day, c.at)
}
