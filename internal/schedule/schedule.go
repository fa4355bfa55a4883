// Package schedule expands a recurrence rule into the calendar dates on
// which shows should be created.
package schedule

import (
	"errors"
	"strings"
	"time"
)

// Patterns understood by Expand.
const (
	Daily  = "daily"
	Weekly = "weekly"
)

// DateLayout is the calendar date format used across the API.
const DateLayout = "2006-01-02"

// MaxSpanDays bounds a single expansion.
const MaxSpanDays = 366

var (
	ErrInvalidPattern = errors.New("invalid recurrence pattern")
	ErrEndBeforeStart = errors.New("end date is before start date")
	ErrNoWeekdays     = errors.New("weekly recurrence needs at least one weekday")
	ErrSpanTooLong    = errors.New("recurrence spans more than 366 days")
)

// Recurrence describes when a show repeats.  Weekdays are lower-case
// English names ("monday"); Exceptions are dates to skip.
type Recurrence struct {
	Start      time.Time
	End        time.Time
	Pattern    string
	Weekdays   []string
	Exceptions []time.Time
}

// ParseDate parses a YYYY-MM-DD date as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// Expand returns every date from Start to End inclusive that matches the
// pattern and is not an exception, in ascending order.  Times of day are
// ignored.
func Expand(r Recurrence) ([]time.Time, error) {
	start, end := day(r.Start), day(r.End)
	pattern := strings.ToLower(strings.TrimSpace(r.Pattern))
	if pattern != Daily && pattern != Weekly {
		return nil, ErrInvalidPattern
	}
	if end.Before(start) {
		return nil, ErrEndBeforeStart
	}
	if int(end.Sub(start).Hours()/24) > MaxSpanDays {
		return nil, ErrSpanTooLong
	}

	weekdays := map[time.Weekday]bool{}
	if pattern == Weekly {
		for _, w := range r.Weekdays {
			if wd, ok := parseWeekday(w); ok {
				weekdays[wd] = true
			}
		}
		if len(weekdays) == 0 {
			return nil, ErrNoWeekdays
		}
	}
	skip := map[time.Time]bool{}
	for _, e := range r.Exceptions {
		skip[day(e)] = true
	}

	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if skip[d] {
			continue
		}
		if pattern == Weekly && !weekdays[d.Weekday()] {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func parseWeekday(s string) (time.Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if strings.ToLower(wd.String()) == s {
			return wd, true
		}
	}
	return 0, false
}
