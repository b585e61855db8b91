package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// StructuredLayout is the strict format users fall back to when a phrase is not understood.
const StructuredLayout = "2006-01-02 15:04:05"

// defaultHour is used when a day is named without a clock time.
const defaultHour = 9

var (
	reStructured = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`)
	reRelative   = regexp.MustCompile(`^in (\d{1,6}|an?) (minutes?|mins?|hours?|hrs?|days?|weeks?|months?)$`)
	reTomorrowAt = regexp.MustCompile(`^tomorrow(?: at)? (.+)$`)
	reWeekday    = regexp.MustCompile(`^(next )?([a-z]+)(?: at (.+))?$`)
	reClock24    = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)
	reClock12    = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))? ?(am|pm)$`)
)

// WeekdayPolicy decides whether a bare weekday equal to today's means today or a week out.
type WeekdayPolicy int

const (
	// WeekdayNoonCutoff treats today's weekday as today only before local noon
	// and only without a "next" qualifier.
	WeekdayNoonCutoff WeekdayPolicy = iota
	// WeekdayNextWeek always resolves today's weekday to seven days out.
	WeekdayNextWeek
	// WeekdayTodayIfFuture resolves to today when the resulting time is still ahead.
	WeekdayTodayIfFuture
)

var weekdayPolicyNames = map[string]WeekdayPolicy{
	"noon":            WeekdayNoonCutoff,
	"next-week":       WeekdayNextWeek,
	"today-if-future": WeekdayTodayIfFuture,
}

// ParseWeekdayPolicy maps a config value to a policy.
func ParseWeekdayPolicy(s string) (WeekdayPolicy, error) {
	p, ok := weekdayPolicyNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown weekday policy %q (want noon|next-week|today-if-future)", s)
	}
	return p, nil
}

func (p WeekdayPolicy) String() string {
	for name, v := range weekdayPolicyNames {
		if v == p {
			return name
		}
	}
	return "unknown"
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// Parser turns user time expressions into UTC instants.
type Parser struct {
	Weekday WeekdayPolicy
}

// Parse resolves expr in timezone tz relative to now. It does not check that the
// result is in the future; callers reject past instants with ErrPastTime.
//
// Accepted forms, first match wins:
//
//	2030-01-01 09:00:00
//	tomorrow | tonight | noon | midday | midnight
//	in 3 hours | in a week | in 2 months
//	tomorrow at 5pm | tomorrow 17:30
//	friday | next friday | fri at 9:30am
func (p Parser) Parse(expr, tz string, now time.Time) (time.Time, error) {
	loc, err := LoadLocation(tz)
	if err != nil {
		return time.Time{}, err
	}
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrParseFailure)
	}

	if reStructured.MatchString(expr) {
		t, err := time.ParseInLocation(StructuredLayout, expr, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q: %v", ErrParseFailure, expr, err)
		}
		return t.UTC(), nil
	}

	local := now.In(loc)
	phrase := strings.Join(strings.Fields(strings.ToLower(expr)), " ")
	rules := []func(string, time.Time) (time.Time, bool){
		parseKeyword,
		parseRelative,
		parseTomorrowAt,
		p.parseWeekday,
	}
	for _, rule := range rules {
		if t, ok := rule(phrase, local); ok {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrParseFailure, expr)
}

// dayAt returns the wall clock h:m:s on the day `offset` days after base, in base's zone.
func dayAt(base time.Time, offset, h, m, s int) time.Time {
	return time.Date(base.Year(), base.Month(), base.Day()+offset, h, m, s, 0, base.Location())
}

func parseKeyword(s string, now time.Time) (time.Time, bool) {
	switch s {
	case "tomorrow":
		return dayAt(now, 1, defaultHour, 0, 0), true
	case "tonight":
		return dayAt(now, 0, 20, 0, 0), true
	case "noon", "midday":
		t := dayAt(now, 0, 12, 0, 0)
		if !t.After(now) {
			t = dayAt(now, 1, 12, 0, 0)
		}
		return t, true
	case "midnight":
		return dayAt(now, 1, 0, 0, 0), true
	}
	return time.Time{}, false
}

func parseRelative(s string, now time.Time) (time.Time, bool) {
	m := reRelative.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	n := 1
	if m[1] != "a" && m[1] != "an" {
		n, _ = strconv.Atoi(m[1])
	}
	unit := m[2]
	switch {
	case strings.HasPrefix(unit, "min"):
		return now.Add(time.Duration(n) * time.Minute), true
	case strings.HasPrefix(unit, "h"):
		return now.Add(time.Duration(n) * time.Hour), true
	case strings.HasPrefix(unit, "day"):
		return now.AddDate(0, 0, n), true
	case strings.HasPrefix(unit, "week"):
		return now.AddDate(0, 0, 7*n), true
	case strings.HasPrefix(unit, "month"):
		// Months are approximated as 30 days.
		return now.AddDate(0, 0, 30*n), true
	}
	return time.Time{}, false
}

func parseTomorrowAt(s string, now time.Time) (time.Time, bool) {
	m := reTomorrowAt.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	h, min, sec, ok := parseClock(m[1])
	if !ok {
		return time.Time{}, false
	}
	return dayAt(now, 1, h, min, sec), true
}

func (p Parser) parseWeekday(s string, now time.Time) (time.Time, bool) {
	m := reWeekday.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	target, ok := weekdays[m[2]]
	if !ok {
		return time.Time{}, false
	}
	next := m[1] != ""

	h, min, sec := defaultHour, 0, 0
	if m[3] != "" {
		if h, min, sec, ok = parseClock(m[3]); !ok {
			return time.Time{}, false
		}
	}

	ahead := (int(target) - int(now.Weekday()) + 7) % 7
	if ahead == 0 {
		ahead = 7
		switch p.Weekday {
		case WeekdayNoonCutoff:
			if !next && now.Hour() < 12 {
				ahead = 0
			}
		case WeekdayTodayIfFuture:
			if !next && dayAt(now, 0, h, min, sec).After(now) {
				ahead = 0
			}
		}
	}
	return dayAt(now, ahead, h, min, sec), true
}

// parseClock understands "17:30", "17:30:15", "5pm", "5:30 pm", "noon" and "midnight".
func parseClock(s string) (h, m, sec int, ok bool) {
	s = strings.TrimSpace(s)
	switch s {
	case "noon", "midday":
		return 12, 0, 0, true
	case "midnight":
		return 0, 0, 0, true
	}

	if g := reClock24.FindStringSubmatch(s); g != nil {
		h, _ = strconv.Atoi(g[1])
		m, _ = strconv.Atoi(g[2])
		if g[3] != "" {
			sec, _ = strconv.Atoi(g[3])
		}
		if h > 23 || m > 59 || sec > 59 {
			return 0, 0, 0, false
		}
		return h, m, sec, true
	}

	if g := reClock12.FindStringSubmatch(s); g != nil {
		h, _ = strconv.Atoi(g[1])
		if g[2] != "" {
			m, _ = strconv.Atoi(g[2])
		}
		if h < 1 || h > 12 || m > 59 {
			return 0, 0, 0, false
		}
		switch {
		case g[3] == "pm" && h != 12:
			h += 12
		case g[3] == "am" && h == 12:
			h = 0
		}
		return h, m, 0, true
	}
	return 0, 0, 0, false
}
