package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var (
	ErrInvalidSchedule   = errors.New("model: invalid schedule expression")
	ErrScheduleExhausted = errors.New("model: schedule has no upcoming occurrence")
)

// Five cron fields (minute hour day-of-month month day-of-week) plus the
// @daily style descriptors and @every <duration>. Day-of-week numbers are
// 1-7 with Sunday=1; ParseSchedule shifts them to the parser's 0-6.
var scheduleParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Schedule is a parsed recurrence pattern. It holds no iteration state:
// every call to NextAfter is a pure function of its argument.
type Schedule struct {
	expr string
	loc  *time.Location
	spec cron.Schedule
}

// ParseSchedule parses expr and evaluates it in loc (UTC when nil).
func ParseSchedule(expr string, loc *time.Location) (*Schedule, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrInvalidSchedule)
	}
	if loc == nil {
		loc = time.UTC
	}
	normalized, err := shiftWeekdays(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSchedule, trimmed, err)
	}
	spec, err := scheduleParser.Parse(normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSchedule, trimmed, err)
	}
	if s, ok := spec.(*cron.SpecSchedule); ok && s.Location == time.Local {
		s.Location = loc
	}
	sched := &Schedule{expr: trimmed, loc: loc, spec: spec}
	if _, err := sched.NextAfter(time.Now()); err != nil {
		return nil, fmt.Errorf("%w: %q never fires", ErrInvalidSchedule, trimmed)
	}
	return sched, nil
}

// shiftWeekdays rewrites numeric day-of-week values from 1-7 to 0-6 in
// every list item, range bound and step start. Names, "*" and "?" pass
// through, as do descriptors and expressions with the wrong field count.
func shiftWeekdays(expr string) (string, error) {
	if strings.HasPrefix(expr, "@") {
		return expr, nil
	}
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return expr, nil
	}
	items := strings.Split(fields[4], ",")
	for i, item := range items {
		rng, step, hasStep := strings.Cut(item, "/")
		lo, hi, isRange := strings.Cut(rng, "-")
		lo, err := shiftWeekday(lo)
		if err != nil {
			return "", err
		}
		if isRange {
			if hi, err = shiftWeekday(hi); err != nil {
				return "", err
			}
			lo += "-" + hi
		}
		if hasStep {
			lo += "/" + step
		}
		items[i] = lo
	}
	fields[4] = strings.Join(items, ",")
	return strings.Join(fields, " "), nil
}

func shiftWeekday(v string) (string, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return v, nil
	}
	if n < 1 || n > 7 {
		return "", fmt.Errorf("day-of-week %d outside 1-7 (Sunday=1)", n)
	}
	return strconv.Itoa(n - 1), nil
}

func (s *Schedule) String() string {
	if s == nil {
		return ""
	}
	return s.expr
}

func (s *Schedule) Location() *time.Location {
	if s == nil || s.loc == nil {
		return time.UTC
	}
	return s.loc
}

// NextAfter returns the first instant strictly after now that matches the
// pattern, in UTC.
func (s *Schedule) NextAfter(now time.Time) (time.Time, error) {
	if s == nil || s.spec == nil {
		return time.Time{}, fmt.Errorf("%w: nil schedule", ErrInvalidSchedule)
	}
	next := s.spec.Next(now.In(s.Location()))
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("%w: %q after %s", ErrScheduleExhausted, s.expr, now.UTC().Format(time.RFC3339))
	}
	return next.UTC(), nil
}

// Preview lists the next count instants after from.
func (s *Schedule) Preview(from time.Time, count int) ([]time.Time, error) {
	if count <= 0 {
		return []time.Time{}, nil
	}
	out := make([]time.Time, 0, count)
	cursor := from
	for i := 0; i < count; i++ {
		next, err := s.NextAfter(cursor)
		if err != nil {
			return nil, err
		}
		out = append(out, next)
		cursor = next
	}
	return out, nil
}
