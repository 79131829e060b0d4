package clock

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// System is the production Clock, backed by time.Now, a monotonic creation
// reference, google/uuid identifiers, and robfig/cron schedule resolution.
type System struct {
	created time.Time
}

// NewSystem returns a System clock with its monotonic reference set to now.
func NewSystem() *System {
	return &System{created: time.Now()}
}

// Now returns the current instant in UTC.
func (s *System) Now() time.Time {
	return time.Now().UTC()
}

// Monotonic returns the duration since this Clock was created.
func (s *System) Monotonic() time.Duration {
	return time.Since(s.created)
}

// NewID mints a new UUID.
func (s *System) NewID() string {
	return uuid.NewString()
}

// NextFire resolves pattern against the standard five-field cron grammar
// and returns the next matching instant strictly after from.
func (s *System) NextFire(pattern Pattern, from time.Time) (time.Time, bool) {
	return nextFire(pattern, from)
}

// nextFire is a free function so that Manual (the test double) can share
// the exact same pattern-resolution logic without depending on System.
func nextFire(pattern Pattern, from time.Time) (time.Time, bool) {
	if pattern.WindowEnd != nil && !from.Before(*pattern.WindowEnd) {
		return time.Time{}, false
	}

	sched, err := scheduleFor(pattern)
	if err != nil {
		return time.Time{}, false
	}

	next := sched.Next(from)
	if next.IsZero() {
		return time.Time{}, false
	}
	if pattern.WindowEnd != nil && !next.Before(*pattern.WindowEnd) {
		return time.Time{}, false
	}
	return next, true
}

// scheduleFor translates a Pattern into a robfig/cron Schedule.
func scheduleFor(pattern Pattern) (cron.Schedule, error) {
	switch pattern.Kind {
	case Daily:
		return cron.ParseStandard(fmt.Sprintf("%d %d * * *", pattern.Minute, pattern.Hour))
	case Weekly:
		if len(pattern.Days) == 0 {
			return nil, fmt.Errorf("clock: weekly pattern requires at least one day")
		}
		return cron.ParseStandard(fmt.Sprintf("%d %d * * %s", pattern.Minute, pattern.Hour, weekdayList(pattern.Days)))
	case Monthly:
		if len(pattern.DaysOfMonth) == 0 {
			return nil, fmt.Errorf("clock: monthly pattern requires at least one day-of-month")
		}
		return cron.ParseStandard(fmt.Sprintf("%d %d %s * *", pattern.Minute, pattern.Hour, intList(pattern.DaysOfMonth)))
	case Interval:
		if pattern.Every <= 0 {
			return nil, fmt.Errorf("clock: interval pattern requires a positive duration")
		}
		return cron.Every(pattern.Every), nil
	case Cron:
		return cron.ParseStandard(pattern.Expr)
	default:
		return nil, fmt.Errorf("clock: unknown pattern kind %d", pattern.Kind)
	}
}

func weekdayList(days []time.Weekday) string {
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = strconv.Itoa(int(d))
	}
	return strings.Join(parts, ",")
}

func intList(ints []int) string {
	parts := make([]string, len(ints))
	for i, n := range ints {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

var _ Clock = (*System)(nil)
