// Package clock abstracts wall-clock time, monotonic elapsed time, opaque
// identifier minting, and recurrence-pattern resolution behind a single
// interface so that schedulers and calendars can be driven deterministically
// in tests.
package clock

import "time"

// Clock is the time and identity authority for the rest of the module.
// Implementations must be safe for concurrent use.
type Clock interface {
	// Now returns the current wall-clock instant in UTC.
	Now() time.Time
	// Monotonic returns the duration elapsed since the Clock was created.
	// It never goes backwards, even if Now is manipulated.
	Monotonic() time.Duration
	// NewID mints a new opaque 128-bit identifier.
	NewID() string
	// NextFire returns the least instant strictly greater than from at which
	// pattern matches, or false if the pattern has no such instant (its
	// window has already ended).
	NextFire(pattern Pattern, from time.Time) (time.Time, bool)
}

// Kind identifies which variant of the Pattern tagged union is populated.
type Kind int

const (
	// Daily fires once per day at Hour:Minute.
	Daily Kind = iota
	// Weekly fires on each weekday in Days at Hour:Minute.
	Weekly
	// Monthly fires on each day-of-month in DaysOfMonth at Hour:Minute.
	// Days that don't exist in a given month are silently skipped.
	Monthly
	// Interval fires every Every duration, measured from the reference
	// instant rather than wall-clock boundaries.
	Interval
	// Cron fires according to a standard five-field cron expression.
	Cron
)

// Pattern is the closed sum type named in the design notes:
//
//	Pattern = Daily{h,m} | Weekly{days,h,m} | Monthly{doms,h,m} | Interval{d} | Cron{expr}
//
// Exactly the fields relevant to Kind are meaningful; the rest are zero.
// WindowEnd, if set, bounds NextFire: once from is at or past WindowEnd,
// NextFire reports no further occurrence.
type Pattern struct {
	Kind   Kind
	Hour   int
	Minute int

	Days        []time.Weekday // Weekly
	DaysOfMonth []int          // Monthly, 1-31
	Every       time.Duration  // Interval
	Expr        string         // Cron

	WindowEnd *time.Time
}

// NewDaily builds a Daily pattern firing at hour:minute every day.
func NewDaily(hour, minute int) Pattern {
	return Pattern{Kind: Daily, Hour: hour, Minute: minute}
}

// NewWeekly builds a Weekly pattern firing at hour:minute on each of days.
func NewWeekly(days []time.Weekday, hour, minute int) Pattern {
	return Pattern{Kind: Weekly, Days: append([]time.Weekday(nil), days...), Hour: hour, Minute: minute}
}

// NewMonthly builds a Monthly pattern firing at hour:minute on each day of
// month in daysOfMonth. Out-of-range days (e.g. 31 in April) are skipped for
// that month by the underlying cron schedule.
func NewMonthly(daysOfMonth []int, hour, minute int) Pattern {
	return Pattern{Kind: Monthly, DaysOfMonth: append([]int(nil), daysOfMonth...), Hour: hour, Minute: minute}
}

// NewInterval builds an Interval pattern firing every d.
func NewInterval(d time.Duration) Pattern {
	return Pattern{Kind: Interval, Every: d}
}

// NewCron builds a Cron pattern from a standard five-field expression.
func NewCron(expr string) Pattern {
	return Pattern{Kind: Cron, Expr: expr}
}

// WithWindowEnd returns a copy of p bounded so that NextFire reports no
// occurrence at or after end.
func (p Pattern) WithWindowEnd(end time.Time) Pattern {
	p.WindowEnd = &end
	return p
}
