package clock

import (
	"testing"
	"time"
)

func TestSystemNowIsUTC(t *testing.T) {
	s := NewSystem()
	if s.Now().Location() != time.UTC {
		t.Errorf("Now() location = %v, want UTC", s.Now().Location())
	}
}

func TestSystemMonotonicNeverNegative(t *testing.T) {
	s := NewSystem()
	time.Sleep(time.Millisecond)
	if s.Monotonic() <= 0 {
		t.Errorf("Monotonic() = %v, want > 0", s.Monotonic())
	}
}

func TestSystemNewIDUnique(t *testing.T) {
	s := NewSystem()
	a, b := s.NewID(), s.NewID()
	if a == b {
		t.Errorf("NewID() returned duplicate ids %q", a)
	}
}

func TestNextFireDaily(t *testing.T) {
	s := NewSystem()
	from := time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC)
	pattern := NewDaily(10, 0)

	next, ok := s.NextFire(pattern, from)
	if !ok {
		t.Fatal("NextFire() ok = false, want true")
	}
	want := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("NextFire() = %v, want %v", next, want)
	}
}

func TestNextFireDailyRollsToNextDay(t *testing.T) {
	s := NewSystem()
	from := time.Date(2025, 1, 1, 11, 0, 0, 0, time.UTC)
	pattern := NewDaily(10, 0)

	next, ok := s.NextFire(pattern, from)
	if !ok {
		t.Fatal("NextFire() ok = false, want true")
	}
	want := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("NextFire() = %v, want %v", next, want)
	}
}

func TestNextFireWeekly(t *testing.T) {
	s := NewSystem()
	// Wednesday 2025-01-01.
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	pattern := NewWeekly([]time.Weekday{time.Monday, time.Friday}, 9, 0)

	next, ok := s.NextFire(pattern, from)
	if !ok {
		t.Fatal("NextFire() ok = false, want true")
	}
	want := time.Date(2025, 1, 3, 9, 0, 0, 0, time.UTC) // next Friday
	if !next.Equal(want) {
		t.Errorf("NextFire() = %v, want %v", next, want)
	}
}

func TestNextFireMonthlySkipsShortMonths(t *testing.T) {
	s := NewSystem()
	from := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	pattern := NewMonthly([]int{30}, 12, 0)

	next, ok := s.NextFire(pattern, from)
	if !ok {
		t.Fatal("NextFire() ok = false, want true")
	}
	want := time.Date(2025, 3, 30, 12, 0, 0, 0, time.UTC) // February has no 30th
	if !next.Equal(want) {
		t.Errorf("NextFire() = %v, want %v", next, want)
	}
}

func TestNextFireInterval(t *testing.T) {
	s := NewSystem()
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	pattern := NewInterval(15 * time.Minute)

	next, ok := s.NextFire(pattern, from)
	if !ok {
		t.Fatal("NextFire() ok = false, want true")
	}
	want := from.Add(15 * time.Minute)
	if !next.Equal(want) {
		t.Errorf("NextFire() = %v, want %v", next, want)
	}
}

func TestNextFireCron(t *testing.T) {
	s := NewSystem()
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	pattern := NewCron("*/5 * * * *")

	next, ok := s.NextFire(pattern, from)
	if !ok {
		t.Fatal("NextFire() ok = false, want true")
	}
	want := time.Date(2025, 1, 1, 0, 5, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("NextFire() = %v, want %v", next, want)
	}
}

func TestNextFireInvalidCronReturnsFalse(t *testing.T) {
	s := NewSystem()
	_, ok := s.NextFire(NewCron("not a cron expression"), time.Now())
	if ok {
		t.Error("NextFire() ok = true for invalid cron expression, want false")
	}
}

func TestNextFireWindowEndPast(t *testing.T) {
	s := NewSystem()
	end := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	pattern := NewDaily(10, 0).WithWindowEnd(end)

	_, ok := s.NextFire(pattern, end)
	if ok {
		t.Error("NextFire() ok = true at window end, want false")
	}
}

func TestNextFireIsMonotonic(t *testing.T) {
	s := NewSystem()
	pattern := NewCron("*/5 * * * *")
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	first, ok := s.NextFire(pattern, from)
	if !ok {
		t.Fatal("first NextFire() ok = false")
	}
	second, ok := s.NextFire(pattern, first)
	if !ok {
		t.Fatal("second NextFire() ok = false")
	}
	if !second.After(first) {
		t.Errorf("second NextFire() = %v, want strictly after %v", second, first)
	}
}
