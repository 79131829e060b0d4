package clock

import (
	"testing"
	"time"
)

func TestManualAdvance(t *testing.T) {
	m := NewManual(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	m.Advance(time.Hour)

	want := time.Date(2025, 1, 1, 1, 0, 0, 0, time.UTC)
	if !m.Now().Equal(want) {
		t.Errorf("Now() = %v, want %v", m.Now(), want)
	}
	if m.Monotonic() != time.Hour {
		t.Errorf("Monotonic() = %v, want %v", m.Monotonic(), time.Hour)
	}
}

func TestManualAdvanceNegativePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Advance(negative) did not panic")
		}
	}()
	m := NewManual(time.Now())
	m.Advance(-time.Second)
}

func TestManualNewIDSequential(t *testing.T) {
	m := NewManual(time.Now())
	a := m.NewID()
	b := m.NewID()
	if a == b {
		t.Errorf("NewID() returned duplicate ids %q", a)
	}
}

func TestManualSet(t *testing.T) {
	m := NewManual(time.Now())
	target := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	m.Set(target)
	if !m.Now().Equal(target) {
		t.Errorf("Now() = %v, want %v", m.Now(), target)
	}
}
