package calendar

import "time"

// Entry is the per-day view returned by the Day/Week/Month/Year queries.
type Entry struct {
	Date               time.Time
	Slots              []Slot
	CountsByStatus     map[Status]int
	UtilizationPercent float64
}

func (c *Calendar) buildEntryLocked(date time.Time) Entry {
	key := dateKey(date)
	slots := c.byDate[key]

	entry := Entry{
		Date:           time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location()),
		Slots:          make([]Slot, len(slots)),
		CountsByStatus: make(map[Status]int),
	}

	var totalMinutes float64
	for i, s := range slots {
		entry.Slots[i] = *s
		entry.CountsByStatus[s.Status]++
		totalMinutes += s.Duration.Minutes()
	}
	entry.UtilizationPercent = totalMinutes / notionalDailyCapacityMinutes * 100

	return entry
}

// DayView returns the Entry for the single day containing date.
func (c *Calendar) DayView(date time.Time) Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buildEntryLocked(date)
}

// WeekView returns seven Entry values starting from the Monday of the week
// containing start.
func (c *Calendar) WeekView(start time.Time) []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	monday := mondayOf(start)
	entries := make([]Entry, 7)
	for i := 0; i < 7; i++ {
		entries[i] = c.buildEntryLocked(monday.AddDate(0, 0, i))
	}
	return entries
}

func mondayOf(t time.Time) time.Time {
	offset := int(t.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7
	}
	return t.AddDate(0, 0, -offset)
}

// MonthView returns one Entry per day of the given month.
func (c *Calendar) MonthView(year int, month time.Month) []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	daysInMonth := first.AddDate(0, 1, -1).Day()

	entries := make([]Entry, daysInMonth)
	for d := 0; d < daysInMonth; d++ {
		entries[d] = c.buildEntryLocked(first.AddDate(0, 0, d))
	}
	return entries
}

// YearView returns one Entry per day of the given year.
func (c *Calendar) YearView(year int) []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC)

	var entries []Entry
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		entries = append(entries, c.buildEntryLocked(d))
	}
	return entries
}

// Gap is a maximal contiguous date range with no slots and no blackout days.
type Gap struct {
	Start time.Time
	End   time.Time
	Days  int
}

// ContentGaps enumerates maximal empty, non-blackout date ranges within
// [start, end].
func (c *Calendar) ContentGaps(start, end time.Time) []Gap {
	c.mu.Lock()
	defer c.mu.Unlock()

	var gaps []Gap
	var gapStart time.Time
	inGap := false

	flush := func(last time.Time) {
		if inGap {
			days := int(last.Sub(gapStart).Hours()/24) + 1
			gaps = append(gaps, Gap{Start: gapStart, End: last, Days: days})
			inGap = false
		}
	}

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := dateKey(d)
		empty := len(c.byDate[key]) == 0 && !c.isBlackout(key)
		if empty {
			if !inGap {
				gapStart = d
				inGap = true
			}
		} else {
			flush(d.AddDate(0, 0, -1))
		}
	}
	flush(end)

	return gaps
}

// SuggestOptimalSlots proposes up to count future instants that satisfy every
// time-conflict predicate, trying preferredHours (or the configured
// PreferredHours if preferredHours is empty) in order on each day, skipping
// blackout days and days already at the daily cap. Topic conflicts are never
// considered, matching the source behaviour (suggestion takes no topic).
func (c *Calendar) SuggestOptimalSlots(count int, startDate time.Time, horizonDays int, preferredHours []int) []time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	hours := preferredHours
	if len(hours) == 0 {
		hours = c.cfg.PreferredHours
	}
	if len(hours) == 0 {
		hours = []int{9}
	}

	var suggestions []time.Time
	for dayOffset := 0; dayOffset < horizonDays && len(suggestions) < count; dayOffset++ {
		day := startDate.AddDate(0, 0, dayOffset)
		key := dateKey(day)

		if c.isBlackout(key) {
			continue
		}
		if c.cfg.MaxVideosPerDay > 0 && len(c.byDate[key]) >= c.cfg.MaxVideosPerDay {
			continue
		}

		for _, h := range hours {
			if len(suggestions) >= count {
				break
			}
			candidate := time.Date(day.Year(), day.Month(), day.Day(), h, 0, 0, 0, day.Location())
			reasons := c.checkTimeConflictsLocked(key, candidate, "")
			if len(reasons) == 0 {
				suggestions = append(suggestions, candidate)
			}
		}
	}
	return suggestions
}

// Stats summarizes the whole slot index.
type Stats struct {
	Total              int
	CountsByStatus     map[Status]int
	AverageUtilization float64
}

// Statistics aggregates slot counts and average per-day utilization across
// every day that has at least one slot.
func (c *Calendar) Statistics() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{CountsByStatus: make(map[Status]int)}
	var totalUtilization float64
	daysWithSlots := 0

	for _, slots := range c.byDate {
		if len(slots) == 0 {
			continue
		}
		daysWithSlots++
		var minutes float64
		for _, s := range slots {
			stats.Total++
			stats.CountsByStatus[s.Status]++
			minutes += s.Duration.Minutes()
		}
		totalUtilization += minutes / notionalDailyCapacityMinutes * 100
	}

	if daysWithSlots > 0 {
		stats.AverageUtilization = totalUtilization / float64(daysWithSlots)
	}
	return stats
}
