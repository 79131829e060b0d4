// Package calendar maintains the content-slot index: reservation, conflict
// detection, optimal-slot suggestion, and gap analysis over a publication
// schedule.
package calendar

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/contentops/schedcore/clock"
)

// Status is the lifecycle state of a Slot.
type Status string

const (
	StatusAvailable Status = "available"
	StatusReserved  Status = "reserved"
	StatusScheduled Status = "scheduled"
	StatusPublished Status = "published"
	StatusConflict  Status = "conflict"
)

// notionalDailyCapacityMinutes is the fixed divisor for utilization. Kept a
// constant rather than a config field so utilization figures stay
// comparable across calendars with different tuning.
const notionalDailyCapacityMinutes = 480.0

// Slot is a calendar reservation for a future publish time.
type Slot struct {
	ID              string
	ScheduledAt     time.Time
	Duration        time.Duration
	Status          Status
	JobID           string
	Topic           string
	Tags            []string
	Notes           string
	PublishAt       time.Time
	ConflictReasons []string
}

// ReserveOptions carries the optional fields for Reserve.
type ReserveOptions struct {
	Tags      []string
	Notes     string
	PublishAt time.Time
	JobID     string
}

// Config tunes the conflict predicates and suggestion behaviour.
type Config struct {
	MinGapHours              float64
	MaxVideosPerDay          int
	PreferredHours           []int
	BlackoutDays             []time.Time
	DetectTopicConflicts     bool
	TopicSimilarityThreshold float64
}

// Calendar owns the slot index, reached only from its own methods.
type Calendar struct {
	clk    clock.Clock
	logger *slog.Logger
	cfg    Config
	blackoutSet map[string]struct{}

	mu     sync.Mutex
	byID   map[string]*Slot
	byDate map[string][]*Slot
}

// New creates a Calendar with the given configuration.
func New(clk clock.Clock, logger *slog.Logger, cfg Config) *Calendar {
	set := make(map[string]struct{}, len(cfg.BlackoutDays))
	for _, d := range cfg.BlackoutDays {
		set[dateKey(d)] = struct{}{}
	}
	return &Calendar{
		clk:         clk,
		logger:      logger.With(slog.String("component", "calendar")),
		cfg:         cfg,
		blackoutSet: set,
		byID:        make(map[string]*Slot),
		byDate:      make(map[string][]*Slot),
	}
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func (c *Calendar) isBlackout(date string) bool {
	_, ok := c.blackoutSet[date]
	return ok
}

// UpdateConfig replaces the blackout days and preferred publishing hours a
// live Calendar evaluates, for callers that reload configuration without
// restarting the process. Every other Config field (gap/cap/topic
// thresholds) is unaffected; existing slots are not re-checked against the
// new settings.
func (c *Calendar) UpdateConfig(blackoutDays []time.Time, preferredHours []int) {
	set := make(map[string]struct{}, len(blackoutDays))
	for _, d := range blackoutDays {
		set[dateKey(d)] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.blackoutSet = set
	c.cfg.BlackoutDays = blackoutDays
	c.cfg.PreferredHours = preferredHours
}

// Reserve inserts a slot for scheduledAt. Conflict predicates are evaluated
// first; insertion always succeeds, but the slot's status is conflict
// instead of reserved when any predicate fires.
func (c *Calendar) Reserve(scheduledAt time.Time, topic string, duration time.Duration, opts ReserveOptions) Slot {
	c.mu.Lock()
	defer c.mu.Unlock()

	date := dateKey(scheduledAt)
	reasons := c.checkTimeConflictsLocked(date, scheduledAt, "")

	status := StatusReserved
	if len(reasons) > 0 {
		status = StatusConflict
	}

	slot := &Slot{
		ID: c.clk.NewID(), ScheduledAt: scheduledAt, Duration: duration,
		Status: status, Topic: topic, Tags: opts.Tags, Notes: opts.Notes,
		PublishAt: opts.PublishAt, JobID: opts.JobID, ConflictReasons: reasons,
	}

	c.byID[slot.ID] = slot
	c.byDate[date] = append(c.byDate[date], slot)
	sortSlots(c.byDate[date])

	return *slot
}

func sortSlots(slots []*Slot) {
	sort.Slice(slots, func(i, j int) bool { return slots[i].ScheduledAt.Before(slots[j].ScheduledAt) })
}

// checkTimeConflictsLocked evaluates the time-based predicates (blackout,
// min gap, daily cap, preferred hours) against existing slots on date,
// optionally excluding excludeID (used when scanning the full index from
// DetectConflicts, so a slot is not compared with itself). Callers must hold
// c.mu.
//
// Topic similarity is deliberately not evaluated here: Reserve, the only
// caller that gates a slot's status on this result, must mark a slot
// conflict for a time reason alone. Topic similarity is only ever surfaced
// through DetectConflicts.
func (c *Calendar) checkTimeConflictsLocked(date string, scheduledAt time.Time, excludeID string) []string {
	var reasons []string

	if c.isBlackout(date) {
		reasons = append(reasons, "blackout")
	}

	same := c.byDate[date]
	count := 0
	for _, s := range same {
		if s.ID == excludeID {
			continue
		}
		count++
		if c.cfg.MinGapHours > 0 {
			gap := scheduledAt.Sub(s.ScheduledAt)
			if gap < 0 {
				gap = -gap
			}
			if gap.Hours() < c.cfg.MinGapHours {
				reasons = append(reasons, "min_gap")
			}
		}
	}
	if c.cfg.MaxVideosPerDay > 0 && count >= c.cfg.MaxVideosPerDay {
		reasons = append(reasons, "daily_cap")
	}

	if len(c.cfg.PreferredHours) > 0 && !containsInt(c.cfg.PreferredHours, scheduledAt.Hour()) {
		reasons = append(reasons, "preferred_window")
	}

	return dedupe(reasons)
}

func containsInt(haystack []int, needle int) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

func dedupe(in []string) []string {
	if len(in) < 2 {
		return in
	}
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// hasTopicConflictLocked checks Jaccard similarity of lowercased whitespace
// tokens between topic and every slot within a plus-or-minus 7 day window.
func (c *Calendar) hasTopicConflictLocked(scheduledAt time.Time, topic, excludeID string) bool {
	tokens := tokenize(topic)
	if len(tokens) == 0 {
		return false
	}

	windowStart := scheduledAt.AddDate(0, 0, -7)
	windowEnd := scheduledAt.AddDate(0, 0, 7)

	for d := windowStart; !d.After(windowEnd); d = d.AddDate(0, 0, 1) {
		for _, s := range c.byDate[dateKey(d)] {
			if s.ID == excludeID {
				continue
			}
			other := tokenize(s.Topic)
			if jaccard(tokens, other) >= c.cfg.TopicSimilarityThreshold {
				return true
			}
		}
	}
	return false
}

// tokenize splits topic into a lowercased word set. Tokenisation is plain
// whitespace splitting with no punctuation stripping, matching the source
// implementation's set(topic.lower().split()) exactly.
func tokenize(topic string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(topic))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// ConflictReport names a slot and every reason it conflicts with the rest of
// the index, as found by DetectConflicts.
type ConflictReport struct {
	SlotID  string
	Reasons []string
}

// DetectConflicts scans every slot in the index and reports the ones that
// conflict, evaluating both time-based predicates and, when
// Config.DetectTopicConflicts is enabled, topic similarity against nearby
// slots. Unlike Reserve, which only ever marks StatusConflict for a time
// reason, DetectConflicts is the only place topic similarity surfaces.
// Results are sorted by slot id for a stable read.
func (c *Calendar) DetectConflicts() []ConflictReport {
	c.mu.Lock()
	defer c.mu.Unlock()

	var reports []ConflictReport
	for _, s := range c.byID {
		date := dateKey(s.ScheduledAt)
		reasons := c.checkTimeConflictsLocked(date, s.ScheduledAt, s.ID)
		if c.cfg.DetectTopicConflicts && c.hasTopicConflictLocked(s.ScheduledAt, s.Topic, s.ID) {
			reasons = append(reasons, "topic_similarity")
		}
		reasons = dedupe(reasons)
		if len(reasons) > 0 {
			reports = append(reports, ConflictReport{SlotID: s.ID, Reasons: reasons})
		}
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].SlotID < reports[j].SlotID })
	return reports
}

// UpdateSlotStatus transitions a slot's status. The zero-value bool return
// reports whether the slot was found.
func (c *Calendar) UpdateSlotStatus(id string, status Status) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.byID[id]
	if !ok {
		return false
	}
	s.Status = status
	return true
}

// RemoveSlot deletes a slot from both indexes.
func (c *Calendar) RemoveSlot(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.byID[id]
	if !ok {
		return false
	}
	delete(c.byID, id)

	date := dateKey(s.ScheduledAt)
	slots := c.byDate[date]
	for i, candidate := range slots {
		if candidate.ID == id {
			c.byDate[date] = append(slots[:i], slots[i+1:]...)
			break
		}
	}
	return true
}

// Get returns the slot for id, if present.
func (c *Calendar) Get(id string) (Slot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.byID[id]
	if !ok {
		return Slot{}, false
	}
	return *s, true
}
