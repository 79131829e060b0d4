package scheduler

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/contentops/schedcore/clock"
	schedcron "github.com/contentops/schedcore/cron"
)

// patternSchedule adapts a clock.Clock + clock.Pattern pair to robfig/cron's
// Schedule interface, keeping clock.Clock the single authority for
// interpreting recurring patterns (cron.Cron is used here only as the
// goroutine that drives fire times, never to reinterpret the pattern).
type patternSchedule struct {
	clk     clock.Clock
	pattern clock.Pattern
}

// Next implements cron.Schedule. A pattern with no more valid fires (window
// exhausted) returns the zero time, matching robfig/cron's own convention for
// unsatisfiable schedules.
func (p patternSchedule) Next(from time.Time) time.Time {
	next, ok := p.clk.NextFire(p.pattern, from)
	if !ok {
		return time.Time{}
	}
	return next
}

// ruleWrapper fires a rule's callback under panic recovery and tracks
// in-flight firings so the dispatcher can enforce a rule's max_instances.
type ruleWrapper struct {
	ruleID       string
	fire         func(ctx context.Context, firedAt time.Time)
	clk          clock.Clock
	appCtx       context.Context
	logger       *slog.Logger
	maxInstances int

	mu      sync.Mutex
	inFlight int
}

func newRuleWrapper(ruleID string, clk clock.Clock, appCtx context.Context, logger *slog.Logger, maxInstances int, fire func(context.Context, time.Time)) *ruleWrapper {
	if maxInstances < 1 {
		maxInstances = 1
	}
	return &ruleWrapper{
		ruleID: ruleID, fire: fire, clk: clk, appCtx: appCtx, maxInstances: maxInstances,
		logger: logger.With(slog.String("component", "scheduler.dispatcher"), slog.String("rule", ruleID)),
	}
}

// Run implements cron.Job. Firings beyond maxInstances are skipped rather
// than queued: within a single rule, firings never overlap unless
// max_instances permits it.
func (w *ruleWrapper) Run() {
	w.mu.Lock()
	if w.inFlight >= w.maxInstances {
		w.mu.Unlock()
		w.logger.Info("firing skipped, max_instances reached", slog.Int("max_instances", w.maxInstances))
		return
	}
	w.inFlight++
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.inFlight--
		w.mu.Unlock()
	}()

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("rule firing panicked",
				slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
		}
	}()

	w.fire(w.appCtx, w.clk.Now())
}

// IsRunning reports whether this rule has any firing currently executing.
func (w *ruleWrapper) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.inFlight > 0
}

// dispatcher drives recurring rule firings via robfig/cron, one entry per
// enabled rule. It owns no rule state itself, Scheduler holds the rule map
// and mutates next_fire_at/run_count/failure_count from within each firing.
type dispatcher struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
	wrapped map[string]*ruleWrapper
}

func newDispatcher(logger *slog.Logger) *dispatcher {
	adapter := schedcron.NewSlogAdapter(logger.With(slog.String("component", "scheduler.dispatcher")))
	return &dispatcher{
		cron:    cron.New(cron.WithLogger(adapter)),
		logger:  logger.With(slog.String("component", "scheduler.dispatcher")),
		entries: make(map[string]cron.EntryID),
		wrapped: make(map[string]*ruleWrapper),
	}
}

func (d *dispatcher) start() { d.cron.Start() }

func (d *dispatcher) stop() context.Context { return d.cron.Stop() }

// register (re-)registers a rule's trigger. Calling it again for the same
// ruleID replaces the prior entry, which is how the dispatcher picks up an
// edited pattern or a resume after pause.
func (d *dispatcher) register(ruleID string, clk clock.Clock, pattern clock.Pattern, maxInstances int, appCtx context.Context, fire func(context.Context, time.Time)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if id, ok := d.entries[ruleID]; ok {
		d.cron.Remove(id)
	}

	wrapper := newRuleWrapper(ruleID, clk, appCtx, d.logger, maxInstances, fire)
	id := d.cron.Schedule(patternSchedule{clk: clk, pattern: pattern}, wrapper)
	d.entries[ruleID] = id
	d.wrapped[ruleID] = wrapper
}

func (d *dispatcher) unregister(ruleID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id, ok := d.entries[ruleID]; ok {
		d.cron.Remove(id)
		delete(d.entries, ruleID)
		delete(d.wrapped, ruleID)
	}
}

// isRunning reports whether ruleID's firing is currently in flight. The
// max_instances limit itself is enforced in ruleWrapper.Run.
func (d *dispatcher) isRunning(ruleID string) bool {
	d.mu.Lock()
	w, ok := d.wrapped[ruleID]
	d.mu.Unlock()
	return ok && w.IsRunning()
}

