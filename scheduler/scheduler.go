package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/contentops/schedcore/backoff"
	"github.com/contentops/schedcore/calendar"
	"github.com/contentops/schedcore/clock"
	"github.com/contentops/schedcore/executor"
	"github.com/contentops/schedcore/store"
)

// ErrJobNotFound is returned by job operations on an unknown id.
var ErrJobNotFound = errors.New("scheduler: job not found")

// ErrRuleNotFound is returned by rule operations on an unknown id.
var ErrRuleNotFound = errors.New("scheduler: rule not found")

// Config tunes the scheduler's main loop and retry policy. Values of zero
// fall back to sane defaults in New.
type Config struct {
	// PollInterval is the main loop's tick cadence. Default 60s.
	PollInterval time.Duration
	// MaxConcurrentJobs bounds how many jobs the main loop will start at
	// once; actual concurrency is also gated by the executor.
	MaxConcurrentJobs int
	// StageTimeout bounds a single stage-machine pass through the executor.
	StageTimeout time.Duration
	// DefaultMaxRetries is applied to jobs that don't specify their own.
	DefaultMaxRetries int
	// RetryDelay is the base unit for scheduler-side retry backoff:
	// next scheduled_at = now + RetryDelay * retry_count.
	RetryDelay time.Duration
	// MaxRetryDelay clamps the computed retry delay.
	MaxRetryDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 60 * time.Second
	}
	if c.MaxConcurrentJobs <= 0 {
		c.MaxConcurrentJobs = 4
	}
	if c.StageTimeout <= 0 {
		c.StageTimeout = 10 * time.Minute
	}
	if c.DefaultMaxRetries <= 0 {
		c.DefaultMaxRetries = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 30 * time.Second
	}
	if c.MaxRetryDelay <= 0 {
		c.MaxRetryDelay = 15 * time.Minute
	}
	return c
}

// VideoOptions carries the optional fields for ScheduleVideo.
type VideoOptions struct {
	PublishAt *time.Time
	Style     string
	Duration  time.Duration
	Tags      []string
	Category  string
	Privacy   string
	Account   string
	MaxRetries int
	// ReserveSlot requests a calendar reservation for this video's
	// scheduled_at, recording the resulting slot id on the job. No-op if
	// the Scheduler was constructed without a Calendar.
	ReserveSlot bool
}

// VideoRequest is one item of a ScheduleBatch call.
type VideoRequest struct {
	Topic       string
	ScheduledAt time.Time
	Options     VideoOptions
}

// Stats summarizes job state counts, mirroring calendar.Stats for the
// symmetrical statistics() operation named in the component contracts.
type Stats struct {
	CountsByState map[State]int
	Active        int
	Running       int
}

// Scheduler orchestrates one-shot jobs and recurring rules: it drives the
// per-job stage machine, expands recurring rules into firings via its
// dispatcher, and coordinates with an Executor for bounded-concurrency,
// timed-out stage execution.
type Scheduler struct {
	clk      clock.Clock
	logger   *slog.Logger
	cfg      Config
	exec     *executor.Executor
	collab   Collaborators
	jobStore *store.Store[Job]
	ruleStore *store.Store[RecurringRule]
	disp     *dispatcher
	cal      *calendar.Calendar

	jobsMu sync.Mutex
	jobs   map[string]*Job

	rulesMu sync.Mutex
	rules   map[string]*RecurringRule

	activeMu sync.Mutex
	active   map[string]context.CancelFunc

	runMu     sync.Mutex
	running   bool
	appCtx    context.Context
	appCancel context.CancelFunc
	loopDone  chan struct{}
}

// Option configures optional Scheduler dependencies.
type Option func(*Scheduler)

// WithCalendar attaches a Calendar so ScheduleVideo/ScheduleBatch can
// reserve a slot for the job alongside its job record. Without this option
// VideoOptions.ReserveSlot is a no-op.
func WithCalendar(cal *calendar.Calendar) Option {
	return func(s *Scheduler) { s.cal = cal }
}

// New creates a Scheduler. Call Start to begin the main loop and the
// recurring dispatcher; construction alone does not run anything.
func New(clk clock.Clock, logger *slog.Logger, exec *executor.Executor, collab Collaborators,
	jobStore *store.Store[Job], ruleStore *store.Store[RecurringRule], cfg Config, opts ...Option) *Scheduler {
	s := &Scheduler{
		clk: clk, logger: logger.With(slog.String("component", "scheduler")),
		cfg: cfg.withDefaults(), exec: exec, collab: collab,
		jobStore: jobStore, ruleStore: ruleStore,
		disp:   newDispatcher(logger),
		jobs:   make(map[string]*Job),
		rules:  make(map[string]*RecurringRule),
		active: make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads persisted jobs and rules, then starts the main loop and the
// recurring dispatcher. Idempotent.
func (s *Scheduler) Start(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.running {
		return nil
	}

	jobs, err := s.jobStore.LoadAll()
	if err != nil {
		return fmt.Errorf("scheduler: load jobs: %w", err)
	}
	s.jobsMu.Lock()
	for i := range jobs {
		j := jobs[i]
		s.jobs[j.ID] = &j
	}
	s.jobsMu.Unlock()

	rules, err := s.ruleStore.LoadAll()
	if err != nil {
		return fmt.Errorf("scheduler: load rules: %w", err)
	}
	s.rulesMu.Lock()
	for i := range rules {
		r := rules[i]
		s.rules[r.ID] = &r
	}
	s.rulesMu.Unlock()

	s.appCtx, s.appCancel = context.WithCancel(ctx)
	s.disp.start()

	s.rulesMu.Lock()
	for id, rule := range s.rules {
		if rule.Enabled {
			s.registerRuleLocked(id, rule)
		}
	}
	s.rulesMu.Unlock()

	s.running = true
	s.loopDone = make(chan struct{})
	go s.mainLoop()

	s.logger.Info("scheduler started", slog.Int("jobs", len(s.jobs)), slog.Int("rules", len(s.rules)))
	return nil
}

// Stop cancels the main loop and the dispatcher, then waits (bounded by
// ctx) for active jobs to reach their next persist point.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.runMu.Lock()
	if !s.running {
		s.runMu.Unlock()
		return nil
	}
	s.running = false
	s.appCancel()
	s.runMu.Unlock()

	<-s.loopDone

	cronDone := s.disp.stop()
	select {
	case <-cronDone.Done():
	case <-ctx.Done():
	}

	for ctx.Err() == nil {
		s.activeMu.Lock()
		n := len(s.active)
		s.activeMu.Unlock()
		if n == 0 {
			break
		}
		select {
		case <-ctx.Done():
		case <-time.After(10 * time.Millisecond):
		}
	}

	s.logger.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) mainLoop() {
	defer close(s.loopDone)
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.appCtx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Scheduler) tick() {
	now := s.clk.Now()

	s.activeMu.Lock()
	slots := s.cfg.MaxConcurrentJobs - len(s.active)
	s.activeMu.Unlock()
	if slots <= 0 {
		return
	}

	var due []*Job
	s.jobsMu.Lock()
	for _, job := range s.jobs {
		if job.State == StatePending && !job.ScheduledAt.After(now) {
			due = append(due, job)
		}
	}
	s.jobsMu.Unlock()

	for i, job := range due {
		if i >= slots {
			break
		}
		s.startJob(job)
	}
}

func (s *Scheduler) startJob(job *Job) {
	ctx, cancel := context.WithCancel(s.appCtx)

	s.activeMu.Lock()
	s.active[job.ID] = cancel
	s.activeMu.Unlock()

	s.jobsMu.Lock()
	job.State = StateScheduled
	jobCopy := *job
	s.jobsMu.Unlock()
	s.persistJob(jobCopy)

	go func() {
		defer func() {
			s.activeMu.Lock()
			delete(s.active, job.ID)
			s.activeMu.Unlock()
		}()
		s.runJob(ctx, job)
	}()
}

// runJob drives one pass of the stage machine for job through the executor.
func (s *Scheduler) runJob(ctx context.Context, job *Job) {
	s.jobsMu.Lock()
	if job.State.Terminal() {
		// Cancelled (or otherwise finished) between startJob launching this
		// goroutine and it acquiring jobsMu. CancelJob already persisted the
		// terminal state; this call must perform zero further store writes.
		s.jobsMu.Unlock()
		return
	}
	now := s.clk.Now()
	job.State = StateRunning
	job.StartedAt = orNow(job.StartedAt, now)
	local := *job
	s.jobsMu.Unlock()
	s.persistJob(local)

	// commitLocal writes local back into the shared map entry under
	// s.jobsMu, unless the job has since reached a terminal state (e.g.
	// CancelJob ran concurrently), whose write must stay authoritative.
	commitLocal := func() {
		s.jobsMu.Lock()
		if !job.State.Terminal() {
			*job = local
		}
		s.jobsMu.Unlock()
	}

	var lastStage Stage

	work := func(ctx context.Context, progress executor.ProgressFunc) (any, error) {
		stages := stagesFor(&local)
		startIdx := 0
		if local.Stage != "" {
			for i, st := range stages {
				if st == local.Stage {
					startIdx = i
					break
				}
			}
		}
		for i := startIdx; i < len(stages); i++ {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			stage := stages[i]
			local.Stage = stage
			lastStage = stage
			if err := runStage(ctx, s.collab, &local, stage, func(p int, msg string) {
				local.recordProgress(stage, p)
				progress(p, msg)
			}); err != nil {
				commitLocal()
				return nil, err
			}
			commitLocal()
		}
		local.Stage = ""
		commitLocal()
		return nil, nil
	}

	opts := executor.ExecuteOptions{
		ID: job.ID, MaxRetries: 0, Timeout: s.cfg.StageTimeout,
	}
	_, err := s.exec.Execute(ctx, work, opts)

	if ctx.Err() != nil {
		// CancelJob already persisted the terminal state; this task must
		// perform zero further store writes past the cancellation point.
		return
	}

	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	now = s.clk.Now()
	if err == nil {
		job.State = StateCompleted
		job.CompletedAt = &now
		s.persistJob(*job)
		return
	}

	var permanent *backoff.PermanentError
	isPermanent := errors.As(err, &permanent)

	job.Error = &JobError{Stage: lastStage, Message: err.Error()}
	job.RetryCount++

	if isPermanent || job.RetryCount >= job.MaxRetries {
		job.State = StateFailed
		job.CompletedAt = &now
	} else {
		job.State = StatePending
		job.ScheduledAt = now.Add(clampRetryDelay(s.cfg.RetryDelay*time.Duration(job.RetryCount), s.cfg.MaxRetryDelay))
	}
	s.persistJob(*job)
}

func clampRetryDelay(d, max time.Duration) time.Duration {
	if max > 0 && d > max {
		return max
	}
	return d
}

func orNow(existing *time.Time, now time.Time) *time.Time {
	if existing != nil {
		return existing
	}
	t := now
	return &t
}

// persistJob writes job to durable storage, logging (but not panicking) on
// failure: the in-flight goroutine has no sensible unwind target, so it logs
// at error level and leaves the job in its last-persisted on-disk state.
func (s *Scheduler) persistJob(job Job) {
	if err := s.jobStore.Put(job); err != nil {
		s.logger.Error("job store write failed", slog.String("job", job.ID), slog.Any("error", err))
	}
}

// ScheduleVideo creates a one-shot job for topic at scheduledAt.
func (s *Scheduler) ScheduleVideo(topic string, scheduledAt time.Time, opts VideoOptions) (string, error) {
	return s.scheduleVideo(topic, scheduledAt, KindSingleVideo, "", opts)
}

func (s *Scheduler) scheduleVideo(topic string, scheduledAt time.Time, kind Kind, ruleID string, opts VideoOptions) (string, error) {
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = s.cfg.DefaultMaxRetries
	}
	job := Job{
		SchemaVersion: 1, ID: s.clk.NewID(), Kind: kind, State: StatePending,
		ScheduledAt: scheduledAt, PublishAt: opts.PublishAt,
		Topic: topic, Style: opts.Style, TargetDuration: opts.Duration,
		Tags: opts.Tags, Category: opts.Category, Privacy: opts.Privacy, Account: opts.Account,
		MaxRetries: maxRetries, CreatedAt: s.clk.Now(), RuleID: ruleID,
	}

	if opts.ReserveSlot && s.cal != nil {
		reserveOpts := calendar.ReserveOptions{Tags: opts.Tags, JobID: job.ID}
		if opts.PublishAt != nil {
			reserveOpts.PublishAt = *opts.PublishAt
		}
		slot := s.cal.Reserve(scheduledAt, topic, opts.Duration, reserveOpts)
		job.CalendarSlotID = slot.ID
	}

	s.jobsMu.Lock()
	s.jobs[job.ID] = &job
	s.jobsMu.Unlock()

	if err := s.jobStore.Put(job); err != nil {
		return "", fmt.Errorf("scheduler: persist job: %w", err)
	}
	return job.ID, nil
}

// ScheduleBatch creates one job per request, continuing past individual
// failures and returning the ids that succeeded alongside the first error.
func (s *Scheduler) ScheduleBatch(requests []VideoRequest) ([]string, error) {
	ids := make([]string, 0, len(requests))
	var firstErr error
	for _, req := range requests {
		id, err := s.scheduleVideo(req.Topic, req.ScheduledAt, KindBatchMember, "", req.Options)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		ids = append(ids, id)
	}
	return ids, firstErr
}

// CancelJob aborts an in-flight job (if any) and transitions it to
// cancelled. No further store writes for this job occur after this call
// returns.
func (s *Scheduler) CancelJob(id string) error {
	s.jobsMu.Lock()
	job, ok := s.jobs[id]
	if !ok {
		s.jobsMu.Unlock()
		return ErrJobNotFound
	}
	if job.State.Terminal() {
		s.jobsMu.Unlock()
		return nil
	}
	now := s.clk.Now()
	job.State = StateCancelled
	job.CompletedAt = &now
	jobCopy := *job
	s.jobsMu.Unlock()

	s.activeMu.Lock()
	if cancel, ok := s.active[id]; ok {
		cancel()
	}
	s.activeMu.Unlock()

	return s.jobStore.Put(jobCopy)
}

// PauseJob transitions a pending job to paused. Valid only from pending.
func (s *Scheduler) PauseJob(id string) error {
	s.jobsMu.Lock()
	job, ok := s.jobs[id]
	if !ok {
		s.jobsMu.Unlock()
		return ErrJobNotFound
	}
	if job.State != StatePending {
		s.jobsMu.Unlock()
		return fmt.Errorf("scheduler: cannot pause job %s in state %s", id, job.State)
	}
	job.State = StatePaused
	jobCopy := *job
	s.jobsMu.Unlock()
	return s.jobStore.Put(jobCopy)
}

// ResumeJob transitions a paused job back to pending.
func (s *Scheduler) ResumeJob(id string) error {
	s.jobsMu.Lock()
	job, ok := s.jobs[id]
	if !ok {
		s.jobsMu.Unlock()
		return ErrJobNotFound
	}
	if job.State != StatePaused {
		s.jobsMu.Unlock()
		return fmt.Errorf("scheduler: cannot resume job %s in state %s", id, job.State)
	}
	job.State = StatePending
	jobCopy := *job
	s.jobsMu.Unlock()
	return s.jobStore.Put(jobCopy)
}

// GetJob returns a copy of the job for id.
func (s *Scheduler) GetJob(id string) (Job, bool) {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// ListJobs returns copies of jobs matching filter, or all jobs if filter is
// nil.
func (s *Scheduler) ListJobs(filter func(Job) bool) []Job {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	var out []Job
	for _, job := range s.jobs {
		if filter == nil || filter(*job) {
			out = append(out, *job)
		}
	}
	return out
}

// PruneCompleted removes terminal jobs whose CompletedAt is older than
// olderThan, both from memory and from durable storage.
func (s *Scheduler) PruneCompleted(olderThan time.Duration) int {
	cutoff := s.clk.Now().Add(-olderThan)

	s.jobsMu.Lock()
	var toRemove []string
	for id, job := range s.jobs {
		if job.State.Terminal() && job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			toRemove = append(toRemove, id)
		}
	}
	for _, id := range toRemove {
		delete(s.jobs, id)
	}
	s.jobsMu.Unlock()

	for _, id := range toRemove {
		if err := s.jobStore.Remove(id); err != nil {
			s.logger.Error("prune: remove failed", slog.String("job", id), slog.Any("error", err))
		}
	}
	return len(toRemove)
}

// Statistics summarizes job state across the in-memory job set.
func (s *Scheduler) Statistics() Stats {
	s.jobsMu.Lock()
	stats := Stats{CountsByState: make(map[State]int)}
	for _, job := range s.jobs {
		stats.CountsByState[job.State]++
		if job.State == StateRunning {
			stats.Running++
		}
	}
	s.jobsMu.Unlock()

	s.activeMu.Lock()
	stats.Active = len(s.active)
	s.activeMu.Unlock()

	return stats
}
