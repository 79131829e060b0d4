// Package executor runs closures under bounded concurrency with configurable
// retry policy, timeout, and progress reporting, retaining a bounded history
// of completed executions.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/contentops/schedcore/backoff"
	"github.com/contentops/schedcore/clock"
)

// Status is the terminal (or in-flight) state of an execution.
type Status string

const (
	StatusRunning   Status = "running"
	StatusRetrying  Status = "retrying"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusTimedOut  Status = "timed-out"
)

// RetryStrategy selects the delay formula applied between attempts.
type RetryStrategy int

const (
	RetryNone RetryStrategy = iota
	RetryFixed
	RetryLinear
	RetryExponential
)

// ProgressFunc reports monotonic progress for an in-flight execution.
// percent must be non-decreasing across calls for the same execution.
type ProgressFunc func(percent int, message string)

// Work is the unit of work executed under the concurrency gate. It receives
// a context bounded by the configured timeout (if any) and a progress
// reporter (nil-safe to call). Returning an error wrapped with
// backoff.Permanent short-circuits retries immediately.
type Work func(ctx context.Context, progress ProgressFunc) (any, error)

// ExecuteOptions configures a single Execute call.
type ExecuteOptions struct {
	// ID identifies this execution in the history ring. Required.
	ID string
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int
	// Strategy selects the backoff formula.
	Strategy RetryStrategy
	// BaseDelay is the base unit used by Fixed/Linear/Exponential.
	BaseDelay time.Duration
	// MaxDelay clamps the computed delay, for every strategy including None.
	MaxDelay time.Duration
	// Timeout bounds a single attempt's wall-clock duration. Zero means no
	// timeout.
	Timeout time.Duration
	// Progress, if non-nil, is invoked with monotonic percent updates.
	Progress ProgressFunc
}

// ExecutionResult is the outcome of an Execute call.
type ExecutionResult struct {
	ID           string
	Status       Status
	StartedAt    time.Time
	CompletedAt  time.Time
	Duration     time.Duration
	ResultData   any
	ErrorMessage string
	RetryCount   int
	Progress     int
}

// Executor runs Work closures under a fixed concurrency limit.
type Executor struct {
	clk    clock.Clock
	logger *slog.Logger
	sem    chan struct{}

	historyMu        sync.Mutex
	history          map[string]ExecutionResult
	historyOrder     []string
	historyRetention time.Duration
}

// Option configures an Executor at construction time.
type Option func(*Executor)

// WithHistoryRetention sets the age after which completed results are
// evicted from the history ring. Zero (the default) disables eviction.
func WithHistoryRetention(d time.Duration) Option {
	return func(e *Executor) { e.historyRetention = d }
}

// New creates an Executor with the given concurrency limit (must be >= 1).
func New(clk clock.Clock, logger *slog.Logger, concurrency int, opts ...Option) *Executor {
	if concurrency < 1 {
		concurrency = 1
	}
	e := &Executor{
		clk:     clk,
		logger:  logger.With(slog.String("component", "executor")),
		sem:     make(chan struct{}, concurrency),
		history: make(map[string]ExecutionResult),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs work under the concurrency gate, applying opts.Strategy's
// retry policy. Execute blocks until the semaphore admits the call, the
// work completes (possibly after retries), or ctx is cancelled while
// waiting for the gate.
func (e *Executor) Execute(ctx context.Context, work Work, opts ExecuteOptions) (ExecutionResult, error) {
	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		return ExecutionResult{}, ctx.Err()
	}
	defer func() { <-e.sem }()

	return e.run(ctx, work, opts)
}

// ExecuteBatch runs each item's work sequentially through Execute, gathering
// results. If failFast is true, the first non-completed result stops the
// batch early; subsequent items are skipped and not returned.
func (e *Executor) ExecuteBatch(ctx context.Context, items []Work, optsFor func(i int) ExecuteOptions, failFast bool) []ExecutionResult {
	results := make([]ExecutionResult, 0, len(items))
	for i, w := range items {
		res, err := e.Execute(ctx, w, optsFor(i))
		results = append(results, res)
		if err != nil && failFast {
			break
		}
		if failFast && res.Status != StatusCompleted {
			break
		}
	}
	return results
}

func (e *Executor) run(ctx context.Context, work Work, opts ExecuteOptions) (ExecutionResult, error) {
	backOff := e.backOffFor(opts)
	started := e.clk.Now()
	attempt := 0
	lastPercent := 0

	progress := func(percent int, message string) {
		if percent > lastPercent {
			lastPercent = percent
		}
		if opts.Progress != nil {
			opts.Progress(percent, message)
		}
	}

	for {
		attempt++

		runCtx := ctx
		var cancel context.CancelFunc
		if opts.Timeout > 0 {
			runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		}

		resultData, err := e.runOnce(runCtx, work, progress)
		timedOut := opts.Timeout > 0 && runCtx.Err() == context.DeadlineExceeded
		if cancel != nil {
			cancel()
		}

		if err == nil {
			result := ExecutionResult{
				ID: opts.ID, Status: StatusCompleted, StartedAt: started,
				CompletedAt: e.clk.Now(), ResultData: resultData,
				RetryCount: attempt - 1, Progress: 100,
			}
			result.Duration = result.CompletedAt.Sub(result.StartedAt)
			e.record(result)
			return result, nil
		}

		if ctx.Err() != nil {
			result := ExecutionResult{
				ID: opts.ID, Status: StatusCancelled, StartedAt: started,
				CompletedAt: e.clk.Now(), ErrorMessage: err.Error(), RetryCount: attempt - 1,
				Progress: lastPercent,
			}
			result.Duration = result.CompletedAt.Sub(result.StartedAt)
			e.record(result)
			return result, ctx.Err()
		}

		var permanent *backoff.PermanentError
		permanentFailure := errors.As(err, &permanent)

		exhausted := attempt-1 >= opts.MaxRetries
		if permanentFailure || exhausted {
			status := StatusFailed
			if timedOut && exhausted {
				status = StatusTimedOut
			}
			result := ExecutionResult{
				ID: opts.ID, Status: status, StartedAt: started,
				CompletedAt: e.clk.Now(), ErrorMessage: err.Error(),
				RetryCount: attempt - 1, Progress: lastPercent,
			}
			result.Duration = result.CompletedAt.Sub(result.StartedAt)
			e.record(result)
			return result, err
		}

		delay := backOff.NextBackOff()
		if delay == backoff.Stop {
			result := ExecutionResult{
				ID: opts.ID, Status: StatusFailed, StartedAt: started,
				CompletedAt: e.clk.Now(), ErrorMessage: err.Error(),
				RetryCount: attempt - 1, Progress: lastPercent,
			}
			result.Duration = result.CompletedAt.Sub(result.StartedAt)
			e.record(result)
			return result, err
		}

		progress(lastPercent, fmt.Sprintf("retrying after %v (attempt %d)", delay, attempt))
		e.logger.Warn("execution failed, retrying",
			slog.String("id", opts.ID), slog.Int("attempt", attempt),
			slog.Duration("delay", delay), slog.Any("error", err))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			result := ExecutionResult{
				ID: opts.ID, Status: StatusCancelled, StartedAt: started,
				CompletedAt: e.clk.Now(), ErrorMessage: ctx.Err().Error(),
				RetryCount: attempt - 1, Progress: lastPercent,
			}
			result.Duration = result.CompletedAt.Sub(result.StartedAt)
			e.record(result)
			return result, ctx.Err()
		}
	}
}

// runOnce invokes work with panic recovery, following the recovery shape of
// worker/supervisor.go's runWithRecovery.
func (e *Executor) runOnce(ctx context.Context, work Work, progress ProgressFunc) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			e.logger.Error("work panicked", slog.Any("panic", r), slog.String("stack", string(stack)))
			err = fmt.Errorf("executor: panic: %v", r)
		}
	}()
	return work(ctx, progress)
}

func (e *Executor) backOffFor(opts ExecuteOptions) backoff.BackOff {
	base := opts.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	switch opts.Strategy {
	case RetryFixed:
		return backoff.NewConstantBackOff(clampDelay(base, opts.MaxDelay))
	case RetryLinear:
		return backoff.NewLinearBackOff(base, opts.MaxDelay)
	case RetryExponential:
		b := backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(base),
			backoff.WithRandomizationFactor(0),
		)
		if opts.MaxDelay > 0 {
			backoff.WithMaxInterval(opts.MaxDelay)(b)
		}
		return b
	default:
		return &backoff.ZeroBackOff{}
	}
}

func clampDelay(d, max time.Duration) time.Duration {
	if max > 0 && d > max {
		return max
	}
	return d
}

func (e *Executor) record(result ExecutionResult) {
	e.historyMu.Lock()
	defer e.historyMu.Unlock()

	e.history[result.ID] = result
	e.historyOrder = append(e.historyOrder, result.ID)

	if e.historyRetention <= 0 {
		return
	}
	cutoff := e.clk.Now().Add(-e.historyRetention)
	kept := e.historyOrder[:0]
	for _, id := range e.historyOrder {
		if r, ok := e.history[id]; ok && r.CompletedAt.Before(cutoff) {
			delete(e.history, id)
			continue
		}
		kept = append(kept, id)
	}
	e.historyOrder = kept
}

// History returns the retained result for id, if present.
func (e *Executor) History(id string) (ExecutionResult, bool) {
	e.historyMu.Lock()
	defer e.historyMu.Unlock()
	r, ok := e.history[id]
	return r, ok
}
