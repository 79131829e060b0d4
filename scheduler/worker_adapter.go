package scheduler

import (
	"context"

	"github.com/contentops/schedcore/worker"
)

var _ worker.Worker = (*Scheduler)(nil)

// Name implements worker.Worker, letting cmd/schedulerd supervise the
// scheduler's main loop under worker.Manager's panic-recovery and
// restart-backoff semantics rather than leaving a panic to kill the process.
func (s *Scheduler) Name() string { return "scheduler" }

// OnStart implements worker.Worker by delegating to Start, which already
// satisfies the non-blocking-and-spawns-its-own-goroutine contract.
func (s *Scheduler) OnStart(ctx context.Context) error { return s.Start(ctx) }

// OnStop implements worker.Worker by delegating to Stop.
func (s *Scheduler) OnStop(ctx context.Context) error { return s.Stop(ctx) }
