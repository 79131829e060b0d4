// Package cron bridges robfig/cron's logging hook to slog.
//
// scheduler's recurring dispatcher drives robfig/cron directly (its own
// Job and Schedule implementations live in scheduler/dispatcher.go); this
// package supplies only the [NewSlogAdapter] so that cron.Cron's internal
// log lines flow through the rest of the module's structured logging
// instead of the standard library's log package.
package cron
