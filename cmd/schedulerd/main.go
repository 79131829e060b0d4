// Command schedulerd runs the content scheduling core as a long-lived
// process: it loads configuration, wires the clock/store/executor/calendar/
// scheduler stack, and supervises the scheduler's main loop under
// worker.Manager until interrupted.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/contentops/schedcore/calendar"
	"github.com/contentops/schedcore/clock"
	"github.com/contentops/schedcore/config"
	"github.com/contentops/schedcore/config/viper"
	"github.com/contentops/schedcore/executor"
	"github.com/contentops/schedcore/logger"
	"github.com/contentops/schedcore/scheduler"
	"github.com/contentops/schedcore/store"
	"github.com/contentops/schedcore/worker"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := &Config{Log: logger.DefaultConfig()}

	cmd := &cobra.Command{
		Use:          "schedulerd",
		Short:        "Content automation scheduling core",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg, cmd.Flags())
		},
	}

	cfg.flags(cmd.Flags())
	return cmd
}

func run(ctx context.Context, cfg *Config, flags *pflag.FlagSet) error {
	mgr := config.NewWithBackend(viper.New(),
		config.WithName("schedulerd"),
		config.WithSearchPaths(".", "/etc/schedulerd"),
		config.WithEnvPrefix("SCHEDULERD"),
	)
	// Binding the flag set into the backend (rather than relying solely on
	// the direct struct-pointer binding in cfg.flags) gives CLI flags the
	// same precedence over config file/env values that viper gives its own
	// BindPFlags callers elsewhere in the pack.
	if err := mgr.BindFlags(flags); err != nil {
		return fmt.Errorf("schedulerd: bind flags: %w", err)
	}
	if err := mgr.LoadInto(cfg); err != nil {
		return fmt.Errorf("schedulerd: load config: %w", err)
	}

	log := logger.NewLogger(&cfg.Log)
	slog.SetDefault(log)

	// cfg.Timezone is validated (Config.Validate) but clock.System always
	// runs in UTC; recurring patterns are defined and fired in UTC, and an
	// operator-facing timezone is reserved for a future display-layer use.
	clk := clock.NewSystem()

	jobStore, err := store.New[scheduler.Job](filepath.Join(cfg.StoreDir, "jobs"), log)
	if err != nil {
		return fmt.Errorf("schedulerd: job store: %w", err)
	}
	ruleStore, err := store.New[scheduler.RecurringRule](filepath.Join(cfg.StoreDir, "rules"), log)
	if err != nil {
		return fmt.Errorf("schedulerd: rule store: %w", err)
	}

	exec := executor.New(clk, log, cfg.Executor.Concurrency, cfg.executorOptions()...)

	calCfg, err := cfg.calendarConfig()
	if err != nil {
		return fmt.Errorf("schedulerd: calendar config: %w", err)
	}
	cal := calendar.New(clk, log, calCfg)

	watchCalendarConfig(mgr, log, cfg, cal)

	collab := newCollaborators(log, filepath.Join(cfg.StoreDir, "media"))

	sched := scheduler.New(clk, log, exec, collab, jobStore, ruleStore, cfg.schedulerConfig(),
		scheduler.WithCalendar(cal))

	wm := worker.NewManager(log)
	if err := wm.Register(sched); err != nil {
		return fmt.Errorf("schedulerd: register scheduler worker: %w", err)
	}
	wm.SetCriticalFailHandler(func() {
		log.Error("scheduler worker circuit breaker tripped, shutting down")
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := wm.Start(ctx); err != nil {
		return fmt.Errorf("schedulerd: start workers: %w", err)
	}

	<-ctx.Done()
	log.Info("shutting down")
	return wm.Stop()
}

// watchCalendarConfig wires fsnotify-backed live reload for the settings an
// operator is most likely to adjust without a restart: blackout days and
// preferred publishing hours. Reloaded values are pushed into both cfg (so
// it stays consistent for anything that reads it later) and the
// already-running cal, which is the object that actually evaluates them.
func watchCalendarConfig(mgr *config.Manager, log *slog.Logger, cfg *Config, cal *calendar.Calendar) {
	backend, ok := mgr.Backend().(config.Watcher)
	if !ok {
		return
	}
	backend.WatchConfig()
	backend.OnConfigChange(func(event any) {
		reloaded := &Config{}
		if err := mgr.Backend().Unmarshal(reloaded); err != nil {
			log.Warn("config reload failed", slog.Any("error", err))
			return
		}
		cfg.Calendar.BlackoutDays = reloaded.Calendar.BlackoutDays
		cfg.Calendar.PreferredHours = reloaded.Calendar.PreferredHours

		calCfg, err := cfg.calendarConfig()
		if err != nil {
			log.Warn("calendar config reload rejected", slog.Any("error", err))
			return
		}
		cal.UpdateConfig(calCfg.BlackoutDays, calCfg.PreferredHours)

		log.Info("reloaded calendar config",
			slog.Int("blackout_days", len(cfg.Calendar.BlackoutDays)),
			slog.Int("preferred_hours", len(cfg.Calendar.PreferredHours)))
	})
}
