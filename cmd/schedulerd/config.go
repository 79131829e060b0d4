package main

import (
	"time"

	"github.com/spf13/pflag"

	"github.com/contentops/schedcore/calendar"
	"github.com/contentops/schedcore/executor"
	"github.com/contentops/schedcore/logger"
	"github.com/contentops/schedcore/scheduler"
)

// Config aggregates every component's tunables into the one struct loaded
// by config.Manager. Nested structs use mapstructure tags matching the
// component Config types they feed; Default/Validate bridge the gap between
// this flat loading shape and the typed configs each constructor expects.
type Config struct {
	Log logger.Config `mapstructure:"log"`

	StoreDir string `mapstructure:"store_dir" validate:"required"`
	Timezone string `mapstructure:"timezone" validate:"required"`

	Executor ExecutorConfig `mapstructure:"executor"`
	Calendar CalendarConfig `mapstructure:"calendar"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// ExecutorConfig mirrors executor.New's constructor arguments plus
// executor.WithHistoryRetention.
type ExecutorConfig struct {
	Concurrency      int           `mapstructure:"concurrency" validate:"min=1"`
	HistoryRetention time.Duration `mapstructure:"history_retention"`
}

// CalendarConfig mirrors calendar.Config; blackout days are loaded as
// RFC3339 dates and parsed by calendarConfig.
type CalendarConfig struct {
	MinGapHours              float64  `mapstructure:"min_gap_hours" validate:"min=0"`
	MaxVideosPerDay          int      `mapstructure:"max_videos_per_day" validate:"min=1"`
	PreferredHours           []int    `mapstructure:"preferred_hours"`
	BlackoutDays             []string `mapstructure:"blackout_days"`
	DetectTopicConflicts     bool     `mapstructure:"detect_topic_conflicts"`
	TopicSimilarityThreshold float64  `mapstructure:"topic_similarity_threshold" validate:"min=0,max=1"`
}

// SchedulerConfig mirrors scheduler.Config.
type SchedulerConfig struct {
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	MaxConcurrentJobs int           `mapstructure:"max_concurrent_jobs"`
	StageTimeout      time.Duration `mapstructure:"stage_timeout"`
	DefaultMaxRetries int           `mapstructure:"default_max_retries"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	MaxRetryDelay     time.Duration `mapstructure:"max_retry_delay"`
}

// Default implements config.Defaulter.
func (c *Config) Default() {
	c.Log.SetDefaults()
	if c.StoreDir == "" {
		c.StoreDir = "./data"
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.Executor.Concurrency == 0 {
		c.Executor.Concurrency = 4
	}
	if c.Executor.HistoryRetention == 0 {
		c.Executor.HistoryRetention = 24 * time.Hour
	}
	if c.Calendar.MaxVideosPerDay == 0 {
		c.Calendar.MaxVideosPerDay = 3
	}
	if c.Calendar.TopicSimilarityThreshold == 0 {
		c.Calendar.TopicSimilarityThreshold = 0.6
	}
}

// Validate implements config.Validator, covering checks a struct tag can't
// express (cross-field, or parsing the blackout day strings).
func (c *Config) Validate() error {
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return err
	}
	if _, err := c.calendarConfig(); err != nil {
		return err
	}
	return nil
}

// calendarConfig converts CalendarConfig into calendar.Config, parsing
// blackout day strings as RFC3339 dates.
func (c *Config) calendarConfig() (calendar.Config, error) {
	days := make([]time.Time, 0, len(c.Calendar.BlackoutDays))
	for _, s := range c.Calendar.BlackoutDays {
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			return calendar.Config{}, err
		}
		days = append(days, d)
	}
	return calendar.Config{
		MinGapHours:              c.Calendar.MinGapHours,
		MaxVideosPerDay:          c.Calendar.MaxVideosPerDay,
		PreferredHours:           c.Calendar.PreferredHours,
		BlackoutDays:             days,
		DetectTopicConflicts:     c.Calendar.DetectTopicConflicts,
		TopicSimilarityThreshold: c.Calendar.TopicSimilarityThreshold,
	}, nil
}

func (c *Config) executorOptions() []executor.Option {
	var opts []executor.Option
	if c.Executor.HistoryRetention > 0 {
		opts = append(opts, executor.WithHistoryRetention(c.Executor.HistoryRetention))
	}
	return opts
}

func (c *Config) schedulerConfig() scheduler.Config {
	return scheduler.Config{
		PollInterval:      c.Scheduler.PollInterval,
		MaxConcurrentJobs: c.Scheduler.MaxConcurrentJobs,
		StageTimeout:      c.Scheduler.StageTimeout,
		DefaultMaxRetries: c.Scheduler.DefaultMaxRetries,
		RetryDelay:        c.Scheduler.RetryDelay,
		MaxRetryDelay:     c.Scheduler.MaxRetryDelay,
	}
}

// flags registers every flag the config supports, following logger.Config's
// own Flags method.
func (c *Config) flags(fs *pflag.FlagSet) {
	c.Log.Flags(fs)
	fs.StringVar(&c.StoreDir, "store-dir", c.StoreDir, "Directory for job and rule JSON persistence")
	fs.StringVar(&c.Timezone, "timezone", c.Timezone, "IANA timezone name (validated only; recurring rules are evaluated in UTC)")
	fs.IntVar(&c.Executor.Concurrency, "executor-concurrency", c.Executor.Concurrency, "Max concurrent stage executions")
	fs.DurationVar(&c.Executor.HistoryRetention, "executor-history-retention", c.Executor.HistoryRetention, "How long completed executions stay in the executor's history ring")
	fs.Float64Var(&c.Calendar.MinGapHours, "calendar-min-gap-hours", c.Calendar.MinGapHours, "Minimum hours required between two publish slots")
	fs.IntVar(&c.Calendar.MaxVideosPerDay, "calendar-max-per-day", c.Calendar.MaxVideosPerDay, "Maximum videos schedulable on one calendar day")
	fs.IntSliceVar(&c.Calendar.PreferredHours, "calendar-preferred-hours", c.Calendar.PreferredHours, "Hours of day favored by SuggestOptimalSlots")
	fs.StringSliceVar(&c.Calendar.BlackoutDays, "calendar-blackout-days", c.Calendar.BlackoutDays, "Dates (YYYY-MM-DD) with no available slots")
	fs.BoolVar(&c.Calendar.DetectTopicConflicts, "calendar-detect-topic-conflicts", c.Calendar.DetectTopicConflicts, "Report slots within 7 days of each other with similar topics as conflicts")
	fs.Float64Var(&c.Calendar.TopicSimilarityThreshold, "calendar-topic-similarity-threshold", c.Calendar.TopicSimilarityThreshold, "Jaccard threshold at or above which two topics are considered a conflict")
	fs.DurationVar(&c.Scheduler.PollInterval, "scheduler-poll-interval", c.Scheduler.PollInterval, "Main loop tick cadence")
	fs.IntVar(&c.Scheduler.MaxConcurrentJobs, "scheduler-max-concurrent-jobs", c.Scheduler.MaxConcurrentJobs, "Max jobs running at once; each tick starts only as many as there are free slots")
	fs.DurationVar(&c.Scheduler.StageTimeout, "scheduler-stage-timeout", c.Scheduler.StageTimeout, "Timeout for one stage-machine pass of a job through the executor")
	fs.IntVar(&c.Scheduler.DefaultMaxRetries, "scheduler-default-max-retries", c.Scheduler.DefaultMaxRetries, "Default retry ceiling for jobs that don't specify their own")
	fs.DurationVar(&c.Scheduler.RetryDelay, "scheduler-retry-delay", c.Scheduler.RetryDelay, "Base unit for scheduler-side retry backoff")
	fs.DurationVar(&c.Scheduler.MaxRetryDelay, "scheduler-max-retry-delay", c.Scheduler.MaxRetryDelay, "Clamp on computed retry delay")
}
