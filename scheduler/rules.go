package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/contentops/schedcore/clock"
)

// RuleOptions carries the optional fields shared by every CreateRecurring*
// constructor.
type RuleOptions struct {
	Description    string
	Window         Window
	Style          string
	TargetDuration time.Duration
	TagsTemplate   []string
	Category       string
	Privacy        string
	Account        string
	MaxInstances   int
	Coalesce       bool
	MisfireGrace   time.Duration
}

func (s *Scheduler) createRule(name, topicTemplate string, pattern clock.Pattern, opts RuleOptions) (string, error) {
	maxInstances := opts.MaxInstances
	if maxInstances < 1 {
		maxInstances = 1
	}

	rule := RecurringRule{
		SchemaVersion: 1, ID: s.clk.NewID(), Name: name, Description: opts.Description,
		Enabled: true, Pattern: pattern, Window: opts.Window, TopicTemplate: topicTemplate,
		Style: opts.Style, TargetDuration: opts.TargetDuration, TagsTemplate: opts.TagsTemplate,
		Category: opts.Category, Privacy: opts.Privacy, Account: opts.Account,
		MaxInstances: maxInstances, Coalesce: opts.Coalesce, MisfireGrace: opts.MisfireGrace,
	}

	next, ok := s.clk.NextFire(pattern, s.clk.Now())
	if ok {
		rule.NextFireAt = &next
	}

	s.rulesMu.Lock()
	s.rules[rule.ID] = &rule
	s.registerRuleLocked(rule.ID, &rule)
	s.rulesMu.Unlock()

	if err := s.ruleStore.Put(rule); err != nil {
		return "", fmt.Errorf("scheduler: persist rule: %w", err)
	}
	return rule.ID, nil
}

// CreateDailyRule fires once a day at hour:minute.
func (s *Scheduler) CreateDailyRule(name string, hour, minute int, topicTemplate string, opts RuleOptions) (string, error) {
	return s.createRule(name, topicTemplate, clock.NewDaily(hour, minute), opts)
}

// CreateWeeklyRule fires on each of days at hour:minute.
func (s *Scheduler) CreateWeeklyRule(name string, days []time.Weekday, hour, minute int, topicTemplate string, opts RuleOptions) (string, error) {
	return s.createRule(name, topicTemplate, clock.NewWeekly(days, hour, minute), opts)
}

// CreateMonthlyRule fires on each of daysOfMonth at hour:minute.
func (s *Scheduler) CreateMonthlyRule(name string, daysOfMonth []int, hour, minute int, topicTemplate string, opts RuleOptions) (string, error) {
	return s.createRule(name, topicTemplate, clock.NewMonthly(daysOfMonth, hour, minute), opts)
}

// CreateIntervalRule fires every d.
func (s *Scheduler) CreateIntervalRule(name string, d time.Duration, topicTemplate string, opts RuleOptions) (string, error) {
	return s.createRule(name, topicTemplate, clock.NewInterval(d), opts)
}

// CreateCronRule fires per the standard five-field cron expression expr.
func (s *Scheduler) CreateCronRule(name, expr, topicTemplate string, opts RuleOptions) (string, error) {
	return s.createRule(name, topicTemplate, clock.NewCron(expr), opts)
}

// registerRuleLocked wires rule into the dispatcher. Callers must hold
// s.rulesMu; it additionally requires s.appCtx to be set (post-Start).
func (s *Scheduler) registerRuleLocked(ruleID string, rule *RecurringRule) {
	if s.appCtx == nil {
		return
	}
	s.disp.register(ruleID, s.clk, rule.Pattern, rule.MaxInstances, s.appCtx, s.fireRule(ruleID))
}

// fireRule returns the dispatcher callback for ruleID: expand the topic
// template, schedule a child job, and update the rule's counters.
func (s *Scheduler) fireRule(ruleID string) func(context.Context, time.Time) {
	return func(_ context.Context, firedAt time.Time) {
		s.rulesMu.Lock()
		rule, ok := s.rules[ruleID]
		if !ok || !rule.Enabled || !rule.withinWindow(firedAt) {
			s.rulesMu.Unlock()
			return
		}
		if rule.MisfireGrace > 0 && s.clk.Now().Sub(firedAt) > rule.MisfireGrace {
			s.rulesMu.Unlock()
			s.logger.Info("rule firing skipped, past misfire grace", slog.String("rule", ruleID))
			return
		}
		topic := expandTopicTemplate(rule.TopicTemplate, firedAt)
		snapshot := *rule
		s.rulesMu.Unlock()

		jobID, err := s.scheduleVideo(topic, s.clk.Now(), KindRecurringChild, ruleID, VideoOptions{
			Style: snapshot.Style, Duration: snapshot.TargetDuration, Tags: snapshot.TagsTemplate,
			Category: snapshot.Category, Privacy: snapshot.Privacy, Account: snapshot.Account,
		})

		s.rulesMu.Lock()
		defer s.rulesMu.Unlock()
		rule, ok = s.rules[ruleID]
		if !ok {
			return
		}
		now := s.clk.Now()
		rule.LastFiredAt = &now
		if err != nil {
			rule.FailureCount++
			s.logger.Error("recurring firing failed", slog.String("rule", ruleID), slog.Any("error", err))
		} else {
			rule.RunCount++
			s.logger.Info("recurring firing scheduled job", slog.String("rule", ruleID), slog.String("job", jobID))
		}

		if next, ok := s.clk.NextFire(rule.Pattern, now); ok {
			rule.NextFireAt = &next
		} else {
			rule.NextFireAt = nil
		}

		if err := s.ruleStore.Put(*rule); err != nil {
			s.logger.Error("rule store write failed", slog.String("rule", ruleID), slog.Any("error", err))
		}
	}
}

// PauseRule disables a rule and removes its dispatcher entry. Already-queued
// child jobs are unaffected.
func (s *Scheduler) PauseRule(id string) error {
	s.rulesMu.Lock()
	rule, ok := s.rules[id]
	if !ok {
		s.rulesMu.Unlock()
		return ErrRuleNotFound
	}
	rule.Enabled = false
	ruleCopy := *rule
	s.rulesMu.Unlock()

	s.disp.unregister(id)
	return s.ruleStore.Put(ruleCopy)
}

// ResumeRule re-enables a rule, recomputing next_fire_at from now (no
// catch-up for fires missed while paused) and re-registering it with the
// dispatcher.
func (s *Scheduler) ResumeRule(id string) error {
	s.rulesMu.Lock()
	rule, ok := s.rules[id]
	if !ok {
		s.rulesMu.Unlock()
		return ErrRuleNotFound
	}
	rule.Enabled = true
	if next, ok := s.clk.NextFire(rule.Pattern, s.clk.Now()); ok {
		rule.NextFireAt = &next
	}
	s.registerRuleLocked(id, rule)
	ruleCopy := *rule
	s.rulesMu.Unlock()

	return s.ruleStore.Put(ruleCopy)
}

// DeleteRule removes a rule from the dispatcher, memory, and durable
// storage.
func (s *Scheduler) DeleteRule(id string) error {
	s.rulesMu.Lock()
	_, ok := s.rules[id]
	if !ok {
		s.rulesMu.Unlock()
		return ErrRuleNotFound
	}
	delete(s.rules, id)
	s.rulesMu.Unlock()

	s.disp.unregister(id)
	return s.ruleStore.Remove(id)
}

// GetRule returns a copy of the rule for id.
func (s *Scheduler) GetRule(id string) (RecurringRule, bool) {
	s.rulesMu.Lock()
	defer s.rulesMu.Unlock()
	rule, ok := s.rules[id]
	if !ok {
		return RecurringRule{}, false
	}
	return *rule, true
}

// ListRules returns copies of every registered rule.
func (s *Scheduler) ListRules() []RecurringRule {
	s.rulesMu.Lock()
	defer s.rulesMu.Unlock()
	out := make([]RecurringRule, 0, len(s.rules))
	for _, rule := range s.rules {
		out = append(out, *rule)
	}
	return out
}
