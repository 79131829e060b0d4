package scheduler

import (
	"encoding/json"
	"time"

	"github.com/contentops/schedcore/clock"
)

// Window bounds a recurring rule's active period.
type Window struct {
	StartAt *time.Time `json:"start_at,omitempty"`
	EndAt   *time.Time `json:"end_at,omitempty"`
}

// RecurringRule expands into one-shot jobs at its pattern's fire times.
type RecurringRule struct {
	SchemaVersion int    `json:"schema_version"`
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	Enabled       bool   `json:"enabled"`

	Pattern clock.Pattern `json:"pattern"`
	Window  Window        `json:"window"`

	TopicTemplate string        `json:"topic_template"`
	Style         string        `json:"style"`
	TargetDuration time.Duration `json:"target_duration"`
	TagsTemplate  []string      `json:"tags_template,omitempty"`
	Category      string        `json:"category,omitempty"`
	Privacy       string        `json:"privacy,omitempty"`
	Account       string        `json:"account,omitempty"`

	// MaxInstances bounds concurrent overlapping firings of this rule. The
	// default of 1 means firings never overlap; a firing still in flight
	// when the next one is due is skipped and logged.
	MaxInstances int `json:"max_instances"`

	// Coalesce is persisted with the rule but not read by the dispatcher.
	// Missed fires (e.g. after downtime) are never replayed and no catch-up
	// firing is made, whatever its value.
	Coalesce bool `json:"coalesce"`

	// MisfireGrace bounds how late a fire may run before it is skipped
	// entirely rather than replayed.
	MisfireGrace time.Duration `json:"misfire_grace"`

	LastFiredAt *time.Time `json:"last_fired_at,omitempty"`
	NextFireAt  *time.Time `json:"next_fire_at,omitempty"`

	RunCount     int `json:"run_count"`
	FailureCount int `json:"failure_count"`

	// Extra holds fields from a newer schema version that this build does
	// not recognize, so a load-then-save cycle does not drop them.
	Extra map[string]json.RawMessage `json:"-"`
}

// GetID implements store.Entity.
func (r RecurringRule) GetID() string { return r.ID }

func (r *RecurringRule) withinWindow(at time.Time) bool {
	if r.Window.StartAt != nil && at.Before(*r.Window.StartAt) {
		return false
	}
	if r.Window.EndAt != nil && at.After(*r.Window.EndAt) {
		return false
	}
	return true
}

// ruleKnownFields is the set of JSON keys RecurringRule's own fields occupy.
// Anything else found on unmarshal is stashed in Extra instead of being
// dropped.
var ruleKnownFields = map[string]struct{}{
	"schema_version": {}, "id": {}, "name": {}, "description": {}, "enabled": {},
	"pattern": {}, "window": {},
	"topic_template": {}, "style": {}, "target_duration": {}, "tags_template": {},
	"category": {}, "privacy": {}, "account": {},
	"max_instances": {}, "coalesce": {}, "misfire_grace": {},
	"last_fired_at": {}, "next_fire_at": {},
	"run_count": {}, "failure_count": {},
}

// MarshalJSON writes out RecurringRule's own fields plus anything carried in
// Extra, so fields this build doesn't know about survive a load-then-save
// cycle.
func (r RecurringRule) MarshalJSON() ([]byte, error) {
	type alias RecurringRule
	base, err := json.Marshal(alias(r))
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return base, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, err
	}
	for k, v := range r.Extra {
		if _, known := ruleKnownFields[k]; known {
			continue
		}
		fields[k] = v
	}
	return json.Marshal(fields)
}

// UnmarshalJSON decodes RecurringRule's own fields and stashes any
// unrecognized key in Extra instead of discarding it.
func (r *RecurringRule) UnmarshalJSON(data []byte) error {
	type alias RecurringRule
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = RecurringRule(a)
	r.Extra = nil

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for k, v := range fields {
		if _, known := ruleKnownFields[k]; known {
			continue
		}
		if r.Extra == nil {
			r.Extra = make(map[string]json.RawMessage)
		}
		r.Extra[k] = v
	}
	return nil
}
