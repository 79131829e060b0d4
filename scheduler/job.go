// Package scheduler orchestrates one-shot jobs and recurring rules: it drives
// the per-job stage machine, expands recurring rules into firings, and
// coordinates with the executor and calendar.
package scheduler

import (
	"encoding/json"
	"time"
)

// Kind distinguishes the origin of a Job.
type Kind string

const (
	KindSingleVideo   Kind = "single-video"
	KindRecurringChild Kind = "recurring-child"
	KindBatchMember   Kind = "batch-member"
	KindManual        Kind = "manual"
)

// State is a Job's position in the stage machine (see scheduler.go for
// transitions).
type State string

const (
	StatePending   State = "pending"
	StateScheduled State = "scheduled"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
	StatePaused    State = "paused"
)

func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

// Stage is one step of the per-job pipeline. A job's Stage is empty while
// queued (pending/scheduled).
type Stage string

const (
	StageScriptGeneration Stage = "script-generation"
	StageMediaAssembly    Stage = "media-assembly"
	StageUpload           Stage = "upload"
)

// stageOrder lists stages in pipeline order; Upload is optional and may be
// skipped when no upload account is configured for the job.
var stageOrder = []Stage{StageScriptGeneration, StageMediaAssembly, StageUpload}

// JobError captures the stage and message of the last failure.
type JobError struct {
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
}

// Artifacts accumulates stage outputs across the pipeline.
type Artifacts struct {
	ScriptText     string `json:"script_text,omitempty"`
	MediaPath      string `json:"media_path,omitempty"`
	ThumbnailPath  string `json:"thumbnail_path,omitempty"`
	RemoteUploadID string `json:"remote_upload_id,omitempty"`
	RemoteURL      string `json:"remote_url,omitempty"`
}

// Job is a one-shot unit of scheduled work.
type Job struct {
	SchemaVersion int    `json:"schema_version"`
	ID            string `json:"id"`
	Kind          Kind   `json:"kind"`
	State         State  `json:"state"`

	ScheduledAt time.Time  `json:"scheduled_at"`
	PublishAt   *time.Time `json:"publish_at,omitempty"`

	Topic          string        `json:"topic"`
	Style          string        `json:"style"`
	TargetDuration time.Duration `json:"target_duration"`
	Tags           []string      `json:"tags,omitempty"`
	Category       string        `json:"category,omitempty"`
	Privacy        string        `json:"privacy,omitempty"`
	Account        string        `json:"account,omitempty"`

	Stage         Stage          `json:"stage,omitempty"`
	StageProgress map[Stage]int  `json:"stage_progress,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Artifacts Artifacts `json:"artifacts"`
	Error     *JobError `json:"error,omitempty"`

	// CalendarSlotID back-references the slot reserved for this job, if any.
	CalendarSlotID string `json:"calendar_slot_id,omitempty"`

	// RuleID back-references the recurring rule that created this job, for
	// KindRecurringChild jobs.
	RuleID string `json:"rule_id,omitempty"`

	// Extra holds fields from a newer schema version that this build does
	// not recognize, so a load-then-save cycle does not drop them.
	Extra map[string]json.RawMessage `json:"-"`
}

// GetID implements store.Entity.
func (j Job) GetID() string { return j.ID }

func (j *Job) recordProgress(stage Stage, percent int) {
	if j.StageProgress == nil {
		j.StageProgress = make(map[Stage]int)
	}
	j.StageProgress[stage] = percent
}

// jobKnownFields is the set of JSON keys Job's own fields occupy. Anything
// else found on unmarshal is stashed in Extra instead of being dropped.
var jobKnownFields = map[string]struct{}{
	"schema_version": {}, "id": {}, "kind": {}, "state": {},
	"scheduled_at": {}, "publish_at": {},
	"topic": {}, "style": {}, "target_duration": {}, "tags": {},
	"category": {}, "privacy": {}, "account": {},
	"stage": {}, "stage_progress": {},
	"retry_count": {}, "max_retries": {},
	"created_at": {}, "started_at": {}, "completed_at": {},
	"artifacts": {}, "error": {},
	"calendar_slot_id": {}, "rule_id": {},
}

// MarshalJSON writes out Job's own fields plus anything carried in Extra, so
// fields this build doesn't know about survive a load-then-save cycle.
func (j Job) MarshalJSON() ([]byte, error) {
	type alias Job
	base, err := json.Marshal(alias(j))
	if err != nil {
		return nil, err
	}
	if len(j.Extra) == 0 {
		return base, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, err
	}
	for k, v := range j.Extra {
		if _, known := jobKnownFields[k]; known {
			continue
		}
		fields[k] = v
	}
	return json.Marshal(fields)
}

// UnmarshalJSON decodes Job's own fields and stashes any unrecognized key in
// Extra instead of discarding it.
func (j *Job) UnmarshalJSON(data []byte) error {
	type alias Job
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*j = Job(a)
	j.Extra = nil

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for k, v := range fields {
		if _, known := jobKnownFields[k]; known {
			continue
		}
		if j.Extra == nil {
			j.Extra = make(map[string]json.RawMessage)
		}
		j.Extra[k] = v
	}
	return nil
}
