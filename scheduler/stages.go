package scheduler

import (
	"context"
	"fmt"
	"time"
)

// ScriptRequest is the input to script synthesis.
type ScriptRequest struct {
	Topic          string
	Style          string
	TargetDuration time.Duration
}

// ScriptResult is the output of script synthesis.
type ScriptResult struct {
	Text        string
	Title       string
	Description string
	Tags        []string
}

// ScriptSynthesizer produces a script and metadata for a topic. Implementations
// may fail with a retryable error (network, rate limit) or wrap a permanent
// error with backoff.Permanent (validation failures).
type ScriptSynthesizer interface {
	Synthesize(ctx context.Context, req ScriptRequest) (ScriptResult, error)
}

// AssemblyRequest is the input to media assembly.
type AssemblyRequest struct {
	ScriptText      string
	AssetsDirectory string
	OutputDirectory string
}

// AssemblyResult is the output of media assembly.
type AssemblyResult struct {
	MediaPath     string
	ThumbnailPath string
	DurationSecs  float64
}

// MediaAssembler turns a script into a finished media file. Implementations
// should be idempotent for identical inputs.
type MediaAssembler interface {
	Assemble(ctx context.Context, req AssemblyRequest) (AssemblyResult, error)
}

// UploadMetadata describes the published artifact.
type UploadMetadata struct {
	Title       string
	Description string
	Tags        []string
	Category    string
	Privacy     string
	PublishAt   *time.Time
}

// UploadRequest is the input to the upload stage.
type UploadRequest struct {
	Account       string
	MediaPath     string
	ThumbnailPath string
	Metadata      UploadMetadata
}

// UploadResult is the output of the upload stage.
type UploadResult struct {
	RemoteID string
	URL      string
}

// Uploader publishes a finished media file to a remote account. Retryable on
// transport errors; non-retryable on quota/auth errors.
type Uploader interface {
	Upload(ctx context.Context, req UploadRequest) (UploadResult, error)
}

// Collaborators bundles the three stage collaborators a Scheduler drives a
// job's pipeline through.
type Collaborators struct {
	Script   ScriptSynthesizer
	Assembly MediaAssembler
	Upload   Uploader
}

// runStage executes the single named stage against job, mutating its
// artifacts and stage_progress on success. It returns the error verbatim
// (including any backoff.PermanentError wrapping) for the caller to classify.
func runStage(ctx context.Context, collab Collaborators, job *Job, stage Stage, progress func(int, string)) error {
	switch stage {
	case StageScriptGeneration:
		result, err := collab.Script.Synthesize(ctx, ScriptRequest{
			Topic: job.Topic, Style: job.Style, TargetDuration: job.TargetDuration,
		})
		if err != nil {
			return err
		}
		job.Artifacts.ScriptText = result.Text
		if len(result.Tags) > 0 {
			job.Tags = result.Tags
		}
		progress(100, "script generated")
		return nil

	case StageMediaAssembly:
		result, err := collab.Assembly.Assemble(ctx, AssemblyRequest{ScriptText: job.Artifacts.ScriptText})
		if err != nil {
			return err
		}
		job.Artifacts.MediaPath = result.MediaPath
		job.Artifacts.ThumbnailPath = result.ThumbnailPath
		progress(100, "media assembled")
		return nil

	case StageUpload:
		result, err := collab.Upload.Upload(ctx, UploadRequest{
			Account:       job.Account,
			MediaPath:     job.Artifacts.MediaPath,
			ThumbnailPath: job.Artifacts.ThumbnailPath,
			Metadata: UploadMetadata{
				Title: job.Topic, Tags: job.Tags, Category: job.Category,
				Privacy: job.Privacy, PublishAt: job.PublishAt,
			},
		})
		if err != nil {
			return err
		}
		job.Artifacts.RemoteUploadID = result.RemoteID
		job.Artifacts.RemoteURL = result.URL
		progress(100, "uploaded")
		return nil

	default:
		return fmt.Errorf("scheduler: unknown stage %q", stage)
	}
}

// stagesFor returns the stages to run for job, skipping upload when no
// account is configured.
func stagesFor(job *Job) []Stage {
	if job.Account == "" {
		return []Stage{StageScriptGeneration, StageMediaAssembly}
	}
	return stageOrder
}
