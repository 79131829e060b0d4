package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/contentops/schedcore/backoff"
	"github.com/contentops/schedcore/scheduler"
)

// localScriptSynthesizer and its siblings below are placeholder stage
// collaborators: real script generation, video assembly, and platform
// upload all talk to external services this module has no business
// depending on directly. They exist so the binary links and runs
// end-to-end against the local filesystem; swap them for real provider
// implementations behind the same interfaces without touching scheduler/.
type localScriptSynthesizer struct {
	logger *slog.Logger
}

func (s *localScriptSynthesizer) Synthesize(ctx context.Context, req scheduler.ScriptRequest) (scheduler.ScriptResult, error) {
	if req.Topic == "" {
		return scheduler.ScriptResult{}, backoff.Permanent(fmt.Errorf("schedulerd: empty topic"))
	}
	s.logger.Info("synthesizing placeholder script", slog.String("topic", req.Topic))
	return scheduler.ScriptResult{
		Text:  fmt.Sprintf("[placeholder script for %q]", req.Topic),
		Title: req.Topic,
	}, nil
}

type localMediaAssembler struct {
	logger    *slog.Logger
	outputDir string
}

func (a *localMediaAssembler) Assemble(ctx context.Context, req scheduler.AssemblyRequest) (scheduler.AssemblyResult, error) {
	a.logger.Info("assembling placeholder media", slog.Int("script_len", len(req.ScriptText)))
	return scheduler.AssemblyResult{
		MediaPath: filepath.Join(a.outputDir, fmt.Sprintf("media-%d.mp4", time.Now().UnixNano())),
	}, nil
}

type localUploader struct {
	logger *slog.Logger
}

func (u *localUploader) Upload(ctx context.Context, req scheduler.UploadRequest) (scheduler.UploadResult, error) {
	if req.Account == "" {
		return scheduler.UploadResult{}, backoff.Permanent(fmt.Errorf("schedulerd: no account configured"))
	}
	u.logger.Info("publishing placeholder upload", slog.String("account", req.Account))
	return scheduler.UploadResult{
		RemoteID: "local-" + req.Account,
		URL:      "file://" + req.MediaPath,
	}, nil
}

func newCollaborators(logger *slog.Logger, outputDir string) scheduler.Collaborators {
	return scheduler.Collaborators{
		Script:   &localScriptSynthesizer{logger: logger},
		Assembly: &localMediaAssembler{logger: logger, outputDir: outputDir},
		Upload:   &localUploader{logger: logger},
	}
}
