// Package service sequences the acquisition-and-transcription pipeline:
// normalize, acquire, extract audio, transcribe, assemble. The pipeline is
// the only place that decides run termination and artifact cleanup.
package service

import (
	"context"
	"log/slog"

	"reelscribe/internal/core/domain"
	"reelscribe/internal/core/ports"
	"reelscribe/internal/normalize"
	"reelscribe/internal/scratch"
)

// State is a pipeline run's position in the stage sequence. Transitions
// are strictly forward; there is no backward transition.
type State string

const (
	StateNormalizing     State = "normalizing"
	StateAcquiring       State = "acquiring"
	StateExtractingAudio State = "extracting_audio"
	StateTranscribing    State = "transcribing"
	StateAssembling      State = "assembling"
	StateSucceeded       State = "succeeded"
	StateFailed          State = "failed"
)

// Pipeline coordinates the stages. Stage implementations are injected so
// front-ends and tests construct the pipeline explicitly instead of
// reaching for ambient state.
type Pipeline struct {
	acquirer    ports.Acquirer
	extractor   ports.AudioExtractor
	transcriber ports.Transcriber
	workspace   *scratch.Workspace
	logger      *slog.Logger
}

// NewPipeline creates a Pipeline.
func NewPipeline(
	acquirer ports.Acquirer,
	extractor ports.AudioExtractor,
	transcriber ports.Transcriber,
	workspace *scratch.Workspace,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		acquirer:    acquirer,
		extractor:   extractor,
		transcriber: transcriber,
		workspace:   workspace,
		logger:      logger,
	}
}

// Run executes one complete pipeline run for the given URL and
// transcription model. On failure the returned error is always a
// *domain.PipelineFailure tagging the originating stage. Every scratch
// artifact created during the run is released before Run returns, on
// success and on every failure path.
func (p *Pipeline) Run(ctx context.Context, rawURL, model string) (*domain.TranscriptResult, error) {
	state := StateNormalizing
	p.logger.Info("pipeline started", "url", rawURL, "model", model)

	target, err := normalize.Normalize(rawURL)
	if err != nil {
		return nil, p.fail(state, err, domain.StageNormalize, domain.ErrInvalidInput)
	}

	run, err := p.workspace.OpenRun()
	if err != nil {
		return nil, p.fail(state, err, domain.StageAcquire, domain.ErrAcquisitionFailed)
	}
	logger := p.logger.With("run", run.Token())

	var artifacts []domain.MediaArtifact
	defer func() {
		// Best-effort release on every exit path. Release errors are
		// logged and never mask the stage failure.
		for _, artifact := range artifacts {
			if err := run.Release(artifact); err != nil {
				logger.Warn("artifact release failed", "path", artifact.Path, "error", err)
			}
		}
		if err := run.Close(); err != nil {
			logger.Warn("scratch cleanup failed", "error", err)
		}
	}()

	state = StateAcquiring
	logger.Info("acquiring video", "canonical_url", target.CanonicalForm, "kind", target.Kind)
	acquired, err := p.acquirer.Acquire(ctx, target, run.Dir())
	if err != nil {
		return nil, p.fail(state, err, domain.StageAcquire, domain.ErrAcquisitionFailed)
	}
	artifacts = append(artifacts, acquired.Artifact)
	logger.Info("video acquired", "attempts", len(acquired.Attempts), "size", acquired.Artifact.SizeBytes)

	state = StateExtractingAudio
	if err := ctx.Err(); err != nil {
		return nil, p.fail(state, err, domain.StageExtractAudio, domain.ErrExtractionFailed)
	}
	audio, err := p.extractor.ExtractAudio(ctx, acquired.Artifact, run.Dir())
	if err != nil {
		return nil, p.fail(state, err, domain.StageExtractAudio, domain.ErrExtractionFailed)
	}
	artifacts = append(artifacts, audio)

	state = StateTranscribing
	if err := ctx.Err(); err != nil {
		return nil, p.fail(state, err, domain.StageTranscribe, domain.ErrTranscriptionFailed)
	}
	transcript, err := p.transcriber.Transcribe(ctx, audio, model)
	if err != nil {
		return nil, p.fail(state, err, domain.StageTranscribe, domain.ErrTranscriptionFailed)
	}

	state = StateAssembling
	result := &domain.TranscriptResult{
		SourceURL:  target.CanonicalForm,
		Transcript: transcript.Text,
		Language:   transcript.Language,
		Duration:   transcript.Duration,
		Segments:   transcript.Segments,
		Metadata:   acquired.Metadata,
		Model:      model,
	}

	state = StateSucceeded
	logger.Info("pipeline succeeded",
		"state", state, "language", result.Language, "duration", result.Duration, "segments", len(result.Segments))
	return result, nil
}

// fail converts a stage error to the terminal failure value, preserving an
// already-typed failure as is.
func (p *Pipeline) fail(state State, err error, stage domain.Stage, kind domain.ErrorKind) *domain.PipelineFailure {
	failure := domain.AsFailure(err, stage, kind)
	p.logger.Error("pipeline failed",
		"state", StateFailed, "failed_in", state, "stage", failure.Stage, "kind", failure.Kind, "error", failure.Message)
	return failure
}
