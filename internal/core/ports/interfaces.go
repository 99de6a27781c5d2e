package ports

import (
	"context"

	"reelscribe/internal/core/domain"
)

// AcquireResult bundles the downloaded video artifact with the best-effort
// metadata gathered during the info fetch and the per-try attempt log.
type AcquireResult struct {
	Artifact domain.MediaArtifact
	Metadata domain.Metadata
	Attempts []domain.DownloadAttempt
}

// Acquirer defines the contract for retrieving video bytes for a canonical
// URL. Implementations try an ordered list of strategies, each with its own
// bounded retry loop, and must not leave partial files in scratchDir on any
// return path.
type Acquirer interface {
	// Acquire downloads the video into scratchDir. The returned artifact is
	// owned by the caller.
	Acquire(ctx context.Context, target domain.CanonicalURL, scratchDir string) (*AcquireResult, error)
}

// AudioExtractor converts a video artifact into normalized audio suitable
// for transcription (mono, 16 kHz).
type AudioExtractor interface {
	// ExtractAudio writes the audio file into scratchDir. The input video is
	// never deleted; releasing it stays with the orchestrator.
	ExtractAudio(ctx context.Context, video domain.MediaArtifact, scratchDir string) (domain.MediaArtifact, error)
}

// Transcriber submits audio to a speech-transcription service.
type Transcriber interface {
	// Transcribe returns the transcript fragment for the audio artifact.
	// A failed call ends the run; this stage is never retried.
	Transcribe(ctx context.Context, audio domain.MediaArtifact, model string) (*domain.Transcript, error)
}
