// Package ffmpeg extracts a normalized audio track from a video file using
// the local ffmpeg binary. Output is mono 16 kHz WAV, which keeps
// transcription cost down without hurting speech recognition accuracy.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"reelscribe/internal/core/domain"
	"reelscribe/internal/core/ports"
)

// Extractor implements ports.AudioExtractor by shelling out to ffmpeg.
type Extractor struct {
	binaryPath string
	timeout    time.Duration
	logger     *slog.Logger

	// runCommand is swapped in tests to avoid requiring a real ffmpeg.
	runCommand func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewExtractor creates an Extractor. timeout bounds a single ffmpeg run;
// zero selects the default of 45 seconds.
func NewExtractor(binaryPath string, timeout time.Duration, logger *slog.Logger) *Extractor {
	if binaryPath == "" {
		binaryPath = "ffmpeg"
	}
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Extractor{
		binaryPath: binaryPath,
		timeout:    timeout,
		logger:     logger,
		runCommand: runCombined,
	}
}

// ExtractAudio demuxes and resamples the video's audio track into a mono
// 16 kHz WAV file next to the input, inside scratchDir. The input video is
// left untouched; a failed run never leaves a partial output behind.
func (e *Extractor) ExtractAudio(ctx context.Context, video domain.MediaArtifact, scratchDir string) (domain.MediaArtifact, error) {
	base := strings.TrimSuffix(filepath.Base(video.Path), filepath.Ext(video.Path))
	dest := filepath.Join(scratchDir, base+"_audio_16k.wav")

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", video.Path,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}

	output, err := e.runCommand(ctx, e.binaryPath, args...)
	if err != nil {
		os.Remove(dest)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.MediaArtifact{}, domain.Failure(domain.StageExtractAudio, domain.ErrExtractionTimeout,
				"audio extraction exceeded %s", e.timeout)
		}
		return domain.MediaArtifact{}, domain.Failure(domain.StageExtractAudio, domain.ErrExtractionFailed,
			"ffmpeg failed: %v: %s", err, strings.TrimSpace(string(output)))
	}

	fi, err := os.Stat(dest)
	if err != nil || fi.Size() == 0 {
		os.Remove(dest)
		return domain.MediaArtifact{}, domain.Failure(domain.StageExtractAudio, domain.ErrExtractionFailed,
			"ffmpeg produced no audio output")
	}

	e.logger.Info("audio extracted", "path", dest, "size", fi.Size())
	return domain.MediaArtifact{Kind: domain.ArtifactAudio, Path: dest, SizeBytes: fi.Size()}, nil
}

func runCombined(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("ffmpeg: %w", err)
	}
	return output, nil
}

var _ ports.AudioExtractor = (*Extractor)(nil)
