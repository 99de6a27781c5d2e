// Package config assembles runtime configuration from environment
// variables. Configuration is read once at startup and treated as
// read-only for the life of the process.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Environment variable names.
const (
	EnvOpenAIKey      = "OPENAI_API_KEY"
	EnvOpenAIBaseURL  = "REELSCRIBE_OPENAI_BASE_URL"
	EnvScratchDir     = "REELSCRIBE_SCRATCH_DIR"
	EnvYtDlpPath      = "REELSCRIBE_YTDLP_PATH"
	EnvFFmpegPath     = "REELSCRIBE_FFMPEG_PATH"
	EnvExtractTimeout = "REELSCRIBE_EXTRACT_TIMEOUT_SEC"
)

// Config holds everything the pipeline needs at startup.
type Config struct {
	// OpenAIKey authenticates against the transcription service.
	OpenAIKey string
	// OpenAIBaseURL overrides the transcription endpoint, mainly for tests.
	OpenAIBaseURL string
	// ScratchDir is where per-run scratch directories are created.
	ScratchDir string
	// YtDlpPath and FFmpegPath locate the external tools.
	YtDlpPath  string
	FFmpegPath string
	// ExtractTimeout bounds a single ffmpeg invocation.
	ExtractTimeout time.Duration
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ScratchDir:     os.TempDir(),
		YtDlpPath:      "yt-dlp",
		FFmpegPath:     "ffmpeg",
		ExtractTimeout: 45 * time.Second,
	}
}

// Load builds a Config from defaults overlaid with environment variables.
func Load() Config {
	cfg := Default()
	cfg.OpenAIKey = os.Getenv(EnvOpenAIKey)
	if v := os.Getenv(EnvOpenAIBaseURL); v != "" {
		cfg.OpenAIBaseURL = v
	}
	if v := os.Getenv(EnvScratchDir); v != "" {
		cfg.ScratchDir = v
	}
	if v := os.Getenv(EnvYtDlpPath); v != "" {
		cfg.YtDlpPath = v
	}
	if v := os.Getenv(EnvFFmpegPath); v != "" {
		cfg.FFmpegPath = v
	}
	if v := os.Getenv(EnvExtractTimeout); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.ExtractTimeout = time.Duration(secs) * time.Second
		}
	}
	return cfg
}

// Validate reports configuration the pipeline cannot run with.
func (c Config) Validate() error {
	if c.OpenAIKey == "" {
		return fmt.Errorf("%s is not set", EnvOpenAIKey)
	}
	if c.ScratchDir == "" {
		return fmt.Errorf("scratch directory is not set")
	}
	if c.ExtractTimeout <= 0 {
		return fmt.Errorf("extract timeout must be positive, got %s", c.ExtractTimeout)
	}
	return nil
}
