// Package ytdlp acquires video bytes through the local yt-dlp binary,
// falling through an ordered list of download strategies with per-strategy
// retry and backoff.
package ytdlp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"reelscribe/internal/adapters/downloader"
	"reelscribe/internal/core/domain"
	"reelscribe/internal/core/ports"
)

// acquisitionAdvice is advisory, not a diagnosis: the failure surface
// (platform blocking vs. network vs. privacy) is not reliably
// distinguishable from the client side.
const acquisitionAdvice = "failed to download the video; likely causes: " +
	"private or restricted account, platform rate limiting, " +
	"unsupported video format, or network connectivity issues; " +
	"try again in a few minutes or with a different video"

// defaultRateLimitDelay is used when a strategy does not configure its own
// rate-limit pause.
const defaultRateLimitDelay = 30 * time.Second

// videoExtensions are the container formats accepted as a download result.
var videoExtensions = []string{".mp4", ".webm", ".mkv", ".mov", ".m4v"}

// Acquirer implements ports.Acquirer on top of yt-dlp.
type Acquirer struct {
	strategies []Strategy
	runner     runner
	logger     *slog.Logger
}

// NewAcquirer creates an Acquirer using the given yt-dlp binary and the
// default strategy list.
func NewAcquirer(binaryPath string, logger *slog.Logger) *Acquirer {
	if binaryPath == "" {
		binaryPath = "yt-dlp"
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Acquirer{
		strategies: DefaultStrategies(),
		runner:     &execRunner{binaryPath: binaryPath},
		logger:     logger,
	}
}

type strategyResult struct {
	artifact domain.MediaArtifact
	meta     domain.Metadata
}

// Acquire tries each strategy in order until one produces a non-empty
// video file. Every attempt is recorded; partial files never outlive the
// attempt that wrote them.
func (a *Acquirer) Acquire(ctx context.Context, target domain.CanonicalURL, scratchDir string) (*ports.AcquireResult, error) {
	var attempts []domain.DownloadAttempt

	for _, strat := range a.strategies {
		res, err := a.runStrategy(ctx, strat, target, scratchDir, &attempts)
		if err == nil {
			a.logger.Info("video acquired",
				"strategy", strat.Name, "path", res.artifact.Path, "size", res.artifact.SizeBytes)
			return &ports.AcquireResult{
				Artifact: res.artifact,
				Metadata: res.meta,
				Attempts: attempts,
			}, nil
		}
		a.logger.Warn("strategy exhausted", "strategy", strat.Name, "error", err)
		if ctx.Err() != nil {
			break
		}
	}

	return nil, domain.Failure(domain.StageAcquire, domain.ErrAcquisitionFailed, acquisitionAdvice)
}

// runStrategy runs one strategy's bounded retry loop. Rate-limit style
// failures stretch the pause before the next retry of the same strategy.
func (a *Acquirer) runStrategy(ctx context.Context, strat Strategy, target domain.CanonicalURL, scratchDir string, attempts *[]domain.DownloadAttempt) (*strategyResult, error) {
	attempt := 0

	operation := func() (*strategyResult, error) {
		attempt++
		res, err := a.tryOnce(ctx, strat, target, scratchDir, attempt)
		if err != nil {
			outcome := domain.OutcomeTransientFailure
			if ctx.Err() != nil {
				outcome = domain.OutcomeFatalFailure
			}
			*attempts = append(*attempts, domain.DownloadAttempt{
				Strategy:      strat.Name,
				AttemptNumber: attempt,
				Outcome:       outcome,
				ErrorDetail:   err.Error(),
			})
			a.logger.Warn("download attempt failed",
				"strategy", strat.Name, "attempt", attempt, "error", err)

			if ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			if isRateLimited(err) {
				delay := strat.RateLimitDelay
				if delay <= 0 {
					delay = defaultRateLimitDelay
				}
				return nil, &backoff.RetryAfterError{
					Duration: time.Duration(attempt) * delay,
				}
			}
			return nil, err
		}

		*attempts = append(*attempts, domain.DownloadAttempt{
			Strategy:      strat.Name,
			AttemptNumber: attempt,
			Outcome:       domain.OutcomeSuccess,
		})
		return res, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = strat.BaseDelay
	bo.Multiplier = 2

	maxAttempts := strat.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(maxAttempts)))
}

// tryOnce is a single attempt: info fetch first, then the byte transfer.
// Either step failing makes the whole attempt a transient failure.
func (a *Acquirer) tryOnce(ctx context.Context, strat Strategy, target domain.CanonicalURL, scratchDir string, attempt int) (*strategyResult, error) {
	info, err := a.runner.FetchInfo(ctx, strat, target.CanonicalForm)
	if err != nil {
		return nil, err
	}

	prefix := fmt.Sprintf("%s_%s_a%d", target.ContentID, strat.Name, attempt)

	if strat.DirectURL {
		mediaURL, err := a.runner.DirectURL(ctx, strat, target.CanonicalForm)
		if err != nil {
			return nil, err
		}
		dest := filepath.Join(scratchDir, prefix+".mp4")
		dl := downloader.NewHTTPDownloader(downloadTimeout, strat.InsecureTLS)
		if _, err := dl.FetchToFile(ctx, mediaURL, strat.headerProfile(), dest); err != nil {
			removeByPrefix(scratchDir, prefix)
			return nil, err
		}
	} else {
		template := filepath.Join(scratchDir, prefix+".%(ext)s")
		if err := a.runner.Download(ctx, strat, target.CanonicalForm, template); err != nil {
			removeByPrefix(scratchDir, prefix)
			return nil, err
		}
	}

	path, size, err := locateOutput(scratchDir, prefix)
	if err != nil {
		removeByPrefix(scratchDir, prefix)
		return nil, err
	}

	return &strategyResult{
		artifact: domain.MediaArtifact{Kind: domain.ArtifactVideo, Path: path, SizeBytes: size},
		meta:     metadataFromInfo(info),
	}, nil
}

// locateOutput finds the non-empty video file a download produced. yt-dlp
// picks the container extension itself, so the exact filename is only
// known after the fact.
func locateOutput(dir, prefix string) (string, int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", 0, fmt.Errorf("could not scan scratch directory: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || !hasVideoExtension(name) {
			continue
		}
		fi, err := entry.Info()
		if err != nil || fi.Size() == 0 {
			continue
		}
		return filepath.Join(dir, name), fi.Size(), nil
	}
	return "", 0, fmt.Errorf("no non-empty video file found after download")
}

// removeByPrefix clears partial files an attempt left behind. Attempt
// prefixes are unique per strategy and attempt number, so a successful
// file from another attempt is never touched.
func removeByPrefix(dir, prefix string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), prefix) {
			os.Remove(filepath.Join(dir, entry.Name()))
		}
	}
}

func hasVideoExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range videoExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// isRateLimited spots the error signatures Instagram produces when it is
// throttling or demanding a login.
func isRateLimited(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, sig := range []string{
		"rate-limit",
		"rate limit",
		"429",
		"login required",
		"requested content is not available",
		"please wait a few minutes",
	} {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

func metadataFromInfo(info *videoInfo) domain.Metadata {
	meta := domain.UnknownMetadata()
	if info == nil {
		return meta
	}
	if info.Title != "" {
		meta.Title = info.Title
	}
	if info.Uploader != "" {
		meta.Uploader = info.Uploader
	}
	meta.ViewCount = info.ViewCount
	meta.LikeCount = info.LikeCount
	meta.Description = info.Description
	return meta
}

var _ ports.Acquirer = (*Acquirer)(nil)
