package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"
)

// videoInfo is the subset of yt-dlp's -J output the pipeline cares about.
// The platform guarantees none of these fields, so all are optional.
type videoInfo struct {
	ID          string `json:"id"`
	Ext         string `json:"ext"`
	Title       string `json:"title"`
	Uploader    string `json:"uploader"`
	ViewCount   int64  `json:"view_count"`
	LikeCount   int64  `json:"like_count"`
	Description string `json:"description"`
}

// runner abstracts the yt-dlp binary so the acquirer's retry and fallback
// behavior can be tested without network access.
type runner interface {
	// FetchInfo retrieves video metadata without downloading anything.
	FetchInfo(ctx context.Context, strat Strategy, pageURL string) (*videoInfo, error)
	// Download fetches the video bytes into the given output template.
	Download(ctx context.Context, strat Strategy, pageURL, outputTemplate string) error
	// DirectURL resolves a direct media URL without downloading.
	DirectURL(ctx context.Context, strat Strategy, pageURL string) (string, error)
}

// execRunner shells out to the local yt-dlp binary.
type execRunner struct {
	binaryPath string
}

const (
	infoTimeout     = 2 * time.Minute
	downloadTimeout = 10 * time.Minute
)

func (r *execRunner) FetchInfo(ctx context.Context, strat Strategy, pageURL string) (*videoInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, infoTimeout)
	defer cancel()

	// -J dumps the info JSON without downloading anything.
	args := append([]string{"-J"}, strat.commonArgs()...)
	args = append(args, pageURL)

	out, err := r.run(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("info fetch failed: %w", err)
	}

	var info videoInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("could not parse video info: %w", err)
	}
	return &info, nil
}

func (r *execRunner) Download(ctx context.Context, strat Strategy, pageURL, outputTemplate string) error {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	args := []string{"-f", strat.Format, "-o", outputTemplate}
	if strat.ChunkSize > 0 {
		args = append(args, "--http-chunk-size", strconv.FormatInt(strat.ChunkSize, 10))
	}
	args = append(args, strat.commonArgs()...)
	args = append(args, pageURL)

	if _, err := r.run(ctx, args); err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	return nil
}

// DirectURL fetches the direct download link using yt-dlp --get-url.
func (r *execRunner) DirectURL(ctx context.Context, strat Strategy, pageURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, infoTimeout)
	defer cancel()

	args := append([]string{"-f", strat.Format, "--get-url"}, strat.commonArgs()...)
	args = append(args, pageURL)

	out, err := r.run(ctx, args)
	if err != nil {
		return "", fmt.Errorf("url resolution failed: %w", err)
	}

	urlStr := strings.TrimSpace(string(out))
	if urlStr == "" {
		return "", fmt.Errorf("yt-dlp returned empty URL")
	}
	// yt-dlp may print multiple URLs (video + audio); take the first one.
	return strings.Split(urlStr, "\n")[0], nil
}

func (r *execRunner) run(ctx context.Context, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.binaryPath, args...)

	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp failed: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out.Bytes(), nil
}

// commonArgs renders the strategy's identity profile as yt-dlp flags.
func (s Strategy) commonArgs() []string {
	args := []string{"--no-warnings", "--quiet"}
	if s.SocketTimeout > 0 {
		args = append(args, "--socket-timeout", strconv.Itoa(s.SocketTimeout))
	}
	if s.UserAgent != "" {
		args = append(args, "--user-agent", s.UserAgent)
	}
	if s.Referer != "" {
		args = append(args, "--referer", s.Referer)
	}
	keys := make([]string, 0, len(s.Headers))
	for k := range s.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		// --add-header is repeatable, one FIELD:VALUE pair per flag.
		args = append(args, "--add-header", k+":"+s.Headers[k])
	}
	if s.InsecureTLS {
		args = append(args, "--no-check-certificates")
	}
	return args
}
