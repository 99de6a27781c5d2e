package ytdlp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"reelscribe/internal/core/domain"
)

type fakeRunner struct {
	infoFailures     map[string]int // fail the first N info fetches per strategy
	infoErr          error          // overrides the default info-fetch error
	downloadFailures map[string]int // fail the first N downloads per strategy
	writeEmpty       map[string]bool
	directURL        string
	info             videoInfo
}

func (f *fakeRunner) FetchInfo(ctx context.Context, strat Strategy, pageURL string) (*videoInfo, error) {
	if f.infoFailures[strat.Name] > 0 {
		f.infoFailures[strat.Name]--
		if f.infoErr != nil {
			return nil, f.infoErr
		}
		return nil, errors.New("info fetch failed: connection reset")
	}
	info := f.info
	return &info, nil
}

func (f *fakeRunner) Download(ctx context.Context, strat Strategy, pageURL, outputTemplate string) error {
	if f.downloadFailures[strat.Name] > 0 {
		f.downloadFailures[strat.Name]--
		return errors.New("download failed: timed out")
	}
	path := strings.Replace(outputTemplate, "%(ext)s", "mp4", 1)
	content := []byte("video-bytes")
	if f.writeEmpty[strat.Name] {
		content = nil
	}
	return os.WriteFile(path, content, 0644)
}

func (f *fakeRunner) DirectURL(ctx context.Context, strat Strategy, pageURL string) (string, error) {
	if f.directURL == "" {
		return "", errors.New("no direct url available")
	}
	return f.directURL, nil
}

func testStrategies() []Strategy {
	return []Strategy{
		{Name: "one", Format: "best", MaxAttempts: 2, BaseDelay: time.Millisecond},
		{Name: "two", Format: "worst", MaxAttempts: 2, BaseDelay: time.Millisecond},
	}
}

func newTestAcquirer(r runner, strategies []Strategy) *Acquirer {
	return &Acquirer{
		strategies: strategies,
		runner:     r,
		logger:     slog.New(slog.DiscardHandler),
	}
}

func testTarget() domain.CanonicalURL {
	return domain.CanonicalURL{
		ContentID:     "ABC123",
		Kind:          domain.KindReel,
		CanonicalForm: "https://www.instagram.com/reel/ABC123/",
	}
}

func scratchFileCount(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read scratch dir: %v", err)
	}
	return len(entries)
}

func TestAcquireFallsBackToSecondStrategy(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{
		infoFailures: map[string]int{"one": 2},
		info:         videoInfo{Title: "A reel", Uploader: "someone", ViewCount: 10, LikeCount: 2, Description: "about"},
	}
	acquirer := newTestAcquirer(runner, testStrategies())

	result, err := acquirer.Acquire(context.Background(), testTarget(), dir)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	fi, statErr := os.Stat(result.Artifact.Path)
	if statErr != nil || fi.Size() == 0 {
		t.Fatalf("artifact missing or empty: %v", statErr)
	}
	if result.Artifact.Kind != domain.ArtifactVideo {
		t.Fatalf("artifact kind = %q", result.Artifact.Kind)
	}
	if result.Metadata.Title != "A reel" || result.Metadata.Uploader != "someone" {
		t.Fatalf("metadata not carried over: %+v", result.Metadata)
	}

	// Strategy one's exhaustion must be recorded before strategy two's success.
	if len(result.Attempts) != 3 {
		t.Fatalf("attempt log = %+v, want 3 entries", result.Attempts)
	}
	for i := 0; i < 2; i++ {
		a := result.Attempts[i]
		if a.Strategy != "one" || a.Outcome != domain.OutcomeTransientFailure || a.AttemptNumber != i+1 {
			t.Fatalf("attempt %d = %+v", i, a)
		}
	}
	last := result.Attempts[2]
	if last.Strategy != "two" || last.Outcome != domain.OutcomeSuccess {
		t.Fatalf("final attempt = %+v", last)
	}
}

func TestAcquireAllStrategiesExhausted(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{
		infoFailures: map[string]int{"one": 2, "two": 2},
	}
	acquirer := newTestAcquirer(runner, testStrategies())

	_, err := acquirer.Acquire(context.Background(), testTarget(), dir)
	if err == nil {
		t.Fatal("Acquire succeeded, want failure")
	}
	var failure *domain.PipelineFailure
	if !errors.As(err, &failure) {
		t.Fatalf("error type %T", err)
	}
	if failure.Stage != domain.StageAcquire || failure.Kind != domain.ErrAcquisitionFailed {
		t.Fatalf("failure = %s/%s", failure.Stage, failure.Kind)
	}
	if !strings.Contains(failure.Message, "rate limiting") {
		t.Fatalf("advisory message missing causes: %q", failure.Message)
	}
	if n := scratchFileCount(t, dir); n != 0 {
		t.Fatalf("%d scratch files remain after total failure", n)
	}
}

func TestAcquireEmptyOutputIsTransient(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{
		writeEmpty: map[string]bool{"one": true},
	}
	acquirer := newTestAcquirer(runner, testStrategies())

	result, err := acquirer.Acquire(context.Background(), testTarget(), dir)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !strings.Contains(result.Artifact.Path, "_two_") {
		t.Fatalf("expected strategy two's artifact, got %q", result.Artifact.Path)
	}
	// Strategy one's empty partials must have been cleared.
	entries, _ := os.ReadDir(dir)
	for _, entry := range entries {
		if strings.Contains(entry.Name(), "_one_") {
			t.Fatalf("partial file from strategy one remains: %s", entry.Name())
		}
	}
	for _, a := range result.Attempts[:len(result.Attempts)-1] {
		if a.Outcome != domain.OutcomeTransientFailure {
			t.Fatalf("empty-output attempt not transient: %+v", a)
		}
	}
}

func TestAcquireDirectStrategyStreamsOverHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("direct-media-bytes"))
	}))
	defer server.Close()

	dir := t.TempDir()
	runner := &fakeRunner{directURL: server.URL}
	strategies := []Strategy{
		{Name: "direct", Format: "b", MaxAttempts: 2, BaseDelay: time.Millisecond, DirectURL: true},
	}
	acquirer := newTestAcquirer(runner, strategies)

	result, err := acquirer.Acquire(context.Background(), testTarget(), dir)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	data, readErr := os.ReadFile(result.Artifact.Path)
	if readErr != nil {
		t.Fatalf("read artifact: %v", readErr)
	}
	if string(data) != "direct-media-bytes" {
		t.Fatalf("artifact content = %q", data)
	}
	if result.Artifact.SizeBytes != int64(len(data)) {
		t.Fatalf("SizeBytes = %d, want %d", result.Artifact.SizeBytes, len(data))
	}
}

func TestAcquireMetadataDefaultsToSentinels(t *testing.T) {
	dir := t.TempDir()
	acquirer := newTestAcquirer(&fakeRunner{}, testStrategies())

	result, err := acquirer.Acquire(context.Background(), testTarget(), dir)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if result.Metadata.Title != domain.UnknownTitle || result.Metadata.Uploader != domain.UnknownUploader {
		t.Fatalf("metadata sentinels missing: %+v", result.Metadata)
	}
}

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"HTTP Error 429: Too Many Requests", true},
		{"ERROR: login required to access this content", true},
		{"rate-limit reached, please wait", true},
		{"The requested content is not available", true},
		{"connection reset by peer", false},
		{"no non-empty video file found after download", false},
	}
	for _, tt := range tests {
		if got := isRateLimited(errors.New(tt.msg)); got != tt.want {
			t.Errorf("isRateLimited(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}
}

func TestAcquireRateLimitScalesRetryDelay(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{
		infoFailures: map[string]int{"one": 2},
		infoErr:      errors.New("HTTP Error 429: Too Many Requests"),
	}
	delay := 20 * time.Millisecond
	strategies := []Strategy{{
		Name:        "one",
		Format:      "best",
		MaxAttempts: 3,
		// An interval this large would blow past the deadline below if the
		// rate-limit pause did not replace it.
		BaseDelay:      5 * time.Second,
		RateLimitDelay: delay,
	}}
	acquirer := newTestAcquirer(runner, strategies)

	start := time.Now()
	result, err := acquirer.Acquire(context.Background(), testTarget(), dir)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	// Attempt 1 pauses 1x the delay and attempt 2 pauses 2x before the
	// third attempt succeeds.
	if elapsed < 3*delay {
		t.Fatalf("elapsed %v, want at least %v of scaled rate-limit pauses", elapsed, 3*delay)
	}
	if elapsed > 2*time.Second {
		t.Fatalf("elapsed %v, rate-limit pause did not replace the backoff interval", elapsed)
	}
	if len(result.Attempts) != 3 {
		t.Fatalf("attempt log = %+v, want 3 entries", result.Attempts)
	}
	for i := 0; i < 2; i++ {
		if result.Attempts[i].Outcome != domain.OutcomeTransientFailure {
			t.Fatalf("attempt %d = %+v", i, result.Attempts[i])
		}
	}
}

func TestCommonArgsRendersRepeatableHeaderFlags(t *testing.T) {
	strat := Strategy{
		UserAgent: "agent",
		Referer:   "https://example.com/",
		Headers: map[string]string{
			"Accept-Language": "en-us,en;q=0.5",
			"Accept":          "text/html",
		},
		SocketTimeout: 30,
		InsecureTLS:   true,
	}
	args := strat.commonArgs()

	// yt-dlp's header option is --add-header, repeated per FIELD:VALUE pair.
	headerFlags := 0
	for _, arg := range args {
		if arg == "--add-header" {
			headerFlags++
		} else if strings.HasPrefix(arg, "--add-header") {
			t.Fatalf("unknown header flag %q", arg)
		}
	}
	if headerFlags != 2 {
		t.Fatalf("got %d --add-header flags, want 2: %q", headerFlags, args)
	}

	joined := strings.Join(args, " ")
	for _, want := range []string{
		"--add-header Accept:text/html",
		"--add-header Accept-Language:en-us,en;q=0.5",
		"--user-agent agent",
		"--referer https://example.com/",
		"--socket-timeout 30",
		"--no-check-certificates",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args %q missing %q", joined, want)
		}
	}
	// Header pairs render in sorted key order for a stable command line.
	if strings.Index(joined, "Accept:text/html") > strings.Index(joined, "Accept-Language:") {
		t.Error("header flags not sorted by key")
	}
}

func TestDefaultStrategiesOrdering(t *testing.T) {
	strategies := DefaultStrategies()
	if len(strategies) != 3 {
		t.Fatalf("got %d strategies", len(strategies))
	}
	if strategies[0].Name != "standard" || strategies[1].Name != "degraded" || strategies[2].Name != "direct" {
		t.Fatalf("unexpected order: %s, %s, %s", strategies[0].Name, strategies[1].Name, strategies[2].Name)
	}
	if strategies[0].InsecureTLS {
		t.Fatal("standard strategy must keep strict certificates")
	}
	if !strategies[1].InsecureTLS {
		t.Fatal("degraded strategy should relax certificates")
	}
	if !strategies[2].DirectURL {
		t.Fatal("last strategy should be the direct URL fallback")
	}
	for _, s := range strategies {
		if s.MaxAttempts < 3 || s.MaxAttempts > 5 {
			t.Errorf("strategy %s MaxAttempts = %d, want 3..5", s.Name, s.MaxAttempts)
		}
		if s.RateLimitDelay != 30*time.Second {
			t.Errorf("strategy %s RateLimitDelay = %v, want 30s", s.Name, s.RateLimitDelay)
		}
	}
}
