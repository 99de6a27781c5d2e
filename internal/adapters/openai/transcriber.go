// Package openai submits audio to the OpenAI speech-transcription API and
// maps the verbose JSON response onto the pipeline's transcript shape.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"reelscribe/internal/core/domain"
	"reelscribe/internal/core/ports"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Models are the supported quality/speed tiers.
const (
	ModelWhisper1      = "whisper-1"
	ModelWhisperLarge2 = "whisper-large-v2"
	ModelWhisperLarge3 = "whisper-large-v3"
)

// SupportedModels lists the transcription models a run may request.
var SupportedModels = []string{ModelWhisper1, ModelWhisperLarge2, ModelWhisperLarge3}

// Transcriber implements ports.Transcriber against the OpenAI audio API.
type Transcriber struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewTranscriber creates a Transcriber. baseURL overrides the production
// endpoint; empty selects the default.
func NewTranscriber(apiKey, baseURL string, logger *slog.Logger) *Transcriber {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Transcriber{
		apiKey:  apiKey,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 5 * time.Minute,
		},
		logger: logger,
	}
}

// verboseResponse mirrors the verbose_json transcription payload.
type verboseResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe uploads the audio artifact and returns the transcript
// fragment. Any transport or service-side error is a TranscriptionFailed
// failure; this stage is never retried, a failed call ends the run.
func (t *Transcriber) Transcribe(ctx context.Context, audio domain.MediaArtifact, model string) (*domain.Transcript, error) {
	if !IsSupportedModel(model) {
		return nil, domain.Failure(domain.StageTranscribe, domain.ErrTranscriptionFailed,
			"unsupported transcription model %q", model)
	}

	body, contentType, err := t.buildRequestBody(audio.Path, model)
	if err != nil {
		return nil, domain.Failure(domain.StageTranscribe, domain.ErrTranscriptionFailed,
			"could not prepare audio upload: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/audio/transcriptions", body)
	if err != nil {
		return nil, domain.Failure(domain.StageTranscribe, domain.ErrTranscriptionFailed,
			"could not build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, domain.Failure(domain.StageTranscribe, domain.ErrTranscriptionFailed,
			"transcription request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, domain.Failure(domain.StageTranscribe, domain.ErrTranscriptionFailed,
			"transcription service returned status %d: %s", resp.StatusCode, string(detail))
	}

	var decoded verboseResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, domain.Failure(domain.StageTranscribe, domain.ErrTranscriptionFailed,
			"could not parse transcription response: %v", err)
	}

	// A response without segments is still a valid transcript.
	segments := make([]domain.TranscriptSegment, 0, len(decoded.Segments))
	for _, seg := range decoded.Segments {
		segments = append(segments, domain.TranscriptSegment{
			Start: seg.Start,
			End:   seg.End,
			Text:  seg.Text,
		})
	}

	t.logger.Info("audio transcribed",
		"model", model, "language", decoded.Language, "duration", decoded.Duration, "segments", len(segments))
	return &domain.Transcript{
		Text:     decoded.Text,
		Language: decoded.Language,
		Duration: decoded.Duration,
		Segments: segments,
	}, nil
}

// buildRequestBody assembles the multipart form: model, audio file,
// verbose JSON response format and segment-level timestamps.
func (t *Transcriber) buildRequestBody(audioPath, model string) (io.Reader, string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("model", model); err != nil {
		return nil, "", err
	}
	if err := mw.WriteField("response_format", "verbose_json"); err != nil {
		return nil, "", err
	}
	if err := mw.WriteField("timestamp_granularities[]", "segment"); err != nil {
		return nil, "", err
	}

	fw, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(fw, file); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &body, mw.FormDataContentType(), nil
}

// IsSupportedModel reports whether model is one of the enumerated tiers.
func IsSupportedModel(model string) bool {
	for _, m := range SupportedModels {
		if m == model {
			return true
		}
	}
	return false
}

var _ ports.Transcriber = (*Transcriber)(nil)
