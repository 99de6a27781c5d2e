package domain

import "fmt"

// Stage names the pipeline stage a failure originated from.
type Stage string

const (
	StageNormalize    Stage = "normalize"
	StageAcquire      Stage = "acquire"
	StageExtractAudio Stage = "extract_audio"
	StageTranscribe   Stage = "transcribe"
)

// ErrorKind classifies a pipeline failure for callers.
type ErrorKind string

const (
	// ErrInvalidInput means the URL could not be recognized; the user can
	// correct it, retrying the same input is pointless.
	ErrInvalidInput ErrorKind = "invalid_input"
	// ErrAcquisitionFailed means every strategy exhausted its retries.
	// The caller may issue a fresh run later; the pipeline does not.
	ErrAcquisitionFailed   ErrorKind = "acquisition_failed"
	ErrExtractionFailed    ErrorKind = "extraction_failed"
	ErrExtractionTimeout   ErrorKind = "extraction_timeout"
	ErrTranscriptionFailed ErrorKind = "transcription_failed"
)

// PipelineFailure is the pipeline's terminal failure value. Each stage
// returns one instead of letting raw errors cross its boundary.
type PipelineFailure struct {
	Stage   Stage     `json:"stage"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (f *PipelineFailure) Error() string {
	return fmt.Sprintf("%s: %s: %s", f.Stage, f.Kind, f.Message)
}

// Failure builds a PipelineFailure from a stage, kind and message.
func Failure(stage Stage, kind ErrorKind, format string, args ...any) *PipelineFailure {
	return &PipelineFailure{Stage: stage, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AsFailure converts err to a *PipelineFailure, wrapping foreign errors
// under the given stage and kind so the orchestrator's contract (the
// returned error is always a typed failure) holds on every path.
func AsFailure(err error, stage Stage, kind ErrorKind) *PipelineFailure {
	if f, ok := err.(*PipelineFailure); ok {
		return f
	}
	return &PipelineFailure{Stage: stage, Kind: kind, Message: err.Error()}
}
