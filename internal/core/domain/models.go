package domain

// ContentKind identifies which family of Instagram content a URL points at.
type ContentKind string

const (
	KindReel  ContentKind = "reel"
	KindPost  ContentKind = "post"
	KindVideo ContentKind = "video"
)

// PathToken returns the URL path segment used for this kind.
func (k ContentKind) PathToken() string {
	switch k {
	case KindPost:
		return "p"
	case KindVideo:
		return "tv"
	default:
		return "reel"
	}
}

// CanonicalURL is the normalized representation of a content reference.
// CanonicalForm is derived purely from ContentID and Kind, so equal inputs
// always canonicalize identically regardless of how they were written.
type CanonicalURL struct {
	ContentID     string      `json:"content_id"`
	Kind          ContentKind `json:"kind"`
	CanonicalForm string      `json:"canonical_form"`
}

// Unknown sentinels for metadata fields the source page omits.
const (
	UnknownTitle    = "Unknown"
	UnknownUploader = "Unknown"
)

// Metadata holds best-effort source information gathered during the
// acquisition info fetch. Absent fields default to sentinels and never
// block the pipeline.
type Metadata struct {
	Title       string `json:"video_title"`
	Uploader    string `json:"uploader"`
	ViewCount   int64  `json:"view_count"`
	LikeCount   int64  `json:"like_count"`
	Description string `json:"description"`
}

// UnknownMetadata returns a Metadata with every field set to its sentinel.
func UnknownMetadata() Metadata {
	return Metadata{Title: UnknownTitle, Uploader: UnknownUploader}
}

// ArtifactKind distinguishes scratch media files.
type ArtifactKind string

const (
	ArtifactVideo ArtifactKind = "video"
	ArtifactAudio ArtifactKind = "audio"
)

// MediaArtifact is a scratch-file-backed unit of media owned by exactly one
// pipeline stage at a time. Ownership transfers forward; the orchestrator
// releases every artifact by the end of the run.
type MediaArtifact struct {
	Kind      ArtifactKind
	Path      string
	SizeBytes int64
}

// AttemptOutcome classifies a single download try.
type AttemptOutcome string

const (
	OutcomeSuccess          AttemptOutcome = "success"
	OutcomeTransientFailure AttemptOutcome = "transient_failure"
	OutcomeFatalFailure     AttemptOutcome = "fatal_failure"
)

// DownloadAttempt records one try of one acquisition strategy. Attempts are
// logged per run and never persisted.
type DownloadAttempt struct {
	Strategy      string
	AttemptNumber int
	Outcome       AttemptOutcome
	ErrorDetail   string
}

// TranscriptSegment is a time-bounded span of transcribed speech.
// Start and End are offsets in seconds from the beginning of the audio,
// with 0 <= Start <= End.
type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript is the transcription service's fragment of the final result:
// full text plus language, duration and segment timings.
type Transcript struct {
	Text     string              `json:"text"`
	Language string              `json:"language"`
	Duration float64             `json:"duration"`
	Segments []TranscriptSegment `json:"segments"`
}

// TranscriptResult is the pipeline's terminal success value.
type TranscriptResult struct {
	SourceURL  string              `json:"url"`
	Transcript string              `json:"transcript"`
	Language   string              `json:"language"`
	Duration   float64             `json:"duration"`
	Segments   []TranscriptSegment `json:"segments"`
	Metadata   Metadata            `json:"metadata"`
	Model      string              `json:"model_used"`
}
