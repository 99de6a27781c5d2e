// Package normalize turns raw user input into a canonical Instagram content
// reference. It is a pure string transformation: no network access, and
// normalizing a canonical form yields the same result as normalizing the
// original input.
package normalize

import (
	"regexp"
	"strings"

	"reelscribe/internal/core/domain"
)

const canonicalHost = "https://www.instagram.com"

// Patterns are tried in fixed priority order: fully qualified URL, bare
// domain, bare path. The first match wins. The content ID charset matches
// Instagram shortcodes (base64url alphabet).
var (
	reFull   = regexp.MustCompile(`(?i)^https?://(?:www\.)?instagram\.com/(reels?|p|tv)/([A-Za-z0-9_-]+)`)
	reDomain = regexp.MustCompile(`(?i)^(?:www\.)?instagram\.com/(reels?|p|tv)/([A-Za-z0-9_-]+)`)
	rePath   = regexp.MustCompile(`(?i)^/?(reels?|p|tv)/([A-Za-z0-9_-]+)`)

	patterns = []*regexp.Regexp{reFull, reDomain, rePath}
)

// Normalize parses and canonicalizes a raw content URL. Scheme, www prefix,
// trailing query/fragment and trailing slashes are all optional in the
// input. On failure the returned error is a *domain.PipelineFailure with
// kind ErrInvalidInput.
func Normalize(raw string) (domain.CanonicalURL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return domain.CanonicalURL{}, domain.Failure(domain.StageNormalize, domain.ErrInvalidInput,
			"empty URL")
	}

	for _, re := range patterns {
		m := re.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		kind := kindForToken(m[1])
		id := m[2]
		return domain.CanonicalURL{
			ContentID:     id,
			Kind:          kind,
			CanonicalForm: CanonicalForm(id, kind),
		}, nil
	}

	if strings.Contains(strings.ToLower(trimmed), "instagram.com") {
		return domain.CanonicalURL{}, domain.Failure(domain.StageNormalize, domain.ErrInvalidInput,
			"no reel, post or video could be identified in %q", trimmed)
	}
	return domain.CanonicalURL{}, domain.Failure(domain.StageNormalize, domain.ErrInvalidInput,
		"%q is not an Instagram URL", trimmed)
}

// CanonicalForm builds the canonical URL string for a content ID and kind.
// It is a pure function of its arguments.
func CanonicalForm(contentID string, kind domain.ContentKind) string {
	return canonicalHost + "/" + kind.PathToken() + "/" + contentID + "/"
}

func kindForToken(token string) domain.ContentKind {
	switch strings.ToLower(token) {
	case "p":
		return domain.KindPost
	case "tv":
		return domain.KindVideo
	default: // reel, reels
		return domain.KindReel
	}
}
