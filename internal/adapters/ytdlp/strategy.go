package ytdlp

import "time"

// User-agent and header values are configuration, not load-bearing logic.
// They mirror profiles that have worked against Instagram's delivery CDN.
const (
	desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	mobileUserAgent  = "Instagram 219.0.0.12.117 Android"
	instagramReferer = "https://www.instagram.com/"
)

// Strategy is one configured approach to retrieving video bytes. Strategies
// differ in quality ceiling, identity profile, certificate strictness and
// chunking, never in outcome contract. They are tried in priority order,
// each with its own bounded retry loop.
type Strategy struct {
	Name          string
	Format        string // yt-dlp format selector
	UserAgent     string
	Referer       string
	Headers       map[string]string
	SocketTimeout int           // seconds, passed to yt-dlp
	ChunkSize     int64         // HTTP chunk size in bytes
	InsecureTLS   bool          // skip certificate verification
	MaxAttempts   int           // bounded retry loop size
	BaseDelay     time.Duration // initial backoff interval
	// RateLimitDelay is the pause taken instead of the regular backoff
	// interval after a rate-limit signature; attempt N waits N times this
	// long before the next retry.
	RateLimitDelay time.Duration
	// DirectURL switches the strategy to resolving a direct media URL via
	// yt-dlp and streaming the bytes over plain HTTP.
	DirectURL bool
}

// DefaultStrategies returns the ordered strategy list: standard quality
// with a browser profile first, a degraded mobile profile second, and a
// direct-URL HTTP stream as the last resort.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{
			Name:           "standard",
			Format:         "best[height<=720]/best",
			UserAgent:      desktopUserAgent,
			SocketTimeout:  30,
			ChunkSize:      10 * 1024 * 1024,
			MaxAttempts:    3,
			BaseDelay:      2 * time.Second,
			RateLimitDelay: 30 * time.Second,
		},
		{
			Name:      "degraded",
			Format:    "worst[height<=480]/worst",
			UserAgent: mobileUserAgent,
			Referer:   instagramReferer,
			Headers: map[string]string{
				"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
				"Accept-Language": "en-us,en;q=0.5",
			},
			SocketTimeout:  60,
			ChunkSize:      5 * 1024 * 1024,
			InsecureTLS:    true,
			MaxAttempts:    5,
			BaseDelay:      2 * time.Second,
			RateLimitDelay: 30 * time.Second,
		},
		{
			Name:           "direct",
			Format:         "b",
			UserAgent:      mobileUserAgent,
			Referer:        instagramReferer,
			SocketTimeout:  60,
			InsecureTLS:    true,
			MaxAttempts:    3,
			BaseDelay:      2 * time.Second,
			RateLimitDelay: 30 * time.Second,
			DirectURL:      true,
		},
	}
}

// headerProfile returns the full header set for HTTP transfers, including
// the identity headers yt-dlp would otherwise send itself.
func (s Strategy) headerProfile() map[string]string {
	headers := make(map[string]string, len(s.Headers)+2)
	for k, v := range s.Headers {
		headers[k] = v
	}
	if s.UserAgent != "" {
		headers["User-Agent"] = s.UserAgent
	}
	if s.Referer != "" {
		headers["Referer"] = s.Referer
	}
	return headers
}
