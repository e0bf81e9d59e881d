package media

import "strings"

type FailureClass int

const (
	FailureOther FailureClass = iota
	FailureRateLimited
)

// FetchError wraps a probe/download failure with its retry class.
type FetchError struct {
	Class FailureClass
	Msg   string
}

func (e *FetchError) Error() string { return e.Msg }

var rateLimitMarkers = []string{
	"429",
	"too many requests",
	"rate limit",
	"rate-limit",
	"rate_limited",
}

// classify buckets a yt-dlp error message. Only the rate-limit bucket is
// eligible for retry; everything else surfaces immediately.
func classify(msg string) FailureClass {
	lower := strings.ToLower(msg)
	for _, m := range rateLimitMarkers {
		if strings.Contains(lower, m) {
			return FailureRateLimited
		}
	}
	return FailureOther
}

func fetchErr(msg string) *FetchError {
	return &FetchError{Class: classify(msg), Msg: msg}
}

// IsRateLimited reports whether err is a retryable rate-limit failure.
func IsRateLimited(err error) bool {
	fe, ok := err.(*FetchError)
	return ok && fe.Class == FailureRateLimited
}

// ToUserError maps raw yt-dlp output to a short message safe to show in
// chat.
func ToUserError(message string) string {
	msg := strings.ToLower(message)

	if strings.Contains(msg, "premium") || strings.Contains(msg, "membership") {
		return "This video requires a premium subscription"
	}
	if strings.Contains(msg, "login") || strings.Contains(msg, "sign in") || strings.Contains(msg, "authentication") {
		return "Login required, set your cookies with /cookies set"
	}
	if strings.Contains(msg, "geo") || strings.Contains(msg, "not available in your") {
		return "This video isn't available in the bot's region"
	}
	if strings.Contains(msg, "429") || strings.Contains(msg, "rate") {
		return "Rate limited, try again in a few minutes"
	}
	if strings.Contains(msg, "http error 404") || strings.Contains(msg, "not found") {
		return "Video not found, it may have been removed"
	}
	if strings.Contains(msg, "unsupported url") {
		return "This website isn't supported"
	}
	if strings.Contains(msg, "no video formats") || strings.Contains(msg, "requested format not available") {
		return "No downloadable formats found"
	}
	if strings.Contains(msg, "timed out") || strings.Contains(msg, "timeout") {
		return "Connection timed out, try again"
	}
	return "Download failed"
}
