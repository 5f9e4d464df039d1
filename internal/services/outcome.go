package services

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// OutcomeKind partitions the result of one processing attempt.
type OutcomeKind int

const (
	// OutcomeAccepted means the attempt finished and the set was published.
	OutcomeAccepted OutcomeKind = iota
	// OutcomeRejected means the entry violated policy and must not be retried.
	OutcomeRejected
	// OutcomeDeferred means the content is not available yet; re-check later.
	OutcomeDeferred
	// OutcomeTransient means the failure is worth an automatic retry.
	OutcomeTransient
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeRejected:
		return "rejected"
	case OutcomeDeferred:
		return "deferred"
	case OutcomeTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Outcome is the classified result of one processing or validation attempt.
// Callers switch on Kind instead of inspecting reason strings.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
	Until  time.Time // set when Kind is OutcomeDeferred
}

// Accepted returns the success outcome.
func Accepted() Outcome {
	return Outcome{Kind: OutcomeAccepted}
}

// Rejected returns a terminal policy-rejection outcome.
func Rejected(reason string) Outcome {
	return Outcome{Kind: OutcomeRejected, Reason: reason}
}

// Deferred returns a deferral outcome with the re-check time.
func Deferred(reason string, until time.Time) Outcome {
	return Outcome{Kind: OutcomeDeferred, Reason: reason, Until: until}
}

// Transient returns a retryable-failure outcome.
func Transient(reason string) Outcome {
	return Outcome{Kind: OutcomeTransient, Reason: reason}
}

// Provider wording that indicates a failure worth retrying rather than a
// terminal discard. Inherently brittle against upstream message drift; keep the
// sentinel-marker path as the first line of classification.
var transientFragments = []string{
	"failed to extract any player response",
	"unable to download video",
	"not a bot",
	"bot verification",
	"invalidtextrepresentation",
	"stringdatarighttruncation",
	"not available on this ap",
	"ffmpeg exited",
	"[0;31merror",
}

// Provider wording for content that is gone for good. Retrying cannot help, so
// these discard even when the error arrived wrapped as a tool failure.
var unavailableFragments = []string{
	"video unavailable",
	"private video",
	"has been removed",
	"has been terminated",
	"no longer available",
}

// Classify converts an attempt error into an explicit Outcome. Sentinel
// markers win; free-text matching is the fallback for errors that bubbled up
// from external tools unwrapped. Unrecognized errors are terminal rejections.
func Classify(err error, now time.Time) Outcome {
	if err == nil {
		return Accepted()
	}
	reason := Reason(err)

	switch {
	case errors.Is(err, ErrDeferred):
		return Deferred(reason, now.Add(PremiereDelay(reason)))
	case errors.Is(err, ErrRejection):
		return Rejected(reason)
	}

	// Premiere wording is checked before the retryable markers because the
	// platform client wraps every yt-dlp failure as a tool error.
	lowered := strings.ToLower(reason)
	if strings.Contains(lowered, "premiere") {
		return Deferred(reason, now.Add(PremiereDelay(reason)))
	}

	// Likewise for unavailability wording: a deleted or private video stays
	// deleted no matter how often the fetch is retried.
	for _, fragment := range unavailableFragments {
		if strings.Contains(lowered, fragment) {
			return Rejected(reason)
		}
	}

	if errors.Is(err, ErrTransient) || errors.Is(err, ErrExternalTool) {
		return Transient(reason)
	}
	for _, fragment := range transientFragments {
		if strings.Contains(lowered, fragment) {
			return Transient(reason)
		}
	}
	return Rejected(reason)
}

var (
	daysPattern    = regexp.MustCompile(`(\d+)\s*day`)
	hoursPattern   = regexp.MustCompile(`(\d+)\s*hour`)
	minutesPattern = regexp.MustCompile(`(\d+)\s*minute`)
)

// PremiereDelay parses the free-text delay description a video platform
// reports for unavailable content ("premieres in 2 hours", "this live event
// will begin in a few moments"). "in a few" counts as 20 minutes, and a
// mentioned live event gets a 4 hour buffer on top since those rarely start on
// time.
func PremiereDelay(reason string) time.Duration {
	lowered := strings.ToLower(reason)

	var delay time.Duration
	switch {
	case strings.Contains(lowered, "in a few"):
		delay = 20 * time.Minute
	default:
		if m := daysPattern.FindStringSubmatch(lowered); m != nil {
			delay = time.Duration(atoiSafe(m[1])) * 24 * time.Hour
		} else if m := hoursPattern.FindStringSubmatch(lowered); m != nil {
			delay = time.Duration(atoiSafe(m[1])) * time.Hour
		} else if m := minutesPattern.FindStringSubmatch(lowered); m != nil {
			delay = time.Duration(atoiSafe(m[1])) * time.Minute
		}
	}

	if strings.Contains(lowered, "live event") {
		delay += 4 * time.Hour
	}
	return delay
}

func atoiSafe(value string) int {
	n := 0
	for _, r := range value {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

const maxReasonLength = 255

var ansiErrorPrefix = regexp.MustCompile(`\x1b?\[0;31mERROR:?\x1b?\[0m\s*(\[[a-z]+\]\s*)?`)

// CleanReason normalizes a raw failure reason for persistence: strips the
// video-id prefix yt-dlp prepends, drops ANSI error markers, and caps the
// length so it fits the discarded_reason column.
func CleanReason(reason, videoID string) string {
	cleaned := strings.TrimSpace(reason)
	if videoID != "" {
		cleaned = strings.ReplaceAll(cleaned, strings.ToLower(videoID)+":", "")
		cleaned = strings.ReplaceAll(cleaned, videoID+":", "")
	}
	cleaned = ansiErrorPrefix.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(cleaned), ":"))
	if len(cleaned) > maxReasonLength {
		cleaned = cleaned[:maxReasonLength]
	}
	return cleaned
}
