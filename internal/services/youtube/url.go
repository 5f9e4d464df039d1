package youtube

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ExtractVideoID resolves a submission string (bare 11-character identifier or
// any of the common URL shapes) to the canonical video identifier.
func ExtractVideoID(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", fmt.Errorf("empty submission")
	}
	if videoIDPattern.MatchString(trimmed) {
		return trimmed, nil
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}

	host := strings.ToLower(u.Host)
	switch {
	case strings.Contains(host, "youtu.be"):
		id := strings.TrimPrefix(u.Path, "/")
		if idx := strings.Index(id, "/"); idx != -1 {
			id = id[:idx]
		}
		if videoIDPattern.MatchString(id) {
			return id, nil
		}
	case strings.Contains(host, "youtube.com"):
		if strings.HasPrefix(u.Path, "/watch") {
			if id := u.Query().Get("v"); videoIDPattern.MatchString(id) {
				return id, nil
			}
		}
		for _, prefix := range []string{"/embed/", "/v/", "/shorts/", "/live/"} {
			if strings.HasPrefix(u.Path, prefix) {
				id := strings.TrimPrefix(u.Path, prefix)
				if idx := strings.Index(id, "/"); idx != -1 {
					id = id[:idx]
				}
				if videoIDPattern.MatchString(id) {
					return id, nil
				}
			}
		}
	}

	return "", fmt.Errorf("unable to extract video ID from %q", input)
}
