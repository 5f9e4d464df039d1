package queue

import (
	"path/filepath"
	"strings"
)

// Artifact names inside a per-entry working directory. The presence of an
// artifact lets a retried attempt skip the stage that produced it.
const (
	AudioFileName        = "full.opus"
	SegmentsDirName      = "segments"
	RecognitionDirName   = "recognition"
	MergedArtifactName   = "segments_dedup.json"
	EnrichedArtifactName = "songs_complete.json"
)

// Workdir returns the per-entry staging directory rooted at base.
func (e Entry) Workdir(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return ""
	}
	segment := sanitizeSegment(e.VideoID)
	if segment == "" {
		segment = "entry"
	}
	return filepath.Join(base, segment)
}

func sanitizeSegment(value string) string {
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
		}
	}
	return strings.Trim(b.String(), "-_")
}
