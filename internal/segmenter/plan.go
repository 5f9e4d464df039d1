package segmenter

import (
	"fmt"

	"tracklist/internal/services/youtube"
)

// Segment is one planned slice of the source audio. Index is authoritative
// for ordering; times are advisory.
type Segment struct {
	Index    int
	StartSec float64
	EndSec   float64
	Title    string
}

// FileName returns the zero-padded segment file name for an index.
func FileName(index int) string {
	return fmt.Sprintf("segment_%04d.ogg", index)
}

// Plan computes segment boundaries for a video. Chapter markers win when there
// are enough of them to be trusted; sparse chapter lists (fewer than
// minChapters) are treated as chapterless and sliced at fixed length.
func Plan(durationSec int, chapters []youtube.Chapter, segmentLength, minChapters int) []Segment {
	if len(chapters) >= minChapters {
		segments := make([]Segment, 0, len(chapters))
		for i, chapter := range chapters {
			segments = append(segments, Segment{
				Index:    i,
				StartSec: chapter.StartTime,
				EndSec:   chapter.EndTime,
				Title:    chapter.Title,
			})
		}
		return segments
	}

	if durationSec <= 0 || segmentLength <= 0 {
		return nil
	}
	count := (durationSec + segmentLength - 1) / segmentLength
	segments := make([]Segment, 0, count)
	for i := 0; i < count; i++ {
		start := i * segmentLength
		end := start + segmentLength
		if end > durationSec {
			end = durationSec
		}
		segments = append(segments, Segment{
			Index:    i,
			StartSec: float64(start),
			EndSec:   float64(end),
		})
	}
	return segments
}
