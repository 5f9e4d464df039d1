package segmenter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"tracklist/internal/services/youtube"
	"tracklist/internal/testsupport"
)

func TestPlanFixedLength(t *testing.T) {
	t.Parallel()

	segments := Plan(3600, nil, 120, 5)
	if len(segments) != 30 {
		t.Fatalf("expected 30 segments, got %d", len(segments))
	}
	last := segments[len(segments)-1]
	if last.Index != 29 || last.StartSec != 3480 || last.EndSec != 3600 {
		t.Fatalf("unexpected last segment %+v", last)
	}
}

func TestPlanRoundsUpFinalPartial(t *testing.T) {
	t.Parallel()

	segments := Plan(3601, nil, 120, 5)
	if len(segments) != 31 {
		t.Fatalf("expected 31 segments, got %d", len(segments))
	}
	last := segments[len(segments)-1]
	if last.StartSec != 3600 || last.EndSec != 3601 {
		t.Fatalf("unexpected final partial %+v", last)
	}
}

func TestPlanUsesChaptersWhenEnough(t *testing.T) {
	t.Parallel()

	chapters := []youtube.Chapter{
		{Title: "Intro", StartTime: 0, EndTime: 300},
		{Title: "Drop", StartTime: 300, EndTime: 900},
		{Title: "Break", StartTime: 900, EndTime: 1800},
		{Title: "Peak", StartTime: 1800, EndTime: 3000},
		{Title: "Outro", StartTime: 3000, EndTime: 3600},
	}
	segments := Plan(3600, chapters, 120, 5)
	if len(segments) != 5 {
		t.Fatalf("expected chapter-aligned segments, got %d", len(segments))
	}
	if segments[1].Title != "Drop" || segments[1].StartSec != 300 {
		t.Fatalf("unexpected segment %+v", segments[1])
	}
}

func TestPlanSparseChaptersFallBackToFixed(t *testing.T) {
	t.Parallel()

	chapters := []youtube.Chapter{
		{Title: "All", StartTime: 0, EndTime: 3600},
	}
	segments := Plan(3600, chapters, 120, 5)
	if len(segments) != 30 {
		t.Fatalf("expected fixed-length fallback, got %d segments", len(segments))
	}
}

func TestFileNameIsZeroPadded(t *testing.T) {
	t.Parallel()

	if got := FileName(7); got != "segment_0007.ogg" {
		t.Fatalf("unexpected name %q", got)
	}
}

func TestExportReusesExistingSegments(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "full.opus")
	testsupport.WriteFile(t, source, 64)
	destDir := filepath.Join(dir, "segments")

	plan := Plan(240, nil, 120, 5)
	for _, segment := range plan {
		testsupport.WriteFile(t, filepath.Join(destDir, FileName(segment.Index)), 16)
	}

	seg := New("ffmpeg", "ffprobe", 2, nil)
	paths, err := seg.Export(context.Background(), source, destDir, plan)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected two paths, got %d", len(paths))
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected segment on disk: %v", err)
		}
	}
}
