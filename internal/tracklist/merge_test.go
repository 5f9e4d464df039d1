package tracklist

import (
	"reflect"
	"testing"
)

func key(v int64) *int64 { return &v }

func matched(index int, start, end float64, k int64, title, artist string) RawMatch {
	return RawMatch{
		Index:     index,
		StartSec:  start,
		EndSec:    end,
		ShazamKey: key(k),
		Title:     title,
		Artist:    artist,
	}
}

func unmatched(index int, start, end float64) RawMatch {
	return RawMatch{Index: index, StartSec: start, EndSec: end}
}

func TestMergeCollapsesRun(t *testing.T) {
	t.Parallel()

	matches := []RawMatch{
		matched(0, 0, 120, 1, "Alpha", "A"),
		matched(1, 120, 240, 1, "Alpha", "A"),
		matched(2, 240, 360, 2, "Beta", "B"),
	}
	merged := Merge(matches, 4)
	if len(merged) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(merged))
	}
	if merged[0].StartSec != 0 || merged[0].EndSec != 240 || merged[0].Segments != 2 {
		t.Fatalf("unexpected first track %+v", merged[0])
	}
	if merged[1].Title != "Beta" {
		t.Fatalf("unexpected second track %+v", merged[1])
	}
}

func TestMergeLooksAcrossGaps(t *testing.T) {
	t.Parallel()

	matches := []RawMatch{
		matched(0, 0, 120, 1, "Alpha", "A"),
		unmatched(1, 120, 240),
		unmatched(2, 240, 360),
		matched(3, 360, 480, 1, "Alpha", "A"),
		matched(4, 480, 600, 2, "Beta", "B"),
	}
	merged := Merge(matches, 4)
	if len(merged) != 2 {
		t.Fatalf("expected gap absorbed into run, got %d tracks", len(merged))
	}
	if merged[0].EndSec != 480 {
		t.Fatalf("expected donated end time 480, got %v", merged[0].EndSec)
	}
}

func TestMergeCoalescesAdjacentGaps(t *testing.T) {
	t.Parallel()

	matches := []RawMatch{
		matched(0, 0, 120, 1, "Alpha", "A"),
		unmatched(1, 120, 240),
		unmatched(2, 240, 360),
		matched(3, 360, 480, 2, "Beta", "B"),
	}
	merged := Merge(matches, 4)
	if len(merged) != 3 {
		t.Fatalf("expected back-to-back gaps coalesced into one entry, got %d", len(merged))
	}
	gap := merged[1]
	if gap.Matched() {
		t.Fatalf("expected middle entry to be a gap, got %+v", gap)
	}
	if gap.StartSec != 120 || gap.EndSec != 360 || gap.Segments != 2 {
		t.Fatalf("unexpected coalesced gap %+v", gap)
	}
}

func TestMergeRespectsLookAheadBound(t *testing.T) {
	t.Parallel()

	matches := []RawMatch{
		matched(0, 0, 120, 1, "Alpha", "A"),
		matched(1, 120, 240, 2, "Beta", "B"),
		matched(2, 240, 360, 3, "Gamma", "C"),
		matched(3, 360, 480, 1, "Alpha", "A"),
	}
	merged := Merge(matches, 2)
	if len(merged) != 4 {
		t.Fatalf("expected repeat outside look-ahead to stay separate, got %d", len(merged))
	}
	if merged[0].Title != "Alpha" || merged[3].Title != "Alpha" {
		t.Fatalf("expected both Alpha entries kept, got %+v", merged)
	}
}

func TestMergeBackFillsMissingFieldsOnly(t *testing.T) {
	t.Parallel()

	first := matched(0, 0, 120, 1, "Alpha", "")
	first.Album = "Original Album"
	second := matched(1, 120, 240, 1, "Alpha", "A")
	second.Album = "Repress Album"
	second.Label = "Some Label"

	merged := Merge([]RawMatch{first, second}, 4)
	if len(merged) != 1 {
		t.Fatalf("expected single track, got %d", len(merged))
	}
	track := merged[0]
	if track.Artist != "A" || track.Label != "Some Label" {
		t.Fatalf("expected back-filled fields, got %+v", track)
	}
	if track.Album != "Original Album" {
		t.Fatalf("expected existing album kept, got %q", track.Album)
	}
	if track.StartSec != 0 {
		t.Fatalf("start time must never move, got %v", track.StartSec)
	}
}

func rawFromMerged(tracks []MergedTrack) []RawMatch {
	raw := make([]RawMatch, 0, len(tracks))
	for i, track := range tracks {
		raw = append(raw, RawMatch{
			Index:       i,
			StartSec:    track.StartSec,
			EndSec:      track.EndSec,
			ShazamKey:   track.ShazamKey,
			AppleKey:    track.AppleKey,
			Title:       track.Title,
			Artist:      track.Artist,
			CoverArt:    track.CoverArt,
			PreviewURI:  track.PreviewURI,
			Genre:       track.Genre,
			Subgenres:   track.Subgenres,
			Album:       track.Album,
			Label:       track.Label,
			ReleaseYear: track.ReleaseYear,
		})
	}
	return raw
}

func TestMergeIsIdempotent(t *testing.T) {
	t.Parallel()

	matches := []RawMatch{
		matched(0, 0, 120, 1, "Alpha", "A"),
		matched(1, 120, 240, 1, "Alpha", "A"),
		unmatched(2, 240, 360),
		matched(3, 360, 480, 2, "Beta", "B"),
		matched(4, 480, 600, 2, "Beta", "B"),
	}
	once := Merge(matches, 4)
	twice := Merge(rawFromMerged(once), 4)

	if len(once) != len(twice) {
		t.Fatalf("expected stable result, got %d then %d", len(once), len(twice))
	}
	for i := range once {
		if once[i].StartSec != twice[i].StartSec || once[i].EndSec != twice[i].EndSec || once[i].Title != twice[i].Title {
			t.Fatalf("entry %d changed on second pass: %+v vs %+v", i, once[i], twice[i])
		}
	}
}

func TestElideDropsShortGapsAndPreservesCoverage(t *testing.T) {
	t.Parallel()

	tracks := []MergedTrack{
		{StartSec: 0, EndSec: 240, Title: "Alpha", Artist: "A", Segments: 2},
		{StartSec: 240, EndSec: 300, Segments: 1},
		{StartSec: 300, EndSec: 600, Title: "Beta", Artist: "B", Segments: 2},
	}
	kept := Elide(tracks, 90)
	if len(kept) != 2 {
		t.Fatalf("expected short gap dropped, got %d entries", len(kept))
	}
	if kept[0].EndSec != 300 {
		t.Fatalf("expected gap donated to previous track, got end %v", kept[0].EndSec)
	}
	if kept[1].StartSec != 300 || kept[1].EndSec != 600 {
		t.Fatalf("unexpected following track %+v", kept[1])
	}
}

func TestElideKeepsLongGaps(t *testing.T) {
	t.Parallel()

	tracks := []MergedTrack{
		{StartSec: 0, EndSec: 240, Title: "Alpha", Artist: "A"},
		{StartSec: 240, EndSec: 360, Segments: 1},
		{StartSec: 360, EndSec: 600, Title: "Beta", Artist: "B"},
	}
	kept := Elide(tracks, 90)
	if len(kept) != 3 {
		t.Fatalf("expected long gap kept, got %d", len(kept))
	}
}

func TestElideLeadingGapDonatesForward(t *testing.T) {
	t.Parallel()

	tracks := []MergedTrack{
		{StartSec: 0, EndSec: 60, Segments: 1},
		{StartSec: 60, EndSec: 300, Title: "Alpha", Artist: "A"},
	}
	kept := Elide(tracks, 90)
	if len(kept) != 1 {
		t.Fatalf("expected leading gap dropped, got %d", len(kept))
	}
	if kept[0].StartSec != 0 {
		t.Fatalf("expected coverage preserved from 0, got %v", kept[0].StartSec)
	}
}

func TestUniqueTrackCountOrderIndependent(t *testing.T) {
	t.Parallel()

	forward := []MergedTrack{
		{Title: "Alpha", Artist: "A"},
		{Title: "Beta", Artist: "B"},
		{Title: "Alpha", Artist: "A"},
		{Title: "NoArtist"},
		{},
	}
	backward := make([]MergedTrack, len(forward))
	for i, track := range forward {
		backward[len(forward)-1-i] = track
	}

	if got := UniqueTrackCount(forward); got != 2 {
		t.Fatalf("expected 2 unique, got %d", got)
	}
	if UniqueTrackCount(forward) != UniqueTrackCount(backward) {
		t.Fatal("expected order independence")
	}
}

// Ten fixed-length segments exercising the full pipeline: run-merge, gap
// elision, and the unique-track acceptance threshold.
func tenSegmentScenario(uniqueTracks int) []RawMatch {
	titles := []struct {
		key    int64
		title  string
		artist string
	}{
		{1, "Alpha", "A"},
		{2, "Beta", "B"},
		{3, "Gamma", "C"},
		{4, "Delta", "D"},
		{5, "Epsilon", "E"},
		{6, "Zeta", "F"},
	}
	matches := make([]RawMatch, 0, 10)
	segLen := 120.0
	next := 0
	for i := 0; i < 10; i++ {
		start := float64(i) * segLen
		end := start + segLen
		switch {
		case i == 4:
			matches = append(matches, unmatched(i, start, end))
		case i == 1:
			matches = append(matches, matched(i, start, end, titles[0].key, titles[0].title, titles[0].artist))
		default:
			pick := titles[next%uniqueTracks]
			if i > 0 {
				next++
				pick = titles[next%uniqueTracks]
			}
			matches = append(matches, matched(i, start, end, pick.key, pick.title, pick.artist))
		}
	}
	return matches
}

func TestTenSegmentSetAcceptedAtSixUnique(t *testing.T) {
	t.Parallel()

	tracks := Dedupe(tenSegmentScenario(6), Options{LookAhead: 4, MinUnmatchedSec: 90})
	if got := UniqueTrackCount(tracks); got < 5 {
		t.Fatalf("expected at least 5 unique tracks, got %d", got)
	}
	// Coverage must span the full timeline regardless of merges.
	if tracks[0].StartSec != 0 || tracks[len(tracks)-1].EndSec != 1200 {
		t.Fatalf("coverage broken: %v..%v", tracks[0].StartSec, tracks[len(tracks)-1].EndSec)
	}
}

func TestTenSegmentSetRejectedAtFourUnique(t *testing.T) {
	t.Parallel()

	tracks := Dedupe(tenSegmentScenario(4), Options{LookAhead: 4, MinUnmatchedSec: 90})
	if got := UniqueTrackCount(tracks); got >= 5 {
		t.Fatalf("expected below acceptance threshold, got %d", got)
	}
}

func TestDedupeMatchesComposition(t *testing.T) {
	t.Parallel()

	matches := tenSegmentScenario(6)
	composed := Elide(Merge(matches, 4), 90)
	deduped := Dedupe(matches, Options{LookAhead: 4, MinUnmatchedSec: 90})
	if !reflect.DeepEqual(composed, deduped) {
		t.Fatal("Dedupe must equal Elide(Merge(...))")
	}
}
