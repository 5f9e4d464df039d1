package tracklist

import "sort"

// Options tunes the merge/elision passes.
type Options struct {
	// LookAhead is how many entries past the current run end a matching key
	// may appear and still be absorbed into the run.
	LookAhead int
	// MinUnmatchedSec is the shortest unmatched gap worth keeping as its own
	// tracklist entry.
	MinUnmatchedSec float64
}

// Merge collapses repeated recognitions of the same track into single
// entries. Adjacent segments coalesce first: equal (title, artist) pairs and
// back-to-back unmatched segments become one entry. A keyed look-ahead pass
// then merges runs whose shazam keys are equal and non-nil when the repeat
// sits within LookAhead entries of the run's current end; the absorbed entry
// donates its end time and back-fills any fields the run is still missing.
// Start times are never touched. The pass is idempotent.
func Merge(matches []RawMatch, lookAhead int) []MergedTrack {
	if lookAhead < 1 {
		lookAhead = 1
	}
	ordered := make([]RawMatch, len(matches))
	copy(ordered, matches)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	runs := coalesce(ordered)

	var merged []MergedTrack
	for i := 0; i < len(runs); {
		current := runs[i]
		next := i + 1
		if current.ShazamKey != nil {
			// Keep absorbing equal keys while one appears within the
			// look-ahead window of the run's current end.
			for {
				found := -1
				for j := next; j < len(runs) && j < next+lookAhead; j++ {
					if runs[j].ShazamKey != nil && *runs[j].ShazamKey == *current.ShazamKey {
						found = j
						break
					}
				}
				if found == -1 {
					break
				}
				extend(&current, runs[found])
				next = found + 1
			}
		}
		merged = append(merged, current)
		i = next
	}
	return merged
}

// coalesce folds adjacent segments into runs: a segment joins the previous
// run when both carry the same non-empty (title, artist) pair or both are
// unmatched.
func coalesce(ordered []RawMatch) []MergedTrack {
	var runs []MergedTrack
	for _, match := range ordered {
		if len(runs) > 0 {
			last := &runs[len(runs)-1]
			sameTrack := match.Title != "" && match.Title == last.Title && match.Artist == last.Artist
			bothUnmatched := match.Title == "" && last.Title == ""
			if sameTrack || bothUnmatched {
				absorb(last, match)
				continue
			}
		}
		runs = append(runs, toMerged(match))
	}
	return runs
}

// Elide drops unmatched entries shorter than minUnmatchedSec, donating their
// span to a neighbor so timeline coverage is preserved.
func Elide(tracks []MergedTrack, minUnmatchedSec float64) []MergedTrack {
	var (
		kept         []MergedTrack
		pendingStart = -1.0
	)
	for _, track := range tracks {
		if !track.Matched() && track.DurationSec() < minUnmatchedSec {
			if len(kept) > 0 {
				kept[len(kept)-1].EndSec = track.EndSec
			} else if pendingStart < 0 {
				pendingStart = track.StartSec
			}
			continue
		}
		if pendingStart >= 0 {
			track.StartSec = pendingStart
			pendingStart = -1
		}
		kept = append(kept, track)
	}
	return kept
}

// UniqueTrackCount counts distinct (title, artist) pairs with both fields
// non-empty. Order of the input does not matter.
func UniqueTrackCount(tracks []MergedTrack) int {
	type identity struct {
		title  string
		artist string
	}
	seen := make(map[identity]struct{})
	for _, track := range tracks {
		if track.Title == "" || track.Artist == "" {
			continue
		}
		seen[identity{title: track.Title, artist: track.Artist}] = struct{}{}
	}
	return len(seen)
}

// Dedupe runs both passes with the configured thresholds.
func Dedupe(matches []RawMatch, opts Options) []MergedTrack {
	return Elide(Merge(matches, opts.LookAhead), opts.MinUnmatchedSec)
}

func toMerged(match RawMatch) MergedTrack {
	return MergedTrack{
		StartSec:    match.StartSec,
		EndSec:      match.EndSec,
		ShazamKey:   match.ShazamKey,
		AppleKey:    match.AppleKey,
		Title:       match.Title,
		Artist:      match.Artist,
		CoverArt:    match.CoverArt,
		PreviewURI:  match.PreviewURI,
		Genre:       match.Genre,
		Subgenres:   match.Subgenres,
		Album:       match.Album,
		Label:       match.Label,
		ReleaseYear: match.ReleaseYear,
		Segments:    1,
	}
}

// extend merges a later run of the same track into the current one: the end
// time advances, segment counts add up, and empty fields are back-filled.
func extend(track *MergedTrack, other MergedTrack) {
	track.EndSec = other.EndSec
	track.Segments += other.Segments
	if track.ShazamKey == nil {
		track.ShazamKey = other.ShazamKey
	}
	if track.AppleKey == "" {
		track.AppleKey = other.AppleKey
	}
	if track.Artist == "" {
		track.Artist = other.Artist
	}
	if track.CoverArt == "" {
		track.CoverArt = other.CoverArt
	}
	if track.PreviewURI == "" {
		track.PreviewURI = other.PreviewURI
	}
	if track.Genre == "" {
		track.Genre = other.Genre
	}
	if len(track.Subgenres) == 0 {
		track.Subgenres = other.Subgenres
	}
	if track.Album == "" {
		track.Album = other.Album
	}
	if track.Label == "" {
		track.Label = other.Label
	}
	if track.ReleaseYear == 0 {
		track.ReleaseYear = other.ReleaseYear
	}
}

// absorb extends the run with a later recognition of the same track: the end
// time advances and empty fields are back-filled. The start time is kept.
func absorb(track *MergedTrack, match RawMatch) {
	track.EndSec = match.EndSec
	track.Segments++
	if track.ShazamKey == nil {
		track.ShazamKey = match.ShazamKey
	}
	if track.AppleKey == "" {
		track.AppleKey = match.AppleKey
	}
	if track.Artist == "" {
		track.Artist = match.Artist
	}
	if track.CoverArt == "" {
		track.CoverArt = match.CoverArt
	}
	if track.PreviewURI == "" {
		track.PreviewURI = match.PreviewURI
	}
	if track.Genre == "" {
		track.Genre = match.Genre
	}
	if len(track.Subgenres) == 0 {
		track.Subgenres = match.Subgenres
	}
	if track.Album == "" {
		track.Album = match.Album
	}
	if track.Label == "" {
		track.Label = match.Label
	}
	if track.ReleaseYear == 0 {
		track.ReleaseYear = match.ReleaseYear
	}
}
