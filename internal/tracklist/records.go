// Package tracklist holds the typed per-stage records of the recognition
// pipeline and the pure merge/elision engine that turns raw segment matches
// into a deduplicated tracklist.
package tracklist

import (
	"tracklist/internal/services/shazam"
)

// RawMatch is the recognition result for one segment. A zero ShazamKey with
// an empty Title marks an unmatched segment that still occupies its slice of
// the timeline.
type RawMatch struct {
	Index       int      `json:"index"`
	StartSec    float64  `json:"start_sec"`
	EndSec      float64  `json:"end_sec"`
	ShazamKey   *int64   `json:"shazam_key,omitempty"`
	AppleKey    string   `json:"apple_key,omitempty"`
	Title       string   `json:"title,omitempty"`
	Artist      string   `json:"artist,omitempty"`
	CoverArt    string   `json:"cover_art,omitempty"`
	PreviewURI  string   `json:"preview_uri,omitempty"`
	Genre       string   `json:"genre,omitempty"`
	Subgenres   []string `json:"subgenres,omitempty"`
	Album       string   `json:"album,omitempty"`
	Label       string   `json:"label,omitempty"`
	ReleaseYear int      `json:"release_year,omitempty"`
}

// Matched reports whether the segment was recognized.
func (m RawMatch) Matched() bool {
	return m.ShazamKey != nil && m.Title != ""
}

// NewRawMatch converts a recognition result into the pipeline record for a
// segment spanning [startSec, endSec).
func NewRawMatch(index int, startSec, endSec float64, match *shazam.Match) RawMatch {
	record := RawMatch{
		Index:    index,
		StartSec: startSec,
		EndSec:   endSec,
	}
	if match == nil {
		return record
	}
	key := match.ShazamKey
	record.ShazamKey = &key
	record.AppleKey = match.AppleKey
	record.Title = match.Title
	record.Artist = match.Artist
	record.CoverArt = match.CoverArt
	record.PreviewURI = match.PreviewURI
	record.Genre = match.Genre
	record.Subgenres = match.Subgenres
	record.Album = match.Album
	record.Label = match.Label
	record.ReleaseYear = match.ReleaseYear
	return record
}

// MergedTrack is one tracklist entry after run-merging and elision. Unmatched
// gaps survive as entries with an empty Title so the timeline stays covered.
type MergedTrack struct {
	StartSec    float64  `json:"start_sec"`
	EndSec      float64  `json:"end_sec"`
	ShazamKey   *int64   `json:"shazam_key,omitempty"`
	AppleKey    string   `json:"apple_key,omitempty"`
	Title       string   `json:"title,omitempty"`
	Artist      string   `json:"artist,omitempty"`
	CoverArt    string   `json:"cover_art,omitempty"`
	PreviewURI  string   `json:"preview_uri,omitempty"`
	Genre       string   `json:"genre,omitempty"`
	Subgenres   []string `json:"subgenres,omitempty"`
	Album       string   `json:"album,omitempty"`
	Label       string   `json:"label,omitempty"`
	ReleaseYear int      `json:"release_year,omitempty"`
	Segments    int      `json:"segments"`
}

// Matched reports whether the entry carries a recognized track.
func (t MergedTrack) Matched() bool {
	return t.Title != ""
}

// DurationSec is the timeline span the entry covers.
func (t MergedTrack) DurationSec() float64 {
	return t.EndSec - t.StartSec
}

// EnrichedTrack joins a merged track with provider catalog data. Provider
// fields stay zero when the corresponding lookup failed or found nothing.
type EnrichedTrack struct {
	MergedTrack

	SpotifyKey        string   `json:"spotify_key,omitempty"`
	SpotifyArtistKey  string   `json:"spotify_artist_key,omitempty"`
	SpotifyPreviewURL string   `json:"spotify_preview_url,omitempty"`
	SpotifyCoverArt   string   `json:"spotify_cover_art,omitempty"`
	AppleArtistKey    string   `json:"apple_artist_key,omitempty"`
	ApplePreviewURL   string   `json:"apple_preview_url,omitempty"`
	AppleArtworkURL   string   `json:"apple_artwork_url,omitempty"`
	ReleaseDate       string   `json:"release_date,omitempty"`
	Genres            []string `json:"genres,omitempty"`
	ArtistPopularity  int      `json:"artist_popularity,omitempty"`

	Acousticness     int `json:"acousticness,omitempty"`
	Danceability     int `json:"danceability,omitempty"`
	Energy           int `json:"energy,omitempty"`
	Instrumentalness int `json:"instrumentalness,omitempty"`
	Liveness         int `json:"liveness,omitempty"`
	Loudness         int `json:"loudness,omitempty"`
	Speechiness      int `json:"speechiness,omitempty"`
	Valence          int `json:"valence,omitempty"`
	Tempo            int `json:"tempo,omitempty"`
}
