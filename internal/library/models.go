package library

import "time"

// Channel is an uploader whose sets appear in the library.
type Channel struct {
	ID            int64
	ChannelKey    string
	Author        string
	URL           string
	FollowerCount int64
	UpdatedAt     time.Time
}

// Set is one ingested video. Aggregate audio-feature fields are averages over
// the set's matched tracks, scaled 0 to 100.
type Set struct {
	ID           int64
	VideoID      string
	ChannelID    int64
	Title        string
	DurationSec  int
	PublishDate  string
	Thumbnail    string
	Embeddable   bool
	ChaptersJSON string
	ViewCount    int64
	LikeCount    int64
	NbTracks     int
	Published    bool
	Error        string

	Aggregates Aggregates
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Aggregates holds per-set audio-feature averages.
type Aggregates struct {
	Acousticness     int
	Danceability     int
	Energy           int
	Instrumentalness int
	Liveness         int
	Loudness         int
	Speechiness      int
	Valence          int
	ArtistPopularity int
}

// Track is a canonical catalog row. Provider keys are nil or empty when a
// provider never identified the track; at most one row exists per key.
type Track struct {
	ID               int64
	ShazamKey        *int64
	AppleKey         string
	SpotifyKey       string
	SpotifyArtistKey string
	AppleArtistKey   string
	Title            string
	Artist           string
	Album            string
	Label            string
	ReleaseYear      int
	ReleaseDate      string
	CoverArt         string
	PreviewURI       string
	SpotifyPreview   string
	SpotifyCoverArt  string
	ApplePreview     string
	AppleArtwork     string

	Acousticness     int
	Danceability     int
	Energy           int
	Instrumentalness int
	Liveness         int
	Loudness         int
	Speechiness      int
	Valence          int
	Tempo            int
	ArtistPopularity int

	NbSets    int
	CreatedAt time.Time
}

// Genre is a case-normalized tag with a denormalized track counter.
type Genre struct {
	ID       int64
	Name     string
	NbTracks int
}

// Placement is one track's position inside a set's tracklist.
type Placement struct {
	TrackID  int64
	SetID    int64
	Pos      int
	StartSec float64
	EndSec   float64
}
