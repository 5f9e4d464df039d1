package enrich

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tracklist/internal/services/apple"
	"tracklist/internal/services/spotify"
	"tracklist/internal/tracklist"
)

type fakeSpotify struct {
	mu          sync.Mutex
	tracks      map[string]*spotify.TrackInfo
	artists     map[string]*spotify.ArtistInfo
	features    map[string]spotify.AudioFeatures
	searchErr   error
	featuresErr error
	searchCalls int
}

func (f *fakeSpotify) SearchTrack(_ context.Context, title, artist string) (*spotify.TrackInfo, error) {
	f.mu.Lock()
	f.searchCalls++
	f.mu.Unlock()
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.tracks[title+"|"+artist], nil
}

func (f *fakeSpotify) SearchArtist(_ context.Context, name string) (*spotify.ArtistInfo, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.artists[name], nil
}

func (f *fakeSpotify) AudioFeatures(_ context.Context, ids []string) ([]spotify.AudioFeatures, error) {
	if f.featuresErr != nil {
		return nil, f.featuresErr
	}
	out := make([]spotify.AudioFeatures, 0, len(ids))
	for _, id := range ids {
		if features, ok := f.features[id]; ok {
			out = append(out, features)
		}
	}
	return out, nil
}

type fakeApple struct {
	songs map[string]apple.Song
	err   error
	calls int
}

func (f *fakeApple) Songs(_ context.Context, keys []string) (map[string]apple.Song, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]apple.Song)
	for _, key := range keys {
		if song, ok := f.songs[key]; ok {
			out[key] = song
		}
	}
	return out, nil
}

func shazamKey(v int64) *int64 { return &v }

func mergedFixture() []tracklist.MergedTrack {
	return []tracklist.MergedTrack{
		{StartSec: 0, EndSec: 240, ShazamKey: shazamKey(1), AppleKey: "ap-1", Title: "Alpha", Artist: "A"},
		{StartSec: 240, EndSec: 360},
		{StartSec: 360, EndSec: 600, ShazamKey: shazamKey(2), Title: "Beta", Artist: "B"},
	}
}

func TestEnrichJoinsBothProviders(t *testing.T) {
	t.Parallel()

	sp := &fakeSpotify{
		tracks: map[string]*spotify.TrackInfo{
			"Alpha|A": {ID: "sp-1", ArtistID: "spa-1", Album: "Album One", ReleaseDate: "1997-01-20", ReleaseYear: 1997, PreviewURL: "https://p/sp-1", CoverArt: "https://c/sp-1"},
		},
		artists: map[string]*spotify.ArtistInfo{
			"A": {ID: "spa-1", Name: "A", Genres: []string{"house"}, Popularity: 77},
		},
		features: map[string]spotify.AudioFeatures{
			"sp-1": {ID: "sp-1", Energy: 84, Danceability: 90, Loudness: 86, Tempo: 123},
		},
	}
	ap := &fakeApple{songs: map[string]apple.Song{
		"ap-1": {Key: "ap-1", ArtistKey: "apa-1", PreviewURL: "https://ap/p", ArtworkURL: "https://ap/a", ReleaseDate: "1997-01-20", ReleaseYear: 1997, Genres: []string{"Electronic"}},
	}}

	enricher := New(WithSpotify(sp), WithApple(ap))
	tracks, err := enricher.Enrich(context.Background(), mergedFixture())
	if err != nil {
		t.Fatal(err)
	}
	if len(tracks) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(tracks))
	}

	alpha := tracks[0]
	if alpha.SpotifyKey != "sp-1" || alpha.SpotifyArtistKey != "spa-1" {
		t.Fatalf("spotify identity missing: %+v", alpha)
	}
	if alpha.AppleArtistKey != "apa-1" || alpha.ApplePreviewURL != "https://ap/p" {
		t.Fatalf("apple fields missing: %+v", alpha)
	}
	if alpha.Energy != 84 || alpha.Tempo != 123 {
		t.Fatalf("audio features missing: %+v", alpha)
	}
	if alpha.ArtistPopularity != 77 {
		t.Fatalf("artist popularity missing: %+v", alpha)
	}
	if len(alpha.Genres) != 2 {
		t.Fatalf("expected merged genres from both providers, got %v", alpha.Genres)
	}
	if alpha.ReleaseDate != "1997-01-20" {
		t.Fatalf("release date missing: %+v", alpha)
	}

	// The gap passes through untouched.
	if tracks[1].Matched() || tracks[1].SpotifyKey != "" {
		t.Fatalf("gap must stay empty: %+v", tracks[1])
	}
	// Beta has no apple key and no spotify hit.
	if tracks[2].SpotifyKey != "" || tracks[2].AppleArtistKey != "" {
		t.Fatalf("unknown track must stay bare: %+v", tracks[2])
	}
}

func TestEnrichSurvivesSpotifyFailure(t *testing.T) {
	t.Parallel()

	sp := &fakeSpotify{searchErr: errors.New("spotify down")}
	ap := &fakeApple{songs: map[string]apple.Song{
		"ap-1": {Key: "ap-1", ArtistKey: "apa-1", ArtworkURL: "https://ap/a"},
	}}

	tracks, err := New(WithSpotify(sp), WithApple(ap)).Enrich(context.Background(), mergedFixture())
	if err != nil {
		t.Fatalf("one provider failing must not fail the run: %v", err)
	}
	if tracks[0].AppleArtistKey != "apa-1" {
		t.Fatalf("apple fields must persist: %+v", tracks[0])
	}
	if tracks[0].SpotifyKey != "" || tracks[0].Energy != 0 {
		t.Fatalf("spotify fields must stay nil: %+v", tracks[0])
	}
}

func TestEnrichSurvivesAppleFailure(t *testing.T) {
	t.Parallel()

	sp := &fakeSpotify{
		tracks: map[string]*spotify.TrackInfo{
			"Alpha|A": {ID: "sp-1"},
		},
		artists:  map[string]*spotify.ArtistInfo{},
		features: map[string]spotify.AudioFeatures{},
	}
	ap := &fakeApple{err: errors.New("apple down")}

	tracks, err := New(WithSpotify(sp), WithApple(ap)).Enrich(context.Background(), mergedFixture())
	if err != nil {
		t.Fatal(err)
	}
	if tracks[0].SpotifyKey != "sp-1" {
		t.Fatalf("spotify fields must persist: %+v", tracks[0])
	}
	if tracks[0].AppleArtistKey != "" {
		t.Fatalf("apple fields must stay nil: %+v", tracks[0])
	}
}

func TestEnrichDeduplicatesSearches(t *testing.T) {
	t.Parallel()

	sp := &fakeSpotify{
		tracks:   map[string]*spotify.TrackInfo{},
		artists:  map[string]*spotify.ArtistInfo{},
		features: map[string]spotify.AudioFeatures{},
	}
	tracks := []tracklist.MergedTrack{
		{ShazamKey: shazamKey(1), Title: "Alpha", Artist: "A"},
		{ShazamKey: shazamKey(1), Title: "Alpha", Artist: "A"},
		{ShazamKey: shazamKey(2), Title: "Beta", Artist: "B"},
	}
	if _, err := New(WithSpotify(sp), WithConcurrency(1)).Enrich(context.Background(), tracks); err != nil {
		t.Fatal(err)
	}
	if sp.searchCalls != 2 {
		t.Fatalf("expected one search per unique pair, got %d", sp.searchCalls)
	}
}

func TestEnrichWithoutProvidersPassesThrough(t *testing.T) {
	t.Parallel()

	tracks, err := New().Enrich(context.Background(), mergedFixture())
	if err != nil {
		t.Fatal(err)
	}
	if len(tracks) != 3 || tracks[0].Title != "Alpha" {
		t.Fatalf("unexpected passthrough result: %+v", tracks)
	}
}

// rendezvousApple blocks inside Songs until the spotify lookup has arrived,
// so the test below fails fast if the two providers are queried in sequence.
type rendezvousApple struct {
	arrived  chan struct{}
	peer     chan struct{}
	timedOut bool
}

func (f *rendezvousApple) Songs(context.Context, []string) (map[string]apple.Song, error) {
	close(f.arrived)
	select {
	case <-f.peer:
	case <-time.After(5 * time.Second):
		f.timedOut = true
	}
	return nil, nil
}

type rendezvousSpotify struct {
	once     sync.Once
	arrived  chan struct{}
	peer     chan struct{}
	timedOut bool
}

func (f *rendezvousSpotify) SearchTrack(context.Context, string, string) (*spotify.TrackInfo, error) {
	f.once.Do(func() { close(f.arrived) })
	select {
	case <-f.peer:
	case <-time.After(5 * time.Second):
		f.timedOut = true
	}
	return nil, nil
}

func (f *rendezvousSpotify) SearchArtist(context.Context, string) (*spotify.ArtistInfo, error) {
	return nil, nil
}

func (f *rendezvousSpotify) AudioFeatures(context.Context, []string) ([]spotify.AudioFeatures, error) {
	return nil, nil
}

func TestEnrichQueriesProvidersConcurrently(t *testing.T) {
	t.Parallel()

	appleArrived := make(chan struct{})
	spotifyArrived := make(chan struct{})
	ap := &rendezvousApple{arrived: appleArrived, peer: spotifyArrived}
	sp := &rendezvousSpotify{arrived: spotifyArrived, peer: appleArrived}

	tracks := []tracklist.MergedTrack{
		{StartSec: 0, EndSec: 240, ShazamKey: shazamKey(1), AppleKey: "ap-1", Title: "Alpha", Artist: "A"},
	}
	if _, err := New(WithSpotify(sp), WithApple(ap)).Enrich(context.Background(), tracks); err != nil {
		t.Fatalf("enrich: %v", err)
	}
	if ap.timedOut || sp.timedOut {
		t.Fatal("provider lookups ran in sequence instead of overlapping")
	}
}
