// Package enrich joins merged tracklist entries with catalog metadata from
// the rich and secondary providers. Provider data is strictly additive; a
// provider failing or finding nothing leaves its fields zero and never aborts
// the run.
package enrich

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"tracklist/internal/logging"
	"tracklist/internal/services/apple"
	"tracklist/internal/services/spotify"
	"tracklist/internal/tracklist"
)

const defaultConcurrency = 5

// Enricher queries the catalog providers for merged tracks. Either catalog
// may be nil, which disables that provider.
type Enricher struct {
	spotify     spotify.Catalog
	apple       apple.Catalog
	logger      *slog.Logger
	concurrency int
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithSpotify attaches the rich catalog.
func WithSpotify(catalog spotify.Catalog) Option {
	return func(e *Enricher) { e.spotify = catalog }
}

// WithApple attaches the secondary catalog.
func WithApple(catalog apple.Catalog) Option {
	return func(e *Enricher) { e.apple = catalog }
}

// WithConcurrency caps concurrent per-track search requests.
func WithConcurrency(n int) Option {
	return func(e *Enricher) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Enricher) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an enricher.
func New(opts ...Option) *Enricher {
	e := &Enricher{
		logger:      logging.NewNop(),
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich resolves catalog metadata for every matched entry. Unmatched gaps
// pass through untouched. Only context cancellation is a hard error.
func (e *Enricher) Enrich(ctx context.Context, tracks []tracklist.MergedTrack) ([]tracklist.EnrichedTrack, error) {
	enriched := make([]tracklist.EnrichedTrack, len(tracks))
	for i, track := range tracks {
		enriched[i] = tracklist.EnrichedTrack{MergedTrack: track}
	}

	// The two providers are independent, so their lookups run at the same
	// time. Joining stays sequential because both fill the shared release
	// and genre fields.
	var (
		wg       sync.WaitGroup
		songs    map[string]apple.Song
		hits     map[searchKey]spotifyHit
		features map[string]spotify.AudioFeatures
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		songs = e.fetchAppleSongs(ctx, enriched)
	}()
	go func() {
		defer wg.Done()
		hits, features = e.fetchSpotifyHits(ctx, enriched)
	}()
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.joinAppleSongs(enriched, songs)
	e.joinSpotifyHits(enriched, hits, features)
	return enriched, nil
}

// fetchAppleSongs batch-loads songs for every fingerprinted apple key.
func (e *Enricher) fetchAppleSongs(ctx context.Context, tracks []tracklist.EnrichedTrack) map[string]apple.Song {
	if e.apple == nil {
		return nil
	}
	keys := make([]string, 0, len(tracks))
	seen := make(map[string]struct{})
	for _, track := range tracks {
		if track.AppleKey == "" {
			continue
		}
		if _, ok := seen[track.AppleKey]; ok {
			continue
		}
		seen[track.AppleKey] = struct{}{}
		keys = append(keys, track.AppleKey)
	}
	if len(keys) == 0 {
		return nil
	}

	songs, err := e.apple.Songs(ctx, keys)
	if err != nil {
		if ctx.Err() == nil {
			e.logger.Warn("apple lookup failed", logging.Int("keys", len(keys)), logging.Error(err))
		}
		return nil
	}
	return songs
}

// joinAppleSongs fills each track from its looked-up song, never overwriting
// a field the fingerprinter already set.
func (e *Enricher) joinAppleSongs(tracks []tracklist.EnrichedTrack, songs map[string]apple.Song) {
	if len(songs) == 0 {
		return
	}
	for i := range tracks {
		song, ok := songs[tracks[i].AppleKey]
		if !ok {
			continue
		}
		tracks[i].AppleArtistKey = song.ArtistKey
		tracks[i].ApplePreviewURL = song.PreviewURL
		tracks[i].AppleArtworkURL = song.ArtworkURL
		if tracks[i].ReleaseDate == "" {
			tracks[i].ReleaseDate = song.ReleaseDate
		}
		if tracks[i].ReleaseYear == 0 {
			tracks[i].ReleaseYear = song.ReleaseYear
		}
		if tracks[i].Album == "" {
			tracks[i].Album = song.Album
		}
		tracks[i].Genres = mergeGenres(tracks[i].Genres, song.Genres)
	}
}

type spotifyHit struct {
	track  *spotify.TrackInfo
	artist *spotify.ArtistInfo
}

type searchKey struct {
	title  string
	artist string
}

// fetchSpotifyHits searches per unique (title, artist) pair under a bounded
// worker pool, then batch-loads audio features for every hit.
func (e *Enricher) fetchSpotifyHits(ctx context.Context, tracks []tracklist.EnrichedTrack) (map[searchKey]spotifyHit, map[string]spotify.AudioFeatures) {
	if e.spotify == nil {
		return nil, nil
	}

	pairs := make([]searchKey, 0, len(tracks))
	seen := make(map[searchKey]struct{})
	for _, track := range tracks {
		if !track.Matched() {
			continue
		}
		p := searchKey{track.Title, track.Artist}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		pairs = append(pairs, p)
	}
	if len(pairs) == 0 {
		return nil, nil
	}

	hits := make(map[searchKey]spotifyHit, len(pairs))
	var mu sync.Mutex
	jobs := make(chan searchKey, len(pairs))
	for _, p := range pairs {
		jobs <- p
	}
	close(jobs)

	workers := e.concurrency
	if workers > len(pairs) {
		workers = len(pairs)
	}
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				if ctx.Err() != nil {
					return
				}
				hit := e.searchOne(ctx, p.title, p.artist)
				if hit.track == nil && hit.artist == nil {
					continue
				}
				mu.Lock()
				hits[p] = hit
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if ctx.Err() != nil {
		return nil, nil
	}
	return hits, e.loadFeatures(ctx, hits)
}

// joinSpotifyHits fills each track from its search hit and audio features.
func (e *Enricher) joinSpotifyHits(tracks []tracklist.EnrichedTrack, hits map[searchKey]spotifyHit, features map[string]spotify.AudioFeatures) {
	if len(hits) == 0 {
		return
	}
	for i := range tracks {
		hit, ok := hits[searchKey{tracks[i].Title, tracks[i].Artist}]
		if !ok {
			continue
		}
		if info := hit.track; info != nil {
			tracks[i].SpotifyKey = info.ID
			tracks[i].SpotifyArtistKey = info.ArtistID
			tracks[i].SpotifyPreviewURL = info.PreviewURL
			tracks[i].SpotifyCoverArt = info.CoverArt
			if tracks[i].Album == "" {
				tracks[i].Album = info.Album
			}
			if tracks[i].ReleaseDate == "" {
				tracks[i].ReleaseDate = info.ReleaseDate
			}
			if tracks[i].ReleaseYear == 0 {
				tracks[i].ReleaseYear = info.ReleaseYear
			}
			if f, ok := features[info.ID]; ok {
				tracks[i].Acousticness = f.Acousticness
				tracks[i].Danceability = f.Danceability
				tracks[i].Energy = f.Energy
				tracks[i].Instrumentalness = f.Instrumentalness
				tracks[i].Liveness = f.Liveness
				tracks[i].Loudness = f.Loudness
				tracks[i].Speechiness = f.Speechiness
				tracks[i].Valence = f.Valence
				tracks[i].Tempo = f.Tempo
			}
		}
		if artist := hit.artist; artist != nil {
			tracks[i].ArtistPopularity = artist.Popularity
			tracks[i].Genres = mergeGenres(tracks[i].Genres, artist.Genres)
		}
	}
}

func (e *Enricher) searchOne(ctx context.Context, title, artist string) spotifyHit {
	var hit spotifyHit
	info, err := e.spotify.SearchTrack(ctx, title, artist)
	if err != nil {
		e.logger.Warn("spotify track search failed",
			logging.String("title", title),
			logging.String("artist", artist),
			logging.Error(err))
	} else {
		hit.track = info
	}
	artistInfo, err := e.spotify.SearchArtist(ctx, artist)
	if err != nil {
		e.logger.Warn("spotify artist search failed",
			logging.String("artist", artist),
			logging.Error(err))
	} else {
		hit.artist = artistInfo
	}
	return hit
}

func (e *Enricher) loadFeatures(ctx context.Context, hits map[searchKey]spotifyHit) map[string]spotify.AudioFeatures {
	ids := make([]string, 0, len(hits))
	idSeen := make(map[string]struct{})
	for _, hit := range hits {
		if hit.track == nil {
			continue
		}
		if _, ok := idSeen[hit.track.ID]; ok {
			continue
		}
		idSeen[hit.track.ID] = struct{}{}
		ids = append(ids, hit.track.ID)
	}
	features := make(map[string]spotify.AudioFeatures, len(ids))
	if len(ids) == 0 {
		return features
	}
	loaded, err := e.spotify.AudioFeatures(ctx, ids)
	if err != nil {
		e.logger.Warn("spotify audio features failed", logging.Int("ids", len(ids)), logging.Error(err))
		return features
	}
	for _, f := range loaded {
		features[f.ID] = f
	}
	return features
}

func mergeGenres(existing, extra []string) []string {
	if len(extra) == 0 {
		return existing
	}
	seen := make(map[string]struct{}, len(existing))
	for _, name := range existing {
		seen[strings.ToLower(name)] = struct{}{}
	}
	for _, name := range extra {
		if name = strings.TrimSpace(name); name == "" {
			continue
		}
		if _, ok := seen[strings.ToLower(name)]; ok {
			continue
		}
		seen[strings.ToLower(name)] = struct{}{}
		existing = append(existing, name)
	}
	return existing
}
