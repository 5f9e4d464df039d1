package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"tracklist/internal/tracklist"
)

// ResolveTrack maps an enriched track onto a canonical library row. Provider
// keys are checked in priority order, a hit is reused unmodified, and a track
// no provider identified resolves to the unknown sentinel. The boolean reports
// whether a new row was created.
func (s *Store) ResolveTrack(ctx context.Context, track tracklist.EnrichedTrack) (int64, bool, error) {
	ctx = ensureContext(ctx)

	if track.ShazamKey != nil {
		id, err := s.trackIDByColumn(ctx, "shazam_key", *track.ShazamKey)
		if err != nil {
			return 0, false, err
		}
		if id != 0 {
			return id, false, nil
		}
	}
	if track.AppleKey != "" {
		id, err := s.trackIDByColumn(ctx, "apple_key", track.AppleKey)
		if err != nil {
			return 0, false, err
		}
		if id != 0 {
			return id, false, nil
		}
	}
	if track.SpotifyKey != "" {
		id, err := s.trackIDByColumn(ctx, "spotify_key", track.SpotifyKey)
		if err != nil {
			return 0, false, err
		}
		if id != 0 {
			return id, false, nil
		}
	}

	if track.ShazamKey == nil && track.AppleKey == "" && track.SpotifyKey == "" {
		return UnknownTrackID, false, nil
	}

	id, err := s.CreateTrack(ctx, track)
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (s *Store) trackIDByColumn(ctx context.Context, column string, value any) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT id FROM tracks WHERE %s = ?", column), value,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("lookup track by %s: %w", column, err)
	}
	return id, nil
}

// CreateTrack inserts a new catalog row together with its genre links. Genre
// names are case-normalized and get-or-created, and each linked genre's track
// counter is incremented.
func (s *Store) CreateTrack(ctx context.Context, track tracklist.EnrichedTrack) (int64, error) {
	ctx = ensureContext(ctx)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin track tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var shazamKey any
	if track.ShazamKey != nil {
		shazamKey = *track.ShazamKey
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO tracks (
			shazam_key, apple_key, spotify_key, spotify_artist_key, apple_artist_key,
			title, artist, album, label, release_year, release_date,
			cover_art, preview_uri, spotify_preview_url, spotify_cover_art,
			apple_preview_url, apple_artwork_url,
			acousticness, danceability, energy, instrumentalness, liveness,
			loudness, speechiness, valence, tempo, artist_popularity, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		shazamKey,
		nullableKey(track.AppleKey),
		nullableKey(track.SpotifyKey),
		track.SpotifyArtistKey,
		track.AppleArtistKey,
		track.Title,
		track.Artist,
		track.Album,
		track.Label,
		track.ReleaseYear,
		track.ReleaseDate,
		track.CoverArt,
		track.PreviewURI,
		track.SpotifyPreviewURL,
		track.SpotifyCoverArt,
		track.ApplePreviewURL,
		track.AppleArtworkURL,
		track.Acousticness,
		track.Danceability,
		track.Energy,
		track.Instrumentalness,
		track.Liveness,
		track.Loudness,
		track.Speechiness,
		track.Valence,
		track.Tempo,
		track.ArtistPopularity,
		formatTime(time.Now()),
	)
	if err != nil {
		return 0, fmt.Errorf("insert track: %w", err)
	}
	trackID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("track id: %w", err)
	}

	for _, name := range trackGenres(track) {
		genreID, err := getOrCreateGenre(ctx, tx, name)
		if err != nil {
			return 0, err
		}
		linked, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO track_genres (track_id, genre_id) VALUES (?, ?)",
			trackID, genreID)
		if err != nil {
			return 0, fmt.Errorf("link genre %q: %w", name, err)
		}
		if n, err := linked.RowsAffected(); err == nil && n > 0 {
			if _, err := tx.ExecContext(ctx,
				"UPDATE genres SET nb_tracks = nb_tracks + 1 WHERE id = ?", genreID); err != nil {
				return 0, fmt.Errorf("bump genre counter: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit track: %w", err)
	}
	return trackID, nil
}

func getOrCreateGenre(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, "SELECT id FROM genres WHERE name = ?", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("lookup genre %q: %w", name, err)
	}
	res, err := tx.ExecContext(ctx, "INSERT INTO genres (name, nb_tracks) VALUES (?, 0)", name)
	if err != nil {
		return 0, fmt.Errorf("create genre %q: %w", name, err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("genre id: %w", err)
	}
	return id, nil
}

// trackGenres collects the normalized, deduplicated genre names for a track
// from the fingerprint subgenres and the catalog providers.
func trackGenres(track tracklist.EnrichedTrack) []string {
	seen := make(map[string]struct{})
	var names []string
	add := func(raw string) {
		name := NormalizeGenre(raw)
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	add(track.Genre)
	for _, name := range track.Subgenres {
		add(name)
	}
	for _, name := range track.Genres {
		add(name)
	}
	return names
}

// NormalizeGenre lower-cases a genre name and folds dashes into spaces so
// "Hip-Hop", "hip hop", and "HIP-HOP" share one row.
func NormalizeGenre(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "-", " ")
	return strings.Join(strings.Fields(name), " ")
}

func nullableKey(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

// TrackByID loads one catalog row. Returns nil when the row does not exist.
func (s *Store) TrackByID(ctx context.Context, id int64) (*Track, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `
		SELECT id, shazam_key, apple_key, spotify_key, spotify_artist_key, apple_artist_key,
			title, artist, album, label, release_year, release_date,
			cover_art, preview_uri, spotify_preview_url, spotify_cover_art,
			apple_preview_url, apple_artwork_url,
			acousticness, danceability, energy, instrumentalness, liveness,
			loudness, speechiness, valence, tempo, artist_popularity, nb_sets
		FROM tracks WHERE id = ?`, id)

	var (
		track            Track
		shazamKey        sql.NullInt64
		appleKey         sql.NullString
		spotifyKey       sql.NullString
		spotifyArtistKey sql.NullString
		appleArtistKey   sql.NullString
	)
	err := row.Scan(
		&track.ID, &shazamKey, &appleKey, &spotifyKey, &spotifyArtistKey, &appleArtistKey,
		&track.Title, &track.Artist, &track.Album, &track.Label, &track.ReleaseYear, &track.ReleaseDate,
		&track.CoverArt, &track.PreviewURI, &track.SpotifyPreview, &track.SpotifyCoverArt,
		&track.ApplePreview, &track.AppleArtwork,
		&track.Acousticness, &track.Danceability, &track.Energy, &track.Instrumentalness, &track.Liveness,
		&track.Loudness, &track.Speechiness, &track.Valence, &track.Tempo, &track.ArtistPopularity, &track.NbSets,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load track %d: %w", id, err)
	}
	if shazamKey.Valid {
		key := shazamKey.Int64
		track.ShazamKey = &key
	}
	track.AppleKey = appleKey.String
	track.SpotifyKey = spotifyKey.String
	track.SpotifyArtistKey = spotifyArtistKey.String
	track.AppleArtistKey = appleArtistKey.String
	return &track, nil
}

// GenreByName loads one genre row by its normalized name. Returns nil when
// the genre does not exist.
func (s *Store) GenreByName(ctx context.Context, name string) (*Genre, error) {
	ctx = ensureContext(ctx)
	var genre Genre
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, nb_tracks FROM genres WHERE name = ?",
		NormalizeGenre(name),
	).Scan(&genre.ID, &genre.Name, &genre.NbTracks)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup genre %q: %w", name, err)
	}
	return &genre, nil
}
