package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UpsertSet creates or refreshes the set row for a video and returns its id.
// Metadata columns are overwritten; the published flag, track count, and
// aggregates are only touched by FinalizeSet.
func (s *Store) UpsertSet(ctx context.Context, set *Set) (int64, error) {
	ctx = ensureContext(ctx)
	now := formatTime(time.Now())

	_, err := s.execWithRetry(ctx, `
		INSERT INTO sets (
			video_id, channel_id, title, duration_sec, publish_date, thumbnail,
			embeddable, chapters_json, view_count, like_count, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(video_id) DO UPDATE SET
			channel_id = excluded.channel_id,
			title = excluded.title,
			duration_sec = excluded.duration_sec,
			publish_date = excluded.publish_date,
			thumbnail = excluded.thumbnail,
			embeddable = excluded.embeddable,
			chapters_json = excluded.chapters_json,
			view_count = excluded.view_count,
			like_count = excluded.like_count,
			updated_at = excluded.updated_at`,
		set.VideoID,
		nullableID(set.ChannelID),
		set.Title,
		set.DurationSec,
		set.PublishDate,
		set.Thumbnail,
		boolToInt(set.Embeddable),
		set.ChaptersJSON,
		set.ViewCount,
		set.LikeCount,
		now,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("upsert set %s: %w", set.VideoID, err)
	}

	var id int64
	if err := s.db.QueryRowContext(ctx, "SELECT id FROM sets WHERE video_id = ?", set.VideoID).Scan(&id); err != nil {
		return 0, fmt.Errorf("load set id for %s: %w", set.VideoID, err)
	}
	set.ID = id
	return id, nil
}

// SetByVideoID loads one set. Returns nil when the video was never ingested.
func (s *Store) SetByVideoID(ctx context.Context, videoID string) (*Set, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `
		SELECT id, video_id, channel_id, title, duration_sec, publish_date, thumbnail,
			embeddable, chapters_json, view_count, like_count, nb_tracks, published, error,
			acousticness, danceability, energy, instrumentalness, liveness,
			loudness, speechiness, valence, artist_popularity
		FROM sets WHERE video_id = ?`, videoID)

	var (
		set         Set
		channelID   sql.NullInt64
		publishDate sql.NullString
		chapters    sql.NullString
		errText     sql.NullString
		embeddable  int
		published   int
	)
	err := row.Scan(
		&set.ID, &set.VideoID, &channelID, &set.Title, &set.DurationSec, &publishDate, &set.Thumbnail,
		&embeddable, &chapters, &set.ViewCount, &set.LikeCount, &set.NbTracks, &published, &errText,
		&set.Aggregates.Acousticness, &set.Aggregates.Danceability, &set.Aggregates.Energy,
		&set.Aggregates.Instrumentalness, &set.Aggregates.Liveness,
		&set.Aggregates.Loudness, &set.Aggregates.Speechiness, &set.Aggregates.Valence,
		&set.Aggregates.ArtistPopularity,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load set %s: %w", videoID, err)
	}
	set.ChannelID = channelID.Int64
	set.PublishDate = publishDate.String
	set.ChaptersJSON = chapters.String
	set.Error = errText.String
	set.Embeddable = embeddable != 0
	set.Published = published != 0
	return &set, nil
}

// AttachTrack records one tracklist placement. An exact duplicate
// (track, set, pos) triple is skipped; the boolean reports whether the row was
// inserted. Real tracks bump their set counter on first insertion.
func (s *Store) AttachTrack(ctx context.Context, placement Placement) (bool, error) {
	ctx = ensureContext(ctx)
	res, err := s.execWithRetry(ctx, `
		INSERT OR IGNORE INTO track_sets (track_id, set_id, pos, start_sec, end_sec)
		VALUES (?, ?, ?, ?, ?)`,
		placement.TrackID, placement.SetID, placement.Pos, placement.StartSec, placement.EndSec)
	if err != nil {
		return false, fmt.Errorf("attach track %d to set %d: %w", placement.TrackID, placement.SetID, err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("attach track rows: %w", err)
	}
	if inserted == 0 {
		return false, nil
	}
	if placement.TrackID != UnknownTrackID {
		if _, err := s.execWithRetry(ctx,
			"UPDATE tracks SET nb_sets = nb_sets + 1 WHERE id = ?", placement.TrackID); err != nil {
			return false, fmt.Errorf("bump track set counter: %w", err)
		}
	}
	return true, nil
}

// Placements lists a set's tracklist ordered by position.
func (s *Store) Placements(ctx context.Context, setID int64) ([]Placement, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `
		SELECT track_id, set_id, pos, start_sec, end_sec
		FROM track_sets WHERE set_id = ? ORDER BY pos`, setID)
	if err != nil {
		return nil, fmt.Errorf("list placements: %w", err)
	}
	defer rows.Close()

	var placements []Placement
	for rows.Next() {
		var p Placement
		if err := rows.Scan(&p.TrackID, &p.SetID, &p.Pos, &p.StartSec, &p.EndSec); err != nil {
			return nil, fmt.Errorf("scan placement: %w", err)
		}
		placements = append(placements, p)
	}
	return placements, rows.Err()
}

// FinalizeSet stores the track count and aggregate feature averages, clears
// any recorded error, and flips the published flag.
func (s *Store) FinalizeSet(ctx context.Context, setID int64, nbTracks int, agg Aggregates) error {
	_, err := s.execWithRetry(ensureContext(ctx), `
		UPDATE sets SET
			nb_tracks = ?, published = 1, error = NULL,
			acousticness = ?, danceability = ?, energy = ?, instrumentalness = ?,
			liveness = ?, loudness = ?, speechiness = ?, valence = ?, artist_popularity = ?,
			updated_at = ?
		WHERE id = ?`,
		nbTracks,
		agg.Acousticness, agg.Danceability, agg.Energy, agg.Instrumentalness,
		agg.Liveness, agg.Loudness, agg.Speechiness, agg.Valence, agg.ArtistPopularity,
		formatTime(time.Now()), setID)
	if err != nil {
		return fmt.Errorf("finalize set %d: %w", setID, err)
	}
	return nil
}

// RecordSetError stores a non-fatal ingestion note on the set row.
func (s *Store) RecordSetError(ctx context.Context, setID int64, message string) error {
	_, err := s.execWithRetry(ensureContext(ctx),
		"UPDATE sets SET error = ?, updated_at = ? WHERE id = ?",
		message, formatTime(time.Now()), setID)
	if err != nil {
		return fmt.Errorf("record set error: %w", err)
	}
	return nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
