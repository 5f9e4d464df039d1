package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SubmitOptions carries notification preferences recorded at submission time.
type SubmitOptions struct {
	SubmittedBy string
	NotifyEmail bool
	PlaySound   bool
}

// Submit enqueues a video for ingestion. When the video is already queued the
// existing entry is returned with created=false; callers decide how to report
// terminal duplicates.
func (s *Store) Submit(ctx context.Context, videoID string, opts SubmitOptions) (*Entry, bool, error) {
	if videoID == "" {
		return nil, false, errors.New("video id is empty")
	}

	existing, err := s.GetByVideoID(ctx, videoID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	timestamp := formatTime(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO queue_entries (
            video_id, status, queued_at, updated_at, n_attempts,
            submitted_by, notify_email, play_sound
        ) VALUES (?, ?, ?, ?, 0, ?, ?, ?)`,
		videoID,
		StatusPrequeued,
		timestamp,
		timestamp,
		nullableString(opts.SubmittedBy),
		boolToInt(opts.NotifyEmail),
		boolToInt(opts.PlaySound),
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("last insert id: %w", err)
	}

	entry, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return entry, true, nil
}

// GetByID fetches a queue entry by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM queue_entries WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return entry, nil
}

// GetByVideoID fetches a queue entry by its unique video identifier.
func (s *Store) GetByVideoID(ctx context.Context, videoID string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM queue_entries WHERE video_id = ?`, videoID)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entry by video id: %w", err)
	}
	return entry, nil
}

// Update persists changes to an existing queue entry.
func (s *Store) Update(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return errors.New("entry is nil")
	}
	entry.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE queue_entries
         SET status = ?, updated_at = ?, premiere_ends = ?, n_attempts = ?,
             discarded_reason = ?, video_info_json = ?, duration_sec = ?,
             nb_chapters = ?, claim_token = ?, submitted_by = ?,
             notify_email = ?, play_sound = ?
         WHERE id = ?`,
		entry.Status,
		formatTime(entry.UpdatedAt),
		nullableTime(entry.PremiereEnds),
		entry.NAttempts,
		nullableString(entry.DiscardedReason),
		nullableString(entry.VideoInfoJSON),
		entry.DurationSec,
		entry.NbChapters,
		nullableString(entry.ClaimToken),
		nullableString(entry.SubmittedBy),
		boolToInt(entry.NotifyEmail),
		boolToInt(entry.PlaySound),
		entry.ID,
	); err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	return nil
}

// List returns queue entries filtered by status set (or all entries when no
// status is provided), oldest update first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Entry, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + entryColumns + ` FROM queue_entries`
	orderClause := ` ORDER BY updated_at, id`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list queue entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// NextForStatuses returns the entry with the oldest update matching any of the
// provided statuses. Oldest-first keeps the queue FIFO for waiting work.
func (s *Store) NextForStatuses(ctx context.Context, statuses ...Status) (*Entry, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}

	query := `SELECT ` + entryColumns + ` FROM queue_entries WHERE status IN (` + placeholders + `) ORDER BY updated_at, id LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, args...)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}
