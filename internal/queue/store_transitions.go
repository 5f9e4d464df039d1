package queue

import (
	"context"
	"fmt"
	"time"
)

// Claim atomically moves a pending entry to processing on behalf of one
// worker. The conditional update guarantees at most one of N concurrent
// claimers sees true.
func (s *Store) Claim(ctx context.Context, id int64, token string) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_entries
         SET status = ?, claim_token = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusProcessing,
		token,
		formatTime(time.Now()),
		id,
		StatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("claim entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected == 1, nil
}

// MarkDone finishes a successful ingestion attempt.
func (s *Store) MarkDone(ctx context.Context, id int64) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE queue_entries
         SET status = ?, claim_token = NULL, discarded_reason = NULL, updated_at = ?
         WHERE id = ?`,
		StatusDone,
		formatTime(time.Now()),
		id,
	); err != nil {
		return fmt.Errorf("mark done: %w", err)
	}
	return nil
}

// MarkDiscarded terminally rejects an entry with a cleaned reason.
func (s *Store) MarkDiscarded(ctx context.Context, id int64, reason string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE queue_entries
         SET status = ?, claim_token = NULL, discarded_reason = ?, updated_at = ?
         WHERE id = ?`,
		StatusDiscarded,
		nullableString(reason),
		formatTime(time.Now()),
		id,
	); err != nil {
		return fmt.Errorf("mark discarded: %w", err)
	}
	return nil
}

// MarkFailed records a hard failure that needs operator attention.
func (s *Store) MarkFailed(ctx context.Context, id int64, reason string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE queue_entries
         SET status = ?, claim_token = NULL, discarded_reason = ?, updated_at = ?
         WHERE id = ?`,
		StatusFailed,
		nullableString(reason),
		formatTime(time.Now()),
		id,
	); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// Requeue returns an entry to pending for another attempt, preserving the
// failure reason and bumping the attempt counter.
func (s *Store) Requeue(ctx context.Context, id int64, reason string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE queue_entries
         SET status = ?, claim_token = NULL, discarded_reason = ?,
             n_attempts = n_attempts + 1, updated_at = ?
         WHERE id = ?`,
		StatusPending,
		nullableString(reason),
		formatTime(time.Now()),
		id,
	); err != nil {
		return fmt.Errorf("requeue entry: %w", err)
	}
	return nil
}

// DeferPremiere parks an entry until the premiere window passes.
func (s *Store) DeferPremiere(ctx context.Context, id int64, until time.Time, reason string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE queue_entries
         SET status = ?, claim_token = NULL, premiere_ends = ?, discarded_reason = ?, updated_at = ?
         WHERE id = ?`,
		StatusPremiered,
		formatTime(until),
		nullableString(reason),
		formatTime(time.Now()),
		id,
	); err != nil {
		return fmt.Errorf("defer premiere: %w", err)
	}
	return nil
}

// SweepPremieres moves premiered entries whose window elapsed back into the
// validation queue.
func (s *Store) SweepPremieres(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_entries
         SET status = ?, premiere_ends = NULL, updated_at = ?
         WHERE status = ? AND premiere_ends IS NOT NULL AND premiere_ends <= ?`,
		StatusPrequeued,
		formatTime(now),
		StatusPremiered,
		formatTime(now),
	)
	if err != nil {
		return 0, fmt.Errorf("sweep premieres: %w", err)
	}
	return res.RowsAffected()
}

// ResetStuckProcessing returns processing entries to pending, clearing their
// claims. Used on daemon startup after an unclean shutdown.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_entries
         SET status = ?, claim_token = NULL, updated_at = ?
         WHERE status = ?`,
		StatusPending,
		formatTime(time.Now()),
		StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck entries: %w", err)
	}
	return res.RowsAffected()
}

// retryStatusExpr picks the post-retry status: entries with cached, validated
// metadata go straight back to pending, the rest revalidate from prequeued.
const retryStatusExpr = `CASE
        WHEN video_info_json IS NOT NULL AND video_info_json != '' THEN ?
        ELSE ?
    END`

// RetryFailed moves failed (or, with ids, specific failed/discarded) entries
// back into the pipeline.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	timestamp := formatTime(time.Now())
	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE queue_entries
             SET status = `+retryStatusExpr+`, claim_token = NULL, discarded_reason = NULL, updated_at = ?
             WHERE status = ?`,
			StatusPending,
			StatusPrequeued,
			timestamp,
			StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed entries: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+5)
	args = append(args, StatusPending, StatusPrequeued, timestamp, StatusFailed, StatusDiscarded)
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE queue_entries
        SET status = ` + retryStatusExpr + `, claim_token = NULL, discarded_reason = NULL, updated_at = ?
        WHERE status IN (?, ?) AND id IN (` + placeholders + `)`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected entries: %w", err)
	}
	return res.RowsAffected()
}
