package queue

import (
	"database/sql"
	"errors"
	"time"
)

const entryColumns = "id, video_id, status, queued_at, updated_at, premiere_ends, n_attempts, discarded_reason, video_info_json, duration_sec, nb_chapters, claim_token, submitted_by, notify_email, play_sound"

// sqlTimeFormat is fixed-width so stored timestamps sort lexically, which the
// FIFO queries rely on.
const sqlTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(value time.Time) string {
	return value.UTC().Format(sqlTimeFormat)
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		id              int64
		videoID         string
		statusStr       string
		queuedRaw       sql.NullString
		updatedRaw      sql.NullString
		premiereEndsRaw sql.NullString
		nAttempts       sql.NullInt64
		discardedReason sql.NullString
		videoInfo       sql.NullString
		durationSec     sql.NullInt64
		nbChapters      sql.NullInt64
		claimToken      sql.NullString
		submittedBy     sql.NullString
		notifyEmail     sql.NullInt64
		playSound       sql.NullInt64
	)

	if err := scanner.Scan(
		&id,
		&videoID,
		&statusStr,
		&queuedRaw,
		&updatedRaw,
		&premiereEndsRaw,
		&nAttempts,
		&discardedReason,
		&videoInfo,
		&durationSec,
		&nbChapters,
		&claimToken,
		&submittedBy,
		&notifyEmail,
		&playSound,
	); err != nil {
		return nil, err
	}

	entry := &Entry{
		ID:              id,
		VideoID:         videoID,
		Status:          Status(statusStr),
		NAttempts:       int(nAttempts.Int64),
		DiscardedReason: discardedReason.String,
		VideoInfoJSON:   videoInfo.String,
		DurationSec:     int(durationSec.Int64),
		NbChapters:      int(nbChapters.Int64),
		ClaimToken:      claimToken.String,
		SubmittedBy:     submittedBy.String,
		NotifyEmail:     notifyEmail.Int64 != 0,
		PlaySound:       playSound.Int64 != 0,
	}

	if queued, err := parseTimeString(queuedRaw.String); err == nil {
		entry.QueuedAt = queued
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		entry.UpdatedAt = updated
	}
	if premiereEndsRaw.Valid {
		if ends, err := parseTimeString(premiereEndsRaw.String); err == nil {
			entry.PremiereEnds = &ends
		}
	}
	return entry, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return formatTime(*value)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
