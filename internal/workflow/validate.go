package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tracklist/internal/logging"
	"tracklist/internal/queue"
	"tracklist/internal/services"
	"tracklist/internal/services/youtube"
)

// MetadataSource fetches platform metadata for prequeued entries.
type MetadataSource interface {
	Info(ctx context.Context, videoID string) (*youtube.VideoInfo, error)
}

// chapterlessBelow is the chapter count under which a video is treated as
// chapterless instead of chapter-aligned. A couple of markers is an intro
// card, not a tracklist.
const chapterlessBelow = 5

// ValidateNext moves the oldest prequeued entry toward pending, discarding,
// deferring, or retrying it based on what the platform reports. The boolean
// reports whether an entry was examined.
func (m *Manager) ValidateNext(ctx context.Context) (bool, error) {
	entry, err := m.store.NextForStatuses(ctx, queue.StatusPrequeued)
	if err != nil {
		return false, err
	}
	if entry == nil {
		return false, nil
	}

	logger := m.logger.With(logging.String(logging.FieldVideoID, entry.VideoID))

	info, infoErr := m.validator.Info(ctx, entry.VideoID)
	if infoErr != nil {
		if ctx.Err() != nil {
			return true, ctx.Err()
		}
		return true, m.handleValidationError(ctx, logger, entry, infoErr)
	}

	if reason := rejectionReason(info, m.cfg.Ingest.MinVideoSeconds, m.cfg.Ingest.MaxVideoSeconds); reason != "" {
		logger.Info("submission rejected", logging.String("reason", reason))
		return true, m.store.MarkDiscarded(ctx, entry.ID, reason)
	}

	if len(info.Chapters) > 0 && len(info.Chapters) < chapterlessBelow {
		logger.Debug("treating sparse chapters as chapterless", logging.Int("chapters", len(info.Chapters)))
		info.Chapters = nil
	}

	raw, err := json.Marshal(info)
	if err != nil {
		return true, fmt.Errorf("encode video metadata: %w", err)
	}
	entry.VideoInfoJSON = string(raw)
	entry.DurationSec = info.DurationSec
	entry.NbChapters = len(info.Chapters)
	entry.Status = queue.StatusPending
	if err := m.store.Update(ctx, entry); err != nil {
		return true, err
	}
	logger.Info("submission validated",
		logging.Int("duration_sec", info.DurationSec),
		logging.Int("chapters", len(info.Chapters)))
	return true, nil
}

// handleValidationError classifies a metadata failure into discard, premiere
// deferral, or an in-place retry that keeps the entry prequeued.
func (m *Manager) handleValidationError(ctx context.Context, logger *slog.Logger, entry *queue.Entry, infoErr error) error {
	reason := services.CleanReason(services.Reason(infoErr), entry.VideoID)
	outcome := services.Classify(infoErr, time.Now())
	switch outcome.Kind {
	case services.OutcomeDeferred:
		logger.Info("submission deferred until premiere", logging.String("reason", reason))
		return m.store.DeferPremiere(ctx, entry.ID, outcome.Until, reason)
	case services.OutcomeTransient:
		if entry.NAttempts+1 >= maxAttempts {
			logger.Warn("validation failed after repeated attempts", logging.String("reason", reason))
			return m.store.MarkFailed(ctx, entry.ID, reason)
		}
		logger.Warn("validation will be retried", logging.String("reason", reason))
		entry.NAttempts++
		entry.DiscardedReason = reason
		return m.store.Update(ctx, entry)
	default:
		logger.Info("submission rejected", logging.String("reason", reason))
		return m.store.MarkDiscarded(ctx, entry.ID, reason)
	}
}

func rejectionReason(info *youtube.VideoInfo, minSeconds, maxSeconds int) string {
	switch {
	case info == nil || strings.TrimSpace(info.ID) == "":
		return "video does not exist"
	case minSeconds > 0 && info.DurationSec < minSeconds:
		return "video is too short"
	case maxSeconds > 0 && info.DurationSec > maxSeconds:
		return "video is too long"
	case !info.Embeddable:
		return "video is not embeddable"
	default:
		return ""
	}
}
