// Package ingest runs the full pipeline for one claimed queue entry: download,
// segment, recognize, merge, enrich, and persist into the library. Each stage
// leaves an artifact in the entry's working directory so a retried attempt
// resumes instead of repeating finished work.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"tracklist/internal/config"
	"tracklist/internal/enrich"
	"tracklist/internal/library"
	"tracklist/internal/logging"
	"tracklist/internal/queue"
	"tracklist/internal/recognition"
	"tracklist/internal/segmenter"
	"tracklist/internal/services"
	"tracklist/internal/services/youtube"
	"tracklist/internal/tracklist"
)

// Platform fetches video metadata and audio.
type Platform interface {
	Info(ctx context.Context, videoID string) (*youtube.VideoInfo, error)
	Download(ctx context.Context, videoID, dest string) error
}

// Coordinator processes claimed entries end to end.
type Coordinator struct {
	cfg        *config.Config
	library    *library.Store
	platform   Platform
	segmenter  *segmenter.Segmenter
	recognizer *recognition.Orchestrator
	enricher   *enrich.Enricher
	logger     *slog.Logger
}

// New wires a coordinator from its stage implementations.
func New(cfg *config.Config, lib *library.Store, platform Platform, seg *segmenter.Segmenter, rec *recognition.Orchestrator, enricher *enrich.Enricher, logger *slog.Logger) (*Coordinator, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if lib == nil {
		return nil, errors.New("library store is required")
	}
	if platform == nil {
		return nil, errors.New("platform client is required")
	}
	if seg == nil || rec == nil || enricher == nil {
		return nil, errors.New("pipeline stages are required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Coordinator{
		cfg:        cfg,
		library:    lib,
		platform:   platform,
		segmenter:  seg,
		recognizer: rec,
		enricher:   enricher,
		logger:     logger,
	}, nil
}

// Process runs the pipeline for one claimed entry. The returned error carries
// provider wording intact so the caller can classify the outcome. The working
// directory is removed on completion unless keep_artifacts is set.
func (c *Coordinator) Process(ctx context.Context, entry *queue.Entry) error {
	ctx = services.WithVideoID(ctx, entry.VideoID)
	logger := c.logger.With(logging.String(logging.FieldVideoID, entry.VideoID))

	workdir := entry.Workdir(c.cfg.Paths.StagingDir)
	if workdir == "" {
		return services.Wrap(services.ErrConfiguration, "preparing", "workdir", "staging directory not configured", nil)
	}
	if err := os.MkdirAll(workdir, 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "preparing", "workdir", "create working directory", err)
	}

	err := c.process(ctx, logger, entry, workdir)
	if c.cfg.Ingest.KeepArtifacts {
		return err
	}
	if removeErr := os.RemoveAll(workdir); removeErr != nil {
		logger.Warn("failed to remove working directory", logging.String("path", workdir), logging.Error(removeErr))
	}
	return err
}

func (c *Coordinator) process(ctx context.Context, logger *slog.Logger, entry *queue.Entry, workdir string) error {
	info, err := c.videoInfo(ctx, entry)
	if err != nil {
		return err
	}

	enriched, err := c.resolveTracks(ctx, logger, entry, workdir, info)
	if err != nil {
		return err
	}

	return c.persist(ctx, logger, info, enriched)
}

// videoInfo prefers the metadata cached at validation time and falls back to
// a live platform lookup.
func (c *Coordinator) videoInfo(ctx context.Context, entry *queue.Entry) (*youtube.VideoInfo, error) {
	if entry.VideoInfoJSON != "" {
		var info youtube.VideoInfo
		if err := json.Unmarshal([]byte(entry.VideoInfoJSON), &info); err == nil && info.ID != "" {
			return &info, nil
		}
	}
	return c.platform.Info(ctx, entry.VideoID)
}

// resolveTracks produces the enriched tracklist, reusing stage artifacts left
// by an earlier attempt.
func (c *Coordinator) resolveTracks(ctx context.Context, logger *slog.Logger, entry *queue.Entry, workdir string, info *youtube.VideoInfo) ([]tracklist.EnrichedTrack, error) {
	enrichedPath := filepath.Join(workdir, queue.EnrichedArtifactName)
	var enriched []tracklist.EnrichedTrack
	if ok, err := loadArtifact(enrichedPath, &enriched); err != nil {
		return nil, err
	} else if ok {
		logger.Info("reusing enriched tracklist artifact")
		return enriched, nil
	}

	merged, err := c.mergedTracks(ctx, logger, entry, workdir, info)
	if err != nil {
		return nil, err
	}

	if unique := tracklist.UniqueTrackCount(merged); unique < c.cfg.Ingest.MinUniqueTracks {
		return nil, services.Wrap(services.ErrRejection, "deduplicating", "", "too few unique tracks found", nil)
	}

	enriched, err = c.enricher.Enrich(ctx, merged)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "enriching", "catalog", "lookup failed", err)
	}
	if err := writeArtifact(enrichedPath, enriched); err != nil {
		return nil, err
	}
	return enriched, nil
}

func (c *Coordinator) mergedTracks(ctx context.Context, logger *slog.Logger, entry *queue.Entry, workdir string, info *youtube.VideoInfo) ([]tracklist.MergedTrack, error) {
	mergedPath := filepath.Join(workdir, queue.MergedArtifactName)
	var merged []tracklist.MergedTrack
	if ok, err := loadArtifact(mergedPath, &merged); err != nil {
		return nil, err
	} else if ok {
		logger.Info("reusing merged tracklist artifact")
		return merged, nil
	}

	audioPath := filepath.Join(workdir, queue.AudioFileName)
	if _, err := os.Stat(audioPath); err != nil {
		logger.Info("downloading audio")
		if err := c.platform.Download(ctx, entry.VideoID, audioPath); err != nil {
			return nil, err
		}
	} else {
		logger.Info("reusing downloaded audio")
	}

	duration := entry.DurationSec
	if duration <= 0 {
		duration = info.DurationSec
	}
	if duration <= 0 {
		probed, err := c.segmenter.ProbeDuration(ctx, audioPath)
		if err != nil {
			return nil, err
		}
		duration = probed
	}

	plan := segmenter.Plan(duration, info.Chapters, c.cfg.Ingest.SegmentLength, c.cfg.Ingest.MinChapterSegments)
	if len(plan) == 0 {
		return nil, services.Wrap(services.ErrRejection, "segmenting", "", "video produced no segments", nil)
	}
	segmentsDir := filepath.Join(workdir, queue.SegmentsDirName)
	paths, err := c.segmenter.Export(ctx, audioPath, segmentsDir, plan)
	if err != nil {
		return nil, err
	}

	matches, err := c.recognizer.Run(ctx, plan, paths, filepath.Join(workdir, queue.RecognitionDirName))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "recognizing", "fingerprint", "run failed", err)
	}

	merged = tracklist.Dedupe(matches, tracklist.Options{
		LookAhead:       c.cfg.Ingest.MergeLookAhead,
		MinUnmatchedSec: float64(c.cfg.Ingest.MinUnmatchedSec),
	})
	logger.Info("merged tracklist",
		logging.Int("segments", len(matches)),
		logging.Int("entries", len(merged)),
		logging.Int("unique", tracklist.UniqueTrackCount(merged)))

	if err := writeArtifact(mergedPath, merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// persist writes the channel, set, tracks, and placements into the library
// and flips the set to published.
func (c *Coordinator) persist(ctx context.Context, logger *slog.Logger, info *youtube.VideoInfo, enriched []tracklist.EnrichedTrack) error {
	var channelID int64
	if info.ChannelID != "" {
		id, err := c.library.UpsertChannel(ctx, &library.Channel{
			ChannelKey:    info.ChannelID,
			Author:        info.ChannelName,
			URL:           info.ChannelURL,
			FollowerCount: info.ChannelFollower,
		})
		if err != nil {
			return services.Wrap(services.ErrTransient, "publishing", "library", "upsert channel", err)
		}
		channelID = id
	}

	chaptersJSON := ""
	if len(info.Chapters) > 0 {
		if raw, err := json.Marshal(info.Chapters); err == nil {
			chaptersJSON = string(raw)
		}
	}
	setID, err := c.library.UpsertSet(ctx, &library.Set{
		VideoID:      info.ID,
		ChannelID:    channelID,
		Title:        info.Title,
		DurationSec:  info.DurationSec,
		PublishDate:  info.UploadDate,
		Thumbnail:    info.Thumbnail,
		Embeddable:   info.Embeddable,
		ChaptersJSON: chaptersJSON,
		ViewCount:    info.ViewCount,
		LikeCount:    info.LikeCount,
	})
	if err != nil {
		return services.Wrap(services.ErrTransient, "publishing", "library", "upsert set", err)
	}

	for pos, track := range enriched {
		trackID, created, err := c.library.ResolveTrack(ctx, track)
		if err != nil {
			return services.Wrap(services.ErrTransient, "publishing", "library", "resolve track", err)
		}
		if created {
			logger.Debug("created track",
				logging.Int64("track_id", trackID),
				logging.String("title", track.Title),
				logging.String("artist", track.Artist))
		}
		if _, err := c.library.AttachTrack(ctx, library.Placement{
			TrackID:  trackID,
			SetID:    setID,
			Pos:      pos,
			StartSec: track.StartSec,
			EndSec:   track.EndSec,
		}); err != nil {
			return services.Wrap(services.ErrTransient, "publishing", "library", "attach track", err)
		}
	}

	unique := uniqueEnriched(enriched)
	if err := c.library.FinalizeSet(ctx, setID, unique, aggregate(enriched)); err != nil {
		return services.Wrap(services.ErrTransient, "publishing", "library", "finalize set", err)
	}
	logger.Info("set published", logging.Int64("set_id", setID), logging.Int("tracks", unique))
	return nil
}

func uniqueEnriched(tracks []tracklist.EnrichedTrack) int {
	merged := make([]tracklist.MergedTrack, len(tracks))
	for i, track := range tracks {
		merged[i] = track.MergedTrack
	}
	return tracklist.UniqueTrackCount(merged)
}

// aggregate averages audio features over the matched tracks that carry them.
func aggregate(tracks []tracklist.EnrichedTrack) library.Aggregates {
	var agg library.Aggregates
	count := 0
	for _, track := range tracks {
		if track.SpotifyKey == "" {
			continue
		}
		agg.Acousticness += track.Acousticness
		agg.Danceability += track.Danceability
		agg.Energy += track.Energy
		agg.Instrumentalness += track.Instrumentalness
		agg.Liveness += track.Liveness
		agg.Loudness += track.Loudness
		agg.Speechiness += track.Speechiness
		agg.Valence += track.Valence
		agg.ArtistPopularity += track.ArtistPopularity
		count++
	}
	if count == 0 {
		return library.Aggregates{}
	}
	agg.Acousticness /= count
	agg.Danceability /= count
	agg.Energy /= count
	agg.Instrumentalness /= count
	agg.Liveness /= count
	agg.Loudness /= count
	agg.Speechiness /= count
	agg.Valence /= count
	agg.ArtistPopularity /= count
	return agg
}

func loadArtifact(path string, out any) (bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, services.Wrap(services.ErrTransient, "resuming", "artifact", fmt.Sprintf("read %s", filepath.Base(path)), err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		// A corrupt artifact is recomputed, not fatal.
		return false, nil
	}
	return true, nil
}

func writeArtifact(path string, value any) error {
	raw, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrTransient, "persisting", "artifact", fmt.Sprintf("encode %s", filepath.Base(path)), err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return services.Wrap(services.ErrTransient, "persisting", "artifact", fmt.Sprintf("write %s", filepath.Base(path)), err)
	}
	return nil
}
