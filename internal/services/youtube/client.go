package youtube

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/lrstanley/go-ytdlp"

	"tracklist/internal/logging"
	"tracklist/internal/services"
)

// Chapter is a creator-provided chapter marker on a video.
type Chapter struct {
	Title     string  `json:"title"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

// VideoInfo is the validated subset of platform metadata the pipeline relies on.
type VideoInfo struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	DurationSec     int       `json:"duration"`
	ChannelID       string    `json:"channel_id"`
	ChannelName     string    `json:"channel"`
	ChannelURL      string    `json:"channel_url"`
	ChannelFollower int64     `json:"channel_follower_count"`
	UploadDate      string    `json:"upload_date"`
	Thumbnail       string    `json:"thumbnail"`
	Embeddable      bool      `json:"playable_in_embed"`
	LiveStatus      string    `json:"live_status"`
	ViewCount       int64     `json:"view_count"`
	LikeCount       int64     `json:"like_count"`
	Chapters        []Chapter `json:"chapters"`
}

// Client fetches video metadata and audio through yt-dlp.
type Client struct {
	logger *slog.Logger
}

// Option customizes client construction.
type Option func(*Client)

// WithLogger attaches a logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New constructs a platform client.
func New(opts ...Option) *Client {
	client := &Client{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Info fetches video metadata without downloading media. The raw yt-dlp error
// text is preserved so outcome classification can inspect provider wording.
func (c *Client) Info(ctx context.Context, videoID string) (*VideoInfo, error) {
	cmd := ytdlp.New().
		DumpSingleJSON().
		SkipDownload().
		NoPlaylist()

	result, err := cmd.Run(ctx, WatchURL(videoID))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "validating", "yt-dlp", runError(result, err), err)
	}

	var info VideoInfo
	if err := json.Unmarshal([]byte(result.Stdout), &info); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "validating", "yt-dlp", "decode video metadata", err)
	}
	c.logger.Debug("fetched video metadata",
		logging.String(logging.FieldVideoID, info.ID),
		logging.Int("duration_sec", info.DurationSec),
		logging.Int("chapters", len(info.Chapters)))
	return &info, nil
}

// Download fetches the video's audio track as opus into dest.
func (c *Client) Download(ctx context.Context, videoID, dest string) error {
	cmd := ytdlp.New().
		Format("bestaudio/best").
		ExtractAudio().
		AudioFormat("opus").
		NoPlaylist().
		Output(dest)

	result, err := cmd.Run(ctx, WatchURL(videoID))
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "downloading", "yt-dlp", runError(result, err), err)
	}
	c.logger.Debug("downloaded audio", logging.String(logging.FieldVideoID, videoID), logging.String("dest", dest))
	return nil
}

// WatchURL builds the canonical watch URL for a video identifier.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

func runError(result *ytdlp.Result, err error) string {
	if result != nil {
		if stderr := strings.TrimSpace(result.Stderr); stderr != "" {
			return stderr
		}
	}
	if err != nil {
		return err.Error()
	}
	return "yt-dlp failed"
}
