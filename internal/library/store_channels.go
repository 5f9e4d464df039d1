package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UpsertChannel creates or refreshes an uploader row and returns its id. The
// follower count is rewritten on every ingestion so it tracks the platform.
func (s *Store) UpsertChannel(ctx context.Context, channel *Channel) (int64, error) {
	ctx = ensureContext(ctx)
	if channel.ChannelKey == "" {
		return 0, errors.New("channel key required")
	}

	_, err := s.execWithRetry(ctx, `
		INSERT INTO channels (channel_key, author, url, follower_count, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(channel_key) DO UPDATE SET
			author = excluded.author,
			url = excluded.url,
			follower_count = excluded.follower_count,
			updated_at = excluded.updated_at`,
		channel.ChannelKey, channel.Author, channel.URL, channel.FollowerCount,
		formatTime(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("upsert channel %s: %w", channel.ChannelKey, err)
	}

	var id int64
	if err := s.db.QueryRowContext(ctx,
		"SELECT id FROM channels WHERE channel_key = ?", channel.ChannelKey).Scan(&id); err != nil {
		return 0, fmt.Errorf("load channel id for %s: %w", channel.ChannelKey, err)
	}
	channel.ID = id
	return id, nil
}

// ChannelByKey loads one uploader row. Returns nil when unknown.
func (s *Store) ChannelByKey(ctx context.Context, key string) (*Channel, error) {
	ctx = ensureContext(ctx)
	var channel Channel
	err := s.db.QueryRowContext(ctx,
		"SELECT id, channel_key, author, url, follower_count FROM channels WHERE channel_key = ?", key,
	).Scan(&channel.ID, &channel.ChannelKey, &channel.Author, &channel.URL, &channel.FollowerCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load channel %s: %w", key, err)
	}
	return &channel, nil
}
