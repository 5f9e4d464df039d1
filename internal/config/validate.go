package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateIngest(); err != nil {
		return err
	}
	if err := c.validateShazam(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateIngest() error {
	if err := ensurePositiveMap(map[string]int{
		"ingest.segment_length":    c.Ingest.SegmentLength,
		"ingest.segment_workers":   c.Ingest.SegmentWorkers,
		"ingest.min_unique_tracks": c.Ingest.MinUniqueTracks,
		"ingest.min_video_seconds": c.Ingest.MinVideoSeconds,
		"ingest.max_video_seconds": c.Ingest.MaxVideoSeconds,
	}); err != nil {
		return err
	}
	if c.Ingest.MergeLookAhead < 0 {
		return errors.New("ingest.merge_look_ahead must not be negative")
	}
	if c.Ingest.MinUnmatchedSec < 0 {
		return errors.New("ingest.min_unmatched_sec must not be negative")
	}
	if c.Ingest.MaxVideoSeconds <= c.Ingest.MinVideoSeconds {
		return errors.New("ingest.max_video_seconds must be greater than ingest.min_video_seconds")
	}
	return nil
}

func (c *Config) validateShazam() error {
	if c.Shazam.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/tracklist/config.toml"
		}
		return fmt.Errorf("shazam.api_key is required. Set SHAZAM_API_KEY env var or edit %s (create with 'tracklist config init')", defaultPath)
	}
	if err := ensurePositiveMap(map[string]int{
		"shazam.concurrency":     c.Shazam.Concurrency,
		"shazam.request_timeout": c.Shazam.RequestTimeout,
	}); err != nil {
		return err
	}
	if c.Shazam.MaxRetries < 0 {
		return errors.New("shazam.max_retries must not be negative")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	return ensurePositiveMap(map[string]int{
		"workflow.workers":                 c.Workflow.Workers,
		"workflow.queue_poll_interval":     c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval":    c.Workflow.ErrorRetryInterval,
		"workflow.premiere_sweep_interval": c.Workflow.PremiereSweepInterval,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for name, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}
