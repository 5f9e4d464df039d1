package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
}

// Ingest contains tunables for the set ingestion pipeline.
type Ingest struct {
	SegmentLength      int  `toml:"segment_length"`       // seconds per fixed-length segment
	SegmentWorkers     int  `toml:"segment_workers"`      // concurrent ffmpeg exports
	MergeLookAhead     int  `toml:"merge_look_ahead"`     // segments scanned forward during run-merge
	MinUnmatchedSec    int  `toml:"min_unmatched_sec"`    // unmatched segments shorter than this are elided
	MinUniqueTracks    int  `toml:"min_unique_tracks"`    // sets below this are discarded
	MinVideoSeconds    int  `toml:"min_video_seconds"`    // videos shorter than this are rejected
	MaxVideoSeconds    int  `toml:"max_video_seconds"`    // videos longer than this are rejected
	MinChapterSegments int  `toml:"min_chapter_segments"` // fewer chapters than this falls back to fixed-length
	KeepArtifacts      bool `toml:"keep_artifacts"`       // preserve the working directory after a run
}

// Shazam contains configuration for the acoustic fingerprint provider.
type Shazam struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Concurrency    int    `toml:"concurrency"`
	RequestTimeout int    `toml:"request_timeout"` // seconds
	MaxRetries     int    `toml:"max_retries"`
}

// Spotify contains configuration for the rich metadata catalog.
type Spotify struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	BaseURL      string `toml:"base_url"`
	TokenURL     string `toml:"token_url"`
}

// Apple contains configuration for the secondary metadata catalog.
type Apple struct {
	DeveloperToken string `toml:"developer_token"`
	BaseURL        string `toml:"base_url"`
	Storefront     string `toml:"storefront"`
}

// Workflow contains configuration for daemon timing and intervals.
type Workflow struct {
	Workers               int `toml:"workers"`
	QueuePollInterval     int `toml:"queue_poll_interval"`
	ErrorRetryInterval    int `toml:"error_retry_interval"`
	PremiereSweepInterval int `toml:"premiere_sweep_interval"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the tracklist daemon and CLI.
//
// Configuration sections by subsystem:
//   - Paths: staging (per-video working directories) and log/database locations
//   - Ingest: segment sizing, merge thresholds, and validation limits
//   - Shazam: acoustic fingerprint provider credentials and concurrency
//   - Spotify: rich catalog credentials (search + audio features)
//   - Apple: secondary catalog credentials (batch lookup by key)
//   - Workflow: worker counts and polling intervals
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Ingest   Ingest   `toml:"ingest"`
	Shazam   Shazam   `toml:"shazam"`
	Spotify  Spotify  `toml:"spotify"`
	Apple    Apple    `toml:"apple"`
	Workflow Workflow `toml:"workflow"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/tracklist/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("tracklist.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for segment export.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for duration probing.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// WriteSample writes the embedded sample configuration to the given path.
// Unless overwrite is set an existing file is left untouched.
func WriteSample(path string, overwrite bool) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil && !overwrite {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
