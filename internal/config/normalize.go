package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeShazam()
	c.normalizeSpotify()
	c.normalizeApple()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeShazam() {
	if c.Shazam.APIKey == "" {
		if value, ok := os.LookupEnv("SHAZAM_API_KEY"); ok {
			c.Shazam.APIKey = strings.TrimSpace(value)
		}
	}
	c.Shazam.BaseURL = strings.TrimSpace(c.Shazam.BaseURL)
	if c.Shazam.BaseURL == "" {
		c.Shazam.BaseURL = defaultShazamBaseURL
	}
	if c.Shazam.Concurrency <= 0 {
		c.Shazam.Concurrency = defaultShazamConcurrency
	}
}

func (c *Config) normalizeSpotify() {
	if c.Spotify.ClientID == "" {
		if value, ok := os.LookupEnv("SPOTIFY_CLIENT_ID"); ok {
			c.Spotify.ClientID = strings.TrimSpace(value)
		}
	}
	if c.Spotify.ClientSecret == "" {
		if value, ok := os.LookupEnv("SPOTIFY_CLIENT_SECRET"); ok {
			c.Spotify.ClientSecret = strings.TrimSpace(value)
		}
	}
	c.Spotify.BaseURL = strings.TrimSpace(c.Spotify.BaseURL)
	if c.Spotify.BaseURL == "" {
		c.Spotify.BaseURL = defaultSpotifyBaseURL
	}
	c.Spotify.TokenURL = strings.TrimSpace(c.Spotify.TokenURL)
	if c.Spotify.TokenURL == "" {
		c.Spotify.TokenURL = defaultSpotifyTokenURL
	}
}

func (c *Config) normalizeApple() {
	if c.Apple.DeveloperToken == "" {
		if value, ok := os.LookupEnv("APPLE_DEVELOPER_TOKEN"); ok {
			c.Apple.DeveloperToken = strings.TrimSpace(value)
		}
	}
	c.Apple.BaseURL = strings.TrimSpace(c.Apple.BaseURL)
	if c.Apple.BaseURL == "" {
		c.Apple.BaseURL = defaultAppleBaseURL
	}
	c.Apple.Storefront = strings.ToLower(strings.TrimSpace(c.Apple.Storefront))
	if c.Apple.Storefront == "" {
		c.Apple.Storefront = defaultAppleStorefront
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
