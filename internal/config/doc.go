// Package config loads, normalizes, and validates tracklist configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SHAZAM_API_KEY and SPOTIFY_CLIENT_ID. The Config type centralizes every knob
// the daemon and CLI need, from staging directories to provider credentials and
// pipeline thresholds.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
