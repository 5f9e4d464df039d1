// Package shazam wraps a Shazam-compatible acoustic fingerprint API and
// normalizes its verbose payloads into the few fields the pipeline keeps.
package shazam
