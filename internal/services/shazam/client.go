package shazam

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Recognizer defines the fingerprint operation used by the recognition
// orchestrator.
type Recognizer interface {
	Recognize(ctx context.Context, sample []byte) (*Result, error)
}

// Result is one recognition attempt's outcome. Raw preserves the provider
// payload for artifact caching; Match is nil when nothing was recognized.
type Result struct {
	Matched bool
	Match   *Match
	Raw     json.RawMessage
}

// Client provides access to a Shazam-compatible fingerprint API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

var _ Recognizer = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a fingerprint client.
func New(apiKey, baseURL string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("shazam api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("shazam base url required")
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Recognize submits a raw audio sample for fingerprinting. A response without
// a track is a clean no-match, not an error.
func (c *Client) Recognize(ctx context.Context, sample []byte) (*Result, error) {
	if len(sample) == 0 {
		return nil, errors.New("sample must not be empty")
	}
	endpoint, err := url.Parse(c.baseURL + "/songs/v2/detect")
	if err != nil {
		return nil, fmt.Errorf("parse shazam url: %w", err)
	}
	params := url.Values{}
	params.Set("timezone", "UTC")
	params.Set("locale", "en-US")
	endpoint.RawQuery = params.Encode()

	encoded := base64.StdEncoding.EncodeToString(sample)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewBufferString(encoded))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("X-RapidAPI-Key", c.apiKey)

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("shazam detect returned %d (latency=%v)", resp.StatusCode, latency)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode shazam response: %w", err)
	}
	return ParseResult(raw)
}

// ParseResult converts a raw provider payload into a Result. Exposed so the
// orchestrator can rehydrate cached payloads without another network call.
func ParseResult(raw json.RawMessage) (*Result, error) {
	match, matched, err := normalize(raw)
	if err != nil {
		return nil, err
	}
	return &Result{Matched: matched, Match: match, Raw: raw}, nil
}
