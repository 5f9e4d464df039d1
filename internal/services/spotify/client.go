package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// TrackInfo is the catalog result of a free-text track search.
type TrackInfo struct {
	ID          string
	Title       string
	ArtistID    string
	ArtistName  string
	Album       string
	ReleaseDate string
	ReleaseYear int
	PreviewURL  string
	CoverArt    string
	DurationSec int
	Popularity  int
}

// ArtistInfo carries the artist-level fields used for set aggregates.
type ArtistInfo struct {
	ID         string
	Name       string
	Genres     []string
	Popularity int
}

// AudioFeatures holds per-track analysis values rescaled to 0-100 integers.
// Tempo is kept as whole BPM.
type AudioFeatures struct {
	ID               string
	Acousticness     int
	Danceability     int
	Energy           int
	Instrumentalness int
	Liveness         int
	Loudness         int
	Speechiness      int
	Valence          int
	Tempo            int
	DurationSec      int
}

// Catalog defines the Spotify operations used by enrichment.
type Catalog interface {
	SearchTrack(ctx context.Context, title, artist string) (*TrackInfo, error)
	SearchArtist(ctx context.Context, name string) (*ArtistInfo, error)
	AudioFeatures(ctx context.Context, ids []string) ([]AudioFeatures, error)
}

// Client provides authenticated access to the Spotify Web API using the
// client-credentials flow.
type Client struct {
	clientID     string
	clientSecret string
	baseURL      string
	tokenURL     string
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

var _ Catalog = (*Client)(nil)

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

// New creates a Spotify client.
func New(clientID, clientSecret, baseURL, tokenURL string, opts ...Option) (*Client, error) {
	clientID = strings.TrimSpace(clientID)
	clientSecret = strings.TrimSpace(clientSecret)
	if clientID == "" || clientSecret == "" {
		return nil, errors.New("spotify credentials required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("spotify base url required")
	}
	tokenURL = strings.TrimSpace(tokenURL)
	if tokenURL == "" {
		return nil, errors.New("spotify token url required")
	}
	client := &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      strings.TrimRight(baseURL, "/"),
		tokenURL:     tokenURL,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("spotify token returned %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", errors.New("spotify token response missing access_token")
	}

	c.accessToken = payload.AccessToken
	// Renew a minute early so in-flight requests never race expiry.
	c.tokenExpiry = time.Now().Add(time.Duration(payload.ExpiresIn)*time.Second - time.Minute)
	return c.accessToken, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("parse spotify url: %w", err)
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("spotify %s returned %d (latency=%v)", path, resp.StatusCode, latency)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode spotify response: %w", err)
	}
	return nil
}

type searchTrackResponse struct {
	Tracks struct {
		Items []struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			Artists []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"artists"`
			Album struct {
				Name        string `json:"name"`
				ReleaseDate string `json:"release_date"`
				Images      []struct {
					URL string `json:"url"`
				} `json:"images"`
			} `json:"album"`
			PreviewURL string `json:"preview_url"`
			DurationMS int    `json:"duration_ms"`
			Popularity int    `json:"popularity"`
		} `json:"items"`
	} `json:"tracks"`
}

// SearchTrack looks up the best catalog match for a title/artist pair.
// A search with no hits returns (nil, nil).
func (c *Client) SearchTrack(ctx context.Context, title, artist string) (*TrackInfo, error) {
	query := strings.TrimSpace(title + " " + artist)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "track")
	params.Set("limit", "1")

	var payload searchTrackResponse
	if err := c.get(ctx, "/search", params, &payload); err != nil {
		return nil, err
	}
	if len(payload.Tracks.Items) == 0 {
		return nil, nil
	}

	item := payload.Tracks.Items[0]
	info := &TrackInfo{
		ID:          item.ID,
		Title:       item.Name,
		Album:       item.Album.Name,
		ReleaseDate: item.Album.ReleaseDate,
		PreviewURL:  item.PreviewURL,
		DurationSec: item.DurationMS / 1000,
		Popularity:  item.Popularity,
	}
	if len(item.Artists) > 0 {
		info.ArtistID = item.Artists[0].ID
		info.ArtistName = item.Artists[0].Name
	}
	if len(item.Album.Images) > 0 {
		info.CoverArt = item.Album.Images[0].URL
	}
	if len(item.Album.ReleaseDate) >= 4 {
		if year, err := strconv.Atoi(item.Album.ReleaseDate[:4]); err == nil {
			info.ReleaseYear = year
		}
	}
	return info, nil
}

type searchArtistResponse struct {
	Artists struct {
		Items []struct {
			ID         string   `json:"id"`
			Name       string   `json:"name"`
			Genres     []string `json:"genres"`
			Popularity int      `json:"popularity"`
		} `json:"items"`
	} `json:"artists"`
}

// SearchArtist looks up artist genres and popularity by name.
// A search with no hits returns (nil, nil).
func (c *Client) SearchArtist(ctx context.Context, name string) (*ArtistInfo, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("artist name must not be empty")
	}
	params := url.Values{}
	params.Set("q", name)
	params.Set("type", "artist")
	params.Set("limit", "1")

	var payload searchArtistResponse
	if err := c.get(ctx, "/search", params, &payload); err != nil {
		return nil, err
	}
	if len(payload.Artists.Items) == 0 {
		return nil, nil
	}
	item := payload.Artists.Items[0]
	return &ArtistInfo{
		ID:         item.ID,
		Name:       item.Name,
		Genres:     item.Genres,
		Popularity: item.Popularity,
	}, nil
}

type audioFeaturesResponse struct {
	AudioFeatures []*struct {
		ID               string  `json:"id"`
		Acousticness     float64 `json:"acousticness"`
		Danceability     float64 `json:"danceability"`
		Energy           float64 `json:"energy"`
		Instrumentalness float64 `json:"instrumentalness"`
		Liveness         float64 `json:"liveness"`
		Loudness         float64 `json:"loudness"`
		Speechiness      float64 `json:"speechiness"`
		Valence          float64 `json:"valence"`
		Tempo            float64 `json:"tempo"`
		DurationMS       int     `json:"duration_ms"`
	} `json:"audio_features"`
}

// AudioFeatures batch-fetches analysis values for up to 100 track ids and
// rescales them to the integer ranges the library stores.
func (c *Client) AudioFeatures(ctx context.Context, ids []string) ([]AudioFeatures, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > 100 {
		return nil, fmt.Errorf("audio features batch limited to 100 ids, got %d", len(ids))
	}
	params := url.Values{}
	params.Set("ids", strings.Join(ids, ","))

	var payload audioFeaturesResponse
	if err := c.get(ctx, "/audio-features", params, &payload); err != nil {
		return nil, err
	}

	features := make([]AudioFeatures, 0, len(payload.AudioFeatures))
	for _, item := range payload.AudioFeatures {
		if item == nil {
			continue
		}
		features = append(features, AudioFeatures{
			ID:               item.ID,
			Acousticness:     scaleUnit(item.Acousticness),
			Danceability:     scaleUnit(item.Danceability),
			Energy:           scaleUnit(item.Energy),
			Instrumentalness: scaleUnit(item.Instrumentalness),
			Liveness:         scaleUnit(item.Liveness),
			Loudness:         scaleLoudness(item.Loudness),
			Speechiness:      scaleUnit(item.Speechiness),
			Valence:          scaleUnit(item.Valence),
			Tempo:            int(item.Tempo),
			DurationSec:      item.DurationMS / 1000,
		})
	}
	return features, nil
}
