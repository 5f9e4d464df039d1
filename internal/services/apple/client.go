package apple

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Song is the normalized batch-lookup result for one catalog key.
type Song struct {
	Key         string
	Title       string
	ArtistName  string
	ArtistKey   string
	Album       string
	ReleaseDate string
	ReleaseYear int
	PreviewURL  string
	ArtworkURL  string
	Genres      []string
	DurationSec int
}

// Catalog defines the Apple operations used by enrichment.
type Catalog interface {
	Songs(ctx context.Context, keys []string) (map[string]Song, error)
}

// Client provides access to an iTunes-style catalog API.
type Client struct {
	developerToken string
	baseURL        string
	storefront     string
	httpClient     *http.Client
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

// New creates an Apple catalog client.
func New(developerToken, baseURL, storefront string, opts ...Option) (*Client, error) {
	developerToken = strings.TrimSpace(developerToken)
	if developerToken == "" {
		return nil, errors.New("apple developer token required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("apple base url required")
	}
	storefront = strings.TrimSpace(storefront)
	if storefront == "" {
		storefront = "us"
	}
	client := &Client{
		developerToken: developerToken,
		baseURL:        strings.TrimRight(baseURL, "/"),
		storefront:     storefront,
		httpClient:     &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type songsResponse struct {
	Data []struct {
		ID         string `json:"id"`
		Attributes struct {
			Name             string   `json:"name"`
			ArtistName       string   `json:"artistName"`
			AlbumName        string   `json:"albumName"`
			ReleaseDate      string   `json:"releaseDate"`
			GenreNames       []string `json:"genreNames"`
			DurationInMillis int      `json:"durationInMillis"`
			Previews         []struct {
				URL string `json:"url"`
			} `json:"previews"`
			Artwork struct {
				URL string `json:"url"`
			} `json:"artwork"`
		} `json:"attributes"`
		Relationships struct {
			Artists struct {
				Data []struct {
					ID string `json:"id"`
				} `json:"data"`
			} `json:"artists"`
		} `json:"relationships"`
	} `json:"data"`
}

// Songs batch-fetches catalog songs by key. Keys absent from the response are
// simply missing from the returned map.
func (c *Client) Songs(ctx context.Context, keys []string) (map[string]Song, error) {
	if len(keys) == 0 {
		return map[string]Song{}, nil
	}

	endpoint, err := url.Parse(fmt.Sprintf("%s/v1/catalog/%s/songs", c.baseURL, c.storefront))
	if err != nil {
		return nil, fmt.Errorf("parse apple url: %w", err)
	}
	params := url.Values{}
	params.Set("ids", strings.Join(keys, ","))
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.developerToken)

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("apple songs returned %d (latency=%v)", resp.StatusCode, latency)
	}

	var payload songsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode apple response: %w", err)
	}

	songs := make(map[string]Song, len(payload.Data))
	for _, item := range payload.Data {
		song := Song{
			Key:         item.ID,
			Title:       item.Attributes.Name,
			ArtistName:  item.Attributes.ArtistName,
			Album:       item.Attributes.AlbumName,
			ReleaseDate: item.Attributes.ReleaseDate,
			ArtworkURL:  item.Attributes.Artwork.URL,
			Genres:      filterGenres(item.Attributes.GenreNames),
			DurationSec: item.Attributes.DurationInMillis / 1000,
		}
		if len(item.Attributes.Previews) > 0 {
			song.PreviewURL = item.Attributes.Previews[0].URL
		}
		if len(item.Relationships.Artists.Data) > 0 {
			song.ArtistKey = item.Relationships.Artists.Data[0].ID
		}
		if len(song.ReleaseDate) >= 4 {
			if year, err := strconv.Atoi(song.ReleaseDate[:4]); err == nil {
				song.ReleaseYear = year
			}
		}
		songs[song.Key] = song
	}
	return songs, nil
}

// filterGenres lower-cases genre names and drops the catch-all "music"
// entries the catalog attaches to everything.
func filterGenres(names []string) []string {
	var genres []string
	for _, name := range names {
		lowered := strings.ToLower(strings.TrimSpace(name))
		if lowered == "" || strings.Contains(lowered, "music") {
			continue
		}
		genres = append(genres, lowered)
	}
	return genres
}
