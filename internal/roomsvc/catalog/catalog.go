package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Artist and Track are the opaque records the game passes around. The
// state machine never interprets them beyond their ids.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Track struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Client is the external music catalog lookup.
type Client interface {
	SearchArtists(ctx context.Context, query string, limit int) ([]Artist, error)
	ArtistTopTracks(ctx context.Context, artistID string) ([]Track, error)
}

// HTTPClient talks to a Spotify-shaped search API with a bearer token.
type HTTPClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewHTTPClient() *HTTPClient {
	base := os.Getenv("CATALOG_BASE_URL")
	if base == "" {
		base = "https://api.spotify.com/v1"
	}
	return &HTTPClient{
		baseURL: base,
		token:   os.Getenv("CATALOG_TOKEN"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *HTTPClient) SearchArtists(ctx context.Context, query string, limit int) ([]Artist, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "artist")
	params.Set("limit", strconv.Itoa(limit))

	var body struct {
		Artists struct {
			Items []Artist `json:"items"`
		} `json:"artists"`
	}
	if err := c.get(ctx, "/search?"+params.Encode(), &body); err != nil {
		return nil, err
	}
	return body.Artists.Items, nil
}

func (c *HTTPClient) ArtistTopTracks(ctx context.Context, artistID string) ([]Track, error) {
	var body struct {
		Tracks []Track `json:"tracks"`
	}
	if err := c.get(ctx, "/artists/"+url.PathEscape(artistID)+"/top-tracks", &body); err != nil {
		return nil, err
	}
	return body.Tracks, nil
}

func (c *HTTPClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("catalog request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalog responded %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("catalog response decode: %w", err)
	}
	return nil
}
