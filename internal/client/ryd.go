package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultRYDBaseURL = "https://returnyoutubedislikeapi.com"

// DislikeStats is the optional rating data from the dislike service.
type DislikeStats struct {
	Dislikes int64   `json:"dislikes"`
	Rating   float64 `json:"rating"`
}

// RYDClient queries the third-party dislike rating service. Results are pure
// enrichment, failures never abort a document build.
type RYDClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewRYDClient creates a dislike-rating client, baseURL empty means the
// public API.
func NewRYDClient(baseURL string) *RYDClient {
	if baseURL == "" {
		baseURL = defaultRYDBaseURL
	}
	return &RYDClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
	}
}

// Votes returns dislike stats for a video, or (nil, nil) when the service
// definitively knows nothing about it.
func (c *RYDClient) Votes(ctx context.Context, youtubeID string) (*DislikeStats, error) {
	url := c.baseURL + "/votes?videoId=" + youtubeID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ryd request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ryd responded with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read ryd response: %w", err)
	}

	var stats DislikeStats
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ryd response: %w", err)
	}

	return &stats, nil
}
