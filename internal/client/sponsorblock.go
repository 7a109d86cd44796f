package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/streamvault/archiver/internal/model"
)

const defaultSponsorBlockBaseURL = "https://sponsor.ajay.app/api"

// sponsorBlockTimeout is the only enforced timeout of the build pipeline.
const sponsorBlockTimeout = 10 * time.Second

// SponsorBlockClient fetches sponsor segments for a video.
type SponsorBlockClient struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

func NewSponsorBlockClient(baseURL, userAgent string) *SponsorBlockClient {
	if baseURL == "" {
		baseURL = defaultSponsorBlockBaseURL
	}
	return &SponsorBlockClient{
		httpClient: &http.Client{Timeout: sponsorBlockTimeout},
		baseURL:    baseURL,
		userAgent:  userAgent,
	}
}

// Timestamps returns the segment block for a video.
//
// Timeouts and 5xx responses yield no data at all. Any other non-OK response
// yields an explicitly empty but enabled block, so consumers can tell
// "service degraded" apart from "we never tried". Decoding into model.Segment
// drops the upstream description field before anything is stored.
func (c *SponsorBlockClient) Timestamps(ctx context.Context, youtubeID string) (*model.SponsorBlock, error) {
	lastRefresh := time.Now().Unix()

	url := c.baseURL + "/skipSegments?videoID=" + youtubeID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	log.Printf("%s: get sponsorblock timestamps", youtubeID)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sponsorblock request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("%s: sponsorblock failed: %d", youtubeID, resp.StatusCode)
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, nil
		}
		return &model.SponsorBlock{
			LastRefresh: lastRefresh,
			IsEnabled:   true,
			Segments:    []model.Segment{},
		}, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read sponsorblock response: %w", err)
	}

	var segments []model.Segment
	if err := json.Unmarshal(body, &segments); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sponsorblock response: %w", err)
	}

	// unlocked means not a single segment in the batch is vote-locked
	hasUnlocked := true
	for _, segment := range segments {
		if segment.Locked != 0 {
			hasUnlocked = false
			break
		}
	}

	return &model.SponsorBlock{
		LastRefresh: lastRefresh,
		HasUnlocked: hasUnlocked,
		IsEnabled:   true,
		Segments:    segments,
	}, nil
}
