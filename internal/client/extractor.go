package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/exec"
	"strings"
)

const watchBase = "https://www.youtube.com/watch?v="

// VideoMetadata is the structured metadata the extractor returns for one
// video. Field names follow the extractor's JSON dump.
type VideoMetadata struct {
	ID                   string       `json:"id"`
	Title                string       `json:"title"`
	Description          string       `json:"description"`
	Channel              string       `json:"channel"`
	ChannelID            string       `json:"channel_id"`
	ChannelFollowerCount int64        `json:"channel_follower_count"`
	UploadDate           string       `json:"upload_date"`
	Thumbnail            string       `json:"thumbnail"`
	Categories           []string     `json:"categories"`
	Tags                 []string     `json:"tags"`
	ViewCount            int64        `json:"view_count"`
	LikeCount            int64        `json:"like_count"`
	DislikeCount         int64        `json:"dislike_count"`
	AverageRating        float64      `json:"average_rating"`
	Comments             []RawComment `json:"comments"`
}

// RawComment is an unprocessed comment straight from the extractor.
type RawComment struct {
	ID               string `json:"id"`
	Text             string `json:"text"`
	Timestamp        int64  `json:"timestamp"`
	LikeCount        *int64 `json:"like_count"`
	IsFavorited      bool   `json:"is_favorited"`
	Author           string `json:"author"`
	AuthorID         string `json:"author_id"`
	AuthorThumbnail  string `json:"author_thumbnail"`
	AuthorIsUploader bool   `json:"author_is_uploader"`
	Parent           string `json:"parent"`
}

// ExtractOptions configures a single extraction run.
type ExtractOptions struct {
	GetComments bool
	// MaxComments is max-comments,max-parents,max-replies,max-replies-per-thread.
	MaxComments []string
	CommentSort string
}

// Extractor shells out to the yt-dlp binary for metadata dumps. Extraction is
// best effort, callers treat a nil result as "no data" and decide themselves
// whether that aborts their pipeline.
type Extractor struct {
	bin string
}

func NewExtractor(bin string) *Extractor {
	return &Extractor{bin: bin}
}

// Extract dumps metadata for a single video id.
func (e *Extractor) Extract(ctx context.Context, youtubeID string, opts ExtractOptions) (*VideoMetadata, error) {
	args := []string{"-J", "--no-download", "--no-warnings", "--ignore-errors"}
	if opts.GetComments {
		extractorArgs := fmt.Sprintf(
			"youtube:max_comments=%s;comment_sort=%s",
			strings.Join(opts.MaxComments, ","),
			opts.CommentSort,
		)
		args = append(args, "--write-comments", "--extractor-args", extractorArgs)
	}
	args = append(args, watchBase+youtubeID)

	cmd := exec.CommandContext(ctx, e.bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		log.Printf("%s: metadata extraction failed: %v: %s", youtubeID, err, stderr.String())
		return nil, fmt.Errorf("extractor failed for %s: %w", youtubeID, err)
	}

	var meta VideoMetadata
	if err := json.Unmarshal(stdout.Bytes(), &meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal extractor output for %s: %w", youtubeID, err)
	}

	return &meta, nil
}
