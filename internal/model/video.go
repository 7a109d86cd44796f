package model

import "fmt"

// VideoType is the closed set of archive entry kinds.
type VideoType string

const (
	VideoTypeVideo  VideoType = "videos"
	VideoTypeShort  VideoType = "shorts"
	VideoTypeStream VideoType = "streams"
)

// Validate rejects anything outside the known variants.
func (t VideoType) Validate() error {
	switch t {
	case VideoTypeVideo, VideoTypeShort, VideoTypeStream:
		return nil
	}
	return fmt.Errorf("unknown video type %q", string(t))
}

// ChannelSummary is the channel subset embedded in every video document.
type ChannelSummary struct {
	ChannelID          string `json:"channel_id"`
	ChannelName        string `json:"channel_name"`
	ChannelActive      bool   `json:"channel_active"`
	ChannelDescription string `json:"channel_description,omitempty"`
	ChannelThumbURL    string `json:"channel_thumb_url,omitempty"`
	ChannelSubs        int64  `json:"channel_subs"`
	ChannelSubscribed  bool   `json:"channel_subscribed"`
	ChannelLastRefresh int64  `json:"channel_last_refresh"`
}

// Stats holds the view/rating counters. The common counters default to zero
// when upstream omits them, never null.
type Stats struct {
	ViewCount     int64   `json:"view_count"`
	LikeCount     int64   `json:"like_count"`
	DislikeCount  int64   `json:"dislike_count"`
	AverageRating float64 `json:"average_rating"`
}

type Player struct {
	Watched     bool   `json:"watched"`
	Duration    int    `json:"duration"`
	DurationStr string `json:"duration_str"`
}

// Stream is one probed codec entry of the media file.
type Stream struct {
	Type    string `json:"type"`
	Index   int    `json:"index"`
	Codec   string `json:"codec"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
	Bitrate int64  `json:"bitrate"`
}

// Segment is a single sponsor segment. The upstream "description" field is
// intentionally not represented, it never reaches the store.
type Segment struct {
	Category      string    `json:"category"`
	ActionType    string    `json:"actionType,omitempty"`
	Segment       []float64 `json:"segment"`
	UUID          string    `json:"UUID,omitempty"`
	Votes         int       `json:"votes"`
	Locked        int       `json:"locked"`
	VideoDuration float64   `json:"videoDuration,omitempty"`
}

// SponsorBlock distinguishes "service explicitly empty" (IsEnabled with zero
// segments) from "never tried" (field absent on the video document).
type SponsorBlock struct {
	LastRefresh int64     `json:"last_refresh"`
	HasUnlocked bool      `json:"has_unlocked,omitempty"`
	IsEnabled   bool      `json:"is_enabled"`
	Segments    []Segment `json:"segments"`
}

type Subtitle struct {
	Ext      string `json:"ext"`
	URL      string `json:"url,omitempty"`
	Name     string `json:"name"`
	Lang     string `json:"lang"`
	Source   string `json:"source"`
	MediaURL string `json:"media_url"`
}

// VideoDocument is the composite record stored per video. Field names follow
// the store schema.
type VideoDocument struct {
	YoutubeID      string          `json:"youtube_id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Category       []string        `json:"category"`
	VidThumbURL    string          `json:"vid_thumb_url"`
	Tags           []string        `json:"tags"`
	Published      string          `json:"published"`
	VidLastRefresh int64           `json:"vid_last_refresh"`
	DateDownloaded int64           `json:"date_downloaded"`
	VidType        VideoType       `json:"vid_type"`
	Active         bool            `json:"active"`
	Channel        *ChannelSummary `json:"channel"`
	Stats          Stats           `json:"stats"`
	Player         Player          `json:"player"`
	Streams        []Stream        `json:"streams"`
	MediaSize      int64           `json:"media_size"`
	MediaURL       string          `json:"media_url"`
	SponsorBlock   *SponsorBlock   `json:"sponsorblock,omitempty"`
	Subtitles      []Subtitle      `json:"subtitles,omitempty"`
	CommentCount   *int            `json:"comment_count,omitempty"`
	Playlists      []string        `json:"playlist,omitempty"`
}
