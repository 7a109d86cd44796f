package index

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/streamvault/archiver/internal/client"
	"github.com/streamvault/archiver/internal/model"
)

// ChannelResolver loads channel summaries and seeds unknown channels from
// the uploading video's own metadata.
type ChannelResolver struct {
	store Store
}

func NewChannelResolver(store Store) *ChannelResolver {
	return &ChannelResolver{store: store}
}

// Resolve returns the stored channel summary for channelID. On first sight
// the fallback video metadata seeds a new channel document, existing channel
// data is never overwritten by fallback values.
func (r *ChannelResolver) Resolve(ctx context.Context, channelID string, fallback *client.VideoMetadata) (*model.ChannelSummary, error) {
	body, status, err := r.store.Get(ctx, IndexChannel+"/_doc/"+channelID)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
		var doc docResponse
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, fmt.Errorf("failed to unmarshal channel response: %w", err)
		}
		var channel model.ChannelSummary
		if err := json.Unmarshal(doc.Source, &channel); err != nil {
			return nil, fmt.Errorf("failed to unmarshal channel %s: %w", channelID, err)
		}
		return &channel, nil

	case http.StatusNotFound:
		return r.seed(ctx, channelID, fallback)

	default:
		return nil, fmt.Errorf("channel lookup for %s failed with status %d", channelID, status)
	}
}

func (r *ChannelResolver) seed(ctx context.Context, channelID string, fallback *client.VideoMetadata) (*model.ChannelSummary, error) {
	channel := &model.ChannelSummary{
		ChannelID:          channelID,
		ChannelActive:      true,
		ChannelLastRefresh: time.Now().Unix(),
	}
	if fallback != nil {
		channel.ChannelName = fallback.Channel
		channel.ChannelSubs = fallback.ChannelFollowerCount
	}

	_, status, err := r.store.Put(ctx, IndexChannel+"/_doc/"+channelID, channel)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("failed to index channel %s, status %d", channelID, status)
	}

	return channel, nil
}
