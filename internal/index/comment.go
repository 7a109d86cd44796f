package index

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/streamvault/archiver/internal/client"
	"github.com/streamvault/archiver/internal/config"
	"github.com/streamvault/archiver/internal/model"
)

// ProgressSink receives incremental progress from long-running batch work.
type ProgressSink interface {
	SendProgress(ctx context.Context, lines []string, progress float64)
}

// Comments fetches, formats and refreshes per-video comment threads. Every
// operation is a no-op when comment indexing is disabled in config.
type Comments struct {
	store     Store
	meta      MetadataSource
	downloads config.DownloadsConfig
}

func NewComments(store Store, meta MetadataSource, downloads config.DownloadsConfig) *Comments {
	return &Comments{store: store, meta: meta, downloads: downloads}
}

// Build fetches and cleans the comment thread for one video. A nil thread
// without error means either comments are disabled or the fetch transiently
// returned nothing.
func (c *Comments) Build(ctx context.Context, youtubeID string) (*model.CommentThread, error) {
	if !c.downloads.CommentsEnabled() {
		return nil, nil
	}
	log.Printf("%s: get comments", youtubeID)

	meta, err := c.meta.Extract(ctx, youtubeID, client.ExtractOptions{
		GetComments: true,
		MaxComments: c.downloads.CommentLimits(),
		CommentSort: c.downloads.CommentSort,
	})
	if err != nil || meta == nil {
		// transient fetch failure, not an error
		return nil, nil
	}
	if len(meta.Comments) == 0 && meta.ChannelID == "" {
		return nil, nil
	}

	cleaned := make([]model.Comment, 0, len(meta.Comments))
	for _, raw := range meta.Comments {
		if comment, ok := cleanComment(youtubeID, raw); ok {
			cleaned = append(cleaned, comment)
		}
	}

	return &model.CommentThread{
		YoutubeID:          youtubeID,
		CommentLastRefresh: time.Now().Unix(),
		CommentChannelID:   meta.ChannelID,
		CommentComments:    cleaned,
	}, nil
}

// Upload writes the thread document and patches the video's comment_count
// with a partial update so concurrent video-field writes stay intact.
func (c *Comments) Upload(ctx context.Context, thread *model.CommentThread) error {
	if !c.downloads.CommentsEnabled() {
		return nil
	}
	log.Printf("%s: upload comments", thread.YoutubeID)

	if _, status, err := c.store.Put(ctx, IndexComment+"/_doc/"+thread.YoutubeID, thread); err != nil {
		return err
	} else if status < 200 || status >= 300 {
		return fmt.Errorf("failed to upload comments for %s, status %d", thread.YoutubeID, status)
	}

	update := map[string]any{
		"doc": map[string]any{"comment_count": len(thread.CommentComments)},
	}
	if _, status, err := c.store.Post(ctx, IndexVideo+"/_update/"+thread.YoutubeID, update); err != nil {
		return err
	} else if status < 200 || status >= 300 {
		return fmt.Errorf("failed to update comment_count for %s, status %d", thread.YoutubeID, status)
	}

	return nil
}

// Delete removes the thread document with a forced refresh.
func (c *Comments) Delete(ctx context.Context, youtubeID string) error {
	log.Printf("%s: delete comments", youtubeID)
	_, _, err := c.store.Delete(ctx, IndexComment+"/_doc/"+youtubeID, true)
	return err
}

// GetStored loads the persisted thread, nil when none exists.
func (c *Comments) GetStored(ctx context.Context, youtubeID string) (*model.CommentThread, error) {
	body, status, err := c.store.Get(ctx, IndexComment+"/_doc/"+youtubeID)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		log.Printf("comments: not found %s", youtubeID)
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("comment lookup for %s failed with status %d", youtubeID, status)
	}

	var envelope docResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal comment response: %w", err)
	}
	var thread model.CommentThread
	if err := json.Unmarshal(envelope.Source, &thread); err != nil {
		return nil, fmt.Errorf("failed to unmarshal comments for %s: %w", youtubeID, err)
	}

	return &thread, nil
}

// Reindex refreshes the thread from upstream. The stored thread is read for
// presence only: when the fresh fetch comes back empty the upload is skipped
// outright so a transient empty fetch never erases a previously good thread.
func (c *Comments) Reindex(ctx context.Context, youtubeID string) error {
	if !c.downloads.CommentsEnabled() {
		return nil
	}

	thread, err := c.Build(ctx, youtubeID)
	if err != nil {
		return err
	}
	if thread == nil {
		return nil
	}

	if _, err := c.GetStored(ctx, youtubeID); err != nil {
		return err
	}

	if len(thread.CommentComments) == 0 {
		return nil
	}

	if err := c.Delete(ctx, youtubeID); err != nil {
		return err
	}
	return c.Upload(ctx, thread)
}

// cleanComment normalizes one raw comment, false when the comment carries no
// text and must be discarded.
func cleanComment(youtubeID string, raw client.RawComment) (model.Comment, bool) {
	if raw.Text == "" {
		log.Printf("%s: failed to extract text, %s", youtubeID, raw.ID)
		return model.Comment{}, false
	}

	return model.Comment{
		CommentID:               raw.ID,
		CommentText:             strings.ReplaceAll(raw.Text, "\u00a0", ""),
		CommentTimestamp:        raw.Timestamp,
		CommentTimeText:         commentTimeText(raw.Timestamp),
		CommentLikecount:        raw.LikeCount,
		CommentIsFavorited:      raw.IsFavorited,
		CommentAuthor:           raw.Author,
		CommentAuthorID:         raw.AuthorID,
		CommentAuthorThumbnail:  raw.AuthorThumbnail,
		CommentAuthorIsUploader: raw.AuthorIsUploader,
		CommentParent:           raw.Parent,
	}, true
}

// commentTimeText formats the display time, date-only when the timestamp
// falls on midnight UTC.
func commentTimeText(timestamp int64) string {
	t := time.Unix(timestamp, 0).UTC()
	if t.Hour() == 0 && t.Minute() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04")
}

// CommentList indexes comments for a batch of videos with incremental
// progress notifications.
type CommentList struct {
	comments *Comments
	progress ProgressSink
}

func NewCommentList(comments *Comments, progress ProgressSink) *CommentList {
	return &CommentList{comments: comments, progress: progress}
}

// Index processes the batch sequentially, skipping entirely when comments
// are globally disabled.
func (l *CommentList) Index(ctx context.Context, videoIDs []string) error {
	if !l.comments.downloads.CommentsEnabled() {
		return nil
	}

	total := len(videoIDs)
	for idx, youtubeID := range videoIDs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if l.progress != nil {
			l.progress.SendProgress(ctx,
				[]string{fmt.Sprintf("Add comments for new videos %d/%d", idx+1, total)},
				float64(idx+1)/float64(total),
			)
		}

		thread, err := l.comments.Build(ctx, youtubeID)
		if err != nil {
			log.Printf("%s: failed to build comments: %v", youtubeID, err)
			continue
		}
		if thread == nil {
			continue
		}
		if err := l.comments.Upload(ctx, thread); err != nil {
			return err
		}
	}

	return nil
}
