package index

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamvault/archiver/internal/client"
	"github.com/streamvault/archiver/internal/config"
	"github.com/streamvault/archiver/internal/model"
)

type fakeProgress struct {
	lines     [][]string
	fractions []float64
}

func (f *fakeProgress) SendProgress(ctx context.Context, lines []string, progress float64) {
	f.lines = append(f.lines, lines)
	f.fractions = append(f.fractions, progress)
}

func commentsEnabled() config.DownloadsConfig {
	return config.DownloadsConfig{CommentMax: "100,all,100,10", CommentSort: "top"}
}

func testRawComments() []client.RawComment {
	likes := int64(7)
	return []client.RawComment{
		{ID: "c1", Text: "great\u00a0video", Timestamp: 1700000000, LikeCount: &likes, Author: "alice", AuthorID: "a1", Parent: "root"},
		{ID: "c2", Text: "", Timestamp: 1700000100, Author: "bob", AuthorID: "b1", Parent: "root"},
		{ID: "c3", Text: "thanks", Timestamp: 1700000200, Author: "carol", AuthorID: "c1", AuthorIsUploader: true, Parent: "c1"},
	}
}

func TestCleanComment(t *testing.T) {
	raw := testRawComments()

	comment, ok := cleanComment("vid123", raw[0])
	require.True(t, ok)
	// non-breaking spaces are stripped
	assert.Equal(t, "greatvideo", comment.CommentText)
	require.NotNil(t, comment.CommentLikecount)
	assert.Equal(t, int64(7), *comment.CommentLikecount)

	// a comment without text is dropped entirely
	_, ok = cleanComment("vid123", raw[1])
	assert.False(t, ok)
}

func TestCommentTimeText(t *testing.T) {
	midnight := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC).Unix()
	assert.Equal(t, "2024-01-15", commentTimeText(midnight))

	afternoon := time.Date(2024, 1, 15, 15, 4, 30, 0, time.UTC).Unix()
	assert.Equal(t, "2024-01-15 15:04", commentTimeText(afternoon))
}

func TestCommentsBuild(t *testing.T) {
	store := newFakeStore()
	meta := &fakeMeta{meta: &client.VideoMetadata{ChannelID: "chan1", Comments: testRawComments()}}
	comments := NewComments(store, meta, commentsEnabled())

	thread, err := comments.Build(context.Background(), "vid123")
	require.NoError(t, err)
	require.NotNil(t, thread)

	assert.Equal(t, "vid123", thread.YoutubeID)
	assert.Equal(t, "chan1", thread.CommentChannelID)
	assert.NotZero(t, thread.CommentLastRefresh)
	// the empty comment got filtered
	assert.Len(t, thread.CommentComments, 2)

	require.Len(t, meta.calls, 1)
	assert.True(t, meta.calls[0].GetComments)
	assert.Equal(t, []string{"100", "all", "100", "10"}, meta.calls[0].MaxComments)
	assert.Equal(t, "top", meta.calls[0].CommentSort)
}

func TestCommentsBuildDisabled(t *testing.T) {
	meta := &fakeMeta{meta: &client.VideoMetadata{ChannelID: "chan1"}}
	comments := NewComments(newFakeStore(), meta, config.DownloadsConfig{})

	thread, err := comments.Build(context.Background(), "vid123")
	require.NoError(t, err)
	assert.Nil(t, thread)
	assert.Empty(t, meta.calls)
}

func TestCommentsBuildTransientFailure(t *testing.T) {
	meta := &fakeMeta{err: assert.AnError}
	comments := NewComments(newFakeStore(), meta, commentsEnabled())

	thread, err := comments.Build(context.Background(), "vid123")
	require.NoError(t, err)
	assert.Nil(t, thread)

	// no comments and no channel id means the fetch yielded nothing usable
	meta = &fakeMeta{meta: &client.VideoMetadata{}}
	comments = NewComments(newFakeStore(), meta, commentsEnabled())
	thread, err = comments.Build(context.Background(), "vid123")
	require.NoError(t, err)
	assert.Nil(t, thread)
}

func TestCommentsUpload(t *testing.T) {
	store := newFakeStore()
	comments := NewComments(store, &fakeMeta{}, commentsEnabled())

	thread := &model.CommentThread{
		YoutubeID:        "vid123",
		CommentChannelID: "chan1",
		CommentComments:  []model.Comment{{CommentID: "c1"}, {CommentID: "c3"}},
	}
	require.NoError(t, comments.Upload(context.Background(), thread))

	assert.Contains(t, store.puts, "ta_comment/_doc/vid123")

	update, ok := store.posts["ta_video/_update/vid123"]
	require.True(t, ok)
	assert.JSONEq(t, `{"doc": {"comment_count": 2}}`, string(update))
}

func TestCommentsReindexSkipsEmptyFetch(t *testing.T) {
	store := newFakeStore()
	storedJSON, err := json.Marshal(model.CommentThread{
		YoutubeID:       "vid123",
		CommentComments: []model.Comment{{CommentID: "old"}},
	})
	require.NoError(t, err)
	store.docs["ta_comment/_doc/vid123"] = storedJSON

	// the refetch comes back empty even though the channel resolves
	meta := &fakeMeta{meta: &client.VideoMetadata{ChannelID: "chan1"}}
	comments := NewComments(store, meta, commentsEnabled())

	require.NoError(t, comments.Reindex(context.Background(), "vid123"))

	// the stored thread survives untouched
	assert.Empty(t, store.deletes)
	assert.NotContains(t, store.puts, "ta_comment/_doc/vid123")
}

func TestCommentsReindexReplaces(t *testing.T) {
	store := newFakeStore()
	storedJSON, err := json.Marshal(model.CommentThread{
		YoutubeID:       "vid123",
		CommentComments: []model.Comment{{CommentID: "old"}},
	})
	require.NoError(t, err)
	store.docs["ta_comment/_doc/vid123"] = storedJSON

	meta := &fakeMeta{meta: &client.VideoMetadata{ChannelID: "chan1", Comments: testRawComments()}}
	comments := NewComments(store, meta, commentsEnabled())

	require.NoError(t, comments.Reindex(context.Background(), "vid123"))

	assert.Contains(t, store.deletes, "ta_comment/_doc/vid123?refresh=true")

	fresh, ok := store.puts["ta_comment/_doc/vid123"]
	require.True(t, ok)
	var thread model.CommentThread
	require.NoError(t, json.Unmarshal(fresh, &thread))
	assert.Len(t, thread.CommentComments, 2)
}

func TestCommentListProgress(t *testing.T) {
	store := newFakeStore()
	meta := &fakeMeta{meta: &client.VideoMetadata{ChannelID: "chan1", Comments: testRawComments()}}
	progress := &fakeProgress{}
	list := NewCommentList(NewComments(store, meta, commentsEnabled()), progress)

	require.NoError(t, list.Index(context.Background(), []string{"vid1", "vid2"}))

	require.Len(t, progress.lines, 2)
	assert.Equal(t, []string{"Add comments for new videos 1/2"}, progress.lines[0])
	assert.Equal(t, []string{"Add comments for new videos 2/2"}, progress.lines[1])
	assert.Equal(t, []float64{0.5, 1}, progress.fractions)

	assert.Contains(t, store.puts, "ta_comment/_doc/vid1")
	assert.Contains(t, store.puts, "ta_comment/_doc/vid2")
}

func TestCommentListDisabled(t *testing.T) {
	meta := &fakeMeta{}
	progress := &fakeProgress{}
	list := NewCommentList(NewComments(newFakeStore(), meta, config.DownloadsConfig{}), progress)

	require.NoError(t, list.Index(context.Background(), []string{"vid1", "vid2"}))

	assert.Empty(t, progress.lines)
	assert.Empty(t, meta.calls)
}

func TestCommentListCancelled(t *testing.T) {
	meta := &fakeMeta{meta: &client.VideoMetadata{ChannelID: "chan1", Comments: testRawComments()}}
	list := NewCommentList(NewComments(newFakeStore(), meta, commentsEnabled()), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := list.Index(ctx, []string{"vid1"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, meta.calls)
}

func TestOfflineSubtitles(t *testing.T) {
	subtitles := OfflineSubtitles("chan1/vid123.mp4", []string{"vid123.en.vtt", "vid123.de.vtt", "nodots"})

	require.Len(t, subtitles, 2)
	assert.Equal(t, "en", subtitles[0].Lang)
	assert.Equal(t, "chan1/vid123.en.vtt", subtitles[0].MediaURL)
	assert.Equal(t, "file", subtitles[0].Source)
	assert.Equal(t, "de", subtitles[1].Lang)
}
