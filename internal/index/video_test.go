package index

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamvault/archiver/internal/client"
	"github.com/streamvault/archiver/internal/config"
	"github.com/streamvault/archiver/internal/model"
)

// fakeStore is an in-memory document store keyed by request path.
type fakeStore struct {
	docs    map[string]json.RawMessage
	puts    map[string]json.RawMessage
	posts   map[string]json.RawMessage
	deletes []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		docs:  make(map[string]json.RawMessage),
		puts:  make(map[string]json.RawMessage),
		posts: make(map[string]json.RawMessage),
	}
}

func (f *fakeStore) Get(ctx context.Context, path string) (json.RawMessage, int, error) {
	source, ok := f.docs[path]
	if !ok {
		return json.RawMessage(`{"found": false}`), 404, nil
	}
	envelope, err := json.Marshal(map[string]any{"found": true, "_source": source})
	if err != nil {
		return nil, 0, err
	}
	return envelope, 200, nil
}

func (f *fakeStore) Post(ctx context.Context, path string, body any) (json.RawMessage, int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, 0, err
	}
	f.posts[path] = data
	return json.RawMessage(`{}`), 200, nil
}

func (f *fakeStore) Put(ctx context.Context, path string, body any) (json.RawMessage, int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, 0, err
	}
	f.puts[path] = data
	f.docs[path] = data
	return json.RawMessage(`{}`), 201, nil
}

func (f *fakeStore) Delete(ctx context.Context, path string, refresh bool) (json.RawMessage, int, error) {
	if refresh {
		path += "?refresh=true"
	}
	f.deletes = append(f.deletes, path)
	return json.RawMessage(`{}`), 200, nil
}

type fakeMeta struct {
	meta  *client.VideoMetadata
	err   error
	calls []client.ExtractOptions
}

func (f *fakeMeta) Extract(ctx context.Context, youtubeID string, opts client.ExtractOptions) (*client.VideoMetadata, error) {
	f.calls = append(f.calls, opts)
	return f.meta, f.err
}

type fakeDislikes struct {
	stats *client.DislikeStats
}

func (f *fakeDislikes) Votes(ctx context.Context, youtubeID string) (*client.DislikeStats, error) {
	return f.stats, nil
}

type fakeSegments struct {
	block *model.SponsorBlock
}

func (f *fakeSegments) Timestamps(ctx context.Context, youtubeID string) (*model.SponsorBlock, error) {
	return f.block, nil
}

type fakeProbe struct{}

func (fakeProbe) Duration(ctx context.Context, path string) (int, error) { return 120, nil }

func (fakeProbe) Streams(ctx context.Context, path string) ([]model.Stream, error) {
	return []model.Stream{{Type: "video", Codec: "h264", Width: 1920, Height: 1080, Bitrate: 2500000}}, nil
}

func (fakeProbe) FileSize(path string) (int64, error) { return 1024, nil }

func testMetadata() *client.VideoMetadata {
	return &client.VideoMetadata{
		ID:                   "vid123",
		Title:                "A Video",
		Description:          "about things",
		Channel:              "My Channel",
		ChannelID:            "chan1",
		ChannelFollowerCount: 100,
		UploadDate:           "20240215",
		Thumbnail:            "https://i.ytimg.com/vi/vid123/hq720.jpg",
		Categories:           []string{"Education"},
		ViewCount:            5000,
		LikeCount:            400,
	}
}

func testBuilder(store Store, meta *fakeMeta, cfg *config.Config) *Builder {
	return NewBuilder(store, meta,
		&fakeDislikes{stats: &client.DislikeStats{Dislikes: 42, Rating: 4.5}},
		&fakeSegments{block: &model.SponsorBlock{IsEnabled: true, Segments: []model.Segment{}}},
		fakeProbe{}, cfg)
}

func TestBuildVideoDocument(t *testing.T) {
	store := newFakeStore()
	meta := &fakeMeta{meta: testMetadata()}
	cfg := &config.Config{Downloads: config.DownloadsConfig{IntegrateRYD: true}}
	builder := testBuilder(store, meta, cfg)

	result, err := builder.Build(context.Background(), "vid123", BuildOptions{MediaPath: "/tmp/vid123.mp4"})
	require.NoError(t, err)

	doc := result.Doc
	assert.False(t, result.OfflineImport)
	assert.Equal(t, "vid123", doc.YoutubeID)
	assert.Equal(t, "chan1/vid123.mp4", doc.MediaURL)
	assert.Equal(t, "2024-02-15", doc.Published)
	assert.Equal(t, model.VideoTypeVideo, doc.VidType)
	assert.True(t, doc.Active)
	assert.Equal(t, 120, doc.Player.Duration)
	assert.Equal(t, "02:00", doc.Player.DurationStr)
	assert.Equal(t, int64(1024), doc.MediaSize)
	require.Len(t, doc.Streams, 1)

	// dislike service enrichment replaced the extractor's zero values
	assert.Equal(t, int64(42), doc.Stats.DislikeCount)
	assert.Equal(t, 4.5, doc.Stats.AverageRating)

	// sponsorblock disabled globally and not overwritten
	assert.Nil(t, doc.SponsorBlock)

	// first sight of the channel seeds a summary from the video metadata
	require.Contains(t, store.puts, "ta_channel/_doc/chan1")
	assert.Equal(t, "My Channel", doc.Channel.ChannelName)
	assert.Equal(t, int64(100), doc.Channel.ChannelSubs)
	assert.True(t, doc.Channel.ChannelActive)
}

func TestBuildSponsorBlockOverwrite(t *testing.T) {
	store := newFakeStore()
	meta := &fakeMeta{meta: testMetadata()}
	cfg := &config.Config{Downloads: config.DownloadsConfig{IntegrateSponsorBlock: false}}
	builder := testBuilder(store, meta, cfg)

	enable := true
	result, err := builder.Build(context.Background(), "vid123", BuildOptions{
		MediaPath:  "/tmp/vid123.mp4",
		Overwrites: map[string]VideoOverwrite{"vid123": {IntegrateSponsorBlock: &enable}},
	})
	require.NoError(t, err)

	require.NotNil(t, result.Doc.SponsorBlock)
	assert.True(t, result.Doc.SponsorBlock.IsEnabled)
}

func TestBuildOfflineImport(t *testing.T) {
	store := newFakeStore()
	meta := &fakeMeta{err: assert.AnError}
	cfg := &config.Config{}
	builder := testBuilder(store, meta, cfg)

	// extraction failed and nothing to fall back on
	_, err := builder.Build(context.Background(), "vid123", BuildOptions{MediaPath: "/tmp/vid123.mp4"})
	assert.ErrorIs(t, err, ErrNoMetadata)

	// caller-supplied metadata rescues the build
	result, err := builder.Build(context.Background(), "vid123", BuildOptions{
		MediaPath: "/tmp/vid123.mp4",
		Overrides: testMetadata(),
	})
	require.NoError(t, err)
	assert.True(t, result.OfflineImport)
	assert.Equal(t, "A Video", result.Doc.Title)
}

func TestBuildRejectsUnknownVideoType(t *testing.T) {
	builder := testBuilder(newFakeStore(), &fakeMeta{meta: testMetadata()}, &config.Config{})

	_, err := builder.Build(context.Background(), "vid123", BuildOptions{
		VideoType: model.VideoType("bogus"),
		MediaPath: "/tmp/vid123.mp4",
	})
	assert.Error(t, err)
}

func TestBuildMediaNotFound(t *testing.T) {
	cfg := &config.Config{Paths: config.PathsConfig{CacheDir: t.TempDir(), VideoDir: t.TempDir()}}
	builder := testBuilder(newFakeStore(), &fakeMeta{meta: testMetadata()}, cfg)

	_, err := builder.Build(context.Background(), "vid123", BuildOptions{})
	assert.ErrorIs(t, err, ErrMediaNotFound)
}

func TestDeleteVideo(t *testing.T) {
	videoDir := t.TempDir()
	store := newFakeStore()
	cfg := &config.Config{
		Paths:     config.PathsConfig{VideoDir: videoDir},
		Downloads: config.DownloadsConfig{CommentMax: "100,all,100,10"},
	}
	builder := testBuilder(store, &fakeMeta{}, cfg)

	doc := model.VideoDocument{
		YoutubeID: "vid123",
		MediaURL:  "chan1/vid123.mp4",
		Playlists: []string{"p1", "gone", "p2"},
	}
	docJSON, err := json.Marshal(doc)
	require.NoError(t, err)
	store.docs["ta_video/_doc/vid123"] = docJSON

	playlist, err := json.Marshal(model.Playlist{
		PlaylistID:   "pl",
		PlaylistName: "mixed",
		PlaylistEntries: []model.PlaylistEntry{
			{YoutubeID: "vid123", Title: "A Video", Idx: 0, Downloaded: true},
			{YoutubeID: "other", Title: "Other", Idx: 1, Downloaded: true},
		},
	})
	require.NoError(t, err)
	store.docs["ta_playlist/_doc/p1"] = playlist
	store.docs["ta_playlist/_doc/p2"] = playlist

	mediaPath := filepath.Join(videoDir, "chan1", "vid123.mp4")
	require.NoError(t, os.MkdirAll(filepath.Dir(mediaPath), 0o755))
	require.NoError(t, os.WriteFile(mediaPath, []byte("video"), 0o644))

	require.NoError(t, builder.DeleteVideo(context.Background(), "vid123"))

	// media file is gone
	_, err = os.Stat(mediaPath)
	assert.True(t, os.IsNotExist(err))

	// both existing playlists got rewritten with the entry flipped, the
	// missing playlist was skipped
	for _, path := range []string{"ta_playlist/_doc/p1", "ta_playlist/_doc/p2"} {
		updated, ok := store.puts[path]
		require.True(t, ok, path)

		var rewritten struct {
			PlaylistName string `json:"playlist_name"`
			Entries      []struct {
				YoutubeID  string `json:"youtube_id"`
				Downloaded bool   `json:"downloaded"`
			} `json:"playlist_entries"`
		}
		require.NoError(t, json.Unmarshal(updated, &rewritten))
		assert.Equal(t, "mixed", rewritten.PlaylistName)
		require.Len(t, rewritten.Entries, 2)
		assert.False(t, rewritten.Entries[0].Downloaded)
		assert.True(t, rewritten.Entries[1].Downloaded)
	}
	assert.NotContains(t, store.puts, "ta_playlist/_doc/gone")

	// document, subtitles and comments are cleaned up
	assert.Contains(t, store.deletes, "ta_video/_doc/vid123?refresh=true")
	assert.Contains(t, store.posts, "ta_subtitle/_delete_by_query")
	assert.Contains(t, store.deletes, "ta_comment/_doc/vid123?refresh=true")
}

func TestDeleteVideoMissingMediaFile(t *testing.T) {
	store := newFakeStore()
	cfg := &config.Config{Paths: config.PathsConfig{VideoDir: t.TempDir()}}
	builder := testBuilder(store, &fakeMeta{}, cfg)

	docJSON, err := json.Marshal(model.VideoDocument{YoutubeID: "vid123", MediaURL: "chan1/vid123.mp4"})
	require.NoError(t, err)
	store.docs["ta_video/_doc/vid123"] = docJSON

	// missing file is logged and skipped, the delete still goes through
	require.NoError(t, builder.DeleteVideo(context.Background(), "vid123"))
	assert.Contains(t, store.deletes, "ta_video/_doc/vid123?refresh=true")

	// comments disabled, so no comment delete was attempted
	assert.NotContains(t, store.deletes, "ta_comment/_doc/vid123?refresh=true")
}

func TestDeleteVideoNotFound(t *testing.T) {
	builder := testBuilder(newFakeStore(), &fakeMeta{}, &config.Config{})

	err := builder.DeleteVideo(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateMediaURL(t *testing.T) {
	store := newFakeStore()
	builder := testBuilder(store, &fakeMeta{}, &config.Config{})

	require.NoError(t, builder.UpdateMediaURL(context.Background(), "vid123", "newchan/vid123.mp4"))

	update, ok := store.posts["ta_video/_update/vid123"]
	require.True(t, ok)
	assert.JSONEq(t, `{"doc": {"media_url": "newchan/vid123.mp4"}}`, string(update))
}
