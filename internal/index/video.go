package index

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/streamvault/archiver/internal/client"
	"github.com/streamvault/archiver/internal/config"
	"github.com/streamvault/archiver/internal/media"
	"github.com/streamvault/archiver/internal/model"
)

// MetadataSource extracts raw video metadata, best effort.
type MetadataSource interface {
	Extract(ctx context.Context, youtubeID string, opts client.ExtractOptions) (*client.VideoMetadata, error)
}

// DislikeSource provides optional dislike stats, (nil, nil) means the
// service knows nothing about the video.
type DislikeSource interface {
	Votes(ctx context.Context, youtubeID string) (*client.DislikeStats, error)
}

// SegmentSource provides optional sponsor segments.
type SegmentSource interface {
	Timestamps(ctx context.Context, youtubeID string) (*model.SponsorBlock, error)
}

// MediaProber reads duration, codec metadata and size from a local file.
type MediaProber interface {
	Duration(ctx context.Context, path string) (int, error)
	Streams(ctx context.Context, path string) ([]model.Stream, error)
	FileSize(path string) (int64, error)
}

// VideoOverwrite carries per-video settings that override the global config.
type VideoOverwrite struct {
	IntegrateSponsorBlock *bool `json:"integrate_sponsorblock,omitempty"`
}

// BuildOptions configures a single document build.
type BuildOptions struct {
	VideoType model.VideoType
	// Overrides is the offline-import metadata source used when the live
	// extractor yields nothing.
	Overrides *client.VideoMetadata
	// MediaPath skips media file resolution when the caller already knows
	// where the file lives.
	MediaPath string
	// Overwrites maps video ids to their per-video setting overrides.
	Overwrites map[string]VideoOverwrite
}

// BuildResult is a composed in-memory document, nothing is persisted until
// the caller calls Index.
type BuildResult struct {
	Doc           *model.VideoDocument
	OfflineImport bool
}

// Builder composes full video documents from the adapters and maintains the
// cross-referencing indexes on delete.
type Builder struct {
	store     Store
	meta      MetadataSource
	dislikes  DislikeSource
	segments  SegmentSource
	probe     MediaProber
	channels  *ChannelResolver
	comments  *Comments
	downloads config.DownloadsConfig
	paths     config.PathsConfig
}

func NewBuilder(
	store Store,
	meta MetadataSource,
	dislikes DislikeSource,
	segments SegmentSource,
	probe MediaProber,
	cfg *config.Config,
) *Builder {
	return &Builder{
		store:     store,
		meta:      meta,
		dislikes:  dislikes,
		segments:  segments,
		probe:     probe,
		channels:  NewChannelResolver(store),
		comments:  NewComments(store, meta, cfg.Downloads),
		downloads: cfg.Downloads,
		paths:     cfg.Paths,
	}
}

// Build composes the full document for one video. It returns ErrNoMetadata
// when extraction fails without an override and ErrMediaNotFound when no
// local media file can be resolved. Optional enrichment sources never fail
// the build.
func (b *Builder) Build(ctx context.Context, youtubeID string, opts BuildOptions) (*BuildResult, error) {
	if opts.VideoType == "" {
		opts.VideoType = model.VideoTypeVideo
	}
	if err := opts.VideoType.Validate(); err != nil {
		return nil, err
	}

	meta, err := b.meta.Extract(ctx, youtubeID, client.ExtractOptions{})
	offline := false
	if err != nil || meta == nil {
		if opts.Overrides == nil {
			return nil, ErrNoMetadata
		}
		meta = opts.Overrides
		offline = true
	}

	doc := buildBase(youtubeID, meta, opts.VideoType)

	channel, err := b.channels.Resolve(ctx, meta.ChannelID, meta)
	if err != nil {
		return nil, err
	}
	doc.Channel = channel
	doc.MediaURL = channel.ChannelID + "/" + youtubeID + ".mp4"

	mediaPath, err := b.resolveMediaPath(youtubeID, channel.ChannelID, opts.MediaPath)
	if err != nil {
		return nil, err
	}
	b.addPlayer(ctx, doc, mediaPath)
	b.addStreams(ctx, doc, mediaPath)

	if b.downloads.IntegrateRYD {
		b.addDislikeStats(ctx, doc)
	}
	if b.sponsorBlockEnabled(youtubeID, opts.Overwrites) {
		b.addSponsorBlock(ctx, doc)
	}

	return &BuildResult{Doc: doc, OfflineImport: offline}, nil
}

// ResolveSubtitles attaches subtitle records to a built document. Offline
// imports resolve from the supplied files, the live subtitle download path
// is handled by the external download engine.
func (b *Builder) ResolveSubtitles(result *BuildResult, subtitleFiles []string) {
	if result.OfflineImport && len(subtitleFiles) > 0 {
		result.Doc.Subtitles = OfflineSubtitles(result.Doc.MediaURL, subtitleFiles)
	}
}

// Index persists a built document.
func (b *Builder) Index(ctx context.Context, doc *model.VideoDocument) error {
	_, status, err := b.store.Put(ctx, IndexVideo+"/_doc/"+doc.YoutubeID, doc)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("failed to index video %s, status %d", doc.YoutubeID, status)
	}
	return nil
}

// IndexNewVideo builds and persists one video, the combined entry point.
func (b *Builder) IndexNewVideo(ctx context.Context, youtubeID string, opts BuildOptions) (*model.VideoDocument, error) {
	result, err := b.Build(ctx, youtubeID, opts)
	if err != nil {
		return nil, err
	}
	b.ResolveSubtitles(result, nil)
	if err := b.Index(ctx, result.Doc); err != nil {
		return nil, err
	}
	return result.Doc, nil
}

// GetVideo loads the stored document, ErrNotFound when absent.
func (b *Builder) GetVideo(ctx context.Context, youtubeID string) (*model.VideoDocument, error) {
	body, status, err := b.store.Get(ctx, IndexVideo+"/_doc/"+youtubeID)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("video lookup for %s failed with status %d", youtubeID, status)
	}

	var envelope docResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal video response: %w", err)
	}
	var doc model.VideoDocument
	if err := json.Unmarshal(envelope.Source, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal video %s: %w", youtubeID, err)
	}

	return &doc, nil
}

// UpdateMediaURL patches only the media_url field, used after channel
// directory renames.
func (b *Builder) UpdateMediaURL(ctx context.Context, youtubeID, mediaURL string) error {
	update := map[string]any{"doc": map[string]any{"media_url": mediaURL}}
	_, status, err := b.store.Post(ctx, IndexVideo+"/_update/"+youtubeID, update)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("failed to update media_url for %s, status %d", youtubeID, status)
	}
	return nil
}

func buildBase(youtubeID string, meta *client.VideoMetadata, videoType model.VideoType) *model.VideoDocument {
	lastRefresh := time.Now().Unix()

	published := meta.UploadDate
	if parsed, err := time.Parse("20060102", meta.UploadDate); err == nil {
		published = parsed.Format("2006-01-02")
	}

	return &model.VideoDocument{
		YoutubeID:      youtubeID,
		Title:          meta.Title,
		Description:    meta.Description,
		Category:       meta.Categories,
		VidThumbURL:    meta.Thumbnail,
		Tags:           meta.Tags,
		Published:      published,
		VidLastRefresh: lastRefresh,
		DateDownloaded: lastRefresh,
		VidType:        videoType,
		Active:         true,
		Stats: model.Stats{
			ViewCount:     meta.ViewCount,
			LikeCount:     meta.LikeCount,
			DislikeCount:  meta.DislikeCount,
			AverageRating: meta.AverageRating,
		},
	}
}

// resolveMediaPath prefers the explicit caller path, then the download
// cache, then the channel-organized archive location.
func (b *Builder) resolveMediaPath(youtubeID, channelID, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	cachePath := filepath.Join(b.paths.CacheDir, "download", youtubeID+".mp4")
	if _, err := os.Stat(cachePath); err == nil {
		return cachePath, nil
	}

	channelPath := filepath.Join(b.paths.VideoDir, channelID, youtubeID+".mp4")
	if _, err := os.Stat(channelPath); err == nil {
		return channelPath, nil
	}

	return "", fmt.Errorf("%w: %s", ErrMediaNotFound, youtubeID)
}

func (b *Builder) addPlayer(ctx context.Context, doc *model.VideoDocument, mediaPath string) {
	duration, err := b.probe.Duration(ctx, mediaPath)
	if err != nil {
		log.Printf("%s: failed to probe duration: %v", doc.YoutubeID, err)
	}
	doc.Player = model.Player{
		Watched:     false,
		Duration:    duration,
		DurationStr: media.DurationString(duration),
	}
}

func (b *Builder) addStreams(ctx context.Context, doc *model.VideoDocument, mediaPath string) {
	streams, err := b.probe.Streams(ctx, mediaPath)
	if err != nil {
		log.Printf("%s: failed to probe streams: %v", doc.YoutubeID, err)
	}
	doc.Streams = streams

	size, err := b.probe.FileSize(mediaPath)
	if err != nil {
		log.Printf("%s: failed to read file size: %v", doc.YoutubeID, err)
	}
	doc.MediaSize = size
}

// addDislikeStats queries the optional rating service. Errors and definitive
// not-found responses both leave the stats untouched.
func (b *Builder) addDislikeStats(ctx context.Context, doc *model.VideoDocument) {
	log.Printf("%s: get ryd stats", doc.YoutubeID)
	stats, err := b.dislikes.Votes(ctx, doc.YoutubeID)
	if err != nil {
		log.Printf("%s: failed to query ryd api: %v", doc.YoutubeID, err)
		return
	}
	if stats == nil {
		return
	}

	doc.Stats.DislikeCount = stats.Dislikes
	doc.Stats.AverageRating = stats.Rating
}

func (b *Builder) addSponsorBlock(ctx context.Context, doc *model.VideoDocument) {
	block, err := b.segments.Timestamps(ctx, doc.YoutubeID)
	if err != nil {
		log.Printf("%s: failed to query sponsorblock: %v", doc.YoutubeID, err)
		return
	}
	if block != nil {
		doc.SponsorBlock = block
	}
}

// sponsorBlockEnabled resolves the per-video overwrite against the global
// integration flag.
func (b *Builder) sponsorBlockEnabled(youtubeID string, overwrites map[string]VideoOverwrite) bool {
	if overwrite, ok := overwrites[youtubeID]; ok && overwrite.IntegrateSponsorBlock != nil {
		return *overwrite.IntegrateSponsorBlock
	}
	return b.downloads.IntegrateSponsorBlock
}
