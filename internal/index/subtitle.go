package index

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/streamvault/archiver/internal/model"
)

// OfflineSubtitles builds subtitle records for caller-supplied files during
// an offline import. The language is taken from the second-to-last filename
// segment ("video.en.vtt" imports as "en").
func OfflineSubtitles(mediaURL string, subtitleFiles []string) []model.Subtitle {
	baseName := strings.TrimSuffix(mediaURL, ".mp4")

	subtitles := make([]model.Subtitle, 0, len(subtitleFiles))
	for _, file := range subtitleFiles {
		parts := strings.Split(file, ".")
		if len(parts) < 2 {
			continue
		}
		lang := parts[len(parts)-2]
		subtitles = append(subtitles, model.Subtitle{
			Ext:      "vtt",
			Name:     lang,
			Lang:     lang,
			Source:   "file",
			MediaURL: fmt.Sprintf("%s.%s.vtt", baseName, lang),
		})
	}

	return subtitles
}

// DeleteSubtitles removes every indexed subtitle of a video.
func DeleteSubtitles(ctx context.Context, store Store, youtubeID string) error {
	log.Printf("%s: delete subtitles", youtubeID)
	query := map[string]any{
		"query": map[string]any{
			"term": map[string]any{
				"youtube_id": map[string]any{"value": youtubeID},
			},
		},
	}

	_, status, err := store.Post(ctx, IndexSubtitle+"/_delete_by_query", query)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("failed to delete subtitles for %s, status %d", youtubeID, status)
	}

	return nil
}
