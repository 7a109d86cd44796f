package index

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
)

// DeleteVideo removes a video and all its dependents in dependency-safe
// order: media file, playlist entries, the document itself, subtitles,
// comments. A missing media file is logged and skipped, once the document is
// deleted the operation counts as committed even if later cleanup fails.
func (b *Builder) DeleteVideo(ctx context.Context, youtubeID string) error {
	log.Printf("%s: delete video", youtubeID)

	doc, err := b.GetVideo(ctx, youtubeID)
	if err != nil {
		return err
	}

	mediaPath := filepath.Join(b.paths.VideoDir, doc.MediaURL)
	if err := os.Remove(mediaPath); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove media file: %w", err)
		}
		log.Printf("%s: failed %s, continue.", youtubeID, doc.MediaURL)
	}

	if err := b.removeFromPlaylists(ctx, doc.YoutubeID, doc.Playlists); err != nil {
		return err
	}

	if _, status, err := b.store.Delete(ctx, IndexVideo+"/_doc/"+youtubeID, true); err != nil {
		return err
	} else if status < 200 || status >= 300 {
		return fmt.Errorf("failed to delete video %s, status %d", youtubeID, status)
	}

	if err := DeleteSubtitles(ctx, b.store, youtubeID); err != nil {
		return err
	}

	if b.downloads.CommentsEnabled() {
		if err := b.comments.Delete(ctx, youtubeID); err != nil {
			return err
		}
	}

	return nil
}

// removeFromPlaylists flips the downloaded flag to false on the matching
// entry of every playlist the video belongs to. Entries are matched by video
// id since playlists reorder, and each playlist is written back in full.
func (b *Builder) removeFromPlaylists(ctx context.Context, youtubeID string, playlists []string) error {
	for _, playlistID := range playlists {
		log.Printf("%s: delete video %s", playlistID, youtubeID)

		body, status, err := b.store.Get(ctx, IndexPlaylist+"/_doc/"+playlistID)
		if err != nil {
			return err
		}
		if status == http.StatusNotFound {
			log.Printf("%s: playlist not found, skip", playlistID)
			continue
		}
		if status != http.StatusOK {
			return fmt.Errorf("playlist lookup for %s failed with status %d", playlistID, status)
		}

		var envelope docResponse
		if err := json.Unmarshal(body, &envelope); err != nil {
			return fmt.Errorf("failed to unmarshal playlist response: %w", err)
		}
		var playlist map[string]json.RawMessage
		if err := json.Unmarshal(envelope.Source, &playlist); err != nil {
			return fmt.Errorf("failed to unmarshal playlist %s: %w", playlistID, err)
		}

		var entries []map[string]any
		if err := json.Unmarshal(playlist["playlist_entries"], &entries); err != nil {
			return fmt.Errorf("failed to unmarshal playlist entries of %s: %w", playlistID, err)
		}
		for i := range entries {
			if entries[i]["youtube_id"] == youtubeID {
				entries[i]["downloaded"] = false
			}
		}
		updated, err := json.Marshal(entries)
		if err != nil {
			return fmt.Errorf("failed to marshal playlist entries: %w", err)
		}
		playlist["playlist_entries"] = updated

		if _, status, err := b.store.Put(ctx, IndexPlaylist+"/_doc/"+playlistID, playlist); err != nil {
			return err
		} else if status < 200 || status >= 300 {
			return fmt.Errorf("failed to update playlist %s, status %d", playlistID, status)
		}
	}

	return nil
}
