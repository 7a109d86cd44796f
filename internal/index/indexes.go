package index

import (
	"context"
	"encoding/json"
	"errors"
)

// Index names in the document store.
const (
	IndexVideo    = "ta_video"
	IndexChannel  = "ta_channel"
	IndexPlaylist = "ta_playlist"
	IndexComment  = "ta_comment"
	IndexSubtitle = "ta_subtitle"
	IndexDownload = "ta_download"
)

// All lists every known index, the backup engine dumps them in this order.
var All = []string{
	IndexVideo,
	IndexChannel,
	IndexPlaylist,
	IndexComment,
	IndexSubtitle,
	IndexDownload,
}

var (
	// ErrNoMetadata means extraction failed and no override was supplied,
	// the caller must not index a partial document.
	ErrNoMetadata = errors.New("no metadata available")
	// ErrNotFound means the requested document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrMediaNotFound means no local media file could be resolved.
	ErrMediaNotFound = errors.New("media file not found")
)

// Store is the slice of the document store client this package needs.
type Store interface {
	Get(ctx context.Context, path string) (json.RawMessage, int, error)
	Post(ctx context.Context, path string, body any) (json.RawMessage, int, error)
	Put(ctx context.Context, path string, body any) (json.RawMessage, int, error)
	Delete(ctx context.Context, path string, refresh bool) (json.RawMessage, int, error)
}

// docResponse is the store's single-document GET envelope.
type docResponse struct {
	Source json.RawMessage `json:"_source"`
	Found  bool            `json:"found"`
}
