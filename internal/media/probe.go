package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/streamvault/archiver/internal/model"
)

// Probe extracts duration and stream metadata from local media files by
// shelling out to ffprobe.
type Probe struct {
	bin string
}

func NewProbe(bin string) *Probe {
	return &Probe{bin: bin}
}

// Duration reads the container duration in whole seconds, 0 when the file
// reports none.
func (p *Probe) Duration(ctx context.Context, path string) (int, error) {
	cmd := exec.CommandContext(ctx, p.bin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe duration failed for %s: %w", path, err)
	}

	raw := strings.TrimSpace(stdout.String())
	if raw == "N/A" {
		return 0, nil
	}
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration %q: %w", raw, err)
	}

	return int(seconds), nil
}

// Streams parses codec metadata from all media streams in the file.
func (p *Probe) Streams(ctx context.Context, path string) ([]model.Stream, error) {
	cmd := exec.CommandContext(ctx, p.bin,
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		path,
	)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		// unreadable file is not fatal, document just carries no streams
		return nil, nil
	}

	var probed struct {
		Streams []rawStream `json:"streams"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &probed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ffprobe output: %w", err)
	}

	var streams []model.Stream
	for _, raw := range probed.Streams {
		if stream, ok := raw.toStream(); ok {
			streams = append(streams, stream)
		}
	}

	return streams, nil
}

// FileSize returns the media file size in bytes.
func (p *Probe) FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return info.Size(), nil
}

type rawStream struct {
	CodecType string `json:"codec_type"`
	CodecName string `json:"codec_name"`
	Index     int    `json:"index"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	BitRate   string `json:"bit_rate"`
}

func (r rawStream) toStream() (model.Stream, bool) {
	switch r.CodecType {
	case "video":
		if r.BitRate == "" {
			// embedded thumbnail track
			return model.Stream{}, false
		}
		return model.Stream{
			Type:    "video",
			Index:   r.Index,
			Codec:   r.CodecName,
			Width:   r.Width,
			Height:  r.Height,
			Bitrate: parseBitrate(r.BitRate),
		}, true
	case "audio":
		codec := r.CodecName
		if codec == "" {
			codec = "undefined"
		}
		return model.Stream{
			Type:    "audio",
			Index:   r.Index,
			Codec:   codec,
			Bitrate: parseBitrate(r.BitRate),
		}, true
	}
	return model.Stream{}, false
}

func parseBitrate(raw string) int64 {
	bitrate, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return bitrate
}

// DurationString renders seconds as a play-time display string, days first,
// "NA" when the duration could not be extracted.
func DurationString(seconds int) string {
	if seconds == 0 {
		return "NA"
	}

	days := seconds / (24 * 3600)
	hours := (seconds % (24 * 3600)) / 3600
	minutes := (seconds % 3600) / 60

	var out strings.Builder
	if days > 0 {
		fmt.Fprintf(&out, "%dd ", days)
	}
	if hours > 0 {
		fmt.Fprintf(&out, "%02d:", hours)
	}
	if minutes > 0 {
		fmt.Fprintf(&out, "%02d:", minutes)
	} else {
		out.WriteString("00:")
	}
	fmt.Fprintf(&out, "%02d", seconds%60)

	return out.String()
}
