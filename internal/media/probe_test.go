package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDurationString(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "NA"},
		{59, "00:59"},
		{61, "01:01"},
		{600, "10:00"},
		{3661, "01:01:01"},
		{7325, "02:02:05"},
		{90000, "1d 01:00:00"},
		{180122, "2d 02:02:02"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DurationString(tt.seconds), "seconds=%d", tt.seconds)
	}
}

func TestRawStreamConversion(t *testing.T) {
	video := rawStream{CodecType: "video", CodecName: "h264", Index: 0, Width: 1920, Height: 1080, BitRate: "2500000"}
	stream, ok := video.toStream()
	assert.True(t, ok)
	assert.Equal(t, "video", stream.Type)
	assert.Equal(t, int64(2500000), stream.Bitrate)
	assert.Equal(t, 1920, stream.Width)

	// video stream without a bitrate is an embedded thumbnail
	thumb := rawStream{CodecType: "video", CodecName: "mjpeg", Index: 2}
	_, ok = thumb.toStream()
	assert.False(t, ok)

	audio := rawStream{CodecType: "audio", Index: 1, BitRate: "128000"}
	stream, ok = audio.toStream()
	assert.True(t, ok)
	assert.Equal(t, "undefined", stream.Codec)

	sub := rawStream{CodecType: "subtitle", Index: 3}
	_, ok = sub.toStream()
	assert.False(t, ok)
}
