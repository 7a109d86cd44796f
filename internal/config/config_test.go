package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommentsEnabled(t *testing.T) {
	assert.False(t, DownloadsConfig{}.CommentsEnabled())
	assert.True(t, DownloadsConfig{CommentMax: "100,all,100,10"}.CommentsEnabled())
}

func TestCommentLimits(t *testing.T) {
	assert.Nil(t, DownloadsConfig{}.CommentLimits())

	d := DownloadsConfig{CommentMax: "100, all ,100,10"}
	assert.Equal(t, []string{"100", "all", "100", "10"}, d.CommentLimits())
}
