package model

// CommentThread is the per-video comment document, keyed by video id.
type CommentThread struct {
	YoutubeID          string    `json:"youtube_id"`
	CommentLastRefresh int64     `json:"comment_last_refresh"`
	CommentChannelID   string    `json:"comment_channel_id"`
	CommentComments    []Comment `json:"comment_comments"`
}

// Comment is a single cleaned comment. Comments with empty text are dropped
// before a thread is ever persisted.
type Comment struct {
	CommentID               string `json:"comment_id"`
	CommentText             string `json:"comment_text"`
	CommentTimestamp        int64  `json:"comment_timestamp"`
	CommentTimeText         string `json:"comment_time_text"`
	CommentLikecount        *int64 `json:"comment_likecount"`
	CommentIsFavorited      bool   `json:"comment_is_favorited"`
	CommentAuthor           string `json:"comment_author"`
	CommentAuthorID         string `json:"comment_author_id"`
	CommentAuthorThumbnail  string `json:"comment_author_thumbnail"`
	CommentAuthorIsUploader bool   `json:"comment_author_is_uploader"`
	CommentParent           string `json:"comment_parent"`
}
