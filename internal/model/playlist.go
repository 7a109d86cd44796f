package model

type Playlist struct {
	PlaylistID          string          `json:"playlist_id"`
	PlaylistActive      bool            `json:"playlist_active"`
	PlaylistName        string          `json:"playlist_name"`
	PlaylistChannel     string          `json:"playlist_channel"`
	PlaylistChannelID   string          `json:"playlist_channel_id"`
	PlaylistThumbnail   string          `json:"playlist_thumbnail,omitempty"`
	PlaylistDescription string          `json:"playlist_description,omitempty"`
	PlaylistLastRefresh int64           `json:"playlist_last_refresh"`
	PlaylistSubscribed  bool            `json:"playlist_subscribed"`
	PlaylistEntries     []PlaylistEntry `json:"playlist_entries"`
}

// PlaylistEntry is matched by youtube id, never by position, since playlists
// reorder upstream.
type PlaylistEntry struct {
	YoutubeID  string `json:"youtube_id"`
	Title      string `json:"title"`
	Uploader   string `json:"uploader"`
	Idx        int    `json:"idx"`
	Downloaded bool   `json:"downloaded"`
}
