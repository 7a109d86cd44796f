package config

import (
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Store     StoreConfig
	Paths     PathsConfig
	Downloads DownloadsConfig
	Backup    BackupConfig
	Binaries  BinariesConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// StoreConfig points at the document store holding all indexes.
type StoreConfig struct {
	URL      string
	User     string
	Password string
}

type PathsConfig struct {
	// CacheDir holds the download cache and the backup working directory.
	CacheDir string
	// VideoDir is the root of the channel-organized media archive.
	VideoDir string
}

// DownloadsConfig carries the enablement flags read by the adapters and the
// comment subsystem. Resolved once at startup, passed by reference.
type DownloadsConfig struct {
	// CommentMax is the extractor comment limit list
	// (max-comments,max-parents,max-replies,max-replies-per-thread).
	// Empty string disables comment indexing entirely.
	CommentMax  string
	CommentSort string

	IntegrateRYD          bool
	IntegrateSponsorBlock bool
}

// CommentsEnabled reports whether comment indexing is switched on.
func (d DownloadsConfig) CommentsEnabled() bool {
	return d.CommentMax != ""
}

// CommentLimits splits CommentMax into the extractor's limit list.
func (d DownloadsConfig) CommentLimits() []string {
	if d.CommentMax == "" {
		return nil
	}
	parts := strings.Split(d.CommentMax, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

type BackupConfig struct {
	// RotateKeep is how many automatic backups survive rotation, 0 disables.
	RotateKeep int
	PageSize   int
}

type BinariesConfig struct {
	YtDlp   string
	FFprobe string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("store.url", "http://localhost:9200")
	viper.SetDefault("store.user", "elastic")
	viper.SetDefault("store.password", "")
	viper.SetDefault("paths.cache_dir", "/cache")
	viper.SetDefault("paths.video_dir", "/youtube")
	viper.SetDefault("downloads.comment_max", "")
	viper.SetDefault("downloads.comment_sort", "top")
	viper.SetDefault("downloads.integrate_ryd", false)
	viper.SetDefault("downloads.integrate_sponsorblock", false)
	viper.SetDefault("backup.rotate_keep", 0)
	viper.SetDefault("backup.page_size", 500)
	viper.SetDefault("binaries.yt_dlp", "yt-dlp")
	viper.SetDefault("binaries.ffprobe", "ffprobe")

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
			Env:  viper.GetString("server.env"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Store: StoreConfig{
			URL:      viper.GetString("store.url"),
			User:     viper.GetString("store.user"),
			Password: viper.GetString("store.password"),
		},
		Paths: PathsConfig{
			CacheDir: viper.GetString("paths.cache_dir"),
			VideoDir: viper.GetString("paths.video_dir"),
		},
		Downloads: DownloadsConfig{
			CommentMax:            viper.GetString("downloads.comment_max"),
			CommentSort:           viper.GetString("downloads.comment_sort"),
			IntegrateRYD:          viper.GetBool("downloads.integrate_ryd"),
			IntegrateSponsorBlock: viper.GetBool("downloads.integrate_sponsorblock"),
		},
		Backup: BackupConfig{
			RotateKeep: viper.GetInt("backup.rotate_keep"),
			PageSize:   viper.GetInt("backup.page_size"),
		},
		Binaries: BinariesConfig{
			YtDlp:   viper.GetString("binaries.yt_dlp"),
			FFprobe: viper.GetString("binaries.ffprobe"),
		},
	}

	return cfg, nil
}
