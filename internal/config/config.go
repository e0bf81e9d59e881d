package config

import (
	"log"
	"os"
	"path/filepath"
	"time"
)

var Version = "dev"

var (
	Port    string
	EnvMode string

	AdminUserID  string
	LogChannelID string

	DataDir string
	TempDir string

	YtdlpPath  string
	FFmpegPath string
)

const (
	GrantsFile = "sudo_users.json"
	GuildsFile = "authorized_guilds.json"

	// Discord caps uploads for regular bots; anything larger is reported
	// instead of attached.
	MaxUploadSize = 25 * 1024 * 1024

	DownloadAttempts = 3
	RetryBackoffUnit = 5 * time.Second

	ProbeTimeout    = 2 * time.Minute
	DownloadTimeout = 2 * time.Hour

	MaxConcurrentDownloads = 3

	MaxURLLength  = 2048
	FileRetention = 30 * time.Minute

	RateLimitWindow = 60 * time.Second
	RateLimitMax    = 60
)

// Grant duration units are calendar-naive fixed multipliers. A month is
// always 30 days and a year 365, matching the persisted epoch math.
var DurationUnits = map[string]int64{
	"h": 3600,
	"d": 86400,
	"w": 604800,
	"m": 2592000,
	"y": 31536000,
}

var TempDirs = map[string]string{}

func Load() {
	Port = envOrDefault("PORT", "3001")
	EnvMode = envOrDefault("GO_ENV", "development")

	AdminUserID = os.Getenv("ADMIN_USER_ID")
	LogChannelID = os.Getenv("LOG_CHANNEL_ID")

	DataDir = envOrDefault("DATA_DIR", "data")
	TempDir = envOrDefault("TEMP_DIR", filepath.Join(os.TempDir(), "crunchbot"))

	YtdlpPath = envOrDefault("YTDLP_PATH", "yt-dlp")
	FFmpegPath = envOrDefault("FFMPEG_PATH", "/usr/bin/ffmpeg")

	TempDirs = map[string]string{
		"downloads": filepath.Join(TempDir, "downloads"),
		"cookies":   filepath.Join(TempDir, "cookies"),
	}

	if LogChannelID == "" {
		log.Println("[WARN] LOG_CHANNEL_ID not set, admin activity log disabled")
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
