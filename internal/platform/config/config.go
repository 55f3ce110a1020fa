package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the runtime configuration of the download service.
type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	// FFmpegPath is the transcoder binary; it must be on PATH when not absolute.
	FFmpegPath string
	// WorkDir is the parent of every per-request workspace directory.
	WorkDir string

	FetchTimeout     time.Duration
	TranscodeTimeout time.Duration
	MaxManifestBytes int64
	UserAgent        string

	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Load reads the .env file from the current working directory and sets
// environment variables. If .env does not exist, Load returns an error but
// callers can ignore it and use system env or defaults. Pass one or more paths
// to load from specific files (e.g. ".env"); with no paths, ".env" is used.
func Load(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}

// FromEnv builds a Config from the environment, applying defaults for every
// key that is unset or invalid.
func FromEnv() Config {
	return Config{
		Port:              GetEnv("PORT", "8080"),
		LogLevel:          GetEnv("LOG_LEVEL", "info"),
		LogFormat:         GetEnv("LOG_FORMAT", "json"),
		FFmpegPath:        GetEnv("FFMPEG_PATH", "ffmpeg"),
		WorkDir:           GetEnv("WORK_DIR", filepath.Join(os.TempDir(), "hls-downloader")),
		FetchTimeout:      GetEnvDuration("FETCH_TIMEOUT", 30*time.Second),
		TranscodeTimeout:  GetEnvDuration("TRANSCODE_TIMEOUT", 2*time.Hour),
		MaxManifestBytes:  int64(GetEnvInt("MAX_MANIFEST_BYTES", 10<<20)),
		UserAgent:         GetEnv("USER_AGENT", "hls-downloader/1.0"),
		RateLimitRequests: GetEnvInt("RATE_LIMIT_REQUESTS", 30),
		RateLimitWindow:   GetEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
	}
}

// GetEnv returns the value of the environment variable named by key, or fallback
// if the variable is unset or empty.
func GetEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

// GetEnvInt returns the integer value of the environment variable named by key,
// or fallback if the variable is unset, empty, or not a valid integer.
func GetEnvInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}

// GetEnvDuration parses the variable with time.ParseDuration ("90s", "2h").
// Unset, empty, invalid or non-positive values yield fallback.
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
