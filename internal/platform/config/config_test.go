package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_defaults(t *testing.T) {
	for _, k := range []string{"PORT", "FFMPEG_PATH", "FETCH_TIMEOUT", "TRANSCODE_TIMEOUT", "RATE_LIMIT_REQUESTS"} {
		t.Setenv(k, "")
	}

	cfg := FromEnv()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 2*time.Hour, cfg.TranscodeTimeout)
	assert.Equal(t, 30, cfg.RateLimitRequests)
}

func TestFromEnv_overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("FFMPEG_PATH", "/opt/ffmpeg/bin/ffmpeg")
	t.Setenv("FETCH_TIMEOUT", "5s")
	t.Setenv("MAX_MANIFEST_BYTES", "1024")

	cfg := FromEnv()
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.Equal(t, int64(1024), cfg.MaxManifestBytes)
}

func TestGetEnvDuration_invalid(t *testing.T) {
	t.Setenv("X_DURATION", "soon")
	assert.Equal(t, time.Minute, GetEnvDuration("X_DURATION", time.Minute))

	t.Setenv("X_DURATION", "-5s")
	assert.Equal(t, time.Minute, GetEnvDuration("X_DURATION", time.Minute))
}

func TestGetEnvInt_invalid(t *testing.T) {
	t.Setenv("X_INT", "ten")
	assert.Equal(t, 10, GetEnvInt("X_INT", 10))
}

func TestLoad_dotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("HLSDL_TEST_KEY=from-dotenv\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("HLSDL_TEST_KEY") })

	require.NoError(t, Load(path))
	assert.Equal(t, "from-dotenv", GetEnv("HLSDL_TEST_KEY", "fallback"))
}

func TestLoad_missingFile(t *testing.T) {
	assert.Error(t, Load(filepath.Join(t.TempDir(), "missing.env")))
}
