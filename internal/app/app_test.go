package app

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veranemoloko/soundtrack-downloader/internal/config"
)

func testConfig(dir string) *config.Config {
	return &config.Config{
		HTTPPort:               8080,
		BaseURL:                "https://downloads.khinsider.com",
		FetchTimeout:           time.Second,
		StreamTimeout:          time.Second,
		MaxFetchAttempts:       1,
		BackoffBase:            time.Millisecond,
		RequestsPerSec:         4,
		RequestBurst:           4,
		DownloadDir:            filepath.Join(dir, "music"),
		DownloadTimeout:        time.Second,
		MaxConcurrentDownloads: 1,
		MinTrackBytes:          1000,
		MaxFileSize:            1 << 20,
		StateFile:              "./data/sessions.json",
		SessionTTL:             time.Hour,
		MaxSessions:            10,
	}
}

func TestNew_StateDirectoryOnlyWhenPersisting(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := New(testConfig(dir), logger, false)
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(dir, "data"))

	_, err = New(testConfig(dir), logger, true)
	require.NoError(t, err)
	assert.DirExists(t, filepath.Join(dir, "data"))
}

func TestApp_RouterServesHealth(t *testing.T) {
	dir := t.TempDir()
	a, err := New(testConfig(dir), slog.New(slog.NewTextHandler(io.Discard, nil)), false)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
