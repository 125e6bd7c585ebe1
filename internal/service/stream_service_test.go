package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veranemoloko/soundtrack-downloader/internal/catalog"
	errpkg "github.com/veranemoloko/soundtrack-downloader/internal/errors"
	"github.com/veranemoloko/soundtrack-downloader/internal/scraper"
)

func newStreamEnv(t *testing.T) (*StreamService, *httptest.Server) {
	t.Helper()

	full := strings.Repeat("x", 1000)
	mux := http.NewServeMux()
	mux.HandleFunc("/track/ok", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<audio src="/audio/ok.mp3"></audio>`)
	})
	mux.HandleFunc("/track/gone", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<a class="songDownloadLink" href="/audio/gone.mp3">dl</a>`)
	})
	mux.HandleFunc("/track/empty", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<p>nothing</p>`)
	})
	mux.HandleFunc("/audio/ok.mp3", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Range") == "bytes=100-" {
			w.Header().Set("Content-Type", "audio/mpeg")
			w.Header().Set("Content-Range", "bytes 100-999/1000")
			w.Header().Set("ETag", `"abc"`)
			w.WriteHeader(http.StatusPartialContent)
			io.WriteString(w, full[100:])
			return
		}
		w.Header().Set("Content-Type", "audio/ogg")
		w.Header().Set("Cache-Control", "max-age=60")
		io.WriteString(w, full)
	})
	mux.HandleFunc("/audio/gone.mp3", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	parser, err := scraper.New(server.URL, nil)
	require.NoError(t, err)
	f := newFetcher()
	return NewStreamService(catalog.NewClient(f, parser, quietLogger), f, quietLogger), server
}

func TestStream_RangePassthrough(t *testing.T) {
	svc, server := newStreamEnv(t)

	res, err := svc.Stream(context.Background(), server.URL+"/track/ok", "bytes=100-")
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusPartialContent, res.Status)
	assert.Equal(t, "bytes 100-999/1000", res.Header.Get("Content-Range"))
	assert.Equal(t, "900", res.Header.Get("Content-Length"))
	assert.Equal(t, "audio/mpeg", res.Header.Get("Content-Type"))
	assert.Equal(t, `"abc"`, res.Header.Get("ETag"))
	assert.Equal(t, "bytes", res.Header.Get("Accept-Ranges"))
	assert.Equal(t, "no-store", res.Header.Get("Cache-Control"))

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Len(t, body, 900)
}

func TestStream_FullBodyKeepsUpstreamHeaders(t *testing.T) {
	svc, server := newStreamEnv(t)

	res, err := svc.Stream(context.Background(), server.URL+"/track/ok", "")
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "audio/ogg", res.Header.Get("Content-Type"))
	assert.Equal(t, "max-age=60", res.Header.Get("Cache-Control"))
	assert.Equal(t, "bytes", res.Header.Get("Accept-Ranges"))
}

func TestStream_UpstreamErrorStatusBecomesOK(t *testing.T) {
	svc, server := newStreamEnv(t)

	res, err := svc.Stream(context.Background(), server.URL+"/track/gone", "")
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.Status)
}

func TestStream_LinkNotFound(t *testing.T) {
	svc, server := newStreamEnv(t)

	_, err := svc.Stream(context.Background(), server.URL+"/track/empty", "")
	assert.ErrorIs(t, err, errpkg.ErrAudioLinkNotFound)
}
