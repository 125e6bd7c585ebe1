package catalog

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errpkg "github.com/veranemoloko/soundtrack-downloader/internal/errors"
	"github.com/veranemoloko/soundtrack-downloader/internal/fetch"
	"github.com/veranemoloko/soundtrack-downloader/internal/scraper"
)

const albumPage = `<html><head><title>Chrono Trigger MP3 - Download</title></head><body>
<table id="songlist">
<tr id="songlist_header"><th>Song</th></tr>
<tr><td class="clickable-row"><a href="/game-soundtracks/album/chrono/01.mp3">Prologue</a></td></tr>
<tr><td class="clickable-row"><a href="/game-soundtracks/album/chrono/02.mp3">Battle</a></td></tr>
</table></body></html>`

func newTestClient(t *testing.T) (*Client, *httptest.Server) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("search") != "chrono trigger" {
			io.WriteString(w, `<html><body>nothing</body></html>`)
			return
		}
		io.WriteString(w, `<table id="albumlist"><tr><td><a href="/game-soundtracks/album/chrono">Chrono Trigger</a></td></tr></table>`)
	})
	mux.HandleFunc("/game-soundtracks/album/chrono", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, albumPage)
	})
	mux.HandleFunc("/game-soundtracks/album/chrono/01.mp3", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<a class="songDownloadLink" href="/files/01.mp3">Download</a>`)
	})
	mux.HandleFunc("/game-soundtracks/album/chrono/02.mp3", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<p>no link</p>`)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, `<div id="homepagePopularSeries"><a class="mainlevel" href="/mario">Mario</a></div>
<h2>Latest Soundtracks</h2><p><a href="/game-soundtracks/album/chrono">Chrono Trigger</a></p>`)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	parser, err := scraper.New(server.URL, []string{"vgmsite.com"})
	require.NoError(t, err)

	f := fetch.New(fetch.Options{
		Timeout:     2 * time.Second,
		MaxAttempts: 2,
		BackoffBase: time.Millisecond,
		Logger:      logger,
	})
	return NewClient(f, parser, logger), server
}

func TestClient_Search(t *testing.T) {
	c, server := newTestClient(t)

	results := c.Search(context.Background(), "  chrono trigger ")
	require.Len(t, results, 1)
	assert.Equal(t, "chrono", results[0].ID)
	assert.Equal(t, server.URL+"/game-soundtracks/album/chrono", results[0].URL)

	assert.Empty(t, c.Search(context.Background(), "unknown"))
	assert.Empty(t, c.Search(context.Background(), "   "))
}

func TestClient_Search_UnreachableSiteReturnsEmpty(t *testing.T) {
	c, server := newTestClient(t)
	server.Close()

	results := c.Search(context.Background(), "chrono trigger")
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestClient_HomeSections(t *testing.T) {
	c, _ := newTestClient(t)

	sections := c.HomeSections(context.Background())
	require.Len(t, sections.Popular, 1)
	assert.Equal(t, "mario", sections.Popular[0].ID)
	require.Len(t, sections.Latest, 1)
	assert.Equal(t, "chrono", sections.Latest[0].ID)
}

func TestClient_AlbumDetail_ByIDAndURL(t *testing.T) {
	c, server := newTestClient(t)

	byID, err := c.AlbumDetail(context.Background(), "chrono")
	require.NoError(t, err)
	assert.Equal(t, "chrono", byID.ID)
	assert.Equal(t, "Chrono Trigger", byID.Title)
	assert.Equal(t, 2, byID.TotalTracks)

	byURL, err := c.AlbumDetail(context.Background(), server.URL+"/game-soundtracks/album/chrono")
	require.NoError(t, err)
	assert.Equal(t, byID, byURL)
}

func TestClient_AlbumDetail_NotFound(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.AlbumDetail(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errpkg.ErrAlbumNotFound))
	assert.True(t, IsNotFound(err))

	_, err = c.AlbumDetail(context.Background(), "")
	assert.ErrorIs(t, err, errpkg.ErrAlbumNotFound)
}

func TestClient_ResolveAudioLink(t *testing.T) {
	c, server := newTestClient(t)
	ctx := context.Background()

	link, err := c.ResolveAudioLink(ctx, server.URL+"/game-soundtracks/album/chrono/01.mp3")
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/files/01.mp3", link)

	again, err := c.ResolveAudioLink(ctx, server.URL+"/game-soundtracks/album/chrono/01.mp3")
	require.NoError(t, err)
	assert.Equal(t, link, again)

	_, err = c.ResolveAudioLink(ctx, server.URL+"/game-soundtracks/album/chrono/02.mp3")
	assert.ErrorIs(t, err, errpkg.ErrAudioLinkNotFound)

	_, err = c.ResolveAudioLink(ctx, server.URL+"/nowhere")
	assert.ErrorIs(t, err, errpkg.ErrAudioLinkNotFound)
}

func TestClient_AlbumDetail_ForbiddenIsLogged(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(server.Close)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	parser, err := scraper.New(server.URL, nil)
	require.NoError(t, err)
	f := fetch.New(fetch.Options{
		Timeout:     2 * time.Second,
		MaxAttempts: 3,
		BackoffBase: time.Millisecond,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	c := NewClient(f, parser, logger)

	_, err = c.AlbumDetail(context.Background(), "chrono")
	assert.ErrorIs(t, err, errpkg.ErrAlbumNotFound)
	assert.Equal(t, int32(3), hits.Load())
	assert.Contains(t, logs.String(), "Site refused the request with every identity")
}
