package repository

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veranemoloko/soundtrack-downloader/internal/domain"
	errpkg "github.com/veranemoloko/soundtrack-downloader/internal/errors"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestStorage(t *testing.T, opts StorageOptions) *SessionStorage {
	t.Helper()
	opts.Logger = quietLogger
	repo, err := NewSessionStorage(opts)
	require.NoError(t, err)
	return repo
}

func setStatus(status domain.SessionStatus) func(*domain.DownloadSession) error {
	return func(s *domain.DownloadSession) error {
		s.Status = status
		return nil
	}
}

func TestSessionStorage_CRUD(t *testing.T) {
	repo := newTestStorage(t, StorageOptions{StateFile: filepath.Join(t.TempDir(), "sessions.json")})
	ctx := context.Background()

	session := &domain.DownloadSession{ID: "s1", AlbumID: "chrono", Status: domain.SessionStatusStarting}
	require.NoError(t, repo.Create(ctx, session))
	assert.ErrorIs(t, repo.Create(ctx, session), errpkg.ErrSessionExists)
	assert.True(t, repo.IsActive("s1"))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "chrono", got.AlbumID)
	assert.False(t, got.CreatedAt.IsZero())

	updated, err := repo.Update(ctx, "s1", func(s *domain.DownloadSession) error {
		s.Status = domain.SessionStatusDownloading
		s.CurrentTrack = 1
		s.TotalTracks = 3
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusDownloading, updated.Status)
	assert.Nil(t, updated.FinishedAt)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, errpkg.ErrSessionNotFound)
}

func TestSessionStorage_GetReturnsCopy(t *testing.T) {
	repo := newTestStorage(t, StorageOptions{})
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &domain.DownloadSession{ID: "s1", Status: domain.SessionStatusStarting}))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	got.Message = "mutated"

	again, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, again.Message)
}

func TestSessionStorage_TerminalIsImmutable(t *testing.T) {
	repo := newTestStorage(t, StorageOptions{})
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &domain.DownloadSession{ID: "s1", Status: domain.SessionStatusStarting}))

	done, err := repo.Update(ctx, "s1", setStatus(domain.SessionStatusCompleted))
	require.NoError(t, err)
	require.NotNil(t, done.FinishedAt)
	assert.False(t, repo.IsActive("s1"))

	_, err = repo.Update(ctx, "s1", setStatus(domain.SessionStatusCancelled))
	assert.ErrorIs(t, err, errpkg.ErrSessionFinished)

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusCompleted, got.Status)
}

func TestSessionStorage_RejectsBackwardTransition(t *testing.T) {
	repo := newTestStorage(t, StorageOptions{})
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &domain.DownloadSession{ID: "s1", Status: domain.SessionStatusDownloading}))

	_, err := repo.Update(ctx, "s1", setStatus(domain.SessionStatusStarting))
	assert.ErrorIs(t, err, errpkg.ErrInvalidTransition)

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusDownloading, got.Status)
}

func TestSessionStorage_UpdateFnErrorAborts(t *testing.T) {
	repo := newTestStorage(t, StorageOptions{})
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &domain.DownloadSession{ID: "s1", Status: domain.SessionStatusStarting}))

	boom := errors.New("boom")
	_, err := repo.Update(ctx, "s1", func(s *domain.DownloadSession) error {
		s.Message = "half-written"
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, got.Message)
}

func TestSessionStorage_Deactivate(t *testing.T) {
	repo := newTestStorage(t, StorageOptions{})
	require.NoError(t, repo.Create(context.Background(), &domain.DownloadSession{ID: "s1", Status: domain.SessionStatusStarting}))

	assert.True(t, repo.Deactivate("s1"))
	assert.False(t, repo.IsActive("s1"))
	assert.False(t, repo.Deactivate("s1"))
	assert.False(t, repo.Deactivate("unknown"))
}

func TestSessionStorage_ListByStatus(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	repo := newTestStorage(t, StorageOptions{Now: clock.Now})
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Create(ctx, &domain.DownloadSession{ID: id, Status: domain.SessionStatusStarting}))
		clock.now = clock.now.Add(time.Second)
	}
	_, err := repo.Update(ctx, "b", setStatus(domain.SessionStatusError))
	require.NoError(t, err)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "c", all[2].ID)

	starting, err := repo.ListByStatus(ctx, domain.SessionStatusStarting)
	require.NoError(t, err)
	require.Len(t, starting, 2)
	assert.Equal(t, "a", starting[0].ID)
	assert.Equal(t, "c", starting[1].ID)
}

func TestSessionStorage_PruneByTTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	repo := newTestStorage(t, StorageOptions{TTL: time.Hour, Now: clock.Now})
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.DownloadSession{ID: "old", Status: domain.SessionStatusStarting}))
	_, err := repo.Update(ctx, "old", setStatus(domain.SessionStatusCompleted))
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, &domain.DownloadSession{ID: "running", Status: domain.SessionStatusStarting}))

	clock.now = clock.now.Add(2 * time.Hour)
	assert.Equal(t, 1, repo.Prune())

	_, err = repo.Get(ctx, "old")
	assert.ErrorIs(t, err, errpkg.ErrSessionNotFound)
	_, err = repo.Get(ctx, "running")
	assert.NoError(t, err)
}

func TestSessionStorage_MaxSessionsEvictsOldestTerminal(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	repo := newTestStorage(t, StorageOptions{MaxSessions: 3, Now: clock.Now})
	ctx := context.Background()

	create := func(id string, status domain.SessionStatus) {
		require.NoError(t, repo.Create(ctx, &domain.DownloadSession{ID: id, Status: domain.SessionStatusStarting}))
		if status.IsTerminal() {
			_, err := repo.Update(ctx, id, setStatus(status))
			require.NoError(t, err)
		}
		clock.now = clock.now.Add(time.Minute)
	}

	create("active-1", domain.SessionStatusStarting)
	create("done-old", domain.SessionStatusCompleted)
	create("done-new", domain.SessionStatusCancelled)
	create("fresh", domain.SessionStatusStarting)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(all))
	for _, s := range all {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"active-1", "done-new", "fresh"}, ids)
}

func TestSessionStorage_ActiveSessionsNeverEvicted(t *testing.T) {
	repo := newTestStorage(t, StorageOptions{MaxSessions: 1})
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.DownloadSession{ID: "a", Status: domain.SessionStatusStarting}))
	require.NoError(t, repo.Create(ctx, &domain.DownloadSession{ID: "b", Status: domain.SessionStatusStarting}))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSessionStorage_RestoreMarksInterrupted(t *testing.T) {
	file := filepath.Join(t.TempDir(), "sessions.json")
	ctx := context.Background()

	first := newTestStorage(t, StorageOptions{StateFile: file})
	require.NoError(t, first.Create(ctx, &domain.DownloadSession{ID: "running", Status: domain.SessionStatusStarting}))
	_, err := first.Update(ctx, "running", setStatus(domain.SessionStatusDownloading))
	require.NoError(t, err)
	require.NoError(t, first.Create(ctx, &domain.DownloadSession{ID: "done", Status: domain.SessionStatusStarting}))
	_, err = first.Update(ctx, "done", func(s *domain.DownloadSession) error {
		s.Status = domain.SessionStatusCompleted
		s.Message = "Downloaded 2/2 tracks to: /tmp/x"
		return nil
	})
	require.NoError(t, err)

	second := newTestStorage(t, StorageOptions{StateFile: file})

	running, err := second.Get(ctx, "running")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusError, running.Status)
	assert.Equal(t, InterruptedMessage, running.Message)
	assert.NotNil(t, running.FinishedAt)
	assert.False(t, second.IsActive("running"))

	done, err := second.Get(ctx, "done")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusCompleted, done.Status)
	assert.Equal(t, "Downloaded 2/2 tracks to: /tmp/x", done.Message)
}

func TestSessionStorage_CreatesStateDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "nested", "state", "sessions.json")

	repo := newTestStorage(t, StorageOptions{StateFile: file})
	require.NoError(t, repo.Create(context.Background(), &domain.DownloadSession{ID: "s1", Status: domain.SessionStatusStarting}))
	assert.FileExists(t, file)
}

func TestSessionStorage_StateWriteFailureKeepsMemoryState(t *testing.T) {
	stateDir := filepath.Join(t.TempDir(), "state")
	ctx := context.Background()

	repo := newTestStorage(t, StorageOptions{StateFile: filepath.Join(stateDir, "sessions.json")})
	require.NoError(t, repo.Create(ctx, &domain.DownloadSession{ID: "s1", Status: domain.SessionStatusStarting}))
	require.NoError(t, os.RemoveAll(stateDir))

	updated, err := repo.Update(ctx, "s1", setStatus(domain.SessionStatusDownloading))
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusDownloading, updated.Status)

	_, err = repo.Update(ctx, "s1", setStatus(domain.SessionStatusError))
	require.NoError(t, err)
	assert.False(t, repo.IsActive("s1"))

	require.NoError(t, repo.Create(ctx, &domain.DownloadSession{ID: "s2", Status: domain.SessionStatusStarting}))
	s2, err := repo.Get(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusStarting, s2.Status)
	assert.True(t, repo.IsActive("s2"))
}

func TestSessionStorage_CorruptStateFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "sessions.json")
	require.NoError(t, os.WriteFile(file, []byte("{not json"), 0o644))

	_, err := NewSessionStorage(StorageOptions{StateFile: file, Logger: quietLogger})
	assert.Error(t, err)
}

func TestSessionStorage_CanceledContext(t *testing.T) {
	repo := newTestStorage(t, StorageOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := repo.Create(ctx, &domain.DownloadSession{ID: "s1"})
	assert.ErrorIs(t, err, context.Canceled)
}
