package repository

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/veranemoloko/soundtrack-downloader/internal/domain"
	errpkg "github.com/veranemoloko/soundtrack-downloader/internal/errors"
)

// InterruptedMessage is set on sessions that were running when the process stopped.
const InterruptedMessage = "interrupted by restart"

// StorageOptions configures a SessionStorage.
type StorageOptions struct {
	// StateFile enables JSON snapshots when non-empty.
	StateFile string
	// TTL is how long terminal sessions are kept. Zero keeps them forever.
	TTL time.Duration
	// MaxSessions caps the number of stored sessions. Zero means unlimited.
	MaxSessions int
	Logger      *slog.Logger
	Now         func() time.Time
}

// SessionStorage keeps download sessions in memory, together with the set of
// sessions that are still allowed to run. Removing a session from the active
// set is how cancellation is signalled to its worker.
type SessionStorage struct {
	mu       sync.RWMutex
	sessions map[string]*domain.DownloadSession
	active   map[string]struct{}

	persistMu   sync.Mutex
	file        string
	ttl         time.Duration
	maxSessions int
	logger      *slog.Logger
	now         func() time.Time
}

var _ SessionRepo = (*SessionStorage)(nil)

// NewSessionStorage creates a SessionStorage and restores the state file if it exists.
func NewSessionStorage(opts StorageOptions) (*SessionStorage, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	repo := &SessionStorage{
		sessions:    make(map[string]*domain.DownloadSession),
		active:      make(map[string]struct{}),
		ttl:         opts.TTL,
		maxSessions: opts.MaxSessions,
		logger:      logger.With("component", "session_storage"),
		now:         now,
	}
	if opts.StateFile != "" {
		repo.file = filepath.Clean(opts.StateFile)
		if err := os.MkdirAll(filepath.Dir(repo.file), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	if err := repo.restoreSessions(); err != nil {
		return nil, fmt.Errorf("failed to load state from file: %w", err)
	}

	repo.logger.Info("Session storage initialized", "file_path", repo.file, "sessions_count", len(repo.sessions))
	return repo, nil
}

func (r *SessionStorage) restoreSessions() error {
	if r.file == "" {
		return nil
	}

	data, err := os.ReadFile(r.file)
	if errors.Is(err, fs.ErrNotExist) {
		r.logger.Info("State file does not exist, starting with empty state", "file_path", r.file)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read state file: %w", err)
	}

	if len(data) == 0 {
		r.logger.Warn("State file is empty")
		return nil
	}

	var sessions []*domain.DownloadSession
	if err := json.Unmarshal(data, &sessions); err != nil {
		return fmt.Errorf("failed to unmarshal state file: %w", err)
	}

	now := r.now()
	interrupted := 0
	for _, s := range sessions {
		if s == nil || s.ID == "" {
			continue
		}
		if !s.Status.IsTerminal() {
			s.Status = domain.SessionStatusError
			s.Message = InterruptedMessage
			s.UpdatedAt = now
			s.FinishedAt = &now
			interrupted++
		}
		r.sessions[s.ID] = s
	}
	r.pruneLocked(now)

	r.logger.Info("State loaded from file", "sessions_count", len(r.sessions), "interrupted", interrupted, "file_path", r.file)
	return nil
}

func (r *SessionStorage) persistSessions() error {
	if r.file == "" {
		return nil
	}

	r.persistMu.Lock()
	defer r.persistMu.Unlock()

	r.mu.RLock()
	sessions := r.sortedLocked(func(*domain.DownloadSession) bool { return true })
	r.mu.RUnlock()

	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sessions: %w", err)
	}

	tempFile := r.file + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := os.Rename(tempFile, r.file); err != nil {
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	r.logger.Debug("State saved to file", "sessions_count", len(sessions), "file_path", r.file)
	return nil
}

// saveState writes the snapshot. The in-memory state stays authoritative, so a
// failed write is logged and the change is kept.
func (r *SessionStorage) saveState(op string) {
	if err := r.persistSessions(); err != nil {
		r.logger.Error("Failed to save state", "op", op, "error", err)
	}
}

// Create stores a new session and marks it active. Expired and excess terminal
// sessions are pruned first.
func (r *SessionStorage) Create(ctx context.Context, session *domain.DownloadSession) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := r.now()
	r.mu.Lock()
	if _, exists := r.sessions[session.ID]; exists {
		r.mu.Unlock()
		return errpkg.ErrSessionExists
	}

	stored := clone(session)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	r.pruneLocked(now)
	r.sessions[stored.ID] = stored
	if !stored.Status.IsTerminal() {
		r.active[stored.ID] = struct{}{}
	}
	r.mu.Unlock()

	r.saveState("create")

	r.logger.Debug("Session created", "session_id", stored.ID, "album_id", stored.AlbumID)
	return nil
}

// Get returns a copy of the session.
func (r *SessionStorage) Get(ctx context.Context, id string) (*domain.DownloadSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	session, exists := r.sessions[id]
	if !exists {
		return nil, errpkg.ErrSessionNotFound
	}
	return clone(session), nil
}

// Update applies fn to a copy of the session and stores the result.
// Terminal sessions are immutable and the status may only move forward.
// Reaching a terminal status removes the session from the active set.
func (r *SessionStorage) Update(ctx context.Context, id string, fn func(*domain.DownloadSession) error) (*domain.DownloadSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	current, exists := r.sessions[id]
	if !exists {
		r.mu.Unlock()
		return nil, errpkg.ErrSessionNotFound
	}
	if current.Status.IsTerminal() {
		r.mu.Unlock()
		return nil, errpkg.ErrSessionFinished
	}

	next := clone(current)
	if err := fn(next); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	if !current.Status.CanTransition(next.Status) {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s -> %s", errpkg.ErrInvalidTransition, current.Status, next.Status)
	}

	now := r.now()
	next.ID = current.ID
	next.UpdatedAt = now
	if next.Status.IsTerminal() {
		next.FinishedAt = &now
		delete(r.active, id)
	}
	r.sessions[id] = next
	result := clone(next)
	r.mu.Unlock()

	r.saveState("update")

	r.logger.Debug("Session updated", "session_id", id, "status", next.Status)
	return result, nil
}

// List returns copies of all sessions, oldest first.
func (r *SessionStorage) List(ctx context.Context) ([]*domain.DownloadSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedLocked(func(*domain.DownloadSession) bool { return true }), nil
}

// ListByStatus returns copies of the sessions with the given status, oldest first.
func (r *SessionStorage) ListByStatus(ctx context.Context, status domain.SessionStatus) ([]*domain.DownloadSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedLocked(func(s *domain.DownloadSession) bool { return s.Status == status }), nil
}

// IsActive reports whether the session may keep running.
func (r *SessionStorage) IsActive(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.active[id]
	return ok
}

// Deactivate removes the session from the active set and reports whether it was there.
func (r *SessionStorage) Deactivate(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[id]
	delete(r.active, id)
	return ok
}

// Prune drops expired terminal sessions and enforces the size cap.
func (r *SessionStorage) Prune() int {
	r.mu.Lock()
	removed := r.pruneLocked(r.now())
	r.mu.Unlock()

	if removed > 0 {
		r.saveState("prune")
	}
	return removed
}

func (r *SessionStorage) pruneLocked(now time.Time) int {
	removed := 0

	if r.ttl > 0 {
		cutoff := now.Add(-r.ttl)
		for id, s := range r.sessions {
			if r.evictable(s) && finishedAt(s).Before(cutoff) {
				delete(r.sessions, id)
				removed++
			}
		}
	}

	// One slot is kept free for the session about to be created.
	if r.maxSessions > 0 && len(r.sessions) >= r.maxSessions {
		var candidates []*domain.DownloadSession
		for _, s := range r.sessions {
			if r.evictable(s) {
				candidates = append(candidates, s)
			}
		}
		slices.SortFunc(candidates, func(a, b *domain.DownloadSession) int {
			return finishedAt(a).Compare(finishedAt(b))
		})
		for _, s := range candidates {
			if len(r.sessions) < r.maxSessions {
				break
			}
			delete(r.sessions, s.ID)
			removed++
		}
	}

	if removed > 0 {
		r.logger.Debug("Sessions pruned", "removed", removed, "remaining", len(r.sessions))
	}
	return removed
}

func (r *SessionStorage) evictable(s *domain.DownloadSession) bool {
	if _, running := r.active[s.ID]; running {
		return false
	}
	return s.Status.IsTerminal()
}

func (r *SessionStorage) sortedLocked(keep func(*domain.DownloadSession) bool) []*domain.DownloadSession {
	out := make([]*domain.DownloadSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		if keep(s) {
			out = append(out, clone(s))
		}
	}
	slices.SortFunc(out, func(a, b *domain.DownloadSession) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func finishedAt(s *domain.DownloadSession) time.Time {
	if s.FinishedAt != nil {
		return *s.FinishedAt
	}
	return s.UpdatedAt
}

func clone(s *domain.DownloadSession) *domain.DownloadSession {
	c := *s
	if s.FinishedAt != nil {
		t := *s.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}
