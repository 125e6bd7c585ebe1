package repository

import (
	"context"

	"github.com/veranemoloko/soundtrack-downloader/internal/domain"
)

// SessionRepo defines the storage operations for download sessions.
type SessionRepo interface {
	Create(ctx context.Context, session *domain.DownloadSession) error
	Get(ctx context.Context, id string) (*domain.DownloadSession, error)
	Update(ctx context.Context, id string, fn func(*domain.DownloadSession) error) (*domain.DownloadSession, error)
	List(ctx context.Context) ([]*domain.DownloadSession, error)
	ListByStatus(ctx context.Context, status domain.SessionStatus) ([]*domain.DownloadSession, error)

	IsActive(id string) bool
	Deactivate(id string) bool
}
