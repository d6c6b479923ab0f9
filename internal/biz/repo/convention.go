package repo

import (
	"context"

	"github.com/caputdraconis050630/feishu-invitor/internal/biz/domain"
)

// ConventionRepo is the convention repository interface
// It exclusively owns persisted conventions (SQLite)
type ConventionRepo interface {
	// GetByChannel gets the convention of a channel, nil if none is set
	GetByChannel(ctx context.Context, channelID string) (*domain.Convention, error)

	// PutOrUpdate creates or replaces the channel's pattern
	// CreatedAt is set on first write, UpdatedAt on every write
	PutOrUpdate(ctx context.Context, channelID, pattern string) (*domain.Convention, error)

	// Delete deletes the channel's convention, reporting whether one existed
	Delete(ctx context.Context, channelID string) (bool, error)

	// ListAll lists every convention, following the store's pagination to the end
	ListAll(ctx context.Context) ([]*domain.Convention, error)

	Close() error
}
