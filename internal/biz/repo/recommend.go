package repo

import (
	"context"

	"github.com/caputdraconis050630/feishu-invitor/internal/biz/domain"
)

// RecommendRepo suggests a convention pattern for a channel
// The suggestion is advisory and never written to the store
type RecommendRepo interface {
	SuggestPattern(ctx context.Context, channelName string, existing []*domain.Convention) (string, error)
}
