package data

import (
	"context"

	"github.com/caputdraconis050630/feishu-invitor/internal/biz/repo"
	"github.com/caputdraconis050630/feishu-invitor/internal/infra/feishu"
)

// ChatLookup resolves chat metadata
// *feishu.Client implements it
type ChatLookup interface {
	GetChatInfo(ctx context.Context, chatID string) (*feishu.ChatInfo, error)
}

// chatInfoRepo implements the ChatInfo repository
type chatInfoRepo struct {
	chats ChatLookup
}

// NewChatInfoRepo creates a new ChatInfo repository
func NewChatInfoRepo(chats ChatLookup) repo.ChatInfoRepo {
	return &chatInfoRepo{chats: chats}
}

// GetChannelName gets the display name of a chat
func (r *chatInfoRepo) GetChannelName(ctx context.Context, channelID string) (string, error) {
	info, err := r.chats.GetChatInfo(ctx, channelID)
	if err != nil {
		return "", upstreamError("get chat info", err)
	}
	return info.Name, nil
}
