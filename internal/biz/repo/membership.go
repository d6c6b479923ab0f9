package repo

import (
	"context"

	"github.com/caputdraconis050630/feishu-invitor/internal/biz/domain"
)

// MembershipRepo is the workspace membership interface
// Every call goes to the live workspace API
type MembershipRepo interface {
	// ListWorkspaceMembers lists every eligible member of the workspace
	// Bots, deleted accounts and the system account are filtered out
	ListWorkspaceMembers(ctx context.Context) ([]domain.Member, error)

	// ListChannelMembers lists the user IDs currently in a channel
	// A channel that no longer exists yields an empty set
	ListChannelMembers(ctx context.Context, channelID string) (map[string]struct{}, error)

	// InviteUserToChannel invites one user, true when the user is now a member
	InviteUserToChannel(ctx context.Context, userID, channelID string) (bool, error)
}

// ChatInfoRepo resolves channel metadata
type ChatInfoRepo interface {
	GetChannelName(ctx context.Context, channelID string) (string, error)
}
