package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/caputdraconis050630/feishu-invitor/internal/biz/domain"
	"github.com/caputdraconis050630/feishu-invitor/internal/biz/repo"
	"github.com/caputdraconis050630/feishu-invitor/internal/infra/feishu"
	"github.com/caputdraconis050630/feishu-invitor/internal/pkg/pace"
)

const (
	directoryPageSize  = 50
	chatMemberPageSize = 100
	departmentPageSize = 50
)

// Directory is the page-level Feishu API used by the membership repository
// *feishu.Client implements it
type Directory interface {
	ListSubDepartmentsPage(ctx context.Context, parentID, pageToken string, pageSize int) (*feishu.DepartmentPage, error)
	ListUsersPage(ctx context.Context, departmentID, pageToken string, pageSize int) (*feishu.UserPage, error)
	ListChatMembersPage(ctx context.Context, chatID, pageToken string, pageSize int) (*feishu.ChatMemberPage, error)
	AddChatMember(ctx context.Context, chatID, openID string) (feishu.AddMemberStatus, error)
}

// MembershipConfig contains membership client configuration
type MembershipConfig struct {
	DirectoryPageDelay time.Duration // Pause between directory pages
	ChannelPageDelay   time.Duration // Pause between chat member pages
	SystemAccountID    string        // Never invited, empty disables
}

// DefaultMembershipConfig returns default membership configuration
func DefaultMembershipConfig() MembershipConfig {
	return MembershipConfig{
		DirectoryPageDelay: 1 * time.Second,
		ChannelPageDelay:   500 * time.Millisecond,
	}
}

// membershipRepo implements the Membership repository on the Feishu API
type membershipRepo struct {
	dir    Directory
	config MembershipConfig
	logger *log.Logger
}

// NewMembershipRepo creates a new Membership repository
func NewMembershipRepo(dir Directory, config MembershipConfig) repo.MembershipRepo {
	return &membershipRepo{
		dir:    dir,
		config: config,
		logger: log.WithPrefix("Membership"),
	}
}

// ListWorkspaceMembers walks the department tree and lists every eligible user
func (r *membershipRepo) ListWorkspaceMembers(ctx context.Context) ([]domain.Member, error) {
	departments, err := r.listDepartments(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var members []domain.Member
	pages := 0
	for _, dept := range departments {
		token := ""
		for {
			if pages > 0 {
				if err := pace.Wait(ctx, r.config.DirectoryPageDelay); err != nil {
					return nil, err
				}
			}
			pages++

			page, err := r.dir.ListUsersPage(ctx, dept, token, directoryPageSize)
			if err != nil {
				return nil, upstreamError("list users", err)
			}

			for _, u := range page.Users {
				if _, dup := seen[u.OpenID]; dup || u.OpenID == "" {
					continue
				}
				seen[u.OpenID] = struct{}{}

				m := MemberFromUser(u)
				if !m.Eligible(r.config.SystemAccountID) {
					continue
				}
				members = append(members, m)
			}

			if !page.HasMore || page.PageToken == "" {
				break
			}
			token = page.PageToken
		}
	}

	r.logger.Debug("Listed workspace members", "departments", len(departments), "members", len(members))
	return members, nil
}

// listDepartments returns the root department followed by all of its descendants
func (r *membershipRepo) listDepartments(ctx context.Context) ([]string, error) {
	departments := []string{feishu.RootDepartmentID}
	token := ""
	for {
		page, err := r.dir.ListSubDepartmentsPage(ctx, feishu.RootDepartmentID, token, departmentPageSize)
		if err != nil {
			return nil, upstreamError("list departments", err)
		}
		departments = append(departments, page.DepartmentIDs...)

		if !page.HasMore || page.PageToken == "" {
			return departments, nil
		}
		token = page.PageToken

		if err := pace.Wait(ctx, r.config.DirectoryPageDelay); err != nil {
			return nil, err
		}
	}
}

// ListChannelMembers lists the open_ids currently in a chat
func (r *membershipRepo) ListChannelMembers(ctx context.Context, channelID string) (map[string]struct{}, error) {
	ids := make(map[string]struct{})
	token := ""
	for {
		page, err := r.dir.ListChatMembersPage(ctx, channelID, token, chatMemberPageSize)
		if errors.Is(err, feishu.ErrChatNotFound) {
			r.logger.Warn("Chat not found, treating as empty", "channel", channelID)
			return map[string]struct{}{}, nil
		}
		if err != nil {
			return nil, upstreamError("list chat members", err)
		}

		for _, id := range page.MemberIDs {
			ids[id] = struct{}{}
		}

		if !page.HasMore || page.PageToken == "" {
			return ids, nil
		}
		token = page.PageToken

		if err := pace.Wait(ctx, r.config.ChannelPageDelay); err != nil {
			return nil, err
		}
	}
}

// InviteUserToChannel adds one user to a chat
// Already being a member counts as success; API refusals are logged and
// reported as false; only transport failures are returned as errors
func (r *membershipRepo) InviteUserToChannel(ctx context.Context, userID, channelID string) (bool, error) {
	status, err := r.dir.AddChatMember(ctx, channelID, userID)
	if err != nil {
		var apiErr *feishu.APIError
		if errors.As(err, &apiErr) || errors.Is(err, feishu.ErrChatNotFound) {
			r.logger.Warn("Invite rejected", "user", userID, "channel", channelID, "err", err)
			return false, nil
		}
		return false, upstreamError("add chat member", err)
	}

	if status != feishu.AddMemberOK {
		r.logger.Warn("Invite not applied", "user", userID, "channel", channelID, "status", status)
		return false, nil
	}
	return true, nil
}

// upstreamError classifies an error from the directory
// API answers are kept as UpstreamAPIError, anything else is a transport failure
func upstreamError(op string, err error) error {
	var apiErr *feishu.APIError
	if errors.As(err, &apiErr) {
		return &domain.UpstreamAPIError{Op: op, Code: apiErr.Code, Reason: apiErr.Msg}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrUpstreamUnreachable, op, err)
}

// MemberFromUser maps a directory user onto a domain member
func MemberFromUser(u feishu.User) domain.Member {
	return domain.Member{
		ID:          u.OpenID,
		DisplayName: u.Nickname,
		RealName:    u.Name,
		IsDeleted:   u.Resigned || u.Frozen,
	}
}
