package feishu

import (
	"context"
	"fmt"

	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
)

// ChatMemberPage is one page of a chat's member ids
type ChatMemberPage struct {
	MemberIDs []string
	PageToken string
	HasMore   bool
}

// AddMemberStatus is the per-user outcome of adding a chat member
type AddMemberStatus int

const (
	AddMemberOK AddMemberStatus = iota
	AddMemberInvalidID
	AddMemberNotExisted
	AddMemberPendingApproval
)

func (s AddMemberStatus) String() string {
	switch s {
	case AddMemberOK:
		return "ok"
	case AddMemberInvalidID:
		return "invalid_id"
	case AddMemberNotExisted:
		return "not_existed"
	case AddMemberPendingApproval:
		return "pending_approval"
	}
	return "unknown"
}

// ChatInfo represents information about a chat
type ChatInfo struct {
	ChatID      string `json:"chat_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	OwnerID     string `json:"owner_id"`
}

// ListChatMembersPage lists one page of a chat's members as open_ids
func (c *Client) ListChatMembersPage(ctx context.Context, chatID, pageToken string, pageSize int) (*ChatMemberPage, error) {
	reqBuilder := larkim.NewGetChatMembersReqBuilder().
		MemberIdType("open_id").
		ChatId(chatID).
		PageSize(pageSize)
	if pageToken != "" {
		reqBuilder = reqBuilder.PageToken(pageToken)
	}

	resp, err := c.larkCli.Im.ChatMembers.Get(ctx, reqBuilder.Build())
	if err != nil {
		return nil, fmt.Errorf("get chat members failed: %w", err)
	}
	if !resp.Success() {
		return nil, chatError("get chat members", resp.Code, resp.Msg)
	}

	page := &ChatMemberPage{}
	if resp.Data == nil {
		return page, nil
	}
	for _, item := range resp.Data.Items {
		if id := deref(item.MemberId); id != "" {
			page.MemberIDs = append(page.MemberIDs, id)
		}
	}
	page.HasMore = derefBool(resp.Data.HasMore)
	page.PageToken = deref(resp.Data.PageToken)
	return page, nil
}

// AddChatMember adds one user to a chat
// Users already in the chat are reported as AddMemberOK
func (c *Client) AddChatMember(ctx context.Context, chatID, openID string) (AddMemberStatus, error) {
	req := larkim.NewCreateChatMembersReqBuilder().
		ChatId(chatID).
		MemberIdType("open_id").
		SucceedType(0).
		Body(larkim.NewCreateChatMembersReqBodyBuilder().
			IdList([]string{openID}).
			Build()).
		Build()

	resp, err := c.larkCli.Im.ChatMembers.Create(ctx, req)
	if err != nil {
		return AddMemberOK, fmt.Errorf("add chat member failed: %w", err)
	}
	if !resp.Success() {
		return AddMemberOK, chatError("add chat member", resp.Code, resp.Msg)
	}

	if resp.Data != nil {
		switch {
		case contains(resp.Data.InvalidIdList, openID):
			return AddMemberInvalidID, nil
		case contains(resp.Data.NotExistedIdList, openID):
			return AddMemberNotExisted, nil
		case contains(resp.Data.PendingApprovalIdList, openID):
			return AddMemberPendingApproval, nil
		}
	}
	return AddMemberOK, nil
}

// GetChatInfo retrieves information about a chat
func (c *Client) GetChatInfo(ctx context.Context, chatID string) (*ChatInfo, error) {
	req := larkim.NewGetChatReqBuilder().
		ChatId(chatID).
		Build()

	resp, err := c.larkCli.Im.Chat.Get(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("get chat info failed: %w", err)
	}
	if !resp.Success() {
		return nil, chatError("get chat info", resp.Code, resp.Msg)
	}

	info := &ChatInfo{ChatID: chatID}
	if resp.Data != nil {
		info.Name = deref(resp.Data.Name)
		info.Description = deref(resp.Data.Description)
		info.OwnerID = deref(resp.Data.OwnerId)
	}
	return info, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
