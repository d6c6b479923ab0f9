package feishu

import (
	"context"
	"fmt"

	larkcontact "github.com/larksuite/oapi-sdk-go/v3/service/contact/v3"
)

// RootDepartmentID is the tenant's root department
const RootDepartmentID = "0"

// User is a directory entry
type User struct {
	OpenID   string
	Name     string
	Nickname string
	Resigned bool
	Frozen   bool
}

// UserPage is one page of department members
type UserPage struct {
	Users     []User
	PageToken string
	HasMore   bool
}

// DepartmentPage is one page of department ids
type DepartmentPage struct {
	DepartmentIDs []string
	PageToken     string
	HasMore       bool
}

// ListSubDepartmentsPage lists one page of every department below parentID
func (c *Client) ListSubDepartmentsPage(ctx context.Context, parentID, pageToken string, pageSize int) (*DepartmentPage, error) {
	reqBuilder := larkcontact.NewChildrenDepartmentReqBuilder().
		DepartmentId(parentID).
		DepartmentIdType("open_department_id").
		FetchChild(true).
		PageSize(pageSize)
	if pageToken != "" {
		reqBuilder = reqBuilder.PageToken(pageToken)
	}

	resp, err := c.larkCli.Contact.Department.Children(ctx, reqBuilder.Build())
	if err != nil {
		return nil, fmt.Errorf("list departments failed: %w", err)
	}
	if !resp.Success() {
		return nil, &APIError{Op: "list departments", Code: resp.Code, Msg: resp.Msg}
	}

	page := &DepartmentPage{}
	if resp.Data == nil {
		return page, nil
	}
	for _, item := range resp.Data.Items {
		if id := deref(item.OpenDepartmentId); id != "" {
			page.DepartmentIDs = append(page.DepartmentIDs, id)
		}
	}
	page.HasMore = derefBool(resp.Data.HasMore)
	page.PageToken = deref(resp.Data.PageToken)
	return page, nil
}

// ListUsersPage lists one page of the direct members of a department
func (c *Client) ListUsersPage(ctx context.Context, departmentID, pageToken string, pageSize int) (*UserPage, error) {
	reqBuilder := larkcontact.NewFindByDepartmentUserReqBuilder().
		UserIdType("open_id").
		DepartmentIdType("open_department_id").
		DepartmentId(departmentID).
		PageSize(pageSize)
	if pageToken != "" {
		reqBuilder = reqBuilder.PageToken(pageToken)
	}

	resp, err := c.larkCli.Contact.User.FindByDepartment(ctx, reqBuilder.Build())
	if err != nil {
		return nil, fmt.Errorf("list users failed: %w", err)
	}
	if !resp.Success() {
		return nil, &APIError{Op: "list users", Code: resp.Code, Msg: resp.Msg}
	}

	page := &UserPage{}
	if resp.Data == nil {
		return page, nil
	}
	for _, item := range resp.Data.Items {
		user := User{
			OpenID:   deref(item.OpenId),
			Name:     deref(item.Name),
			Nickname: deref(item.Nickname),
		}
		if item.Status != nil {
			user.Resigned = derefBool(item.Status.IsResigned)
			user.Frozen = derefBool(item.Status.IsFrozen)
		}
		page.Users = append(page.Users, user)
	}
	page.HasMore = derefBool(resp.Data.HasMore)
	page.PageToken = deref(resp.Data.PageToken)
	return page, nil
}
