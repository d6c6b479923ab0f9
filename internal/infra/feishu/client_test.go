package feishu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTextContent(t *testing.T) {
	tests := []struct {
		content string
		want    string
	}{
		{`{"text":"@_user_1 /set-convention alice*"}`, "/set-convention alice*"},
		{`{"text":"/reconcile"}`, "/reconcile"},
		{`{"text":"@_user_1 @_user_12  hi"}`, "hi"},
		{`not json`, ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseTextContent(tt.content), tt.content)
	}
}

func TestChatError(t *testing.T) {
	assert.True(t, errors.Is(chatError("get", codeInvalidChatID, "bad"), ErrChatNotFound))
	assert.True(t, errors.Is(chatError("get", codeChatDissolved, "gone"), ErrChatNotFound))

	err := chatError("get", 99991663, "token invalid")
	var apiErr *APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 99991663, apiErr.Code)
	assert.False(t, errors.Is(err, ErrChatNotFound))
}

func TestAddMemberStatusString(t *testing.T) {
	assert.Equal(t, "ok", AddMemberOK.String())
	assert.Equal(t, "pending_approval", AddMemberPendingApproval.String())
}
