package feishu

import (
	"errors"
	"fmt"
)

// ErrChatNotFound is returned when a chat id is invalid or the chat was dissolved
var ErrChatNotFound = errors.New("chat not found")

// Feishu error codes for chats that no longer exist
const (
	codeInvalidChatID = 232006
	codeChatDissolved = 232009
)

// APIError is a non-success response from the Feishu open API
type APIError struct {
	Op   string
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s error: %d %s", e.Op, e.Code, e.Msg)
}

func chatError(op string, code int, msg string) error {
	if code == codeInvalidChatID || code == codeChatDissolved {
		return fmt.Errorf("%s: %w", op, ErrChatNotFound)
	}
	return &APIError{Op: op, Code: code, Msg: msg}
}
