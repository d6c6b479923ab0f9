package data

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caputdraconis050630/feishu-invitor/internal/biz/domain"
	"github.com/caputdraconis050630/feishu-invitor/internal/infra/feishu"
)

type fakeChat struct {
	system, user string
	answer       string
	err          error
}

func (f *fakeChat) Chat(ctx context.Context, systemPrompt, userMessage string, maxTokens int) (string, error) {
	f.system, f.user = systemPrompt, userMessage
	return f.answer, f.err
}

func TestSuggestPattern_BuildsPrompt(t *testing.T) {
	chat := &fakeChat{answer: "capstone_*"}
	r := NewRecommendRepo(chat, RecommendPrompts{
		System: "sys",
		User:   "Channel: {channel_name}\nExisting:\n{existing}",
	})

	out, err := r.SuggestPattern(context.Background(), "Capstone", []*domain.Convention{
		{ChannelID: "C1", Pattern: "2025_*"},
		{ChannelID: "C2", Pattern: "ops_*"},
	})

	require.NoError(t, err)
	assert.Equal(t, "capstone_*", out)
	assert.Equal(t, "sys", chat.system)
	assert.Equal(t, "Channel: Capstone\nExisting:\n- 2025_*\n- ops_*", chat.user)
}

func TestSuggestPattern_NoExisting(t *testing.T) {
	chat := &fakeChat{}
	r := NewRecommendRepo(chat, RecommendPrompts{User: "{existing}"})

	_, err := r.SuggestPattern(context.Background(), "x", nil)

	require.NoError(t, err)
	assert.Equal(t, "(none)", chat.user)
}

func TestSuggestPattern_Error(t *testing.T) {
	r := NewRecommendRepo(&fakeChat{err: errors.New("rate limited")}, RecommendPrompts{})

	_, err := r.SuggestPattern(context.Background(), "x", nil)

	assert.Error(t, err)
}

type fakeChatLookup struct {
	info *feishu.ChatInfo
	err  error
}

func (f *fakeChatLookup) GetChatInfo(ctx context.Context, chatID string) (*feishu.ChatInfo, error) {
	return f.info, f.err
}

func TestGetChannelName(t *testing.T) {
	r := NewChatInfoRepo(&fakeChatLookup{info: &feishu.ChatInfo{ChatID: "oc_1", Name: "Capstone"}})

	name, err := r.GetChannelName(context.Background(), "oc_1")

	require.NoError(t, err)
	assert.Equal(t, "Capstone", name)
}

func TestGetChannelName_Transport(t *testing.T) {
	r := NewChatInfoRepo(&fakeChatLookup{err: errors.New("dial tcp")})

	_, err := r.GetChannelName(context.Background(), "oc_1")

	assert.ErrorIs(t, err, domain.ErrUpstreamUnreachable)
}
