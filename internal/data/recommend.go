package data

import (
	"context"
	"fmt"
	"strings"

	"github.com/caputdraconis050630/feishu-invitor/internal/biz/domain"
	"github.com/caputdraconis050630/feishu-invitor/internal/biz/repo"
)

const suggestionMaxTokens = 30

// ChatCompleter is the LLM call the recommender needs
// *llm.Client implements it
type ChatCompleter interface {
	Chat(ctx context.Context, systemPrompt, userMessage string, maxTokens int) (string, error)
}

// RecommendPrompts are the prompt templates for pattern suggestions
// User may reference {channel_name} and {existing}
type RecommendPrompts struct {
	System string
	User   string
}

// llmRecommendRepo implements the Recommend repository with an LLM
type llmRecommendRepo struct {
	chat    ChatCompleter
	prompts RecommendPrompts
}

// NewRecommendRepo creates an LLM-backed recommend repository
func NewRecommendRepo(chat ChatCompleter, prompts RecommendPrompts) repo.RecommendRepo {
	return &llmRecommendRepo{chat: chat, prompts: prompts}
}

// SuggestPattern asks the model for a pattern; the raw answer is returned
func (r *llmRecommendRepo) SuggestPattern(ctx context.Context, channelName string, existing []*domain.Convention) (string, error) {
	out, err := r.chat.Chat(ctx, r.prompts.System, r.userPrompt(channelName, existing), suggestionMaxTokens)
	if err != nil {
		return "", fmt.Errorf("suggest pattern: %w", err)
	}
	return out, nil
}

func (r *llmRecommendRepo) userPrompt(channelName string, existing []*domain.Convention) string {
	var sb strings.Builder
	for _, c := range existing {
		sb.WriteString("- ")
		sb.WriteString(c.Pattern)
		sb.WriteString("\n")
	}
	list := sb.String()
	if list == "" {
		list = "(none)\n"
	}

	return strings.NewReplacer(
		"{channel_name}", channelName,
		"{existing}", strings.TrimSuffix(list, "\n"),
	).Replace(r.prompts.User)
}
