package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/charmbracelet/log"

	"github.com/caputdraconis050630/feishu-invitor/internal/biz/domain"
	"github.com/caputdraconis050630/feishu-invitor/internal/biz/repo"
)

// Recommendation sources
const (
	SourceModel    = "model"
	SourceFallback = "fallback"
)

// ErrUnnamedChannel is returned when a channel's name yields no usable convention
var ErrUnnamedChannel = errors.New("failed to get channel name")

// Recommendation is a suggested convention for a channel
type Recommendation struct {
	ChannelID   string `json:"channel_id"`
	ChannelName string `json:"channel_name"`
	Pattern     string `json:"pattern"`
	Source      string `json:"source"`
}

// RecommendUsecase suggests conventions; it never writes to the store
type RecommendUsecase struct {
	chatRepo       repo.ChatInfoRepo
	conventionRepo repo.ConventionRepo
	recommendRepo  repo.RecommendRepo
	logger         *log.Logger
}

// NewRecommendUsecase creates a new recommend usecase
// recommendRepo may be nil, in which case only the fallback is used
func NewRecommendUsecase(
	chatRepo repo.ChatInfoRepo,
	conventionRepo repo.ConventionRepo,
	recommendRepo repo.RecommendRepo,
) *RecommendUsecase {
	return &RecommendUsecase{
		chatRepo:       chatRepo,
		conventionRepo: conventionRepo,
		recommendRepo:  recommendRepo,
		logger:         log.WithPrefix("Recommend"),
	}
}

// RecommendConvention suggests a pattern for the channel
func (uc *RecommendUsecase) RecommendConvention(ctx context.Context, channelID string) (*Recommendation, error) {
	name, err := uc.chatRepo.GetChannelName(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("get channel name: %w", err)
	}

	fallback, err := FallbackPattern(name)
	if err != nil {
		return nil, fmt.Errorf("channel %s: %w", channelID, err)
	}

	rec := &Recommendation{
		ChannelID:   channelID,
		ChannelName: name,
		Pattern:     fallback,
		Source:      SourceFallback,
	}

	if uc.recommendRepo == nil {
		return rec, nil
	}

	existing, err := uc.conventionRepo.ListAll(ctx)
	if err != nil {
		uc.logger.Warn("Failed to list conventions for prompt", "err", err)
		existing = nil
	}

	suggestion, err := uc.recommendRepo.SuggestPattern(ctx, name, existing)
	if err != nil {
		uc.logger.Warn("Model suggestion failed, using fallback", "channel", channelID, "err", err)
		return rec, nil
	}

	pattern := sanitizeSuggestion(suggestion)
	if pattern == "" || domain.ValidatePattern(pattern) != nil {
		uc.logger.Warn("Discarding unusable suggestion", "channel", channelID, "suggestion", suggestion)
		return rec, nil
	}

	rec.Pattern = pattern
	rec.Source = SourceModel
	return rec, nil
}

// FallbackPattern derives a prefix convention from a channel name.
// Blank names, or names that leave only wildcards, give ErrUnnamedChannel.
func FallbackPattern(channelName string) (string, error) {
	base := strings.ToLower(strings.Join(strings.Fields(channelName), "_"))
	if base == "" {
		return "", ErrUnnamedChannel
	}
	pattern := base + domain.Wildcard
	if err := domain.ValidatePattern(pattern); err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnnamedChannel, err)
	}
	return pattern, nil
}

// sanitizeSuggestion keeps the first whitespace-free token, without quotes
func sanitizeSuggestion(s string) string {
	fields := strings.FieldsFunc(s, unicode.IsSpace)
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[0], "`'\"")
}
