package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/caputdraconis050630/feishu-invitor/internal/biz/domain"
	"github.com/caputdraconis050630/feishu-invitor/internal/biz/repo"
	"github.com/caputdraconis050630/feishu-invitor/internal/pkg/pace"
)

// ReconcileConfig contains reconciliation configuration
type ReconcileConfig struct {
	InviteDelay time.Duration // Pause between invite attempts
}

// DefaultReconcileConfig returns default reconcile configuration
func DefaultReconcileConfig() ReconcileConfig {
	return ReconcileConfig{
		InviteDelay: 500 * time.Millisecond,
	}
}

// ReconcileResult is the outcome of one reconciliation run
type ReconcileResult struct {
	ChannelID    string `json:"channel_id"`
	Pattern      string `json:"pattern"`
	InvitedCount int    `json:"invited_count"`
	Matched      int    `json:"matched"`
	Failed       int    `json:"failed"`
}

// ReconcileUsecase brings one channel's membership in line with its convention
type ReconcileUsecase struct {
	conventionRepo repo.ConventionRepo
	membershipRepo repo.MembershipRepo
	config         ReconcileConfig
	logger         *log.Logger
}

// NewReconcileUsecase creates a new reconcile usecase
func NewReconcileUsecase(
	conventionRepo repo.ConventionRepo,
	membershipRepo repo.MembershipRepo,
	config ReconcileConfig,
) *ReconcileUsecase {
	return &ReconcileUsecase{
		conventionRepo: conventionRepo,
		membershipRepo: membershipRepo,
		config:         config,
		logger:         log.WithPrefix("Reconcile"),
	}
}

// ReconcileChannel loads the channel's convention and reconciles against it
func (uc *ReconcileUsecase) ReconcileChannel(ctx context.Context, channelID string) (*ReconcileResult, error) {
	conv, err := uc.conventionRepo.GetByChannel(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("get convention: %w", err)
	}
	if conv == nil {
		return nil, fmt.Errorf("%w: channel %s", domain.ErrConventionNotFound, channelID)
	}
	return uc.ReconcileConvention(ctx, conv)
}

// ReconcileConvention invites every workspace member matching the convention
// who is not yet in the channel. It is a one-shot pass over the roster
// observed at listing time; re-running it against unchanged state invites
// nobody.
func (uc *ReconcileUsecase) ReconcileConvention(ctx context.Context, conv *domain.Convention) (*ReconcileResult, error) {
	result := &ReconcileResult{ChannelID: conv.ChannelID, Pattern: conv.Pattern}

	members, err := uc.membershipRepo.ListWorkspaceMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list workspace members: %w", err)
	}

	existing, err := uc.membershipRepo.ListChannelMembers(ctx, conv.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("list channel members: %w", err)
	}

	uc.logger.Info("Reconciling channel",
		"channel", conv.ChannelID, "pattern", conv.Pattern,
		"workspace", len(members), "existing", len(existing))

	match := domain.Compile(conv.Pattern)
	var errs []error
	for _, m := range members {
		if _, ok := existing[m.ID]; ok {
			continue
		}
		name := m.EffectiveName()
		if !match(name) {
			continue
		}

		if result.Matched > 0 {
			if err := pace.Wait(ctx, uc.config.InviteDelay); err != nil {
				errs = append(errs, err)
				break
			}
		}
		result.Matched++

		ok, err := uc.membershipRepo.InviteUserToChannel(ctx, m.ID, conv.ChannelID)
		if err != nil {
			result.Failed++
			uc.logger.Error("Invite failed", "user", m.ID, "channel", conv.ChannelID, "err", err)
			errs = append(errs, fmt.Errorf("invite %s: %w", m.ID, err))
			continue
		}
		if !ok {
			result.Failed++
			continue
		}

		result.InvitedCount++
		uc.logger.Info("Invited user", "name", name, "user", m.ID, "channel", conv.ChannelID)
	}

	uc.logger.Info("Reconcile finished",
		"channel", conv.ChannelID, "invited", result.InvitedCount, "failed", result.Failed)

	return result, errors.Join(errs...)
}
