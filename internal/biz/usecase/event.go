package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/caputdraconis050630/feishu-invitor/internal/biz/domain"
	"github.com/caputdraconis050630/feishu-invitor/internal/biz/repo"
)

// MembershipEventType is the kind of membership event being handled
type MembershipEventType string

const (
	EventJoin          MembershipEventType = "join"
	EventProfileChange MembershipEventType = "profile_change"
)

// ErrUnsupportedEvent is returned for event types other than join and profile_change
var ErrUnsupportedEvent = errors.New("unsupported membership event")

// EventResult is the outcome of handling one membership event
type EventResult struct {
	InvitedChannels []string `json:"invited_channels"`
}

// ConventionEventUsecase invites a single user into every channel whose
// convention matches the user's effective name
type ConventionEventUsecase struct {
	conventionRepo  repo.ConventionRepo
	membershipRepo  repo.MembershipRepo
	systemAccountID string
	logger          *log.Logger
}

// NewConventionEventUsecase creates a new convention event usecase
func NewConventionEventUsecase(
	conventionRepo repo.ConventionRepo,
	membershipRepo repo.MembershipRepo,
	systemAccountID string,
) *ConventionEventUsecase {
	return &ConventionEventUsecase{
		conventionRepo:  conventionRepo,
		membershipRepo:  membershipRepo,
		systemAccountID: systemAccountID,
		logger:          log.WithPrefix("Event"),
	}
}

// HandleMembershipEvent handles a join or profile change.
// Not matching any convention is a success with no invited channels.
// Invite failures are isolated per channel; transport errors are collected
// and returned together with the partial result once every convention has
// been evaluated.
func (uc *ConventionEventUsecase) HandleMembershipEvent(
	ctx context.Context,
	eventType MembershipEventType,
	user domain.Member,
) (*EventResult, error) {
	if eventType != EventJoin && eventType != EventProfileChange {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEvent, eventType)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("membership event without user id")
	}

	result := &EventResult{InvitedChannels: []string{}}
	name := user.EffectiveName()

	if !user.Eligible(uc.systemAccountID) {
		uc.logger.Debug("Skipping ineligible user", "user", user.ID, "event", eventType)
		return result, nil
	}

	uc.logger.Info("Handling membership event", "event", eventType, "user", user.ID, "name", name)

	conventions, err := uc.conventionRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list conventions: %w", err)
	}

	var errs []error
	for _, conv := range conventions {
		if !domain.Compile(conv.Pattern)(name) {
			continue
		}

		ok, err := uc.membershipRepo.InviteUserToChannel(ctx, user.ID, conv.ChannelID)
		if err != nil {
			uc.logger.Error("Invite failed", "user", user.ID, "channel", conv.ChannelID, "err", err)
			errs = append(errs, fmt.Errorf("invite %s to %s: %w", user.ID, conv.ChannelID, err))
			continue
		}
		if ok {
			result.InvitedChannels = append(result.InvitedChannels, conv.ChannelID)
		}
	}

	if len(result.InvitedChannels) > 0 {
		uc.logger.Info("User invited", "user", user.FormatDisplay(), "channels", result.InvitedChannels)
	} else {
		uc.logger.Info("User does not match any convention", "name", name)
	}

	return result, errors.Join(errs...)
}
