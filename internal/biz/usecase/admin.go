package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/caputdraconis050630/feishu-invitor/internal/biz/domain"
	"github.com/caputdraconis050630/feishu-invitor/internal/biz/repo"
)

// SetAction is what a set-convention request ended up doing
type SetAction string

const (
	ActionCreated  SetAction = "created"
	ActionUpdated  SetAction = "updated"
	ActionDeleted  SetAction = "deleted"
	ActionRejected SetAction = "rejected"
)

// RejectReason explains a rejected set-convention request
type RejectReason string

const (
	ReasonNotFound RejectReason = "not_found"
	ReasonInvalid  RejectReason = "invalid"
)

// ReconcileDispatcher submits reconciliation jobs without waiting for them
type ReconcileDispatcher interface {
	Dispatch(ctx context.Context, job domain.ReconcileJob) (jobID string, err error)
}

// AdminMessages holds the reply templates for the admin command
// {pattern} and {reason} are substituted
type AdminMessages struct {
	Created  string
	Updated  string
	Deleted  string
	NotFound string
	Invalid  string
}

// DefaultAdminMessages are used when no template file is configured
var DefaultAdminMessages = AdminMessages{
	Created:  "Naming convention for this channel is set to `{pattern}`. Inviting matching members in the background.",
	Updated:  "Naming convention for this channel is updated to `{pattern}`. Inviting matching members in the background.",
	Deleted:  "Naming convention for this channel has been removed.",
	NotFound: "This channel has no naming convention.",
	Invalid:  "Invalid naming convention: {reason}. Example: `/set-convention team_*`",
}

// SetConventionResult is the reply to a set-convention request
type SetConventionResult struct {
	Action     SetAction          `json:"action"`
	Reason     RejectReason       `json:"reason,omitempty"`
	Message    string             `json:"message"`
	Convention *domain.Convention `json:"convention,omitempty"`
	JobID      string             `json:"job_id,omitempty"`
}

// ConventionAdminUsecase handles the set-convention admin command
type ConventionAdminUsecase struct {
	conventionRepo repo.ConventionRepo
	dispatcher     ReconcileDispatcher
	messages       AdminMessages
	logger         *log.Logger
}

// NewConventionAdminUsecase creates a new convention admin usecase
func NewConventionAdminUsecase(
	conventionRepo repo.ConventionRepo,
	dispatcher ReconcileDispatcher,
	messages AdminMessages,
) *ConventionAdminUsecase {
	return &ConventionAdminUsecase{
		conventionRepo: conventionRepo,
		dispatcher:     dispatcher,
		messages:       messages,
		logger:         log.WithPrefix("Admin"),
	}
}

// HandleSetConvention creates, updates or deletes the channel's convention.
// Empty text deletes; text with whitespace is rejected before the store is
// touched. A successful write triggers reconciliation asynchronously and
// returns without waiting for it.
func (uc *ConventionAdminUsecase) HandleSetConvention(ctx context.Context, channelID, text string) (*SetConventionResult, error) {
	if channelID == "" {
		return nil, fmt.Errorf("channel id is required")
	}

	pattern := domain.NormalizePattern(text)
	if pattern == "" {
		return uc.deleteConvention(ctx, channelID)
	}

	if err := domain.ValidatePattern(pattern); err != nil {
		var verr *domain.ValidationError
		reason := err.Error()
		if errors.As(err, &verr) {
			reason = verr.Reason
		}
		uc.logger.Info("Rejected convention", "channel", channelID, "text", pattern, "reason", reason)
		return &SetConventionResult{
			Action:  ActionRejected,
			Reason:  ReasonInvalid,
			Message: uc.render(uc.messages.Invalid, pattern, reason),
		}, nil
	}

	conv, err := uc.conventionRepo.PutOrUpdate(ctx, channelID, pattern)
	if err != nil {
		return nil, fmt.Errorf("save convention: %w", err)
	}

	result := &SetConventionResult{Action: ActionCreated, Convention: conv}
	template := uc.messages.Created
	if !conv.Created() {
		result.Action = ActionUpdated
		template = uc.messages.Updated
	}
	result.Message = uc.render(template, pattern, "")

	uc.logger.Info("Convention saved", "channel", channelID, "pattern", pattern, "action", result.Action)

	// Fire and forget: a dispatch failure must not change the reply
	if uc.dispatcher != nil {
		jobID, err := uc.dispatcher.Dispatch(ctx, domain.ReconcileJob{ChannelID: channelID, Pattern: pattern})
		if err != nil {
			uc.logger.Error("Failed to dispatch reconcile", "channel", channelID, "err", err)
		} else {
			result.JobID = jobID
		}
	}

	return result, nil
}

func (uc *ConventionAdminUsecase) deleteConvention(ctx context.Context, channelID string) (*SetConventionResult, error) {
	existed, err := uc.conventionRepo.Delete(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("delete convention: %w", err)
	}
	if !existed {
		return &SetConventionResult{
			Action:  ActionRejected,
			Reason:  ReasonNotFound,
			Message: uc.render(uc.messages.NotFound, "", ""),
		}, nil
	}

	uc.logger.Info("Convention deleted", "channel", channelID)
	return &SetConventionResult{
		Action:  ActionDeleted,
		Message: uc.render(uc.messages.Deleted, "", ""),
	}, nil
}

// GetConvention gets a channel's convention
func (uc *ConventionAdminUsecase) GetConvention(ctx context.Context, channelID string) (*domain.Convention, error) {
	conv, err := uc.conventionRepo.GetByChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, fmt.Errorf("%w: channel %s", domain.ErrConventionNotFound, channelID)
	}
	return conv, nil
}

// ListConventions lists all conventions
func (uc *ConventionAdminUsecase) ListConventions(ctx context.Context) ([]*domain.Convention, error) {
	return uc.conventionRepo.ListAll(ctx)
}

func (uc *ConventionAdminUsecase) render(template, pattern, reason string) string {
	return strings.NewReplacer("{pattern}", pattern, "{reason}", reason).Replace(template)
}
