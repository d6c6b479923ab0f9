package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/caputdraconis050630/feishu-invitor/internal/biz/domain"
	"github.com/caputdraconis050630/feishu-invitor/internal/biz/usecase"
	"github.com/caputdraconis050630/feishu-invitor/internal/data"
	"github.com/caputdraconis050630/feishu-invitor/internal/infra/feishu"
)

const seenEventTTL = 5 * time.Minute

// EventSource delivers Feishu events; *feishu.Client implements it
type EventSource interface {
	OnMessage(handler feishu.MessageHandler)
	OnUserCreated(handler feishu.UserEventHandler)
	OnUserUpdated(handler feishu.UserEventHandler)
	Start(ctx context.Context) error
	Stop()
}

// Replier sends chat replies; *feishu.Client implements it
type Replier interface {
	SendText(ctx context.Context, chatID, text string) error
}

// MembershipHandler handles join and profile change events
type MembershipHandler interface {
	HandleMembershipEvent(ctx context.Context, eventType usecase.MembershipEventType, user domain.Member) (*usecase.EventResult, error)
}

// ConventionAdmin handles the convention commands
type ConventionAdmin interface {
	HandleSetConvention(ctx context.Context, channelID, text string) (*usecase.SetConventionResult, error)
	GetConvention(ctx context.Context, channelID string) (*domain.Convention, error)
}

// Recommender suggests conventions
type Recommender interface {
	RecommendConvention(ctx context.Context, channelID string) (*usecase.Recommendation, error)
}

// FeishuServer routes Feishu events to the usecases
type FeishuServer struct {
	source      EventSource
	replier     Replier
	events      MembershipHandler
	admin       ConventionAdmin
	recommender Recommender
	dispatcher  usecase.ReconcileDispatcher
	messages    CommandMessages
	logger      *log.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// Event deduplication cache
	seenMu sync.Mutex
	seen   map[string]time.Time // eventID -> first seen
}

// NewFeishuServer creates a new Feishu server
func NewFeishuServer(
	source EventSource,
	replier Replier,
	events MembershipHandler,
	admin ConventionAdmin,
	recommender Recommender,
	dispatcher usecase.ReconcileDispatcher,
	messages CommandMessages,
) *FeishuServer {
	return &FeishuServer{
		source:      source,
		replier:     replier,
		events:      events,
		admin:       admin,
		recommender: recommender,
		dispatcher:  dispatcher,
		messages:    messages,
		logger:      log.WithPrefix("Server"),
		seen:        make(map[string]time.Time),
	}
}

// Start registers the handlers and blocks while the event connection is up
func (s *FeishuServer) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.source.OnMessage(s.handleMessage)
	s.source.OnUserCreated(s.handleUserCreated)
	s.source.OnUserUpdated(s.handleUserUpdated)
	return s.source.Start(s.ctx)
}

// Stop disconnects and cancels in-flight handlers
func (s *FeishuServer) Stop() {
	s.source.Stop()
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *FeishuServer) baseContext() context.Context {
	if s.ctx != nil {
		return s.ctx
	}
	return context.Background()
}

func (s *FeishuServer) handleUserCreated(evt *feishu.UserEvent) {
	s.handleUserEvent(usecase.EventJoin, evt)
}

func (s *FeishuServer) handleUserUpdated(evt *feishu.UserEvent) {
	s.handleUserEvent(usecase.EventProfileChange, evt)
}

func (s *FeishuServer) handleUserEvent(eventType usecase.MembershipEventType, evt *feishu.UserEvent) {
	if s.isDuplicate(evt.EventID) {
		s.logger.Debug("Duplicate event ignored", "event", evt.EventID)
		return
	}
	if evt.User.OpenID == "" {
		s.logger.Warn("User event without open_id", "event", evt.EventID)
		return
	}

	result, err := s.events.HandleMembershipEvent(s.baseContext(), eventType, data.MemberFromUser(evt.User))
	if err != nil {
		s.logger.Error("Membership event failed", "type", eventType, "user", evt.User.OpenID, "err", err)
	}
	if result != nil && len(result.InvitedChannels) > 0 {
		s.logger.Info("Membership event handled", "type", eventType, "user", evt.User.OpenID, "channels", result.InvitedChannels)
	}
}

// handleMessage handles chat commands
func (s *FeishuServer) handleMessage(msg *feishu.Message) {
	dedupKey := msg.EventID
	if dedupKey == "" {
		dedupKey = msg.MsgID
	}
	if s.isDuplicate(dedupKey) {
		s.logger.Debug("Duplicate message ignored", "msg", msg.MsgID)
		return
	}

	cmd, ok := parseCommand(msg.Content)
	if !ok {
		return
	}

	ctx := s.baseContext()
	s.logger.Info("Command received", "chat", msg.ChatID, "sender", msg.SenderID, "cmd", cmd.name)

	if msg.ChatType != "group" && cmd.name != cmdHelp {
		s.reply(ctx, msg.ChatID, s.messages.GroupOnly)
		return
	}

	s.reply(ctx, msg.ChatID, s.execute(ctx, msg.ChatID, cmd))
}

// execute runs a command and returns the reply text
func (s *FeishuServer) execute(ctx context.Context, chatID string, cmd command) string {
	switch cmd.name {
	case cmdSetConvention:
		result, err := s.admin.HandleSetConvention(ctx, chatID, cmd.arg)
		if err != nil {
			s.logger.Error("Set convention failed", "chat", chatID, "err", err)
			return s.messages.InternalError
		}
		return result.Message

	case cmdShowConvention:
		conv, err := s.admin.GetConvention(ctx, chatID)
		if errors.Is(err, domain.ErrConventionNotFound) {
			return render(s.messages.NoConvention, map[string]string{"usage": s.messages.Usage})
		}
		if err != nil {
			s.logger.Error("Get convention failed", "chat", chatID, "err", err)
			return s.messages.InternalError
		}
		return render(s.messages.ShowConvention, map[string]string{"pattern": conv.Pattern})

	case cmdReconcile:
		conv, err := s.admin.GetConvention(ctx, chatID)
		if errors.Is(err, domain.ErrConventionNotFound) {
			return render(s.messages.NoConvention, map[string]string{"usage": s.messages.Usage})
		}
		if err != nil {
			s.logger.Error("Get convention failed", "chat", chatID, "err", err)
			return s.messages.InternalError
		}
		jobID, err := s.dispatcher.Dispatch(ctx, domain.ReconcileJob{ChannelID: chatID, Pattern: conv.Pattern})
		if err != nil {
			s.logger.Error("Dispatch failed", "chat", chatID, "err", err)
			return s.messages.ReconcileFailed
		}
		return render(s.messages.ReconcileQueued, map[string]string{"pattern": conv.Pattern, "job_id": jobID})

	case cmdRecommendConvention:
		rec, err := s.recommender.RecommendConvention(ctx, chatID)
		if err != nil {
			s.logger.Error("Recommend failed", "chat", chatID, "err", err)
			return s.messages.InternalError
		}
		return render(s.messages.Recommendation, map[string]string{"pattern": rec.Pattern, "source": rec.Source})

	default:
		return s.messages.Usage
	}
}

func (s *FeishuServer) reply(ctx context.Context, chatID, text string) {
	if text == "" {
		return
	}
	if err := s.replier.SendText(ctx, chatID, text); err != nil {
		s.logger.Error("Failed to send reply", "chat", chatID, "err", err)
	}
}

// isDuplicate records the id and reports whether it was seen in the last
// few minutes. Empty ids are never duplicates.
func (s *FeishuServer) isDuplicate(id string) bool {
	if id == "" {
		return false
	}

	s.seenMu.Lock()
	defer s.seenMu.Unlock()

	now := time.Now()
	if ts, ok := s.seen[id]; ok && now.Sub(ts) < seenEventTTL {
		return true
	}
	s.seen[id] = now

	// Prune on insert so the cache stays bounded
	cutoff := now.Add(-seenEventTTL)
	for k, ts := range s.seen {
		if ts.Before(cutoff) {
			delete(s.seen, k)
		}
	}
	return false
}
