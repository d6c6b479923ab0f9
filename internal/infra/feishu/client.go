package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkevent "github.com/larksuite/oapi-sdk-go/v3/event"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	larkcontact "github.com/larksuite/oapi-sdk-go/v3/service/contact/v3"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	larkws "github.com/larksuite/oapi-sdk-go/v3/ws"
)

// Message represents a received group or p2p text message
type Message struct {
	EventID  string
	ChatID   string
	MsgID    string
	ChatType string // p2p, group
	SenderID string
	Content  string // Text with mention placeholders removed
}

// UserEvent is a contact change pushed by Feishu
type UserEvent struct {
	EventID string
	User    User
}

// MessageHandler is the callback for received messages
type MessageHandler func(msg *Message)

// UserEventHandler is the callback for contact user events
type UserEventHandler func(evt *UserEvent)

// Client is the Feishu API client
type Client struct {
	appID     string
	appSecret string
	larkCli   *lark.Client
	wsCli     *larkws.Client

	onMessage     MessageHandler
	onUserCreated UserEventHandler
	onUserUpdated UserEventHandler

	ctx    context.Context
	cancel context.CancelFunc
	logger *log.Logger
}

// NewClient creates a new Feishu client
// The REST client is usable immediately; Start is only needed for events
func NewClient(appID, appSecret string) *Client {
	return &Client{
		appID:     appID,
		appSecret: appSecret,
		larkCli:   lark.NewClient(appID, appSecret, lark.WithLogLevel(larkcore.LogLevelInfo)),
		logger:    log.WithPrefix("Feishu"),
	}
}

// OnMessage sets the message handler
func (c *Client) OnMessage(handler MessageHandler) {
	c.onMessage = handler
}

// OnUserCreated sets the handler for contact.user.created_v3
func (c *Client) OnUserCreated(handler UserEventHandler) {
	c.onUserCreated = handler
}

// OnUserUpdated sets the handler for contact.user.updated_v3
func (c *Client) OnUserUpdated(handler UserEventHandler) {
	c.onUserUpdated = handler
}

// Start connects to Feishu via WebSocket and blocks while listening for events
func (c *Client) Start(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)

	// Handlers must return quickly so the SDK can ACK, otherwise Feishu retries
	eventHandler := dispatcher.NewEventDispatcher("", "").
		OnP2MessageReceiveV1(func(ctx context.Context, event *larkim.P2MessageReceiveV1) error {
			go c.handleMessage(event)
			return nil
		}).
		OnP2UserCreatedV3(func(ctx context.Context, event *larkcontact.P2UserCreatedV3) error {
			if c.onUserCreated != nil && event.Event != nil {
				evt := &UserEvent{EventID: eventID(event.EventV2Base), User: userFromEvent(event.Event.Object)}
				go c.onUserCreated(evt)
			}
			return nil
		}).
		OnP2UserUpdatedV3(func(ctx context.Context, event *larkcontact.P2UserUpdatedV3) error {
			if c.onUserUpdated != nil && event.Event != nil {
				evt := &UserEvent{EventID: eventID(event.EventV2Base), User: userFromEvent(event.Event.Object)}
				go c.onUserUpdated(evt)
			}
			return nil
		})

	c.wsCli = larkws.NewClient(c.appID, c.appSecret,
		larkws.WithEventHandler(eventHandler),
		larkws.WithLogLevel(larkcore.LogLevelInfo),
	)

	c.logger.Info("Starting WebSocket connection...")

	return c.wsCli.Start(c.ctx)
}

// Stop disconnects from Feishu
func (c *Client) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

func eventID(base *larkevent.EventV2Base) string {
	if base == nil || base.Header == nil {
		return ""
	}
	return base.Header.EventID
}

func userFromEvent(u *larkcontact.UserEvent) User {
	var user User
	if u == nil {
		return user
	}
	user.OpenID = deref(u.OpenId)
	user.Name = deref(u.Name)
	user.Nickname = deref(u.Nickname)
	if u.Status != nil {
		user.Resigned = derefBool(u.Status.IsResigned)
		user.Frozen = derefBool(u.Status.IsFrozen)
	}
	return user
}

// handleMessage converts a text message event and hands it to the handler
func (c *Client) handleMessage(event *larkim.P2MessageReceiveV1) {
	if event.Event == nil || event.Event.Message == nil {
		return
	}
	rawMsg := event.Event.Message

	// Ignore messages sent by apps, including this bot
	if event.Event.Sender != nil && deref(event.Event.Sender.SenderType) == "app" {
		return
	}

	msgType := deref(rawMsg.MessageType)
	if msgType != larkim.MsgTypeText {
		c.logger.Debug("Ignoring message type", "type", msgType)
		return
	}

	msg := &Message{
		EventID:  eventID(event.EventV2Base),
		ChatID:   deref(rawMsg.ChatId),
		MsgID:    deref(rawMsg.MessageId),
		ChatType: deref(rawMsg.ChatType),
		Content:  parseTextContent(deref(rawMsg.Content)),
	}
	if event.Event.Sender != nil && event.Event.Sender.SenderId != nil {
		msg.SenderID = deref(event.Event.Sender.SenderId.OpenId)
	}

	c.logger.Debug("Received message", "chat", msg.ChatID, "type", msg.ChatType, "content", truncate(msg.Content, 50))

	if c.onMessage != nil {
		c.onMessage(msg)
	}
}

var mentionPlaceholder = regexp.MustCompile(`@_user_\d+`)

// parseTextContent extracts text from a text message and drops @_user_N placeholders
func parseTextContent(content string) string {
	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return ""
	}
	return strings.TrimSpace(mentionPlaceholder.ReplaceAllString(parsed.Text, ""))
}

// SendText sends a text message to a chat
func (c *Client) SendText(ctx context.Context, chatID, text string) error {
	content := map[string]string{"text": text}
	contentJSON, _ := json.Marshal(content)

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(larkim.ReceiveIdTypeChatId).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(chatID).
			MsgType(larkim.MsgTypeText).
			Content(string(contentJSON)).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("send message failed: %w", err)
	}
	if !resp.Success() {
		return &APIError{Op: "send message", Code: resp.Code, Msg: resp.Msg}
	}

	c.logger.Debug("Message sent", "chat", chatID)
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefBool(b *bool) bool {
	return b != nil && *b
}
