package server

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caputdraconis050630/feishu-invitor/internal/biz/domain"
	"github.com/caputdraconis050630/feishu-invitor/internal/biz/usecase"
	"github.com/caputdraconis050630/feishu-invitor/internal/infra/feishu"
)

// Mock implementations

type mockSource struct {
	onMessage     feishu.MessageHandler
	onUserCreated feishu.UserEventHandler
	onUserUpdated feishu.UserEventHandler
	stopped       bool
}

func (m *mockSource) OnMessage(h feishu.MessageHandler)       { m.onMessage = h }
func (m *mockSource) OnUserCreated(h feishu.UserEventHandler) { m.onUserCreated = h }
func (m *mockSource) OnUserUpdated(h feishu.UserEventHandler) { m.onUserUpdated = h }
func (m *mockSource) Start(ctx context.Context) error         { return nil }
func (m *mockSource) Stop()                                   { m.stopped = true }

type sentText struct {
	chatID string
	text   string
}

type mockReplier struct {
	sent []sentText
}

func (m *mockReplier) SendText(ctx context.Context, chatID, text string) error {
	m.sent = append(m.sent, sentText{chatID, text})
	return nil
}

type membershipCall struct {
	eventType usecase.MembershipEventType
	user      domain.Member
}

type mockMembershipHandler struct {
	calls []membershipCall
}

func (m *mockMembershipHandler) HandleMembershipEvent(ctx context.Context, eventType usecase.MembershipEventType, user domain.Member) (*usecase.EventResult, error) {
	m.calls = append(m.calls, membershipCall{eventType, user})
	return &usecase.EventResult{InvitedChannels: []string{}}, nil
}

type mockAdmin struct {
	conventions map[string]string
	setCalls    []string
}

func (m *mockAdmin) HandleSetConvention(ctx context.Context, channelID, text string) (*usecase.SetConventionResult, error) {
	m.setCalls = append(m.setCalls, text)
	return &usecase.SetConventionResult{Action: usecase.ActionCreated, Message: "saved " + text}, nil
}

func (m *mockAdmin) GetConvention(ctx context.Context, channelID string) (*domain.Convention, error) {
	p, ok := m.conventions[channelID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrConventionNotFound, channelID)
	}
	return &domain.Convention{ChannelID: channelID, Pattern: p}, nil
}

type mockRecommender struct{}

func (mockRecommender) RecommendConvention(ctx context.Context, channelID string) (*usecase.Recommendation, error) {
	return &usecase.Recommendation{ChannelID: channelID, Pattern: "ops*", Source: usecase.SourceFallback}, nil
}

type mockDispatcher struct {
	jobs []domain.ReconcileJob
}

func (m *mockDispatcher) Dispatch(ctx context.Context, job domain.ReconcileJob) (string, error) {
	m.jobs = append(m.jobs, job)
	return "job-7", nil
}

type testServer struct {
	*FeishuServer
	source     *mockSource
	replier    *mockReplier
	events     *mockMembershipHandler
	admin      *mockAdmin
	dispatcher *mockDispatcher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		source:     &mockSource{},
		replier:    &mockReplier{},
		events:     &mockMembershipHandler{},
		admin:      &mockAdmin{conventions: map[string]string{"oc_1": "alice*"}},
		dispatcher: &mockDispatcher{},
	}
	ts.FeishuServer = NewFeishuServer(ts.source, ts.replier, ts.events, ts.admin, mockRecommender{}, ts.dispatcher, DefaultCommandMessages)
	require.NoError(t, ts.Start(context.Background()))
	return ts
}

func groupMsg(id, text string) *feishu.Message {
	return &feishu.Message{EventID: "ev-" + id, MsgID: id, ChatID: "oc_1", ChatType: "group", Content: text}
}

func TestUserEvents_RouteToMembershipHandler(t *testing.T) {
	ts := newTestServer(t)

	ts.source.onUserCreated(&feishu.UserEvent{EventID: "e1", User: feishu.User{OpenID: "ou_1", Name: "Alice", Nickname: "alice_smith"}})
	ts.source.onUserUpdated(&feishu.UserEvent{EventID: "e2", User: feishu.User{OpenID: "ou_2", Name: "bob", Resigned: true}})

	require.Len(t, ts.events.calls, 2)
	assert.Equal(t, usecase.EventJoin, ts.events.calls[0].eventType)
	assert.Equal(t, domain.Member{ID: "ou_1", DisplayName: "alice_smith", RealName: "Alice"}, ts.events.calls[0].user)
	assert.Equal(t, usecase.EventProfileChange, ts.events.calls[1].eventType)
	assert.True(t, ts.events.calls[1].user.IsDeleted)
}

func TestUserEvents_Deduplicated(t *testing.T) {
	ts := newTestServer(t)
	evt := &feishu.UserEvent{EventID: "e1", User: feishu.User{OpenID: "ou_1", Name: "alice"}}

	ts.source.onUserCreated(evt)
	ts.source.onUserCreated(evt)

	assert.Len(t, ts.events.calls, 1)
}

func TestSetConventionCommand(t *testing.T) {
	ts := newTestServer(t)

	ts.source.onMessage(groupMsg("m1", "/set-convention team_*"))

	assert.Equal(t, []string{"team_*"}, ts.admin.setCalls)
	require.Len(t, ts.replier.sent, 1)
	assert.Equal(t, sentText{"oc_1", "saved team_*"}, ts.replier.sent[0])
}

func TestShowConventionCommand(t *testing.T) {
	ts := newTestServer(t)

	ts.source.onMessage(groupMsg("m1", "/convention"))
	msg := groupMsg("m2", "/convention")
	msg.ChatID = "oc_none"
	ts.source.onMessage(msg)

	require.Len(t, ts.replier.sent, 2)
	assert.Contains(t, ts.replier.sent[0].text, "`alice*`")
	assert.Contains(t, ts.replier.sent[1].text, "no naming convention")
}

func TestReconcileCommand_Dispatches(t *testing.T) {
	ts := newTestServer(t)

	ts.source.onMessage(groupMsg("m1", "/reconcile"))

	assert.Equal(t, []domain.ReconcileJob{{ChannelID: "oc_1", Pattern: "alice*"}}, ts.dispatcher.jobs)
	require.Len(t, ts.replier.sent, 1)
	assert.Contains(t, ts.replier.sent[0].text, "job-7")
}

func TestRecommendCommand(t *testing.T) {
	ts := newTestServer(t)

	ts.source.onMessage(groupMsg("m1", "/recommend-convention"))

	require.Len(t, ts.replier.sent, 1)
	assert.Contains(t, ts.replier.sent[0].text, "`/set-convention ops*`")
}

func TestMessages_IgnoredAndRejected(t *testing.T) {
	ts := newTestServer(t)

	ts.source.onMessage(groupMsg("m1", "just chatting"))
	assert.Empty(t, ts.replier.sent)

	p2p := groupMsg("m2", "/set-convention alice*")
	p2p.ChatType = "p2p"
	ts.source.onMessage(p2p)
	require.Len(t, ts.replier.sent, 1)
	assert.Equal(t, DefaultCommandMessages.GroupOnly, ts.replier.sent[0].text)
	assert.Empty(t, ts.admin.setCalls)

	ts.source.onMessage(groupMsg("m3", "/unknown"))
	require.Len(t, ts.replier.sent, 2)
	assert.Equal(t, DefaultCommandMessages.Usage, ts.replier.sent[1].text)
}

func TestMessages_Deduplicated(t *testing.T) {
	ts := newTestServer(t)
	msg := groupMsg("m1", "/set-convention a*")

	ts.source.onMessage(msg)
	ts.source.onMessage(msg)

	assert.Len(t, ts.admin.setCalls, 1)
}

func TestStop(t *testing.T) {
	ts := newTestServer(t)
	ts.Stop()
	assert.True(t, ts.source.stopped)
}
