package usecase

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/caputdraconis050630/feishu-invitor/internal/biz/domain"
)

// Mock implementations

type mockConventionRepo struct {
	conventions map[string]*domain.Convention
	err         error
	puts        int
}

func newMockConventionRepo(patterns map[string]string) *mockConventionRepo {
	m := &mockConventionRepo{conventions: map[string]*domain.Convention{}}
	for ch, p := range patterns {
		now := time.Now()
		m.conventions[ch] = &domain.Convention{ChannelID: ch, Pattern: p, CreatedAt: now, UpdatedAt: now, Revision: 1}
	}
	return m
}

func (m *mockConventionRepo) GetByChannel(ctx context.Context, channelID string) (*domain.Convention, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.conventions[channelID], nil
}

func (m *mockConventionRepo) PutOrUpdate(ctx context.Context, channelID, pattern string) (*domain.Convention, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.puts++
	now := time.Now()
	if c, ok := m.conventions[channelID]; ok {
		c.Pattern = pattern
		c.UpdatedAt = now
		c.Revision++
		cp := *c
		return &cp, nil
	}
	c := &domain.Convention{ChannelID: channelID, Pattern: pattern, CreatedAt: now, UpdatedAt: now, Revision: 1}
	m.conventions[channelID] = c
	return c, nil
}

func (m *mockConventionRepo) Delete(ctx context.Context, channelID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.conventions[channelID]
	delete(m.conventions, channelID)
	return ok, nil
}

func (m *mockConventionRepo) ListAll(ctx context.Context) ([]*domain.Convention, error) {
	if m.err != nil {
		return nil, m.err
	}
	var result []*domain.Convention
	for _, c := range m.conventions {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ChannelID < result[j].ChannelID })
	return result, nil
}

func (m *mockConventionRepo) Close() error {
	return nil
}

type invite struct {
	userID    string
	channelID string
}

type mockMembershipRepo struct {
	members  []domain.Member
	channels map[string]map[string]struct{}
	rejected map[string]bool  // user IDs the API refuses
	failing  map[string]error // user IDs whose invite fails in transport
	listErr  error
	invites  []invite
}

func newMockMembershipRepo(members ...domain.Member) *mockMembershipRepo {
	return &mockMembershipRepo{
		members:  members,
		channels: map[string]map[string]struct{}{},
		rejected: map[string]bool{},
		failing:  map[string]error{},
	}
}

func (m *mockMembershipRepo) ListWorkspaceMembers(ctx context.Context) ([]domain.Member, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.members, nil
}

func (m *mockMembershipRepo) ListChannelMembers(ctx context.Context, channelID string) (map[string]struct{}, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	result := map[string]struct{}{}
	for id := range m.channels[channelID] {
		result[id] = struct{}{}
	}
	return result, nil
}

func (m *mockMembershipRepo) InviteUserToChannel(ctx context.Context, userID, channelID string) (bool, error) {
	m.invites = append(m.invites, invite{userID: userID, channelID: channelID})
	if err, ok := m.failing[userID]; ok {
		return false, err
	}
	if m.rejected[userID] {
		return false, nil
	}
	if m.channels[channelID] == nil {
		m.channels[channelID] = map[string]struct{}{}
	}
	m.channels[channelID][userID] = struct{}{}
	return true, nil
}

func (m *mockMembershipRepo) invitedUsers() []string {
	var ids []string
	for _, inv := range m.invites {
		ids = append(ids, inv.userID)
	}
	return ids
}

type mockDispatcher struct {
	jobs []domain.ReconcileJob
	err  error
}

func (m *mockDispatcher) Dispatch(ctx context.Context, job domain.ReconcileJob) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.jobs = append(m.jobs, job)
	return "job-1", nil
}

type mockChatRepo struct {
	names map[string]string
}

func (m *mockChatRepo) GetChannelName(ctx context.Context, channelID string) (string, error) {
	name, ok := m.names[channelID]
	if !ok {
		return "", errors.New("chat not found")
	}
	return name, nil
}

type mockRecommendRepo struct {
	suggestion string
	err        error
	existing   []*domain.Convention
}

func (m *mockRecommendRepo) SuggestPattern(ctx context.Context, channelName string, existing []*domain.Convention) (string, error) {
	m.existing = existing
	return m.suggestion, m.err
}

var errTransport = errors.New("connection reset")
