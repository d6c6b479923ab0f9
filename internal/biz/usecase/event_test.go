package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caputdraconis050630/feishu-invitor/internal/biz/domain"
)

func TestHandleMembershipEvent_NoMatch(t *testing.T) {
	conventions := newMockConventionRepo(map[string]string{"C1": "alice*"})
	membership := newMockMembershipRepo()
	uc := NewConventionEventUsecase(conventions, membership, "")

	result, err := uc.HandleMembershipEvent(context.Background(), EventJoin,
		domain.Member{ID: "U2", DisplayName: "bob_jones"})

	require.NoError(t, err)
	assert.Empty(t, result.InvitedChannels)
	assert.NotNil(t, result.InvitedChannels)
	assert.Empty(t, membership.invites)
}

func TestHandleMembershipEvent_InvitesEveryMatchingChannel(t *testing.T) {
	conventions := newMockConventionRepo(map[string]string{
		"C1": "alice*",
		"C2": "*smith",
		"C3": "bob*",
	})
	membership := newMockMembershipRepo()
	uc := NewConventionEventUsecase(conventions, membership, "")

	result, err := uc.HandleMembershipEvent(context.Background(), EventProfileChange,
		domain.Member{ID: "U1", DisplayName: "alice_smith", RealName: "Alice"})

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"C1", "C2"}, result.InvitedChannels)
}

func TestHandleMembershipEvent_UsesRealNameWhenDisplayNameEmpty(t *testing.T) {
	conventions := newMockConventionRepo(map[string]string{"C1": "alice*"})
	membership := newMockMembershipRepo()
	uc := NewConventionEventUsecase(conventions, membership, "")

	result, err := uc.HandleMembershipEvent(context.Background(), EventJoin,
		domain.Member{ID: "U1", RealName: "alice_smith"})

	require.NoError(t, err)
	assert.Equal(t, []string{"C1"}, result.InvitedChannels)
}

func TestHandleMembershipEvent_SkipsIneligible(t *testing.T) {
	conventions := newMockConventionRepo(map[string]string{"C1": "alice*"})

	tests := []struct {
		name   string
		member domain.Member
	}{
		{"bot", domain.Member{ID: "B1", DisplayName: "alice_bot", IsBot: true}},
		{"deleted", domain.Member{ID: "U9", DisplayName: "alice_old", IsDeleted: true}},
		{"system", domain.Member{ID: "USYS", DisplayName: "alice_system"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			membership := newMockMembershipRepo()
			uc := NewConventionEventUsecase(conventions, membership, "USYS")

			result, err := uc.HandleMembershipEvent(context.Background(), EventJoin, tt.member)

			require.NoError(t, err)
			assert.Empty(t, result.InvitedChannels)
			assert.Empty(t, membership.invites)
		})
	}
}

func TestHandleMembershipEvent_FailureIsolatedPerChannel(t *testing.T) {
	conventions := newMockConventionRepo(map[string]string{"C1": "alice*", "C2": "*smith"})
	membership := newMockMembershipRepo()
	membership.rejected["U1"] = true
	uc := NewConventionEventUsecase(conventions, membership, "")

	result, err := uc.HandleMembershipEvent(context.Background(), EventJoin,
		domain.Member{ID: "U1", DisplayName: "alice_smith"})

	require.NoError(t, err)
	assert.Empty(t, result.InvitedChannels)
	assert.Len(t, membership.invites, 2)
}

func TestHandleMembershipEvent_TransportErrorContinues(t *testing.T) {
	conventions := newMockConventionRepo(map[string]string{"C1": "alice*", "C2": "*smith"})
	membership := newMockMembershipRepo()
	membership.failing["U1"] = errTransport
	uc := NewConventionEventUsecase(conventions, membership, "")

	result, err := uc.HandleMembershipEvent(context.Background(), EventJoin,
		domain.Member{ID: "U1", DisplayName: "alice_smith"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, errTransport))
	require.NotNil(t, result)
	assert.Len(t, membership.invites, 2)
}

func TestHandleMembershipEvent_StoreError(t *testing.T) {
	conventions := newMockConventionRepo(nil)
	conventions.err = domain.ErrStoreUnavailable
	uc := NewConventionEventUsecase(conventions, newMockMembershipRepo(), "")

	_, err := uc.HandleMembershipEvent(context.Background(), EventJoin,
		domain.Member{ID: "U1", DisplayName: "alice"})

	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestHandleMembershipEvent_RejectsUnknownType(t *testing.T) {
	uc := NewConventionEventUsecase(newMockConventionRepo(nil), newMockMembershipRepo(), "")

	_, err := uc.HandleMembershipEvent(context.Background(), "leave", domain.Member{ID: "U1"})
	assert.ErrorIs(t, err, ErrUnsupportedEvent)

	_, err = uc.HandleMembershipEvent(context.Background(), EventJoin, domain.Member{})
	assert.Error(t, err)
}
