package mcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caputdraconis050630/feishu-invitor/internal/api"
	"github.com/caputdraconis050630/feishu-invitor/internal/biz/usecase"
	"github.com/caputdraconis050630/feishu-invitor/internal/data"
	"github.com/caputdraconis050630/feishu-invitor/internal/service"
)

// slowReconciler stands in for a directory walk that outlives a tool call
type slowReconciler struct {
	mu   sync.Mutex
	runs []string
	done chan string
}

func (r *slowReconciler) ReconcileChannel(ctx context.Context, channelID string) (*usecase.ReconcileResult, error) {
	select {
	case <-time.After(50 * time.Millisecond):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	r.mu.Lock()
	r.runs = append(r.runs, channelID)
	r.mu.Unlock()
	r.done <- channelID
	return &usecase.ReconcileResult{ChannelID: channelID, Pattern: "alice*", InvitedCount: 1, Matched: 1}, nil
}

// newBotAPI runs the admin API the way cmd/invitor does, with its own
// store and dispatcher
func newBotAPI(t *testing.T) (*httptest.Server, *slowReconciler) {
	t.Helper()

	conventions, err := data.NewConventionRepo(filepath.Join(t.TempDir(), "conventions.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { conventions.Close() })

	rec := &slowReconciler{done: make(chan string, 16)}
	disp := service.NewReconcileDispatcher(rec, service.DispatcherConfig{Workers: 1, QueueSize: 16})
	disp.Start(context.Background())
	t.Cleanup(disp.Stop)

	admin := usecase.NewConventionAdminUsecase(conventions, disp, usecase.DefaultAdminMessages)
	srv := api.NewServer(admin, rec, nil, mockRecommender{}, "")

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, rec
}

func TestRelay_QueuedJobsSurviveSessionEnd(t *testing.T) {
	ts, rec := newBotAPI(t)
	relay := NewClient(ts.URL)
	session := connectServer(t, NewServer(relay, relay, relay, "test"))

	channels := []string{"C1", "C2", "C3"}
	for _, ch := range channels {
		var out SetConventionOutput
		callTool(t, session, "invitor_set_convention", map[string]any{"channel_id": ch, "text": "alice*"}, &out)
		require.Equal(t, "created", out.Action)
		require.NotEmpty(t, out.JobID)
	}

	// The MCP client goes away before any job has finished
	require.NoError(t, session.Close())

	completed := map[string]bool{}
	for range channels {
		select {
		case ch := <-rec.done:
			completed[ch] = true
		case <-time.After(2 * time.Second):
			t.Fatalf("jobs completed after session end: %v", completed)
		}
	}
	assert.Len(t, completed, 3)
}

func TestClient_SetConvention(t *testing.T) {
	ts, _ := newBotAPI(t)
	c := NewClient(ts.URL + "/")
	ctx := context.Background()

	result, err := c.HandleSetConvention(ctx, "C1", "alice*")
	require.NoError(t, err)
	assert.Equal(t, usecase.ActionCreated, result.Action)
	require.NotNil(t, result.Convention)
	assert.Equal(t, "alice*", result.Convention.Pattern)

	result, err = c.HandleSetConvention(ctx, "C1", "bob*")
	require.NoError(t, err)
	assert.Equal(t, usecase.ActionUpdated, result.Action)

	result, err = c.HandleSetConvention(ctx, "C1", "foo bar")
	require.NoError(t, err)
	assert.Equal(t, usecase.ActionRejected, result.Action)
	assert.Equal(t, usecase.ReasonInvalid, result.Reason)

	result, err = c.HandleSetConvention(ctx, "C1", "")
	require.NoError(t, err)
	assert.Equal(t, usecase.ActionDeleted, result.Action)

	result, err = c.HandleSetConvention(ctx, "C1", "")
	require.NoError(t, err)
	assert.Equal(t, usecase.ActionRejected, result.Action)
	assert.Equal(t, usecase.ReasonNotFound, result.Reason)
}

func TestClient_ListReconcileRecommend(t *testing.T) {
	ts, _ := newBotAPI(t)
	c := NewClient(ts.URL)
	ctx := context.Background()

	_, err := c.HandleSetConvention(ctx, "C1", "alice*")
	require.NoError(t, err)

	conventions, err := c.ListConventions(ctx)
	require.NoError(t, err)
	require.Len(t, conventions, 1)
	assert.Equal(t, "C1", conventions[0].ChannelID)

	result, err := c.ReconcileChannel(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.InvitedCount)

	rec, err := c.RecommendConvention(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, "ops*", rec.Pattern)
}

func TestClient_ErrorResponses(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/conventions":
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"store unavailable"}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("bad gateway"))
		}
	}))
	defer ts.Close()
	c := NewClient(ts.URL)
	ctx := context.Background()

	_, err := c.ListConventions(ctx)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
	assert.Equal(t, "store unavailable", apiErr.Message)

	_, err = c.ReconcileChannel(ctx, "C1")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "bad gateway", apiErr.Message)
}

func TestClient_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	_, err := NewClient(url).ListConventions(context.Background())
	assert.Error(t, err)
}
