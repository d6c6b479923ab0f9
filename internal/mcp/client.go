package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/caputdraconis050630/feishu-invitor/internal/api"
	"github.com/caputdraconis050630/feishu-invitor/internal/biz/domain"
	"github.com/caputdraconis050630/feishu-invitor/internal/biz/usecase"
)

// Reconciliation waits for the whole directory walk, so the limit is generous
const relayTimeout = 15 * time.Minute

// Client relays tool calls to the invitor's admin API, so queued
// reconciliations run in the long-lived bot process, not in this one
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new relay client for the admin API at baseURL
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: relayTimeout,
		},
	}
}

// APIError is a non-success response from the admin API
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("invitor API %d: %s", e.Status, e.Message)
}

type setConventionResponse struct {
	Action     usecase.SetAction    `json:"action"`
	Reason     usecase.RejectReason `json:"reason"`
	Message    string               `json:"message"`
	Convention *api.ConventionView  `json:"convention"`
	JobID      string               `json:"job_id"`
	Error      string               `json:"error"`
}

// HandleSetConvention sets or, with empty text, removes a channel's convention
func (c *Client) HandleSetConvention(ctx context.Context, channelID, text string) (*usecase.SetConventionResult, error) {
	var resp setConventionResponse
	status, err := c.do(ctx, http.MethodPut, conventionPath(channelID), api.SetConventionRequest{Text: text}, &resp)
	if err != nil {
		return nil, err
	}
	// Rejections come back as 400/404 with an action in the body
	if resp.Action == "" {
		return nil, &APIError{Status: status, Message: resp.Error}
	}

	result := &usecase.SetConventionResult{
		Action:  resp.Action,
		Reason:  resp.Reason,
		Message: resp.Message,
		JobID:   resp.JobID,
	}
	if resp.Convention != nil {
		result.Convention = fromView(*resp.Convention)
	}
	return result, nil
}

// ListConventions lists every stored convention
func (c *Client) ListConventions(ctx context.Context) ([]*domain.Convention, error) {
	var resp struct {
		Conventions []api.ConventionView `json:"conventions"`
		Error       string               `json:"error"`
	}
	status, err := c.do(ctx, http.MethodGet, "/api/conventions", nil, &resp)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &APIError{Status: status, Message: resp.Error}
	}

	conventions := make([]*domain.Convention, 0, len(resp.Conventions))
	for _, v := range resp.Conventions {
		conventions = append(conventions, fromView(v))
	}
	return conventions, nil
}

// ReconcileChannel runs a reconciliation in the bot process and waits for it.
// Per-invite failures come back as a partial result plus an error.
func (c *Client) ReconcileChannel(ctx context.Context, channelID string) (*usecase.ReconcileResult, error) {
	var resp struct {
		Result *usecase.ReconcileResult `json:"result"`
		Errors string                   `json:"errors"`
		Error  string                   `json:"error"`
	}
	status, err := c.do(ctx, http.MethodPost, "/api/reconcile/"+url.PathEscape(channelID), nil, &resp)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK || resp.Result == nil {
		return nil, &APIError{Status: status, Message: resp.Error}
	}
	if resp.Errors != "" {
		return resp.Result, errors.New(resp.Errors)
	}
	return resp.Result, nil
}

// RecommendConvention asks the bot for a suggested convention
func (c *Client) RecommendConvention(ctx context.Context, channelID string) (*usecase.Recommendation, error) {
	var resp struct {
		usecase.Recommendation
		Error string `json:"error"`
	}
	status, err := c.do(ctx, http.MethodGet, "/api/recommend/"+url.PathEscape(channelID), nil, &resp)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &APIError{Status: status, Message: resp.Error}
	}
	rec := resp.Recommendation
	return &rec, nil
}

func conventionPath(channelID string) string {
	return "/api/conventions/" + url.PathEscape(channelID)
}

func fromView(v api.ConventionView) *domain.Convention {
	return &domain.Convention{
		ChannelID: v.ChannelID,
		Pattern:   v.Pattern,
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
}

// do sends a JSON request and decodes any JSON response body into result
func (c *Client) do(ctx context.Context, method, path string, body, result any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HTTP %s failed: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return resp.StatusCode, &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}
	return resp.StatusCode, nil
}
