package mcp

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/caputdraconis050630/feishu-invitor/internal/biz/domain"
	"github.com/caputdraconis050630/feishu-invitor/internal/biz/usecase"
)

// ConventionAdmin manages stored conventions
type ConventionAdmin interface {
	HandleSetConvention(ctx context.Context, channelID, text string) (*usecase.SetConventionResult, error)
	ListConventions(ctx context.Context) ([]*domain.Convention, error)
}

// Reconciler runs a reconciliation synchronously
type Reconciler interface {
	ReconcileChannel(ctx context.Context, channelID string) (*usecase.ReconcileResult, error)
}

// Recommender suggests conventions
type Recommender interface {
	RecommendConvention(ctx context.Context, channelID string) (*usecase.Recommendation, error)
}

// Server exposes the convention admin operations as MCP tools
type Server struct {
	server      *mcp.Server
	admin       ConventionAdmin
	reconciler  Reconciler
	recommender Recommender
	logger      *log.Logger
}

// NewServer creates a new MCP server with all tools registered
func NewServer(admin ConventionAdmin, reconciler Reconciler, recommender Recommender, version string) *Server {
	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "feishu-invitor",
			Version: version,
		}, nil),
		admin:       admin,
		reconciler:  reconciler,
		recommender: recommender,
		logger:      log.WithPrefix("MCP"),
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "invitor_set_convention",
		Description: "Set, replace or remove the naming convention of a Feishu group chat. A convention is a single word where * matches any run of characters, e.g. team_*. Matching members are invited in the background. An empty text removes the convention.",
	}, s.handleSetConvention)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "invitor_list_conventions",
		Description: "List every stored channel naming convention.",
	}, s.handleListConventions)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "invitor_reconcile_channel",
		Description: "Invite every workspace member matching the channel's convention who is not in the channel yet, and wait for the result.",
	}, s.handleReconcileChannel)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "invitor_recommend_convention",
		Description: "Suggest a naming convention for a channel based on its name and the conventions already in use. Nothing is saved.",
	}, s.handleRecommendConvention)
}

// Run starts the MCP server with stdio transport
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// GetServer returns the underlying MCP server
func (s *Server) GetServer() *mcp.Server {
	return s.server
}

// SetConventionInput is the input for invitor_set_convention
type SetConventionInput struct {
	ChannelID string `json:"channel_id" jsonschema:"the chat_id of the group chat"`
	Text      string `json:"text,omitempty" jsonschema:"the convention pattern, empty to remove it"`
}

// SetConventionOutput is the output for invitor_set_convention
type SetConventionOutput struct {
	Action  string `json:"action,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
	JobID   string `json:"job_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleSetConvention(ctx context.Context, req *mcp.CallToolRequest, input SetConventionInput) (*mcp.CallToolResult, SetConventionOutput, error) {
	if input.ChannelID == "" {
		return nil, SetConventionOutput{Error: "channel_id is required"}, nil
	}

	result, err := s.admin.HandleSetConvention(ctx, input.ChannelID, input.Text)
	if err != nil {
		s.logger.Error("Set convention failed", "channel", input.ChannelID, "err", err)
		return nil, SetConventionOutput{Error: err.Error()}, nil
	}

	return nil, SetConventionOutput{
		Action:  string(result.Action),
		Reason:  string(result.Reason),
		Message: result.Message,
		JobID:   result.JobID,
	}, nil
}

// ListConventionsInput is empty - no input needed
type ListConventionsInput struct{}

// ConventionItem is one stored convention
type ConventionItem struct {
	ChannelID string `json:"channel_id"`
	Pattern   string `json:"pattern"`
	UpdatedAt string `json:"updated_at"`
}

// ListConventionsOutput contains the stored conventions
type ListConventionsOutput struct {
	Conventions []ConventionItem `json:"conventions"`
	Error       string           `json:"error,omitempty"`
}

func (s *Server) handleListConventions(ctx context.Context, req *mcp.CallToolRequest, input ListConventionsInput) (*mcp.CallToolResult, ListConventionsOutput, error) {
	conventions, err := s.admin.ListConventions(ctx)
	if err != nil {
		return nil, ListConventionsOutput{Conventions: []ConventionItem{}, Error: err.Error()}, nil
	}

	items := make([]ConventionItem, 0, len(conventions))
	for _, c := range conventions {
		items = append(items, ConventionItem{
			ChannelID: c.ChannelID,
			Pattern:   c.Pattern,
			UpdatedAt: c.UpdatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return nil, ListConventionsOutput{Conventions: items}, nil
}

// ReconcileChannelInput is the input for invitor_reconcile_channel
type ReconcileChannelInput struct {
	ChannelID string `json:"channel_id" jsonschema:"the chat_id of the group chat"`
}

// ReconcileChannelOutput is the output for invitor_reconcile_channel
type ReconcileChannelOutput struct {
	Pattern      string `json:"pattern,omitempty"`
	InvitedCount int    `json:"invited_count"`
	Matched      int    `json:"matched"`
	Failed       int    `json:"failed"`
	Error        string `json:"error,omitempty"`
}

func (s *Server) handleReconcileChannel(ctx context.Context, req *mcp.CallToolRequest, input ReconcileChannelInput) (*mcp.CallToolResult, ReconcileChannelOutput, error) {
	if input.ChannelID == "" {
		return nil, ReconcileChannelOutput{Error: "channel_id is required"}, nil
	}

	result, err := s.reconciler.ReconcileChannel(ctx, input.ChannelID)
	out := ReconcileChannelOutput{}
	if result != nil {
		out.Pattern = result.Pattern
		out.InvitedCount = result.InvitedCount
		out.Matched = result.Matched
		out.Failed = result.Failed
	}
	if err != nil {
		out.Error = err.Error()
	}
	return nil, out, nil
}

// RecommendConventionInput is the input for invitor_recommend_convention
type RecommendConventionInput struct {
	ChannelID string `json:"channel_id" jsonschema:"the chat_id of the group chat"`
}

// RecommendConventionOutput is the output for invitor_recommend_convention
type RecommendConventionOutput struct {
	ChannelName string `json:"channel_name,omitempty"`
	Pattern     string `json:"pattern,omitempty"`
	Source      string `json:"source,omitempty"`
	Error       string `json:"error,omitempty"`
}

func (s *Server) handleRecommendConvention(ctx context.Context, req *mcp.CallToolRequest, input RecommendConventionInput) (*mcp.CallToolResult, RecommendConventionOutput, error) {
	if input.ChannelID == "" {
		return nil, RecommendConventionOutput{Error: "channel_id is required"}, nil
	}

	rec, err := s.recommender.RecommendConvention(ctx, input.ChannelID)
	if err != nil {
		return nil, RecommendConventionOutput{Error: err.Error()}, nil
	}
	return nil, RecommendConventionOutput{
		ChannelName: rec.ChannelName,
		Pattern:     rec.Pattern,
		Source:      rec.Source,
	}, nil
}
