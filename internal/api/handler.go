package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/caputdraconis050630/feishu-invitor/internal/biz/domain"
	"github.com/caputdraconis050630/feishu-invitor/internal/biz/usecase"
)

// ConventionView is the JSON form of a convention
type ConventionView struct {
	ChannelID string    `json:"channel_id"`
	Pattern   string    `json:"pattern"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toView(c *domain.Convention) ConventionView {
	return ConventionView{
		ChannelID: c.ChannelID,
		Pattern:   c.Pattern,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// SetConventionRequest is the body of PUT /api/conventions/:channel_id
type SetConventionRequest struct {
	Text string `json:"text"`
}

// MembershipEventRequest is the body of POST /api/events/membership
type MembershipEventRequest struct {
	Type string `json:"type" binding:"required"`
	User struct {
		ID          string `json:"id" binding:"required"`
		DisplayName string `json:"display_name"`
		RealName    string `json:"real_name"`
		IsBot       bool   `json:"is_bot"`
		IsDeleted   bool   `json:"is_deleted"`
	} `json:"user" binding:"required"`
}

func (s *Server) handleListConventions(c *gin.Context) {
	conventions, err := s.admin.ListConventions(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}

	views := make([]ConventionView, 0, len(conventions))
	for _, conv := range conventions {
		views = append(views, toView(conv))
	}
	c.JSON(http.StatusOK, gin.H{"conventions": views})
}

func (s *Server) handleGetConvention(c *gin.Context) {
	conv, err := s.admin.GetConvention(c.Request.Context(), c.Param("channel_id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toView(conv))
}

func (s *Server) handleSetConvention(c *gin.Context) {
	var req SetConventionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.setConvention(c, req.Text)
}

func (s *Server) handleDeleteConvention(c *gin.Context) {
	s.setConvention(c, "")
}

func (s *Server) setConvention(c *gin.Context, text string) {
	result, err := s.admin.HandleSetConvention(c.Request.Context(), c.Param("channel_id"), text)
	if err != nil {
		s.fail(c, err)
		return
	}

	status := http.StatusOK
	switch {
	case result.Action == usecase.ActionCreated:
		status = http.StatusCreated
	case result.Reason == usecase.ReasonInvalid:
		status = http.StatusBadRequest
	case result.Reason == usecase.ReasonNotFound:
		status = http.StatusNotFound
	}

	body := gin.H{
		"action":  result.Action,
		"message": result.Message,
	}
	if result.Reason != "" {
		body["reason"] = result.Reason
	}
	if result.Convention != nil {
		body["convention"] = toView(result.Convention)
	}
	if result.JobID != "" {
		body["job_id"] = result.JobID
	}
	c.JSON(status, body)
}

// handleReconcile runs a reconciliation and waits for it.
// Per-invite failures still return the partial result with an errors field.
func (s *Server) handleReconcile(c *gin.Context) {
	result, err := s.reconciler.ReconcileChannel(c.Request.Context(), c.Param("channel_id"))
	if result == nil {
		s.fail(c, err)
		return
	}

	body := gin.H{"result": result}
	if err != nil {
		body["errors"] = err.Error()
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleMembershipEvent(c *gin.Context) {
	var req MembershipEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := domain.Member{
		ID:          req.User.ID,
		DisplayName: req.User.DisplayName,
		RealName:    req.User.RealName,
		IsBot:       req.User.IsBot,
		IsDeleted:   req.User.IsDeleted,
	}
	result, err := s.events.HandleMembershipEvent(c.Request.Context(), usecase.MembershipEventType(req.Type), user)
	if result == nil {
		s.fail(c, err)
		return
	}

	body := gin.H{"invited_channels": result.InvitedChannels}
	if err != nil {
		body["errors"] = err.Error()
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleRecommend(c *gin.Context) {
	rec, err := s.recommender.RecommendConvention(c.Request.Context(), c.Param("channel_id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}
