package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/caputdraconis050630/feishu-invitor/internal/biz/domain"
	"github.com/caputdraconis050630/feishu-invitor/internal/biz/usecase"
)

// ConventionAdmin manages stored conventions
type ConventionAdmin interface {
	HandleSetConvention(ctx context.Context, channelID, text string) (*usecase.SetConventionResult, error)
	GetConvention(ctx context.Context, channelID string) (*domain.Convention, error)
	ListConventions(ctx context.Context) ([]*domain.Convention, error)
}

// Reconciler runs a reconciliation synchronously
type Reconciler interface {
	ReconcileChannel(ctx context.Context, channelID string) (*usecase.ReconcileResult, error)
}

// MembershipHandler handles membership events
type MembershipHandler interface {
	HandleMembershipEvent(ctx context.Context, eventType usecase.MembershipEventType, user domain.Member) (*usecase.EventResult, error)
}

// Recommender suggests conventions
type Recommender interface {
	RecommendConvention(ctx context.Context, channelID string) (*usecase.Recommendation, error)
}

// Server is the admin HTTP API
type Server struct {
	admin       ConventionAdmin
	reconciler  Reconciler
	events      MembershipHandler
	recommender Recommender

	engine *gin.Engine
	server *http.Server
	addr   string
	logger *log.Logger
}

// NewServer creates a new API server
func NewServer(
	admin ConventionAdmin,
	reconciler Reconciler,
	events MembershipHandler,
	recommender Recommender,
	addr string,
) *Server {
	s := &Server{
		admin:       admin,
		reconciler:  reconciler,
		events:      events,
		recommender: recommender,
		addr:        addr,
		logger:      log.WithPrefix("API"),
	}
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	api := r.Group("/api")
	{
		conventions := api.Group("/conventions")
		{
			conventions.GET("", s.handleListConventions)
			conventions.GET("/:channel_id", s.handleGetConvention)
			conventions.PUT("/:channel_id", s.handleSetConvention)
			conventions.DELETE("/:channel_id", s.handleDeleteConvention)
		}
		api.POST("/reconcile/:channel_id", s.handleReconcile)
		api.POST("/events/membership", s.handleMembershipEvent)
		api.GET("/recommend/:channel_id", s.handleRecommend)
	}
	return r
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("Starting HTTP server", "addr", s.addr)
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("Request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start).Round(time.Millisecond))
	}
}

// errorStatus maps domain errors onto HTTP status codes
func errorStatus(err error) int {
	var apiErr *domain.UpstreamAPIError
	switch {
	case errors.Is(err, domain.ErrConventionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidConvention), errors.Is(err, usecase.ErrUnsupportedEvent):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrUnnamedChannel):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUpstreamUnreachable), errors.As(err, &apiErr):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(c *gin.Context, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "path", c.FullPath(), "err", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
