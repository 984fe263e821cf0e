// Package http provides HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to application service calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/expense-claims/internal/application/service"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// HealthFunc reports overall health plus a JSON-serializable detail
type HealthFunc func(ctx context.Context) (bool, interface{})

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Mode         string

	// MaxUploadBytes caps how much of an uploaded file is read. Anything
	// longer is truncated one byte past the cap so the size guard still fires.
	MaxUploadBytes int64

	// MetricsPath serves Prometheus metrics when non-empty
	MetricsPath string
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:           "0.0.0.0",
		Port:           8080,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		Mode:           gin.ReleaseMode,
		MaxUploadBytes: service.DefaultMaxAttachmentSize,
		MetricsPath:    "/metrics",
	}
}

// Services are the application services exposed over HTTP
type Services struct {
	Claims      service.ClaimService
	Expenses    service.ExpenseService
	Attachments service.AttachmentService
	Audit       service.AuditService
	Query       service.QueryService
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	services   Services
	health     HealthFunc
	logger     Logger
}

// NewServer creates a new HTTP server with the given services.
// health may be nil, in which case /health always reports healthy.
func NewServer(config ServerConfig, services Services, health HealthFunc, logger Logger) *Server {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = service.DefaultMaxAttachmentSize
	}

	router := gin.New()
	router.MaxMultipartMemory = config.MaxUploadBytes + 1<<16

	server := &Server{
		config:   config,
		router:   router,
		services: services,
		health:   health,
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(loggingMiddleware(s.logger))
	s.router.Use(clientInfoMiddleware())
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	h := &Handlers{
		services:       s.services,
		maxUploadBytes: s.config.MaxUploadBytes,
		logger:         s.logger,
	}

	s.router.GET("/health", s.healthCheck)
	if s.config.MetricsPath != "" {
		s.router.GET(s.config.MetricsPath, metricsHandler())
	}

	api := s.router.Group("/api", principalMiddleware())
	{
		api.POST("/claims", h.CreateClaim)
		api.GET("/claims", h.SearchClaims)
		api.GET("/claims/export", h.ExportClaims)
		api.GET("/claims/:id", h.GetClaim)
		api.PATCH("/claims/:id", h.UpdateClaim)
		api.DELETE("/claims/:id", h.DeleteClaim)

		api.POST("/claims/:id/submit", h.SubmitClaim)
		api.POST("/claims/:id/approve", requireDecider(), h.ApproveClaim)
		api.POST("/claims/:id/reject", requireDecider(), h.RejectClaim)

		api.GET("/claims/:id/expenses", h.ListExpenses)
		api.POST("/claims/:id/expenses", h.CreateExpense)
		api.GET("/expenses/:id", h.GetExpense)
		api.PUT("/expenses/:id", h.UpdateExpense)
		api.DELETE("/expenses/:id", h.DeleteExpense)

		api.GET("/claims/:id/attachments", h.ListAttachments)
		api.POST("/claims/:id/attachments", h.UploadAttachment)
		api.GET("/attachments/:id/download", h.DownloadAttachment)
		api.DELETE("/attachments/:id", h.DeleteAttachment)

		api.GET("/audit/users/:user", h.UserActivity)
		api.GET("/audit/:entityType/:entityId", h.EntityHistory)
	}
}

// healthCheck handles GET /health
func (s *Server) healthCheck(c *gin.Context) {
	healthy, detail := true, interface{}(nil)
	if s.health != nil {
		healthy, detail = s.health(c.Request.Context())
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, Response{
		Success: healthy,
		Data: gin.H{
			"status":    map[bool]string{true: "healthy", false: "unhealthy"}[healthy],
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"details":   detail,
		},
	})
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
