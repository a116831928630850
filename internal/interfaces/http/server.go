// Package http provides the HTTP adapter over the ledger and report
// services. It is a thin translation layer: request parsing, principal
// checks and error mapping live here, all semantics live in the services.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/S-poovarasan/College-Fund-Management/internal/ledger"
	"github.com/S-poovarasan/College-Fund-Management/internal/report"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	UploadDir    string
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	ledger     *ledger.Service
	reports    *report.Engine
	pdf        *report.PDFRenderer
	excel      *report.ExcelRenderer
	auth       Authenticator
	logger     *zap.Logger
}

// NewServer creates a new HTTP server
func NewServer(
	config ServerConfig,
	ledgerService *ledger.Service,
	reportEngine *report.Engine,
	pdfRenderer *report.PDFRenderer,
	excelRenderer *report.ExcelRenderer,
	auth Authenticator,
	logger *zap.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config:  config,
		router:  gin.New(),
		ledger:  ledgerService,
		reports: reportEngine,
		pdf:     pdfRenderer,
		excel:   excelRenderer,
		auth:    auth,
		logger:  logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
	s.router.Use(corsMiddleware())
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		s.logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User, X-Role, X-Department")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api/v1")
	api.Use(s.authMiddleware())

	departments := api.Group("/departments")
	{
		departments.POST("", requireRole(RoleAdmin), s.handleCreateDepartment)
		departments.GET("", requireRole(RoleAdmin), s.handleListDepartments)
		departments.PUT("/:id", requireRole(RoleAdmin), s.handleUpdateDepartment)
		departments.DELETE("/:id", requireRole(RoleAdmin), s.handleDeleteDepartment)
		departments.POST("/:id/allocate", requireRole(RoleAdmin), s.handleAllocate)
		departments.GET("/:id/balance", s.handleGetBalance)
	}

	bills := api.Group("/bills")
	{
		bills.POST("", requireRole(RoleHOD), s.handleSubmitBill)
		bills.GET("", s.handleListBills)
		bills.PUT("/:id/verify", requireRole(RoleAdmin), s.handleDecideBill)
		bills.GET("/:id/document", s.handleDownloadArtifact)
	}

	reports := api.Group("/reports")
	{
		reports.GET("", s.handleReport)
		reports.GET("/export", s.handleExportReport)
	}
}

// Start begins serving and blocks until the listener fails
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the underlying handler, for tests
func (s *Server) Router() http.Handler {
	return s.router
}
