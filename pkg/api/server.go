// Package api provides the HTTP API for the voter-file chat gateway.
package api

import (
	"context"
	"net"
	"net/http"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/njvoter/gateway/pkg/config"
	"github.com/njvoter/gateway/pkg/database"
	"github.com/njvoter/gateway/pkg/events"
	"github.com/njvoter/gateway/pkg/querysvc"
	"github.com/njvoter/gateway/pkg/services"
	"github.com/njvoter/gateway/pkg/warehouse"
)

// Server is the HTTP API server.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server
	cfg        *config.Config
	dbClient   *database.Client

	warehouse   *warehouse.Executor
	queryGen    *querysvc.Service
	savedQuery  *services.SavedQueryService
	campaigns   *services.CampaignService
	connManager *events.ConnectionManager
}

// NewServer creates a new API server with Echo v5.
func NewServer(
	cfg *config.Config,
	dbClient *database.Client,
	warehouseExecutor *warehouse.Executor,
	queryGen *querysvc.Service,
	savedQuery *services.SavedQueryService,
	campaigns *services.CampaignService,
	connManager *events.ConnectionManager,
) *Server {
	e := echo.New()

	s := &Server{
		echo:        e,
		cfg:         cfg,
		dbClient:    dbClient,
		warehouse:   warehouseExecutor,
		queryGen:    queryGen,
		savedQuery:  savedQuery,
		campaigns:   campaigns,
		connManager: connManager,
	}

	s.setupRoutes()
	return s
}

// setupRoutes registers all API routes.
func (s *Server) setupRoutes() {
	s.echo.Use(securityHeaders())
	// Server-wide body size limit (2 MB): generous for a generated SQL
	// statement or a batch of webhook events, well short of anything that
	// looks like an upload.
	s.echo.Use(middleware.BodyLimit(2 * 1024 * 1024))

	s.echo.GET("/health", s.healthHandler)

	v1 := s.echo.Group("/api/v1")

	v1.POST("/query/generate-sql", s.generateSQLHandler)
	v1.POST("/query/execute", s.executeSQLHandler)

	v1.GET("/lists", s.listListsHandler)
	v1.POST("/lists", s.createListHandler)
	v1.GET("/lists/:id", s.getListHandler)
	v1.PUT("/lists/:id", s.updateListHandler)
	v1.DELETE("/lists/:id", s.deleteListHandler)
	v1.POST("/lists/:id/run", s.runListHandler)
	v1.POST("/lists/:id/regenerate-sql", s.regenerateListSQLHandler)
	v1.GET("/lists/:id/export", s.exportListHandler)

	v1.POST("/campaigns", s.createCampaignHandler)
	v1.GET("/campaigns", s.listCampaignsHandler)
	v1.GET("/campaigns/:id", s.getCampaignHandler)
	v1.POST("/campaigns/:id/send", s.sendCampaignHandler)
	v1.GET("/campaigns/:id/stats", s.campaignStatsHandler)

	v1.POST("/webhooks/email", s.emailWebhookHandler)

	// WebSocket endpoint for the chat session (§4.F).
	v1.GET("/ws", s.wsHandler)
}

// Start starts the HTTP server on the given address (non-blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.echo,
	}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener.
// Used by test infrastructure to serve on a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
