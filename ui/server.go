// Package ui exposes the research orchestration engine as a thin JSON
// API. Handlers translate HTTP into domain calls and the error
// taxonomy back into status codes; all behavior lives below them.
package ui

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"researchdesk/internal"
)

// Server represents the web server for the research API
type Server struct {
	router *gin.Engine
	logger *internal.Logger
}

// NewServer creates a new web server instance
func NewServer(ginMode string, logger *internal.Logger) *Server {
	if ginMode != "" {
		gin.SetMode(ginMode)
	}
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}

	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{router: router, logger: logger}
	router.GET("/health", s.handleHealth)
	return s
}

// Router exposes the underlying engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the HTTP server on the given port.
func (s *Server) Run(port string) error {
	s.logger.Info("research API listening on :%s", port)
	return s.router.Run(":" + port)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
