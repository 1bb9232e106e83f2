package server

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Pyl2411/Vickhardth-Automation-Reports-sub000/internal/config"
	"github.com/Pyl2411/Vickhardth-Automation-Reports-sub000/internal/server/handlers"
	"github.com/Pyl2411/Vickhardth-Automation-Reports-sub000/internal/store"
)

// Server is the HTTP front of the template mapping tool.
type Server struct {
	router   *gin.Engine
	catalog  *store.Catalog
	handlers *handlers.Handlers
}

// NewServer creates the server, opening the source catalog when one is
// configured.
func NewServer(cfg *config.AppConfig) *Server {
	if !cfg.Server.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	if _, err := config.EnsureDataDir(cfg); err != nil {
		log.Printf("failed to prepare data directory: %v", err)
	}

	var catalog *store.Catalog
	if cfg.Source.DatabasePath != "" {
		var err error
		catalog, err = store.Open(cfg.Source.DatabasePath)
		if err != nil {
			log.Printf("source database unavailable: %v", err)
			catalog = nil
		}
	}

	s := &Server{
		router:   gin.Default(),
		catalog:  catalog,
		handlers: handlers.NewHandlers(cfg, catalog),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// CORS for the local UI.
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	api := s.router.Group("/api")
	{
		s.handlers.RegisterRoutes(api)
	}

	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// Run starts listening on addr.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Close releases the source catalog connection.
func (s *Server) Close() error {
	if s.catalog != nil {
		return s.catalog.Close()
	}
	return nil
}
