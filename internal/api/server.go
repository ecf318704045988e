package api

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"parkir/internal/cache"
	"parkir/internal/config"
	"parkir/internal/handlers"
	"parkir/internal/messaging"
	"parkir/internal/middleware"
	"parkir/internal/repository"
	"parkir/internal/search"
	"parkir/internal/service"

	"parkir/internal/database"
)

// Server wires the HTTP API together
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	nats     *messaging.NATSClient
	cache    *cache.Client
	services *service.Services
	repos    *repository.Repositories
}

// NewServer connects all collaborators and sets up routes. The database is
// required; NATS, Elasticsearch and Redis are best-effort collaborators and
// the server runs without them.
func NewServer(cfg *config.Config) *Server {
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		slog.Warn("NATS unavailable, parking events will not be broadcast", "error", err)
		natsClient = nil
	}

	var esClient *search.ElasticsearchClient
	if cfg.Elasticsearch.Enabled {
		esClient, err = search.NewElasticsearchClient(cfg.Elasticsearch)
		if err != nil {
			slog.Warn("Elasticsearch unavailable, transaction search disabled", "error", err)
			esClient = nil
		}
	}

	cacheClient, err := cache.NewClient(cfg.Cache)
	if err != nil {
		slog.Warn("Redis unavailable, running without read caches", "error", err)
		cacheClient = nil
	}

	repos := repository.NewRepositories(db)
	seedDefaultOperator(repos)

	services := service.NewServices(db, repos, natsClient, esClient, cacheClient)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())

	server := &Server{
		router:   router,
		config:   cfg,
		db:       db,
		nats:     natsClient,
		cache:    cacheClient,
		services: services,
		repos:    repos,
	}

	server.setupRoutes()

	return server
}

func (s *Server) setupRoutes() {
	h := handlers.NewHandlers(s.services)

	// A nil *cache.Client must stay a nil interface inside the middleware.
	var authCache middleware.AuthCache
	if s.cache != nil {
		authCache = s.cache
	}

	api := s.router.Group("/api")
	api.Use(middleware.BasicAuth(s.repos.Operators, authCache))
	{
		parking := api.Group("/parking")
		{
			parking.POST("/entry", h.RecordEntry)
			parking.POST("/exit", h.RecordExit)
		}

		spaces := api.Group("/spaces")
		{
			spaces.POST("", h.CreateSpace)
			spaces.GET("", h.ListSpaces)
			spaces.PATCH("/:id", h.UpdateSpace)
			spaces.DELETE("/:id", h.DeleteSpace)
		}

		api.GET("/vehicles", h.ListParkedVehicles)
		api.GET("/dashboard", h.GetDashboard)
		api.GET("/transactions/search", h.SearchTransactions)
	}

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (s *Server) healthCheck(c *gin.Context) {
	dbHealth := s.db.HealthCheck(c.Request.Context())
	status := http.StatusOK
	if dbHealth.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":   dbHealth.Status,
		"service":  "parkir-api",
		"database": dbHealth,
	})
}

// seedDefaultOperator makes a fresh deployment reachable: without at least
// one operator account every API call would be rejected by Basic Auth.
func seedDefaultOperator(repos *repository.Repositories) {
	username := os.Getenv("ADMIN_USERNAME")
	if username == "" {
		username = "admin"
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
	}

	hash := sha256.Sum256([]byte(password))
	if err := repos.Operators.EnsureDefault(context.Background(), username, fmt.Sprintf("%x", hash), "Default operator"); err != nil {
		slog.Warn("Failed to seed default operator", "error", err)
	}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%s", s.config.Port)
	return s.router.Run(addr)
}

// GetRouter exposes the router for tests and the main entrypoint
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup closes the outbound connections
func (s *Server) Cleanup() error {
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			log.Printf("Error closing NATS connection: %v", err)
		}
	}

	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			log.Printf("Error closing Redis connection: %v", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			log.Printf("Error closing database connection: %v", err)
			return err
		}
	}

	return nil
}
