package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/emilythestrangee/qa-forum/backend/internal/config"
	"github.com/emilythestrangee/qa-forum/backend/internal/handlers"
	"github.com/emilythestrangee/qa-forum/backend/internal/metrics"
	"github.com/emilythestrangee/qa-forum/backend/internal/middleware"
	"github.com/emilythestrangee/qa-forum/backend/internal/voting"
)

// HealthChecker reports the state of the backing store.
type HealthChecker interface {
	Health(ctx context.Context) map[string]string
}

// Deps are the collaborators the routes are served from.
type Deps struct {
	Coordinator *voting.Coordinator
	Health      HealthChecker
	Registry    *prometheus.Registry
	Logger      *slog.Logger
}

type Server struct {
	cfg     *config.Config
	deps    Deps
	handler *handlers.Handler
}

// New creates a server instance without binding a listener.
func New(cfg *config.Config, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Server{
		cfg:     cfg,
		deps:    deps,
		handler: handlers.NewHandler(deps.Coordinator),
	}
}

// NewServer creates and configures a new server
func NewServer(cfg *config.Config, deps Deps) *http.Server {
	s := New(cfg, deps)

	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           s.RegisterRoutes(),
		IdleTimeout:       time.Minute,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return server
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	if s.cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(s.deps.Logger))

	origins := s.cfg.AllowOrigins()
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", s.health)
	if s.deps.Registry != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(s.deps.Registry)))
	}

	api := r.Group("/api", middleware.Timeout(s.cfg.RequestTimeout))
	{
		// Public reads
		api.GET("/votes/:kind/:id", s.handler.Vote.GetTally)
		api.GET("/users/:id/reputation", s.handler.User.GetReputation)

		// Protected routes (authentication required)
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware([]byte(s.cfg.JWTSecret)))
		{
			protected.POST("/votes", s.handler.Vote.SubmitVote)
			protected.GET("/votes/:kind/:id/me", s.handler.Vote.GetMyVote)
		}
	}

	return r
}

func (s *Server) health(c *gin.Context) {
	if s.deps.Health == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	stats := s.deps.Health.Health(c.Request.Context())
	status := http.StatusOK
	if stats["status"] != "up" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, stats)
}
