package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"sitepulse/api/internal/config"
	"sitepulse/api/internal/middleware"
	"sitepulse/api/internal/models"
	"sitepulse/api/internal/repository"
	"sitepulse/api/internal/service"
)

type HandlerSet struct {
	log         zerolog.Logger
	cfg         *config.AppConfig
	authService *service.AuthService
	users       service.UserStore
	sessions    service.SessionStore
	db          *pgxpool.Pool
	cache       *redis.Client
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, cache *redis.Client, cfg *config.AppConfig) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	auth := service.NewAuthService(userRepo, sessionRepo, cfg, log)

	return HandlerSet{
		log:         log,
		cfg:         cfg,
		authService: auth,
		users:       userRepo,
		sessions:    sessionRepo,
		db:          db,
		cache:       cache,
	}
}

func (h HandlerSet) Mount(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	{
		auth := v1.Group("/auth")
		limited := middleware.RateLimit(h.cache, h.log, "auth", h.cfg.RateLimit.LoginLimit, h.cfg.RateLimit.LoginWindow)
		auth.POST("/register", limited, h.Register)
		auth.POST("/login", limited, h.Login)

		protected := v1.Group("/auth")
		protected.Use(middleware.Auth(h.authService))
		protected.POST("/logout", h.Logout)
		protected.GET("/me", h.Me)
		protected.GET("/sessions", h.ListSessions)
		protected.DELETE("/sessions/:id", h.RevokeSession)

		admin := v1.Group("/admin")
		admin.Use(
			middleware.Auth(h.authService),
			middleware.RequireRoles(models.UserRoleAdmin),
		)
		admin.DELETE("/users/:id/sessions", h.AdminRevokeUserSessions)
	}
}
