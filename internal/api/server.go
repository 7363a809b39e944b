package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"curated/internal/cache"
	"curated/internal/config"
	"curated/internal/database"
	"curated/internal/external"
	"curated/internal/handlers"
	"curated/internal/messaging"
	"curated/internal/middleware"
	"curated/internal/notify"
	"curated/internal/realtime"
	"curated/internal/repository"
	"curated/internal/search"
	"curated/internal/service"
	"curated/internal/storage"
	"curated/internal/validation"
)

// Server представляет HTTP сервер API
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     *config.Config
	db         *database.DB
	nats       *messaging.NATSClient
	valkey     *cache.ValkeyClient
	search     *search.ElasticsearchClient
	hub        *realtime.Hub
	services   *service.Services
	repos      *repository.Repositories
}

// NewServer создаёт все клиенты один раз и передаёт их сервисам явно.
// Postgres, Stripe и NATS обязательны; Valkey, Elasticsearch и Storage
// подключаются, если доступны.
func NewServer(cfg *config.Config) (*Server, error) {
	gin.SetMode(cfg.GinMode)

	if err := validation.Register(); err != nil {
		return nil, err
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := database.WithRetry(ctx, func(context.Context) error { return db.RunMigrations() }); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &Server{
		config: cfg,
		db:     db,
		nats:   natsClient,
		hub:    realtime.NewHub(),
		repos:  repository.NewRepositories(db),
	}

	stripeClient := external.NewStripeClient(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret)
	deps := service.Deps{
		AppURL:    cfg.AppURL,
		Checkout:  stripeClient,
		Verifier:  stripeClient,
		Notifier:  notify.NewDispatcher(external.NewTwilioClient(cfg.Twilio), external.NewEmailClient(cfg.Email)),
		Publisher: natsClient,
		Realtime:  s.hub,
	}

	// Опциональные зависимости присваиваются только при успехе, чтобы
	// в интерфейс не попал nil указатель
	if valkey, err := cache.NewValkeyClient(cache.ValkeyConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      cfg.Redis.TTL,
	}); err != nil {
		slog.Warn("Valkey unavailable, experience list is not cached", "error", err)
	} else {
		s.valkey = valkey
		deps.ListCache = valkey
	}

	if es, err := search.NewElasticsearchClient(cfg.Elasticsearch); err != nil {
		slog.Warn("Elasticsearch unavailable, search falls back to the database", "error", err)
	} else {
		s.search = es
		deps.Search = es
	}

	if cfg.Supabase.URL != "" && cfg.Supabase.ServiceRoleKey != "" {
		deps.Media = storage.NewMediaStore(cfg.Supabase.URL, cfg.Supabase.ServiceRoleKey, cfg.Supabase.MediaBucket)
	}

	s.services = service.NewServices(s.repos, deps)

	h := handlers.NewHandlers(s.services, s.hub)
	s.router = NewRouter(h, s.repos.Users, RouterConfig{
		JWTSecret:      cfg.Supabase.JWTSecret,
		RequestTimeout: cfg.RequestTimeout,
		Health:         s.healthCheck,
	})

	return s, nil
}

type RouterConfig struct {
	JWTSecret      string
	RequestTimeout time.Duration
	Health         gin.HandlerFunc
}

// NewRouter настраивает middleware и все API роуты
func NewRouter(h *handlers.Handlers, roles middleware.RoleReader, cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true

	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())

	health := cfg.Health
	if health == nil {
		health = func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) }
	}
	router.GET("/health", health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.Use(middleware.Timeout(cfg.RequestTimeout))

	// Stripe подписывает запрос сам, JWT тут нет
	api.POST("/webhooks/stripe", h.StripeWebhook)

	// Публичный каталог
	api.GET("/experiences", h.ListExperiences)
	api.GET("/creators", h.ListCreators)

	authed := api.Group("", middleware.Auth(cfg.JWTSecret))
	creator := middleware.RequireRole(roles, "creator", "admin")
	{
		authed.GET("/experiences/:id", h.GetExperience)
		authed.POST("/experiences", creator, h.CreateExperience)
		authed.POST("/experiences/media", creator, h.UploadMedia)
		authed.POST("/experiences/:id/announcements", creator, h.Announce)

		authed.POST("/checkout/sessions", h.CreateCheckoutSession)

		bookings := authed.Group("/bookings")
		{
			bookings.GET("", h.ListBookings)
			bookings.POST("/:id/cancel", h.CancelBooking)
		}

		requests := authed.Group("/booking-requests", creator)
		{
			requests.GET("", h.ListBookingRequests)
			requests.POST("/:id/approve", h.ApproveBookingRequest)
			requests.POST("/:id/decline", h.DeclineBookingRequest)
		}

		authed.POST("/messages/send", h.SendMessage)

		conversations := authed.Group("/conversations")
		{
			conversations.POST("", creator, h.CreateConversation)
			conversations.GET("", h.ListConversations)
			conversations.GET("/unread-count", h.UnreadCount)
			conversations.GET("/:id/messages", h.ListMessages)
			conversations.POST("/:id/messages", h.PostMessage)
			conversations.POST("/:id/read", h.MarkRead)
			conversations.GET("/:id/ws", h.ConversationSocket)
		}

		me := authed.Group("/me")
		{
			me.GET("/preferences", h.GetPreferences)
			me.PUT("/preferences", h.UpdatePreferences)
		}

		admin := authed.Group("/admin", middleware.RequireRole(roles, "admin"))
		{
			admin.POST("/experiences/:id/approve", h.ApproveExperience)
			admin.POST("/experiences/:id/reject", h.RejectExperience)
			admin.DELETE("/experiences/:id", h.DeleteExperience)
			admin.PUT("/users/:id/role", h.UpdateUserRole)
			admin.DELETE("/users/:id", h.DeleteUser)
			admin.GET("/actions", h.ListAdminActions)
			admin.PUT("/spotlights/order", h.ReorderSpotlights)
		}
	}

	return router
}

// healthCheck обрабатывает health check запросы
func (s *Server) healthCheck(c *gin.Context) {
	ctx := c.Request.Context()
	dbHealth := s.db.HealthCheck(ctx)

	status := http.StatusOK
	if dbHealth.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}

	resp := gin.H{
		"status":   dbHealth.Status,
		"service":  "curated-api",
		"database": dbHealth,
	}
	if s.valkey != nil {
		resp["cache"] = errString(s.valkey.Ping(ctx))
	}
	if s.search != nil {
		resp["search"] = errString(s.search.HealthCheck(ctx))
	}
	c.JSON(status, resp)
}

func errString(err error) string {
	if err != nil {
		return err.Error()
	}
	return "ok"
}

// Run запускает HTTP сервер и блокируется до Shutdown
func (s *Server) Run() error {
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%s", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown дожидается завершения активных запросов
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// GetRouter возвращает роутер для тестирования
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup закрывает соединения
func (s *Server) Cleanup() error {
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
		}
	}

	if s.valkey != nil {
		if err := s.valkey.Close(); err != nil {
			slog.Error("Error closing Valkey connection", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
