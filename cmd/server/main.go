// Package main runs the event back-office HTTP server with WebSocket and
// graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gulfevents/backoffice/config"
	"github.com/gulfevents/backoffice/internal/audit"
	"github.com/gulfevents/backoffice/internal/auth"
	"github.com/gulfevents/backoffice/internal/emaillogs"
	"github.com/gulfevents/backoffice/internal/events"
	"github.com/gulfevents/backoffice/internal/invoices"
	"github.com/gulfevents/backoffice/internal/materials"
	"github.com/gulfevents/backoffice/internal/middleware"
	"github.com/gulfevents/backoffice/internal/models"
	"github.com/gulfevents/backoffice/internal/payments"
	"github.com/gulfevents/backoffice/internal/realtime"
	"github.com/gulfevents/backoffice/internal/reports"
	"github.com/gulfevents/backoffice/internal/session"
	"github.com/gulfevents/backoffice/internal/users"
	"github.com/gulfevents/backoffice/pkg/database"
	"github.com/gulfevents/backoffice/pkg/queue"
	"github.com/gulfevents/backoffice/pkg/redis"
	"github.com/gulfevents/backoffice/pkg/response"
	"github.com/gulfevents/backoffice/pkg/storage"
)

// lineItems bundles the per-event child listings for the event detail view.
type lineItems struct {
	materials *materials.Repository
	payments  *payments.Repository
	invoices  *invoices.Repository
}

func (l lineItems) MaterialsByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Material, error) {
	return l.materials.MaterialsByEvent(ctx, eventID)
}

func (l lineItems) PaymentsByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Payment, error) {
	return l.payments.PaymentsByEvent(ctx, eventID)
}

func (l lineItems) InvoicesByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Invoice, error) {
	return l.invoices.InvoicesByEvent(ctx, eventID)
}

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			InvoicesBucket:       cfg.AWS.InvoicesBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	defer hub.Close()

	// Audit trail
	auditRepo := audit.NewRepository(pool)
	recorder := audit.NewRecorder(auditRepo, hub, logger)
	defer recorder.Wait()
	auditHandler := audit.NewHandler(auditRepo, logger)

	// Auth and sessions
	authRepo := auth.NewRepository(pool)
	sessionStore := session.NewStore(rdb.Client, logger)
	registry := auth.NewRegistry(authRepo, auth.Options{
		ProfileTimeout:  cfg.Auth.ProfileTimeout,
		HydrateDeadline: cfg.Auth.HydrateDeadline,
	}, logger)
	authHandler := auth.NewHandler(authRepo, jwtService, sessionStore, registry, logger)

	// Domain repositories
	eventRepo := events.NewRepository(pool)
	materialRepo := materials.NewRepository(pool)
	paymentRepo := payments.NewRepository(pool)
	invoiceRepo := invoices.NewRepository(pool)

	items := lineItems{materialRepo, paymentRepo, invoiceRepo}
	eventHandler := events.NewHandler(eventRepo, items, recorder, logger)
	materialHandler := materials.NewHandler(materialRepo, eventRepo, recorder, logger)
	paymentHandler := payments.NewHandler(paymentRepo, eventRepo, recorder, logger)

	var archive invoices.Archive
	if s3Client != nil {
		archive = s3Client
	}
	invoiceHandler := invoices.NewHandler(invoiceRepo, eventRepo, archive, recorder, logger)

	// User administration and invitations
	jobQueue := queue.NewQueue(rdb.Client, logger)
	userRepo := users.NewRepository(pool)
	userHandler := users.NewHandler(userRepo, jobQueue, recorder, logger)

	reportHandler := reports.NewHandler(pool, logger)

	emailLogsRepo := emaillogs.NewRepository(pool)
	emailLogsHandler := emaillogs.NewHandler(emailLogsRepo, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) {
		response.OK(c, gin.H{"status": "ok", "redis": rdb.Healthy(c.Request.Context())})
	})

	// Auth (login is public, the rest require a valid session token)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authed := authGroup.Group("")
		authed.Use(middleware.JWT(jwtService, sessionStore))
		authed.POST("/refresh", authHandler.Refresh)
		authed.POST("/logout", authHandler.Logout)
		authed.GET("/session", authHandler.SessionView)
	}

	managers := middleware.RequireRole(models.RoleAdmin, models.RoleManager)
	admins := middleware.RequireRole(models.RoleAdmin)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService, sessionStore))
	{
		// Events
		api.GET("/events", eventHandler.List)
		api.POST("/events", managers, eventHandler.Create)
		api.GET("/events/:id", eventHandler.Get)
		api.PUT("/events/:id", managers, eventHandler.Update)
		api.PATCH("/events/:id/status", admins, eventHandler.UpdateStatus)
		api.PATCH("/events/:id/schedule", managers, eventHandler.UpdateSchedule)
		api.DELETE("/events/:id", admins, eventHandler.Delete)

		// Materials
		api.GET("/events/:id/materials", materialHandler.ListByEvent)
		api.POST("/events/:id/materials", managers, materialHandler.Create)
		api.PUT("/materials/:id", managers, materialHandler.Update)
		api.DELETE("/materials/:id", admins, materialHandler.Delete)

		// Payments
		api.GET("/events/:id/payments", paymentHandler.ListByEvent)
		api.POST("/events/:id/payments", managers, paymentHandler.Create)
		api.PUT("/payments/:id", managers, paymentHandler.Update)
		api.PATCH("/payments/:id/status", admins, paymentHandler.UpdateStatus)
		api.DELETE("/payments/:id", admins, paymentHandler.Delete)

		// Invoices
		api.GET("/invoices", invoiceHandler.List)
		api.GET("/events/:id/invoices", invoiceHandler.ListByEvent)
		api.POST("/events/:id/invoices", managers, invoiceHandler.Create)
		api.PATCH("/invoices/:id/status", managers, invoiceHandler.UpdateStatus)
		api.GET("/invoices/:id/pdf", invoiceHandler.PDF)
		api.GET("/invoices/:id/download-url", invoiceHandler.DownloadURL)
		api.DELETE("/invoices/:id", admins, invoiceHandler.Delete)

		// Users (admin only)
		api.GET("/users", admins, userHandler.List)
		api.PATCH("/users/:id/role", admins, userHandler.UpdateRole)
		api.PATCH("/users/:id/region", admins, userHandler.UpdateRegion)
		api.POST("/users/invite", admins, userHandler.Invite)

		// Reports
		api.GET("/reports/summary", reportHandler.Summary)

		// Admin logs
		api.GET("/audit-logs", admins, auditHandler.List)
		api.GET("/email-logs", admins, emailLogsHandler.List)
	}

	// WebSocket audit feed (token in query; no Authorization header possible)
	router.GET("/ws", realtime.ServeWs(hub, jwtService, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	registry.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
