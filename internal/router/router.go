package router

import (
	"context"
	"log/slog"

	"matchwell/config"
	"matchwell/internal/handler"
	"matchwell/internal/middleware"
	"matchwell/internal/repository"
	"matchwell/internal/service"
	"matchwell/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Setup wires repositories, services and handlers. Background workers
// (notification retries, rate limiter cleanup) run until ctx is done; the
// returned channel is closed once the notification worker has flushed its
// queue. images may be nil, in which case profile pictures are omitted.
func Setup(ctx context.Context, cfg *config.Config, db *gorm.DB, images service.ImageResolver, log *slog.Logger) (*gin.Engine, <-chan struct{}) {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// Repositories
	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	interestRepo := repository.NewInterestRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	hub := ws.NewHub()

	// Services
	view := service.NewMatchView(userRepo, profileRepo, images, log)
	notifSvc := service.NewNotificationService(notificationRepo, hub, view, service.NotificationOptions{
		QueueSize:   cfg.Notification.RetryQueueSize,
		MaxAttempts: cfg.Notification.RetryMaxAttempts,
		Backoff:     cfg.Notification.RetryBackoff,
	}, log)
	push, err := service.NewPushService(ctx, cfg.Firebase.ServiceAccountPath, userRepo, log)
	switch {
	case err != nil:
		log.Warn("push notifications disabled: failed to init (check service account file)", "error", err)
	case push != nil:
		notifSvc.SetPusher(push)
		log.Info("push notifications enabled")
	default:
		log.Info("push notifications disabled: set firebase.service_account_path to enable")
	}
	workersDone := make(chan struct{})
	go func() {
		defer close(workersDone)
		notifSvc.Run(ctx)
	}()

	interestSvc := service.NewInterestService(
		interestRepo,
		userRepo,
		notifSvc,
		view,
		service.NewCapacityPolicy(cfg.Interest.MaxActiveSent, cfg.Interest.MaxAccepted),
		cfg.Interest.MaxAttempts,
		log,
	)

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
	go limiter.Cleanup(ctx)

	// Handlers
	interestHandler := handler.NewInterestHandler(interestSvc, log)
	notificationHandler := handler.NewNotificationHandler(notifSvc, log)
	healthHandler := handler.NewHealthHandler(db)

	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ws/notifications", ws.UpgradeNotificationsWS(&cfg.JWT, userRepo, hub, log))

	api := r.Group("/api/v1")
	api.Use(middleware.AuthRequired(&cfg.JWT), middleware.CurrentUser(userRepo, log), middleware.RateLimit(limiter))
	{
		interests := api.Group("/interests")
		interests.POST("/send", interestHandler.Send)
		interests.GET("/received", interestHandler.Received)
		interests.GET("/sent", interestHandler.Sent)
		interests.GET("/matches", interestHandler.Matches)
		interests.GET("/limits", interestHandler.Limits)
		interests.GET("/mutual/:user_id", interestHandler.Mutual)
		interests.PUT("/:id/accept", interestHandler.Accept)
		interests.PUT("/:id/reject", interestHandler.Reject)
		interests.DELETE("/:id/cancel", interestHandler.Cancel)

		notifications := api.Group("/notifications")
		notifications.GET("", notificationHandler.List)
		notifications.PUT("/read-all", notificationHandler.MarkAllRead)
		notifications.PUT("/:id/read", notificationHandler.MarkRead)
		notifications.DELETE("/:id", notificationHandler.Delete)
	}

	return r, workersDone
}
