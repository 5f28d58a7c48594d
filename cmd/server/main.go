package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/linkup-app/linkup/internal/api"
	authsvc "github.com/linkup-app/linkup/internal/auth"
	"github.com/linkup-app/linkup/internal/config"
	"github.com/linkup-app/linkup/internal/db"
	"github.com/linkup-app/linkup/internal/middleware"
	"github.com/linkup-app/linkup/internal/notify"
	"github.com/linkup-app/linkup/internal/observ"
	"github.com/linkup-app/linkup/internal/ratelimit"
	"github.com/linkup-app/linkup/internal/realtime"
	"github.com/linkup-app/linkup/internal/repository"
	"github.com/linkup-app/linkup/internal/repository/postgres"
	"github.com/linkup-app/linkup/internal/scheduler"
	"github.com/linkup-app/linkup/internal/service"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	// Startup has no deadline of its own; per-request contexts take
	// over once the server is up.
	database, err := db.New(context.Background(), cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	rdb, err := db.NewRedis(context.Background(), cfg.RedisURL, logger)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer rdb.Close()

	// Repositories. Assigning to the interface types proves at
	// compile time that the pgx stores satisfy them.
	pool := database.Pool()
	var userRepo repository.UserRepository = postgres.NewUserStore(pool)
	var postRepo repository.PostRepository = postgres.NewPostStore(pool)
	var requestRepo repository.JoinRequestRepository = postgres.NewJoinRequestStore(pool)
	var chatRepo repository.ChatRepository = postgres.NewChatStore(pool)
	var messageRepo repository.MessageRepository = postgres.NewMessageStore(pool)
	var otpRepo repository.OTPRepository = postgres.NewOTPStore(pool)

	// The post store doubles as the geospatial index (bounding-box
	// variant; swap for a PostGIS-backed one without touching the
	// services).
	geoIndex := postgres.NewPostStore(pool)

	hub := realtime.NewHub(logger)
	notifier := notify.NewLogNotifier(logger)
	sms := notify.NewLogSender(logger)
	otpLimiter := ratelimit.NewRedisLimiter(rdb, "otp", 5, 15*time.Minute)

	otpService := authsvc.NewOTPService(userRepo, otpRepo, otpLimiter, sms,
		cfg.JWTSecret, cfg.TokenTTL, cfg.OTPTTL, logger)
	postService := service.NewPostService(postRepo, userRepo, chatRepo, geoIndex, cfg.FreePostLimit, logger)
	requestService := service.NewRequestService(postRepo, requestRepo, chatRepo, hub, notifier, logger)
	chatService := service.NewChatService(chatRepo, messageRepo, hub, logger)

	sweeper := scheduler.New(postRepo, chatRepo, otpRepo, hub,
		cfg.SweepInterval, cfg.JanitorInterval, logger)

	authHandler := api.NewAuthHandler(otpService, logger)
	postHandler := api.NewPostHandler(postService, logger)
	requestHandler := api.NewRequestHandler(requestService, logger)
	chatHandler := api.NewChatHandler(chatService, logger)
	userHandler := api.NewUserHandler(userRepo, logger)
	wsHandler := realtime.NewHandler(hub, chatRepo, postRepo, cfg.JWTSecret, logger)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := gin.New()
	srv.Use(gin.Logger(), gin.Recovery())

	// Health check stays public so load balancers can reach it.
	srv.GET("/v1/health", func(c *gin.Context) {
		if err := database.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	srv.POST("/v1/auth/send-otp", authHandler.SendOTP)
	srv.POST("/v1/auth/verify-otp", authHandler.VerifyOTP)

	// Websocket authenticates from its own token parameter.
	srv.GET("/v1/ws", wsHandler.Serve)

	v1 := srv.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg.JWTSecret))

	v1.GET("/users/me", userHandler.Me)
	v1.PUT("/users/me", userHandler.UpdateMe)

	v1.POST("/posts", postHandler.Create)
	v1.GET("/posts/nearby", postHandler.Nearby)
	v1.GET("/posts/mine", postHandler.Mine)
	v1.GET("/posts/history", postHandler.History)
	v1.GET("/posts/:id", postHandler.Get)
	v1.POST("/posts/:id/cancel", postHandler.Cancel)
	v1.DELETE("/posts/:id", postHandler.Delete)

	v1.POST("/posts/:id/request", requestHandler.Join)
	v1.GET("/posts/:id/requests", requestHandler.List)
	v1.GET("/posts/:id/my-request", requestHandler.MyRequest)
	v1.POST("/posts/:id/approve", requestHandler.Approve)
	v1.POST("/posts/:id/reject", requestHandler.Reject)
	v1.GET("/requests/mine", requestHandler.Mine)

	v1.GET("/chats", chatHandler.List)
	v1.GET("/chats/:id/messages", chatHandler.Messages)
	v1.POST("/chats/:id/messages", chatHandler.Send)
	v1.GET("/chats/:id/members", chatHandler.Members)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sweeper.Run(ctx)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: srv,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting linkup",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
