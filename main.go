package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/spf13/pflag"

	"ngabarin/realtime/internal/auth"
	"ngabarin/realtime/internal/cache"
	"ngabarin/realtime/internal/config"
	"ngabarin/realtime/internal/handlers"
	"ngabarin/realtime/internal/logger"
	"ngabarin/realtime/internal/messaging"
	"ngabarin/realtime/internal/notify"
	"ngabarin/realtime/internal/presence"
	"ngabarin/realtime/internal/repository"
	"ngabarin/realtime/internal/retention"
	"ngabarin/realtime/internal/routes"
	"ngabarin/realtime/internal/session"
	ws "ngabarin/realtime/internal/websocket"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := pflag.StringP("config", "c", "", "path to a YAML config file")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pool, err := repository.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	if cfg.Database.Migrate {
		if err := repository.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	// The cache tier is optional
	var kv cache.KV
	if cfg.Redis.Addr != "" {
		redisCache := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := redisCache.Ping(pingCtx)
		cancel()
		if err != nil {
			logger.Warn("redis_unavailable", "addr", cfg.Redis.Addr, "error", err)
			redisCache.Close()
		} else {
			logger.Info("redis_connected", "addr", cfg.Redis.Addr)
			kv = redisCache
			defer redisCache.Close()
		}
	} else {
		logger.Info("redis_disabled")
	}

	users := repository.NewUserRepository(pool)
	groups := repository.NewGroupRepository(pool)
	messages := repository.NewMessageRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)

	hub := ws.NewHub()
	notificationStore := notify.NewStore(notificationRepo,
		cache.NewNotificationCache(kv, cfg.Notifications.CacheTTL, cfg.Notifications.CacheLimit))
	notifier := notify.NewService(notificationStore, hub, time.Now)
	pipeline := messaging.NewPipeline(groups, messages, notifier, hub, time.Now)
	sessions := session.NewManager(session.Deps{
		Users:    users,
		Groups:   groups,
		Hub:      hub,
		Presence: presence.NewTracker(users, hub, time.Now),
		Pipeline: pipeline,
		Notifier: notifier,
	})

	sweeper, err := retention.NewSweeper(messages, cfg.Retention.Cron, cfg.Retention.Window, time.Now)
	if err != nil {
		return err
	}
	stopSweeper := sweeper.Start(ctx)
	defer stopSweeper()

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName: "Ngabarin Realtime v1.0",
	})

	// Middleware
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowCredentials: cfg.Server.AllowedOrigins != "*",
	}))

	verifier := auth.NewJWTVerifier(cfg.Auth.JWTSecret)
	routes.SetupRoutes(app, verifier, routes.Handlers{
		WebSocket:     handlers.NewWebSocketHandler(sessions, hub),
		Messages:      handlers.NewMessageHandler(pipeline, users),
		Groups:        handlers.NewGroupHandler(groups, users, hub),
		Notifications: handlers.NewNotificationHandler(notificationStore),
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_starting", "addr", cfg.ListenAddr())
		errCh <- app.Listen(cfg.ListenAddr())
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("server_shutting_down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("server_shutdown_failed", "error", err)
	}
	return nil
}
