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
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"go.uber.org/zap"

	"taskboard/configs"
	v1 "taskboard/internal/api/v1"
	"taskboard/internal/auth"
	"taskboard/internal/config"
	"taskboard/internal/middleware"
	"taskboard/internal/repository"
	myws "taskboard/internal/websocket"
	"taskboard/pkg/database"
	"taskboard/pkg/logger"
)

func main() {
	// Load config
	cfg := configs.LoadConfig()

	// Init loggers
	logger.InitLoggers(cfg.LogDir)
	defer logger.SyncLoggers()
	logger.SystemLogger.Info("Starting application", zap.String("time", time.Now().Format(time.RFC3339)))

	if err := run(cfg); err != nil {
		logger.ErrorLogger.Error("Application stopped with error", zap.Error(err))
		logger.SyncLoggers()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg configs.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect database
	db, err := database.ConnectDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.SystemLogger.Info("Database Connected")

	// Create tables if they do not exist
	if err := repository.CreateTableIfNotExists(db); err != nil {
		return err
	}
	if cfg.AdminUsername != "" && cfg.AdminPassword != "" {
		created, err := repository.EnsureAdminUser(ctx, db, cfg.AdminUsername, cfg.AdminPassword)
		if err != nil {
			return err
		}
		if created {
			logger.AuditLogger.Info("Admin user created", zap.String("username", cfg.AdminUsername))
		}
	}

	// Redis keeps the list of logged-out refresh tokens
	redisClient, err := database.ConnectRedis(ctx, cfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()
	logger.SystemLogger.Info("Redis Connected")

	store := repository.NewStore(db)
	issuer := auth.NewIssuer(store, auth.NewRedisRevocations(redisClient), auth.Options{
		Secret:     []byte(cfg.JWTSecret),
		Issuer:     cfg.JWTIssuer,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
	})

	hub := myws.NewHub()
	go hub.Run()
	defer hub.Stop()

	app := fiber.New()

	// Middleware
	app.Use(middleware.ErrorHandler())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.RateLimitMax,
		Expiration: cfg.RateLimitSpan,
	}))

	// Register API v1 routes
	v1.RegisterRoutes(app, &config.Dependencies{
		Store:  store,
		Issuer: issuer,
		Hub:    hub,
	})

	go func() {
		<-ctx.Done()
		logger.SystemLogger.Info("Shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.ErrorLogger.Error("Shutdown failed", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.AppPort)
	logger.SystemLogger.Info("Application ready", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return nil
}
