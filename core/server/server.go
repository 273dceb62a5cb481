package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tripfluence-api/core/audit"
	"tripfluence-api/core/cache"
	"tripfluence-api/core/config"
	"tripfluence-api/core/constants"
	"tripfluence-api/core/database"
	"tripfluence-api/core/jobs"
	"tripfluence-api/core/logger"
	"tripfluence-api/core/middleware"
	"tripfluence-api/core/secrets"
	"tripfluence-api/core/storage"
	"tripfluence-api/modules/request"
	"tripfluence-api/modules/social"
	"tripfluence-api/modules/space"
	"tripfluence-api/modules/webhook"

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// Run boots the whole service: config, postgres, redis, the job worker
// and scheduler, then the HTTP server. Blocks until SIGINT/SIGTERM and
// shuts the pieces down in reverse order.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.InitDB(database.DatabaseConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
	})
	if err != nil {
		return err
	}

	cacheClient, err := cache.InitCache(cache.CacheConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer cacheClient.Close()

	encryptor, err := secrets.NewEncryptor(cfg.Secrets.EncryptionKey, cfg.Secrets.AllowInsecureFallback)
	if err != nil {
		return fmt.Errorf("failed to init token encryption: %w", err)
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	jobClient := jobs.NewClient(redisOpt)
	defer jobClient.Close()
	worker := jobs.NewWorker(redisOpt)
	sweeper := jobs.NewSweeper(redisOpt)

	media := storage.NewStorage(storage.StorageConfig{
		Bucket:     cfg.Storage.S3Bucket,
		Region:     cfg.Storage.S3Region,
		AccessKey:  cfg.Storage.S3AccessKey,
		SecretKey:  cfg.Storage.S3SecretKey,
		PresignTTL: time.Duration(cfg.Storage.PresignTTLHours) * time.Hour,
	})

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.CORS())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	mw := middleware.NewMiddleware(cfg.Auth.JWTSecret)
	auditLog := audit.NewLogger(&db)

	dispatcher := webhook.Init(e, &db, jobClient, worker, cfg.Webhook.SigningSecret, mw)
	spaceRepo, _ := space.Init(e, &db, auditLog, dispatcher, mw)
	request.Init(e, &db, cacheClient, jobClient, worker, auditLog, dispatcher, spaceRepo, mw)
	social.Init(e, &db, cfg, encryptor, media, jobClient, worker, auditLog, mw)

	// Hourly token sweep.
	if err := sweeper.Register("0 * * * *", constants.TaskTokenSweep); err != nil {
		return err
	}

	if err := worker.Start(); err != nil {
		return fmt.Errorf("failed to start job worker: %w", err)
	}
	if err := sweeper.Start(); err != nil {
		worker.Shutdown()
		return fmt.Errorf("failed to start job scheduler: %w", err)
	}

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("Server:Start", "error", err)
		}
	}()
	logger.Info("Server started", "host", cfg.Server.Host, "port", cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Server shutting down")

	sweeper.Shutdown()
	worker.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), constants.DefaultTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}
