package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"latex2pdf/internal/app"
	"latex2pdf/internal/handlers"
	"latex2pdf/internal/storage"
	u "latex2pdf/internal/utils"
)

func main() {
	cfg := u.LoadConfig()
	// Allow common container env var to override the compiler binary.
	if v := os.Getenv("PDFLATEX_BIN"); v != "" {
		cfg.Compiler.Binary = v
	}
	u.InitLogger(
		cfg.Logger.File,
		cfg.Logger.MaxSizeMB,
		cfg.Logger.MaxBackups,
		cfg.Logger.MaxAgeDays,
		cfg.Logger.Compress,
		cfg.Logger.Level,
	)
	u.SetLogLevel(cfg.Logger.Level)

	var sink storage.ArtifactSink
	if cfg.Storage.Enabled {
		s, err := storage.NewS3Sink(context.Background(), cfg.Storage.Bucket, cfg.Storage.Region)
		if err != nil {
			u.Error("Failed to configure artifact sink, continuing without one", "error", err.Error())
		} else {
			sink = s
		}
	}

	// Under the Lambda runtime the handler is registered directly; the
	// response cache only applies to the local server surface.
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		svc := handlers.NewCompileService(cfg, sink, nil)
		lambda.Start(svc.HandleLambda)
		return
	}

	var rdb *redis.Client
	if cfg.Cache.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr: cfg.Cache.RedisHost,
			DB:   cfg.Cache.DB,
		})
	}

	svc := handlers.NewCompileService(cfg, sink, rdb)
	fiberApp := app.SetupApp(cfg, svc)

	idleConnsClosed := make(chan struct{})
	startServer(fiberApp, cfg, idleConnsClosed)
	<-idleConnsClosed
}

// startServer starts the Fiber app and listens for shutdown signals
func startServer(app *fiber.App, cfg u.Config, idleConnsClosed chan struct{}) {
	go func() {
		if err := app.Listen(cfg.Server.Host + cfg.Server.Port); err != nil {
			u.Error("Server error", "error", err)
		}
	}()

	// Listen for OS termination signals
	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
	<-sigint

	u.Warn("Shutdown signal received, closing server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		u.Error("Server forced to shutdown", "error", err)
	}

	close(idleConnsClosed)
	u.Info("Server stopped cleanly")
}
