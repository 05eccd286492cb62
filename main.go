package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"prime-nature-nuts/app"
	"prime-nature-nuts/config"
	"prime-nature-nuts/logger"
)

func main() {
	// Load .env file in development (ignores error if file doesn't exist)
	// In production, variables should be set directly
	if os.Getenv("ENV") != "production" {
		// Use Overload to ensure .env values override system environment variables
		if err := godotenv.Overload(".env"); err != nil {
			logger.Get().Warn("⚠️  .env file not found, using system environment variables", zap.Error(err))
		} else {
			logger.Get().Info("✓ Loaded environment variables from .env")
		}
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Get().Fatal("❌ Invalid configuration", zap.Error(err))
	}
	if !cfg.IsProduction() {
		if dev, err := zap.NewDevelopment(); err == nil {
			logger.Set(dev)
		}
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize application
	application, err := app.Initialize(ctx, cfg)
	if err != nil {
		logger.Get().Fatal("❌ Failed to initialize application", zap.Error(err))
	}
	defer application.Close()

	application.RunBackground(ctx)

	// Listen on 0.0.0.0 to accept connections from all interfaces (required for Docker/Render)
	addr := "0.0.0.0:" + cfg.Port
	// No WriteTimeout since /events streams indefinitely. Request contexts
	// derive from ctx so open event streams return on shutdown.
	server := &http.Server{
		Addr:              addr,
		Handler:           application.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Get().Info("🚀 Server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Get().Error("❌ Server failed", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Get().Info("🛑 Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Get().Error("❌ Graceful shutdown failed", zap.Error(err))
		}
	}
}
