// Package main is the entry point for the functional id API server.
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

	"funcid/internal/app"
	"funcid/internal/config"
	"funcid/internal/domain/auth"
	v1 "funcid/internal/infrastructure/http/v1"
	"funcid/internal/infrastructure/http/v1/handlers"
	"funcid/internal/infrastructure/http/v1/middleware"
	"funcid/pkg/logger"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Printf("invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Infow("starting funcid server", "store", cfg.Store, "version", version)

	// --- Store ---
	backend, err := app.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Fatalw("failed to open store", "error", err)
	}
	defer backend.Close()

	// --- JWT ---
	var validator middleware.JWTValidator
	if cfg.AuthEnabled() {
		jwtConfig := auth.DefaultJWTConfig(cfg.JWTSecret)
		jwtConfig.Issuer = cfg.JWTIssuer
		jwtConfig.AccessTokenTTL = cfg.JWTTTL
		validator = auth.NewJWTService(jwtConfig)
	} else {
		log.Warn("JWT_SECRET not set, administrative routes are unauthenticated")
	}

	// --- Router ---
	handler := v1.NewHandler(v1.RouterConfig{
		Service:      backend.Service(),
		Health:       handlers.NewHealthHandler(backend, backend.Name, version, backend.Stats),
		Logger:       log,
		JWTValidator: validator,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
