package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/flock/internal/config"
	"github.com/dukerupert/flock/internal/database"
	"github.com/dukerupert/flock/internal/logging"
	"github.com/dukerupert/flock/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if cfg.JWTSecret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			slog.Error("generate jwt secret", "error", err)
			os.Exit(1)
		}
		cfg.JWTSecret = hex.EncodeToString(buf)
		slog.Warn("JWT_SECRET not set; using an ephemeral secret, tokens will not survive a restart")
	}

	var db *sql.DB
	if cfg.DBPath != "" {
		db, err = database.Open(cfg.DBPath)
		if err != nil {
			slog.Error("failed to open database", "error", err, "path", cfg.DBPath)
			os.Exit(1)
		}
		defer db.Close()
	}

	srv := server.New(db, cfg, server.Clients{}, logger)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	if sched := srv.Scheduler(); sched != nil {
		sched.Start(bgCtx)
		defer sched.Stop()
	}

	// Background cleanup goroutine
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			case <-bgCtx.Done():
				return
			}
		}
	}()

	go func() {
		slog.Info("flock starting", "addr", httpServer.Addr, "site_url", cfg.SiteURL, "timezone", cfg.Location.String())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	bgCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
