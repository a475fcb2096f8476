package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dukerupert/stagedemo/internal/database"
	"github.com/dukerupert/stagedemo/internal/logging"
	"github.com/dukerupert/stagedemo/internal/server"
	"github.com/dukerupert/stagedemo/internal/stage"
)

func main() {
	// Optional .env file; real env vars win.
	godotenv.Load()

	logger := logging.Setup(os.Getenv("STAGEDEMO_LOG_LEVEL"))

	port := os.Getenv("STAGEDEMO_PORT")
	if port == "" {
		port = "3001"
	}

	dbPath := os.Getenv("STAGEDEMO_DB_PATH")
	if dbPath == "" {
		dbPath = "stagedemo.db"
	}

	apiKey := os.Getenv("STAGE_READ_WRITE_API_KEY")
	if apiKey == "" {
		slog.Error("STAGE_READ_WRITE_API_KEY is unset; set it in the environment or a .env file")
		os.Exit(1)
	}

	db, err := database.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// The read-write credential stays inside this client and never
	// reaches the browser.
	var stageOpts []stage.Option
	if apiURL := os.Getenv("STAGE_API_URL"); apiURL != "" {
		stageOpts = append(stageOpts, stage.WithBaseURL(apiURL))
	}
	stageClient := stage.NewClient(apiKey, stageOpts...)

	cfg := server.Config{
		SessionSecret: os.Getenv("SESSION_SECRET"),
		TemplatesDir:  os.Getenv("STAGEDEMO_TEMPLATES_DIR"),
	}

	srv := server.New(db, stageClient, cfg, logger)

	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Background cleanup goroutine
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			case <-cleanupCtx.Done():
				return
			}
		}
	}()

	go func() {
		slog.Info("stagedemo starting", "addr", fmt.Sprintf(":%s", port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	cleanupCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
