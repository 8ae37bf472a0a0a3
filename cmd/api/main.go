package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/seslichat/sesli/internal/app"
	"github.com/seslichat/sesli/internal/config"
	"github.com/seslichat/sesli/internal/database"
	"github.com/seslichat/sesli/internal/server"
	"github.com/seslichat/sesli/pkg/Logger"
)

// Entry point for the chat API server.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := Logger.New(cfg.Debug)
	logger.Info("Logger initialized")

	// generated audio lands here, served under /static/audio
	if err := os.MkdirAll(filepath.Join(cfg.StaticDir, "audio"), 0o755); err != nil {
		logger.Fatalf("Failed to create audio directory: %v", err)
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.MigrateDB(db); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	rc := database.NewRedis(cfg.Redis)
	if rc == nil {
		logger.Info("No redis address configured, history caching disabled")
	}

	application, err := app.NewApp(cfg, logger, db, rc)
	if err != nil {
		logger.Fatalf("Failed to wire application: %v", err)
	}

	rootCtx, stopRegistry := context.WithCancel(context.Background())
	defer stopRegistry()
	application.Registry.Start(rootCtx, cfg.Ollama.RefreshInterval())

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	server.InitializeRoutes(router, application.GetServerDependencies())

	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: router.Handler(),
	}
	go func() {
		logger.Infof("Listening on %s", cfg.Server.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server exiting: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Shutdown err %v", err)
	}
	logger.Info("Shutdown system")
}
