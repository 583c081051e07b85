// Package main provides the InduSpect HTTP API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dofliu/InduSpect/internal/app"
	"github.com/dofliu/InduSpect/internal/config"
	"github.com/dofliu/InduSpect/internal/logging"
	"github.com/dofliu/InduSpect/internal/web"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	var (
		configPath = flag.String("config", getEnv("INDUSPECT_CONFIG", "induspect.yaml"), "Path to the YAML config file")
		port       = flag.String("port", getEnv("PORT", ""), "Server port (overrides server.port)")
		offline    = flag.Bool("offline", false, "Treat the analysis service as unreachable")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != "" {
		p, err := strconv.Atoi(*port)
		if err != nil {
			log.Fatalf("Invalid port %q", *port)
		}
		cfg.Server.Port = p
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	a, err := app.New(ctx, cfg, logger, app.Options{
		Offline:    *offline,
		Registerer: prometheus.DefaultRegisterer,
	})
	if err != nil {
		logger.Fatal("Failed to start", zap.Error(err))
	}
	defer a.Close()

	server := web.NewServer(web.Config{
		Workflow: a.Workflow,
		Logger:   logger,
		Gatherer: prometheus.DefaultGatherer,
	})

	// Analysis streams can run for minutes, so there is no write timeout.
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	httpServer := &http.Server{
		Addr:        addr,
		Handler:     server,
		ReadTimeout: 60 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		logger.Info("Starting server", zap.String("addr", addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
	if err := a.Workflow.Save(shutdownCtx); err != nil {
		logger.Error("Failed to save session", zap.Error(err))
	}

	logger.Info("Server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
