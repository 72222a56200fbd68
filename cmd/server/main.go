package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/news-recommender/backend/internal/api"
	"github.com/news-recommender/backend/internal/config"
	"github.com/news-recommender/backend/internal/engine"
	"github.com/news-recommender/backend/internal/fetcher"
	"github.com/news-recommender/backend/internal/politeness"
	"github.com/news-recommender/backend/internal/provider"
	"github.com/news-recommender/backend/internal/storage"
)

func main() {
	// 1. Config
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Setup Logging
	logger := newLogger(cfg.Log)
	entry := logger.WithField("service", "news-recommender")
	entry.Info("Starting News Recommender API Service")

	// 2. Storage
	store, err := storage.New(cfg.Storage)
	if err != nil {
		entry.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()
	entry.WithField("backend", cfg.Storage.Backend).Info("Storage ready")

	// 3. NewsAPI client
	limiter := politeness.NewLimiter(politeness.Config{
		MinDelay:       cfg.NewsAPI.MinDelay,
		MaxConcurrency: cfg.NewsAPI.MaxConcurrency,
	}, entry)
	newsClient := fetcher.NewFetcher(cfg.NewsAPI, limiter, entry)
	if !newsClient.HasAPIKey() {
		entry.Warn("NEWS_API_KEY not set; /api/everything and the newsapi source will fail")
	}

	// 4. Candidate source
	source, err := provider.New(cfg, newsClient, entry)
	if err != nil {
		entry.Fatalf("Failed to initialize candidate source: %v", err)
	}

	// 5. Engine
	eng, err := engine.NewEngine(cfg, entry, store, source, newsClient)
	if err != nil {
		entry.Fatalf("Failed to initialize engine: %v", err)
	}

	// 6. API Server
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(eng, cfg.Server, entry)
	if err := server.Start(ctx); err != nil {
		entry.Fatal(err)
	}
	entry.Info("Server stopped")
}

func newLogger(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.New()
	if strings.EqualFold(cfg.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}
