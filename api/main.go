package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DeafMist/comment-sentiment/internal/artifact"
	"github.com/DeafMist/comment-sentiment/internal/config"
	"github.com/DeafMist/comment-sentiment/internal/elasticsearch"
	"github.com/DeafMist/comment-sentiment/internal/inference"
	"github.com/DeafMist/comment-sentiment/internal/logger"
)

func main() {
	log := logger.New("api")
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	binder, closeStore, err := artifact.Start(ctx, cfg.Artifacts, log)
	if err != nil {
		log.Error("bind artifacts", slog.Any("err", err))
		os.Exit(1)
	}
	defer closeStore()

	svc, err := inference.New(binder, inference.Options{
		Workers:       cfg.Workers,
		MaxTextLength: cfg.MaxTextLength,
		Language:      cfg.Language,
	}, log)
	if err != nil {
		log.Error("init inference", slog.Any("err", err))
		os.Exit(1)
	}

	esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}

	srv := &server{
		log:         log,
		cfg:         cfg,
		binder:      binder,
		svc:         svc,
		es:          esClient,
		bindTimeout: cfg.LoadTimeout,
	}

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	go func() {
		log.Info("api server starting", slog.String("addr", cfg.BindAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}
