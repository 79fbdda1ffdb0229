package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"workhub/api/internal/app"
	"workhub/api/internal/config"
	"workhub/api/internal/directory"
	"workhub/api/internal/logging"
	"workhub/api/internal/membership"
	"workhub/api/internal/objectstore"
	"workhub/api/internal/search"
	"workhub/api/internal/store"
	"workhub/api/internal/telemetry"
	"workhub/api/internal/util"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	logger, err := logging.New(cfg.IsDevelopment(), cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	if err := util.InitRequestIDs(cfg.SnowflakeNode); err != nil {
		logger.Fatal("request id generator", zap.Error(err))
	}

	tel, err := telemetry.Setup(ctx, cfg.OTel)
	if err != nil {
		logger.Fatal("telemetry setup failed", zap.Error(err))
	}

	db, dialect, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, dialect); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}
	dataStore := store.NewSQLStore(db, dialect)

	source, err := membership.ParseSource(cfg.Membership.Source)
	if err != nil {
		logger.Fatal("invalid membership source", zap.Error(err))
	}

	var dir *directory.RedisStore
	if strings.TrimSpace(cfg.RedisURL) != "" {
		dir, err = directory.NewRedisStore(cfg.RedisURL, cfg.Membership.TTL)
		if err != nil {
			logger.Fatal("redis connection failed", zap.Error(err))
		}
		defer dir.Close()
		logger.Info("membership directory enabled", zap.String("source", string(source)))
	}

	var meiliClient *search.Meili
	var engine search.Engine
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
		engine = meiliClient
	}
	searchService := search.NewService(engine, search.NewSQLSearcher(dataStore))

	var blobs *objectstore.Store
	if cfg.S3.Enabled() {
		blobs, err = objectstore.New(cfg.S3)
		if err != nil {
			logger.Fatal("object store setup failed", zap.Error(err))
		}
		if err := blobs.EnsureBucket(ctx, cfg.S3.Region); err != nil {
			logger.Warn("object store bucket check failed", zap.Error(err))
		}
	}

	service := app.New(cfg, dataStore, searchService, blobs, dir)
	if err := service.ReindexSearch(ctx); err != nil {
		logger.Warn("search reindex failed", zap.Error(err))
	}

	resolver := membership.Resolver{
		Source:        source,
		DefaultUserID: cfg.Membership.DefaultUserID,
	}
	if dir != nil {
		resolver.Directory = dir
	}

	httpServer := app.NewHTTPServer(service, resolver, cfg.CORSOrigin, cfg.SyncToken)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("workhub api listening", zap.String("addr", cfg.Addr), zap.String("dialect", string(dataStore.Dialect())))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
	searchService.Wait()
	if err := tel.Shutdown(shutdownCtx); err != nil {
		logger.Warn("telemetry shutdown error", zap.Error(err))
	}
}
