package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cramkle/app/internal/app"
	"cramkle/app/internal/config"
	"cramkle/app/internal/logging"
	"cramkle/app/internal/revisions"
	"cramkle/app/internal/search"
	"cramkle/app/internal/store"
)

func main() {
	bootLogger := logging.New("info")
	if err := config.LoadDotEnv(); err != nil {
		bootLogger.Fatal().Err(err).Msg("load .env")
	}
	cfg := config.LoadAPI()
	logger := logging.NewWithWriter(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	ctx := context.Background()

	pool := store.DefaultPool()
	pool.MaxOpenConns = cfg.MaxOpenConns
	pool.MaxIdleConns = cfg.MaxIdleConns
	db, err := store.Open(ctx, cfg.DatabaseURL, pool)
	if err != nil {
		logger.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	applied, err := store.ApplyMigrations(ctx, db, store.MigrationsFS(cfg.MigrationsDir))
	if err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}
	if len(applied) > 0 {
		logger.Info().Strs("versions", applied).Msg("migrations applied")
	}

	if err := os.MkdirAll(cfg.ReposDir, 0o755); err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.ReposDir).Msg("failed to create repos dir")
	}

	dataStore := store.NewPostgresStore(db)
	revisionService := revisions.New(cfg.ReposDir)
	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
	}
	searchService := search.NewService(meiliClient, pgfts, logger)
	defer searchService.Close()

	service := app.New(cfg, dataStore, revisionService, searchService, logger)
	if cfg.Bootstrap {
		if err := service.Bootstrap(ctx); err != nil {
			logger.Warn().Err(err).Msg("bootstrap error (will retry on next restart)")
		}
	}
	if meiliClient != nil {
		go searchService.ReindexAllFromPG(context.Background())
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	handler := httpServer.Handler()
	if base := "/" + strings.Trim(cfg.BasePath, "/"); base != "/" {
		mux := http.NewServeMux()
		mux.Handle(base+"/", http.StripPrefix(base, handler))
		mux.Handle("/", handler)
		handler = mux
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("base_path", cfg.BasePath).Msg("Cramkle API listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
}
