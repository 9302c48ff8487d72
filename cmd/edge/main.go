package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cramkle/app/internal/config"
	"cramkle/app/internal/edge"
	"cramkle/app/internal/logging"
)

func main() {
	bootLogger := logging.New("info")
	if err := config.LoadDotEnv(); err != nil {
		bootLogger.Fatal().Err(err).Msg("load .env")
	}
	cfg := config.LoadEdge()
	logger := logging.NewWithWriter(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	var source edge.Source = edge.DirSource{Root: cfg.AssetsDir}
	if cfg.AssetsBucket != "" {
		bucket, err := edge.NewBucketSource(edge.BucketConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			UseSSL:    cfg.MinioUseSSL,
			Bucket:    cfg.AssetsBucket,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("asset bucket")
		}
		source = bucket
	}

	edgeServer, err := edge.New(cfg, source, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("edge server")
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           edgeServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Bool("production", cfg.Production).Msg("Server started")
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
