package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pbaptista/carteira_helper/config"
	"github.com/pbaptista/carteira_helper/data"
	"github.com/pbaptista/carteira_helper/data/cache"
	"github.com/pbaptista/carteira_helper/data/repository"
	"github.com/pbaptista/carteira_helper/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/pbaptista/carteira_helper/internal/externalApi/yahooApi"
	"github.com/pbaptista/carteira_helper/internal/quote"
	"github.com/pbaptista/carteira_helper/internal/reportGenerator/xlsxGenerator"
	"github.com/pbaptista/carteira_helper/internal/scheduler"
	"github.com/pbaptista/carteira_helper/internal/service/portfolioService"
	"github.com/pbaptista/carteira_helper/internal/transport/rest"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := repository.NewPostgres(cfg, pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg)

	yahooApiClient := yahooApi.New(cfg)

	quoteEngine := quote.New(cfg, yahooApiClient)

	reportGenerator := xlsxGenerator.New()

	googleCloudStorage := googleDriveApi.New(ctx, cfg)

	portfolioSrv := portfolioService.New(cfg, pgRepo, redisCache, quoteEngine, reportGenerator, googleCloudStorage)

	sched := scheduler.New()
	sched.NewIntervalJob("refresh quotes", portfolioSrv.RefreshAll, cfg.Jobs.RefreshQuotesInterval, true)
	sched.NewIntervalJob("cleanup drive reports", googleCloudStorage.DeleteOldFiles, cfg.Jobs.DriveCleanupInterval, false)
	sched.Start()
	defer sched.Stop()

	controller := rest.NewController(portfolioSrv)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      controller.Routes(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		slog.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", slog.String("err", err.Error()))
			cancel()
		}
	}()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	select {
	case <-interrupt:
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown failed", slog.String("err", err.Error()))
	}
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
