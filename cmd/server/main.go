package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"klinefetch/config"
	"klinefetch/internal/app"
	"klinefetch/internal/tools"
	"klinefetch/internal/tracing"
	"klinefetch/internal/transport/httpapi"
	"klinefetch/logger"
	"klinefetch/pkg/bybit"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to config.yaml")
	pflag.Parse()

	// a local .env feeds the environment overrides; it is optional
	_ = godotenv.Load()

	// viper config
	cfg, err := config.Load(*configPath, nil)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	// otel tracer
	shutdownTracing, err := tracing.Setup(cfg.Tracing, tools.Version, os.Stderr)
	if err != nil {
		log.Fatal("failed to set up tracing", zap.Error(err))
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	c := app.Build(cfg, log)
	srv, err := httpapi.NewServer(httpapi.ServerConfig{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Tools:        c.Tools,
		Logger:       log.Named("http"),
	})
	if err != nil {
		log.Fatal("failed to build http server", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	preload := make([]bybit.Category, 0, len(cfg.Symbols.Preload))
	for _, name := range cfg.Symbols.Preload {
		preload = append(preload, bybit.Category(name))
	}
	c.Symbols.StartMidnightRefresh(ctx, preload...)

	if err := srv.Start(ctx); err != nil {
		log.Error("http server failed", zap.Error(err))
		return
	}
	log.Info("http server stopped")
}
