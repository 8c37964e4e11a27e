package app

import (
	"klinefetch/config"
	"klinefetch/internal/daterange"
	"klinefetch/internal/history"
	"klinefetch/internal/symbolcache"
	"klinefetch/internal/tools"
	"klinefetch/pkg/bybit"

	"go.uber.org/zap"
)

// Components are the long-lived pieces every entry point shares.
type Components struct {
	Client  *bybit.RESTClient
	History *history.Service
	Symbols *symbolcache.Cache
	Tools   *tools.Service
}

// Build wires the REST client, pagination driver, symbol cache and tool layer from cfg.
func Build(cfg *config.Config, logger *zap.Logger) *Components {
	client := bybit.NewRESTClient(cfg.Bybit.REST.BaseURL, cfg.Bybit.REST.Timeout).
		WithRateLimit(cfg.Bybit.REST.RateLimit, cfg.Bybit.REST.Burst)
	driver := history.NewDriver(client, history.DriverConfig{
		PageLimit: cfg.Fetch.PageLimit,
		PaceDelay: cfg.Fetch.PaceDelay,
		MaxPages:  cfg.Fetch.MaxPages,
	}, logger.Named("driver"))
	hist := history.NewService(driver, daterange.NewResolver(), logger.Named("history"))
	symbols := symbolcache.New(client, logger.Named("symbols"))

	return &Components{
		Client:  client,
		History: hist,
		Symbols: symbols,
		Tools:   tools.NewService(hist, symbols, logger.Named("tools")),
	}
}
