package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"klinefetch/config"
	"klinefetch/internal/app"
	"klinefetch/internal/tools"
	"klinefetch/internal/tracing"
	"klinefetch/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// Exit codes: 0 success, 1 fetch or output failure, 2 bad invocation or config.
const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run fetches one series and writes its JSON envelope to stdout. Logs,
// spans and errors go to stderr.
func run(args []string, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet("klinefetch", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.StringP("config", "c", "", "path to config.yaml")
	symbol := flags.StringP("symbol", "s", "", "trading pair, e.g. BTCUSDT")
	interval := flags.StringP("interval", "i", "D", "kline interval: 1 3 5 15 30 60 120 240 360 720 D W M")
	start := flags.String("start", "", "start date, YYYY-MM-DD or YYYY-MM-DD HH:MM:SS (UTC)")
	end := flags.String("end", "", "end date, same formats; defaults to now")
	category := flags.String("category", "spot", "spot, linear, inverse or option")
	pretty := flags.Bool("pretty", false, "indent JSON output")

	// config overrides, bound into viper by key
	flags.Int("fetch.page_limit", 1000, "rows per request")
	flags.Duration("fetch.pace_delay", 0, "pause between requests")
	flags.Int("fetch.max_pages", 0, "abort after this many requests, 0 for no cap")
	flags.String("log.level", "info", "log level")
	flags.Bool("tracing.enabled", false, "export spans to stderr")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	_ = godotenv.Load()
	cfg, err := config.Load(*configPath, flags)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	log, err := logger.NewWithWriter(cfg.Log, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	defer log.Sync()

	shutdownTracing, err := tracing.Setup(cfg.Tracing, tools.Version, stderr)
	if err != nil {
		log.Error("tracing setup failed", zap.Error(err))
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := app.Build(cfg, log)
	resp := c.Tools.FetchHistoricalOHLCV(ctx, tools.OHLCVRequest{
		Symbol:    *symbol,
		Interval:  *interval,
		StartDate: *start,
		EndDate:   *end,
		Category:  *category,
	})

	// flush spans before the envelope so stderr output stays ahead of it
	if err := shutdownTracing(context.Background()); err != nil {
		log.Warn("tracing shutdown failed", zap.Error(err))
	}

	enc := json.NewEncoder(stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(resp); err != nil {
		log.Error("write response failed", zap.Error(err))
		return exitFailed
	}
	if !resp.Success {
		return exitFailed
	}
	return exitOK
}
