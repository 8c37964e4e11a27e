package history

import (
	"context"
	"fmt"
	"time"

	"klinefetch/internal/daterange"
	"klinefetch/pkg/bybit"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "klinefetch/internal/history"

// PageFetcher performs one bounded kline call. *bybit.RESTClient satisfies it.
type PageFetcher interface {
	GetKlinePage(ctx context.Context, q bybit.KlineQuery) ([]bybit.KlineRow, error)
}

// DriverConfig carries the provider constants the walk depends on.
type DriverConfig struct {
	PageLimit int           // rows requested per call; the provider maximum
	PaceDelay time.Duration // pause between consecutive calls
	MaxPages  int           // 0 means no cap
}

// Driver walks the kline endpoint backward from the window end until the
// window start is reached or the provider runs out of history.
// A Driver keeps no per-fetch state and can serve concurrent Collect calls.
type Driver struct {
	pages  PageFetcher
	cfg    DriverConfig
	logger *zap.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewDriver(pages PageFetcher, cfg DriverConfig, logger *zap.Logger) *Driver {
	if cfg.PageLimit <= 0 || cfg.PageLimit > bybit.MaxKlineLimit {
		cfg.PageLimit = bybit.MaxKlineLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		pages:  pages,
		cfg:    cfg,
		logger: logger,
		sleep:  sleepCtx,
	}
}

// Collect returns every row the provider holds inside w for the query's
// category, symbol and interval, in the order received. Rows are not
// filtered or sorted here; see Assemble. Any error aborts the whole walk.
func (d *Driver) Collect(ctx context.Context, q bybit.KlineQuery, w daterange.Window) ([]bybit.KlineRow, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "history.Collect", trace.WithAttributes(
		attribute.String("bybit.category", string(q.Category)),
		attribute.String("bybit.symbol", q.Symbol),
		attribute.String("bybit.interval", q.Interval),
		attribute.Int64("window.start", w.Start),
		attribute.Int64("window.end", w.End),
	))
	defer span.End()

	rows, err := d.collect(ctx, q, w)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("rows", len(rows)))
	return rows, nil
}

func (d *Driver) collect(ctx context.Context, q bybit.KlineQuery, w daterange.Window) ([]bybit.KlineRow, error) {
	log := d.logger.With(
		zap.String("category", string(q.Category)),
		zap.String("symbol", q.Symbol),
		zap.String("interval", q.Interval),
	)

	q.Start = w.Start
	q.Limit = d.cfg.PageLimit
	cursor := w.End

	var acc []bybit.KlineRow
	for calls := 1; ; calls++ {
		if d.cfg.MaxPages > 0 && calls > d.cfg.MaxPages {
			return nil, fmt.Errorf("%w: %d calls, cursor at %d", ErrPageCapExceeded, d.cfg.MaxPages, cursor)
		}

		q.End = cursor
		page, err := d.pages.GetKlinePage(ctx, q)
		if err != nil {
			log.Warn("page fetch failed", zap.Int("call", calls), zap.Int64("cursor", cursor), zap.Error(err))
			return nil, err
		}

		if len(page) == 0 {
			log.Info("no more data available", zap.Int("calls", calls), zap.Int("rows", len(acc)))
			break
		}

		acc = append(acc, page...)

		// newest first, so the last row is the oldest in this page
		oldest := page[len(page)-1].Start
		log.Debug("fetched page",
			zap.Int("call", calls),
			zap.Int64("cursor", cursor),
			zap.Int("rows", len(page)),
			zap.Int64("oldest", oldest),
		)

		if w.Bounded() && oldest <= w.Start {
			log.Info("reached start date", zap.Int("calls", calls), zap.Int("rows", len(acc)))
			break
		}
		if len(page) < d.cfg.PageLimit {
			log.Info("fetched all available data", zap.Int("calls", calls), zap.Int("rows", len(acc)))
			break
		}
		if oldest > cursor {
			return nil, fmt.Errorf("%w: oldest row %d is after cursor %d", ErrCursorStalled, oldest, cursor)
		}

		cursor = oldest - 1

		if err := d.sleep(ctx, d.cfg.PaceDelay); err != nil {
			return nil, err
		}
	}

	return acc, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
