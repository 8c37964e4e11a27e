package history

import (
	"context"
	"errors"
	"time"

	"klinefetch/internal/daterange"
	"klinefetch/pkg/bybit"

	"go.uber.org/zap"
)

// Query is a caller's request for a historical series.
type Query struct {
	Symbol    string
	Interval  string
	StartDate string // "YYYY-MM-DD" or "YYYY-MM-DD HH:MM:SS", UTC; empty for no lower bound
	EndDate   string // same formats; empty for now
	Category  string // empty defaults to spot
}

// Service resolves, walks and assembles a series for one Query at a time.
// Independent calls share nothing mutable and may run concurrently.
type Service struct {
	driver   *Driver
	resolver *daterange.Resolver
	logger   *zap.Logger
}

func NewService(driver *Driver, resolver *daterange.Resolver, logger *zap.Logger) *Service {
	if resolver == nil {
		resolver = daterange.NewResolver()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{driver: driver, resolver: resolver, logger: logger}
}

// GetOHLCV returns the complete series for q or an error; never a partial series.
func (s *Service) GetOHLCV(ctx context.Context, q Query) (Series, error) {
	kq, w, err := s.prepare(q)
	if err != nil {
		return nil, err
	}

	began := time.Now()
	s.logger.Info("fetching OHLCV data",
		zap.String("symbol", kq.Symbol),
		zap.String("interval", kq.Interval),
		zap.String("category", string(kq.Category)),
		zap.Int64("start", w.Start),
		zap.Int64("end", w.End),
	)

	rows, err := s.driver.Collect(ctx, kq, w)
	if err != nil {
		return nil, err
	}

	series := Assemble(rows, w)
	if len(series) == 0 {
		s.logger.Warn("no data fetched", zap.String("symbol", kq.Symbol))
	} else {
		s.logger.Info("fetched candles",
			zap.String("symbol", kq.Symbol),
			zap.Int("count", len(series)),
			zap.Duration("elapsed", time.Since(began)),
		)
	}
	return series, nil
}

// prepare validates q and resolves its window. It makes no network calls.
func (s *Service) prepare(q Query) (bybit.KlineQuery, daterange.Window, error) {
	var none daterange.Window

	if q.Symbol == "" {
		return bybit.KlineQuery{}, none, &ValidationError{Field: "symbol", Reason: "symbol cannot be empty"}
	}
	if q.Interval == "" {
		return bybit.KlineQuery{}, none, &ValidationError{Field: "interval", Reason: "interval cannot be empty"}
	}
	if _, err := bybit.ParseKlineInterval(q.Interval); err != nil {
		return bybit.KlineQuery{}, none, &ValidationError{
			Field: "interval", Value: q.Interval,
			Reason: "must be one of 1,3,5,15,30,60,120,240,360,720,D,W,M", Err: err,
		}
	}

	category := bybit.CategorySpot
	if q.Category != "" {
		c, err := bybit.ParseCategory(q.Category)
		if err != nil {
			return bybit.KlineQuery{}, none, &ValidationError{
				Field: "category", Value: q.Category,
				Reason: "must be one of spot, linear, inverse, option", Err: err,
			}
		}
		category = c
	}

	w, err := s.resolver.Resolve(q.StartDate, q.EndDate)
	if err != nil {
		field := "date range"
		if errors.Is(err, daterange.ErrInvalidDateFormat) {
			field = "date"
		}
		return bybit.KlineQuery{}, none, &ValidationError{Field: field, Reason: err.Error(), Err: err}
	}

	return bybit.KlineQuery{
		Category: category,
		Symbol:   q.Symbol,
		Interval: q.Interval,
	}, w, nil
}
