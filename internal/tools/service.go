package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"klinefetch/internal/analysis"
	"klinefetch/internal/history"
	"klinefetch/pkg/bybit"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	ServerName = "Bybit Market Data Service"
	Version    = "1.0.0"

	sampleSize      = 10
	popularScan     = 50
	popularMax      = 10
	topN            = 3
	overviewWorkers = 4
)

var (
	// DefaultOverviewSymbols is used when MarketOverview is called without symbols.
	DefaultOverviewSymbols = []string{"BTCUSDT", "ETHUSDT", "BNBUSDT", "SOLUSDT", "ADAUSDT", "XRPUSDT", "DOGEUSDT", "AVAXUSDT"}

	popularPatterns = []string{"USDT", "USD", "BTC", "ETH"}
)

// SeriesFetcher is satisfied by *history.Service.
type SeriesFetcher interface {
	GetOHLCV(ctx context.Context, q history.Query) (history.Series, error)
}

// SymbolLister is satisfied by *bybit.RESTClient.
type SymbolLister interface {
	GetSymbols(ctx context.Context, category bybit.Category) ([]string, error)
}

// Service exposes the fetcher and symbol discovery as caller-facing tools.
// Every method returns an envelope; errors are reported inside it.
type Service struct {
	series  SeriesFetcher
	symbols SymbolLister
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(series SeriesFetcher, symbols SymbolLister, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{series: series, symbols: symbols, logger: logger, now: time.Now}
}

// OHLCVRequest mirrors history.Query with the tool's parameter names.
type OHLCVRequest struct {
	Symbol    string `json:"symbol" form:"symbol"`
	Interval  string `json:"interval" form:"interval"`
	StartDate string `json:"start_date" form:"start_date"`
	EndDate   string `json:"end_date" form:"end_date"`
	Category  string `json:"category" form:"category"`
}

// FetchHistoricalOHLCV fetches a full series and wraps it for the caller.
func (s *Service) FetchHistoricalOHLCV(ctx context.Context, req OHLCVRequest) OHLCVResponse {
	if req.Category == "" {
		req.Category = string(bybit.CategorySpot)
	}
	resp := OHLCVResponse{
		RequestID: uuid.NewString(),
		Symbol:    req.Symbol,
		Interval:  req.Interval,
	}
	log := s.logger.With(zap.String("request_id", resp.RequestID), zap.String("tool", "fetch_historical_ohlcv"))
	log.Info("fetching OHLCV data",
		zap.String("symbol", req.Symbol),
		zap.String("interval", req.Interval),
		zap.String("start_date", req.StartDate),
		zap.String("end_date", req.EndDate),
	)

	series, err := s.series.GetOHLCV(ctx, history.Query{
		Symbol:    req.Symbol,
		Interval:  req.Interval,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Category:  req.Category,
	})
	if err != nil {
		log.Error("fetch failed", zap.Error(err))
		resp.Error = fmt.Sprintf("Error fetching OHLCV data: %v", err)
		return resp
	}
	if len(series) == 0 {
		resp.Error = "No data available for the specified parameters"
		return resp
	}

	first, _ := series.First()
	last, _ := series.Last()
	resp.Success = true
	resp.Category = req.Category
	resp.Data = toRecords(series)
	resp.Count = len(series)
	resp.DateRange = &DateRange{
		Start: first.Datetime.Format(time.RFC3339),
		End:   last.Datetime.Format(time.RFC3339),
	}
	resp.DataInfo = &DataInfo{
		Columns:           history.Columns,
		FirstTimestamp:    first.Timestamp,
		LastTimestamp:     last.Timestamp,
		TimeframeCoverage: fmt.Sprintf("%d candles", len(series)),
	}
	log.Info("fetched candles", zap.Int("count", resp.Count))
	return resp
}

// TradingSymbols lists every symbol in a category.
func (s *Service) TradingSymbols(ctx context.Context, category string) SymbolsResponse {
	if category == "" {
		category = string(bybit.CategorySpot)
	}
	resp := SymbolsResponse{RequestID: uuid.NewString(), Category: category}
	log := s.logger.With(zap.String("request_id", resp.RequestID), zap.String("tool", "get_trading_symbols"))

	c, err := bybit.ParseCategory(category)
	if err != nil {
		resp.Error = fmt.Sprintf("No symbols found for category '%s' or invalid category", category)
		return resp
	}

	symbols, err := s.symbols.GetSymbols(ctx, c)
	if err != nil {
		log.Error("symbol listing failed", zap.Error(err))
		resp.Error = fmt.Sprintf("Error fetching symbols: %v", err)
		return resp
	}
	if len(symbols) == 0 {
		resp.Error = fmt.Sprintf("No symbols found for category '%s' or invalid category", category)
		return resp
	}

	resp.Success = true
	resp.Symbols = symbols
	resp.Count = len(symbols)
	resp.SampleSymbols = symbols[:min(len(symbols), sampleSize)]
	resp.PopularPairs = popularPairs(symbols)
	resp.CategoriesInfo = categoriesInfo()
	log.Info("listed symbols", zap.Int("count", resp.Count))
	return resp
}

// AnalyzePriceMovement fetches the last daysBack days and describes them.
func (s *Service) AnalyzePriceMovement(ctx context.Context, symbol, interval string, daysBack int, category string) AnalysisResponse {
	if interval == "" {
		interval = string(bybit.IntervalDaily)
	}
	if daysBack <= 0 {
		daysBack = 30
	}
	resp := AnalysisResponse{RequestID: uuid.NewString(), Symbol: symbol, Interval: interval}
	log := s.logger.With(zap.String("request_id", resp.RequestID), zap.String("tool", "analyze_price_movement"))

	now := s.now().UTC()
	series, err := s.series.GetOHLCV(ctx, history.Query{
		Symbol:    symbol,
		Interval:  interval,
		StartDate: now.AddDate(0, 0, -daysBack).Format("2006-01-02"),
		EndDate:   now.Format("2006-01-02 15:04:05"),
		Category:  category,
	})
	if err != nil {
		log.Error("fetch failed", zap.Error(err))
		resp.Error = fmt.Sprintf("Error analyzing price movement: %v", err)
		return resp
	}

	m, err := analysis.Describe(series, symbol, interval, daysBack)
	if err != nil {
		resp.Error = "No data available for analysis"
		return resp
	}

	resp.Success = true
	resp.AnalysisPeriod = fmt.Sprintf("%d days", daysBack)
	resp.Movement = &m
	log.Info("analyzed price movement",
		zap.String("trend", m.Trend.Direction),
		zap.Float64("volatility", m.Volatility.Percentage),
	)
	return resp
}

// MarketOverview snapshots several symbols. Fetches run concurrently; each
// symbol owns its own fetch, so one failure only marks that symbol.
func (s *Service) MarketOverview(ctx context.Context, symbols []string, category, interval string) OverviewResponse {
	if len(symbols) == 0 {
		symbols = DefaultOverviewSymbols
	}
	if category == "" {
		category = string(bybit.CategorySpot)
	}
	if interval == "" {
		interval = string(bybit.IntervalDaily)
	}
	resp := OverviewResponse{
		RequestID:    uuid.NewString(),
		TotalSymbols: len(symbols),
		Interval:     interval,
		Category:     category,
	}
	log := s.logger.With(zap.String("request_id", resp.RequestID), zap.String("tool", "get_market_overview"))

	// Only the most recent candles matter; a short window keeps each fetch to one call.
	now := s.now().UTC()
	start := now.Add(-overviewLookback(interval))

	entries := make([]OverviewEntry, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(overviewWorkers)
	for i, symbol := range symbols {
		i, symbol := i, symbol
		g.Go(func() error {
			entry := OverviewEntry{Symbol: symbol, Status: "error"}
			series, err := s.series.GetOHLCV(gctx, history.Query{
				Symbol:    symbol,
				Interval:  interval,
				StartDate: start.Format("2006-01-02 15:04:05"),
				Category:  category,
			})
			switch {
			case errors.Is(err, context.Canceled):
				return err
			case err != nil:
				entry.Error = err.Error()
			default:
				snap, err := analysis.TakeSnapshot(series)
				if err != nil {
					entry.Error = "Insufficient data"
				} else {
					entry.Status = "ok"
					entry.Snapshot = &snap
				}
			}
			entries[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		resp.Error = fmt.Sprintf("Error generating market overview: %v", err)
		return resp
	}

	resp.Overview = entries
	var valid []OverviewEntry
	for _, e := range entries {
		if e.Snapshot != nil {
			valid = append(valid, e)
		}
	}
	resp.SuccessfulFetches = len(valid)
	resp.Success = len(valid) > 0
	resp.MarketSummary = summarize(valid)
	resp.TopPerformers, resp.TopDecliners = rank(valid)
	resp.Timestamp = now

	log.Info("market overview completed",
		zap.Int("successful", resp.SuccessfulFetches),
		zap.Int("total", resp.TotalSymbols),
	)
	return resp
}

// Info describes the available tools.
func (s *Service) Info() ServerInfo {
	intervals := map[string][]string{}
	for _, meta := range bybit.KlineIntervals() {
		switch {
		case meta.Minutes < 60:
			intervals["minutes"] = append(intervals["minutes"], meta.APIValue)
		case meta.Minutes < 1440:
			intervals["hours"] = append(intervals["hours"], meta.APIValue)
		default:
			intervals["periods"] = append(intervals["periods"], meta.APIValue)
		}
	}
	return ServerInfo{
		ServerName:  ServerName,
		Version:     Version,
		Description: "Historical market data service for the Bybit V5 API",
		Capabilities: []string{
			"Historical OHLCV data fetching with pagination",
			"Market symbol discovery",
			"Price movement analysis",
			"Multi-symbol market overview",
		},
		AvailableTools: map[string]string{
			"fetch_historical_ohlcv": "Fetch historical candlestick data for a date range",
			"get_trading_symbols":    "Discover available trading symbols by category",
			"analyze_price_movement": "Summarize trend, volatility and key levels",
			"get_market_overview":    "Compare the latest move across several symbols",
			"get_server_info":        "Describe server capabilities",
		},
		SupportedIntervals: intervals,
		Categories:         categoriesInfo(),
	}
}

func popularPairs(symbols []string) []string {
	var out []string
	for _, sym := range symbols[:min(len(symbols), popularScan)] {
		for _, p := range popularPatterns {
			if strings.Contains(sym, p) {
				out = append(out, sym)
				break
			}
		}
		if len(out) >= popularMax {
			break
		}
	}
	return out
}

func summarize(valid []OverviewEntry) MarketSummary {
	if len(valid) == 0 {
		return MarketSummary{MarketSentiment: "Unknown"}
	}
	var ms MarketSummary
	var total float64
	for _, e := range valid {
		total += e.ChangePct
		switch {
		case e.ChangePct > 0:
			ms.PositiveSymbols++
		case e.ChangePct < 0:
			ms.NegativeSymbols++
		default:
			ms.NeutralSymbols++
		}
	}
	ms.AverageChange = total / float64(len(valid))
	switch {
	case ms.AverageChange > 1:
		ms.MarketSentiment = "Bullish"
	case ms.AverageChange < -1:
		ms.MarketSentiment = "Bearish"
	default:
		ms.MarketSentiment = "Neutral"
	}
	return ms
}

func rank(valid []OverviewEntry) (top, bottom []OverviewEntry) {
	if len(valid) == 0 {
		return []OverviewEntry{}, []OverviewEntry{}
	}
	sorted := make([]OverviewEntry, len(valid))
	copy(sorted, valid)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ChangePct > sorted[j].ChangePct })
	top = sorted[:min(topN, len(sorted))]
	bottom = sorted[max(0, len(sorted)-topN):]
	return top, bottom
}

// overviewLookback covers a handful of candles of the given interval.
func overviewLookback(interval string) time.Duration {
	meta, err := bybit.ParseKlineInterval(interval)
	if err != nil {
		return 24 * time.Hour
	}
	return time.Duration(meta.Minutes) * time.Minute * 5
}
