package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"klinefetch/internal/daterange"
	"klinefetch/internal/history"
	"klinefetch/pkg/bybit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeSeries struct {
	mu      sync.Mutex
	bySym   map[string]history.Series
	errs    map[string]error
	queries []history.Query
}

func (f *fakeSeries) GetOHLCV(ctx context.Context, q history.Query) (history.Series, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if err := f.errs[q.Symbol]; err != nil {
		return nil, err
	}
	return f.bySym[q.Symbol], nil
}

type fakeSymbols struct {
	symbols []string
	err     error
}

func (f *fakeSymbols) GetSymbols(ctx context.Context, c bybit.Category) ([]string, error) {
	return f.symbols, f.err
}

func closesSeries(closes ...string) history.Series {
	rows := make([]bybit.KlineRow, len(closes))
	for i, c := range closes {
		rows[i] = bybit.KlineRow{
			Start: int64(i+1) * 60_000, Open: c, High: c, Low: c, Close: c, Volume: "1",
		}
	}
	return history.Assemble(rows, daterange.Window{End: int64(len(closes)+1) * 60_000})
}

// go test -v --run TestFetchHistoricalOHLCV
func TestFetchHistoricalOHLCV(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	fs := &fakeSeries{bySym: map[string]history.Series{"BTCUSDT": closesSeries("1", "oops", "3")}}
	svc := NewService(fs, nil, zap.New(core))

	resp := svc.FetchHistoricalOHLCV(context.Background(), OHLCVRequest{
		Symbol: "BTCUSDT", Interval: "1", StartDate: "1970-01-01",
	})

	require.True(t, resp.Success, resp.Error)
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, "spot", resp.Category)
	assert.Equal(t, 3, resp.Count)
	require.Len(t, resp.Data, 3)
	assert.Nil(t, resp.Data[1].Close)
	require.NotNil(t, resp.Data[2].Close)
	assert.Equal(t, 3.0, *resp.Data[2].Close)
	assert.Equal(t, "1970-01-01T00:01:00Z", resp.DateRange.Start)
	assert.Equal(t, int64(180_000), resp.DataInfo.LastTimestamp)
	assert.Equal(t, "3 candles", resp.DataInfo.TimeframeCoverage)

	require.Len(t, fs.queries, 1)
	assert.Equal(t, "spot", fs.queries[0].Category)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"close":null`)

	assert.Equal(t, 2, logs.FilterField(zap.String("request_id", resp.RequestID)).Len())
}

// go test -v --run TestFetchHistoricalOHLCVFailures
func TestFetchHistoricalOHLCVFailures(t *testing.T) {
	fs := &fakeSeries{
		bySym: map[string]history.Series{"EMPTY": {}},
		errs:  map[string]error{"BAD": &bybit.APIError{Code: 10001, Msg: "symbol invalid"}},
	}
	svc := NewService(fs, nil, nil)

	resp := svc.FetchHistoricalOHLCV(context.Background(), OHLCVRequest{Symbol: "EMPTY", Interval: "D"})
	assert.False(t, resp.Success)
	assert.Equal(t, "No data available for the specified parameters", resp.Error)
	assert.Zero(t, resp.Count)

	resp = svc.FetchHistoricalOHLCV(context.Background(), OHLCVRequest{Symbol: "BAD", Interval: "D"})
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "symbol invalid")
	assert.Nil(t, resp.DateRange)
}

// go test -v --run TestTradingSymbols
func TestTradingSymbols(t *testing.T) {
	var symbols []string
	for i := 0; i < 30; i++ {
		symbols = append(symbols, "AAA"+strconv.Itoa(i))
	}
	symbols = append(symbols, "BTCUSDT", "ETHBTC", "XYZ")
	svc := NewService(nil, &fakeSymbols{symbols: symbols}, nil)

	resp := svc.TradingSymbols(context.Background(), "linear")
	require.True(t, resp.Success)
	assert.Equal(t, 33, resp.Count)
	assert.Len(t, resp.SampleSymbols, 10)
	assert.Equal(t, []string{"BTCUSDT", "ETHBTC"}, resp.PopularPairs)
	assert.Len(t, resp.CategoriesInfo, 4)

	resp = svc.TradingSymbols(context.Background(), "futures")
	assert.False(t, resp.Success)

	svc = NewService(nil, &fakeSymbols{err: errors.New("boom")}, nil)
	resp = svc.TradingSymbols(context.Background(), "")
	assert.False(t, resp.Success)
	assert.Equal(t, "spot", resp.Category)
	assert.Contains(t, resp.Error, "boom")
}

// go test -v --run TestAnalyzePriceMovement
func TestAnalyzePriceMovement(t *testing.T) {
	fs := &fakeSeries{bySym: map[string]history.Series{"BTCUSDT": closesSeries("100", "101", "102", "103", "104", "105")}}
	svc := NewService(fs, nil, nil)
	svc.now = func() time.Time { return time.Date(2024, 2, 1, 8, 30, 0, 0, time.UTC) }

	resp := svc.AnalyzePriceMovement(context.Background(), "BTCUSDT", "", 0, "")
	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, "30 days", resp.AnalysisPeriod)
	assert.Equal(t, "D", resp.Interval)
	assert.Equal(t, 105.0, resp.CurrentPrice)
	assert.Equal(t, "Bullish", resp.Trend.Direction)

	require.Len(t, fs.queries, 1)
	assert.Equal(t, "2024-01-02", fs.queries[0].StartDate)
	assert.Equal(t, "2024-02-01 08:30:00", fs.queries[0].EndDate)

	resp = svc.AnalyzePriceMovement(context.Background(), "NONE", "D", 7, "spot")
	assert.False(t, resp.Success)
	assert.Nil(t, resp.Movement)
}

// go test -v --run TestMarketOverview
func TestMarketOverview(t *testing.T) {
	fs := &fakeSeries{
		bySym: map[string]history.Series{
			"AUSDT": closesSeries("100", "110"),
			"BUSDT": closesSeries("100", "95"),
			"CUSDT": closesSeries("100", "100"),
			"DUSDT": closesSeries("100"),
		},
		errs: map[string]error{"EUSDT": &bybit.TransportError{Op: "get klines", Err: errors.New("timeout")}},
	}
	svc := NewService(fs, nil, nil)

	resp := svc.MarketOverview(context.Background(), []string{"AUSDT", "BUSDT", "CUSDT", "DUSDT", "EUSDT"}, "linear", "60")
	require.True(t, resp.Success)
	assert.Equal(t, 5, resp.TotalSymbols)
	assert.Equal(t, 3, resp.SuccessfulFetches)

	require.Len(t, resp.Overview, 5)
	assert.Equal(t, "AUSDT", resp.Overview[0].Symbol)
	assert.Equal(t, "ok", resp.Overview[0].Status)
	assert.Equal(t, "Insufficient data", resp.Overview[3].Error)
	assert.Contains(t, resp.Overview[4].Error, "timeout")

	assert.Equal(t, 1, resp.MarketSummary.PositiveSymbols)
	assert.Equal(t, 1, resp.MarketSummary.NegativeSymbols)
	assert.Equal(t, 1, resp.MarketSummary.NeutralSymbols)
	assert.InDelta(t, 5.0/3.0, resp.MarketSummary.AverageChange, 1e-9)
	assert.Equal(t, "Bullish", resp.MarketSummary.MarketSentiment)

	require.Len(t, resp.TopPerformers, 3)
	assert.Equal(t, "AUSDT", resp.TopPerformers[0].Symbol)
	assert.Equal(t, "BUSDT", resp.TopDecliners[len(resp.TopDecliners)-1].Symbol)

	for _, q := range fs.queries {
		assert.Equal(t, "linear", q.Category)
		assert.NotEmpty(t, q.StartDate)
	}
}

func TestMarketOverviewDefaults(t *testing.T) {
	fs := &fakeSeries{}
	svc := NewService(fs, nil, nil)

	resp := svc.MarketOverview(context.Background(), nil, "", "")
	assert.False(t, resp.Success)
	assert.Equal(t, len(DefaultOverviewSymbols), resp.TotalSymbols)
	assert.Equal(t, "Unknown", resp.MarketSummary.MarketSentiment)
	assert.Empty(t, resp.TopPerformers)
	assert.Len(t, fs.queries, len(DefaultOverviewSymbols))
}

func TestInfo(t *testing.T) {
	info := NewService(nil, nil, nil).Info()
	assert.Equal(t, []string{"1", "3", "5", "15", "30"}, info.SupportedIntervals["minutes"])
	assert.Equal(t, []string{"60", "120", "240", "360", "720"}, info.SupportedIntervals["hours"])
	assert.Equal(t, []string{"D", "W", "M"}, info.SupportedIntervals["periods"])
	assert.Len(t, info.AvailableTools, 5)
}
