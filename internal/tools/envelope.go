package tools

import (
	"time"

	"klinefetch/internal/analysis"
	"klinefetch/internal/history"
	"klinefetch/pkg/bybit"
)

// Record is a Candle flattened for JSON callers. Null numeric cells stay null.
type Record struct {
	Timestamp int64    `json:"timestamp"`
	Datetime  string   `json:"datetime"`
	Open      *float64 `json:"open"`
	High      *float64 `json:"high"`
	Low       *float64 `json:"low"`
	Close     *float64 `json:"close"`
	Volume    *float64 `json:"volume"`
	Turnover  *float64 `json:"turnover"`
}

type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type DataInfo struct {
	Columns           []string `json:"columns"`
	FirstTimestamp    int64    `json:"first_timestamp"`
	LastTimestamp     int64    `json:"last_timestamp"`
	TimeframeCoverage string   `json:"timeframe_coverage"`
}

// OHLCVResponse is the envelope for FetchHistoricalOHLCV.
type OHLCVResponse struct {
	RequestID string     `json:"request_id"`
	Success   bool       `json:"success"`
	Error     string     `json:"error,omitempty"`
	Symbol    string     `json:"symbol"`
	Interval  string     `json:"interval"`
	Category  string     `json:"category,omitempty"`
	Count     int        `json:"count"`
	Data      []Record   `json:"data,omitempty"`
	DateRange *DateRange `json:"date_range,omitempty"`
	DataInfo  *DataInfo  `json:"data_info,omitempty"`
}

// SymbolsResponse is the envelope for TradingSymbols.
type SymbolsResponse struct {
	RequestID      string            `json:"request_id"`
	Success        bool              `json:"success"`
	Error          string            `json:"error,omitempty"`
	Category       string            `json:"category"`
	Count          int               `json:"count"`
	Symbols        []string          `json:"symbols,omitempty"`
	SampleSymbols  []string          `json:"sample_symbols,omitempty"`
	PopularPairs   []string          `json:"popular_pairs,omitempty"`
	CategoriesInfo map[string]string `json:"categories_info,omitempty"`
}

// AnalysisResponse is the envelope for AnalyzePriceMovement.
type AnalysisResponse struct {
	RequestID      string `json:"request_id"`
	Success        bool   `json:"success"`
	Error          string `json:"error,omitempty"`
	Symbol         string `json:"symbol"`
	Interval       string `json:"interval,omitempty"`
	AnalysisPeriod string `json:"analysis_period,omitempty"`
	*analysis.Movement
}

// OverviewEntry is one symbol's row in the market overview.
type OverviewEntry struct {
	Symbol string `json:"symbol"`
	Error  string `json:"error,omitempty"`
	Status string `json:"status"`
	*analysis.Snapshot
}

type MarketSummary struct {
	AverageChange   float64 `json:"average_change"`
	PositiveSymbols int     `json:"positive_symbols"`
	NegativeSymbols int     `json:"negative_symbols"`
	NeutralSymbols  int     `json:"neutral_symbols"`
	MarketSentiment string  `json:"market_sentiment"`
}

// OverviewResponse is the envelope for MarketOverview.
type OverviewResponse struct {
	RequestID         string          `json:"request_id"`
	Success           bool            `json:"success"`
	Error             string          `json:"error,omitempty"`
	Overview          []OverviewEntry `json:"overview"`
	MarketSummary     MarketSummary   `json:"market_summary"`
	TopPerformers     []OverviewEntry `json:"top_performers"`
	TopDecliners      []OverviewEntry `json:"top_decliners"`
	TotalSymbols      int             `json:"total_symbols"`
	SuccessfulFetches int             `json:"successful_fetches"`
	Interval          string          `json:"interval"`
	Category          string          `json:"category"`
	Timestamp         time.Time       `json:"timestamp"`
}

// ServerInfo describes what this service can do.
type ServerInfo struct {
	ServerName         string              `json:"server_name"`
	Version            string              `json:"version"`
	Description        string              `json:"description"`
	Capabilities       []string            `json:"capabilities"`
	AvailableTools     map[string]string   `json:"available_tools"`
	SupportedIntervals map[string][]string `json:"supported_intervals"`
	Categories         map[string]string   `json:"supported_categories"`
}

func toRecords(series history.Series) []Record {
	out := make([]Record, len(series))
	for i, c := range series {
		out[i] = Record{
			Timestamp: c.Timestamp,
			Datetime:  c.Datetime.Format(time.RFC3339),
			Open:      floatOrNil(c.Open.Valid, c.Open.Decimal.InexactFloat64()),
			High:      floatOrNil(c.High.Valid, c.High.Decimal.InexactFloat64()),
			Low:       floatOrNil(c.Low.Valid, c.Low.Decimal.InexactFloat64()),
			Close:     floatOrNil(c.Close.Valid, c.Close.Decimal.InexactFloat64()),
			Volume:    floatOrNil(c.Volume.Valid, c.Volume.Decimal.InexactFloat64()),
			Turnover:  floatOrNil(c.Turnover.Valid, c.Turnover.Decimal.InexactFloat64()),
		}
	}
	return out
}

func floatOrNil(valid bool, v float64) *float64 {
	if !valid {
		return nil
	}
	return &v
}

func categoriesInfo() map[string]string {
	out := make(map[string]string, len(bybit.Categories))
	for _, c := range bybit.Categories {
		out[string(c)] = c.Description()
	}
	return out
}
