package bybit

import (
	"fmt"
	"sort"
)

const (
	KlinePath       = "/v5/market/kline"
	InstrumentsPath = "/v5/market/instruments-info"

	// MaxKlineLimit is the largest page the kline endpoint will return.
	MaxKlineLimit = 1000
	// DefaultKlineLimit is what the provider uses when limit is omitted.
	DefaultKlineLimit = 200

	maxInstrumentsLimit = 1000
)

// Category is the product line a symbol trades in.
type Category string

const (
	CategorySpot    Category = "spot"
	CategoryLinear  Category = "linear"
	CategoryInverse Category = "inverse"
	CategoryOption  Category = "option"
)

// Categories lists the supported categories in documentation order.
var Categories = []Category{CategorySpot, CategoryLinear, CategoryInverse, CategoryOption}

var categoryInfo = map[Category]string{
	CategorySpot:    "Spot trading pairs (immediate settlement)",
	CategoryLinear:  "Linear derivatives (USDT margined perpetuals)",
	CategoryInverse: "Inverse derivatives (coin margined perpetuals)",
	CategoryOption:  "Options contracts",
}

// IsValid checks if the Category is one the V5 market endpoints accept
func (c Category) IsValid() bool {
	_, ok := categoryInfo[c]
	return ok
}

// Description returns a short human-readable description of the category.
func (c Category) Description() string {
	return categoryInfo[c]
}

// ParseCategory parses a string into a supported Category
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.IsValid() {
		return "", fmt.Errorf("invalid category: %q", s)
	}
	return c, nil
}

// KlineInterval is the interval type used for API requests
type KlineInterval string

// KlineIntervalMeta holds the API value and a display label for a Kline interval
type KlineIntervalMeta struct {
	APIValue string
	Label    string
	Minutes  int
}

const (
	Interval1Min    KlineInterval = "1"
	Interval3Min    KlineInterval = "3"
	Interval5Min    KlineInterval = "5"
	Interval15Min   KlineInterval = "15"
	Interval30Min   KlineInterval = "30"
	Interval60Min   KlineInterval = "60"
	Interval120Min  KlineInterval = "120"
	Interval240Min  KlineInterval = "240"
	Interval360Min  KlineInterval = "360"
	Interval720Min  KlineInterval = "720"
	IntervalDaily   KlineInterval = "D"
	IntervalWeekly  KlineInterval = "W"
	IntervalMonthly KlineInterval = "M"
)

// validKlineIntervals maps KlineInterval to its API value and display label
var validKlineIntervals = map[KlineInterval]KlineIntervalMeta{
	Interval1Min:    {APIValue: "1", Label: "1m", Minutes: 1},
	Interval3Min:    {APIValue: "3", Label: "3m", Minutes: 3},
	Interval5Min:    {APIValue: "5", Label: "5m", Minutes: 5},
	Interval15Min:   {APIValue: "15", Label: "15m", Minutes: 15},
	Interval30Min:   {APIValue: "30", Label: "30m", Minutes: 30},
	Interval60Min:   {APIValue: "60", Label: "1h", Minutes: 60},
	Interval120Min:  {APIValue: "120", Label: "2h", Minutes: 120},
	Interval240Min:  {APIValue: "240", Label: "4h", Minutes: 240},
	Interval360Min:  {APIValue: "360", Label: "6h", Minutes: 360},
	Interval720Min:  {APIValue: "720", Label: "12h", Minutes: 720},
	IntervalDaily:   {APIValue: "D", Label: "1d", Minutes: 1440},  // 24*60
	IntervalWeekly:  {APIValue: "W", Label: "1w", Minutes: 10080}, // 7*24*60
	IntervalMonthly: {APIValue: "M", Label: "1M", Minutes: 43200}, // 30 days; calendar months vary
}

// ParseKlineInterval parses a string into a valid KlineIntervalMeta
func ParseKlineInterval(s string) (KlineIntervalMeta, error) {
	interval := KlineInterval(s)
	meta, ok := validKlineIntervals[interval]
	if !ok {
		return KlineIntervalMeta{}, fmt.Errorf("invalid KlineInterval: %s", s)
	}
	return meta, nil
}

// KlineIntervals returns every supported interval ordered by duration.
func KlineIntervals() []KlineIntervalMeta {
	out := make([]KlineIntervalMeta, 0, len(validKlineIntervals))
	for _, meta := range validKlineIntervals {
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Minutes < out[j].Minutes })
	return out
}
