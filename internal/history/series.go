package history

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle is one OHLCV observation. Numeric fields are null when the provider
// sent something that is not a number.
type Candle struct {
	Timestamp int64               `json:"timestamp"` // bucket start, epoch ms
	Datetime  time.Time           `json:"datetime"`  // Timestamp rendered in UTC
	Open      decimal.NullDecimal `json:"open"`
	High      decimal.NullDecimal `json:"high"`
	Low       decimal.NullDecimal `json:"low"`
	Close     decimal.NullDecimal `json:"close"`
	Volume    decimal.NullDecimal `json:"volume"`
	Turnover  decimal.NullDecimal `json:"turnover"`
}

// Series is ascending by Timestamp with no duplicates.
type Series []Candle

// Columns names the fields of a Candle in output order.
var Columns = []string{"timestamp", "datetime", "open", "high", "low", "close", "volume", "turnover"}

func (s Series) First() (Candle, bool) {
	if len(s) == 0 {
		return Candle{}, false
	}
	return s[0], true
}

func (s Series) Last() (Candle, bool) {
	if len(s) == 0 {
		return Candle{}, false
	}
	return s[len(s)-1], true
}

// Closes returns the valid close prices in order, skipping nulls.
func (s Series) Closes() []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(s))
	for _, c := range s {
		if c.Close.Valid {
			out = append(out, c.Close.Decimal)
		}
	}
	return out
}
