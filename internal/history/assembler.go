package history

import (
	"sort"
	"strings"
	"time"

	"klinefetch/internal/daterange"
	"klinefetch/pkg/bybit"

	"github.com/shopspring/decimal"
)

// Assemble turns the accumulated raw rows into a Series: every numeric cell
// coerced (malformed cells become null), rows outside w dropped, sorted
// ascending, duplicate timestamps collapsed to their first occurrence.
// It never fails; no rows yields an empty Series.
func Assemble(rows []bybit.KlineRow, w daterange.Window) Series {
	out := make(Series, 0, len(rows))
	for _, r := range rows {
		if w.Bounded() && r.Start < w.Start {
			continue
		}
		if w.End > 0 && r.Start > w.End {
			continue
		}
		out = append(out, Candle{
			Timestamp: r.Start,
			Datetime:  time.UnixMilli(r.Start).UTC(),
			Open:      coerce(r.Open),
			High:      coerce(r.High),
			Low:       coerce(r.Low),
			Close:     coerce(r.Close),
			Volume:    coerce(r.Volume),
			Turnover:  coerce(r.Turnover),
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })

	// stable sort keeps the first-seen row of each timestamp in front
	uniq := out[:0]
	for _, c := range out {
		if n := len(uniq); n > 0 && uniq[n-1].Timestamp == c.Timestamp {
			continue
		}
		uniq = append(uniq, c)
	}
	return uniq
}

func coerce(s string) decimal.NullDecimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}
