package analysis

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"klinefetch/internal/history"

	"github.com/shopspring/decimal"
)

// ErrInsufficientData is returned when a series is too short to describe.
var ErrInsufficientData = errors.New("insufficient data")

const trendWindow = 5

type PriceChange struct {
	Absolute   float64 `json:"absolute"`
	Percentage float64 `json:"percentage"`
	Direction  string  `json:"direction"`
}

type Volatility struct {
	Percentage float64 `json:"percentage"`
	Level      string  `json:"level"`
}

type Trend struct {
	Direction string `json:"direction"`
	Strength  string `json:"strength"`
}

type KeyLevels struct {
	PeriodHigh    float64 `json:"period_high"`
	PeriodLow     float64 `json:"period_low"`
	CurrentVsHigh float64 `json:"current_vs_high"`
	CurrentVsLow  float64 `json:"current_vs_low"`
}

type VolumeAnalysis struct {
	CurrentVolume float64 `json:"current_volume"`
	AverageVolume float64 `json:"average_volume"`
	VolumeRatio   float64 `json:"volume_ratio"`
	Status        string  `json:"status"`
}

// Movement summarizes how a series moved over its span.
type Movement struct {
	CurrentPrice float64        `json:"current_price"`
	Change       PriceChange    `json:"price_change_24h"`
	Volatility   Volatility     `json:"volatility"`
	Trend        Trend          `json:"trend_analysis"`
	KeyLevels    KeyLevels      `json:"key_levels"`
	Volume       VolumeAnalysis `json:"volume_analysis"`
	Summary      string         `json:"summary"`
	DataPoints   int            `json:"data_points"`
}

// Describe computes a Movement for series. Candles with a null close are ignored
// for price statistics; candles with a null volume for volume statistics.
func Describe(series history.Series, symbol, interval string, daysBack int) (Movement, error) {
	closes := series.Closes()
	if len(closes) == 0 {
		return Movement{}, ErrInsufficientData
	}

	current := closes[len(closes)-1]
	previous := current
	if len(closes) > 1 {
		previous = closes[len(closes)-2]
	}

	change := changeBetween(previous, current)
	vol := volatility(closes)

	m := Movement{
		CurrentPrice: current.InexactFloat64(),
		Change:       change,
		Volatility: Volatility{
			Percentage: vol,
			Level:      grade(vol, 5, 2, "High", "Medium", "Low"),
		},
		Trend: Trend{
			Direction: trendDirection(closes),
			Strength:  grade(math.Abs(change.Percentage), 5, 2, "Strong", "Moderate", "Weak"),
		},
		KeyLevels:  keyLevels(series, current),
		Volume:     volumeAnalysis(series),
		DataPoints: len(series),
	}

	dir := "down"
	if change.Percentage > 0 {
		dir = "up"
	}
	volWord := "below"
	if m.Volume.VolumeRatio > 1 {
		volWord = "above"
	}
	m.Summary = fmt.Sprintf(
		"%s is currently trading at $%.4f, %s %.2f%% from previous %s. The %d-day volatility is %.2f%%. Volume is %s average. Overall trend appears %s.",
		symbol, m.CurrentPrice, dir, math.Abs(change.Percentage), interval, daysBack, vol, volWord, strings.ToLower(m.Trend.Direction),
	)
	return m, nil
}

// Snapshot is the last-candle view used by the market overview.
type Snapshot struct {
	CurrentPrice float64 `json:"current_price"`
	Change       float64 `json:"price_change"`
	ChangePct    float64 `json:"price_change_percentage"`
	Volume       float64 `json:"volume"`
}

// TakeSnapshot compares the last two closes. It needs at least two candles.
func TakeSnapshot(series history.Series) (Snapshot, error) {
	if len(series) < 2 {
		return Snapshot{}, ErrInsufficientData
	}
	last, prev := series[len(series)-1], series[len(series)-2]
	if !last.Close.Valid || !prev.Close.Valid {
		return Snapshot{}, ErrInsufficientData
	}

	change := changeBetween(prev.Close.Decimal, last.Close.Decimal)
	return Snapshot{
		CurrentPrice: last.Close.Decimal.InexactFloat64(),
		Change:       change.Absolute,
		ChangePct:    change.Percentage,
		Volume:       last.Volume.Decimal.InexactFloat64(),
	}, nil
}

func changeBetween(prev, cur decimal.Decimal) PriceChange {
	abs := cur.Sub(prev)
	pct := decimal.Zero
	if prev.IsPositive() {
		pct = abs.Div(prev).Mul(decimal.NewFromInt(100))
	}
	dir := "down"
	if pct.IsPositive() {
		dir = "up"
	}
	return PriceChange{
		Absolute:   abs.InexactFloat64(),
		Percentage: pct.InexactFloat64(),
		Direction:  dir,
	}
}

// volatility is the sample standard deviation of close-to-close returns, in percent.
func volatility(closes []decimal.Decimal) float64 {
	var returns []float64
	for i := 1; i < len(closes); i++ {
		if closes[i-1].IsZero() {
			continue
		}
		r := closes[i].Sub(closes[i-1]).Div(closes[i-1])
		returns = append(returns, r.InexactFloat64())
	}
	if len(returns) < 2 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var ss float64
	for _, r := range returns {
		ss += (r - mean) * (r - mean)
	}
	return math.Sqrt(ss/float64(len(returns)-1)) * 100
}

func trendDirection(closes []decimal.Decimal) string {
	if len(closes) < trendWindow {
		return "Neutral"
	}
	recent := decimal.Avg(closes[len(closes)-trendWindow], closes[len(closes)-trendWindow+1:]...)
	earlier := decimal.Avg(closes[0], closes[1:trendWindow]...)
	if recent.GreaterThan(earlier) {
		return "Bullish"
	}
	return "Bearish"
}

func keyLevels(series history.Series, current decimal.Decimal) KeyLevels {
	var high, low decimal.Decimal
	var hiSeen, loSeen bool
	for _, c := range series {
		if c.High.Valid && (!hiSeen || c.High.Decimal.GreaterThan(high)) {
			high, hiSeen = c.High.Decimal, true
		}
		if c.Low.Valid && (!loSeen || c.Low.Decimal.LessThan(low)) {
			low, loSeen = c.Low.Decimal, true
		}
	}

	kl := KeyLevels{PeriodHigh: high.InexactFloat64(), PeriodLow: low.InexactFloat64()}
	if high.IsPositive() {
		kl.CurrentVsHigh = (current.InexactFloat64()/kl.PeriodHigh - 1) * 100
	}
	if low.IsPositive() {
		kl.CurrentVsLow = (current.InexactFloat64()/kl.PeriodLow - 1) * 100
	}
	return kl
}

func volumeAnalysis(series history.Series) VolumeAnalysis {
	var sum float64
	var n int
	var current float64
	for _, c := range series {
		if !c.Volume.Valid {
			continue
		}
		v := c.Volume.Decimal.InexactFloat64()
		sum += v
		n++
		current = v
	}

	va := VolumeAnalysis{CurrentVolume: current}
	if n > 0 {
		va.AverageVolume = sum / float64(n)
	}
	if va.AverageVolume > 0 {
		va.VolumeRatio = current / va.AverageVolume
	}
	switch {
	case va.VolumeRatio > 1.2:
		va.Status = "Above Average"
	case va.VolumeRatio < 0.8:
		va.Status = "Below Average"
	default:
		va.Status = "Normal"
	}
	return va
}

func grade(v, hi, mid float64, hiLabel, midLabel, loLabel string) string {
	switch {
	case v > hi:
		return hiLabel
	case v > mid:
		return midLabel
	default:
		return loLabel
	}
}
