package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidBars is returned when a bar sequence violates the OHLCV contract.
var ErrInvalidBars = errors.New("invalid bar sequence")

// OHLCV represents a single candlestick bar. Time is the bar open time in unix milliseconds.
type OHLCV struct {
	Time   int64   `json:"time" validate:"required,gt=0"`
	Open   float64 `json:"open" validate:"gt=0"`
	High   float64 `json:"high" validate:"gt=0"`
	Low    float64 `json:"low" validate:"gt=0"`
	Close  float64 `json:"close" validate:"gt=0"`
	Volume float64 `json:"volume" validate:"gte=0"`
}

// OpenTime returns the bar time as a time.Time in UTC.
func (b OHLCV) OpenTime() time.Time {
	return time.UnixMilli(b.Time).UTC()
}

// Body returns |Close - Open|.
func (b OHLCV) Body() float64 {
	return math.Abs(b.Close - b.Open)
}

// UpperWick returns the distance from the top of the body to the high.
func (b OHLCV) UpperWick() float64 {
	return b.High - math.Max(b.Open, b.Close)
}

// LowerWick returns the distance from the low to the bottom of the body.
func (b OHLCV) LowerWick() float64 {
	return math.Min(b.Open, b.Close) - b.Low
}

// Range returns High - Low.
func (b OHLCV) Range() float64 {
	return b.High - b.Low
}

// IsBullish reports whether the bar closed above its open.
func (b OHLCV) IsBullish() bool { return b.Close > b.Open }

// IsBearish reports whether the bar closed below its open.
func (b OHLCV) IsBearish() bool { return b.Close < b.Open }

// PriceSeries holds one symbol/interval bar sequence, oldest first.
type PriceSeries struct {
	Symbol    string
	Interval  string
	Bars      []OHLCV
	FetchedAt time.Time
}

// Last returns the newest bar, or false for an empty series.
func (p *PriceSeries) Last() (OHLCV, bool) {
	if len(p.Bars) == 0 {
		return OHLCV{}, false
	}
	return p.Bars[len(p.Bars)-1], true
}

// ValidateBars checks the bar sequence contract: positive prices, a consistent
// high/low envelope, non-negative volume and strictly increasing timestamps.
// The returned error wraps ErrInvalidBars.
func ValidateBars(bars []OHLCV) error {
	for i, b := range bars {
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			return fmt.Errorf("%w: bar %d has a non-positive price", ErrInvalidBars, i)
		}
		if b.High < math.Max(b.Open, b.Close) || b.Low > math.Min(b.Open, b.Close) {
			return fmt.Errorf("%w: bar %d high/low do not enclose open/close", ErrInvalidBars, i)
		}
		if b.Volume < 0 {
			return fmt.Errorf("%w: bar %d has negative volume", ErrInvalidBars, i)
		}
		if i > 0 && b.Time <= bars[i-1].Time {
			return fmt.Errorf("%w: bar %d time %d is not after %d", ErrInvalidBars, i, b.Time, bars[i-1].Time)
		}
	}
	return nil
}
