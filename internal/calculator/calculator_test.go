package calculator

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/markcheno/go-talib"

	"ReversalSentinel/internal/model"
)

func barsFromCloses(closes []float64) []model.OHLCV {
	bars := make([]model.OHLCV, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		bars[i] = model.OHLCV{
			Time:   int64(i+1) * 60_000,
			Open:   open,
			High:   math.Max(open, c) + 0.5,
			Low:    math.Min(open, c) - 0.5,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

func constCloses(n int, price float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = price
	}
	return closes
}

func TestRSIAt_InsufficientHistory(t *testing.T) {
	bars := barsFromCloses([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16})
	for _, idx := range []int{0, 5, 13} {
		if got := RSIAt(bars, idx); got != 50 {
			t.Errorf("RSIAt(%d) = %v, want 50", idx, got)
		}
	}
	if got := RSIAt(bars, 14); got != 100 {
		t.Errorf("RSIAt(14) on rising closes = %v, want 100", got)
	}
}

func TestRSIAt_KnownValue(t *testing.T) {
	// 14 changes: 7 gains of +2, 7 losses of -1 → RS = 2 → RSI = 66.67
	closes := []float64{100}
	for i := 0; i < 7; i++ {
		closes = append(closes, closes[len(closes)-1]+2, closes[len(closes)-1]+1)
	}
	bars := barsFromCloses(closes)
	got := RSIAt(bars, 14)
	want := 100.0 - 100.0/3.0
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("RSIAt(14) = %.6f, want %.6f", got, want)
	}
}

func TestRSIAt_FallingCloses(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 200 - float64(i)
	}
	if got := RSIAt(barsFromCloses(closes), 19); got != 0 {
		t.Errorf("RSIAt on falling closes = %v, want 0", got)
	}
}

func TestStochRSIAt_Sentinels(t *testing.T) {
	bars := barsFromCloses(constCloses(40, 100))
	if got := StochRSIAt(bars, 27); got != 50 {
		t.Errorf("StochRSIAt(27) = %v, want neutral 50", got)
	}
	// Flat closes: every RSI is 100, the window is flat.
	if got := StochRSIAt(bars, 30); got != 0 {
		t.Errorf("StochRSIAt on flat RSI window = %v, want 0", got)
	}
}

func TestStochRSIAt_DropAfterFlat(t *testing.T) {
	closes := constCloses(40, 100)
	closes[39] = 99
	bars := barsFromCloses(closes)
	if got := StochRSIAt(bars, 39); got != 0 {
		t.Errorf("StochRSIAt after drop = %v, want 0", got)
	}
	closes[39] = 101
	bars = barsFromCloses(closes)
	if got := StochRSIAt(bars, 39); got != 0 {
		t.Errorf("StochRSIAt after rise on flat = %v, want 0 (all RSI stay 100)", got)
	}
}

func TestBollingerAt(t *testing.T) {
	bars := barsFromCloses(constCloses(30, 100))
	if b := BollingerAt(bars, 18); b.Available {
		t.Error("expected bands unavailable at index 18")
	}
	b := BollingerAt(bars, 19)
	if !b.Available {
		t.Fatal("expected bands available at index 19")
	}
	if b.Middle != 100 || b.Upper != 100 || b.Lower != 100 {
		t.Errorf("flat bands = %+v, want all 100", b)
	}
}

func TestBollingerAt_MatchesTalib(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + 5*math.Sin(float64(i)/3) + float64(i%7)*0.3
	}
	bars := barsFromCloses(closes)
	upper, middle, lower := talib.BBands(closes, BollingerPeriod, BollingerWidth, BollingerWidth, talib.SMA)
	for i := BollingerPeriod - 1; i < len(closes); i++ {
		b := BollingerAt(bars, i)
		if math.Abs(b.Middle-middle[i]) > 1e-6 || math.Abs(b.Upper-upper[i]) > 1e-6 || math.Abs(b.Lower-lower[i]) > 1e-6 {
			t.Fatalf("index %d: got %+v, talib upper=%.6f middle=%.6f lower=%.6f", i, b, upper[i], middle[i], lower[i])
		}
	}
}

func TestRecentStats(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	bars := barsFromCloses(closes)
	bars[55].Volume = 6000

	w, err := RecentStats(bars, 56, RecentLookback)
	if err != nil {
		t.Fatalf("RecentStats: %v", err)
	}
	// bars 6..55; bar 56 excluded
	if w.High != bars[55].High {
		t.Errorf("High = %v, want %v", w.High, bars[55].High)
	}
	if w.Low != bars[6].Low {
		t.Errorf("Low = %v, want %v", w.Low, bars[6].Low)
	}
	if want := (49*1000.0 + 6000) / 50; w.AvgVolume != want {
		t.Errorf("AvgVolume = %v, want %v", w.AvgVolume, want)
	}

	if _, err := RecentStats(bars, 49, RecentLookback); err == nil {
		t.Error("expected error for index < lookback")
	}
}

func TestRangePosition(t *testing.T) {
	tests := []struct {
		current, high, low float64
		want               float64
	}{
		{150, 200, 100, 0.5},
		{250, 200, 100, 1},
		{50, 200, 100, 0},
		{100, 100, 100, 0.5},
	}
	for _, tt := range tests {
		got, err := RangePosition(tt.current, tt.high, tt.low)
		if err != nil {
			t.Fatalf("RangePosition(%v): %v", tt, err)
		}
		if got != tt.want {
			t.Errorf("RangePosition(%v, %v, %v) = %v, want %v", tt.current, tt.high, tt.low, got, tt.want)
		}
	}
	if _, err := RangePosition(1, 1, 2); err == nil {
		t.Error("expected error for high < low")
	}
}

func TestProperty_OscillatorsInRange(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("RSI and StochRSI stay within [0,100]", prop.ForAll(
		func(closes []float64, idx int) bool {
			if len(closes) == 0 {
				return true
			}
			bars := barsFromCloses(closes)
			i := idx % len(bars)
			rsi := RSIAt(bars, i)
			stoch := StochRSIAt(bars, i)
			return rsi >= 0 && rsi <= 100 && stoch >= 0 && stoch <= 100
		},
		gen.SliceOf(gen.Float64Range(0.01, 1000)),
		gen.IntRange(0, 500),
	))

	properties.Property("Bollinger lower <= middle <= upper", prop.ForAll(
		func(closes []float64) bool {
			bars := barsFromCloses(closes)
			for i := range bars {
				b := BollingerAt(bars, i)
				if b.Available && (b.Lower > b.Middle || b.Middle > b.Upper) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Float64Range(0.01, 1000)),
	))

	properties.TestingRun(t)
}
