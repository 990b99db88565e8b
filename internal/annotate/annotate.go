// Package annotate adds classic TA-Lib candlestick flags and ATR to alerts.
// The flags are informational only; they never affect detection or scoring.
package annotate

import (
	talibcdl "github.com/iwat/talib-cdl-go"
	"github.com/markcheno/go-talib"

	"ReversalSentinel/internal/model"
)

const (
	// window is the history handed to the TA-Lib routines, enough for their
	// body/shadow averaging periods.
	window    = 100
	atrPeriod = 14
)

// Flag is a TA-Lib candlestick pattern present at a bar.
type Flag struct {
	Name    string
	Bullish bool
	Value   int
}

// Annotation is the extra context shown next to a signal.
type Annotation struct {
	Flags []Flag
	ATR   float64 // 0 when history is too short
}

type cdlFunc func(talibcdl.SimpleSeries) []int

var cdlPatterns = []struct {
	name string
	fn   cdlFunc
}{
	{"Doji", func(s talibcdl.SimpleSeries) []int { return talibcdl.Doji(s) }},
	{"Doji Star", func(s talibcdl.SimpleSeries) []int { return talibcdl.DojiStar(s) }},
	{"Piercing", func(s talibcdl.SimpleSeries) []int { return talibcdl.Piercing(s) }},
	{"Belt Hold", func(s talibcdl.SimpleSeries) []int { return talibcdl.BeltHold(s) }},
	{"Closing Marubozu", func(s talibcdl.SimpleSeries) []int { return talibcdl.ClosingMarubozu(s) }},
	{"Three Inside", func(s talibcdl.SimpleSeries) []int { return talibcdl.ThreeInside(s) }},
	{"Three Outside", func(s talibcdl.SimpleSeries) []int { return talibcdl.ThreeOutside(s) }},
	{"Three White Soldiers", func(s talibcdl.SimpleSeries) []int { return talibcdl.ThreeWhiteSoldiers(s) }},
	{"Three Black Crows", func(s talibcdl.SimpleSeries) []int { return talibcdl.ThreeBlackCrows(s) }},
	{"Matching Low", func(s talibcdl.SimpleSeries) []int { return talibcdl.MatchingLow(s) }},
	{"Evening Star", func(s talibcdl.SimpleSeries) []int { return talibcdl.EveningStar(s, 0.3) }},
}

// toSeries converts bars to talib-cdl-go SimpleSeries format.
func toSeries(bars []model.OHLCV) talibcdl.SimpleSeries {
	n := len(bars)
	series := talibcdl.SimpleSeries{
		Opens:  make([]float64, n),
		Highs:  make([]float64, n),
		Lows:   make([]float64, n),
		Closes: make([]float64, n),
	}
	for i, b := range bars {
		series.Opens[i] = b.Open
		series.Highs[i] = b.High
		series.Lows[i] = b.Low
		series.Closes[i] = b.Close
	}
	return series
}

// At annotates the bar at index using only bars up to and including it.
func At(bars []model.OHLCV, index int) Annotation {
	var a Annotation
	if index < 0 || index >= len(bars) {
		return a
	}
	start := index + 1 - window
	if start < 0 {
		start = 0
	}
	hist := bars[start : index+1]
	last := len(hist) - 1

	if len(hist) >= 3 {
		series := toSeries(hist)
		for _, p := range cdlPatterns {
			res := p.fn(series)
			if len(res) > last && res[last] != 0 {
				a.Flags = append(a.Flags, Flag{Name: p.name, Bullish: res[last] > 0, Value: res[last]})
			}
		}
	}

	if len(hist) > atrPeriod {
		atr := talib.Atr(highs(hist), lows(hist), closes(hist), atrPeriod)
		if len(atr) > last {
			a.ATR = atr[last]
		}
	}
	return a
}

// Names lists the flag names in detection order.
func (a Annotation) Names() []string {
	names := make([]string, len(a.Flags))
	for i, f := range a.Flags {
		names[i] = f.Name
	}
	return names
}

func highs(bars []model.OHLCV) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.High
	}
	return out
}

func lows(bars []model.OHLCV) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Low
	}
	return out
}

func closes(bars []model.OHLCV) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
