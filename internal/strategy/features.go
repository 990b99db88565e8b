package strategy

import (
	"math"

	"ReversalSentinel/internal/calculator"
	"ReversalSentinel/internal/model"
)

// bodyEpsilon keeps wick/body ratios finite on bars that open and close at the same price.
const bodyEpsilon = 1e-9

// features holds the quantities every rule reads for one bar index.
type features struct {
	cur, prev, prev2, next model.OHLCV

	rng       float64
	body      float64
	prevBody  float64
	upperWick float64
	lowerWick float64

	recentHigh float64
	recentLow  float64
	avgVolume  float64
	volumeMult float64

	stochRSI float64
	bands    model.Bands
}

// extract derives the features at index. ok is false when the bar is degenerate
// or the index lacks the required context.
func extract(bars []model.OHLCV, index int) (f features, ok bool) {
	if index < calculator.RecentLookback || index > len(bars)-2 {
		return f, false
	}
	cur := bars[index]
	if cur.Range() == 0 {
		return f, false
	}
	w, err := calculator.RecentStats(bars, index, calculator.RecentLookback)
	if err != nil {
		return f, false
	}

	f = features{
		cur:        cur,
		prev:       bars[index-1],
		prev2:      bars[index-2],
		next:       bars[index+1],
		rng:        cur.Range(),
		body:       math.Max(bodyEpsilon, cur.Body()),
		prevBody:   math.Max(bodyEpsilon, bars[index-1].Body()),
		upperWick:  cur.UpperWick(),
		lowerWick:  cur.LowerWick(),
		recentHigh: w.High,
		recentLow:  w.Low,
		avgVolume:  w.AvgVolume,
		stochRSI:   calculator.StochRSIAt(bars, index),
		bands:      calculator.BollingerAt(bars, index),
	}
	if w.AvgVolume > 0 {
		f.volumeMult = cur.Volume / w.AvgVolume
	}
	return f, true
}

// relDiff returns |a-b| relative to a.
func relDiff(a, b float64) float64 {
	if a == 0 {
		return math.Inf(1)
	}
	return math.Abs(a-b) / math.Abs(a)
}

func bonus(cond bool, yes, no float64) float64 {
	if cond {
		return yes
	}
	return no
}
