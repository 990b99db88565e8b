package strategy

import (
	"math"

	"ReversalSentinel/internal/calculator"
	"ReversalSentinel/internal/model"
)

// ScanStart is the first index Scan hands to Detect.
const ScanStart = 25

// Detection is the result of classifying one bar.
type Detection struct {
	Kind     model.PatternKind
	StochRSI float64
	Score    int
}

var noPattern = Detection{Kind: model.PatternNone}

// Detect classifies the bar at index against the rule table. It needs
// calculator.RecentLookback bars of history and one bar of lookahead; outside
// that range, or on a bar with zero range, it returns PatternNone with score 0.
func Detect(bars []model.OHLCV, index int) Detection {
	f, ok := extract(bars, index)
	if !ok {
		return noPattern
	}
	for _, r := range rules {
		if r.match(&f) {
			return Detection{
				Kind:     r.kind,
				StochRSI: f.stochRSI,
				Score:    clampScore(r.score(&f)),
			}
		}
	}
	return Detection{Kind: model.PatternNone, StochRSI: f.stochRSI}
}

// DetectableRange returns the times of the first and last bars Detect can
// classify in bars. ok is false when the sequence is too short to hold any.
func DetectableRange(bars []model.OHLCV) (from, to int64, ok bool) {
	if len(bars) < calculator.RecentLookback+2 {
		return 0, 0, false
	}
	return bars[calculator.RecentLookback].Time, bars[len(bars)-2].Time, true
}

// Scan runs Detect over every candidate index and returns the detected signals
// in ascending time order. The bar sequence is only read.
func Scan(bars []model.OHLCV) []model.Signal {
	signals := make([]model.Signal, 0)
	for i := ScanStart; i <= len(bars)-2; i++ {
		d := Detect(bars, i)
		if d.Kind == model.PatternNone {
			continue
		}
		signals = append(signals, model.Signal{
			Bar:       bars[i],
			Kind:      d.Kind,
			Timestamp: bars[i].Time,
			Score:     d.Score,
			StochRSI:  d.StochRSI,
		})
	}
	return signals
}

func clampScore(s float64) int {
	n := int(math.Round(s))
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
