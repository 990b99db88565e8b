package calculator

import (
	"errors"
	"math"

	"ReversalSentinel/internal/model"
)

// RecentLookback is the number of bars preceding a candidate bar that define its
// recent extremes and average volume.
const RecentLookback = 50

// Window summarizes the bars preceding a candidate bar.
type Window struct {
	High      float64
	Low       float64
	AvgVolume float64
}

// RecentStats scans the lookback bars before index (bar index itself excluded)
// and returns their highest high, lowest low and average volume.
func RecentStats(bars []model.OHLCV, index, lookback int) (Window, error) {
	if lookback <= 0 {
		return Window{}, errors.New("lookback must be positive")
	}
	if index < lookback || index > len(bars) {
		return Window{}, errors.New("not enough bars before index")
	}
	w := Window{High: math.Inf(-1), Low: math.Inf(1)}
	volume := 0.0
	for i := index - lookback; i < index; i++ {
		if bars[i].High > w.High {
			w.High = bars[i].High
		}
		if bars[i].Low < w.Low {
			w.Low = bars[i].Low
		}
		volume += bars[i].Volume
	}
	w.AvgVolume = volume / float64(lookback)
	return w, nil
}

// RangePosition returns where current sits within [low, high] (0.0~1.0).
func RangePosition(current, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (current - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos, nil
}
