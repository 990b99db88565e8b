package calculator

import "ReversalSentinel/internal/model"

const (
	// RSIPeriod is the number of close-to-close changes summed by RSIAt.
	RSIPeriod = 14
	// StochPeriod is the number of RSI values StochRSIAt normalizes against.
	StochPeriod = 14

	neutralOscillator = 50.0
)

// RSIAt computes the RSI at index from the sums of gains and losses over the
// RSIPeriod changes ending at index. Returns 50 when fewer than RSIPeriod changes
// precede index, and 100 when the window has no losses.
func RSIAt(bars []model.OHLCV, index int) float64 {
	if index < RSIPeriod || index >= len(bars) {
		return neutralOscillator
	}

	var gains, losses float64
	for j := index - RSIPeriod + 1; j <= index; j++ {
		change := bars[j].Close - bars[j-1].Close
		if change > 0 {
			gains += change
		} else {
			losses -= change // make positive
		}
	}

	if losses == 0 {
		return 100.0
	}
	avgGain := gains / RSIPeriod
	avgLoss := losses / RSIPeriod
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}

// StochRSIAt rescales the RSI at index against the min/max of the StochPeriod
// RSI values ending at index. Returns 50 when index < RSIPeriod+StochPeriod and
// 0 when every RSI in the window is equal.
func StochRSIAt(bars []model.OHLCV, index int) float64 {
	if index < RSIPeriod+StochPeriod || index >= len(bars) {
		return neutralOscillator
	}

	now := RSIAt(bars, index)
	lo, hi := now, now
	for j := index - StochPeriod + 1; j < index; j++ {
		r := RSIAt(bars, j)
		if r < lo {
			lo = r
		}
		if r > hi {
			hi = r
		}
	}

	// NOTE: a flat window maps to 0 while RSI's zero-loss case maps to 100.
	if hi == lo {
		return 0
	}
	return (now - lo) / (hi - lo) * 100.0
}

// SnapshotAt bundles every indicator for the bar at index.
func SnapshotAt(bars []model.OHLCV, index int) model.IndicatorSnapshot {
	return model.IndicatorSnapshot{
		RSI:      RSIAt(bars, index),
		StochRSI: StochRSIAt(bars, index),
		Bands:    BollingerAt(bars, index),
	}
}
