package strategy

import (
	"testing"

	"ReversalSentinel/internal/model"
)

func bullish(o, c float64) model.OHLCV {
	return model.OHLCV{Open: o, High: c + 0.1, Low: o - 0.1, Close: c}
}

func bearish(o, c float64) model.OHLCV {
	return model.OHLCV{Open: o, High: o + 0.1, Low: c - 0.1, Close: c}
}

func hammerFeatures() features {
	return features{
		cur:       model.OHLCV{Open: 8, High: 12, Low: 4, Close: 9},
		next:      bullish(9, 9.5),
		rng:       8,
		body:      1,
		lowerWick: 4,
		upperWick: 3,
		recentLow: 4, recentHigh: 20,
		stochRSI: 20,
	}
}

func shootingStarFeatures() features {
	return features{
		cur:       model.OHLCV{Open: 9, High: 12, Low: 4, Close: 8},
		next:      bearish(8, 7.5),
		rng:       8,
		body:      1,
		lowerWick: 4,
		upperWick: 4,
		recentLow: 1, recentHigh: 12,
		stochRSI: 80,
	}
}

func bullishEngulfingFeatures() features {
	return features{
		cur:       bullish(5, 8),
		prev:      bearish(7, 6),
		body:      3,
		prevBody:  1,
		rng:       3.2,
		recentLow: 5, recentHigh: 20,
		stochRSI: 19.9,
	}
}

func bearishEngulfingFeatures() features {
	return features{
		cur:       bearish(8, 5),
		prev:      bullish(6, 7),
		body:      3,
		prevBody:  1,
		rng:       3.2,
		recentLow: 1, recentHigh: 8,
		stochRSI: 80.1,
	}
}

func dojiFeatures() features {
	return features{
		cur:       model.OHLCV{Open: 10, High: 15, Low: 5, Close: 10.49},
		rng:       10,
		body:      0.49,
		recentLow: 5, recentHigh: 20,
		stochRSI: 50,
	}
}

func springFeatures() features {
	return features{
		cur:        model.OHLCV{Open: 9, High: 9.3, Low: 4, Close: 9.2},
		next:       bullish(9.2, 9.5),
		rng:        5.3,
		body:       0.2,
		lowerWick:  5,
		upperWick:  0.1,
		recentLow:  4.5,
		recentHigh: 20,
		volumeMult: 4,
		stochRSI:   10,
		bands:      model.Bands{Available: true, Lower: 5, Middle: 10, Upper: 15},
	}
}

func tweezersTopFeatures() features {
	return features{
		cur:        model.OHLCV{Open: 11.9, High: 12, Low: 10.9, Close: 11},
		prev:       model.OHLCV{Open: 10, High: 12, Low: 9.9, Close: 11.9},
		rng:        1.1,
		body:       0.9,
		recentHigh: 12,
		stochRSI:   86,
	}
}

func reversalUpFeatures() features {
	return features{
		prev2:      bearish(12, 11),
		prev:       bearish(11, 10),
		cur:        bullish(10, 11.5),
		rng:        1.7,
		body:       1.5,
		volumeMult: 2.5,
		stochRSI:   10,
	}
}

func TestRuleBoundaries(t *testing.T) {
	tests := []struct {
		name   string
		base   func() features
		match  func(*features) bool
		mutate func(*features)
		want   bool
	}{
		// hammer / shooting star: inclusive stochastic and wick-share thresholds
		{"hammer base", hammerFeatures, matchHammer, func(f *features) {}, true},
		{"hammer stoch exactly 20", hammerFeatures, matchHammer, func(f *features) { f.stochRSI = 20 }, true},
		{"hammer stoch above 20", hammerFeatures, matchHammer, func(f *features) { f.stochRSI = 20.01 }, false},
		{"hammer wick share exactly 0.5", hammerFeatures, matchHammer, func(f *features) { f.lowerWick = 4 }, true},
		{"hammer wick share below 0.5", hammerFeatures, matchHammer, func(f *features) { f.lowerWick = 3.99 }, false},
		{"hammer low ties recent low", hammerFeatures, matchHammer, func(f *features) { f.recentLow = f.cur.Low }, true},
		{"hammer low above recent low", hammerFeatures, matchHammer, func(f *features) { f.recentLow = 3.99 }, false},
		{"hammer next bar flat", hammerFeatures, matchHammer, func(f *features) { f.next.Close = f.next.Open }, false},

		{"shooting star stoch exactly 80", shootingStarFeatures, matchShootingStar, func(f *features) {}, true},
		{"shooting star stoch below 80", shootingStarFeatures, matchShootingStar, func(f *features) { f.stochRSI = 79.99 }, false},
		{"shooting star wick share exactly 0.5", shootingStarFeatures, matchShootingStar, func(f *features) { f.upperWick = 4 }, true},
		{"shooting star wick share below 0.5", shootingStarFeatures, matchShootingStar, func(f *features) { f.upperWick = 3.99 }, false},
		{"shooting star high below recent high", shootingStarFeatures, matchShootingStar, func(f *features) { f.recentHigh = 12.01 }, false},

		// engulfing: strict stochastic thresholds, strict body comparison
		{"bullish engulfing base", bullishEngulfingFeatures, matchBullishEngulfing, func(f *features) {}, true},
		{"bullish engulfing stoch exactly 20", bullishEngulfingFeatures, matchBullishEngulfing, func(f *features) { f.stochRSI = 20 }, false},
		{"bullish engulfing equal bodies", bullishEngulfingFeatures, matchBullishEngulfing, func(f *features) { f.prevBody = f.body }, false},
		{"bullish engulfing low ties recent low", bullishEngulfingFeatures, matchBullishEngulfing, func(f *features) { f.recentLow = f.cur.Low }, true},
		{"bearish engulfing base", bearishEngulfingFeatures, matchBearishEngulfing, func(f *features) {}, true},
		{"bearish engulfing stoch exactly 80", bearishEngulfingFeatures, matchBearishEngulfing, func(f *features) { f.stochRSI = 80 }, false},
		{"bearish engulfing high ties recent high", bearishEngulfingFeatures, matchBearishEngulfing, func(f *features) { f.recentHigh = f.cur.High }, true},

		// doji: strict body share
		{"doji base", dojiFeatures, matchDoji, func(f *features) {}, true},
		{"doji body share exactly 0.05", dojiFeatures, matchDoji, func(f *features) { f.body = 0.5 }, false},
		{"doji away from extremes", dojiFeatures, matchDoji, func(f *features) { f.recentLow = 4.99 }, false},
		{"doji high ties recent high", dojiFeatures, matchDoji, func(f *features) { f.recentLow = 1; f.recentHigh = f.cur.High }, true},

		// stop hunts: strict stochastic, volume, sweep
		{"spring base", springFeatures, matchSpring, func(f *features) {}, true},
		{"spring stoch exactly 20", springFeatures, matchSpring, func(f *features) { f.stochRSI = 20 }, false},
		{"spring volume exactly 3x", springFeatures, matchSpring, func(f *features) { f.volumeMult = 3 }, false},
		{"spring low ties recent low", springFeatures, matchSpring, func(f *features) { f.recentLow = f.cur.Low }, false},
		{"spring low ties lower band", springFeatures, matchSpring, func(f *features) { f.bands.Lower = f.cur.Low }, false},
		{"spring wick exactly 3x body", springFeatures, matchSpring, func(f *features) { f.body = 1; f.lowerWick = 3 }, false},
		{"spring bands unavailable", springFeatures, matchSpring, func(f *features) { f.bands.Available = false }, false},
		{"spring next closes at low", springFeatures, matchSpring, func(f *features) { f.next.Close = f.cur.Low }, false},

		// tweezers: strict stochastic, inclusive extreme
		{"tweezers top base", tweezersTopFeatures, matchTweezersTop, func(f *features) {}, true},
		{"tweezers top stoch exactly 85", tweezersTopFeatures, matchTweezersTop, func(f *features) { f.stochRSI = 85 }, false},
		{"tweezers top below recent high", tweezersTopFeatures, matchTweezersTop, func(f *features) { f.recentHigh = 12.01 }, false},

		// sudden reversal: strict volume multiple
		{"reversal up base", reversalUpFeatures, matchReversalUp, func(f *features) {}, true},
		{"reversal up volume exactly 2x", reversalUpFeatures, matchReversalUp, func(f *features) { f.volumeMult = 2 }, false},
		{"reversal up stoch exactly 20", reversalUpFeatures, matchReversalUp, func(f *features) { f.stochRSI = 20 }, false},
		{"reversal up close at prior open", reversalUpFeatures, matchReversalUp, func(f *features) { f.cur.Close = f.prev.Open }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.base()
			tt.mutate(&f)
			if got := tt.match(&f); got != tt.want {
				t.Errorf("match = %v, want %v (features %+v)", got, tt.want, f)
			}
		})
	}
}

func TestRuleScoresAtBoundaries(t *testing.T) {
	tests := []struct {
		name  string
		base  func() features
		score func(*features) float64
		want  float64
	}{
		// 35 + lowerWick/body 4 > 2 → 20, no volume bonus
		{"hammer", hammerFeatures, scoreHammer, 55},
		// volume bonus needs more than 1.2x
		{"engulfing", bullishEngulfingFeatures, scoreEngulfing, 60},
		// 60 + min(20, 20) + 10 + 10 capped at 95
		{"spring", springFeatures, scoreSpring, 95},
		// 50 + 5 (stoch not above 90) + 0 + 10 (exact tie)
		{"tweezers top", tweezersTopFeatures, scoreTweezersTop, 65},
		// 45 + min(25, 22.5) + 5 (close below prev2 open)
		{"reversal up", reversalUpFeatures, scoreReversalUp, 72.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.base()
			if got := tt.score(&f); got != tt.want {
				t.Errorf("score = %v, want %v", got, tt.want)
			}
		})
	}

	f := bullishEngulfingFeatures()
	f.volumeMult = engulfVolumeMult
	if got := scoreEngulfing(&f); got != 60 {
		t.Errorf("engulfing at exactly 1.2x volume = %v, want 60", got)
	}
}
