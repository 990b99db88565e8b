package strategy

import (
	"math"

	"ReversalSentinel/internal/model"
)

const (
	stopHuntWickRatio  = 3.0
	stopHuntVolumeMult = 3.0
	stopHuntScoreCap   = 95

	tweezersTolerance      = 0.0001
	tweezersTightTolerance = 0.00005

	reversalVolumeMult = 2.0
	engulfVolumeMult   = 1.2
	engulfBodyRatio    = 1.5
	pinWickShare       = 0.5
	dojiBodyShare      = 0.05

	oversold       = 20.0
	overbought     = 80.0
	deepOversold   = 15.0
	deepOverbought = 85.0
)

// rule pairs a predicate with its scorer. Rules are evaluated in table order and
// the first match wins.
type rule struct {
	kind  model.PatternKind
	match func(f *features) bool
	score func(f *features) float64
}

// Rules runs from rarest/highest-conviction to most common/lowest-conviction.
var rules = []rule{
	{model.PatternInstitutionalSpring, matchSpring, scoreSpring},
	{model.PatternInstitutionalUpthrust, matchUpthrust, scoreUpthrust},
	{model.PatternTweezersTop, matchTweezersTop, scoreTweezersTop},
	{model.PatternTweezersBottom, matchTweezersBottom, scoreTweezersBottom},
	{model.PatternSuddenReversalUp, matchReversalUp, scoreReversalUp},
	{model.PatternSuddenReversalDown, matchReversalDown, scoreReversalDown},
	{model.PatternBullishEngulfing, matchBullishEngulfing, scoreEngulfing},
	{model.PatternBearishEngulfing, matchBearishEngulfing, scoreEngulfing},
	{model.PatternHammer, matchHammer, scoreHammer},
	{model.PatternShootingStar, matchShootingStar, scoreShootingStar},
	{model.PatternDoji, matchDoji, scoreDoji},
}

func matchSpring(f *features) bool {
	return f.bands.Available &&
		f.lowerWick > f.body*stopHuntWickRatio &&
		f.stochRSI < oversold &&
		f.volumeMult > stopHuntVolumeMult &&
		f.cur.Low < f.recentLow &&
		f.cur.Low < f.bands.Lower &&
		f.next.Close > f.cur.Low
}

func scoreSpring(f *features) float64 {
	s := 60 + math.Min(20, (f.volumeMult-2)*10)
	s += bonus(f.cur.Low < f.recentLow, 10, 0)
	s += bonus(f.stochRSI < deepOversold, 10, 0)
	return math.Min(s, stopHuntScoreCap)
}

func matchUpthrust(f *features) bool {
	return f.bands.Available &&
		f.upperWick > f.body*stopHuntWickRatio &&
		f.stochRSI > overbought &&
		f.volumeMult > stopHuntVolumeMult &&
		f.cur.High > f.recentHigh &&
		f.cur.High > f.bands.Upper &&
		f.next.Close < f.cur.High
}

func scoreUpthrust(f *features) float64 {
	s := 60 + math.Min(20, (f.volumeMult-2)*10)
	s += bonus(f.cur.High > f.recentHigh, 10, 0)
	s += bonus(f.stochRSI > deepOverbought, 10, 0)
	return math.Min(s, stopHuntScoreCap)
}

func matchTweezersTop(f *features) bool {
	return relDiff(f.prev.High, f.cur.High) < tweezersTolerance &&
		f.prev.IsBullish() &&
		f.cur.IsBearish() &&
		f.stochRSI > deepOverbought &&
		f.cur.High >= f.recentHigh
}

func scoreTweezersTop(f *features) float64 {
	return 50 +
		bonus(f.stochRSI > 90, 15, 5) +
		bonus(f.cur.Volume > 1.5*f.avgVolume, 15, 0) +
		bonus(relDiff(f.prev.High, f.cur.High) < tweezersTightTolerance, 10, 0)
}

func matchTweezersBottom(f *features) bool {
	return relDiff(f.prev.Low, f.cur.Low) < tweezersTolerance &&
		f.prev.IsBearish() &&
		f.cur.IsBullish() &&
		f.stochRSI < deepOversold &&
		f.cur.Low <= f.recentLow
}

func scoreTweezersBottom(f *features) float64 {
	return 50 +
		bonus(f.stochRSI < 10, 15, 5) +
		bonus(f.cur.Volume > 1.5*f.avgVolume, 15, 0) +
		bonus(relDiff(f.prev.Low, f.cur.Low) < tweezersTightTolerance, 10, 0)
}

func matchReversalUp(f *features) bool {
	return f.prev2.IsBearish() &&
		f.prev.IsBearish() &&
		f.stochRSI < oversold &&
		f.cur.IsBullish() &&
		f.cur.Close > f.prev.Open &&
		f.volumeMult > reversalVolumeMult
}

func scoreReversalUp(f *features) float64 {
	return 45 +
		math.Min(25, (f.volumeMult-1)*15) +
		bonus(f.cur.Close > f.prev2.Open, 15, 5)
}

func matchReversalDown(f *features) bool {
	return f.prev2.IsBullish() &&
		f.prev.IsBullish() &&
		f.stochRSI > overbought &&
		f.cur.IsBearish() &&
		f.cur.Close < f.prev.Open &&
		f.volumeMult > reversalVolumeMult
}

func scoreReversalDown(f *features) float64 {
	return 45 +
		math.Min(25, (f.volumeMult-1)*15) +
		bonus(f.cur.Close < f.prev2.Open, 15, 5)
}

func matchBullishEngulfing(f *features) bool {
	return f.cur.IsBullish() &&
		f.prev.IsBearish() &&
		f.body > f.prevBody &&
		f.stochRSI < oversold &&
		f.cur.Low <= f.recentLow
}

func matchBearishEngulfing(f *features) bool {
	return f.cur.IsBearish() &&
		f.prev.IsBullish() &&
		f.body > f.prevBody &&
		f.stochRSI > overbought &&
		f.cur.High >= f.recentHigh
}

func scoreEngulfing(f *features) float64 {
	return 40 +
		bonus(f.volumeMult > engulfVolumeMult, 15, 0) +
		bonus(f.body/f.prevBody > engulfBodyRatio, 20, 10)
}

func matchHammer(f *features) bool {
	return f.lowerWick >= f.rng*pinWickShare &&
		f.stochRSI <= oversold &&
		f.cur.Low <= f.recentLow &&
		f.next.IsBullish()
}

func scoreHammer(f *features) float64 {
	return 35 +
		bonus(f.lowerWick/f.body > 2, 20, 10) +
		bonus(f.volumeMult > engulfVolumeMult, 15, 0)
}

func matchShootingStar(f *features) bool {
	return f.upperWick >= f.rng*pinWickShare &&
		f.stochRSI >= overbought &&
		f.cur.High >= f.recentHigh &&
		f.next.IsBearish()
}

func scoreShootingStar(f *features) float64 {
	return 35 +
		bonus(f.upperWick/f.body > 2, 20, 10) +
		bonus(f.volumeMult > engulfVolumeMult, 15, 0)
}

func matchDoji(f *features) bool {
	return f.body/f.rng < dojiBodyShare &&
		(f.cur.Low <= f.recentLow || f.cur.High >= f.recentHigh)
}

func scoreDoji(f *features) float64 {
	return 30 +
		bonus(f.stochRSI < oversold || f.stochRSI > overbought, 30, 0) +
		bonus(f.volumeMult > 1.5, 15, 0)
}
