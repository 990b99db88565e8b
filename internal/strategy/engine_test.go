package strategy

import (
	"math"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"ReversalSentinel/internal/model"
)

func bar(o, h, l, c float64, vol ...float64) model.OHLCV {
	v := 1000.0
	if len(vol) > 0 {
		v = vol[0]
	}
	return model.OHLCV{Open: o, High: h, Low: l, Close: c, Volume: v}
}

func flatBars(n int) []model.OHLCV {
	out := make([]model.OHLCV, n)
	for i := range out {
		out[i] = bar(100, 100, 100, 100)
	}
	return out
}

// fromCloses opens each bar at the previous close and pads high/low by wick.
func fromCloses(closes []float64, wick float64) []model.OHLCV {
	out := make([]model.OHLCV, len(closes))
	for i, c := range closes {
		o := c
		if i > 0 {
			o = closes[i-1]
		}
		out[i] = bar(o, math.Max(o, c)+wick, math.Min(o, c)-wick, c)
	}
	return out
}

// choppyCloses alternates 99 and 100 starting with lo.
func choppyCloses(n int, lo, hi float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		if i%2 == 0 {
			closes[i] = lo
		} else {
			closes[i] = hi
		}
	}
	return closes
}

func choppy(n int) []model.OHLCV {
	return fromCloses(choppyCloses(n, 99, 100), 0.2)
}

// series concatenates parts and stamps one-minute timestamps.
func series(parts ...[]model.OHLCV) []model.OHLCV {
	var out []model.OHLCV
	for _, p := range parts {
		out = append(out, p...)
	}
	for i := range out {
		out[i].Time = int64(i+1) * 60_000
	}
	return out
}

func one(b ...model.OHLCV) []model.OHLCV { return b }

// trendAfterChop is 46 alternating bars followed by steps of size step
// (negative for a decline), starting from the last chop close.
func trendAfterChop(lo, hi, step float64, steps int) []float64 {
	closes := choppyCloses(46, lo, hi)
	x := closes[len(closes)-1]
	for i := 0; i < steps; i++ {
		x += step
		closes = append(closes, x)
	}
	return closes
}

func TestDetect_Patterns(t *testing.T) {
	downtrend := make([]float64, 60)
	for i := range downtrend {
		downtrend[i] = float64(200 - i)
	}

	revUp := trendAfterChop(99, 100, -3, 13)
	revUpLast := revUp[len(revUp)-1]
	revUp = append(revUp, revUpLast-0.5)
	revUpTail := revUp[len(revUp)-1]

	revDown := trendAfterChop(100, 99, 3, 13)
	revDownLast := revDown[len(revDown)-1]
	revDown = append(revDown, revDownLast+0.5)
	revDownTail := revDown[len(revDown)-1]

	rising := trendAfterChop(99, 100, 1, 14)
	top := rising[len(rising)-1]

	tests := []struct {
		name  string
		bars  []model.OHLCV
		index int
		want  model.PatternKind
		score int
	}{
		{
			name:  "doji at recent low",
			bars:  series(flatBars(60), one(bar(100, 100.5, 97, 99.9)), flatBars(1)),
			index: 60,
			want:  model.PatternDoji,
			score: 60,
		},
		{
			name:  "spring wins over doji",
			bars:  series(flatBars(60), one(bar(100, 100, 97, 99.9, 4000)), flatBars(1)),
			index: 60,
			want:  model.PatternInstitutionalSpring,
			score: 95,
		},
		{
			name: "upthrust",
			bars: series(choppy(60), one(
				bar(100.3, 103, 100.25, 100.5, 4000),
				bar(100.5, 100.9, 100.1, 100.2),
			)),
			index: 60,
			want:  model.PatternInstitutionalUpthrust,
			score: 95,
		},
		{
			name: "tweezers top",
			bars: series(choppy(59), one(
				bar(99, 103.5, 98.8, 103),
				bar(103, 103.5, 102.5, 102.99),
				bar(102.99, 103, 102.4, 102.5),
			)),
			index: 60,
			want:  model.PatternTweezersTop,
			score: 75,
		},
		{
			name: "tweezers bottom",
			bars: series(flatBars(58), one(
				bar(100, 100.1, 98, 98.5),
				bar(98.4, 98.6, 98, 98.45),
				bar(98.45, 99, 98.4, 98.9),
			)),
			index: 59,
			want:  model.PatternTweezersBottom,
			score: 75,
		},
		{
			name: "sudden reversal up",
			bars: series(fromCloses(revUp, 0.1), one(
				bar(revUpTail-0.2, revUpLast+0.2, revUpTail-0.3, revUpLast+0.1, 2500),
				bar(revUpLast+0.1, revUpLast+1, revUpLast, revUpLast+0.8),
			)),
			index: 60,
			want:  model.PatternSuddenReversalUp,
			score: 73,
		},
		{
			name: "sudden reversal down",
			bars: series(fromCloses(revDown, 0.1), one(
				bar(revDownTail+0.2, revDownTail+0.3, revDownLast-0.2, revDownLast-0.1, 2500),
				bar(revDownLast-0.1, revDownLast, revDownLast-1, revDownLast-0.8),
			)),
			index: 60,
			want:  model.PatternSuddenReversalDown,
			score: 73,
		},
		{
			name: "bullish engulfing",
			bars: series(fromCloses(downtrend, 0.1), one(
				bar(138.7, 140.6, 138.6, 140.5, 1300),
				bar(140.5, 141, 140, 140.8),
			)),
			index: 60,
			want:  model.PatternBullishEngulfing,
			score: 75,
		},
		{
			name: "bearish engulfing",
			bars: series(fromCloses(rising, 0.1), one(
				bar(top+3, top+3.1, top+1.1, top+1.2, 1300),
				bar(top+1.2, top+1.5, top+0.5, top+0.6),
			)),
			index: 60,
			want:  model.PatternBearishEngulfing,
			score: 75,
		},
		{
			name: "hammer",
			bars: series(flatBars(60), one(
				bar(99.5, 99.9, 98, 99.8, 1500),
				bar(99.8, 100.6, 99.7, 100.5),
			)),
			index: 60,
			want:  model.PatternHammer,
			score: 70,
		},
		{
			name: "shooting star",
			bars: series(choppy(60), one(
				bar(101, 102.6, 100.6, 100.7),
				bar(100.7, 100.8, 99.9, 100.0),
			)),
			index: 60,
			want:  model.PatternShootingStar,
			score: 55,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Detect(tt.bars, tt.index)
			if d.Kind != tt.want {
				t.Fatalf("Kind = %s, want %s (stoch %.2f)", d.Kind, tt.want, d.StochRSI)
			}
			if d.Score != tt.score {
				t.Errorf("Score = %d, want %d", d.Score, tt.score)
			}
		})
	}
}

func TestDetect_StochRSIReported(t *testing.T) {
	doji := series(flatBars(60), one(bar(100, 100.5, 97, 99.9)), flatBars(1))
	if d := Detect(doji, 60); d.StochRSI != 0 {
		t.Errorf("doji StochRSI = %v, want 0 on a flat RSI window", d.StochRSI)
	}

	top := series(choppy(59), one(
		bar(99, 103.5, 98.8, 103),
		bar(103, 103.5, 102.5, 102.99),
		bar(102.99, 103, 102.4, 102.5),
	))
	if d := Detect(top, 60); math.Abs(d.StochRSI-100) > 1e-9 {
		t.Errorf("tweezers top StochRSI = %v, want 100", d.StochRSI)
	}
}

func TestDetect_OutOfRange(t *testing.T) {
	bars := series(flatBars(60), one(bar(100, 100.5, 97, 99.9)), flatBars(1))

	for _, idx := range []int{-1, 0, 25, 49, len(bars) - 1, len(bars), len(bars) + 10} {
		d := Detect(bars, idx)
		if d.Kind != model.PatternNone || d.Score != 0 {
			t.Errorf("Detect(%d) = %+v, want NONE/0", idx, d)
		}
	}
}

func TestDetect_DegenerateBar(t *testing.T) {
	// zero range at 60 with a sweep-like context: still no pattern
	bars := series(choppy(60), one(bar(90, 90, 90, 90, 9000)), flatBars(1))
	d := Detect(bars, 60)
	if d.Kind != model.PatternNone || d.Score != 0 {
		t.Errorf("Detect on degenerate bar = %+v, want NONE/0", d)
	}
}

func TestDetect_EmptyInput(t *testing.T) {
	if d := Detect(nil, 0); d.Kind != model.PatternNone {
		t.Errorf("Detect(nil) = %+v", d)
	}
}

func TestScan_Doji(t *testing.T) {
	bars := series(flatBars(60), one(bar(100, 100.5, 97, 99.9)), flatBars(1))
	got := Scan(bars)
	if len(got) != 1 {
		t.Fatalf("expected 1 signal, got %d: %+v", len(got), got)
	}
	s := got[0]
	if s.Kind != model.PatternDoji || s.Score != 60 {
		t.Errorf("signal = %s/%d, want DOJI/60", s.Kind, s.Score)
	}
	if s.Timestamp != bars[60].Time || s.Bar != bars[60] {
		t.Errorf("signal not anchored to bar 60: ts=%d", s.Timestamp)
	}
	if s.Confirmed || s.ConfirmationText != "" {
		t.Error("fresh signal must be unconfirmed")
	}
}

func TestScan_SingleSignals(t *testing.T) {
	downtrend := make([]float64, 60)
	for i := range downtrend {
		downtrend[i] = float64(200 - i)
	}
	tests := []struct {
		name string
		bars []model.OHLCV
		want model.PatternKind
	}{
		{
			name: "hammer",
			bars: series(flatBars(60), one(
				bar(99.5, 99.9, 98, 99.8, 1500),
				bar(99.8, 100.6, 99.7, 100.5),
			)),
			want: model.PatternHammer,
		},
		{
			name: "bullish engulfing",
			bars: series(fromCloses(downtrend, 0.1), one(
				bar(138.7, 140.6, 138.6, 140.5, 1300),
				bar(140.5, 141, 140, 140.8),
			)),
			want: model.PatternBullishEngulfing,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Scan(tt.bars)
			if len(got) != 1 || got[0].Kind != tt.want || got[0].Timestamp != tt.bars[60].Time {
				t.Fatalf("Scan = %+v, want one %s at bar 60", got, tt.want)
			}
		})
	}
}

func TestScan_ShortInputs(t *testing.T) {
	for _, n := range []int{0, 1, 2, 26, 51} {
		got := Scan(series(flatBars(n)))
		if got == nil {
			t.Errorf("Scan(%d bars) returned nil, want empty slice", n)
		}
		if len(got) != 0 {
			t.Errorf("Scan(%d bars) = %d signals, want 0", n, len(got))
		}
	}
}

func TestScan_FlatMarket(t *testing.T) {
	if got := Scan(series(flatBars(200))); len(got) != 0 {
		t.Errorf("flat market produced %d signals", len(got))
	}
}

func TestScan_DoesNotMutateInput(t *testing.T) {
	bars := series(flatBars(60), one(bar(100, 100.5, 97, 99.9)), flatBars(1))
	before := append([]model.OHLCV(nil), bars...)
	Scan(bars)
	if !reflect.DeepEqual(before, bars) {
		t.Error("Scan modified its input")
	}
}

func TestClampScore(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{-5, 0},
		{0, 0},
		{72.5, 73},
		{72.4, 72},
		{100, 100},
		{130, 100},
	}
	for _, tt := range tests {
		if got := clampScore(tt.in); got != tt.want {
			t.Errorf("clampScore(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

// genBars builds a bar sequence from a random walk of closes, with wicks and
// volume drawn alongside.
func genBars(steps []float64, wicks []float64, vols []float64) []model.OHLCV {
	n := len(steps)
	if len(wicks) < n {
		n = len(wicks)
	}
	if len(vols) < n {
		n = len(vols)
	}
	bars := make([]model.OHLCV, n)
	price := 100.0
	for i := 0; i < n; i++ {
		open := price
		price = math.Max(1, price+steps[i])
		bars[i] = model.OHLCV{
			Time:   int64(i+1) * 60_000,
			Open:   open,
			High:   math.Max(open, price) + wicks[i],
			Low:    math.Max(0.01, math.Min(open, price)-wicks[i]),
			Close:  price,
			Volume: vols[i],
		}
	}
	return bars
}

func TestDetectProperties(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 50
	properties := gopter.NewProperties(params)

	steps := gen.SliceOfN(90, gen.Float64Range(-3, 3))
	wicks := gen.SliceOfN(90, gen.Float64Range(0, 2))
	vols := gen.SliceOfN(90, gen.Float64Range(0, 5000))

	properties.Property("score within [0,100] and kind valid", prop.ForAll(
		func(s, w, v []float64) bool {
			bars := genBars(s, w, v)
			for i := range bars {
				d := Detect(bars, i)
				if d.Score < 0 || d.Score > 100 || !d.Kind.Valid() {
					return false
				}
				if d.Kind == model.PatternNone && d.Score != 0 {
					return false
				}
			}
			return true
		},
		steps, wicks, vols,
	))

	properties.Property("no detection outside the valid index range", prop.ForAll(
		func(s, w, v []float64) bool {
			bars := genBars(s, w, v)
			for i := 0; i < 50; i++ {
				if Detect(bars, i).Kind != model.PatternNone {
					return false
				}
			}
			return Detect(bars, len(bars)-1).Kind == model.PatternNone
		},
		steps, wicks, vols,
	))

	properties.Property("scan is deterministic and ordered", prop.ForAll(
		func(s, w, v []float64) bool {
			bars := genBars(s, w, v)
			a, b := Scan(bars), Scan(bars)
			if !reflect.DeepEqual(a, b) {
				return false
			}
			for i := 1; i < len(a); i++ {
				if a[i].Timestamp <= a[i-1].Timestamp {
					return false
				}
			}
			for _, sig := range a {
				if sig.Kind == model.PatternNone || sig.Timestamp != sig.Bar.Time {
					return false
				}
			}
			return true
		},
		steps, wicks, vols,
	))

	properties.TestingRun(t)
}
