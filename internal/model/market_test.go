package model

import (
	"errors"
	"testing"
)

func TestValidateBars(t *testing.T) {
	good := []OHLCV{
		{Time: 60_000, Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 100},
		{Time: 120_000, Open: 10.5, High: 10.5, Low: 10, Close: 10, Volume: 0},
	}
	if err := ValidateBars(good); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateBars(nil); err != nil {
		t.Fatalf("empty sequence should be valid, got %v", err)
	}

	tests := []struct {
		name string
		mut  func(b []OHLCV)
	}{
		{"zero price", func(b []OHLCV) { b[0].Low = 0 }},
		{"high below close", func(b []OHLCV) { b[0].High = 10.4 }},
		{"low above open", func(b []OHLCV) { b[1].Low = 10.2 }},
		{"negative volume", func(b []OHLCV) { b[1].Volume = -1 }},
		{"equal timestamps", func(b []OHLCV) { b[1].Time = b[0].Time }},
		{"decreasing timestamps", func(b []OHLCV) { b[1].Time = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bars := append([]OHLCV(nil), good...)
			tt.mut(bars)
			err := ValidateBars(bars)
			if !errors.Is(err, ErrInvalidBars) {
				t.Errorf("expected ErrInvalidBars, got %v", err)
			}
		})
	}
}

func TestOHLCVGeometry(t *testing.T) {
	b := OHLCV{Open: 10, High: 12, Low: 7, Close: 9}
	if b.Body() != 1 || b.UpperWick() != 2 || b.LowerWick() != 2 || b.Range() != 5 {
		t.Errorf("geometry = body %v upper %v lower %v range %v", b.Body(), b.UpperWick(), b.LowerWick(), b.Range())
	}
	if !b.IsBearish() || b.IsBullish() {
		t.Error("close below open must be bearish")
	}
	flat := OHLCV{Open: 5, High: 5, Low: 5, Close: 5}
	if flat.IsBullish() || flat.IsBearish() {
		t.Error("unchanged bar is neither bullish nor bearish")
	}
}

func TestPatternKind(t *testing.T) {
	if PatternHammer.Bias() != BiasBullish || PatternShootingStar.Bias() != BiasBearish || PatternDoji.Bias() != BiasNeutral {
		t.Error("unexpected bias mapping")
	}
	if PatternTweezersTop.Label() != "Tweezers Top" {
		t.Errorf("label = %q", PatternTweezersTop.Label())
	}
	if !PatternNone.Valid() || PatternKind("TRIANGLE").Valid() {
		t.Error("Valid() does not match the enumeration")
	}
}
