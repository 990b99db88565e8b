package collector

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ReversalSentinel/internal/model"
)

// ErrNoData is returned when a provider has no bars for the request.
var ErrNoData = errors.New("no market data")

var intervalDurations = map[string]time.Duration{
	"1m": time.Minute, "3m": 3 * time.Minute, "5m": 5 * time.Minute,
	"15m": 15 * time.Minute, "30m": 30 * time.Minute,
	"1h": time.Hour, "2h": 2 * time.Hour, "4h": 4 * time.Hour,
	"6h": 6 * time.Hour, "8h": 8 * time.Hour, "12h": 12 * time.Hour,
	"1d": 24 * time.Hour, "3d": 72 * time.Hour, "1w": 7 * 24 * time.Hour,
}

// IntervalDuration returns the bar length for interval, or false when unknown.
func IntervalDuration(interval string) (time.Duration, bool) {
	d, ok := intervalDurations[interval]
	return d, ok
}

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price float64
	Bars  []model.OHLCV
	Err   error
	Calls int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchBars(_ string, interval string, limit int) ([]model.OHLCV, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Bars != nil {
		return m.Bars, nil
	}
	step, ok := IntervalDuration(interval)
	if !ok {
		step = time.Hour
	}
	return generateMockBars(m.Price, limit, step, time.Now()), nil
}

// generateMockBars produces a deterministic oscillating series ending before now.
func generateMockBars(basePrice float64, count int, step time.Duration, now time.Time) []model.OHLCV {
	if basePrice <= 0 {
		basePrice = 100
	}
	end := now.Truncate(step).Add(-step)
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + 0.02*math.Sin(float64(i)/6))
		prev := basePrice * (1 + 0.02*math.Sin(float64(i-1)/6))
		bars[i] = model.OHLCV{
			Time:   end.Add(-time.Duration(count-1-i) * step).UnixMilli(),
			Open:   prev,
			High:   math.Max(p, prev) * 1.002,
			Low:    math.Min(p, prev) * 0.998,
			Close:  p,
			Volume: 1000 + float64(i%7)*150,
		}
	}
	return bars
}

// Collector fetches and cleans bar sequences for the scan pipeline.
type Collector struct {
	Fetcher Fetcher
	Limit   int
	log     zerolog.Logger
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, limit int, log zerolog.Logger) *Collector {
	return &Collector{Fetcher: fetcher, Limit: limit, log: log}
}

// Collect fetches bars for symbol/interval, orders them, drops duplicate
// timestamps and validates the result.
func (c *Collector) Collect(symbol, interval string) (*model.PriceSeries, error) {
	return c.CollectN(symbol, interval, c.Limit)
}

// CollectN is Collect with an explicit bar limit.
func (c *Collector) CollectN(symbol, interval string, limit int) (*model.PriceSeries, error) {
	raw, err := c.Fetcher.FetchBars(symbol, interval, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s from %s: %w", symbol, interval, c.Fetcher.Name(), err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%s %s: %w", symbol, interval, ErrNoData)
	}

	bars := Normalize(raw)
	if dropped := len(raw) - len(bars); dropped > 0 {
		c.log.Warn().Str("symbol", symbol).Str("interval", interval).Int("dropped", dropped).
			Msg("dropped duplicate bars")
	}
	if err := model.ValidateBars(bars); err != nil {
		return nil, fmt.Errorf("%s %s: %w", symbol, interval, err)
	}

	c.log.Debug().Str("symbol", symbol).Str("interval", interval).Int("bars", len(bars)).
		Str("source", c.Fetcher.Name()).Msg("bars collected")

	return &model.PriceSeries{
		Symbol:    strings.ToUpper(symbol),
		Interval:  interval,
		Bars:      bars,
		FetchedAt: time.Now(),
	}, nil
}

// Normalize returns a copy of bars sorted by time with duplicate timestamps
// removed, keeping the last occurrence.
func Normalize(bars []model.OHLCV) []model.OHLCV {
	out := make([]model.OHLCV, len(bars))
	copy(out, bars)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })

	n := 0
	for i := range out {
		if n > 0 && out[n-1].Time == out[i].Time {
			out[n-1] = out[i]
			continue
		}
		out[n] = out[i]
		n++
	}
	return out[:n]
}
