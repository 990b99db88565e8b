package calculator

import (
	"errors"
	"math"

	"ReversalSentinel/internal/model"
)

const (
	// BollingerPeriod is the moving-average window of the middle band.
	BollingerPeriod = 20
	// BollingerWidth is the number of standard deviations between the middle and outer bands.
	BollingerWidth = 2.0
)

// CalculateSMA computes the simple moving average of the given prices over the specified period.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// CalculateStdDev returns the population standard deviation of prices around mean.
func CalculateStdDev(prices []float64, mean float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	variance := 0.0
	for _, p := range prices {
		diff := p - mean
		variance += diff * diff
	}
	return math.Sqrt(variance / float64(len(prices)))
}

// BollingerAt returns the Bollinger bands over the BollingerPeriod closes ending
// at index. The bands are unavailable when index < BollingerPeriod-1.
func BollingerAt(bars []model.OHLCV, index int) model.Bands {
	if index < BollingerPeriod-1 || index >= len(bars) {
		return model.Bands{}
	}
	closes := extractCloses(bars[index-BollingerPeriod+1 : index+1])
	middle, err := CalculateSMA(closes, BollingerPeriod)
	if err != nil {
		return model.Bands{}
	}
	sd := CalculateStdDev(closes, middle)
	return model.Bands{
		Middle:    middle,
		Upper:     middle + BollingerWidth*sd,
		Lower:     middle - BollingerWidth*sd,
		Available: true,
	}
}

func extractCloses(bars []model.OHLCV) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}
