package model

// Bands holds Bollinger band values. Available is false when the window
// preceding the bar is too short.
type Bands struct {
	Middle    float64 `json:"middle"`
	Upper     float64 `json:"upper"`
	Lower     float64 `json:"lower"`
	Available bool    `json:"available"`
}

// IndicatorSnapshot holds the indicators computed for one bar index.
type IndicatorSnapshot struct {
	RSI      float64 `json:"rsi"`
	StochRSI float64 `json:"stoch_rsi"`
	Bands    Bands   `json:"bands"`
}
