package model

import "time"

// SeriesState holds the reconciled signals for one symbol/interval.
type SeriesState struct {
	Symbol     string    `json:"symbol"`
	Interval   string    `json:"interval"`
	Signals    []Signal  `json:"signals"`
	LastScanAt time.Time `json:"last_scan_at"`
}

// TrackerState is the caller-held signal state, keyed by "SYMBOL@interval".
type TrackerState struct {
	Series    map[string]*SeriesState `json:"series"`
	UpdatedAt time.Time               `json:"updated_at"`
}
