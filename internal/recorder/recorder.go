package recorder

import (
	"time"

	"github.com/google/uuid"

	"ReversalSentinel/internal/model"
)

// ScanRun describes one collect-and-scan cycle of a series.
type ScanRun struct {
	ID         string
	Symbol     string
	Interval   string
	Trigger    string // "cron", "stream", "command", "startup", "api"
	Bars       int
	Signals    int
	NewSignals int
	StartedAt  time.Time
	Duration   time.Duration
	Err        string
}

// NewScanRun starts a run record with a fresh run id.
func NewScanRun(symbol, interval, trigger string) *ScanRun {
	return &ScanRun{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		Interval:  interval,
		Trigger:   trigger,
		StartedAt: time.Now(),
	}
}

// SignalEvent records a signal first seen during a run.
type SignalEvent struct {
	RunID    string
	Symbol   string
	Interval string
	Signal   model.Signal
}

// ConfirmationEvent records a confirmation verdict for a signal.
type ConfirmationEvent struct {
	Symbol       string
	Interval     string
	Timestamp    int64
	Kind         model.PatternKind
	Confirmation model.Confirmation
	Model        string
	Err          string
}

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordScan(run *ScanRun) error
	RecordSignal(evt *SignalEvent) error
	RecordConfirmation(evt *ConfirmationEvent) error
	Close() error
}
