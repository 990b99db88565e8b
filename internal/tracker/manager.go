package tracker

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ReversalSentinel/internal/model"
)

// MaxSignalsPerSeries bounds the history kept for one symbol/interval.
const MaxSignalsPerSeries = 500

// Key returns the series key used in the state file.
func Key(symbol, interval string) string {
	return strings.ToUpper(symbol) + "@" + interval
}

// Manager holds reconciled signals per series with concurrency safety.
type Manager struct {
	mu       sync.Mutex
	state    *model.TrackerState
	filePath string
	log      zerolog.Logger
}

// NewManager creates a Manager, loading state from disk. An empty filePath
// keeps state in memory only.
func NewManager(filePath string, log zerolog.Logger) (*Manager, error) {
	state, err := LoadState(filePath)
	if err != nil {
		return nil, err
	}
	m := &Manager{state: state, filePath: filePath, log: log}
	if err := m.save(); err != nil {
		return nil, err
	}
	return m, nil
}

// Window is the span of bar times a scan could classify, inclusive. The zero
// Window covers nothing.
type Window struct {
	From, To int64
}

// Contains reports whether ts lies within the window.
func (w Window) Contains(ts int64) bool {
	return w.To > 0 && ts >= w.From && ts <= w.To
}

// Merge reconciles a fresh scan covering scanned into the series and returns
// the newly seen signals. Held signals outside scanned were not re-evaluated
// and are kept with their confirmations. The series is capped at
// MaxSignalsPerSeries, oldest first out.
func (m *Manager) Merge(symbol, interval string, scanned Window, fresh []model.Signal) []model.Signal {
	m.mu.Lock()
	defer m.mu.Unlock()

	ss := m.series(symbol, interval)
	var kept []model.Signal
	for _, s := range ss.Signals {
		if !scanned.Contains(s.Timestamp) {
			kept = append(kept, s)
		}
	}
	merged, added := Reconcile(ss.Signals, fresh)
	all := append(kept, merged...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Timestamp < all[j].Timestamp })
	if len(all) > MaxSignalsPerSeries {
		all = all[len(all)-MaxSignalsPerSeries:]
	}
	ss.Signals = all
	ss.LastScanAt = time.Now()

	if err := m.save(); err != nil {
		m.log.Error().Err(err).Msg("failed to save tracker state")
	}
	return added
}

// ApplyConfirmation records a verdict on the signal at ts. The verdict score
// replaces the detector score, clamped to [0,100]. It reports whether the
// signal was found.
func (m *Manager) ApplyConfirmation(symbol, interval string, ts int64, conf model.Confirmation) (model.Signal, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ss, ok := m.state.Series[Key(symbol, interval)]
	if !ok {
		return model.Signal{}, false
	}
	for i := range ss.Signals {
		if ss.Signals[i].Timestamp != ts {
			continue
		}
		s := &ss.Signals[i]
		s.Confirmed = conf.Confirmed
		s.ConfirmationText = conf.Explanation
		s.Score = clamp(conf.Score)
		if err := m.save(); err != nil {
			m.log.Error().Err(err).Msg("failed to save tracker state after confirmation")
		}
		return *s, true
	}
	return model.Signal{}, false
}

// Signals returns a copy of the series' signals, oldest first.
func (m *Manager) Signals(symbol, interval string) []model.Signal {
	m.mu.Lock()
	defer m.mu.Unlock()

	ss, ok := m.state.Series[Key(symbol, interval)]
	if !ok {
		return []model.Signal{}
	}
	out := make([]model.Signal, len(ss.Signals))
	copy(out, ss.Signals)
	return out
}

// Pending returns the series' signals that carry no confirmation text yet.
func (m *Manager) Pending(symbol, interval string) []model.Signal {
	out := []model.Signal{}
	for _, s := range m.Signals(symbol, interval) {
		if !s.Confirmed && s.ConfirmationText == "" {
			out = append(out, s)
		}
	}
	return out
}

// Keys lists the tracked series keys in sorted order.
func (m *Manager) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.state.Series))
	for k := range m.state.Series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Series returns a copy of one series' state.
func (m *Manager) Series(key string) (model.SeriesState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ss, ok := m.state.Series[key]
	if !ok {
		return model.SeriesState{}, false
	}
	cp := *ss
	cp.Signals = append([]model.Signal(nil), ss.Signals...)
	return cp, true
}

func (m *Manager) series(symbol, interval string) *model.SeriesState {
	key := Key(symbol, interval)
	ss, ok := m.state.Series[key]
	if !ok {
		ss = &model.SeriesState{Symbol: strings.ToUpper(symbol), Interval: interval}
		m.state.Series[key] = ss
	}
	return ss
}

func (m *Manager) save() error {
	return SaveState(m.filePath, m.state)
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
