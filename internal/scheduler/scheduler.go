package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"ReversalSentinel/internal/annotate"
	"ReversalSentinel/internal/collector"
	"ReversalSentinel/internal/config"
	"ReversalSentinel/internal/confirm"
	"ReversalSentinel/internal/metrics"
	"ReversalSentinel/internal/model"
	"ReversalSentinel/internal/notifier"
	"ReversalSentinel/internal/recorder"
	"ReversalSentinel/internal/strategy"
	"ReversalSentinel/internal/tracker"
)

const (
	// maxAlertsPerRun bounds per-signal alerts and confirmations of one scan.
	// A first scan of a long history reports the rest in a single summary.
	maxAlertsPerRun = 5
	sendRetries     = 3
	signalListLimit = 10
)

// Streamer is implemented by fetchers that push closed bars.
type Streamer interface {
	StreamClosedBars(ctx context.Context, symbol, interval string, log zerolog.Logger, fn collector.ClosedBarFunc)
}

// Deps are the collaborators of the scan task.
type Deps struct {
	Collector   *collector.Collector
	Tracker     *tracker.Manager
	Notifier    notifier.Notifier
	Recorder    recorder.Recorder
	Metrics     *metrics.Recorder
	Confirmer   confirm.Confirmer // nil disables confirmation
	ContextBars int
	Model       string
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron    *cron.Cron
	Watches []config.Watch
	Ctx     context.Context

	deps      Deps
	log       zerolog.Logger
	startedAt time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, watches []config.Watch, deps Deps, log zerolog.Logger) *Scheduler {
	if deps.ContextBars <= 0 {
		deps.ContextBars = 30
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Watches:   watches,
		Ctx:       ctx,
		deps:      deps,
		log:       log,
		startedAt: time.Now(),
		locks:     make(map[string]*sync.Mutex),
	}
}

// RegisterAll registers one scan job per watch.
func (s *Scheduler) RegisterAll() error {
	for _, w := range s.Watches {
		w := w
		if _, err := s.Cron.AddFunc(w.Cron, func() { s.ScanWatch(w, "cron") }); err != nil {
			return fmt.Errorf("register %s %s scan: %w", w.Symbol, w.Interval, err)
		}
		s.log.Info().Str("symbol", w.Symbol).Str("interval", w.Interval).Str("cron", w.Cron).
			Msg("scan registered")
	}
	return nil
}

// StartStreams runs a scan on every closed bar of the streaming watches. It
// returns the number of streams started; fetchers that cannot stream start none.
func (s *Scheduler) StartStreams() int {
	st, ok := s.deps.Collector.Fetcher.(Streamer)
	if !ok {
		for _, w := range s.Watches {
			if w.Stream {
				s.log.Warn().Str("symbol", w.Symbol).Str("source", s.deps.Collector.Fetcher.Name()).
					Msg("data source cannot stream, using cron only")
			}
		}
		return 0
	}
	n := 0
	for _, w := range s.Watches {
		if !w.Stream {
			continue
		}
		w := w
		go st.StreamClosedBars(s.Ctx, w.Symbol, w.Interval, s.log, func(bar model.OHLCV) {
			s.log.Debug().Str("symbol", w.Symbol).Str("interval", w.Interval).Int64("bar", bar.Time).
				Msg("closed bar received")
			s.ScanWatch(w, "stream")
		})
		n++
	}
	return n
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Int("watches", len(s.Watches)).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunAllNow scans every watch immediately (manual trigger / RUN_ON_START).
func (s *Scheduler) RunAllNow(trigger string) []notifier.ScanSummary {
	out := make([]notifier.ScanSummary, 0, len(s.Watches))
	for _, w := range s.Watches {
		out = append(out, s.ScanWatch(w, trigger))
	}
	return out
}

func (s *Scheduler) lock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// ScanWatch collects the watch's bars, scans them, merges the result into the
// tracker, records the run, and alerts and confirms new signals.
func (s *Scheduler) ScanWatch(w config.Watch, trigger string) notifier.ScanSummary {
	l := s.lock(tracker.Key(w.Symbol, w.Interval))
	l.Lock()
	defer l.Unlock()

	log := s.log.With().Str("symbol", w.Symbol).Str("interval", w.Interval).Str("trigger", trigger).Logger()
	run := recorder.NewScanRun(w.Symbol, w.Interval, trigger)
	summary := notifier.ScanSummary{Symbol: w.Symbol, Interval: w.Interval}

	series, err := s.deps.Collector.CollectN(w.Symbol, w.Interval, w.Limit)
	if err != nil {
		log.Error().Err(err).Msg("collect failed")
		s.deps.Metrics.RecordError("collect")
		run.Err = err.Error()
		run.Duration = time.Since(run.StartedAt)
		s.recordRun(log, run)
		summary.Err = err
		summary.Duration = run.Duration
		return summary
	}
	bars := series.Bars

	signals := strategy.Scan(bars)
	var scanned tracker.Window
	if from, to, ok := strategy.DetectableRange(bars); ok {
		scanned = tracker.Window{From: from, To: to}
	}
	added := s.deps.Tracker.Merge(w.Symbol, w.Interval, scanned, signals)

	run.Bars = len(bars)
	run.Signals = len(signals)
	run.NewSignals = len(added)
	run.Duration = time.Since(run.StartedAt)
	s.deps.Metrics.RecordScan(w.Symbol, w.Interval, len(bars), run.Duration.Seconds())
	s.recordRun(log, run)

	for _, sig := range added {
		s.deps.Metrics.RecordSignal(w.Symbol, string(sig.Kind))
		if err := s.deps.Recorder.RecordSignal(&recorder.SignalEvent{
			RunID: run.ID, Symbol: w.Symbol, Interval: w.Interval, Signal: sig,
		}); err != nil {
			log.Error().Err(err).Msg("record signal")
			s.deps.Metrics.RecordError("record")
		}
	}

	summary.Bars = len(bars)
	summary.Signals = len(signals)
	summary.NewSignals = added
	summary.Duration = run.Duration
	log.Info().Int("bars", len(bars)).Int("signals", len(signals)).Int("new", len(added)).
		Dur("took", run.Duration).Msg("scan finished")

	alerts := added
	if len(alerts) > maxAlertsPerRun {
		s.trySend(notifier.FormatScanSummary([]notifier.ScanSummary{summary}))
		alerts = alerts[len(alerts)-maxAlertsPerRun:]
	}
	for _, sig := range alerts {
		idx := indexOf(bars, sig.Timestamp)
		if idx < 0 {
			continue
		}
		s.trySend(notifier.FormatSignal(w.Symbol, w.Interval, sig, annotate.At(bars, idx)))
		if s.deps.Confirmer != nil {
			s.confirmSignal(log, w, bars, idx, sig)
		}
	}
	return summary
}

// confirmSignal asks the confirmer about one signal and applies the verdict.
func (s *Scheduler) confirmSignal(log zerolog.Logger, w config.Watch, bars []model.OHLCV, idx int, sig model.Signal) {
	req := confirm.Request{
		Symbol:   w.Symbol,
		Interval: w.Interval,
		Kind:     sig.Kind,
		Context:  confirm.ContextWindow(bars, idx, s.deps.ContextBars),
		Target:   bars[idx],
		StochRSI: sig.StochRSI,
	}
	evt := &recorder.ConfirmationEvent{
		Symbol: w.Symbol, Interval: w.Interval, Timestamp: sig.Timestamp, Kind: sig.Kind, Model: s.deps.Model,
	}

	conf, err := s.deps.Confirmer.Confirm(s.Ctx, req)
	if err != nil {
		log.Error().Err(err).Str("kind", string(sig.Kind)).Msg("confirmation failed")
		s.deps.Metrics.RecordConfirmation("failed")
		s.deps.Metrics.RecordError("confirm")
		evt.Err = err.Error()
		s.recordConfirmation(log, evt)
		return
	}

	updated, ok := s.deps.Tracker.ApplyConfirmation(w.Symbol, w.Interval, sig.Timestamp, *conf)
	if !ok {
		log.Warn().Int64("ts", sig.Timestamp).Msg("confirmed signal no longer tracked")
		return
	}
	outcome := "rejected"
	if updated.Confirmed {
		outcome = "confirmed"
	}
	s.deps.Metrics.RecordConfirmation(outcome)
	evt.Confirmation = *conf
	evt.Confirmation.Score = updated.Score
	s.recordConfirmation(log, evt)
	s.trySend(notifier.FormatConfirmation(w.Symbol, w.Interval, updated))
}

func (s *Scheduler) recordRun(log zerolog.Logger, run *recorder.ScanRun) {
	if err := s.deps.Recorder.RecordScan(run); err != nil {
		log.Error().Err(err).Msg("record scan")
		s.deps.Metrics.RecordError("record")
	}
}

func (s *Scheduler) recordConfirmation(log zerolog.Logger, evt *recorder.ConfirmationEvent) {
	if err := s.deps.Recorder.RecordConfirmation(evt); err != nil {
		log.Error().Err(err).Msg("record confirmation")
		s.deps.Metrics.RecordError("record")
	}
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	// "/scan@SomeBot" in group chats
	name, _, _ := strings.Cut(fields[0], "@")
	switch strings.ToLower(name) {
	case "/scan":
		return notifier.FormatScanSummary(s.RunAllNow("command"))
	case "/signals":
		symbol := ""
		if len(fields) > 1 {
			symbol = strings.ToUpper(fields[1])
		}
		return s.signalLists(symbol)
	case "/status":
		return notifier.FormatStatus(s.status(), s.startedAt)
	default:
		return helpText
	}
}

const helpText = "Commands:\n" +
	"/scan - scan every watch now\n" +
	"/signals [SYMBOL] - recent signals\n" +
	"/status - tracked series"

func (s *Scheduler) signalLists(symbol string) string {
	var parts []string
	for _, key := range s.deps.Tracker.Keys() {
		ss, ok := s.deps.Tracker.Series(key)
		if !ok || (symbol != "" && ss.Symbol != symbol) {
			continue
		}
		parts = append(parts, notifier.FormatSignalList(key, ss.Signals, signalListLimit))
	}
	if len(parts) == 0 {
		if symbol != "" {
			return fmt.Sprintf("No signals tracked for %s.", symbol)
		}
		return "No signals tracked yet."
	}
	return strings.Join(parts, "\n")
}

func (s *Scheduler) status() []notifier.SeriesStatus {
	keys := s.deps.Tracker.Keys()
	out := make([]notifier.SeriesStatus, 0, len(keys))
	for _, key := range keys {
		ss, ok := s.deps.Tracker.Series(key)
		if !ok {
			continue
		}
		out = append(out, notifier.SeriesStatus{
			Key:        key,
			Signals:    len(ss.Signals),
			Pending:    len(s.deps.Tracker.Pending(ss.Symbol, ss.Interval)),
			LastScanAt: ss.LastScanAt,
		})
	}
	return out
}

func (s *Scheduler) trySend(text string) {
	if err := s.deps.Notifier.SendWithRetry(s.Ctx, text, sendRetries); err != nil {
		s.log.Error().Err(err).Msg("send notification")
		s.deps.Metrics.RecordError("notify")
	}
}

func indexOf(bars []model.OHLCV, ts int64) int {
	for i := len(bars) - 1; i >= 0; i-- {
		if bars[i].Time == ts {
			return i
		}
	}
	return -1
}
