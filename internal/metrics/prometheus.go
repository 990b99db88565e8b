package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exposes the scan pipeline counters on a Prometheus registry.
type Recorder struct {
	scansTotal    *prometheus.CounterVec
	scanDuration  *prometheus.HistogramVec
	signalsTotal  *prometheus.CounterVec
	confirmations *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	barsLast      *prometheus.GaugeVec
}

// New registers the collectors on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		scansTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reversal_scans_total",
				Help: "Total number of completed scans",
			},
			[]string{"symbol", "interval"},
		),
		scanDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reversal_scan_duration_seconds",
				Help:    "Duration of a collect-and-scan cycle in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"symbol", "interval"},
		),
		signalsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reversal_signals_detected_total",
				Help: "New signals detected, by pattern",
			},
			[]string{"symbol", "pattern"},
		),
		confirmations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reversal_confirmations_total",
				Help: "Confirmation verdicts, by outcome",
			},
			[]string{"outcome"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reversal_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		barsLast: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "reversal_bars_scanned",
				Help: "Number of bars in the last scanned series",
			},
			[]string{"symbol", "interval"},
		),
	}
}

// RecordScan records one finished scan and its duration.
func (r *Recorder) RecordScan(symbol, interval string, bars int, seconds float64) {
	r.scansTotal.WithLabelValues(symbol, interval).Inc()
	r.scanDuration.WithLabelValues(symbol, interval).Observe(seconds)
	r.barsLast.WithLabelValues(symbol, interval).Set(float64(bars))
}

// RecordSignal records a newly detected signal.
func (r *Recorder) RecordSignal(symbol, pattern string) {
	r.signalsTotal.WithLabelValues(symbol, pattern).Inc()
}

// RecordConfirmation records a verdict outcome: confirmed, rejected or failed.
func (r *Recorder) RecordConfirmation(outcome string) {
	r.confirmations.WithLabelValues(outcome).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}
