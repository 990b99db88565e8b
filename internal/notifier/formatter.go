package notifier

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"ReversalSentinel/internal/annotate"
	"ReversalSentinel/internal/model"
)

// SeriesStatus is one line of the /status report.
type SeriesStatus struct {
	Key        string
	Signals    int
	Pending    int
	LastScanAt time.Time
}

// ScanSummary describes one finished scan for the summary message.
type ScanSummary struct {
	Symbol     string
	Interval   string
	Bars       int
	Signals    int
	NewSignals []model.Signal
	Duration   time.Duration
	Err        error
}

func biasIcon(b model.Bias) string {
	switch b {
	case model.BiasBullish:
		return "🟢"
	case model.BiasBearish:
		return "🔴"
	default:
		return "⚪"
	}
}

func barTime(ts int64) string {
	return time.UnixMilli(ts).UTC().Format("2006-01-02 15:04 UTC")
}

// FormatSignal formats a newly detected signal into a Telegram message.
func FormatSignal(symbol, interval string, sig model.Signal, ann annotate.Annotation) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("%s <b>%s</b> | %s %s\n\n",
		biasIcon(sig.Kind.Bias()), sig.Kind.Label(), html.EscapeString(symbol), interval))
	b.WriteString(fmt.Sprintf("Bar: %s\n", barTime(sig.Timestamp)))
	bar := sig.Bar
	b.WriteString(fmt.Sprintf("O %.4g  H %.4g  L %.4g  C %.4g\n", bar.Open, bar.High, bar.Low, bar.Close))
	b.WriteString(fmt.Sprintf("Volume: %.4g\n", bar.Volume))
	b.WriteString(fmt.Sprintf("StochRSI: %.1f\n", sig.StochRSI))
	b.WriteString(fmt.Sprintf("Score: <b>%d</b>/100\n", sig.Score))

	if ann.ATR > 0 {
		b.WriteString(fmt.Sprintf("ATR(14): %.4g (range %.2f×ATR)\n", ann.ATR, bar.Range()/ann.ATR))
	}
	if len(ann.Flags) > 0 {
		b.WriteString(fmt.Sprintf("TA-Lib: %s\n", strings.Join(ann.Names(), ", ")))
	}
	return b.String()
}

// FormatConfirmation formats a confirmation verdict for a signal.
func FormatConfirmation(symbol, interval string, sig model.Signal) string {
	var b strings.Builder
	verdict := "❌ <b>Rejected</b>"
	if sig.Confirmed {
		verdict = "✅ <b>Confirmed</b>"
	}
	b.WriteString(fmt.Sprintf("%s %s | %s %s @ %s\n", verdict, sig.Kind.Label(),
		html.EscapeString(symbol), interval, barTime(sig.Timestamp)))
	b.WriteString(fmt.Sprintf("Score: %d/100\n", sig.Score))
	if sig.ConfirmationText != "" {
		b.WriteString(fmt.Sprintf("\n%s\n", html.EscapeString(sig.ConfirmationText)))
	}
	return b.String()
}

// FormatScanSummary formats the result of a manually triggered scan.
func FormatScanSummary(results []ScanSummary) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔎 <b>Scan</b> | %s\n\n", time.Now().UTC().Format("2006-01-02 15:04")))
	if len(results) == 0 {
		b.WriteString("No watches configured.")
		return b.String()
	}
	for _, r := range results {
		if r.Err != nil {
			b.WriteString(fmt.Sprintf("⚠️ %s %s: %s\n", html.EscapeString(r.Symbol), r.Interval, html.EscapeString(r.Err.Error())))
			continue
		}
		b.WriteString(fmt.Sprintf("%s %s: %d bars, %d signals, %d new (%s)\n",
			html.EscapeString(r.Symbol), r.Interval, r.Bars, r.Signals, len(r.NewSignals), r.Duration.Round(time.Millisecond)))
		for _, s := range r.NewSignals {
			b.WriteString(fmt.Sprintf("  %s %s %s score %d\n", biasIcon(s.Kind.Bias()), barTime(s.Timestamp), s.Kind.Label(), s.Score))
		}
	}
	return b.String()
}

// FormatSignalList formats the most recent signals of a series.
func FormatSignalList(key string, signals []model.Signal, limit int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📋 <b>%s</b>\n\n", html.EscapeString(key)))
	if len(signals) == 0 {
		b.WriteString("No signals.")
		return b.String()
	}
	if limit > 0 && len(signals) > limit {
		signals = signals[len(signals)-limit:]
	}
	for i := len(signals) - 1; i >= 0; i-- {
		s := signals[i]
		mark := ""
		switch {
		case s.Confirmed:
			mark = " ✅"
		case s.ConfirmationText != "":
			mark = " ❌"
		}
		b.WriteString(fmt.Sprintf("%s %s %s %d%s\n", biasIcon(s.Kind.Bias()), barTime(s.Timestamp), s.Kind.Label(), s.Score, mark))
	}
	return b.String()
}

// FormatStatus formats the tracker state for display.
func FormatStatus(series []SeriesStatus, startedAt time.Time) string {
	var b strings.Builder
	b.WriteString("📦 <b>Status</b>\n\n")
	b.WriteString(fmt.Sprintf("Uptime: %s\n", time.Since(startedAt).Round(time.Second)))
	if len(series) == 0 {
		b.WriteString("No series scanned yet.\n")
		return b.String()
	}
	for _, s := range series {
		last := "never"
		if !s.LastScanAt.IsZero() {
			last = s.LastScanAt.UTC().Format("01-02 15:04")
		}
		b.WriteString(fmt.Sprintf("%s: %d signals, %d pending, last scan %s\n",
			html.EscapeString(s.Key), s.Signals, s.Pending, last))
	}
	return b.String()
}

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// StripHTML removes Telegram HTML markup for plain-text sinks.
func StripHTML(s string) string {
	return html.UnescapeString(tagPattern.ReplaceAllString(s, ""))
}
