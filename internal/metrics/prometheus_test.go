package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordScan("BTCUSDT", "1h", 500, 0.2)
	r.RecordScan("BTCUSDT", "1h", 500, 0.1)
	r.RecordSignal("BTCUSDT", "HAMMER")
	r.RecordConfirmation("confirmed")
	r.RecordError("fetch")

	if got := testutil.ToFloat64(r.scansTotal.WithLabelValues("BTCUSDT", "1h")); got != 2 {
		t.Errorf("scans = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.signalsTotal.WithLabelValues("BTCUSDT", "HAMMER")); got != 1 {
		t.Errorf("signals = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.barsLast.WithLabelValues("BTCUSDT", "1h")); got != 500 {
		t.Errorf("bars gauge = %v, want 500", got)
	}
	if n := testutil.CollectAndCount(r.errorsTotal); n != 1 {
		t.Errorf("error series = %d, want 1", n)
	}

	// separate registries do not collide
	New(prometheus.NewRegistry())
}
