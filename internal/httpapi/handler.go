package httpapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"ReversalSentinel/internal/annotate"
	"ReversalSentinel/internal/calculator"
	"ReversalSentinel/internal/model"
	"ReversalSentinel/internal/strategy"
)

// SignalSource is the read side of the signal tracker.
type SignalSource interface {
	Signals(symbol, interval string) []model.Signal
	Keys() []string
}

// ScanRequest asks for a scan of a caller-supplied bar sequence.
type ScanRequest struct {
	Symbol   string        `json:"symbol"`
	Interval string        `json:"interval" default:"1h"`
	Bars     []model.OHLCV `json:"bars" validate:"required,min=1,max=5000,dive"`
}

// DetectRequest asks for the classification of one bar.
type DetectRequest struct {
	Bars  []model.OHLCV `json:"bars" validate:"required,min=1,max=5000,dive"`
	Index *int          `json:"index" validate:"required,gte=0"`
}

// DetectResponse is the detection plus the indicator snapshot at the bar.
type DetectResponse struct {
	Index      int                     `json:"index"`
	Kind       model.PatternKind       `json:"kind"`
	Label      string                  `json:"label"`
	Bias       model.Bias              `json:"bias"`
	Score      int                     `json:"score"`
	StochRSI   float64                 `json:"stoch_rsi"`
	Indicators model.IndicatorSnapshot `json:"indicators"`
	ATR        float64                 `json:"atr"`
	Flags      []string                `json:"talib_flags"`
	// RangePosition places the close within the recent high/low, 0 to 1.
	RangePosition *float64 `json:"range_position,omitempty"`
}

// Handler serves the signal API.
type Handler struct {
	signals SignalSource
}

func NewHandler(signals SignalSource) *Handler {
	return &Handler{signals: signals}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.health)
	api := e.Group("/api")
	api.GET("/signals", h.listSignals)
	api.POST("/scan", h.scan)
	api.POST("/detect", h.detect)
}

func (h *Handler) health(c echo.Context) error {
	return successResponse(c, map[string]string{"status": "ok"})
}

// listSignals returns the tracked signals of one series, or the series keys
// when no symbol is given.
func (h *Handler) listSignals(c echo.Context) error {
	symbol := strings.ToUpper(strings.TrimSpace(c.QueryParam("symbol")))
	if symbol == "" {
		return successResponse(c, map[string][]string{"series": h.signals.Keys()})
	}
	interval := c.QueryParam("interval")
	if interval == "" {
		interval = "1h"
	}
	signals := h.signals.Signals(symbol, interval)
	if len(signals) == 0 && !h.tracked(symbol, interval) {
		return notFoundResponse(c, []ValidationError{{Code: "ERR_NOT_FOUND", Message: "series not tracked: " + symbol + "@" + interval}})
	}
	return successResponse(c, signals)
}

func (h *Handler) tracked(symbol, interval string) bool {
	key := symbol + "@" + interval
	for _, k := range h.signals.Keys() {
		if k == key {
			return true
		}
	}
	return false
}

func (h *Handler) scan(c echo.Context) error {
	req := new(ScanRequest)
	if errs := readAndValidate(c, req); errs != nil {
		return badRequestResponse(c, errs)
	}
	if err := model.ValidateBars(req.Bars); err != nil {
		return badRequestResponse(c, []ValidationError{{Code: "ERR_BARS", Field: "bars", Message: err.Error()}})
	}
	return successResponse(c, map[string]interface{}{
		"symbol":   strings.ToUpper(req.Symbol),
		"interval": req.Interval,
		"bars":     len(req.Bars),
		"signals":  strategy.Scan(req.Bars),
	})
}

func (h *Handler) detect(c echo.Context) error {
	req := new(DetectRequest)
	if errs := readAndValidate(c, req); errs != nil {
		return badRequestResponse(c, errs)
	}
	if err := model.ValidateBars(req.Bars); err != nil {
		return badRequestResponse(c, []ValidationError{{Code: "ERR_BARS", Field: "bars", Message: err.Error()}})
	}
	idx := *req.Index
	if idx >= len(req.Bars) {
		return badRequestResponse(c, []ValidationError{{Code: "ERR_INDEX", Field: "index", Message: "index must be less than the number of bars"}})
	}

	d := strategy.Detect(req.Bars, idx)
	ann := annotate.At(req.Bars, idx)
	resp := DetectResponse{
		Index:      idx,
		Kind:       d.Kind,
		Label:      d.Kind.Label(),
		Bias:       d.Kind.Bias(),
		Score:      d.Score,
		StochRSI:   d.StochRSI,
		Indicators: calculator.SnapshotAt(req.Bars, idx),
		ATR:        ann.ATR,
		Flags:      ann.Names(),
	}
	if w, err := calculator.RecentStats(req.Bars, idx, calculator.RecentLookback); err == nil {
		if pos, err := calculator.RangePosition(req.Bars[idx].Close, w.High, w.Low); err == nil {
			resp.RangePosition = &pos
		}
	}
	return successResponse(c, resp)
}
