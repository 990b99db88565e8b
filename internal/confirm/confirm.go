package confirm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"ReversalSentinel/internal/model"
)

// ErrBadVerdict is returned when the model reply holds no usable verdict.
var ErrBadVerdict = errors.New("malformed confirmation verdict")

// Request is everything the confirmation service sees about one signal.
type Request struct {
	Symbol   string
	Interval string
	Kind     model.PatternKind
	Context  []model.OHLCV
	Target   model.OHLCV
	StochRSI float64
}

// Confirmer asks an external judge whether a detected pattern holds up.
type Confirmer interface {
	Confirm(ctx context.Context, req Request) (*model.Confirmation, error)
}

// ContextWindow returns up to n bars immediately preceding index.
func ContextWindow(bars []model.OHLCV, index, n int) []model.OHLCV {
	if index <= 0 || index > len(bars) || n <= 0 {
		return nil
	}
	start := index - n
	if start < 0 {
		start = 0
	}
	return bars[start:index]
}

// BuildPrompt renders the request as the user message.
func BuildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Symbol: %s", req.Symbol))
	if req.Interval != "" {
		b.WriteString(fmt.Sprintf(" (%s bars)", req.Interval))
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Detected pattern: %s (%s bias)\n", req.Kind.Label(), req.Kind.Bias()))
	b.WriteString(fmt.Sprintf("Stochastic RSI at the signal bar: %.1f\n\n", req.StochRSI))
	b.WriteString("Preceding bars (time, open, high, low, close, volume):\n")
	for _, bar := range req.Context {
		writeBar(&b, bar)
	}
	b.WriteString("\nSignal bar:\n")
	writeBar(&b, req.Target)
	b.WriteString("\nReply with JSON only: {\"confirmed\": bool, \"explanation\": string, \"score\": 0-100}")
	return b.String()
}

func writeBar(b *strings.Builder, bar model.OHLCV) {
	b.WriteString(fmt.Sprintf("%s, %g, %g, %g, %g, %g\n",
		bar.OpenTime().Format("2006-01-02 15:04"), bar.Open, bar.High, bar.Low, bar.Close, bar.Volume))
}

// ParseVerdict extracts the JSON verdict from a model reply. Markdown code
// fences and surrounding prose are tolerated.
func ParseVerdict(content string) (*model.Confirmation, error) {
	raw := stripFences(content)
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object in %q", ErrBadVerdict, truncate(content, 80))
	}
	raw = raw[start : end+1]
	if !gjson.Valid(raw) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrBadVerdict)
	}

	v := gjson.Parse(raw)
	confirmed := v.Get("confirmed")
	if confirmed.Type != gjson.True && confirmed.Type != gjson.False {
		return nil, fmt.Errorf("%w: missing boolean \"confirmed\"", ErrBadVerdict)
	}
	score := v.Get("score")
	if score.Type != gjson.Number {
		return nil, fmt.Errorf("%w: missing numeric \"score\"", ErrBadVerdict)
	}
	s := int(score.Int())
	if s < 0 {
		s = 0
	}
	if s > 100 {
		s = 100
	}
	return &model.Confirmation{
		Confirmed:   confirmed.Bool(),
		Explanation: strings.TrimSpace(v.Get("explanation").String()),
		Score:       s,
	}, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:] // language tag
	}
	return strings.TrimSuffix(strings.TrimSpace(s), "```")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
