package model

// PatternKind identifies a reversal pattern.
type PatternKind string

const (
	PatternNone                  PatternKind = "NONE"
	PatternInstitutionalSpring   PatternKind = "INSTITUTIONAL_SPRING"
	PatternInstitutionalUpthrust PatternKind = "INSTITUTIONAL_UPTHRUST"
	PatternTweezersTop           PatternKind = "TWEEZERS_TOP"
	PatternTweezersBottom        PatternKind = "TWEEZERS_BOTTOM"
	PatternSuddenReversalUp      PatternKind = "SUDDEN_REVERSAL_UP"
	PatternSuddenReversalDown    PatternKind = "SUDDEN_REVERSAL_DOWN"
	PatternBullishEngulfing      PatternKind = "BULLISH_ENGULFING"
	PatternBearishEngulfing      PatternKind = "BEARISH_ENGULFING"
	PatternHammer                PatternKind = "HAMMER"
	PatternShootingStar          PatternKind = "SHOOTING_STAR"
	PatternDoji                  PatternKind = "DOJI"
)

// Bias is the expected direction after a pattern.
type Bias string

const (
	BiasBullish Bias = "bullish"
	BiasBearish Bias = "bearish"
	BiasNeutral Bias = "neutral"
)

var patternLabels = map[PatternKind]string{
	PatternInstitutionalSpring:   "Institutional Spring",
	PatternInstitutionalUpthrust: "Institutional Upthrust",
	PatternTweezersTop:           "Tweezers Top",
	PatternTweezersBottom:        "Tweezers Bottom",
	PatternSuddenReversalUp:      "Sudden Reversal Up",
	PatternSuddenReversalDown:    "Sudden Reversal Down",
	PatternBullishEngulfing:      "Bullish Engulfing",
	PatternBearishEngulfing:      "Bearish Engulfing",
	PatternHammer:                "Hammer",
	PatternShootingStar:          "Shooting Star",
	PatternDoji:                  "Doji",
}

// Label returns a human-readable pattern name.
func (k PatternKind) Label() string {
	if l, ok := patternLabels[k]; ok {
		return l
	}
	return string(k)
}

// Bias returns the direction the pattern points to.
func (k PatternKind) Bias() Bias {
	switch k {
	case PatternInstitutionalSpring, PatternTweezersBottom, PatternSuddenReversalUp,
		PatternBullishEngulfing, PatternHammer:
		return BiasBullish
	case PatternInstitutionalUpthrust, PatternTweezersTop, PatternSuddenReversalDown,
		PatternBearishEngulfing, PatternShootingStar:
		return BiasBearish
	default:
		return BiasNeutral
	}
}

// Valid reports whether k is a member of the pattern enumeration.
func (k PatternKind) Valid() bool {
	_, ok := patternLabels[k]
	return ok || k == PatternNone
}

// Signal is a pattern detected at a bar. Timestamp equals Bar.Time and is the
// signal's identity across repeated scans.
type Signal struct {
	Bar              OHLCV       `json:"bar"`
	Kind             PatternKind `json:"kind"`
	Timestamp        int64       `json:"timestamp"`
	Score            int         `json:"score"`
	StochRSI         float64     `json:"stoch_rsi"`
	Confirmed        bool        `json:"confirmed"`
	ConfirmationText string      `json:"confirmation_text,omitempty"`
}

// Confirmation is the verdict returned by the confirmation service.
type Confirmation struct {
	Confirmed   bool   `json:"confirmed"`
	Explanation string `json:"explanation"`
	Score       int    `json:"score"`
}
