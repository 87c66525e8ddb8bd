package model

// ConfidenceLevel buckets a confidence score into a coarse label.
type ConfidenceLevel string

const (
	LevelBasic         ConfidenceLevel = "basic"
	LevelGrowing       ConfidenceLevel = "growing"
	LevelStrong        ConfidenceLevel = "strong"
	LevelComprehensive ConfidenceLevel = "comprehensive"
	LevelComplete      ConfidenceLevel = "complete"
)

// HedgeLevel is the required strength of epistemic qualification in generated
// language, driven by the confidence score.
type HedgeLevel string

const (
	HedgeNone   HedgeLevel = "none"
	HedgeLow    HedgeLevel = "low"
	HedgeMedium HedgeLevel = "medium"
	HedgeHigh   HedgeLevel = "high"
)

// LevelForScore maps a 0-100 confidence score to its level bucket.
func LevelForScore(score int) ConfidenceLevel {
	switch {
	case score >= 90:
		return LevelComplete
	case score >= 70:
		return LevelComprehensive
	case score >= 50:
		return LevelStrong
	case score >= 30:
		return LevelGrowing
	default:
		return LevelBasic
	}
}

// HedgeForScore maps a 0-100 confidence score to the hedge tier required of
// generated language. Tiers align with the attribution rules given to the
// generator: <30 correlation-only, 30-49 partial attribution, 50-69 confident
// with named gaps, >=70 confident with profit-level recommendations.
func HedgeForScore(score int) HedgeLevel {
	switch {
	case score >= 70:
		return HedgeNone
	case score >= 50:
		return HedgeLow
	case score >= 30:
		return HedgeMedium
	default:
		return HedgeHigh
	}
}

// Confidence quantifies how complete the current data picture is for a
// restaurant. It is recomputed on demand and never persisted or cached beyond
// a single request.
type Confidence struct {
	Score           int             `json:"score"`
	Level           ConfidenceLevel `json:"level"`
	ConnectedLayers []string        `json:"connected_layers"`
	MissingLayers   []string        `json:"missing_layers"`
	NextRecommended string          `json:"next_recommended,omitempty"`
	Disclaimer      string          `json:"disclaimer"`
	HedgeLevel      HedgeLevel      `json:"hedge_level"`
}
