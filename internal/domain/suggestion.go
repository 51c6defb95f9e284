package domain

// RiskLevel is a qualitative five-level risk tier for a suggestion.
type RiskLevel int

const (
	RiskVeryLow RiskLevel = iota + 1
	RiskLow
	RiskMedium
	RiskHigh
	RiskVeryHigh
)

var riskNames = map[RiskLevel]string{
	RiskVeryLow:  "very_low",
	RiskLow:      "low",
	RiskMedium:   "medium",
	RiskHigh:     "high",
	RiskVeryHigh: "very_high",
}

func (r RiskLevel) String() string {
	if s, ok := riskNames[r]; ok {
		return s
	}
	return "medium"
}

// ParseRiskLevel maps a model-supplied tier name to its ordinal.
// Unknown names fall back to medium.
func ParseRiskLevel(s string) RiskLevel {
	for lvl, name := range riskNames {
		if name == s {
			return lvl
		}
	}
	return RiskMedium
}

// Suggestion is one ranked trade recommendation from the suggestion
// source. The gate still applies its own checks; nothing upstream is
// trusted to have filtered by confidence.
type Suggestion struct {
	MarketID          string    `json:"market_id"`
	Question          string    `json:"question"`
	Outcome           string    `json:"outcome"`
	CurrentPrice      float64   `json:"current_price"`
	Confidence        float64   `json:"confidence"`
	SuggestedFraction float64   `json:"suggested_fraction"`
	Risk              RiskLevel `json:"risk"`
	Reasoning         string    `json:"reasoning,omitempty"`
}

// FilterByRisk returns the suggestions whose risk tier does not exceed
// max, preserving rank order.
func FilterByRisk(suggestions []Suggestion, max RiskLevel) []Suggestion {
	out := make([]Suggestion, 0, len(suggestions))
	for _, s := range suggestions {
		if s.Risk <= max {
			out = append(out, s)
		}
	}
	return out
}
