package gemini

import (
	"fmt"
	"strings"
	"time"

	"github.com/moneymaker/moneymaker/internal/domain"
)

// systemPrompt frames the model as a prediction market analyst focused
// on short-horizon opportunities.
const systemPrompt = `You are an expert prediction market analyst with deep knowledge of:
- Probability assessment and calibration
- News and event analysis
- Market dynamics and liquidity
- Risk management

Your task is to analyze prediction markets and identify opportunities for short-term profits (within 1 hour).

Key principles:
1. Focus on mispriced markets where current probability differs from true probability
2. Consider time decay - markets closer to resolution have less uncertainty
3. Avoid extreme prices (< 5% or > 95%) - limited upside, high risk
4. Factor in liquidity - ensure positions can be entered/exited
5. Be conservative - only suggest high-confidence opportunities`

// outputFormat pins the response to a strict JSON shape so the reply
// can be decoded without any free-text salvage.
const outputFormat = `## Required Output Format

Respond with ONLY valid JSON in this exact format:
{
    "suggestions": [
        {
            "market_id": "string",
            "market_question": "string",
            "recommended_outcome": "Yes" or "No",
            "confidence": 0.0 to 1.0,
            "reasoning": "Brief explanation (2-3 sentences)",
            "suggested_position_size": 0.0 to 1.0,
            "risk_level": "very_low" | "low" | "medium" | "high" | "very_high"
        }
    ],
    "markets_analyzed": number,
    "overall_market_sentiment": "bullish" | "bearish" | "neutral" | "uncertain"
}`

// buildAnalysisPrompt assembles the full analysis prompt for one batch
// of candidate markets.
func buildAnalysisPrompt(markets []domain.Market, maxSuggestions int, confidenceThreshold float64, now time.Time) string {
	var b strings.Builder

	b.WriteString(systemPrompt)
	b.WriteString("\n\n## Analysis Parameters\n")
	fmt.Fprintf(&b, "- Current Time: %s\n", now.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- Maximum Suggestions: %d\n", maxSuggestions)
	fmt.Fprintf(&b, "- Confidence Threshold: %g\n", confidenceThreshold)

	b.WriteString("\n## Markets to Analyze\n\n")
	b.WriteString(formatMarkets(markets, now))

	b.WriteString("\n\n")
	b.WriteString(outputFormat)

	b.WriteString("\n\n## Rules\n")
	fmt.Fprintf(&b, "- Only include suggestions with confidence >= %g\n", confidenceThreshold)
	b.WriteString("- If no good opportunities exist, return empty suggestions array\n")
	b.WriteString("- Be specific in reasoning - cite relevant factors\n")
	b.WriteString("- Position size should reflect confidence and risk")

	return b.String()
}

func formatMarkets(markets []domain.Market, now time.Time) string {
	if len(markets) == 0 {
		return "No markets provided."
	}

	blocks := make([]string, 0, len(markets))
	for i, m := range markets {
		outcomes := make([]string, 0, len(m.Outcomes))
		for _, o := range m.Outcomes {
			outcomes = append(outcomes, fmt.Sprintf("%s: %.1f%%", o.Name, o.Price*100))
		}

		category := m.Category
		if category == "" {
			category = "Unknown"
		}

		var b strings.Builder
		fmt.Fprintf(&b, "### Market %d\n", i+1)
		fmt.Fprintf(&b, "- ID: %s\n", m.ID)
		fmt.Fprintf(&b, "- Question: %s\n", m.Question)
		fmt.Fprintf(&b, "- Category: %s\n", category)
		fmt.Fprintf(&b, "- Time to Resolution: %.2f hours\n", m.HoursToResolution(now))
		fmt.Fprintf(&b, "- Volume: $%.0f\n", m.Volume)
		fmt.Fprintf(&b, "- Liquidity: $%.0f\n", m.Liquidity)
		fmt.Fprintf(&b, "- Outcomes: %s", strings.Join(outcomes, ", "))
		blocks = append(blocks, b.String())
	}

	return strings.Join(blocks, "\n\n")
}
