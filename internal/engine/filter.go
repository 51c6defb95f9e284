// Package engine holds the pure decision functions of the trading core:
// market eligibility filtering, trade gating and sizing, and exit
// threshold evaluation. Nothing in this package performs I/O or holds
// mutable state.
package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/moneymaker/moneymaker/internal/domain"
)

// minHoursToResolution rejects markets resolving within 5 minutes;
// there is no time left to exit a position in such a market.
const minHoursToResolution = 5.0 / 60.0

// FilterConfig holds the eligibility rules applied to candidate
// markets.
type FilterConfig struct {
	MinVolume            float64
	MinLiquidity         float64
	MaxHoursToResolution float64
	ExcludedCategories   []string
	MinPrice             float64
	MaxPrice             float64
}

// FilterResult is the outcome of filtering one market. Reason is empty
// when the market passed.
type FilterResult struct {
	MarketID string `json:"market_id"`
	Passed   bool   `json:"passed"`
	Reason   string `json:"reason,omitempty"`
}

// FilterSummary aggregates a batch of filter results for diagnostics.
// FailureReasons groups failures by the leading clause of each reason
// string, so parameterized reasons collapse into one bucket.
type FilterSummary struct {
	Total          int            `json:"total"`
	Passed         int            `json:"passed"`
	FilteredOut    int            `json:"filtered_out"`
	PassRate       float64        `json:"pass_rate"`
	FailureReasons map[string]int `json:"failure_reasons"`
}

// FilterEngine decides whether markets are eligible for trading.
type FilterEngine struct {
	cfg FilterConfig
	now func() time.Time
}

// NewFilterEngine builds a filter engine over the given rules.
func NewFilterEngine(cfg FilterConfig) *FilterEngine {
	return &FilterEngine{cfg: cfg, now: time.Now}
}

// Filter evaluates one market against the eligibility chain. Checks run
// in a fixed order and the first failure short-circuits, so the
// returned reason always names the earliest failing rule.
func (e *FilterEngine) Filter(m domain.Market) FilterResult {
	checks := []func(domain.Market) string{
		e.checkResolutionWindow,
		e.checkVolume,
		e.checkLiquidity,
		e.checkCategory,
		e.checkPriceRange,
	}
	for _, check := range checks {
		if reason := check(m); reason != "" {
			return FilterResult{MarketID: m.ID, Passed: false, Reason: reason}
		}
	}
	return FilterResult{MarketID: m.ID, Passed: true}
}

// FilterAll evaluates every market and returns the passing subset in
// input order together with the per-market results.
func (e *FilterEngine) FilterAll(markets []domain.Market) ([]domain.Market, []FilterResult) {
	passing := make([]domain.Market, 0, len(markets))
	results := make([]FilterResult, 0, len(markets))
	for _, m := range markets {
		r := e.Filter(m)
		results = append(results, r)
		if r.Passed {
			passing = append(passing, m)
		}
	}
	return passing, results
}

// Summarize builds operator-facing statistics over a batch of results.
func Summarize(results []FilterResult) FilterSummary {
	s := FilterSummary{
		Total:          len(results),
		FailureReasons: map[string]int{},
	}
	for _, r := range results {
		if r.Passed {
			s.Passed++
			continue
		}
		s.FilteredOut++
		key := r.Reason
		if i := strings.Index(key, "("); i >= 0 {
			key = strings.TrimSpace(key[:i])
		}
		if key == "" {
			key = "Unknown"
		}
		s.FailureReasons[key]++
	}
	if s.Total > 0 {
		s.PassRate = float64(s.Passed) / float64(s.Total) * 100
	}
	return s
}

func (e *FilterEngine) checkResolutionWindow(m domain.Market) string {
	hours := m.HoursToResolution(e.now())
	if hours == 0 {
		return "Market has already ended"
	}
	if hours > e.cfg.MaxHoursToResolution {
		return fmt.Sprintf("Time to resolution (%.1fh) exceeds maximum (%gh)", hours, e.cfg.MaxHoursToResolution)
	}
	if hours < minHoursToResolution {
		return fmt.Sprintf("Market resolves too soon (%.0f minutes)", hours*60)
	}
	return ""
}

func (e *FilterEngine) checkVolume(m domain.Market) string {
	if m.Volume < e.cfg.MinVolume {
		return fmt.Sprintf("Volume ($%.0f) below minimum ($%.0f)", m.Volume, e.cfg.MinVolume)
	}
	return ""
}

func (e *FilterEngine) checkLiquidity(m domain.Market) string {
	if m.Liquidity < e.cfg.MinLiquidity {
		return fmt.Sprintf("Liquidity ($%.0f) below minimum ($%.0f)", m.Liquidity, e.cfg.MinLiquidity)
	}
	return ""
}

func (e *FilterEngine) checkCategory(m domain.Market) string {
	for _, excluded := range e.cfg.ExcludedCategories {
		if strings.EqualFold(m.Category, excluded) {
			return fmt.Sprintf("Category '%s' is excluded", m.Category)
		}
	}
	return ""
}

// checkPriceRange passes as soon as any one outcome trades inside the
// band. Only a market whose every outcome is extreme is rejected.
func (e *FilterEngine) checkPriceRange(m domain.Market) string {
	for _, o := range m.Outcomes {
		if o.Price >= e.cfg.MinPrice && o.Price <= e.cfg.MaxPrice {
			return ""
		}
	}
	return fmt.Sprintf("All outcome prices are extreme (outside %.0f%%-%.0f%%)", e.cfg.MinPrice*100, e.cfg.MaxPrice*100)
}
