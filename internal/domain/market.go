package domain

import "time"

// Outcome is one tradeable outcome of a market with its current price,
// which doubles as the implied probability in [0,1].
type Outcome struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Market represents a prediction market candidate for trading.
type Market struct {
	ID        string     `json:"id"`
	Question  string     `json:"question"`
	Category  string     `json:"category"`
	EndDate   *time.Time `json:"end_date"`
	Volume    float64    `json:"volume"`
	Liquidity float64    `json:"liquidity"`
	Outcomes  []Outcome  `json:"outcomes"`
	Active    bool       `json:"active"`
	Closed    bool       `json:"closed"`
	FetchedAt time.Time  `json:"fetched_at"`
}

// HoursToResolution returns the hours remaining until the market's
// resolution deadline as of now. Markets past their deadline, or with
// no deadline at all, report exactly 0, never a negative value.
func (m Market) HoursToResolution(now time.Time) float64 {
	if m.EndDate == nil {
		return 0
	}
	h := m.EndDate.Sub(now).Hours()
	if h < 0 {
		return 0
	}
	return h
}

// OutcomePrice returns the price of the named outcome, or 0 if the
// market has no such outcome.
func (m Market) OutcomePrice(name string) (float64, bool) {
	for _, o := range m.Outcomes {
		if o.Name == name {
			return o.Price, true
		}
	}
	return 0, false
}
