// Package polymarket provides REST clients for the Polymarket Gamma
// API (market discovery) and the account API used for live trading.
package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/moneymaker/moneymaker/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// flexFloat unmarshals from a JSON number or a numeric string; the Gamma
// API sends volume and liquidity as strings.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(n)
	return nil
}

// APIMarket represents a market as returned by the Polymarket Gamma API.
type APIMarket struct {
	ID             string    `json:"id"`
	ConditionID    string    `json:"condition_id"`
	Question       string    `json:"question"`
	Category       string    `json:"category"`
	GroupItemTitle string    `json:"groupItemTitle"`
	Active         flexBool  `json:"active"`
	Closed         bool      `json:"closed"`
	Outcomes       string    `json:"outcomes"`      // JSON-encoded: e.g. "[\"Yes\",\"No\"]"
	OutcomePrices  string    `json:"outcomePrices"` // JSON-encoded: e.g. "[\"0.5\",\"0.5\"]"
	Volume         flexFloat `json:"volume"`
	Liquidity      flexFloat `json:"liquidity"`
	EndDate        string    `json:"endDate"`
	EndDateISO     string    `json:"end_date_iso"`
}

// ToDomainMarket converts the Gamma payload into a domain.Market. The
// outcome name and price arrays are separately JSON-encoded strings and
// are paired by index; an outcome with no price defaults to 0.5.
func (m *APIMarket) ToDomainMarket() domain.Market {
	out := domain.Market{
		ID:        m.ID,
		Question:  m.Question,
		Category:  m.Category,
		Volume:    float64(m.Volume),
		Liquidity: float64(m.Liquidity),
		Active:    bool(m.Active),
		Closed:    m.Closed,
		FetchedAt: time.Now().UTC(),
	}
	if out.ID == "" {
		out.ID = m.ConditionID
	}
	if out.Category == "" {
		out.Category = m.GroupItemTitle
	}

	var names []string
	if m.Outcomes != "" {
		_ = json.Unmarshal([]byte(m.Outcomes), &names)
	}
	var priceStrs []string
	if m.OutcomePrices != "" {
		_ = json.Unmarshal([]byte(m.OutcomePrices), &priceStrs)
	}
	for i, name := range names {
		price := 0.5
		if i < len(priceStrs) {
			if p, err := strconv.ParseFloat(priceStrs[i], 64); err == nil {
				price = p
			}
		}
		out.Outcomes = append(out.Outcomes, domain.Outcome{Name: name, Price: price})
	}

	endDate := m.EndDate
	if endDate == "" {
		endDate = m.EndDateISO
	}
	if endDate != "" {
		if t, err := time.Parse(time.RFC3339, endDate); err == nil {
			out.EndDate = &t
		}
	}

	return out
}

// APIBalance is the account API balance response.
type APIBalance struct {
	Balance flexFloat `json:"balance"`
}

// APIPosition is one open position as returned by the account API.
type APIPosition struct {
	ID           string    `json:"id"`
	MarketID     string    `json:"market"`
	Question     string    `json:"question"`
	Outcome      string    `json:"outcome"`
	EntryPrice   flexFloat `json:"entry_price"`
	CurrentPrice flexFloat `json:"current_price"`
	Size         flexFloat `json:"size"`
	OpenedAt     string    `json:"created_at"`
}

// ToDomainPosition converts an account API position to a domain.Position.
func (p *APIPosition) ToDomainPosition() domain.Position {
	pos := domain.Position{
		ID:           p.ID,
		Mode:         domain.ModeLive,
		MarketID:     p.MarketID,
		Question:     p.Question,
		Outcome:      p.Outcome,
		EntryPrice:   float64(p.EntryPrice),
		CurrentPrice: float64(p.CurrentPrice),
		Quantity:     float64(p.Size),
	}
	if t, err := time.Parse(time.RFC3339, p.OpenedAt); err == nil {
		pos.OpenedAt = t
	}
	return pos
}

// APIOrderResult is the response from placing an order via the account API.
type APIOrderResult struct {
	Success  bool   `json:"success"`
	ErrorMsg string `json:"errorMsg,omitempty"`
	OrderID  string `json:"orderID,omitempty"`
	Status   string `json:"status,omitempty"`
}
