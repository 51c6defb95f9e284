package domain

import "time"

// Position is an open holding in one market outcome. Positions exist
// only while open; a sell deletes the row and the transaction log keeps
// the record of the event.
type Position struct {
	ID           string    `json:"id"`
	WalletID     string    `json:"wallet_id"`
	Mode         Mode      `json:"mode"`
	MarketID     string    `json:"market_id"`
	Question     string    `json:"question"`
	Outcome      string    `json:"outcome"`
	EntryPrice   float64   `json:"entry_price"`
	CurrentPrice float64   `json:"current_price"`
	Quantity     float64   `json:"quantity"`
	OpenedAt     time.Time `json:"opened_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// EntryValue is the cost basis of the position.
func (p Position) EntryValue() float64 {
	return p.EntryPrice * p.Quantity
}

// CurrentValue is the mark-to-market value of the position.
func (p Position) CurrentValue() float64 {
	return p.CurrentPrice * p.Quantity
}

// PnLPercent is the percentage gain or loss relative to the entry
// price. A zero entry price yields 0 rather than a division by zero.
func (p Position) PnLPercent() float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	return (p.CurrentPrice - p.EntryPrice) / p.EntryPrice * 100
}

// PnLAmount is the unrealized gain or loss in currency units.
func (p Position) PnLAmount() float64 {
	return p.CurrentValue() - p.EntryValue()
}

// ExitAction is the decision for an open position after threshold
// evaluation.
type ExitAction string

const (
	ExitActionHold       ExitAction = "hold"
	ExitActionStopLoss   ExitAction = "stop_loss"
	ExitActionTakeProfit ExitAction = "take_profit"
)
