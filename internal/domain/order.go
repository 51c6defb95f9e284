package domain

import "time"

// OrderSide indicates whether this is a buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderStatus tracks the order lifecycle.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusFailed          OrderStatus = "failed"
)

// Placed reports whether the order counts as successfully placed.
func (s OrderStatus) Placed() bool {
	return s == OrderStatusFilled || s == OrderStatusPartiallyFilled || s == OrderStatusPending
}

// Order is the receipt returned by a ledger buy or sell. It is not
// persisted state that other components read back.
type Order struct {
	ID         string      `json:"id"`
	MarketID   string      `json:"market_id"`
	Outcome    string      `json:"outcome"`
	Side       OrderSide   `json:"side"`
	Price      float64     `json:"price"`
	Quantity   float64     `json:"quantity"`
	TotalValue float64     `json:"total_value"`
	Status     OrderStatus `json:"status"`
	Error      string      `json:"error,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// FailedOrder builds an order receipt in the failed state.
func FailedOrder(marketID, outcome string, side OrderSide, price, quantity float64, reason string) Order {
	return Order{
		MarketID:   marketID,
		Outcome:    outcome,
		Side:       side,
		Price:      price,
		Quantity:   quantity,
		TotalValue: price * quantity,
		Status:     OrderStatusFailed,
		Error:      reason,
		CreatedAt:  time.Now().UTC(),
	}
}
