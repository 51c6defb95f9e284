package domain

import "context"

// MarketSource fetches raw market data from the exchange's public API.
type MarketSource interface {
	FetchMarkets(ctx context.Context, activeOnly bool, limit, offset int) ([]Market, error)
	FetchMarket(ctx context.Context, id string) (Market, error)
}

// SuggestionSource asks a model for ranked trade suggestions over a set
// of candidate markets.
type SuggestionSource interface {
	Analyze(ctx context.Context, markets []Market, maxSuggestions int) ([]Suggestion, error)
}

// LiveAccount is the external custodial account used in live mode. The
// core holds no independent copy of its balance or positions.
type LiveAccount interface {
	Balance(ctx context.Context) (float64, error)
	OpenPositions(ctx context.Context) ([]Position, error)
	PlaceOrder(ctx context.Context, marketID, outcome string, side OrderSide, price, quantity float64) (Order, error)
}
