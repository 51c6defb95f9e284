package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/moneymaker/moneymaker/internal/domain"
)

// AccountClient talks to the key-authenticated account API used for
// live trading. It implements domain.LiveAccount; the custodial account
// is the source of truth for live balances and positions, so nothing
// fetched here is cached.
type AccountClient struct {
	baseURL    string
	apiKey     string
	secret     string
	passphrase string
	httpClient *http.Client
}

var _ domain.LiveAccount = (*AccountClient)(nil)

// NewAccountClient creates an account API client.
//
// baseURL is the trading API root, e.g. "https://clob.polymarket.com".
func NewAccountClient(baseURL, apiKey, secret, passphrase string) *AccountClient {
	return &AccountClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		secret:     secret,
		passphrase: passphrase,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Balance returns the account's available balance in currency units.
func (c *AccountClient) Balance(ctx context.Context) (float64, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/balance", nil)
	if err != nil {
		return 0, fmt.Errorf("polymarket/account: get balance: %w", err)
	}

	var out APIBalance
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("polymarket/account: decode balance: %w", err)
	}
	return float64(out.Balance), nil
}

// OpenPositions returns the account's open positions.
func (c *AccountClient) OpenPositions(ctx context.Context) ([]domain.Position, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/positions", nil)
	if err != nil {
		return nil, fmt.Errorf("polymarket/account: get positions: %w", err)
	}

	var apiPositions []APIPosition
	if err := json.Unmarshal(body, &apiPositions); err != nil {
		return nil, fmt.Errorf("polymarket/account: decode positions: %w", err)
	}

	positions := make([]domain.Position, 0, len(apiPositions))
	for i := range apiPositions {
		positions = append(positions, apiPositions[i].ToDomainPosition())
	}
	return positions, nil
}

// PlaceOrder submits an order and returns the resulting receipt. A
// rejection from the API becomes a failed order, not an error.
func (c *AccountClient) PlaceOrder(ctx context.Context, marketID, outcome string, side domain.OrderSide, price, quantity float64) (domain.Order, error) {
	payload := map[string]any{
		"market":  marketID,
		"outcome": outcome,
		"side":    string(side),
		"price":   price,
		"size":    quantity,
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/order", payload)
	if err != nil {
		return domain.Order{}, fmt.Errorf("polymarket/account: place order: %w", err)
	}

	var result APIOrderResult
	if err := json.Unmarshal(body, &result); err != nil {
		return domain.Order{}, fmt.Errorf("polymarket/account: decode order result: %w", err)
	}

	order := domain.Order{
		ID:         result.OrderID,
		MarketID:   marketID,
		Outcome:    outcome,
		Side:       side,
		Price:      price,
		Quantity:   quantity,
		TotalValue: price * quantity,
		CreatedAt:  time.Now().UTC(),
	}
	if !result.Success {
		order.Status = domain.OrderStatusFailed
		order.Error = result.ErrorMsg
		return order, nil
	}

	switch result.Status {
	case "matched", "filled":
		order.Status = domain.OrderStatusFilled
	case "partially_filled":
		order.Status = domain.OrderStatusPartiallyFilled
	default:
		order.Status = domain.OrderStatusPending
	}
	return order, nil
}

func (c *AccountClient) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("POLY-API-KEY", c.apiKey)
	req.Header.Set("POLY-SECRET", c.secret)
	req.Header.Set("POLY-PASSPHRASE", c.passphrase)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, domain.ErrUnauthorized
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, domain.ErrRateLimited
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
