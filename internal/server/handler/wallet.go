package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/moneymaker/moneymaker/internal/domain"
)

// WalletService defines the ledger methods the wallet handler requires.
type WalletService interface {
	GetWallet(ctx context.Context, mode domain.Mode) (domain.Wallet, error)
	Deposit(ctx context.Context, mode domain.Mode, amount float64, description string) (domain.Wallet, error)
	Withdraw(ctx context.Context, mode domain.Mode, amount float64, description string) (domain.Wallet, error)
}

// WalletHandler serves wallet-related HTTP endpoints.
type WalletHandler struct {
	ledger WalletService
	logger *slog.Logger
}

// NewWalletHandler creates a WalletHandler with the given ledger and logger.
func NewWalletHandler(ledger WalletService, logger *slog.Logger) *WalletHandler {
	return &WalletHandler{
		ledger: ledger,
		logger: logger,
	}
}

// GetWallet returns the wallet for a trading mode.
// GET /api/wallet/{mode}
func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	mode := domain.Mode(pathParam(r, "mode"))
	if !mode.Valid() {
		writeError(w, http.StatusBadRequest, "invalid trading mode")
		return
	}

	wallet, err := h.ledger.GetWallet(r.Context(), mode)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "wallet not found")
		case errors.Is(err, domain.ErrModeDisabled):
			writeError(w, http.StatusConflict, "trading mode is disabled")
		default:
			h.logger.ErrorContext(r.Context(), "handler: get wallet failed",
				slog.String("mode", string(mode)),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to get wallet")
		}
		return
	}

	writeJSON(w, http.StatusOK, wallet)
}

// adjustRequest is the body for deposit and withdraw endpoints.
type adjustRequest struct {
	Mode        domain.Mode `json:"mode"`
	Amount      float64     `json:"amount"`
	Description string      `json:"description"`
}

// Deposit credits the paper wallet.
// POST /api/wallet/deposit
func (h *WalletHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, h.ledger.Deposit)
}

// Withdraw debits the paper wallet. Fails when the balance cannot
// cover the amount; no partial withdrawal happens.
// POST /api/wallet/withdraw
func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, h.ledger.Withdraw)
}

func (h *WalletHandler) adjust(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, mode domain.Mode, amount float64, description string) (domain.Wallet, error),
) {
	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Mode.Valid() {
		writeError(w, http.StatusBadRequest, "invalid trading mode")
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	wallet, err := op(r.Context(), req.Mode, req.Amount, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInsufficientFunds):
			writeError(w, http.StatusUnprocessableEntity, "insufficient funds")
		case errors.Is(err, domain.ErrInvalidMode):
			writeError(w, http.StatusBadRequest, "operation not supported for this mode")
		case errors.Is(err, domain.ErrInvalidAmount):
			writeError(w, http.StatusBadRequest, "invalid amount")
		default:
			h.logger.ErrorContext(r.Context(), "handler: wallet adjust failed",
				slog.String("mode", string(req.Mode)),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to update wallet")
		}
		return
	}

	writeJSON(w, http.StatusOK, wallet)
}
