package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/moneymaker/moneymaker/internal/domain"
)

// TransactionHandler serves the transaction history endpoint.
type TransactionHandler struct {
	ledger       WalletService
	transactions domain.TransactionStore
	logger       *slog.Logger
}

// NewTransactionHandler creates a TransactionHandler.
func NewTransactionHandler(ledger WalletService, transactions domain.TransactionStore, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{
		ledger:       ledger,
		transactions: transactions,
		logger:       logger,
	}
}

// listTransactionsResponse wraps the transaction history response.
type listTransactionsResponse struct {
	Transactions []domain.Transaction `json:"transactions"`
	Count        int                  `json:"count"`
	Limit        int                  `json:"limit"`
	Offset       int                  `json:"offset"`
}

// ListTransactions returns the transaction history for a mode's wallet,
// newest first.
// GET /api/transactions?mode=paper&limit=50&offset=0
func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	mode := domain.Mode(r.URL.Query().Get("mode"))
	if mode == "" {
		mode = domain.ModePaper
	}
	if !mode.Valid() {
		writeError(w, http.StatusBadRequest, "invalid trading mode")
		return
	}
	opts := parseListOpts(r)

	wallet, err := h.ledger.GetWallet(r.Context(), mode)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusOK, listTransactionsResponse{
				Transactions: []domain.Transaction{},
				Limit:        opts.Limit,
				Offset:       opts.Offset,
			})
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: wallet lookup failed",
			slog.String("mode", string(mode)),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to look up wallet")
		return
	}

	txns, err := h.transactions.ListByWallet(r.Context(), wallet.ID, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list transactions failed",
			slog.String("wallet_id", wallet.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}

	if txns == nil {
		txns = []domain.Transaction{}
	}
	writeJSON(w, http.StatusOK, listTransactionsResponse{
		Transactions: txns,
		Count:        len(txns),
		Limit:        opts.Limit,
		Offset:       opts.Offset,
	})
}
