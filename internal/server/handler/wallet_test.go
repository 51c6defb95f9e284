package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneymaker/moneymaker/internal/domain"
)

type fakeWalletService struct {
	wallet      domain.Wallet
	getErr      error
	depositErr  error
	withdrawErr error

	lastAmount float64
	lastDesc   string
}

func (f *fakeWalletService) GetWallet(_ context.Context, mode domain.Mode) (domain.Wallet, error) {
	if f.getErr != nil {
		return domain.Wallet{}, f.getErr
	}
	return f.wallet, nil
}

func (f *fakeWalletService) Deposit(_ context.Context, _ domain.Mode, amount float64, desc string) (domain.Wallet, error) {
	if f.depositErr != nil {
		return domain.Wallet{}, f.depositErr
	}
	f.lastAmount, f.lastDesc = amount, desc
	w := f.wallet
	w.Balance += amount
	return w, nil
}

func (f *fakeWalletService) Withdraw(_ context.Context, _ domain.Mode, amount float64, desc string) (domain.Wallet, error) {
	if f.withdrawErr != nil {
		return domain.Wallet{}, f.withdrawErr
	}
	f.lastAmount, f.lastDesc = amount, desc
	w := f.wallet
	w.Balance -= amount
	return w, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestGetWallet(t *testing.T) {
	svc := &fakeWalletService{wallet: domain.Wallet{ID: "w1", Mode: domain.ModePaper, Balance: 900, Currency: "USDC"}}
	h := NewWalletHandler(svc, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/wallet/paper", nil)
	req.SetPathValue("mode", "paper")
	rec := httptest.NewRecorder()
	h.GetWallet(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.Wallet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "w1", got.ID)
	assert.Equal(t, 900.0, got.Balance)
}

func TestGetWalletInvalidMode(t *testing.T) {
	h := NewWalletHandler(&fakeWalletService{}, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/wallet/turbo", nil)
	req.SetPathValue("mode", "turbo")
	rec := httptest.NewRecorder()
	h.GetWallet(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetWalletModeDisabled(t *testing.T) {
	h := NewWalletHandler(&fakeWalletService{getErr: domain.ErrModeDisabled}, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/wallet/live", nil)
	req.SetPathValue("mode", "live")
	rec := httptest.NewRecorder()
	h.GetWallet(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeposit(t *testing.T) {
	svc := &fakeWalletService{wallet: domain.Wallet{Mode: domain.ModePaper, Balance: 100}}
	h := NewWalletHandler(svc, discardLogger())

	body := `{"mode":"paper","amount":50,"description":"top up"}`
	req := httptest.NewRequest(http.MethodPost, "/api/wallet/deposit", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Deposit(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 50.0, svc.lastAmount)
	assert.Equal(t, "top up", svc.lastDesc)

	var got domain.Wallet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 150.0, got.Balance)
}

func TestDepositRejectsNonPositiveAmount(t *testing.T) {
	h := NewWalletHandler(&fakeWalletService{}, discardLogger())

	body := `{"mode":"paper","amount":0}`
	req := httptest.NewRequest(http.MethodPost, "/api/wallet/deposit", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Deposit(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWithdrawInsufficientFunds(t *testing.T) {
	h := NewWalletHandler(&fakeWalletService{withdrawErr: domain.ErrInsufficientFunds}, discardLogger())

	body := `{"mode":"paper","amount":5000}`
	req := httptest.NewRequest(http.MethodPost, "/api/wallet/withdraw", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Withdraw(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient funds")
}

func TestWithdrawInvalidBody(t *testing.T) {
	h := NewWalletHandler(&fakeWalletService{}, discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/wallet/withdraw", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.Withdraw(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
