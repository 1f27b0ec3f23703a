/**
 * @description
 * This file contains the HTTP handlers for the wallet-service's account-facing
 * API endpoints. Handlers are responsible for parsing incoming requests, calling
 * the appropriate methods on the application service, and writing the HTTP
 * response. They act as the bridge between the web layer and the business logic.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/restomart/wallet-service/internal/app"
	"github.com/restomart/wallet-service/internal/domain"
	"github.com/restomart/wallet-service/internal/store"
)

// WalletHandlers holds the application service and rate limiter that handlers use.
type WalletHandlers struct {
	service             *app.Service
	rateLimiter         *app.RedisRateLimiter
	withdrawalPerMin    int
	referralApplyPerMin int
}

// NewWalletHandlers creates a new instance of WalletHandlers.
func NewWalletHandlers(service *app.Service, rateLimiter *app.RedisRateLimiter, withdrawalPerMin, referralApplyPerMin int) *WalletHandlers {
	return &WalletHandlers{
		service:             service,
		rateLimiter:         rateLimiter,
		withdrawalPerMin:    withdrawalPerMin,
		referralApplyPerMin: referralApplyPerMin,
	}
}

// withdrawalRequestResponse mirrors the shape the storefront's account pages expect.
type withdrawalRequestResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
	Amount    string `json:"amount"`
	Method    string `json:"method"`
	Message   string `json:"message"`
}

// BalanceHandler returns the authenticated account's wallet balance.
func (h *WalletHandlers) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	balance, err := h.service.GetBalance(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, store.ErrWalletNotFound) {
			h.writeError(w, http.StatusNotFound, "Wallet not found")
			return
		}
		log.Printf("level=error component=api msg=\"balance lookup failed\" account_id=%s err=%v", accountID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to fetch balance")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"account_id": accountID.String(),
		"balance":    balance.StringFixed(2),
	})
}

// TransactionsHandler returns the authenticated account's ledger, newest first.
func (h *WalletHandlers) TransactionsHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	txs, err := h.service.ListTransactions(r.Context(), accountID)
	if err != nil {
		log.Printf("level=error component=api msg=\"transaction listing failed\" account_id=%s err=%v", accountID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to fetch transactions")
		return
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"transactions": txs})
}

// RequestWithdrawalHandler creates a pending withdrawal request and applies the
// balance hold.
func (h *WalletHandlers) RequestWithdrawalHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if !h.consumeRateLimit(w, r, "withdrawal_request", accountID.String(), h.withdrawalPerMin) {
		return
	}

	var payload domain.WithdrawalRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	amount, err := app.ParseAmount(payload.Amount)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Amount must be a valid decimal number")
		return
	}

	req, err := h.service.RequestWithdrawal(r.Context(), accountID, amount, payload.Method, payload.IBAN)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidAmount):
			h.writeError(w, http.StatusBadRequest, "Amount must be greater than zero")
		case errors.Is(err, app.ErrMissingIBAN):
			h.writeError(w, http.StatusBadRequest, "IBAN is required for bank transfers")
		case errors.Is(err, app.ErrInvalidMethod):
			h.writeError(w, http.StatusBadRequest, "Unsupported withdrawal method")
		case errors.Is(err, store.ErrInsufficientFunds):
			h.writeError(w, http.StatusUnprocessableEntity, "Insufficient balance")
		case errors.Is(err, store.ErrWalletNotFound):
			h.writeError(w, http.StatusNotFound, "Wallet not found")
		default:
			log.Printf("level=error component=api msg=\"withdrawal request failed\" account_id=%s err=%v", accountID, err)
			h.writeError(w, http.StatusInternalServerError, "Unable to create withdrawal request")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, withdrawalRequestResponse{
		RequestID: req.ID.String(),
		Status:    req.Status,
		Amount:    req.Amount.StringFixed(2),
		Method:    req.Method,
		Message:   "Withdrawal requested; funds are held until an admin decision",
	})
}

// ReferralUsagesHandler returns the authenticated dealer's referral history.
func (h *WalletHandlers) ReferralUsagesHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	usages, err := h.service.ListReferralUsages(r.Context(), accountID)
	if err != nil {
		log.Printf("level=error component=api msg=\"referral usage listing failed\" account_id=%s err=%v", accountID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to fetch referral usages")
		return
	}
	if usages == nil {
		usages = []domain.ReferralUsage{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"referral_usages": usages})
}

// consumeRateLimit applies the distributed rate limit for one scope/subject pair.
// Limiter errors fail open: a Redis outage must not take wallet operations down.
func (h *WalletHandlers) consumeRateLimit(w http.ResponseWriter, r *http.Request, scope, subject string, limit int) bool {
	count, retryAfter, err := h.rateLimiter.ConsumeRateLimit(r.Context(), scope, subject, limit, time.Minute)
	if err != nil {
		log.Printf("level=warn component=api msg=\"rate limiter unavailable; allowing request\" scope=%s err=%v", scope, err)
		return true
	}
	if limit > 0 && count > limit {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		h.writeError(w, http.StatusTooManyRequests, "Too many requests; please retry later")
		return false
	}
	return true
}

// writeJSON is a helper for writing JSON responses.
func (h *WalletHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *WalletHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
