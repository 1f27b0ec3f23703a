/**
 * @description
 * This file contains the HTTP handlers for the admin tooling surface: the
 * pending-withdrawal work queue, approve/reject decisions, and ledger
 * monitoring. All routes here sit behind AuthMiddleware + AdminGuard; the
 * handlers still pass the explicit capability down so the service layer
 * enforces authority independently of the routing setup.
 */

package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/restomart/wallet-service/internal/app"
	"github.com/restomart/wallet-service/internal/domain"
	"github.com/restomart/wallet-service/internal/store"
)

// PendingWithdrawalsHandler returns every pending withdrawal request across
// accounts, oldest first.
func (h *WalletHandlers) PendingWithdrawalsHandler(w http.ResponseWriter, r *http.Request) {
	actor := CapabilityFromContext(r.Context())

	reqs, err := h.service.ListPendingWithdrawalRequests(r.Context(), actor)
	if err != nil {
		if errors.Is(err, app.ErrNotAuthorized) {
			h.writeError(w, http.StatusForbidden, "Admin privileges required")
			return
		}
		log.Printf("level=error component=api msg=\"pending withdrawal listing failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Unable to fetch pending withdrawals")
		return
	}
	if reqs == nil {
		reqs = []domain.WithdrawalRequest{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"pending_withdrawals": reqs})
}

// ApproveWithdrawalHandler approves a pending withdrawal request.
func (h *WalletHandlers) ApproveWithdrawalHandler(w http.ResponseWriter, r *http.Request) {
	h.decideWithdrawal(w, r, h.service.ApproveWithdrawal)
}

// RejectWithdrawalHandler rejects a pending withdrawal request and refunds the hold.
func (h *WalletHandlers) RejectWithdrawalHandler(w http.ResponseWriter, r *http.Request) {
	h.decideWithdrawal(w, r, h.service.RejectWithdrawal)
}

type decisionFunc func(ctx context.Context, requestID, accountID uuid.UUID, actor app.Capability, note string) (*domain.WithdrawalRequest, error)

func (h *WalletHandlers) decideWithdrawal(w http.ResponseWriter, r *http.Request, decide decisionFunc) {
	actor := CapabilityFromContext(r.Context())

	requestID, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Malformed request ID")
		return
	}
	accountID, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Malformed account ID")
		return
	}

	var payload domain.WithdrawalDecisionPayload
	if r.Body != nil {
		// The decision note is optional; an empty body is fine.
		_ = json.NewDecoder(r.Body).Decode(&payload)
	}

	req, err := decide(r.Context(), requestID, accountID, actor, payload.Note)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrNotAuthorized):
			h.writeError(w, http.StatusForbidden, "Admin privileges required")
		case errors.Is(err, store.ErrWithdrawalNotFound):
			h.writeError(w, http.StatusNotFound, "Withdrawal request not found")
		case errors.Is(err, store.ErrRequestNotPending):
			h.writeError(w, http.StatusConflict, "Withdrawal request has already been decided")
		case errors.Is(err, store.ErrWalletNotFound):
			h.writeError(w, http.StatusNotFound, "Wallet not found")
		default:
			log.Printf("level=error component=api msg=\"withdrawal decision failed\" request_id=%s err=%v", requestID, err)
			h.writeError(w, http.StatusInternalServerError, "Unable to process withdrawal decision")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"request_id": req.ID.String(),
		"status":     req.Status,
		"amount":     req.Amount.StringFixed(2),
	})
}

// AdminTransactionsHandler returns every ledger record for monitoring.
func (h *WalletHandlers) AdminTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	actor := CapabilityFromContext(r.Context())

	txs, err := h.service.ListAllTransactions(r.Context(), actor)
	if err != nil {
		if errors.Is(err, app.ErrNotAuthorized) {
			h.writeError(w, http.StatusForbidden, "Admin privileges required")
			return
		}
		log.Printf("level=error component=api msg=\"admin transaction listing failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Unable to fetch transactions")
		return
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"transactions": txs})
}
