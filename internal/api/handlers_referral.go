/**
 * @description
 * This file contains the internal HTTP handler the checkout flow calls when a
 * buyer applies a dealer's referral code to an order. The route sits behind
 * InternalKeyMiddleware: it is a service-to-service call, not a storefront
 * session call, because the checkout flow knows the order totals.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/restomart/wallet-service/internal/app"
	"github.com/restomart/wallet-service/internal/domain"
	"github.com/restomart/wallet-service/internal/store"
)

// ApplyReferralCodeHandler credits the referring dealer's commission and
// returns the shipping discount the checkout flow should apply.
func (h *WalletHandlers) ApplyReferralCodeHandler(w http.ResponseWriter, r *http.Request) {
	var payload domain.ApplyReferralCodePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	code := strings.TrimSpace(payload.Code)
	if code == "" || payload.OrderID == "" {
		h.writeError(w, http.StatusBadRequest, "Referral code and order ID are required")
		return
	}

	if !h.consumeRateLimit(w, r, "referral_apply", payload.BuyerAccountID.String(), h.referralApplyPerMin) {
		return
	}

	orderTotal, err := app.ParseAmount(payload.OrderTotal)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Order total must be a valid decimal number")
		return
	}
	shippingCost, err := app.ParseAmount(payload.ShippingCost)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Shipping cost must be a valid decimal number")
		return
	}

	result, err := h.service.ApplyReferralCode(r.Context(), code, payload.OrderID, orderTotal, shippingCost, payload.BuyerName, payload.BuyerAccountID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrReferralCodeNotFound):
			h.writeError(w, http.StatusNotFound, "Referral code not found")
		case errors.Is(err, app.ErrSelfReferral):
			h.writeError(w, http.StatusUnprocessableEntity, "A referral code cannot be applied to its owner's order")
		case errors.Is(err, store.ErrWalletNotFound):
			h.writeError(w, http.StatusNotFound, "Referrer wallet not found")
		default:
			log.Printf("level=error component=api msg=\"referral code application failed\" order_id=%s err=%v", payload.OrderID, err)
			h.writeError(w, http.StatusInternalServerError, "Unable to apply referral code")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}
