/**
 * @description
 * This file sets up the HTTP router for the wallet-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies any
 * necessary middleware, such as for authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// WalletRoutes creates and returns a new router for the wallet service.
func WalletRoutes(h *WalletHandlers, jwtSecret, internalAPIKey string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Account-facing routes, authenticated with a storefront session JWT.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwtSecret))

		r.Get("/wallet/balance", h.BalanceHandler)
		r.Get("/wallet/transactions", h.TransactionsHandler)
		r.Post("/wallet/withdrawals", h.RequestWithdrawalHandler)
		r.Get("/wallet/referrals", h.ReferralUsagesHandler)

		// Admin tooling: the withdrawal work queue and ledger monitoring.
		r.Group(func(r chi.Router) {
			r.Use(AdminGuard)

			r.Get("/admin/withdrawals/pending", h.PendingWithdrawalsHandler)
			r.Post("/admin/withdrawals/{requestID}/accounts/{accountID}/approve", h.ApproveWithdrawalHandler)
			r.Post("/admin/withdrawals/{requestID}/accounts/{accountID}/reject", h.RejectWithdrawalHandler)
			r.Get("/admin/transactions", h.AdminTransactionsHandler)
		})
	})

	// Internal service-to-service routes, authenticated with a shared API key.
	r.Group(func(r chi.Router) {
		r.Use(InternalKeyMiddleware(internalAPIKey))

		r.Post("/internal/referrals/apply", h.ApplyReferralCodeHandler)
	})

	return r
}
