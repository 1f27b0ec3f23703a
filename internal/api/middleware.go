/**
 * @description
 * This file contains custom middleware for the HTTP router. The storefront
 * issues HMAC-signed JWTs for its sessions; this middleware validates them and
 * places the authenticated account id and role into the request context. Admin
 * authority is expressed as an explicit capability derived from the role claim,
 * never re-checked from role strings deeper in the stack.
 *
 * @dependencies
 * - context, net/http, strings: Standard Go libraries.
 * - github.com/golang-jwt/jwt/v5: JWT parsing and validation.
 */

package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/restomart/wallet-service/internal/app"
	"github.com/restomart/wallet-service/internal/domain"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	accountIDKey contextKey = "accountID"
	accountRole  contextKey = "accountRole"
)

// AuthMiddleware creates a middleware that validates storefront-issued JWTs.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			// Extract the token from "Bearer <token>"
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				http.Error(w, "Invalid token claims", http.StatusUnauthorized)
				return
			}

			sub, ok := claims["sub"].(string)
			if !ok {
				http.Error(w, "Account ID not found in token", http.StatusUnauthorized)
				return
			}
			accountID, err := uuid.Parse(sub)
			if err != nil {
				http.Error(w, "Malformed account ID in token", http.StatusUnauthorized)
				return
			}

			role, _ := claims["role"].(string)

			ctx := context.WithValue(r.Context(), accountIDKey, accountID)
			ctx = context.WithValue(ctx, accountRole, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminGuard rejects requests whose token does not carry the admin role. It
// runs after AuthMiddleware.
func AdminGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, _ := r.Context().Value(accountRole).(string)
		if role != domain.RoleAdmin {
			http.Error(w, "Admin privileges required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// InternalKeyMiddleware authenticates service-to-service calls (the checkout
// flow, the payment bridge) with a shared internal API key.
func InternalKeyMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := strings.TrimSpace(r.Header.Get("X-Internal-API-Key"))
			if provided == "" || provided != strings.TrimSpace(apiKey) {
				http.Error(w, "Invalid internal API key", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetAccountID retrieves the authenticated account id from the request context.
func GetAccountID(ctx context.Context) (uuid.UUID, bool) {
	accountID, ok := ctx.Value(accountIDKey).(uuid.UUID)
	return accountID, ok
}

// CapabilityFromContext builds the admin capability the service layer expects
// from the authenticated request context.
func CapabilityFromContext(ctx context.Context) app.Capability {
	accountID, _ := ctx.Value(accountIDKey).(uuid.UUID)
	role, _ := ctx.Value(accountRole).(string)
	return app.Capability{
		ActorID:           accountID,
		ManageWithdrawals: role == domain.RoleAdmin,
	}
}
