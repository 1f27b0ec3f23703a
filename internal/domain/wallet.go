/**
 * @description
 * This file defines the core domain models for the wallet-service.
 * These structs represent the main entities and data transfer objects (DTOs)
 * used throughout the service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Using distinct types for API requests, database models, and event payloads
 *   ensures clear separation of concerns and type safety.
 * - Monetary amounts are `decimal.Decimal` (backed by NUMERIC(12,2) in Postgres)
 *   to avoid floating-point inaccuracies with financial data.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction types. Every balance-affecting event in the system is one of these.
const (
	TxTypeDeposit           = "deposit"
	TxTypeWithdrawal        = "withdrawal"
	TxTypeCommission        = "commission"
	TxTypeWithdrawalRequest = "withdrawal_request"
)

// Transaction statuses.
const (
	TxStatusCompleted = "completed"
	TxStatusPending   = "pending"
	TxStatusApproved  = "approved"
	TxStatusRejected  = "rejected"
)

// Withdrawal request statuses. `pending` is the only non-terminal state.
const (
	WithdrawalStatusPending  = "pending"
	WithdrawalStatusApproved = "approved"
	WithdrawalStatusRejected = "rejected"
)

// Withdrawal payout methods.
const (
	WithdrawalMethodBankTransfer = "bank_transfer"
	WithdrawalMethodCard         = "card"
)

// Account roles as projected from the account directory. Only dealer accounts
// hold referral codes and can earn commissions.
const (
	RoleBuyer  = "buyer"
	RoleDealer = "dealer"
	RoleAdmin  = "admin"
)

// Wallet represents an account's balance. There is exactly one wallet per
// account, created with a zero balance when the account is provisioned.
type Wallet struct {
	AccountID uuid.UUID       `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Transaction is the central ledger record for any balance movement. The sum of
// all transaction amounts for an account always equals the wallet balance.
// Records are immutable once completed; only the status (and description, on
// withdrawal approval) of a pending withdrawal-request transaction is ever updated.
type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	AccountID   uuid.UUID       `json:"account_id"`
	Type        string          `json:"type"`   // 'deposit', 'withdrawal', 'commission', 'withdrawal_request'
	Status      string          `json:"status"` // 'completed', 'pending', 'approved', 'rejected'
	Amount      decimal.Decimal `json:"amount"` // signed; holds and payouts are negative
	Description string          `json:"description"`
	RelatedUser *string         `json:"related_user,omitempty"`
	OrderID     *string         `json:"order_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// WithdrawalRequest tracks a payout request through its lifecycle:
// pending -> approved | rejected. Both outcomes are terminal and only an admin
// can drive the transition; there is no user-side cancellation path.
type WithdrawalRequest struct {
	ID            uuid.UUID       `json:"id"`
	AccountID     uuid.UUID       `json:"account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method"` // 'bank_transfer', 'card'
	IBAN          *string         `json:"iban,omitempty"`
	Status        string          `json:"status"`
	TransactionID uuid.UUID       `json:"transaction_id"` // the mirrored hold transaction
	DecidedBy     *uuid.UUID      `json:"decided_by,omitempty"`
	DecisionNote  *string         `json:"decision_note,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	ProcessedAt   *time.Time      `json:"processed_at,omitempty"`
}

// ReferralUsage records one application of a dealer's referral code at checkout,
// attached to the referring account.
type ReferralUsage struct {
	ID                uuid.UUID       `json:"id"`
	ReferrerAccountID uuid.UUID       `json:"referrer_account_id"`
	BuyerAccountID    uuid.UUID       `json:"buyer_account_id"`
	BuyerName         string          `json:"buyer_name"`
	OrderID           string          `json:"order_id"`
	OrderTotal        decimal.Decimal `json:"order_total"`
	ShippingCost      decimal.Decimal `json:"shipping_cost"`
	CommissionAmount  decimal.Decimal `json:"commission_amount"`
	CreatedAt         time.Time       `json:"created_at"`
}

// Account is a read-only projection of the account directory, containing only
// the fields the wallet-service needs: existence, role, and referral code.
type Account struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	ReferralCode *string   `json:"referral_code,omitempty"`
}

// WithdrawalRequestPayload is the DTO for incoming withdrawal API requests.
type WithdrawalRequestPayload struct {
	Amount string `json:"amount"` // decimal string, e.g. "50.00"
	Method string `json:"method"`
	IBAN   string `json:"iban,omitempty"`
}

// ApplyReferralCodePayload is the DTO the checkout flow sends when a buyer
// applies a referral code to an order.
type ApplyReferralCodePayload struct {
	Code           string    `json:"code"`
	OrderID        string    `json:"order_id"`
	OrderTotal     string    `json:"order_total"`    // decimal string
	ShippingCost   string    `json:"shipping_cost"`  // decimal string
	BuyerName      string    `json:"buyer_name"`
	BuyerAccountID uuid.UUID `json:"buyer_account_id"`
}

// ReferralResult is returned to the checkout flow on a successful referral
// application. The discount is applied by the caller to the buyer's shipping
// cost; the buyer's wallet is never touched by this service.
type ReferralResult struct {
	Success  bool            `json:"success"`
	Discount decimal.Decimal `json:"discount"`
}

// WithdrawalDecisionPayload is the DTO for admin approve/reject requests.
type WithdrawalDecisionPayload struct {
	Note string `json:"note,omitempty"`
}
