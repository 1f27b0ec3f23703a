package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DepositSettledEvent is the message emitted by the payment gateway bridge when
// a wallet top-up has been confirmed. The wallet-service consumes it and credits
// the account's ledger.
type DepositSettledEvent struct {
	EventID    string          `json:"event_id"`
	AccountID  uuid.UUID       `json:"account_id"`
	Amount     decimal.Decimal `json:"amount"`
	Reference  string          `json:"reference"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// AccountCreatedEvent is emitted by the account directory when a new account is
// provisioned. The wallet-service consumes it to create the zero-balance wallet.
type AccountCreatedEvent struct {
	EventID    string    `json:"event_id"`
	AccountID  uuid.UUID `json:"account_id"`
	Role       string    `json:"role"`
	OccurredAt time.Time `json:"occurred_at"`
}

// WithdrawalDecidedEvent is published when an admin approves or rejects a
// withdrawal request, for the storefront's notification pipeline.
type WithdrawalDecidedEvent struct {
	RequestID  uuid.UUID       `json:"request_id"`
	AccountID  uuid.UUID       `json:"account_id"`
	Amount     decimal.Decimal `json:"amount"`
	Status     string          `json:"status"` // 'approved' or 'rejected'
	DecidedBy  uuid.UUID       `json:"decided_by"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// CommissionCreditedEvent is published when a referral commission is credited to
// a dealer's wallet.
type CommissionCreditedEvent struct {
	ReferrerAccountID uuid.UUID       `json:"referrer_account_id"`
	BuyerName         string          `json:"buyer_name"`
	OrderID           string          `json:"order_id"`
	Amount            decimal.Decimal `json:"amount"`
	OccurredAt        time.Time       `json:"occurred_at"`
}
