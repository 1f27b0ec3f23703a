/**
 * @description
 * This file contains the core business logic for the wallet-service. The `Service`
 * struct is the single owner of ledger semantics: every balance movement in the
 * system folds through its append primitive, so the wallet balance always equals
 * the sum of the recorded transactions.
 *
 * Key features:
 * - Ledger operations: append, balance lookup, history listing.
 * - Deposit crediting for settled top-ups (consumed from the payment bridge).
 * - Wallet provisioning when the account directory announces a new account.
 *
 * @dependencies
 * - context, errors, fmt, log: Standard Go libraries.
 * - github.com/google/uuid: For UUID handling.
 * - github.com/shopspring/decimal: Exact decimal arithmetic for money amounts.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/rabbitmq: For publishing wallet events.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/restomart/wallet-service/internal/domain"
	"github.com/restomart/wallet-service/internal/store"
	"github.com/restomart/wallet-service/pkg/rabbitmq"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount   = errors.New("amount must be greater than zero")
	ErrMalformedAmount = errors.New("amount is not a valid decimal number")
	ErrMissingIBAN     = errors.New("iban is required for bank transfers")
	ErrInvalidMethod   = errors.New("unsupported withdrawal method")
	ErrSelfReferral    = errors.New("referral code cannot be applied by its own owner")
	ErrNotAuthorized   = errors.New("actor is not authorized for this operation")
)

// Capability is the explicit proof of authority an actor presents for admin
// operations. The HTTP layer derives it from the caller's token; the service
// never inspects role strings itself.
type Capability struct {
	ActorID           uuid.UUID
	ManageWithdrawals bool
}

// Service provides the core business logic for the wallet ledger, the
// withdrawal workflow, and the referral commission engine.
type Service struct {
	repo           store.Repository
	events         rabbitmq.Publisher
	commissionRate decimal.Decimal // percent, e.g. 5 means 5%
	discountRate   decimal.Decimal // percent; tuned independently of the commission rate
}

// NewService creates a new wallet service instance. Rates are percentages
// (5 means 5% of the shipping cost).
func NewService(repo store.Repository, events rabbitmq.Publisher, commissionRate, discountRate decimal.Decimal) *Service {
	return &Service{
		repo:           repo,
		events:         events,
		commissionRate: commissionRate,
		discountRate:   discountRate,
	}
}

// ParseAmount converts a decimal string from an API payload into a money
// amount. Rejects anything that is not a finite decimal number.
func ParseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, ErrMalformedAmount
	}
	return amount, nil
}

// AppendTransaction is the single mutation primitive of the ledger: it adjusts
// the wallet balance by `amount` and appends the record in one atomic unit.
func (s *Service) AppendTransaction(ctx context.Context, accountID uuid.UUID, txType, description, status string, amount decimal.Decimal, relatedUser, orderID *string) (*domain.Transaction, error) {
	tx := &domain.Transaction{
		ID:          uuid.New(),
		AccountID:   accountID,
		Type:        txType,
		Status:      status,
		Amount:      amount,
		Description: description,
		RelatedUser: relatedUser,
		OrderID:     orderID,
	}
	if err := s.repo.AppendTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to append ledger transaction: %w", err)
	}
	return tx, nil
}

// GetBalance returns the account's current wallet balance.
func (s *Service) GetBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	return s.repo.GetWalletBalance(ctx, accountID)
}

// ListTransactions returns the account's ledger, newest first.
func (s *Service) ListTransactions(ctx context.Context, accountID uuid.UUID) ([]domain.Transaction, error) {
	return s.repo.ListTransactionsByAccountID(ctx, accountID)
}

// ListAllTransactions returns every ledger record for admin monitoring.
func (s *Service) ListAllTransactions(ctx context.Context, actor Capability) ([]domain.Transaction, error) {
	if !actor.ManageWithdrawals {
		return nil, ErrNotAuthorized
	}
	return s.repo.ListAllTransactions(ctx)
}

// Deposit credits a settled top-up to the account's ledger as a completed
// deposit transaction.
func (s *Service) Deposit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, description string) (*domain.Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}
	return s.AppendTransaction(ctx, accountID, domain.TxTypeDeposit, description, domain.TxStatusCompleted, amount, nil, nil)
}

// EnsureWallet provisions a zero-balance wallet for a newly created account.
// Safe to call repeatedly; an existing wallet is left untouched.
func (s *Service) EnsureWallet(ctx context.Context, accountID uuid.UUID) error {
	if err := s.repo.EnsureWallet(ctx, accountID); err != nil {
		return fmt.Errorf("failed to ensure wallet: %w", err)
	}
	return nil
}

// ListReferralUsages returns the dealer's referral usage history, newest first.
func (s *Service) ListReferralUsages(ctx context.Context, referrerAccountID uuid.UUID) ([]domain.ReferralUsage, error) {
	return s.repo.ListReferralUsages(ctx, referrerAccountID)
}

// publishEvent sends a wallet event after the ledger change has committed.
// Publishing is write-behind: a broker failure is logged and never rolls back
// or blocks the ledger operation.
func (s *Service) publishEvent(ctx context.Context, routingKey string, body interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, rabbitmq.WalletEventsExchange, routingKey, body); err != nil {
		log.Printf("level=warn component=service msg=\"wallet event publish failed\" routing_key=%s err=%v", routingKey, err)
	}
}
