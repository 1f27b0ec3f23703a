/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for all
 * data access operations required by the wallet-service. By defining an interface,
 * we decouple the ledger's business logic from the specific database implementation
 * (e.g., PostgreSQL), making the code more modular and easier to test.
 *
 * @notes
 * - Every mutating method is one atomic unit: it either fully commits (balance,
 *   transaction log, and request status all updated consistently) or fully fails
 *   with zero observable state change.
 * - The account directory is an external collaborator; this service only consumes
 *   a read-only projection of it (existence, role, referral code).
 */

package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/restomart/wallet-service/internal/domain"
	"github.com/shopspring/decimal"
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Account directory projection (read-only)
	FindAccountByID(ctx context.Context, accountID uuid.UUID) (*domain.Account, error)
	// FindAccountByReferralCode resolves a referral code to the dealer account
	// that owns it. Codes held by non-dealer accounts do not resolve.
	FindAccountByReferralCode(ctx context.Context, code string) (*domain.Account, error)

	// Wallet and ledger
	// EnsureWallet creates a zero-balance wallet for the account if none exists.
	EnsureWallet(ctx context.Context, accountID uuid.UUID) error
	GetWalletBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
	// AppendTransaction atomically applies `balance += tx.Amount` and inserts the
	// ledger record. The two effects commit together or not at all.
	AppendTransaction(ctx context.Context, tx *domain.Transaction) error
	// ListTransactionsByAccountID returns the account's ledger, newest first.
	ListTransactionsByAccountID(ctx context.Context, accountID uuid.UUID) ([]domain.Transaction, error)
	ListAllTransactions(ctx context.Context) ([]domain.Transaction, error)

	// Withdrawal workflow
	// CreateWithdrawalRequestWithHold atomically verifies the balance covers the
	// requested amount, debits the hold, inserts the mirrored pending transaction,
	// and inserts the request record.
	CreateWithdrawalRequestWithHold(ctx context.Context, req *domain.WithdrawalRequest, holdTx *domain.Transaction) error
	FindWithdrawalRequest(ctx context.Context, requestID, accountID uuid.UUID) (*domain.WithdrawalRequest, error)
	// ApproveWithdrawalRequest flips a pending request to approved and its mirrored
	// transaction to completed. The balance does not change (the hold was applied at
	// request time). Fails with ErrRequestNotPending on a terminal request.
	ApproveWithdrawalRequest(ctx context.Context, requestID, accountID, decidedBy uuid.UUID, note *string) (*domain.WithdrawalRequest, error)
	// RejectWithdrawalRequestWithRefund flips a pending request to rejected, marks
	// the mirrored transaction rejected, and credits the held amount back via the
	// supplied refund deposit transaction, all in one unit.
	RejectWithdrawalRequestWithRefund(ctx context.Context, requestID, accountID, decidedBy uuid.UUID, note *string, refundTx *domain.Transaction) (*domain.WithdrawalRequest, error)
	ListPendingWithdrawalRequests(ctx context.Context) ([]domain.WithdrawalRequest, error)

	// Referral commissions
	// CreditReferralCommission atomically appends the commission transaction to the
	// referrer's ledger and records the referral usage.
	CreditReferralCommission(ctx context.Context, commissionTx *domain.Transaction, usage *domain.ReferralUsage) error
	ListReferralUsages(ctx context.Context, referrerAccountID uuid.UUID) ([]domain.ReferralUsage, error)
}
