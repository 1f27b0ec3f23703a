/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * It contains all the necessary SQL queries to interact with the database tables
 * related to wallets, ledger transactions, withdrawal requests, and referral usages.
 *
 * @dependencies
 * - context, errors, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - github.com/shopspring/decimal: Exact decimal arithmetic for money amounts.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/restomart/wallet-service/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrWalletNotFound       = errors.New("wallet not found")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrWithdrawalNotFound   = errors.New("withdrawal request not found")
	ErrRequestNotPending    = errors.New("withdrawal request is not pending")
	ErrReferralCodeNotFound = errors.New("referral code not found")
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FindAccountByID retrieves an account projection from the directory table.
func (r *PostgresRepository) FindAccountByID(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	var account domain.Account
	query := `SELECT id, name, role, referral_code FROM accounts WHERE id = $1`
	err := r.db.QueryRow(ctx, query, accountID).Scan(&account.ID, &account.Name, &account.Role, &account.ReferralCode)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// FindAccountByReferralCode resolves a referral code to the dealer account that
// owns it. Codes are matched case-insensitively; only dealer accounts qualify.
func (r *PostgresRepository) FindAccountByReferralCode(ctx context.Context, code string) (*domain.Account, error) {
	var account domain.Account
	query := `
		SELECT id, name, role, referral_code
		FROM accounts
		WHERE lower(btrim(referral_code)) = lower(btrim($1)) AND role = $2
	`
	err := r.db.QueryRow(ctx, query, code, domain.RoleDealer).Scan(&account.ID, &account.Name, &account.Role, &account.ReferralCode)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrReferralCodeNotFound
		}
		return nil, err
	}
	return &account, nil
}

// EnsureWallet creates a zero-balance wallet for the account if none exists yet.
func (r *PostgresRepository) EnsureWallet(ctx context.Context, accountID uuid.UUID) error {
	query := `
		INSERT INTO wallets (account_id, balance, created_at, updated_at)
		VALUES ($1, 0, NOW(), NOW())
		ON CONFLICT (account_id) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, accountID)
	return err
}

// GetWalletBalance returns the current balance for an account's wallet.
func (r *PostgresRepository) GetWalletBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.db.QueryRow(ctx, `SELECT balance FROM wallets WHERE account_id = $1`, accountID).Scan(&balance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return decimal.Zero, ErrWalletNotFound
		}
		return decimal.Zero, err
	}
	return balance, nil
}

// AppendTransaction atomically adjusts the wallet balance and inserts the ledger
// record. The wallet row is locked FOR UPDATE first so concurrent writers against
// the same account serialize, and the balance never disagrees with the log.
func (r *PostgresRepository) AppendTransaction(ctx context.Context, transaction *domain.Transaction) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var balance decimal.Decimal
	err = tx.QueryRow(ctx, `SELECT balance FROM wallets WHERE account_id = $1 FOR UPDATE`, transaction.AccountID).Scan(&balance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrWalletNotFound
		}
		return err
	}

	if err := applyLedgerInsert(ctx, tx, transaction); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// applyLedgerInsert performs the balance update and transaction insert inside an
// already-open SQL transaction that holds the wallet row lock.
func applyLedgerInsert(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error {
	_, err := tx.Exec(ctx,
		`UPDATE wallets SET balance = balance + $1, updated_at = NOW() WHERE account_id = $2`,
		transaction.Amount, transaction.AccountID,
	)
	if err != nil {
		return fmt.Errorf("failed to update wallet balance: %w", err)
	}

	if transaction.ID == uuid.Nil {
		transaction.ID = uuid.New()
	}
	if transaction.CreatedAt.IsZero() {
		transaction.CreatedAt = time.Now().UTC()
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO transactions (id, account_id, type, status, amount, description, related_user, order_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		transaction.ID, transaction.AccountID, transaction.Type, transaction.Status,
		transaction.Amount, transaction.Description, transaction.RelatedUser,
		transaction.OrderID, transaction.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert ledger record: %w", err)
	}
	return nil
}

// ListTransactionsByAccountID returns the account's ledger, newest first.
func (r *PostgresRepository) ListTransactionsByAccountID(ctx context.Context, accountID uuid.UUID) ([]domain.Transaction, error) {
	query := `
		SELECT id, account_id, type, status, amount, description, related_user, order_id, created_at
		FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// ListAllTransactions returns every ledger record in the system, newest first.
// Admin monitoring only.
func (r *PostgresRepository) ListAllTransactions(ctx context.Context) ([]domain.Transaction, error) {
	query := `
		SELECT id, account_id, type, status, amount, description, related_user, order_id, created_at
		FROM transactions
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func scanTransactions(rows pgx.Rows) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Type, &t.Status, &t.Amount,
			&t.Description, &t.RelatedUser, &t.OrderID, &t.CreatedAt); err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// CreateWithdrawalRequestWithHold applies the optimistic hold and creates the
// request in one unit:
//  1. Lock the wallet row and verify the balance covers the requested amount.
//  2. Debit the hold and insert the mirrored pending transaction.
//  3. Insert the withdrawal request record linked to that transaction.
func (r *PostgresRepository) CreateWithdrawalRequestWithHold(ctx context.Context, req *domain.WithdrawalRequest, holdTx *domain.Transaction) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var balance decimal.Decimal
	err = tx.QueryRow(ctx, `SELECT balance FROM wallets WHERE account_id = $1 FOR UPDATE`, req.AccountID).Scan(&balance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrWalletNotFound
		}
		return err
	}

	if balance.LessThan(req.Amount) {
		return ErrInsufficientFunds
	}

	if err := applyLedgerInsert(ctx, tx, holdTx); err != nil {
		return err
	}

	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	req.TransactionID = holdTx.ID

	_, err = tx.Exec(ctx, `
		INSERT INTO withdrawal_requests (id, account_id, amount, method, iban, status, transaction_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		req.ID, req.AccountID, req.Amount, req.Method, req.IBAN, req.Status, req.TransactionID, req.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert withdrawal request: %w", err)
	}

	return tx.Commit(ctx)
}

// FindWithdrawalRequest retrieves one withdrawal request scoped to its account.
func (r *PostgresRepository) FindWithdrawalRequest(ctx context.Context, requestID, accountID uuid.UUID) (*domain.WithdrawalRequest, error) {
	var req domain.WithdrawalRequest
	query := `
		SELECT id, account_id, amount, method, iban, status, transaction_id, decided_by, decision_note, created_at, processed_at
		FROM withdrawal_requests
		WHERE id = $1 AND account_id = $2
	`
	err := r.db.QueryRow(ctx, query, requestID, accountID).Scan(
		&req.ID, &req.AccountID, &req.Amount, &req.Method, &req.IBAN, &req.Status,
		&req.TransactionID, &req.DecidedBy, &req.DecisionNote, &req.CreatedAt, &req.ProcessedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrWithdrawalNotFound
		}
		return nil, err
	}
	return &req, nil
}

// lockPendingRequest loads and locks a withdrawal request inside an open SQL
// transaction, enforcing that it is still pending.
func lockPendingRequest(ctx context.Context, tx pgx.Tx, requestID, accountID uuid.UUID) (*domain.WithdrawalRequest, error) {
	var req domain.WithdrawalRequest
	query := `
		SELECT id, account_id, amount, method, iban, status, transaction_id, created_at
		FROM withdrawal_requests
		WHERE id = $1 AND account_id = $2
		FOR UPDATE
	`
	err := tx.QueryRow(ctx, query, requestID, accountID).Scan(
		&req.ID, &req.AccountID, &req.Amount, &req.Method, &req.IBAN, &req.Status, &req.TransactionID, &req.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrWithdrawalNotFound
		}
		return nil, err
	}
	if req.Status != domain.WithdrawalStatusPending {
		return nil, ErrRequestNotPending
	}
	return &req, nil
}

// ApproveWithdrawalRequest transitions a pending request to approved and its
// mirrored hold transaction to completed. No balance change: the hold was
// already applied when the request was created.
func (r *PostgresRepository) ApproveWithdrawalRequest(ctx context.Context, requestID, accountID, decidedBy uuid.UUID, note *string) (*domain.WithdrawalRequest, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	req, err := lockPendingRequest(ctx, tx, requestID, accountID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	_, err = tx.Exec(ctx, `
		UPDATE withdrawal_requests
		SET status = $1, decided_by = $2, decision_note = $3, processed_at = $4
		WHERE id = $5`,
		domain.WithdrawalStatusApproved, decidedBy, note, now, req.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update withdrawal request: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE transactions
		SET status = $1, description = $2
		WHERE id = $3 AND status = $4`,
		domain.TxStatusCompleted, fmt.Sprintf("Withdrawal approved (%s)", req.Method),
		req.TransactionID, domain.TxStatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update hold transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	req.Status = domain.WithdrawalStatusApproved
	req.DecidedBy = &decidedBy
	req.DecisionNote = note
	req.ProcessedAt = &now
	return req, nil
}

// RejectWithdrawalRequestWithRefund transitions a pending request to rejected,
// marks the mirrored hold transaction rejected, and credits the held amount back
// through a new completed deposit transaction, all in one unit.
func (r *PostgresRepository) RejectWithdrawalRequestWithRefund(ctx context.Context, requestID, accountID, decidedBy uuid.UUID, note *string, refundTx *domain.Transaction) (*domain.WithdrawalRequest, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	req, err := lockPendingRequest(ctx, tx, requestID, accountID)
	if err != nil {
		return nil, err
	}

	// Lock the wallet before touching the balance so the refund serializes with
	// any concurrent ledger writers.
	var balance decimal.Decimal
	err = tx.QueryRow(ctx, `SELECT balance FROM wallets WHERE account_id = $1 FOR UPDATE`, accountID).Scan(&balance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}

	now := time.Now().UTC()
	_, err = tx.Exec(ctx, `
		UPDATE withdrawal_requests
		SET status = $1, decided_by = $2, decision_note = $3, processed_at = $4
		WHERE id = $5`,
		domain.WithdrawalStatusRejected, decidedBy, note, now, req.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update withdrawal request: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE transactions
		SET status = $1
		WHERE id = $2 AND status = $3`,
		domain.TxStatusRejected, req.TransactionID, domain.TxStatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update hold transaction: %w", err)
	}

	if err := applyLedgerInsert(ctx, tx, refundTx); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	req.Status = domain.WithdrawalStatusRejected
	req.DecidedBy = &decidedBy
	req.DecisionNote = note
	req.ProcessedAt = &now
	return req, nil
}

// ListPendingWithdrawalRequests returns all pending requests across accounts,
// oldest first so admins work through the queue in arrival order.
func (r *PostgresRepository) ListPendingWithdrawalRequests(ctx context.Context) ([]domain.WithdrawalRequest, error) {
	query := `
		SELECT id, account_id, amount, method, iban, status, transaction_id, decided_by, decision_note, created_at, processed_at
		FROM withdrawal_requests
		WHERE status = $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, domain.WithdrawalStatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []domain.WithdrawalRequest
	for rows.Next() {
		var req domain.WithdrawalRequest
		if err := rows.Scan(&req.ID, &req.AccountID, &req.Amount, &req.Method, &req.IBAN, &req.Status,
			&req.TransactionID, &req.DecidedBy, &req.DecisionNote, &req.CreatedAt, &req.ProcessedAt); err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

// CreditReferralCommission appends the commission transaction to the referrer's
// ledger and records the referral usage in one unit.
func (r *PostgresRepository) CreditReferralCommission(ctx context.Context, commissionTx *domain.Transaction, usage *domain.ReferralUsage) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var balance decimal.Decimal
	err = tx.QueryRow(ctx, `SELECT balance FROM wallets WHERE account_id = $1 FOR UPDATE`, commissionTx.AccountID).Scan(&balance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrWalletNotFound
		}
		return err
	}

	if err := applyLedgerInsert(ctx, tx, commissionTx); err != nil {
		return err
	}

	if usage.ID == uuid.Nil {
		usage.ID = uuid.New()
	}
	if usage.CreatedAt.IsZero() {
		usage.CreatedAt = time.Now().UTC()
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO referral_usages (id, referrer_account_id, buyer_account_id, buyer_name, order_id, order_total, shipping_cost, commission_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		usage.ID, usage.ReferrerAccountID, usage.BuyerAccountID, usage.BuyerName,
		usage.OrderID, usage.OrderTotal, usage.ShippingCost, usage.CommissionAmount, usage.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert referral usage: %w", err)
	}

	return tx.Commit(ctx)
}

// ListReferralUsages returns the referrer's usage history, newest first.
func (r *PostgresRepository) ListReferralUsages(ctx context.Context, referrerAccountID uuid.UUID) ([]domain.ReferralUsage, error) {
	query := `
		SELECT id, referrer_account_id, buyer_account_id, buyer_name, order_id, order_total, shipping_cost, commission_amount, created_at
		FROM referral_usages
		WHERE referrer_account_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.Query(ctx, query, referrerAccountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var usages []domain.ReferralUsage
	for rows.Next() {
		var u domain.ReferralUsage
		if err := rows.Scan(&u.ID, &u.ReferrerAccountID, &u.BuyerAccountID, &u.BuyerName,
			&u.OrderID, &u.OrderTotal, &u.ShippingCost, &u.CommissionAmount, &u.CreatedAt); err != nil {
			return nil, err
		}
		usages = append(usages, u)
	}
	return usages, rows.Err()
}
