package store

import (
	"context"
	"fmt"
)

// EnsureSchema creates the wallet-service tables if they are missing. The
// accounts table is a read-only projection of the account directory and is
// owned elsewhere; everything else belongs to this service.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS wallets (
			account_id UUID PRIMARY KEY,
			balance NUMERIC(12,2) NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id UUID PRIMARY KEY,
			account_id UUID NOT NULL,
			type TEXT NOT NULL CHECK (type IN ('deposit', 'withdrawal', 'commission', 'withdrawal_request')),
			status TEXT NOT NULL CHECK (status IN ('completed', 'pending', 'approved', 'rejected')),
			amount NUMERIC(12,2) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			related_user TEXT NULL,
			order_id TEXT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_account_created ON transactions(account_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS withdrawal_requests (
			id UUID PRIMARY KEY,
			account_id UUID NOT NULL,
			amount NUMERIC(12,2) NOT NULL,
			method TEXT NOT NULL CHECK (method IN ('bank_transfer', 'card')),
			iban TEXT NULL,
			status TEXT NOT NULL CHECK (status IN ('pending', 'approved', 'rejected')),
			transaction_id UUID NOT NULL,
			decided_by UUID NULL,
			decision_note TEXT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			processed_at TIMESTAMPTZ NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_withdrawal_requests_status ON withdrawal_requests(status, created_at)`,
		`CREATE TABLE IF NOT EXISTS referral_usages (
			id UUID PRIMARY KEY,
			referrer_account_id UUID NOT NULL,
			buyer_account_id UUID NOT NULL,
			buyer_name TEXT NOT NULL,
			order_id TEXT NOT NULL,
			order_total NUMERIC(12,2) NOT NULL,
			shipping_cost NUMERIC(12,2) NOT NULL,
			commission_amount NUMERIC(12,2) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_referral_usages_referrer ON referral_usages(referrer_account_id, created_at DESC)`,
	}

	for _, stmt := range statements {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
