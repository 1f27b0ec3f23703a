/**
 * @description
 * This file implements the withdrawal workflow: a small, strict state machine
 * over withdrawal requests. `pending` is the only non-terminal state; an admin
 * either approves (status flips only, the hold stays applied) or rejects
 * (the held amount is refunded through a new deposit transaction).
 *
 * @notes
 * - The hold is optimistic: the balance is decremented when the withdrawal is
 *   requested, not when it is approved, so earmarked funds cannot be spent twice.
 * - There is deliberately no user-side cancellation path; once requested, funds
 *   stay held until an admin decides.
 */

package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/restomart/wallet-service/internal/domain"
	"github.com/restomart/wallet-service/pkg/rabbitmq"
	"github.com/shopspring/decimal"
)

// RequestWithdrawal creates a pending withdrawal request and applies the
// optimistic hold: the balance drops by `amount` immediately and a mirrored
// pending `withdrawal_request` transaction of -amount documents the hold.
func (s *Service) RequestWithdrawal(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, method, iban string) (*domain.WithdrawalRequest, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	var ibanPtr *string
	switch method {
	case domain.WithdrawalMethodBankTransfer:
		trimmed := strings.TrimSpace(iban)
		if trimmed == "" {
			return nil, ErrMissingIBAN
		}
		ibanPtr = &trimmed
	case domain.WithdrawalMethodCard:
		// no payout details needed
	default:
		return nil, ErrInvalidMethod
	}

	req := &domain.WithdrawalRequest{
		ID:        uuid.New(),
		AccountID: accountID,
		Amount:    amount,
		Method:    method,
		IBAN:      ibanPtr,
		Status:    domain.WithdrawalStatusPending,
	}
	holdTx := &domain.Transaction{
		ID:          uuid.New(),
		AccountID:   accountID,
		Type:        domain.TxTypeWithdrawalRequest,
		Status:      domain.TxStatusPending,
		Amount:      amount.Neg(),
		Description: fmt.Sprintf("Withdrawal request (%s)", method),
	}

	// The repository verifies the balance covers the amount and commits the
	// hold, the mirrored transaction, and the request as one unit.
	if err := s.repo.CreateWithdrawalRequestWithHold(ctx, req, holdTx); err != nil {
		return nil, err
	}

	return req, nil
}

// ApproveWithdrawal transitions a pending request to approved. The balance does
// not change: the hold was already applied at request time. A second call on
// the same request fails without mutating anything.
func (s *Service) ApproveWithdrawal(ctx context.Context, requestID, accountID uuid.UUID, actor Capability, note string) (*domain.WithdrawalRequest, error) {
	if !actor.ManageWithdrawals {
		return nil, ErrNotAuthorized
	}

	req, err := s.repo.ApproveWithdrawalRequest(ctx, requestID, accountID, actor.ActorID, optionalNote(note))
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, rabbitmq.RoutingKeyWithdrawalDecided, domain.WithdrawalDecidedEvent{
		RequestID:  req.ID,
		AccountID:  req.AccountID,
		Amount:     req.Amount,
		Status:     req.Status,
		DecidedBy:  actor.ActorID,
		OccurredAt: time.Now().UTC(),
	})
	return req, nil
}

// RejectWithdrawal transitions a pending request to rejected and refunds the
// held amount: the balance rises by the request amount through a new completed
// deposit transaction, and the original hold transaction becomes rejected.
func (s *Service) RejectWithdrawal(ctx context.Context, requestID, accountID uuid.UUID, actor Capability, note string) (*domain.WithdrawalRequest, error) {
	if !actor.ManageWithdrawals {
		return nil, ErrNotAuthorized
	}

	current, err := s.repo.FindWithdrawalRequest(ctx, requestID, accountID)
	if err != nil {
		return nil, err
	}

	refundTx := &domain.Transaction{
		ID:          uuid.New(),
		AccountID:   accountID,
		Type:        domain.TxTypeDeposit,
		Status:      domain.TxStatusCompleted,
		Amount:      current.Amount,
		Description: "Refund of rejected withdrawal request",
	}

	// The repository re-checks the pending status under lock, so a concurrent
	// decision between the read above and here still fails cleanly.
	req, err := s.repo.RejectWithdrawalRequestWithRefund(ctx, requestID, accountID, actor.ActorID, optionalNote(note), refundTx)
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, rabbitmq.RoutingKeyWithdrawalDecided, domain.WithdrawalDecidedEvent{
		RequestID:  req.ID,
		AccountID:  req.AccountID,
		Amount:     req.Amount,
		Status:     req.Status,
		DecidedBy:  actor.ActorID,
		OccurredAt: time.Now().UTC(),
	})
	return req, nil
}

// ListPendingWithdrawalRequests returns the admin work queue: every pending
// request across all accounts, oldest first.
func (s *Service) ListPendingWithdrawalRequests(ctx context.Context, actor Capability) ([]domain.WithdrawalRequest, error) {
	if !actor.ManageWithdrawals {
		return nil, ErrNotAuthorized
	}
	return s.repo.ListPendingWithdrawalRequests(ctx)
}

func optionalNote(note string) *string {
	trimmed := strings.TrimSpace(note)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
