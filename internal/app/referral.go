/**
 * @description
 * This file implements the referral commission engine. When a buyer applies a
 * dealer's referral code at checkout, the dealer earns a commission on the
 * order's shipping cost and the buyer's checkout receives a shipping discount.
 * Both rates are configured independently.
 *
 * @notes
 * - The buyer's wallet is never touched here: the discount is returned to the
 *   checkout flow, which applies it to the order total itself.
 * - Self-referral is rejected before any mutation occurs.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/restomart/wallet-service/internal/domain"
	"github.com/restomart/wallet-service/internal/store"
	"github.com/restomart/wallet-service/pkg/rabbitmq"
	"github.com/shopspring/decimal"
)

var percentBase = decimal.NewFromInt(100)

// ApplyReferralCode resolves the referral code to its owning dealer, credits
// the dealer's commission on the shipping cost, records the referral usage, and
// returns the shipping discount the checkout flow should apply to the order.
func (s *Service) ApplyReferralCode(ctx context.Context, code, orderID string, orderTotal, shippingCost decimal.Decimal, buyerName string, buyerAccountID uuid.UUID) (*domain.ReferralResult, error) {
	referrer, err := s.repo.FindAccountByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrReferralCodeNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to resolve referral code: %w", err)
	}

	if referrer.ID == buyerAccountID {
		return nil, ErrSelfReferral
	}

	commission := shippingCost.Mul(s.commissionRate).Div(percentBase).Round(2)
	discount := shippingCost.Mul(s.discountRate).Div(percentBase).Round(2)

	commissionTx := &domain.Transaction{
		ID:          uuid.New(),
		AccountID:   referrer.ID,
		Type:        domain.TxTypeCommission,
		Status:      domain.TxStatusCompleted,
		Amount:      commission,
		Description: fmt.Sprintf("Referral commission for order %s", orderID),
		RelatedUser: &buyerName,
		OrderID:     &orderID,
	}
	usage := &domain.ReferralUsage{
		ID:                uuid.New(),
		ReferrerAccountID: referrer.ID,
		BuyerAccountID:    buyerAccountID,
		BuyerName:         buyerName,
		OrderID:           orderID,
		OrderTotal:        orderTotal,
		ShippingCost:      shippingCost,
		CommissionAmount:  commission,
	}

	// Commission credit and usage record commit as one unit against the
	// referrer's ledger.
	if err := s.repo.CreditReferralCommission(ctx, commissionTx, usage); err != nil {
		return nil, fmt.Errorf("failed to credit referral commission: %w", err)
	}

	s.publishEvent(ctx, rabbitmq.RoutingKeyCommissionCredited, domain.CommissionCreditedEvent{
		ReferrerAccountID: referrer.ID,
		BuyerName:         buyerName,
		OrderID:           orderID,
		Amount:            commission,
		OccurredAt:        time.Now().UTC(),
	})

	return &domain.ReferralResult{Success: true, Discount: discount}, nil
}
