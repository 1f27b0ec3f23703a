package app

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/restomart/wallet-service/internal/domain"
	"github.com/restomart/wallet-service/internal/store"
	"github.com/shopspring/decimal"
)

func seedDealer(t *testing.T, repo *fakeRepository, code string) uuid.UUID {
	t.Helper()
	dealerID := uuid.New()
	repo.addAccount(domain.Account{
		ID:           dealerID,
		Name:         "Bosphorus Kitchen Equipment",
		Role:         domain.RoleDealer,
		ReferralCode: &code,
	}, decimal.Zero)
	return dealerID
}

func TestApplyReferralCode_CreditsCommissionOnShippingCost(t *testing.T) {
	repo := newFakeRepository()
	dealerID := seedDealer(t, repo, "BOSPHORUS5")
	buyerID := uuid.New()
	repo.addAccount(domain.Account{ID: buyerID, Name: "Anatolia Grill", Role: domain.RoleBuyer}, decimal.Zero)
	svc := newTestService(repo)

	result, err := svc.ApplyReferralCode(context.Background(), "BOSPHORUS5", "ORD-1001",
		mustDecimal(t, "1200"), mustDecimal(t, "100"), "Anatolia Grill", buyerID)
	if err != nil {
		t.Fatalf("ApplyReferralCode returned error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success result")
	}
	if !result.Discount.Equal(mustDecimal(t, "5.00")) {
		t.Fatalf("expected discount 5.00 on shipping 100, got %s", result.Discount)
	}

	// 5% of the shipping cost, not of the order total.
	if !repo.balanceOf(dealerID).Equal(mustDecimal(t, "5.00")) {
		t.Fatalf("expected dealer balance 5.00, got %s", repo.balanceOf(dealerID))
	}
	requireInvariant(t, repo, dealerID)

	txs, _ := svc.ListTransactions(context.Background(), dealerID)
	if len(txs) != 1 {
		t.Fatalf("expected exactly one commission transaction, got %d", len(txs))
	}
	commission := txs[0]
	if commission.Type != domain.TxTypeCommission || commission.Status != domain.TxStatusCompleted {
		t.Fatalf("unexpected commission transaction: type=%s status=%s", commission.Type, commission.Status)
	}
	if commission.OrderID == nil || *commission.OrderID != "ORD-1001" {
		t.Fatalf("expected commission to reference the order")
	}

	usages, _ := svc.ListReferralUsages(context.Background(), dealerID)
	if len(usages) != 1 {
		t.Fatalf("expected exactly one referral usage, got %d", len(usages))
	}
	usage := usages[0]
	if usage.BuyerAccountID != buyerID || usage.OrderID != "ORD-1001" {
		t.Fatalf("unexpected referral usage record: %+v", usage)
	}
	if !usage.CommissionAmount.Equal(mustDecimal(t, "5.00")) {
		t.Fatalf("expected recorded commission 5.00, got %s", usage.CommissionAmount)
	}
}

func TestApplyReferralCode_MatchesCaseInsensitively(t *testing.T) {
	repo := newFakeRepository()
	seedDealer(t, repo, "BOSPHORUS5")
	buyerID := uuid.New()
	repo.addAccount(domain.Account{ID: buyerID, Role: domain.RoleBuyer}, decimal.Zero)
	svc := newTestService(repo)

	result, err := svc.ApplyReferralCode(context.Background(), "  bosphorus5 ", "ORD-1002",
		mustDecimal(t, "500"), mustDecimal(t, "40"), "Anatolia Grill", buyerID)
	if err != nil {
		t.Fatalf("expected case-insensitive match, got error: %v", err)
	}
	if !result.Discount.Equal(mustDecimal(t, "2.00")) {
		t.Fatalf("expected discount 2.00 on shipping 40, got %s", result.Discount)
	}
}

func TestApplyReferralCode_UnknownCode(t *testing.T) {
	repo := newFakeRepository()
	buyerID := uuid.New()
	repo.addAccount(domain.Account{ID: buyerID, Role: domain.RoleBuyer}, decimal.Zero)
	svc := newTestService(repo)

	_, err := svc.ApplyReferralCode(context.Background(), "NO-SUCH-CODE", "ORD-1003",
		mustDecimal(t, "300"), mustDecimal(t, "25"), "Anatolia Grill", buyerID)
	if !errors.Is(err, store.ErrReferralCodeNotFound) {
		t.Fatalf("expected ErrReferralCodeNotFound, got %v", err)
	}
}

func TestApplyReferralCode_SelfReferralIsRejectedWithoutMutation(t *testing.T) {
	repo := newFakeRepository()
	dealerID := seedDealer(t, repo, "SELFCODE")
	svc := newTestService(repo)

	_, err := svc.ApplyReferralCode(context.Background(), "SELFCODE", "ORD-1004",
		mustDecimal(t, "800"), mustDecimal(t, "60"), "Bosphorus Kitchen Equipment", dealerID)
	if !errors.Is(err, ErrSelfReferral) {
		t.Fatalf("expected ErrSelfReferral, got %v", err)
	}

	if !repo.balanceOf(dealerID).IsZero() {
		t.Fatalf("expected no commission credit on self-referral, got balance %s", repo.balanceOf(dealerID))
	}
	if repo.transactionCount(dealerID) != 0 {
		t.Fatalf("expected no ledger records on self-referral")
	}
	usages, _ := svc.ListReferralUsages(context.Background(), dealerID)
	if len(usages) != 0 {
		t.Fatalf("expected no referral usage records on self-referral")
	}
}

func TestApplyReferralCode_RoundsToTwoDecimalPlaces(t *testing.T) {
	repo := newFakeRepository()
	dealerID := seedDealer(t, repo, "ROUNDING")
	buyerID := uuid.New()
	repo.addAccount(domain.Account{ID: buyerID, Role: domain.RoleBuyer}, decimal.Zero)
	svc := newTestService(repo)

	// 5% of 33.33 is 1.6665, which rounds to 1.67.
	result, err := svc.ApplyReferralCode(context.Background(), "ROUNDING", "ORD-1005",
		mustDecimal(t, "400"), mustDecimal(t, "33.33"), "Anatolia Grill", buyerID)
	if err != nil {
		t.Fatalf("ApplyReferralCode returned error: %v", err)
	}
	if !result.Discount.Equal(mustDecimal(t, "1.67")) {
		t.Fatalf("expected discount 1.67, got %s", result.Discount)
	}
	if !repo.balanceOf(dealerID).Equal(mustDecimal(t, "1.67")) {
		t.Fatalf("expected commission 1.67, got %s", repo.balanceOf(dealerID))
	}
	requireInvariant(t, repo, dealerID)
}

func TestApplyReferralCode_IndependentRates(t *testing.T) {
	repo := newFakeRepository()
	dealerID := seedDealer(t, repo, "SPLITRATE")
	buyerID := uuid.New()
	repo.addAccount(domain.Account{ID: buyerID, Role: domain.RoleBuyer}, decimal.Zero)

	// Commission 10%, discount 2%; the two rates must not be coupled.
	svc := NewService(repo, nil, decimal.NewFromInt(10), decimal.NewFromInt(2))

	result, err := svc.ApplyReferralCode(context.Background(), "SPLITRATE", "ORD-1006",
		mustDecimal(t, "900"), mustDecimal(t, "50"), "Anatolia Grill", buyerID)
	if err != nil {
		t.Fatalf("ApplyReferralCode returned error: %v", err)
	}
	if !result.Discount.Equal(mustDecimal(t, "1.00")) {
		t.Fatalf("expected discount 1.00 at 2%%, got %s", result.Discount)
	}
	if !repo.balanceOf(dealerID).Equal(mustDecimal(t, "5.00")) {
		t.Fatalf("expected commission 5.00 at 10%%, got %s", repo.balanceOf(dealerID))
	}
}
