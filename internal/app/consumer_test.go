package app

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/restomart/wallet-service/internal/domain"
	"github.com/shopspring/decimal"
)

func TestHandleDepositSettled_CreditsWallet(t *testing.T) {
	repo := newFakeRepository()
	accountID := uuid.New()
	repo.addAccount(domain.Account{ID: accountID, Role: domain.RoleBuyer}, decimal.Zero)
	consumer := NewWalletEventsConsumer(newTestService(repo), nil)

	body, err := json.Marshal(domain.DepositSettledEvent{
		EventID:   "evt-1",
		AccountID: accountID,
		Amount:    mustDecimal(t, "200.00"),
		Reference: "PAY-778",
	})
	if err != nil {
		t.Fatalf("failed to marshal event: %v", err)
	}

	if !consumer.HandleDepositSettled(body) {
		t.Fatalf("expected valid deposit event to be acked")
	}
	if !repo.balanceOf(accountID).Equal(mustDecimal(t, "200.00")) {
		t.Fatalf("expected balance 200.00, got %s", repo.balanceOf(accountID))
	}
	requireInvariant(t, repo, accountID)
}

func TestHandleDepositSettled_MalformedPayloadIsAckedAndDropped(t *testing.T) {
	repo := newFakeRepository()
	consumer := NewWalletEventsConsumer(newTestService(repo), nil)

	if !consumer.HandleDepositSettled([]byte("not json")) {
		t.Fatalf("expected malformed payload to be acked, not requeued")
	}
	if len(repo.txs) != 0 {
		t.Fatalf("expected no ledger records from a malformed payload")
	}
}

func TestHandleDepositSettled_InvalidAmountsAreDropped(t *testing.T) {
	repo := newFakeRepository()
	accountID := uuid.New()
	repo.addAccount(domain.Account{ID: accountID, Role: domain.RoleBuyer}, decimal.Zero)
	consumer := NewWalletEventsConsumer(newTestService(repo), nil)

	body, _ := json.Marshal(domain.DepositSettledEvent{
		EventID:   "evt-2",
		AccountID: accountID,
		Amount:    mustDecimal(t, "-5"),
	})
	if !consumer.HandleDepositSettled(body) {
		t.Fatalf("expected invalid amount to be acked, not requeued")
	}
	if repo.transactionCount(accountID) != 0 {
		t.Fatalf("expected no ledger records from an invalid amount")
	}
}

func TestHandleDepositSettled_RepositoryFailureRequeues(t *testing.T) {
	repo := newFakeRepository()
	// No wallet seeded: the deposit fails with ErrWalletNotFound.
	consumer := NewWalletEventsConsumer(newTestService(repo), nil)

	body, _ := json.Marshal(domain.DepositSettledEvent{
		EventID:   "evt-3",
		AccountID: uuid.New(),
		Amount:    mustDecimal(t, "10"),
	})
	if consumer.HandleDepositSettled(body) {
		t.Fatalf("expected a failed credit to be requeued")
	}
}

func TestHandleAccountCreated_ProvisionsZeroBalanceWallet(t *testing.T) {
	repo := newFakeRepository()
	consumer := NewWalletEventsConsumer(newTestService(repo), nil)

	accountID := uuid.New()
	body, _ := json.Marshal(domain.AccountCreatedEvent{
		EventID:   "evt-4",
		AccountID: accountID,
		Role:      domain.RoleDealer,
	})
	if !consumer.HandleAccountCreated(body) {
		t.Fatalf("expected account event to be acked")
	}

	balance, err := repo.GetWalletBalance(context.Background(), accountID)
	if err != nil {
		t.Fatalf("expected wallet to exist after provisioning, got %v", err)
	}
	if !balance.IsZero() {
		t.Fatalf("expected zero opening balance, got %s", balance)
	}

	// Replaying the event must not disturb the wallet.
	if !consumer.HandleAccountCreated(body) {
		t.Fatalf("expected replayed account event to be acked")
	}
}
