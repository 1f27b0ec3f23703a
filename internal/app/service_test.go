package app

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/restomart/wallet-service/internal/domain"
	"github.com/restomart/wallet-service/internal/store"
	"github.com/shopspring/decimal"
)

// fakeRepository is an in-memory store.Repository. It maintains the wallet
// balance and the transaction log together, so tests can assert the
// balance-equals-sum-of-ledger invariant after every operation.
type fakeRepository struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*domain.Account
	wallets  map[uuid.UUID]decimal.Decimal
	txs      []domain.Transaction
	requests map[uuid.UUID]*domain.WithdrawalRequest
	usages   []domain.ReferralUsage
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		accounts: make(map[uuid.UUID]*domain.Account),
		wallets:  make(map[uuid.UUID]decimal.Decimal),
		requests: make(map[uuid.UUID]*domain.WithdrawalRequest),
	}
}

func (f *fakeRepository) addAccount(account domain.Account, balance decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := account
	f.accounts[account.ID] = &copied
	f.wallets[account.ID] = decimal.Zero
	if !balance.IsZero() {
		// Seed through the ledger so the invariant holds from the start.
		f.applyLocked(&domain.Transaction{
			ID:          uuid.New(),
			AccountID:   account.ID,
			Type:        domain.TxTypeDeposit,
			Status:      domain.TxStatusCompleted,
			Amount:      balance,
			Description: "Seed deposit",
		})
	}
}

func (f *fakeRepository) applyLocked(tx *domain.Transaction) {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	f.wallets[tx.AccountID] = f.wallets[tx.AccountID].Add(tx.Amount)
	f.txs = append(f.txs, *tx)
}

func (f *fakeRepository) balanceOf(accountID uuid.UUID) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.wallets[accountID]
}

func (f *fakeRepository) ledgerSum(accountID uuid.UUID) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	sum := decimal.Zero
	for _, tx := range f.txs {
		if tx.AccountID == accountID {
			sum = sum.Add(tx.Amount)
		}
	}
	return sum
}

func (f *fakeRepository) transactionCount(accountID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, tx := range f.txs {
		if tx.AccountID == accountID {
			count++
		}
	}
	return count
}

func (f *fakeRepository) FindAccountByID(_ context.Context, accountID uuid.UUID) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[accountID]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

func (f *fakeRepository) FindAccountByReferralCode(_ context.Context, code string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	normalized := strings.ToLower(strings.TrimSpace(code))
	for _, account := range f.accounts {
		if account.Role != domain.RoleDealer || account.ReferralCode == nil {
			continue
		}
		if strings.ToLower(strings.TrimSpace(*account.ReferralCode)) == normalized {
			copied := *account
			return &copied, nil
		}
	}
	return nil, store.ErrReferralCodeNotFound
}

func (f *fakeRepository) EnsureWallet(_ context.Context, accountID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.wallets[accountID]; !ok {
		f.wallets[accountID] = decimal.Zero
	}
	return nil
}

func (f *fakeRepository) GetWalletBalance(_ context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	balance, ok := f.wallets[accountID]
	if !ok {
		return decimal.Zero, store.ErrWalletNotFound
	}
	return balance, nil
}

func (f *fakeRepository) AppendTransaction(_ context.Context, tx *domain.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.wallets[tx.AccountID]; !ok {
		return store.ErrWalletNotFound
	}
	f.applyLocked(tx)
	return nil
}

func (f *fakeRepository) ListTransactionsByAccountID(_ context.Context, accountID uuid.UUID) ([]domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var txs []domain.Transaction
	for i := len(f.txs) - 1; i >= 0; i-- {
		if f.txs[i].AccountID == accountID {
			txs = append(txs, f.txs[i])
		}
	}
	return txs, nil
}

func (f *fakeRepository) ListAllTransactions(_ context.Context) ([]domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var txs []domain.Transaction
	for i := len(f.txs) - 1; i >= 0; i-- {
		txs = append(txs, f.txs[i])
	}
	return txs, nil
}

func (f *fakeRepository) CreateWithdrawalRequestWithHold(_ context.Context, req *domain.WithdrawalRequest, holdTx *domain.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	balance, ok := f.wallets[req.AccountID]
	if !ok {
		return store.ErrWalletNotFound
	}
	if balance.LessThan(req.Amount) {
		return store.ErrInsufficientFunds
	}
	f.applyLocked(holdTx)
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	req.TransactionID = holdTx.ID
	copied := *req
	f.requests[req.ID] = &copied
	return nil
}

func (f *fakeRepository) FindWithdrawalRequest(_ context.Context, requestID, accountID uuid.UUID) (*domain.WithdrawalRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[requestID]
	if !ok || req.AccountID != accountID {
		return nil, store.ErrWithdrawalNotFound
	}
	copied := *req
	return &copied, nil
}

func (f *fakeRepository) markTransactionStatus(txID uuid.UUID, status string) {
	for i := range f.txs {
		if f.txs[i].ID == txID {
			f.txs[i].Status = status
			return
		}
	}
}

func (f *fakeRepository) ApproveWithdrawalRequest(_ context.Context, requestID, accountID, decidedBy uuid.UUID, note *string) (*domain.WithdrawalRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[requestID]
	if !ok || req.AccountID != accountID {
		return nil, store.ErrWithdrawalNotFound
	}
	if req.Status != domain.WithdrawalStatusPending {
		return nil, store.ErrRequestNotPending
	}
	now := time.Now().UTC()
	req.Status = domain.WithdrawalStatusApproved
	req.DecidedBy = &decidedBy
	req.DecisionNote = note
	req.ProcessedAt = &now
	f.markTransactionStatus(req.TransactionID, domain.TxStatusCompleted)
	copied := *req
	return &copied, nil
}

func (f *fakeRepository) RejectWithdrawalRequestWithRefund(_ context.Context, requestID, accountID, decidedBy uuid.UUID, note *string, refundTx *domain.Transaction) (*domain.WithdrawalRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[requestID]
	if !ok || req.AccountID != accountID {
		return nil, store.ErrWithdrawalNotFound
	}
	if req.Status != domain.WithdrawalStatusPending {
		return nil, store.ErrRequestNotPending
	}
	now := time.Now().UTC()
	req.Status = domain.WithdrawalStatusRejected
	req.DecidedBy = &decidedBy
	req.DecisionNote = note
	req.ProcessedAt = &now
	f.markTransactionStatus(req.TransactionID, domain.TxStatusRejected)
	f.applyLocked(refundTx)
	copied := *req
	return &copied, nil
}

func (f *fakeRepository) ListPendingWithdrawalRequests(_ context.Context) ([]domain.WithdrawalRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var reqs []domain.WithdrawalRequest
	for _, req := range f.requests {
		if req.Status == domain.WithdrawalStatusPending {
			reqs = append(reqs, *req)
		}
	}
	return reqs, nil
}

func (f *fakeRepository) CreditReferralCommission(_ context.Context, commissionTx *domain.Transaction, usage *domain.ReferralUsage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.wallets[commissionTx.AccountID]; !ok {
		return store.ErrWalletNotFound
	}
	f.applyLocked(commissionTx)
	if usage.ID == uuid.Nil {
		usage.ID = uuid.New()
	}
	if usage.CreatedAt.IsZero() {
		usage.CreatedAt = time.Now().UTC()
	}
	f.usages = append(f.usages, *usage)
	return nil
}

func (f *fakeRepository) ListReferralUsages(_ context.Context, referrerAccountID uuid.UUID) ([]domain.ReferralUsage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var usages []domain.ReferralUsage
	for i := len(f.usages) - 1; i >= 0; i-- {
		if f.usages[i].ReferrerAccountID == referrerAccountID {
			usages = append(usages, f.usages[i])
		}
	}
	return usages, nil
}

func requireInvariant(t *testing.T, repo *fakeRepository, accountID uuid.UUID) {
	t.Helper()
	balance := repo.balanceOf(accountID)
	sum := repo.ledgerSum(accountID)
	if !balance.Equal(sum) {
		t.Fatalf("balance %s does not equal ledger sum %s", balance, sum)
	}
}

func newTestService(repo *fakeRepository) *Service {
	return NewService(repo, nil, decimal.NewFromInt(5), decimal.NewFromInt(5))
}

func mustDecimal(t *testing.T, raw string) decimal.Decimal {
	t.Helper()
	value, err := decimal.NewFromString(raw)
	if err != nil {
		t.Fatalf("invalid decimal literal %q: %v", raw, err)
	}
	return value
}

func TestParseAmount_RejectsMalformedInput(t *testing.T) {
	if _, err := ParseAmount("fifty"); err != ErrMalformedAmount {
		t.Fatalf("expected ErrMalformedAmount, got %v", err)
	}
	if _, err := ParseAmount(""); err != ErrMalformedAmount {
		t.Fatalf("expected ErrMalformedAmount for empty input, got %v", err)
	}
	amount, err := ParseAmount("50.25")
	if err != nil {
		t.Fatalf("expected valid parse, got %v", err)
	}
	if !amount.Equal(mustDecimal(t, "50.25")) {
		t.Fatalf("expected 50.25, got %s", amount)
	}
}

func TestDeposit_CreditsLedgerAndBalance(t *testing.T) {
	repo := newFakeRepository()
	accountID := uuid.New()
	repo.addAccount(domain.Account{ID: accountID, Name: "Kitchen Supplies Ltd", Role: domain.RoleBuyer}, decimal.Zero)
	svc := newTestService(repo)

	tx, err := svc.Deposit(context.Background(), accountID, mustDecimal(t, "75.50"), "Wallet top-up")
	if err != nil {
		t.Fatalf("Deposit returned error: %v", err)
	}
	if tx.Type != domain.TxTypeDeposit || tx.Status != domain.TxStatusCompleted {
		t.Fatalf("unexpected deposit transaction: type=%s status=%s", tx.Type, tx.Status)
	}
	if !repo.balanceOf(accountID).Equal(mustDecimal(t, "75.50")) {
		t.Fatalf("expected balance 75.50, got %s", repo.balanceOf(accountID))
	}
	requireInvariant(t, repo, accountID)
}

func TestDeposit_RejectsNonPositiveAmounts(t *testing.T) {
	repo := newFakeRepository()
	accountID := uuid.New()
	repo.addAccount(domain.Account{ID: accountID, Role: domain.RoleBuyer}, decimal.Zero)
	svc := newTestService(repo)

	if _, err := svc.Deposit(context.Background(), accountID, decimal.Zero, "zero"); err != ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount for zero amount, got %v", err)
	}
	if _, err := svc.Deposit(context.Background(), accountID, mustDecimal(t, "-10"), "negative"); err != ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount for negative amount, got %v", err)
	}
	if repo.transactionCount(accountID) != 0 {
		t.Fatalf("expected no ledger records, got %d", repo.transactionCount(accountID))
	}
}

func TestListAllTransactions_RequiresCapability(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo)

	if _, err := svc.ListAllTransactions(context.Background(), Capability{ActorID: uuid.New()}); err != ErrNotAuthorized {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if _, err := svc.ListAllTransactions(context.Background(), Capability{ActorID: uuid.New(), ManageWithdrawals: true}); err != nil {
		t.Fatalf("expected admin listing to succeed, got %v", err)
	}
}

func TestEnsureWallet_IsIdempotent(t *testing.T) {
	repo := newFakeRepository()
	accountID := uuid.New()
	repo.addAccount(domain.Account{ID: accountID, Role: domain.RoleDealer}, mustDecimal(t, "120"))
	svc := newTestService(repo)

	if err := svc.EnsureWallet(context.Background(), accountID); err != nil {
		t.Fatalf("EnsureWallet returned error: %v", err)
	}
	if !repo.balanceOf(accountID).Equal(mustDecimal(t, "120")) {
		t.Fatalf("expected existing balance to survive, got %s", repo.balanceOf(accountID))
	}
}
