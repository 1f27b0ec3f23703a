package app

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/restomart/wallet-service/internal/domain"
	"github.com/restomart/wallet-service/pkg/directory"
	"github.com/shopspring/decimal"
)

// WalletEventsConsumer processes broker messages that feed the ledger: settled
// top-ups from the payment bridge and account-created announcements from the
// account directory.
type WalletEventsConsumer struct {
	service   *Service
	directory *directory.Client // optional; nil when the directory API is not configured
}

func NewWalletEventsConsumer(service *Service, directoryClient *directory.Client) *WalletEventsConsumer {
	return &WalletEventsConsumer{service: service, directory: directoryClient}
}

// HandleDepositSettled credits a confirmed top-up to the account's ledger.
// Returns true to ack the message; malformed payloads are acked and dropped.
func (c *WalletEventsConsumer) HandleDepositSettled(body []byte) bool {
	var event domain.DepositSettledEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("level=warn component=wallet_consumer msg=\"failed to unmarshal deposit event\" err=%v", err)
		return true
	}
	if event.AccountID == uuid.Nil || event.Amount.LessThanOrEqual(decimal.Zero) {
		log.Printf("level=warn component=wallet_consumer msg=\"dropping invalid deposit event\" event_id=%s", event.EventID)
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	description := "Wallet top-up"
	if event.Reference != "" {
		description = "Wallet top-up " + event.Reference
	}
	if _, err := c.service.Deposit(ctx, event.AccountID, event.Amount, description); err != nil {
		log.Printf("level=error component=wallet_consumer msg=\"deposit credit failed\" account_id=%s err=%v", event.AccountID, err)
		return false
	}
	return true
}

// HandleAccountCreated provisions a zero-balance wallet for a new account. When
// the directory API client is configured the account's existence is verified
// first, so a replayed or forged event cannot create an orphan wallet.
func (c *WalletEventsConsumer) HandleAccountCreated(body []byte) bool {
	var event domain.AccountCreatedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("level=warn component=wallet_consumer msg=\"failed to unmarshal account event\" err=%v", err)
		return true
	}
	if event.AccountID == uuid.Nil {
		log.Printf("level=warn component=wallet_consumer msg=\"dropping account event without id\" event_id=%s", event.EventID)
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if c.directory != nil {
		exists, err := c.directory.AccountExists(ctx, event.AccountID)
		if err != nil {
			log.Printf("level=error component=wallet_consumer msg=\"directory existence check failed\" account_id=%s err=%v", event.AccountID, err)
			return false
		}
		if !exists {
			log.Printf("level=warn component=wallet_consumer msg=\"dropping account event for unknown account\" account_id=%s", event.AccountID)
			return true
		}
	}

	if err := c.service.EnsureWallet(ctx, event.AccountID); err != nil {
		log.Printf("level=error component=wallet_consumer msg=\"wallet provisioning failed\" account_id=%s err=%v", event.AccountID, err)
		return false
	}
	return true
}
