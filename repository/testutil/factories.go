package testutil

import (
	"time"

	"github.com/google/uuid"

	"trustbit/domain/entities"
)

// NewTestBot creates a bot entity with sensible defaults, expiring a day
// from now. Repositories always insert bots in DEPLOYING status; tests move
// them through the lifecycle with the repository's conditional updates.
func NewTestBot(ownerID uuid.UUID, name string) *entities.Bot {
	return &entities.Bot{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Name:      name,
		Language:  "nodejs",
		RAMMB:     256,
		Status:    entities.BotStatusDeploying,
		Plan:      "starter",
		ExpiresAt: time.Now().UTC().Add(24 * time.Hour),
	}
}

// NewExpiredTestBot creates a bot whose paid period lapsed an hour ago
func NewExpiredTestBot(ownerID uuid.UUID, name string) *entities.Bot {
	bot := NewTestBot(ownerID, name)
	bot.ExpiresAt = time.Now().UTC().Add(-time.Hour)
	return bot
}

// NewTestTransaction creates a transaction entity whose type matches the
// sign of amount
func NewTestTransaction(userID uuid.UUID, amount int64) *entities.Transaction {
	transactionType := entities.TransactionTypeDeposit
	if amount < 0 {
		transactionType = entities.TransactionTypeDeduction
	}
	return &entities.Transaction{
		UserID:      userID,
		Amount:      amount,
		Type:        transactionType,
		Description: "test transaction",
	}
}
