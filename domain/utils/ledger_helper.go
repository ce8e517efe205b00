package utils

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"trustbit/domain/entities"
	"trustbit/domain/events"
	"trustbit/domain/interfaces"
)

// RecordTransaction appends a wallet transaction and emits the matching
// event. This is the single entry point for writing the audit trail.
func RecordTransaction(ctx context.Context, transactionRepo interfaces.TransactionRepository, eventPublisher interfaces.EventPublisher, tx *entities.Transaction, balanceAfter int64) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("invalid transaction: %w", err)
	}

	if err := transactionRepo.Record(ctx, tx); err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}

	event := events.TransactionRecordedEvent{
		UserID:          tx.UserID,
		Amount:          tx.Amount,
		BalanceAfter:    balanceAfter,
		TransactionType: tx.Type,
		Description:     tx.Description,
	}
	log.WithFields(log.Fields{
		"userID":          event.UserID,
		"amount":          event.Amount,
		"balanceAfter":    event.BalanceAfter,
		"transactionType": event.TransactionType,
	}).Debug("Publishing TransactionRecordedEvent")
	if err := eventPublisher.Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish transaction recorded event")
	}

	return nil
}
