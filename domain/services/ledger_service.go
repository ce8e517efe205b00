package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"trustbit/domain/entities"
	"trustbit/domain/interfaces"
	"trustbit/domain/utils"
)

type ledgerService struct {
	userRepo        interfaces.UserRepository
	transactionRepo interfaces.TransactionRepository
	eventPublisher  interfaces.EventPublisher
}

// NewLedgerService creates a new ledger service. It must be constructed with
// repositories from a single unit of work so that the balance mutation and
// the audit row commit atomically.
func NewLedgerService(userRepo interfaces.UserRepository, transactionRepo interfaces.TransactionRepository, eventPublisher interfaces.EventPublisher) interfaces.LedgerService {
	return &ledgerService{
		userRepo:        userRepo,
		transactionRepo: transactionRepo,
		eventPublisher:  eventPublisher,
	}
}

func (s *ledgerService) Debit(ctx context.Context, userID uuid.UUID, amount int64, description string, reference *string) (*entities.Transaction, error) {
	if amount <= 0 {
		return nil, entities.ErrInvalidAmount
	}

	// Lock the user row so concurrent debits and credits on the same
	// wallet serialize instead of losing updates
	user, err := s.userRepo.GetByIDForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}
	if user == nil {
		return nil, entities.ErrUserNotFound
	}

	if !user.CanAfford(amount) {
		return nil, entities.ErrInsufficientFunds
	}

	newBalance := user.CalculateNewBalance(-amount)
	if err := s.userRepo.UpdateBalance(ctx, userID, newBalance); err != nil {
		return nil, fmt.Errorf("failed to update balance for user %s: %w", userID, err)
	}

	tx := &entities.Transaction{
		UserID:      userID,
		Amount:      -amount,
		Type:        entities.TransactionTypeDeduction,
		Description: description,
		Reference:   reference,
	}
	if err := utils.RecordTransaction(ctx, s.transactionRepo, s.eventPublisher, tx, newBalance); err != nil {
		return nil, err
	}

	return tx, nil
}

func (s *ledgerService) Credit(ctx context.Context, userID uuid.UUID, amount int64, description string, reference *string) (*entities.Transaction, error) {
	if amount <= 0 {
		return nil, entities.ErrInvalidAmount
	}

	user, err := s.userRepo.GetByIDForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}
	if user == nil {
		return nil, entities.ErrUserNotFound
	}

	newBalance := user.CalculateNewBalance(amount)
	if err := s.userRepo.UpdateBalance(ctx, userID, newBalance); err != nil {
		return nil, fmt.Errorf("failed to update balance for user %s: %w", userID, err)
	}

	tx := &entities.Transaction{
		UserID:      userID,
		Amount:      amount,
		Type:        entities.TransactionTypeDeposit,
		Description: description,
		Reference:   reference,
	}
	if err := utils.RecordTransaction(ctx, s.transactionRepo, s.eventPublisher, tx, newBalance); err != nil {
		return nil, err
	}

	return tx, nil
}
