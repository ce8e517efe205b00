package entities

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TransactionType represents the direction of a wallet movement
type TransactionType string

const (
	TransactionTypeDeposit   TransactionType = "DEPOSIT"
	TransactionTypeDeduction TransactionType = "DEDUCTION"
)

// String returns the string representation of the transaction type
func (tt TransactionType) String() string {
	return string(tt)
}

// Transaction is one immutable entry in a user's wallet audit trail.
// Amounts are signed: positive for deposits, negative for deductions.
// The running sum of a user's transactions always equals their balance.
type Transaction struct {
	ID          int64           `db:"id"`
	UserID      uuid.UUID       `db:"user_id"`
	Amount      int64           `db:"amount"`
	Type        TransactionType `db:"type"`
	Description string          `db:"description"`
	Reference   *string         `db:"reference"`
	CreatedAt   time.Time       `db:"created_at"`
}

// IsDeposit returns true if the transaction added funds
func (t *Transaction) IsDeposit() bool {
	return t.Type == TransactionTypeDeposit
}

// IsDeduction returns true if the transaction removed funds
func (t *Transaction) IsDeduction() bool {
	return t.Type == TransactionTypeDeduction
}

// Validate performs basic consistency checks on the transaction
func (t *Transaction) Validate() error {
	if t.Amount == 0 {
		return errors.New("transaction amount cannot be zero")
	}
	if t.Type == TransactionTypeDeposit && t.Amount < 0 {
		return errors.New("deposit amount must be positive")
	}
	if t.Type == TransactionTypeDeduction && t.Amount > 0 {
		return errors.New("deduction amount must be negative")
	}
	if t.UserID == uuid.Nil {
		return errors.New("transaction must reference a user")
	}
	return nil
}
