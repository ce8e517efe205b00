package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"trustbit/database"
	"trustbit/domain/entities"
)

// TransactionRepository implements the TransactionRepository interface.
// The transactions table is an append-only audit trail; nothing here
// updates or deletes.
type TransactionRepository struct {
	q Queryable
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{q: db.Pool}
}

// newTransactionRepository creates a new transaction repository bound to a transaction
func newTransactionRepository(tx Queryable) *TransactionRepository {
	return &TransactionRepository{q: tx}
}

// Record appends a transaction
func (r *TransactionRepository) Record(ctx context.Context, tx *entities.Transaction) error {
	query := `
		INSERT INTO transactions (user_id, amount, type, description, reference)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		tx.UserID,
		tx.Amount,
		tx.Type,
		tx.Description,
		tx.Reference,
	).Scan(&tx.ID, &tx.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to record transaction for user %s: %w", tx.UserID, err)
	}

	return nil
}

// GetByUser returns transactions for a user, newest first
func (r *TransactionRepository) GetByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*entities.Transaction, error) {
	query := `
		SELECT id, user_id, amount, type, description, reference, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions for user %s: %w", userID, err)
	}
	defer rows.Close()

	var transactions []*entities.Transaction
	for rows.Next() {
		var tx entities.Transaction
		err := rows.Scan(
			&tx.ID,
			&tx.UserID,
			&tx.Amount,
			&tx.Type,
			&tx.Description,
			&tx.Reference,
			&tx.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, &tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return transactions, nil
}

// GetByReference retrieves a transaction by gateway reference
func (r *TransactionRepository) GetByReference(ctx context.Context, reference string) (*entities.Transaction, error) {
	query := `
		SELECT id, user_id, amount, type, description, reference, created_at
		FROM transactions
		WHERE reference = $1
	`

	var tx entities.Transaction
	err := r.q.QueryRow(ctx, query, reference).Scan(
		&tx.ID,
		&tx.UserID,
		&tx.Amount,
		&tx.Type,
		&tx.Description,
		&tx.Reference,
		&tx.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction by reference %q: %w", reference, err)
	}

	return &tx, nil
}

// SumByUser returns the running sum of a user's transaction amounts
func (r *TransactionRepository) SumByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE user_id = $1
	`

	var sum int64
	if err := r.q.QueryRow(ctx, query, userID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum transactions for user %s: %w", userID, err)
	}

	return sum, nil
}
