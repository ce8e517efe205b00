package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"trustbit/database"
	"trustbit/domain/entities"
)

// UserRepository implements the UserRepository interface
type UserRepository struct {
	q Queryable
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

// newUserRepository creates a new user repository bound to a transaction
func newUserRepository(tx Queryable) *UserRepository {
	return &UserRepository{q: tx}
}

const userColumns = `id, username, api_key, role, balance, created_at, updated_at`

func scanUser(row pgx.Row) (*entities.User, error) {
	var user entities.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.APIKey,
		&user.Role,
		&user.Balance,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)

	user, err := scanUser(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	return user, nil
}

// GetByIDForUpdate retrieves a user by ID with a row lock held for the
// duration of the surrounding transaction
func (r *UserRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1 FOR UPDATE`, userColumns)

	user, err := scanUser(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to lock user %s: %w", id, err)
	}
	return user, nil
}

// GetByAPIKey retrieves a user by their API key
func (r *UserRepository) GetByAPIKey(ctx context.Context, apiKey string) (*entities.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE api_key = $1`, userColumns)

	user, err := scanUser(r.q.QueryRow(ctx, query, apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by api key: %w", err)
	}
	return user, nil
}

// Create creates a new user with the initial balance
func (r *UserRepository) Create(ctx context.Context, username, apiKey string, initialBalance int64) (*entities.User, error) {
	query := `
		INSERT INTO users (id, username, api_key, balance)
		VALUES ($1, $2, $3, $4)
		RETURNING id, username, api_key, role, balance, created_at, updated_at
	`

	user, err := scanUser(r.q.QueryRow(ctx, query, uuid.New(), username, apiKey, initialBalance))
	if err != nil {
		return nil, fmt.Errorf("failed to create user %q: %w", username, err)
	}
	return user, nil
}

// UpdateBalance sets a user's balance
func (r *UserRepository) UpdateBalance(ctx context.Context, id uuid.UUID, newBalance int64) error {
	query := `
		UPDATE users
		SET balance = $1, updated_at = NOW()
		WHERE id = $2
	`
	result, err := r.q.Exec(ctx, query, newBalance, id)
	if err != nil {
		return fmt.Errorf("failed to update balance for user %s: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return entities.ErrUserNotFound
	}

	return nil
}

// SetRole updates a user's role
func (r *UserRepository) SetRole(ctx context.Context, id uuid.UUID, role entities.UserRole) error {
	query := `
		UPDATE users
		SET role = $1, updated_at = NOW()
		WHERE id = $2
	`
	result, err := r.q.Exec(ctx, query, role, id)
	if err != nil {
		return fmt.Errorf("failed to set role for user %s: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return entities.ErrUserNotFound
	}

	return nil
}

// GetAll returns all users, newest first
func (r *UserRepository) GetAll(ctx context.Context) ([]*entities.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users ORDER BY created_at DESC`, userColumns)

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get all users: %w", err)
	}
	defer rows.Close()

	var users []*entities.User
	for rows.Next() {
		var user entities.User
		err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.APIKey,
			&user.Role,
			&user.Balance,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}
