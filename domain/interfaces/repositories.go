package interfaces

import (
	"context"
	"time"

	"github.com/google/uuid"

	"trustbit/domain/entities"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// GetByID retrieves a user by ID, or nil if not found
	GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error)

	// GetByIDForUpdate retrieves a user by ID and locks the row for the
	// duration of the surrounding transaction. Wallet mutations must go
	// through this to serialize concurrent debits and credits per user.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.User, error)

	// GetByAPIKey retrieves a user by their API key, or nil if not found
	GetByAPIKey(ctx context.Context, apiKey string) (*entities.User, error)

	// Create creates a new user with the initial balance
	Create(ctx context.Context, username, apiKey string, initialBalance int64) (*entities.User, error)

	// UpdateBalance sets a user's balance
	UpdateBalance(ctx context.Context, id uuid.UUID, newBalance int64) error

	// SetRole updates a user's role (admin action)
	SetRole(ctx context.Context, id uuid.UUID, role entities.UserRole) error

	// GetAll returns all users
	GetAll(ctx context.Context) ([]*entities.User, error)
}

// BotRepository defines the interface for bot data access
type BotRepository interface {
	// Create inserts a new bot in DEPLOYING status
	Create(ctx context.Context, bot *entities.Bot) error

	// GetByID retrieves a bot by ID, or nil if not found
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Bot, error)

	// ListByOwner returns all bots owned by a user
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*entities.Bot, error)

	// UpdateStatus flips a bot's status with a single conditional update:
	// the write only applies while the current status is one of from.
	// Returns ErrBotNotFound if the bot does not exist and ErrStoreConflict
	// if the bot exists but its status changed concurrently.
	UpdateStatus(ctx context.Context, id uuid.UUID, from []entities.BotStatus, to entities.BotStatus) error

	// MarkRunning flips DEPLOYING to RUNNING and records the assigned port
	// in the same conditional update
	MarkRunning(ctx context.Context, id uuid.UUID, port int) error

	// ClaimExpired atomically selects every bot past expiry in an active
	// status and flips it to EXPIRED in the same statement, returning
	// exactly the set it claimed. A bot is never returned by two
	// overlapping claims.
	ClaimExpired(ctx context.Context, now time.Time) ([]*entities.Bot, error)

	// AppendLog appends one log line to a bot. Logs are append-only.
	AppendLog(ctx context.Context, botID uuid.UUID, message string) error

	// GetLogs returns the most recent log lines for a bot, oldest first
	GetLogs(ctx context.Context, botID uuid.UUID, limit int) ([]*entities.BotLog, error)
}

// TransactionRepository defines the interface for the wallet audit trail
type TransactionRepository interface {
	// Record appends a transaction. Transactions are immutable once written.
	Record(ctx context.Context, tx *entities.Transaction) error

	// GetByUser returns transactions for a user, newest first
	GetByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*entities.Transaction, error)

	// GetByReference retrieves a transaction by gateway reference, or nil
	// if not found
	GetByReference(ctx context.Context, reference string) (*entities.Transaction, error)

	// SumByUser returns the running sum of a user's transaction amounts
	SumByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}
