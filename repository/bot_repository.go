package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"trustbit/database"
	"trustbit/domain/entities"
)

// BotRepository implements the BotRepository interface
type BotRepository struct {
	q Queryable
}

// NewBotRepository creates a new bot repository
func NewBotRepository(db *database.DB) *BotRepository {
	return &BotRepository{q: db.Pool}
}

// newBotRepository creates a new bot repository bound to a transaction
func newBotRepository(tx Queryable) *BotRepository {
	return &BotRepository{q: tx}
}

const botColumns = `id, owner_id, name, language, ram_mb, status, plan, port, expires_at, created_at, updated_at`

func scanBot(row pgx.Row) (*entities.Bot, error) {
	var bot entities.Bot
	err := row.Scan(
		&bot.ID,
		&bot.OwnerID,
		&bot.Name,
		&bot.Language,
		&bot.RAMMB,
		&bot.Status,
		&bot.Plan,
		&bot.Port,
		&bot.ExpiresAt,
		&bot.CreatedAt,
		&bot.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bot, nil
}

// Create inserts a new bot in DEPLOYING status
func (r *BotRepository) Create(ctx context.Context, bot *entities.Bot) error {
	query := `
		INSERT INTO bots (id, owner_id, name, language, ram_mb, status, plan, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING status, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		bot.ID,
		bot.OwnerID,
		bot.Name,
		bot.Language,
		bot.RAMMB,
		entities.BotStatusDeploying,
		bot.Plan,
		bot.ExpiresAt,
	).Scan(&bot.Status, &bot.CreatedAt, &bot.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create bot %q for owner %s: %w", bot.Name, bot.OwnerID, err)
	}

	return nil
}

// GetByID retrieves a bot by ID
func (r *BotRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Bot, error) {
	query := fmt.Sprintf(`SELECT %s FROM bots WHERE id = $1`, botColumns)

	bot, err := scanBot(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get bot %s: %w", id, err)
	}
	return bot, nil
}

// ListByOwner returns all bots owned by a user, newest first
func (r *BotRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*entities.Bot, error) {
	query := fmt.Sprintf(`SELECT %s FROM bots WHERE owner_id = $1 ORDER BY created_at DESC`, botColumns)

	rows, err := r.q.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bots for owner %s: %w", ownerID, err)
	}
	defer rows.Close()

	return collectBots(rows)
}

// UpdateStatus flips a bot's status with a single conditional update.
// The write applies only while the current status is one of from; a raced
// update surfaces as ErrStoreConflict so callers can treat it as
// "not claimed" rather than a failure.
func (r *BotRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from []entities.BotStatus, to entities.BotStatus) error {
	statuses := make([]string, len(from))
	for i, s := range from {
		statuses[i] = string(s)
	}

	query := `
		UPDATE bots
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = ANY($3)
	`
	result, err := r.q.Exec(ctx, query, to, id, statuses)
	if err != nil {
		return fmt.Errorf("failed to update status of bot %s to %s: %w", id, to, err)
	}

	if result.RowsAffected() == 0 {
		return r.classifyConflict(ctx, id)
	}

	return nil
}

// MarkRunning flips DEPLOYING to RUNNING and records the assigned port in
// the same conditional update
func (r *BotRepository) MarkRunning(ctx context.Context, id uuid.UUID, port int) error {
	query := `
		UPDATE bots
		SET status = $1, port = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4
	`
	result, err := r.q.Exec(ctx, query, entities.BotStatusRunning, port, id, entities.BotStatusDeploying)
	if err != nil {
		return fmt.Errorf("failed to mark bot %s running: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return r.classifyConflict(ctx, id)
	}

	return nil
}

// classifyConflict distinguishes a missing bot from one whose status moved
// under a conditional update
func (r *BotRepository) classifyConflict(ctx context.Context, id uuid.UUID) error {
	bot, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if bot == nil {
		return entities.ErrBotNotFound
	}
	return entities.ErrStoreConflict
}

// ClaimExpired atomically selects every bot past expiry in an active status
// and flips it to EXPIRED in the same statement. The select-and-flip is one
// indivisible operation: overlapping sweeps never claim the same bot twice.
func (r *BotRepository) ClaimExpired(ctx context.Context, now time.Time) ([]*entities.Bot, error) {
	query := fmt.Sprintf(`
		UPDATE bots
		SET status = $1, updated_at = NOW()
		WHERE expires_at < $2 AND status = ANY($3)
		RETURNING %s
	`, botColumns)

	active := []string{
		string(entities.BotStatusRunning),
		string(entities.BotStatusDeploying),
	}

	rows, err := r.q.Query(ctx, query, entities.BotStatusExpired, now, active)
	if err != nil {
		return nil, fmt.Errorf("failed to claim expired bots: %w", err)
	}
	defer rows.Close()

	return collectBots(rows)
}

// AppendLog appends one log line to a bot
func (r *BotRepository) AppendLog(ctx context.Context, botID uuid.UUID, message string) error {
	query := `
		INSERT INTO bot_logs (bot_id, message)
		VALUES ($1, $2)
	`
	if _, err := r.q.Exec(ctx, query, botID, message); err != nil {
		return fmt.Errorf("failed to append log to bot %s: %w", botID, err)
	}
	return nil
}

// GetLogs returns the most recent log lines for a bot, oldest first
func (r *BotRepository) GetLogs(ctx context.Context, botID uuid.UUID, limit int) ([]*entities.BotLog, error) {
	query := `
		SELECT id, bot_id, message, created_at
		FROM (
			SELECT id, bot_id, message, created_at
			FROM bot_logs
			WHERE bot_id = $1
			ORDER BY id DESC
			LIMIT $2
		) recent
		ORDER BY id ASC
	`

	rows, err := r.q.Query(ctx, query, botID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get logs for bot %s: %w", botID, err)
	}
	defer rows.Close()

	var logs []*entities.BotLog
	for rows.Next() {
		var entry entities.BotLog
		if err := rows.Scan(&entry.ID, &entry.BotID, &entry.Message, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bot log: %w", err)
		}
		logs = append(logs, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bot logs: %w", err)
	}

	return logs, nil
}

func collectBots(rows pgx.Rows) ([]*entities.Bot, error) {
	var bots []*entities.Bot
	for rows.Next() {
		var bot entities.Bot
		err := rows.Scan(
			&bot.ID,
			&bot.OwnerID,
			&bot.Name,
			&bot.Language,
			&bot.RAMMB,
			&bot.Status,
			&bot.Plan,
			&bot.Port,
			&bot.ExpiresAt,
			&bot.CreatedAt,
			&bot.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bot: %w", err)
		}
		bots = append(bots, &bot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bots: %w", err)
	}

	return bots, nil
}
