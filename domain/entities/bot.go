package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BotStatus represents the lifecycle state of a hosted bot
type BotStatus string

const (
	// BotStatusDeploying is the transient state set at creation, before the
	// supervisor has confirmed the backing process is up
	BotStatusDeploying BotStatus = "DEPLOYING"
	// BotStatusRunning means the backing process is up and billed
	BotStatusRunning BotStatus = "RUNNING"
	// BotStatusStopped is terminal: the bot was shut down or failed to launch
	BotStatusStopped BotStatus = "STOPPED"
	// BotStatusSuspended is an administrative hold; only an admin action
	// moves a bot in or out of it
	BotStatusSuspended BotStatus = "SUSPENDED"
	// BotStatusExpired is terminal: the bot's paid period ran out
	BotStatusExpired BotStatus = "EXPIRED"
)

// IsTerminal returns true if no transition leaves this status
func (s BotStatus) IsTerminal() bool {
	return s == BotStatusStopped || s == BotStatusExpired
}

// CanTransitionTo reports whether the state machine permits moving to the
// given status from this one
func (s BotStatus) CanTransitionTo(to BotStatus) bool {
	switch s {
	case BotStatusDeploying:
		return to == BotStatusRunning || to == BotStatusStopped || to == BotStatusExpired
	case BotStatusRunning:
		return to == BotStatusStopped || to == BotStatusSuspended || to == BotStatusExpired
	case BotStatusSuspended:
		return to == BotStatusRunning
	default:
		// STOPPED and EXPIRED are terminal
		return false
	}
}

// String returns the string representation of the status
func (s BotStatus) String() string {
	return string(s)
}

// Bot represents a metered, supervised compute instance owned by a user
type Bot struct {
	ID        uuid.UUID `db:"id"`
	OwnerID   uuid.UUID `db:"owner_id"`
	Name      string    `db:"name"`
	Language  string    `db:"language"`
	RAMMB     int       `db:"ram_mb"`
	Status    BotStatus `db:"status"`
	Plan      string    `db:"plan"`
	Port      *int      `db:"port"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ProcessName derives the supervisor process name for this bot.
// The backing process is always looked up by this name, never stored.
func (b *Bot) ProcessName() string {
	return fmt.Sprintf("bot_%s", b.ID)
}

// IsExpired reports whether the bot's paid period has run out at the given time
func (b *Bot) IsExpired(now time.Time) bool {
	return b.ExpiresAt.Before(now)
}

// IsActive reports whether the bot is in a state the expiry sweep may claim
func (b *Bot) IsActive() bool {
	return b.Status == BotStatusRunning || b.Status == BotStatusDeploying
}

// BotLog is a single append-only log line attached to a bot
type BotLog struct {
	ID        int64     `db:"id"`
	BotID     uuid.UUID `db:"bot_id"`
	Message   string    `db:"message"`
	CreatedAt time.Time `db:"created_at"`
}
