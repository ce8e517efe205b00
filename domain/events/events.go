package events

import (
	"time"

	"github.com/google/uuid"

	"trustbit/domain/entities"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeTransactionRecorded EventType = "transaction_recorded"
	EventTypeBotCreated          EventType = "bot_created"
	EventTypeBotExpired          EventType = "bot_expired"
	EventTypeBotStatusChanged    EventType = "bot_status_changed"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// TransactionRecordedEvent represents a wallet movement that was committed
type TransactionRecordedEvent struct {
	UserID          uuid.UUID
	Amount          int64
	BalanceAfter    int64
	TransactionType entities.TransactionType
	Description     string
}

func (e TransactionRecordedEvent) Type() EventType {
	return EventTypeTransactionRecorded
}

// BotCreatedEvent represents a bot that was provisioned and billed
type BotCreatedEvent struct {
	BotID   uuid.UUID
	OwnerID uuid.UUID
	Name    string
	Plan    string
	Price   int64
}

func (e BotCreatedEvent) Type() EventType {
	return EventTypeBotCreated
}

// BotExpiredEvent represents a bot claimed by the expiry sweep
type BotExpiredEvent struct {
	BotID     uuid.UUID
	OwnerID   uuid.UUID
	ExpiredAt time.Time
}

func (e BotExpiredEvent) Type() EventType {
	return EventTypeBotExpired
}

// BotStatusChangedEvent represents any committed status transition
type BotStatusChangedEvent struct {
	BotID     uuid.UUID
	OldStatus entities.BotStatus
	NewStatus entities.BotStatus
}

func (e BotStatusChangedEvent) Type() EventType {
	return EventTypeBotStatusChanged
}
