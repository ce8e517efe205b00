package interfaces

import (
	"context"

	"github.com/google/uuid"

	"trustbit/domain/entities"
	"trustbit/domain/events"
)

// LedgerService couples wallet balance mutations to the audit trail.
// Both operations run inside the caller's unit of work: no observer ever
// sees a balance change without its transaction row or vice versa.
type LedgerService interface {
	// Debit removes amount from the user's wallet and appends a DEDUCTION
	// transaction with the amount negated. Fails with ErrInvalidAmount for
	// non-positive amounts and ErrInsufficientFunds when amount exceeds the
	// balance; neither failure mutates anything.
	Debit(ctx context.Context, userID uuid.UUID, amount int64, description string, reference *string) (*entities.Transaction, error)

	// Credit adds amount to the user's wallet and appends a DEPOSIT
	// transaction. Fails with ErrInvalidAmount for non-positive amounts.
	Credit(ctx context.Context, userID uuid.UUID, amount int64, description string, reference *string) (*entities.Transaction, error)
}

// LaunchSpec describes the process the supervisor should start for a bot
type LaunchSpec struct {
	Language string `json:"language"`
	RAMMB    int    `json:"ram_mb"`
	Name     string `json:"name"`
}

// ProcessSupervisor abstracts the external system that starts and stops the
// OS-level process backing a bot. All calls carry a timeout.
type ProcessSupervisor interface {
	// Start requests a process launch and returns the assigned port.
	// Fails with ErrSupervisorUnavailable, ErrSupervisorTimeout or
	// ErrLaunchFailed.
	Start(ctx context.Context, processName string, spec LaunchSpec) (int, error)

	// Stop requests termination. A process that is already gone counts as
	// success: stop is idempotent.
	Stop(ctx context.Context, processName string) error
}

// FundingIntent is the gateway's handle for a wallet top-up in progress
type FundingIntent struct {
	Reference   string
	RedirectURL string
	Amount      int64
}

// VerifiedPayment is the gateway's confirmation of a settled funding
// transaction. UserID is the customer the transaction was initialized
// for, echoed back by the gateway.
type VerifiedPayment struct {
	Reference string
	UserID    uuid.UUID
	Amount    int64
	Settled   bool
}

// PaymentGateway abstracts the third-party processor used to top up wallets
type PaymentGateway interface {
	// InitializeTransaction starts a funding transaction and returns a
	// redirect/reference token. Failures surface as ErrGateway.
	InitializeTransaction(ctx context.Context, userID uuid.UUID, amount int64) (*FundingIntent, error)

	// VerifyTransaction checks whether a funding transaction settled
	VerifyTransaction(ctx context.Context, reference string) (*VerifiedPayment, error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	Publish(event events.Event) error
}

// TransactionalEventPublisher buffers events until the surrounding database
// transaction commits, and discards them on rollback
type TransactionalEventPublisher interface {
	EventPublisher

	// Flush publishes all pending events; called after a successful commit
	Flush(ctx context.Context) error

	// Discard drops all pending events; called on rollback
	Discard()
}
