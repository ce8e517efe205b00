package entities

import "errors"

// Error kinds surfaced by the lifecycle and billing core. The routing layer
// maps these to transport-level status codes; internal callers test them
// with errors.Is.
var (
	// ErrInsufficientFunds is returned when a debit exceeds the wallet balance
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAmount is returned for zero or negative amounts
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrUserNotFound is returned when the referenced user does not exist
	ErrUserNotFound = errors.New("user not found")

	// ErrBotNotFound is returned when the referenced bot does not exist
	ErrBotNotFound = errors.New("bot not found")

	// ErrInvalidTransition is returned for a status change the state machine
	// does not permit
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrStoreConflict is returned when a conditional update raced and lost.
	// Callers treat this as "not claimed", not as a fatal error.
	ErrStoreConflict = errors.New("record changed concurrently")

	// ErrSupervisorUnavailable is returned when the process supervisor
	// cannot be reached
	ErrSupervisorUnavailable = errors.New("supervisor unavailable")

	// ErrSupervisorTimeout is returned when a supervisor call exceeded its
	// deadline
	ErrSupervisorTimeout = errors.New("supervisor request timed out")

	// ErrLaunchFailed is returned when the supervisor could not start the
	// requested process
	ErrLaunchFailed = errors.New("process launch failed")

	// ErrGateway is returned when the payment gateway rejects or fails a
	// funding request
	ErrGateway = errors.New("payment gateway error")

	// ErrUnauthorized is returned when a non-admin attempts an
	// administrative action
	ErrUnauthorized = errors.New("operation requires admin role")
)
