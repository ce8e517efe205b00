package entities

import (
	"time"

	"github.com/google/uuid"
)

// UserRole represents the authorization level of a user
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

// User represents an account with a prepaid wallet balance
type User struct {
	ID        uuid.UUID `db:"id"`
	Username  string    `db:"username"`
	APIKey    string    `db:"api_key"`
	Role      UserRole  `db:"role"`
	Balance   int64     `db:"balance"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// CanAfford checks if the user has sufficient balance for an amount
func (u *User) CanAfford(amount int64) bool {
	return u.Balance >= amount
}

// IsAdmin checks if the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// CalculateNewBalance calculates what the balance would be after a change
func (u *User) CalculateNewBalance(changeAmount int64) int64 {
	return u.Balance + changeAmount
}
