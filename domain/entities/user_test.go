package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUser_CanAfford(t *testing.T) {
	user := &User{Balance: 100}

	assert.True(t, user.CanAfford(100))
	assert.True(t, user.CanAfford(40))
	assert.False(t, user.CanAfford(101))
}

func TestUser_CalculateNewBalance(t *testing.T) {
	user := &User{Balance: 100}

	assert.Equal(t, int64(60), user.CalculateNewBalance(-40))
	assert.Equal(t, int64(250), user.CalculateNewBalance(150))
	assert.Equal(t, int64(100), user.CalculateNewBalance(0))
}

func TestUser_IsAdmin(t *testing.T) {
	assert.True(t, (&User{Role: UserRoleAdmin}).IsAdmin())
	assert.False(t, (&User{Role: UserRoleUser}).IsAdmin())
	assert.False(t, (&User{}).IsAdmin())
}
