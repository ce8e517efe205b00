package entities

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestBotStatus_CanTransitionTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from    BotStatus
		to      BotStatus
		allowed bool
	}{
		{BotStatusDeploying, BotStatusRunning, true},
		{BotStatusDeploying, BotStatusStopped, true},
		{BotStatusDeploying, BotStatusExpired, true},
		{BotStatusDeploying, BotStatusSuspended, false},

		{BotStatusRunning, BotStatusStopped, true},
		{BotStatusRunning, BotStatusSuspended, true},
		{BotStatusRunning, BotStatusExpired, true},
		{BotStatusRunning, BotStatusDeploying, false},

		{BotStatusSuspended, BotStatusRunning, true},
		{BotStatusSuspended, BotStatusStopped, false},
		{BotStatusSuspended, BotStatusExpired, false},

		{BotStatusStopped, BotStatusRunning, false},
		{BotStatusStopped, BotStatusDeploying, false},
		{BotStatusExpired, BotStatusRunning, false},
		{BotStatusExpired, BotStatusStopped, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestBotStatus_IsTerminal(t *testing.T) {
	t.Parallel()

	assert.True(t, BotStatusStopped.IsTerminal())
	assert.True(t, BotStatusExpired.IsTerminal())
	assert.False(t, BotStatusDeploying.IsTerminal())
	assert.False(t, BotStatusRunning.IsTerminal())
	assert.False(t, BotStatusSuspended.IsTerminal())
}

func TestBot_ProcessName(t *testing.T) {
	t.Parallel()

	bot := &Bot{ID: uuid.MustParse("4f8c2e1a-0b7d-4c3e-9f6a-1d2e3f4a5b6c")}
	assert.Equal(t, "bot_4f8c2e1a-0b7d-4c3e-9f6a-1d2e3f4a5b6c", bot.ProcessName())
}

func TestBot_IsExpired(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()

	t.Run("past expiry", func(t *testing.T) {
		bot := &Bot{ExpiresAt: now.Add(-time.Minute)}
		assert.True(t, bot.IsExpired(now))
	})

	t.Run("before expiry", func(t *testing.T) {
		bot := &Bot{ExpiresAt: now.Add(time.Minute)}
		assert.False(t, bot.IsExpired(now))
	})

	t.Run("exactly at expiry is not yet expired", func(t *testing.T) {
		bot := &Bot{ExpiresAt: now}
		assert.False(t, bot.IsExpired(now))
	})
}

func TestBot_IsActive(t *testing.T) {
	t.Parallel()

	assert.True(t, (&Bot{Status: BotStatusRunning}).IsActive())
	assert.True(t, (&Bot{Status: BotStatusDeploying}).IsActive())
	assert.False(t, (&Bot{Status: BotStatusSuspended}).IsActive())
	assert.False(t, (&Bot{Status: BotStatusStopped}).IsActive())
	assert.False(t, (&Bot{Status: BotStatusExpired}).IsActive())
}
