package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustbit/domain/entities"
	"trustbit/repository/testutil"
)

func TestBotRepository_Create(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	ctx := context.Background()
	userRepo := NewUserRepository(testDB.DB)
	botRepo := NewBotRepository(testDB.DB)

	owner, err := userRepo.Create(ctx, "botowner", "key-bot", 1000)
	require.NoError(t, err)

	t.Run("inserts in deploying status", func(t *testing.T) {
		bot := testutil.NewTestBot(owner.ID, "mybot")
		err := botRepo.Create(ctx, bot)
		require.NoError(t, err)

		assert.Equal(t, entities.BotStatusDeploying, bot.Status)
		assert.False(t, bot.CreatedAt.IsZero())

		found, err := botRepo.GetByID(ctx, bot.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, bot.Name, found.Name)
		assert.Nil(t, found.Port)
	})

	t.Run("unknown owner rejected", func(t *testing.T) {
		bot := testutil.NewTestBot(uuid.New(), "orphan")
		err := botRepo.Create(ctx, bot)
		assert.Error(t, err)
	})
}

func TestBotRepository_ListByOwner(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	ctx := context.Background()
	userRepo := NewUserRepository(testDB.DB)
	botRepo := NewBotRepository(testDB.DB)

	owner, err := userRepo.Create(ctx, "listowner", "key-list", 1000)
	require.NoError(t, err)
	other, err := userRepo.Create(ctx, "otherowner", "key-other", 1000)
	require.NoError(t, err)

	require.NoError(t, botRepo.Create(ctx, testutil.NewTestBot(owner.ID, "first")))
	require.NoError(t, botRepo.Create(ctx, testutil.NewTestBot(owner.ID, "second")))
	require.NoError(t, botRepo.Create(ctx, testutil.NewTestBot(other.ID, "foreign")))

	bots, err := botRepo.ListByOwner(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, bots, 2)
	for _, bot := range bots {
		assert.Equal(t, owner.ID, bot.OwnerID)
	}
}

func TestBotRepository_UpdateStatus(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	ctx := context.Background()
	userRepo := NewUserRepository(testDB.DB)
	botRepo := NewBotRepository(testDB.DB)

	owner, err := userRepo.Create(ctx, "statusowner", "key-status", 1000)
	require.NoError(t, err)

	t.Run("conditional flip applies", func(t *testing.T) {
		bot := testutil.NewTestBot(owner.ID, "flipper")
		require.NoError(t, botRepo.Create(ctx, bot))

		err := botRepo.UpdateStatus(ctx, bot.ID,
			[]entities.BotStatus{entities.BotStatusDeploying}, entities.BotStatusStopped)
		require.NoError(t, err)

		found, err := botRepo.GetByID(ctx, bot.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.BotStatusStopped, found.Status)
	})

	t.Run("stale precondition surfaces conflict", func(t *testing.T) {
		bot := testutil.NewTestBot(owner.ID, "conflicted")
		require.NoError(t, botRepo.Create(ctx, bot))

		// Bot is DEPLOYING; an update expecting RUNNING must not apply
		err := botRepo.UpdateStatus(ctx, bot.ID,
			[]entities.BotStatus{entities.BotStatusRunning}, entities.BotStatusSuspended)
		assert.ErrorIs(t, err, entities.ErrStoreConflict)

		found, err := botRepo.GetByID(ctx, bot.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.BotStatusDeploying, found.Status)
	})

	t.Run("missing bot", func(t *testing.T) {
		err := botRepo.UpdateStatus(ctx, uuid.New(),
			[]entities.BotStatus{entities.BotStatusDeploying}, entities.BotStatusStopped)
		assert.ErrorIs(t, err, entities.ErrBotNotFound)
	})
}

func TestBotRepository_MarkRunning(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	ctx := context.Background()
	userRepo := NewUserRepository(testDB.DB)
	botRepo := NewBotRepository(testDB.DB)

	owner, err := userRepo.Create(ctx, "runowner", "key-run", 1000)
	require.NoError(t, err)

	t.Run("assigns port", func(t *testing.T) {
		bot := testutil.NewTestBot(owner.ID, "runner")
		require.NoError(t, botRepo.Create(ctx, bot))

		err := botRepo.MarkRunning(ctx, bot.ID, 25001)
		require.NoError(t, err)

		found, err := botRepo.GetByID(ctx, bot.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.BotStatusRunning, found.Status)
		require.NotNil(t, found.Port)
		assert.Equal(t, 25001, *found.Port)
	})

	t.Run("only from deploying", func(t *testing.T) {
		bot := testutil.NewTestBot(owner.ID, "stopped-runner")
		require.NoError(t, botRepo.Create(ctx, bot))
		require.NoError(t, botRepo.UpdateStatus(ctx, bot.ID,
			[]entities.BotStatus{entities.BotStatusDeploying}, entities.BotStatusStopped))

		err := botRepo.MarkRunning(ctx, bot.ID, 25002)
		assert.ErrorIs(t, err, entities.ErrStoreConflict)
	})
}

func TestBotRepository_ClaimExpired(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	ctx := context.Background()
	userRepo := NewUserRepository(testDB.DB)
	botRepo := NewBotRepository(testDB.DB)

	owner, err := userRepo.Create(ctx, "expowner", "key-exp", 1000)
	require.NoError(t, err)

	// One expired running bot, one expired deploying bot, one expired
	// suspended bot, one live running bot
	expiredRunning := testutil.NewExpiredTestBot(owner.ID, "expired-running")
	require.NoError(t, botRepo.Create(ctx, expiredRunning))
	require.NoError(t, botRepo.MarkRunning(ctx, expiredRunning.ID, 25001))

	expiredDeploying := testutil.NewExpiredTestBot(owner.ID, "expired-deploying")
	require.NoError(t, botRepo.Create(ctx, expiredDeploying))

	expiredSuspended := testutil.NewExpiredTestBot(owner.ID, "expired-suspended")
	require.NoError(t, botRepo.Create(ctx, expiredSuspended))
	require.NoError(t, botRepo.MarkRunning(ctx, expiredSuspended.ID, 25002))
	require.NoError(t, botRepo.UpdateStatus(ctx, expiredSuspended.ID,
		[]entities.BotStatus{entities.BotStatusRunning}, entities.BotStatusSuspended))

	liveRunning := testutil.NewTestBot(owner.ID, "live-running")
	require.NoError(t, botRepo.Create(ctx, liveRunning))
	require.NoError(t, botRepo.MarkRunning(ctx, liveRunning.ID, 25003))

	claimed, err := botRepo.ClaimExpired(ctx, time.Now().UTC())
	require.NoError(t, err)

	claimedIDs := make(map[uuid.UUID]bool)
	for _, bot := range claimed {
		assert.Equal(t, entities.BotStatusExpired, bot.Status)
		claimedIDs[bot.ID] = true
	}
	assert.True(t, claimedIDs[expiredRunning.ID])
	assert.True(t, claimedIDs[expiredDeploying.ID])
	assert.False(t, claimedIDs[expiredSuspended.ID], "suspended bots are not swept")
	assert.False(t, claimedIDs[liveRunning.ID], "unexpired bots are not swept")

	// A second sweep finds nothing: the claim is consumed
	again, err := botRepo.ClaimExpired(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Empty(t, again)
}

// Overlapping sweeps must partition the expired set: every bot is claimed by
// exactly one of them.
func TestBotRepository_ClaimExpired_Concurrent(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	ctx := context.Background()
	userRepo := NewUserRepository(testDB.DB)
	botRepo := NewBotRepository(testDB.DB)

	owner, err := userRepo.Create(ctx, "raceowner", "key-race", 1000)
	require.NoError(t, err)

	const botCount = 25
	for i := 0; i < botCount; i++ {
		bot := testutil.NewExpiredTestBot(owner.ID, "race-bot")
		bot.Name = bot.Name + "-" + bot.ID.String()[:8]
		require.NoError(t, botRepo.Create(ctx, bot))
		require.NoError(t, botRepo.MarkRunning(ctx, bot.ID, 20000+i))
	}

	const sweepers = 8
	var wg sync.WaitGroup
	claimedCh := make(chan []*entities.Bot, sweepers)

	for i := 0; i < sweepers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := botRepo.ClaimExpired(ctx, time.Now().UTC())
			assert.NoError(t, err)
			claimedCh <- claimed
		}()
	}

	wg.Wait()
	close(claimedCh)

	seen := make(map[uuid.UUID]int)
	total := 0
	for claimed := range claimedCh {
		for _, bot := range claimed {
			seen[bot.ID]++
			total++
		}
	}

	assert.Equal(t, botCount, total)
	for id, count := range seen {
		assert.Equalf(t, 1, count, "bot %s claimed %d times", id, count)
	}
}

func TestBotRepository_Logs(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	ctx := context.Background()
	userRepo := NewUserRepository(testDB.DB)
	botRepo := NewBotRepository(testDB.DB)

	owner, err := userRepo.Create(ctx, "logowner", "key-log", 1000)
	require.NoError(t, err)

	bot := testutil.NewTestBot(owner.ID, "logger")
	require.NoError(t, botRepo.Create(ctx, bot))

	require.NoError(t, botRepo.AppendLog(ctx, bot.ID, "first"))
	require.NoError(t, botRepo.AppendLog(ctx, bot.ID, "second"))
	require.NoError(t, botRepo.AppendLog(ctx, bot.ID, "third"))

	t.Run("oldest first within limit", func(t *testing.T) {
		logs, err := botRepo.GetLogs(ctx, bot.ID, 10)
		require.NoError(t, err)
		require.Len(t, logs, 3)
		assert.Equal(t, "first", logs[0].Message)
		assert.Equal(t, "third", logs[2].Message)
	})

	t.Run("limit keeps newest", func(t *testing.T) {
		logs, err := botRepo.GetLogs(ctx, bot.ID, 2)
		require.NoError(t, err)
		require.Len(t, logs, 2)
		assert.Equal(t, "second", logs[0].Message)
		assert.Equal(t, "third", logs[1].Message)
	})
}
