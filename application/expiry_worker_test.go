package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"trustbit/domain/entities"
	"trustbit/domain/interfaces"
	"trustbit/domain/testhelpers"
	"trustbit/supervisor"
)

func newExpiredBot(name string) *entities.Bot {
	return &entities.Bot{
		ID:        uuid.New(),
		OwnerID:   uuid.New(),
		Name:      name,
		Status:    entities.BotStatusExpired,
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}
}

func TestExpiryWorker_ReconcileExpired(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("claims then stops each bot", func(t *testing.T) {
		t.Parallel()

		factory := NewMockUnitOfWorkFactory()
		uow := factory.UoW
		sup := supervisor.NewInMemory()

		first := newExpiredBot("first")
		second := newExpiredBot("second")

		// Preload the supervisor so the stops have something to remove
		_, err := sup.Start(context.Background(), first.ProcessName(), interfaces.LaunchSpec{Name: first.Name})
		require.NoError(t, err)
		_, err = sup.Start(context.Background(), second.ProcessName(), interfaces.LaunchSpec{Name: second.Name})
		require.NoError(t, err)

		uow.Bots.On("ClaimExpired", mock.Anything, now).Return([]*entities.Bot{first, second}, nil)
		uow.Bots.On("AppendLog", mock.Anything, first.ID, mock.Anything).Return(nil)
		uow.Bots.On("AppendLog", mock.Anything, second.ID, mock.Anything).Return(nil)

		worker := NewExpiryWorker(factory, sup, time.Minute, time.Second, nil)
		count, err := worker.ReconcileExpired(context.Background(), now)

		require.NoError(t, err)
		assert.Equal(t, 2, count)
		assert.False(t, sup.Running(first.ProcessName()))
		assert.False(t, sup.Running(second.ProcessName()))
		assert.Equal(t, 1, sup.StopCount(first.ProcessName()))
		assert.Equal(t, 1, sup.StopCount(second.ProcessName()))

		uow.Bots.AssertExpectations(t)
	})

	t.Run("empty sweep touches nothing", func(t *testing.T) {
		t.Parallel()

		factory := NewMockUnitOfWorkFactory()
		uow := factory.UoW
		sup := supervisor.NewInMemory()

		uow.Bots.On("ClaimExpired", mock.Anything, now).Return([]*entities.Bot{}, nil)

		worker := NewExpiryWorker(factory, sup, time.Minute, time.Second, nil)
		count, err := worker.ReconcileExpired(context.Background(), now)

		require.NoError(t, err)
		assert.Equal(t, 0, count)
		assert.Empty(t, sup.StopCalls)
	})

	t.Run("stop failure is logged, not raised", func(t *testing.T) {
		t.Parallel()

		factory := NewMockUnitOfWorkFactory()
		uow := factory.UoW
		sup := new(testhelpers.MockProcessSupervisor)

		bot := newExpiredBot("unstoppable")
		uow.Bots.On("ClaimExpired", mock.Anything, now).Return([]*entities.Bot{bot}, nil)
		sup.On("Stop", mock.Anything, bot.ProcessName()).Return(entities.ErrSupervisorUnavailable)

		var logged string
		uow.Bots.On("AppendLog", mock.Anything, bot.ID, mock.AnythingOfType("string")).
			Run(func(args mock.Arguments) { logged = args.Get(2).(string) }).
			Return(nil)

		worker := NewExpiryWorker(factory, sup, time.Minute, time.Second, nil)
		count, err := worker.ReconcileExpired(context.Background(), now)

		require.NoError(t, err)
		assert.Equal(t, 1, count)
		assert.Contains(t, logged, "stop failed")
	})

	t.Run("claim failure aborts the sweep", func(t *testing.T) {
		t.Parallel()

		factory := NewMockUnitOfWorkFactory()
		uow := factory.UoW
		sup := new(testhelpers.MockProcessSupervisor)

		uow.Bots.On("ClaimExpired", mock.Anything, now).Return(nil, errors.New("connection lost"))

		worker := NewExpiryWorker(factory, sup, time.Minute, time.Second, nil)
		count, err := worker.ReconcileExpired(context.Background(), now)

		assert.Error(t, err)
		assert.Equal(t, 0, count)
		sup.AssertNotCalled(t, "Stop", mock.Anything, mock.Anything)
	})
}

// Two workers sweeping the same store must never stop a bot twice: the
// claims partition the expired set, so the stop calls do too.
func TestExpiryWorker_ConcurrentSweeps(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	bots := []*entities.Bot{newExpiredBot("a"), newExpiredBot("b"), newExpiredBot("c")}

	factory := NewMockUnitOfWorkFactory()
	uow := factory.UoW
	sup := supervisor.NewInMemory()

	for _, bot := range bots {
		_, err := sup.Start(context.Background(), bot.ProcessName(), interfaces.LaunchSpec{Name: bot.Name})
		require.NoError(t, err)
	}

	// First claim wins the whole set, the second gets nothing
	uow.Bots.On("ClaimExpired", mock.Anything, mock.Anything).Return(bots, nil).Once()
	uow.Bots.On("ClaimExpired", mock.Anything, mock.Anything).Return([]*entities.Bot{}, nil)
	uow.Bots.On("AppendLog", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	worker := NewExpiryWorker(factory, sup, time.Minute, time.Second, nil)

	var wg sync.WaitGroup
	totals := make(chan int, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			count, err := worker.ReconcileExpired(context.Background(), now)
			assert.NoError(t, err)
			totals <- count
		}()
	}
	wg.Wait()
	close(totals)

	total := 0
	for count := range totals {
		total += count
	}
	assert.Equal(t, len(bots), total)

	for _, bot := range bots {
		assert.Equal(t, 1, sup.StopCount(bot.ProcessName()))
	}
}

func TestExpiryWorker_StartAndStop(t *testing.T) {
	t.Parallel()

	factory := NewMockUnitOfWorkFactory()
	uow := factory.UoW
	sup := supervisor.NewInMemory()

	var mu sync.Mutex
	sweeps := 0
	uow.Bots.On("ClaimExpired", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { mu.Lock(); sweeps++; mu.Unlock() }).
		Return([]*entities.Bot{}, nil)

	clock := func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	worker := NewExpiryWorker(factory, sup, 10*time.Millisecond, time.Second, nil).WithClock(clock)

	stop := worker.Start(context.Background())
	time.Sleep(100 * time.Millisecond)
	stop()

	mu.Lock()
	swept := sweeps
	mu.Unlock()

	// The startup sweep plus at least a few ticks
	assert.GreaterOrEqual(t, swept, 3)
}
