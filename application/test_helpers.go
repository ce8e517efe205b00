package application

import (
	"context"
	"sync"

	"trustbit/domain/interfaces"
	"trustbit/domain/testhelpers"
	"trustbit/infrastructure"
)

// MockUnitOfWork is a unit of work backed by testify repository mocks. Begin
// and Commit always succeed; the repositories are shared so expectations set
// on them apply across every unit of work the factory hands out.
type MockUnitOfWork struct {
	Users        *testhelpers.MockUserRepository
	Bots         *testhelpers.MockBotRepository
	Transactions *testhelpers.MockTransactionRepository
	Events       *infrastructure.NoopEventPublisher

	mu         sync.Mutex
	begun      int
	committed  int
	rolledBack int
}

func NewMockUnitOfWork() *MockUnitOfWork {
	return &MockUnitOfWork{
		Users:        &testhelpers.MockUserRepository{},
		Bots:         &testhelpers.MockBotRepository{},
		Transactions: &testhelpers.MockTransactionRepository{},
		Events:       &infrastructure.NoopEventPublisher{},
	}
}

func (u *MockUnitOfWork) Begin(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.begun++
	return nil
}

func (u *MockUnitOfWork) Commit() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.committed++
	return nil
}

func (u *MockUnitOfWork) Rollback() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.rolledBack++
	return nil
}

// BeginCount reports how many times Begin ran
func (u *MockUnitOfWork) BeginCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.begun
}

// CommitCount reports how many times Commit ran
func (u *MockUnitOfWork) CommitCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.committed
}

func (u *MockUnitOfWork) UserRepository() interfaces.UserRepository {
	return u.Users
}

func (u *MockUnitOfWork) BotRepository() interfaces.BotRepository {
	return u.Bots
}

func (u *MockUnitOfWork) TransactionRepository() interfaces.TransactionRepository {
	return u.Transactions
}

func (u *MockUnitOfWork) EventBus() interfaces.EventPublisher {
	return u.Events
}

// MockUnitOfWorkFactory hands the same MockUnitOfWork to every caller
type MockUnitOfWorkFactory struct {
	UoW *MockUnitOfWork
}

func NewMockUnitOfWorkFactory() *MockUnitOfWorkFactory {
	return &MockUnitOfWorkFactory{UoW: NewMockUnitOfWork()}
}

func (f *MockUnitOfWorkFactory) Create() UnitOfWork {
	return f.UoW
}
