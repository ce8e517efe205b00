package testhelpers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"trustbit/domain/entities"
	"trustbit/domain/events"
	"trustbit/domain/interfaces"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) GetByAPIKey(ctx context.Context, apiKey string) (*entities.User, error) {
	args := m.Called(ctx, apiKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, username, apiKey string, initialBalance int64) (*entities.User, error) {
	args := m.Called(ctx, username, apiKey, initialBalance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) UpdateBalance(ctx context.Context, id uuid.UUID, newBalance int64) error {
	args := m.Called(ctx, id, newBalance)
	return args.Error(0)
}

func (m *MockUserRepository) SetRole(ctx context.Context, id uuid.UUID, role entities.UserRole) error {
	args := m.Called(ctx, id, role)
	return args.Error(0)
}

func (m *MockUserRepository) GetAll(ctx context.Context) ([]*entities.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.User), args.Error(1)
}

// MockBotRepository is a mock implementation of BotRepository
type MockBotRepository struct {
	mock.Mock
}

func (m *MockBotRepository) Create(ctx context.Context, bot *entities.Bot) error {
	args := m.Called(ctx, bot)
	return args.Error(0)
}

func (m *MockBotRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Bot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Bot), args.Error(1)
}

func (m *MockBotRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*entities.Bot, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Bot), args.Error(1)
}

func (m *MockBotRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from []entities.BotStatus, to entities.BotStatus) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}

func (m *MockBotRepository) MarkRunning(ctx context.Context, id uuid.UUID, port int) error {
	args := m.Called(ctx, id, port)
	return args.Error(0)
}

func (m *MockBotRepository) ClaimExpired(ctx context.Context, now time.Time) ([]*entities.Bot, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Bot), args.Error(1)
}

func (m *MockBotRepository) AppendLog(ctx context.Context, botID uuid.UUID, message string) error {
	args := m.Called(ctx, botID, message)
	return args.Error(0)
}

func (m *MockBotRepository) GetLogs(ctx context.Context, botID uuid.UUID, limit int) ([]*entities.BotLog, error) {
	args := m.Called(ctx, botID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.BotLog), args.Error(1)
}

// MockTransactionRepository is a mock implementation of TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Record(ctx context.Context, tx *entities.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*entities.Transaction, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByReference(ctx context.Context, reference string) (*entities.Transaction, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) SumByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockProcessSupervisor is a mock implementation of ProcessSupervisor
type MockProcessSupervisor struct {
	mock.Mock
}

func (m *MockProcessSupervisor) Start(ctx context.Context, processName string, spec interfaces.LaunchSpec) (int, error) {
	args := m.Called(ctx, processName, spec)
	return args.Int(0), args.Error(1)
}

func (m *MockProcessSupervisor) Stop(ctx context.Context, processName string) error {
	args := m.Called(ctx, processName)
	return args.Error(0)
}

// MockPaymentGateway is a mock implementation of PaymentGateway
type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) InitializeTransaction(ctx context.Context, userID uuid.UUID, amount int64) (*interfaces.FundingIntent, error) {
	args := m.Called(ctx, userID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.FundingIntent), args.Error(1)
}

func (m *MockPaymentGateway) VerifyTransaction(ctx context.Context, reference string) (*interfaces.VerifiedPayment, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.VerifiedPayment), args.Error(1)
}
