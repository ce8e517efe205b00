package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"trustbit/domain/entities"
	"trustbit/domain/events"
	"trustbit/domain/testhelpers"
)

func TestLedgerService_Debit(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	tests := []struct {
		name      string
		amount    int64
		setupMock func(*testhelpers.MockUserRepository, *testhelpers.MockTransactionRepository, *testhelpers.MockEventPublisher)
		wantErr   error
	}{
		{
			name:   "successful debit",
			amount: 40,
			setupMock: func(userRepo *testhelpers.MockUserRepository, txRepo *testhelpers.MockTransactionRepository, publisher *testhelpers.MockEventPublisher) {
				userRepo.On("GetByIDForUpdate", mock.Anything, userID).Return(&entities.User{
					ID:      userID,
					Balance: 100,
				}, nil)
				userRepo.On("UpdateBalance", mock.Anything, userID, int64(60)).Return(nil)
				txRepo.On("Record", mock.Anything, mock.MatchedBy(func(tx *entities.Transaction) bool {
					return tx.Amount == -40 && tx.Type == entities.TransactionTypeDeduction
				})).Return(nil)
				publisher.On("Publish", mock.AnythingOfType("events.TransactionRecordedEvent")).Return(nil)
			},
		},
		{
			name:   "insufficient funds mutates nothing",
			amount: 150,
			setupMock: func(userRepo *testhelpers.MockUserRepository, txRepo *testhelpers.MockTransactionRepository, publisher *testhelpers.MockEventPublisher) {
				userRepo.On("GetByIDForUpdate", mock.Anything, userID).Return(&entities.User{
					ID:      userID,
					Balance: 100,
				}, nil)
			},
			wantErr: entities.ErrInsufficientFunds,
		},
		{
			name:      "zero amount rejected",
			amount:    0,
			setupMock: func(*testhelpers.MockUserRepository, *testhelpers.MockTransactionRepository, *testhelpers.MockEventPublisher) {},
			wantErr:   entities.ErrInvalidAmount,
		},
		{
			name:      "negative amount rejected",
			amount:    -10,
			setupMock: func(*testhelpers.MockUserRepository, *testhelpers.MockTransactionRepository, *testhelpers.MockEventPublisher) {},
			wantErr:   entities.ErrInvalidAmount,
		},
		{
			name:   "unknown user",
			amount: 40,
			setupMock: func(userRepo *testhelpers.MockUserRepository, txRepo *testhelpers.MockTransactionRepository, publisher *testhelpers.MockEventPublisher) {
				userRepo.On("GetByIDForUpdate", mock.Anything, userID).Return(nil, nil)
			},
			wantErr: entities.ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			userRepo := new(testhelpers.MockUserRepository)
			txRepo := new(testhelpers.MockTransactionRepository)
			publisher := new(testhelpers.MockEventPublisher)
			tt.setupMock(userRepo, txRepo, publisher)

			service := NewLedgerService(userRepo, txRepo, publisher)
			tx, err := service.Debit(context.Background(), userID, tt.amount, "test debit", nil)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, tx)
				// The wallet must not change on a failed debit
				userRepo.AssertNotCalled(t, "UpdateBalance", mock.Anything, mock.Anything, mock.Anything)
				txRepo.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				require.NotNil(t, tx)
				assert.Equal(t, int64(-tt.amount), tx.Amount)
				assert.Equal(t, entities.TransactionTypeDeduction, tx.Type)
			}

			userRepo.AssertExpectations(t)
			txRepo.AssertExpectations(t)
		})
	}
}

func TestLedgerService_Credit(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	t.Run("successful credit", func(t *testing.T) {
		t.Parallel()

		userRepo := new(testhelpers.MockUserRepository)
		txRepo := new(testhelpers.MockTransactionRepository)
		publisher := new(testhelpers.MockEventPublisher)

		userRepo.On("GetByIDForUpdate", mock.Anything, userID).Return(&entities.User{
			ID:      userID,
			Balance: 60,
		}, nil)
		userRepo.On("UpdateBalance", mock.Anything, userID, int64(160)).Return(nil)
		txRepo.On("Record", mock.Anything, mock.MatchedBy(func(tx *entities.Transaction) bool {
			return tx.Amount == 100 && tx.Type == entities.TransactionTypeDeposit
		})).Return(nil)

		var published events.Event
		publisher.On("Publish", mock.AnythingOfType("events.TransactionRecordedEvent")).
			Run(func(args mock.Arguments) { published = args.Get(0).(events.Event) }).
			Return(nil)

		service := NewLedgerService(userRepo, txRepo, publisher)
		tx, err := service.Credit(context.Background(), userID, 100, "test credit", nil)

		require.NoError(t, err)
		require.NotNil(t, tx)
		assert.Equal(t, int64(100), tx.Amount)

		require.NotNil(t, published)
		recorded := published.(events.TransactionRecordedEvent)
		assert.Equal(t, int64(160), recorded.BalanceAfter)

		userRepo.AssertExpectations(t)
		txRepo.AssertExpectations(t)
	})

	t.Run("credit with reference", func(t *testing.T) {
		t.Parallel()

		userRepo := new(testhelpers.MockUserRepository)
		txRepo := new(testhelpers.MockTransactionRepository)
		publisher := new(testhelpers.MockEventPublisher)

		reference := "gw-ref-42"
		userRepo.On("GetByIDForUpdate", mock.Anything, userID).Return(&entities.User{
			ID:      userID,
			Balance: 0,
		}, nil)
		userRepo.On("UpdateBalance", mock.Anything, userID, int64(250)).Return(nil)
		txRepo.On("Record", mock.Anything, mock.MatchedBy(func(tx *entities.Transaction) bool {
			return tx.Reference != nil && *tx.Reference == reference
		})).Return(nil)
		publisher.On("Publish", mock.Anything).Return(nil)

		service := NewLedgerService(userRepo, txRepo, publisher)
		_, err := service.Credit(context.Background(), userID, 250, "top-up", &reference)
		require.NoError(t, err)

		txRepo.AssertExpectations(t)
	})

	t.Run("record failure surfaces", func(t *testing.T) {
		t.Parallel()

		userRepo := new(testhelpers.MockUserRepository)
		txRepo := new(testhelpers.MockTransactionRepository)
		publisher := new(testhelpers.MockEventPublisher)

		userRepo.On("GetByIDForUpdate", mock.Anything, userID).Return(&entities.User{
			ID:      userID,
			Balance: 0,
		}, nil)
		userRepo.On("UpdateBalance", mock.Anything, userID, int64(100)).Return(nil)
		txRepo.On("Record", mock.Anything, mock.Anything).Return(errors.New("connection lost"))

		service := NewLedgerService(userRepo, txRepo, publisher)
		_, err := service.Credit(context.Background(), userID, 100, "top-up", nil)
		assert.Error(t, err)
	})
}
