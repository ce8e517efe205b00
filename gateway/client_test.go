package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustbit/domain/entities"
)

func TestClient_InitializeTransaction(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	t.Run("successful initialization", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/transaction/initialize", r.URL.Path)
			assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))

			var req map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, float64(500), req["amount"])
			assert.Equal(t, userID.String(), req["customer"])

			json.NewEncoder(w).Encode(map[string]any{
				"status": true,
				"data": map[string]any{
					"reference":         "ref-abc",
					"authorization_url": "https://pay.example/ref-abc",
				},
			})
		}))
		defer server.Close()

		client := NewClient(server.URL, "sk_test")
		intent, err := client.InitializeTransaction(context.Background(), userID, 500)

		require.NoError(t, err)
		assert.Equal(t, "ref-abc", intent.Reference)
		assert.Equal(t, "https://pay.example/ref-abc", intent.RedirectURL)
		assert.Equal(t, int64(500), intent.Amount)
	})

	t.Run("gateway rejection", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"status":  false,
				"message": "invalid customer",
			})
		}))
		defer server.Close()

		client := NewClient(server.URL, "sk_test")
		_, err := client.InitializeTransaction(context.Background(), userID, 500)
		assert.ErrorIs(t, err, entities.ErrGateway)
	})

	t.Run("non-2xx status", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := NewClient(server.URL, "sk_test")
		_, err := client.InitializeTransaction(context.Background(), userID, 500)
		assert.ErrorIs(t, err, entities.ErrGateway)
	})

	t.Run("non-positive amount rejected locally", func(t *testing.T) {
		t.Parallel()

		client := NewClient("http://unused", "sk_test")
		_, err := client.InitializeTransaction(context.Background(), userID, 0)
		assert.ErrorIs(t, err, entities.ErrInvalidAmount)
	})
}

func TestClient_VerifyTransaction(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	t.Run("settled payment", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/transaction/verify/ref-abc", r.URL.Path)

			json.NewEncoder(w).Encode(map[string]any{
				"status": true,
				"data": map[string]any{
					"reference": "ref-abc",
					"customer":  userID.String(),
					"amount":    500,
					"status":    "success",
				},
			})
		}))
		defer server.Close()

		client := NewClient(server.URL, "sk_test")
		payment, err := client.VerifyTransaction(context.Background(), "ref-abc")

		require.NoError(t, err)
		assert.True(t, payment.Settled)
		assert.Equal(t, "ref-abc", payment.Reference)
		assert.Equal(t, userID, payment.UserID)
		assert.Equal(t, int64(500), payment.Amount)
	})

	t.Run("pending payment is not settled", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"status": true,
				"data": map[string]any{
					"reference": "ref-pending",
					"customer":  userID.String(),
					"amount":    500,
					"status":    "pending",
				},
			})
		}))
		defer server.Close()

		client := NewClient(server.URL, "sk_test")
		payment, err := client.VerifyTransaction(context.Background(), "ref-pending")

		require.NoError(t, err)
		assert.False(t, payment.Settled)
	})

	t.Run("missing customer is a gateway error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"status": true,
				"data": map[string]any{
					"reference": "ref-abc",
					"amount":    500,
					"status":    "success",
				},
			})
		}))
		defer server.Close()

		client := NewClient(server.URL, "sk_test")
		_, err := client.VerifyTransaction(context.Background(), "ref-abc")
		assert.ErrorIs(t, err, entities.ErrGateway)
	})

	t.Run("transport failure wraps gateway error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(nil)
		server.Close() // Refuse connections

		client := NewClient(server.URL, "sk_test")
		_, err := client.VerifyTransaction(context.Background(), "ref-abc")
		assert.ErrorIs(t, err, entities.ErrGateway)
	})
}
