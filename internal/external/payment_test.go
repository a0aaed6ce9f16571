package external

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"parking/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitPayment(t *testing.T) {
	var got PaymentInitRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/PaymentInit/init", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(PaymentInitResponse{
			Success:    true,
			PaymentID:  "p-1",
			OrderID:    got.OrderID,
			PaymentURL: "https://pay.test/p-1",
		})
	}))
	defer srv.Close()

	client := NewPaymentClient(PaymentConfig{BaseURL: srv.URL, TeamSlug: "parking", Password: "secret"})
	resp, err := client.InitPayment(context.Background(), 300, "order-1", "Parking")
	require.NoError(t, err)

	assert.Equal(t, "p-1", resp.PaymentID)
	assert.Equal(t, "https://pay.test/p-1", resp.PaymentURL)
	assert.Equal(t, int64(300), got.Amount)
	assert.Equal(t, "VND", got.Currency)
	assert.Equal(t, "parking", got.TeamSlug)
	assert.Len(t, got.Token, 64)
}

func TestInitPayment_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(PaymentInitResponse{Success: false, Message: "limit exceeded"})
	}))
	defer srv.Close()

	client := NewPaymentClient(PaymentConfig{BaseURL: srv.URL})
	_, err := client.InitPayment(context.Background(), 300, "order-1", "Parking")
	assert.ErrorContains(t, err, "limit exceeded")
}

func TestCancelPayment_UnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/PaymentCancel/cancel", r.URL.Path)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewPaymentClient(PaymentConfig{BaseURL: srv.URL})
	err := client.CancelPayment(context.Background(), "p-1", "expired")
	assert.ErrorContains(t, err, "502")
}

func TestVerifyNotification(t *testing.T) {
	client := NewPaymentClient(PaymentConfig{TeamSlug: "parking", Password: "secret"})
	n := &models.PaymentNotificationPayload{PaymentID: "p-1", OrderID: "order-1", Status: "CONFIRMED", Amount: 300}

	n.Token = client.NotificationToken(n)
	assert.True(t, client.VerifyNotification(n))

	n.Amount = 1
	assert.False(t, client.VerifyNotification(n))

	unsigned := NewPaymentClient(PaymentConfig{})
	assert.True(t, unsigned.VerifyNotification(&models.PaymentNotificationPayload{}))
}

func TestGenerateToken_DoesNotMutateParams(t *testing.T) {
	client := NewPaymentClient(PaymentConfig{TeamSlug: "parking", Password: "secret"})
	params := map[string]string{"PaymentId": "p-1"}

	first := client.generateToken(params)
	assert.Len(t, params, 1)
	assert.Equal(t, first, client.generateToken(params))
}
