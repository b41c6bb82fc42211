package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"courtside/pkg/logger"

	"github.com/stretchr/testify/require"
)

func chargeRequest() ChargeRequest {
	return ChargeRequest{
		CustomerID:  "cust-1",
		AmountCents: 15000,
		Currency:    "USD",
		CardToken:   "tok_visa",
		Reference:   "booking-quote-1",
	}
}

func TestChargeSuccess(t *testing.T) {
	var received ChargeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/charges", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(ChargeResult{PaymentRef: "pay-42", Status: "succeeded"})
	}))
	defer server.Close()

	charger := NewHTTPCharger(server.URL, time.Second, logger.NewNop())
	result, err := charger.Charge(context.Background(), chargeRequest())
	require.NoError(t, err)
	require.Equal(t, "pay-42", result.PaymentRef)
	require.Equal(t, "succeeded", result.Status)

	require.Equal(t, int64(15000), received.AmountCents)
	require.Equal(t, "tok_visa", received.CardToken)
}

func TestChargeDeclinedStatusCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	defer server.Close()

	charger := NewHTTPCharger(server.URL, time.Second, logger.NewNop())
	result, err := charger.Charge(context.Background(), chargeRequest())
	require.Error(t, err)
	require.Nil(t, result)
	require.Contains(t, err.Error(), "402")
}

func TestChargeIncompleteStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ChargeResult{PaymentRef: "pay-43", Status: "processing"})
	}))
	defer server.Close()

	charger := NewHTTPCharger(server.URL, time.Second, logger.NewNop())
	result, err := charger.Charge(context.Background(), chargeRequest())
	require.Error(t, err)
	require.Nil(t, result)
	require.Contains(t, err.Error(), "processing")
}

func TestChargeGatewayUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	charger := NewHTTPCharger(server.URL, time.Second, logger.NewNop())
	result, err := charger.Charge(context.Background(), chargeRequest())
	require.Error(t, err)
	require.Nil(t, result)
	require.Contains(t, err.Error(), "unreachable")
}

func TestChargeRespectsTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	charger := NewHTTPCharger(server.URL, 50*time.Millisecond, logger.NewNop())
	start := time.Now()
	_, err := charger.Charge(context.Background(), chargeRequest())
	require.Error(t, err)
	require.Less(t, time.Since(start), time.Second)
}
