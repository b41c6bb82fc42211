package payment

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"courtside/pkg/client"
	"courtside/pkg/logger"
)

// ChargeRequest is sent to the payment gateway for card payments. The
// amount is always the server-resolved total, never a client-sent figure.
type ChargeRequest struct {
	CustomerID  string `json:"customer_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	CardToken   string `json:"card_token"`
	Reference   string `json:"reference"`
}

type ChargeResult struct {
	PaymentRef string `json:"payment_ref"`
	Status     string `json:"status"`
}

// Charger is the payment surface the booking finalizer depends on.
type Charger interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

type httpCharger struct {
	client  *client.HttpClient
	timeout time.Duration
	log     *logger.Logger
}

// NewHTTPCharger talks to an external payment gateway over HTTP. The
// per-charge timeout must stay below the lease TTL so a slow gateway
// cannot outlive the hold it is paying for.
func NewHTTPCharger(baseURL string, timeout time.Duration, log *logger.Logger) Charger {
	return &httpCharger{
		client:  client.NewHttpClient(baseURL, timeout),
		timeout: timeout,
		log:     log,
	}
}

func (c *httpCharger) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.POST(ctx, "/v1/charges", req)
	if err != nil {
		return nil, fmt.Errorf("payment gateway unreachable: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		c.log.Warn("Payment gateway declined charge",
			"status_code", resp.StatusCode,
			"reference", req.Reference,
		)
		return nil, fmt.Errorf("payment gateway returned status %d", resp.StatusCode)
	}

	var result ChargeResult
	if err := resp.DecodeJSON(&result); err != nil {
		return nil, fmt.Errorf("failed to decode charge response: %w", err)
	}
	if result.Status != "succeeded" {
		return nil, fmt.Errorf("charge not completed: status %q", result.Status)
	}

	return &result, nil
}
