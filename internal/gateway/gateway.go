// Package gateway talks to the mobile-money payment provider.
package gateway

import (
	"context"
	"errors"
)

var ErrRejected = errors.New("payment request rejected by provider")

type InitiateRequest struct {
	AccountRef string
	Amount     int64
	Currency   string
	Phone      string
	// Reference is the customer reference the provider echoes in its callback.
	Reference string
	Narration string
}

type Ack struct {
	ProviderRef string
	Message     string
}

// Gateway initiates a push payment. The outcome arrives later through the webhook.
type Gateway interface {
	InitiatePayment(ctx context.Context, req InitiateRequest) (*Ack, error)
	Name() string
}
