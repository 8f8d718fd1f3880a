package gateway

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// MockGateway acknowledges every request without calling anyone. It is used
// when no provider URL is configured.
type MockGateway struct {
	logger *slog.Logger
}

func NewMockGateway(logger *slog.Logger) *MockGateway {
	return &MockGateway{logger: logger}
}

func (m *MockGateway) Name() string { return "mock" }

func (m *MockGateway) InitiatePayment(ctx context.Context, req InitiateRequest) (*Ack, error) {
	ref := fmt.Sprintf("mock_%s", uuid.New().String()[:8])

	m.logger.InfoContext(ctx, "[MOCK GATEWAY] payment initiated",
		slog.String("provider_ref", ref),
		slog.String("customer_reference", req.Reference),
		slog.Int64("amount", req.Amount),
		slog.String("currency", req.Currency),
	)

	return &Ack{ProviderRef: ref, Message: "accepted"}, nil
}
