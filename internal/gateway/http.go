package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// HTTPGateway posts initiation requests to the provider's REST API.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPGateway(cfg HTTPConfig) *HTTPGateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &HTTPGateway{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

func (g *HTTPGateway) Name() string { return "mobile_money" }

type initiateBody struct {
	AccountReference string `json:"account_reference"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Phone            string `json:"phone"`
	Reference        string `json:"customer_reference"`
	Narration        string `json:"narration"`
}

type initiateResponse struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id"`
	Message       string `json:"message"`
}

func (g *HTTPGateway) InitiatePayment(ctx context.Context, req InitiateRequest) (*Ack, error) {
	const op = "gateway.HTTPGateway.InitiatePayment"

	body, err := json.Marshal(initiateBody{
		AccountReference: req.AccountRef,
		Amount:           req.Amount,
		Currency:         req.Currency,
		// Providers expect the bare international number.
		Phone:     strings.TrimPrefix(req.Phone, "+"),
		Reference: req.Reference,
		Narration: req.Narration,
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/payments/initiate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s: status %d: %w", op, resp.StatusCode, ErrRejected)
	}

	var out initiateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}
	if !out.Success {
		return nil, fmt.Errorf("%s: %s: %w", op, out.Message, ErrRejected)
	}

	return &Ack{ProviderRef: out.TransactionID, Message: out.Message}, nil
}
