package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// CardNetworkClient posts transfer requests to the card network's JSON API.
type CardNetworkClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewCardNetworkClient(baseURL, apiKey string) *CardNetworkClient {
	return &CardNetworkClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type transferRequest struct {
	FromCardID  string `json:"from_card_id"`
	ToCardID    string `json:"to_card_id"`
	AmountCents int64  `json:"amount"`
}

type transferResponse struct {
	Success    bool   `json:"success"`
	TransferID string `json:"transfer_id"`
	Status     string `json:"status"`
	Error      string `json:"error"`
}

// CreateTransfer issues exactly one transfer call. The idempotency key is
// forwarded as a header so the network can de-duplicate if the caller
// retries a request that already executed.
func (c *CardNetworkClient) CreateTransfer(ctx context.Context, fromCard, toCard string, amountCents int64, idempotencyKey string) (*TransferResult, error) {
	payload, err := json.Marshal(transferRequest{
		FromCardID:  fromCard,
		ToCardID:    toCard,
		AmountCents: amountCents,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transfers", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body transferResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("card network: decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !body.Success {
		msg := body.Error
		if msg == "" {
			msg = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("card network: %s", msg)
	}

	return &TransferResult{TransferID: body.TransferID, Status: body.Status}, nil
}

var _ CardNetwork = (*CardNetworkClient)(nil)
