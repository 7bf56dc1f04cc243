// Package payout talks to the external processor that executes the actual
// on-chain transfer. The processor is a collaborator, not part of the
// ledger: calls carry a bounded timeout and the submitting service retries
// transient failures with backoff, never while holding an account lock.
package payout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Processor accepts payout submissions. Submit must be safe to retry with
// the same reference id.
type Processor interface {
	Submit(ctx context.Context, referenceID string, walletAddress string, amount float64) error
}

// Client implements Processor over the processor's HTTP API.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
}

func NewClient(baseURL, apiToken string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiToken:   apiToken,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type submitRequest struct {
	ReferenceID   string  `json:"reference_id"`
	WalletAddress string  `json:"wallet_address"`
	Amount        float64 `json:"amount"`
}

type submitResponse struct {
	Accepted bool   `json:"accepted"`
	Error    string `json:"error,omitempty"`
}

// Submit hands one payout to the processor. The reference id deduplicates
// retried submissions on the processor side.
func (c *Client) Submit(ctx context.Context, referenceID string, walletAddress string, amount float64) error {
	payload, err := json.Marshal(submitRequest{
		ReferenceID:   referenceID,
		WalletAddress: walletAddress,
		Amount:        amount,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/payouts", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("payout processor http %d", resp.StatusCode)
	}

	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return err
	}
	if !out.Accepted {
		return fmt.Errorf("payout rejected: %s", out.Error)
	}

	return nil
}
