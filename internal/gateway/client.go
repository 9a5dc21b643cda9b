// Package gateway is the HTTP client for the external payment gateway. The
// gateway's response body is treated as an opaque blob: the client only
// reads the status and transaction fields it needs and hands the raw payload
// back for verbatim audit storage.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ferremas-fulfillment/internal/apperrors"
)

// CaptureResult is the outcome of a capture attempt that reached the
// gateway. Approved=false is a decline, not an availability failure.
type CaptureResult struct {
	Approved      bool
	TransactionID string
	Reason        string
	// RawResponse is the gateway payload verbatim, stored for audit and
	// never parsed beyond the fields above.
	RawResponse []byte
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a gateway client with a bounded request timeout. Callers
// may impose a tighter deadline through ctx.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type captureRequest struct {
	Amount int64  `json:"amount"`
	Token  string `json:"token"`
}

type captureResponse struct {
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
	Reason        string `json:"reason"`
}

// Capture asks the gateway to capture the amount against the method token.
// Network failures, timeouts, and unusable responses surface as
// GatewayUnavailable; a reachable gateway that declines returns a result
// with Approved=false.
func (c *Client) Capture(ctx context.Context, amount int64, token string) (*CaptureResult, error) {
	body, err := json.Marshal(captureRequest{Amount: amount, Token: token})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal capture request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/capture", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build capture request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.GatewayUnavailable(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.GatewayUnavailable(err)
	}

	if resp.StatusCode >= 500 {
		return nil, apperrors.GatewayUnavailable(fmt.Errorf("gateway returned %d", resp.StatusCode))
	}

	var parsed captureResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, apperrors.GatewayUnavailable(fmt.Errorf("unparseable gateway response: %w", err))
	}

	result := &CaptureResult{
		TransactionID: parsed.TransactionID,
		Reason:        parsed.Reason,
		RawResponse:   raw,
	}

	switch parsed.Status {
	case "AUTHORIZED", "CAPTURED":
		result.Approved = true
	default:
		result.Approved = false
		if result.Reason == "" {
			result.Reason = parsed.Status
		}
	}
	return result, nil
}
