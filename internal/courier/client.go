// Package courier holds the serviceable-area table and the HTTP client for
// the external courier network.
package courier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ferremas-fulfillment/internal/apperrors"
	"ferremas-fulfillment/internal/models"
)

// QuoteRequest describes a shipment to be priced.
type QuoteRequest struct {
	OriginComuna      string         `json:"origin_comuna"`
	DestinationComuna string         `json:"destination_comuna"`
	Package           models.Package `json:"package"`
}

// CreateRequest describes a shipment to be created with a specific courier.
type CreateRequest struct {
	Courier        string         `json:"courier"`
	OriginComuna   string         `json:"origin_comuna"`
	Destination    models.Address `json:"destination"`
	RecipientName  string         `json:"recipient_name"`
	RecipientPhone string         `json:"recipient_phone"`
	RecipientEmail string         `json:"recipient_email"`
	Package        models.Package `json:"package"`
	Reference      string         `json:"reference"`
}

// CreateResult is a courier-confirmed shipment.
type CreateResult struct {
	TrackingRef string `json:"tracking_ref"`
	TrackingURL string `json:"tracking_url"`
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a courier network client with a bounded request timeout.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// Quote asks the courier network for available offers. Callers must resolve
// the comunas against the coverage table before calling.
func (c *Client) Quote(ctx context.Context, req QuoteRequest) ([]models.CourierOffer, error) {
	var parsed struct {
		Offers []models.CourierOffer `json:"offers"`
	}
	if err := c.post(ctx, "/v1/quotes", req, &parsed); err != nil {
		return nil, err
	}
	if parsed.Offers == nil {
		return nil, apperrors.CourierProtocol("quote response missing offers", nil)
	}
	return parsed.Offers, nil
}

// CreateShipment creates a shipment with the courier and returns its
// tracking data. A response without a tracking reference is a protocol
// error; the caller must not treat the shipment as created.
func (c *Client) CreateShipment(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	var result CreateResult
	if err := c.post(ctx, "/v1/shipments", req, &result); err != nil {
		return nil, err
	}
	if result.TrackingRef == "" {
		return nil, apperrors.CourierProtocol("create response missing tracking reference", nil)
	}
	return &result, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal courier request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build courier request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.CourierUnavailable(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.CourierUnavailable(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.CourierUnavailable(fmt.Errorf("courier returned %d: %s", resp.StatusCode, raw))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return apperrors.CourierProtocol("malformed courier response", err)
	}
	return nil
}

// statusMap translates courier-reported status strings onto the internal
// shipment states. Unknown strings are rejected, never silently stored.
var statusMap = map[string]models.ShipmentStatus{
	"created":    models.ShipmentStatusCreated,
	"picked_up":  models.ShipmentStatusInTransit,
	"in transit": models.ShipmentStatusInTransit,
	"in_transit": models.ShipmentStatusInTransit,
	"delivered":  models.ShipmentStatusDelivered,
	"returned":   models.ShipmentStatusReturned,
	"lost":       models.ShipmentStatusFailed,
	"failed":     models.ShipmentStatusFailed,
}

// MapStatus maps a courier-reported status onto the internal enum.
func MapStatus(courierStatus string) (models.ShipmentStatus, error) {
	status, ok := statusMap[normalize(courierStatus)]
	if !ok {
		return "", apperrors.UnrecognizedStatus(courierStatus)
	}
	return status, nil
}
