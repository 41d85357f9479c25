// Package inventory talks to the external stock service. The purchasing
// engine never mutates on-hand quantities itself; it queues adjustments
// and this client delivers them.
package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"purchasing-engine/internal/core"
)

// Client pushes stock adjustments to the inventory service over HTTP.
// The service dedupes on event_id, so redelivery after a timeout is safe.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient constructs a Client for the given base URL. apiKey may be
// empty when the service runs without authentication.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type adjustmentRequest struct {
	EventID     string  `json:"event_id"`
	DeviceID    int     `json:"device_id"`
	WarehouseID *string `json:"warehouse_id,omitempty"`
	Quantity    int     `json:"quantity"`
}

// AdjustStock delivers one adjustment. Any transport or non-2xx failure
// comes back as a DependencyFailure so callers know a retry is safe.
func (c *Client) AdjustStock(ctx context.Context, adj core.StockAdjustment) error {
	body, err := json.Marshal(adjustmentRequest{
		EventID:     adj.EventID.String(),
		DeviceID:    adj.DeviceID,
		WarehouseID: adj.WarehouseID,
		Quantity:    adj.Quantity,
	})
	if err != nil {
		return fmt.Errorf("marshal stock adjustment: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/adjustments", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build stock adjustment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return core.Wrap(core.KindDependencyFailure, err, "inventory service unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return core.E(core.KindDependencyFailure,
			"inventory service rejected adjustment %s: status %d: %s", adj.EventID, resp.StatusCode, detail)
	}
	return nil
}
