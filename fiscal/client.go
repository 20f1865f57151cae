package fiscal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/constantinstr/MASPOS-Sale-Laravel-Fast/pos"
)

// Client authorizes invoices against a remote fiscal authority.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client for baseURL. Deadlines come from the caller's
// context; the HTTP client timeout is only a backstop.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Authorize implements pos.FiscalAuthority.
func (c *Client) Authorize(ctx context.Context, req pos.FiscalRequest) (pos.FiscalResponse, error) {
	body, err := json.Marshal(toWire(req))
	if err != nil {
		return pos.FiscalResponse{}, fmt.Errorf("failed to encode invoice: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/invoices", bytes.NewReader(body))
	if err != nil {
		return pos.FiscalResponse{}, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return pos.FiscalResponse{}, fmt.Errorf("fiscal authority unreachable: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return pos.FiscalResponse{}, fmt.Errorf("failed to read response: %w", err)
	}

	var out InvoiceResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return pos.FiscalResponse{}, fmt.Errorf("invalid response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if out.Error == "" {
			out.Error = http.StatusText(resp.StatusCode)
		}
		return pos.FiscalResponse{}, fmt.Errorf("invoice rejected (status %d): %s", resp.StatusCode, out.Error)
	}
	if out.Error != "" {
		return pos.FiscalResponse{}, fmt.Errorf("invoice rejected: %s", out.Error)
	}
	return pos.FiscalResponse{AuthorizationCode: out.AuthorizationCode}, nil
}
