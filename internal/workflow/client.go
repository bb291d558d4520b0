// Package workflow is the HTTP client for the external workflow service that
// finds option contracts, executes orders, and recomputes signals.
package workflow

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

// Client abstracts the workflow service calls so order workflows and the scan
// tracker can be tested against fakes.
type Client interface {
	FindContracts(ctx context.Context, req FindContractsRequest) (*FindContractsResponse, error)
	PlaceOptionOrder(ctx context.Context, req OptionOrderRequest) (*OrderResponse, error)
	PlaceEquityOrder(ctx context.Context, req EquityOrderRequest) (*OrderResponse, error)
	TriggerRescan(ctx context.Context) error
}

// HTTPClient talks to the workflow service over plain JSON request/response.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient creates a workflow client for the given base URL.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// FindContracts requests option contracts matching the search criteria. A
// non-2xx status with a readable error body comes back as
// FindContractsResponse.Error so the caller can surface it verbatim.
func (c *HTTPClient) FindContracts(ctx context.Context, req FindContractsRequest) (*FindContractsResponse, error) {
	raw, status, err := c.post(ctx, "/contracts/find", req)
	if err != nil {
		return nil, err
	}

	var resp FindContractsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		resp = FindContractsResponse{Error: strings.TrimSpace(string(raw))}
	}
	if status < 200 || status > 299 {
		resp.Contracts = nil
		if resp.Error == "" {
			resp.Error = fmt.Sprintf("status %d: %s", status, strings.TrimSpace(string(raw)))
		}
	}
	return &resp, nil
}

// PlaceOptionOrder submits an option order for execution.
func (c *HTTPClient) PlaceOptionOrder(ctx context.Context, req OptionOrderRequest) (*OrderResponse, error) {
	return c.placeOrder(ctx, "/orders/option", req)
}

// PlaceEquityOrder submits a share order for execution.
func (c *HTTPClient) PlaceEquityOrder(ctx context.Context, req EquityOrderRequest) (*OrderResponse, error) {
	return c.placeOrder(ctx, "/orders/equity", req)
}

// TriggerRescan kicks off a recomputation of all signals. Only the transport
// outcome matters; the scan tracker watches signal timestamps for progress.
func (c *HTTPClient) TriggerRescan(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/scan/trigger", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("trigger rescan: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("trigger rescan: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// placeOrder posts an order payload and normalizes the response. A non-2xx
// status is not a transport error: the body is folded into the returned
// OrderResponse so callers can classify the failure text.
func (c *HTTPClient) placeOrder(ctx context.Context, path string, payload interface{}) (*OrderResponse, error) {
	raw, status, err := c.post(ctx, path, payload)
	if err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}

	var orderResp OrderResponse
	if err := json.Unmarshal(raw, &orderResp); err != nil {
		// Heterogeneous failure payload; keep the raw body as the message.
		orderResp = OrderResponse{Error: strings.TrimSpace(string(raw))}
	}
	if status < 200 || status > 299 {
		orderResp.Success = false
		if orderResp.Error == "" && orderResp.Message == "" {
			orderResp.Error = fmt.Sprintf("status %d: %s", status, strings.TrimSpace(string(raw)))
		}
	}
	return &orderResp, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, payload interface{}) ([]byte, int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, 0, err
	}
	return raw, resp.StatusCode, nil
}
