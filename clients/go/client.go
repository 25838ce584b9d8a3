// Package llmrouter provides a thin Go client for the router's HTTP API:
// submitting chat completions, reading provider status and routing
// analytics, and flipping a provider's manual-down flag for failure drills.
//
// Basic usage:
//
//	client := llmrouter.NewClient("http://localhost:8080")
//	resp, err := client.ChatCompletions(ctx, llmrouter.ChatRequest{
//		Prompt: "summarize this document",
//	})
package llmrouter

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

// Client provides access to the router's HTTP API.
type Client struct {
	baseURL    string
	adminToken string
	httpClient *http.Client
}

// NewClient creates a client against baseURL. adminToken is only needed
// for SimulateFailure when the server was started with ADMIN_TOKEN set.
func NewClient(baseURL string, adminToken ...string) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	if len(adminToken) > 0 {
		c.adminToken = adminToken[0]
	}
	return c
}

func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// RequestPreferences mirrors the optional routing knobs in a ChatRequest.
type RequestPreferences struct {
	Priority          string   `json:"priority,omitempty"`
	MaxCostPerRequest *float64 `json:"max_cost_per_request,omitempty"`
	TimeoutMs         *int     `json:"timeout_ms,omitempty"`
}

// ChatRequest is the body of POST /chat/completions.
type ChatRequest struct {
	Prompt      string               `json:"prompt"`
	UserID      string               `json:"user_id,omitempty"`
	Preferences *RequestPreferences  `json:"preferences,omitempty"`
}

// ChatResponse is returned on a successful completion.
type ChatResponse struct {
	ProviderUsed string  `json:"provider_used"`
	Content      string  `json:"content"`
	LatencyMs    int64   `json:"latency_ms"`
	Cost         float64 `json:"cost"`
}

// ProviderMetrics is the derived per-provider view returned by
// GET /providers and GET /routing/analytics.
type ProviderMetrics struct {
	Name          string  `json:"name"`
	Requests      int64   `json:"requests"`
	Success       int64   `json:"success"`
	Failures      int64   `json:"failures"`
	RateLimited   int64   `json:"rate_limited"`
	SuccessRate   float64 `json:"success_rate"`
	AvgLatencyMs  float64 `json:"avg_latency_ms"`
	TotalCost     float64 `json:"total_cost"`
	IsDown        bool    `json:"is_down"`
	CircuitStatus string  `json:"circuit_status"`
}

// ProviderStatus is one entry of GET /providers: the static spec plus its
// live metrics.
type ProviderStatus struct {
	Spec    ProviderSpec    `json:"spec"`
	Metrics ProviderMetrics `json:"metrics"`
}

// ProviderSpec mirrors the static, load-time provider catalog entry.
type ProviderSpec struct {
	Name         string   `json:"name"`
	Model        string   `json:"model"`
	CostPerToken float64  `json:"cost_per_token"`
	LatencyMs    float64  `json:"latency_ms"`
	RateLimitRPM int      `json:"rate_limit_rpm"`
	Specialties  []string `json:"specialties"`
	QualityScore float64  `json:"quality_score"`
}

// GlobalMetrics is the sum across all providers.
type GlobalMetrics struct {
	Requests     int64   `json:"requests"`
	Success      int64   `json:"success"`
	Failures     int64   `json:"failures"`
	RateLimited  int64   `json:"rate_limited"`
	TotalCost    float64 `json:"total_cost"`
	SuccessRate  float64 `json:"success_rate"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

// RoutingAnalytics is the body of GET /routing/analytics.
type RoutingAnalytics struct {
	Global    GlobalMetrics              `json:"global"`
	Providers map[string]ProviderMetrics `json:"providers"`
}

// Problem is the RFC 7807 envelope used for validation and not-found errors.
type Problem struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail"`
	RequestID string `json:"request_id"`
}

func (p Problem) Error() string { return fmt.Sprintf("%s (%d): %s", p.Title, p.Status, p.Detail) }

// DetailError is the literal {"detail": "..."} body spec.md fixes for the
// budget-exceeded (402) and all-providers-unavailable (503) responses.
type DetailError struct {
	Status int
	Detail string `json:"detail"`
}

func (e DetailError) Error() string { return fmt.Sprintf("HTTP %d: %s", e.Status, e.Detail) }

// ChatCompletions submits a chat request and returns the winning provider's
// response, or one of Problem (400/404) or DetailError (402/503).
func (c *Client) ChatCompletions(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var resp ChatResponse
	if err := c.doJSON(ctx, http.MethodPost, "/chat/completions", req, &resp, ""); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListProviders returns every provider's static spec and live metrics.
func (c *Client) ListProviders(ctx context.Context) ([]ProviderStatus, error) {
	var resp []ProviderStatus
	if err := c.doJSON(ctx, http.MethodGet, "/providers", nil, &resp, ""); err != nil {
		return nil, err
	}
	return resp, nil
}

// RoutingAnalytics returns the global and per-provider metrics rollup.
func (c *Client) RoutingAnalytics(ctx context.Context) (*RoutingAnalytics, error) {
	var resp RoutingAnalytics
	if err := c.doJSON(ctx, http.MethodGet, "/routing/analytics", nil, &resp, ""); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SimulateFailure flips provider's manual-down flag for failure drills.
// Requires the client to have been built with an admin token if the
// server enforces one.
func (c *Client) SimulateFailure(ctx context.Context, provider string, down bool) error {
	body := map[string]interface{}{"provider": provider, "down": down}
	var discard map[string]interface{}
	return c.doJSON(ctx, http.MethodPost, "/simulate/failure", body, &discard, c.adminToken)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body interface{}, out interface{}, bearer string) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.handleErrorResponse(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) handleErrorResponse(resp *http.Response) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("HTTP %d: failed to read error response", resp.StatusCode)
	}

	if resp.StatusCode == http.StatusPaymentRequired || resp.StatusCode == http.StatusServiceUnavailable {
		var d DetailError
		if err := json.Unmarshal(raw, &d); err == nil && d.Detail != "" {
			d.Status = resp.StatusCode
			return d
		}
	}

	var problem Problem
	if err := json.Unmarshal(raw, &problem); err != nil {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(raw))
	}
	return problem
}
