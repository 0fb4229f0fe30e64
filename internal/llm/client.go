// Package llm is a client for the OpenAI Responses API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/noteflow/noteflow/internal/httpretry"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-5.1"
	defaultTimeout = 120 * time.Second
)

// Client communicates with an OpenAI-compatible Responses endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	retry      httpretry.Policy
}

// NewClient creates a client for the public OpenAI API.
func NewClient(apiKey, model string) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		retry: httpretry.DefaultPolicy(),
	}
}

// NewClientWithBaseURL creates a client pointing at a custom base URL
// (proxies, compatible gateways, tests).
func NewClientWithBaseURL(apiKey, model, baseURL string) *Client {
	c := NewClient(apiKey, model)
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	return c
}

// Model returns the model requests default to.
func (c *Client) Model() string { return c.model }

// Respond creates a response. Rate limits and server errors are retried with
// backoff; any other failure is returned to the caller.
func (c *Client) Respond(ctx context.Context, req Request) (Response, error) {
	if req.Model == "" {
		req.Model = c.model
	}
	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("marshaling request: %w", err)
	}

	var out Response
	err = httpretry.Do(ctx, c.retry, func(ctx context.Context) error {
		var err error
		out, err = c.doRespond(ctx, body)
		return err
	})
	if err != nil {
		if httpretry.IsRateLimit(err) {
			return Response{}, fmt.Errorf("rate limited after %d retries: %w", c.retry.MaxRetries, err)
		}
		return Response{}, err
	}
	return out, nil
}

func (c *Client) doRespond(ctx context.Context, body []byte) (Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("executing request: %w", err)
	}
	if err := httpretry.CheckResponse(resp); err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Response{}, fmt.Errorf("decoding response: %w", err)
	}
	return out, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}
