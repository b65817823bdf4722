package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/api"
	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/debug"
)

// Client performs HTTP requests against an OpenAI-compatible Chat
// Completions backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient creates a Client for the backend at baseURL. The timeout
// applies to non-streaming requests only.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(baseURL, "/")

	if timeout == 0 {
		timeout = 120 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// Complete performs non-streaming inference.
func (c *Client) Complete(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	reqCopy := *req
	reqCopy.Stream = false
	reqCopy.StreamOptions = nil

	httpResp, err := c.post(ctx, &reqCopy, false)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, MapHTTPError(httpResp)
	}

	var chatResp ChatCompletionResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&chatResp); err != nil {
		return nil, api.NewBackendProtocolError("failed to parse backend response: %s", err.Error())
	}
	return &chatResp, nil
}

// Stream performs streaming inference. It returns a channel of Events
// that is closed when the stream completes, errors, or the context is
// cancelled.
//
// The HTTP client timeout is not applied for streaming requests because
// a stream can legitimately last longer than any fixed timeout.
// Lifecycle control relies on context cancellation instead.
func (c *Client) Stream(ctx context.Context, req *ChatCompletionRequest) (<-chan Event, error) {
	reqCopy := *req
	reqCopy.Stream = true
	reqCopy.StreamOptions = &ChatStreamOptions{IncludeUsage: true}

	httpResp, err := c.post(ctx, &reqCopy, true)
	if err != nil {
		return nil, err
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		defer httpResp.Body.Close()
		return nil, MapHTTPError(httpResp)
	}

	ch := make(chan Event, 16)

	go func() {
		defer close(ch)
		defer httpResp.Body.Close()
		ParseSSEStream(ctx, httpResp.Body, ch)
	}()

	return ch, nil
}

func (c *Client) post(ctx context.Context, req *ChatCompletionRequest, streaming bool) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, api.NewServerError("failed to marshal backend request: %s", err.Error())
	}

	url := c.baseURL + "/v1/chat/completions"
	debug.Log("backend", "dispatching request",
		"url", url, "model", req.Model, "streaming", streaming, "messages", len(req.Messages))
	if debug.TraceIsEnabled("backend") {
		debug.Raw("backend", string(body))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, api.NewServerError("failed to create backend request: %s", err.Error())
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	client := c.httpClient
	if streaming {
		httpReq.Header.Set("Accept", "text/event-stream")
		client = &http.Client{Transport: c.httpClient.Transport}
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, MapNetworkError(err)
	}
	return httpResp, nil
}

// Close releases client resources.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
