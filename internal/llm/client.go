package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"codenerd/internal/logging"
	"codenerd/internal/pipelineerr"
)

// Retry policy for transport failures: base 1s, factor 2, 3 attempts
// (spec.md §4.6) — i.e. sleeps of 1s then 2s between the three tries.
const (
	retryBaseDelay = time.Second
	retryFactor    = 2
	maxAttempts    = 3
)

// Client is the vendor-neutral chat-completion client: it discovers
// which models each configured endpoint serves, resolves a phase role
// to a live (server, model) pair, and executes chat requests against
// the generic OpenAI-dialect wire protocol with retry.
type Client struct {
	httpClient  *http.Client
	discoverer  *Discoverer
	endpoints   []string
	assignments map[string][]string
}

// NewClient builds a Client. requestTimeout bounds each individual HTTP
// attempt; discoveryTTL bounds how long a server's model list is
// trusted before re-probing.
func NewClient(endpoints []string, assignments map[string][]string, requestTimeout, discoveryTTL time.Duration) *Client {
	httpClient := &http.Client{Timeout: requestTimeout}
	return &Client{
		httpClient:  httpClient,
		discoverer:  NewDiscoverer(httpClient, discoveryTTL),
		endpoints:   endpoints,
		assignments: assignments,
	}
}

// ModelFor resolves a phase role to its live (server_url, model_id)
// pair, falling back through the role's configured candidate list.
func (c *Client) ModelFor(ctx context.Context, role string) (server string, model string, err error) {
	return c.discoverer.ModelFor(ctx, role, c.assignments, c.endpoints)
}

// Chat sends one chat-completion request to server for model, retrying
// transport failures with exponential backoff, and returns the parsed,
// dialect-normalized response.
func (c *Client) Chat(ctx context.Context, server, model string, messages []Message, tools []ToolSpec) (*ChatResponse, error) {
	reqBody := ChatRequest{Model: model, Messages: messages, Tools: tools, Stream: false}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("llm: marshal chat request: %w", err)
	}

	var lastErr error
	delay := retryBaseDelay
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			logging.LLM("chat request to %s retrying (attempt %d/%d) after %v: %v", server, attempt+1, maxAttempts, delay, lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= retryFactor
		}

		resp, err := c.attempt(ctx, server, payload)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}

	return nil, pipelineerr.TransportError("", fmt.Sprintf("llm request to %s failed after %d attempts: %v", server, maxAttempts, lastErr), "llm-transport")
}

func (c *Client) attempt(ctx context.Context, server string, payload []byte) (*ChatResponse, error) {
	url := strings.TrimRight(server, "/") + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("llm: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("llm: %s: %w", server, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("llm: read response body from %s: %w", server, err)
	}

	if httpResp.StatusCode >= 500 {
		return nil, fmt.Errorf("llm: %s returned status %d: %s", server, httpResp.StatusCode, truncate(string(body), 200))
	}

	var wire wireResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("llm: decode response from %s: %w", server, err)
	}
	if wire.Error != nil {
		return nil, fmt.Errorf("llm: %s reported error: %s", server, wire.Error.Message)
	}
	if len(wire.Choices) == 0 {
		return nil, fmt.Errorf("llm: %s returned no choices", server)
	}

	msg := wire.Choices[0].Message
	return &ChatResponse{
		Content:   msg.Content,
		ToolCalls: ParseToolCalls(msg.Content, msg.ToolCalls),
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
