package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// jsonClient is the HTTP/JSON transport shared by the collaborator adapters.
// Every call goes through the adapter's circuit breaker.
type jsonClient struct {
	name       string
	baseURL    string
	httpClient *http.Client
	cb         *CircuitBreaker
}

func newJSONClient(name, baseURL string, timeout time.Duration, cb *CircuitBreaker) jsonClient {
	if cb == nil {
		cb = NewCircuitBreaker(breakerSettings(name))
	}
	return jsonClient{
		name:       name,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		cb:         cb,
	}
}

func (c *jsonClient) do(ctx context.Context, method, path string, in, out any) error {
	return c.cb.Call(ctx, func(ctx context.Context) error {
		var body io.Reader
		if in != nil {
			data, err := json.Marshal(in)
			if err != nil {
				return fmt.Errorf("%s: marshal payload: %w", c.name, err)
			}
			body = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return fmt.Errorf("%s: create request: %w", c.name, err)
		}
		req.Header.Set("Accept", "application/json")
		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%s: unreachable: %w", c.name, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%s: returned %d", c.name, resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s: decode response: %w", c.name, err)
		}
		return nil
	})
}

// Breaker exposes the adapter's circuit breaker for the health endpoint.
func (c *jsonClient) Breaker() *CircuitBreaker { return c.cb }
