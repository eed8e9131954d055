package contextclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bryanwahyu/cve-advisor/internal/domain/advisory"
)

// Client reads the shared context from a running context service
// (GET /mcp/context). It implements advisory.ContextSource.
type Client struct {
	baseURL string
	http    *http.Client
	apiKey  string
}

func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// WithAPIKey sets the key sent on writes.
func (c *Client) WithAPIKey(key string) *Client {
	c.apiKey = key
	return c
}

func (c *Client) endpoint() string {
	if strings.HasSuffix(c.baseURL, "/mcp/context") {
		return c.baseURL
	}
	return c.baseURL + "/mcp/context"
}

// Context fetches the current context. Non-200 responses and bodies that are
// not a JSON object are errors; the caller decides on the fallback.
func (c *Client) Context(ctx context.Context) (advisory.Context, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(), nil)
	if err != nil {
		return advisory.Context{}, err
	}
	return c.do(req)
}

// Set stores a new context on the service and returns what it stored.
func (c *Client) Set(ctx context.Context, style, mode, language string) (advisory.Context, error) {
	body, err := json.Marshal(map[string]string{"style": style, "mode": mode, "language": language})
	if err != nil {
		return advisory.Context{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return advisory.Context{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (advisory.Context, error) {
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return advisory.Context{}, fmt.Errorf("context service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return advisory.Context{}, fmt.Errorf("read context: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return advisory.Context{}, fmt.Errorf("context service: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	// missing fields keep their defaults
	out := advisory.DefaultContext()
	if err := json.Unmarshal(body, &out); err != nil {
		return advisory.Context{}, fmt.Errorf("decode context: %w", err)
	}
	return out, nil
}
