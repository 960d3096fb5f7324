package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/morriswong/datachat/internal/config"
)

// Client wraps the hosted assistants API (Azure OpenAI). One shared instance
// serves all remote calls: files, threads, messages, assistants, runs and
// moderation. Unary calls carry a bounded timeout; run streams do not, since
// stream iteration blocks on the remote for as long as the run takes.
type Client struct {
	apiKey     string
	endpoint   string
	apiVersion string
	client     *http.Client
	streamer   *http.Client
}

// NewClient creates a new assistants API client
func NewClient(cfg config.AzureConfig) *Client {
	return &Client{
		apiKey:     cfg.APIKey,
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		apiVersion: cfg.APIVersion,
		client:     &http.Client{Timeout: 120 * time.Second},
		streamer:   &http.Client{},
	}
}

func (c *Client) url(path string) string {
	return fmt.Sprintf("%s/openai%s?api-version=%s", c.endpoint, path, c.apiVersion)
}

// doJSON executes a JSON request against the API and decodes the response
// into out when out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("api-key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp)
	}

	if out != nil {
		return decodeJSON(resp.Body, out)
	}
	return nil
}

func decodeJSON(r io.Reader, out any) error {
	if err := json.NewDecoder(r).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func apiError(resp *http.Response) error {
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(detail))
	if msg == "" {
		return fmt.Errorf("assistants api returned status %d", resp.StatusCode)
	}
	return fmt.Errorf("assistants api returned status %d: %s", resp.StatusCode, msg)
}
