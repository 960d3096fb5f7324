package assistant

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxEventSize bounds a single SSE line; image-bearing deltas can be large
const maxEventSize = 1 << 20

// Stream reads server-sent events off a run's HTTP response body
type Stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

func newStream(body io.ReadCloser) *Stream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)
	return &Stream{body: body, scanner: scanner}
}

// Next returns the next event from the stream, or io.EOF once the remote
// side has finished the run.
func (s *Stream) Next() (Event, error) {
	var eventType string
	var data bytes.Buffer

	flush := func() (Event, bool) {
		raw := bytes.TrimSpace(data.Bytes())
		if eventType == "" && len(raw) == 0 {
			return Event{}, false
		}
		if bytes.Equal(raw, []byte("[DONE]")) {
			return Event{}, false
		}
		return Event{Type: eventType, Data: json.RawMessage(append([]byte(nil), raw...))}, true
	}

	for s.scanner.Scan() {
		line := s.scanner.Text()
		switch {
		case line == "":
			if ev, ok := flush(); ok {
				return ev, nil
			}
			eventType = ""
			data.Reset()
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}

	if err := s.scanner.Err(); err != nil {
		return Event{}, fmt.Errorf("stream read failed: %w", err)
	}
	if ev, ok := flush(); ok {
		return ev, nil
	}
	return Event{}, io.EOF
}

// Close releases the underlying response body
func (s *Stream) Close() error {
	return s.body.Close()
}

// openStream starts a streaming POST and hands back the event reader. No
// client-enforced timeout applies; cancellation comes from ctx.
func (c *Client) openStream(ctx context.Context, path string, body any) (EventStream, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, apiError(resp)
	}

	return newStream(resp.Body), nil
}

// StreamRun starts a run against a thread and streams its events
func (c *Client) StreamRun(ctx context.Context, threadID, assistantID string) (EventStream, error) {
	body := map[string]any{
		"assistant_id": assistantID,
		"stream":       true,
	}
	return c.openStream(ctx, fmt.Sprintf("/threads/%s/runs", threadID), body)
}

// SubmitToolOutputsStream submits tool outputs back to a blocked run and
// streams the continuation
func (c *Client) SubmitToolOutputsStream(ctx context.Context, threadID, runID string, outputs []ToolOutput) (EventStream, error) {
	body := map[string]any{
		"tool_outputs": outputs,
		"stream":       true,
	}
	return c.openStream(ctx, fmt.Sprintf("/threads/%s/runs/%s/submit_tool_outputs", threadID, runID), body)
}
