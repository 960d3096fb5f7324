package assistant

import (
	"context"
	"net/http"
)

type thread struct {
	ID string `json:"id"`
}

// CreateThread creates a fresh remote conversation thread and returns its ID
func (c *Client) CreateThread(ctx context.Context) (string, error) {
	var t thread
	if err := c.doJSON(ctx, http.MethodPost, "/threads", map[string]any{}, &t); err != nil {
		return "", err
	}
	return t.ID, nil
}

// UpdateThreadFiles attaches uploaded files to a thread's code interpreter
func (c *Client) UpdateThreadFiles(ctx context.Context, threadID string, fileIDs []string) error {
	body := map[string]any{
		"tool_resources": map[string]any{
			"code_interpreter": map[string]any{
				"file_ids": fileIDs,
			},
		},
	}
	return c.doJSON(ctx, http.MethodPost, "/threads/"+threadID, body, nil)
}

// DeleteThread removes a thread and its server-side conversation state
func (c *Client) DeleteThread(ctx context.Context, threadID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/threads/"+threadID, nil, nil)
}

// CreateMessage appends a user message to a thread
func (c *Client) CreateMessage(ctx context.Context, threadID, content string) error {
	body := map[string]any{
		"role":    "user",
		"content": content,
	}
	return c.doJSON(ctx, http.MethodPost, "/threads/"+threadID+"/messages", body, nil)
}

type messageList struct {
	Data []struct {
		Role        string `json:"role"`
		Attachments []struct {
			FileID string `json:"file_id"`
		} `json:"attachments"`
	} `json:"data"`
}

// ListAssistantAttachments returns the file IDs attached to assistant
// messages in a thread, newest first
func (c *Client) ListAssistantAttachments(ctx context.Context, threadID string) ([]string, error) {
	var list messageList
	if err := c.doJSON(ctx, http.MethodGet, "/threads/"+threadID+"/messages", nil, &list); err != nil {
		return nil, err
	}

	var fileIDs []string
	for _, msg := range list.Data {
		if msg.Role != "assistant" {
			continue
		}
		for _, att := range msg.Attachments {
			fileIDs = append(fileIDs, att.FileID)
		}
	}
	return fileIDs, nil
}
