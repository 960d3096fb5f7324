package assistant

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
)

// AssistantRequest describes the assistant to create when no existing one
// can be retrieved
type AssistantRequest struct {
	Name         string
	Instructions string
	Model        string
	Functions    []FunctionTool
}

// RetrieveAssistant fetches an existing assistant by ID
func (c *Client) RetrieveAssistant(ctx context.Context, assistantID string) (Assistant, error) {
	var a Assistant
	if err := c.doJSON(ctx, http.MethodGet, "/assistants/"+assistantID, nil, &a); err != nil {
		return Assistant{}, err
	}
	return a, nil
}

// CreateAssistant creates a new assistant with the code interpreter enabled
// plus the given function declarations
func (c *Client) CreateAssistant(ctx context.Context, req AssistantRequest) (Assistant, error) {
	tools := []map[string]any{
		{"type": "code_interpreter"},
	}
	for _, fn := range req.Functions {
		tools = append(tools, map[string]any{
			"type":     "function",
			"function": fn,
		})
	}

	body := map[string]any{
		"name":         req.Name,
		"instructions": req.Instructions,
		"tools":        tools,
		"model":        req.Model,
	}

	var a Assistant
	if err := c.doJSON(ctx, http.MethodPost, "/assistants", body, &a); err != nil {
		return Assistant{}, err
	}
	return a, nil
}

// EnsureAssistant retrieves the configured assistant, falling back to
// creating a new one when retrieval fails
func (c *Client) EnsureAssistant(ctx context.Context, assistantID string, req AssistantRequest) (Assistant, error) {
	if assistantID != "" {
		a, err := c.RetrieveAssistant(ctx, assistantID)
		if err == nil {
			log.Info().Str("assistant_id", a.ID).Str("name", a.Name).Msg("Located assistant")
			return a, nil
		}
		log.Info().Err(err).Msg("Assistant not found, creating a new one")
	}

	a, err := c.CreateAssistant(ctx, req)
	if err != nil {
		return Assistant{}, err
	}
	log.Info().Str("assistant_id", a.ID).Msg("Created new assistant")
	return a, nil
}
