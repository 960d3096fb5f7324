package assistant

import (
	"context"
	"net/http"
)

type moderationResponse struct {
	Results []struct {
		Flagged bool `json:"flagged"`
	} `json:"results"`
}

// Moderate classifies text against the moderation endpoint and reports
// whether it was flagged
func (c *Client) Moderate(ctx context.Context, input string) (bool, error) {
	var result moderationResponse
	body := map[string]any{"input": input}
	if err := c.doJSON(ctx, http.MethodPost, "/moderations", body, &result); err != nil {
		return false, err
	}
	if len(result.Results) == 0 {
		return false, nil
	}
	return result.Results[0].Flagged, nil
}
