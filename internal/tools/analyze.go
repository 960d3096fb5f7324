package tools

import (
	"context"
	"fmt"
	"time"
)

// DefaultAnalyzeDelay approximates the latency of a real analysis pass
const DefaultAnalyzeDelay = 2 * time.Second

// AnalyzeData returns the built-in analyze_data tool. It is a deterministic
// placeholder: a real deployment swaps Fn for actual data computation while
// keeping the declaration intact.
func AnalyzeData(delay time.Duration) Tool {
	return Tool{
		Name:        "analyze_data",
		Description: "Analyze a dataset based on a specific question",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"dataset_name": map[string]any{"type": "string"},
				"question":     map[string]any{"type": "string"},
			},
			"required": []string{"dataset_name", "question"},
		},
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			datasetName, _ := args["dataset_name"].(string)
			question, _ := args["question"].(string)

			// Simulate processing time
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}

			return fmt.Sprintf(
				"Analysis of %s complete. The answer to '%s' is in the generated visualizations and data.",
				datasetName, question,
			), nil
		},
	}
}
