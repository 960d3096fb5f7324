package tools

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/morriswong/datachat/internal/assistant"
)

// Request is a pending function-call obligation issued by a remote run. It
// is consumed exactly once: dispatch every call and submit the outputs back
// before the run can continue.
type Request struct {
	ThreadID string
	RunID    string
	Calls    []assistant.ToolCall
}

// Dispatcher resolves tool calls against a registry and packages their
// outputs for submission back to the run
type Dispatcher struct {
	registry *Registry
}

// NewDispatcher creates a dispatcher over the given registry
func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Dispatch executes every call in the request in order. Unknown function
// names and tool failures become structured error payloads rather than
// failing the turn, so the remote run always receives one output per call.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) []assistant.ToolOutput {
	outputs := make([]assistant.ToolOutput, 0, len(req.Calls))

	for _, call := range req.Calls {
		args := map[string]any{}
		if call.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
				log.Error().Err(err).Str("function", call.Function.Name).Msg("Failed to decode tool arguments")
				args = map[string]any{}
			}
		}

		tool, ok := d.registry.Get(call.Function.Name)
		if !ok {
			log.Error().Str("function", call.Function.Name).Str("call_id", call.ID).Msg("Unrecognized function name")
			outputs = append(outputs, assistant.ToolOutput{
				ToolCallID: call.ID,
				Output:     errorPayload("Function name is not recognized. Please check your request structure."),
			})
			continue
		}

		log.Info().Str("function", call.Function.Name).Msg("Calling tool function")
		result, err := tool.Fn(ctx, args)
		if err != nil {
			log.Error().Err(err).Str("function", call.Function.Name).Msg("Tool function failed")
			outputs = append(outputs, assistant.ToolOutput{
				ToolCallID: call.ID,
				Output:     errorPayload(err.Error()),
			})
			continue
		}

		outputs = append(outputs, assistant.ToolOutput{
			ToolCallID: call.ID,
			Output:     result,
		})
	}

	return outputs
}

func errorPayload(message string) string {
	payload, _ := json.Marshal(map[string]string{
		"status":  "error",
		"message": message,
	})
	return string(payload)
}
