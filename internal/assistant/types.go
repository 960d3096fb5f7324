package assistant

import "encoding/json"

// Event types surfaced by a run stream. Anything outside this set is
// passed through and ignored by consumers.
const (
	EventMessageDelta      = "thread.message.delta"
	EventRunRequiresAction = "thread.run.requires_action"
	EventRunFailed         = "thread.run.failed"
)

// Event is one server-sent event from a run stream
type Event struct {
	Type string
	Data json.RawMessage
}

// EventStream yields run events until the run settles. Next returns io.EOF
// when the remote stream is exhausted. A stream is single-use; open a fresh
// one per run.
type EventStream interface {
	Next() (Event, error)
	Close() error
}

// MessageDelta is the payload of a thread.message.delta event
type MessageDelta struct {
	ID    string `json:"id"`
	Delta struct {
		Content []DeltaContent `json:"content"`
	} `json:"delta"`
}

// DeltaContent is one content part of a message delta, either a text token
// or a reference to a generated image file
type DeltaContent struct {
	Index int    `json:"index"`
	Type  string `json:"type"`
	Text  *struct {
		Value string `json:"value"`
	} `json:"text,omitempty"`
	ImageFile *struct {
		FileID string `json:"file_id"`
	} `json:"image_file,omitempty"`
}

// Run is the payload of run lifecycle events
type Run struct {
	ID             string          `json:"id"`
	ThreadID       string          `json:"thread_id"`
	Status         string          `json:"status"`
	RequiredAction *RequiredAction `json:"required_action,omitempty"`
	LastError      *RunError       `json:"last_error,omitempty"`
}

// RunError carries the failure reason of a failed run
type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RequiredAction describes the tool outputs a run is blocked on
type RequiredAction struct {
	Type              string `json:"type"`
	SubmitToolOutputs struct {
		ToolCalls []ToolCall `json:"tool_calls"`
	} `json:"submit_tool_outputs"`
}

// ToolCall is one function invocation requested by the remote run
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall names the function and carries its JSON-encoded arguments
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolOutput is the result of one tool call, submitted back to the run
type ToolOutput struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output"`
}

// FunctionTool declares a callable function to the assistant, with
// JSON-schema parameters
type FunctionTool struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters"`
}

// File is remote file metadata
type File struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Bytes    int64  `json:"bytes"`
	Purpose  string `json:"purpose"`
}

// Assistant is the remote assistant configuration handle
type Assistant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Model string `json:"model"`
}
