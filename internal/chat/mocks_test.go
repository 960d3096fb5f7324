package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/morriswong/datachat/internal/assistant"
)

// MockClient mocks the remote service surface
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Moderate(ctx context.Context, input string) (bool, error) {
	args := m.Called(ctx, input)
	return args.Bool(0), args.Error(1)
}

func (m *MockClient) CreateThread(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockClient) UpdateThreadFiles(ctx context.Context, threadID string, fileIDs []string) error {
	args := m.Called(ctx, threadID, fileIDs)
	return args.Error(0)
}

func (m *MockClient) DeleteThread(ctx context.Context, threadID string) error {
	args := m.Called(ctx, threadID)
	return args.Error(0)
}

func (m *MockClient) CreateMessage(ctx context.Context, threadID, content string) error {
	args := m.Called(ctx, threadID, content)
	return args.Error(0)
}

func (m *MockClient) ListAssistantAttachments(ctx context.Context, threadID string) ([]string, error) {
	args := m.Called(ctx, threadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockClient) StreamRun(ctx context.Context, threadID, assistantID string) (assistant.EventStream, error) {
	args := m.Called(ctx, threadID, assistantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(assistant.EventStream), args.Error(1)
}

func (m *MockClient) SubmitToolOutputsStream(ctx context.Context, threadID, runID string, outputs []assistant.ToolOutput) (assistant.EventStream, error) {
	args := m.Called(ctx, threadID, runID, outputs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(assistant.EventStream), args.Error(1)
}

func (m *MockClient) UploadFile(ctx context.Context, filename string, data io.Reader) (assistant.File, error) {
	args := m.Called(ctx, filename, data)
	return args.Get(0).(assistant.File), args.Error(1)
}

func (m *MockClient) DeleteFile(ctx context.Context, fileID string) error {
	args := m.Called(ctx, fileID)
	return args.Error(0)
}

func (m *MockClient) RetrieveFile(ctx context.Context, fileID string) (assistant.File, error) {
	args := m.Called(ctx, fileID)
	return args.Get(0).(assistant.File), args.Error(1)
}

func (m *MockClient) FileContent(ctx context.Context, fileID string) ([]byte, error) {
	args := m.Called(ctx, fileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// fakeStream replays a fixed event sequence
type fakeStream struct {
	events []assistant.Event
	pos    int
	closed bool
}

func newFakeStream(events ...assistant.Event) *fakeStream {
	return &fakeStream{events: events}
}

func (f *fakeStream) Next() (assistant.Event, error) {
	if f.pos >= len(f.events) {
		return assistant.Event{}, io.EOF
	}
	ev := f.events[f.pos]
	f.pos++
	return ev, nil
}

func (f *fakeStream) Close() error {
	f.closed = true
	return nil
}

func textDelta(value string) assistant.Event {
	data, _ := json.Marshal(map[string]any{
		"delta": map[string]any{
			"content": []map[string]any{
				{"index": 0, "type": "text", "text": map[string]any{"value": value}},
			},
		},
	})
	return assistant.Event{Type: assistant.EventMessageDelta, Data: data}
}

func imageDelta(fileID string) assistant.Event {
	data, _ := json.Marshal(map[string]any{
		"delta": map[string]any{
			"content": []map[string]any{
				{"index": 0, "type": "image_file", "image_file": map[string]any{"file_id": fileID}},
			},
		},
	})
	return assistant.Event{Type: assistant.EventMessageDelta, Data: data}
}

func requiresAction(threadID, runID string, calls ...assistant.ToolCall) assistant.Event {
	data, _ := json.Marshal(map[string]any{
		"id":        runID,
		"thread_id": threadID,
		"status":    "requires_action",
		"required_action": map[string]any{
			"type": "submit_tool_outputs",
			"submit_tool_outputs": map[string]any{
				"tool_calls": calls,
			},
		},
	})
	return assistant.Event{Type: assistant.EventRunRequiresAction, Data: data}
}

func runFailed(runID string) assistant.Event {
	data, _ := json.Marshal(map[string]any{
		"id":         runID,
		"status":     "failed",
		"last_error": map[string]any{"code": "server_error", "message": "boom"},
	})
	return assistant.Event{Type: assistant.EventRunFailed, Data: data}
}

func analyzeCall(callID, dataset, question string) assistant.ToolCall {
	return assistant.ToolCall{
		ID:   callID,
		Type: "function",
		Function: assistant.FunctionCall{
			Name:      "analyze_data",
			Arguments: fmt.Sprintf(`{"dataset_name":%q,"question":%q}`, dataset, question),
		},
	}
}
