package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customMiddleware "github.com/morriswong/datachat/internal/api/middleware"
	"github.com/morriswong/datachat/internal/api/response"
	"github.com/morriswong/datachat/internal/assistant"
	"github.com/morriswong/datachat/internal/chat"
	"github.com/morriswong/datachat/internal/session"
	"github.com/morriswong/datachat/internal/tools"
)

// stubClient satisfies chat.Client with overridable behavior per test.
// Unset fields fall back to benign defaults.
type stubClient struct {
	moderate    func(ctx context.Context, input string) (bool, error)
	streamRun   func(ctx context.Context, threadID, assistantID string) (assistant.EventStream, error)
	fileContent func(ctx context.Context, fileID string) ([]byte, error)
	retrieve    func(ctx context.Context, fileID string) (assistant.File, error)
	upload      func(ctx context.Context, filename string, data io.Reader) (assistant.File, error)
}

func (c *stubClient) Moderate(ctx context.Context, input string) (bool, error) {
	if c.moderate != nil {
		return c.moderate(ctx, input)
	}
	return false, nil
}

func (c *stubClient) CreateThread(context.Context) (string, error) { return "thread_test", nil }

func (c *stubClient) UpdateThreadFiles(context.Context, string, []string) error { return nil }

func (c *stubClient) DeleteThread(context.Context, string) error { return nil }

func (c *stubClient) CreateMessage(context.Context, string, string) error { return nil }

func (c *stubClient) ListAssistantAttachments(context.Context, string) ([]string, error) {
	return nil, nil
}

func (c *stubClient) StreamRun(ctx context.Context, threadID, assistantID string) (assistant.EventStream, error) {
	if c.streamRun != nil {
		return c.streamRun(ctx, threadID, assistantID)
	}
	return &stubStream{}, nil
}

func (c *stubClient) SubmitToolOutputsStream(context.Context, string, string, []assistant.ToolOutput) (assistant.EventStream, error) {
	return &stubStream{}, nil
}

func (c *stubClient) UploadFile(ctx context.Context, filename string, data io.Reader) (assistant.File, error) {
	if c.upload != nil {
		return c.upload(ctx, filename, data)
	}
	return assistant.File{ID: "file_test", Filename: filename}, nil
}

func (c *stubClient) DeleteFile(context.Context, string) error { return nil }

func (c *stubClient) RetrieveFile(ctx context.Context, fileID string) (assistant.File, error) {
	if c.retrieve != nil {
		return c.retrieve(ctx, fileID)
	}
	return assistant.File{ID: fileID, Filename: fileID + ".png"}, nil
}

func (c *stubClient) FileContent(ctx context.Context, fileID string) ([]byte, error) {
	if c.fileContent != nil {
		return c.fileContent(ctx, fileID)
	}
	return []byte("content"), nil
}

// stubStream replays a fixed event slice and then signals exhaustion
type stubStream struct {
	events []assistant.Event
	pos    int
}

func (s *stubStream) Next() (assistant.Event, error) {
	if s.pos >= len(s.events) {
		return assistant.Event{}, io.EOF
	}
	ev := s.events[s.pos]
	s.pos++
	return ev, nil
}

func (s *stubStream) Close() error { return nil }

func textEvent(value string) assistant.Event {
	data, _ := json.Marshal(map[string]any{
		"delta": map[string]any{
			"content": []map[string]any{
				{"index": 0, "type": "text", "text": map[string]string{"value": value}},
			},
		},
	})
	return assistant.Event{Type: assistant.EventMessageDelta, Data: data}
}

type testEnv struct {
	router *chi.Mux
	store  *session.Store
	client *stubClient
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	client := &stubClient{}
	registry := tools.NewRegistry()
	require.NoError(t, registry.Register(tools.AnalyzeData(time.Millisecond)))
	chatService := chat.NewService(client, tools.NewDispatcher(registry), "asst_test")

	store := session.NewStore(time.Hour, time.Hour)
	t.Cleanup(store.Stop)

	sessionHandler := NewSessionHandler(store, chatService)
	uploadHandler := NewUploadHandler(chatService, 10)
	chatHandler := NewChatHandler(chatService)
	filesHandler := NewFilesHandler(chatService)
	sessionMiddleware := customMiddleware.NewSessionMiddleware(store)

	r := chi.NewRouter()
	r.Get("/health", HealthCheck)
	r.Post("/sessions", sessionHandler.Create)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Use(sessionMiddleware.Resolve)
		r.Get("/", sessionHandler.Get)
		r.Post("/reset", sessionHandler.Reset)
		r.Post("/upload", uploadHandler.Upload)
		r.Post("/chat", chatHandler.Ask)
		r.Route("/files", func(r chi.Router) {
			r.Get("/", filesHandler.List)
			r.Get("/{fileID}", filesHandler.Download)
		})
	})

	return &testEnv{router: r, store: store, client: client}
}

func (e *testEnv) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/health", nil, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/sessions", nil, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		SessionID string `json:"session_id"`
		Uploaded  bool   `json:"uploaded"`
	}
	resp := decodeResponse(t, rec)
	data, _ := json.Marshal(resp.Data)
	require.NoError(t, json.Unmarshal(data, &created))
	require.NotEmpty(t, created.SessionID)
	assert.False(t, created.Uploaded)

	rec = env.do(http.MethodGet, "/sessions/"+created.SessionID, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionResolution(t *testing.T) {
	env := newTestEnv(t)

	t.Run("malformed session ID", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/sessions/not-a-uuid", nil, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown session ID", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/sessions/00000000-0000-0000-0000-000000000000", nil, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestUpload(t *testing.T) {
	env := newTestEnv(t)
	sess := env.store.Create()
	base := "/sessions/" + sess.ID.String()

	t.Run("accepts a csv dataset", func(t *testing.T) {
		body, contentType := multipartBody(t, "files", "sales.csv", "a,b\n1,2\n")
		rec := env.do(http.MethodPost, base+"/upload", body, contentType)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "file_test")
		assert.True(t, sess.Uploaded())
	})

	t.Run("rejects disallowed extensions", func(t *testing.T) {
		body, contentType := multipartBody(t, "files", "malware.exe", "MZ")
		rec := env.do(http.MethodPost, base+"/upload", body, contentType)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects empty form", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.Close())
		rec := env.do(http.MethodPost, base+"/upload", &buf, mw.FormDataContentType())
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAsk(t *testing.T) {
	t.Run("requires an uploaded dataset", func(t *testing.T) {
		env := newTestEnv(t)
		sess := env.store.Create()

		body := strings.NewReader(`{"question":"how many rows?"}`)
		rec := env.do(http.MethodPost, "/sessions/"+sess.ID.String()+"/chat", body, "application/json")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "upload a dataset")
	})

	t.Run("rejects an empty question", func(t *testing.T) {
		env := newTestEnv(t)
		sess := env.store.Create()
		sess.AddFileIDs("file_1")

		body := strings.NewReader(`{"question":""}`)
		rec := env.do(http.MethodPost, "/sessions/"+sess.ID.String()+"/chat", body, "application/json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("streams fragments then done", func(t *testing.T) {
		env := newTestEnv(t)
		env.client.streamRun = func(context.Context, string, string) (assistant.EventStream, error) {
			return &stubStream{events: []assistant.Event{textEvent("42"), textEvent(" rows")}}, nil
		}
		sess := env.store.Create()
		sess.AddFileIDs("file_1")

		body := strings.NewReader(`{"question":"how many rows?"}`)
		rec := env.do(http.MethodPost, "/sessions/"+sess.ID.String()+"/chat", body, "application/json")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

		frames := rec.Body.String()
		assert.Contains(t, frames, "event: fragment")
		assert.Contains(t, frames, `"text":"42"`)
		assert.Contains(t, frames, `"text":" rows"`)
		assert.Contains(t, frames, "event: done")

		// Transcript captured for session restore
		msgs := sess.Messages()
		require.Len(t, msgs, 2)
		assert.Equal(t, "42 rows", msgs[1].Content)
	})

	t.Run("flagged question is rejected as plain JSON", func(t *testing.T) {
		env := newTestEnv(t)
		env.client.moderate = func(context.Context, string) (bool, error) { return true, nil }
		sess := env.store.Create()
		sess.AddFileIDs("file_1")

		body := strings.NewReader(`{"question":"something nasty"}`)
		rec := env.do(http.MethodPost, "/sessions/"+sess.ID.String()+"/chat", body, "application/json")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.NotEqual(t, "text/event-stream", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Body.String(), "flagged")
		assert.Empty(t, sess.Messages())
	})

	t.Run("busy session gets 409", func(t *testing.T) {
		env := newTestEnv(t)
		sess := env.store.Create()
		sess.AddFileIDs("file_1")
		require.True(t, sess.BeginTurn())
		defer sess.EndTurn()

		body := strings.NewReader(`{"question":"q"}`)
		rec := env.do(http.MethodPost, "/sessions/"+sess.ID.String()+"/chat", body, "application/json")
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestFiles(t *testing.T) {
	env := newTestEnv(t)
	sess := env.store.Create()
	sess.AddGeneratedFileIDs("file_gen")
	base := "/sessions/" + sess.ID.String() + "/files"

	t.Run("list", func(t *testing.T) {
		rec := env.do(http.MethodGet, base, nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "file_gen.png")
	})

	t.Run("download tracked file", func(t *testing.T) {
		rec := env.do(http.MethodGet, base+"/file_gen", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "content", rec.Body.String())
		assert.Equal(t, fmt.Sprintf("attachment; filename=%q", "file_gen.png"), rec.Header().Get("Content-Disposition"))
	})

	t.Run("download untracked file", func(t *testing.T) {
		rec := env.do(http.MethodGet, base+"/file_other", nil, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestReset(t *testing.T) {
	env := newTestEnv(t)
	sess := env.store.Create()
	sess.AddFileIDs("file_1")
	sess.SetThreadID("thread_1")

	rec := env.do(http.MethodPost, "/sessions/"+sess.ID.String()+"/reset", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Empty(t, sess.FileIDs())
	assert.Empty(t, sess.ThreadID())
	assert.False(t, sess.Uploaded())
}
