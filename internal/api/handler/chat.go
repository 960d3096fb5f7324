package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/morriswong/datachat/internal/api/middleware"
	"github.com/morriswong/datachat/internal/api/response"
	"github.com/morriswong/datachat/internal/chat"
	"github.com/morriswong/datachat/internal/domain"
)

// ChatHandler handles the question endpoint
type ChatHandler struct {
	chatService *chat.Service
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *chat.Service) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

type askRequest struct {
	Question string `json:"question" validate:"required,min=1"`
}

// sseWriter lazily switches the response to text/event-stream on the first
// frame, so pre-stream failures can still go out as plain JSON errors.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func (sw *sseWriter) writeFrame(event string, payload any) error {
	if !sw.started {
		sw.w.Header().Set("Content-Type", "text/event-stream")
		sw.w.Header().Set("Cache-Control", "no-cache")
		sw.w.Header().Set("Connection", "keep-alive")
		sw.w.Header().Set("X-Accel-Buffering", "no")
		sw.w.WriteHeader(http.StatusOK)
		sw.started = true
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(sw.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	sw.flusher.Flush()
	return nil
}

// Ask processes one question turn and streams fragments back over SSE. The
// turn is fully processed, tool round-trips included, before the session
// accepts the next question.
func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSession(r.Context())
	if !ok {
		response.InternalError(w, "session not resolved")
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if !sess.Uploaded() {
		response.BadRequest(w, "upload a dataset before asking questions")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalError(w, "streaming not supported")
		return
	}

	if !sess.BeginTurn() {
		response.Conflict(w, "another question is still being processed")
		return
	}
	defer sess.EndTurn()

	sw := &sseWriter{w: w, flusher: flusher}
	emit := func(f domain.Fragment) error {
		return sw.writeFrame("fragment", f)
	}

	files, err := h.chatService.Ask(r.Context(), sess, req.Question, emit)
	if err != nil {
		if errors.Is(err, chat.ErrFlagged) {
			response.BadRequest(w, "Your question has been flagged. Please try a different question.")
			return
		}
		log.Error().Err(err).Str("session_id", sess.ID.String()).Msg("Question turn failed")
		if !sw.started {
			response.InternalError(w, "analysis failed")
			return
		}
		sw.writeFrame("error", map[string]string{"message": "analysis failed"})
		return
	}

	if files == nil {
		files = []domain.GeneratedFile{}
	}
	sw.writeFrame("done", map[string]any{"files": files})
}
