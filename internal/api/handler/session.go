package handler

import (
	"net/http"

	"github.com/morriswong/datachat/internal/api/middleware"
	"github.com/morriswong/datachat/internal/api/response"
	"github.com/morriswong/datachat/internal/chat"
	"github.com/morriswong/datachat/internal/domain"
	"github.com/morriswong/datachat/internal/session"
)

// SessionHandler handles session lifecycle endpoints
type SessionHandler struct {
	store       *session.Store
	chatService *chat.Service
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(store *session.Store, chatService *chat.Service) *SessionHandler {
	return &SessionHandler{store: store, chatService: chatService}
}

type sessionState struct {
	SessionID        string           `json:"session_id"`
	Uploaded         bool             `json:"uploaded"`
	UploadedFileIDs  []string         `json:"uploaded_file_ids"`
	Messages         []domain.Message `json:"messages"`
	GeneratedFileIDs []string         `json:"generated_file_ids"`
}

func stateOf(sess *session.Session) sessionState {
	return sessionState{
		SessionID:        sess.ID.String(),
		Uploaded:         sess.Uploaded(),
		UploadedFileIDs:  sess.FileIDs(),
		Messages:         sess.Messages(),
		GeneratedFileIDs: sess.GeneratedFileIDs(),
	}
}

// Create starts a new browser session
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess := h.store.Create()
	response.Created(w, stateOf(sess))
}

// Get returns the transcript and state of a session, used by the SPA to
// restore after a reload
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSession(r.Context())
	if !ok {
		response.InternalError(w, "session not resolved")
		return
	}
	response.OK(w, stateOf(sess))
}

// Reset implements Start New Analysis: remote thread and files are deleted,
// then all session fields are cleared
func (h *SessionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSession(r.Context())
	if !ok {
		response.InternalError(w, "session not resolved")
		return
	}

	if !sess.BeginTurn() {
		response.Conflict(w, "a question is still being processed")
		return
	}
	defer sess.EndTurn()

	h.chatService.Reset(r.Context(), sess)
	response.OK(w, map[string]string{"message": "session reset"})
}
