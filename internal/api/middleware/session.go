package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/morriswong/datachat/internal/api/response"
	"github.com/morriswong/datachat/internal/session"
)

type contextKey string

const SessionKey contextKey = "session"

// SessionMiddleware resolves the session referenced in the URL
type SessionMiddleware struct {
	store *session.Store
}

// NewSessionMiddleware creates a new session middleware
func NewSessionMiddleware(store *session.Store) *SessionMiddleware {
	return &SessionMiddleware{store: store}
}

// Resolve extracts the session ID from the URL, looks the session up and
// adds it to the request context
func (m *SessionMiddleware) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionIDStr := chi.URLParam(r, "sessionID")
		sessionID, err := uuid.Parse(sessionIDStr)
		if err != nil {
			response.BadRequest(w, "invalid session ID")
			return
		}

		sess, ok := m.store.Get(sessionID)
		if !ok {
			response.NotFound(w, "session not found")
			return
		}

		ctx := context.WithValue(r.Context(), SessionKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetSession gets the resolved session from context
func GetSession(ctx context.Context) (*session.Session, bool) {
	sess, ok := ctx.Value(SessionKey).(*session.Session)
	return sess, ok
}
