package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/morriswong/datachat/internal/domain"
)

// Session holds all state for one browser session: the chat transcript,
// uploaded file references, the remote thread identifier and the files the
// assistant generated. State lives in memory only and dies with the session.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time

	mu               sync.Mutex
	turn             sync.Mutex
	lastActive       time.Time
	messages         []domain.Message
	fileIDs          []string
	threadID         string
	generatedFileIDs []string
	uploaded         bool
}

// BeginTurn claims the session for one question. It fails when another
// question is still being processed; one turn runs at a time per session.
func (s *Session) BeginTurn() bool {
	return s.turn.TryLock()
}

// EndTurn releases the session after a turn settles
func (s *Session) EndTurn() {
	s.turn.Unlock()
}

// AppendMessage adds a message to the transcript
func (s *Session) AppendMessage(msg domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	s.lastActive = time.Now()
}

// Messages returns a copy of the transcript in append order
func (s *Session) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// ThreadID returns the remote thread identifier, empty until the first
// question creates one
func (s *Session) ThreadID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threadID
}

// SetThreadID records the remote thread identifier
func (s *Session) SetThreadID(threadID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threadID = threadID
}

// FileIDs returns the uploaded file identifiers
func (s *Session) FileIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.fileIDs))
	copy(out, s.fileIDs)
	return out
}

// AddFileIDs records uploaded files and marks the session as having data
func (s *Session) AddFileIDs(fileIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fileIDs = append(s.fileIDs, fileIDs...)
	if len(s.fileIDs) > 0 {
		s.uploaded = true
	}
	s.lastActive = time.Now()
}

// Uploaded reports whether the session has uploaded data
func (s *Session) Uploaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploaded
}

// GeneratedFileIDs returns the identifiers of assistant-generated files
func (s *Session) GeneratedFileIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.generatedFileIDs))
	copy(out, s.generatedFileIDs)
	return out
}

// AddGeneratedFileIDs records assistant-generated files, skipping
// identifiers already tracked
func (s *Session) AddGeneratedFileIDs(fileIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool, len(s.generatedFileIDs))
	for _, id := range s.generatedFileIDs {
		seen[id] = true
	}
	for _, id := range fileIDs {
		if !seen[id] {
			s.generatedFileIDs = append(s.generatedFileIDs, id)
			seen[id] = true
		}
	}
	s.lastActive = time.Now()
}

// Clear wipes all session fields back to their initial state
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.fileIDs = nil
	s.threadID = ""
	s.generatedFileIDs = nil
	s.uploaded = false
	s.lastActive = time.Now()
}

func (s *Session) expired(ttl time.Duration, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastActive) > ttl
}

// Store is the in-memory session registry, keyed by session ID. A janitor
// evicts sessions idle past their TTL.
type Store struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	ttl      time.Duration
	done     chan struct{}
	stopOnce sync.Once
}

// NewStore creates a session store and starts its eviction janitor
func NewStore(ttl, cleanupInterval time.Duration) *Store {
	s := &Store{
		sessions: make(map[uuid.UUID]*Session),
		ttl:      ttl,
		done:     make(chan struct{}),
	}
	go s.janitor(cleanupInterval)
	return s
}

// Create registers a new empty session
func (s *Store) Create() *Session {
	now := time.Now()
	sess := &Session{
		ID:         uuid.New(),
		CreatedAt:  now,
		lastActive: now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	return sess
}

// Get looks up a session by ID
func (s *Store) Get(id uuid.UUID) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Delete removes a session from the store
func (s *Store) Delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len returns the number of live sessions
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Stop halts the eviction janitor
func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *Store) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.evictExpired(now)
		}
	}
}

func (s *Store) evictExpired(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if sess.expired(s.ttl, now) {
			delete(s.sessions, id)
			log.Info().Str("session_id", id.String()).Msg("Evicted idle session")
		}
	}
}
