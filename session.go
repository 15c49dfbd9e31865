package main

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session ties API keys, a loaded document and the two pipeline outputs
// together for the lifetime of one browser-visible run sequence. It is an
// explicit per-session object, never ambient process state; it is
// discarded on delete, TTL expiry or server restart.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu         sync.Mutex
	lastActive time.Time

	anthropicKey string
	googleKey    string

	document *Document

	standardText  string
	standardUsage TokenUsage
	debateResult  *DebateResult
	reviewVerdict *ReviewVerdict
}

// SessionInfo is the JSON view of a session
type SessionInfo struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Document     *Document `json:"document,omitempty"`
	HasStandard  bool      `json:"has_standard"`
	HasDebate    bool      `json:"has_debate"`
	HasReview    bool      `json:"has_review"`
	AnthropicSet bool      `json:"anthropic_set"`
	GoogleSet    bool      `json:"google_set"`
}

// Info snapshots the session for API responses
func (s *Session) Info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionInfo{
		ID:           s.ID,
		CreatedAt:    s.CreatedAt,
		Document:     s.document,
		HasStandard:  s.standardText != "",
		HasDebate:    s.debateResult != nil,
		HasReview:    s.reviewVerdict != nil,
		AnthropicSet: s.anthropicKey != "",
		GoogleSet:    s.googleKey != "",
	}
}

// SetKeys stores the session's provider keys. Keys live in memory only
// and are never echoed back or persisted.
func (s *Session) SetKeys(anthropicKey, googleKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.anthropicKey = anthropicKey
	s.googleKey = googleKey
}

// Keys returns the stored provider keys
func (s *Session) Keys() (anthropicKey, googleKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.anthropicKey, s.googleKey
}

// HasAnyKey reports whether at least one provider key is configured
func (s *Session) HasAnyKey() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.anthropicKey != "" || s.googleKey != ""
}

// SetDocument stores the extracted document
func (s *Session) SetDocument(doc *Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.document = doc
}

// Document returns the loaded document, or nil
func (s *Session) Document() *Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.document
}

// SetStandardResult stores the single-pass pipeline's final output
func (s *Session) SetStandardResult(text string, usage TokenUsage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.standardText = text
	s.standardUsage = usage
}

// StandardResult returns the stored single-pass output
func (s *Session) StandardResult() (string, TokenUsage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.standardText, s.standardUsage
}

// SetDebateResult stores the finalized debate result
func (s *Session) SetDebateResult(result *DebateResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debateResult = result
}

// DebateResult returns the stored debate result, or nil
func (s *Session) DebateResult() *DebateResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.debateResult
}

// SetReviewVerdict stores the comparison step's verdict
func (s *Session) SetReviewVerdict(verdict *ReviewVerdict) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reviewVerdict = verdict
}

// ReviewVerdict returns the stored comparison verdict, or nil
func (s *Session) ReviewVerdict() *ReviewVerdict {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reviewVerdict
}

func (s *Session) touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
}

func (s *Session) expired(ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastActive) > ttl
}

// SessionStore provides thread-safe, TTL-bounded in-memory session storage
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
}

// NewSessionStore creates a store with the specified idle TTL
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
}

// Create makes a new session with a fresh UUID
func (st *SessionStore) Create() *Session {
	now := time.Now()
	session := &Session{
		ID:         uuid.New().String(),
		CreatedAt:  now,
		lastActive: now,
	}

	st.mu.Lock()
	st.sessions[session.ID] = session
	st.mu.Unlock()

	st.purgeExpired()
	return session
}

// Get retrieves a live session and refreshes its idle timer.
// Returns nil if the session is unknown or expired.
func (st *SessionStore) Get(id string) *Session {
	st.mu.RLock()
	session, ok := st.sessions[id]
	st.mu.RUnlock()

	if !ok {
		return nil
	}
	if session.expired(st.ttl) {
		st.Delete(id)
		return nil
	}

	session.touch()
	return session
}

// Delete removes a session
func (st *SessionStore) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// Count returns the number of stored sessions, expired ones included
func (st *SessionStore) Count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// purgeExpired drops sessions past their idle TTL
func (st *SessionStore) purgeExpired() {
	st.mu.Lock()
	defer st.mu.Unlock()
	for id, session := range st.sessions {
		if session.expired(st.ttl) {
			delete(st.sessions, id)
		}
	}
}
