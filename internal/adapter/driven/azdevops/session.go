package azdevops

import (
	"encoding/base64"
	"sync"

	"github.com/pvanburen/azpanel/internal/domain/port/driven"
)

// Session holds the credential state threaded through every outbound call:
// a process-wide default personal access token and an optional
// session-scoped override. The override, when present, always shadows the
// default. A 401 from any surface invalidates the override so the next
// resolution falls back to the default (or fails with ErrNoCredential).
//
// Invalidation is idempotent; concurrent requests observing the same 401
// each clear the override harmlessly.
type Session struct {
	mu         sync.Mutex
	defaultPAT string
	override   string
}

// NewSession creates a Session with the given process-wide default token.
// defaultPAT may be empty; resolution then requires an override.
func NewSession(defaultPAT string) *Session {
	return &Session{defaultPAT: defaultPAT}
}

// Resolve returns the active token: the session override when present,
// otherwise the default. It is called fresh for every outbound request so
// that override changes and invalidations take effect immediately.
func (s *Session) Resolve() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.override != "" {
		return s.override, nil
	}
	if s.defaultPAT != "" {
		return s.defaultPAT, nil
	}
	return "", driven.ErrNoCredential
}

// SetOverride installs a session-scoped token that shadows the default
// until cleared or invalidated.
func (s *Session) SetOverride(pat string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.override = pat
}

// ClearOverride removes the session-scoped token.
func (s *Session) ClearOverride() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.override = ""
}

// SetDefault replaces the process-wide default token. Used when a new
// token is persisted at runtime.
func (s *Session) SetDefault(pat string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultPAT = pat
}

// Invalidate discards the session-scoped token in response to a 401.
// The default is kept: it may still be valid for a different override, and
// discarding it would turn one expired temporary token into a total outage.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.override = ""
}

// basicAuthValue derives the Authorization header value Azure DevOps
// expects for PAT auth: Basic with an empty username.
func basicAuthValue(pat string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(":"+pat))
}
