package services

import (
	"context"
	"sync"

	"github.com/hverma/enrollhub/internal/pkg/apperrors"
)

// SessionTokens holds the provider-issued tokens of an active session.
type SessionTokens struct {
	IDToken      string
	AccessToken  string
	RefreshToken string
}

// SessionStore is a concurrency-safe mapping from identity to session
// tokens. Entry presence is what "has active session" means.
type SessionStore interface {
	// PutIfAbsent inserts the entry only when the identity has no session
	// yet, atomically, and reports whether the insert happened.
	PutIfAbsent(identity string, tokens SessionTokens) bool
	Get(identity string) (SessionTokens, bool)
	Delete(identity string)
}

// memorySessionStore is the in-process SessionStore. State lives for the
// process lifetime only.
type memorySessionStore struct {
	mu      sync.Mutex
	entries map[string]SessionTokens
}

// NewMemorySessionStore creates an empty in-process session store.
func NewMemorySessionStore() SessionStore {
	return &memorySessionStore{entries: make(map[string]SessionTokens)}
}

func (s *memorySessionStore) PutIfAbsent(identity string, tokens SessionTokens) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[identity]; ok {
		return false
	}
	s.entries[identity] = tokens
	return true
}

func (s *memorySessionStore) Get(identity string) (SessionTokens, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens, ok := s.entries[identity]
	return tokens, ok
}

func (s *memorySessionStore) Delete(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, identity)
}

// Authorizer decides whether a verified identity may use this system.
type Authorizer interface {
	Authorized(identity string) bool
}

// SingleIdentityAuthorizer authorizes exactly one configured principal.
type SingleIdentityAuthorizer struct {
	Identity string
}

// Authorized reports whether identity equals the configured principal.
func (a SingleIdentityAuthorizer) Authorized(identity string) bool {
	return identity != "" && identity == a.Identity
}

// SessionService owns in-process session state and enforces the
// single-active-session invariant per identity.
type SessionService struct {
	store      SessionStore
	verifier   TokenVerifier
	authorizer Authorizer
}

// NewSessionService creates a new session service instance
func NewSessionService(store SessionStore, verifier TokenVerifier, authorizer Authorizer) *SessionService {
	return &SessionService{
		store:      store,
		verifier:   verifier,
		authorizer: authorizer,
	}
}

// Login transitions the identity to ActiveSession. A second login without an
// intervening logout fails with a conflict and leaves the stored tokens of
// the first login untouched.
func (s *SessionService) Login(identity string, tokens SessionTokens) error {
	if !s.store.PutIfAbsent(identity, tokens) {
		return apperrors.ErrSessionActive
	}
	return nil
}

// HasActiveSession reports whether the identity currently holds a session.
func (s *SessionService) HasActiveSession(identity string) bool {
	_, ok := s.store.Get(identity)
	return ok
}

// ActiveTokens returns the stored tokens of an active session.
func (s *SessionService) ActiveTokens(identity string) (SessionTokens, bool) {
	return s.store.Get(identity)
}

// Logout unconditionally transitions the identity to NoSession. Logging out
// an identity with no session is a no-op.
func (s *SessionService) Logout(identity string) {
	s.store.Delete(identity)
}

// ValidateAndAuthorize validates the id token against the provider and then
// checks the resulting identity against the authorization policy.
func (s *SessionService) ValidateAndAuthorize(ctx context.Context, idToken string) (string, error) {
	identity, err := s.verifier.ValidateIdentity(ctx, idToken)
	if err != nil {
		return "", err
	}

	if !s.authorizer.Authorized(identity) {
		return "", apperrors.ErrUnauthorized
	}

	return identity, nil
}

// Validate validates the id token without applying the authorization policy.
// The identity middleware uses it to attach the caller identity.
func (s *SessionService) Validate(ctx context.Context, idToken string) (string, error) {
	return s.verifier.ValidateIdentity(ctx, idToken)
}
