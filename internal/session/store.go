// Package session persists the bearer token the client attaches to backend
// requests.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/oauth2"
)

// ErrNoSession is returned by TokenSource when no usable token is stored
var ErrNoSession = errors.New("no active session")

// Store reads, writes and clears the current session token. Load returns a
// nil token and nil error when nothing is stored.
type Store interface {
	Load(ctx context.Context) (*oauth2.Token, error)
	Save(ctx context.Context, tok *oauth2.Token) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the token in process memory
type MemoryStore struct {
	mu  sync.RWMutex
	tok *oauth2.Token
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(_ context.Context) (*oauth2.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tok == nil {
		return nil, nil
	}
	cp := *s.tok
	return &cp, nil
}

func (s *MemoryStore) Save(_ context.Context, tok *oauth2.Token) error {
	if tok == nil {
		return errors.New("token is nil")
	}
	cp := *tok
	s.mu.Lock()
	s.tok = &cp
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.tok = nil
	s.mu.Unlock()
	return nil
}

// NewToken wraps a raw bearer token. JWTs get their expiry from the exp claim;
// opaque tokens never expire client-side.
func NewToken(raw string) (*oauth2.Token, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "Bearer "))
	if raw == "" {
		return nil, errors.New("token is empty")
	}
	if strings.Count(raw, ".") == 2 {
		tok, err := TokenFromJWT(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to read token claims: %w", err)
		}
		return tok, nil
	}
	return &oauth2.Token{AccessToken: raw, TokenType: "Bearer"}, nil
}

// TokenSource adapts a Store to oauth2.TokenSource. Expired or missing tokens
// yield ErrNoSession.
func TokenSource(ctx context.Context, store Store) oauth2.TokenSource {
	return &storeTokenSource{ctx: ctx, store: store}
}

type storeTokenSource struct {
	ctx   context.Context
	store Store
}

func (s *storeTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.store.Load(s.ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if tok == nil || !tok.Valid() {
		return nil, ErrNoSession
	}
	return tok, nil
}
