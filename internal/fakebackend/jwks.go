package fakebackend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/benvon/smart-calendar/internal/middleware"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// DefaultJWKSTTL is how long a fetched key set is reused
const DefaultJWKSTTL = time.Hour

// JWKSCache fetches a JSON Web Key Set and keeps it for a fixed TTL
type JWKSCache struct {
	url    string
	ttl    time.Duration
	client *http.Client
	now    func() time.Time

	mu      sync.RWMutex
	keys    jwk.Set
	expires time.Time
}

// NewJWKSCache creates a cache for the key set served at url. A nil client
// gets a 10 second timeout.
func NewJWKSCache(url string, ttl time.Duration, client *http.Client) *JWKSCache {
	if ttl <= 0 {
		ttl = DefaultJWKSTTL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &JWKSCache{url: url, ttl: ttl, client: client, now: time.Now}
}

// Keys returns the cached key set, fetching it when missing or expired
func (c *JWKSCache) Keys(ctx context.Context) (jwk.Set, error) {
	c.mu.RLock()
	if c.keys != nil && c.now().Before(c.expires) {
		keys := c.keys
		c.mu.RUnlock()
		return keys, nil
	}
	c.mu.RUnlock()

	keys, err := c.fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}

	c.mu.Lock()
	c.keys = keys
	c.expires = c.now().Add(c.ttl)
	c.mu.Unlock()
	return keys, nil
}

func (c *JWKSCache) fetch(ctx context.Context) (jwk.Set, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read JWKS response: %w", err)
	}
	keys, err := jwk.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWKS: %w", err)
	}
	return keys, nil
}

// JWKSVerifier accepts JWTs signed by a key in the cached set. When issuer is
// not empty the iss claim must match it.
func JWKSVerifier(cache *JWKSCache, issuer string) middleware.TokenVerifier {
	return func(ctx context.Context, token string) (string, error) {
		keys, err := cache.Keys(ctx)
		if err != nil {
			return "", err
		}
		opts := []jwt.ParseOption{jwt.WithKeySet(keys), jwt.WithValidate(true)}
		if issuer != "" {
			opts = append(opts, jwt.WithIssuer(issuer))
		}
		parsed, err := jwt.ParseString(token, opts...)
		if err != nil {
			return "", fmt.Errorf("invalid token: %w", err)
		}
		if parsed.Subject() == "" {
			return "", errors.New("token has no subject")
		}
		return parsed.Subject(), nil
	}
}
