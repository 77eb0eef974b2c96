package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
)

// DefaultRedisKey is the key used when none is configured
const DefaultRedisKey = "smart-calendar:session"

// RedisStore shares one session between several client processes. Entries
// expire with the token.
type RedisStore struct {
	client redis.UniversalClient
	key    string
	now    func() time.Time
}

// NewRedisStore connects to redisURL and verifies the connection
func NewRedisStore(ctx context.Context, redisURL, key string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisStoreWithClient(client, key), nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client redis.UniversalClient, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key, now: time.Now}
}

func (s *RedisStore) Load(ctx context.Context) (*oauth2.Token, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session from Redis: %w", err)
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return rec.token(), nil
}

func (s *RedisStore) Save(ctx context.Context, tok *oauth2.Token) error {
	if tok == nil {
		return errors.New("token is nil")
	}
	data, err := json.Marshal(newRecord(tok))
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	var ttl time.Duration
	if !tok.Expiry.IsZero() {
		ttl = tok.Expiry.Sub(s.now())
		if ttl <= 0 {
			return s.Clear(ctx)
		}
	}
	if err := s.client.Set(ctx, s.key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write session to Redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear session in Redis: %w", err)
	}
	return nil
}

// Close releases the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
