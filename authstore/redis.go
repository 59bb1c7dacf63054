// Package authstore implements the §6 HTTP surface's session-token store:
// POST /auth mints a token for a user, the /retrieval handler validates the
// token header and rejects expired or unknown ones with 401.
package authstore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTokenTTL matches §6 "session tokens expire after 30 min".
const DefaultTokenTTL = 30 * time.Minute

// ErrInvalidToken is returned by Validate for an unknown or expired token.
var ErrInvalidToken = errors.New("authstore: invalid token")

// Store mints and validates session tokens backed by Redis, the way the
// pack's cache packages wrap *redis.Client behind a narrow interface.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithTTL overrides DefaultTokenTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// New builds a Store against a Redis instance at addr (host:port).
func New(addr, password string, db int, opts ...Option) *Store {
	s := &Store{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		ttl: DefaultTokenTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue mints a new token bound to userID and stores it with the store's
// TTL (DefaultTokenTTL, 30 min, unless WithTTL set another).
func (s *Store) Issue(ctx context.Context, userID string) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("authstore: generate token: %w", err)
	}
	token := hex.EncodeToString(raw)
	if err := s.client.Set(ctx, tokenKey(token), userID, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("authstore: issue token: %w", err)
	}
	return token, nil
}

// Validate returns the user bound to token, or ErrInvalidToken if the token
// is unknown or has expired.
func (s *Store) Validate(ctx context.Context, token string) (string, error) {
	userID, err := s.client.Get(ctx, tokenKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrInvalidToken
	}
	if err != nil {
		return "", fmt.Errorf("authstore: validate token: %w", err)
	}
	return userID, nil
}

// Revoke deletes a token, e.g. on logout.
func (s *Store) Revoke(ctx context.Context, token string) error {
	return s.client.Del(ctx, tokenKey(token)).Err()
}

func tokenKey(token string) string {
	return "graphrag:session:" + token
}
