// Package redisstore keeps each user's current refresh token in Redis. Only
// the SHA-256 digest of the token is stored.
package redisstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrRedisUnavailable = errors.New("redis unavailable")

const (
	swapStatusMismatch int64 = 0
	swapStatusRotated  int64 = 1
)

// KEYS[1] refresh key, ARGV[1] presented digest, ARGV[2] next digest,
// ARGV[3] ttl in milliseconds (0 keeps no expiry).
const swapScript = `
local current = redis.call("GET", KEYS[1])
if not current or current ~= ARGV[1] then
  return 0
end
local ttl = tonumber(ARGV[3])
if ttl > 0 then
  redis.call("SET", KEYS[1], ARGV[2], "PX", ttl)
else
  redis.call("SET", KEYS[1], ARGV[2])
end
return 1
`

var swapLua = redis.NewScript(swapScript)

type Store struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// New returns a store whose keys live under prefix and expire after ttl. A
// zero ttl keeps tokens until they are replaced or cleared.
func New(client redis.UniversalClient, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = "streamhub"
	}
	return &Store{redis: client, prefix: prefix, ttl: ttl}
}

func (s *Store) key(userID uuid.UUID) string {
	return s.prefix + ":refresh:" + userID.String()
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *Store) SetRefreshToken(ctx context.Context, userID uuid.UUID, token string) error {
	if err := s.redis.Set(ctx, s.key(userID), digest(token), s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *Store) SwapRefreshToken(ctx context.Context, userID uuid.UUID, prev, next string) (bool, error) {
	code, err := swapLua.Run(
		ctx,
		s.redis,
		[]string{s.key(userID)},
		digest(prev),
		digest(next),
		s.ttl.Milliseconds(),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	switch code {
	case swapStatusRotated:
		return true, nil
	case swapStatusMismatch:
		return false, nil
	default:
		return false, fmt.Errorf("%w: unknown swap script status %d", ErrRedisUnavailable, code)
	}
}

func (s *Store) ClearRefreshToken(ctx context.Context, userID uuid.UUID) error {
	if err := s.redis.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Ping reports whether the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
