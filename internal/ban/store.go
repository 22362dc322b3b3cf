// Package ban provides account suspension backed by Redis. Suspension
// records are simple key-value pairs with TTL-based expiry:
//
//	Key:   ban:<account>
//	Value: <issuer>:<reason>
//	TTL:   suspension duration
package ban

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// BanPrefix is the Redis key prefix for suspension records.
const BanPrefix = "ban:"

var (
	// ErrAlreadySuspended is returned when the account already has an active
	// suspension. The existing suspension is left untouched.
	ErrAlreadySuspended = errors.New("ban: account already suspended")

	// ErrInvalidAccount is returned for an empty account name or a
	// non-positive duration.
	ErrInvalidAccount = errors.New("ban: invalid account or duration")
)

// Store manages account suspensions in Redis.
type Store struct {
	client *redis.Client
}

// NewStore creates a new ban store using the provided Redis client.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// IsBanned checks if an account is currently suspended.
// Returns (isBanned, remainingSeconds, reason, error).
// If the account is not suspended, isBanned is false and the other
// return values are zero/empty. Redis errors are returned so callers
// can decide how to handle them.
func (s *Store) IsBanned(ctx context.Context, account string) (bool, int, string, error) {
	key := BanPrefix + account

	value, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, 0, "", nil
	}
	if err != nil {
		return false, 0, "", err
	}

	reason := value
	if _, r, ok := strings.Cut(value, ":"); ok {
		reason = r
	}

	// Key exists — get the remaining TTL.
	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		// We know the suspension exists but can't read the TTL. Report
		// banned with 0 remaining rather than swallowing it.
		return true, 0, reason, nil
	}

	remaining := 0
	if ttl > 0 {
		remaining = int(ttl.Seconds())
	}

	return true, remaining, reason, nil
}

// SuspendAccount suspends account for d. It fails with ErrAlreadySuspended
// when a suspension is already active; the existing one is not extended.
func (s *Store) SuspendAccount(ctx context.Context, account string, d time.Duration, reason, issuer string) error {
	if account == "" || d <= 0 {
		return ErrInvalidAccount
	}

	key := BanPrefix + account
	ok, err := s.client.SetNX(ctx, key, issuer+":"+reason, d).Result()
	if err != nil {
		return fmt.Errorf("ban: suspend %s: %w", account, err)
	}
	if !ok {
		return ErrAlreadySuspended
	}
	return nil
}

// Unban removes a suspension from an account immediately.
func (s *Store) Unban(ctx context.Context, account string) error {
	key := BanPrefix + account
	return s.client.Del(ctx, key).Err()
}
