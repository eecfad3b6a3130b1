package utils

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistPrefix = "jwt:blacklist:"

// TokenBlacklist remembers revoked session tokens until they expire.
// Redis is preferred so revocation holds across instances; without it entries live in memory.
type TokenBlacklist struct {
	rc  *redis.Client
	mu  sync.Mutex
	mem map[string]time.Time
	now func() time.Time
}

func NewTokenBlacklist(rc *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{rc: rc, mem: map[string]time.Time{}, now: time.Now}
}

// Revoke blacklists token until expiresAt. Already expired tokens are ignored.
func (b *TokenBlacklist) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(b.now())
	if ttl <= 0 {
		return nil
	}
	if b.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return b.rc.Set(ctx, blacklistPrefix+token, "1", ttl).Err()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sweepLocked()
	b.mem[token] = expiresAt
	return nil
}

// IsRevoked reports whether token was revoked before its natural expiry.
// A Redis error fails open so an outage does not lock every admin out.
func (b *TokenBlacklist) IsRevoked(ctx context.Context, token string) bool {
	if b.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		n, err := b.rc.Exists(ctx, blacklistPrefix+token).Result()
		if err != nil {
			Sugar.Warnf("blacklist lookup failed: %v", err)
			return false
		}
		return n > 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	exp, ok := b.mem[token]
	if !ok {
		return false
	}
	if !b.now().Before(exp) {
		delete(b.mem, token)
		return false
	}
	return true
}

func (b *TokenBlacklist) sweepLocked() {
	now := b.now()
	for k, exp := range b.mem {
		if !now.Before(exp) {
			delete(b.mem, k)
		}
	}
}
