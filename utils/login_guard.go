package utils

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	loginMaxFailures = 5
	loginFailWindow  = 15 * time.Minute
	loginBanDuration = 30 * time.Minute
)

// LoginGuard locks an IP out of admin login after repeated failures.
type LoginGuard struct {
	rc  *redis.Client
	now func() time.Time

	mu    sync.Mutex
	fails map[string][]time.Time
	bans  map[string]time.Time
}

func NewLoginGuard(rc *redis.Client) *LoginGuard {
	return &LoginGuard{
		rc:    rc,
		now:   time.Now,
		fails: map[string][]time.Time{},
		bans:  map[string]time.Time{},
	}
}

func loginKey(kind, ip string) string { return "login:" + kind + ":" + ip }

// IsLocked reports whether ip is temporarily banned. Redis errors fail open.
func (g *LoginGuard) IsLocked(ctx context.Context, ip string) bool {
	if g.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		n, err := g.rc.Exists(ctx, loginKey("ban", ip)).Result()
		return err == nil && n > 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	until, ok := g.bans[ip]
	if ok && g.now().After(until) {
		delete(g.bans, ip)
		return false
	}
	return ok
}

// RecordFailure counts a failed attempt and bans ip once the limit is reached.
// It returns true when this failure triggered the ban.
func (g *LoginGuard) RecordFailure(ctx context.Context, ip string) bool {
	if g.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		key := loginKey("fail", ip)
		n, err := g.rc.Incr(ctx, key).Result()
		if err != nil {
			return false
		}
		if n == 1 {
			_ = g.rc.Expire(ctx, key, loginFailWindow).Err()
		}
		if n < loginMaxFailures {
			return false
		}
		_ = g.rc.Set(ctx, loginKey("ban", ip), "1", loginBanDuration).Err()
		_ = g.rc.Del(ctx, key).Err()
		return true
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	recent := g.fails[ip][:0]
	for _, t := range g.fails[ip] {
		if now.Sub(t) < loginFailWindow {
			recent = append(recent, t)
		}
	}
	recent = append(recent, now)
	if len(recent) < loginMaxFailures {
		g.fails[ip] = recent
		return false
	}
	delete(g.fails, ip)
	g.bans[ip] = now.Add(loginBanDuration)
	return true
}

// Reset clears the failure counter after a successful login.
func (g *LoginGuard) Reset(ctx context.Context, ip string) {
	if g.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		_ = g.rc.Del(ctx, loginKey("fail", ip)).Err()
		return
	}
	g.mu.Lock()
	delete(g.fails, ip)
	g.mu.Unlock()
}
