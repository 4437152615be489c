package middleware

import (
	"testing"
	"time"
)

func TestRateLimiterBlocksBurst(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	limiter := rl.GetLimiter("10.0.0.1")

	if !limiter.Allow() || !limiter.Allow() {
		t.Fatal("burst within the limit must pass")
	}
	if limiter.Allow() {
		t.Fatal("third request in the window must be rejected")
	}
}

func TestRateLimiterTracksIPsSeparately(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)

	if !rl.GetLimiter("10.0.0.1").Allow() {
		t.Fatal("first request must pass")
	}
	if !rl.GetLimiter("10.0.0.2").Allow() {
		t.Fatal("another IP must get its own bucket")
	}
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	rl := NewRateLimiter(10, time.Minute)
	rl.GetLimiter("10.0.0.1")
	rl.GetLimiter("10.0.0.2")

	rl.mu.Lock()
	rl.clients["10.0.0.1"].lastSeen = time.Now().Add(-time.Hour)
	rl.mu.Unlock()

	rl.evictIdle(30 * time.Minute)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.clients["10.0.0.1"]; ok {
		t.Fatal("idle client must be evicted")
	}
	if _, ok := rl.clients["10.0.0.2"]; !ok {
		t.Fatal("active client must survive the sweep")
	}
}
