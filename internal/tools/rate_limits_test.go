package tools

import (
	"errors"
	"testing"
	"time"
)

func TestRateLimiterDisabled(t *testing.T) {
	if rl := newToolRateLimiter(0, 0, nil); rl != nil {
		t.Fatal("expected no limiter without rate or cooldown")
	}
	var rl *toolRateLimiter
	if err := rl.Allow(); err != nil {
		t.Fatalf("nil limiter must allow, got %v", err)
	}
}

func TestRateLimiterCooldown(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := newToolRateLimiter(0, 2*time.Second, func() time.Time { return now })

	if err := rl.Allow(); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if err := rl.Allow(); !errors.Is(err, ErrToolInCooldown) {
		t.Fatalf("expected cooldown, got %v", err)
	}
	now = now.Add(2 * time.Second)
	if err := rl.Allow(); err != nil {
		t.Fatalf("expected cooldown to expire, got %v", err)
	}
}

func TestRateLimiterRefillIsCapped(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := newToolRateLimiter(3, 0, func() time.Time { return now })

	now = now.Add(time.Hour)
	for i := 0; i < 3; i++ {
		if err := rl.Allow(); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if err := rl.Allow(); !errors.Is(err, ErrToolRateLimited) {
		t.Fatalf("expected burst to be capped at 3, got %v", err)
	}
}
