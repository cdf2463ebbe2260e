// Copyright (C) 2025 Dyne.org foundation
// designed, written and maintained by Denis Roio <jaromil@dyne.org>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package tools

import (
	"fmt"
	"sync"
	"time"
)

// RateLimitConfig configures rate limits and cooldowns for tools.
type RateLimitConfig struct {
	DefaultPerMinute int
	PerTool          map[string]int
	Cooldowns        map[string]time.Duration
}

// DefaultRateLimitConfig returns the default rate limiting configuration.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		DefaultPerMinute: 120,
		PerTool: map[string]int{
			"write_file": 30,
		},
		Cooldowns: map[string]time.Duration{},
	}
}

func (c RateLimitConfig) limitFor(name string) (int, time.Duration) {
	rate := c.DefaultPerMinute
	if c.PerTool != nil {
		if perTool, ok := c.PerTool[name]; ok {
			rate = perTool
		}
	}
	var cooldown time.Duration
	if c.Cooldowns != nil {
		cooldown = c.Cooldowns[name]
	}
	return rate, cooldown
}

// toolRateLimiter is a token bucket refilled on demand, so no goroutine
// outlives the registry.
type toolRateLimiter struct {
	mu          sync.Mutex
	now         func() time.Time
	capacity    float64
	tokens      float64
	interval    time.Duration
	last        time.Time
	cooldown    time.Duration
	nextAllowed time.Time
}

func newToolRateLimiter(ratePerMinute int, cooldown time.Duration, now func() time.Time) *toolRateLimiter {
	if ratePerMinute <= 0 && cooldown <= 0 {
		return nil
	}
	if now == nil {
		now = time.Now
	}

	rl := &toolRateLimiter{
		now:      now,
		cooldown: cooldown,
		last:     now(),
	}
	if ratePerMinute > 0 {
		rl.capacity = float64(ratePerMinute)
		rl.tokens = rl.capacity
		rl.interval = time.Minute / time.Duration(ratePerMinute)
		if rl.interval <= 0 {
			rl.interval = time.Millisecond
		}
	}
	return rl
}

func (r *toolRateLimiter) Allow() error {
	if r == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if !r.nextAllowed.IsZero() && now.Before(r.nextAllowed) {
		return fmt.Errorf("%w: retry after %s", ErrToolInCooldown, r.nextAllowed.Sub(now).Round(time.Second))
	}

	if r.capacity > 0 {
		if elapsed := now.Sub(r.last); elapsed > 0 {
			r.tokens += float64(elapsed) / float64(r.interval)
			if r.tokens > r.capacity {
				r.tokens = r.capacity
			}
		}
		r.last = now
		if r.tokens < 1 {
			return ErrToolRateLimited
		}
		r.tokens--
	}

	if r.cooldown > 0 {
		r.nextAllowed = now.Add(r.cooldown)
	}

	return nil
}
