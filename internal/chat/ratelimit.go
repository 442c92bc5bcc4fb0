package chat

import (
	"sync"
	"time"
)

// RateLimiter implements per-user command rate limiting
type RateLimiter struct {
	mu         sync.Mutex
	userCounts map[string]*userLimit
	config     RateLimitConfig
	nextSweep  time.Time
	now        func() time.Time
}

type userLimit struct {
	count     int
	windowEnd time.Time
	lastCmd   time.Time
}

// RateLimitConfig configures rate limiting behavior
type RateLimitConfig struct {
	// MaxPerWindow is max commands per window
	MaxPerWindow int
	// WindowDuration is the sliding window size
	WindowDuration time.Duration
	// CooldownDuration is minimum time between commands
	CooldownDuration time.Duration
	// IdleTTL drops users that have been quiet this long
	IdleTTL time.Duration
}

// DefaultRateLimitConfig for chat commands
var DefaultRateLimitConfig = RateLimitConfig{
	MaxPerWindow:     5,                      // 5 commands
	WindowDuration:   5 * time.Second,        // per 5 seconds
	CooldownDuration: 500 * time.Millisecond, // 500ms between commands
	IdleTTL:          5 * time.Minute,
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultRateLimitConfig.IdleTTL
	}
	return &RateLimiter{
		userCounts: make(map[string]*userLimit),
		config:     cfg,
		now:        time.Now,
	}
}

// Allow checks if a user can execute a command
func (rl *RateLimiter) Allow(username string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.After(rl.nextSweep) {
		rl.sweep(now)
		rl.nextSweep = now.Add(time.Minute)
	}

	limit, exists := rl.userCounts[username]
	if !exists {
		rl.userCounts[username] = &userLimit{
			count:     1,
			windowEnd: now.Add(rl.config.WindowDuration),
			lastCmd:   now,
		}
		return true
	}

	// Check cooldown
	if now.Sub(limit.lastCmd) < rl.config.CooldownDuration {
		return false
	}

	// Check/reset window
	if now.After(limit.windowEnd) {
		limit.count = 1
		limit.windowEnd = now.Add(rl.config.WindowDuration)
		limit.lastCmd = now
		return true
	}

	// Check count
	if limit.count >= rl.config.MaxPerWindow {
		return false
	}

	limit.count++
	limit.lastCmd = now
	return true
}

// Users returns the number of tracked users
func (rl *RateLimiter) Users() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.userCounts)
}

// sweep removes users idle for longer than IdleTTL. Caller holds mu.
func (rl *RateLimiter) sweep(now time.Time) {
	cutoff := now.Add(-rl.config.IdleTTL)
	for key, limit := range rl.userCounts {
		if limit.lastCmd.Before(cutoff) {
			delete(rl.userCounts, key)
		}
	}
}
