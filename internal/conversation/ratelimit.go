package conversation

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// rateLimiterSize bounds how many users' last-accept times are remembered.
// An evicted user is simply treated as new.
const rateLimiterSize = 4096

// RateLimiter drops input arriving within cooldown of the previous accepted
// input from the same user.
type RateLimiter struct {
	mu       sync.Mutex
	cooldown time.Duration
	last     *lru.Cache[int64, time.Time]
}

func NewRateLimiter(cooldown time.Duration) (*RateLimiter, error) {
	cache, err := lru.New[int64, time.Time](rateLimiterSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limiter cache: %w", err)
	}
	return &RateLimiter{cooldown: cooldown, last: cache}, nil
}

// Allow reports whether input from userID at now should be processed and,
// if so, records it. A user's first input is always allowed.
func (r *RateLimiter) Allow(userID int64, now time.Time) bool {
	if r.cooldown <= 0 {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if last, ok := r.last.Get(userID); ok && now.Sub(last) < r.cooldown {
		return false
	}
	r.last.Add(userID, now)
	return true
}
