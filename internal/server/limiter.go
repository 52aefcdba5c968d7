package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// rateLimiter throttles room creation per remote address.
type rateLimiter struct {
	mu       sync.Mutex
	perIP    map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	lastSeen map[string]time.Time
}

func newRateLimiter(perMinute int) *rateLimiter {
	if perMinute <= 0 {
		perMinute = 6
	}
	return &rateLimiter{
		perIP:    make(map[string]*rate.Limiter),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		lastSeen: make(map[string]time.Time),
	}
}

func (l *rateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	limiter, ok := l.perIP[ip]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.perIP[ip] = limiter
	}
	l.lastSeen[ip] = time.Now()
	l.evictStale()
	return limiter.Allow()
}

func (l *rateLimiter) evictStale() {
	cutoff := time.Now().Add(-time.Hour)
	for ip, seen := range l.lastSeen {
		if seen.Before(cutoff) {
			delete(l.perIP, ip)
			delete(l.lastSeen, ip)
		}
	}
}
