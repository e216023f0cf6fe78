package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter applies a token bucket per client IP.
type Limiter struct {
	limit rate.Limit
	burst int

	mu          sync.Mutex
	perIP       map[string]*visitor
	idleTTL     time.Duration
	lastCleanup time.Time
	now         func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New allows requests per window for each IP, with a burst of the same size.
func New(requests int, window time.Duration) *Limiter {
	return &Limiter{
		limit:       rate.Limit(float64(requests) / window.Seconds()),
		burst:       requests,
		perIP:       make(map[string]*visitor),
		idleTTL:     3 * window,
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

// Allow reports whether a request from ip may proceed.
func (l *Limiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	v, ok := l.perIP[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.perIP[ip] = v
	}
	v.lastSeen = now

	l.maybeCleanup(now)

	return v.limiter.AllowN(now, 1)
}

// Size returns the number of tracked IPs.
func (l *Limiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.perIP)
}

// maybeCleanup drops visitors idle for longer than idleTTL. Caller holds mu.
func (l *Limiter) maybeCleanup(now time.Time) {
	if now.Sub(l.lastCleanup) < l.idleTTL {
		return
	}
	for ip, v := range l.perIP {
		if now.Sub(v.lastSeen) > l.idleTTL {
			delete(l.perIP, ip)
		}
	}
	l.lastCleanup = now
}
