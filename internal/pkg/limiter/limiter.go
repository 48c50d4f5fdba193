/*
Package limiter throttles the view server's mutation routes.

Likes, follows and comments are optimistic: a burst of clicks turns into a burst
of in-flight requests. A token bucket (rate.Limiter) per client key bounds that
burst. A background goroutine drops idle buckets.
*/
package limiter

import (
	"net"
	"net/http"
	"sync"
	"time"

	"blogclient/internal/pkg/errs"
	"blogclient/internal/pkg/logx"
	"blogclient/internal/pkg/resp"

	"golang.org/x/time/rate"
)

// KeyFunc derives the bucket key of a request.
type KeyFunc func(r *http.Request) string

// ClientIP keys requests by remote address (chi's RealIP runs first).
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}

	if ip == "" {
		ip = "unknown_ip"
	}

	return ip
}

// KeyedLimiter holds one token bucket per key.
type KeyedLimiter struct {
	mu     sync.RWMutex
	limits map[string]*rate.Limiter
	r      rate.Limit
	b      int
	key    KeyFunc
	stop   chan struct{}
	once   sync.Once
}

// New creates a KeyedLimiter allowing r events per second with bursts of b,
// and starts its cleanup goroutine. A nil key defaults to ClientIP.
func New(r rate.Limit, b int, key KeyFunc) *KeyedLimiter {
	if key == nil {
		key = ClientIP
	}

	l := &KeyedLimiter{
		limits: make(map[string]*rate.Limiter),
		r:      r,
		b:      b,
		key:    key,
		stop:   make(chan struct{}),
	}

	go l.cleanUpIdle(3 * time.Minute)

	return l
}

// Allow consumes a token from the bucket of key.
func (l *KeyedLimiter) Allow(key string) bool {
	return l.get(key).Allow()
}

// get returns the bucket of key, creating it under double-checked locking.
func (l *KeyedLimiter) get(key string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limits[key]
	l.mu.RUnlock()

	if !exists {
		l.mu.Lock()
		limiter, exists = l.limits[key]
		if !exists {
			limiter = rate.NewLimiter(l.r, l.b)
			l.limits[key] = limiter
		}
		l.mu.Unlock()
	}

	return limiter
}

// Stop ends the cleanup goroutine. Safe to call more than once.
func (l *KeyedLimiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

// cleanUpIdle drops buckets that have refilled completely.
func (l *KeyedLimiter) cleanUpIdle(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
		}

		l.mu.Lock()
		removed := 0
		for key, limiter := range l.limits {
			if limiter.TokensAt(time.Now()) >= float64(limiter.Burst()) {
				delete(l.limits, key)
				removed++
			}
		}
		remaining := len(l.limits)
		l.mu.Unlock()

		logx.Debug("Rate limiter cleanup finished", "removed", removed, "remaining", remaining)
	}
}

// Middleware answers 429 with ErrRateLimitExceeded once a key's bucket is empty.
func (l *KeyedLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(l.key(r)) {
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		next.ServeHTTP(w, r)
	})
}
