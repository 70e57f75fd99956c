package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"parkcore/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// window counts hits for one client key until end.
type window struct {
	hits int
	end  time.Time
}

// windowLimiter is a fixed-window counter keyed by client IP.
type windowLimiter struct {
	name  string
	limit int
	span  time.Duration
	now   func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

func newWindowLimiter(name string, limit int, span time.Duration) *windowLimiter {
	return &windowLimiter{name: name, limit: limit, span: span, now: time.Now, windows: make(map[string]*window)}
}

// allow records a hit for key. When the limit is exceeded it returns false and
// the time the window reopens.
func (l *windowLimiter) allow(key string) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.After(w.end) {
		w = &window{end: now.Add(l.span)}
		l.windows[key] = w
	}
	w.hits++
	return w.hits <= l.limit, w.end
}

// purge drops expired windows and returns how many were removed.
func (l *windowLimiter) purge() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	n := 0
	for k, w := range l.windows {
		if now.After(w.end) {
			delete(l.windows, k)
			n++
		}
	}
	return n
}

func (l *windowLimiter) handler(detail string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, reopens := l.allow(c.ClientIP())
		if !ok {
			secs := int(time.Until(reopens).Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, &apierror.APIError{Detail: detail, Code: "rate_limited"})
			return
		}
		c.Next()
	}
}

var (
	limitersMu sync.Mutex
	limiters   []*windowLimiter
	purgeOnce  sync.Once
)

func register(l *windowLimiter) *windowLimiter {
	limitersMu.Lock()
	limiters = append(limiters, l)
	limitersMu.Unlock()
	purgeOnce.Do(func() { go purgeLoop(5 * time.Minute) })
	return l
}

// purgeLoop keeps the per-IP maps from growing with clients that never return.
func purgeLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for range ticker.C {
		limitersMu.Lock()
		for _, l := range limiters {
			if n := l.purge(); n > 0 {
				log.Debug().Str("limiter", l.name).Int("purged", n).Msg("rate limiter windows purged")
			}
		}
		limitersMu.Unlock()
	}
}

// LoginRateLimiter allows 20 login attempts per minute per IP.
func LoginRateLimiter() gin.HandlerFunc {
	return register(newWindowLimiter("login", 20, time.Minute)).
		handler("too many login attempts, retry in a minute")
}

// RateLimiter allows limit requests per window per IP.
func RateLimiter(limit int, span time.Duration) gin.HandlerFunc {
	return register(newWindowLimiter("api", limit, span)).handler("too many requests")
}
