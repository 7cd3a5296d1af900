package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/abduss/cloudbin/internal/metrics"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const defaultSweepInterval = time.Minute

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter is an in-memory token bucket per key. A key may spend limit
// requests at once and regains one every window/limit. Keys idle for a full
// window are swept. State is per process and lost on restart.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	limit   int
	window  time.Duration
	every   rate.Limit
	nowFunc func() time.Time

	cancel  context.CancelFunc
	stopped chan struct{}
}

// New creates a Limiter and starts its sweeper. Call Stop to release it.
func New(ctx context.Context, limit int, window time.Duration) *Limiter {
	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}

	sweepCtx, cancel := context.WithCancel(ctx)
	l := &Limiter{
		entries: make(map[string]*entry),
		limit:   limit,
		window:  window,
		every:   rate.Every(window / time.Duration(limit)),
		nowFunc: time.Now,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}

	interval := window
	if interval > defaultSweepInterval {
		interval = defaultSweepInterval
	}
	go l.sweepLoop(sweepCtx, interval)
	return l
}

// Allow reports whether a request for key may proceed, spending one token if so.
func (l *Limiter) Allow(key string) bool {
	now := l.nowFunc()

	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.every, l.limit)}
		l.entries[key] = e
	}
	e.lastSeen = now
	l.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}

// Limit returns the burst size, i.e. the request budget per window.
func (l *Limiter) Limit() int {
	return l.limit
}

// RetryAfter is the time until one more token is available for a drained key.
func (l *Limiter) RetryAfter() time.Duration {
	return l.window / time.Duration(l.limit)
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Sweep drops keys not seen for at least one window.
func (l *Limiter) Sweep() {
	cutoff := l.nowFunc().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, e := range l.entries {
		if e.lastSeen.Before(cutoff) {
			delete(l.entries, key)
		}
	}
}

// Stop terminates the sweeper and waits for it to exit.
func (l *Limiter) Stop() {
	l.cancel()
	<-l.stopped
}

func (l *Limiter) sweepLoop(ctx context.Context, interval time.Duration) {
	defer close(l.stopped)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

// Reject writes the 429 response used by every limited endpoint.
func (l *Limiter) Reject(c *gin.Context, scope string) {
	metrics.ObserveRateLimited(scope)
	seconds := int(l.RetryAfter().Round(time.Second) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	c.Header("Retry-After", strconv.Itoa(seconds))
	c.Header("X-RateLimit-Limit", strconv.Itoa(l.limit))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, try again later"})
}

// Middleware limits requests by client IP.
func (l *Limiter) Middleware(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(scope + "|" + c.ClientIP()) {
			l.Reject(c, scope)
			return
		}
		c.Next()
	}
}
