package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/abduss/cloudbin/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func newTestLimiter(t *testing.T, limit int, window time.Duration) (*Limiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := New(context.Background(), limit, window)
	l.nowFunc = clock.Now
	t.Cleanup(l.Stop)
	return l, clock
}

func TestAllowSpendsBudgetPerKey(t *testing.T) {
	l, _ := newTestLimiter(t, 3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("a"), "request %d", i)
	}
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "keys are independent")
}

func TestAllowRefillsOverWindow(t *testing.T) {
	l, clock := newTestLimiter(t, 2, time.Minute)

	require.True(t, l.Allow("a"))
	require.True(t, l.Allow("a"))
	require.False(t, l.Allow("a"))

	clock.now = clock.now.Add(30 * time.Second)
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	clock.now = clock.now.Add(time.Minute)
	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
}

func TestSweepDropsIdleKeys(t *testing.T) {
	l, clock := newTestLimiter(t, 2, time.Minute)

	l.Allow("old")
	clock.now = clock.now.Add(45 * time.Second)
	l.Allow("fresh")
	require.Equal(t, 2, l.Len())

	clock.now = clock.now.Add(30 * time.Second)
	l.Sweep()
	assert.Equal(t, 1, l.Len())
}

func TestStopIsPrompt(t *testing.T) {
	l := New(context.Background(), 1, time.Hour)

	done := make(chan struct{})
	go func() {
		l.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestMiddlewareRejectsWith429(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics.InitMetrics()
	l, _ := newTestLimiter(t, 1, time.Minute)

	r := gin.New()
	r.Use(l.Middleware("drive"))
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/x", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/x", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "60", second.Header().Get("Retry-After"))
	assert.Contains(t, second.Body.String(), "too many requests")
}
