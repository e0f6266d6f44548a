package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stepClock struct{ t time.Time }

func (c *stepClock) now() time.Time { return c.t }

func newTestLimiter(rpm, burst int) (*Limiter, *stepClock) {
	clock := &stepClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	return newLimiter(Config{RequestsPerMinute: rpm, BurstSize: burst, IdleTTL: time.Minute}, clock.now), clock
}

func TestLimiter_BurstThenRefill(t *testing.T) {
	l, clock := newTestLimiter(60, 5)

	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow("ip"), "request %d within burst", i)
	}
	assert.False(t, l.Allow("ip"))

	clock.t = clock.t.Add(time.Second)
	assert.True(t, l.Allow("ip"))
	assert.False(t, l.Allow("ip"))
}

func TestLimiter_RefillCappedAtBurst(t *testing.T) {
	l, clock := newTestLimiter(60, 3)
	assert.True(t, l.Allow("ip"))

	clock.t = clock.t.Add(time.Hour)
	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("ip"))
	}
	assert.False(t, l.Allow("ip"))
}

func TestLimiter_KeysIndependent(t *testing.T) {
	l, _ := newTestLimiter(60, 1)
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
}

func TestLimiter_EvictIdle(t *testing.T) {
	l, clock := newTestLimiter(60, 1)
	l.Allow("a")
	clock.t = clock.t.Add(30 * time.Second)
	l.Allow("b")
	clock.t = clock.t.Add(45 * time.Second)

	assert.Equal(t, 1, l.evictIdle())
	assert.Len(t, l.buckets, 1)
}

func TestLimiter_StopTwice(t *testing.T) {
	l := New(DefaultConfig())
	l.Stop()
	l.Stop()
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l, _ := newTestLimiter(60, 1)

	r := gin.New()
	r.Use(l.Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")
}
