package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(t *testing.T, limit int, window time.Duration) (*RateLimiter, *clock) {
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(limit, window)
	rl.now = c.now
	t.Cleanup(rl.Stop)
	return rl, c
}

func TestRateLimiter_Allow(t *testing.T) {
	rl, _ := newTestLimiter(t, 3, time.Second)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("192.168.1.1"), "request %d", i+1)
	}
	assert.False(t, rl.Allow("192.168.1.1"))
	assert.True(t, rl.Allow("192.168.1.2"), "other hosts keep their own budget")
}

func TestRateLimiter_WindowExpiration(t *testing.T) {
	rl, c := newTestLimiter(t, 2, 500*time.Millisecond)

	rl.Allow("192.168.1.1")
	rl.Allow("192.168.1.1")
	assert.False(t, rl.Allow("192.168.1.1"))

	c.advance(600 * time.Millisecond)
	assert.True(t, rl.Allow("192.168.1.1"))
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl, c := newTestLimiter(t, 5, 100*time.Millisecond)

	rl.Allow("192.168.1.1")
	rl.Allow("192.168.1.2")
	rl.Allow("192.168.1.3")
	assert.Len(t, rl.requests, 3)

	c.advance(150 * time.Millisecond)
	rl.cleanup()
	assert.Empty(t, rl.requests)
}

func TestRateLimiter_ConcurrentAccess(t *testing.T) {
	rl, _ := newTestLimiter(t, 10, time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 3; j++ {
				rl.Allow("192.168.1.1")
			}
		}()
	}
	wg.Wait()

	assert.False(t, rl.Allow("192.168.1.1"))
	assert.Len(t, rl.requests["192.168.1.1"], 10)
}

func TestRateLimitMiddlewareKeysByHost(t *testing.T) {
	rl, _ := newTestLimiter(t, 1, time.Minute)
	h := RateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(remote string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/caches/flush", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, send("10.0.0.1:5000"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:5001"), "new port, same host")
	assert.Equal(t, http.StatusNoContent, send("10.0.0.2:5000"))
}
