package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestWindowLimiter_ResetsAfterSpan(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := newWindowLimiter("test", 2, time.Minute)
	l.now = func() time.Time { return now }

	ok, _ := l.allow("1.2.3.4")
	assert.True(t, ok)
	ok, _ = l.allow("1.2.3.4")
	assert.True(t, ok)
	ok, reopens := l.allow("1.2.3.4")
	assert.False(t, ok)
	assert.Equal(t, now.Add(time.Minute), reopens)

	ok, _ = l.allow("5.6.7.8")
	assert.True(t, ok, "keys are independent")

	now = now.Add(61 * time.Second)
	assert.Equal(t, 2, l.purge())
	ok, _ = l.allow("1.2.3.4")
	assert.True(t, ok)
}

func TestRateLimiter_Returns429(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", RateLimiter(1, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		return w
	}
	assert.Equal(t, http.StatusOK, hit().Code)
	w := hit()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate_limited")
}
