package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(r *gin.Engine, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	getErr  error
	sets    int
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	b, ok := m.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return b, nil
}

func (m *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = append([]byte(nil), value...)
	m.sets++
	return nil
}

func TestRedisCache(t *testing.T) {
	cache := &memoryCache{entries: map[string][]byte{}}
	calls := 0

	r := gin.New()
	r.Use(RedisCache(cache, CacheConfig{Enabled: true, DefaultDuration: time.Minute, PrefixKey: "test:"}, zap.NewNop()))
	r.GET("/api/index-compare", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"success": true, "calls": calls})
	})
	r.GET("/fail", func(c *gin.Context) {
		c.JSON(http.StatusBadGateway, gin.H{"success": false})
	})

	first := perform(r, http.MethodGet, "/api/index-compare?b=2&a=1", nil)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := perform(r, http.MethodGet, "/api/index-compare?a=1&b=2", nil)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls)

	perform(r, http.MethodGet, "/api/index-compare?a=2", nil)
	assert.Equal(t, 2, calls)

	perform(r, http.MethodGet, "/fail", nil)
	assert.Equal(t, 2, cache.sets, "non-200 responses are not cached")
}

func TestRedisCacheToleratesBackendErrors(t *testing.T) {
	cache := &memoryCache{entries: map[string][]byte{}, getErr: errors.New("connection refused")}

	r := gin.New()
	r.Use(RedisCache(cache, CacheConfig{Enabled: true, PrefixKey: "test:"}, zap.NewNop()))
	r.GET("/x", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	w := perform(r, http.MethodGet, "/x", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(60, 2))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/x", nil).Code)
	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/x", nil).Code)
	limited := perform(r, http.MethodGet, "/x", nil)
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.JSONEq(t, `{"success":false,"message":"Rate limit exceeded. Try again later."}`, limited.Body.String())
}

func TestRateLimiterPerClientAndRefill(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(60, 1)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow("1.1.1.1"))
	assert.False(t, limiter.Allow("1.1.1.1"))
	assert.True(t, limiter.Allow("2.2.2.2"))

	now = now.Add(time.Second)
	assert.True(t, limiter.Allow("1.1.1.1"))

	now = now.Add(time.Hour)
	limiter.Allow("3.3.3.3")
	assert.Len(t, limiter.clients, 1)
}

func TestRateLimitDisabled(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(0, 0))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/x", nil).Code)
	}
}

func signedToken(t *testing.T, secret string, method jwt.SigningMethod, expires time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(method, jwt.RegisteredClaims{
		Subject:   "analyst",
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestJWTAuth(t *testing.T) {
	r := gin.New()
	r.Use(JWTAuth("s3cret", zap.NewNop()))
	r.GET("/x", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(SubjectKey))
	})

	valid := signedToken(t, "s3cret", jwt.SigningMethodHS256, time.Now().Add(time.Hour))
	expired := signedToken(t, "s3cret", jwt.SigningMethodHS256, time.Now().Add(-time.Hour))
	wrongKey := signedToken(t, "other", jwt.SigningMethodHS256, time.Now().Add(time.Hour))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "valid", header: "Bearer " + valid, status: http.StatusOK},
		{name: "missing", header: "", status: http.StatusUnauthorized},
		{name: "no bearer prefix", header: valid, status: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + expired, status: http.StatusUnauthorized},
		{name: "wrong key", header: "Bearer " + wrongKey, status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.header != "" {
				header.Set("Authorization", tt.header)
			}
			w := perform(r, http.MethodGet, "/x", header)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "analyst", w.Body.String())
			}
		})
	}
}

func TestJWTAuthDisabled(t *testing.T) {
	r := gin.New()
	r.Use(JWTAuth("", zap.NewNop()))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/x", nil).Code)
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := perform(r, http.MethodOptions, "/x", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
