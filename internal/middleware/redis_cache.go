package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ErrCacheMiss is returned by a ResponseCache that has no entry for a key
var ErrCacheMiss = errors.New("cache miss")

// ResponseCache stores serialized responses by key
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisStore adapts a redis client to ResponseCache
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis backed response cache
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get implements ResponseCache
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return b, err
}

// Set implements ResponseCache
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// CacheConfig holds configuration for the cache middleware
type CacheConfig struct {
	Enabled         bool
	DefaultDuration time.Duration
	PrefixKey       string
}

// RedisCache creates middleware for caching successful JSON GET responses.
// Cache failures never fail the request.
func RedisCache(cache ResponseCache, config CacheConfig, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !config.Enabled || cache == nil || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		cacheKey := generateCacheKey(c.Request.URL, config.PrefixKey)

		cachedResponse, err := cache.Get(ctx, cacheKey)
		if err == nil {
			logger.Debug("Cache hit",
				zap.String("path", c.Request.URL.Path),
				zap.String("cache_key", cacheKey))

			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "application/json; charset=utf-8", cachedResponse)
			c.Abort()
			return
		}
		if !errors.Is(err, ErrCacheMiss) {
			logger.Warn("Cache lookup failed", zap.Error(err), zap.String("cache_key", cacheKey))
		}

		writer := &responseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = writer
		c.Header("X-Cache", "MISS")

		c.Next()

		if writer.Status() != http.StatusOK {
			return
		}
		if err := cache.Set(ctx, cacheKey, writer.body.Bytes(), config.DefaultDuration); err != nil {
			logger.Error("Failed to set cache",
				zap.Error(err),
				zap.String("cache_key", cacheKey))
			return
		}
		logger.Debug("Cache set",
			zap.String("path", c.Request.URL.Path),
			zap.String("cache_key", cacheKey),
			zap.Duration("duration", config.DefaultDuration))
	}
}

// responseWriter captures the response body for caching
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

// Write captures the response for caching
func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// WriteString captures the response for caching
func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// generateCacheKey hashes the path and the canonically ordered query
func generateCacheKey(u *url.URL, prefix string) string {
	hash := sha256.New()
	io.WriteString(hash, u.Path)
	if query := u.Query().Encode(); query != "" {
		io.WriteString(hash, "?"+query)
	}
	return prefix + hex.EncodeToString(hash.Sum(nil))
}
