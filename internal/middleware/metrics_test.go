package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := NewHTTPMetrics("test")

	router := gin.New()
	router.Use(metrics.Middleware())
	router.GET("/api/items/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	for _, path := range []string{"/api/items/1", "/api/items/2", "/missing"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.requests.WithLabelValues(http.MethodGet, "/api/items/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues(http.MethodGet, "unmatched", "404")))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "test_http_request_duration_seconds"))
}
