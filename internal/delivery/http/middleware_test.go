package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func corsRouter(allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(CORSMiddleware(allowedOrigins))
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return router
}

func TestCORSMiddleware(t *testing.T) {
	tests := []struct {
		name      string
		allowed   []string
		origin    string
		wantAllow string
	}{
		{
			name:      "exact origin allowed",
			allowed:   []string{"http://localhost:5173"},
			origin:    "http://localhost:5173",
			wantAllow: "http://localhost:5173",
		},
		{
			name:      "unlisted origin gets no CORS headers",
			allowed:   []string{"http://localhost:5173"},
			origin:    "https://evil.example.com",
			wantAllow: "",
		},
		{
			name:      "wildcard suffix matches dev ports",
			allowed:   []string{"http://localhost:*"},
			origin:    "http://localhost:3000",
			wantAllow: "http://localhost:3000",
		},
		{
			name:      "no origin header",
			allowed:   []string{"http://localhost:5173"},
			origin:    "",
			wantAllow: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := corsRouter(tt.allowed)

			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.wantAllow, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	router := corsRouter([]string{"http://localhost:5173"})

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestRateLimitMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RateLimitMiddleware(2))
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	// Burst of two goes through; the third is throttled.
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimitMiddleware_PerIP(t *testing.T) {
	router := gin.New()
	router.Use(RateLimitMiddleware(1))
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	require.Equal(t, http.StatusOK, send("10.0.0.1:1234"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:1234"))

	// A different client has its own bucket.
	assert.Equal(t, http.StatusOK, send("10.0.0.2:1234"))
}

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	router := gin.New()
	router.Use(RateLimitMiddleware(0))
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}
}
