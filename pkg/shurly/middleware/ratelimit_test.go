package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func setupTestRouter(limiter *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/login", limiter.Middleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func post(router *gin.Engine, ip string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("POST", "/login", nil)
	req.RemoteAddr = ip + ":12345"
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestRateLimiterAllowsBurst(t *testing.T) {
	router := setupTestRouter(NewRateLimiter(5))

	for i := 0; i < 5; i++ {
		if resp := post(router, "192.0.2.1"); resp.Code != http.StatusOK {
			t.Fatalf("Request %d: expected status 200, got %d", i+1, resp.Code)
		}
	}

	if resp := post(router, "192.0.2.1"); resp.Code != http.StatusTooManyRequests {
		t.Errorf("Expected status 429 over the limit, got %d", resp.Code)
	}
}

func TestRateLimiterIsPerIP(t *testing.T) {
	router := setupTestRouter(NewRateLimiter(1))

	if resp := post(router, "192.0.2.1"); resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}
	if resp := post(router, "192.0.2.1"); resp.Code != http.StatusTooManyRequests {
		t.Errorf("Expected status 429 for exhausted IP, got %d", resp.Code)
	}

	// another client is unaffected
	if resp := post(router, "192.0.2.2"); resp.Code != http.StatusOK {
		t.Errorf("Expected status 200 for fresh IP, got %d", resp.Code)
	}
}
