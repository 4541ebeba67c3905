package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"chatline/internal/config"
	"chatline/internal/handlers"
)

func TestRateLimiting(t *testing.T) {
	cfg := &config.Config{
		ServiceName:       "chatline-test",
		RateLimitRequests: 10,
		RateLimitWindow:   "1m",
	}

	uploadH, err := handlers.NewUploadHandler(t.TempDir(), "http://localhost:8080")
	if err != nil {
		t.Fatal(err)
	}

	// Handlers stay nil where the route never executes: the JWT middleware
	// rejects /api/auth/profile before the handler runs, and the rate limiter
	// fires before that.
	handler := New(nil, nil, uploadH, http.NotFoundHandler(), cfg)

	server := httptest.NewServer(handler)
	defer server.Close()

	client := server.Client()

	for i := 0; i < 10; i++ {
		req, _ := http.NewRequest("GET", server.URL+"/api/auth/profile", nil)
		req.Header.Set("X-Forwarded-For", "192.168.1.100")
		res, err := client.Do(req)
		if err != nil {
			t.Fatalf("Failed request %d: %v", i, err)
		}
		if res.StatusCode == http.StatusTooManyRequests {
			t.Fatalf("Request %d got 429 too early", i)
		}
		res.Body.Close()
	}

	req, _ := http.NewRequest("GET", server.URL+"/api/auth/profile", nil)
	req.Header.Set("X-Forwarded-For", "192.168.1.100")
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed 11th request: %v", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusTooManyRequests {
		t.Errorf("Expected status 429 Too Many Requests, got %d", res.StatusCode)
	}
}

func TestUnauthenticatedProtectedRoute(t *testing.T) {
	cfg := &config.Config{
		ServiceName:       "chatline-test",
		JWTSecret:         "test-secret",
		RateLimitRequests: 100,
		RateLimitWindow:   "1m",
	}

	uploadH, err := handlers.NewUploadHandler(t.TempDir(), "http://localhost:8080")
	if err != nil {
		t.Fatal(err)
	}

	handler := New(nil, nil, uploadH, http.NotFoundHandler(), cfg)
	server := httptest.NewServer(handler)
	defer server.Close()

	res, err := server.Client().Get(server.URL + "/api/chat/users")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected status 401 without a token, got %d", res.StatusCode)
	}
}
