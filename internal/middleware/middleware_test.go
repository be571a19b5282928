package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/kronos/internal/config"
	"github.com/iliyamo/kronos/internal/middleware"
	"github.com/iliyamo/kronos/internal/testutil"
	"github.com/iliyamo/kronos/internal/utils"
)

// whoami echoes the identity JWTAuth stored on the context.
func whoami(c echo.Context) error {
	id, ok := middleware.UserID(c)
	if !ok {
		return c.String(http.StatusTeapot, "anonymous")
	}
	return c.String(http.StatusOK, strconv.FormatUint(id, 10)+":"+middleware.Role(c))
}

func bearer(t *testing.T, id uint64, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(testutil.TestJWTSecret, id, role, 5)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	return "Bearer " + tok.Token
}

func serve(e *echo.Echo, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/me", whoami, middleware.JWTAuth(testutil.TestJWTSecret))

	other, _ := utils.NewAccessToken("another-secret", 7, middleware.RoleUser, 5)

	tests := []struct {
		name     string
		auth     string
		wantCode int
		wantBody string
	}{
		{"no header", "", http.StatusUnauthorized, "missing bearer token"},
		{"basic auth", "Basic Ym9iOnB3", http.StatusUnauthorized, "missing bearer token"},
		{"garbage token", "Bearer xyz", http.StatusUnauthorized, "invalid token"},
		{"foreign secret", "Bearer " + other.Token, http.StatusUnauthorized, "invalid token"},
		{"valid", bearer(t, 7, middleware.RoleUser), http.StatusOK, "7:USER"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(e, http.MethodGet, "/me", tt.auth)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want it to contain %q", rec.Body, tt.wantBody)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	e.GET("/admin", whoami, middleware.JWTAuth(testutil.TestJWTSecret), middleware.RequireRole(middleware.RoleAdmin))

	if rec := serve(e, http.MethodGet, "/admin", bearer(t, 1, middleware.RoleUser)); rec.Code != http.StatusForbidden {
		t.Errorf("USER status = %d, want 403", rec.Code)
	}
	if rec := serve(e, http.MethodGet, "/admin", bearer(t, 1, middleware.RoleAdmin)); rec.Code != http.StatusOK {
		t.Errorf("ADMIN status = %d, want 200", rec.Code)
	}
}

func TestUserIDWithoutAuth(t *testing.T) {
	e := echo.New()
	e.GET("/me", whoami)
	if rec := serve(e, http.MethodGet, "/me", ""); rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want anonymous 418", rec.Code)
	}
}

// unreachableRedis points at a port nothing listens on.
func unreachableRedis(t *testing.T) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRedisMiddlewarePassThrough(t *testing.T) {
	cacheCfg := config.CacheConfig{Enabled: true, TTL: time.Minute, KeyStrategy: "route_query", Prefix: "t:cache"}
	rateCfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute, KeyStrategy: "ip", Prefix: "t:rl"}
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }

	tests := []struct {
		name      string
		mw        echo.MiddlewareFunc
		wantCache string
	}{
		{"cache without client", middleware.NewRedisCache(cacheCfg, nil), ""},
		{"cache disabled", middleware.NewRedisCache(config.CacheConfig{}, unreachableRedis(t)), ""},
		{"cache redis down", middleware.NewRedisCache(cacheCfg, unreachableRedis(t)), "MISS"},
		{"ratelimit without client", middleware.NewTokenBucket(rateCfg, nil), ""},
		{"ratelimit redis down", middleware.NewTokenBucket(rateCfg, unreachableRedis(t)), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.GET("/x", ok, tt.mw)
			// Twice, so a capacity-1 bucket would have rejected the second.
			for i := 0; i < 2; i++ {
				rec := serve(e, http.MethodGet, "/x", "")
				if rec.Code != http.StatusOK {
					t.Fatalf("request %d status = %d, want 200", i, rec.Code)
				}
				if got := rec.Header().Get("X-Cache"); got != tt.wantCache {
					t.Errorf("X-Cache = %q, want %q", got, tt.wantCache)
				}
			}
		})
	}
}

func TestRequestLoggerKeepsStatus(t *testing.T) {
	e := echo.New()
	e.Use(middleware.RequestLogger())
	e.GET("/fail", func(c echo.Context) error { return echo.NewHTTPError(http.StatusBadGateway, "upstream") })
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	if rec := serve(e, http.MethodGet, "/fail", ""); rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
	if rec := serve(e, http.MethodGet, "/ok", ""); rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
}
