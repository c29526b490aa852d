package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/emmayusufu/googledriveclone/internal/models"
	"github.com/emmayusufu/googledriveclone/internal/ratelimit"
	"github.com/emmayusufu/googledriveclone/pkg/logger"
	"github.com/emmayusufu/googledriveclone/pkg/utils"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func setupMiddlewareTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	logger.Init()
	utils.ConfigureJWT("middleware-test-secret", 24)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite: %v", err)
	}

	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("failed automigrating: %v", err)
	}

	return db
}

func createMiddlewareTestUser(t *testing.T, db *gorm.DB, email string) (*models.User, string) {
	t.Helper()
	hash, _ := utils.HashPassword("password123")
	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         "Test User",
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating user: %v", err)
	}
	token, err := utils.GenerateToken(user)
	if err != nil {
		t.Fatalf("failed generating token: %v", err)
	}
	return user, token
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("failed decoding body: %v body=%q", err, string(raw))
	}
	return body
}

func TestRequireAuth(t *testing.T) {
	db := setupMiddlewareTestDB(t)
	auth := NewAuthMiddleware(db)
	_, token := createMiddlewareTestUser(t, db, "auth-require@test.com")

	app := fiber.New()
	app.Get("/protected", auth.RequireAuth, func(c *fiber.Ctx) error {
		user := GetCurrentUser(c)
		return c.JSON(fiber.Map{"email": user.Email, "userID": c.Locals("userID")})
	})

	t.Run("missing authorization header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		resp, _ := app.Test(req, 5000)
		body := decodeBody(t, resp)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", resp.StatusCode)
		}
		if body["error"] != "missing authorization header" {
			t.Fatalf("expected missing header error, got %v", body["error"])
		}
	})

	t.Run("invalid authorization format", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Basic somecreds")
		resp, _ := app.Test(req, 5000)
		body := decodeBody(t, resp)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", resp.StatusCode)
		}
		if body["error"] != "invalid authorization format" {
			t.Fatalf("expected invalid format error, got %v", body["error"])
		}
	})

	t.Run("invalid JWT token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer invalid-jwt-token")
		resp, _ := app.Test(req, 5000)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", resp.StatusCode)
		}
	})

	t.Run("valid JWT token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, _ := app.Test(req, 5000)
		body := decodeBody(t, resp)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if body["email"] != "auth-require@test.com" {
			t.Fatalf("expected email to be auth-require@test.com, got %v", body["email"])
		}
		if body["userID"] == nil || body["userID"] == "" {
			t.Fatalf("expected user id in locals for request logging")
		}
	})

	t.Run("JWT for deleted user", func(t *testing.T) {
		deletedUser := &models.User{Email: "deleted@test.com", PasswordHash: "hash", Name: "Deleted"}
		db.Create(deletedUser)
		deletedToken, _ := utils.GenerateToken(deletedUser)
		db.Delete(deletedUser)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+deletedToken)
		resp, _ := app.Test(req, 5000)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", resp.StatusCode)
		}
	})
}

type brokenStore struct{}

func (brokenStore) Hit(context.Context, string, time.Duration) (int64, time.Time, error) {
	return 0, time.Time{}, errors.New("store unavailable")
}

func TestRateLimit(t *testing.T) {
	db := setupMiddlewareTestDB(t)
	auth := NewAuthMiddleware(db)
	_, token := createMiddlewareTestUser(t, db, "limited@test.com")
	_, otherToken := createMiddlewareTestUser(t, db, "other@test.com")

	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), time.Minute, 2,
		ratelimit.Rule{Method: http.MethodPost, Path: "/api/files", Max: 1})

	app := fiber.New()
	app.Use(SecurityLogger())
	api := app.Group("/api", auth.RequireAuth, RateLimit(limiter))
	api.Get("/folders", func(c *fiber.Ctx) error { return utils.Success(c, fiber.StatusOK, nil) })
	api.Post("/files", func(c *fiber.Ctx) error { return utils.Success(c, fiber.StatusCreated, nil) })

	do := func(method, path, bearer string) *http.Response {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("Authorization", "Bearer "+bearer)
		resp, err := app.Test(req, 5000)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		return resp
	}

	t.Run("sets headers and counts down", func(t *testing.T) {
		resp := do(http.MethodGet, "/api/folders", token)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if got := resp.Header.Get("X-RateLimit-Limit"); got != "2" {
			t.Fatalf("expected limit header 2, got %q", got)
		}
		if got := resp.Header.Get("X-RateLimit-Remaining"); got != "1" {
			t.Fatalf("expected remaining header 1, got %q", got)
		}
		reset, err := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64)
		if err != nil || reset < time.Now().Unix() {
			t.Fatalf("expected reset in the future, got %q", resp.Header.Get("X-RateLimit-Reset"))
		}
	})

	t.Run("rejects over the limit", func(t *testing.T) {
		do(http.MethodGet, "/api/folders", token)
		resp := do(http.MethodGet, "/api/folders", token)
		body := decodeBody(t, resp)
		if resp.StatusCode != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %d", resp.StatusCode)
		}
		if body["error"] != "too many requests, please try again later" {
			t.Fatalf("unexpected error %v", body["error"])
		}
		if got := resp.Header.Get("X-RateLimit-Remaining"); got != "0" {
			t.Fatalf("expected remaining 0, got %q", got)
		}
	})

	t.Run("uploads have their own limit", func(t *testing.T) {
		if resp := do(http.MethodPost, "/api/files", token); resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d", resp.StatusCode)
		}
		resp := do(http.MethodPost, "/api/files", token)
		if resp.StatusCode != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %d", resp.StatusCode)
		}
		if got := resp.Header.Get("X-RateLimit-Limit"); got != "1" {
			t.Fatalf("expected upload limit 1, got %q", got)
		}
	})

	t.Run("other users are unaffected", func(t *testing.T) {
		if resp := do(http.MethodGet, "/api/folders", otherToken); resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
	})
}

func TestRateLimitFailsOpen(t *testing.T) {
	logger.Init()
	app := fiber.New()
	app.Use(RateLimit(ratelimit.NewLimiter(brokenStore{}, time.Minute, 1)))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	for i := 0; i < 3; i++ {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), 5000)
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", resp.StatusCode)
		}
	}
}

func TestSecurityHeaders(t *testing.T) {
	app := fiber.New()
	app.Use(SecurityHeaders())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), 5000)
	want := map[string]string{
		"X-Frame-Options":              "DENY",
		"X-Content-Type-Options":       "nosniff",
		"Referrer-Policy":              "no-referrer",
		"Cross-Origin-Opener-Policy":   "same-origin",
		"Cross-Origin-Resource-Policy": "same-origin",
	}
	for header, value := range want {
		if got := resp.Header.Get(header); got != value {
			t.Fatalf("expected %s=%q, got %q", header, value, got)
		}
	}
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	logger.Init()
	app := fiber.New()
	app.Use(RequestLogger())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(GetRequestID(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")
	resp, _ := app.Test(req, 5000)
	raw, _ := io.ReadAll(resp.Body)
	if string(raw) != "req-123" {
		t.Fatalf("expected request id to be reused, got %q", string(raw))
	}
	if resp.Header.Get("X-Request-ID") != "req-123" {
		t.Fatalf("expected request id echoed in response")
	}

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/", nil), 5000)
	raw, _ = io.ReadAll(resp.Body)
	if len(raw) == 0 {
		t.Fatalf("expected generated request id")
	}
}
