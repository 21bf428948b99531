package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"ngabarin/realtime/internal/auth"
	"ngabarin/realtime/internal/models"
)

func newApp(t *testing.T) (*fiber.App, string) {
	t.Helper()
	verifier := auth.NewJWTVerifier("test-secret")
	token, err := verifier.GenerateToken("u1", models.RoleMember)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	app := fiber.New()
	app.Get("/me", Auth(verifier), func(c *fiber.Ctx) error {
		return c.SendString(GetUserID(c))
	})
	return app, token
}

func TestAuthAcceptsTokenSources(t *testing.T) {
	app, token := newApp(t)

	tests := []struct {
		name  string
		setup func(r *http.Request)
	}{
		{"header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }},
		{"query", func(r *http.Request) { r.URL.RawQuery = "token=" + token; r.RequestURI = r.URL.RequestURI() }},
		{"cookie", func(r *http.Request) { r.Header.Set("Cookie", "token="+token) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			tt.setup(req)

			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != fiber.StatusOK {
				t.Fatalf("status = %d", resp.StatusCode)
			}
		})
	}
}

func TestAuthRejects(t *testing.T) {
	app, _ := newApp(t)

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing", "", "missing_credential"},
		{"garbage", "Bearer not-a-jwt", "invalid_credential"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != fiber.StatusUnauthorized {
				t.Fatalf("status = %d", resp.StatusCode)
			}

			var body struct {
				Success bool `json:"success"`
				Error   struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Success || body.Error.Code != tt.code {
				t.Errorf("body = %+v", body)
			}
		})
	}
}
