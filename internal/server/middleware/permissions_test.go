package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func runWithUser(t *testing.T, user *AppUser, mw echo.MiddlewareFunc) int {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := &AppContext{e.NewContext(req, rec), &App{}, user}
	h := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	return rec.Code
}

func TestRequirePermission(t *testing.T) {
	tests := []struct {
		name string
		user *AppUser
		code int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"missing", &AppUser{Role: "user", Permissions: []string{"rules.view"}}, http.StatusForbidden},
		{"granted", &AppUser{Role: "user", Permissions: []string{"score.run"}}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := runWithUser(t, tt.user, RequirePermission("score.run")); code != tt.code {
				t.Fatalf("expected %d, got %d", tt.code, code)
			}
		})
	}
}

func TestRequireAnyPermission(t *testing.T) {
	mw := RequireAnyPermission("cases.view", "score.run")
	if code := runWithUser(t, &AppUser{Permissions: []string{"score.run"}}, mw); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := runWithUser(t, &AppUser{Permissions: []string{"rules.view"}}, mw); code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
	if code := runWithUser(t, nil, mw); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestCanTune(t *testing.T) {
	tests := []struct {
		name string
		user *AppUser
		want bool
	}{
		{"anonymous", nil, false},
		{"admin", &AppUser{Role: RoleAdmin}, true},
		{"tuner", &AppUser{Role: "user", Permissions: []string{PermScoreTune}}, true},
		{"scorer", &AppUser{Role: "user", Permissions: []string{PermScoreRun}}, false},
	}
	for _, tt := range tests {
		if got := CanTune(tt.user); got != tt.want {
			t.Fatalf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}
