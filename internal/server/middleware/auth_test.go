package middleware

import (
	"errors"
	"reflect"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func TestUserFromClaims(t *testing.T) {
	tests := []struct {
		name   string
		claims jwt.MapClaims
		want   *AppUser
	}{
		{
			"string id with permissions",
			jwt.MapClaims{"id": "7", "permissions": []any{PermScoreRun, 3}},
			&AppUser{UserID: 7, Role: "user", Permissions: []string{PermScoreRun}},
		},
		{
			"admin without permissions",
			jwt.MapClaims{"id": float64(2), "role": RoleAdmin},
			&AppUser{UserID: 2, Role: RoleAdmin, Permissions: allPermissions},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := userFromClaims(tt.claims)
			if err != nil {
				t.Fatalf("expected nil error, got %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestUserFromClaimsRejectsBadID(t *testing.T) {
	for _, claims := range []jwt.MapClaims{{}, {"id": "abc"}, {"id": true}} {
		if _, err := userFromClaims(claims); !errors.Is(err, errUnauthorized) {
			t.Fatalf("expected errUnauthorized for %v, got %v", claims, err)
		}
	}
}

func TestAuthenticateMasterKey(t *testing.T) {
	app := &App{MasterAPIKey: "secret", MasterUserID: 1, MasterUserRole: RoleAdmin}
	user, err := authenticate(app, "secret")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if user.UserID != 1 || !CanTune(user) {
		t.Fatalf("unexpected master user %+v", user)
	}
	if _, err := authenticate(app, "other"); !errors.Is(err, errUnauthorized) {
		t.Fatalf("expected errUnauthorized without JWKS, got %v", err)
	}
	if _, err := authenticate(&App{MasterAPIKey: "secret"}, "secret"); err == nil {
		t.Fatal("expected master key without a role to be rejected")
	}
}
