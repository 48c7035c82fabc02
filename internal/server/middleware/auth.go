package middleware

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/OFFIS-RIT/ris/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var errUnauthorized = errors.New("unauthorized")

// AuthMiddleware resolves the bearer token into an AppUser. The master API
// key maps to the configured master user with every permission; anything
// else must be a JWT verifiable with the app's JWKS.
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := strings.CutPrefix(c.Request().Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		}

		ac := c.(*AppContext)
		user, err := authenticate(ac.App, token)
		if err != nil {
			logger.Debug("[Server] Rejected token", "path", c.Path(), "err", err)
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		}
		ac.User = user
		return next(c)
	}
}

func authenticate(app *App, token string) (*AppUser, error) {
	if isMasterKey(app, token) {
		return &AppUser{
			UserID:      app.MasterUserID,
			Role:        app.MasterUserRole,
			Permissions: allPermissions,
		}, nil
	}

	if app.Key == nil {
		return nil, fmt.Errorf("%w: no JWKS configured", errUnauthorized)
	}
	parsed, err := jwt.Parse(token, app.Key.Keyfunc)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("%w: invalid token", errUnauthorized)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims", errUnauthorized)
	}
	return userFromClaims(claims)
}

func isMasterKey(app *App, token string) bool {
	if app.MasterAPIKey == "" || app.MasterUserRole == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(app.MasterAPIKey)) == 1
}

// userFromClaims reads id, role and permissions. Admins without explicit
// permissions get all of them.
func userFromClaims(claims jwt.MapClaims) (*AppUser, error) {
	var userID int64
	switch id := claims["id"].(type) {
	case string:
		v, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid user id %q", errUnauthorized, id)
		}
		userID = v
	case float64:
		userID = int64(id)
	default:
		return nil, fmt.Errorf("%w: missing user id", errUnauthorized)
	}

	role := "user"
	if r, ok := claims["role"].(string); ok {
		role = r
	}

	var permissions []string
	if raw, ok := claims["permissions"].([]any); ok {
		for _, p := range raw {
			if s, ok := p.(string); ok {
				permissions = append(permissions, s)
			}
		}
	}
	if role == RoleAdmin && len(permissions) == 0 {
		permissions = allPermissions
	}

	return &AppUser{
		UserID:      userID,
		Role:        role,
		Permissions: permissions,
	}, nil
}
