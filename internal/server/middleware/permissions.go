package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	PermScoreRun  = "score.run"
	PermScoreTune = "score.tune"
	PermCasesView = "cases.view"
	PermRulesView = "rules.view"

	RoleAdmin = "admin"
)

// allPermissions is granted to the master key and to admins whose token
// carries no explicit permissions.
var allPermissions = []string{
	PermScoreRun,
	PermScoreTune,
	PermCasesView,
	PermRulesView,
}

func HasPermission(user *AppUser, permission string) bool {
	if user == nil {
		return false
	}
	return slices.Contains(user.Permissions, permission)
}

func HasAnyPermission(user *AppUser, permissions ...string) bool {
	return slices.ContainsFunc(permissions, func(p string) bool {
		return HasPermission(user, p)
	})
}

func IsAdmin(user *AppUser) bool {
	return user != nil && user.Role == RoleAdmin
}

// CanTune reports whether user may override the scoring weights per request.
func CanTune(user *AppUser) bool {
	return IsAdmin(user) || HasPermission(user, PermScoreTune)
}

func RequirePermission(permission string) echo.MiddlewareFunc {
	return RequireAnyPermission(permission)
}

// RequireAnyPermission lets the request through when the user holds at least
// one of permissions.
func RequireAnyPermission(permissions ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := c.(*AppContext).User
			if user == nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			}
			if !HasAnyPermission(user, permissions...) {
				return c.JSON(http.StatusForbidden, map[string]string{
					"error": "Forbidden: missing permission " + strings.Join(permissions, " or "),
				})
			}
			return next(c)
		}
	}
}
