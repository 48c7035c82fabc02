package routes

import (
	"net/http"

	"github.com/OFFIS-RIT/ris/internal/server/middleware"
	"github.com/OFFIS-RIT/ris/pkg/logger"

	"github.com/labstack/echo/v4"
)

// GetCasesHandler returns the selected top cases of a relation with their
// support degree.
func GetCasesHandler(c echo.Context) error {
	type getCasesParams struct {
		Relation string `param:"relation" validate:"required"`
	}

	params := new(getCasesParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	app := c.(*middleware.AppContext).App
	top, err := app.Engine.Cases(c.Request().Context(), params.Relation)
	if err != nil {
		logger.Error("[Server] Case selection failed", "relation", params.Relation, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Case selection failed"})
	}

	return c.JSON(http.StatusOK, top)
}

// GetRulesHandler returns the loaded rules with their confidence.
func GetRulesHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App
	if app.Rules == nil {
		return c.JSON(http.StatusOK, []any{})
	}
	return c.JSON(http.StatusOK, app.Rules.Rules())
}
