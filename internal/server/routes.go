package server

import (
	"github.com/OFFIS-RIT/ris/internal/server/middleware"
	"github.com/OFFIS-RIT/ris/internal/server/routes"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	apiRoutes.POST("/score", routes.ScoreHandler, middleware.RequirePermission(middleware.PermScoreRun))
	apiRoutes.GET("/cases/:relation", routes.GetCasesHandler, middleware.RequireAnyPermission(middleware.PermCasesView, middleware.PermScoreRun))
	apiRoutes.GET("/rules", routes.GetRulesHandler, middleware.RequireAnyPermission(middleware.PermRulesView, middleware.PermScoreRun))
}
