package middleware

import (
	"context"

	"github.com/OFFIS-RIT/ris/pkg/common"
	"github.com/OFFIS-RIT/ris/pkg/rules"
	"github.com/OFFIS-RIT/ris/pkg/scoring"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/labstack/echo/v4"
)

type AppUser struct {
	UserID      int64
	Role        string
	Permissions []string
}

// Engine is the scoring surface the routes use; *scoring.Engine implements it.
type Engine interface {
	Score(ctx context.Context, relation string, pairs []common.PredictedPair, params scoring.Params) ([]common.ScoreRecord, error)
	Cases(ctx context.Context, relation string) ([]common.CaseScore, error)
	Options() scoring.Options
}

type App struct {
	Engine         Engine
	Rules          *rules.Repository
	Key            keyfunc.Keyfunc
	MasterAPIKey   string
	MasterUserID   int64
	MasterUserRole string
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app, nil}
			return next(cc)
		}
	}
}
