package routes

import (
	"errors"
	"net/http"

	"github.com/OFFIS-RIT/ris/internal/server/middleware"
	"github.com/OFFIS-RIT/ris/pkg/common"
	"github.com/OFFIS-RIT/ris/pkg/logger"
	"github.com/OFFIS-RIT/ris/pkg/scoring"

	"github.com/labstack/echo/v4"
)

// ScoreHandler scores the posted pairs for one relation. Optional sigma, mu
// and theta override the server's configured weights for this request.
func ScoreHandler(c echo.Context) error {
	type scorePair struct {
		Head string `json:"head" validate:"required"`
		Tail string `json:"tail" validate:"required"`
		FP   string `json:"fp"`
	}

	type scoreBody struct {
		Relation string      `json:"relation" validate:"required"`
		Pairs    []scorePair `json:"pairs" validate:"required,min=1,dive"`
		Sigma    *float64    `json:"sigma"`
		Mu       *float64    `json:"mu"`
		Theta    *float64    `json:"theta"`
	}

	type scoreResponse struct {
		Message string               `json:"message"`
		Records []common.ScoreRecord `json:"records,omitempty"`
		Summary *scoring.Suppression `json:"summary,omitempty"`
	}

	data := new(scoreBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, scoreResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, scoreResponse{
			Message: "Invalid request body",
		})
	}

	ac := c.(*middleware.AppContext)
	tuned := data.Sigma != nil || data.Mu != nil || data.Theta != nil
	if tuned && !middleware.CanTune(ac.User) {
		return c.JSON(http.StatusForbidden, scoreResponse{
			Message: "Forbidden: missing permission score.tune",
		})
	}

	app := ac.App
	params := app.Engine.Options().Params.Override(data.Sigma, data.Mu, data.Theta)

	pairs := make([]common.PredictedPair, len(data.Pairs))
	for i, p := range data.Pairs {
		pairs[i] = common.PredictedPair{
			Pair: common.Pair{Head: p.Head, Tail: p.Tail},
			FP:   p.FP,
		}
	}

	ctx := c.Request().Context()
	records, err := app.Engine.Score(ctx, data.Relation, pairs, params)
	if err != nil {
		if errors.Is(err, ctx.Err()) {
			return c.JSON(http.StatusServiceUnavailable, scoreResponse{Message: "Request canceled"})
		}
		logger.Error("[Server] Scoring failed", "relation", data.Relation, "err", err)
		return c.JSON(http.StatusInternalServerError, scoreResponse{Message: "Scoring failed"})
	}

	summary := scoring.Summarize(records, params)
	return c.JSON(http.StatusOK, scoreResponse{
		Message: "ok",
		Records: records,
		Summary: &summary,
	})
}
