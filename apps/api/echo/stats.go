package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/stats"
)

type statsApi struct {
	svc   stats.ServiceInterface
	auth  *auth
	clock core.Clock
}

func registerStatsAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *auth, svc stats.ServiceInterface, clock core.Clock) {
	api := statsApi{svc: svc, auth: auth, clock: clock}

	sg := g.Group("/statistics", jwt)
	sg.GET("/users/:id", api.retrieve)
	sg.GET("/summary", api.summary)
}

// Handlers

func (api *statsApi) retrieve(ctx echo.Context) error {
	actor, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	start, end, err := api.bindPeriod(ctx)
	if err != nil {
		return err
	}

	s, err := api.svc.Get(ctx.Request().Context(), actor, ctx.Param("id"), start, end)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *statsApi) summary(ctx echo.Context) error {
	actor, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	start, end, err := api.bindPeriod(ctx)
	if err != nil {
		return err
	}

	summary, err := api.svc.Summary(ctx.Request().Context(), actor, start, end)
	if err != nil {
		return err
	}
	if summary == nil {
		summary = []stats.TaskStatistics{}
	}
	return ctx.JSON(http.StatusOK, summary)
}

// bindPeriod resolves the "period" preset query param (trimester, the
// default, or year) to a concrete [start, end] window anchored to the
// server clock.
func (api *statsApi) bindPeriod(ctx echo.Context) (start, end time.Time, err error) {
	preset := core.CleanString(ctx.QueryParam("period"), true /* lower */)
	if preset == "" {
		preset = stats.PeriodTrimester
	}
	start, end, err = stats.PeriodFromPreset(preset, api.clock.Now().UTC())
	if err != nil {
		return start, end, core.NewValidationError(nil, core.FieldError{Field: "period", Error: err.Error()})
	}
	return start, end, nil
}
