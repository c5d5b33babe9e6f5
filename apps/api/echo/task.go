package echoapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/task"
)

// assigneeMeShorthand in the assigned_to filter resolves to the actor.
const assigneeMeShorthand = "me"

type taskApi struct {
	svc  task.ServiceInterface
	auth *auth
}

func registerTaskAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *auth, svc task.ServiceInterface) {
	api := taskApi{svc: svc, auth: auth}

	tg := g.Group("/tasks", jwt)
	tg.POST("", api.create)
	tg.GET("", api.query)
	tg.GET("/:id", api.retrieve)
	tg.PUT("/:id", api.update)
	tg.PATCH("/:id/status", api.updateStatus)
	tg.PATCH("/:id/assignee", api.reassign)
	tg.DELETE("/:id", api.destroy)
}

// Handlers

func (api *taskApi) create(ctx echo.Context) error {
	actor, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data task.NewTask
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTask")
	}
	if data.AssignedToID == assigneeMeShorthand {
		data.AssignedToID = actor.ID
	}

	t, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *taskApi) query(ctx echo.Context) error {
	actor, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	filter := new(task.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []task.Task{})
	}
	if strings.EqualFold(filter.AssignedToID, assigneeMeShorthand) {
		filter.AssignedToID = actor.ID
	}
	ordering := new(TaskSort).Ordering(ctx)

	tasks, err := api.svc.Query(ctx.Request().Context(), actor, filter, ordering)
	if err != nil {
		return errors.Wrap(err, "querying tasks")
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	return ctx.JSON(http.StatusOK, tasks)
}

func (api *taskApi) retrieve(ctx echo.Context) error {
	actor, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	t, err := api.svc.Get(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *taskApi) update(ctx echo.Context) error {
	actor, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data task.UpdateTask
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTask")
	}

	t, err := api.svc.Update(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *taskApi) updateStatus(ctx echo.Context) error {
	actor, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data UpdateStatusRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStatusRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	t, err := api.svc.SetStatus(ctx.Request().Context(), actor, ctx.Param("id"), data.Status)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *taskApi) reassign(ctx echo.Context) error {
	actor, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data ReassignRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReassignRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	t, err := api.svc.Reassign(ctx.Request().Context(), actor, ctx.Param("id"), data.AssignedToID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *taskApi) destroy(ctx echo.Context) error {
	actor, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.Delete(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

type (
	UpdateStatusRequest struct {
		Status string `json:"status" validate:"required"`
	}

	ReassignRequest struct {
		AssignedToID string `json:"assigned_to_id" validate:"required"`
	}
)

func (r *UpdateStatusRequest) Validate() error {
	r.Status = core.CleanString(r.Status, true /* lower */)
	if r.Status != "" {
		r.Status = strings.ToUpper(r.Status)
	}
	return core.Validate.Struct(r)
}

func (r *ReassignRequest) Validate() error {
	return core.Validate.Struct(r)
}
