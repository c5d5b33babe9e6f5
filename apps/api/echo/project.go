package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/project"
)

type projectApi struct {
	svc  project.ServiceInterface
	auth *auth
}

func registerProjectAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *auth, svc project.ServiceInterface) {
	api := projectApi{svc: svc, auth: auth}

	pg := g.Group("/projects", jwt)
	pg.POST("", api.create)
	pg.GET("", api.query)
	pg.GET("/:id", api.retrieve)
	pg.PUT("/:id", api.update)
	pg.DELETE("/:id", api.destroy)
	pg.POST("/:id/members", api.addMember)
	pg.DELETE("/:id/members/:userID", api.removeMember)
}

// Handlers

func (api *projectApi) create(ctx echo.Context) error {
	actor, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data project.NewProject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProject")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	prj, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating project")
	}
	return ctx.JSON(http.StatusCreated, prj)
}

func (api *projectApi) query(ctx echo.Context) error {
	actor, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	projects, err := api.svc.QueryForUser(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "querying projects")
	}
	if projects == nil {
		projects = []project.Project{}
	}
	return ctx.JSON(http.StatusOK, projects)
}

func (api *projectApi) retrieve(ctx echo.Context) error {
	actor, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	prj, err := api.svc.Get(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, prj)
}

func (api *projectApi) update(ctx echo.Context) error {
	actor, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data project.UpdateProject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProject")
	}

	prj, err := api.svc.Update(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, prj)
}

func (api *projectApi) destroy(ctx echo.Context) error {
	actor, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.Delete(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *projectApi) addMember(ctx echo.Context) error {
	actor, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data AddMemberRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AddMemberRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	prj, err := api.svc.AddMember(ctx.Request().Context(), actor, ctx.Param("id"), data.UserID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, prj)
}

func (api *projectApi) removeMember(ctx echo.Context) error {
	actor, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	prj, err := api.svc.RemoveMember(ctx.Request().Context(), actor, ctx.Param("id"), ctx.Param("userID"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, prj)
}

type AddMemberRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

func (r *AddMemberRequest) Validate() error {
	return core.Validate.Struct(r)
}
