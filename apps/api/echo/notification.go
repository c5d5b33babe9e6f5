package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core/notification"
)

type notificationApi struct {
	svc  notification.ServiceInterface
	auth *auth
}

func registerNotificationAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *auth, svc notification.ServiceInterface) {
	api := notificationApi{svc: svc, auth: auth}

	ng := g.Group("/notifications", jwt)
	ng.GET("", api.query)
	ng.PATCH("/:id/read", api.markRead)
	ng.POST("/read-all", api.markAllRead)
}

// Handlers

func (api *notificationApi) query(ctx echo.Context) error {
	actor, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	filter := new(notification.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []notification.Notification{})
	}

	notifications, err := api.svc.QueryForUser(ctx.Request().Context(), actor, filter)
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	if notifications == nil {
		notifications = []notification.Notification{}
	}
	return ctx.JSON(http.StatusOK, notifications)
}

func (api *notificationApi) markRead(ctx echo.Context) error {
	actor, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	n, err := api.svc.MarkRead(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api *notificationApi) markAllRead(ctx echo.Context) error {
	actor, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.MarkAllRead(ctx.Request().Context(), actor); err != nil {
		return errors.Wrap(err, "marking notifications read")
	}
	return ctx.NoContent(http.StatusNoContent)
}
