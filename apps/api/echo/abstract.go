package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/confhub/backend/core/abstract"
	"github.com/confhub/backend/core/user"
)

type abstractApi struct {
	svc      *abstract.Service
	validate *validator.Validate
}

func registerAbstractAPI(g *echo.Group, s *Server) {
	api := abstractApi{
		svc:      s.AbstractSvc,
		validate: s.Validate,
	}
	authed := []echo.MiddlewareFunc{s.jwt, userMiddleware(s.UserSvc)}

	cg := g.Group("/conferences/:id/abstracts", authed...)
	cg.POST("", api.submit, roleMiddleware(user.RoleAuthor))
	cg.GET("", api.queryByConference, roleMiddleware(user.RoleOrganizer))

	ag := g.Group("/abstracts", authed...)
	ag.GET("/mine", api.queryMine, roleMiddleware(user.RoleAuthor))
	ag.GET("/:id", api.retrieve)
	ag.PUT("/:id", api.update, roleMiddleware(user.RoleAuthor))
	ag.DELETE("/:id", api.delete, roleMiddleware(user.RoleAuthor))
	ag.POST("/:id/assign", api.markAssigned, roleMiddleware(user.RoleOrganizer))
	ag.POST("/:id/refuse", api.refuse, roleMiddleware(user.RoleOrganizer))
}

// Handlers

func (api *abstractApi) submit(ctx echo.Context) error {
	var data abstract.NewAbstract
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAbstract")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	abs, err := api.svc.Submit(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "submitting abstract")
	}
	return ctx.JSON(http.StatusCreated, abs)
}

func (api *abstractApi) queryByConference(ctx echo.Context) error {
	var filter abstract.QueryFilter
	for _, s := range ctx.QueryParams()["status"] {
		filter.Statuses = append(filter.Statuses, abstract.Status(s))
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	abstracts, err := api.svc.QueryByConference(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying abstracts")
	}
	return ctx.JSON(http.StatusOK, abstractList(abstracts))
}

func (api *abstractApi) queryMine(ctx echo.Context) error {
	ordering := new(Ordering)
	ordering.Bind(ctx)

	abstracts, err := api.svc.QueryMine(ctx.Request().Context(), contextUser(ctx), ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying abstracts")
	}
	return ctx.JSON(http.StatusOK, abstractList(abstracts))
}

func (api *abstractApi) retrieve(ctx echo.Context) error {
	abs, err := api.svc.Get(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting abstract")
	}
	return ctx.JSON(http.StatusOK, abs)
}

func (api *abstractApi) update(ctx echo.Context) error {
	var data abstract.NewAbstract
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAbstract")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	abs, err := api.svc.Update(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating abstract")
	}
	return ctx.JSON(http.StatusOK, abs)
}

func (api *abstractApi) delete(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), contextUser(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting abstract")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *abstractApi) markAssigned(ctx echo.Context) error {
	abs, err := api.svc.MarkAssigned(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "marking abstract as assigned")
	}
	return ctx.JSON(http.StatusOK, abs)
}

func (api *abstractApi) refuse(ctx echo.Context) error {
	abs, err := api.svc.Refuse(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "refusing abstract")
	}
	return ctx.JSON(http.StatusOK, abs)
}

func abstractList(abstracts []abstract.Abstract) []abstract.Abstract {
	if abstracts == nil {
		return []abstract.Abstract{}
	}
	return abstracts
}
