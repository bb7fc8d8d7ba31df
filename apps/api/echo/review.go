package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/confhub/backend/core/review"
	"github.com/confhub/backend/core/user"
)

type reviewApi struct {
	svc      *review.Service
	validate *validator.Validate
}

func registerReviewAPI(g *echo.Group, s *Server) {
	api := reviewApi{
		svc:      s.ReviewSvc,
		validate: s.Validate,
	}
	authed := []echo.MiddlewareFunc{s.jwt, userMiddleware(s.UserSvc)}

	rg := g.Group("/reviews", authed...)
	rg.POST("", api.submit, roleMiddleware(user.RoleReviewer))
	rg.GET("/:id", api.retrieve)
	rg.PUT("/:id", api.update)
	rg.DELETE("/:id", api.destroy)

	ag := g.Group("/abstracts/:id/reviews", authed...)
	ag.GET("", api.listForAbstract, roleMiddleware(user.RoleOrganizer))
}

// Handlers

func (api *reviewApi) submit(ctx echo.Context) error {
	var data review.NewReview
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReview")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rv, err := api.svc.Submit(ctx.Request().Context(), contextUser(ctx), data)
	if err != nil {
		return errors.Wrap(err, "submitting review")
	}
	return ctx.JSON(http.StatusCreated, rv)
}

func (api *reviewApi) retrieve(ctx echo.Context) error {
	rv, err := api.svc.Get(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting review")
	}
	return ctx.JSON(http.StatusOK, rv)
}

func (api *reviewApi) update(ctx echo.Context) error {
	var data review.UpdateReview
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateReview")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rv, err := api.svc.Update(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating review")
	}
	return ctx.JSON(http.StatusOK, rv)
}

func (api *reviewApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), contextUser(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting review")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *reviewApi) listForAbstract(ctx echo.Context) error {
	records, err := api.svc.ListForAbstract(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing reviews")
	}
	if records == nil {
		records = []review.Record{}
	}
	return ctx.JSON(http.StatusOK, records)
}
