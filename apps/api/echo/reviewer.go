package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/confhub/backend/core/reviewer"
	"github.com/confhub/backend/core/user"
)

type reviewerApi struct {
	svc      *reviewer.Service
	validate *validator.Validate
}

func registerReviewerAPI(g *echo.Group, s *Server) {
	api := reviewerApi{
		svc:      s.ReviewerSvc,
		validate: s.Validate,
	}
	authed := []echo.MiddlewareFunc{s.jwt, userMiddleware(s.UserSvc)}

	cg := g.Group("/conferences/:id/reviewers", authed...)
	cg.GET("", api.list, roleMiddleware(user.RoleOrganizer))
	cg.POST("", api.add, roleMiddleware(user.RoleOrganizer))
	cg.GET("/:reviewerId/abstracts", api.listAssignedAbstracts)

	ag := g.Group("/abstracts/:id/reviewers", authed...)
	ag.GET("", api.queryAssigned, roleMiddleware(user.RoleOrganizer))
	ag.POST("", api.assign, roleMiddleware(user.RoleOrganizer))
}

// Handlers

func (api *reviewerApi) list(ctx echo.Context) error {
	reviewers, err := api.svc.ListReviewers(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing reviewers")
	}
	return ctx.JSON(http.StatusOK, userList(reviewers))
}

func (api *reviewerApi) add(ctx echo.Context) error {
	var data reviewer.NewReviewer
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReviewer")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	membership, err := api.svc.AddReviewer(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"), data.ReviewerID)
	if err != nil {
		return errors.Wrap(err, "adding reviewer")
	}
	return ctx.JSON(http.StatusCreated, membership)
}

func (api *reviewerApi) listAssignedAbstracts(ctx echo.Context) error {
	abstracts, err := api.svc.ListAssignedAbstracts(ctx.Request().Context(), contextUser(ctx), ctx.Param("reviewerId"), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing assigned abstracts")
	}
	return ctx.JSON(http.StatusOK, abstractList(abstracts))
}

func (api *reviewerApi) queryAssigned(ctx echo.Context) error {
	reviewers, err := api.svc.QueryAssignedReviewers(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying assigned reviewers")
	}
	return ctx.JSON(http.StatusOK, userList(reviewers))
}

func (api *reviewerApi) assign(ctx echo.Context) error {
	var data reviewer.NewReviewer
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReviewer")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	asg, err := api.svc.AssignReviewer(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"), data.ReviewerID)
	if err != nil {
		return errors.Wrap(err, "assigning reviewer")
	}
	return ctx.JSON(http.StatusCreated, asg)
}

func userList(users []user.User) []user.User {
	if users == nil {
		return []user.User{}
	}
	return users
}
