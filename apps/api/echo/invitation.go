package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/confhub/backend/core/reviewer"
	"github.com/confhub/backend/core/user"
)

type invitationApi struct {
	svc      *reviewer.Service
	validate *validator.Validate
}

func registerInvitationAPI(g *echo.Group, s *Server) {
	api := invitationApi{
		svc:      s.ReviewerSvc,
		validate: s.Validate,
	}
	authed := []echo.MiddlewareFunc{s.jwt, userMiddleware(s.UserSvc)}

	cg := g.Group("/conferences/:id/invitations", authed...)
	cg.POST("", api.invite, roleMiddleware(user.RoleOrganizer))
	cg.GET("", api.querySent, roleMiddleware(user.RoleOrganizer))

	ig := g.Group("/invitations")
	// declining only needs the emailed link
	ig.POST("/:token/reject", api.reject)
	ig.POST("/:token/accept", api.accept, authed...)
	ig.GET("/received", api.queryReceived, authed...)
}

// Handlers

func (api *invitationApi) invite(ctx echo.Context) error {
	var data reviewer.NewInvitation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInvitation")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	inv, err := api.svc.Invite(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "inviting reviewer")
	}
	return ctx.JSON(http.StatusCreated, inv)
}

func (api *invitationApi) querySent(ctx echo.Context) error {
	invs, err := api.svc.QuerySentInvitations(ctx.Request().Context(), contextUser(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying sent invitations")
	}
	return ctx.JSON(http.StatusOK, invitationList(invs))
}

func (api *invitationApi) queryReceived(ctx echo.Context) error {
	invs, err := api.svc.QueryReceivedInvitations(ctx.Request().Context(), contextUser(ctx))
	if err != nil {
		return errors.Wrap(err, "querying received invitations")
	}
	return ctx.JSON(http.StatusOK, invitationList(invs))
}

func (api *invitationApi) accept(ctx echo.Context) error {
	inv, err := api.svc.AcceptInvitation(ctx.Request().Context(), contextUser(ctx), ctx.Param("token"))
	if err != nil {
		return errors.Wrap(err, "accepting invitation")
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *invitationApi) reject(ctx echo.Context) error {
	inv, err := api.svc.RejectInvitation(ctx.Request().Context(), ctx.Param("token"))
	if err != nil {
		return errors.Wrap(err, "rejecting invitation")
	}
	return ctx.JSON(http.StatusOK, inv)
}

func invitationList(invs []reviewer.Invitation) []reviewer.Invitation {
	if invs == nil {
		return []reviewer.Invitation{}
	}
	return invs
}
