package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/confhub/backend/core/conference"
	"github.com/confhub/backend/core/user"
)

type conferenceApi struct {
	svc      *conference.Service
	validate *validator.Validate
}

func registerConferenceAPI(g *echo.Group, s *Server) {
	api := conferenceApi{
		svc:      s.ConferenceSvc,
		validate: s.Validate,
	}

	cg := g.Group("/conferences", s.jwt, userMiddleware(s.UserSvc))
	cg.GET("", api.queryAll)
	cg.POST("", api.create, roleMiddleware(user.RoleOrganizer))
	cg.GET("/mine", api.queryMine, roleMiddleware(user.RoleOrganizer))
	cg.GET("/:id", api.retrieve)
}

// Handlers

func (api *conferenceApi) create(ctx echo.Context) error {
	var data conference.NewConference
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewConference")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	conf, err := api.svc.Create(ctx.Request().Context(), contextUser(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating conference")
	}
	return ctx.JSON(http.StatusCreated, conf)
}

func (api *conferenceApi) queryAll(ctx echo.Context) error {
	confs, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying conferences")
	}
	return ctx.JSON(http.StatusOK, conferenceList(confs))
}

func (api *conferenceApi) queryMine(ctx echo.Context) error {
	confs, err := api.svc.QueryMine(ctx.Request().Context(), contextUser(ctx))
	if err != nil {
		return errors.Wrap(err, "querying conferences")
	}
	return ctx.JSON(http.StatusOK, conferenceList(confs))
}

func (api *conferenceApi) retrieve(ctx echo.Context) error {
	conf, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting conference")
	}
	return ctx.JSON(http.StatusOK, conf)
}

func conferenceList(confs []conference.Conference) []conference.Conference {
	if confs == nil {
		return []conference.Conference{}
	}
	return confs
}
