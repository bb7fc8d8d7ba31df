package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/confhub/backend/core"
	"github.com/confhub/backend/core/abstract"
	"github.com/confhub/backend/core/conference"
	"github.com/confhub/backend/core/review"
	"github.com/confhub/backend/core/reviewer"
	"github.com/confhub/backend/core/user"
)

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errHttpForbidden = echo.NewHTTPError(http.StatusForbidden, "permission denied")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			if c, ok := errorCode(origErr); ok {
				code = c
				message = origErr.Error()
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.ID = claims.Subject
				usr.Email = claims.Email
			}
			var aggErr *review.AggregationError
			if errors.As(err, &aggErr) {
				logger.Error(msg, errors.Wrap(err, "aggregating reviews"), map[string]interface{}{"abstract_id": aggErr.AbstractID}, usr)
			} else {
				logger.Error(msg, errors.Wrap(err, msg), usr)
			}

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

// errorCode maps the domain errors answered with their own message.
func errorCode(err error) (int, bool) {
	switch err {
	case core.ErrPermissionDenied, review.ErrNotAReviewer, review.ErrNotAssigned:
		return http.StatusForbidden, true
	case user.ErrNotFound, conference.ErrNotFound, abstract.ErrNotFound, review.ErrNotFound, reviewer.ErrInvitationNotFound:
		return http.StatusNotFound, true
	case user.ErrEmailExists, user.ErrUnknownRole, reviewer.ErrInvalidRole, review.ErrUnknownDecision,
		reviewer.ErrInvalidToken, reviewer.ErrTokenExpired:
		return http.StatusBadRequest, true
	case reviewer.ErrAlreadyAssigned, reviewer.ErrCapacityExceeded, reviewer.ErrAlreadyMember, reviewer.ErrAlreadyInvited,
		reviewer.ErrInvitationClosed, review.ErrDuplicateReview, review.ErrReviewLocked,
		abstract.ErrInvalidTransition, abstract.ErrDeadlinePassed, abstract.ErrUnderReview:
		return http.StatusConflict, true
	}
	return 0, false
}
