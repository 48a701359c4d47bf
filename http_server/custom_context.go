package http_server

import (
	"context"
	"errors"
	"net/http"

	"github.com/danthegoodman1/glueexport/gologger"
	"github.com/danthegoodman1/glueexport/utils"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type CustomContext struct {
	echo.Context
	RequestID string
}

func CreateReqContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		reqID := uuid.NewString()
		ctx := context.WithValue(c.Request().Context(), gologger.ReqIDKey, reqID)
		ctx = logger.WithContext(ctx)
		c.SetRequest(c.Request().WithContext(ctx))
		logger := zerolog.Ctx(ctx)
		logger.UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Str("reqID", reqID)
		})
		cc := &CustomContext{
			Context:   c,
			RequestID: reqID,
		}
		return next(cc)
	}
}

// Casts to custom context for the handler, so this doesn't have to be done per handler
func ccHandler(h func(*CustomContext) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		return h(c.(*CustomContext))
	}
}

func (c *CustomContext) internalErrorMessage() string {
	return "internal error, request id: " + c.RequestID
}

func (c *CustomContext) InternalError(err error, msg string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		zerolog.Ctx(c.Request().Context()).Warn().CallerSkipFrame(1).Msg(err.Error())
	} else {
		zerolog.Ctx(c.Request().Context()).Error().CallerSkipFrame(1).Err(err).Msg(msg)
	}
	return c.String(http.StatusInternalServerError, c.internalErrorMessage())
}

// ExportError maps the typed errors of an export or query to a status, anything unknown is internal
func (c *CustomContext) ExportError(err error, msg string) error {
	var ve *utils.ValidationError
	var qe *utils.QueryFailedError
	switch {
	case errors.As(err, &ve):
		return c.String(http.StatusBadRequest, ve.Error())
	case errors.As(err, &qe):
		return c.String(http.StatusUnprocessableEntity, qe.Error())
	case errors.Is(err, utils.ErrQueryTimeout):
		return c.String(http.StatusGatewayTimeout, err.Error())
	}
	return c.InternalError(err, msg)
}
