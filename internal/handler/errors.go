package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/shop-api/internal/service"
)

// statusOf maps a service error kind to its HTTP status.
func statusOf(k service.Kind) int {
	switch k {
	case service.KindBadRequest:
		return http.StatusBadRequest
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindConflict:
		return http.StatusConflict
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindUnsupportedType:
		return http.StatusUnsupportedMediaType
	case service.KindTooLarge:
		return http.StatusRequestEntityTooLarge
	case service.KindUpstreamFailure:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// HTTPErrorHandler renders every error as {"error": "..."}.  Internal and
// upstream failures carry a "detail" field unless production is set.
func HTTPErrorHandler(production bool, log logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		body := echo.Map{"error": "internal server error"}

		var se *service.Error
		var he *echo.HTTPError
		switch {
		case errors.As(err, &se):
			status = statusOf(se.Kind)
			body["error"] = se.Msg
			if (se.Kind == service.KindInternal || se.Kind == service.KindUpstreamFailure) && se.Err != nil && !production {
				body["detail"] = se.Err.Error()
			}
		case errors.As(err, &he):
			status = he.Code
			if msg, ok := he.Message.(string); ok {
				body["error"] = msg
			} else {
				body["error"] = http.StatusText(he.Code)
			}
			if he.Internal != nil && !production && status >= 500 {
				body["detail"] = he.Internal.Error()
			}
		default:
			if !production {
				body["detail"] = err.Error()
			}
		}

		if status >= 500 {
			log.WithError(err).WithField("path", c.Request().URL.Path).Error("request error")
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			log.WithError(werr).Error(fmt.Sprintf("write %d response", status))
		}
	}
}
