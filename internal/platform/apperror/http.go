package apperror

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

var statusByKind = map[Kind]int{
	KindInvalidArgument: http.StatusBadRequest,
	KindNotFound:        http.StatusNotFound,
	KindForbidden:       http.StatusForbidden,
	KindUnauthorized:    http.StatusUnauthorized,
	KindInternal:        http.StatusInternalServerError,
}

// HTTPStatus maps a Kind to its HTTP status code.
func HTTPStatus(kind Kind) int {
	if s, ok := statusByKind[kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// ErrorHandler returns an echo HTTPErrorHandler that maps kinded errors to
// JSON bodies of the form {"error": kind, "detail": reason}. echo.HTTPError
// values (from middleware such as auth) pass through with their own status.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			// Headers already sent, e.g. a stream failed mid-flight. The
			// connection is aborted by the caller; just log.
			logger.Error().Err(err).Str("path", c.Path()).Msg("error after response committed")
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			detail := "request failed"
			if s, ok := he.Message.(string); ok {
				detail = s
			}
			_ = c.JSON(he.Code, map[string]string{"error": http.StatusText(he.Code), "detail": detail})
			return
		}

		kind := KindOf(err)
		if kind == KindInternal {
			logger.Error().Err(err).Str("path", c.Path()).Msg("internal error")
		}
		_ = c.JSON(HTTPStatus(kind), map[string]string{
			"error":  string(kind),
			"detail": ReasonOf(err),
		})
	}
}
