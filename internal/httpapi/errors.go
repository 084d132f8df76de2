package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
)

// apiError is returned by handlers and rendered by the error handler as {message[, error]}.
type apiError struct {
	Code    int
	Message string
	Err     error
}

func (e *apiError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%d %s", e.Code, e.Message)
}

func (e *apiError) Unwrap() error { return e.Err }

func badRequest(msg string) error   { return &apiError{Code: http.StatusBadRequest, Message: msg} }
func forbidden(msg string) error    { return &apiError{Code: http.StatusForbidden, Message: msg} }
func notFound(msg string) error     { return &apiError{Code: http.StatusNotFound, Message: msg} }
func conflict(msg string) error     { return &apiError{Code: http.StatusConflict, Message: msg} }
func unauthorized(msg string) error { return &apiError{Code: http.StatusUnauthorized, Message: msg} }

// internalError wraps err as a 500 with a domain message; the raw detail goes out in "error".
func internalError(msg string, err error) error {
	return &apiError{Code: http.StatusInternalServerError, Message: msg, Err: err}
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// errorHandler renders every failure in the same JSON shape. Errors that are neither
// apiError nor *echo.HTTPError become 500.
func errorHandler(logger *log.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := http.StatusInternalServerError
		body := errorBody{Message: "internal server error"}

		var ae *apiError
		var he *echo.HTTPError
		switch {
		case errors.As(err, &ae):
			code = ae.Code
			body.Message = ae.Message
			if code >= http.StatusInternalServerError && ae.Err != nil {
				body.Error = ae.Err.Error()
			}
		case errors.As(err, &he):
			code = he.Code
			body.Message = fmt.Sprint(he.Message)
			if code >= http.StatusInternalServerError && he.Internal != nil {
				body.Error = he.Internal.Error()
			}
		default:
			body.Error = err.Error()
		}

		if code >= http.StatusInternalServerError {
			logger.Error("request failed", "err", err, "method", c.Request().Method, "path", c.Path())
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, body)
		}
		if err != nil {
			logger.Error("write error response", "err", err)
		}
	}
}
