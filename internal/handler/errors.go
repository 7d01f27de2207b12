// Package handler contains the echo HTTP handlers. Handlers bind and
// shape JSON; validation and ownership checks live in the service layer.
package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/wod-leaderboard/internal/logging"
	"github.com/iliyamo/wod-leaderboard/internal/service"
)

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"error": msg})
}

// respondError maps a service error to its status code. Unknown errors
// are logged and answered with a generic 500.
func respondError(c echo.Context, log *logging.Logger, err error) error {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return errorJSON(c, http.StatusBadRequest, ve.Message)
	case errors.Is(err, service.ErrForbidden):
		return errorJSON(c, http.StatusForbidden, "invalid token")
	case errors.Is(err, service.ErrWorkoutNotFound):
		return errorJSON(c, http.StatusNotFound, "workout not found")
	case errors.Is(err, service.ErrResultNotFound):
		return errorJSON(c, http.StatusNotFound, "result not found")
	}
	log.Error("request failed", "method", c.Request().Method, "path", c.Path(), "err", err)
	return errorJSON(c, http.StatusInternalServerError, "internal server error")
}
