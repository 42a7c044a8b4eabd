package handler

import (
	"errors"
	"net/http"

	"github.com/chetgo/sahod-solutions/internal/service"
	"github.com/chetgo/sahod-solutions/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// writeError maps the service error taxonomy onto HTTP responses.
// Store-level error types never reach the client.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	var validationErr *service.ValidationError
	var conflictErr *service.ConflictError

	switch {
	case errors.As(err, &validationErr):
		prometheus.RecordError("validation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": validationErr.Error()})
	case errors.As(err, &conflictErr):
		prometheus.RecordError("conflict")
		resp := echo.Map{"error": "subdomain is already reserved, try another name"}
		if conflictErr.HeldBy != "" {
			resp["held_by"] = conflictErr.HeldBy
		}
		return c.JSON(http.StatusConflict, resp)
	case errors.Is(err, service.ErrNotFound):
		prometheus.RecordError("not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, service.ErrIncompleteData):
		prometheus.RecordError("incomplete_data")
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "registration is missing required steps"})
	case service.IsTransient(err):
		log.Error("store unavailable", zap.Error(err))
		prometheus.RecordError("store_error")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "service temporarily unavailable"})
	default:
		log.Error("unexpected error", zap.Error(err))
		prometheus.RecordError("internal")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
