package handler

import (
	"net/http"

	"github.com/chetgo/sahod-solutions/internal/service"
	"github.com/chetgo/sahod-solutions/pkg/logger"
	"github.com/chetgo/sahod-solutions/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// SubdomainHandler exposes the subdomain registry over HTTP.
type SubdomainHandler struct {
	registry *service.SubdomainRegistry
}

func NewSubdomainHandler(registry *service.SubdomainRegistry) *SubdomainHandler {
	return &SubdomainHandler{registry: registry}
}

// CheckAvailability reports whether a subdomain is usable. The
// registration_id query parameter lets a draft re-check its own
// reservation without seeing it as taken.
func (h *SubdomainHandler) CheckAvailability(c echo.Context) error {
	log := logger.FromEcho(c)

	subdomain := c.QueryParam("subdomain")
	if subdomain == "" {
		prometheus.RecordError("validation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "subdomain is required"})
	}
	registrationID := c.QueryParam("registration_id")

	result := h.registry.CheckAvailability(c.Request().Context(), subdomain, registrationID)

	status := result.Status
	if result.Available {
		status = service.StatusAvailable
	}
	prometheus.RecordSubdomainCheck(status)
	log.Debug("subdomain availability checked",
		zap.String("subdomain", subdomain),
		zap.Bool("available", result.Available),
		zap.String("status", result.Status))

	return c.JSON(http.StatusOK, result)
}

// Sweep deletes all expired pending reservations. Exposed on the
// internal route group for external schedulers; the in-process ticker
// calls the registry directly.
func (h *SubdomainHandler) Sweep(c echo.Context) error {
	log := logger.FromEcho(c)

	count, err := h.registry.SweepExpired(c.Request().Context())
	if err != nil {
		prometheus.RecordSubdomainOperation("sweep", "error")
		return writeError(c, log, err)
	}

	prometheus.RecordSubdomainOperation("sweep", "ok")
	prometheus.SweptReservationCounter.Add(float64(count))
	log.Info("expired reservations swept", zap.Int("deleted", count))

	return c.JSON(http.StatusOK, echo.Map{"deleted": count})
}
