package handler

import (
	"net/http"
	"time"

	"github.com/chetgo/sahod-solutions/internal/repository"
	"github.com/chetgo/sahod-solutions/pkg/jwtutil"
	"github.com/chetgo/sahod-solutions/pkg/logger"
	"github.com/chetgo/sahod-solutions/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// CompanyHandler serves company records and the tenant portal entry
// point targeted by the subdomain rewrite.
type CompanyHandler struct {
	repo *repository.RegistrationRepository
}

func NewCompanyHandler(repo *repository.RegistrationRepository) *CompanyHandler {
	return &CompanyHandler{repo: repo}
}

// GetCompany returns a company record. The acting identity must belong
// to the company: registration and availability routes are anonymous,
// but company records are not.
func (h *CompanyHandler) GetCompany(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, ok := c.Get("user").(*jwtutil.UserClaims)
	if !ok {
		log.Error("Failed to get user claims from context")
		prometheus.RecordError("unauthorized_company_access")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	id := c.Param("id")
	if claims.CompanyID != id {
		log.Error("Company access denied",
			zap.String("company_id", id),
			zap.String("claim_company_id", claims.CompanyID))
		prometheus.RecordError("company_access_denied")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	company, err := h.repo.GetCompany(c.Request().Context(), id)
	if err != nil {
		return writeError(c, log, err)
	}
	if company == nil {
		prometheus.RecordError("company_not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "company not found"})
	}

	return c.JSON(http.StatusOK, echo.Map{"company": company})
}

// Portal is the landing route for {company}.{base-domain} requests
// after the host rewrite. It surfaces only the company's public shell;
// dashboard functionality lives elsewhere.
func (h *CompanyHandler) Portal(c echo.Context) error {
	log := logger.FromEcho(c)

	subdomain := c.Param("subdomain")
	defer prometheus.TrackDBOperation("query")(time.Now())
	company, err := h.repo.GetCompanyBySubdomain(c.Request().Context(), subdomain)
	if err != nil {
		return writeError(c, log, err)
	}
	if company == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no company on this subdomain"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"subdomain":     company.Subdomain,
		"company":       company.Name,
		"trial_ends_at": company.TrialEndsAt,
	})
}
