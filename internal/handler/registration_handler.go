package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/chetgo/sahod-solutions/internal/model"
	"github.com/chetgo/sahod-solutions/internal/service"
	"github.com/chetgo/sahod-solutions/pkg/jwtutil"
	"github.com/chetgo/sahod-solutions/pkg/logger"
	"github.com/chetgo/sahod-solutions/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RegistrationHandler exposes the signup wizard over HTTP.
type RegistrationHandler struct {
	sessions  *service.SessionManager
	autosaver *service.AutoSaver
}

func NewRegistrationHandler(sessions *service.SessionManager, autosaver *service.AutoSaver) *RegistrationHandler {
	return &RegistrationHandler{sessions: sessions, autosaver: autosaver}
}

// Create hands out a fresh registration id for a new wizard session.
// The draft record itself is created on the first step save.
func (h *RegistrationHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordDraftOperation("create")

	registrationID := h.sessions.GenerateRegistrationID()
	log.Info("registration started", zap.String("registration_id", registrationID))

	return c.JSON(http.StatusCreated, echo.Map{
		"registration_id": registrationID,
	})
}

// SaveStep persists one wizard step. With ?autosave=true the write is
// debounced: rapid successive saves collapse into one after an idle
// window, and the request returns 202 before anything is persisted.
func (h *RegistrationHandler) SaveStep(c echo.Context) error {
	log := logger.FromEcho(c)

	registrationID := c.Param("id")
	step, err := strconv.Atoi(c.Param("step"))
	if err != nil {
		prometheus.RecordError("validation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid step number"})
	}

	payload, err := bindStepPayload(c, step)
	if err != nil {
		log.Error("failed to parse step payload", zap.Int("step", step), zap.Error(err))
		prometheus.RecordError("validation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	if c.QueryParam("autosave") == "true" {
		prometheus.RecordDraftOperation("autosave")
		h.autosaver.Queue(registrationID, step, payload)
		return c.JSON(http.StatusAccepted, echo.Map{
			"registration_id": registrationID,
			"step":            step,
			"queued":          true,
		})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := h.sessions.SaveStep(c.Request().Context(), registrationID, step, payload); err != nil {
		// Saving the admin step doubles as the subdomain reservation.
		if step == model.StepAdminAccount {
			prometheus.RecordSubdomainOperation("reserve", "error")
		}
		return writeError(c, log, err)
	}
	if step == model.StepAdminAccount {
		prometheus.RecordSubdomainOperation("reserve", "ok")
	}

	prometheus.RecordDraftOperation("save_step")
	log.Info("registration step saved",
		zap.String("registration_id", registrationID),
		zap.Int("step", step))

	return c.JSON(http.StatusOK, echo.Map{
		"registration_id": registrationID,
		"step":            step,
	})
}

// GetDraft returns the draft state so a returning visitor can resume
// the wizard. Expired drafts read as not found.
func (h *RegistrationHandler) GetDraft(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordDraftOperation("get")

	defer prometheus.TrackDBOperation("query")(time.Now())
	draft, err := h.sessions.GetDraft(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, log, err)
	}

	// Never echo the admin password back out.
	if draft.AdminAccount != nil {
		admin := *draft.AdminAccount
		admin.Password = ""
		draft.AdminAccount = &admin
	}

	return c.JSON(http.StatusOK, draft)
}

// Complete promotes the draft to a live company and returns the
// subdomain to redirect to, plus an admin session token so the client
// lands authenticated on the new tenant portal.
func (h *RegistrationHandler) Complete(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordDraftOperation("complete")

	registrationID := c.Param("id")

	var req struct {
		Plan *model.PlanSelection `json:"plan,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("failed to parse completion request", zap.Error(err))
		prometheus.RecordError("validation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	result, err := h.sessions.CompleteRegistration(c.Request().Context(), registrationID, req.Plan)
	if err != nil {
		return writeError(c, log, err)
	}

	token, err := jwtutil.GenerateToken(result.AdminEmail, result.AdminUserID, result.CompanyID, result.Subdomain, "admin")
	if err != nil {
		log.Error("failed to generate admin session token", zap.Error(err))
		prometheus.RecordError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}
	prometheus.RecordSubdomainOperation("activate", "ok")
	prometheus.IncreaseActiveTokens()
	prometheus.CompletedRegistrationCounter.Inc()

	log.Info("registration completed",
		zap.String("registration_id", registrationID),
		zap.String("company_id", result.CompanyID),
		zap.String("subdomain", result.Subdomain))

	return c.JSON(http.StatusOK, echo.Map{
		"message":    "Registration completed successfully",
		"company_id": result.CompanyID,
		"subdomain":  result.Subdomain,
		"token":      token,
	})
}

// bindStepPayload decodes the request body as the payload type for the
// given step. Unknown steps bind nothing; the service rejects them.
func bindStepPayload(c echo.Context, step int) (service.StepPayload, error) {
	var payload service.StepPayload
	switch step {
	case model.StepCompanyInfo:
		var p model.CompanyInfo
		if err := c.Bind(&p); err != nil {
			return payload, err
		}
		payload.CompanyInfo = &p
	case model.StepBusinessDetails:
		var p model.BusinessDetails
		if err := c.Bind(&p); err != nil {
			return payload, err
		}
		payload.BusinessDetails = &p
	case model.StepAdminAccount:
		var p model.AdminAccount
		if err := c.Bind(&p); err != nil {
			return payload, err
		}
		payload.AdminAccount = &p
	case model.StepPlanSelection:
		var p model.PlanSelection
		if err := c.Bind(&p); err != nil {
			return payload, err
		}
		payload.PlanSelection = &p
	}
	return payload, nil
}
