package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chetgo/sahod-solutions/internal/clock"
	"github.com/chetgo/sahod-solutions/internal/model"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// RegistrationRepository persists drafts and the records created when
// a draft is promoted. WithTx must run fn inside one transaction.
type RegistrationRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Get(ctx context.Context, registrationID string) (*model.RegistrationDraft, error)
	Save(ctx context.Context, draft *model.RegistrationDraft) error
	CreateCompany(ctx context.Context, company *model.Company) error
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

const (
	defaultDraftTTL    = 7 * 24 * time.Hour
	defaultTrialPeriod = 30 * 24 * time.Hour
	minPasswordLen     = 8
)

// StepPayload carries the body of one wizard step save. Exactly the
// field matching the step number must be set.
type StepPayload struct {
	CompanyInfo     *model.CompanyInfo
	BusinessDetails *model.BusinessDetails
	AdminAccount    *model.AdminAccount
	PlanSelection   *model.PlanSelection
}

// Completion is the outcome of promoting a draft to a live company.
type Completion struct {
	CompanyID   string
	Subdomain   string
	AdminUserID string
	AdminEmail  string
}

// SessionManager orchestrates the multi-step registration draft and
// drives the terminal promotion to a company.
type SessionManager struct {
	repo        RegistrationRepository
	registry    *SubdomainRegistry
	clock       clock.Clock
	log         *zap.Logger
	draftTTL    time.Duration
	trialPeriod time.Duration
}

type SessionManagerOption func(*SessionManager)

// WithDraftTTL overrides how long an unfinished draft survives.
func WithDraftTTL(d time.Duration) SessionManagerOption {
	return func(m *SessionManager) {
		if d > 0 {
			m.draftTTL = d
		}
	}
}

// WithTrialPeriod overrides the trial window stamped on new companies.
func WithTrialPeriod(d time.Duration) SessionManagerOption {
	return func(m *SessionManager) {
		if d > 0 {
			m.trialPeriod = d
		}
	}
}

func NewSessionManager(repo RegistrationRepository, registry *SubdomainRegistry, clk clock.Clock, log *zap.Logger, opts ...SessionManagerOption) *SessionManager {
	m := &SessionManager{
		repo:        repo,
		registry:    registry,
		clock:       clk,
		log:         log,
		draftTTL:    defaultDraftTTL,
		trialPeriod: defaultTrialPeriod,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GenerateRegistrationID produces a fresh draft id. Uniqueness is
// advisory only (timestamp plus random suffix); collisions are not
// detected.
func (m *SessionManager) GenerateRegistrationID() string {
	return newID("reg", m.clock.Now())
}

// SaveStep upserts the draft with the payload for one wizard step.
// The completed-step set grows by union, so a later save never erases
// earlier completion markers, and the wizard pointer only moves
// forward. Saving the admin-account step reserves its subdomain for
// this registration before anything is written to the draft.
func (m *SessionManager) SaveStep(ctx context.Context, registrationID string, step int, payload StepPayload) error {
	if registrationID == "" {
		return &ValidationError{Field: "registration_id", Reason: "must not be empty"}
	}
	if step < model.StepCompanyInfo || step > model.StepPlanSelection {
		return &ValidationError{Field: "step", Reason: fmt.Sprintf("must be between %d and %d", model.StepCompanyInfo, model.StepPlanSelection)}
	}
	if err := validateStepPayload(step, payload); err != nil {
		return err
	}

	if step == model.StepAdminAccount {
		payload.AdminAccount.Subdomain = Normalize(payload.AdminAccount.Subdomain)
		if err := m.registry.Reserve(ctx, payload.AdminAccount.Subdomain, registrationID); err != nil {
			return err
		}
	}

	now := m.clock.Now()
	return m.repo.WithTx(ctx, func(txCtx context.Context) error {
		draft, err := m.repo.Get(txCtx, registrationID)
		if err != nil {
			return err
		}
		if draft == nil || draft.ExpiredAt(now) {
			draft = &model.RegistrationDraft{
				RegistrationID: registrationID,
				CreatedAt:      now,
				ExpiresAt:      now.Add(m.draftTTL),
			}
		}

		switch step {
		case model.StepCompanyInfo:
			draft.CompanyInfo = payload.CompanyInfo
		case model.StepBusinessDetails:
			draft.BusinessDetails = payload.BusinessDetails
		case model.StepAdminAccount:
			draft.AdminAccount = payload.AdminAccount
		case model.StepPlanSelection:
			draft.PlanSelection = payload.PlanSelection
		}
		draft.MarkStep(step)
		draft.UpdatedAt = now

		return m.repo.Save(txCtx, draft)
	})
}

// GetDraft loads a draft. Expired drafts are logically deleted and
// reported as not found.
func (m *SessionManager) GetDraft(ctx context.Context, registrationID string) (*model.RegistrationDraft, error) {
	var draft *model.RegistrationDraft
	err := withRetry(ctx, func() error {
		var err error
		draft, err = m.repo.Get(ctx, registrationID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if draft == nil || draft.ExpiredAt(m.clock.Now()) {
		return nil, fmt.Errorf("registration %s: %w", registrationID, ErrNotFound)
	}
	return draft, nil
}

// CompleteRegistration promotes a finished draft: it creates the
// company and its admin user, activates the reserved subdomain and
// marks the draft completed, all inside one transaction. finalPlan may
// carry a last-moment plan choice; nil keeps whatever step 4 saved.
//
// Completing an already-completed draft performs no writes and returns
// the original outcome.
func (m *SessionManager) CompleteRegistration(ctx context.Context, registrationID string, finalPlan *model.PlanSelection) (Completion, error) {
	now := m.clock.Now()

	draft, err := m.GetDraft(ctx, registrationID)
	if err != nil {
		return Completion{}, err
	}

	if draft.CompanyCreated && draft.CompanyID != nil {
		return m.completedResult(ctx, draft)
	}

	// All prerequisite payloads must be present before any write.
	if draft.CompanyInfo == nil || draft.AdminAccount == nil {
		return Completion{}, fmt.Errorf("registration %s: %w", registrationID, ErrIncompleteData)
	}
	if finalPlan != nil {
		draft.PlanSelection = finalPlan
		draft.MarkStep(model.StepPlanSelection)
	}

	admin := draft.AdminAccount
	hash, err := bcrypt.GenerateFromPassword([]byte(admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return Completion{}, fmt.Errorf("hash admin password: %w", err)
	}

	info := draft.CompanyInfo
	company := &model.Company{
		ID:            newID("comp", now),
		Name:          info.Name,
		Industry:      info.Industry,
		EmployeeCount: info.EmployeeCount,
		AddressLine:   info.AddressLine,
		City:          info.City,
		Province:      info.Province,
		PostalCode:    info.PostalCode,
		Subdomain:     admin.Subdomain,
		TrialEndsAt:   now.Add(m.trialPeriod),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if draft.BusinessDetails != nil {
		company.TIN = draft.BusinessDetails.TIN
	}
	if draft.PlanSelection != nil {
		company.PlanCode = draft.PlanSelection.PlanCode
	}

	user := &model.User{
		ID:        newID("usr", now),
		Email:     strings.ToLower(admin.Email),
		Password:  string(hash),
		FirstName: admin.FirstName,
		LastName:  admin.LastName,
		CompanyID: company.ID,
		Role:      "admin",
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = m.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := m.repo.CreateCompany(txCtx, company); err != nil {
			return err
		}
		if err := m.repo.CreateUser(txCtx, user); err != nil {
			if errors.Is(err, ErrAlreadyExists) {
				return &ValidationError{Field: "email", Reason: "already registered"}
			}
			return err
		}
		if err := m.registry.Activate(txCtx, admin.Subdomain, company.ID); err != nil {
			return err
		}

		draft.CompanyCreated = true
		draft.CompanyID = &company.ID
		draft.MarkStep(model.StepActivation)
		draft.UpdatedAt = now
		return m.repo.Save(txCtx, draft)
	})
	if err != nil {
		return Completion{}, err
	}

	m.log.Info("registration completed",
		zap.String("registration_id", registrationID),
		zap.String("company_id", company.ID),
		zap.String("subdomain", company.Subdomain))

	return Completion{
		CompanyID:   company.ID,
		Subdomain:   company.Subdomain,
		AdminUserID: user.ID,
		AdminEmail:  user.Email,
	}, nil
}

// completedResult rebuilds the Completion for a draft that was already
// promoted, so a repeated complete call stays idempotent. The admin
// user must resolve: the caller mints a session token from the result,
// and a token with a blank user id would be worse than an error.
func (m *SessionManager) completedResult(ctx context.Context, draft *model.RegistrationDraft) (Completion, error) {
	if draft.AdminAccount == nil {
		return Completion{}, fmt.Errorf("registration %s: %w", draft.RegistrationID, ErrIncompleteData)
	}

	result := Completion{
		CompanyID:  *draft.CompanyID,
		Subdomain:  draft.AdminAccount.Subdomain,
		AdminEmail: strings.ToLower(draft.AdminAccount.Email),
	}
	user, err := m.repo.GetUserByEmail(ctx, result.AdminEmail)
	if err != nil {
		return Completion{}, err
	}
	if user == nil {
		return Completion{}, fmt.Errorf("admin user %s: %w", result.AdminEmail, ErrNotFound)
	}
	result.AdminUserID = user.ID
	return result, nil
}

func validateStepPayload(step int, payload StepPayload) error {
	switch step {
	case model.StepCompanyInfo:
		if payload.CompanyInfo == nil {
			return &ValidationError{Field: "company_info", Reason: "payload is required"}
		}
		if strings.TrimSpace(payload.CompanyInfo.Name) == "" {
			return &ValidationError{Field: "company_info.name", Reason: "must not be empty"}
		}
	case model.StepBusinessDetails:
		if payload.BusinessDetails == nil {
			return &ValidationError{Field: "business_details", Reason: "payload is required"}
		}
	case model.StepAdminAccount:
		admin := payload.AdminAccount
		if admin == nil {
			return &ValidationError{Field: "admin_account", Reason: "payload is required"}
		}
		if !strings.Contains(admin.Email, "@") {
			return &ValidationError{Field: "admin_account.email", Reason: "must be a valid email address"}
		}
		if len(admin.Password) < minPasswordLen {
			return &ValidationError{Field: "admin_account.password", Reason: fmt.Sprintf("must be at least %d characters", minPasswordLen)}
		}
		if strings.TrimSpace(admin.Subdomain) == "" {
			return &ValidationError{Field: "admin_account.subdomain", Reason: "must not be empty"}
		}
	case model.StepPlanSelection:
		if payload.PlanSelection == nil {
			return &ValidationError{Field: "plan_selection", Reason: "payload is required"}
		}
		if payload.PlanSelection.PlanCode == "" {
			return &ValidationError{Field: "plan_selection.plan_code", Reason: "must not be empty"}
		}
	}
	return nil
}
