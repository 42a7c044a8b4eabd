package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/chetgo/sahod-solutions/internal/clock"
	"github.com/chetgo/sahod-solutions/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func makeSessionManager(now time.Time) (*SessionManager, *fakeRegistrationRepo, *fakeSubdomainRepo, *clock.Manual) {
	clk := clock.NewManual(now)
	subdomainRepo := newFakeSubdomainRepo()
	registrationRepo := newFakeRegistrationRepo()
	registry := NewSubdomainRegistry(subdomainRepo, clk, zap.NewNop())
	sessions := NewSessionManager(registrationRepo, registry, clk, zap.NewNop())
	return sessions, registrationRepo, subdomainRepo, clk
}

func companyInfoPayload() StepPayload {
	return StepPayload{CompanyInfo: &model.CompanyInfo{
		Name:     "Kapeng Barako Trading",
		Industry: "Food & Beverage",
		City:     "Batangas",
		Province: "Batangas",
	}}
}

func adminAccountPayload(subdomain string) StepPayload {
	return StepPayload{AdminAccount: &model.AdminAccount{
		FirstName: "Maria",
		LastName:  "Santos",
		Email:     "maria@example.ph",
		Password:  "correct-horse",
		Subdomain: subdomain,
	}}
}

func TestSessionManager_GenerateRegistrationID(t *testing.T) {
	t.Parallel()

	sessions, _, _, _ := makeSessionManager(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))

	id := sessions.GenerateRegistrationID()
	assert.True(t, strings.HasPrefix(id, "reg_"), "id %q", id)
	assert.Len(t, strings.Split(id, "_"), 3, "id %q", id)

	other := sessions.GenerateRegistrationID()
	assert.NotEqual(t, id, other)
}

func TestSessionManager_SaveStep(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	t.Run("creates the draft on first save with a TTL", func(t *testing.T) {
		sessions, repo, _, _ := makeSessionManager(now)

		require.NoError(t, sessions.SaveStep(context.Background(), "reg_1", model.StepCompanyInfo, companyInfoPayload()))

		draft := repo.drafts["reg_1"]
		require.NotNil(t, draft)
		assert.Equal(t, 1, draft.CurrentStep)
		assert.Equal(t, []int{1}, draft.CompletedSteps)
		assert.Equal(t, now.Add(defaultDraftTTL), draft.ExpiresAt)
		require.NotNil(t, draft.CompanyInfo)
		assert.Equal(t, "Kapeng Barako Trading", draft.CompanyInfo.Name)
	})

	t.Run("unions completed steps instead of replacing", func(t *testing.T) {
		sessions, repo, _, _ := makeSessionManager(now)

		require.NoError(t, sessions.SaveStep(context.Background(), "reg_1", model.StepCompanyInfo, companyInfoPayload()))
		require.NoError(t, sessions.SaveStep(context.Background(), "reg_1", model.StepBusinessDetails, StepPayload{
			BusinessDetails: &model.BusinessDetails{TIN: "123-456-789-000"},
		}))

		draft := repo.drafts["reg_1"]
		require.NotNil(t, draft)
		assert.Equal(t, []int{1, 2}, draft.CompletedSteps)
		assert.Equal(t, 2, draft.CurrentStep)
		assert.NotNil(t, draft.CompanyInfo, "earlier payload must survive later saves")
	})

	t.Run("keeps the wizard pointer forward-only", func(t *testing.T) {
		sessions, repo, _, _ := makeSessionManager(now)

		require.NoError(t, sessions.SaveStep(context.Background(), "reg_1", model.StepBusinessDetails, StepPayload{
			BusinessDetails: &model.BusinessDetails{},
		}))
		require.NoError(t, sessions.SaveStep(context.Background(), "reg_1", model.StepCompanyInfo, companyInfoPayload()))

		draft := repo.drafts["reg_1"]
		assert.Equal(t, 2, draft.CurrentStep)
		assert.Equal(t, []int{1, 2}, draft.CompletedSteps)
	})

	t.Run("admin step reserves the subdomain", func(t *testing.T) {
		sessions, _, subdomains, _ := makeSessionManager(now)

		require.NoError(t, sessions.SaveStep(context.Background(), "reg_1", model.StepAdminAccount, adminAccountPayload("Acme-Co")))

		rec := subdomains.records["acme-co"]
		require.NotNil(t, rec)
		assert.Equal(t, model.SubdomainStatusPending, rec.Status)
		assert.Equal(t, "reg_1", *rec.RegistrationID)
	})

	t.Run("admin step fails and saves nothing when the subdomain is held", func(t *testing.T) {
		sessions, repo, subdomains, _ := makeSessionManager(now)
		registry := NewSubdomainRegistry(subdomains, clock.NewManual(now), zap.NewNop())
		require.NoError(t, registry.Reserve(context.Background(), "acme-co", "reg_other"))

		err := sessions.SaveStep(context.Background(), "reg_1", model.StepAdminAccount, adminAccountPayload("acme-co"))
		var conflict *ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "reg_other", conflict.HeldBy)
		assert.NotContains(t, repo.drafts, "reg_1")
	})

	t.Run("rejects out-of-range steps and missing payloads", func(t *testing.T) {
		sessions, _, _, _ := makeSessionManager(now)
		var validation *ValidationError

		assert.ErrorAs(t, sessions.SaveStep(context.Background(), "reg_1", 0, companyInfoPayload()), &validation)
		assert.ErrorAs(t, sessions.SaveStep(context.Background(), "reg_1", 7, companyInfoPayload()), &validation)
		assert.ErrorAs(t, sessions.SaveStep(context.Background(), "reg_1", model.StepCompanyInfo, StepPayload{}), &validation)
		assert.ErrorAs(t, sessions.SaveStep(context.Background(), "reg_1", model.StepAdminAccount, StepPayload{
			AdminAccount: &model.AdminAccount{Email: "maria@example.ph", Password: "short", Subdomain: "acme-co"},
		}), &validation)
	})

	t.Run("an expired draft is restarted fresh", func(t *testing.T) {
		sessions, repo, _, clk := makeSessionManager(now)

		require.NoError(t, sessions.SaveStep(context.Background(), "reg_1", model.StepCompanyInfo, companyInfoPayload()))
		clk.Advance(defaultDraftTTL + time.Hour)

		require.NoError(t, sessions.SaveStep(context.Background(), "reg_1", model.StepBusinessDetails, StepPayload{
			BusinessDetails: &model.BusinessDetails{},
		}))

		draft := repo.drafts["reg_1"]
		assert.Nil(t, draft.CompanyInfo, "payloads of the lapsed draft must not leak into the new one")
		assert.Equal(t, []int{2}, draft.CompletedSteps)
	})
}

func TestSessionManager_GetDraft(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	t.Run("returns not found for unknown ids", func(t *testing.T) {
		sessions, _, _, _ := makeSessionManager(now)
		_, err := sessions.GetDraft(context.Background(), "reg_ghost")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("retries a transient read and returns the draft", func(t *testing.T) {
		sessions, repo, _, _ := makeSessionManager(now)
		require.NoError(t, sessions.SaveStep(context.Background(), "reg_1", model.StepCompanyInfo, companyInfoPayload()))

		repo.getCalls = 0
		repo.getErrOnce = &TransientError{Op: "get draft", Err: context.DeadlineExceeded}

		draft, err := sessions.GetDraft(context.Background(), "reg_1")
		require.NoError(t, err)
		require.NotNil(t, draft.CompanyInfo)
		assert.Equal(t, 2, repo.getCalls)
	})

	t.Run("treats an expired draft as not found", func(t *testing.T) {
		sessions, _, _, clk := makeSessionManager(now)
		require.NoError(t, sessions.SaveStep(context.Background(), "reg_1", model.StepCompanyInfo, companyInfoPayload()))

		clk.Advance(defaultDraftTTL + time.Second)

		_, err := sessions.GetDraft(context.Background(), "reg_1")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestSessionManager_CompleteRegistration(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	saveRequiredSteps := func(t *testing.T, sessions *SessionManager) {
		t.Helper()
		require.NoError(t, sessions.SaveStep(context.Background(), "reg_1", model.StepCompanyInfo, companyInfoPayload()))
		require.NoError(t, sessions.SaveStep(context.Background(), "reg_1", model.StepAdminAccount, adminAccountPayload("acme-co")))
	}

	t.Run("promotes the draft to a company", func(t *testing.T) {
		sessions, repo, subdomains, _ := makeSessionManager(now)
		saveRequiredSteps(t, sessions)

		result, err := sessions.CompleteRegistration(context.Background(), "reg_1", &model.PlanSelection{PlanCode: "starter"})
		require.NoError(t, err)
		assert.Equal(t, "acme-co", result.Subdomain)
		assert.NotEmpty(t, result.CompanyID)

		company := repo.companies[result.CompanyID]
		require.NotNil(t, company)
		assert.Equal(t, "Kapeng Barako Trading", company.Name)
		assert.Equal(t, "acme-co", company.Subdomain)
		assert.Equal(t, "starter", company.PlanCode)
		assert.Equal(t, now.Add(defaultTrialPeriod), company.TrialEndsAt)

		user := repo.users[result.AdminUserID]
		require.NotNil(t, user)
		assert.Equal(t, "maria@example.ph", user.Email)
		assert.Equal(t, "admin", user.Role)
		assert.Equal(t, result.CompanyID, user.CompanyID)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("correct-horse")))

		rec := subdomains.records["acme-co"]
		require.NotNil(t, rec)
		assert.Equal(t, model.SubdomainStatusActive, rec.Status)
		assert.Equal(t, result.CompanyID, *rec.CompanyID)
		assert.Nil(t, rec.ExpiresAt)

		draft := repo.drafts["reg_1"]
		assert.True(t, draft.CompanyCreated)
		require.NotNil(t, draft.CompanyID)
		assert.Equal(t, result.CompanyID, *draft.CompanyID)
	})

	t.Run("rejects a draft missing required steps without writing", func(t *testing.T) {
		sessions, repo, subdomains, _ := makeSessionManager(now)
		require.NoError(t, sessions.SaveStep(context.Background(), "reg_1", model.StepCompanyInfo, companyInfoPayload()))

		_, err := sessions.CompleteRegistration(context.Background(), "reg_1", nil)
		assert.ErrorIs(t, err, ErrIncompleteData)
		assert.Empty(t, repo.companies)
		assert.Empty(t, repo.users)
		assert.Empty(t, subdomains.records)
		assert.False(t, repo.drafts["reg_1"].CompanyCreated)
	})

	t.Run("returns not found for an expired draft", func(t *testing.T) {
		sessions, _, _, clk := makeSessionManager(now)
		saveRequiredSteps(t, sessions)
		clk.Advance(defaultDraftTTL + time.Second)

		_, err := sessions.CompleteRegistration(context.Background(), "reg_1", nil)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("completing twice creates no second company", func(t *testing.T) {
		sessions, repo, _, _ := makeSessionManager(now)
		saveRequiredSteps(t, sessions)

		first, err := sessions.CompleteRegistration(context.Background(), "reg_1", nil)
		require.NoError(t, err)
		second, err := sessions.CompleteRegistration(context.Background(), "reg_1", nil)
		require.NoError(t, err)

		assert.Equal(t, first.CompanyID, second.CompanyID)
		assert.Equal(t, first.Subdomain, second.Subdomain)
		assert.Equal(t, first.AdminUserID, second.AdminUserID)
		assert.Len(t, repo.companies, 1)
		assert.Len(t, repo.users, 1)
	})

	t.Run("re-complete surfaces a failed admin user lookup", func(t *testing.T) {
		sessions, repo, _, _ := makeSessionManager(now)
		saveRequiredSteps(t, sessions)

		_, err := sessions.CompleteRegistration(context.Background(), "reg_1", nil)
		require.NoError(t, err)

		repo.userLookupErr = &TransientError{Op: "get user by email", Err: context.DeadlineExceeded}
		_, err = sessions.CompleteRegistration(context.Background(), "reg_1", nil)
		require.Error(t, err)
		assert.True(t, IsTransient(err), "the store error must surface, not an empty result")
	})

	t.Run("re-complete with a vanished admin user is not found", func(t *testing.T) {
		sessions, repo, _, _ := makeSessionManager(now)
		saveRequiredSteps(t, sessions)

		_, err := sessions.CompleteRegistration(context.Background(), "reg_1", nil)
		require.NoError(t, err)

		repo.userLookupNone = true
		_, err = sessions.CompleteRegistration(context.Background(), "reg_1", nil)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("duplicate admin email is a validation error", func(t *testing.T) {
		sessions, repo, _, _ := makeSessionManager(now)
		repo.users["usr_existing"] = &model.User{ID: "usr_existing", Email: "maria@example.ph"}
		saveRequiredSteps(t, sessions)

		_, err := sessions.CompleteRegistration(context.Background(), "reg_1", nil)
		var validation *ValidationError
		require.ErrorAs(t, err, &validation)
		assert.Equal(t, "email", validation.Field)
	})
}
