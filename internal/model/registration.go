package model

import (
	"slices"
	"time"
)

// Wizard step numbers. Steps 1 and 3 are required for promotion;
// 2 and 4 are optional.
const (
	StepCompanyInfo     = 1
	StepBusinessDetails = 2
	StepAdminAccount    = 3
	StepPlanSelection   = 4
	StepActivation      = 5
)

// CompanyInfo is the payload of wizard step 1.
type CompanyInfo struct {
	Name          string `json:"name"`
	Industry      string `json:"industry"`
	EmployeeCount int    `json:"employee_count,omitempty"`
	AddressLine   string `json:"address_line,omitempty"`
	City          string `json:"city,omitempty"`
	Province      string `json:"province,omitempty"`
	PostalCode    string `json:"postal_code,omitempty"`
}

// BusinessDetails is the optional payload of wizard step 2. The
// government numbers are stored as entered; formatting and validation
// of TIN/SSS/PhilHealth/Pag-IBIG formats happens client-side.
type BusinessDetails struct {
	TIN              string `json:"tin,omitempty"`
	SSSNumber        string `json:"sss_number,omitempty"`
	PhilHealthNumber string `json:"philhealth_number,omitempty"`
	PagIBIGNumber    string `json:"pagibig_number,omitempty"`
	BusinessType     string `json:"business_type,omitempty"`
}

// AdminAccount is the payload of wizard step 3. Saving it reserves the
// requested subdomain for this registration.
type AdminAccount struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password,omitempty"`
	Subdomain string `json:"subdomain"`
}

// PlanSelection is the optional payload of wizard step 4.
type PlanSelection struct {
	PlanCode     string `json:"plan_code"`
	BillingCycle string `json:"billing_cycle,omitempty"`
}

// RegistrationDraft is the persisted state of an in-progress signup
// wizard, keyed by registration id. Step payloads stay null until the
// corresponding step is saved.
type RegistrationDraft struct {
	RegistrationID  string           `json:"registration_id" gorm:"primaryKey;type:varchar(60)"`
	CurrentStep     int              `json:"current_step"`
	CompletedSteps  []int            `json:"completed_steps" gorm:"type:jsonb;serializer:json"`
	CompanyInfo     *CompanyInfo     `json:"company_info,omitempty" gorm:"type:jsonb;serializer:json"`
	BusinessDetails *BusinessDetails `json:"business_details,omitempty" gorm:"type:jsonb;serializer:json"`
	AdminAccount    *AdminAccount    `json:"admin_account,omitempty" gorm:"type:jsonb;serializer:json"`
	PlanSelection   *PlanSelection   `json:"plan_selection,omitempty" gorm:"type:jsonb;serializer:json"`
	CompanyCreated  bool             `json:"company_created"`
	CompanyID       *string          `json:"company_id,omitempty" gorm:"type:varchar(40)"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	ExpiresAt       time.Time        `json:"expires_at" gorm:"index"`
}

// TableName returns the table name for the RegistrationDraft model
func (RegistrationDraft) TableName() string {
	return "draft_registrations"
}

// ExpiredAt reports whether the draft's TTL has lapsed. Expired drafts
// are treated as not found by readers.
func (d *RegistrationDraft) ExpiredAt(now time.Time) bool {
	return d.ExpiresAt.Before(now)
}

// HasStep reports whether the given step number has been completed.
func (d *RegistrationDraft) HasStep(step int) bool {
	return slices.Contains(d.CompletedSteps, step)
}

// MarkStep records a completed step, keeping the set semantics and the
// forward-only wizard pointer.
func (d *RegistrationDraft) MarkStep(step int) {
	if !d.HasStep(step) {
		d.CompletedSteps = append(d.CompletedSteps, step)
		slices.Sort(d.CompletedSteps)
	}
	if step > d.CurrentStep {
		d.CurrentStep = step
	}
}
