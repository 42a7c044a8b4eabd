package model

import "time"

// Company represents a registered tenant. It is created exactly once
// per successful registration and owns its subdomain permanently.
type Company struct {
	ID            string    `json:"id" gorm:"primaryKey;type:varchar(40)"`
	Name          string    `json:"name" gorm:"type:varchar(100);not null"`
	Industry      string    `json:"industry" gorm:"type:varchar(100)"`
	EmployeeCount int       `json:"employee_count"`
	AddressLine   string    `json:"address_line" gorm:"type:varchar(255)"`
	City          string    `json:"city" gorm:"type:varchar(100)"`
	Province      string    `json:"province" gorm:"type:varchar(100)"`
	PostalCode    string    `json:"postal_code" gorm:"type:varchar(10)"`
	TIN           string    `json:"tin,omitempty" gorm:"type:varchar(20)"`
	Subdomain     string    `json:"subdomain" gorm:"type:varchar(30);uniqueIndex;not null"`
	PlanCode      string    `json:"plan_code" gorm:"type:varchar(50)"`
	TrialEndsAt   time.Time `json:"trial_ends_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName returns the table name for the Company model
func (Company) TableName() string {
	return "companies"
}
