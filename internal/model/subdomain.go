package model

import "time"

// SubdomainStatus is the stored lifecycle state of a subdomain record.
type SubdomainStatus string

// Expiry is not a stored state: a lapsed pending record is deleted,
// it never transitions.
const (
	SubdomainStatusPending SubdomainStatus = "pending"
	SubdomainStatusActive  SubdomainStatus = "active"
)

// SubdomainRecord maps a human-chosen subdomain to a company, or to a
// pending registration while the signup wizard is still in flight.
// Uniqueness of the namespace is enforced by the primary key.
type SubdomainRecord struct {
	Subdomain      string          `json:"subdomain" gorm:"primaryKey;type:varchar(30)"`
	CompanyID      *string         `json:"company_id,omitempty" gorm:"type:varchar(40);index"`
	Status         SubdomainStatus `json:"status" gorm:"type:varchar(20);not null"`
	RegistrationID *string         `json:"registration_id,omitempty" gorm:"type:varchar(60);index"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	// ExpiresAt is present only while the record is pending; an
	// activated subdomain never expires.
	ExpiresAt *time.Time `json:"expires_at,omitempty" gorm:"index"`
}

// TableName returns the table name for the SubdomainRecord model
func (SubdomainRecord) TableName() string {
	return "subdomains"
}

// ExpiredAt reports whether a pending reservation has lapsed at the
// given instant.
func (r *SubdomainRecord) ExpiredAt(now time.Time) bool {
	return r.Status == SubdomainStatusPending && r.ExpiresAt != nil && r.ExpiresAt.Before(now)
}

// OwnedBy reports whether the record is held by the given registration.
func (r *SubdomainRecord) OwnedBy(registrationID string) bool {
	return registrationID != "" && r.RegistrationID != nil && *r.RegistrationID == registrationID
}
