package model

import "time"

// User represents an account on a company's payroll workspace. The
// first user is the admin created during registration.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(40)"`
	Email     string    `json:"email" gorm:"type:varchar(100);uniqueIndex;not null"`
	Password  string    `json:"-" gorm:"type:varchar(255)"`
	FirstName string    `json:"first_name" gorm:"type:varchar(100)"`
	LastName  string    `json:"last_name" gorm:"type:varchar(100)"`
	CompanyID string    `json:"company_id" gorm:"type:varchar(40);index;not null"`
	Role      string    `json:"role" gorm:"type:varchar(50);not null;default:'member'"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}
