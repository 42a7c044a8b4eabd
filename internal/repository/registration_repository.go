package repository

import (
	"context"
	"errors"

	"github.com/chetgo/sahod-solutions/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RegistrationRepository is the gorm-backed store for registration
// drafts and the company/user records a completed draft produces.
type RegistrationRepository struct {
	db *gorm.DB
}

func NewRegistrationRepository(db *gorm.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// WithTx runs fn inside one transaction. Other repositories called
// with the same ctx join it.
func (r *RegistrationRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.db, fn)
}

// draftQuery returns the handle for draft reads. Inside a transaction
// the read takes a row lock, so two concurrent saves of the same draft
// cannot interleave their read-modify-write of the completed-steps set
// and lose one step's marker.
func (r *RegistrationRepository) draftQuery(ctx context.Context) *gorm.DB {
	q := conn(ctx, r.db)
	if txFromContext(ctx) != nil {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

// Get returns the draft, or nil when none exists. Expiry is the
// caller's concern; this is a raw read.
func (r *RegistrationRepository) Get(ctx context.Context, registrationID string) (*model.RegistrationDraft, error) {
	var draft model.RegistrationDraft
	err := r.draftQuery(ctx).Where("registration_id = ?", registrationID).First(&draft).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, mapError("get draft", err)
	}
	return &draft, nil
}

// Save upserts the draft by its primary key.
func (r *RegistrationRepository) Save(ctx context.Context, draft *model.RegistrationDraft) error {
	err := conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "registration_id"}},
		UpdateAll: true,
	}).Create(draft).Error
	return mapError("save draft", err)
}

// CreateCompany inserts a new company record.
func (r *RegistrationRepository) CreateCompany(ctx context.Context, company *model.Company) error {
	return mapError("create company", conn(ctx, r.db).Create(company).Error)
}

// CreateUser inserts a new user record.
func (r *RegistrationRepository) CreateUser(ctx context.Context, user *model.User) error {
	return mapError("create user", conn(ctx, r.db).Create(user).Error)
}

// GetUserByEmail returns the user with the given email, or nil.
func (r *RegistrationRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := conn(ctx, r.db).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, mapError("get user by email", err)
	}
	return &user, nil
}

// GetCompany returns the company with the given id, or nil.
func (r *RegistrationRepository) GetCompany(ctx context.Context, id string) (*model.Company, error) {
	var company model.Company
	err := conn(ctx, r.db).Where("id = ?", id).First(&company).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, mapError("get company", err)
	}
	return &company, nil
}

// GetCompanyBySubdomain returns the company owning subdomain, or nil.
func (r *RegistrationRepository) GetCompanyBySubdomain(ctx context.Context, subdomain string) (*model.Company, error) {
	var company model.Company
	err := conn(ctx, r.db).Where("subdomain = ?", subdomain).First(&company).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, mapError("get company by subdomain", err)
	}
	return &company, nil
}
