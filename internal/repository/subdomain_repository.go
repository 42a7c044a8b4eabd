package repository

import (
	"context"
	"errors"
	"time"

	"github.com/chetgo/sahod-solutions/internal/model"
	"github.com/chetgo/sahod-solutions/internal/service"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubdomainRepository is the gorm-backed store for subdomain records.
type SubdomainRepository struct {
	db *gorm.DB
}

func NewSubdomainRepository(db *gorm.DB) *SubdomainRepository {
	return &SubdomainRepository{db: db}
}

// Get returns the record for subdomain, or nil when none exists.
func (r *SubdomainRepository) Get(ctx context.Context, subdomain string) (*model.SubdomainRecord, error) {
	var rec model.SubdomainRecord
	err := conn(ctx, r.db).Where("subdomain = ?", subdomain).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, mapError("get subdomain", err)
	}
	return &rec, nil
}

// CreateIfAbsent inserts the record only when no row exists for its
// key. The insert is a single conditional write, so two concurrent
// reservations of the same subdomain cannot both succeed.
func (r *SubdomainRepository) CreateIfAbsent(ctx context.Context, rec *model.SubdomainRecord) error {
	res := conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subdomain"}},
		DoNothing: true,
	}).Create(rec)
	if res.Error != nil {
		return mapError("create subdomain", res.Error)
	}
	if res.RowsAffected == 0 {
		return service.ErrAlreadyExists
	}
	return nil
}

// Touch refreshes the record's updated_at timestamp.
func (r *SubdomainRepository) Touch(ctx context.Context, subdomain string, now time.Time) error {
	err := conn(ctx, r.db).Model(&model.SubdomainRecord{}).
		Where("subdomain = ?", subdomain).
		Update("updated_at", now).Error
	return mapError("touch subdomain", err)
}

// Delete removes the record. Deleting an absent record is not an error.
func (r *SubdomainRepository) Delete(ctx context.Context, subdomain string) error {
	err := conn(ctx, r.db).Where("subdomain = ?", subdomain).
		Delete(&model.SubdomainRecord{}).Error
	return mapError("delete subdomain", err)
}

// Activate binds the record to a company, marks it active and clears
// its expiry. Returns false when no record exists for the subdomain.
func (r *SubdomainRepository) Activate(ctx context.Context, subdomain, companyID string, now time.Time) (bool, error) {
	res := conn(ctx, r.db).Model(&model.SubdomainRecord{}).
		Where("subdomain = ?", subdomain).
		Updates(map[string]interface{}{
			"company_id": companyID,
			"status":     model.SubdomainStatusActive,
			"expires_at": nil,
			"updated_at": now,
		})
	if res.Error != nil {
		return false, mapError("activate subdomain", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// DeleteExpired removes up to limit lapsed pending reservations and
// returns how many rows went away.
func (r *SubdomainRepository) DeleteExpired(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	res := conn(ctx, r.db).Exec(
		`DELETE FROM subdomains WHERE subdomain IN (
			SELECT subdomain FROM subdomains
			WHERE status = ? AND expires_at < ?
			LIMIT ?
		)`,
		model.SubdomainStatusPending, cutoff, limit,
	)
	if res.Error != nil {
		return 0, mapError("delete expired subdomains", res.Error)
	}
	return int(res.RowsAffected), nil
}
