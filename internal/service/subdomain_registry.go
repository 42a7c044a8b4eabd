package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/chetgo/sahod-solutions/internal/clock"
	"github.com/chetgo/sahod-solutions/internal/model"
	"go.uber.org/zap"
)

// SubdomainRepository is the storage the registry runs against.
// CreateIfAbsent must be atomic (conditional create keyed by the
// subdomain) so two concurrent reservations cannot both win.
type SubdomainRepository interface {
	Get(ctx context.Context, subdomain string) (*model.SubdomainRecord, error)
	CreateIfAbsent(ctx context.Context, rec *model.SubdomainRecord) error
	Touch(ctx context.Context, subdomain string, now time.Time) error
	Delete(ctx context.Context, subdomain string) error
	Activate(ctx context.Context, subdomain, companyID string, now time.Time) (bool, error)
	DeleteExpired(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// Availability statuses reported by CheckAvailability.
const (
	StatusAvailable = "available"
	StatusTooShort  = "too_short"
	StatusInvalid   = "invalid"
	StatusReserved  = "reserved"
	StatusTaken     = "taken"
	StatusError     = "error"
)

// Availability is the outcome of a subdomain availability check.
type Availability struct {
	Available bool   `json:"available"`
	Status    string `json:"status,omitempty"`
}

const (
	minSubdomainLen = 3
	maxSubdomainLen = 30

	defaultReservationTTL = 7 * 24 * time.Hour
	defaultSweepBatchSize = 500
)

var subdomainPattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]*[a-z0-9])?$`)

// defaultReservedNames is the built-in deny list; deployments extend
// it through configuration.
var defaultReservedNames = []string{
	"www", "api", "admin", "app", "dashboard", "support", "help",
	"mail", "auth", "billing", "portal",
}

// SubdomainRegistry decides whether a subdomain is usable by a given
// registration and manages its lifecycle: (none) -> pending -> active,
// with pending reservations lapsing back to (none) on expiry.
type SubdomainRegistry struct {
	repo           SubdomainRepository
	clock          clock.Clock
	log            *zap.Logger
	reservationTTL time.Duration
	sweepBatchSize int
	reserved       map[string]struct{}
}

type SubdomainRegistryOption func(*SubdomainRegistry)

// WithReservationTTL overrides how long a pending reservation is held.
func WithReservationTTL(d time.Duration) SubdomainRegistryOption {
	return func(r *SubdomainRegistry) {
		if d > 0 {
			r.reservationTTL = d
		}
	}
}

// WithSweepBatchSize caps how many rows one sweep batch deletes.
func WithSweepBatchSize(n int) SubdomainRegistryOption {
	return func(r *SubdomainRegistry) {
		if n > 0 {
			r.sweepBatchSize = n
		}
	}
}

// WithReservedNames replaces the built-in reserved-word list.
func WithReservedNames(names []string) SubdomainRegistryOption {
	return func(r *SubdomainRegistry) {
		reserved := make(map[string]struct{}, len(names))
		for _, n := range names {
			reserved[strings.ToLower(n)] = struct{}{}
		}
		r.reserved = reserved
	}
}

func NewSubdomainRegistry(repo SubdomainRepository, clk clock.Clock, log *zap.Logger, opts ...SubdomainRegistryOption) *SubdomainRegistry {
	r := &SubdomainRegistry{
		repo:           repo,
		clock:          clk,
		log:            log,
		reservationTTL: defaultReservationTTL,
		sweepBatchSize: defaultSweepBatchSize,
	}
	WithReservedNames(defaultReservedNames)(r)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Normalize lowercases and trims a subdomain candidate.
func Normalize(subdomain string) string {
	return strings.ToLower(strings.TrimSpace(subdomain))
}

// validate returns the availability status describing why the name is
// unusable, or "" when the name is well formed and not reserved.
func (r *SubdomainRegistry) validate(subdomain string) string {
	if len(subdomain) < minSubdomainLen {
		return StatusTooShort
	}
	if len(subdomain) > maxSubdomainLen || !subdomainPattern.MatchString(subdomain) {
		return StatusInvalid
	}
	if _, ok := r.reserved[subdomain]; ok {
		return StatusReserved
	}
	return ""
}

// CheckAvailability reports whether subdomain is usable by the
// registration identified by excludeRegistrationID (pass "" when there
// is none). An expired pending reservation is deleted as a side effect
// and reported available. Storage failures fail closed: the name is
// reported unavailable with status "error" so an outage can never
// double-book a subdomain.
//
// The check trusts the presented registration id; it does not verify
// that the caller owns that draft.
func (r *SubdomainRegistry) CheckAvailability(ctx context.Context, subdomain, excludeRegistrationID string) Availability {
	subdomain = Normalize(subdomain)
	if status := r.validate(subdomain); status != "" {
		return Availability{Available: false, Status: status}
	}

	var rec *model.SubdomainRecord
	err := withRetry(ctx, func() error {
		var err error
		rec, err = r.repo.Get(ctx, subdomain)
		return err
	})
	if err != nil {
		r.log.Error("availability check failed, reporting unavailable",
			zap.String("subdomain", subdomain), zap.Error(err))
		return Availability{Available: false, Status: StatusError}
	}
	if rec == nil {
		return Availability{Available: true}
	}

	if rec.OwnedBy(excludeRegistrationID) {
		// A draft re-checking its own reservation.
		return Availability{Available: true}
	}

	if rec.ExpiredAt(r.clock.Now()) {
		// Lazy cleanup: a lapsed reservation is logically gone.
		if err := r.repo.Delete(ctx, subdomain); err != nil {
			r.log.Error("failed to delete expired reservation",
				zap.String("subdomain", subdomain), zap.Error(err))
			return Availability{Available: false, Status: StatusError}
		}
		return Availability{Available: true}
	}

	if rec.Status == model.SubdomainStatusActive {
		return Availability{Available: false, Status: StatusTaken}
	}
	return Availability{Available: false, Status: StatusReserved}
}

// Reserve creates a pending reservation for registrationID. Re-reserving
// with the same registration id is idempotent and only refreshes the
// record. A live reservation held by another registration yields a
// ConflictError naming the holder; an expired one is reclaimed.
func (r *SubdomainRegistry) Reserve(ctx context.Context, subdomain, registrationID string) error {
	subdomain = Normalize(subdomain)
	switch r.validate(subdomain) {
	case "":
	case StatusTooShort:
		return &ValidationError{Field: "subdomain", Reason: "must be at least 3 characters"}
	case StatusReserved:
		return &ValidationError{Field: "subdomain", Reason: "name is reserved"}
	default:
		return &ValidationError{Field: "subdomain", Reason: "must be 3-30 lowercase letters, digits or hyphens, not starting or ending with a hyphen"}
	}
	if registrationID == "" {
		return &ValidationError{Field: "registration_id", Reason: "must not be empty"}
	}

	now := r.clock.Now()
	expires := now.Add(r.reservationTTL)
	rec := &model.SubdomainRecord{
		Subdomain:      subdomain,
		Status:         model.SubdomainStatusPending,
		RegistrationID: &registrationID,
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      &expires,
	}

	// Two attempts: the second covers reclaiming a record deleted
	// between our conflict read and the retry.
	for attempt := 0; attempt < 2; attempt++ {
		err := r.repo.CreateIfAbsent(ctx, rec)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrAlreadyExists) {
			return err
		}

		existing, err := r.repo.Get(ctx, subdomain)
		if err != nil {
			return err
		}
		if existing == nil {
			// Lost a race with a concurrent delete; create again.
			continue
		}
		if existing.OwnedBy(registrationID) {
			return r.repo.Touch(ctx, subdomain, now)
		}
		if existing.ExpiredAt(now) {
			if err := r.repo.Delete(ctx, subdomain); err != nil {
				return err
			}
			continue
		}
		heldBy := ""
		if existing.RegistrationID != nil {
			heldBy = *existing.RegistrationID
		}
		return &ConflictError{Subdomain: subdomain, HeldBy: heldBy}
	}
	return &ConflictError{Subdomain: subdomain}
}

// Activate binds the subdomain to its company, making the record
// permanent. Activation presumes a prior successful reservation.
func (r *SubdomainRegistry) Activate(ctx context.Context, subdomain, companyID string) error {
	subdomain = Normalize(subdomain)
	updated, err := r.repo.Activate(ctx, subdomain, companyID, r.clock.Now())
	if err != nil {
		return err
	}
	if !updated {
		return fmt.Errorf("subdomain %q: %w", subdomain, ErrNotFound)
	}
	return nil
}

// SweepExpired deletes all lapsed pending reservations in bounded
// batches and returns how many it removed. Safe to re-run.
func (r *SubdomainRegistry) SweepExpired(ctx context.Context) (int, error) {
	now := r.clock.Now()
	total := 0
	for {
		n, err := r.repo.DeleteExpired(ctx, now, r.sweepBatchSize)
		if err != nil {
			return total, err
		}
		total += n
		if n < r.sweepBatchSize {
			return total, nil
		}
	}
}
