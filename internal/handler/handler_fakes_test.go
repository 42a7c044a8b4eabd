package handler

import (
	"context"
	"sync"
	"time"

	"github.com/chetgo/sahod-solutions/internal/model"
	"github.com/chetgo/sahod-solutions/internal/service"
)

// In-memory repositories for handler tests, mirroring the fakes the
// service tests use.

type memSubdomainRepo struct {
	records map[string]*model.SubdomainRecord
}

func newMemSubdomainRepo() *memSubdomainRepo {
	return &memSubdomainRepo{records: make(map[string]*model.SubdomainRecord)}
}

func (m *memSubdomainRepo) Get(ctx context.Context, subdomain string) (*model.SubdomainRecord, error) {
	rec, ok := m.records[subdomain]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *memSubdomainRepo) CreateIfAbsent(ctx context.Context, rec *model.SubdomainRecord) error {
	if _, ok := m.records[rec.Subdomain]; ok {
		return service.ErrAlreadyExists
	}
	cp := *rec
	m.records[rec.Subdomain] = &cp
	return nil
}

func (m *memSubdomainRepo) Touch(ctx context.Context, subdomain string, now time.Time) error {
	if rec, ok := m.records[subdomain]; ok {
		rec.UpdatedAt = now
	}
	return nil
}

func (m *memSubdomainRepo) Delete(ctx context.Context, subdomain string) error {
	delete(m.records, subdomain)
	return nil
}

func (m *memSubdomainRepo) Activate(ctx context.Context, subdomain, companyID string, now time.Time) (bool, error) {
	rec, ok := m.records[subdomain]
	if !ok {
		return false, nil
	}
	rec.CompanyID = &companyID
	rec.Status = model.SubdomainStatusActive
	rec.ExpiresAt = nil
	rec.UpdatedAt = now
	return true, nil
}

func (m *memSubdomainRepo) DeleteExpired(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	deleted := 0
	for name, rec := range m.records {
		if deleted == limit {
			break
		}
		if rec.Status == model.SubdomainStatusPending && rec.ExpiresAt != nil && rec.ExpiresAt.Before(cutoff) {
			delete(m.records, name)
			deleted++
		}
	}
	return deleted, nil
}

type memRegistrationRepo struct {
	mu        sync.Mutex
	drafts    map[string]*model.RegistrationDraft
	companies map[string]*model.Company
	users     map[string]*model.User
}

func newMemRegistrationRepo() *memRegistrationRepo {
	return &memRegistrationRepo{
		drafts:    make(map[string]*model.RegistrationDraft),
		companies: make(map[string]*model.Company),
		users:     make(map[string]*model.User),
	}
}

func (m *memRegistrationRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// draft reads a stored draft under the lock; the autosaver writes from
// its own goroutine.
func (m *memRegistrationRepo) draft(registrationID string) *model.RegistrationDraft {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drafts[registrationID]
}

func (m *memRegistrationRepo) Get(ctx context.Context, registrationID string) (*model.RegistrationDraft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	draft, ok := m.drafts[registrationID]
	if !ok {
		return nil, nil
	}
	cp := *draft
	return &cp, nil
}

func (m *memRegistrationRepo) Save(ctx context.Context, draft *model.RegistrationDraft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *draft
	m.drafts[draft.RegistrationID] = &cp
	return nil
}

func (m *memRegistrationRepo) CreateCompany(ctx context.Context, company *model.Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *company
	m.companies[company.ID] = &cp
	return nil
}

func (m *memRegistrationRepo) CreateUser(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return service.ErrAlreadyExists
		}
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *memRegistrationRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email {
			cp := *user
			return &cp, nil
		}
	}
	return nil, nil
}
