package service

import (
	"context"
	"sort"
	"time"

	"github.com/chetgo/sahod-solutions/internal/model"
)

// fakeSubdomainRepo is an in-memory SubdomainRepository with optional
// fault injection per operation.
type fakeSubdomainRepo struct {
	records map[string]*model.SubdomainRecord

	getCalls   int
	getErr     error
	getErrOnce error
	createErr  error
	deleteErr  error
}

func newFakeSubdomainRepo() *fakeSubdomainRepo {
	return &fakeSubdomainRepo{records: make(map[string]*model.SubdomainRecord)}
}

func (f *fakeSubdomainRepo) Get(ctx context.Context, subdomain string) (*model.SubdomainRecord, error) {
	f.getCalls++
	if f.getErrOnce != nil {
		err := f.getErrOnce
		f.getErrOnce = nil
		return nil, err
	}
	if f.getErr != nil {
		return nil, f.getErr
	}
	rec, ok := f.records[subdomain]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeSubdomainRepo) CreateIfAbsent(ctx context.Context, rec *model.SubdomainRecord) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.records[rec.Subdomain]; ok {
		return ErrAlreadyExists
	}
	cp := *rec
	f.records[rec.Subdomain] = &cp
	return nil
}

func (f *fakeSubdomainRepo) Touch(ctx context.Context, subdomain string, now time.Time) error {
	if rec, ok := f.records[subdomain]; ok {
		rec.UpdatedAt = now
	}
	return nil
}

func (f *fakeSubdomainRepo) Delete(ctx context.Context, subdomain string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.records, subdomain)
	return nil
}

func (f *fakeSubdomainRepo) Activate(ctx context.Context, subdomain, companyID string, now time.Time) (bool, error) {
	rec, ok := f.records[subdomain]
	if !ok {
		return false, nil
	}
	rec.CompanyID = &companyID
	rec.Status = model.SubdomainStatusActive
	rec.ExpiresAt = nil
	rec.UpdatedAt = now
	return true, nil
}

func (f *fakeSubdomainRepo) DeleteExpired(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	var expired []string
	for name, rec := range f.records {
		if rec.Status == model.SubdomainStatusPending && rec.ExpiresAt != nil && rec.ExpiresAt.Before(cutoff) {
			expired = append(expired, name)
		}
	}
	sort.Strings(expired)
	if len(expired) > limit {
		expired = expired[:limit]
	}
	for _, name := range expired {
		delete(f.records, name)
	}
	return len(expired), nil
}

// fakeRegistrationRepo is an in-memory RegistrationRepository.
type fakeRegistrationRepo struct {
	drafts    map[string]*model.RegistrationDraft
	companies map[string]*model.Company
	users     map[string]*model.User

	getCalls       int
	getErrOnce     error
	userLookupErr  error
	userLookupNone bool
}

func newFakeRegistrationRepo() *fakeRegistrationRepo {
	return &fakeRegistrationRepo{
		drafts:    make(map[string]*model.RegistrationDraft),
		companies: make(map[string]*model.Company),
		users:     make(map[string]*model.User),
	}
}

func (f *fakeRegistrationRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeRegistrationRepo) Get(ctx context.Context, registrationID string) (*model.RegistrationDraft, error) {
	f.getCalls++
	if f.getErrOnce != nil {
		err := f.getErrOnce
		f.getErrOnce = nil
		return nil, err
	}
	draft, ok := f.drafts[registrationID]
	if !ok {
		return nil, nil
	}
	cp := *draft
	return &cp, nil
}

func (f *fakeRegistrationRepo) Save(ctx context.Context, draft *model.RegistrationDraft) error {
	cp := *draft
	f.drafts[draft.RegistrationID] = &cp
	return nil
}

func (f *fakeRegistrationRepo) CreateCompany(ctx context.Context, company *model.Company) error {
	cp := *company
	f.companies[company.ID] = &cp
	return nil
}

func (f *fakeRegistrationRepo) CreateUser(ctx context.Context, user *model.User) error {
	for _, existing := range f.users {
		if existing.Email == user.Email {
			return ErrAlreadyExists
		}
	}
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeRegistrationRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	if f.userLookupErr != nil {
		return nil, f.userLookupErr
	}
	if f.userLookupNone {
		return nil, nil
	}
	for _, user := range f.users {
		if user.Email == email {
			cp := *user
			return &cp, nil
		}
	}
	return nil, nil
}
