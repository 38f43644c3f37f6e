package licenserepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/transito-regional/licensing-api/internal/domain"
	"github.com/transito-regional/licensing-api/internal/ports/out/licenserepo"
)

// Repo is an in-memory implementation of licenserepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.LicenseID]licenserepo.License
}

func NewRepo() *Repo {
	return &Repo{
		byID: make(map[domain.LicenseID]licenserepo.License),
	}
}

func (r *Repo) Create(ctx context.Context, l licenserepo.License) error {
	_ = ctx
	if l.ID == "" {
		return licenserepo.ErrAlreadyExists
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[l.ID]; ok {
		return licenserepo.ErrAlreadyExists
	}
	r.byID[l.ID] = cloneLicense(l)
	return nil
}

func (r *Repo) Save(ctx context.Context, l licenserepo.License) error {
	_ = ctx
	if l.ID == "" {
		return licenserepo.ErrNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[l.ID] = cloneLicense(l)
	return nil
}

func (r *Repo) Delete(ctx context.Context, id domain.LicenseID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return licenserepo.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.LicenseID) (licenserepo.License, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.byID[id]
	if !ok {
		return licenserepo.License{}, licenserepo.ErrNotFound
	}
	return cloneLicense(l), nil
}

func (r *Repo) ExistsByID(ctx context.Context, id domain.LicenseID) (bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[id]
	return ok, nil
}

func (r *Repo) ListByDriver(ctx context.Context, driverID domain.DriverID) ([]licenserepo.License, error) {
	return r.list(ctx, func(l licenserepo.License) bool { return l.DriverID == driverID })
}

func (r *Repo) ListByType(ctx context.Context, t domain.LicenseType) ([]licenserepo.License, error) {
	return r.list(ctx, func(l licenserepo.License) bool { return l.Type == t })
}

func (r *Repo) ListByCategory(ctx context.Context, c domain.VehicleCategory) ([]licenserepo.License, error) {
	return r.list(ctx, func(l licenserepo.License) bool { return l.Category == c })
}

func (r *Repo) ListIssuedBetween(ctx context.Context, from, to time.Time) ([]licenserepo.License, error) {
	return r.list(ctx, func(l licenserepo.License) bool {
		return !l.IssueDate.Before(from) && !l.IssueDate.After(to)
	})
}

func (r *Repo) ListExpiringBetween(ctx context.Context, from, to time.Time) ([]licenserepo.License, error) {
	return r.list(ctx, func(l licenserepo.License) bool {
		return !l.ExpiryDate.Before(from) && !l.ExpiryDate.After(to)
	})
}

func (r *Repo) ListAll(ctx context.Context) ([]licenserepo.License, error) {
	return r.list(ctx, func(licenserepo.License) bool { return true })
}

func (r *Repo) list(ctx context.Context, keep func(licenserepo.License) bool) ([]licenserepo.License, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]licenserepo.License, 0)
	for _, l := range r.byID {
		if keep(l) {
			out = append(out, cloneLicense(l))
		}
	}
	sortLicenses(out)
	return out, nil
}

func cloneLicense(l licenserepo.License) licenserepo.License {
	cp := l
	cp.StatusReason = cloneStringPtr(l.StatusReason)
	cp.Restrictions = cloneStringPtr(l.Restrictions)
	return cp
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func sortLicenses(ls []licenserepo.License) {
	// Sorting rule: issueDate ascending, then createdAt, then ID.
	sort.Slice(ls, func(i, j int) bool {
		a, b := ls[i], ls[j]
		if !a.IssueDate.Equal(b.IssueDate) {
			return a.IssueDate.Before(b.IssueDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return string(a.ID) < string(b.ID)
	})
}
