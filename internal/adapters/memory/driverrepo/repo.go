package driverrepo

import (
	"context"
	"sync"

	"github.com/transito-regional/licensing-api/internal/domain"
	"github.com/transito-regional/licensing-api/internal/ports/out/driverrepo"
)

// Repo is an in-memory implementation of driverrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.DriverID]driverrepo.Driver
}

func NewRepo() *Repo {
	return &Repo{
		byID: make(map[domain.DriverID]driverrepo.Driver),
	}
}

func (r *Repo) Create(ctx context.Context, d driverrepo.Driver) error {
	_ = ctx
	if d.ID == "" {
		return driverrepo.ErrAlreadyExists
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[d.ID]; ok {
		return driverrepo.ErrAlreadyExists
	}
	r.byID[d.ID] = d
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.DriverID) (driverrepo.Driver, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[id]
	if !ok {
		return driverrepo.Driver{}, driverrepo.ErrNotFound
	}
	return d, nil
}

func (r *Repo) Exists(ctx context.Context, id domain.DriverID) (bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[id]
	return ok, nil
}
