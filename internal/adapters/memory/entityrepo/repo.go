package entityrepo

import (
	"context"
	"sync"

	"github.com/transito-regional/licensing-api/internal/domain"
	"github.com/transito-regional/licensing-api/internal/ports/out/entityrepo"
)

// Repo is an in-memory implementation of entityrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.EntityID]entityrepo.Entity
}

func NewRepo() *Repo {
	return &Repo{
		byID: make(map[domain.EntityID]entityrepo.Entity),
	}
}

func (r *Repo) Create(ctx context.Context, e entityrepo.Entity) error {
	_ = ctx
	if e.ID == "" {
		return entityrepo.ErrAlreadyExists
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[e.ID]; ok {
		return entityrepo.ErrAlreadyExists
	}
	r.byID[e.ID] = e
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.EntityID) (entityrepo.Entity, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	if !ok {
		return entityrepo.Entity{}, entityrepo.ErrNotFound
	}
	return e, nil
}

func (r *Repo) Exists(ctx context.Context, id domain.EntityID) (bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[id]
	return ok, nil
}

func (r *Repo) TypeOf(ctx context.Context, id domain.EntityID) (domain.EntityType, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	if !ok {
		return "", entityrepo.ErrNotFound
	}
	return e.Type, nil
}
