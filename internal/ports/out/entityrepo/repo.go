package entityrepo

import (
	"context"
	"time"

	"github.com/transito-regional/licensing-api/internal/domain"
)

// Entity is the persistence shape for affiliated entities.
type Entity struct {
	ID   domain.EntityID
	Name string
	Type domain.EntityType

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository resolves affiliated entities and their type (clinic or
// driving school) by id.
type Repository interface {
	Create(ctx context.Context, e Entity) error
	GetByID(ctx context.Context, id domain.EntityID) (Entity, error)
	Exists(ctx context.Context, id domain.EntityID) (bool, error)
	TypeOf(ctx context.Context, id domain.EntityID) (domain.EntityType, error)
}
