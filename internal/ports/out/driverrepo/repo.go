package driverrepo

import (
	"context"
	"time"

	"github.com/transito-regional/licensing-api/internal/domain"
)

// Driver is the persistence shape for driver registry records.
type Driver struct {
	ID         domain.DriverID
	DocumentID string
	FullName   string
	BirthDate  time.Time // date-only semantics

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository is the driver registry lookup; it is the source of truth for
// driver existence. Create exists so the system is runnable and testable
// without the upstream registry.
type Repository interface {
	Create(ctx context.Context, d Driver) error
	GetByID(ctx context.Context, id domain.DriverID) (Driver, error)
	Exists(ctx context.Context, id domain.DriverID) (bool, error)
}
