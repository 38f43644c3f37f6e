package licenserepo

import (
	"context"
	"time"

	"github.com/transito-regional/licensing-api/internal/domain"
)

// License is the persistence shape used by the license repository.
// It is not an HTTP DTO.
type License struct {
	ID       domain.LicenseID
	DriverID domain.DriverID

	Type     domain.LicenseType
	Category domain.VehicleCategory

	Status       domain.LicenseStatus
	StatusReason *string

	// IssueDate/ExpiryDate carry date-only semantics (UTC midnight).
	IssueDate  time.Time
	ExpiryDate time.Time

	Points       int
	Restrictions *string
	Renewed      bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides access to persisted licenses.
//
// Points, ExpiryDate and Renewed are only ever written through the license
// service's ledger and renewal entry points; adapters store what they are
// given and enforce nothing beyond id uniqueness.
type Repository interface {
	Create(ctx context.Context, l License) error
	Save(ctx context.Context, l License) error
	Delete(ctx context.Context, id domain.LicenseID) error

	GetByID(ctx context.Context, id domain.LicenseID) (License, error)
	ExistsByID(ctx context.Context, id domain.LicenseID) (bool, error)

	ListByDriver(ctx context.Context, driverID domain.DriverID) ([]License, error)
	ListByType(ctx context.Context, t domain.LicenseType) ([]License, error)
	ListByCategory(ctx context.Context, c domain.VehicleCategory) ([]License, error)

	// ListIssuedBetween returns licenses with from <= issueDate <= to.
	ListIssuedBetween(ctx context.Context, from, to time.Time) ([]License, error)
	// ListExpiringBetween returns licenses with from <= expiryDate <= to.
	ListExpiringBetween(ctx context.Context, from, to time.Time) ([]License, error)

	ListAll(ctx context.Context) ([]License, error)
}
