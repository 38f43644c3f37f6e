package licenses

import (
	"time"

	"github.com/transito-regional/licensing-api/internal/domain"
)

// Optional is a tri-state field used to distinguish:
// - unspecified (omitted)
// - specified as null
// - specified with a value
type Optional[T any] struct {
	specified bool
	isNull    bool
	value     T
}

func Unspecified[T any]() Optional[T] { return Optional[T]{} }
func Null[T any]() Optional[T]        { return Optional[T]{specified: true, isNull: true} }
func Some[T any](v T) Optional[T]     { return Optional[T]{specified: true, value: v} }

func (o Optional[T]) IsSpecified() bool { return o.specified }
func (o Optional[T]) IsNull() bool      { return o.specified && o.isNull }
func (o Optional[T]) Value() T          { return o.value }

type IssueLicenseInput struct {
	DriverID domain.DriverID
	Type     domain.LicenseType
	Category domain.VehicleCategory

	// ValidityYears must be in [1, 10].
	ValidityYears int

	Restrictions *string
}

// UpdateLicenseInput carries the administratively mutable fields. Points,
// expiry and the renewed flag are owned by the ledger and renewal entry
// points and cannot be written here. The whole record is re-validated on
// save.
type UpdateLicenseInput struct {
	Type     Optional[domain.LicenseType]
	Category Optional[domain.VehicleCategory]

	// Restrictions is nullable; null clears the text.
	Restrictions Optional[string]
}

// RenewalStatus is the derived, non-persisted view of a license's position
// in the renewal lifecycle.
type RenewalStatus struct {
	State domain.RenewalState

	Renewable bool
	// Reason is set when Renewable is false.
	Reason string

	ExpiryDate time.Time
	Renewed    bool
	Points     int
}
