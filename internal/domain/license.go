package domain

import "time"

type LicenseType string

const (
	LicenseTypeA LicenseType = "A"
	LicenseTypeB LicenseType = "B"
	LicenseTypeC LicenseType = "C"
	LicenseTypeD LicenseType = "D"
	LicenseTypeE LicenseType = "E"
	LicenseTypeF LicenseType = "F"
)

type VehicleCategory string

const (
	VehicleCategoryMoto      VehicleCategory = "MOTO"
	VehicleCategoryAutomovil VehicleCategory = "AUTOMOVIL"
	VehicleCategoryCamion    VehicleCategory = "CAMION"
	VehicleCategoryAutobus   VehicleCategory = "AUTOBUS"
)

type LicenseStatus string

const (
	LicenseStatusActive    LicenseStatus = "ACTIVE"
	LicenseStatusSuspended LicenseStatus = "SUSPENDED"
	LicenseStatusRevoked   LicenseStatus = "REVOKED"
)

// Point balance bounds and the policy constants the ledger and renewal
// rules are written against.
const (
	MaxPoints = 20

	// MinPointsAfterDeduction: a deduction that would leave the balance
	// below this floor is rejected; the caller must invoke an explicit
	// suspension flow instead.
	MinPointsAfterDeduction = 5

	// RenewalMinPoints is the balance required before a renewal is allowed.
	RenewalMinPoints = 10

	// RenewalGraceDays: a license expired for longer than this can never
	// be renewed.
	RenewalGraceDays = 365

	// ExpiringSoonDays is the informational warning window before expiry.
	ExpiringSoonDays = 30

	// MaxValidityYears bounds the validity span requested at issuance and
	// the span reachable through a renewal.
	MaxValidityYears = 10

	// MaxLifetimeYears bounds the issue->expiry span of any stored record.
	MaxLifetimeYears = 20
)

// AllowedCategories returns the vehicle categories a license type may cover.
// The matrix is fixed; an unknown type yields nil.
func AllowedCategories(t LicenseType) []VehicleCategory {
	switch t {
	case LicenseTypeA:
		return []VehicleCategory{VehicleCategoryMoto}
	case LicenseTypeB:
		return []VehicleCategory{VehicleCategoryAutomovil}
	case LicenseTypeC:
		return []VehicleCategory{VehicleCategoryCamion}
	case LicenseTypeD:
		return []VehicleCategory{VehicleCategoryAutobus}
	case LicenseTypeE:
		return []VehicleCategory{VehicleCategoryCamion, VehicleCategoryAutobus}
	case LicenseTypeF:
		return []VehicleCategory{VehicleCategoryCamion, VehicleCategoryAutomovil}
	default:
		return nil
	}
}

// IsValidTypeCategory reports whether the type/category pair is in the
// compatibility matrix.
func IsValidTypeCategory(t LicenseType, c VehicleCategory) bool {
	for _, allowed := range AllowedCategories(t) {
		if allowed == c {
			return true
		}
	}
	return false
}

func KnownLicenseType(t LicenseType) bool {
	return len(AllowedCategories(t)) > 0
}

func KnownVehicleCategory(c VehicleCategory) bool {
	switch c {
	case VehicleCategoryMoto, VehicleCategoryAutomovil, VehicleCategoryCamion, VehicleCategoryAutobus:
		return true
	default:
		return false
	}
}

func KnownLicenseStatus(s LicenseStatus) bool {
	switch s {
	case LicenseStatusActive, LicenseStatusSuspended, LicenseStatusRevoked:
		return true
	default:
		return false
	}
}

// RenewalState is derived from the expiry date; it is never stored.
type RenewalState string

const (
	RenewalStateActive       RenewalState = "ACTIVE"
	RenewalStateExpiringSoon RenewalState = "EXPIRING_SOON"
	RenewalStateExpired      RenewalState = "EXPIRED"
)

// RenewalStateAt derives the date-based license state for a given day.
// Both arguments are treated with date-only semantics (UTC midnight).
func RenewalStateAt(expiry, today time.Time) RenewalState {
	e, d := DateOnly(expiry), DateOnly(today)
	if d.After(e) {
		return RenewalStateExpired
	}
	if !e.After(d.AddDate(0, 0, ExpiringSoonDays)) {
		return RenewalStateExpiringSoon
	}
	return RenewalStateActive
}

// DateOnly truncates a timestamp to its UTC calendar date.
func DateOnly(t time.Time) time.Time {
	tt := t.UTC()
	return time.Date(tt.Year(), tt.Month(), tt.Day(), 0, 0, 0, 0, time.UTC)
}

// License is the domain read model returned by the license service.
type License struct {
	ID       LicenseID
	DriverID DriverID

	Type     LicenseType
	Category VehicleCategory

	Status       LicenseStatus
	StatusReason *string

	IssueDate  time.Time // date-only semantics
	ExpiryDate time.Time // date-only semantics

	Points       int
	Restrictions *string
	Renewed      bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
