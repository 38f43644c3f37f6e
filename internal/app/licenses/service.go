package licenses

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/transito-regional/licensing-api/internal/domain"
	clockport "github.com/transito-regional/licensing-api/internal/ports/out/clock"
	"github.com/transito-regional/licensing-api/internal/ports/out/driverrepo"
	"github.com/transito-regional/licensing-api/internal/ports/out/licenserepo"
)

// Service is the license lifecycle manager. It owns issuance, update,
// deletion, transfer and the suspension/revocation status flow, and hosts
// the points ledger (points.go) and renewal policy (renewal.go). All writes
// to Points, ExpiryDate and Renewed go through its entry points.
type Service struct {
	licenses licenserepo.Repository
	drivers  driverrepo.Repository
	clk      clockport.Clock

	newLicenseID func() domain.LicenseID
	locks        *licenseLocks
}

func NewService(licensesRepo licenserepo.Repository, driversRepo driverrepo.Repository, clk clockport.Clock) *Service {
	return &Service{
		licenses: licensesRepo,
		drivers:  driversRepo,
		clk:      clk,
		newLicenseID: func() domain.LicenseID {
			return domain.LicenseID(uuid.NewString())
		},
		locks: newLicenseLocks(),
	}
}

// SetNewLicenseIDForTest overrides license ID generation for deterministic
// tests. It should not be used in production code.
func (s *Service) SetNewLicenseIDForTest(fn func() domain.LicenseID) {
	if fn != nil {
		s.newLicenseID = fn
	}
}

func (s *Service) today() time.Time {
	return domain.DateOnly(s.clk.Now())
}

// IssueNewLicense creates a license with a full point balance. It does not
// verify the driver's exam chain; that gate belongs to the calling workflow
// (see exams.Service.HasPassedAllRequiredExams).
func (s *Service) IssueNewLicense(ctx context.Context, in IssueLicenseInput) (domain.License, error) {
	if in.ValidityYears < 1 || in.ValidityYears > domain.MaxValidityYears {
		return domain.License{}, &Error{
			Status:  422,
			Code:    "INVALID_LICENSE_DATA",
			Message: "invalid validity span",
			Details: map[string]any{"validityYears": fmt.Sprintf("must be between 1 and %d", domain.MaxValidityYears)},
		}
	}
	if err := s.requireDriver(ctx, in.DriverID); err != nil {
		return domain.License{}, err
	}
	if err := validateTypeCategory(in.Type, in.Category); err != nil {
		return domain.License{}, err
	}

	today := s.today()
	now := s.clk.Now()
	l := licenserepo.License{
		ID:           s.newLicenseID(),
		DriverID:     in.DriverID,
		Type:         in.Type,
		Category:     in.Category,
		Status:       domain.LicenseStatusActive,
		IssueDate:    today,
		ExpiryDate:   today.AddDate(in.ValidityYears, 0, 0),
		Points:       domain.MaxPoints,
		Restrictions: normalizeRestrictions(in.Restrictions),
		Renewed:      false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.validateLicense(l); err != nil {
		return domain.License{}, err
	}
	if err := s.licenses.Create(ctx, l); err != nil {
		if errors.Is(err, licenserepo.ErrAlreadyExists) {
			return domain.License{}, &Error{Status: 409, Code: "LICENSE_ID_CONFLICT", Message: "license id conflict"}
		}
		return domain.License{}, err
	}
	return toDomain(l), nil
}

// UpdateLicense applies the administrative fields and re-runs full record
// validation before writing; update is not a partial patch of invariants.
func (s *Service) UpdateLicense(ctx context.Context, id domain.LicenseID, in UpdateLicenseInput) (domain.License, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	l, err := s.getForWrite(ctx, id)
	if err != nil {
		return domain.License{}, err
	}
	if l.Status == domain.LicenseStatusRevoked {
		return domain.License{}, errRevoked()
	}

	if in.Type.IsSpecified() {
		if in.Type.IsNull() {
			return domain.License{}, &Error{Status: 422, Code: "INVALID_LICENSE_DATA", Message: "invalid licenseType", Details: map[string]any{"licenseType": "cannot be null"}}
		}
		l.Type = in.Type.Value()
	}
	if in.Category.IsSpecified() {
		if in.Category.IsNull() {
			return domain.License{}, &Error{Status: 422, Code: "INVALID_LICENSE_DATA", Message: "invalid category", Details: map[string]any{"category": "cannot be null"}}
		}
		l.Category = in.Category.Value()
	}
	if in.Restrictions.IsSpecified() {
		if in.Restrictions.IsNull() {
			l.Restrictions = nil
		} else {
			v := in.Restrictions.Value()
			l.Restrictions = normalizeRestrictions(&v)
		}
	}

	if err := s.validateLicense(l); err != nil {
		return domain.License{}, err
	}
	l.UpdatedAt = s.clk.Now()
	if err := s.licenses.Save(ctx, l); err != nil {
		return domain.License{}, err
	}
	return toDomain(l), nil
}

func (s *Service) DeleteLicense(ctx context.Context, id domain.LicenseID) error {
	if err := s.licenses.Delete(ctx, id); err != nil {
		if errors.Is(err, licenserepo.ErrNotFound) {
			return errNotFound()
		}
		return err
	}
	return nil
}

func (s *Service) GetLicense(ctx context.Context, id domain.LicenseID) (domain.License, error) {
	l, err := s.getForWrite(ctx, id)
	if err != nil {
		return domain.License{}, err
	}
	return toDomain(l), nil
}

// SuspendLicense marks the license suspended with a reason. Suspension
// blocks renewal and transfer until the record is reinstated through an
// administrative update; point restoration stays available as the
// compliance path back.
func (s *Service) SuspendLicense(ctx context.Context, id domain.LicenseID, reason string) (domain.License, error) {
	return s.setStatus(ctx, id, domain.LicenseStatusSuspended, reason)
}

// RevokeLicense marks the license revoked. Revocation is terminal: every
// subsequent mutation is refused. Revoking an already revoked license is a
// no-op returning the current record.
func (s *Service) RevokeLicense(ctx context.Context, id domain.LicenseID, reason string) (domain.License, error) {
	return s.setStatus(ctx, id, domain.LicenseStatusRevoked, reason)
}

func (s *Service) setStatus(ctx context.Context, id domain.LicenseID, status domain.LicenseStatus, reason string) (domain.License, error) {
	r := domain.NormalizeFreeText(reason)
	if r == "" {
		return domain.License{}, &Error{
			Status:  422,
			Code:    "INVALID_LICENSE_DATA",
			Message: "a non-empty reason is required",
			Details: map[string]any{"reason": "must be non-empty"},
		}
	}

	unlock := s.locks.lock(id)
	defer unlock()

	l, err := s.getForWrite(ctx, id)
	if err != nil {
		return domain.License{}, err
	}
	if l.Status == domain.LicenseStatusRevoked {
		if status == domain.LicenseStatusRevoked {
			return toDomain(l), nil
		}
		return domain.License{}, errRevoked()
	}

	l.Status = status
	l.StatusReason = &r
	l.UpdatedAt = s.clk.Now()
	if err := s.licenses.Save(ctx, l); err != nil {
		return domain.License{}, err
	}
	return toDomain(l), nil
}

// TransferLicense reassigns a valid (non-expired) license to another
// driver. The type/category pair is not re-validated against the new
// driver; no driver-specific restrictions are modeled.
func (s *Service) TransferLicense(ctx context.Context, id domain.LicenseID, newDriverID domain.DriverID) (domain.License, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	l, err := s.getForWrite(ctx, id)
	if err != nil {
		return domain.License{}, err
	}
	if l.Status == domain.LicenseStatusRevoked {
		return domain.License{}, errRevoked()
	}
	if l.Status == domain.LicenseStatusSuspended {
		return domain.License{}, &Error{Status: 409, Code: "LICENSE_SUSPENDED", Message: "license is suspended and cannot be transferred"}
	}
	if domain.RenewalStateAt(l.ExpiryDate, s.today()) == domain.RenewalStateExpired {
		return domain.License{}, &Error{Status: 409, Code: "LICENSE_EXPIRED", Message: "license is expired and cannot be transferred"}
	}
	if err := s.requireDriver(ctx, newDriverID); err != nil {
		return domain.License{}, err
	}

	l.DriverID = newDriverID
	l.UpdatedAt = s.clk.Now()
	if err := s.licenses.Save(ctx, l); err != nil {
		return domain.License{}, err
	}
	return toDomain(l), nil
}

// --- read queries ---

func (s *Service) ListLicenses(ctx context.Context) ([]domain.License, error) {
	ls, err := s.licenses.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return toDomainSlice(ls), nil
}

func (s *Service) ListByDriver(ctx context.Context, driverID domain.DriverID) ([]domain.License, error) {
	ls, err := s.licenses.ListByDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}
	return toDomainSlice(ls), nil
}

func (s *Service) ListByType(ctx context.Context, t domain.LicenseType) ([]domain.License, error) {
	if !domain.KnownLicenseType(t) {
		return nil, errUnknownType(t)
	}
	ls, err := s.licenses.ListByType(ctx, t)
	if err != nil {
		return nil, err
	}
	return toDomainSlice(ls), nil
}

func (s *Service) ListByCategory(ctx context.Context, c domain.VehicleCategory) ([]domain.License, error) {
	if !domain.KnownVehicleCategory(c) {
		return nil, &Error{Status: 422, Code: "INVALID_LICENSE_DATA", Message: "unknown category", Details: map[string]any{"category": string(c)}}
	}
	ls, err := s.licenses.ListByCategory(ctx, c)
	if err != nil {
		return nil, err
	}
	return toDomainSlice(ls), nil
}

// ListActive returns licenses whose expiry date is today or later.
func (s *Service) ListActive(ctx context.Context) ([]domain.License, error) {
	return s.listByRenewalState(ctx, domain.RenewalStateExpired, false)
}

// ListExpired returns licenses whose expiry date is in the past.
func (s *Service) ListExpired(ctx context.Context) ([]domain.License, error) {
	return s.listByRenewalState(ctx, domain.RenewalStateExpired, true)
}

// ListExpiringSoon returns non-expired licenses within the 30-day warning
// window.
func (s *Service) ListExpiringSoon(ctx context.Context) ([]domain.License, error) {
	return s.listByRenewalState(ctx, domain.RenewalStateExpiringSoon, true)
}

func (s *Service) listByRenewalState(ctx context.Context, state domain.RenewalState, match bool) ([]domain.License, error) {
	ls, err := s.licenses.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	today := s.today()
	out := make([]domain.License, 0, len(ls))
	for _, l := range ls {
		if (domain.RenewalStateAt(l.ExpiryDate, today) == state) == match {
			out = append(out, toDomain(l))
		}
	}
	return out, nil
}

func (s *Service) ListIssuedBetween(ctx context.Context, from, to time.Time) ([]domain.License, error) {
	if err := validateDateRange(from, to); err != nil {
		return nil, err
	}
	ls, err := s.licenses.ListIssuedBetween(ctx, domain.DateOnly(from), domain.DateOnly(to))
	if err != nil {
		return nil, err
	}
	return toDomainSlice(ls), nil
}

func (s *Service) ListExpiringBetween(ctx context.Context, from, to time.Time) ([]domain.License, error) {
	if err := validateDateRange(from, to); err != nil {
		return nil, err
	}
	ls, err := s.licenses.ListExpiringBetween(ctx, domain.DateOnly(from), domain.DateOnly(to))
	if err != nil {
		return nil, err
	}
	return toDomainSlice(ls), nil
}

// --- internals ---

func (s *Service) getForWrite(ctx context.Context, id domain.LicenseID) (licenserepo.License, error) {
	l, err := s.licenses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, licenserepo.ErrNotFound) {
			return licenserepo.License{}, errNotFound()
		}
		return licenserepo.License{}, err
	}
	return l, nil
}

func (s *Service) requireDriver(ctx context.Context, driverID domain.DriverID) error {
	ok, err := s.drivers.Exists(ctx, driverID)
	if err != nil {
		return err
	}
	if !ok {
		return &Error{
			Status:  422,
			Code:    "DRIVER_NOT_FOUND",
			Message: "driver does not exist",
			Details: map[string]any{"driverId": string(driverID)},
		}
	}
	return nil
}

// validateLicense re-checks every stored invariant: known enums, the
// compatibility matrix, date ordering, the lifetime span bound and the
// point balance range.
func (s *Service) validateLicense(l licenserepo.License) error {
	if err := validateTypeCategory(l.Type, l.Category); err != nil {
		return err
	}
	if !domain.KnownLicenseStatus(l.Status) {
		return &Error{Status: 422, Code: "INVALID_LICENSE_DATA", Message: "unknown status", Details: map[string]any{"status": string(l.Status)}}
	}
	issue, expiry := domain.DateOnly(l.IssueDate), domain.DateOnly(l.ExpiryDate)
	if !expiry.After(issue) {
		return &Error{
			Status:  422,
			Code:    "INVALID_LICENSE_DATA",
			Message: "invalid date range",
			Details: map[string]any{"expiryDate": "must be after issueDate"},
		}
	}
	if expiry.After(issue.AddDate(domain.MaxLifetimeYears, 0, 0)) {
		return &Error{
			Status:  422,
			Code:    "INVALID_LICENSE_DATA",
			Message: "validity span too long",
			Details: map[string]any{"expiryDate": fmt.Sprintf("span cannot exceed %d years", domain.MaxLifetimeYears)},
		}
	}
	if l.Points < 0 || l.Points > domain.MaxPoints {
		return &Error{
			Status:  422,
			Code:    "INVALID_LICENSE_DATA",
			Message: "point balance out of range",
			Details: map[string]any{"points": fmt.Sprintf("must be between 0 and %d", domain.MaxPoints)},
		}
	}
	return nil
}

func validateTypeCategory(t domain.LicenseType, c domain.VehicleCategory) error {
	if !domain.KnownLicenseType(t) {
		return errUnknownType(t)
	}
	if !domain.KnownVehicleCategory(c) {
		return &Error{Status: 422, Code: "INVALID_LICENSE_DATA", Message: "unknown category", Details: map[string]any{"category": string(c)}}
	}
	if !domain.IsValidTypeCategory(t, c) {
		allowed := make([]string, 0, 2)
		for _, a := range domain.AllowedCategories(t) {
			allowed = append(allowed, string(a))
		}
		return &Error{
			Status:  422,
			Code:    "INVALID_LICENSE_DATA",
			Message: fmt.Sprintf("license type %s does not permit category %s", t, c),
			Details: map[string]any{
				"licenseType":       string(t),
				"category":          string(c),
				"allowedCategories": allowed,
			},
		}
	}
	return nil
}

func validateDateRange(from, to time.Time) error {
	if from.IsZero() || to.IsZero() {
		return &Error{Status: 422, Code: "INVALID_LICENSE_DATA", Message: "invalid date range", Details: map[string]any{"range": "both dates must be set"}}
	}
	if domain.DateOnly(to).Before(domain.DateOnly(from)) {
		return &Error{Status: 422, Code: "INVALID_LICENSE_DATA", Message: "invalid date range", Details: map[string]any{"to": "must be on or after from"}}
	}
	return nil
}

func errNotFound() *Error {
	return &Error{Status: 404, Code: "LICENSE_NOT_FOUND", Message: "license not found"}
}

func errRevoked() *Error {
	return &Error{Status: 409, Code: "LICENSE_REVOKED", Message: "license is revoked and cannot be modified"}
}

func errUnknownType(t domain.LicenseType) *Error {
	return &Error{Status: 422, Code: "INVALID_LICENSE_DATA", Message: "unknown license type", Details: map[string]any{"licenseType": string(t)}}
}

func normalizeRestrictions(p *string) *string {
	if p == nil {
		return nil
	}
	v := domain.NormalizeFreeText(*p)
	if v == "" {
		return nil
	}
	return &v
}

func toDomain(l licenserepo.License) domain.License {
	return domain.License{
		ID:           l.ID,
		DriverID:     l.DriverID,
		Type:         l.Type,
		Category:     l.Category,
		Status:       l.Status,
		StatusReason: cloneStringPtr(l.StatusReason),
		IssueDate:    l.IssueDate,
		ExpiryDate:   l.ExpiryDate,
		Points:       l.Points,
		Restrictions: cloneStringPtr(l.Restrictions),
		Renewed:      l.Renewed,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
}

func toDomainSlice(ls []licenserepo.License) []domain.License {
	out := make([]domain.License, 0, len(ls))
	for _, l := range ls {
		out = append(out, toDomain(l))
	}
	return out
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
