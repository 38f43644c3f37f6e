package licenses

import (
	"context"
	"fmt"
	"time"

	"github.com/transito-regional/licensing-api/internal/domain"
)

// Renewal policy. A license is renewable exactly once: after renewal the
// record keeps Renewed=true and a second renewal is refused. An expired
// license stays renewable during a 365-day grace window after its expiry
// date; beyond that the driver starts over with a new license.

// CanLicenseBeRenewed applies the date-and-flag part of the policy: not
// yet renewed, and not expired for longer than the grace window. Point
// balance and status checks live in RenewLicense and RenewalStatus.
func (s *Service) CanLicenseBeRenewed(ctx context.Context, id domain.LicenseID) (bool, error) {
	l, err := s.getForWrite(ctx, id)
	if err != nil {
		return false, err
	}
	return canRenewDates(l.Renewed, l.ExpiryDate, s.today()), nil
}

func canRenewDates(renewed bool, expiry, today time.Time) bool {
	if renewed {
		return false
	}
	e := domain.DateOnly(expiry)
	if !today.After(e) {
		return true
	}
	return !today.After(e.AddDate(0, 0, domain.RenewalGraceDays))
}

// RenewalStatus reports the derived renewal state plus the full renewable
// verdict, including the point-balance floor and the status gate.
func (s *Service) RenewalStatus(ctx context.Context, id domain.LicenseID) (RenewalStatus, error) {
	l, err := s.getForWrite(ctx, id)
	if err != nil {
		return RenewalStatus{}, err
	}

	today := s.today()
	st := RenewalStatus{
		State:      domain.RenewalStateAt(l.ExpiryDate, today),
		ExpiryDate: l.ExpiryDate,
		Renewed:    l.Renewed,
		Points:     l.Points,
	}

	switch {
	case l.Status == domain.LicenseStatusRevoked:
		st.Reason = "license is revoked"
	case l.Status == domain.LicenseStatusSuspended:
		st.Reason = "license is suspended"
	case l.Renewed:
		st.Reason = "license has already been renewed"
	case !canRenewDates(l.Renewed, l.ExpiryDate, today):
		st.Reason = fmt.Sprintf("license expired more than %d days ago", domain.RenewalGraceDays)
	case l.Points < domain.RenewalMinPoints:
		st.Reason = fmt.Sprintf("point balance below the renewal minimum of %d", domain.RenewalMinPoints)
	default:
		st.Renewable = true
	}
	return st, nil
}

// RenewLicense extends the license to newExpiry and marks it renewed.
// The new expiry must lie strictly after the current one and no more than
// MaxValidityYears past today.
func (s *Service) RenewLicense(ctx context.Context, id domain.LicenseID, newExpiry time.Time) (domain.License, error) {
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
		return domain.License{}, &Error{Status: 409, Code: "LICENSE_SUSPENDED", Message: "license is suspended and cannot be renewed"}
	}
	if l.Renewed {
		return domain.License{}, &Error{Status: 409, Code: "LICENSE_ALREADY_RENEWED", Message: "license has already been renewed"}
	}

	today := s.today()
	if !canRenewDates(l.Renewed, l.ExpiryDate, today) {
		return domain.License{}, &Error{
			Status:  409,
			Code:    "RENEWAL_WINDOW_CLOSED",
			Message: fmt.Sprintf("license expired more than %d days ago and cannot be renewed", domain.RenewalGraceDays),
			Details: map[string]any{"expiryDate": l.ExpiryDate.Format(time.DateOnly)},
		}
	}
	if l.Points < domain.RenewalMinPoints {
		return domain.License{}, &Error{
			Status:  422,
			Code:    "INVALID_LICENSE_DATA",
			Message: fmt.Sprintf("point balance below the renewal minimum of %d", domain.RenewalMinPoints),
			Details: map[string]any{"points": l.Points, "minimum": domain.RenewalMinPoints},
		}
	}

	if newExpiry.IsZero() {
		return domain.License{}, &Error{Status: 422, Code: "INVALID_LICENSE_DATA", Message: "new expiry date is required", Details: map[string]any{"newExpiryDate": "must be set"}}
	}
	ne := domain.DateOnly(newExpiry)
	if !ne.After(domain.DateOnly(l.ExpiryDate)) {
		return domain.License{}, &Error{
			Status:  422,
			Code:    "INVALID_LICENSE_DATA",
			Message: "new expiry must be after the current expiry date",
			Details: map[string]any{"newExpiryDate": ne.Format(time.DateOnly), "expiryDate": l.ExpiryDate.Format(time.DateOnly)},
		}
	}
	if ne.After(today.AddDate(domain.MaxValidityYears, 0, 0)) {
		return domain.License{}, &Error{
			Status:  422,
			Code:    "INVALID_LICENSE_DATA",
			Message: fmt.Sprintf("new expiry cannot lie more than %d years in the future", domain.MaxValidityYears),
			Details: map[string]any{"newExpiryDate": ne.Format(time.DateOnly)},
		}
	}

	l.ExpiryDate = ne
	l.Renewed = true
	l.UpdatedAt = s.clk.Now()
	if err := s.licenses.Save(ctx, l); err != nil {
		return domain.License{}, err
	}
	return toDomain(l), nil
}
