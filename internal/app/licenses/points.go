package licenses

import (
	"context"
	"fmt"

	"github.com/transito-regional/licensing-api/internal/domain"
)

// Points ledger. Every mutation runs under the per-license lock so a
// concurrent deduct/restore pair cannot both read the same balance.
// Points never leave the [0, MaxPoints] range, and a deduction may not
// drop the balance below MinPointsAfterDeduction; taking a license below
// that floor is an explicit suspension decision, not a ledger side effect.
// Suspended licenses keep a live ledger (restoration is the compliance
// path back); revoked licenses are frozen.

// DeductPoints subtracts n points and returns the new balance.
func (s *Service) DeductPoints(ctx context.Context, id domain.LicenseID, n int) (int, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	l, err := s.getForWrite(ctx, id)
	if err != nil {
		return 0, err
	}
	if l.Status == domain.LicenseStatusRevoked {
		return 0, errRevoked()
	}
	if n <= 0 {
		return 0, &Error{
			Status:  422,
			Code:    "INVALID_LICENSE_DATA",
			Message: "points to deduct must be positive",
			Details: map[string]any{"points": n},
		}
	}
	if n > l.Points {
		return 0, &Error{
			Status:  422,
			Code:    "INVALID_LICENSE_DATA",
			Message: "cannot deduct more points than the current balance",
			Details: map[string]any{"points": l.Points, "requested": n},
		}
	}
	if l.Points-n < domain.MinPointsAfterDeduction {
		return 0, &Error{
			Status:  422,
			Code:    "INVALID_LICENSE_DATA",
			Message: fmt.Sprintf("deduction would leave the balance below %d points", domain.MinPointsAfterDeduction),
			Details: map[string]any{"points": l.Points, "requested": n, "minimum": domain.MinPointsAfterDeduction},
		}
	}

	l.Points -= n
	l.UpdatedAt = s.clk.Now()
	if err := s.licenses.Save(ctx, l); err != nil {
		return 0, err
	}
	return l.Points, nil
}

// RestorePoints adds n points back and returns the new balance.
func (s *Service) RestorePoints(ctx context.Context, id domain.LicenseID, n int) (int, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	l, err := s.getForWrite(ctx, id)
	if err != nil {
		return 0, err
	}
	if l.Status == domain.LicenseStatusRevoked {
		return 0, errRevoked()
	}
	if n <= 0 {
		return 0, &Error{
			Status:  422,
			Code:    "INVALID_LICENSE_DATA",
			Message: "points to restore must be positive",
			Details: map[string]any{"points": n},
		}
	}
	if l.Points+n > domain.MaxPoints {
		return 0, &Error{
			Status:  422,
			Code:    "INVALID_LICENSE_DATA",
			Message: fmt.Sprintf("restoration cannot raise the balance above %d points", domain.MaxPoints),
			Details: map[string]any{"points": l.Points, "requested": n, "maximum": domain.MaxPoints},
		}
	}

	l.Points += n
	l.UpdatedAt = s.clk.Now()
	if err := s.licenses.Save(ctx, l); err != nil {
		return 0, err
	}
	return l.Points, nil
}

// ResetPoints sets the balance back to the full MaxPoints.
func (s *Service) ResetPoints(ctx context.Context, id domain.LicenseID) (int, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	l, err := s.getForWrite(ctx, id)
	if err != nil {
		return 0, err
	}
	if l.Status == domain.LicenseStatusRevoked {
		return 0, errRevoked()
	}

	l.Points = domain.MaxPoints
	l.UpdatedAt = s.clk.Now()
	if err := s.licenses.Save(ctx, l); err != nil {
		return 0, err
	}
	return l.Points, nil
}
