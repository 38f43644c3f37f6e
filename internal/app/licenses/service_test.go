package licenses_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	memdriverrepo "github.com/transito-regional/licensing-api/internal/adapters/memory/driverrepo"
	memlicenserepo "github.com/transito-regional/licensing-api/internal/adapters/memory/licenserepo"
	"github.com/transito-regional/licensing-api/internal/app/licenses"
	"github.com/transito-regional/licensing-api/internal/domain"
	portdriverrepo "github.com/transito-regional/licensing-api/internal/ports/out/driverrepo"
)

// fakeClock is a settable clock for date-dependent rules.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func provisionDriver(t *testing.T, repo *memdriverrepo.Repo, id domain.DriverID) {
	t.Helper()
	now := time.Unix(100, 0).UTC()
	if err := repo.Create(context.Background(), portdriverrepo.Driver{
		ID:         id,
		DocumentID: "DOC-" + string(id),
		FullName:   "Driver " + string(id),
		BirthDate:  d(1988, time.February, 10),
		CreatedAt:  now,
		UpdatedAt:  now,
	}); err != nil {
		t.Fatalf("create driver: %v", err)
	}
}

func newLicenseService(t *testing.T, today time.Time) (*licenses.Service, *memlicenserepo.Repo, *memdriverrepo.Repo, *fakeClock) {
	t.Helper()
	licensesRepo := memlicenserepo.NewRepo()
	driversRepo := memdriverrepo.NewRepo()
	clk := &fakeClock{now: today}
	svc := licenses.NewService(licensesRepo, driversRepo, clk)
	return svc, licensesRepo, driversRepo, clk
}

func appError(t *testing.T, err error) *licenses.Error {
	t.Helper()
	ae := (*licenses.Error)(nil)
	if !errors.As(err, &ae) {
		t.Fatalf("expected app error, got %v", err)
	}
	return ae
}

func issue(t *testing.T, svc *licenses.Service, driver domain.DriverID, typ domain.LicenseType, cat domain.VehicleCategory, years int) domain.License {
	t.Helper()
	l, err := svc.IssueNewLicense(context.Background(), licenses.IssueLicenseInput{
		DriverID:      driver,
		Type:          typ,
		Category:      cat,
		ValidityYears: years,
	})
	if err != nil {
		t.Fatalf("IssueNewLicense: %v", err)
	}
	return l
}

func TestService_IssueNewLicense_SetsDefaults(t *testing.T) {
	t.Parallel()

	svc, _, drivers, _ := newLicenseService(t, d(2024, time.March, 1))
	provisionDriver(t, drivers, "d1")
	svc.SetNewLicenseIDForTest(func() domain.LicenseID { return "l1" })

	l := issue(t, svc, "d1", domain.LicenseTypeB, domain.VehicleCategoryAutomovil, 5)
	if l.ID != "l1" {
		t.Fatalf("id = %s", l.ID)
	}
	if l.Points != domain.MaxPoints || l.Renewed || l.Status != domain.LicenseStatusActive {
		t.Fatalf("license = %+v", l)
	}
	if !l.IssueDate.Equal(d(2024, time.March, 1)) || !l.ExpiryDate.Equal(d(2029, time.March, 1)) {
		t.Fatalf("dates = %s .. %s", l.IssueDate, l.ExpiryDate)
	}
}

func TestService_IssueNewLicense_RejectsIncompatiblePair(t *testing.T) {
	t.Parallel()

	svc, _, drivers, _ := newLicenseService(t, d(2024, time.March, 1))
	provisionDriver(t, drivers, "d1")

	_, err := svc.IssueNewLicense(context.Background(), licenses.IssueLicenseInput{
		DriverID:      "d1",
		Type:          domain.LicenseTypeA,
		Category:      domain.VehicleCategoryAutomovil,
		ValidityYears: 5,
	})
	ae := appError(t, err)
	if ae.Status != 422 || ae.Code != "INVALID_LICENSE_DATA" {
		t.Fatalf("unexpected error: %+v", ae)
	}
	if ae.Details["allowedCategories"] == nil {
		t.Fatalf("details = %v", ae.Details)
	}
}

func TestService_IssueNewLicense_ValidityBounds(t *testing.T) {
	t.Parallel()

	svc, _, drivers, _ := newLicenseService(t, d(2024, time.March, 1))
	provisionDriver(t, drivers, "d1")

	for _, years := range []int{0, -1, 11} {
		_, err := svc.IssueNewLicense(context.Background(), licenses.IssueLicenseInput{
			DriverID:      "d1",
			Type:          domain.LicenseTypeB,
			Category:      domain.VehicleCategoryAutomovil,
			ValidityYears: years,
		})
		if ae := appError(t, err); ae.Status != 422 {
			t.Fatalf("years=%d: unexpected error %+v", years, ae)
		}
	}

	if l := issue(t, svc, "d1", domain.LicenseTypeB, domain.VehicleCategoryAutomovil, 10); !l.ExpiryDate.Equal(d(2034, time.March, 1)) {
		t.Fatalf("expiry = %s", l.ExpiryDate)
	}
}

func TestService_IssueNewLicense_UnknownDriver(t *testing.T) {
	t.Parallel()

	svc, _, _, _ := newLicenseService(t, d(2024, time.March, 1))
	_, err := svc.IssueNewLicense(context.Background(), licenses.IssueLicenseInput{
		DriverID:      "ghost",
		Type:          domain.LicenseTypeB,
		Category:      domain.VehicleCategoryAutomovil,
		ValidityYears: 5,
	})
	if ae := appError(t, err); ae.Code != "DRIVER_NOT_FOUND" {
		t.Fatalf("unexpected error: %+v", ae)
	}
}

func TestService_UpdateLicense_RevalidatesPair(t *testing.T) {
	t.Parallel()

	svc, _, drivers, _ := newLicenseService(t, d(2024, time.March, 1))
	provisionDriver(t, drivers, "d1")
	svc.SetNewLicenseIDForTest(func() domain.LicenseID { return "l1" })
	issue(t, svc, "d1", domain.LicenseTypeB, domain.VehicleCategoryAutomovil, 5)

	// Changing only the type breaks the pair.
	_, err := svc.UpdateLicense(context.Background(), "l1", licenses.UpdateLicenseInput{
		Type: licenses.Some(domain.LicenseTypeA),
	})
	if ae := appError(t, err); ae.Code != "INVALID_LICENSE_DATA" {
		t.Fatalf("unexpected error: %+v", ae)
	}

	// Changing both keeps it consistent.
	l, err := svc.UpdateLicense(context.Background(), "l1", licenses.UpdateLicenseInput{
		Type:     licenses.Some(domain.LicenseTypeA),
		Category: licenses.Some(domain.VehicleCategoryMoto),
	})
	if err != nil {
		t.Fatalf("UpdateLicense: %v", err)
	}
	if l.Type != domain.LicenseTypeA || l.Category != domain.VehicleCategoryMoto {
		t.Fatalf("license = %+v", l)
	}
}

func TestService_UpdateLicense_RestrictionsNullClears(t *testing.T) {
	t.Parallel()

	svc, _, drivers, _ := newLicenseService(t, d(2024, time.March, 1))
	provisionDriver(t, drivers, "d1")
	svc.SetNewLicenseIDForTest(func() domain.LicenseID { return "l1" })

	restrictions := " corrective  lenses "
	if _, err := svc.IssueNewLicense(context.Background(), licenses.IssueLicenseInput{
		DriverID:      "d1",
		Type:          domain.LicenseTypeB,
		Category:      domain.VehicleCategoryAutomovil,
		ValidityYears: 5,
		Restrictions:  &restrictions,
	}); err != nil {
		t.Fatalf("IssueNewLicense: %v", err)
	}

	l, err := svc.GetLicense(context.Background(), "l1")
	if err != nil {
		t.Fatalf("GetLicense: %v", err)
	}
	if l.Restrictions == nil || *l.Restrictions != "corrective lenses" {
		t.Fatalf("restrictions = %v", l.Restrictions)
	}

	l, err = svc.UpdateLicense(context.Background(), "l1", licenses.UpdateLicenseInput{
		Restrictions: licenses.Null[string](),
	})
	if err != nil {
		t.Fatalf("UpdateLicense: %v", err)
	}
	if l.Restrictions != nil {
		t.Fatalf("restrictions not cleared: %v", l.Restrictions)
	}
}

func TestService_SuspendAndRevoke(t *testing.T) {
	t.Parallel()

	svc, _, drivers, _ := newLicenseService(t, d(2024, time.March, 1))
	provisionDriver(t, drivers, "d1")
	svc.SetNewLicenseIDForTest(func() domain.LicenseID { return "l1" })
	issue(t, svc, "d1", domain.LicenseTypeB, domain.VehicleCategoryAutomovil, 5)

	// A blank reason is rejected.
	if _, err := svc.SuspendLicense(context.Background(), "l1", "   "); appError(t, err).Status != 422 {
		t.Fatalf("expected 422, got %v", err)
	}

	l, err := svc.SuspendLicense(context.Background(), "l1", "accumulated infractions")
	if err != nil {
		t.Fatalf("SuspendLicense: %v", err)
	}
	if l.Status != domain.LicenseStatusSuspended || l.StatusReason == nil || *l.StatusReason != "accumulated infractions" {
		t.Fatalf("license = %+v", l)
	}

	l, err = svc.RevokeLicense(context.Background(), "l1", "court order")
	if err != nil {
		t.Fatalf("RevokeLicense: %v", err)
	}
	if l.Status != domain.LicenseStatusRevoked {
		t.Fatalf("license = %+v", l)
	}

	// Revocation is terminal: updates and re-suspension are refused,
	// but a repeated revoke is a no-op.
	if _, err := svc.UpdateLicense(context.Background(), "l1", licenses.UpdateLicenseInput{}); appError(t, err).Code != "LICENSE_REVOKED" {
		t.Fatalf("expected LICENSE_REVOKED, got %v", err)
	}
	if _, err := svc.SuspendLicense(context.Background(), "l1", "again"); appError(t, err).Code != "LICENSE_REVOKED" {
		t.Fatalf("expected LICENSE_REVOKED, got %v", err)
	}
	again, err := svc.RevokeLicense(context.Background(), "l1", "court order")
	if err != nil || again.Status != domain.LicenseStatusRevoked {
		t.Fatalf("repeat revoke: %+v err=%v", again, err)
	}
}

func TestService_TransferLicense(t *testing.T) {
	t.Parallel()

	svc, _, drivers, clk := newLicenseService(t, d(2024, time.March, 1))
	provisionDriver(t, drivers, "d1")
	provisionDriver(t, drivers, "d2")
	svc.SetNewLicenseIDForTest(func() domain.LicenseID { return "l1" })
	issue(t, svc, "d1", domain.LicenseTypeB, domain.VehicleCategoryAutomovil, 2)

	if _, err := svc.TransferLicense(context.Background(), "l1", "ghost"); appError(t, err).Code != "DRIVER_NOT_FOUND" {
		t.Fatalf("expected DRIVER_NOT_FOUND, got %v", err)
	}

	l, err := svc.TransferLicense(context.Background(), "l1", "d2")
	if err != nil {
		t.Fatalf("TransferLicense: %v", err)
	}
	if l.DriverID != "d2" {
		t.Fatalf("driver = %s", l.DriverID)
	}

	// An expired license cannot move.
	clk.Set(d(2026, time.June, 1))
	if _, err := svc.TransferLicense(context.Background(), "l1", "d1"); appError(t, err).Code != "LICENSE_EXPIRED" {
		t.Fatalf("expected LICENSE_EXPIRED, got %v", err)
	}
}

func TestService_ListsByRenewalState(t *testing.T) {
	t.Parallel()

	svc, _, drivers, clk := newLicenseService(t, d(2020, time.January, 1))
	provisionDriver(t, drivers, "d1")

	ids := []domain.LicenseID{"l1", "l2", "l3"}
	next := 0
	svc.SetNewLicenseIDForTest(func() domain.LicenseID {
		id := ids[next]
		next++
		return id
	})

	issue(t, svc, "d1", domain.LicenseTypeB, domain.VehicleCategoryAutomovil, 2)  // expires 2022-01-01
	issue(t, svc, "d1", domain.LicenseTypeA, domain.VehicleCategoryMoto, 4)       // expires 2024-01-01
	issue(t, svc, "d1", domain.LicenseTypeC, domain.VehicleCategoryCamion, 10)    // expires 2030-01-01

	clk.Set(d(2023, time.December, 15))

	expired, err := svc.ListExpired(context.Background())
	if err != nil || len(expired) != 1 || expired[0].ID != "l1" {
		t.Fatalf("expired = %+v err=%v", expired, err)
	}
	soon, err := svc.ListExpiringSoon(context.Background())
	if err != nil || len(soon) != 1 || soon[0].ID != "l2" {
		t.Fatalf("soon = %+v err=%v", soon, err)
	}
	active, err := svc.ListActive(context.Background())
	if err != nil || len(active) != 2 {
		t.Fatalf("active = %+v err=%v", active, err)
	}

	issued, err := svc.ListIssuedBetween(context.Background(), d(2020, time.January, 1), d(2020, time.December, 31))
	if err != nil || len(issued) != 3 {
		t.Fatalf("issued = %+v err=%v", issued, err)
	}
	expiring, err := svc.ListExpiringBetween(context.Background(), d(2023, time.June, 1), d(2024, time.June, 1))
	if err != nil || len(expiring) != 1 || expiring[0].ID != "l2" {
		t.Fatalf("expiring = %+v err=%v", expiring, err)
	}

	// Inverted ranges are rejected.
	if _, err := svc.ListIssuedBetween(context.Background(), d(2024, time.June, 1), d(2023, time.June, 1)); appError(t, err).Status != 422 {
		t.Fatalf("expected 422, got %v", err)
	}
}

func TestService_DeleteLicense(t *testing.T) {
	t.Parallel()

	svc, _, drivers, _ := newLicenseService(t, d(2024, time.March, 1))
	provisionDriver(t, drivers, "d1")
	svc.SetNewLicenseIDForTest(func() domain.LicenseID { return "l1" })
	issue(t, svc, "d1", domain.LicenseTypeB, domain.VehicleCategoryAutomovil, 5)

	if err := svc.DeleteLicense(context.Background(), "l1"); err != nil {
		t.Fatalf("DeleteLicense: %v", err)
	}
	if err := svc.DeleteLicense(context.Background(), "l1"); appError(t, err).Status != 404 {
		t.Fatalf("expected 404, got %v", err)
	}
}
