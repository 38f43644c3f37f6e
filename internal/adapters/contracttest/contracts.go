package contracttest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/transito-regional/licensing-api/internal/domain"
	driverrepoport "github.com/transito-regional/licensing-api/internal/ports/out/driverrepo"
	entityrepoport "github.com/transito-regional/licensing-api/internal/ports/out/entityrepo"
	examrepoport "github.com/transito-regional/licensing-api/internal/ports/out/examrepo"
	licenserepoport "github.com/transito-regional/licensing-api/internal/ports/out/licenserepo"
)

type CleanupFunc = func()

type DriverRepoFactory func(t *testing.T) (driverrepoport.Repository, CleanupFunc)
type EntityRepoFactory func(t *testing.T) (entityrepoport.Repository, CleanupFunc)
type LicenseRepoFactory func(t *testing.T) (licenserepoport.Repository, CleanupFunc)
type ExamRepoFactory func(t *testing.T) (examrepoport.Repository, CleanupFunc)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func RunDriverAndEntityRepos(t *testing.T, newDriverRepo DriverRepoFactory, newEntityRepo EntityRepoFactory) {
	t.Helper()
	ctx := context.Background()

	drivers, dCleanup := newDriverRepo(t)
	if dCleanup != nil {
		t.Cleanup(dCleanup)
	}
	entities, eCleanup := newEntityRepo(t)
	if eCleanup != nil {
		t.Cleanup(eCleanup)
	}

	now := time.Unix(1000, 0).UTC()
	driverID := domain.DriverID(uuid.NewString())
	if err := drivers.Create(ctx, driverrepoport.Driver{
		ID:         driverID,
		DocumentID: "DOC-100",
		FullName:   "Marta Reyes",
		BirthDate:  date(1990, time.March, 14),
		CreatedAt:  now,
		UpdatedAt:  now,
	}); err != nil {
		t.Fatalf("Create driver: %v", err)
	}
	if _, err := drivers.GetByID(ctx, driverID); err != nil {
		t.Fatalf("GetByID driver: %v", err)
	}
	if ok, err := drivers.Exists(ctx, driverID); err != nil || !ok {
		t.Fatalf("Exists driver: ok=%v err=%v", ok, err)
	}
	if ok, err := drivers.Exists(ctx, domain.DriverID(uuid.NewString())); err != nil || ok {
		t.Fatalf("Exists unknown driver: ok=%v err=%v", ok, err)
	}

	// ID uniqueness.
	if err := drivers.Create(ctx, driverrepoport.Driver{
		ID:         driverID,
		DocumentID: "DOC-101",
		FullName:   "Duplicate",
		BirthDate:  date(1990, time.March, 14),
		CreatedAt:  now,
		UpdatedAt:  now,
	}); !errors.Is(err, driverrepoport.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	clinicID := domain.EntityID(uuid.NewString())
	if err := entities.Create(ctx, entityrepoport.Entity{
		ID:        clinicID,
		Name:      "Clinica Central",
		Type:      domain.EntityTypeClinic,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("Create entity: %v", err)
	}
	got, err := entities.GetByID(ctx, clinicID)
	if err != nil {
		t.Fatalf("GetByID entity: %v", err)
	}
	if got.Type != domain.EntityTypeClinic {
		t.Fatalf("unexpected entity: %#v", got)
	}
	if tp, err := entities.TypeOf(ctx, clinicID); err != nil || tp != domain.EntityTypeClinic {
		t.Fatalf("TypeOf: tp=%q err=%v", tp, err)
	}
	if _, err := entities.TypeOf(ctx, domain.EntityID(uuid.NewString())); !errors.Is(err, entityrepoport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func RunLicenseRepo(t *testing.T, newDriverRepo DriverRepoFactory, newLicenseRepo LicenseRepoFactory) {
	t.Helper()
	ctx := context.Background()

	drivers, dCleanup := newDriverRepo(t)
	if dCleanup != nil {
		t.Cleanup(dCleanup)
	}
	licenses, lCleanup := newLicenseRepo(t)
	if lCleanup != nil {
		t.Cleanup(lCleanup)
	}

	now := time.Unix(2000, 0).UTC()
	driverID := domain.DriverID(uuid.NewString())
	if err := drivers.Create(ctx, driverrepoport.Driver{
		ID:         driverID,
		DocumentID: "DOC-200",
		FullName:   "Hugo Salas",
		BirthDate:  date(1985, time.July, 2),
		CreatedAt:  now,
		UpdatedAt:  now,
	}); err != nil {
		t.Fatalf("seed driver: %v", err)
	}

	restrictions := "corrective lenses"
	aID := domain.LicenseID(uuid.NewString())
	a := licenserepoport.License{
		ID:           aID,
		DriverID:     driverID,
		Type:         domain.LicenseTypeB,
		Category:     domain.VehicleCategoryAutomovil,
		Status:       domain.LicenseStatusActive,
		IssueDate:    date(2023, time.January, 10),
		ExpiryDate:   date(2028, time.January, 10),
		Points:       domain.MaxPoints,
		Restrictions: &restrictions,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := licenses.Create(ctx, a); err != nil {
		t.Fatalf("Create a: %v", err)
	}
	if err := licenses.Create(ctx, a); !errors.Is(err, licenserepoport.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	got, err := licenses.GetByID(ctx, aID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Type != domain.LicenseTypeB || got.Points != domain.MaxPoints || got.Restrictions == nil || *got.Restrictions != restrictions {
		t.Fatalf("unexpected license: %#v", got)
	}
	if ok, err := licenses.ExistsByID(ctx, aID); err != nil || !ok {
		t.Fatalf("ExistsByID: ok=%v err=%v", ok, err)
	}

	// Save replaces the record.
	got.Points = 12
	got.Renewed = true
	if err := licenses.Save(ctx, got); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err = licenses.GetByID(ctx, aID)
	if err != nil || got.Points != 12 || !got.Renewed {
		t.Fatalf("expected saved state, got %#v err=%v", got, err)
	}

	// Second license of a different type for ordered listing and filters.
	bID := domain.LicenseID(uuid.NewString())
	b := a
	b.ID = bID
	b.Type = domain.LicenseTypeA
	b.Category = domain.VehicleCategoryMoto
	b.Restrictions = nil
	b.IssueDate = date(2024, time.June, 1)
	b.ExpiryDate = date(2026, time.June, 1)
	if err := licenses.Create(ctx, b); err != nil {
		t.Fatalf("Create b: %v", err)
	}

	byDriver, err := licenses.ListByDriver(ctx, driverID)
	if err != nil {
		t.Fatalf("ListByDriver: %v", err)
	}
	if len(byDriver) != 2 || byDriver[0].ID != aID || byDriver[1].ID != bID {
		t.Fatalf("unexpected ListByDriver order: %#v", byDriver)
	}

	byType, err := licenses.ListByType(ctx, domain.LicenseTypeA)
	if err != nil || len(byType) != 1 || byType[0].ID != bID {
		t.Fatalf("unexpected ListByType: %#v err=%v", byType, err)
	}
	byCat, err := licenses.ListByCategory(ctx, domain.VehicleCategoryAutomovil)
	if err != nil || len(byCat) != 1 || byCat[0].ID != aID {
		t.Fatalf("unexpected ListByCategory: %#v err=%v", byCat, err)
	}

	// Date-range filters are inclusive on both ends.
	issued, err := licenses.ListIssuedBetween(ctx, date(2024, time.June, 1), date(2024, time.December, 31))
	if err != nil || len(issued) != 1 || issued[0].ID != bID {
		t.Fatalf("unexpected ListIssuedBetween: %#v err=%v", issued, err)
	}
	expiring, err := licenses.ListExpiringBetween(ctx, date(2026, time.January, 1), date(2026, time.June, 1))
	if err != nil || len(expiring) != 1 || expiring[0].ID != bID {
		t.Fatalf("unexpected ListExpiringBetween: %#v err=%v", expiring, err)
	}

	all, err := licenses.ListAll(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("unexpected ListAll: %#v err=%v", all, err)
	}

	if err := licenses.Delete(ctx, bID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := licenses.Delete(ctx, bID); !errors.Is(err, licenserepoport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := licenses.GetByID(ctx, bID); !errors.Is(err, licenserepoport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func RunExamRepo(t *testing.T, newDriverRepo DriverRepoFactory, newEntityRepo EntityRepoFactory, newExamRepo ExamRepoFactory) {
	t.Helper()
	ctx := context.Background()

	drivers, dCleanup := newDriverRepo(t)
	if dCleanup != nil {
		t.Cleanup(dCleanup)
	}
	entities, eCleanup := newEntityRepo(t)
	if eCleanup != nil {
		t.Cleanup(eCleanup)
	}
	exams, xCleanup := newExamRepo(t)
	if xCleanup != nil {
		t.Cleanup(xCleanup)
	}

	now := time.Unix(3000, 0).UTC()
	driverID := domain.DriverID(uuid.NewString())
	if err := drivers.Create(ctx, driverrepoport.Driver{
		ID:         driverID,
		DocumentID: "DOC-300",
		FullName:   "Lucia Prado",
		BirthDate:  date(1998, time.October, 30),
		CreatedAt:  now,
		UpdatedAt:  now,
	}); err != nil {
		t.Fatalf("seed driver: %v", err)
	}
	schoolID := domain.EntityID(uuid.NewString())
	if err := entities.Create(ctx, entityrepoport.Entity{
		ID:        schoolID,
		Name:      "Escuela Norte",
		Type:      domain.EntityTypeDrivingSchool,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("seed entity: %v", err)
	}

	examiner := "J. Ortega"
	failedID := domain.ExamID(uuid.NewString())
	if err := exams.Create(ctx, examrepoport.Exam{
		ID:        failedID,
		Type:      domain.ExamTypeTheoretical,
		Date:      date(2024, time.February, 1),
		Result:    domain.ExamResultFailed,
		EntityID:  schoolID,
		DriverID:  driverID,
		Examiner:  &examiner,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("Create failed attempt: %v", err)
	}
	passedID := domain.ExamID(uuid.NewString())
	if err := exams.Create(ctx, examrepoport.Exam{
		ID:        passedID,
		Type:      domain.ExamTypeTheoretical,
		Date:      date(2024, time.March, 1),
		Result:    domain.ExamResultPassed,
		EntityID:  schoolID,
		DriverID:  driverID,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("Create passed attempt: %v", err)
	}

	got, err := exams.GetByID(ctx, failedID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Examiner == nil || *got.Examiner != examiner {
		t.Fatalf("unexpected exam: %#v", got)
	}

	// Attempts come back in date order.
	attempts, err := exams.FindByDriverAndType(ctx, driverID, domain.ExamTypeTheoretical)
	if err != nil {
		t.Fatalf("FindByDriverAndType: %v", err)
	}
	if len(attempts) != 2 || attempts[0].ID != failedID || attempts[1].ID != passedID {
		t.Fatalf("unexpected attempt order: %#v", attempts)
	}
	if other, err := exams.FindByDriverAndType(ctx, driverID, domain.ExamTypeMedical); err != nil || len(other) != 0 {
		t.Fatalf("expected no medical attempts: %#v err=%v", other, err)
	}

	byDriver, err := exams.ListByDriver(ctx, driverID)
	if err != nil || len(byDriver) != 2 {
		t.Fatalf("unexpected ListByDriver: %#v err=%v", byDriver, err)
	}

	// Counters.
	if n, err := exams.CountByResult(ctx, domain.ExamResultPassed); err != nil || n != 1 {
		t.Fatalf("CountByResult: n=%d err=%v", n, err)
	}
	if n, err := exams.CountByType(ctx, domain.ExamTypeTheoretical); err != nil || n != 2 {
		t.Fatalf("CountByType: n=%d err=%v", n, err)
	}
	if n, err := exams.CountByTypeAndResult(ctx, domain.ExamTypeTheoretical, domain.ExamResultPassed); err != nil || n != 1 {
		t.Fatalf("CountByTypeAndResult: n=%d err=%v", n, err)
	}
	if n, err := exams.CountByEntity(ctx, schoolID); err != nil || n != 2 {
		t.Fatalf("CountByEntity: n=%d err=%v", n, err)
	}
	if n, err := exams.CountByEntityAndResult(ctx, schoolID, domain.ExamResultFailed); err != nil || n != 1 {
		t.Fatalf("CountByEntityAndResult: n=%d err=%v", n, err)
	}

	// Save replaces the record; Delete removes it.
	got.Result = domain.ExamResultPassed
	if err := exams.Save(ctx, got); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if n, err := exams.CountByResult(ctx, domain.ExamResultPassed); err != nil || n != 2 {
		t.Fatalf("CountByResult after save: n=%d err=%v", n, err)
	}
	if err := exams.Delete(ctx, failedID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := exams.GetByID(ctx, failedID); !errors.Is(err, examrepoport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
