package exams

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/transito-regional/licensing-api/internal/domain"
	"github.com/transito-regional/licensing-api/internal/ports/out/driverrepo"
	"github.com/transito-regional/licensing-api/internal/ports/out/entityrepo"
	"github.com/transito-regional/licensing-api/internal/ports/out/examrepo"
)

// Service is the exam eligibility engine: it decides whether an exam may be
// recorded for a given entity and whether a driver may attempt it, and it
// derives pass-rate statistics from the exam store.
type Service struct {
	exams    examrepo.Repository
	drivers  driverrepo.Repository
	entities entityrepo.Repository

	newExamID func() domain.ExamID
}

func NewService(examsRepo examrepo.Repository, driversRepo driverrepo.Repository, entitiesRepo entityrepo.Repository) *Service {
	return &Service{
		exams:    examsRepo,
		drivers:  driversRepo,
		entities: entitiesRepo,
		newExamID: func() domain.ExamID {
			return domain.ExamID(uuid.NewString())
		},
	}
}

// SetNewExamIDForTest overrides exam ID generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewExamIDForTest(fn func() domain.ExamID) {
	if fn != nil {
		s.newExamID = fn
	}
}

// IsValidExamForEntityType reports whether an exam type may be administered
// by an entity of the given type: medical exams belong to clinics,
// theoretical and practical exams to driving schools.
func IsValidExamForEntityType(examType domain.ExamType, entityType domain.EntityType) bool {
	switch examType {
	case domain.ExamTypeMedical:
		return entityType == domain.EntityTypeClinic
	case domain.ExamTypeTheoretical, domain.ExamTypePractical:
		return entityType == domain.EntityTypeDrivingSchool
	default:
		return false
	}
}

// CanTakeExam reports whether the driver may still attempt the exam type.
// An exam type cannot be retaken once passed. Read-only.
func (s *Service) CanTakeExam(ctx context.Context, driverID domain.DriverID, examType domain.ExamType) (bool, error) {
	if !domain.KnownExamType(examType) {
		return false, &Error{Status: 422, Code: "INVALID_EXAM_DATA", Message: "unknown exam type", Details: map[string]any{"examType": string(examType)}}
	}
	if err := s.requireDriver(ctx, driverID); err != nil {
		return false, err
	}
	prior, err := s.exams.FindByDriverAndType(ctx, driverID, examType)
	if err != nil {
		return false, err
	}
	for _, e := range prior {
		if e.Result == domain.ExamResultPassed {
			return false, nil
		}
	}
	return true, nil
}

// RecordExam validates and persists a new exam record. It runs the full
// pre-save validation (entity exists, driver exists, exam type matches the
// entity's type) and enforces the retake rule.
func (s *Service) RecordExam(ctx context.Context, in RecordExamInput) (domain.ExamRecord, error) {
	if err := s.validateExam(ctx, in.Type, in.Date, in.Result, in.EntityID, in.DriverID); err != nil {
		return domain.ExamRecord{}, err
	}

	ok, err := s.CanTakeExam(ctx, in.DriverID, in.Type)
	if err != nil {
		return domain.ExamRecord{}, err
	}
	if !ok {
		return domain.ExamRecord{}, &Error{
			Status:  409,
			Code:    "EXAM_ALREADY_PASSED",
			Message: "exam type already passed by this driver and cannot be retaken",
			Details: map[string]any{"driverId": string(in.DriverID), "examType": string(in.Type)},
		}
	}

	now := time.Now().UTC()
	e := examrepo.Exam{
		ID:        s.newExamID(),
		Type:      in.Type,
		Date:      domain.DateOnly(in.Date),
		Result:    in.Result,
		EntityID:  in.EntityID,
		DriverID:  in.DriverID,
		Examiner:  normalizeExaminer(in.Examiner),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.exams.Create(ctx, e); err != nil {
		if errors.Is(err, examrepo.ErrAlreadyExists) {
			return domain.ExamRecord{}, &Error{Status: 409, Code: "EXAM_ID_CONFLICT", Message: "exam id conflict"}
		}
		return domain.ExamRecord{}, err
	}
	return toDomain(e), nil
}

// UpdateExam replaces an exam's fields and re-runs the full pre-save
// validation before writing.
func (s *Service) UpdateExam(ctx context.Context, id domain.ExamID, in UpdateExamInput) (domain.ExamRecord, error) {
	e, err := s.exams.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, examrepo.ErrNotFound) {
			return domain.ExamRecord{}, errExamNotFound()
		}
		return domain.ExamRecord{}, err
	}

	if err := s.validateExam(ctx, in.Type, in.Date, in.Result, in.EntityID, e.DriverID); err != nil {
		return domain.ExamRecord{}, err
	}

	e.Type = in.Type
	e.Date = domain.DateOnly(in.Date)
	e.Result = in.Result
	e.EntityID = in.EntityID
	e.Examiner = normalizeExaminer(in.Examiner)
	e.UpdatedAt = time.Now().UTC()

	if err := s.exams.Save(ctx, e); err != nil {
		return domain.ExamRecord{}, err
	}
	return toDomain(e), nil
}

func (s *Service) GetExam(ctx context.Context, id domain.ExamID) (domain.ExamRecord, error) {
	e, err := s.exams.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, examrepo.ErrNotFound) {
			return domain.ExamRecord{}, errExamNotFound()
		}
		return domain.ExamRecord{}, err
	}
	return toDomain(e), nil
}

func (s *Service) ListExamsByDriver(ctx context.Context, driverID domain.DriverID) ([]domain.ExamRecord, error) {
	if err := s.requireDriver(ctx, driverID); err != nil {
		return nil, err
	}
	es, err := s.exams.ListByDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ExamRecord, 0, len(es))
	for _, e := range es {
		out = append(out, toDomain(e))
	}
	return out, nil
}

func (s *Service) DeleteExam(ctx context.Context, id domain.ExamID) error {
	if err := s.exams.Delete(ctx, id); err != nil {
		if errors.Is(err, examrepo.ErrNotFound) {
			return errExamNotFound()
		}
		return err
	}
	return nil
}

// HasPassedAllRequiredExams reports whether the driver has at least one
// passed record for each required exam type. This is the gating condition
// for first-time license issuance; issuance itself does not re-check it.
func (s *Service) HasPassedAllRequiredExams(ctx context.Context, driverID domain.DriverID) (bool, error) {
	if err := s.requireDriver(ctx, driverID); err != nil {
		return false, err
	}
	for _, t := range domain.RequiredExamTypes() {
		attempts, err := s.exams.FindByDriverAndType(ctx, driverID, t)
		if err != nil {
			return false, err
		}
		passed := false
		for _, e := range attempts {
			if e.Result == domain.ExamResultPassed {
				passed = true
				break
			}
		}
		if !passed {
			return false, nil
		}
	}
	return true, nil
}

// PassRateByType computes passed/total*100 for one exam type. An empty
// population yields 0, not an error.
func (s *Service) PassRateByType(ctx context.Context, t domain.ExamType) (PassRate, error) {
	if !domain.KnownExamType(t) {
		return PassRate{}, &Error{Status: 422, Code: "INVALID_EXAM_DATA", Message: "unknown exam type", Details: map[string]any{"examType": string(t)}}
	}
	total, err := s.exams.CountByType(ctx, t)
	if err != nil {
		return PassRate{}, err
	}
	passed, err := s.exams.CountByTypeAndResult(ctx, t, domain.ExamResultPassed)
	if err != nil {
		return PassRate{}, err
	}
	return passRate(passed, total), nil
}

// PassRateByEntity computes passed/total*100 across one entity's exams.
func (s *Service) PassRateByEntity(ctx context.Context, entityID domain.EntityID) (PassRate, error) {
	total, err := s.exams.CountByEntity(ctx, entityID)
	if err != nil {
		return PassRate{}, err
	}
	passed, err := s.exams.CountByEntityAndResult(ctx, entityID, domain.ExamResultPassed)
	if err != nil {
		return PassRate{}, err
	}
	return passRate(passed, total), nil
}

func passRate(passed, total int) PassRate {
	r := PassRate{Passed: passed, Total: total}
	if total > 0 {
		r.Rate = float64(passed) / float64(total) * 100
	}
	return r
}

// validateExam is the composite pre-save check: known enum values, a real
// entity, a real driver, and an exam type the entity may administer.
func (s *Service) validateExam(ctx context.Context, t domain.ExamType, date time.Time, r domain.ExamResult, entityID domain.EntityID, driverID domain.DriverID) error {
	if !domain.KnownExamType(t) {
		return &Error{Status: 422, Code: "INVALID_EXAM_DATA", Message: "unknown exam type", Details: map[string]any{"examType": string(t)}}
	}
	if !domain.KnownExamResult(r) {
		return &Error{Status: 422, Code: "INVALID_EXAM_DATA", Message: "unknown exam result", Details: map[string]any{"result": string(r)}}
	}
	if date.IsZero() {
		return &Error{Status: 422, Code: "INVALID_EXAM_DATA", Message: "exam date is required", Details: map[string]any{"date": "must be set"}}
	}

	entity, err := s.entities.GetByID(ctx, entityID)
	if err != nil {
		if errors.Is(err, entityrepo.ErrNotFound) {
			return &Error{
				Status:  422,
				Code:    "ENTITY_NOT_FOUND",
				Message: "entity does not exist",
				Details: map[string]any{"entityId": string(entityID)},
			}
		}
		return err
	}
	if err := s.requireDriver(ctx, driverID); err != nil {
		return err
	}
	if !IsValidExamForEntityType(t, entity.Type) {
		return &Error{
			Status:  422,
			Code:    "INVALID_EXAM_DATA",
			Message: fmt.Sprintf("exam type %s cannot be administered by entity %s of type %s", t, entityID, entity.Type),
			Details: map[string]any{
				"examType":   string(t),
				"entityId":   string(entityID),
				"entityType": string(entity.Type),
			},
		}
	}
	return nil
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

func errExamNotFound() *Error {
	return &Error{Status: 404, Code: "EXAM_NOT_FOUND", Message: "exam not found"}
}

func normalizeExaminer(p *string) *string {
	if p == nil {
		return nil
	}
	v := domain.NormalizeFreeText(*p)
	if v == "" {
		return nil
	}
	return &v
}

func toDomain(e examrepo.Exam) domain.ExamRecord {
	return domain.ExamRecord{
		ID:        e.ID,
		Type:      e.Type,
		Date:      e.Date,
		Result:    e.Result,
		EntityID:  e.EntityID,
		DriverID:  e.DriverID,
		Examiner:  cloneStringPtr(e.Examiner),
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
