package examrepo

import (
	"context"
	"time"

	"github.com/transito-regional/licensing-api/internal/domain"
)

// Exam is the persistence shape used by the exam record repository.
type Exam struct {
	ID domain.ExamID

	Type   domain.ExamType
	Date   time.Time // date-only semantics
	Result domain.ExamResult

	EntityID domain.EntityID
	DriverID domain.DriverID

	Examiner *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides access to persisted exam records. The eligibility
// engine reads it for history-dependent decisions (retake rule, statistics).
type Repository interface {
	Create(ctx context.Context, e Exam) error
	Save(ctx context.Context, e Exam) error
	Delete(ctx context.Context, id domain.ExamID) error

	GetByID(ctx context.Context, id domain.ExamID) (Exam, error)

	// FindByDriverAndType returns all of the driver's attempts of one exam
	// type, ordered by exam date ascending.
	FindByDriverAndType(ctx context.Context, driverID domain.DriverID, t domain.ExamType) ([]Exam, error)
	ListByDriver(ctx context.Context, driverID domain.DriverID) ([]Exam, error)

	CountByResult(ctx context.Context, r domain.ExamResult) (int, error)
	CountByType(ctx context.Context, t domain.ExamType) (int, error)
	CountByTypeAndResult(ctx context.Context, t domain.ExamType, r domain.ExamResult) (int, error)
	CountByEntity(ctx context.Context, entityID domain.EntityID) (int, error)
	CountByEntityAndResult(ctx context.Context, entityID domain.EntityID, r domain.ExamResult) (int, error)
}
