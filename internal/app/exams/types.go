package exams

import (
	"time"

	"github.com/transito-regional/licensing-api/internal/domain"
)

type RecordExamInput struct {
	Type   domain.ExamType
	Date   time.Time
	Result domain.ExamResult

	EntityID domain.EntityID
	DriverID domain.DriverID

	Examiner *string
}

// UpdateExamInput replaces the mutable fields of an exam record; the whole
// record is re-validated on save rather than patched field by field.
type UpdateExamInput struct {
	Type   domain.ExamType
	Date   time.Time
	Result domain.ExamResult

	EntityID domain.EntityID

	Examiner *string
}

// PassRate is a percentage in [0, 100]; an empty population yields 0.
type PassRate struct {
	Passed int
	Total  int
	Rate   float64
}
