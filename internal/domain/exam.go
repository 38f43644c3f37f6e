package domain

import "time"

type ExamType string

const (
	ExamTypeMedical     ExamType = "MEDICAL"
	ExamTypeTheoretical ExamType = "THEORETICAL"
	ExamTypePractical   ExamType = "PRACTICAL"
)

type ExamResult string

const (
	ExamResultPassed ExamResult = "PASSED"
	ExamResultFailed ExamResult = "FAILED"
)

type EntityType string

const (
	EntityTypeClinic        EntityType = "CLINIC"
	EntityTypeDrivingSchool EntityType = "DRIVING_SCHOOL"
)

func KnownExamType(t ExamType) bool {
	switch t {
	case ExamTypeMedical, ExamTypeTheoretical, ExamTypePractical:
		return true
	default:
		return false
	}
}

func KnownExamResult(r ExamResult) bool {
	switch r {
	case ExamResultPassed, ExamResultFailed:
		return true
	default:
		return false
	}
}

func KnownEntityType(t EntityType) bool {
	switch t {
	case EntityTypeClinic, EntityTypeDrivingSchool:
		return true
	default:
		return false
	}
}

// RequiredExamTypes lists the exam types a driver must pass before a
// first-time license issuance.
func RequiredExamTypes() []ExamType {
	return []ExamType{ExamTypeMedical, ExamTypeTheoretical, ExamTypePractical}
}

// ExamRecord is the domain read model for a completed exam attempt.
type ExamRecord struct {
	ID ExamID

	Type   ExamType
	Date   time.Time // date-only semantics
	Result ExamResult

	EntityID EntityID
	DriverID DriverID

	Examiner *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Driver is the read model surfaced by the driver registry lookup.
type Driver struct {
	ID         DriverID
	DocumentID string
	FullName   string
	BirthDate  time.Time // date-only semantics
}

// Entity is an affiliated clinic or driving school.
type Entity struct {
	ID   EntityID
	Name string
	Type EntityType
}
