package domain

// DriverID identifies a driver record. The driver registry is the source of
// truth for drivers; we treat the id as opaque.
type DriverID string

// LicenseID is an internal identifier for a license record.
type LicenseID string

// ExamID is an internal identifier for an exam record.
type ExamID string

// EntityID identifies an affiliated entity (clinic or driving school).
type EntityID string
