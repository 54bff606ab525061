package models

import "time"

// School is the tenant boundary for applications and role assignments.
type School struct {
	ID        int64     `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ActiveScope names a per-school collection where exactly one row is active.
type ActiveScope string

const (
	ActiveScopeAcademicYear    ActiveScope = "academic_years"
	ActiveScopeAdmissionPeriod ActiveScope = "admission_periods"
)

// Valid reports whether the scope is a known collection.
func (s ActiveScope) Valid() bool {
	return s == ActiveScopeAcademicYear || s == ActiveScopeAdmissionPeriod
}
