package models

import (
	"fmt"
	"strings"
	"time"
)

// ApplicationStatus enumerates the admission workflow states.
type ApplicationStatus string

const (
	ApplicationStatusDraft              ApplicationStatus = "draft"
	ApplicationStatusSubmitted          ApplicationStatus = "submitted"
	ApplicationStatusUnderReview        ApplicationStatus = "under_review"
	ApplicationStatusDocumentsVerified  ApplicationStatus = "documents_verified"
	ApplicationStatusInterviewScheduled ApplicationStatus = "interview_scheduled"
	ApplicationStatusInterviewCompleted ApplicationStatus = "interview_completed"
	ApplicationStatusPaymentPending     ApplicationStatus = "payment_pending"
	ApplicationStatusPaymentVerified    ApplicationStatus = "payment_verified"
	ApplicationStatusAccepted           ApplicationStatus = "accepted"
	ApplicationStatusWaitlisted         ApplicationStatus = "waitlisted"
	ApplicationStatusRejected           ApplicationStatus = "rejected"
	ApplicationStatusEnrolled           ApplicationStatus = "enrolled"
	ApplicationStatusWithdrawn          ApplicationStatus = "withdrawn"
)

// ApplicationStatuses lists every application status in workflow order.
var ApplicationStatuses = []ApplicationStatus{
	ApplicationStatusDraft,
	ApplicationStatusSubmitted,
	ApplicationStatusUnderReview,
	ApplicationStatusDocumentsVerified,
	ApplicationStatusInterviewScheduled,
	ApplicationStatusInterviewCompleted,
	ApplicationStatusPaymentPending,
	ApplicationStatusPaymentVerified,
	ApplicationStatusAccepted,
	ApplicationStatusWaitlisted,
	ApplicationStatusRejected,
	ApplicationStatusEnrolled,
	ApplicationStatusWithdrawn,
}

// Valid reports whether s is one of the enumerated statuses.
func (s ApplicationStatus) Valid() bool {
	for _, status := range ApplicationStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Active reports whether the application still counts against the duplicate guard.
func (s ApplicationStatus) Active() bool {
	return s != ApplicationStatusRejected && s != ApplicationStatusWithdrawn
}

// Application field names, as used by the immutability rules and the database.
const (
	FieldStudentFirstName  = "student_first_name"
	FieldStudentMiddleName = "student_middle_name"
	FieldStudentLastName   = "student_last_name"
	FieldBirthDate         = "birth_date"
	FieldNationality       = "nationality"
	FieldSchoolID          = "school_id"
	FieldAdmissionPeriodID = "admission_period_id"
	FieldLevelID           = "level_id"
	FieldPreviousSchool    = "previous_school"
	FieldHomeAddress       = "home_address"
	FieldStatusNotes       = "status_notes"
)

// Application is a single child's admission request.
type Application struct {
	ID                int64             `db:"id" json:"id"`
	ApplicationNumber string            `db:"application_number" json:"application_number"`
	SchoolID          int64             `db:"school_id" json:"school_id"`
	AcademicYearID    int64             `db:"academic_year_id" json:"academic_year_id"`
	AdmissionPeriodID int64             `db:"admission_period_id" json:"admission_period_id"`
	LevelID           int64             `db:"level_id" json:"level_id"`
	UserID            int64             `db:"user_id" json:"user_id"`
	StudentFirstName  string            `db:"student_first_name" json:"student_first_name"`
	StudentMiddleName *string           `db:"student_middle_name" json:"student_middle_name,omitempty"`
	StudentLastName   string            `db:"student_last_name" json:"student_last_name"`
	BirthDate         time.Time         `db:"birth_date" json:"birth_date"`
	Nationality       string            `db:"nationality" json:"nationality"`
	PreviousSchool    *string           `db:"previous_school" json:"previous_school,omitempty"`
	HomeAddress       *string           `db:"home_address" json:"home_address,omitempty"`
	NormalizedName    string            `db:"normalized_name" json:"-"`
	Status            ApplicationStatus `db:"status" json:"status"`
	StatusNotes       *string           `db:"status_notes" json:"status_notes,omitempty"`
	SubmittedAt       *time.Time        `db:"submitted_at" json:"submitted_at,omitempty"`
	ReviewedAt        *time.Time        `db:"reviewed_at" json:"reviewed_at,omitempty"`
	DecisionAt        *time.Time        `db:"decision_at" json:"decision_at,omitempty"`
	EnrolledAt        *time.Time        `db:"enrolled_at" json:"enrolled_at,omitempty"`
	CreatedAt         time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time         `db:"updated_at" json:"updated_at"`
}

// ApplicationFilter constrains listing queries.
type ApplicationFilter struct {
	SchoolID          int64
	AdmissionPeriodID int64
	UserID            int64
	Status            []ApplicationStatus
	Search            string
	Page              int
	PageSize          int
}

// NormalizeStudentName folds first and last name into the form used by the
// duplicate-application guard: lower case, single spaces, trimmed.
func NormalizeStudentName(first, last string) string {
	joined := strings.ToLower(first + " " + last)
	return strings.Join(strings.Fields(joined), " ")
}

// ApplicationNumberPrefix renders the {schoolCode}-{year}- part shared by a
// school's numbers for one year.
func ApplicationNumberPrefix(schoolCode string, year int) string {
	return fmt.Sprintf("%s-%d-", strings.ToUpper(strings.TrimSpace(schoolCode)), year)
}

// FormatApplicationNumber renders {schoolCode}-{year}-{4-digit sequence}.
func FormatApplicationNumber(schoolCode string, year, sequence int) string {
	return fmt.Sprintf("%s%04d", ApplicationNumberPrefix(schoolCode, year), sequence)
}

// ApplicationStatusUpdate carries a status write. Nil timestamps and notes
// leave the stored values untouched.
type ApplicationStatusUpdate struct {
	Status      ApplicationStatus
	StatusNotes *string
	SubmittedAt *time.Time
	ReviewedAt  *time.Time
	DecisionAt  *time.Time
	EnrolledAt  *time.Time
	UpdatedAt   time.Time
}
