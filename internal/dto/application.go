package dto

import "github.com/noah-isme/admission-workflow-api/internal/models"

// CreateApplicationRequest is the payload a parent sends to open a draft.
type CreateApplicationRequest struct {
	SchoolID          int64   `json:"schoolId" validate:"required,gt=0"`
	AcademicYearID    int64   `json:"academicYearId" validate:"required,gt=0"`
	AdmissionPeriodID int64   `json:"admissionPeriodId" validate:"required,gt=0"`
	LevelID           int64   `json:"levelId" validate:"required,gt=0"`
	StudentFirstName  string  `json:"studentFirstName" validate:"required,max=100"`
	StudentMiddleName *string `json:"studentMiddleName" validate:"omitempty,max=100"`
	StudentLastName   string  `json:"studentLastName" validate:"required,max=100"`
	BirthDate         string  `json:"birthDate" validate:"required,datetime=2006-01-02"`
	Nationality       string  `json:"nationality" validate:"required,max=64"`
	PreviousSchool    *string `json:"previousSchool" validate:"omitempty,max=255"`
	HomeAddress       *string `json:"homeAddress" validate:"omitempty,max=500"`
}

// UpdateApplicationRequest carries a partial update; nil fields are untouched.
type UpdateApplicationRequest struct {
	SchoolID          *int64  `json:"schoolId" validate:"omitempty,gt=0"`
	AdmissionPeriodID *int64  `json:"admissionPeriodId" validate:"omitempty,gt=0"`
	LevelID           *int64  `json:"levelId" validate:"omitempty,gt=0"`
	StudentFirstName  *string `json:"studentFirstName" validate:"omitempty,min=1,max=100"`
	StudentMiddleName *string `json:"studentMiddleName" validate:"omitempty,max=100"`
	StudentLastName   *string `json:"studentLastName" validate:"omitempty,min=1,max=100"`
	BirthDate         *string `json:"birthDate" validate:"omitempty,datetime=2006-01-02"`
	Nationality       *string `json:"nationality" validate:"omitempty,min=1,max=64"`
	PreviousSchool    *string `json:"previousSchool" validate:"omitempty,max=255"`
	HomeAddress       *string `json:"homeAddress" validate:"omitempty,max=500"`
	StatusNotes       *string `json:"statusNotes" validate:"omitempty,max=2000"`
}

// TransitionApplicationRequest asks for a status change. ExpectedStatus, when
// set, is the status the caller last saw.
type TransitionApplicationRequest struct {
	Status         string  `json:"status" validate:"required"`
	ExpectedStatus string  `json:"expectedStatus"`
	Notes          *string `json:"notes" validate:"omitempty,max=2000"`
}

// WithdrawApplicationRequest carries an optional withdrawal reason.
type WithdrawApplicationRequest struct {
	Reason *string `json:"reason" validate:"omitempty,max=2000"`
}

// ApplicationQuery mirrors supported listing filters.
type ApplicationQuery struct {
	SchoolID          int64
	AdmissionPeriodID int64
	Status            []models.ApplicationStatus
	Search            string
	Page              int
	PageSize          int
}

// ApplicationResponse decorates an application with workflow hints.
type ApplicationResponse struct {
	*models.Application
	StatusMeta         models.StatusMeta `json:"statusMeta"`
	AllowedTransitions []string          `json:"allowedTransitions"`
}

// TransitionResponse reports whether a transition changed anything.
type TransitionResponse struct {
	Changed bool        `json:"changed"`
	Data    interface{} `json:"data"`
}

// StatusCatalogEntry describes one status for display.
type StatusCatalogEntry struct {
	Status   string            `json:"status"`
	Meta     models.StatusMeta `json:"meta"`
	Next     []string          `json:"next"`
	Terminal bool              `json:"terminal"`
}
