package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/admission-workflow-api/internal/dto"
	"github.com/noah-isme/admission-workflow-api/internal/models"
	"github.com/noah-isme/admission-workflow-api/internal/workflow"
	"github.com/noah-isme/admission-workflow-api/pkg/database"
	appErrors "github.com/noah-isme/admission-workflow-api/pkg/errors"
	"github.com/noah-isme/admission-workflow-api/pkg/logger"
)

const birthDateLayout = "2006-01-02"

type applicationStore interface {
	GetByID(ctx context.Context, id int64) (*models.Application, error)
	LockByID(ctx context.Context, tx *sqlx.Tx, id int64) (*models.Application, error)
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error)
	CountByNumberPrefix(ctx context.Context, tx *sqlx.Tx, schoolID int64, prefix string) (int, error)
	ExistsActiveDuplicate(ctx context.Context, tx *sqlx.Tx, app *models.Application) (bool, error)
	Create(ctx context.Context, tx *sqlx.Tx, app *models.Application) error
	UpdateStatus(ctx context.Context, tx *sqlx.Tx, id int64, from models.ApplicationStatus, update models.ApplicationStatusUpdate) error
	UpdateDetails(ctx context.Context, tx *sqlx.Tx, app *models.Application) error
}

type schoolLocker interface {
	LockByID(ctx context.Context, tx *sqlx.Tx, id int64) (*models.School, error)
}

type requirementReader interface {
	RequiredDocumentTypes(ctx context.Context, tx *sqlx.Tx, schoolID, levelID int64) ([]int64, error)
	UploadedDocumentTypes(ctx context.Context, tx *sqlx.Tx, applicationID int64) ([]int64, error)
	CountGuardians(ctx context.Context, tx *sqlx.Tx, applicationID int64) (int, error)
}

// ApplicationService runs the admission application workflow.
type ApplicationService struct {
	apps         applicationStore
	schools      schoolLocker
	requirements requirementReader
	guard        *workflow.Guard
	audit        auditRecorder
	notifier     statusNotifier
	tx           txProvider
	validator    *validator.Validate
	metrics      *MetricsService
	logger       *zap.Logger
	now          func() time.Time
}

// NewApplicationService wires application workflow dependencies.
func NewApplicationService(
	apps applicationStore,
	schools schoolLocker,
	requirements requirementReader,
	guard *workflow.Guard,
	audit auditRecorder,
	notifier statusNotifier,
	tx txProvider,
	validate *validator.Validate,
	metrics *MetricsService,
	logger *zap.Logger,
) *ApplicationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApplicationService{
		apps:         apps,
		schools:      schools,
		requirements: requirements,
		guard:        guard,
		audit:        audit,
		notifier:     notifier,
		tx:           tx,
		validator:    validate,
		metrics:      metrics,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Create opens a draft application owned by actorID.
func (s *ApplicationService) Create(ctx context.Context, req dto.CreateApplicationRequest, actorID int64) (app *models.Application, err error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid application payload")
	}
	birthDate, err := time.Parse(birthDateLayout, req.BirthDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid birth date")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	school, err := s.schools.LockByID(ctx, tx, req.SchoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrNotFound, "school not found")
			return nil, err
		}
		err = storeError(err, "failed to load school")
		return nil, err
	}
	if !school.IsActive {
		err = appErrors.Clone(appErrors.ErrValidation, "school is not accepting applications")
		return nil, err
	}

	now := s.now()
	prefix := models.ApplicationNumberPrefix(school.Code, now.Year())
	count, err := s.apps.CountByNumberPrefix(ctx, tx, school.ID, prefix)
	if err != nil {
		err = storeError(err, "failed to number application")
		return nil, err
	}

	app = &models.Application{
		ApplicationNumber: models.FormatApplicationNumber(school.Code, now.Year(), count+1),
		SchoolID:          req.SchoolID,
		AcademicYearID:    req.AcademicYearID,
		AdmissionPeriodID: req.AdmissionPeriodID,
		LevelID:           req.LevelID,
		UserID:            actorID,
		StudentFirstName:  strings.TrimSpace(req.StudentFirstName),
		StudentMiddleName: req.StudentMiddleName,
		StudentLastName:   strings.TrimSpace(req.StudentLastName),
		BirthDate:         birthDate,
		Nationality:       strings.TrimSpace(req.Nationality),
		PreviousSchool:    req.PreviousSchool,
		HomeAddress:       req.HomeAddress,
		NormalizedName:    models.NormalizeStudentName(req.StudentFirstName, req.StudentLastName),
		Status:            models.ApplicationStatusDraft,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	duplicate, err := s.apps.ExistsActiveDuplicate(ctx, tx, app)
	if err != nil {
		err = storeError(err, "failed to check duplicate application")
		return nil, err
	}
	if duplicate {
		err = appErrors.Clone(appErrors.ErrConflict, "duplicate active application")
		return nil, err
	}

	if err = s.apps.Create(ctx, tx, app); err != nil {
		switch {
		case database.IsUniqueViolation(err, activeStudentConstraint):
			err = appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "duplicate active application")
			return nil, err
		case database.IsUniqueViolation(err, ""):
			err = appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "application number already taken, retry")
			return nil, err
		}
		err = storeError(err, "failed to create application")
		return nil, err
	}

	if err = s.audit.Record(ctx, tx, AuditEntry{
		ActorID:     actorID,
		SubjectType: models.SubjectTypeApplication,
		SubjectID:   app.ID,
		Event:       models.ActivityEventCreated,
		NewValues:   map[string]interface{}{"status": app.Status, "application_number": app.ApplicationNumber},
	}); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		err = storeError(err, "failed to commit application")
		return nil, err
	}

	logger.FromContext(ctx, s.logger).Info("application created",
		zap.Int64("application_id", app.ID),
		zap.String("application_number", app.ApplicationNumber),
		zap.Int64("actor_id", actorID),
	)
	return app, nil
}

// Get returns an application visible to actorID.
func (s *ApplicationService) Get(ctx context.Context, id, actorID int64) (*models.Application, error) {
	app, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	standing, err := s.guard.Authorize(ctx, applicationSubject(app), actorID)
	if err != nil {
		return nil, err
	}
	if !standing.Any() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "no access to application")
	}
	return app, nil
}

// List returns applications of a school for its staff, or the actor's own
// applications when no school is given.
func (s *ApplicationService) List(ctx context.Context, query dto.ApplicationQuery, actorID int64) ([]models.Application, *models.Pagination, error) {
	filter := models.ApplicationFilter{
		SchoolID:          query.SchoolID,
		AdmissionPeriodID: query.AdmissionPeriodID,
		Status:            query.Status,
		Search:            query.Search,
		Page:              query.Page,
		PageSize:          query.PageSize,
	}
	for _, status := range filter.Status {
		if !status.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", status))
		}
	}

	if filter.SchoolID != 0 {
		standing, err := s.guard.Authorize(ctx, workflow.Subject{Entity: workflow.EntityApplication, SchoolID: filter.SchoolID}, actorID)
		if err != nil {
			return nil, nil, err
		}
		if !standing.Staff {
			filter.UserID = actorID
		}
	} else {
		filter.UserID = actorID
	}

	apps, total, err := s.apps.List(ctx, filter)
	if err != nil {
		return nil, nil, storeError(err, "failed to list applications")
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	return apps, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// History returns the activity log of an application visible to actorID.
func (s *ApplicationService) History(ctx context.Context, id, actorID int64, limit, offset int) ([]models.ActivityLog, error) {
	if _, err := s.Get(ctx, id, actorID); err != nil {
		return nil, err
	}
	return s.audit.ListBySubject(ctx, models.SubjectTypeApplication, id, limit, offset)
}

// Submit moves a draft to submitted. It is idempotent: an application that
// already left draft yields changed=false and no error.
func (s *ApplicationService) Submit(ctx context.Context, id, actorID int64) (bool, *models.Application, error) {
	return s.transition(ctx, id, actorID, models.ApplicationStatusSubmitted, transitionOptions{submit: true})
}

// TransitionStatus is the generic entry point for staff actions and
// withdrawals. A non-empty expected status is checked before anything else.
func (s *ApplicationService) TransitionStatus(ctx context.Context, id int64, req dto.TransitionApplicationRequest, actorID int64) (bool, *models.Application, error) {
	if err := s.validator.Struct(req); err != nil {
		return false, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transition payload")
	}
	opts := transitionOptions{notes: req.Notes}
	if req.ExpectedStatus != "" {
		opts.expected = models.ApplicationStatus(req.ExpectedStatus)
	}
	return s.transition(ctx, id, actorID, models.ApplicationStatus(req.Status), opts)
}

// Withdraw moves an application to withdrawn.
func (s *ApplicationService) Withdraw(ctx context.Context, id int64, reason *string, actorID int64) (bool, *models.Application, error) {
	return s.transition(ctx, id, actorID, models.ApplicationStatusWithdrawn, transitionOptions{notes: reason})
}

// UpdateDetails applies a partial update. Locked fields may only change while
// the application is a draft.
func (s *ApplicationService) UpdateDetails(ctx context.Context, id int64, req dto.UpdateApplicationRequest, actorID int64) (app *models.Application, err error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid application payload")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	current, err := s.lock(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	standing, err := s.guard.Authorize(ctx, applicationSubject(current), actorID)
	if err != nil {
		return nil, err
	}
	if !standing.Any() {
		err = appErrors.Clone(appErrors.ErrForbidden, "no access to application")
		return nil, err
	}

	updated := *current
	changed, oldValues, newValues, err := applyApplicationChanges(&updated, req)
	if err != nil {
		return nil, err
	}
	if len(changed) == 0 {
		_ = tx.Rollback()
		return current, nil
	}
	if err = workflow.AssertMutable(current.Status, changed); err != nil {
		return nil, err
	}

	updated.NormalizedName = models.NormalizeStudentName(updated.StudentFirstName, updated.StudentLastName)
	updated.UpdatedAt = s.now()
	if updated.NormalizedName != current.NormalizedName || !updated.BirthDate.Equal(current.BirthDate) ||
		updated.SchoolID != current.SchoolID || updated.AdmissionPeriodID != current.AdmissionPeriodID {
		duplicate, dupErr := s.apps.ExistsActiveDuplicate(ctx, tx, &updated)
		if dupErr != nil {
			err = storeError(dupErr, "failed to check duplicate application")
			return nil, err
		}
		if duplicate {
			err = appErrors.Clone(appErrors.ErrConflict, "duplicate active application")
			return nil, err
		}
	}

	if err = s.apps.UpdateDetails(ctx, tx, &updated); err != nil {
		if database.IsUniqueViolation(err, "") {
			err = appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "duplicate active application")
			return nil, err
		}
		err = storeError(err, "failed to update application")
		return nil, err
	}

	if err = s.audit.Record(ctx, tx, AuditEntry{
		ActorID:     actorID,
		SubjectType: models.SubjectTypeApplication,
		SubjectID:   id,
		Event:       models.ActivityEventUpdated,
		OldValues:   oldValues,
		NewValues:   newValues,
	}); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		err = storeError(err, "failed to commit application")
		return nil, err
	}
	return &updated, nil
}

// activeStudentConstraint is the partial unique index over active applications
// of the same child.
const activeStudentConstraint = "uq_applications_active_student"

type transitionOptions struct {
	notes    *string
	expected models.ApplicationStatus
	submit   bool
}

func (s *ApplicationService) transition(ctx context.Context, id, actorID int64, to models.ApplicationStatus, opts transitionOptions) (changed bool, app *models.Application, err error) {
	start := time.Now()
	log := logger.FromContext(ctx, s.logger)
	defer func() {
		outcome := transitionOutcome(err)
		if err == nil && !changed {
			outcome = OutcomeNoop
		}
		s.metrics.RecordTransition(string(workflow.EntityApplication), targetLabel(s.guard.Registry(), workflow.EntityApplication, string(to)), outcome, time.Since(start))
		if err != nil {
			log.Debug("application transition refused",
				zap.Int64("application_id", id),
				zap.String("to", string(to)),
				zap.Int64("actor_id", actorID),
				zap.Error(err),
			)
		}
	}()

	// Guard against the snapshot first so unauthorised and invalid requests
	// never open a write transaction.
	snapshot, err := s.load(ctx, id)
	if err != nil {
		return false, nil, err
	}
	if opts.expected != "" && snapshot.Status != opts.expected {
		return false, nil, s.staleError(snapshot.Status, opts.expected, to)
	}
	if opts.submit && snapshot.Status != models.ApplicationStatusDraft {
		return s.submitNoop(ctx, snapshot, actorID)
	}
	allowed, err := s.guard.Check(ctx, applicationSubject(snapshot), string(to), actorID, nil)
	if err != nil {
		return false, nil, err
	}
	if !allowed {
		return false, snapshot, nil
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return false, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil || !changed {
			_ = tx.Rollback()
		}
	}()

	current, err := s.lock(ctx, tx, id)
	if err != nil {
		return false, nil, err
	}
	if current.Status != snapshot.Status {
		if opts.submit || current.Status == to {
			return false, current, nil
		}
		err = s.staleError(current.Status, snapshot.Status, to)
		return false, nil, err
	}

	changed, err = s.guard.Check(ctx, applicationSubject(current), string(to), actorID, s.preconditions(tx, current))
	if err != nil || !changed {
		return false, current, err
	}

	// The activity row goes in first; a failed update rolls it back with the tx.
	oldValues := map[string]interface{}{"status": current.Status, "status_notes": stringValue(current.StatusNotes)}
	newValues := map[string]interface{}{"status": to}
	if opts.notes != nil {
		newValues["status_notes"] = *opts.notes
	}
	if err = s.audit.Record(ctx, tx, AuditEntry{
		ActorID:     actorID,
		SubjectType: models.SubjectTypeApplication,
		SubjectID:   id,
		Event:       models.ActivityEventStatusChanged,
		OldValues:   oldValues,
		NewValues:   newValues,
	}); err != nil {
		return false, nil, err
	}

	now := s.now()
	update := applicationStatusUpdate(to, opts.notes, now)
	if err = s.apps.UpdateStatus(ctx, tx, id, current.Status, update); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = s.staleError("", current.Status, to)
			return false, nil, err
		}
		err = storeError(err, "failed to update application status")
		return false, nil, err
	}

	if err = tx.Commit(); err != nil {
		err = storeError(err, "failed to commit status change")
		return false, nil, err
	}

	from := current.Status
	result := *current
	applyStatusUpdate(&result, update)

	log.Info("status transition committed",
		zap.String("entity", string(workflow.EntityApplication)),
		zap.Int64("id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.Int64("actor_id", actorID),
	)
	if s.notifier == nil {
		return true, &result, nil
	}
	s.notifier.StatusChanged(StatusChange{
		Entity:    models.SubjectTypeApplication,
		SubjectID: id,
		Reference: result.ApplicationNumber,
		From:      string(from),
		To:        string(to),
		OwnerID:   result.UserID,
		ActorID:   actorID,
	})
	return true, &result, nil
}

func (s *ApplicationService) submitNoop(ctx context.Context, app *models.Application, actorID int64) (bool, *models.Application, error) {
	standing, err := s.guard.Authorize(ctx, applicationSubject(app), actorID)
	if err != nil {
		return false, nil, err
	}
	if !standing.Any() {
		return false, nil, appErrors.Clone(appErrors.ErrUnauthorizedTransition, fmt.Sprintf("actor has no access to application %d", app.ID))
	}
	return false, app, nil
}

func (s *ApplicationService) staleError(actual, seen, to models.ApplicationStatus) error {
	message := fmt.Sprintf("application changed since it was read as %s; re-read before moving it to %s", seen, to)
	if actual != "" {
		message = fmt.Sprintf("application is now %s, not %s; re-read before moving it to %s", actual, seen, to)
	}
	return appErrors.Clone(appErrors.ErrConcurrentModification, message)
}

// preconditions evaluates business rules inside tx so they see the same
// snapshot as the status write.
func (s *ApplicationService) preconditions(tx *sqlx.Tx, app *models.Application) workflow.PreconditionFunc {
	return func(ctx context.Context, _ workflow.Subject, to string) error {
		if models.ApplicationStatus(to) != models.ApplicationStatusSubmitted {
			return nil
		}
		required, err := s.requirements.RequiredDocumentTypes(ctx, tx, app.SchoolID, app.LevelID)
		if err != nil {
			return storeError(err, "failed to load required documents")
		}
		uploaded, err := s.requirements.UploadedDocumentTypes(ctx, tx, app.ID)
		if err != nil {
			return storeError(err, "failed to load uploaded documents")
		}
		if missing := missingDocumentTypes(required, uploaded); len(missing) > 0 {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("missing required documents: %v", missing))
		}
		guardians, err := s.requirements.CountGuardians(ctx, tx, app.ID)
		if err != nil {
			return storeError(err, "failed to count guardians")
		}
		if guardians < 1 {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "at least one parent or guardian is required")
		}
		return nil
	}
}

func (s *ApplicationService) load(ctx context.Context, id int64) (*models.Application, error) {
	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, storeError(err, "failed to load application")
	}
	return app, nil
}

func (s *ApplicationService) lock(ctx context.Context, tx *sqlx.Tx, id int64) (*models.Application, error) {
	app, err := s.apps.LockByID(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, storeError(err, "failed to lock application")
	}
	return app, nil
}

func applicationSubject(app *models.Application) workflow.Subject {
	return workflow.Subject{
		Entity:   workflow.EntityApplication,
		ID:       app.ID,
		Status:   string(app.Status),
		SchoolID: app.SchoolID,
		OwnerID:  app.UserID,
	}
}

func applicationStatusUpdate(to models.ApplicationStatus, notes *string, now time.Time) models.ApplicationStatusUpdate {
	update := models.ApplicationStatusUpdate{Status: to, StatusNotes: notes, UpdatedAt: now}
	switch to {
	case models.ApplicationStatusSubmitted:
		update.SubmittedAt = timePtr(now)
	case models.ApplicationStatusUnderReview:
		update.ReviewedAt = timePtr(now)
	case models.ApplicationStatusAccepted, models.ApplicationStatusRejected, models.ApplicationStatusWaitlisted:
		update.DecisionAt = timePtr(now)
	case models.ApplicationStatusEnrolled:
		update.EnrolledAt = timePtr(now)
	}
	return update
}

func applyStatusUpdate(app *models.Application, update models.ApplicationStatusUpdate) {
	app.Status = update.Status
	app.UpdatedAt = update.UpdatedAt
	if update.StatusNotes != nil {
		app.StatusNotes = update.StatusNotes
	}
	if update.SubmittedAt != nil {
		app.SubmittedAt = update.SubmittedAt
	}
	if update.ReviewedAt != nil {
		app.ReviewedAt = update.ReviewedAt
	}
	if update.DecisionAt != nil {
		app.DecisionAt = update.DecisionAt
	}
	if update.EnrolledAt != nil {
		app.EnrolledAt = update.EnrolledAt
	}
}

func missingDocumentTypes(required, uploaded []int64) []int64 {
	have := make(map[int64]struct{}, len(uploaded))
	for _, id := range uploaded {
		have[id] = struct{}{}
	}
	var missing []int64
	for _, id := range required {
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// applyApplicationChanges copies requested values onto app and returns the
// names of fields whose value actually changes.
func applyApplicationChanges(app *models.Application, req dto.UpdateApplicationRequest) ([]string, map[string]interface{}, map[string]interface{}, error) {
	var changed []string
	oldValues := map[string]interface{}{}
	newValues := map[string]interface{}{}
	mark := func(field string, oldValue, newValue interface{}) {
		changed = append(changed, field)
		oldValues[field] = oldValue
		newValues[field] = newValue
	}

	if req.SchoolID != nil && *req.SchoolID != app.SchoolID {
		mark(models.FieldSchoolID, app.SchoolID, *req.SchoolID)
		app.SchoolID = *req.SchoolID
	}
	if req.AdmissionPeriodID != nil && *req.AdmissionPeriodID != app.AdmissionPeriodID {
		mark(models.FieldAdmissionPeriodID, app.AdmissionPeriodID, *req.AdmissionPeriodID)
		app.AdmissionPeriodID = *req.AdmissionPeriodID
	}
	if req.LevelID != nil && *req.LevelID != app.LevelID {
		mark(models.FieldLevelID, app.LevelID, *req.LevelID)
		app.LevelID = *req.LevelID
	}
	if req.StudentFirstName != nil {
		if v := strings.TrimSpace(*req.StudentFirstName); v != app.StudentFirstName {
			mark(models.FieldStudentFirstName, app.StudentFirstName, v)
			app.StudentFirstName = v
		}
	}
	if req.StudentMiddleName != nil && *req.StudentMiddleName != derefString(app.StudentMiddleName) {
		mark(models.FieldStudentMiddleName, stringValue(app.StudentMiddleName), *req.StudentMiddleName)
		app.StudentMiddleName = req.StudentMiddleName
	}
	if req.StudentLastName != nil {
		if v := strings.TrimSpace(*req.StudentLastName); v != app.StudentLastName {
			mark(models.FieldStudentLastName, app.StudentLastName, v)
			app.StudentLastName = v
		}
	}
	if req.BirthDate != nil {
		birthDate, err := time.Parse(birthDateLayout, *req.BirthDate)
		if err != nil {
			return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid birth date")
		}
		if !birthDate.Equal(app.BirthDate) {
			mark(models.FieldBirthDate, app.BirthDate.Format(birthDateLayout), *req.BirthDate)
			app.BirthDate = birthDate
		}
	}
	if req.Nationality != nil {
		if v := strings.TrimSpace(*req.Nationality); v != app.Nationality {
			mark(models.FieldNationality, app.Nationality, v)
			app.Nationality = v
		}
	}
	if req.PreviousSchool != nil && *req.PreviousSchool != derefString(app.PreviousSchool) {
		mark(models.FieldPreviousSchool, stringValue(app.PreviousSchool), *req.PreviousSchool)
		app.PreviousSchool = req.PreviousSchool
	}
	if req.HomeAddress != nil && *req.HomeAddress != derefString(app.HomeAddress) {
		mark(models.FieldHomeAddress, stringValue(app.HomeAddress), *req.HomeAddress)
		app.HomeAddress = req.HomeAddress
	}
	if req.StatusNotes != nil && *req.StatusNotes != derefString(app.StatusNotes) {
		mark(models.FieldStatusNotes, stringValue(app.StatusNotes), *req.StatusNotes)
		app.StatusNotes = req.StatusNotes
	}
	return changed, oldValues, newValues, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
