package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admission-workflow-api/internal/models"
	"github.com/noah-isme/admission-workflow-api/internal/workflow"
)

const (
	schoolID    int64 = 10
	parentID    int64 = 1
	strangerID  int64 = 2
	admissionID int64 = 3
	financeID   int64 = 4
	principalID int64 = 5
)

var fixedNow = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

type actorRoles map[string]bool

func (r actorRoles) grant(actorID int64, role models.Role, school int64) actorRoles {
	r[fmt.Sprintf("%d:%s:%d", actorID, role, school)] = true
	return r
}

func (r actorRoles) HasRole(_ context.Context, actorID int64, role models.Role, school int64) (bool, error) {
	return r[fmt.Sprintf("%d:%s:%d", actorID, role, school)], nil
}

// testGuard grants staff roles at schoolID; strangerID administers another school.
func testGuard() *workflow.Guard {
	roles := actorRoles{}.
		grant(admissionID, models.RoleAdmissionAdmin, schoolID).
		grant(financeID, models.RoleFinanceAdmin, schoolID).
		grant(principalID, models.RoleSchoolAdmin, schoolID).
		grant(strangerID, models.RoleAdmissionAdmin, schoolID+1).
		grant(strangerID, models.RoleFinanceAdmin, schoolID+1)
	return workflow.NewGuard(nil, roles)
}

type activityLogStoreStub struct {
	entries  []*models.ActivityLog
	err      error
	onCreate func(entry *models.ActivityLog)
}

func (s *activityLogStoreStub) Create(_ context.Context, _ *sqlx.Tx, entry *models.ActivityLog) error {
	if s.err != nil {
		return s.err
	}
	if s.onCreate != nil {
		s.onCreate(entry)
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *activityLogStoreStub) ListBySubject(_ context.Context, filter models.ActivityLogFilter) ([]models.ActivityLog, error) {
	var out []models.ActivityLog
	for _, entry := range s.entries {
		if entry.SubjectType == filter.SubjectType && entry.SubjectID == filter.SubjectID {
			out = append(out, *entry)
		}
	}
	return out, s.err
}

// applicationStoreStub serves reads from `read` and locks from `locked`, so a
// test can make the row change between the snapshot and the lock.
type applicationStoreStub struct {
	read       *models.Application
	locked     *models.Application
	count      int
	duplicate  bool
	createErr  error
	updateErr  error
	created    *models.Application
	statusSets []models.ApplicationStatusUpdate
	details    []*models.Application
	filters    []models.ApplicationFilter
	prefixes   []string
}

func newApplicationStoreStub(app *models.Application) *applicationStoreStub {
	read := *app
	locked := *app
	return &applicationStoreStub{read: &read, locked: &locked}
}

func (s *applicationStoreStub) GetByID(_ context.Context, id int64) (*models.Application, error) {
	if s.read == nil || s.read.ID != id {
		return nil, sql.ErrNoRows
	}
	cp := *s.read
	return &cp, nil
}

func (s *applicationStoreStub) LockByID(_ context.Context, _ *sqlx.Tx, id int64) (*models.Application, error) {
	if s.locked == nil || s.locked.ID != id {
		return nil, sql.ErrNoRows
	}
	cp := *s.locked
	return &cp, nil
}

func (s *applicationStoreStub) List(_ context.Context, filter models.ApplicationFilter) ([]models.Application, int, error) {
	s.filters = append(s.filters, filter)
	if s.read == nil {
		return nil, 0, nil
	}
	return []models.Application{*s.read}, 1, nil
}

func (s *applicationStoreStub) CountByNumberPrefix(_ context.Context, _ *sqlx.Tx, schoolID int64, prefix string) (int, error) {
	s.prefixes = append(s.prefixes, fmt.Sprintf("%d:%s", schoolID, prefix))
	return s.count, nil
}

func (s *applicationStoreStub) ExistsActiveDuplicate(context.Context, *sqlx.Tx, *models.Application) (bool, error) {
	return s.duplicate, nil
}

func (s *applicationStoreStub) Create(_ context.Context, _ *sqlx.Tx, app *models.Application) error {
	if s.createErr != nil {
		return s.createErr
	}
	app.ID = 99
	s.created = app
	return nil
}

func (s *applicationStoreStub) UpdateStatus(_ context.Context, _ *sqlx.Tx, _ int64, from models.ApplicationStatus, update models.ApplicationStatusUpdate) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	if s.locked.Status != from {
		return sql.ErrNoRows
	}
	s.statusSets = append(s.statusSets, update)
	return nil
}

func (s *applicationStoreStub) UpdateDetails(_ context.Context, _ *sqlx.Tx, app *models.Application) error {
	s.details = append(s.details, app)
	return nil
}

type schoolLockerStub struct {
	school *models.School
}

func (s *schoolLockerStub) LockByID(_ context.Context, _ *sqlx.Tx, id int64) (*models.School, error) {
	if s.school == nil || s.school.ID != id {
		return nil, sql.ErrNoRows
	}
	cp := *s.school
	return &cp, nil
}

type requirementStub struct {
	required  []int64
	uploaded  []int64
	guardians int
}

func (r *requirementStub) RequiredDocumentTypes(context.Context, *sqlx.Tx, int64, int64) ([]int64, error) {
	return r.required, nil
}

func (r *requirementStub) UploadedDocumentTypes(context.Context, *sqlx.Tx, int64) ([]int64, error) {
	return r.uploaded, nil
}

func (r *requirementStub) CountGuardians(context.Context, *sqlx.Tx, int64) (int, error) {
	return r.guardians, nil
}

type notifierSpy struct {
	changes []StatusChange
}

func (n *notifierSpy) StatusChanged(change StatusChange) {
	n.changes = append(n.changes, change)
}

func draftApplication() *models.Application {
	return &models.Application{
		ID:                7,
		ApplicationNumber: "SMA1-2025-0007",
		SchoolID:          schoolID,
		AcademicYearID:    1,
		AdmissionPeriodID: 2,
		LevelID:           3,
		UserID:            parentID,
		StudentFirstName:  "Ayu",
		StudentLastName:   "Lestari",
		BirthDate:         time.Date(2012, 5, 1, 0, 0, 0, 0, time.UTC),
		Nationality:       "ID",
		NormalizedName:    "ayu lestari",
		Status:            models.ApplicationStatusDraft,
		CreatedAt:         fixedNow.Add(-time.Hour),
		UpdatedAt:         fixedNow.Add(-time.Hour),
	}
}
