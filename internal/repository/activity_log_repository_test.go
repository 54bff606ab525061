package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admission-workflow-api/internal/models"
)

func TestActivityLogCreateAssignsIdentity(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewActivityLogRepository(db)
	tx := beginTx(t, db, mock)

	mock.ExpectExec("INSERT INTO activity_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	entry := &models.ActivityLog{
		ActorID:     1,
		SubjectType: models.SubjectTypeApplication,
		SubjectID:   7,
		Event:       models.ActivityEventStatusChanged,
		OldValues:   types.JSONText(`{"status":"draft"}`),
		NewValues:   types.JSONText(`{"status":"submitted"}`),
	}
	require.NoError(t, repo.Create(context.Background(), tx, entry))
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityLogListBySubject(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewActivityLogRepository(db)

	rows := sqlmock.NewRows([]string{"id", "actor_id", "subject_type", "subject_id", "event", "old_values", "new_values", "created_at"}).
		AddRow("a1", int64(1), "application", int64(7), "status_changed", []byte(`{"status":"draft"}`), []byte(`{"status":"submitted"}`), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("WHERE subject_type = $1 AND subject_id = $2 ORDER BY created_at DESC, id DESC LIMIT 50 OFFSET 0")).
		WithArgs("application", int64(7)).
		WillReturnRows(rows)

	entries, err := repo.ListBySubject(context.Background(), models.ActivityLogFilter{SubjectType: models.SubjectTypeApplication, SubjectID: 7})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.JSONEq(t, `{"status":"submitted"}`, entries[0].NewValues.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}
