package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admission-workflow-api/internal/models"
)

func TestRoleHasRole(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRoleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE mhr.user_id = $1 AND r.name = $2 AND mhr.school_id = $3")).
		WithArgs(int64(4), "finance_admin", int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE mhr.user_id = $1 AND r.name = $2 AND mhr.school_id = $3")).
		WithArgs(int64(4), "finance_admin", int64(20)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	ok, err := repo.HasRole(context.Background(), 4, models.RoleFinanceAdmin, 10)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.HasRole(context.Background(), 4, models.RoleFinanceAdmin, 20)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleHasRoleError(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRoleRepository(db)

	mock.ExpectQuery("model_has_roles").WillReturnError(errors.New("connection reset"))

	_, err := repo.HasRole(context.Background(), 4, models.RoleSchoolAdmin, 10)
	assert.ErrorContains(t, err, "lookup role school_admin")
}
