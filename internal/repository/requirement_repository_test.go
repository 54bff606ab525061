package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequirementQueries(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRequirementRepository()
	tx := beginTx(t, db, mock)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("FROM document_types")).
		WithArgs(int64(10), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)).AddRow(int64(3)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT document_type_id FROM application_documents WHERE application_id = $1")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"document_type_id"}).AddRow(int64(1)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM application_guardians WHERE application_id = $1")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	required, err := repo.RequiredDocumentTypes(ctx, tx, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, required)

	uploaded, err := repo.UploadedDocumentTypes(ctx, tx, 7)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, uploaded)

	guardians, err := repo.CountGuardians(ctx, tx, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, guardians)
	assert.NoError(t, mock.ExpectationsWereMet())
}
