package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admission-workflow-api/internal/models"
	appErrors "github.com/noah-isme/admission-workflow-api/pkg/errors"
)

func TestAuditLoggerRecordEncodesValues(t *testing.T) {
	store := &activityLogStoreStub{}
	logger := NewAuditLogger(store, nil)
	provider, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	tx, err := provider.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	err = logger.Record(context.Background(), tx, AuditEntry{
		ActorID:     1,
		SubjectType: models.SubjectTypeApplication,
		SubjectID:   7,
		Event:       models.ActivityEventStatusChanged,
		OldValues:   map[string]interface{}{"status": "draft"},
		NewValues:   map[string]interface{}{"status": "submitted"},
	})
	require.NoError(t, err)
	require.Len(t, store.entries, 1)
	entry := store.entries[0]
	assert.Equal(t, int64(1), entry.ActorID)
	assert.JSONEq(t, `{"status":"draft"}`, entry.OldValues.String())
	assert.JSONEq(t, `{"status":"submitted"}`, entry.NewValues.String())
	assert.False(t, entry.CreatedAt.IsZero())
}

func TestAuditLoggerSurfacesFailures(t *testing.T) {
	store := &activityLogStoreStub{err: errors.New("disk full")}
	logger := NewAuditLogger(store, nil)
	provider, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	tx, err := provider.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	err = logger.Record(context.Background(), tx, AuditEntry{SubjectType: models.SubjectTypePayment, SubjectID: 9})
	assert.True(t, errors.Is(err, appErrors.ErrInternal))

	err = logger.Record(context.Background(), nil, AuditEntry{})
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}
