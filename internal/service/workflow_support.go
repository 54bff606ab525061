package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/admission-workflow-api/internal/models"
	"github.com/noah-isme/admission-workflow-api/internal/workflow"
	"github.com/noah-isme/admission-workflow-api/pkg/database"
	appErrors "github.com/noah-isme/admission-workflow-api/pkg/errors"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type auditRecorder interface {
	Record(ctx context.Context, tx *sqlx.Tx, entry AuditEntry) error
	ListBySubject(ctx context.Context, subjectType string, subjectID int64, limit, offset int) ([]models.ActivityLog, error)
}

type statusNotifier interface {
	StatusChanged(change StatusChange)
}

// storeError translates a repository failure. Lock contention becomes a
// retryable ErrConcurrentModification; domain errors pass through.
func storeError(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if database.IsTransient(err) {
		return appErrors.Wrap(err, appErrors.ErrConcurrentModification.Code, appErrors.ErrConcurrentModification.Status, "record is locked by a concurrent change, retry")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func transitionOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeCommitted
	case errors.Is(err, appErrors.ErrConcurrentModification):
		return OutcomeConflict
	case errors.Is(err, appErrors.ErrInternal):
		return OutcomeError
	default:
		return OutcomeRejected
	}
}

// targetLabel keeps client-supplied statuses out of metric labels; anything
// the registry does not know is counted as TargetUnknown.
func targetLabel(registry *workflow.Registry, entity workflow.Entity, to string) string {
	if registry == nil || !registry.Known(entity, to) {
		return TargetUnknown
	}
	return to
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func stringValue(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
