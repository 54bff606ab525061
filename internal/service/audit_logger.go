package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/admission-workflow-api/internal/models"
	appErrors "github.com/noah-isme/admission-workflow-api/pkg/errors"
)

type activityLogStore interface {
	Create(ctx context.Context, tx *sqlx.Tx, entry *models.ActivityLog) error
	ListBySubject(ctx context.Context, filter models.ActivityLogFilter) ([]models.ActivityLog, error)
}

// AuditEntry describes one state change to record.
type AuditEntry struct {
	ActorID     int64
	SubjectType string
	SubjectID   int64
	Event       string
	OldValues   map[string]interface{}
	NewValues   map[string]interface{}
}

// AuditLogger appends activity log entries inside the transaction that
// performs the change, so both commit or neither does.
type AuditLogger struct {
	repo   activityLogStore
	logger *zap.Logger
	now    func() time.Time
}

// NewAuditLogger constructs an audit logger.
func NewAuditLogger(repo activityLogStore, logger *zap.Logger) *AuditLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditLogger{repo: repo, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Record writes entry using tx. Any failure is returned so the caller rolls
// back the change it was auditing.
func (a *AuditLogger) Record(ctx context.Context, tx *sqlx.Tx, entry AuditEntry) error {
	if tx == nil {
		return appErrors.Clone(appErrors.ErrInternal, "activity log requires a transaction")
	}
	oldValues, err := encodeAuditValues(entry.OldValues)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode activity log")
	}
	newValues, err := encodeAuditValues(entry.NewValues)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode activity log")
	}

	record := &models.ActivityLog{
		ActorID:     entry.ActorID,
		SubjectType: entry.SubjectType,
		SubjectID:   entry.SubjectID,
		Event:       entry.Event,
		OldValues:   oldValues,
		NewValues:   newValues,
		CreatedAt:   a.now(),
	}
	if err := a.repo.Create(ctx, tx, record); err != nil {
		a.logger.Error("activity log write failed",
			zap.String("subject_type", entry.SubjectType),
			zap.Int64("subject_id", entry.SubjectID),
			zap.Error(err),
		)
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record activity log")
	}
	return nil
}

// ListBySubject returns the recorded history of a subject.
func (a *AuditLogger) ListBySubject(ctx context.Context, subjectType string, subjectID int64, limit, offset int) ([]models.ActivityLog, error) {
	entries, err := a.repo.ListBySubject(ctx, models.ActivityLogFilter{
		SubjectType: subjectType,
		SubjectID:   subjectID,
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity log")
	}
	return entries, nil
}

func encodeAuditValues(values map[string]interface{}) (types.JSONText, error) {
	if len(values) == 0 {
		return types.JSONText("{}"), nil
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return types.JSONText(raw), nil
}
