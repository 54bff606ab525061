package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/admission-workflow-api/internal/models"
)

// ActivityLogRepository appends and reads audit entries. Entries are never
// updated or deleted.
type ActivityLogRepository struct {
	db *sqlx.DB
}

// NewActivityLogRepository constructs the repository.
func NewActivityLogRepository(db *sqlx.DB) *ActivityLogRepository {
	return &ActivityLogRepository{db: db}
}

// Create appends an entry inside the caller's transaction.
func (r *ActivityLogRepository) Create(ctx context.Context, tx *sqlx.Tx, entry *models.ActivityLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO activity_logs (id, actor_id, subject_type, subject_id, event, old_values, new_values, created_at)
	VALUES (:id, :actor_id, :subject_type, :subject_id, :event, :old_values, :new_values, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create activity log: %w", err)
	}
	return nil
}

// ListBySubject returns entries for a subject, newest first.
func (r *ActivityLogRepository) ListBySubject(ctx context.Context, filter models.ActivityLogFilter) ([]models.ActivityLog, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf(`SELECT id, actor_id, subject_type, subject_id, event, old_values, new_values, created_at
	FROM activity_logs WHERE subject_type = $1 AND subject_id = $2 ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d`, limit, offset)
	var entries []models.ActivityLog
	if err := r.db.SelectContext(ctx, &entries, query, filter.SubjectType, filter.SubjectID); err != nil {
		return nil, fmt.Errorf("list activity logs: %w", err)
	}
	return entries, nil
}
