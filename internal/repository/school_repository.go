package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/admission-workflow-api/internal/models"
)

// SchoolRepository reads schools and switches their active year or period.
type SchoolRepository struct {
	db *sqlx.DB
}

// NewSchoolRepository constructs the repository.
func NewSchoolRepository(db *sqlx.DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

// FindByID loads a school.
func (r *SchoolRepository) FindByID(ctx context.Context, id int64) (*models.School, error) {
	const query = `SELECT id, code, name, is_active, created_at, updated_at FROM schools WHERE id = $1`
	var school models.School
	if err := r.db.GetContext(ctx, &school, query, id); err != nil {
		return nil, err
	}
	return &school, nil
}

// LockByID loads a school and holds its row lock. Application numbering
// serialises on this lock.
func (r *SchoolRepository) LockByID(ctx context.Context, tx *sqlx.Tx, id int64) (*models.School, error) {
	const query = `SELECT id, code, name, is_active, created_at, updated_at FROM schools WHERE id = $1 FOR UPDATE`
	var school models.School
	if err := tx.GetContext(ctx, &school, query, id); err != nil {
		return nil, err
	}
	return &school, nil
}

// SetActive activates row id of scope within the school and deactivates its
// siblings in one transaction. It returns sql.ErrNoRows when id is not part
// of the school.
func (r *SchoolRepository) SetActive(ctx context.Context, scope models.ActiveScope, schoolID, id int64) error {
	if !scope.Valid() {
		return fmt.Errorf("set active: unknown scope %q", scope)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set active tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	deactivate := fmt.Sprintf(`UPDATE %s SET is_active = FALSE, updated_at = $1 WHERE school_id = $2 AND is_active = TRUE AND id <> $3`, scope)
	if _, err = tx.ExecContext(ctx, deactivate, now, schoolID, id); err != nil {
		return fmt.Errorf("deactivate %s: %w", scope, err)
	}

	activate := fmt.Sprintf(`UPDATE %s SET is_active = TRUE, updated_at = $1 WHERE id = $2 AND school_id = $3`, scope)
	res, err := tx.ExecContext(ctx, activate, now, id, schoolID)
	if err != nil {
		return fmt.Errorf("activate %s: %w", scope, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("activate %s rows: %w", scope, err)
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit set active tx: %w", err)
	}
	return nil
}
