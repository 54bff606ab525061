package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/admission-workflow-api/internal/models"
)

const applicationColumns = `id, application_number, school_id, academic_year_id, admission_period_id, level_id, user_id,
	student_first_name, student_middle_name, student_last_name, birth_date, nationality, previous_school, home_address,
	normalized_name, status, status_notes, submitted_at, reviewed_at, decision_at, enrolled_at, created_at, updated_at`

// ApplicationRepository persists admission applications.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs the repository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// GetByID loads an application without locking it.
func (r *ApplicationRepository) GetByID(ctx context.Context, id int64) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`
	var app models.Application
	if err := r.db.GetContext(ctx, &app, query, id); err != nil {
		return nil, err
	}
	return &app, nil
}

// LockByID loads an application and holds its row lock until tx ends.
func (r *ApplicationRepository) LockByID(ctx context.Context, tx *sqlx.Tx, id int64) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1 FOR UPDATE`
	var app models.Application
	if err := tx.GetContext(ctx, &app, query, id); err != nil {
		return nil, err
	}
	return &app, nil
}

// List returns applications matching the filter, newest first.
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error) {
	conditions := make([]string, 0, 5)
	args := make([]interface{}, 0, 6)

	if filter.SchoolID != 0 {
		args = append(args, filter.SchoolID)
		conditions = append(conditions, fmt.Sprintf("school_id = $%d", len(args)))
	}
	if filter.AdmissionPeriodID != 0 {
		args = append(args, filter.AdmissionPeriodID)
		conditions = append(conditions, fmt.Sprintf("admission_period_id = $%d", len(args)))
	}
	if filter.UserID != 0 {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(application_number) LIKE $%d OR normalized_name LIKE $%d)", len(args), len(args)))
	}

	base := "FROM applications WHERE 1=1"
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d", applicationColumns, base, size, offset)
	var apps []models.Application
	if err := r.db.SelectContext(ctx, &apps, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}
	return apps, total, nil
}

// CountByNumberPrefix counts the applications of a school whose number
// starts with prefix. The prefix is compared literally, not as a LIKE
// pattern. Callers hold the school row lock so the count is stable until
// commit.
func (r *ApplicationRepository) CountByNumberPrefix(ctx context.Context, tx *sqlx.Tx, schoolID int64, prefix string) (int, error) {
	const query = `SELECT COUNT(*) FROM applications
	WHERE school_id = $1 AND LEFT(application_number, char_length($2)) = $2`
	var count int
	if err := tx.GetContext(ctx, &count, query, schoolID, prefix); err != nil {
		return 0, fmt.Errorf("count application numbers: %w", err)
	}
	return count, nil
}

// ExistsActiveDuplicate reports whether another active application covers the
// same child in the same school and admission period.
func (r *ApplicationRepository) ExistsActiveDuplicate(ctx context.Context, tx *sqlx.Tx, app *models.Application) (bool, error) {
	const query = `SELECT 1 FROM applications
	WHERE school_id = $1 AND admission_period_id = $2 AND birth_date = $3 AND normalized_name = $4
	AND status NOT IN ('rejected', 'withdrawn') AND id <> $5 LIMIT 1`
	var exists int
	if err := tx.GetContext(ctx, &exists, query, app.SchoolID, app.AdmissionPeriodID, app.BirthDate, app.NormalizedName, app.ID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check duplicate application: %w", err)
	}
	return true, nil
}

// Create inserts a new application and fills its generated id.
func (r *ApplicationRepository) Create(ctx context.Context, tx *sqlx.Tx, app *models.Application) error {
	const query = `INSERT INTO applications (application_number, school_id, academic_year_id, admission_period_id, level_id, user_id,
	student_first_name, student_middle_name, student_last_name, birth_date, nationality, previous_school, home_address,
	normalized_name, status, status_notes, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18) RETURNING id`
	err := tx.QueryRowxContext(ctx, query,
		app.ApplicationNumber, app.SchoolID, app.AcademicYearID, app.AdmissionPeriodID, app.LevelID, app.UserID,
		app.StudentFirstName, app.StudentMiddleName, app.StudentLastName, app.BirthDate, app.Nationality, app.PreviousSchool, app.HomeAddress,
		app.NormalizedName, app.Status, app.StatusNotes, app.CreatedAt, app.UpdatedAt,
	).Scan(&app.ID)
	if err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// UpdateStatus moves an application from `from` to update.Status. It returns
// sql.ErrNoRows when the stored status is no longer `from`.
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, tx *sqlx.Tx, id int64, from models.ApplicationStatus, update models.ApplicationStatusUpdate) error {
	const query = `UPDATE applications SET status = $1,
	status_notes = COALESCE($2, status_notes),
	submitted_at = COALESCE($3, submitted_at),
	reviewed_at = COALESCE($4, reviewed_at),
	decision_at = COALESCE($5, decision_at),
	enrolled_at = COALESCE($6, enrolled_at),
	updated_at = $7
	WHERE id = $8 AND status = $9`
	res, err := tx.ExecContext(ctx, query, update.Status, update.StatusNotes, update.SubmittedAt, update.ReviewedAt,
		update.DecisionAt, update.EnrolledAt, update.UpdatedAt, id, from)
	if err != nil {
		return fmt.Errorf("update application status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update application status rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateDetails writes the editable application fields.
func (r *ApplicationRepository) UpdateDetails(ctx context.Context, tx *sqlx.Tx, app *models.Application) error {
	const query = `UPDATE applications SET school_id = $1, admission_period_id = $2, level_id = $3,
	student_first_name = $4, student_middle_name = $5, student_last_name = $6, birth_date = $7, nationality = $8,
	previous_school = $9, home_address = $10, normalized_name = $11, status_notes = $12, updated_at = $13
	WHERE id = $14`
	res, err := tx.ExecContext(ctx, query, app.SchoolID, app.AdmissionPeriodID, app.LevelID,
		app.StudentFirstName, app.StudentMiddleName, app.StudentLastName, app.BirthDate, app.Nationality,
		app.PreviousSchool, app.HomeAddress, app.NormalizedName, app.StatusNotes, app.UpdatedAt, app.ID)
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update application rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
