package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/admission-workflow-api/internal/models"
)

// RoleRepository reads school-scoped role assignments.
type RoleRepository struct {
	db *sqlx.DB
}

// NewRoleRepository constructs the repository.
func NewRoleRepository(db *sqlx.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// HasRole reports whether the user holds role within school.
func (r *RoleRepository) HasRole(ctx context.Context, userID int64, role models.Role, schoolID int64) (bool, error) {
	const query = `SELECT EXISTS (
	SELECT 1 FROM model_has_roles mhr JOIN roles r ON r.id = mhr.role_id
	WHERE mhr.user_id = $1 AND r.name = $2 AND mhr.school_id = $3)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, string(role), schoolID); err != nil {
		return false, fmt.Errorf("lookup role %s: %w", role, err)
	}
	return exists, nil
}
