package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/admission-workflow-api/internal/models"
)

// UserRepository reads the contact details used to address notifications.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindContact loads the name, address and active flag of a user. A missing
// user is reported as sql.ErrNoRows.
func (r *UserRepository) FindContact(ctx context.Context, id int64) (*models.User, error) {
	const query = `SELECT id, TRIM(email) AS email, full_name, active, created_at FROM users WHERE id = $1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("load user contact %d: %w", id, err)
	}
	return &user, nil
}
