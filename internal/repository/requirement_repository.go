package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// RequirementRepository answers the document and guardian questions asked
// before an application is submitted. Reads run in the caller's transaction.
type RequirementRepository struct{}

// NewRequirementRepository constructs the repository.
func NewRequirementRepository() *RequirementRepository {
	return &RequirementRepository{}
}

// RequiredDocumentTypes lists document types a school requires for a level.
func (r *RequirementRepository) RequiredDocumentTypes(ctx context.Context, tx *sqlx.Tx, schoolID, levelID int64) ([]int64, error) {
	const query = `SELECT id FROM document_types
	WHERE school_id = $1 AND is_required = TRUE AND is_active = TRUE AND (level_id IS NULL OR level_id = $2)
	ORDER BY id`
	var ids []int64
	if err := tx.SelectContext(ctx, &ids, query, schoolID, levelID); err != nil {
		return nil, fmt.Errorf("list required document types: %w", err)
	}
	return ids, nil
}

// UploadedDocumentTypes lists the distinct document types attached to an application.
func (r *RequirementRepository) UploadedDocumentTypes(ctx context.Context, tx *sqlx.Tx, applicationID int64) ([]int64, error) {
	const query = `SELECT DISTINCT document_type_id FROM application_documents WHERE application_id = $1 ORDER BY document_type_id`
	var ids []int64
	if err := tx.SelectContext(ctx, &ids, query, applicationID); err != nil {
		return nil, fmt.Errorf("list uploaded document types: %w", err)
	}
	return ids, nil
}

// CountGuardians counts parent/guardian records of an application.
func (r *RequirementRepository) CountGuardians(ctx context.Context, tx *sqlx.Tx, applicationID int64) (int, error) {
	var count int
	if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM application_guardians WHERE application_id = $1`, applicationID); err != nil {
		return 0, fmt.Errorf("count guardians: %w", err)
	}
	return count, nil
}
