package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/admission-workflow-api/internal/models"
)

const paymentSelect = `SELECT p.id, p.application_id, p.payment_type_id, p.transaction_code, p.amount, p.status,
	p.proof_file, p.payment_method, p.payment_date, p.notes, p.rejection_reason, p.verified_by, p.verified_at,
	p.refunded_at, p.created_at, p.updated_at, a.school_id, a.user_id AS owner_id
	FROM payments p JOIN applications a ON a.id = p.application_id`

// PaymentRepository persists application payments.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// GetByID loads a payment together with its application's scope.
func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, paymentSelect+` WHERE p.id = $1`, id); err != nil {
		return nil, err
	}
	return &payment, nil
}

// LockByID loads a payment and locks its row (not the application's).
func (r *PaymentRepository) LockByID(ctx context.Context, tx *sqlx.Tx, id int64) (*models.Payment, error) {
	var payment models.Payment
	if err := tx.GetContext(ctx, &payment, paymentSelect+` WHERE p.id = $1 FOR UPDATE OF p`, id); err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListByApplication returns the payments of an application, oldest first.
// A non-empty status narrows the list to that status.
func (r *PaymentRepository) ListByApplication(ctx context.Context, applicationID int64, status models.PaymentStatus) ([]models.Payment, error) {
	query := paymentSelect + ` WHERE p.application_id = $1`
	args := []interface{}{applicationID}
	if status != "" {
		query += ` AND p.status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY p.created_at ASC, p.id ASC`

	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

// PaymentTypeAmount returns the amount defined for a payment type of a school.
func (r *PaymentRepository) PaymentTypeAmount(ctx context.Context, paymentTypeID, schoolID int64) (int64, error) {
	var amount int64
	if err := r.db.GetContext(ctx, &amount, `SELECT amount FROM payment_types WHERE id = $1 AND school_id = $2 AND is_active = TRUE`, paymentTypeID, schoolID); err != nil {
		return 0, err
	}
	return amount, nil
}

// Create inserts a payment inside tx and fills its generated id.
func (r *PaymentRepository) Create(ctx context.Context, tx *sqlx.Tx, payment *models.Payment) error {
	const query = `INSERT INTO payments (application_id, payment_type_id, transaction_code, amount, status, notes, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err := tx.QueryRowxContext(ctx, query, payment.ApplicationID, payment.PaymentTypeID, payment.TransactionCode,
		payment.Amount, payment.Status, payment.Notes, payment.CreatedAt, payment.UpdatedAt).Scan(&payment.ID)
	if err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// UpdateStatus moves a payment from `from` to update.Status. It returns
// sql.ErrNoRows when the stored status is no longer `from`.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, tx *sqlx.Tx, id int64, from models.PaymentStatus, update models.PaymentStatusUpdate) error {
	const query = `UPDATE payments SET status = $1,
	proof_file = COALESCE($2, proof_file),
	payment_method = COALESCE($3, payment_method),
	payment_date = COALESCE($4, payment_date),
	notes = COALESCE($5, notes),
	rejection_reason = COALESCE($6, rejection_reason),
	verified_by = COALESCE($7, verified_by),
	verified_at = COALESCE($8, verified_at),
	refunded_at = COALESCE($9, refunded_at),
	updated_at = $10
	WHERE id = $11 AND status = $12`
	res, err := tx.ExecContext(ctx, query, update.Status, update.ProofFile, update.PaymentMethod, update.PaymentDate,
		update.Notes, update.RejectionReason, update.VerifiedBy, update.VerifiedAt, update.RefundedAt, update.UpdatedAt, id, from)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update payment status rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
