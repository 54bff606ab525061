package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/admission-workflow-api/internal/dto"
	"github.com/noah-isme/admission-workflow-api/internal/models"
	"github.com/noah-isme/admission-workflow-api/internal/workflow"
	"github.com/noah-isme/admission-workflow-api/pkg/database"
	appErrors "github.com/noah-isme/admission-workflow-api/pkg/errors"
	"github.com/noah-isme/admission-workflow-api/pkg/logger"
)

type paymentStore interface {
	GetByID(ctx context.Context, id int64) (*models.Payment, error)
	LockByID(ctx context.Context, tx *sqlx.Tx, id int64) (*models.Payment, error)
	ListByApplication(ctx context.Context, applicationID int64, status models.PaymentStatus) ([]models.Payment, error)
	PaymentTypeAmount(ctx context.Context, paymentTypeID, schoolID int64) (int64, error)
	Create(ctx context.Context, tx *sqlx.Tx, payment *models.Payment) error
	UpdateStatus(ctx context.Context, tx *sqlx.Tx, id int64, from models.PaymentStatus, update models.PaymentStatusUpdate) error
}

type paymentApplicationReader interface {
	GetByID(ctx context.Context, id int64) (*models.Application, error)
}

// PaymentService runs the payment verification workflow.
type PaymentService struct {
	payments  paymentStore
	apps      paymentApplicationReader
	guard     *workflow.Guard
	audit     auditRecorder
	notifier  statusNotifier
	tx        txProvider
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewPaymentService wires payment workflow dependencies.
func NewPaymentService(
	payments paymentStore,
	apps paymentApplicationReader,
	guard *workflow.Guard,
	audit auditRecorder,
	notifier statusNotifier,
	tx txProvider,
	validate *validator.Validate,
	metrics *MetricsService,
	logger *zap.Logger,
) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		payments:  payments,
		apps:      apps,
		guard:     guard,
		audit:     audit,
		notifier:  notifier,
		tx:        tx,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create opens a pending payment. Only finance or school admins of the
// application's school may do so.
func (s *PaymentService) Create(ctx context.Context, req dto.CreatePaymentRequest, actorID int64) (payment *models.Payment, err error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	app, err := s.apps.GetByID(ctx, req.ApplicationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, storeError(err, "failed to load application")
	}
	standing, err := s.guard.Authorize(ctx, workflow.Subject{Entity: workflow.EntityPayment, SchoolID: app.SchoolID, OwnerID: app.UserID}, actorID)
	if err != nil {
		return nil, err
	}
	if !standing.Staff {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only finance staff of the school may open payments")
	}

	amount, err := s.payments.PaymentTypeAmount(ctx, req.PaymentTypeID, app.SchoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "payment type is not available for this school")
		}
		return nil, storeError(err, "failed to load payment type")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := s.now()
	payment = &models.Payment{
		ApplicationID:   app.ID,
		PaymentTypeID:   req.PaymentTypeID,
		TransactionCode: transactionCode(now),
		Amount:          amount,
		Status:          models.PaymentStatusPending,
		Notes:           req.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
		SchoolID:        app.SchoolID,
		OwnerID:         app.UserID,
	}
	if err = s.payments.Create(ctx, tx, payment); err != nil {
		if database.IsUniqueViolation(err, "") {
			err = appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "transaction code already used, retry")
			return nil, err
		}
		err = storeError(err, "failed to create payment")
		return nil, err
	}

	if err = s.audit.Record(ctx, tx, AuditEntry{
		ActorID:     actorID,
		SubjectType: models.SubjectTypePayment,
		SubjectID:   payment.ID,
		Event:       models.ActivityEventCreated,
		NewValues: map[string]interface{}{
			"status":           payment.Status,
			"transaction_code": payment.TransactionCode,
			"amount":           payment.Amount,
		},
	}); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		err = storeError(err, "failed to commit payment")
		return nil, err
	}

	logger.FromContext(ctx, s.logger).Info("payment created",
		zap.Int64("payment_id", payment.ID),
		zap.Int64("application_id", app.ID),
		zap.String("transaction_code", payment.TransactionCode),
	)
	return payment, nil
}

// Get returns a payment visible to actorID.
func (s *PaymentService) Get(ctx context.Context, id, actorID int64) (*models.Payment, error) {
	payment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	standing, err := s.guard.Authorize(ctx, paymentSubject(payment), actorID)
	if err != nil {
		return nil, err
	}
	if !standing.Any() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "no access to payment")
	}
	return payment, nil
}

// ListByApplication returns the payments of an application visible to
// actorID. An empty status lists every payment.
func (s *PaymentService) ListByApplication(ctx context.Context, applicationID, actorID int64, status models.PaymentStatus) ([]models.Payment, error) {
	if status != "" && !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown payment status %q", status))
	}
	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, storeError(err, "failed to load application")
	}
	standing, err := s.guard.Authorize(ctx, workflow.Subject{Entity: workflow.EntityPayment, SchoolID: app.SchoolID, OwnerID: app.UserID}, actorID)
	if err != nil {
		return nil, err
	}
	if !standing.Any() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "no access to application payments")
	}
	payments, err := s.payments.ListByApplication(ctx, applicationID, status)
	if err != nil {
		return nil, storeError(err, "failed to list payments")
	}
	return payments, nil
}

// History returns the activity log of a payment visible to actorID.
func (s *PaymentService) History(ctx context.Context, id, actorID int64, limit, offset int) ([]models.ActivityLog, error) {
	if _, err := s.Get(ctx, id, actorID); err != nil {
		return nil, err
	}
	return s.audit.ListBySubject(ctx, models.SubjectTypePayment, id, limit, offset)
}

// SubmitProof attaches proof-of-payment metadata and moves the payment to
// waiting_verification.
func (s *PaymentService) SubmitProof(ctx context.Context, id int64, req dto.SubmitProofRequest, actorID int64) (bool, *models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return false, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid proof payload")
	}
	paidAt, err := time.Parse(birthDateLayout, req.PaymentDate)
	if err != nil {
		return false, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment date")
	}
	proofFile := strings.TrimSpace(req.ProofFile)
	method := strings.TrimSpace(req.PaymentMethod)

	return s.transition(ctx, id, actorID, models.PaymentStatusWaitingVerification, func(now time.Time) models.PaymentStatusUpdate {
		return models.PaymentStatusUpdate{
			Status:        models.PaymentStatusWaitingVerification,
			ProofFile:     &proofFile,
			PaymentMethod: &method,
			PaymentDate:   &paidAt,
			UpdatedAt:     now,
		}
	})
}

// Verify confirms a payment.
func (s *PaymentService) Verify(ctx context.Context, id int64, notes *string, actorID int64) (bool, *models.Payment, error) {
	return s.transition(ctx, id, actorID, models.PaymentStatusVerified, func(now time.Time) models.PaymentStatusUpdate {
		return models.PaymentStatusUpdate{
			Status:     models.PaymentStatusVerified,
			Notes:      notes,
			VerifiedBy: &actorID,
			VerifiedAt: timePtr(now),
			UpdatedAt:  now,
		}
	})
}

// Reject refuses a payment with a reason.
func (s *PaymentService) Reject(ctx context.Context, id int64, reason string, actorID int64) (bool, *models.Payment, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return false, nil, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required")
	}
	return s.transition(ctx, id, actorID, models.PaymentStatusRejected, func(now time.Time) models.PaymentStatusUpdate {
		return models.PaymentStatusUpdate{
			Status:          models.PaymentStatusRejected,
			RejectionReason: &reason,
			VerifiedBy:      &actorID,
			VerifiedAt:      timePtr(now),
			UpdatedAt:       now,
		}
	})
}

// Refund marks a verified payment as refunded.
func (s *PaymentService) Refund(ctx context.Context, id int64, actorID int64) (bool, *models.Payment, error) {
	return s.transition(ctx, id, actorID, models.PaymentStatusRefunded, func(now time.Time) models.PaymentStatusUpdate {
		return models.PaymentStatusUpdate{
			Status:     models.PaymentStatusRefunded,
			RefundedAt: timePtr(now),
			UpdatedAt:  now,
		}
	})
}

func (s *PaymentService) transition(ctx context.Context, id, actorID int64, to models.PaymentStatus, build func(time.Time) models.PaymentStatusUpdate) (changed bool, payment *models.Payment, err error) {
	start := time.Now()
	log := logger.FromContext(ctx, s.logger)
	defer func() {
		outcome := transitionOutcome(err)
		if err == nil && !changed {
			outcome = OutcomeNoop
		}
		s.metrics.RecordTransition(string(workflow.EntityPayment), targetLabel(s.guard.Registry(), workflow.EntityPayment, string(to)), outcome, time.Since(start))
		if err != nil {
			log.Debug("payment transition refused",
				zap.Int64("payment_id", id),
				zap.String("to", string(to)),
				zap.Int64("actor_id", actorID),
				zap.Error(err),
			)
		}
	}()

	snapshot, err := s.load(ctx, id)
	if err != nil {
		return false, nil, err
	}
	changed, err = s.guard.Check(ctx, paymentSubject(snapshot), string(to), actorID, nil)
	if err != nil || !changed {
		return false, snapshot, err
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return false, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	changed = false
	defer func() {
		if err != nil || !changed {
			_ = tx.Rollback()
		}
	}()

	current, err := s.payments.LockByID(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrNotFound, "payment not found")
			return false, nil, err
		}
		err = storeError(err, "failed to lock payment")
		return false, nil, err
	}
	if current.Status != snapshot.Status {
		if current.Status == to {
			return false, current, nil
		}
		err = appErrors.Clone(appErrors.ErrConcurrentModification,
			fmt.Sprintf("payment is now %s, not %s; re-read before moving it to %s", current.Status, snapshot.Status, to))
		return false, nil, err
	}

	now := s.now()
	update := build(now)
	changed, err = s.guard.Check(ctx, paymentSubject(current), string(to), actorID, paymentPreconditions(current, update))
	if err != nil || !changed {
		return false, current, err
	}

	if err = s.audit.Record(ctx, tx, AuditEntry{
		ActorID:     actorID,
		SubjectType: models.SubjectTypePayment,
		SubjectID:   id,
		Event:       models.ActivityEventStatusChanged,
		OldValues:   map[string]interface{}{"status": current.Status},
		NewValues:   paymentAuditValues(update),
	}); err != nil {
		changed = false
		return false, nil, err
	}

	if err = s.payments.UpdateStatus(ctx, tx, id, current.Status, update); err != nil {
		changed = false
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrConcurrentModification, fmt.Sprintf("payment left %s before it could move to %s", current.Status, to))
			return false, nil, err
		}
		err = storeError(err, "failed to update payment status")
		return false, nil, err
	}

	if err = tx.Commit(); err != nil {
		changed = false
		err = storeError(err, "failed to commit status change")
		return false, nil, err
	}

	from := current.Status
	result := *current
	applyPaymentUpdate(&result, update)

	log.Info("status transition committed",
		zap.String("entity", string(workflow.EntityPayment)),
		zap.Int64("id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.Int64("actor_id", actorID),
	)
	if s.notifier != nil {
		s.notifier.StatusChanged(StatusChange{
			Entity:    models.SubjectTypePayment,
			SubjectID: id,
			Reference: result.TransactionCode,
			From:      string(from),
			To:        string(to),
			OwnerID:   result.OwnerID,
			ActorID:   actorID,
		})
	}
	return true, &result, nil
}

// paymentPreconditions requires complete proof before a payment leaves
// pending and before it is verified.
func paymentPreconditions(current *models.Payment, update models.PaymentStatusUpdate) workflow.PreconditionFunc {
	return func(_ context.Context, _ workflow.Subject, to string) error {
		switch models.PaymentStatus(to) {
		case models.PaymentStatusWaitingVerification, models.PaymentStatusVerified:
			merged := *current
			applyPaymentUpdate(&merged, update)
			if !merged.HasProof() {
				return appErrors.Clone(appErrors.ErrPreconditionFailed, "proof file, payment method and payment date are required")
			}
		}
		return nil
	}
}

func (s *PaymentService) load(ctx context.Context, id int64) (*models.Payment, error) {
	payment, err := s.payments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, storeError(err, "failed to load payment")
	}
	return payment, nil
}

func paymentSubject(payment *models.Payment) workflow.Subject {
	return workflow.Subject{
		Entity:   workflow.EntityPayment,
		ID:       payment.ID,
		Status:   string(payment.Status),
		SchoolID: payment.SchoolID,
		OwnerID:  payment.OwnerID,
	}
}

func applyPaymentUpdate(payment *models.Payment, update models.PaymentStatusUpdate) {
	payment.Status = update.Status
	payment.UpdatedAt = update.UpdatedAt
	if update.ProofFile != nil {
		payment.ProofFile = update.ProofFile
	}
	if update.PaymentMethod != nil {
		payment.PaymentMethod = update.PaymentMethod
	}
	if update.PaymentDate != nil {
		payment.PaymentDate = update.PaymentDate
	}
	if update.Notes != nil {
		payment.Notes = update.Notes
	}
	if update.RejectionReason != nil {
		payment.RejectionReason = update.RejectionReason
	}
	if update.VerifiedBy != nil {
		payment.VerifiedBy = update.VerifiedBy
	}
	if update.VerifiedAt != nil {
		payment.VerifiedAt = update.VerifiedAt
	}
	if update.RefundedAt != nil {
		payment.RefundedAt = update.RefundedAt
	}
}

func paymentAuditValues(update models.PaymentStatusUpdate) map[string]interface{} {
	values := map[string]interface{}{"status": update.Status}
	if update.ProofFile != nil {
		values["proof_file"] = *update.ProofFile
	}
	if update.PaymentMethod != nil {
		values["payment_method"] = *update.PaymentMethod
	}
	if update.PaymentDate != nil {
		values["payment_date"] = update.PaymentDate.Format(birthDateLayout)
	}
	if update.Notes != nil {
		values["notes"] = *update.Notes
	}
	if update.RejectionReason != nil {
		values["rejection_reason"] = *update.RejectionReason
	}
	return values
}

func transactionCode(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("PAY-%s-%s", now.Format("20060102"), suffix)
}
