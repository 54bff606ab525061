package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/admission-workflow-api/internal/models"
	"github.com/noah-isme/admission-workflow-api/internal/workflow"
	appErrors "github.com/noah-isme/admission-workflow-api/pkg/errors"
	"github.com/noah-isme/admission-workflow-api/pkg/logger"
)

type schoolStore interface {
	FindByID(ctx context.Context, id int64) (*models.School, error)
	SetActive(ctx context.Context, scope models.ActiveScope, schoolID, id int64) error
}

type roleInvalidator interface {
	Invalidate(ctx context.Context, actorID int64) error
}

// SchoolService manages per-school settings such as the active academic
// year and admission period.
type SchoolService struct {
	schools     schoolStore
	roles       workflow.RoleProvider
	invalidator roleInvalidator
	logger      *zap.Logger
}

// NewSchoolService constructs the service. invalidator may be nil when role
// answers are not cached.
func NewSchoolService(schools schoolStore, roles workflow.RoleProvider, invalidator roleInvalidator, logger *zap.Logger) *SchoolService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchoolService{schools: schools, roles: roles, invalidator: invalidator, logger: logger}
}

// SetActiveAcademicYear makes yearID the only active academic year of the school.
func (s *SchoolService) SetActiveAcademicYear(ctx context.Context, schoolID, yearID, actorID int64) error {
	return s.setActive(ctx, models.ActiveScopeAcademicYear, schoolID, yearID, actorID)
}

// SetActiveAdmissionPeriod makes periodID the only active admission period of the school.
func (s *SchoolService) SetActiveAdmissionPeriod(ctx context.Context, schoolID, periodID, actorID int64) error {
	return s.setActive(ctx, models.ActiveScopeAdmissionPeriod, schoolID, periodID, actorID)
}

// RefreshRoles drops the cached role answers of userID after a role
// assignment changed. Only school admins of schoolID may call it.
func (s *SchoolService) RefreshRoles(ctx context.Context, schoolID, userID, actorID int64) error {
	if userID <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "user id is required")
	}
	if err := s.requireSchoolAdmin(ctx, schoolID, actorID); err != nil {
		return err
	}
	if s.invalidator == nil {
		return nil
	}
	if err := s.invalidator.Invalidate(ctx, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to refresh cached roles")
	}

	logger.FromContext(ctx, s.logger).Info("cached roles refreshed",
		zap.Int64("school_id", schoolID),
		zap.Int64("user_id", userID),
		zap.Int64("actor_id", actorID),
	)
	return nil
}

func (s *SchoolService) setActive(ctx context.Context, scope models.ActiveScope, schoolID, id, actorID int64) error {
	if id <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "id is required")
	}
	if err := s.requireSchoolAdmin(ctx, schoolID, actorID); err != nil {
		return err
	}

	if err := s.schools.SetActive(ctx, scope, schoolID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s %d not found in school", scope, id))
		}
		return storeError(err, "failed to update school settings")
	}

	logger.FromContext(ctx, s.logger).Info("school setting activated",
		zap.String("scope", string(scope)),
		zap.Int64("school_id", schoolID),
		zap.Int64("id", id),
		zap.Int64("actor_id", actorID),
	)
	return nil
}

func (s *SchoolService) requireSchoolAdmin(ctx context.Context, schoolID, actorID int64) error {
	if _, err := s.schools.FindByID(ctx, schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return storeError(err, "failed to load school")
	}

	allowed := false
	if s.roles != nil && actorID > 0 {
		ok, err := s.roles.HasRole(ctx, actorID, models.RoleSchoolAdmin, schoolID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve actor roles")
		}
		allowed = ok
	}
	if !allowed {
		return appErrors.Clone(appErrors.ErrForbidden, "only school admins may change school settings")
	}
	return nil
}
