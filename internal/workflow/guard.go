package workflow

import (
	"context"
	"fmt"

	"github.com/noah-isme/admission-workflow-api/internal/models"
	appErrors "github.com/noah-isme/admission-workflow-api/pkg/errors"
)

// RoleProvider answers whether an actor holds a role within a school.
type RoleProvider interface {
	HasRole(ctx context.Context, actorID int64, role models.Role, schoolID int64) (bool, error)
}

// Subject is the workflow view of an entity: its state and tenancy.
type Subject struct {
	Entity   Entity
	ID       int64
	Status   string
	SchoolID int64
	OwnerID  int64
}

// PreconditionFunc evaluates entity business rules for a transition to `to`.
// It returns an *errors.Error (normally ErrPreconditionFailed) when unmet.
type PreconditionFunc func(ctx context.Context, subject Subject, to string) error

type policy struct {
	staffRoles []models.Role
	owner      func(from, to string) bool
	staff      func(from, to string) bool
}

var policies = map[Entity]policy{
	EntityApplication: {
		staffRoles: []models.Role{models.RoleSchoolAdmin, models.RoleAdmissionAdmin},
		owner: func(from, to string) bool {
			if to == string(models.ApplicationStatusWithdrawn) {
				return true
			}
			return from == string(models.ApplicationStatusDraft) && to == string(models.ApplicationStatusSubmitted)
		},
		staff: func(from, to string) bool {
			return to != string(models.ApplicationStatusSubmitted)
		},
	},
	EntityPayment: {
		staffRoles: []models.Role{models.RoleSchoolAdmin, models.RoleFinanceAdmin},
		owner: func(from, to string) bool {
			return from == string(models.PaymentStatusPending) && to == string(models.PaymentStatusWaitingVerification)
		},
		staff: func(from, to string) bool {
			switch models.PaymentStatus(to) {
			case models.PaymentStatusVerified, models.PaymentStatusRejected, models.PaymentStatusRefunded:
				return true
			}
			return false
		},
	},
}

// Standing describes how an actor relates to a subject.
type Standing struct {
	Owner bool
	Staff bool
}

// Any reports whether the actor has any standing at all.
func (s Standing) Any() bool {
	return s.Owner || s.Staff
}

// Guard validates transitions against the registry, the actor's authority
// and entity preconditions. It never mutates state.
type Guard struct {
	registry *Registry
	roles    RoleProvider
}

// NewGuard constructs a guard; a nil registry falls back to DefaultRegistry.
func NewGuard(registry *Registry, roles RoleProvider) *Guard {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Guard{registry: registry, roles: roles}
}

// Registry exposes the transition tables the guard checks against.
func (g *Guard) Registry() *Registry {
	return g.registry
}

// Authorize resolves the actor's standing on the subject: owner of the
// record, staff of the subject's school, or neither.
func (g *Guard) Authorize(ctx context.Context, subject Subject, actorID int64) (Standing, error) {
	pol, ok := policies[subject.Entity]
	if !ok {
		return Standing{}, appErrors.Clone(appErrors.ErrInternal, fmt.Sprintf("no workflow policy for %s", subject.Entity))
	}
	standing := Standing{Owner: actorID != 0 && subject.OwnerID == actorID}
	staff, err := g.hasAnyRole(ctx, actorID, pol.staffRoles, subject.SchoolID)
	if err != nil {
		return Standing{}, err
	}
	standing.Staff = staff
	return standing, nil
}

// Check decides whether actorID may move subject to `to`. It returns
// changed=false with a nil error when `to` equals the current status.
func (g *Guard) Check(ctx context.Context, subject Subject, to string, actorID int64, pre PreconditionFunc) (bool, error) {
	pol, ok := policies[subject.Entity]
	if !ok {
		return false, appErrors.Clone(appErrors.ErrInternal, fmt.Sprintf("no workflow policy for %s", subject.Entity))
	}
	if !g.registry.Known(subject.Entity, to) {
		return false, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("unknown %s status %q", subject.Entity, to))
	}
	if !g.registry.Known(subject.Entity, subject.Status) {
		return false, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("%s %d holds unknown status %q", subject.Entity, subject.ID, subject.Status))
	}

	owner := actorID != 0 && subject.OwnerID == actorID
	var staff *bool
	isStaff := func() (bool, error) {
		if staff == nil {
			v, err := g.hasAnyRole(ctx, actorID, pol.staffRoles, subject.SchoolID)
			if err != nil {
				return false, err
			}
			staff = &v
		}
		return *staff, nil
	}

	if !owner {
		ok, err := isStaff()
		if err != nil {
			return false, err
		}
		if !ok {
			return false, appErrors.Clone(appErrors.ErrUnauthorizedTransition, fmt.Sprintf("actor has no access to %s %d", subject.Entity, subject.ID))
		}
	}

	if to == subject.Status {
		return false, nil
	}

	if !g.registry.CanTransition(subject.Entity, subject.Status, to) {
		return false, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move %s from %s to %s", subject.Entity, subject.Status, to))
	}

	allowed := owner && pol.owner(subject.Status, to)
	if !allowed {
		ok, err := isStaff()
		if err != nil {
			return false, err
		}
		allowed = ok && pol.staff(subject.Status, to)
	}
	if !allowed {
		return false, appErrors.Clone(appErrors.ErrUnauthorizedTransition, fmt.Sprintf("actor may not move %s from %s to %s", subject.Entity, subject.Status, to))
	}

	if pre != nil {
		if err := pre(ctx, subject, to); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (g *Guard) hasAnyRole(ctx context.Context, actorID int64, roles []models.Role, schoolID int64) (bool, error) {
	if g.roles == nil || actorID == 0 || schoolID == 0 {
		return false, nil
	}
	for _, role := range roles {
		ok, err := g.roles.HasRole(ctx, actorID, role, schoolID)
		if err != nil {
			return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve actor roles")
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
