package workflow

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admission-workflow-api/internal/models"
	appErrors "github.com/noah-isme/admission-workflow-api/pkg/errors"
)

const (
	testSchoolID  int64 = 10
	otherSchoolID int64 = 20
	parentID      int64 = 1
	strangerID    int64 = 2
	admissionID   int64 = 3
	financeID     int64 = 4
	principalID   int64 = 5
)

type roleStub struct {
	grants map[string]bool
	err    error
	calls  int
}

func newRoleStub() *roleStub {
	return &roleStub{grants: map[string]bool{}}
}

func (s *roleStub) grant(actorID int64, role models.Role, schoolID int64) *roleStub {
	s.grants[fmt.Sprintf("%d:%s:%d", actorID, role, schoolID)] = true
	return s
}

func (s *roleStub) HasRole(_ context.Context, actorID int64, role models.Role, schoolID int64) (bool, error) {
	s.calls++
	if s.err != nil {
		return false, s.err
	}
	return s.grants[fmt.Sprintf("%d:%s:%d", actorID, role, schoolID)], nil
}

func defaultRoles() *roleStub {
	return newRoleStub().
		grant(admissionID, models.RoleAdmissionAdmin, testSchoolID).
		grant(financeID, models.RoleFinanceAdmin, testSchoolID).
		grant(principalID, models.RoleSchoolAdmin, testSchoolID).
		grant(strangerID, models.RoleAdmissionAdmin, otherSchoolID)
}

func applicationSubject(status models.ApplicationStatus) Subject {
	return Subject{Entity: EntityApplication, ID: 7, Status: string(status), SchoolID: testSchoolID, OwnerID: parentID}
}

func paymentSubject(status models.PaymentStatus) Subject {
	return Subject{Entity: EntityPayment, ID: 9, Status: string(status), SchoolID: testSchoolID, OwnerID: parentID}
}

func TestGuardOwnerSubmitsDraft(t *testing.T) {
	guard := NewGuard(nil, defaultRoles())

	changed, err := guard.Check(context.Background(), applicationSubject(models.ApplicationStatusDraft), "submitted", parentID, nil)
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestGuardStaffMayNotSubmit(t *testing.T) {
	guard := NewGuard(nil, defaultRoles())

	_, err := guard.Check(context.Background(), applicationSubject(models.ApplicationStatusDraft), "submitted", admissionID, nil)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorizedTransition))
}

func TestGuardAuthorizationBoundaryForApplications(t *testing.T) {
	r := DefaultRegistry()
	guard := NewGuard(r, defaultRoles())
	ctx := context.Background()

	for _, from := range models.ApplicationStatuses {
		for _, to := range r.Allowed(EntityApplication, string(from)) {
			subject := applicationSubject(from)

			_, err := guard.Check(ctx, subject, to, strangerID, nil)
			assert.True(t, errors.Is(err, appErrors.ErrUnauthorizedTransition), "stranger %s -> %s", from, to)

			ownerOK := to == string(models.ApplicationStatusWithdrawn) ||
				(from == models.ApplicationStatusDraft && to == string(models.ApplicationStatusSubmitted))
			changed, err := guard.Check(ctx, subject, to, parentID, nil)
			if ownerOK {
				assert.NoError(t, err, "owner %s -> %s", from, to)
				assert.True(t, changed)
			} else {
				assert.True(t, errors.Is(err, appErrors.ErrUnauthorizedTransition), "owner %s -> %s", from, to)
			}

			staffOK := to != string(models.ApplicationStatusSubmitted)
			for _, staffID := range []int64{admissionID, principalID} {
				_, err = guard.Check(ctx, subject, to, staffID, nil)
				if staffOK {
					assert.NoError(t, err, "staff %d %s -> %s", staffID, from, to)
				} else {
					assert.True(t, errors.Is(err, appErrors.ErrUnauthorizedTransition))
				}
			}

			_, err = guard.Check(ctx, subject, to, financeID, nil)
			assert.True(t, errors.Is(err, appErrors.ErrUnauthorizedTransition), "finance %s -> %s", from, to)
		}
	}
}

func TestGuardAuthorizationBoundaryForPayments(t *testing.T) {
	guard := NewGuard(nil, defaultRoles())
	ctx := context.Background()

	_, err := guard.Check(ctx, paymentSubject(models.PaymentStatusPending), "waiting_verification", parentID, nil)
	assert.NoError(t, err)
	_, err = guard.Check(ctx, paymentSubject(models.PaymentStatusPending), "waiting_verification", financeID, nil)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorizedTransition))

	for _, to := range []string{"verified", "rejected"} {
		_, err = guard.Check(ctx, paymentSubject(models.PaymentStatusWaitingVerification), to, financeID, nil)
		assert.NoError(t, err, to)
		_, err = guard.Check(ctx, paymentSubject(models.PaymentStatusWaitingVerification), to, principalID, nil)
		assert.NoError(t, err, to)
		_, err = guard.Check(ctx, paymentSubject(models.PaymentStatusWaitingVerification), to, parentID, nil)
		assert.True(t, errors.Is(err, appErrors.ErrUnauthorizedTransition), to)
		_, err = guard.Check(ctx, paymentSubject(models.PaymentStatusWaitingVerification), to, admissionID, nil)
		assert.True(t, errors.Is(err, appErrors.ErrUnauthorizedTransition), to)
	}

	_, err = guard.Check(ctx, paymentSubject(models.PaymentStatusVerified), "refunded", financeID, nil)
	assert.NoError(t, err)
}

func TestGuardInvalidTransitions(t *testing.T) {
	guard := NewGuard(nil, defaultRoles())
	ctx := context.Background()

	_, err := guard.Check(ctx, applicationSubject(models.ApplicationStatusDraft), "accepted", admissionID, nil)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))

	_, err = guard.Check(ctx, applicationSubject(models.ApplicationStatusEnrolled), "withdrawn", parentID, nil)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))

	_, err = guard.Check(ctx, applicationSubject(models.ApplicationStatusDraft), "archived", admissionID, nil)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))

	_, err = guard.Check(ctx, Subject{Entity: EntityApplication, Status: "legacy", SchoolID: testSchoolID, OwnerID: parentID}, "draft", parentID, nil)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))

	_, err = guard.Check(ctx, paymentSubject(models.PaymentStatusRefunded), "verified", financeID, nil)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))
}

func TestGuardSameStatusIsNoOp(t *testing.T) {
	guard := NewGuard(nil, defaultRoles())
	ctx := context.Background()
	called := false
	pre := func(context.Context, Subject, string) error {
		called = true
		return appErrors.ErrPreconditionFailed
	}

	changed, err := guard.Check(ctx, applicationSubject(models.ApplicationStatusUnderReview), "under_review", admissionID, pre)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.False(t, called)

	// A terminal state repeated is still a no-op, not an invalid transition.
	changed, err = guard.Check(ctx, applicationSubject(models.ApplicationStatusWithdrawn), "withdrawn", parentID, nil)
	require.NoError(t, err)
	assert.False(t, changed)

	// No standing still fails before the no-op shortcut.
	_, err = guard.Check(ctx, applicationSubject(models.ApplicationStatusUnderReview), "under_review", strangerID, nil)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorizedTransition))
}

func TestGuardPreconditionRunsLast(t *testing.T) {
	guard := NewGuard(nil, defaultRoles())
	ctx := context.Background()
	var seen []string
	pre := func(_ context.Context, subject Subject, to string) error {
		seen = append(seen, subject.Status+"->"+to)
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "documents missing")
	}

	_, err := guard.Check(ctx, applicationSubject(models.ApplicationStatusDraft), "submitted", strangerID, pre)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorizedTransition))
	_, err = guard.Check(ctx, applicationSubject(models.ApplicationStatusDraft), "accepted", admissionID, pre)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))
	assert.Empty(t, seen)

	_, err = guard.Check(ctx, applicationSubject(models.ApplicationStatusDraft), "submitted", parentID, pre)
	assert.True(t, errors.Is(err, appErrors.ErrPreconditionFailed))
	assert.Equal(t, []string{"draft->submitted"}, seen)
}

func TestGuardOwnerSkipsRoleLookup(t *testing.T) {
	roles := defaultRoles()
	guard := NewGuard(nil, roles)

	_, err := guard.Check(context.Background(), applicationSubject(models.ApplicationStatusSubmitted), "withdrawn", parentID, nil)
	require.NoError(t, err)
	assert.Zero(t, roles.calls)
}

func TestGuardRoleLookupFailure(t *testing.T) {
	roles := newRoleStub()
	roles.err = errors.New("redis down")
	guard := NewGuard(nil, roles)

	_, err := guard.Check(context.Background(), applicationSubject(models.ApplicationStatusSubmitted), "under_review", admissionID, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}

func TestGuardAuthorize(t *testing.T) {
	guard := NewGuard(nil, defaultRoles())
	ctx := context.Background()

	standing, err := guard.Authorize(ctx, applicationSubject(models.ApplicationStatusDraft), parentID)
	require.NoError(t, err)
	assert.Equal(t, Standing{Owner: true}, standing)

	standing, err = guard.Authorize(ctx, applicationSubject(models.ApplicationStatusDraft), admissionID)
	require.NoError(t, err)
	assert.Equal(t, Standing{Staff: true}, standing)

	standing, err = guard.Authorize(ctx, applicationSubject(models.ApplicationStatusDraft), strangerID)
	require.NoError(t, err)
	assert.False(t, standing.Any())

	standing, err = guard.Authorize(ctx, paymentSubject(models.PaymentStatusPending), financeID)
	require.NoError(t, err)
	assert.True(t, standing.Staff)
}
