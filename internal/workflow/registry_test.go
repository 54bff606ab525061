package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admission-workflow-api/internal/models"
)

func TestRegistryApplicationEdges(t *testing.T) {
	r := DefaultRegistry()

	expected := map[models.ApplicationStatus][]models.ApplicationStatus{}
	for from, targets := range applicationTransitions {
		expected[from] = targets
	}

	for _, from := range models.ApplicationStatuses {
		require.True(t, r.Known(EntityApplication, string(from)), from)
		for _, to := range models.ApplicationStatuses {
			want := false
			for _, target := range expected[from] {
				if target == to {
					want = true
				}
			}
			assert.Equal(t, want, r.CanTransition(EntityApplication, string(from), string(to)), "%s -> %s", from, to)
		}
	}

	assert.True(t, r.CanTransition(EntityApplication, "draft", "submitted"))
	assert.True(t, r.CanTransition(EntityApplication, "waitlisted", "accepted"))
	assert.False(t, r.CanTransition(EntityApplication, "draft", "accepted"))
	assert.False(t, r.CanTransition(EntityApplication, "submitted", "submitted"))
	assert.False(t, r.CanTransition(EntityApplication, "archived", "draft"))
}

func TestRegistryEveryActiveStateMayWithdraw(t *testing.T) {
	r := DefaultRegistry()
	for _, status := range models.ApplicationStatuses {
		if r.IsTerminal(EntityApplication, string(status)) {
			continue
		}
		assert.True(t, r.CanTransition(EntityApplication, string(status), string(models.ApplicationStatusWithdrawn)), status)
	}
}

func TestRegistryTerminalStates(t *testing.T) {
	r := DefaultRegistry()

	for _, status := range []string{"rejected", "enrolled", "withdrawn"} {
		assert.True(t, r.IsTerminal(EntityApplication, status), status)
		assert.Empty(t, r.Allowed(EntityApplication, status))
	}
	assert.False(t, r.IsTerminal(EntityApplication, "draft"))
	assert.False(t, r.IsTerminal(EntityApplication, "archived"))

	for _, status := range []string{"rejected", "refunded"} {
		assert.True(t, r.IsTerminal(EntityPayment, status), status)
	}
	assert.False(t, r.IsTerminal(EntityPayment, "verified"))
}

func TestRegistryPaymentEdges(t *testing.T) {
	r := DefaultRegistry()

	assert.True(t, r.CanTransition(EntityPayment, "pending", "waiting_verification"))
	assert.True(t, r.CanTransition(EntityPayment, "waiting_verification", "verified"))
	assert.True(t, r.CanTransition(EntityPayment, "waiting_verification", "rejected"))
	assert.True(t, r.CanTransition(EntityPayment, "verified", "refunded"))

	assert.False(t, r.CanTransition(EntityPayment, "pending", "verified"))
	assert.False(t, r.CanTransition(EntityPayment, "rejected", "waiting_verification"))
	assert.False(t, r.CanTransition(EntityPayment, "refunded", "verified"))
	assert.False(t, r.Known(EntityPayment, "submitted"))
}

func TestRegistryAllowedReturnsCopy(t *testing.T) {
	r := DefaultRegistry()

	allowed := r.Allowed(EntityPayment, "waiting_verification")
	require.Len(t, allowed, 2)
	allowed[0] = "refunded"

	assert.ElementsMatch(t, []string{"verified", "rejected"}, r.Allowed(EntityPayment, "waiting_verification"))
	assert.Nil(t, r.Allowed(EntityPayment, "unknown"))
	assert.Nil(t, r.Allowed(Entity("invoice"), "pending"))
}
