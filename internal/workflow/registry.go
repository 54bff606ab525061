// Package workflow holds the admission status machines: the transition
// registry, the guard that authorizes transitions and the field locks that
// apply once an application leaves draft.
package workflow

import (
	"github.com/noah-isme/admission-workflow-api/internal/models"
)

// Entity identifies a workflow-managed record type.
type Entity string

const (
	EntityApplication Entity = models.SubjectTypeApplication
	EntityPayment     Entity = models.SubjectTypePayment
)

var applicationTransitions = map[models.ApplicationStatus][]models.ApplicationStatus{
	models.ApplicationStatusDraft: {
		models.ApplicationStatusSubmitted,
		models.ApplicationStatusWithdrawn,
	},
	models.ApplicationStatusSubmitted: {
		models.ApplicationStatusUnderReview,
		models.ApplicationStatusWithdrawn,
	},
	models.ApplicationStatusUnderReview: {
		models.ApplicationStatusDocumentsVerified,
		models.ApplicationStatusRejected,
		models.ApplicationStatusWaitlisted,
		models.ApplicationStatusWithdrawn,
	},
	models.ApplicationStatusDocumentsVerified: {
		models.ApplicationStatusInterviewScheduled,
		models.ApplicationStatusRejected,
		models.ApplicationStatusWaitlisted,
		models.ApplicationStatusWithdrawn,
	},
	models.ApplicationStatusInterviewScheduled: {
		models.ApplicationStatusInterviewCompleted,
		models.ApplicationStatusWithdrawn,
	},
	models.ApplicationStatusInterviewCompleted: {
		models.ApplicationStatusPaymentPending,
		models.ApplicationStatusAccepted,
		models.ApplicationStatusRejected,
		models.ApplicationStatusWaitlisted,
		models.ApplicationStatusWithdrawn,
	},
	models.ApplicationStatusPaymentPending: {
		models.ApplicationStatusPaymentVerified,
		models.ApplicationStatusRejected,
		models.ApplicationStatusWithdrawn,
	},
	models.ApplicationStatusPaymentVerified: {
		models.ApplicationStatusAccepted,
		models.ApplicationStatusRejected,
		models.ApplicationStatusWithdrawn,
	},
	models.ApplicationStatusAccepted: {
		models.ApplicationStatusEnrolled,
		models.ApplicationStatusWithdrawn,
	},
	models.ApplicationStatusWaitlisted: {
		models.ApplicationStatusAccepted,
		models.ApplicationStatusRejected,
		models.ApplicationStatusWithdrawn,
	},
	models.ApplicationStatusRejected:  {},
	models.ApplicationStatusEnrolled:  {},
	models.ApplicationStatusWithdrawn: {},
}

var paymentTransitions = map[models.PaymentStatus][]models.PaymentStatus{
	models.PaymentStatusPending:             {models.PaymentStatusWaitingVerification},
	models.PaymentStatusWaitingVerification: {models.PaymentStatusVerified, models.PaymentStatusRejected},
	models.PaymentStatusVerified:            {models.PaymentStatusRefunded},
	models.PaymentStatusRejected:            {},
	models.PaymentStatusRefunded:            {},
}

// Registry is an immutable lookup of allowed one-step transitions per entity.
type Registry struct {
	graphs map[Entity]map[string][]string
}

// DefaultRegistry returns the application and payment transition graphs.
func DefaultRegistry() *Registry {
	r := &Registry{graphs: make(map[Entity]map[string][]string, 2)}

	app := make(map[string][]string, len(applicationTransitions))
	for from, targets := range applicationTransitions {
		list := make([]string, 0, len(targets))
		for _, to := range targets {
			list = append(list, string(to))
		}
		app[string(from)] = list
	}
	r.graphs[EntityApplication] = app

	pay := make(map[string][]string, len(paymentTransitions))
	for from, targets := range paymentTransitions {
		list := make([]string, 0, len(targets))
		for _, to := range targets {
			list = append(list, string(to))
		}
		pay[string(from)] = list
	}
	r.graphs[EntityPayment] = pay

	return r
}

// Known reports whether status is a state of the entity's graph.
func (r *Registry) Known(entity Entity, status string) bool {
	graph, ok := r.graphs[entity]
	if !ok {
		return false
	}
	_, ok = graph[status]
	return ok
}

// Allowed returns a copy of the states reachable from `from` in one step.
// Unknown entities or states yield nil.
func (r *Registry) Allowed(entity Entity, from string) []string {
	targets := r.graphs[entity][from]
	if targets == nil {
		return nil
	}
	return append([]string{}, targets...)
}

// CanTransition reports whether from -> to is an edge of the graph. Staying
// in the same state is not an edge; callers treat it as a no-op.
func (r *Registry) CanTransition(entity Entity, from, to string) bool {
	for _, target := range r.graphs[entity][from] {
		if target == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a known state has no outgoing transitions.
func (r *Registry) IsTerminal(entity Entity, status string) bool {
	return r.Known(entity, status) && len(r.graphs[entity][status]) == 0
}
