package dto

import "github.com/noah-isme/admission-workflow-api/internal/models"

// CreatePaymentRequest opens a pending payment for an application.
type CreatePaymentRequest struct {
	ApplicationID int64   `json:"applicationId" validate:"required,gt=0"`
	PaymentTypeID int64   `json:"paymentTypeId" validate:"required,gt=0"`
	Notes         *string `json:"notes" validate:"omitempty,max=1000"`
}

// SubmitProofRequest carries proof-of-payment metadata. The file itself is
// uploaded elsewhere; ProofFile is its storage reference.
type SubmitProofRequest struct {
	ProofFile     string `json:"proofFile" validate:"required,max=500"`
	PaymentMethod string `json:"paymentMethod" validate:"required,max=64"`
	PaymentDate   string `json:"paymentDate" validate:"required,datetime=2006-01-02"`
}

// VerifyPaymentRequest carries optional verification notes.
type VerifyPaymentRequest struct {
	Notes *string `json:"notes" validate:"omitempty,max=1000"`
}

// RejectPaymentRequest carries the mandatory rejection reason.
type RejectPaymentRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

// PaymentResponse decorates a payment with workflow hints.
type PaymentResponse struct {
	*models.Payment
	StatusMeta         models.StatusMeta `json:"statusMeta"`
	AllowedTransitions []string          `json:"allowedTransitions"`
}
