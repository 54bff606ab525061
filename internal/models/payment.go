package models

import (
	"strings"
	"time"
)

// PaymentStatus enumerates payment verification states.
type PaymentStatus string

const (
	PaymentStatusPending             PaymentStatus = "pending"
	PaymentStatusWaitingVerification PaymentStatus = "waiting_verification"
	PaymentStatusVerified            PaymentStatus = "verified"
	PaymentStatusRejected            PaymentStatus = "rejected"
	PaymentStatusRefunded            PaymentStatus = "refunded"
)

// PaymentStatuses lists every payment status.
var PaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusWaitingVerification,
	PaymentStatusVerified,
	PaymentStatusRejected,
	PaymentStatusRefunded,
}

// ParsePaymentStatus accepts the canonical names plus "submitted" as an alias
// of waiting_verification. Unknown values are returned unchanged and fail Valid.
func ParsePaymentStatus(raw string) PaymentStatus {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "submitted" {
		return PaymentStatusWaitingVerification
	}
	return PaymentStatus(normalized)
}

// Valid reports whether s is one of the enumerated statuses.
func (s PaymentStatus) Valid() bool {
	for _, status := range PaymentStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Payment is a payment obligation of an application.
type Payment struct {
	ID              int64         `db:"id" json:"id"`
	ApplicationID   int64         `db:"application_id" json:"application_id"`
	PaymentTypeID   int64         `db:"payment_type_id" json:"payment_type_id"`
	TransactionCode string        `db:"transaction_code" json:"transaction_code"`
	Amount          int64         `db:"amount" json:"amount"`
	Status          PaymentStatus `db:"status" json:"status"`
	ProofFile       *string       `db:"proof_file" json:"proof_file,omitempty"`
	PaymentMethod   *string       `db:"payment_method" json:"payment_method,omitempty"`
	PaymentDate     *time.Time    `db:"payment_date" json:"payment_date,omitempty"`
	Notes           *string       `db:"notes" json:"notes,omitempty"`
	RejectionReason *string       `db:"rejection_reason" json:"rejection_reason,omitempty"`
	VerifiedBy      *int64        `db:"verified_by" json:"verified_by,omitempty"`
	VerifiedAt      *time.Time    `db:"verified_at" json:"verified_at,omitempty"`
	RefundedAt      *time.Time    `db:"refunded_at" json:"refunded_at,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`

	// Scope of the owning application, joined in on read.
	SchoolID int64 `db:"school_id" json:"school_id"`
	OwnerID  int64 `db:"owner_id" json:"owner_id"`
}

// HasProof reports whether proof-of-payment metadata is complete.
func (p *Payment) HasProof() bool {
	return p != nil &&
		p.ProofFile != nil && strings.TrimSpace(*p.ProofFile) != "" &&
		p.PaymentMethod != nil && strings.TrimSpace(*p.PaymentMethod) != "" &&
		p.PaymentDate != nil && !p.PaymentDate.IsZero()
}

// PaymentStatusUpdate carries a status write together with the fields the
// transition fills in. Nil fields leave the stored values untouched.
type PaymentStatusUpdate struct {
	Status          PaymentStatus
	ProofFile       *string
	PaymentMethod   *string
	PaymentDate     *time.Time
	Notes           *string
	RejectionReason *string
	VerifiedBy      *int64
	VerifiedAt      *time.Time
	RefundedAt      *time.Time
	UpdatedAt       time.Time
}
