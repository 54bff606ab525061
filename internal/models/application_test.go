package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeStudentName(t *testing.T) {
	assert.Equal(t, "siti nur aisyah", NormalizeStudentName("  Siti  Nur", "AISYAH "))
	assert.Equal(t, NormalizeStudentName("Budi", "Santoso"), NormalizeStudentName("budi ", " santoso"))
}

func TestFormatApplicationNumber(t *testing.T) {
	assert.Equal(t, "SMA1-2026-0007", FormatApplicationNumber("sma1", 2026, 7))
	assert.Equal(t, "SMA1-2026-12345", FormatApplicationNumber("SMA1", 2026, 12345))
}

func TestStatusEnumerations(t *testing.T) {
	assert.Len(t, ApplicationStatuses, 13)
	assert.True(t, ApplicationStatusInterviewCompleted.Valid())
	assert.False(t, ApplicationStatus("archived").Valid())
	assert.False(t, ApplicationStatusWithdrawn.Active())
	assert.True(t, ApplicationStatusWaitlisted.Active())

	assert.Equal(t, PaymentStatusWaitingVerification, ParsePaymentStatus(" Submitted "))
	assert.Equal(t, PaymentStatusVerified, ParsePaymentStatus("verified"))
	assert.False(t, ParsePaymentStatus("paid").Valid())
}

func TestPaymentHasProof(t *testing.T) {
	file, method, blank := "proofs/1.jpg", "bank_transfer", " "
	date := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, (&Payment{ProofFile: &file, PaymentMethod: &method, PaymentDate: &date}).HasProof())
	assert.False(t, (&Payment{ProofFile: &file, PaymentMethod: &blank, PaymentDate: &date}).HasProof())
	assert.False(t, (&Payment{ProofFile: &file, PaymentMethod: &method}).HasProof())
	var nilPayment *Payment
	assert.False(t, nilPayment.HasProof())
}

func TestStatusMetaFallback(t *testing.T) {
	assert.Equal(t, "Under Review", ApplicationStatusUnderReview.Meta().Label)
	assert.Equal(t, "archived", ApplicationStatus("archived").Meta().Label)
	assert.Equal(t, "success", PaymentStatusVerified.Meta().Color)
}
