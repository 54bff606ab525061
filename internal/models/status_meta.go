package models

// StatusMeta is display metadata for a status value.
type StatusMeta struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

var applicationStatusMeta = map[ApplicationStatus]StatusMeta{
	ApplicationStatusDraft:              {Label: "Draft", Color: "gray"},
	ApplicationStatusSubmitted:          {Label: "Submitted", Color: "info"},
	ApplicationStatusUnderReview:        {Label: "Under Review", Color: "warning"},
	ApplicationStatusDocumentsVerified:  {Label: "Documents Verified", Color: "info"},
	ApplicationStatusInterviewScheduled: {Label: "Interview Scheduled", Color: "primary"},
	ApplicationStatusInterviewCompleted: {Label: "Interview Completed", Color: "primary"},
	ApplicationStatusPaymentPending:     {Label: "Payment Pending", Color: "warning"},
	ApplicationStatusPaymentVerified:    {Label: "Payment Verified", Color: "success"},
	ApplicationStatusAccepted:           {Label: "Accepted", Color: "success"},
	ApplicationStatusWaitlisted:         {Label: "Waitlisted", Color: "warning"},
	ApplicationStatusRejected:           {Label: "Rejected", Color: "danger"},
	ApplicationStatusEnrolled:           {Label: "Enrolled", Color: "success"},
	ApplicationStatusWithdrawn:          {Label: "Withdrawn", Color: "gray"},
}

var paymentStatusMeta = map[PaymentStatus]StatusMeta{
	PaymentStatusPending:             {Label: "Pending", Color: "gray"},
	PaymentStatusWaitingVerification: {Label: "Waiting Verification", Color: "warning"},
	PaymentStatusVerified:            {Label: "Verified", Color: "success"},
	PaymentStatusRejected:            {Label: "Rejected", Color: "danger"},
	PaymentStatusRefunded:            {Label: "Refunded", Color: "info"},
}

// Meta returns display metadata; unknown statuses echo their raw value.
func (s ApplicationStatus) Meta() StatusMeta {
	if meta, ok := applicationStatusMeta[s]; ok {
		return meta
	}
	return StatusMeta{Label: string(s), Color: "gray"}
}

// Meta returns display metadata; unknown statuses echo their raw value.
func (s PaymentStatus) Meta() StatusMeta {
	if meta, ok := paymentStatusMeta[s]; ok {
		return meta
	}
	return StatusMeta{Label: string(s), Color: "gray"}
}
